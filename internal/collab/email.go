package collab

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Message is an outbound email.
type Message struct {
	To           string            `json:"to"`
	Subject      string            `json:"subject"`
	Body         string            `json:"body"`
	TemplateVars map[string]string `json:"template_vars,omitempty"`
}

// DeliveryStatus is the per-recipient outcome of a bulk send.
type DeliveryStatus struct {
	Recipient string `json:"recipient"`
	MessageID string `json:"message_id,omitempty"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// Mailer is the email collaborator contract.
type Mailer interface {
	Send(ctx context.Context, msg Message) (messageID string, err error)
	SendBulk(ctx context.Context, msg Message, recipients []string) ([]DeliveryStatus, error)
}

// HTTPMailer talks to the email service over its JSON API.
type HTTPMailer struct {
	baseURL string
	client  *http.Client
}

// NewHTTPMailer builds a mail client for the given base URL.
func NewHTTPMailer(baseURL string, timeout time.Duration) *HTTPMailer {
	return &HTTPMailer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Send delivers a single message and returns the provider message id.
func (m *HTTPMailer) Send(ctx context.Context, msg Message) (string, error) {
	if msg.To == "" || msg.Subject == "" {
		return "", NewError(CodeInvalidInput, "to and subject are required")
	}

	var out struct {
		MessageID string `json:"message_id"`
	}
	if err := doJSON(ctx, m.client, http.MethodPost, m.baseURL+"/send", msg, &out); err != nil {
		return "", err
	}
	return out.MessageID, nil
}

// SendBulk delivers the message to every recipient and reports per-recipient
// status. A rejected recipient does not fail the whole batch.
func (m *HTTPMailer) SendBulk(ctx context.Context, msg Message, recipients []string) ([]DeliveryStatus, error) {
	if len(recipients) == 0 {
		return nil, NewError(CodeInvalidInput, "recipients are required")
	}

	in := struct {
		Message
		Recipients []string `json:"recipients"`
	}{Message: msg, Recipients: recipients}

	var out struct {
		Results []DeliveryStatus `json:"results"`
	}
	if err := doJSON(ctx, m.client, http.MethodPost, m.baseURL+"/send-bulk", in, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}
