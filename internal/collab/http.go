package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// doJSON sends a JSON request and decodes a JSON response into out.
// Non-2xx statuses are mapped onto typed collaborator errors.
func doJSON(ctx context.Context, client *http.Client, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return NewError(CodeInvalidInput, "encode request: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return NewError(CodeInvalidInput, "build request: %v", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		// Timeouts are handled by the executor via ctx; everything else
		// at the transport level means the collaborator is unreachable.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return NewError(CodeUnavailable, "request failed: %v", err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewError(CodeUnavailable, "decode response: %v", err)
	}
	return nil
}

// statusError maps an HTTP status onto a collaborator error code.
func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := fmt.Sprintf("status %d: %s", resp.StatusCode, string(detail))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return NewError(CodeNotFound, "%s", msg)
	case resp.StatusCode == http.StatusTooManyRequests:
		return NewError(CodeRateLimited, "%s", msg)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return NewError(CodeInvalidInput, "%s", msg)
	default:
		return NewError(CodeUnavailable, "%s", msg)
	}
}
