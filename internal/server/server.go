// Package server exposes the orchestrator over two delivery channels: a
// single-shot JSON endpoint and a persistent WebSocket. Both serialize
// results identically; raw internal errors never cross the transport
// boundary.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"dealflow/internal/agent"
	"dealflow/internal/conversation"
	"dealflow/internal/store"
	"dealflow/internal/types"
)

// User-safe error copy. Internal detail stays in the logs.
const (
	msgBusy        = "I'm still working on your previous message. Please wait for it to finish."
	msgUnavailable = "I'm sorry, I couldn't reach the assistant right now. Please try again."
	msgBadRequest  = "The request could not be understood."
	msgNotFound    = "Customer not found."
)

// Assistant is the orchestrator surface the server needs.
type Assistant interface {
	Respond(ctx context.Context, conversationID, message string) (*types.OrchestrationResult, error)
	CustomerInsight(ctx context.Context, contact *types.ContactRecord) (*types.OrchestrationResult, error)
	EmailSuggestion(ctx context.Context, contact *types.ContactRecord, emailType string) (*types.OrchestrationResult, error)
}

// Cards is the card lookup surface for the insight endpoints.
type Cards interface {
	GetCard(ctx context.Context, id int64) (*store.Card, error)
}

// Config holds the server's listen settings.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the delivery adapter.
type Server struct {
	assistant Assistant
	cards     Cards
	logger    *zap.Logger
	http      *http.Server
}

// New builds the server around an assistant and a card store.
func New(cfg Config, assistant Assistant, cards Cards, logger *zap.Logger) *Server {
	s := &Server{
		assistant: assistant,
		cards:     cards,
		logger:    logger,
	}
	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat/message", s.handleMessage)
	mux.HandleFunc("POST /chat/insights/{id}", s.handleInsights)
	mux.HandleFunc("POST /chat/email-suggestion/{id}", s.handleEmailSuggestion)
	mux.HandleFunc("GET /chat/ws", s.handleWebSocket)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// ListenAndServe runs the server until it is shut down.
func (s *Server) ListenAndServe() error {
	s.logger.Info("server listening", zap.String("addr", s.http.Addr))
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse(req.ConversationID, msgBadRequest))
		return
	}

	result, err := s.assistant.Respond(r.Context(), req.ConversationID, req.Message)
	if err != nil {
		s.writeOrchestrationError(w, req.ConversationID, err)
		return
	}
	s.writeJSON(w, http.StatusOK, responseFromResult(result))
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	contact, ok := s.contactFromPath(w, r)
	if !ok {
		return
	}

	result, err := s.assistant.CustomerInsight(r.Context(), contact)
	if err != nil {
		s.writeOrchestrationError(w, "", err)
		return
	}
	s.writeJSON(w, http.StatusOK, responseFromResult(result))
}

func (s *Server) handleEmailSuggestion(w http.ResponseWriter, r *http.Request) {
	contact, ok := s.contactFromPath(w, r)
	if !ok {
		return
	}

	emailType := r.URL.Query().Get("email_type")
	result, err := s.assistant.EmailSuggestion(r.Context(), contact, emailType)
	if err != nil {
		s.writeOrchestrationError(w, "", err)
		return
	}
	s.writeJSON(w, http.StatusOK, responseFromResult(result))
}

func (s *Server) contactFromPath(w http.ResponseWriter, r *http.Request) (*types.ContactRecord, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse("", msgBadRequest))
		return nil, false
	}

	card, err := s.cards.GetCard(r.Context(), id)
	if err != nil {
		s.writeJSON(w, http.StatusNotFound, errorResponse("", msgNotFound))
		return nil, false
	}
	return card.Contact(), true
}

// writeOrchestrationError maps orchestrator failures onto user-safe,
// well-formed response objects.
func (s *Server) writeOrchestrationError(w http.ResponseWriter, conversationID string, err error) {
	switch {
	case errors.Is(err, conversation.ErrConversationBusy):
		s.writeJSON(w, http.StatusConflict, errorResponse(conversationID, msgBusy))
	case errors.Is(err, agent.ErrModelExhausted):
		s.logger.Error("assistant unavailable", zap.Error(err))
		s.writeJSON(w, http.StatusBadGateway, errorResponse(conversationID, msgUnavailable))
	default:
		s.logger.Error("orchestration failed", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, errorResponse(conversationID, msgUnavailable))
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}
