package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The dashboard is served from a different origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWebSocket serves the persistent duplex channel. Each connection gets
// its own conversation id and execution context; closing the connection
// cancels that conversation's in-flight work without touching others.
//
// Three tasks cooperate per connection: a read pump that turns frames into
// inbound messages and cancels the context on disconnect, a processing loop
// that feeds messages to the orchestrator one at a time, and a writer that
// owns all writes to the socket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conversationID := uuid.NewString()
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	s.logger.Info("websocket connected", zap.String("conversation_id", conversationID))

	inbound := make(chan string, 8)
	outbound := make(chan chatResponse, 8)

	// Read pump: the only reader of the socket. A read error means the
	// peer is gone; cancelling the context unwinds in-flight work.
	go func() {
		defer cancel()
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if msgType != websocket.TextMessage || len(data) == 0 {
				continue
			}
			select {
			case inbound <- string(data):
			case <-ctx.Done():
				return
			}
		}
	}()

	// Writer: single goroutine owns all writes to the connection.
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case resp := <-outbound:
				if err := conn.WriteJSON(resp); err != nil {
					s.logger.Debug("websocket write failed", zap.Error(err))
					cancel()
					return
				}
			}
		}
	}()

	// Processing loop: messages are handled sequentially, which serializes
	// this connection's conversation.
loop:
	for {
		var message string
		select {
		case <-ctx.Done():
			break loop
		case message = <-inbound:
		}

		result, err := s.assistant.Respond(ctx, conversationID, message)
		if err != nil {
			if ctx.Err() != nil {
				break loop
			}
			s.logger.Warn("websocket orchestration failed",
				zap.String("conversation_id", conversationID),
				zap.Error(err))
			select {
			case outbound <- errorResponse(conversationID, msgUnavailable):
			case <-ctx.Done():
				break loop
			}
			continue
		}

		select {
		case outbound <- responseFromResult(result):
		case <-ctx.Done():
			break loop
		}
	}

	cancel()
	<-writerDone
	s.logger.Info("websocket disconnected", zap.String("conversation_id", conversationID))
}
