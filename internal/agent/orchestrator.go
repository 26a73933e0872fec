// Package agent implements the orchestration loop: ask the model gateway for
// a decision, execute any requested tools, fold results back into the
// conversation, and repeat until a final answer or a safety bound is hit.
package agent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dealflow/internal/conversation"
	"dealflow/internal/tools"
	"dealflow/internal/types"
)

// ErrModelExhausted is returned when the model gateway fails repeatedly and
// the retry budget is spent. The attempted turns remain in history.
var ErrModelExhausted = errors.New("model gateway failed repeatedly")

// degradedLimitMessage is the assistant text appended when the decision
// round cap is reached before the model produced a final answer.
const degradedLimitMessage = "I had to stop before finishing: the request needed more tool steps than I am allowed to take. Here is what I completed so far; please narrow the request and try again."

// Config bounds the orchestration loop.
type Config struct {
	// MaxRounds caps decision rounds per user message.
	MaxRounds int

	// ModelRetries is how many consecutive gateway failures are tolerated
	// per decision before the loop gives up.
	ModelRetries int

	// HistoryTurns bounds the history handed to the model gateway.
	HistoryTurns int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxRounds:    5,
		ModelRetries: 2,
		HistoryTurns: 40,
	}
}

// Orchestrator drives the decision/execution loop for one process.
type Orchestrator struct {
	gateway  types.ModelGateway
	registry *tools.Registry
	executor *tools.Executor
	store    *conversation.Store
	logger   *zap.Logger
	cfg      Config
}

// New creates an orchestrator. All dependencies are required.
func New(gateway types.ModelGateway, registry *tools.Registry, executor *tools.Executor, store *conversation.Store, logger *zap.Logger, cfg Config) *Orchestrator {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultConfig().MaxRounds
	}
	if cfg.ModelRetries <= 0 {
		cfg.ModelRetries = DefaultConfig().ModelRetries
	}
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = DefaultConfig().HistoryTurns
	}
	return &Orchestrator{
		gateway:  gateway,
		registry: registry,
		executor: executor,
		store:    store,
		logger:   logger,
		cfg:      cfg,
	}
}

// Respond processes one user message for a conversation and returns the
// orchestration result. An empty conversationID starts a new conversation.
// A message for a conversation that is already mid-orchestration is rejected
// with conversation.ErrConversationBusy.
func (o *Orchestrator) Respond(ctx context.Context, conversationID, message string) (*types.OrchestrationResult, error) {
	id, _ := o.store.GetOrCreate(conversationID)

	if err := o.store.Acquire(id); err != nil {
		return nil, fmt.Errorf("conversation %s: %w", id, err)
	}
	defer o.store.Release(id)

	if err := o.store.Append(id, types.UserTurn(message)); err != nil {
		return nil, err
	}

	result := &types.OrchestrationResult{ConversationID: id}
	start := time.Now()

	for round := 0; round < o.cfg.MaxRounds; round++ {
		history, err := o.store.HistoryForModel(id, o.cfg.HistoryTurns)
		if err != nil {
			return nil, err
		}

		decision, err := o.decide(ctx, history)
		if err != nil {
			o.logger.Error("model gateway exhausted",
				zap.String("conversation_id", id),
				zap.Int("round", round),
				zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrModelExhausted, err)
		}

		if decision.Final() {
			if err := o.store.Append(id, types.AssistantTurn(decision.Text)); err != nil {
				return nil, err
			}
			result.Response = decision.Text
			o.logger.Info("orchestration done",
				zap.String("conversation_id", id),
				zap.Int("rounds", round+1),
				zap.Int("tool_calls", len(result.ToolCalls)),
				zap.Duration("elapsed", time.Since(start)))
			return result, nil
		}

		calls := o.tagCalls(decision.ToolCalls)
		for _, call := range calls {
			if err := o.store.Append(id, types.RequestTurn(call)); err != nil {
				return nil, err
			}
		}
		result.ToolCalls = append(result.ToolCalls, calls...)

		results, err := o.executeRound(ctx, id, round, calls)
		if err != nil {
			return nil, err
		}
		result.ToolResults = append(result.ToolResults, results...)
	}

	// Safety valve: the model kept requesting tools past the round cap.
	o.logger.Warn("round limit reached",
		zap.String("conversation_id", id),
		zap.Int("max_rounds", o.cfg.MaxRounds))
	if err := o.store.Append(id, types.AssistantTurn(degradedLimitMessage)); err != nil {
		return nil, err
	}
	result.Response = degradedLimitMessage
	return result, nil
}

// decide queries the gateway, tolerating up to ModelRetries consecutive
// failures before giving up.
func (o *Orchestrator) decide(ctx context.Context, history []types.Turn) (*types.Decision, error) {
	catalog := o.registry.Catalog()

	var lastErr error
	for attempt := 0; attempt < o.cfg.ModelRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		decision, err := o.gateway.Decide(ctx, history, catalog)
		if err == nil {
			return decision, nil
		}
		lastErr = err
		o.logger.Warn("model decision failed",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return nil, lastErr
}

// executeRound runs every call of one decision round concurrently. A failure
// in one call does not cancel the others; the executor reports failures as
// error envelopes, never as Go errors. Results are appended to history in
// completion order.
func (o *Orchestrator) executeRound(ctx context.Context, conversationID string, round int, calls []types.ToolCall) ([]types.ToolCallResult, error) {
	var (
		mu      sync.Mutex
		results []types.ToolCallResult
	)

	g, groupCtx := errgroup.WithContext(ctx)
	for _, call := range calls {
		g.Go(func() error {
			res := o.executor.Execute(groupCtx, tools.Request{
				CallID:         call.ID,
				Name:           call.Name,
				Arguments:      call.Arguments,
				IdempotencyKey: idempotencyKey(conversationID, round, call),
			})

			mu.Lock()
			defer mu.Unlock()
			if err := o.store.Append(conversationID, types.ResultTurn(res)); err != nil {
				return err
			}
			results = append(results, res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// tagCalls assigns call ids to calls the model left unidentified.
func (o *Orchestrator) tagCalls(calls []types.ToolCall) []types.ToolCall {
	tagged := make([]types.ToolCall, len(calls))
	for i, call := range calls {
		if call.ID == "" {
			call.ID = uuid.NewString()
		}
		tagged[i] = call
	}
	return tagged
}

// idempotencyKey derives a stable key for a mutating call so a client retry
// of the same message replays the cached side effect instead of repeating
// it. The key covers conversation, round, tool name, and arguments.
func idempotencyKey(conversationID string, round int, call types.ToolCall) string {
	args, err := json.Marshal(call.Arguments)
	if err != nil {
		args = []byte(fmt.Sprintf("%v", call.Arguments))
	}
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%d|%s|%s", conversationID, round, call.Name, args))
	return hex.EncodeToString(sum[:])
}
