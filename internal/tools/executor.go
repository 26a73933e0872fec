package tools

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"dealflow/internal/collab"
	"dealflow/internal/types"
)

// ExecutorConfig holds the executor's operational bounds.
type ExecutorConfig struct {
	// Timeout is the maximum time for a single tool execution.
	Timeout time.Duration

	// IdempotencyTTL is how long a successful mutating result is replayed
	// for repeated idempotency keys.
	IdempotencyTTL time.Duration
}

// DefaultExecutorConfig returns sensible defaults.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		Timeout:        30 * time.Second,
		IdempotencyTTL: 10 * time.Minute,
	}
}

// Executor validates and runs tool calls, normalizing every outcome into a
// ToolCallResult envelope. It never returns an error to the orchestrator;
// failures become envelopes the model can react to. The executor is
// stateless apart from the idempotency cache.
type Executor struct {
	registry *Registry
	logger   *zap.Logger
	cfg      ExecutorConfig
	idem     *idempotencyCache
}

// NewExecutor creates an executor over the given registry.
func NewExecutor(registry *Registry, logger *zap.Logger, cfg ExecutorConfig) *Executor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultExecutorConfig().Timeout
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = DefaultExecutorConfig().IdempotencyTTL
	}
	return &Executor{
		registry: registry,
		logger:   logger,
		cfg:      cfg,
		idem:     newIdempotencyCache(cfg.IdempotencyTTL),
	}
}

// Request is one tool invocation to execute.
type Request struct {
	CallID    string
	Name      string
	Arguments map[string]any

	// IdempotencyKey dedupes repeated mutating calls. Empty disables
	// caching for this request.
	IdempotencyKey string
}

// Execute runs a single tool call and returns its result envelope.
func (e *Executor) Execute(ctx context.Context, req Request) types.ToolCallResult {
	tool, err := e.registry.Lookup(req.Name)
	if err != nil {
		return e.errorResult(req, types.DetailUnknownTool, err)
	}

	if err := validateArgs(tool.Schema, req.Arguments); err != nil {
		return e.errorResult(req, types.DetailInvalidArguments, err)
	}

	if tool.Mutating && req.IdempotencyKey != "" {
		if payload, ok := e.idem.get(req.IdempotencyKey); ok {
			e.logger.Info("replaying cached tool result",
				zap.String("tool", req.Name),
				zap.String("call_id", req.CallID))
			return types.ToolCallResult{
				CallID:   req.CallID,
				ToolName: req.Name,
				Status:   types.StatusOK,
				Payload:  payload,
			}
		}
	}

	toolCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	start := time.Now()
	payload, err := tool.Execute(toolCtx, req.Arguments)
	elapsed := time.Since(start)

	if err != nil {
		detail := e.classify(toolCtx, err)
		e.logger.Warn("tool execution failed",
			zap.String("tool", req.Name),
			zap.String("call_id", req.CallID),
			zap.String("detail", detail),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return e.errorResult(req, detail, err)
	}

	e.logger.Debug("tool executed",
		zap.String("tool", req.Name),
		zap.String("call_id", req.CallID),
		zap.Duration("elapsed", elapsed))

	if tool.Mutating && req.IdempotencyKey != "" {
		e.idem.put(req.IdempotencyKey, payload)
	}

	return types.ToolCallResult{
		CallID:   req.CallID,
		ToolName: req.Name,
		Status:   types.StatusOK,
		Payload:  payload,
	}
}

// classify maps an execution error onto a machine-readable status detail.
func (e *Executor) classify(ctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return types.DetailTimeout
	}

	if code, ok := collab.CodeOf(err); ok {
		switch code {
		case collab.CodeNotFound:
			return types.DetailNotFound
		case collab.CodeInvalidInput:
			return types.DetailInvalidInput
		case collab.CodeRateLimited:
			return types.DetailRateLimited
		case collab.CodeUnavailable:
			return types.DetailUpstreamUnavailable
		case collab.CodeRejected:
			return types.DetailUpstreamRejected
		}
	}
	return types.DetailUpstreamRejected
}

func (e *Executor) errorResult(req Request, detail string, err error) types.ToolCallResult {
	return types.ToolCallResult{
		CallID:       req.CallID,
		ToolName:     req.Name,
		Status:       types.StatusError,
		StatusDetail: detail,
		Payload:      map[string]any{"error": err.Error()},
	}
}
