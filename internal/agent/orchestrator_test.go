package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap"

	"dealflow/internal/conversation"
	"dealflow/internal/tools"
	"dealflow/internal/types"
)

// scriptedGateway plays back a fixed sequence of decisions or errors, one per
// Decide call.
type scriptedGateway struct {
	mu      sync.Mutex
	steps   []scriptStep
	calls   int
	history [][]types.Turn
}

type scriptStep struct {
	decision *types.Decision
	err      error
}

func (g *scriptedGateway) Decide(ctx context.Context, history []types.Turn, catalog []types.ToolDefinition) (*types.Decision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.history = append(g.history, history)
	if g.calls >= len(g.steps) {
		return nil, errors.New("gateway script exhausted")
	}
	step := g.steps[g.calls]
	g.calls++
	return step.decision, step.err
}

func toolCalls(calls ...types.ToolCall) *types.Decision {
	return &types.Decision{ToolCalls: calls}
}

func finalText(text string) *types.Decision {
	return &types.Decision{Text: text}
}

func newTestOrchestrator(t *testing.T, gateway types.ModelGateway, reg *tools.Registry, cfg Config) (*Orchestrator, *conversation.Store) {
	t.Helper()
	logger := zap.NewNop()
	executor := tools.NewExecutor(reg, logger, tools.ExecutorConfig{Timeout: time.Second})
	store := conversation.NewStore(logger, conversation.DefaultConfig())
	return New(gateway, reg, executor, store, logger, cfg), store
}

func schedulingRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry()
	reg.MustRegister(&tools.Tool{
		Name:     "schedule_meeting",
		Mutating: true,
		Schema: types.ParameterSchema{
			Required: []string{"attendee_email"},
			Properties: map[string]types.ParameterSpec{
				"attendee_email": {Type: "string"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return map[string]any{"event_id": "evt_1"}, nil
		},
	})
	return reg
}

func TestRespondToolCallThenFinal(t *testing.T) {
	gateway := &scriptedGateway{steps: []scriptStep{
		{decision: toolCalls(types.ToolCall{
			Name:      "schedule_meeting",
			Arguments: map[string]any{"attendee_email": "jane@acme.com"},
		})},
		{decision: finalText("Scheduled the demo with Jane for tomorrow at 2pm.")},
	}}
	orch, store := newTestOrchestrator(t, gateway, schedulingRegistry(t), Config{})

	result, err := orch.Respond(context.Background(), "", "schedule a demo with jane@acme.com tomorrow at 2pm")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}

	if !strings.Contains(result.Response, "Scheduled") {
		t.Errorf("unexpected response: %q", result.Response)
	}
	if len(result.ToolCalls) != 1 || result.ToolCalls[0].Name != "schedule_meeting" {
		t.Errorf("tool calls not surfaced: %+v", result.ToolCalls)
	}
	if len(result.ToolResults) != 1 || !result.ToolResults[0].OK() {
		t.Fatalf("tool results not surfaced: %+v", result.ToolResults)
	}
	if result.ToolResults[0].Payload["event_id"] != "evt_1" {
		t.Errorf("payload not carried through: %+v", result.ToolResults[0].Payload)
	}

	// History records user, request, result, assistant in order.
	history, err := store.History(result.ConversationID)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	wantKinds := []types.TurnKind{types.TurnUser, types.TurnToolRequest, types.TurnToolResult, types.TurnAssistant}
	if len(history) != len(wantKinds) {
		t.Fatalf("got %d turns, want %d", len(history), len(wantKinds))
	}
	for i, kind := range wantKinds {
		if history[i].Kind != kind {
			t.Errorf("turn %d kind = %s, want %s", i, history[i].Kind, kind)
		}
	}
	if history[1].CallID == "" || history[1].CallID != history[2].CallID {
		t.Error("request and result call ids must match")
	}
}

func TestRespondToolFailureFlowsBackToModel(t *testing.T) {
	reg := tools.NewRegistry()
	reg.MustRegister(&tools.Tool{
		Name: "contact_info",
		Execute: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return nil, errors.New("contact not found")
		},
	})

	gateway := &scriptedGateway{steps: []scriptStep{
		{decision: toolCalls(types.ToolCall{Name: "contact_info", Arguments: map[string]any{"name": "Nobody"}})},
		{decision: finalText("I could not find a contact named Nobody.")},
	}}
	orch, _ := newTestOrchestrator(t, gateway, reg, Config{})

	result, err := orch.Respond(context.Background(), "", "who is Nobody?")
	if err != nil {
		t.Fatalf("a failed tool call must not fail the orchestration: %v", err)
	}
	if len(result.ToolResults) != 1 || result.ToolResults[0].OK() {
		t.Fatalf("expected one error envelope: %+v", result.ToolResults)
	}

	// The second decision saw the error envelope in history.
	last := gateway.history[len(gateway.history)-1]
	found := false
	for _, turn := range last {
		if turn.Kind == types.TurnToolResult && turn.Status == types.StatusError {
			found = true
		}
	}
	if !found {
		t.Error("error result never reached the model")
	}
}

func TestRespondUnknownToolReportedToModel(t *testing.T) {
	gateway := &scriptedGateway{steps: []scriptStep{
		{decision: toolCalls(types.ToolCall{Name: "fabricated_tool"})},
		{decision: finalText("That capability is not available.")},
	}}
	orch, _ := newTestOrchestrator(t, gateway, tools.NewRegistry(), Config{})

	result, err := orch.Respond(context.Background(), "", "do something impossible")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if len(result.ToolResults) != 1 {
		t.Fatalf("expected one result, got %d", len(result.ToolResults))
	}
	if result.ToolResults[0].StatusDetail != types.DetailUnknownTool {
		t.Errorf("got detail %q, want %q", result.ToolResults[0].StatusDetail, types.DetailUnknownTool)
	}
}

func TestRespondRoundCapDegrades(t *testing.T) {
	// The model requests tools forever; the loop must stop at MaxRounds.
	steps := make([]scriptStep, 10)
	for i := range steps {
		steps[i] = scriptStep{decision: toolCalls(types.ToolCall{
			Name:      "schedule_meeting",
			Arguments: map[string]any{"attendee_email": "jane@acme.com"},
		})}
	}
	gateway := &scriptedGateway{steps: steps}
	orch, store := newTestOrchestrator(t, gateway, schedulingRegistry(t), Config{MaxRounds: 3})

	result, err := orch.Respond(context.Background(), "", "keep going")
	if err != nil {
		t.Fatalf("round cap must degrade, not error: %v", err)
	}
	if gateway.calls != 3 {
		t.Errorf("gateway consulted %d times, want 3", gateway.calls)
	}
	if result.Response != degradedLimitMessage {
		t.Errorf("unexpected degraded response: %q", result.Response)
	}

	history, _ := store.History(result.ConversationID)
	last := history[len(history)-1]
	if last.Kind != types.TurnAssistant || last.Text != degradedLimitMessage {
		t.Error("degraded message not recorded in history")
	}
}

func TestRespondModelRetryBudget(t *testing.T) {
	gateway := &scriptedGateway{steps: []scriptStep{
		{err: errors.New("transient 503")},
		{decision: finalText("Recovered on the second attempt.")},
	}}
	orch, _ := newTestOrchestrator(t, gateway, tools.NewRegistry(), Config{ModelRetries: 2})

	result, err := orch.Respond(context.Background(), "", "hello")
	if err != nil {
		t.Fatalf("a single transient failure must be retried: %v", err)
	}
	if result.Response != "Recovered on the second attempt." {
		t.Errorf("unexpected response: %q", result.Response)
	}
}

func TestRespondModelExhausted(t *testing.T) {
	gateway := &scriptedGateway{steps: []scriptStep{
		{err: errors.New("503")},
		{err: errors.New("503")},
	}}
	orch, store := newTestOrchestrator(t, gateway, tools.NewRegistry(), Config{ModelRetries: 2})

	result, err := orch.Respond(context.Background(), "boom", "hello")
	if !errors.Is(err, ErrModelExhausted) {
		t.Fatalf("got %v, want ErrModelExhausted", err)
	}
	if result != nil {
		t.Errorf("result must be nil on exhaustion, got %+v", result)
	}

	// The user turn stays in history even though the cycle failed.
	history, herr := store.History("boom")
	if herr != nil {
		t.Fatalf("History failed: %v", herr)
	}
	if len(history) != 1 || history[0].Kind != types.TurnUser {
		t.Errorf("expected the user turn to survive, got %+v", history)
	}
}

func TestRespondParallelCallsAllRecorded(t *testing.T) {
	defer goleak.VerifyNone(t)

	reg := tools.NewRegistry()
	reg.MustRegister(&tools.Tool{
		Name: "contact_info",
		Execute: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return map[string]any{"found": true}, nil
		},
	})

	calls := make([]types.ToolCall, 4)
	for i := range calls {
		calls[i] = types.ToolCall{Name: "contact_info", Arguments: map[string]any{"name": "Jane"}}
	}
	gateway := &scriptedGateway{steps: []scriptStep{
		{decision: toolCalls(calls...)},
		{decision: finalText("Found all four.")},
	}}
	orch, store := newTestOrchestrator(t, gateway, reg, Config{})

	result, err := orch.Respond(context.Background(), "", "look up four contacts")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if len(result.ToolResults) != 4 {
		t.Fatalf("got %d results, want 4", len(result.ToolResults))
	}

	history, _ := store.History(result.ConversationID)
	var requests, results int
	for _, turn := range history {
		switch turn.Kind {
		case types.TurnToolRequest:
			requests++
		case types.TurnToolResult:
			results++
		}
	}
	if requests != 4 || results != 4 {
		t.Errorf("history has %d requests and %d results, want 4 and 4", requests, results)
	}
}

func TestRespondBusyConversationRejected(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	reg := tools.NewRegistry()
	reg.MustRegister(&tools.Tool{
		Name: "slow_tool",
		Execute: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			close(started)
			<-release
			return map[string]any{}, nil
		},
	})
	gateway := &scriptedGateway{steps: []scriptStep{
		{decision: toolCalls(types.ToolCall{Name: "slow_tool"})},
		{decision: finalText("done")},
	}}
	orch, store := newTestOrchestrator(t, gateway, reg, Config{})

	id, _ := store.GetOrCreate("")

	errCh := make(chan error, 1)
	go func() {
		_, err := orch.Respond(context.Background(), id, "first")
		errCh <- err
	}()

	<-started
	_, err := orch.Respond(context.Background(), id, "second")
	if !errors.Is(err, conversation.ErrConversationBusy) {
		t.Errorf("got %v, want ErrConversationBusy", err)
	}

	close(release)
	if err := <-errCh; err != nil {
		t.Fatalf("first orchestration failed: %v", err)
	}

	// The lease is free again.
	if _, err := orch.Respond(context.Background(), id, "third"); !errors.Is(err, ErrModelExhausted) {
		// Script is exhausted by now, but the busy lease must not be the
		// failure.
		if errors.Is(err, conversation.ErrConversationBusy) {
			t.Error("lease not released after orchestration finished")
		}
	}
}

func TestIdempotencyKeyStable(t *testing.T) {
	call := types.ToolCall{
		Name:      "send_email",
		Arguments: map[string]any{"to": "jane@acme.com", "subject": "hi"},
	}
	a := idempotencyKey("conv-1", 0, call)
	b := idempotencyKey("conv-1", 0, call)
	if a != b {
		t.Error("same call must derive the same key")
	}

	c := idempotencyKey("conv-1", 1, call)
	if a == c {
		t.Error("different rounds must derive different keys")
	}
	d := idempotencyKey("conv-2", 0, call)
	if a == d {
		t.Error("different conversations must derive different keys")
	}
}
