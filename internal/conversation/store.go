// Package conversation implements the in-memory conversation store: ordered,
// append-only turn history keyed by conversation id, with bounded retention,
// per-conversation busy leases, and idle garbage collection.
//
// The store is the single source of truth for history. Appends for one
// conversation are serialized; unrelated conversations proceed independently.
package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dealflow/internal/types"
)

// Config bounds the store.
type Config struct {
	// MaxTurns caps retained history per conversation. Older turns are
	// dropped in whole tool-call rounds. Zero means no cap.
	MaxTurns int

	// IdleTTL is how long an idle, non-busy conversation survives before
	// the garbage collector drops it. Zero disables collection.
	IdleTTL time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxTurns: 200,
		IdleTTL:  time.Hour,
	}
}

type conversationState struct {
	id           string
	createdAt    time.Time
	lastActivity time.Time
	turns        []types.Turn
	busy         bool
}

// Store keeps per-conversation ordered histories.
type Store struct {
	mu     sync.Mutex
	convos map[string]*conversationState
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// NewStore creates an empty conversation store.
func NewStore(logger *zap.Logger, cfg Config) *Store {
	return &Store{
		convos: make(map[string]*conversationState),
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// GetOrCreate returns the history for id, creating the conversation when id
// is empty or unknown. The returned id is the canonical one to use.
func (s *Store) GetOrCreate(id string) (string, []types.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if c, ok := s.convos[id]; ok {
			return id, cloneTurns(c.turns)
		}
	}
	if id == "" {
		id = uuid.NewString()
	}

	now := s.now().UTC()
	s.convos[id] = &conversationState{
		id:           id,
		createdAt:    now,
		lastActivity: now,
	}
	s.logger.Debug("conversation created", zap.String("conversation_id", id))
	return id, nil
}

// Append adds a turn to the conversation. History is append-only; turns are
// never edited or reordered. Returns ErrUnknownConversation for ids that
// were never created.
func (s *Store) Append(id string, turn types.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convos[id]
	if !ok {
		return ErrUnknownConversation
	}

	if turn.Timestamp.IsZero() {
		turn.Timestamp = s.now().UTC()
	}
	c.turns = append(c.turns, turn)
	c.lastActivity = s.now().UTC()

	if s.cfg.MaxTurns > 0 && len(c.turns) > s.cfg.MaxTurns {
		c.turns = truncatePairSafe(c.turns, s.cfg.MaxTurns)
	}
	return nil
}

// History returns the full retained history, oldest first.
func (s *Store) History(id string) ([]types.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convos[id]
	if !ok {
		return nil, ErrUnknownConversation
	}
	return cloneTurns(c.turns), nil
}

// HistoryForModel returns the most recent maxTurns turns, oldest first,
// never splitting a tool request from its result: truncation drops whole
// request/result rounds, oldest first.
func (s *Store) HistoryForModel(id string, maxTurns int) ([]types.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convos[id]
	if !ok {
		return nil, ErrUnknownConversation
	}
	if maxTurns <= 0 || len(c.turns) <= maxTurns {
		return cloneTurns(c.turns), nil
	}
	return cloneTurns(truncatePairSafe(c.turns, maxTurns)), nil
}

// Acquire takes the busy lease for a conversation. A second concurrent
// orchestration on the same id is rejected with ErrConversationBusy rather
// than interleaved.
func (s *Store) Acquire(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convos[id]
	if !ok {
		return ErrUnknownConversation
	}
	if c.busy {
		return ErrConversationBusy
	}
	c.busy = true
	return nil
}

// Release returns the busy lease.
func (s *Store) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.convos[id]; ok {
		c.busy = false
		c.lastActivity = s.now().UTC()
	}
}

// Len returns the number of live conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convos)
}

// RunGC sweeps idle conversations every interval until ctx is done.
func (s *Store) RunGC(ctx context.Context, interval time.Duration) {
	if s.cfg.IdleTTL <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Store) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().UTC().Add(-s.cfg.IdleTTL)
	for id, c := range s.convos {
		if !c.busy && c.lastActivity.Before(cutoff) {
			delete(s.convos, id)
			s.logger.Debug("conversation collected", zap.String("conversation_id", id))
		}
	}
}

// truncatePairSafe returns at most maxTurns of the newest turns, advancing
// the cut point until no tool result in the window lacks its request. Tool
// results always follow their requests, so advancing the start index only
// ever drops whole rounds.
func truncatePairSafe(turns []types.Turn, maxTurns int) []types.Turn {
	start := len(turns) - maxTurns
	if start <= 0 {
		return turns
	}

	for start < len(turns) {
		window := turns[start:]
		requests := make(map[string]struct{})
		for _, t := range window {
			if t.Kind == types.TurnToolRequest {
				requests[t.CallID] = struct{}{}
			}
		}

		orphaned := false
		for _, t := range window {
			if t.Kind == types.TurnToolResult {
				if _, ok := requests[t.CallID]; !ok {
					orphaned = true
					break
				}
			}
		}
		if !orphaned {
			break
		}
		start++
	}
	return turns[start:]
}

func cloneTurns(turns []types.Turn) []types.Turn {
	if len(turns) == 0 {
		return nil
	}
	out := make([]types.Turn, len(turns))
	copy(out, turns)
	return out
}
