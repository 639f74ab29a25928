package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Command is a sent-but-unacknowledged wire command.
type Command struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

var ErrEmptyType = errors.New("outbox: command type is required")

// NewID returns an idempotency key for a command.
func NewID() string { return uuid.NewString() }

// NewCommand captures v as the exact payload to replay.
func NewCommand(id, kind string, v any) (Command, error) {
	if strings.TrimSpace(kind) == "" {
		return Command{}, ErrEmptyType
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return Command{}, fmt.Errorf("outbox: marshal %s: %w", kind, err)
	}
	return Command{ID: id, Type: kind, Payload: raw, CreatedAt: time.Now().UTC()}, nil
}

// Store keeps pending commands in send order.
type Store interface {
	Push(ctx context.Context, cmd Command) error
	// Ack removes and returns the oldest pending command of kind, or the
	// oldest of any kind when kind is empty. Nil when nothing matches.
	Ack(ctx context.Context, kind string) (*Command, error)
	Pending(ctx context.Context) ([]Command, error)
	Clear(ctx context.Context) error
}

type MemoryStore struct {
	mu   sync.Mutex
	cmds []Command
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Push(_ context.Context, cmd Command) error {
	if strings.TrimSpace(cmd.Type) == "" {
		return ErrEmptyType
	}
	s.mu.Lock()
	s.cmds = append(s.cmds, cmd)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Ack(_ context.Context, kind string) (*Command, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.cmds {
		if kind == "" || c.Type == kind {
			s.cmds = append(s.cmds[:i], s.cmds[i+1:]...)
			return &c, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) Pending(_ context.Context) ([]Command, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Command, len(s.cmds))
	copy(out, s.cmds)
	return out, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.cmds = nil
	s.mu.Unlock()
	return nil
}
