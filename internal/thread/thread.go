package thread

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for an unknown thread ID.
var ErrNotFound = errors.New("thread not found")

// Role values for a Turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a thread.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Thread is a conversation about one feedback item.
type Thread struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	ItemTitle string    `json:"itemTitle"`
	Item      string    `json:"item"`
	CreatedAt time.Time `json:"createdAt"`
	Turns     []Turn    `json:"turns"`
}

// UserMessages returns the content of every user turn, oldest first.
func (t Thread) UserMessages() []string {
	var out []string
	for _, turn := range t.Turns {
		if turn.Role == RoleUser {
			out = append(out, turn.Content)
		}
	}
	return out
}

// Store persists threads.
type Store interface {
	// Create stores t, assigning an ID and creation time when unset.
	Create(ctx context.Context, t Thread) (Thread, error)
	Get(ctx context.Context, id string) (Thread, error)
	// Append adds turns to the end of the thread.
	Append(ctx context.Context, id string, turns ...Turn) error
	Close() error
}
