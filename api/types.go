package api

import (
	"context"

	"taskboard/domain"
)

// TaskStore abstracts persistence for handlers.
type TaskStore interface {
	Create(ctx context.Context, title, description, status string) (domain.Task, error)
	FindAll(ctx context.Context, status string) ([]domain.Task, error)
	FindByID(ctx context.Context, id int64) (domain.Task, error)
	Update(ctx context.Context, id int64, fields domain.TaskFields) (domain.Task, error)
	Delete(ctx context.Context, id int64) (domain.Task, error)
}

// Presence resolves connection ids to online users.
type Presence interface {
	Get(connectionID string) (domain.User, bool)
}

// Broadcaster fans an event out to every connected client in call order.
type Broadcaster interface {
	BroadcastAll(event string, payload any)
}

// Realtime is the hub surface handlers need: presence lookups for
// attribution plus ordered fan-out of task events.
type Realtime interface {
	Presence
	Broadcaster
}
