package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	UserRegistered = "user_registered"
	UserLoggedIn   = "user_logged_in"
	TokenRefreshed = "token_refreshed"
	UserLoggedOut  = "user_logged_out"
)

const DefaultTopic = "user_events"

type UserEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewUserEvent(typ, userID, email string, at time.Time) UserEvent {
	return UserEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		UserID:     userID,
		Email:      email,
		OccurredAt: at.UTC(),
	}
}

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type nop struct{}

func (nop) PublishEvent(context.Context, string, string, any) error { return nil }

// Nop discards every event.
var Nop Publisher = nop{}

// Multi delivers each event to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) PublishEvent(ctx context.Context, topic, key string, event any) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishEvent(ctx, topic, key, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
