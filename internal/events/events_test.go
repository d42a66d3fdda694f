package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	keys []string
	err  error
}

func (r *recorder) PublishEvent(_ context.Context, _, key string, _ any) error {
	r.keys = append(r.keys, key)
	return r.err
}

func TestMulti_DeliversToAll(t *testing.T) {
	a, b := &recorder{}, &recorder{err: errors.New("es down")}

	err := Multi{a, b}.PublishEvent(context.Background(), DefaultTopic, "user-1", struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "es down")
	assert.Equal(t, []string{"user-1"}, a.keys)
	assert.Equal(t, []string{"user-1"}, b.keys)

	assert.NoError(t, Multi{a}.PublishEvent(context.Background(), DefaultTopic, "user-2", struct{}{}))
	assert.NoError(t, Multi(nil).PublishEvent(context.Background(), DefaultTopic, "user-3", struct{}{}))
}

func TestNewUserEvent(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.FixedZone("X", 3600))
	ev := NewUserEvent(UserLoggedIn, "user-1", "a@x.com", at)

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, UserLoggedIn, ev.Type)
	assert.Equal(t, time.UTC, ev.OccurredAt.Location())
	assert.True(t, ev.OccurredAt.Equal(at))
	assert.NoError(t, Nop.PublishEvent(context.Background(), DefaultTopic, "k", ev))
}
