package notify

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	notifications map[uuid.UUID]Notification
}

func newMemRepo() *memRepo {
	return &memRepo{notifications: make(map[uuid.UUID]Notification)}
}

func (m *memRepo) Insert(_ context.Context, n Notification) (*Notification, error) {
	n.CreatedAt = time.Now()
	m.notifications[n.ID] = n
	return &n, nil
}

func (m *memRepo) FindPending(_ context.Context, limit int) ([]Notification, error) {
	var out []Notification
	for _, n := range m.notifications {
		if n.Status == StatusPending && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memRepo) MarkSent(_ context.Context, id uuid.UUID, sentAt time.Time) error {
	n, ok := m.notifications[id]
	if !ok || n.Status != StatusPending {
		return ErrNotificationNotFound
	}
	n.Status = StatusSent
	n.SentAt = &sentAt
	m.notifications[id] = n
	return nil
}

func TestCreateDefaultsToPlaceholderChannel(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	n, err := svc.Create(context.Background(), uuid.New(), "Rappel", "Votre rendez-vous est demain", "")
	require.NoError(t, err)

	assert.Equal(t, ChannelPlaceholder, n.Channel)
	assert.Equal(t, StatusPending, n.Status)
}

func TestDispatchPendingMarksSent(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	ctx := context.Background()

	first, err := svc.Create(ctx, uuid.New(), "a", "b", "")
	require.NoError(t, err)
	second, err := svc.Create(ctx, uuid.New(), "c", "d", "")
	require.NoError(t, err)

	sent, err := svc.DispatchPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		stored := repo.notifications[id]
		assert.Equal(t, StatusSent, stored.Status)
		assert.NotNil(t, stored.SentAt)
	}

	// Nothing left on the next run.
	sent, err = svc.DispatchPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestDispatchPendingSkipsAlreadySent(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	ctx := context.Background()

	n, err := svc.Create(ctx, uuid.New(), "a", "b", "")
	require.NoError(t, err)

	// Another worker got there first.
	require.NoError(t, repo.MarkSent(ctx, n.ID, time.Now()))

	sent, err := svc.DispatchPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
}
