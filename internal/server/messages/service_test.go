package messages

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/messagely/messagely/internal/logging"
	"github.com/messagely/messagely/internal/server/accounts"
	"github.com/messagely/messagely/internal/shared"
)

// --- fakes ---

type fakeMessageRepo struct {
	messages map[string]*Message
	users    *fakeAccountRepo
}

func (f *fakeMessageRepo) Create(ctx context.Context, m *Message) (*Message, error) {
	if _, ok := f.users.accounts[m.ToUsername]; !ok {
		return nil, shared.ErrorNotFound
	}
	clone := *m
	f.messages[m.ID] = &clone
	return m, nil
}

func (f *fakeMessageRepo) Get(ctx context.Context, id string) (*Message, error) {
	m, ok := f.messages[id]
	if !ok {
		return nil, shared.ErrorNotFound
	}
	clone := *m
	return &clone, nil
}

func (f *fakeMessageRepo) MarkRead(ctx context.Context, id string, at time.Time) (*Message, error) {
	m, ok := f.messages[id]
	if !ok {
		return nil, shared.ErrorNotFound
	}
	m.ReadAt = &at
	clone := *m
	return &clone, nil
}

func (f *fakeMessageRepo) From(ctx context.Context, username string) ([]*Message, error) {
	var out []*Message
	for _, m := range f.messages {
		if m.FromUsername == username {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) To(ctx context.Context, username string) ([]*Message, error) {
	var out []*Message
	for _, m := range f.messages {
		if m.ToUsername == username {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeAccountRepo struct {
	accounts map[string]*accounts.Account
	lookups  map[string]int
}

func (f *fakeAccountRepo) GetByUsername(ctx context.Context, username string) (*accounts.Account, error) {
	f.lookups[username]++
	a, ok := f.accounts[username]
	if !ok {
		return nil, shared.ErrorNotFound
	}
	return a, nil
}

func (f *fakeAccountRepo) Create(ctx context.Context, a *accounts.Account) (*accounts.Account, error) {
	f.accounts[a.Username] = a
	return a, nil
}

func (f *fakeAccountRepo) List(ctx context.Context) ([]*accounts.Profile, error) { return nil, nil }
func (f *fakeAccountRepo) UpdatePasswordHash(ctx context.Context, username, newHash string) error {
	return nil
}
func (f *fakeAccountRepo) TouchLastLogin(ctx context.Context, username string, at time.Time) error {
	return nil
}
func (f *fakeAccountRepo) SetResetChallenge(ctx context.Context, username, codeHash string, requestedAt time.Time) error {
	return nil
}
func (f *fakeAccountRepo) ClearResetChallenge(ctx context.Context, username string) error {
	return nil
}
func (f *fakeAccountRepo) GetResetChallenge(ctx context.Context, username string) (*accounts.ResetChallenge, error) {
	return nil, nil
}

func newTestMessageService(t *testing.T) (*Service, *fakeMessageRepo, *fakeAccountRepo) {
	t.Helper()

	users := &fakeAccountRepo{
		accounts: map[string]*accounts.Account{
			"alice": {Username: "alice", FirstName: "Alice", LastName: "Adams", Phone: "+15550001111"},
			"bob":   {Username: "bob", FirstName: "Bob", LastName: "Brown", Phone: "+15550002222"},
		},
		lookups: map[string]int{},
	}
	repo := &fakeMessageRepo{messages: map[string]*Message{}, users: users}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	svc := NewService(repo, users, logger)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc, repo, users
}

// --- tests ---

func TestSend_AssignsIDAndTimestamp(t *testing.T) {
	svc, _, _ := newTestMessageService(t)

	m, err := svc.Send(context.Background(), "alice", "bob", "hi bob")
	require.NoError(t, err)

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "alice", m.FromUsername)
	assert.Equal(t, "bob", m.ToUsername)
	assert.False(t, m.SentAt.IsZero())
	assert.Nil(t, m.ReadAt)
}

func TestSend_UnknownRecipient(t *testing.T) {
	svc, _, _ := newTestMessageService(t)

	_, err := svc.Send(context.Background(), "alice", "ghost", "hi")
	require.ErrorIs(t, err, shared.ErrorNotFound)
}

func TestSend_EmptyBody(t *testing.T) {
	svc, _, _ := newTestMessageService(t)

	_, err := svc.Send(context.Background(), "alice", "bob", "")
	require.ErrorIs(t, err, shared.ErrorValidation)
}

func TestMarkRead(t *testing.T) {
	svc, _, _ := newTestMessageService(t)
	ctx := context.Background()

	m, err := svc.Send(ctx, "alice", "bob", "hi")
	require.NoError(t, err)

	read, err := svc.MarkRead(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, read.ReadAt)

	_, err = svc.MarkRead(ctx, "missing-id")
	require.ErrorIs(t, err, shared.ErrorNotFound)
}

func TestInbox_DeduplicatesCounterpartLookups(t *testing.T) {
	svc, _, users := newTestMessageService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Send(ctx, "alice", "bob", "hello")
		require.NoError(t, err)
	}

	users.lookups = map[string]int{}

	inbox, err := svc.Inbox(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, inbox, 3)

	assert.Equal(t, "alice", inbox[0].From.Username)
	assert.Equal(t, 1, users.lookups["alice"],
		"three messages from the same sender must cost one lookup")
	assert.Equal(t, 1, users.lookups["bob"], "one existence check for the listing owner")
}

func TestOutbox_AttachesRecipient(t *testing.T) {
	svc, _, _ := newTestMessageService(t)
	ctx := context.Background()

	_, err := svc.Send(ctx, "alice", "bob", "hello")
	require.NoError(t, err)

	outbox, err := svc.Outbox(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, outbox, 1)
	assert.Equal(t, "bob", outbox[0].To.Username)
	assert.Equal(t, "Brown", outbox[0].To.LastName)
}

func TestInbox_UnknownUser(t *testing.T) {
	svc, _, _ := newTestMessageService(t)

	_, err := svc.Inbox(context.Background(), "ghost")
	require.ErrorIs(t, err, shared.ErrorNotFound)
}
