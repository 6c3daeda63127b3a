package accounts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/messagely/messagely/internal/logging"
	"github.com/messagely/messagely/internal/server/password"
	"github.com/messagely/messagely/internal/server/resetcode"
	"github.com/messagely/messagely/internal/shared"
)

// --- fakes ---

type fakeRepo struct {
	accounts map[string]*Account

	createErr error
	getErr    error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{accounts: make(map[string]*Account)}
}

func (f *fakeRepo) Create(ctx context.Context, a *Account) (*Account, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.accounts[a.Username]; ok {
		return nil, shared.ErrorAlreadyExists
	}
	clone := *a
	f.accounts[a.Username] = &clone
	return a, nil
}

func (f *fakeRepo) GetByUsername(ctx context.Context, username string) (*Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	a, ok := f.accounts[username]
	if !ok {
		return nil, shared.ErrorNotFound
	}
	clone := *a
	return &clone, nil
}

func (f *fakeRepo) List(ctx context.Context) ([]*Profile, error) {
	var out []*Profile
	for _, a := range f.accounts {
		out = append(out, a.Profile())
	}
	return out, nil
}

func (f *fakeRepo) UpdatePasswordHash(ctx context.Context, username, newHash string) error {
	a, ok := f.accounts[username]
	if !ok {
		return shared.ErrorNotFound
	}
	a.PasswordHash = newHash
	return nil
}

func (f *fakeRepo) TouchLastLogin(ctx context.Context, username string, at time.Time) error {
	a, ok := f.accounts[username]
	if !ok {
		return shared.ErrorNotFound
	}
	a.LastLoginAt = at
	return nil
}

func (f *fakeRepo) SetResetChallenge(ctx context.Context, username, codeHash string, requestedAt time.Time) error {
	a, ok := f.accounts[username]
	if !ok {
		return shared.ErrorNotFound
	}
	a.ResetCodeHash = codeHash
	a.ResetRequestedAt = &requestedAt
	return nil
}

func (f *fakeRepo) ClearResetChallenge(ctx context.Context, username string) error {
	a, ok := f.accounts[username]
	if !ok {
		return shared.ErrorNotFound
	}
	a.ResetCodeHash = ""
	a.ResetRequestedAt = nil
	return nil
}

func (f *fakeRepo) GetResetChallenge(ctx context.Context, username string) (*ResetChallenge, error) {
	a, ok := f.accounts[username]
	if !ok {
		return nil, shared.ErrorNotFound
	}
	if a.ResetCodeHash == "" || a.ResetRequestedAt == nil {
		return nil, nil
	}
	return &ResetChallenge{CodeHash: a.ResetCodeHash, RequestedAt: *a.ResetRequestedAt}, nil
}

type sentSMS struct {
	phone string
	text  string
}

// fakeGateway records deliveries. Sends are dispatched on a goroutine, so
// access is guarded and every attempt (success or failure) signals done.
type fakeGateway struct {
	mu      sync.Mutex
	sent    []sentSMS
	sendErr error
	done    chan struct{}
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{done: make(chan struct{}, 8)}
}

func (f *fakeGateway) Send(ctx context.Context, phone, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	defer func() { f.done <- struct{}{} }()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, sentSMS{phone: phone, text: text})
	return "SM-fake", nil
}

func (f *fakeGateway) deliveries() []sentSMS {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentSMS(nil), f.sent...)
}

// codeFromText pulls the plaintext code back out of the SMS body.
func codeFromText(t *testing.T, text string) string {
	t.Helper()
	const marker = "reset code: "
	i := strings.Index(text, marker)
	require.GreaterOrEqual(t, i, 0, "sms must contain the code")
	rest := text[i+len(marker):]
	end := strings.Index(rest, ".")
	require.GreaterOrEqual(t, end, 0)
	return rest[:end]
}

type testEnv struct {
	svc     *Service
	repo    *fakeRepo
	gateway *fakeGateway
	clock   time.Time
}

func newTestService(t *testing.T) *testEnv {
	t.Helper()

	repo := newFakeRepo()
	gateway := newFakeGateway()

	codes, err := resetcode.NewGenerator("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", 6)
	require.NoError(t, err)

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	env := &testEnv{
		repo:    repo,
		gateway: gateway,
		clock:   time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	env.svc = NewService(repo, password.NewHasher(bcrypt.MinCost), codes, gateway, logger, 30*time.Minute)
	env.svc.now = func() time.Time { return env.clock }

	return env
}

// waitSMS blocks until the next delivery attempt completes, then returns all
// deliveries recorded so far.
func (env *testEnv) waitSMS(t *testing.T) []sentSMS {
	t.Helper()
	select {
	case <-env.gateway.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sms dispatch")
	}
	return env.gateway.deliveries()
}

func register(t *testing.T, env *testEnv, username, pass string) *Profile {
	t.Helper()
	p, err := env.svc.Register(context.Background(), RegisterParams{
		Username:  username,
		Password:  pass,
		FirstName: "Alice",
		LastName:  "Adams",
		Phone:     "+15550001111",
	})
	require.NoError(t, err)
	return p
}

// --- tests ---

func TestRegister_ReturnsProfileWithoutHash(t *testing.T) {
	env := newTestService(t)

	p := register(t, env, "alice", "secret1")

	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, env.clock, p.JoinedAt)
	assert.Equal(t, env.clock, p.LastLoginAt)

	stored := env.repo.accounts["alice"]
	require.NotNil(t, stored)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	env := newTestService(t)

	register(t, env, "alice", "secret1")
	firstHash := env.repo.accounts["alice"].PasswordHash

	_, err := env.svc.Register(context.Background(), RegisterParams{Username: "alice", Password: "other"})
	require.ErrorIs(t, err, shared.ErrorAlreadyExists)

	assert.Equal(t, firstHash, env.repo.accounts["alice"].PasswordHash, "first account must be unmodified")
}

func TestAuthenticate_UnknownUserIsPlainFalse(t *testing.T) {
	env := newTestService(t)

	ok, err := env.svc.Authenticate(context.Background(), "ghost", "anything")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthenticate_RightAndWrongPassword(t *testing.T) {
	env := newTestService(t)
	register(t, env, "alice", "secret1")

	ok, err := env.svc.Authenticate(context.Background(), "alice", "secret1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = env.svc.Authenticate(context.Background(), "alice", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthenticate_DoesNotTouchLastLogin(t *testing.T) {
	env := newTestService(t)
	register(t, env, "alice", "secret1")
	registeredAt := env.clock

	env.clock = env.clock.Add(time.Hour)
	_, err := env.svc.Authenticate(context.Background(), "alice", "secret1")
	require.NoError(t, err)

	assert.Equal(t, registeredAt, env.repo.accounts["alice"].LastLoginAt,
		"Authenticate must not record activity; RecordLogin is a separate call")
}

func TestRecordLogin(t *testing.T) {
	env := newTestService(t)
	register(t, env, "alice", "secret1")

	env.clock = env.clock.Add(time.Hour)
	require.NoError(t, env.svc.RecordLogin(context.Background(), "alice"))
	assert.Equal(t, env.clock, env.repo.accounts["alice"].LastLoginAt)

	err := env.svc.RecordLogin(context.Background(), "ghost")
	require.ErrorIs(t, err, shared.ErrorNotFound)
}

func TestRequestReset_StoresHashAndSendsOneSMS(t *testing.T) {
	env := newTestService(t)
	register(t, env, "alice", "secret1")

	require.NoError(t, env.svc.RequestReset(context.Background(), "alice"))

	sent := env.waitSMS(t)
	require.Len(t, sent, 1)
	assert.Equal(t, "+15550001111", sent[0].phone)

	code := codeFromText(t, sent[0].text)
	assert.Len(t, code, 6)

	stored := env.repo.accounts["alice"]
	require.NotNil(t, stored.ResetRequestedAt)
	assert.Equal(t, env.clock, *stored.ResetRequestedAt)
	assert.NotEmpty(t, stored.ResetCodeHash)
	assert.NotContains(t, stored.ResetCodeHash, code, "plaintext code must never be persisted")
}

func TestRequestReset_UnknownUser(t *testing.T) {
	env := newTestService(t)

	err := env.svc.RequestReset(context.Background(), "ghost")
	require.ErrorIs(t, err, shared.ErrorNotFound)
	assert.Empty(t, env.gateway.deliveries(), "no SMS for unknown users")
}

func TestRequestReset_SendFailureKeepsChallenge(t *testing.T) {
	env := newTestService(t)
	register(t, env, "alice", "secret1")
	env.gateway.sendErr = errors.New("provider down")

	require.NoError(t, env.svc.RequestReset(context.Background(), "alice"),
		"delivery failure must not surface nor roll back the challenge")

	sent := env.waitSMS(t)
	assert.Empty(t, sent, "the failed attempt records nothing")
	assert.NotEmpty(t, env.repo.accounts["alice"].ResetCodeHash)
}

// slowGateway blocks deliveries until released.
type slowGateway struct {
	release   chan struct{}
	delivered chan struct{}
}

func (g *slowGateway) Send(ctx context.Context, phone, text string) (string, error) {
	<-g.release
	close(g.delivered)
	return "SM-slow", nil
}

func TestRequestReset_DoesNotWaitForDelivery(t *testing.T) {
	env := newTestService(t)
	register(t, env, "alice", "secret1")

	gw := &slowGateway{release: make(chan struct{}), delivered: make(chan struct{})}
	env.svc.gateway = gw

	done := make(chan error, 1)
	go func() { done <- env.svc.RequestReset(context.Background(), "alice") }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("RequestReset must return without waiting for the SMS round-trip")
	}

	assert.NotEmpty(t, env.repo.accounts["alice"].ResetCodeHash,
		"challenge is stored before dispatch")

	close(gw.release)
	select {
	case <-gw.delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("delivery never dispatched")
	}
}

func TestResetPassword_FullFlow(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()
	register(t, env, "alice", "secret1")

	require.NoError(t, env.svc.RequestReset(ctx, "alice"))
	code := codeFromText(t, env.waitSMS(t)[0].text)

	// wrong code: fails, challenge intact
	err := env.svc.ResetPassword(ctx, "alice", "XXXXXX", "newpass")
	require.ErrorIs(t, err, shared.ErrorInvalidOrExpiredCode)
	assert.NotEmpty(t, env.repo.accounts["alice"].ResetCodeHash, "failed attempt must leave the challenge for retry")

	// correct code: succeeds and clears the challenge
	require.NoError(t, env.svc.ResetPassword(ctx, "alice", code, "newpass"))
	assert.Empty(t, env.repo.accounts["alice"].ResetCodeHash)
	assert.Nil(t, env.repo.accounts["alice"].ResetRequestedAt)

	// replay with the consumed code
	err = env.svc.ResetPassword(ctx, "alice", code, "again")
	require.ErrorIs(t, err, shared.ErrorInvalidOrExpiredCode)

	ok, err := env.svc.Authenticate(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.False(t, ok, "old password must stop working")

	ok, err = env.svc.Authenticate(ctx, "alice", "newpass")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestResetPassword_WindowBoundaries(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()
	register(t, env, "alice", "secret1")

	require.NoError(t, env.svc.RequestReset(ctx, "alice"))
	code := codeFromText(t, env.waitSMS(t)[0].text)
	requestedAt := env.clock

	// 1ms past the window: expired even with the correct code
	env.clock = requestedAt.Add(30*time.Minute + time.Millisecond)
	err := env.svc.ResetPassword(ctx, "alice", code, "newpass")
	require.ErrorIs(t, err, shared.ErrorInvalidOrExpiredCode)
	assert.NotEmpty(t, env.repo.accounts["alice"].ResetCodeHash)

	// 1ms inside the window: succeeds
	env.clock = requestedAt.Add(30*time.Minute - time.Millisecond)
	require.NoError(t, env.svc.ResetPassword(ctx, "alice", code, "newpass"))
}

func TestResetPassword_NoPendingChallenge(t *testing.T) {
	env := newTestService(t)
	register(t, env, "alice", "secret1")

	err := env.svc.ResetPassword(context.Background(), "alice", "ABC123", "newpass")
	require.ErrorIs(t, err, shared.ErrorInvalidOrExpiredCode,
		"never-issued and consumed challenges fail the same way")
}

func TestResetPassword_UnknownAccount(t *testing.T) {
	env := newTestService(t)

	err := env.svc.ResetPassword(context.Background(), "ghost", "ABC123", "newpass")
	require.ErrorIs(t, err, shared.ErrorNotFound)
}

func TestRequestReset_SecondCodeInvalidatesFirst(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()
	register(t, env, "alice", "secret1")

	require.NoError(t, env.svc.RequestReset(ctx, "alice"))
	first := env.waitSMS(t)
	require.NoError(t, env.svc.RequestReset(ctx, "alice"))
	second := env.waitSMS(t)
	require.Len(t, second, 2)

	c1 := codeFromText(t, first[0].text)
	c2 := codeFromText(t, second[1].text)
	require.NotEqual(t, c1, c2)

	err := env.svc.ResetPassword(ctx, "alice", c1, "newpass")
	require.ErrorIs(t, err, shared.ErrorInvalidOrExpiredCode, "only the latest code is authoritative")

	require.NoError(t, env.svc.ResetPassword(ctx, "alice", c2, "newpass"))
}

func TestGetAndList(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()
	register(t, env, "alice", "secret1")

	p, err := env.svc.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)

	_, err = env.svc.Get(ctx, "ghost")
	require.ErrorIs(t, err, shared.ErrorNotFound)

	all, err := env.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAuthenticate_StoreFailureIsAnError(t *testing.T) {
	env := newTestService(t)
	env.repo.getErr = errors.New("connection refused")

	_, err := env.svc.Authenticate(context.Background(), "alice", "secret1")
	require.Error(t, err, "store failures must not masquerade as bad credentials")
}
