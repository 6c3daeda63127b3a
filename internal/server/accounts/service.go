// Package accounts implements the account-authentication and
// credential-recovery core: registration, password verification, and the
// reset-code lifecycle (generation, delivery, expiry, single-use
// consumption).
package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/messagely/messagely/internal/logging"
	"github.com/messagely/messagely/internal/server/notification"
	"github.com/messagely/messagely/internal/server/password"
	"github.com/messagely/messagely/internal/server/resetcode"
	"github.com/messagely/messagely/internal/shared"
)

// RegisterParams carries the fields needed to create an account.
type RegisterParams struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// Service orchestrates the credential store, the hasher, the reset-code
// generator and the notification gateway. The wall clock is injected so
// expiry-window behavior is deterministic under test.
type Service struct {
	repo        Repository
	hasher      *password.Hasher
	codes       *resetcode.Generator
	gateway     notification.Gateway
	logger      logging.Logger
	resetWindow time.Duration
	now         func() time.Time
}

func NewService(repo Repository, hasher *password.Hasher, codes *resetcode.Generator,
	gateway notification.Gateway, logger logging.Logger, resetWindow time.Duration) *Service {
	return &Service{
		repo:        repo,
		hasher:      hasher,
		codes:       codes,
		gateway:     gateway,
		logger:      logger.With("module", "accounts"),
		resetWindow: resetWindow,
		now:         time.Now,
	}
}

// Register creates an account, failing with shared.ErrorAlreadyExists when
// the username is taken. The returned profile never carries the hash.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*Profile, error) {

	digest, err := s.hasher.Hash(params.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	now := s.now()
	account := &Account{
		Username:     params.Username,
		PasswordHash: digest,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		Phone:        params.Phone,
		JoinedAt:     now,
		LastLoginAt:  now,
	}

	account, err = s.repo.Create(ctx, account)
	if err != nil {
		if errors.Is(err, shared.ErrorAlreadyExists) {
			return nil, shared.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("error creating account: %w", err)
	}

	s.logger.Info(ctx, "account registered", "username", account.Username)
	return account.Profile(), nil
}

// Authenticate reports whether username/password is a valid pair. An unknown
// username yields plain false, indistinguishable from a wrong password, so
// callers cannot enumerate users. Bad credentials are never an error; only
// store failures are.
func (s *Service) Authenticate(ctx context.Context, username, pass string) (bool, error) {
	account, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrorNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("error loading account: %w", err)
	}

	return s.hasher.Verify(pass, account.PasswordHash), nil
}

// RecordLogin stamps last_login_at. Kept separate from Authenticate so a
// caller can fail an overall login without marking activity. A vanished
// account surfaces as shared.ErrorNotFound; callers treat that as a benign
// race.
func (s *Service) RecordLogin(ctx context.Context, username string) error {
	if err := s.repo.TouchLastLogin(ctx, username, s.now()); err != nil {
		if errors.Is(err, shared.ErrorNotFound) {
			return shared.ErrorNotFound
		}
		return fmt.Errorf("error updating login timestamp: %w", err)
	}
	return nil
}

// RequestReset issues a reset challenge and hands the plaintext code to the
// notification gateway; only the hash is stored. For an unknown username the
// same generate-and-hash work is done before reporting shared.ErrorNotFound,
// so the two paths are indistinguishable at the transport boundary. The
// challenge is stored before delivery is dispatched, and a delivery failure
// does not roll it back.
func (s *Service) RequestReset(ctx context.Context, username string) error {
	account, lookupErr := s.repo.GetByUsername(ctx, username)
	if lookupErr != nil && !errors.Is(lookupErr, shared.ErrorNotFound) {
		return fmt.Errorf("error loading account: %w", lookupErr)
	}

	code, err := s.codes.Generate()
	if err != nil {
		return fmt.Errorf("error generating reset code: %w", err)
	}

	codeHash, err := s.hasher.Hash(code)
	if err != nil {
		return fmt.Errorf("error hashing reset code: %w", err)
	}

	if lookupErr != nil {
		return shared.ErrorNotFound
	}

	if err := s.repo.SetResetChallenge(ctx, username, codeHash, s.now()); err != nil {
		return fmt.Errorf("error storing reset challenge: %w", err)
	}

	text := fmt.Sprintf("Here is your reset code: %s. You have %d minutes to change your password.",
		code, int(s.resetWindow.Minutes()))

	// Delivery is fire-and-forget: the caller's response must not carry the
	// provider round-trip, and a delivery failure leaves the challenge
	// valid so the user can retry within the same window.
	sendCtx := context.WithoutCancel(ctx)
	phone := account.Phone
	go func() {
		deliveryID, err := s.gateway.Send(sendCtx, phone, text)
		if err != nil {
			s.logger.Warn(sendCtx, "reset code delivery failed", "username", username, "error", err.Error())
			return
		}
		s.logger.Info(sendCtx, "reset code sent", "username", username, "delivery_id", deliveryID)
	}()

	return nil
}

// ResetPassword consumes a pending challenge. A wrong code, an elapsed
// window and an absent challenge all fail with
// shared.ErrorInvalidOrExpiredCode and leave any pending challenge
// untouched, so the user can retry within the window; only success clears
// it. An unknown account fails with shared.ErrorNotFound.
func (s *Service) ResetPassword(ctx context.Context, username, suppliedCode, newPassword string) error {
	challenge, err := s.repo.GetResetChallenge(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrorNotFound) {
			return shared.ErrorNotFound
		}
		return fmt.Errorf("error loading reset challenge: %w", err)
	}
	if challenge == nil {
		// Nothing pending (never issued, already consumed, or replayed):
		// same failure as a wrong code.
		challenge = &ResetChallenge{}
	}

	// Both checks run regardless of the other's outcome; the failure cause
	// is not disclosed.
	codeMatches := s.hasher.Verify(suppliedCode, challenge.CodeHash)
	withinWindow := challenge.RequestedAt.Add(s.resetWindow).After(s.now())

	if !codeMatches || !withinWindow {
		return shared.ErrorInvalidOrExpiredCode
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	if err := s.repo.UpdatePasswordHash(ctx, username, newHash); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}

	if err := s.repo.ClearResetChallenge(ctx, username); err != nil {
		return fmt.Errorf("error clearing reset challenge: %w", err)
	}

	s.logger.Info(ctx, "password reset completed", "username", username)
	return nil
}

// Get returns the public profile for username.
func (s *Service) Get(ctx context.Context, username string) (*Profile, error) {
	account, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrorNotFound) {
			return nil, shared.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading account: %w", err)
	}
	return account.Profile(), nil
}

// List returns basic directory info for up to 100 users.
func (s *Service) List(ctx context.Context) ([]*Profile, error) {
	profiles, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing accounts: %w", err)
	}
	return profiles, nil
}
