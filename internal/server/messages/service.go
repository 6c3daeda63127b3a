// Package messages implements sending, reading and listing of user-to-user
// messages, including the denormalized counterpart info attached to
// listings.
package messages

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/messagely/messagely/internal/logging"
	"github.com/messagely/messagely/internal/server/accounts"
	"github.com/messagely/messagely/internal/shared"
)

type Service struct {
	repo     Repository
	accounts accounts.Repository
	logger   logging.Logger
	now      func() time.Time
}

func NewService(repo Repository, accountRepo accounts.Repository, logger logging.Logger) *Service {
	return &Service{
		repo:     repo,
		accounts: accountRepo,
		logger:   logger.With("module", "messages"),
		now:      time.Now,
	}
}

// Send stores a new message from one user to another. An unknown recipient
// surfaces as shared.ErrorNotFound.
func (s *Service) Send(ctx context.Context, from, to, body string) (*Message, error) {
	if body == "" {
		return nil, fmt.Errorf("empty message body: %w", shared.ErrorValidation)
	}

	message := &Message{
		ID:           uuid.NewString(),
		FromUsername: from,
		ToUsername:   to,
		Body:         body,
		SentAt:       s.now(),
	}

	message, err := s.repo.Create(ctx, message)
	if err != nil {
		if errors.Is(err, shared.ErrorNotFound) {
			return nil, shared.ErrorNotFound
		}
		return nil, fmt.Errorf("error creating message: %w", err)
	}

	s.logger.Info(ctx, "message sent", "id", message.ID, "from", from, "to", to)
	return message, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Message, error) {
	message, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrorNotFound) {
			return nil, shared.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading message: %w", err)
	}
	return message, nil
}

// MarkRead stamps read_at. The caller is responsible for checking that the
// acting user is the recipient.
func (s *Service) MarkRead(ctx context.Context, id string) (*Message, error) {
	message, err := s.repo.MarkRead(ctx, id, s.now())
	if err != nil {
		if errors.Is(err, shared.ErrorNotFound) {
			return nil, shared.ErrorNotFound
		}
		return nil, fmt.Errorf("error marking message read: %w", err)
	}
	return message, nil
}

// Inbox lists messages sent to username with sender info attached. Each
// distinct sender is looked up once per call via a request-scoped cache.
func (s *Service) Inbox(ctx context.Context, username string) ([]*Incoming, error) {
	msgs, cache, err := s.listWithCache(ctx, username, s.repo.To)
	if err != nil {
		return nil, err
	}

	out := make([]*Incoming, 0, len(msgs))
	for _, m := range msgs {
		counterpart, err := s.counterpart(ctx, cache, m.FromUsername)
		if err != nil {
			return nil, err
		}
		out = append(out, &Incoming{
			ID: m.ID, Body: m.Body, SentAt: m.SentAt, ReadAt: m.ReadAt,
			From: counterpart,
		})
	}
	return out, nil
}

// Outbox lists messages sent by username with recipient info attached.
func (s *Service) Outbox(ctx context.Context, username string) ([]*Outgoing, error) {
	msgs, cache, err := s.listWithCache(ctx, username, s.repo.From)
	if err != nil {
		return nil, err
	}

	out := make([]*Outgoing, 0, len(msgs))
	for _, m := range msgs {
		counterpart, err := s.counterpart(ctx, cache, m.ToUsername)
		if err != nil {
			return nil, err
		}
		out = append(out, &Outgoing{
			ID: m.ID, Body: m.Body, SentAt: m.SentAt, ReadAt: m.ReadAt,
			To: counterpart,
		})
	}
	return out, nil
}

// listWithCache confirms the user exists, loads their messages, and returns
// a fresh per-call counterpart cache. The cache never outlives the request.
func (s *Service) listWithCache(ctx context.Context, username string,
	list func(context.Context, string) ([]*Message, error)) ([]*Message, map[string]Counterpart, error) {

	if _, err := s.accounts.GetByUsername(ctx, username); err != nil {
		if errors.Is(err, shared.ErrorNotFound) {
			return nil, nil, shared.ErrorNotFound
		}
		return nil, nil, fmt.Errorf("error loading account: %w", err)
	}

	msgs, err := list(ctx, username)
	if err != nil {
		return nil, nil, fmt.Errorf("error listing messages: %w", err)
	}

	return msgs, make(map[string]Counterpart), nil
}

func (s *Service) counterpart(ctx context.Context, cache map[string]Counterpart, username string) (Counterpart, error) {
	if c, ok := cache[username]; ok {
		return c, nil
	}

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return Counterpart{}, fmt.Errorf("error loading counterpart %q: %w", username, err)
	}

	c := Counterpart{
		Username:  account.Username,
		FirstName: account.FirstName,
		LastName:  account.LastName,
		Phone:     account.Phone,
	}
	cache[username] = c
	return c, nil
}
