package httpapi

import (
	"time"

	"github.com/messagely/messagely/internal/server/accounts"
	"github.com/messagely/messagely/internal/server/messages"
)

type registerRequest struct {
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Phone     string `json:"phone" binding:"required"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type resetRequestRequest struct {
	Username string `json:"username" binding:"required"`
}

type resetRequest struct {
	Username string `json:"username" binding:"required"`
	Code     string `json:"code" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type sendMessageRequest struct {
	ToUsername string `json:"to_username" binding:"required"`
	Body       string `json:"body" binding:"required"`
}

type userSummaryJSON struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type userJSON struct {
	Username    string     `json:"username"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Phone       string     `json:"phone"`
	JoinAt      time.Time  `json:"join_at"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

type messageJSON struct {
	ID       string           `json:"id"`
	Body     string           `json:"body"`
	SentAt   time.Time        `json:"sent_at"`
	ReadAt   *time.Time       `json:"read_at"`
	FromUser *userSummaryJSON `json:"from_user,omitempty"`
	ToUser   *userSummaryJSON `json:"to_user,omitempty"`
}

func toUserSummary(p *accounts.Profile) *userSummaryJSON {
	return &userSummaryJSON{
		Username:  p.Username,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Phone:     p.Phone,
	}
}

func toUser(p *accounts.Profile) *userJSON {
	u := &userJSON{
		Username:  p.Username,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Phone:     p.Phone,
		JoinAt:    p.JoinedAt,
	}
	if !p.LastLoginAt.IsZero() {
		t := p.LastLoginAt
		u.LastLoginAt = &t
	}
	return u
}

func counterpartSummary(c messages.Counterpart) *userSummaryJSON {
	return &userSummaryJSON{
		Username:  c.Username,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Phone:     c.Phone,
	}
}

func toIncoming(m *messages.Incoming) *messageJSON {
	return &messageJSON{
		ID:       m.ID,
		Body:     m.Body,
		SentAt:   m.SentAt,
		ReadAt:   m.ReadAt,
		FromUser: counterpartSummary(m.From),
	}
}

func toOutgoing(m *messages.Outgoing) *messageJSON {
	return &messageJSON{
		ID:     m.ID,
		Body:   m.Body,
		SentAt: m.SentAt,
		ReadAt: m.ReadAt,
		ToUser: counterpartSummary(m.To),
	}
}
