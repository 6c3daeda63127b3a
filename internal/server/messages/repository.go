package messages

import (
	"context"
	"time"
)

// Repository persists messages. Lookups return shared.ErrorNotFound for
// unknown message IDs; Create returns shared.ErrorNotFound when the
// recipient does not exist.
type Repository interface {
	Create(ctx context.Context, message *Message) (*Message, error)
	Get(ctx context.Context, id string) (*Message, error)
	MarkRead(ctx context.Context, id string, at time.Time) (*Message, error)
	From(ctx context.Context, username string) ([]*Message, error)
	To(ctx context.Context, username string) ([]*Message, error)
}
