package messages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/messagely/messagely/internal/dbx"
	"github.com/messagely/messagely/internal/shared"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) (*PostgresRepository, error) {
	return &PostgresRepository{db: db}, nil
}

// Create inserts the message after confirming the recipient exists, inside
// one transaction so a concurrently deleted recipient cannot leave an
// orphaned row.
func (r *PostgresRepository) Create(ctx context.Context, message *Message) (*Message, error) {

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM users WHERE username = $1`, message.ToUsername).Scan(&exists)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return shared.ErrorNotFound
			}
			return fmt.Errorf("error checking recipient: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO messages (id, from_username, to_username, body, sent_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			message.ID, message.FromUsername, message.ToUsername, message.Body, message.SentAt)
		if err != nil {
			return fmt.Errorf("error performing sql request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return message, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Message, error) {
	query :=
		`SELECT id, from_username, to_username, body, sent_at, read_at
		 FROM messages
		 WHERE id = $1
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) MarkRead(ctx context.Context, id string, at time.Time) (*Message, error) {
	query :=
		`UPDATE messages
		 SET read_at = $1
		 WHERE id = $2
		 RETURNING id, from_username, to_username, body, sent_at, read_at
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, at, id))
}

func (r *PostgresRepository) From(ctx context.Context, username string) ([]*Message, error) {
	query :=
		`SELECT id, from_username, to_username, body, sent_at, read_at
		 FROM messages
		 WHERE from_username = $1
		 ORDER BY sent_at
		 `

	return r.queryMany(ctx, query, username)
}

func (r *PostgresRepository) To(ctx context.Context, username string) ([]*Message, error) {
	query :=
		`SELECT id, from_username, to_username, body, sent_at, read_at
		 FROM messages
		 WHERE to_username = $1
		 ORDER BY sent_at
		 `

	return r.queryMany(ctx, query, username)
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*Message, error) {
	m := &Message{}
	var readAt sql.NullTime

	err := row.Scan(&m.ID, &m.FromUsername, &m.ToUsername, &m.Body, &m.SentAt, &readAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	if readAt.Valid {
		m.ReadAt = &readAt.Time
	}
	return m, nil
}

func (r *PostgresRepository) queryMany(ctx context.Context, query string, args ...any) ([]*Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		m := &Message{}
		var readAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.FromUsername, &m.ToUsername, &m.Body, &m.SentAt, &readAt); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		if readAt.Valid {
			m.ReadAt = &readAt.Time
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return out, nil
}
