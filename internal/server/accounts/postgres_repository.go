package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/messagely/messagely/internal/shared"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) (*PostgresRepository, error) {
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) Create(ctx context.Context, account *Account) (*Account, error) {

	query :=
		`INSERT INTO users (username, password, first_name, last_name, phone, join_at, last_login_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
		 `

	_, err := r.db.ExecContext(ctx, query,
		account.Username, account.PasswordHash, account.FirstName,
		account.LastName, account.Phone, account.JoinedAt, account.LastLoginAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, shared.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return account, nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*Account, error) {
	query :=
		`SELECT username, password, first_name, last_name, phone, join_at, last_login_at, reset_code, reset_req
		 FROM users
		 WHERE username = $1
		 `

	account := &Account{}
	var resetCode sql.NullString
	var resetReq sql.NullTime

	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&account.Username, &account.PasswordHash, &account.FirstName,
		&account.LastName, &account.Phone, &account.JoinedAt,
		&account.LastLoginAt, &resetCode, &resetReq)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	if resetCode.Valid && resetReq.Valid {
		account.ResetCodeHash = resetCode.String
		account.ResetRequestedAt = &resetReq.Time
	}

	return account, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*Profile, error) {
	query :=
		`SELECT username, first_name, last_name, phone
		 FROM users
		 ORDER BY last_name DESC, first_name DESC
		 LIMIT 100
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		p := &Profile{}
		if err := rows.Scan(&p.Username, &p.FirstName, &p.LastName, &p.Phone); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return profiles, nil
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, username, newHash string) error {
	query :=
		`UPDATE users
		 SET password = $1
		 WHERE username = $2
		 `

	return r.execForOneAccount(ctx, query, newHash, username)
}

func (r *PostgresRepository) TouchLastLogin(ctx context.Context, username string, at time.Time) error {
	query :=
		`UPDATE users
		 SET last_login_at = $1
		 WHERE username = $2
		 `

	return r.execForOneAccount(ctx, query, at, username)
}

func (r *PostgresRepository) SetResetChallenge(ctx context.Context, username, codeHash string, requestedAt time.Time) error {
	query :=
		`UPDATE users
		 SET reset_code = $1,
		     reset_req = $2
		 WHERE username = $3
		 `

	return r.execForOneAccount(ctx, query, codeHash, requestedAt, username)
}

func (r *PostgresRepository) ClearResetChallenge(ctx context.Context, username string) error {
	query :=
		`UPDATE users
		 SET reset_code = NULL,
		     reset_req = NULL
		 WHERE username = $1
		 `

	return r.execForOneAccount(ctx, query, username)
}

func (r *PostgresRepository) GetResetChallenge(ctx context.Context, username string) (*ResetChallenge, error) {
	query :=
		`SELECT reset_code, reset_req
		 FROM users
		 WHERE username = $1
		 `

	var resetCode sql.NullString
	var resetReq sql.NullTime

	err := r.db.QueryRowContext(ctx, query, username).Scan(&resetCode, &resetReq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	// Account exists but no challenge is pending.
	if !resetCode.Valid || !resetReq.Valid {
		return nil, nil
	}

	return &ResetChallenge{CodeHash: resetCode.String, RequestedAt: resetReq.Time}, nil
}

// execForOneAccount runs a single-row UPDATE and maps "no row touched" to
// shared.ErrorNotFound.
func (r *PostgresRepository) execForOneAccount(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if affected == 0 {
		return shared.ErrorNotFound
	}

	return nil
}
