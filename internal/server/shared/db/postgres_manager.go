package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	"github.com/messagely/messagely/internal/server/accounts"
	"github.com/messagely/messagely/internal/server/messages"
	"github.com/messagely/messagely/internal/server/migrations"
)

type PostgresRepositoryManager struct {
	db       *sql.DB
	accounts accounts.Repository
	messages messages.Repository
}

func (m *PostgresRepositoryManager) Conn() *sql.DB {
	return m.db
}

func (m *PostgresRepositoryManager) Accounts() accounts.Repository {
	return m.accounts
}

func (m *PostgresRepositoryManager) Messages() messages.Repository {
	return m.messages
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.UpContext(ctx, m.db, "."); err != nil {
		return err
	}

	return nil
}

// waitForDB pings the database with exponential backoff so the server
// survives starting before the database is ready.
func waitForDB(ctx context.Context, db *sql.DB) error {
	backoff := retry.WithMaxRetries(5, retry.NewExponential(1*time.Second))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func NewPostgresRepositoryManager(ctx context.Context, dsn string) (RepositoryManager, error) {

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	if err := waitForDB(ctx, db); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	accountRepo, err := accounts.NewPostgresRepository(db)
	if err != nil {
		return nil, fmt.Errorf("account repo creation error: %w", err)
	}

	messageRepo, err := messages.NewPostgresRepository(db)
	if err != nil {
		return nil, fmt.Errorf("message repo creation error: %w", err)
	}

	m := &PostgresRepositoryManager{
		db:       db,
		accounts: accountRepo,
		messages: messageRepo,
	}

	if err := m.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}
