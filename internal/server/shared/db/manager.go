// Package db wires the SQL connection, embedded migrations and the
// per-aggregate repositories behind one manager.
package db

import (
	"context"
	"database/sql"

	"github.com/messagely/messagely/internal/server/accounts"
	"github.com/messagely/messagely/internal/server/messages"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Conn() *sql.DB
	Accounts() accounts.Repository
	Messages() messages.Repository
	Close() error
}
