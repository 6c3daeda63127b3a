// Package server initializes and runs the Messagely server. It wires the
// database, the account and message services, the SMS gateway and the HTTP
// API, and handles graceful shutdown on OS signals.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/messagely/messagely/internal/logging"
	"github.com/messagely/messagely/internal/server/accounts"
	"github.com/messagely/messagely/internal/server/config"
	"github.com/messagely/messagely/internal/server/httpapi"
	"github.com/messagely/messagely/internal/server/messages"
	"github.com/messagely/messagely/internal/server/notification"
	"github.com/messagely/messagely/internal/server/password"
	"github.com/messagely/messagely/internal/server/resetcode"
	"github.com/messagely/messagely/internal/server/shared/db"
)

type App struct {
	config         *config.Config
	logger         logging.Logger
	manager        db.RepositoryManager
	accountService *accounts.Service
	messageService *messages.Service
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	handler := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(handler)

	manager, err := db.NewPostgresRepositoryManager(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	hasher := password.NewHasher(cfg.PasswordWorkFactor)

	codes, err := resetcode.NewGenerator(cfg.ResetCodeAlphabet, cfg.ResetCodeLength)
	if err != nil {
		return nil, fmt.Errorf("reset code generator error: %w", err)
	}

	gateway := selectGateway(cfg, logger)

	as := accounts.NewService(manager.Accounts(), hasher, codes, gateway, logger, cfg.ResetWindow)
	ms := messages.NewService(manager.Messages(), manager.Accounts(), logger)

	return &App{
		config:         cfg,
		logger:         logger,
		manager:        manager,
		accountService: as,
		messageService: ms,
	}, nil
}

// selectGateway returns the Twilio gateway when credentials are configured
// and the logging gateway otherwise.
func selectGateway(cfg *config.Config, logger logging.Logger) notification.Gateway {
	if cfg.TwilioAccountSID != "" {
		return notification.NewTwilioGateway(
			cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromPhone, cfg.TwilioBaseEndpoint)
	}
	return notification.NewLogGateway(logger)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s, err := httpapi.NewServer(app.config.EndpointAddr, app.logger,
		app.accountService, app.messageService,
		app.config.SigningSecret, app.config.SessionTokenValidity)

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.manager.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
}
