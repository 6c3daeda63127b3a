// Package httpapi exposes the account and message services over a JSON
// HTTP API built on gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/messagely/messagely/internal/logging"
	"github.com/messagely/messagely/internal/server/accounts"
	"github.com/messagely/messagely/internal/server/messages"
)

// AccountService is the slice of the accounts service the API depends on.
type AccountService interface {
	Register(ctx context.Context, params accounts.RegisterParams) (*accounts.Profile, error)
	Authenticate(ctx context.Context, username, password string) (bool, error)
	RecordLogin(ctx context.Context, username string) error
	RequestReset(ctx context.Context, username string) error
	ResetPassword(ctx context.Context, username, code, newPassword string) error
	Get(ctx context.Context, username string) (*accounts.Profile, error)
	List(ctx context.Context) ([]*accounts.Profile, error)
}

// MessageService is the slice of the messages service the API depends on.
type MessageService interface {
	Send(ctx context.Context, from, to, body string) (*messages.Message, error)
	Get(ctx context.Context, id string) (*messages.Message, error)
	MarkRead(ctx context.Context, id string) (*messages.Message, error)
	Inbox(ctx context.Context, username string) ([]*messages.Incoming, error)
	Outbox(ctx context.Context, username string) ([]*messages.Outgoing, error)
}

type Server struct {
	address       string
	accounts      AccountService
	messages      MessageService
	logger        logging.Logger
	jwtSecret     []byte
	tokenValidity time.Duration
}

func NewServer(address string, logger logging.Logger, as AccountService, ms MessageService,
	secretKey string, tokenValidity time.Duration) (*Server, error) {
	return &Server{
		address:       address,
		accounts:      as,
		messages:      ms,
		logger:        logger.With("module", "http_server"),
		jwtSecret:     []byte(secretKey),
		tokenValidity: tokenValidity,
	}, nil
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID(), s.requestLogger())

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", s.handleRegister)
		authGroup.POST("/login", s.handleLogin)
		authGroup.POST("/reset/request", s.handleResetRequest)
		authGroup.POST("/reset", s.handleReset)
	}

	userGroup := r.Group("/users", s.authenticate())
	{
		userGroup.GET("", s.handleListUsers)
		userGroup.GET("/:username", s.requireSameUser(), s.handleGetUser)
		userGroup.GET("/:username/to", s.requireSameUser(), s.handleInbox)
		userGroup.GET("/:username/from", s.requireSameUser(), s.handleOutbox)
	}

	messageGroup := r.Group("/messages", s.authenticate())
	{
		messageGroup.POST("", s.handleSendMessage)
		messageGroup.GET("/:id", s.handleGetMessage)
		messageGroup.POST("/:id/read", s.handleMarkRead)
	}

	return r
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
