package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/messagely/messagely/internal/server/accounts"
	"github.com/messagely/messagely/internal/server/auth"
	"github.com/messagely/messagely/internal/shared"
)

// resetRequestAck is returned whether or not the account exists.
const resetRequestAck = "If the account exists, a reset code has been sent by SMS."

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	profile, err := s.accounts.Register(c.Request.Context(), accounts.RegisterParams{
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	token, err := auth.GenerateToken(profile.Username, s.jwtSecret, s.tokenValidity)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ok, err := s.accounts.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username/password"})
		return
	}

	if err := s.accounts.RecordLogin(c.Request.Context(), req.Username); err != nil {
		// The account may have vanished between checks. The login itself
		// already succeeded, so only log.
		s.logger.Warn(c.Request.Context(), "login timestamp update failed",
			"username", req.Username, "error", err.Error())
	}

	token, err := auth.GenerateToken(req.Username, s.jwtSecret, s.tokenValidity)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// handleResetRequest responds identically for known and unknown accounts so
// the endpoint cannot be used to probe usernames.
func (s *Server) handleResetRequest(c *gin.Context) {
	var req resetRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	err := s.accounts.RequestReset(c.Request.Context(), req.Username)
	if err != nil && !errors.Is(err, shared.ErrorNotFound) {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": resetRequestAck})
}

func (s *Server) handleReset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	err := s.accounts.ResetPassword(c.Request.Context(), req.Username, req.Code, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated."})
}

func (s *Server) handleListUsers(c *gin.Context) {
	profiles, err := s.accounts.List(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	users := make([]*userSummaryJSON, 0, len(profiles))
	for _, p := range profiles {
		users = append(users, toUserSummary(p))
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (s *Server) handleGetUser(c *gin.Context) {
	profile, err := s.accounts.Get(c.Request.Context(), c.Param("username"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": toUser(profile)})
}

func (s *Server) handleInbox(c *gin.Context) {
	inbox, err := s.messages.Inbox(c.Request.Context(), c.Param("username"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	out := make([]*messageJSON, 0, len(inbox))
	for _, m := range inbox {
		out = append(out, toIncoming(m))
	}

	c.JSON(http.StatusOK, gin.H{"messages": out})
}

func (s *Server) handleOutbox(c *gin.Context) {
	outbox, err := s.messages.Outbox(c.Request.Context(), c.Param("username"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	out := make([]*messageJSON, 0, len(outbox))
	for _, m := range outbox {
		out = append(out, toOutgoing(m))
	}

	c.JSON(http.StatusOK, gin.H{"messages": out})
}

func (s *Server) handleSendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	from := c.GetString(usernameKey)

	m, err := s.messages.Send(c.Request.Context(), from, req.ToUsername, req.Body)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": messageJSON{
		ID:     m.ID,
		Body:   m.Body,
		SentAt: m.SentAt,
	}})
}

// handleGetMessage returns a message with both participants attached. Only
// the sender or the recipient may read it.
func (s *Server) handleGetMessage(c *gin.Context) {
	m, err := s.messages.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	username := c.GetString(usernameKey)
	if username != m.FromUsername && username != m.ToUsername {
		c.JSON(http.StatusForbidden, gin.H{"error": "access restricted to the message participants"})
		return
	}

	fromProfile, err := s.accounts.Get(c.Request.Context(), m.FromUsername)
	if err != nil {
		s.respondError(c, err)
		return
	}
	toProfile, err := s.accounts.Get(c.Request.Context(), m.ToUsername)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": messageJSON{
		ID:       m.ID,
		Body:     m.Body,
		SentAt:   m.SentAt,
		ReadAt:   m.ReadAt,
		FromUser: toUserSummary(fromProfile),
		ToUser:   toUserSummary(toProfile),
	}})
}

// handleMarkRead stamps the read timestamp. Only the recipient may do this.
func (s *Server) handleMarkRead(c *gin.Context) {
	m, err := s.messages.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	if c.GetString(usernameKey) != m.ToUsername {
		c.JSON(http.StatusForbidden, gin.H{"error": "access restricted to the message recipient"})
		return
	}

	m, err = s.messages.MarkRead(c.Request.Context(), m.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": messageJSON{
		ID:     m.ID,
		Body:   m.Body,
		SentAt: m.SentAt,
		ReadAt: m.ReadAt,
	}})
}

func (s *Server) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, shared.ErrorAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
	case errors.Is(err, shared.ErrorNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, shared.ErrorValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, shared.ErrorInvalidOrExpiredCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired reset code"})
	case errors.Is(err, shared.ErrorUnauthorized), errors.Is(err, shared.ErrorInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	default:
		s.logger.Error(c.Request.Context(), "internal error",
			"request_id", c.GetString(requestIDKey),
			"path", c.Request.URL.Path,
			"error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
