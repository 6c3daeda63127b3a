package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/messagely/messagely/internal/server/auth"
)

const (
	usernameKey     = "username"
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

// requestID assigns each request a unique ID, honoring one supplied by the
// client, and echoes it in the response header.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info(c.Request.Context(), "request",
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// authenticate validates the bearer token and stores the username in the
// request context.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		username, err := auth.GetUsernameFromToken(parts[1], s.jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(usernameKey, username)
		c.Next()
	}
}

// requireSameUser restricts a route to the account named in the :username
// path parameter.
func (s *Server) requireSameUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Param("username") != c.GetString(usernameKey) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access restricted to the account owner"})
			return
		}
		c.Next()
	}
}
