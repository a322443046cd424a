package middlewares

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	accountDB "github.com/maneesh0001/Security-Thriftstore-backend/pkg/db/account"
	umTypes "github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/types"
)

const (
	SessionCookieName = "sessionId"

	// context key the validated session is stored under
	SessionContextKey = "validatedSession"
)

// SessionAuth validates the session cookie, destroys sessions that exceeded
// the inactivity window and advances lastActivity for the rolling expiry.
func SessionAuth(accountDBService *accountDB.AccountDBService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(SessionCookieName)
		if err != nil || sessionID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no active session", "sessionExpired": true})
			return
		}

		session, err := accountDBService.GetSession(sessionID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no active session", "sessionExpired": true})
			return
		}

		if session.IsExpiredAt(time.Now()) {
			// the TTL index sweeps lazily, destroy the stale session now
			if err := accountDBService.DeleteSession(sessionID); err != nil {
				slog.Error("failed to delete expired session", slog.String("error", err.Error()))
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired", "sessionExpired": true})
			return
		}

		if err := accountDBService.TouchSession(sessionID); err != nil {
			slog.Error("failed to update session activity", slog.String("error", err.Error()))
		}

		c.Set(SessionContextKey, session)
		c.Next()
	}
}

// GetSessionFromContext returns the session placed by SessionAuth.
func GetSessionFromContext(c *gin.Context) (umTypes.Session, bool) {
	value, ok := c.Get(SessionContextKey)
	if !ok {
		return umTypes.Session{}, false
	}
	session, ok := value.(umTypes.Session)
	return session, ok
}

// RequireAdmin blocks non-admin sessions, must run after SessionAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := GetSessionFromContext(c)
		if !ok {
			slog.Warn("RequireAdmin: session not found in context")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no active session"})
			return
		}

		if session.Role != umTypes.ROLE_ADMIN {
			slog.Warn("RequireAdmin Middleware: non admin user tried to access admin endpoint", slog.String("accountID", session.AccountID))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "unauthorized access to admin endpoint"})
			return
		}
		c.Next()
	}
}
