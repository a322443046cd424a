package middlewares

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	accountDB "github.com/maneesh0001/Security-Thriftstore-backend/pkg/db/account"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/passwordpolicy"
)

// PasswordExpiryGate rejects requests from accounts whose password passed
// the 90 day expiry, forcing a password change first. Must run after
// SessionAuth; the password change endpoints themselves stay outside this
// gate.
func PasswordExpiryGate(accountDBService *accountDB.AccountDBService) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := GetSessionFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no active session"})
			return
		}

		account, err := accountDBService.GetAccountByID(session.AccountID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no active session"})
			return
		}

		if passwordpolicy.IsExpired(account.Password, time.Now()) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":           "password expired, please change your password",
				"passwordExpired": true,
			})
			return
		}
		c.Next()
	}
}
