package apihandlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	mw "github.com/maneesh0001/Security-Thriftstore-backend/pkg/apihelpers/middlewares"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/audit"
	emailtemplates "github.com/maneesh0001/Security-Thriftstore-backend/pkg/messaging/email-templates"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/passwordpolicy"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/pwhash"
	umTypes "github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/types"
	umUtils "github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/utils"
)

func (h *HttpEndpoints) AddPasswordAPI(rg *gin.RouterGroup) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/forgot-password", mw.RequirePayload(), h.forgotPassword)
		authGroup.GET("/reset-password/:token", h.verifyResetToken)
		authGroup.POST("/reset-password/:token", mw.RequirePayload(), h.resetPassword)
	}

	userGroup := rg.Group("/user")
	userGroup.Use(mw.SessionAuth(h.accountDBConn))
	{
		// intentionally outside the password expiry gate, an expired
		// password must still be changeable
		userGroup.POST("/change-password", mw.RequirePayload(), h.changePassword)
	}
}

type ForgotPasswordReq struct {
	Email string `json:"email"`
}

func (h *HttpEndpoints) forgotPassword(c *gin.Context) {
	var req ForgotPasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// the response is identical whether or not the account exists
	genericResp := gin.H{"message": "if the account exists, a password reset email has been sent"}

	req.Email = umUtils.SanitizeEmail(req.Email)
	account, err := h.accountDBConn.GetAccountByEmail(req.Email)
	if err != nil {
		slog.Warn("password reset requested for unknown email", slog.String("email", umUtils.BlurEmailAddress(req.Email)))
		randomWait(1, 3)
		c.JSON(http.StatusOK, genericResp)
		return
	}

	resetToken, err := umUtils.GenerateUniqueTokenString()
	if err != nil {
		slog.Error("failed to generate reset token", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	tokenInfo := umTypes.TokenInfo{
		Token:     resetToken,
		ExpiresAt: time.Now().Add(h.umConfig.PasswordResetTokenTTL).Unix(),
	}
	if err := h.accountDBConn.SetPasswordResetToken(account.ID, tokenInfo); err != nil {
		slog.Error("failed to save reset token", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	h.sendEmail(account.Email, emailtemplates.EMAIL_TYPE_PASSWORD_RESET, map[string]string{
		"resetLink":      h.resetLink(resetToken),
		"validityPeriod": formatDuration(h.umConfig.PasswordResetTokenTTL),
	})
	h.recordAudit(c, audit.ACTION_PASSWORD_RESET_REQUESTED, account.ID.Hex(), account.Email, nil)
	c.JSON(http.StatusOK, genericResp)
}

func (h *HttpEndpoints) verifyResetToken(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token missing"})
		return
	}

	if _, err := h.accountDBConn.GetAccountByResetToken(token); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired reset token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "token is valid"})
}

type ResetPasswordReq struct {
	NewPassword string `json:"newPassword"`
}

func (h *HttpEndpoints) resetPassword(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token missing"})
		return
	}

	var req ResetPasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.accountDBConn.GetAccountByResetToken(token)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired reset token"})
		return
	}

	if err := h.applyPasswordChange(account, req.NewPassword); err != nil {
		h.respondPasswordChangeError(c, err)
		return
	}

	h.sendEmail(account.Email, emailtemplates.EMAIL_TYPE_PASSWORD_CHANGED, map[string]string{
		"changedAt": time.Now().Format(time.RFC1123),
	})
	h.recordAudit(c, audit.ACTION_PASSWORD_RESET_COMPLETED, account.ID.Hex(), account.Email, nil)
	slog.Info("password reset completed", slog.String("accountID", account.ID.Hex()))
	c.JSON(http.StatusOK, gin.H{
		"message":          "password changed, you can log in now",
		"passwordStrength": umUtils.PasswordStrengthScore(req.NewPassword, account.Email, account.Name),
	})
}

type ChangePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *HttpEndpoints) changePassword(c *gin.Context) {
	session, ok := mw.GetSessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no active session"})
		return
	}

	var req ChangePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.accountDBConn.GetAccountByID(session.AccountID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no active session"})
		return
	}

	match, err := pwhash.ComparePasswordWithHash(account.PasswordHash, req.CurrentPassword)
	if err != nil || !match {
		randomWait(1, 3)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "current password is incorrect"})
		return
	}

	if err := h.applyPasswordChange(account, req.NewPassword); err != nil {
		h.respondPasswordChangeError(c, err)
		return
	}

	// other devices must log in again with the new password
	if err := h.accountDBConn.DeleteSessionsForAccount(account.ID.Hex()); err != nil {
		slog.Error("failed to delete sessions after password change", slog.String("error", err.Error()))
	}
	session, err = h.startSession(c, account)
	if err != nil {
		slog.Error("failed to recreate session after password change", slog.String("error", err.Error()))
	}

	h.sendEmail(account.Email, emailtemplates.EMAIL_TYPE_PASSWORD_CHANGED, map[string]string{
		"changedAt": time.Now().Format(time.RFC1123),
	})
	h.recordAudit(c, audit.ACTION_PASSWORD_CHANGED, account.ID.Hex(), account.Email, nil)
	c.JSON(http.StatusOK, gin.H{
		"message":          "password changed",
		"passwordStrength": umUtils.PasswordStrengthScore(req.NewPassword, account.Email, account.Name),
	})
}

var (
	errWeakPassword     = errors.New("password does not fulfill the complexity rules")
	errPasswordReused   = errors.New("password was used recently")
	errPasswordInternal = errors.New("internal error during password change")
)

// applyPasswordChange validates the new password against format and history
// rules and persists the rotated password record.
func (h *HttpEndpoints) applyPasswordChange(account umTypes.Account, newPassword string) error {
	if !umUtils.CheckPasswordFormat(newPassword) {
		return errWeakPassword
	}

	if match, err := pwhash.ComparePasswordWithHash(account.PasswordHash, newPassword); err == nil && match {
		return errPasswordReused
	}
	inHistory, err := passwordpolicy.IsInHistory(account.Password, newPassword)
	if err != nil {
		slog.Error("failed to check password history", slog.String("error", err.Error()))
		return errPasswordInternal
	}
	if inHistory {
		return errPasswordReused
	}

	newHash, err := pwhash.HashPassword(newPassword)
	if err != nil {
		slog.Error("failed to hash password", slog.String("error", err.Error()))
		return errPasswordInternal
	}

	record := passwordpolicy.Rotate(account.Password, account.PasswordHash, time.Now())
	if err := h.accountDBConn.UpdatePassword(account.ID, newHash, record); err != nil {
		slog.Error("failed to update password", slog.String("error", err.Error()))
		return errPasswordInternal
	}
	return nil
}

func (h *HttpEndpoints) respondPasswordChangeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errWeakPassword):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "password must be at least 12 characters long and contain lowercase, uppercase, number and symbol",
		})
	case errors.Is(err, errPasswordReused):
		c.JSON(http.StatusConflict, gin.H{"error": "new password must differ from your last passwords"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
