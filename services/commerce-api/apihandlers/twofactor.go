package apihandlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	mw "github.com/maneesh0001/Security-Thriftstore-backend/pkg/apihelpers/middlewares"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/audit"
	emailtemplates "github.com/maneesh0001/Security-Thriftstore-backend/pkg/messaging/email-templates"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/twofactor"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/pwhash"
	umTypes "github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/types"
)

func (h *HttpEndpoints) AddTwoFactorAPI(rg *gin.RouterGroup) {
	tfGroup := rg.Group("/user/2fa")
	tfGroup.Use(mw.SessionAuth(h.accountDBConn))
	tfGroup.Use(mw.PasswordExpiryGate(h.accountDBConn))
	{
		tfGroup.POST("/setup", h.setupTwoFactor)
		tfGroup.POST("/enable", mw.RequirePayload(), h.enableTwoFactor)
		tfGroup.POST("/disable", mw.RequirePayload(), h.disableTwoFactor)
		tfGroup.POST("/backup-codes", mw.RequirePayload(), h.regenerateBackupCodes)
	}
}

func (h *HttpEndpoints) currentAccount(c *gin.Context) (umTypes.Account, bool) {
	session, ok := mw.GetSessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no active session"})
		return umTypes.Account{}, false
	}
	account, err := h.accountDBConn.GetAccountByID(session.AccountID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no active session"})
		return umTypes.Account{}, false
	}
	return account, true
}

// setupTwoFactor starts the enrollment: a temp secret is stored and the QR
// code returned, but nothing is enforced until the first code is confirmed.
func (h *HttpEndpoints) setupTwoFactor(c *gin.Context) {
	account, ok := h.currentAccount(c)
	if !ok {
		return
	}
	if account.TwoFactor.Enabled {
		c.JSON(http.StatusConflict, gin.H{"error": "two-factor authentication is already enabled"})
		return
	}

	secret, qrCode, err := twofactor.GenerateSecret(h.umConfig.TOTPIssuer, account.Email)
	if err != nil {
		slog.Error("failed to generate 2FA secret", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	if err := h.accountDBConn.SetTwoFactorTempSecret(account.ID, secret); err != nil {
		slog.Error("failed to save temp secret", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"secret": secret,
		"qrCode": "data:image/png;base64," + qrCode,
	})
}

type EnableTwoFactorReq struct {
	Code string `json:"code"`
}

func (h *HttpEndpoints) enableTwoFactor(c *gin.Context) {
	account, ok := h.currentAccount(c)
	if !ok {
		return
	}
	if account.TwoFactor.Enabled {
		c.JSON(http.StatusConflict, gin.H{"error": "two-factor authentication is already enabled"})
		return
	}
	if account.TwoFactor.TempSecret == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no two-factor setup in progress"})
		return
	}

	var req EnableTwoFactorReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !twofactor.ValidateCode(req.Code, account.TwoFactor.TempSecret) {
		randomWait(1, 3)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid authentication code"})
		return
	}

	backupCodes, backupCodeHashes, err := twofactor.GenerateBackupCodes()
	if err != nil {
		slog.Error("failed to generate backup codes", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	if err := h.accountDBConn.EnableTwoFactor(account.ID, account.TwoFactor.TempSecret, backupCodeHashes); err != nil {
		slog.Error("failed to enable 2FA", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	h.sendEmail(account.Email, emailtemplates.EMAIL_TYPE_TWO_FACTOR_ENABLED, nil)
	h.recordAudit(c, audit.ACTION_TWO_FACTOR_ENABLED, account.ID.Hex(), account.Email, nil)
	slog.Info("two-factor authentication enabled", slog.String("accountID", account.ID.Hex()))

	// the plaintext codes are shown exactly once
	c.JSON(http.StatusOK, gin.H{
		"message":     "two-factor authentication enabled",
		"backupCodes": backupCodes,
	})
}

type DisableTwoFactorReq struct {
	Password string `json:"password"`
	Code     string `json:"code"`
}

func (h *HttpEndpoints) disableTwoFactor(c *gin.Context) {
	account, ok := h.currentAccount(c)
	if !ok {
		return
	}
	if !account.TwoFactor.Enabled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "two-factor authentication is not enabled"})
		return
	}

	var req DisableTwoFactorReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	match, err := pwhash.ComparePasswordWithHash(account.PasswordHash, req.Password)
	if err != nil || !match {
		randomWait(1, 3)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "password is incorrect"})
		return
	}
	if !twofactor.ValidateCode(req.Code, account.TwoFactor.Secret) {
		randomWait(1, 3)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid authentication code"})
		return
	}

	if err := h.accountDBConn.DisableTwoFactor(account.ID); err != nil {
		slog.Error("failed to disable 2FA", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	h.recordAudit(c, audit.ACTION_TWO_FACTOR_DISABLED, account.ID.Hex(), account.Email, nil)
	slog.Info("two-factor authentication disabled", slog.String("accountID", account.ID.Hex()))
	c.JSON(http.StatusOK, gin.H{"message": "two-factor authentication disabled"})
}

type RegenerateBackupCodesReq struct {
	Password string `json:"password"`
}

// regenerateBackupCodes replaces the whole backup code set, invalidating all
// unused codes. Requires the account password, not a TOTP code, so codes can
// be regenerated after the authenticator device itself was lost.
func (h *HttpEndpoints) regenerateBackupCodes(c *gin.Context) {
	account, ok := h.currentAccount(c)
	if !ok {
		return
	}
	if !account.TwoFactor.Enabled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "two-factor authentication is not enabled"})
		return
	}

	var req RegenerateBackupCodesReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	match, err := pwhash.ComparePasswordWithHash(account.PasswordHash, req.Password)
	if err != nil || !match {
		randomWait(1, 3)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "password is incorrect"})
		return
	}

	backupCodes, backupCodeHashes, err := twofactor.GenerateBackupCodes()
	if err != nil {
		slog.Error("failed to generate backup codes", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if err := h.accountDBConn.ReplaceBackupCodes(account.ID, backupCodeHashes); err != nil {
		slog.Error("failed to replace backup codes", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"backupCodes": backupCodes})
}
