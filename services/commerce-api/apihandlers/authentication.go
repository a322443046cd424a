package apihandlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	mrand "math/rand"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	mw "github.com/maneesh0001/Security-Thriftstore-backend/pkg/apihelpers/middlewares"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/audit"
	accountDB "github.com/maneesh0001/Security-Thriftstore-backend/pkg/db/account"
	jwthandling "github.com/maneesh0001/Security-Thriftstore-backend/pkg/jwt-handling"
	emailtemplates "github.com/maneesh0001/Security-Thriftstore-backend/pkg/messaging/email-templates"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/twofactor"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/lockout"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/passwordpolicy"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/pwhash"
	umTypes "github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/types"
	umUtils "github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/utils"
)

const (
	captchaChallengeTTL = 5 * time.Minute

	// minimum wait between verification email resends
	resendVerificationCooldown = 60 * time.Second
)

func (h *HttpEndpoints) AddAuthAPI(rg *gin.RouterGroup) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/signup", mw.RequirePayload(), h.signup)
		authGroup.POST("/login", mw.RequirePayload(), h.login)
		authGroup.POST("/login/2fa", mw.RequirePayload(), h.verifyLoginTwoFactor)
		authGroup.GET("/captcha", h.getCaptchaChallenge)
		authGroup.GET("/verify-email/:token", h.verifyEmail)
		authGroup.POST("/resend-verification", mw.RequirePayload(), h.resendVerificationEmail)
		authGroup.POST("/logout", h.logout)
		authGroup.POST("/refresh-session", mw.SessionAuth(h.accountDBConn), h.refreshSession)
	}
}

func generateSessionID() (string, error) {
	bytes := make([]byte, 16) // 32 character hex string
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

type SignupReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *HttpEndpoints) signup(c *gin.Context) {
	var req SignupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req.Email = umUtils.SanitizeEmail(req.Email)
	if !umUtils.CheckEmailFormat(req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email address"})
		return
	}
	if !umUtils.CheckPasswordFormat(req.Password) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "password must be at least 12 characters long and contain lowercase, uppercase, number and symbol",
		})
		return
	}
	strengthScore := umUtils.PasswordStrengthScore(req.Password, req.Email, req.Name)

	passwordHash, err := pwhash.HashPassword(req.Password)
	if err != nil {
		slog.Error("failed to hash password", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	verificationToken, err := umUtils.GenerateUniqueTokenString()
	if err != nil {
		slog.Error("failed to generate verification token", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	role := umTypes.ROLE_USER
	if h.umConfig.ReservedAdminEmail != "" && req.Email == umUtils.SanitizeEmail(h.umConfig.ReservedAdminEmail) {
		role = umTypes.ROLE_ADMIN
	}

	now := time.Now()
	account := umTypes.Account{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         role,
		EmailVerification: umTypes.TokenInfo{
			Token:     verificationToken,
			ExpiresAt: now.Add(h.umConfig.EmailVerificationTokenTTL).Unix(),
		},
		Password: umTypes.PasswordRecord{
			ChangedAt: now.Unix(),
		},
	}

	account, err = h.accountDBConn.CreateAccount(account)
	if err != nil {
		if errors.Is(err, accountDB.ErrEmailAlreadyUsed) {
			randomWait(1, 3)
			c.JSON(http.StatusConflict, gin.H{"error": "email already in use"})
			return
		}
		slog.Error("failed to create account", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	h.sendEmail(account.Email, emailtemplates.EMAIL_TYPE_VERIFICATION, map[string]string{
		"name":             account.Name,
		"verificationLink": h.verificationLink(verificationToken),
		"validityPeriod":   formatDuration(h.umConfig.EmailVerificationTokenTTL),
	})
	h.recordAudit(c, audit.ACTION_SIGNUP, account.ID.Hex(), account.Email, nil)

	slog.Info("new account created", slog.String("accountID", account.ID.Hex()))
	c.JSON(http.StatusCreated, gin.H{
		"message":          "account created, please verify your email address",
		"passwordStrength": strengthScore,
		"user":             account.Sanitize(),
	})
}

type LoginReq struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	CaptchaID     string `json:"captchaId"`
	CaptchaAnswer string `json:"captchaAnswer"`
}

func (h *HttpEndpoints) login(c *gin.Context) {
	var req LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req.Email = umUtils.SanitizeEmail(req.Email)

	account, err := h.accountDBConn.GetAccountByEmail(req.Email)
	if err != nil {
		slog.Warn("login attempt with unknown email address", slog.String("email", req.Email))
		randomWait(1, 3)
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}

	now := time.Now()

	if lockout.IsLocked(account.Lockout, now) {
		// resend the lockout notification at most once per retry interval
		if !lockout.IsThrottled(account.Lockout, now) {
			h.sendEmail(account.Email, emailtemplates.EMAIL_TYPE_ACCOUNT_LOCKED, map[string]string{
				"lockDuration": formatDuration(lockout.LockDuration),
			})
		}
		h.noteAttemptOnLockedAccount(account, now)
		h.recordAudit(c, audit.ACTION_LOGIN_BLOCKED, account.ID.Hex(), account.Email, nil)
		c.JSON(http.StatusLocked, lockedAccountReply(account.Lockout, now))
		return
	}

	if !account.EmailVerified {
		c.JSON(http.StatusForbidden, gin.H{
			"error":            "please verify your email address first",
			"emailNotVerified": true,
		})
		return
	}

	if passwordpolicy.IsExpired(account.Password, now) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":           "password expired, please reset your password",
			"passwordExpired": true,
		})
		return
	}

	if lockout.RequiresCaptcha(account.Lockout, now) {
		if !h.checkCaptcha(req.CaptchaID, req.CaptchaAnswer) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":          "captcha required",
				"requireCaptcha": true,
			})
			return
		}
	}

	match, err := pwhash.ComparePasswordWithHash(account.PasswordHash, req.Password)
	if err != nil || !match {
		if err == nil {
			err = errors.New("passwords do not match")
		}
		slog.Warn("login attempt with wrong password", slog.String("email", req.Email), slog.String("error", err.Error()))
		h.handleFailedLogin(c, account, now)
		return
	}

	if account.TwoFactor.Enabled {
		challengeToken, err := jwthandling.GenerateNewTwoFactorChallengeToken(
			h.umConfig.TwoFactorJWTExpiresIn,
			account.ID.Hex(),
			account.Email,
			h.umConfig.TwoFactorJWTSignKey,
		)
		if err != nil {
			slog.Error("failed to generate 2FA challenge token", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"require2FA":     true,
			"challengeToken": challengeToken,
			"expiresIn":      h.umConfig.TwoFactorJWTExpiresIn.Seconds(),
		})
		return
	}

	h.finishLogin(c, account, nil)
}

type VerifyLoginTwoFactorReq struct {
	ChallengeToken string `json:"challengeToken"`
	Code           string `json:"code"`
	BackupCode     string `json:"backupCode"`
}

func (h *HttpEndpoints) verifyLoginTwoFactor(c *gin.Context) {
	var req VerifyLoginTwoFactorReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, valid, err := jwthandling.ValidateTwoFactorChallengeToken(req.ChallengeToken, h.umConfig.TwoFactorJWTSignKey)
	if err != nil || !valid {
		randomWait(1, 3)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired challenge"})
		return
	}

	account, err := h.accountDBConn.GetAccountByID(claims.Subject)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired challenge"})
		return
	}
	if !account.TwoFactor.Enabled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "two-factor authentication not enabled"})
		return
	}

	if req.Code == "" && req.BackupCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code or backup code required"})
		return
	}

	// TOTP first, backup codes as fallback
	var extra gin.H
	verified := req.Code != "" && twofactor.ValidateCode(req.Code, account.TwoFactor.Secret)
	if !verified {
		candidate := req.BackupCode
		if candidate == "" {
			candidate = req.Code
		}
		matchedHash := twofactor.MatchBackupCode(candidate, account.TwoFactor.BackupCodeHashes)
		if matchedHash == "" {
			randomWait(1, 3)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authentication code"})
			return
		}
		consumed, err := h.accountDBConn.ConsumeBackupCode(account.ID, matchedHash)
		if err != nil {
			slog.Error("failed to consume backup code", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		if !consumed {
			// a concurrent request used the same code first
			randomWait(1, 3)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authentication code"})
			return
		}
		remaining := len(account.TwoFactor.BackupCodeHashes) - 1
		h.recordAudit(c, audit.ACTION_BACKUP_CODE_USED, account.ID.Hex(), account.Email, map[string]string{
			"remainingCodes": fmt.Sprintf("%d", remaining),
		})
		extra = gin.H{"backupCodesRemaining": remaining}
	}

	h.finishLogin(c, account, extra)
}

// finishLogin runs the shared tail of every successful authentication:
// lockout reset, session regeneration and the pending expiry warning.
// Extra fields are merged into the response body.
func (h *HttpEndpoints) finishLogin(c *gin.Context, account umTypes.Account, extra gin.H) {
	if err := h.accountDBConn.ResetLockout(account.ID); err != nil {
		slog.Error("failed to reset lockout state", slog.String("error", err.Error()))
	}
	if err := h.accountDBConn.UpdateLastLogin(account.ID); err != nil {
		slog.Error("failed to update last login", slog.String("error", err.Error()))
	}

	session, err := h.startSession(c, account)
	if err != nil {
		slog.Error("failed to create session", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	now := time.Now()
	if passwordpolicy.ShouldWarnAboutExpiry(account.Password, now) {
		if err := h.accountDBConn.MarkPasswordExpiryWarned(account.ID); err != nil {
			slog.Error("failed to mark expiry warning", slog.String("error", err.Error()))
		} else {
			h.sendEmail(account.Email, emailtemplates.EMAIL_TYPE_PASSWORD_EXPIRY_WARNING, map[string]string{
				"daysLeft": fmt.Sprintf("%d", passwordpolicy.DaysUntilExpiry(account.Password, now)),
			})
		}
	}

	h.recordAudit(c, audit.ACTION_LOGIN_SUCCESS, account.ID.Hex(), account.Email, nil)
	slog.Info("login successful", slog.String("accountID", account.ID.Hex()))

	c.JSON(http.StatusOK, loginSuccessBody(session, account, extra))
}

func loginSuccessBody(session umTypes.Session, account umTypes.Account, extra gin.H) gin.H {
	body := gin.H{
		"sessionExpiresAt": session.ExpiresAt().Unix(),
		"user":             account.Sanitize(),
	}
	for key, value := range extra {
		body[key] = value
	}
	return body
}

// startSession regenerates the session id on every login so a pre-login
// cookie can never be fixated onto an authenticated session.
func (h *HttpEndpoints) startSession(c *gin.Context, account umTypes.Account) (umTypes.Session, error) {
	if oldSessionID, err := c.Cookie(mw.SessionCookieName); err == nil && oldSessionID != "" {
		if err := h.accountDBConn.DeleteSession(oldSessionID); err != nil {
			slog.Error("failed to delete previous session", slog.String("error", err.Error()))
		}
	}

	sessionID, err := generateSessionID()
	if err != nil {
		return umTypes.Session{}, err
	}

	now := time.Now()
	session := umTypes.Session{
		ID:           sessionID,
		AccountID:    account.ID.Hex(),
		Email:        account.Email,
		Role:         account.Role,
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := h.accountDBConn.CreateSession(session); err != nil {
		return umTypes.Session{}, err
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(
		mw.SessionCookieName,
		sessionID,
		int(umTypes.SessionInactivityTimeout.Seconds()),
		"/",
		"",
		gin.Mode() == gin.ReleaseMode,
		true,
	)
	return session, nil
}

// handleFailedLogin applies the lockout state machine with a compare-and-set
// on the attempt counter, so two racing failures both count.
func (h *HttpEndpoints) handleFailedLogin(c *gin.Context, account umTypes.Account, now time.Time) {
	var newState umTypes.LockoutState
	for range [3]struct{}{} {
		newState = lockout.RecordFailure(account.Lockout, now)
		applied, err := h.accountDBConn.SaveLockoutState(account.Email, account.Lockout.Attempts, newState)
		if err != nil {
			slog.Error("failed to save lockout state", slog.String("error", err.Error()))
			break
		}
		if applied {
			break
		}
		// another failure got there first, retry on fresh state
		account, err = h.accountDBConn.GetAccountByEmail(account.Email)
		if err != nil {
			slog.Error("failed to reload account for lockout update", slog.String("error", err.Error()))
			break
		}
	}

	h.recordAudit(c, audit.ACTION_LOGIN_FAILED, account.ID.Hex(), account.Email, map[string]string{
		"attempts": fmt.Sprintf("%d", newState.Attempts),
	})
	randomWait(1, 3)

	if lockout.IsLocked(newState, now) {
		h.recordAudit(c, audit.ACTION_ACCOUNT_LOCKED, account.ID.Hex(), account.Email, nil)
		h.sendEmail(account.Email, emailtemplates.EMAIL_TYPE_ACCOUNT_LOCKED, map[string]string{
			"lockDuration": formatDuration(lockout.LockDuration),
		})
	}

	// even the failure that triggers the lock answers like any other failed
	// attempt; 423 is reserved for attempts against an already locked account
	c.JSON(http.StatusBadRequest, failedLoginReply(newState, now))
}

// failedLoginReply is the body for a rejected credential check, including
// the one that locks the account.
func failedLoginReply(state umTypes.LockoutState, now time.Time) gin.H {
	return gin.H{
		"error":             "invalid email or password",
		"remainingAttempts": lockout.RemainingAttempts(state, now),
		"requireCaptcha":    lockout.RequiresCaptcha(state, now),
	}
}

// lockedAccountReply is the body for an attempt against a locked account.
func lockedAccountReply(state umTypes.LockoutState, now time.Time) gin.H {
	return gin.H{
		"error":             "account locked due to too many failed login attempts",
		"locked":            true,
		"lockTimeRemaining": int(math.Ceil(lockout.RemainingLockTime(state, now).Minutes())),
	}
}

// noteAttemptOnLockedAccount refreshes lastAttempt for the locked-account
// throttle without counting a new failure.
func (h *HttpEndpoints) noteAttemptOnLockedAccount(account umTypes.Account, now time.Time) {
	state := account.Lockout
	state.LastAttempt = now.Unix()
	if _, err := h.accountDBConn.SaveLockoutState(account.Email, account.Lockout.Attempts, state); err != nil {
		slog.Error("failed to update lockout state", slog.String("error", err.Error()))
	}
}

func (h *HttpEndpoints) getCaptchaChallenge(c *gin.Context) {
	a := mrand.Intn(10) + 1
	b := mrand.Intn(10) + 1

	challenge := accountDB.CaptchaChallenge{
		ID:        uuid.New().String(),
		Answer:    fmt.Sprintf("%d", a+b),
		ExpiresAt: time.Now().Add(captchaChallengeTTL),
	}
	if err := h.accountDBConn.SaveCaptchaChallenge(challenge); err != nil {
		slog.Error("failed to save captcha challenge", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"captchaId": challenge.ID,
		"question":  fmt.Sprintf("What is %d + %d?", a, b),
	})
}

func (h *HttpEndpoints) checkCaptcha(challengeID string, answer string) bool {
	if challengeID == "" || answer == "" {
		return false
	}
	challenge, err := h.accountDBConn.ConsumeCaptchaChallenge(challengeID)
	if err != nil {
		return false
	}
	return challenge.Answer == answer
}

func (h *HttpEndpoints) verifyEmail(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token missing"})
		return
	}

	account, err := h.accountDBConn.VerifyEmailByToken(token)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired verification token"})
		return
	}

	h.recordAudit(c, audit.ACTION_EMAIL_VERIFIED, account.ID.Hex(), account.Email, nil)
	slog.Info("email verified", slog.String("accountID", account.ID.Hex()))
	c.JSON(http.StatusOK, gin.H{"message": "email verified, you can log in now"})
}

type ResendVerificationReq struct {
	Email string `json:"email"`
}

func (h *HttpEndpoints) resendVerificationEmail(c *gin.Context) {
	var req ResendVerificationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req.Email = umUtils.SanitizeEmail(req.Email)
	account, err := h.accountDBConn.GetAccountByEmail(req.Email)
	if err != nil || account.EmailVerified {
		// do not leak whether the address exists or is verified
		c.JSON(http.StatusOK, gin.H{"message": "if the account exists, a verification email has been sent"})
		return
	}

	issuedAt := time.Unix(account.EmailVerification.ExpiresAt, 0).Add(-h.umConfig.EmailVerificationTokenTTL)
	if time.Since(issuedAt) < resendVerificationCooldown {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "please wait before requesting another email"})
		return
	}

	verificationToken, err := umUtils.GenerateUniqueTokenString()
	if err != nil {
		slog.Error("failed to generate verification token", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	tokenInfo := umTypes.TokenInfo{
		Token:     verificationToken,
		ExpiresAt: time.Now().Add(h.umConfig.EmailVerificationTokenTTL).Unix(),
	}
	if err := h.accountDBConn.SetEmailVerificationToken(account.ID, tokenInfo); err != nil {
		slog.Error("failed to save verification token", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	h.sendEmail(account.Email, emailtemplates.EMAIL_TYPE_VERIFICATION, map[string]string{
		"name":             account.Name,
		"verificationLink": h.verificationLink(verificationToken),
		"validityPeriod":   formatDuration(h.umConfig.EmailVerificationTokenTTL),
	})
	c.JSON(http.StatusOK, gin.H{"message": "if the account exists, a verification email has been sent"})
}

// logout is idempotent: it clears the cookie and destroys the session if one
// exists, and never fails for callers without a session.
func (h *HttpEndpoints) logout(c *gin.Context) {
	sessionID, err := c.Cookie(mw.SessionCookieName)
	if err == nil && sessionID != "" {
		if session, err := h.accountDBConn.GetSession(sessionID); err == nil {
			h.recordAudit(c, audit.ACTION_LOGOUT, session.AccountID, session.Email, nil)
		}
		if err := h.accountDBConn.DeleteSession(sessionID); err != nil {
			slog.Error("failed to delete session", slog.String("error", err.Error()))
		}
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(mw.SessionCookieName, "", -1, "/", "", gin.Mode() == gin.ReleaseMode, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *HttpEndpoints) refreshSession(c *gin.Context) {
	session, ok := mw.GetSessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no active session"})
		return
	}

	// SessionAuth already advanced lastActivity
	c.JSON(http.StatusOK, gin.H{
		"sessionExpiresAt": time.Now().Add(umTypes.SessionInactivityTimeout).Unix(),
		"accountId":        session.AccountID,
	})
}
