package types

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ROLE_USER  = "user"
	ROLE_ADMIN = "admin"
)

type Account struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	Name         string `bson:"name" json:"name"`
	Email        string `bson:"email" json:"email"`
	PasswordHash string `bson:"passwordHash" json:"-"`
	Role         string `bson:"role" json:"role"`

	EmailVerified     bool      `bson:"emailVerified" json:"emailVerified"`
	EmailVerification TokenInfo `bson:"emailVerification" json:"-"`
	PasswordReset     TokenInfo `bson:"passwordReset" json:"-"`

	Lockout   LockoutState   `bson:"lockout" json:"-"`
	TwoFactor TwoFactorState `bson:"twoFactor" json:"twoFactor"`
	Password  PasswordRecord `bson:"passwordRecord" json:"-"`

	Timestamps Timestamps `bson:"timestamps" json:"timestamps"`
}

// TokenInfo is a single-purpose random token with an expiry, used for email
// verification and password reset links.
type TokenInfo struct {
	Token     string `bson:"token" json:"token"`
	ExpiresAt int64  `bson:"expiresAt" json:"expiresAt"`
}

func (t TokenInfo) IsValidAt(nowUnix int64) bool {
	return t.Token != "" && t.ExpiresAt > nowUnix
}

type LockoutState struct {
	Attempts    int   `bson:"attempts" json:"attempts"`
	LockedUntil int64 `bson:"lockedUntil" json:"lockedUntil"`
	LastAttempt int64 `bson:"lastAttempt" json:"lastAttempt"`
}

type TwoFactorState struct {
	Enabled          bool     `bson:"enabled" json:"enabled"`
	Secret           string   `bson:"secret" json:"-"`
	TempSecret       string   `bson:"tempSecret" json:"-"`
	BackupCodeHashes []string `bson:"backupCodeHashes" json:"-"`
}

// PasswordRecord tracks the password lifecycle: the last changed timestamp
// drives the 90 day expiry window, History holds the previous hashes (oldest
// first, max 5) and ExpiryWarned gates the one-shot pre-expiry warning email.
type PasswordRecord struct {
	History      []string `bson:"history" json:"-"`
	ChangedAt    int64    `bson:"changedAt" json:"changedAt"`
	ExpiryWarned bool     `bson:"expiryWarned" json:"-"`
}

type Timestamps struct {
	CreatedAt int64 `bson:"createdAt" json:"createdAt"`
	UpdatedAt int64 `bson:"updatedAt" json:"updatedAt"`
	LastLogin int64 `bson:"lastLogin" json:"lastLogin"`
}

// Sanitize strips everything a caller must never see before the account is
// returned in an API response.
func (a Account) Sanitize() Account {
	a.PasswordHash = ""
	a.EmailVerification = TokenInfo{}
	a.PasswordReset = TokenInfo{}
	a.TwoFactor.Secret = ""
	a.TwoFactor.TempSecret = ""
	a.TwoFactor.BackupCodeHashes = nil
	a.Password.History = nil
	return a
}
