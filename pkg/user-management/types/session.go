package types

import "time"

const SessionInactivityTimeout = 30 * time.Minute

// Session is the server side state behind the opaque session cookie. Role and
// email are snapshots taken at login time.
type Session struct {
	ID           string    `bson:"_id" json:"id"`
	AccountID    string    `bson:"accountID" json:"accountID"`
	Email        string    `bson:"email" json:"email"`
	Role         string    `bson:"role" json:"role"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	LastActivity time.Time `bson:"lastActivity" json:"lastActivity"`
}

// IsExpiredAt reports whether the session must be treated as dead because it
// was idle for longer than the inactivity timeout.
func (s Session) IsExpiredAt(now time.Time) bool {
	return now.Sub(s.LastActivity) > SessionInactivityTimeout
}

// ExpiresAt returns the moment the session dies if no further activity occurs.
func (s Session) ExpiresAt() time.Time {
	return s.LastActivity.Add(SessionInactivityTimeout)
}
