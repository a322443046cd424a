package types

import (
	"testing"
	"time"
)

func TestSessionExpiry(t *testing.T) {
	now := time.Now()
	session := Session{
		ID:           "abc",
		AccountID:    "account1",
		LastActivity: now,
	}

	t.Run("fresh session is not expired", func(t *testing.T) {
		if session.IsExpiredAt(now.Add(SessionInactivityTimeout - time.Second)) {
			t.Error("session should still be alive")
		}
	})

	t.Run("idle session is expired", func(t *testing.T) {
		if !session.IsExpiredAt(now.Add(SessionInactivityTimeout + time.Second)) {
			t.Error("session should be expired")
		}
	})

	t.Run("activity extends the deadline", func(t *testing.T) {
		session.LastActivity = now.Add(10 * time.Minute)
		if session.IsExpiredAt(now.Add(SessionInactivityTimeout + time.Second)) {
			t.Error("touched session should still be alive")
		}
	})

	t.Run("expiry moment matches last activity plus timeout", func(t *testing.T) {
		want := session.LastActivity.Add(SessionInactivityTimeout)
		if !session.ExpiresAt().Equal(want) {
			t.Errorf("unexpected expiry time: got %v, want %v", session.ExpiresAt(), want)
		}
	})
}
