package apihandlers

import (
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/lockout"
	umTypes "github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/types"
)

func TestLoginFailureReplies(t *testing.T) {
	now := time.Now()

	failTimes := func(n int) umTypes.LockoutState {
		state := umTypes.LockoutState{}
		for i := 0; i < n; i++ {
			state = lockout.RecordFailure(state, now)
		}
		return state
	}

	t.Run("early failures report remaining attempts", func(t *testing.T) {
		reply := failedLoginReply(failTimes(2), now)
		if reply["remainingAttempts"] != 3 {
			t.Errorf("unexpected remaining attempts: %v", reply["remainingAttempts"])
		}
		if reply["requireCaptcha"] != false {
			t.Error("captcha should not be required yet")
		}
	})

	t.Run("captcha kicks in at the threshold", func(t *testing.T) {
		reply := failedLoginReply(failTimes(lockout.CaptchaThreshold), now)
		if reply["requireCaptcha"] != true {
			t.Error("captcha should be required")
		}
	})

	t.Run("locking failure still answers like a failed attempt", func(t *testing.T) {
		state := failTimes(lockout.MaxFailedAttempts)
		if !lockout.IsLocked(state, now) {
			t.Fatal("state should be locked after the final failure")
		}
		reply := failedLoginReply(state, now)
		if reply["remainingAttempts"] != 0 {
			t.Errorf("unexpected remaining attempts: %v", reply["remainingAttempts"])
		}
		if reply["requireCaptcha"] != true {
			t.Error("captcha should be required")
		}
		if _, ok := reply["locked"]; ok {
			t.Error("the failure body must not carry the locked flag")
		}
	})

	t.Run("attempt against a locked account reports the lock", func(t *testing.T) {
		state := failTimes(lockout.MaxFailedAttempts)
		reply := lockedAccountReply(state, now.Add(10*time.Second))
		if reply["locked"] != true {
			t.Error("locked flag should be set")
		}
		if reply["lockTimeRemaining"] != 15 {
			t.Errorf("unexpected lock time remaining: %v", reply["lockTimeRemaining"])
		}
	})

	t.Run("retry interval gates the notification, not the reply", func(t *testing.T) {
		state := failTimes(lockout.MaxFailedAttempts)
		if !lockout.IsThrottled(state, now.Add(10*time.Second)) {
			t.Error("notification should be suppressed right after locking")
		}
		if lockout.IsThrottled(state, now.Add(90*time.Second)) {
			t.Error("notification should be allowed again after the interval")
		}
		reply := lockedAccountReply(state, now.Add(10*time.Second))
		if reply["error"] == nil {
			t.Error("locked reply should always carry an error message")
		}
	})
}

func TestLoginSuccessBody(t *testing.T) {
	session := umTypes.Session{LastActivity: time.Now()}
	account := umTypes.Account{Email: "jane@example.com"}

	t.Run("plain login", func(t *testing.T) {
		body := loginSuccessBody(session, account, nil)
		if body["sessionExpiresAt"] == nil || body["user"] == nil {
			t.Error("session expiry and user must always be present")
		}
		if _, ok := body["backupCodesRemaining"]; ok {
			t.Error("no backup code count expected")
		}
	})

	t.Run("backup code consumption reports the remaining count", func(t *testing.T) {
		body := loginSuccessBody(session, account, gin.H{"backupCodesRemaining": 7})
		if body["backupCodesRemaining"] != 7 {
			t.Errorf("unexpected count: %v", body["backupCodesRemaining"])
		}
	})
}
