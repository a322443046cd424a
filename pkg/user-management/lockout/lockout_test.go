package lockout

import (
	"testing"
	"time"

	umTypes "github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/types"
)

func TestRecordFailure(t *testing.T) {
	now := time.Now()

	t.Run("counts attempts", func(t *testing.T) {
		state := umTypes.LockoutState{}
		for i := 1; i < MaxFailedAttempts; i++ {
			state = RecordFailure(state, now)
			if state.Attempts != i {
				t.Errorf("unexpected attempts: %d", state.Attempts)
			}
			if IsLocked(state, now) {
				t.Error("should not be locked yet")
			}
		}
	})

	t.Run("locks at max attempts", func(t *testing.T) {
		state := umTypes.LockoutState{Attempts: MaxFailedAttempts - 1}
		state = RecordFailure(state, now)
		if !IsLocked(state, now) {
			t.Error("should be locked")
		}
		want := now.Add(LockDuration).Unix()
		if state.LockedUntil != want {
			t.Errorf("unexpected lockedUntil: %d", state.LockedUntil)
		}
	})

	t.Run("restarts counting after lock expiry", func(t *testing.T) {
		state := umTypes.LockoutState{
			Attempts:    MaxFailedAttempts,
			LockedUntil: now.Add(-time.Minute).Unix(),
		}
		state = RecordFailure(state, now)
		if state.Attempts != 1 {
			t.Errorf("unexpected attempts: %d", state.Attempts)
		}
		if IsLocked(state, now) {
			t.Error("should not be locked")
		}
	})
}

func TestIsLocked(t *testing.T) {
	now := time.Now()

	t.Run("expired lock is not locked", func(t *testing.T) {
		state := umTypes.LockoutState{
			Attempts:    MaxFailedAttempts,
			LockedUntil: now.Add(-time.Second).Unix(),
		}
		if IsLocked(state, now) {
			t.Error("should not be locked")
		}
	})

	t.Run("active lock", func(t *testing.T) {
		state := umTypes.LockoutState{
			Attempts:    MaxFailedAttempts,
			LockedUntil: now.Add(10 * time.Minute).Unix(),
		}
		if !IsLocked(state, now) {
			t.Error("should be locked")
		}
		remaining := RemainingLockTime(state, now)
		if remaining <= 0 || remaining > 10*time.Minute {
			t.Errorf("unexpected remaining lock time: %v", remaining)
		}
	})
}

func TestRequiresCaptcha(t *testing.T) {
	now := time.Now()

	t.Run("below threshold", func(t *testing.T) {
		state := umTypes.LockoutState{Attempts: CaptchaThreshold - 1}
		if RequiresCaptcha(state, now) {
			t.Error("should not require captcha")
		}
	})

	t.Run("at threshold", func(t *testing.T) {
		state := umTypes.LockoutState{Attempts: CaptchaThreshold}
		if !RequiresCaptcha(state, now) {
			t.Error("should require captcha")
		}
	})

	t.Run("stale attempts after expired lock", func(t *testing.T) {
		state := umTypes.LockoutState{
			Attempts:    MaxFailedAttempts,
			LockedUntil: now.Add(-time.Minute).Unix(),
		}
		if RequiresCaptcha(state, now) {
			t.Error("should not require captcha after expired lock")
		}
	})
}

func TestIsThrottled(t *testing.T) {
	now := time.Now()
	locked := umTypes.LockoutState{
		Attempts:    MaxFailedAttempts,
		LockedUntil: now.Add(10 * time.Minute).Unix(),
	}

	t.Run("recent attempt on locked account", func(t *testing.T) {
		state := locked
		state.LastAttempt = now.Add(-10 * time.Second).Unix()
		if !IsThrottled(state, now) {
			t.Error("should be throttled")
		}
	})

	t.Run("old attempt on locked account", func(t *testing.T) {
		state := locked
		state.LastAttempt = now.Add(-2 * LockedRetryInterval).Unix()
		if IsThrottled(state, now) {
			t.Error("should not be throttled")
		}
	})

	t.Run("unlocked account is never throttled", func(t *testing.T) {
		state := umTypes.LockoutState{LastAttempt: now.Unix()}
		if IsThrottled(state, now) {
			t.Error("should not be throttled")
		}
	})
}

func TestRemainingAttempts(t *testing.T) {
	now := time.Now()

	t.Run("fresh state", func(t *testing.T) {
		if got := RemainingAttempts(umTypes.LockoutState{}, now); got != MaxFailedAttempts {
			t.Errorf("unexpected remaining: %d", got)
		}
	})

	t.Run("after failures", func(t *testing.T) {
		state := umTypes.LockoutState{Attempts: 2}
		if got := RemainingAttempts(state, now); got != MaxFailedAttempts-2 {
			t.Errorf("unexpected remaining: %d", got)
		}
	})

	t.Run("after expired lock", func(t *testing.T) {
		state := umTypes.LockoutState{
			Attempts:    MaxFailedAttempts,
			LockedUntil: now.Add(-time.Minute).Unix(),
		}
		if got := RemainingAttempts(state, now); got != MaxFailedAttempts {
			t.Errorf("unexpected remaining: %d", got)
		}
	})
}
