package lockout

import (
	"time"

	umTypes "github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/types"
)

const (
	MaxFailedAttempts = 5
	LockDuration      = 15 * time.Minute

	// captcha is required from this many failed attempts onwards
	CaptchaThreshold = 3

	// minimum wait between attempts while an account is locked
	LockedRetryInterval = 60 * time.Second
)

// IsLocked reports whether the account is locked at the given time.
// An expired lock does not count as locked, even before it is cleared
// in the database.
func IsLocked(state umTypes.LockoutState, now time.Time) bool {
	return state.LockedUntil > 0 && now.Unix() < state.LockedUntil
}

// RemainingLockTime returns how long the lock still holds, zero when unlocked.
func RemainingLockTime(state umTypes.LockoutState, now time.Time) time.Duration {
	if !IsLocked(state, now) {
		return 0
	}
	return time.Duration(state.LockedUntil-now.Unix()) * time.Second
}

// RequiresCaptcha reports whether the next login attempt must carry a solved
// captcha challenge. Failed attempts from an already expired lock are ignored.
func RequiresCaptcha(state umTypes.LockoutState, now time.Time) bool {
	if lockExpired(state, now) {
		return false
	}
	return state.Attempts >= CaptchaThreshold
}

// IsThrottled reports whether an attempt against a locked account arrives
// before the retry interval has passed since the previous attempt.
func IsThrottled(state umTypes.LockoutState, now time.Time) bool {
	if !IsLocked(state, now) {
		return false
	}
	return state.LastAttempt > 0 && now.Sub(time.Unix(state.LastAttempt, 0)) < LockedRetryInterval
}

// RecordFailure returns the lockout state after one more failed attempt.
// When the previous lock has already expired, counting restarts at one
// instead of continuing the stale streak.
func RecordFailure(state umTypes.LockoutState, now time.Time) umTypes.LockoutState {
	next := state
	if lockExpired(state, now) {
		next.Attempts = 0
		next.LockedUntil = 0
	}
	next.Attempts += 1
	next.LastAttempt = now.Unix()
	if next.Attempts >= MaxFailedAttempts {
		next.LockedUntil = now.Add(LockDuration).Unix()
	}
	return next
}

// RemainingAttempts returns how many failures are left before lockout.
func RemainingAttempts(state umTypes.LockoutState, now time.Time) int {
	if lockExpired(state, now) {
		return MaxFailedAttempts
	}
	remaining := MaxFailedAttempts - state.Attempts
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset returns the cleared state to persist after a successful login.
func Reset() umTypes.LockoutState {
	return umTypes.LockoutState{}
}

func lockExpired(state umTypes.LockoutState, now time.Time) bool {
	return state.LockedUntil > 0 && now.Unix() >= state.LockedUntil
}
