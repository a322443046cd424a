package passwordpolicy

import (
	"time"

	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/pwhash"
	umTypes "github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/types"
)

const (
	PasswordMaxAge      = 90 * 24 * time.Hour
	ExpiryWarningPeriod = 7 * 24 * time.Hour

	// how many previous password hashes are kept for reuse checks
	HistorySize = 5
)

// IsExpired reports whether the password has reached the max age. A password
// exactly PasswordMaxAge old counts as expired. Accounts with no recorded
// change date are treated as current.
func IsExpired(record umTypes.PasswordRecord, now time.Time) bool {
	if record.ChangedAt == 0 {
		return false
	}
	return now.Sub(time.Unix(record.ChangedAt, 0)) >= PasswordMaxAge
}

// ExpiresAt returns the time at which the password expires.
func ExpiresAt(record umTypes.PasswordRecord) time.Time {
	return time.Unix(record.ChangedAt, 0).Add(PasswordMaxAge)
}

// DaysUntilExpiry returns the number of full days left before the password
// expires. Zero or negative means expired or about to expire.
func DaysUntilExpiry(record umTypes.PasswordRecord, now time.Time) int {
	return int(ExpiresAt(record).Sub(now).Hours() / 24)
}

// ShouldWarnAboutExpiry reports whether an expiry warning is due: the password
// enters the warning window and no warning was sent for this password yet.
func ShouldWarnAboutExpiry(record umTypes.PasswordRecord, now time.Time) bool {
	if record.ChangedAt == 0 || record.ExpiryWarned {
		return false
	}
	if IsExpired(record, now) {
		return false
	}
	return ExpiresAt(record).Sub(now) <= ExpiryWarningPeriod
}

// IsInHistory reports whether the candidate password matches any of the
// retained previous password hashes.
func IsInHistory(record umTypes.PasswordRecord, password string) (bool, error) {
	for _, oldHash := range record.History {
		match, err := pwhash.ComparePasswordWithHash(oldHash, password)
		if err != nil {
			return false, err
		}
		if match {
			return true, nil
		}
	}
	return false, nil
}

// Rotate returns the password record after a password change: the previous
// hash joins the history (oldest entry dropped beyond the history size), the
// change date is set and the expiry warning flag is cleared.
func Rotate(record umTypes.PasswordRecord, previousHash string, now time.Time) umTypes.PasswordRecord {
	next := record
	if previousHash != "" {
		next.History = append(next.History, previousHash)
		if len(next.History) > HistorySize {
			next.History = next.History[len(next.History)-HistorySize:]
		}
	}
	next.ChangedAt = now.Unix()
	next.ExpiryWarned = false
	return next
}
