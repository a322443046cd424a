package passwordpolicy

import (
	"testing"
	"time"

	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/pwhash"
	umTypes "github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/types"
)

func TestIsExpired(t *testing.T) {
	now := time.Now()

	t.Run("fresh password", func(t *testing.T) {
		record := umTypes.PasswordRecord{ChangedAt: now.Add(-24 * time.Hour).Unix()}
		if IsExpired(record, now) {
			t.Error("should not be expired")
		}
	})

	t.Run("exactly at max age", func(t *testing.T) {
		record := umTypes.PasswordRecord{ChangedAt: now.Add(-PasswordMaxAge).Unix()}
		if !IsExpired(record, now) {
			t.Error("should be expired at the boundary")
		}
	})

	t.Run("just under max age", func(t *testing.T) {
		record := umTypes.PasswordRecord{ChangedAt: now.Add(-PasswordMaxAge + time.Minute).Unix()}
		if IsExpired(record, now) {
			t.Error("should not be expired yet")
		}
	})

	t.Run("old password", func(t *testing.T) {
		record := umTypes.PasswordRecord{ChangedAt: now.Add(-PasswordMaxAge - time.Hour).Unix()}
		if !IsExpired(record, now) {
			t.Error("should be expired")
		}
	})

	t.Run("no recorded change date", func(t *testing.T) {
		if IsExpired(umTypes.PasswordRecord{}, now) {
			t.Error("should not be expired")
		}
	})
}

func TestShouldWarnAboutExpiry(t *testing.T) {
	now := time.Now()

	t.Run("outside warning window", func(t *testing.T) {
		record := umTypes.PasswordRecord{ChangedAt: now.Add(-time.Hour).Unix()}
		if ShouldWarnAboutExpiry(record, now) {
			t.Error("should not warn")
		}
	})

	t.Run("inside warning window", func(t *testing.T) {
		record := umTypes.PasswordRecord{ChangedAt: now.Add(-PasswordMaxAge + 3*24*time.Hour).Unix()}
		if !ShouldWarnAboutExpiry(record, now) {
			t.Error("should warn")
		}
	})

	t.Run("warning already sent", func(t *testing.T) {
		record := umTypes.PasswordRecord{
			ChangedAt:    now.Add(-PasswordMaxAge + 3*24*time.Hour).Unix(),
			ExpiryWarned: true,
		}
		if ShouldWarnAboutExpiry(record, now) {
			t.Error("should not warn twice")
		}
	})

	t.Run("already expired", func(t *testing.T) {
		record := umTypes.PasswordRecord{ChangedAt: now.Add(-PasswordMaxAge - time.Hour).Unix()}
		if ShouldWarnAboutExpiry(record, now) {
			t.Error("should not warn when already expired")
		}
	})
}

func TestIsInHistory(t *testing.T) {
	oldHash, err := pwhash.HashPassword("Old!Password1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	record := umTypes.PasswordRecord{History: []string{oldHash}}

	t.Run("reused password", func(t *testing.T) {
		found, err := IsInHistory(record, "Old!Password1234")
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if !found {
			t.Error("should find reused password")
		}
	})

	t.Run("new password", func(t *testing.T) {
		found, err := IsInHistory(record, "New!Password1234")
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if found {
			t.Error("should not find new password")
		}
	})
}

func TestRotate(t *testing.T) {
	now := time.Now()

	t.Run("appends previous hash and resets warning", func(t *testing.T) {
		record := umTypes.PasswordRecord{ExpiryWarned: true}
		record = Rotate(record, "hash-1", now)
		if len(record.History) != 1 || record.History[0] != "hash-1" {
			t.Errorf("unexpected history: %v", record.History)
		}
		if record.ChangedAt != now.Unix() {
			t.Errorf("unexpected changedAt: %d", record.ChangedAt)
		}
		if record.ExpiryWarned {
			t.Error("warning flag should be cleared")
		}
	})

	t.Run("drops oldest entry beyond history size", func(t *testing.T) {
		record := umTypes.PasswordRecord{}
		for i := 0; i < HistorySize+2; i++ {
			record = Rotate(record, string(rune('a'+i)), now)
		}
		if len(record.History) != HistorySize {
			t.Errorf("unexpected history length: %d", len(record.History))
		}
		if record.History[0] != "c" {
			t.Errorf("unexpected oldest entry: %s", record.History[0])
		}
	})

	t.Run("empty previous hash is not recorded", func(t *testing.T) {
		record := Rotate(umTypes.PasswordRecord{}, "", now)
		if len(record.History) != 0 {
			t.Errorf("unexpected history: %v", record.History)
		}
	})
}
