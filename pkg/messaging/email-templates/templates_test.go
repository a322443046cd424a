package emailtemplates

import (
	"strings"
	"testing"
)

func TestGetEmailContent(t *testing.T) {
	t.Run("verification email", func(t *testing.T) {
		subject, content, err := GetEmailContent(EMAIL_TYPE_VERIFICATION, map[string]string{
			"name":             "Sita",
			"verificationLink": "https://shop.example.com/verify?token=abc",
			"validityPeriod":   "24 hours",
		})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
			return
		}
		if subject == "" {
			t.Error("subject should not be empty")
		}
		if !strings.Contains(content, "Sita") || !strings.Contains(content, "token=abc") {
			t.Errorf("unexpected content: %s", content)
		}
	})

	t.Run("all builtin templates resolve", func(t *testing.T) {
		for _, messageType := range []string{
			EMAIL_TYPE_VERIFICATION,
			EMAIL_TYPE_PASSWORD_RESET,
			EMAIL_TYPE_PASSWORD_CHANGED,
			EMAIL_TYPE_ACCOUNT_LOCKED,
			EMAIL_TYPE_TWO_FACTOR_ENABLED,
			EMAIL_TYPE_PASSWORD_EXPIRY_WARNING,
		} {
			_, _, err := GetEmailContent(messageType, map[string]string{})
			if err != nil {
				t.Errorf("template %s should resolve: %v", messageType, err)
			}
		}
	})

	t.Run("unknown message type", func(t *testing.T) {
		_, _, err := GetEmailContent("no-such-type", nil)
		if err == nil {
			t.Error("expected error")
		}
	})
}
