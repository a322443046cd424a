package audit

import (
	"log/slog"
	"time"
)

// Actions recorded in the audit trail. Handlers name the action explicitly
// instead of deriving it from the request path.
const (
	ACTION_SIGNUP                   = "signup"
	ACTION_EMAIL_VERIFIED           = "email-verified"
	ACTION_LOGIN_SUCCESS            = "login-success"
	ACTION_LOGIN_FAILED             = "login-failed"
	ACTION_LOGIN_BLOCKED            = "login-blocked"
	ACTION_ACCOUNT_LOCKED           = "account-locked"
	ACTION_LOGOUT                   = "logout"
	ACTION_PASSWORD_CHANGED         = "password-changed"
	ACTION_PASSWORD_RESET_REQUESTED = "password-reset-requested"
	ACTION_PASSWORD_RESET_COMPLETED = "password-reset-completed"
	ACTION_TWO_FACTOR_ENABLED       = "two-factor-enabled"
	ACTION_TWO_FACTOR_DISABLED      = "two-factor-disabled"
	ACTION_BACKUP_CODE_USED         = "backup-code-used"
	ACTION_PAYMENT_INITIATED        = "payment-initiated"
	ACTION_PAYMENT_COMPLETED        = "payment-completed"
	ACTION_PAYMENT_FAILED           = "payment-failed"
	ACTION_ORDER_CREATED            = "order-created"
	ACTION_ORDER_CANCELLED          = "order-cancelled"
	ACTION_ADMIN_ROLE_CHANGED       = "admin-role-changed"
	ACTION_ADMIN_USER_DELETED       = "admin-user-deleted"
	ACTION_ADMIN_ACCOUNT_UNLOCKED   = "admin-account-unlocked"
	ACTION_PRODUCT_CREATED          = "product-created"
	ACTION_PRODUCT_DELETED          = "product-deleted"
)

type Event struct {
	Action    string            `bson:"action" json:"action"`
	AccountID string            `bson:"accountId,omitempty" json:"accountId,omitempty"`
	Email     string            `bson:"email,omitempty" json:"email,omitempty"`
	IP        string            `bson:"ip,omitempty" json:"ip,omitempty"`
	UserAgent string            `bson:"userAgent,omitempty" json:"userAgent,omitempty"`
	Details   map[string]string `bson:"details,omitempty" json:"details,omitempty"`
	CreatedAt time.Time         `bson:"createdAt" json:"createdAt"`
}

// Sink receives audit events. Implementations must not block the caller.
type Sink interface {
	Record(event Event)
}

type EventSaver interface {
	SaveEvent(event Event) error
}

// AsyncSink persists events in the background so request handlers never wait
// on the audit trail.
type AsyncSink struct {
	saver EventSaver
}

func NewAsyncSink(saver EventSaver) *AsyncSink {
	return &AsyncSink{saver: saver}
}

func (s *AsyncSink) Record(event Event) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	go func() {
		if err := s.saver.SaveEvent(event); err != nil {
			slog.Error("failed to save audit event", slog.String("action", event.Action), slog.String("error", err.Error()))
		}
	}()
}

// NoopSink discards all events, used in tests.
type NoopSink struct{}

func (NoopSink) Record(event Event) {}
