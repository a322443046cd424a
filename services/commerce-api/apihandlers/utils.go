package apihandlers

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/audit"
	emailsending "github.com/maneesh0001/Security-Thriftstore-backend/pkg/messaging/email-sending"
)

// randomWait to harden timing attacks
func randomWait(minTimeSec int, maxTimeSec int) {
	time.Sleep(time.Duration(rand.Intn(maxTimeSec-minTimeSec)+minTimeSec) * time.Second)
}

// recordAudit emits an audit event for the current request, fire-and-forget.
func (h *HttpEndpoints) recordAudit(c *gin.Context, action string, accountID string, email string, details map[string]string) {
	h.auditSink.Record(audit.Event{
		Action:    action,
		AccountID: accountID,
		Email:     email,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Details:   details,
		CreatedAt: time.Now(),
	})
}

// sendEmail delivers a templated notification in the background so handlers
// never block on SMTP.
func (h *HttpEndpoints) sendEmail(email string, messageType string, payload map[string]string) {
	go func() {
		if err := emailsending.SendInstantEmailByTemplate(
			[]string{email},
			messageType,
			payload,
		); err != nil {
			slog.Error("failed to send email", slog.String("messageType", messageType), slog.String("error", err.Error()))
		}
	}()
}

func (h *HttpEndpoints) verificationLink(token string) string {
	return strings.TrimSuffix(h.umConfig.FrontendBaseURL, "/") + "/verify-email/" + token
}

func (h *HttpEndpoints) resetLink(token string) string {
	return strings.TrimSuffix(h.umConfig.FrontendBaseURL, "/") + "/reset-password/" + token
}

func formatDuration(d time.Duration) string {
	if d >= time.Hour {
		return fmt.Sprintf("%d hours", int(d.Hours()))
	}
	return fmt.Sprintf("%d minutes", int(d.Minutes()))
}
