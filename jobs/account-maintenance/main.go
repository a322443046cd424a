package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	emailsending "github.com/maneesh0001/Security-Thriftstore-backend/pkg/messaging/email-sending"
	emailtemplates "github.com/maneesh0001/Security-Thriftstore-backend/pkg/messaging/email-templates"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/passwordpolicy"
	umTypes "github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/types"
)

func main() {
	slog.Info("Starting account maintenance job")
	start := time.Now()

	if conf.RunTasks.CleanUpUnverifiedAccounts {
		cleanUpUnverifiedAccounts()
	}
	if conf.RunTasks.SendPasswordExpiryWarnings {
		sendPasswordExpiryWarnings()
	}

	slog.Info("Account maintenance jobs completed", slog.Duration("duration", time.Since(start)))
}

func cleanUpUnverifiedAccounts() {
	slog.Debug("Start cleaning up unverified accounts")

	createdBefore := time.Now().Add(-conf.UserManagementConfig.DeleteUnverifiedAccountsAfter).Unix()
	count, err := accountDBService.DeleteUnverifiedAccounts(createdBefore)
	if err != nil {
		slog.Error("Error cleaning up unverified accounts", slog.String("error", err.Error()))
		return
	}

	slog.Info("Clean up unverified accounts finished", slog.Int("count", int(count)))
}

func sendPasswordExpiryWarnings() {
	slog.Debug("Start sending password expiry warnings")

	now := time.Now()
	warnBefore := now.Add(passwordpolicy.ExpiryWarningPeriod - passwordpolicy.PasswordMaxAge).Unix()

	// pre-filter in the DB, the callback re-checks the exact window
	filter := bson.M{
		"emailVerified":               true,
		"passwordRecord.expiryWarned": false,
		"passwordRecord.changedAt":    bson.M{"$lt": warnBefore},
	}

	count := 0
	err := accountDBService.FindAndExecuteOnAccounts(
		context.Background(),
		filter,
		func(account umTypes.Account) error {
			if !passwordpolicy.ShouldWarnAboutExpiry(account.Password, now) {
				return nil
			}

			daysLeft := passwordpolicy.DaysUntilExpiry(account.Password, now)
			err := emailsending.SendInstantEmailByTemplate(
				[]string{account.Email},
				emailtemplates.EMAIL_TYPE_PASSWORD_EXPIRY_WARNING,
				map[string]string{
					"name":     account.Name,
					"daysLeft": fmt.Sprintf("%d", daysLeft),
				},
			)
			if err != nil {
				return err
			}

			if err := accountDBService.MarkPasswordExpiryWarned(account.ID); err != nil {
				return err
			}
			count++
			return nil
		},
	)
	if err != nil {
		slog.Error("Error sending password expiry warnings", slog.String("error", err.Error()))
		return
	}

	slog.Info("Password expiry warnings sent", slog.Int("count", count))
}
