package apihandlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/audit"
	accountDB "github.com/maneesh0001/Security-Thriftstore-backend/pkg/db/account"
	auditDB "github.com/maneesh0001/Security-Thriftstore-backend/pkg/db/audit"
	commerceDB "github.com/maneesh0001/Security-Thriftstore-backend/pkg/db/commerce"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/payment"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/payment/khalti"
)

func HealthCheckHandle(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type UserManagementConfig struct {
	TwoFactorJWTSignKey       string
	TwoFactorJWTExpiresIn     time.Duration
	EmailVerificationTokenTTL time.Duration
	PasswordResetTokenTTL     time.Duration
	ReservedAdminEmail        string
	TOTPIssuer                string
	FrontendBaseURL           string
}

type PaymentFlowConfig struct {
	ReturnURL  string
	WebsiteURL string
}

type HttpEndpoints struct {
	accountDBConn  *accountDB.AccountDBService
	commerceDBConn *commerceDB.CommerceDBService
	auditDBConn    *auditDB.AuditDBService
	auditSink      audit.Sink

	reconciler   *payment.Reconciler
	khaltiClient *khalti.Client

	umConfig      UserManagementConfig
	paymentConfig PaymentFlowConfig
}

func NewHTTPHandler(
	accountDBConn *accountDB.AccountDBService,
	commerceDBConn *commerceDB.CommerceDBService,
	auditDBConn *auditDB.AuditDBService,
	auditSink audit.Sink,
	khaltiClient *khalti.Client,
	umConfig UserManagementConfig,
	paymentConfig PaymentFlowConfig,
) *HttpEndpoints {
	reconciler := payment.NewReconciler(
		commerceDBConn,
		commerceDBConn,
		commerceDBConn,
		payment.NewKhaltiGateway(khaltiClient),
	)

	return &HttpEndpoints{
		accountDBConn:  accountDBConn,
		commerceDBConn: commerceDBConn,
		auditDBConn:    auditDBConn,
		auditSink:      auditSink,
		reconciler:     reconciler,
		khaltiClient:   khaltiClient,
		umConfig:       umConfig,
		paymentConfig:  paymentConfig,
	}
}
