package main

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/audit"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/db"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/payment/khalti"
	"github.com/maneesh0001/Security-Thriftstore-backend/services/commerce-api/apihandlers"

	accountDB "github.com/maneesh0001/Security-Thriftstore-backend/pkg/db/account"
	auditDB "github.com/maneesh0001/Security-Thriftstore-backend/pkg/db/audit"
	commerceDB "github.com/maneesh0001/Security-Thriftstore-backend/pkg/db/commerce"
)

var conf CommerceApiConfig

func main() {
	accountDBService, err := accountDB.NewAccountDBService(db.DBConfigFromYamlObj(conf.DBConfigs.AccountDB))
	if err != nil {
		slog.Error("Error connecting to Account DB", slog.String("error", err.Error()))
		return
	}

	commerceDBService, err := commerceDB.NewCommerceDBService(db.DBConfigFromYamlObj(conf.DBConfigs.CommerceDB))
	if err != nil {
		slog.Error("Error connecting to Commerce DB", slog.String("error", err.Error()))
		return
	}

	auditDBService, err := auditDB.NewAuditDBService(db.DBConfigFromYamlObj(conf.DBConfigs.AuditDB))
	if err != nil {
		slog.Error("Error connecting to Audit DB", slog.String("error", err.Error()))
		return
	}

	auditSink := audit.NewAsyncSink(auditDBService)

	khaltiClient := khalti.NewClient(conf.PaymentConfig.Khalti)

	// Start webserver
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     conf.GinConfig.AllowOrigins,
		AllowMethods:     []string{"POST", "GET", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "Content-Length"},
		ExposeHeaders:    []string{"Authorization", "Content-Type", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Add handlers
	router.GET("/", apihandlers.HealthCheckHandle)
	v1Root := router.Group("/v1")

	v1APIHandlers := apihandlers.NewHTTPHandler(
		accountDBService,
		commerceDBService,
		auditDBService,
		auditSink,
		khaltiClient,
		apihandlers.UserManagementConfig{
			TwoFactorJWTSignKey:       conf.UserManagementConfig.TwoFactorJWTConfig.SignKey,
			TwoFactorJWTExpiresIn:     conf.UserManagementConfig.TwoFactorJWTConfig.ExpiresIn,
			EmailVerificationTokenTTL: conf.UserManagementConfig.EmailVerificationTokenTTL,
			PasswordResetTokenTTL:     conf.UserManagementConfig.PasswordResetTokenTTL,
			ReservedAdminEmail:        conf.UserManagementConfig.ReservedAdminEmail,
			TOTPIssuer:                conf.UserManagementConfig.TOTPIssuer,
			FrontendBaseURL:           conf.UserManagementConfig.FrontendBaseURL,
		},
		apihandlers.PaymentFlowConfig{
			ReturnURL:  conf.PaymentConfig.ReturnURL,
			WebsiteURL: conf.PaymentConfig.WebsiteURL,
		},
	)
	v1APIHandlers.AddAuthAPI(v1Root)
	v1APIHandlers.AddPasswordAPI(v1Root)
	v1APIHandlers.AddTwoFactorAPI(v1Root)
	v1APIHandlers.AddPaymentAPI(v1Root)
	v1APIHandlers.AddOrdersAPI(v1Root)
	v1APIHandlers.AddProductsAPI(v1Root)
	v1APIHandlers.AddCartAPI(v1Root)
	v1APIHandlers.AddUserManagementAPI(v1Root)

	// Start the server
	slog.Info("Starting Commerce API on port " + conf.GinConfig.Port)
	err = router.Run(":" + conf.GinConfig.Port)
	if err != nil {
		slog.Error("Exited Commerce API", slog.String("error", err.Error()))
		return
	}
}
