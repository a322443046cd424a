package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v2"

	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/db"
	emailsending "github.com/maneesh0001/Security-Thriftstore-backend/pkg/messaging/email-sending"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/payment/khalti"
	smtpclient "github.com/maneesh0001/Security-Thriftstore-backend/pkg/smtp-client"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/user-management/pwhash"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/utils"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"

	// Variables to override "secrets" in the config file
	ENV_ACCOUNT_DB_USERNAME  = "ACCOUNT_DB_USERNAME"
	ENV_ACCOUNT_DB_PASSWORD  = "ACCOUNT_DB_PASSWORD"
	ENV_COMMERCE_DB_USERNAME = "COMMERCE_DB_USERNAME"
	ENV_COMMERCE_DB_PASSWORD = "COMMERCE_DB_PASSWORD"
	ENV_AUDIT_DB_USERNAME    = "AUDIT_DB_USERNAME"
	ENV_AUDIT_DB_PASSWORD    = "AUDIT_DB_PASSWORD"

	ENV_TWO_FACTOR_JWT_SIGN_KEY   = "TWO_FACTOR_JWT_SIGN_KEY"
	ENV_TWO_FACTOR_JWT_EXPIRES_IN = "TWO_FACTOR_JWT_EXPIRES_IN"
	ENV_KHALTI_SECRET_KEY         = "KHALTI_SECRET_KEY"
)

type CommerceApiConfig struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// Gin configs
	GinConfig struct {
		DebugMode    bool     `json:"debug_mode" yaml:"debug_mode"`
		AllowOrigins []string `json:"allow_origins" yaml:"allow_origins"`
		Port         string   `json:"port" yaml:"port"`
	} `json:"gin_config" yaml:"gin_config"`

	// user management configs
	UserManagementConfig struct {
		PWHashing struct {
			Argon2Memory      uint32 `json:"argon2_memory" yaml:"argon2_memory"`
			Argon2Iterations  uint32 `json:"argon2_iterations" yaml:"argon2_iterations"`
			Argon2Parallelism uint8  `json:"argon2_parallelism" yaml:"argon2_parallelism"`
		} `json:"pw_hashing" yaml:"pw_hashing"`
		TwoFactorJWTConfig struct {
			SignKey   string        `json:"sign_key" yaml:"sign_key"`
			ExpiresIn time.Duration `json:"expires_in" yaml:"expires_in"`
		} `json:"two_factor_jwt_config" yaml:"two_factor_jwt_config"`
		EmailVerificationTokenTTL time.Duration `json:"email_verification_token_ttl" yaml:"email_verification_token_ttl"`
		PasswordResetTokenTTL     time.Duration `json:"password_reset_token_ttl" yaml:"password_reset_token_ttl"`
		ReservedAdminEmail        string        `json:"reserved_admin_email" yaml:"reserved_admin_email"`
		TOTPIssuer                string        `json:"totp_issuer" yaml:"totp_issuer"`
		FrontendBaseURL           string        `json:"frontend_base_url" yaml:"frontend_base_url"`
	} `json:"user_management_config" yaml:"user_management_config"`

	// DB configs
	DBConfigs struct {
		AccountDB  db.DBConfigYaml `json:"account_db" yaml:"account_db"`
		CommerceDB db.DBConfigYaml `json:"commerce_db" yaml:"commerce_db"`
		AuditDB    db.DBConfigYaml `json:"audit_db" yaml:"audit_db"`
	} `json:"db_configs" yaml:"db_configs"`

	// Payment gateway configs
	PaymentConfig struct {
		Khalti     khalti.ClientConfig `json:"khalti" yaml:"khalti"`
		ReturnURL  string              `json:"return_url" yaml:"return_url"`
		WebsiteURL string              `json:"website_url" yaml:"website_url"`
	} `json:"payment_config" yaml:"payment_config"`

	// Email sending configs
	EmailConfigs struct {
		SmtpServerConfigPath string            `json:"smtp_server_config_path" yaml:"smtp_server_config_path"`
		GlobalTemplateInfos  map[string]string `json:"global_template_infos" yaml:"global_template_infos"`
	} `json:"email_configs" yaml:"email_configs"`
}

func init() {
	// Read config from file
	yamlFile, err := os.ReadFile(os.Getenv(ENV_CONFIG_FILE_PATH))
	if err != nil {
		panic(err)
	}

	err = yaml.UnmarshalStrict(yamlFile, &conf)
	if err != nil {
		panic(err)
	}

	// Init logger:
	utils.InitLogger(
		conf.Logging.LogLevel,
		conf.Logging.IncludeSrc,
		conf.Logging.LogToFile,
		conf.Logging.Filename,
		conf.Logging.MaxSize,
		conf.Logging.MaxAge,
		conf.Logging.MaxBackups,
		conf.Logging.CompressOldLogs,
	)

	// Override secrets from environment variables
	secretsOverride()

	if !conf.GinConfig.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// init argon2
	pwhash.InitArgonParams(
		conf.UserManagementConfig.PWHashing.Argon2Memory,
		conf.UserManagementConfig.PWHashing.Argon2Iterations,
		conf.UserManagementConfig.PWHashing.Argon2Parallelism,
	)

	// init message sending
	initMessageSending()
}

func secretsOverride() {
	if dbUsername := os.Getenv(ENV_ACCOUNT_DB_USERNAME); dbUsername != "" {
		conf.DBConfigs.AccountDB.Username = dbUsername
	}

	if dbPassword := os.Getenv(ENV_ACCOUNT_DB_PASSWORD); dbPassword != "" {
		conf.DBConfigs.AccountDB.Password = dbPassword
	}

	if dbUsername := os.Getenv(ENV_COMMERCE_DB_USERNAME); dbUsername != "" {
		conf.DBConfigs.CommerceDB.Username = dbUsername
	}

	if dbPassword := os.Getenv(ENV_COMMERCE_DB_PASSWORD); dbPassword != "" {
		conf.DBConfigs.CommerceDB.Password = dbPassword
	}

	if dbUsername := os.Getenv(ENV_AUDIT_DB_USERNAME); dbUsername != "" {
		conf.DBConfigs.AuditDB.Username = dbUsername
	}

	if dbPassword := os.Getenv(ENV_AUDIT_DB_PASSWORD); dbPassword != "" {
		conf.DBConfigs.AuditDB.Password = dbPassword
	}

	if signKey := os.Getenv(ENV_TWO_FACTOR_JWT_SIGN_KEY); signKey != "" {
		conf.UserManagementConfig.TwoFactorJWTConfig.SignKey = signKey
	}

	if expInVal := os.Getenv(ENV_TWO_FACTOR_JWT_EXPIRES_IN); expInVal != "" {
		expiresIn, err := utils.ParseDurationString(expInVal)
		if err != nil {
			slog.Error("could not parse " + ENV_TWO_FACTOR_JWT_EXPIRES_IN)
			panic(err)
		}
		conf.UserManagementConfig.TwoFactorJWTConfig.ExpiresIn = expiresIn
	}

	if khaltiSecretKey := os.Getenv(ENV_KHALTI_SECRET_KEY); khaltiSecretKey != "" {
		conf.PaymentConfig.Khalti.SecretKey = khaltiSecretKey
	}
}

func initMessageSending() {
	if conf.EmailConfigs.SmtpServerConfigPath == "" {
		slog.Warn("smtp server config path not set, email sending disabled")
		return
	}

	var serverList smtpclient.SmtpServerList
	if err := serverList.ReadFromFile(conf.EmailConfigs.SmtpServerConfigPath); err != nil {
		panic(err)
	}

	clients, err := smtpclient.NewSmtpClients(serverList)
	if err != nil {
		panic(err)
	}

	emailsending.InitMessageSendingVariables(
		clients,
		conf.EmailConfigs.GlobalTemplateInfos,
	)
}
