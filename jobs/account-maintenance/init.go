package main

import (
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/db"
	emailsending "github.com/maneesh0001/Security-Thriftstore-backend/pkg/messaging/email-sending"
	smtpclient "github.com/maneesh0001/Security-Thriftstore-backend/pkg/smtp-client"
	"github.com/maneesh0001/Security-Thriftstore-backend/pkg/utils"

	accountDB "github.com/maneesh0001/Security-Thriftstore-backend/pkg/db/account"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"

	// Variables to override "secrets" in the config file
	ENV_ACCOUNT_DB_USERNAME = "ACCOUNT_DB_USERNAME"
	ENV_ACCOUNT_DB_PASSWORD = "ACCOUNT_DB_PASSWORD"
)

type config struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// DB configs
	DBConfigs struct {
		AccountDB db.DBConfigYaml `json:"account_db" yaml:"account_db"`
	} `json:"db_configs" yaml:"db_configs"`

	// user management configs
	UserManagementConfig struct {
		DeleteUnverifiedAccountsAfter time.Duration `json:"delete_unverified_accounts_after" yaml:"delete_unverified_accounts_after"`
	} `json:"user_management_config" yaml:"user_management_config"`

	// Email sending configs
	EmailConfigs struct {
		SmtpServerConfigPath string            `json:"smtp_server_config_path" yaml:"smtp_server_config_path"`
		GlobalTemplateInfos  map[string]string `json:"global_template_infos" yaml:"global_template_infos"`
	} `json:"email_configs" yaml:"email_configs"`

	RunTasks struct {
		CleanUpUnverifiedAccounts  bool `json:"clean_up_unverified_accounts" yaml:"clean_up_unverified_accounts"`
		SendPasswordExpiryWarnings bool `json:"send_password_expiry_warnings" yaml:"send_password_expiry_warnings"`
	} `json:"run_tasks" yaml:"run_tasks"`
}

var (
	conf config

	accountDBService *accountDB.AccountDBService
)

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

	accountDBService, err = accountDB.NewAccountDBService(db.DBConfigFromYamlObj(conf.DBConfigs.AccountDB))
	if err != nil {
		slog.Error("Error connecting to Account DB", slog.String("error", err.Error()))
		panic(err)
	}

	initMessageSending()
}

func secretsOverride() {
	if dbUsername := os.Getenv(ENV_ACCOUNT_DB_USERNAME); dbUsername != "" {
		conf.DBConfigs.AccountDB.Username = dbUsername
	}

	if dbPassword := os.Getenv(ENV_ACCOUNT_DB_PASSWORD); dbPassword != "" {
		conf.DBConfigs.AccountDB.Password = dbPassword
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
