package emailsending

import (
	"errors"
	"log/slog"

	emailtemplates "github.com/maneesh0001/Security-Thriftstore-backend/pkg/messaging/email-templates"
	smtpclient "github.com/maneesh0001/Security-Thriftstore-backend/pkg/smtp-client"
)

var (
	smtpClients *smtpclient.SmtpClients

	// values merged into every template's content infos, e.g. the public
	// frontend base URL
	GlobalTemplateInfos = map[string]string{}
)

func InitMessageSendingVariables(
	clients *smtpclient.SmtpClients,
	globalTemplateInfos map[string]string,
) {
	smtpClients = clients
	GlobalTemplateInfos = globalTemplateInfos
}

// SendInstantEmailByTemplate resolves the builtin template for the message
// type and sends it right away over the SMTP connection pool.
func SendInstantEmailByTemplate(
	to []string,
	messageType string,
	payload map[string]string,
) error {
	if smtpClients == nil {
		return errors.New("smtp clients not initialized")
	}

	contentInfos := map[string]string{}
	for k, v := range GlobalTemplateInfos {
		contentInfos[k] = v
	}
	for k, v := range payload {
		contentInfos[k] = v
	}

	subject, content, err := emailtemplates.GetEmailContent(messageType, contentInfos)
	if err != nil {
		return err
	}

	err = smtpClients.SendMail(to, subject, content, nil)
	if err != nil {
		slog.Error("error while sending email", slog.String("messageType", messageType), slog.String("error", err.Error()))
		return err
	}
	return nil
}
