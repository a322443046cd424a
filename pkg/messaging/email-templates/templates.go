package emailtemplates

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"
)

// message types
const (
	EMAIL_TYPE_VERIFICATION            = "account-verification"
	EMAIL_TYPE_PASSWORD_RESET          = "password-reset"
	EMAIL_TYPE_PASSWORD_CHANGED        = "password-changed"
	EMAIL_TYPE_ACCOUNT_LOCKED          = "account-locked"
	EMAIL_TYPE_TWO_FACTOR_ENABLED      = "two-factor-enabled"
	EMAIL_TYPE_PASSWORD_EXPIRY_WARNING = "password-expiry-warning"
)

type emailTemplate struct {
	Subject     string
	TemplateDef string
}

var builtinTemplates = map[string]emailTemplate{
	EMAIL_TYPE_VERIFICATION: {
		Subject: "Verify your email address",
		TemplateDef: `<h2>Welcome to Thriftstore, {{.name}}!</h2>
<p>Please confirm your email address by clicking the link below:</p>
<p><a href="{{.verificationLink}}">Verify my email</a></p>
<p>The link is valid for {{.validityPeriod}}. If you did not create this account, you can ignore this message.</p>`,
	},
	EMAIL_TYPE_PASSWORD_RESET: {
		Subject: "Reset your password",
		TemplateDef: `<h2>Password reset requested</h2>
<p>We received a request to reset the password of your account.</p>
<p><a href="{{.resetLink}}">Reset my password</a></p>
<p>The link is valid for {{.validityPeriod}}. If you did not request this, no action is needed.</p>`,
	},
	EMAIL_TYPE_PASSWORD_CHANGED: {
		Subject: "Your password was changed",
		TemplateDef: `<h2>Password changed</h2>
<p>The password of your account was changed on {{.changedAt}}.</p>
<p>If this was not you, reset your password immediately and contact support.</p>`,
	},
	EMAIL_TYPE_ACCOUNT_LOCKED: {
		Subject: "Your account has been locked",
		TemplateDef: `<h2>Account locked</h2>
<p>Your account was locked after too many failed login attempts.</p>
<p>You can try again in {{.lockDuration}}. If this was not you, consider resetting your password.</p>`,
	},
	EMAIL_TYPE_TWO_FACTOR_ENABLED: {
		Subject: "Two-factor authentication enabled",
		TemplateDef: `<h2>Two-factor authentication is now active</h2>
<p>From now on, logins to your account require a code from your authenticator app.</p>
<p>Keep your backup codes in a safe place. If you did not enable this, contact support immediately.</p>`,
	},
	EMAIL_TYPE_PASSWORD_EXPIRY_WARNING: {
		Subject: "Your password expires soon",
		TemplateDef: `<h2>Password expiry warning</h2>
<p>The password of your account expires in {{.daysLeft}} days.</p>
<p>Please change it before then to keep uninterrupted access to your account.</p>`,
	},
}

// GetEmailContent resolves the template for the given message type with the
// provided content infos and returns subject and HTML body.
func GetEmailContent(messageType string, contentInfos map[string]string) (subject string, content string, err error) {
	tDef, ok := builtinTemplates[messageType]
	if !ok {
		return "", "", fmt.Errorf("no email template for message type %s", messageType)
	}
	content, err = ResolveTemplate(messageType, tDef.TemplateDef, contentInfos)
	if err != nil {
		return "", "", err
	}
	return tDef.Subject, content, nil
}

func ResolveTemplate(tempName string, templateDef string, contentInfos map[string]string) (content string, err error) {
	if strings.TrimSpace(templateDef) == "" {
		return "", errors.New("empty template `" + tempName + "`")
	}
	tmpl, err := template.New(tempName).Parse(templateDef)
	if err != nil {
		err = fmt.Errorf("error when parsing template %s: %v", tempName, err)
		return "", err
	}
	var tpl bytes.Buffer

	err = tmpl.Execute(&tpl, contentInfos)
	if err != nil {
		err = fmt.Errorf("error during executing template %s: %v", tempName, err)
		return "", err
	}
	return tpl.String(), nil
}
