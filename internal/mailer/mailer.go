// Package mailer e-mails freshly issued share links to their recipients.
package mailer

import (
	"fmt"
	"html"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/config"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/logger"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// ShareMailer implements domain.ShareNotifier over SMTP.
type ShareMailer struct {
	from   string
	dialer dialer
	logger *logger.Logger
}

func NewShareMailer(cfg config.SMTPConfig, log *logger.Logger) (*ShareMailer, error) {
	if cfg.Host == "" || cfg.Port == 0 || cfg.SenderEmail == "" {
		return nil, fmt.Errorf("SMTP host, port, and sender email must be configured")
	}
	return &ShareMailer{
		from:   cfg.SenderEmail,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		logger: log.Named("ShareMailer"),
	}, nil
}

func (m *ShareMailer) SendShareLink(to, locationTitle, shareURL string, level domain.AccessLevel) error {
	if to == "" {
		return fmt.Errorf("no recipient provided for share e-mail")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", fmt.Sprintf("Location shared with you: %s", locationTitle))
	msg.SetBody("text/plain", fmt.Sprintf(
		"You have been given %s access to the location %q.\n\nOpen it here: %s\n",
		describeLevel(level), locationTitle, shareURL))
	msg.AddAlternative("text/html", fmt.Sprintf(
		`<p>You have been given %s access to the location <b>%s</b>.</p><p><a href="%s">Open the location</a></p>`,
		describeLevel(level), html.EscapeString(locationTitle), html.EscapeString(shareURL)))

	if err := m.dialer.DialAndSend(msg); err != nil {
		m.logger.Error("failed to send share e-mail", zap.Error(err))
		return fmt.Errorf("send share e-mail: %w", err)
	}
	m.logger.Info("share e-mail sent", zap.String("access_level", string(level)))
	return nil
}

func describeLevel(level domain.AccessLevel) string {
	switch level {
	case domain.AccessPhotosOnly:
		return "photos-only"
	case domain.AccessFullInfo:
		return "full"
	case domain.AccessAdmin:
		return "management"
	default:
		return string(level)
	}
}
