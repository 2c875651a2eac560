package notify

import (
	"fmt"
	"net/smtp"

	"github.com/sirupsen/logrus"

	"github.com/ramonbnuezjr/stock-tracker-agent/pkg/models"
)

// Email delivers alerts over SMTP with STARTTLS (plain auth).
type Email struct {
	Host     string
	Port     int
	User     string
	Password string
	To       string

	logger *logrus.Logger
}

func NewEmail(host string, port int, user, password, to string, logger *logrus.Logger) *Email {
	return &Email{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		To:       to,
		logger:   logger,
	}
}

func (e *Email) Send(alert models.Alert) error {
	if e.User == "" || e.To == "" {
		return fmt.Errorf("email notifier not configured")
	}

	subject := fmt.Sprintf("Stock alert: %s moved %s%%", alert.Symbol, alert.ChangePercent.StringFixed(2))
	body := renderAlert(alert)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", e.User, e.To, subject, body)

	addr := fmt.Sprintf("%s:%d", e.Host, e.Port)
	auth := smtp.PlainAuth("", e.User, e.Password, e.Host)

	if err := smtp.SendMail(addr, auth, e.User, []string{e.To}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send alert email for %s: %w", alert.Symbol, err)
	}

	e.logger.WithFields(logrus.Fields{
		"symbol": alert.Symbol,
		"to":     e.To,
	}).Info("Alert email sent")

	return nil
}
