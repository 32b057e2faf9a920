package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/velmark/soundwave/internal/logging"
)

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type EmailMailer struct {
	cfg SMTPConfig
}

func NewEmailMailer(cfg SMTPConfig) *EmailMailer {
	return &EmailMailer{cfg: cfg}
}

func (m *EmailMailer) SendVerifyEmail(ctx context.Context, to, link string) error {
	body := fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 520px; margin: 0 auto;">
  <h2>Verify your email address</h2>
  <p>Click the link below to verify your email and activate your account.</p>
  <p><a href="%s">Verify email</a></p>
</div>`, link)
	return m.send(ctx, to, "Verify your email", body)
}

func (m *EmailMailer) SendResetPassword(ctx context.Context, to, link string) error {
	body := fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 520px; margin: 0 auto;">
  <h2>Password reset</h2>
  <p>Click the link below to reset your password. The link is valid for one use.</p>
  <p><a href="%s">Reset password</a></p>
</div>`, link)
	return m.send(ctx, to, "Reset your password", body)
}

func (m *EmailMailer) SendSetPassword(ctx context.Context, to, link string) error {
	body := fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 520px; margin: 0 auto;">
  <h2>Welcome</h2>
  <p>Your account was created with an external sign-in. Use the link below to set a password.</p>
  <p><a href="%s">Set password</a></p>
</div>`, link)
	return m.send(ctx, to, "Set your password", body)
}

func (m *EmailMailer) send(ctx context.Context, to, subject, body string) error {
	if m.cfg.Host == "" || m.cfg.From == "" {
		logging.FromContext(ctx).Warn("smtp config missing, skip mail", "to", to, "subject", subject)
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.User, m.cfg.Password)
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	logging.FromContext(ctx).Info("email sent", "to", to, "subject", subject)
	return nil
}
