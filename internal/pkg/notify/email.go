package notify

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/micaelmi/blog/internal/config"
	"github.com/micaelmi/blog/internal/pkg/metrics"

	"gopkg.in/gomail.v2"
)

// EmailNotifier 实现基于 SMTP 的邮件发送。
type EmailNotifier struct {
	cfg    *config.EmailConfig
	logger *slog.Logger
}

// NewEmailNotifier 创建一个新的邮件通知器。
func NewEmailNotifier(cfg *config.EmailConfig, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		logger: logger,
	}
}

// SendConfirmation 发送注册确认邮件。
func (n *EmailNotifier) SendConfirmation(toEmail, name, link string) error {
	if n.cfg.SMTPHost == "" || n.cfg.SMTPUser == "" || n.cfg.FromEmail == "" {
		return fmt.Errorf("email config missing")
	}
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("empty recipient")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "[Blog] Confirme seu e-mail")

	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Olá, %s!</h2>
    <p>Falta pouco para concluir seu cadastro. Clique no botão abaixo para confirmar seu e-mail:</p>
    <div style="text-align:center; margin: 20px 0;">
      <a href="%s" style="display:inline-block; padding: 12px 20px; background:#22c55e; color:#fff; text-decoration:none; border-radius:8px; font-weight:bold;">Confirmar e-mail</a>
    </div>
    <p>O link expira em 15 minutos. Se você não se cadastrou, ignore esta mensagem.</p>
  </div>
</body>
</html>`, name, link)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.SMTPUser, n.cfg.SMTPPass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	if metrics.EmailsSentTotal != nil {
		metrics.EmailsSentTotal.Inc()
	}
	n.logger.Info("confirmation email sent", slog.String("to", toEmail))
	return nil
}

// SendWelcome 发送账号激活成功的欢迎邮件。
func (n *EmailNotifier) SendWelcome(toEmail, name string) error {
	if n.cfg.SMTPHost == "" || n.cfg.SMTPUser == "" || n.cfg.FromEmail == "" {
		return fmt.Errorf("email config missing")
	}
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("empty recipient")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "[Blog] Conta ativada 🎉")

	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Bem-vindo(a), %s!</h2>
    <p>Seu e-mail foi confirmado e sua conta está ativa. Bons posts!</p>
  </div>
</body>
</html>`, name)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.SMTPUser, n.cfg.SMTPPass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	if metrics.EmailsSentTotal != nil {
		metrics.EmailsSentTotal.Inc()
	}
	n.logger.Info("welcome email sent", slog.String("to", toEmail))
	return nil
}
