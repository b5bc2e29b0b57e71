package notifications

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// SMTPNotifier sends mail over plain SMTP with AUTH. Each send dials
// a fresh connection; delivery volume here is a handful of
// transactional mails, not a campaign.
type SMTPNotifier struct {
	cfg SMTPConfig
}

func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg}
}

func (n *SMTPNotifier) SendVerificationEmail(ctx context.Context, in VerificationEmailInput) error {
	body := fmt.Sprintf(
		"Hello %s,\r\n\r\nYour verification code is: %s\r\n\r\nThe code expires in 24 hours.\r\n",
		in.Name, in.Code,
	)
	return n.send(ctx, in.Email, "Verify your email", body)
}

func (n *SMTPNotifier) SendWelcomeEmail(ctx context.Context, in WelcomeEmailInput) error {
	body := fmt.Sprintf(
		"Hello %s,\r\n\r\nYour email has been verified. Welcome to IncidentHub.\r\n",
		in.Name,
	)
	return n.send(ctx, in.Email, "Welcome to IncidentHub", body)
}

func (n *SMTPNotifier) SendPasswordResetEmail(ctx context.Context, in PasswordResetEmailInput) error {
	body := fmt.Sprintf(
		"A password reset was requested for this account.\r\n\r\nReset it here: %s\r\n\r\nThe link expires in 1 hour. If you did not request this, ignore this email.\r\n",
		in.ResetURL,
	)
	return n.send(ctx, in.Email, "Reset your password", body)
}

func (n *SMTPNotifier) SendResetSuccessEmail(ctx context.Context, in ResetSuccessEmailInput) error {
	body := "Your password was reset successfully.\r\n\r\nIf this was not you, contact support immediately.\r\n"
	return n.send(ctx, in.Email, "Password reset successful", body)
}

func (n *SMTPNotifier) send(ctx context.Context, to, subject, body string) error {
	msg := buildMessage(n.cfg.From, to, subject, body)
	addr := net.JoinHostPort(n.cfg.Host, fmt.Sprintf("%d", n.cfg.Port))

	var auth smtp.Auth
	if n.cfg.User != "" {
		auth = smtp.PlainAuth("", n.cfg.User, n.cfg.Pass, n.cfg.Host)
	}

	// smtp.SendMail has no context hook; run it in a goroutine so a
	// caller timeout still unblocks us.
	done := make(chan error, 1)

	go func() {
		done <- smtp.SendMail(addr, auth, n.cfg.From, []string{to}, msg)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)

	return []byte(b.String())
}
