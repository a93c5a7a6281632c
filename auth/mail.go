package auth

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog/log"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPMailer struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

func (m SMTPMailer) Send(_ context.Context, to, subject, body string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	msg.WriteString(body)

	var a smtp.Auth
	if m.User != "" {
		a = smtp.PlainAuth("", m.User, m.Password, m.Host)
	}
	if err := smtp.SendMail(m.Host+":"+m.Port, a, m.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// LogMailer writes mails to the log; used when no SMTP host is configured.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, to, subject, body string) error {
	log.Printf("[mail] to=%s subject=%q body=%q", to, subject, body)
	return nil
}

func otpMessage(p Purpose, code string) (subject, body string) {
	if p == PurposeReset {
		return "UniHive password reset", fmt.Sprintf("Your password reset code is %s. It expires shortly.", code)
	}
	return "UniHive email verification", fmt.Sprintf("Your verification code is %s. It expires shortly.", code)
}
