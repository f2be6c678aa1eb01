package notify

import (
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPConfig configures the outbound mail channel.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Subject  string
}

// defaultSubject is used when the config leaves the subject empty.
const defaultSubject = "RentState Notification Mail"

// SMTPSender delivers notification emails over SMTP with plain auth.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender creates an email sender.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.Subject == "" {
		cfg.Subject = defaultSubject
	}
	return &SMTPSender{cfg: cfg}
}

// Send delivers a plain-text message to a single recipient.
func (s *SMTPSender) Send(to, text string) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", s.cfg.Subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(text)
	msg.WriteString("\r\n")

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	return nil
}
