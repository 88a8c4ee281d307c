package noteauth

import (
	"log"

	gomail "gopkg.in/gomail.v2"
)

// Sender delivers a short text message to an address. Delivery is
// fire-and-forget from this package's perspective; failures are logged by
// callers, never retried inline.
type Sender interface {
	Send(to, subject, body string) error
}

// ConsoleSender is a development implementation that logs messages to the console
type ConsoleSender struct{}

func (c *ConsoleSender) Send(to, subject, body string) error {
	log.Printf("\n=== EMAIL ===")
	log.Printf("To: %s", to)
	log.Printf("Subject: %s", subject)
	log.Printf("Body: %s", body)
	log.Printf("=============\n")
	return nil
}

// SMTPSender delivers messages over SMTP using gomail.
type SMTPSender struct {
	From   string
	dialer *gomail.Dialer
}

// NewSMTPSender creates an SMTPSender for the given server and credentials.
func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	if from == "" {
		from = username
	}
	return &SMTPSender{
		From:   from,
		dialer: gomail.NewDialer(host, port, username, password),
	}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return s.dialer.DialAndSend(m)
}
