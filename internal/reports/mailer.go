package reports

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/gomail.v2"

	"ms-visitors/internal/apperr"
	"ms-visitors/internal/config"
)

// Mail is one outgoing report message with a single attachment.
type Mail struct {
	To         string
	Subject    string
	Body       string
	Attachment []byte
	Filename   string
}

type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// SMTPMailer sends mail through an SMTP relay. Every call dials a fresh
// connection and nothing is retried.
type SMTPMailer struct {
	Dialer *gomail.Dialer
	From   string
}

func NewSMTPMailer(cfg config.EmailConfig) *SMTPMailer {
	return &SMTPMailer{
		Dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		From:   cfg.From,
	}
}

// Message builds the MIME message for m.
func (s *SMTPMailer) Message(m Mail) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.From)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", m.Body)
	msg.Attach(m.Filename,
		gomail.SetHeader(map[string][]string{"Content-Type": {"application/pdf"}}),
		gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(m.Attachment)
			return err
		}),
	)
	return msg
}

func (s *SMTPMailer) Send(ctx context.Context, m Mail) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrReportDelivery, err)
	}
	if err := s.Dialer.DialAndSend(s.Message(m)); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrReportDelivery, err)
	}
	return nil
}
