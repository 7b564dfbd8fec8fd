package deliver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"
)

// EmailOptions configures send-to-Kindle delivery.
type EmailOptions struct {
	KindleAddress   string
	SenderAddress   string
	SMTPServer      string
	SMTPPort        int
	AppPassword     string
	DeleteAfterSend bool
}

// Email sends documents to a Kindle address over SMTP.
type Email struct {
	opts EmailOptions
	send func(ctx context.Context, msg *mail.Msg) error
}

// NewEmail builds the email deliverer.
func NewEmail(opts EmailOptions) *Email {
	e := &Email{opts: opts}
	e.send = e.smtpSend
	return e
}

// Name implements Deliverer.
func (e *Email) Name() string { return "email" }

// Deliver implements Deliverer.
func (e *Email) Deliver(ctx context.Context, path string) (Receipt, error) {
	receipt := Receipt{ID: uuid.NewString()}

	msg := mail.NewMsg()
	if err := msg.From(e.opts.SenderAddress); err != nil {
		return Receipt{}, fmt.Errorf("%w: sender address: %w", ErrDelivery, err)
	}
	if err := msg.To(e.opts.KindleAddress); err != nil {
		return Receipt{}, fmt.Errorf("%w: kindle address: %w", ErrDelivery, err)
	}
	msg.Subject(filepath.Base(path))
	msg.SetBodyString(mail.TypeTextPlain, "Sent by tosho.")
	msg.AttachFile(path)

	if err := e.send(ctx, msg); err != nil {
		return Receipt{}, fmt.Errorf("%w: send %s: %w", ErrDelivery, filepath.Base(path), err)
	}
	receipt.Sent = true
	receipt.Location = path

	if e.opts.DeleteAfterSend {
		if err := os.Remove(path); err != nil {
			return Receipt{}, fmt.Errorf("%w: remove after send: %w", ErrDelivery, err)
		}
		receipt.Location = ""
	}
	return receipt, nil
}

func (e *Email) smtpSend(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(
		e.opts.SMTPServer,
		mail.WithPort(e.opts.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(e.opts.SenderAddress),
		mail.WithPassword(e.opts.AppPassword),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}
