package deliver

import (
	"context"
	"errors"
	"fmt"

	"tosho/internal/config"
)

// ErrDelivery marks a document that could not reach its destination. The
// download record stays committed; only the hand-off failed.
var ErrDelivery = errors.New("document delivery failed")

// Receipt describes where a delivered document ended up.
type Receipt struct {
	// ID uniquely identifies the delivery attempt.
	ID string
	// Location is the document's final path, or empty when the local copy
	// was removed after sending.
	Location string
	// Sent reports whether the document left the machine.
	Sent bool
}

// Deliverer hands a finished document off.
type Deliverer interface {
	// Name identifies the deliverer in logs and reports.
	Name() string
	// Deliver processes the document at path.
	Deliver(ctx context.Context, path string) (Receipt, error)
}

// New builds the deliverer the configuration asks for.
func New(cfg *config.Config) (Deliverer, error) {
	switch cfg.Delivery.Mode {
	case "local":
		return NewLocal(cfg.Paths.DownloadDir), nil
	case "email":
		if !cfg.EmailConfigured() {
			return nil, errors.New("delivery.mode is \"email\" but email settings are incomplete")
		}
		return NewEmail(EmailOptions{
			KindleAddress:   cfg.Email.KindleAddress,
			SenderAddress:   cfg.Email.SenderAddress,
			SMTPServer:      cfg.Email.SMTPServer,
			SMTPPort:        cfg.Email.SMTPPort,
			AppPassword:     cfg.Email.AppPassword,
			DeleteAfterSend: cfg.Delivery.DeleteAfterSend,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported delivery mode %q", cfg.Delivery.Mode)
	}
}
