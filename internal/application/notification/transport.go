package notification

import (
	"context"
	"fmt"

	"github.com/go-shop-nosql/internal/config"
	"github.com/go-shop-nosql/internal/domain"
	s3infra "github.com/go-shop-nosql/internal/infrastructure/s3"
	"github.com/go-shop-nosql/internal/infrastructure/smtp"
	"github.com/go-shop-nosql/internal/infrastructure/sns"
	"go.uber.org/zap"
)

const previewLen = 140

// Console logs emails instead of sending them.
type Console struct {
	log *zap.Logger
}

func NewConsole(log *zap.Logger) *Console {
	return &Console{log: log}
}

func (c *Console) Send(_ context.Context, e domain.Email) error {
	preview := e.Text
	if r := []rune(preview); len(r) > previewLen {
		preview = string(r[:previewLen]) + "…"
	}
	c.log.Info("email_mock", zap.String("to", e.To), zap.String("subject", e.Subject), zap.String("preview", preview))
	return nil
}

// NewTransport picks the transport named by cfg.EmailTransport.
func NewTransport(ctx context.Context, cfg *config.Config, log *zap.Logger) (Transport, error) {
	switch cfg.EmailTransport {
	case "", "console":
		return NewConsole(log), nil
	case "smtp":
		return smtp.NewMailer(cfg), nil
	case "sns":
		return sns.NewSender(ctx, cfg)
	case "s3":
		client, err := s3infra.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s3infra.NewOutbox(client, cfg.S3OutboxBucket), nil
	default:
		return nil, fmt.Errorf("unknown email transport %q", cfg.EmailTransport)
	}
}
