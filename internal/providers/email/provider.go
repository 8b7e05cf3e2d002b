package email

import (
	"context"

	"go.uber.org/zap"
)

// Provider delivers outbound member notifications.
type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) error
	SendTemplate(ctx context.Context, to []string, templateName string, data Subjecter) error
}

// Subjecter is implemented by template data that knows its own subject line.
type Subjecter interface {
	Subject() string
}

// LogProvider is the development sink used when SMTP is not configured.
// Messages are logged without their bodies.
type LogProvider struct {
	log *zap.Logger
}

func NewLogProvider(log *zap.Logger) *LogProvider {
	return &LogProvider{log: log.Named("email.log")}
}

func (p *LogProvider) Send(_ context.Context, to []string, subject string, _ string) error {
	p.log.Info("email suppressed: smtp not configured",
		zap.Int("recipients", len(to)),
		zap.String("subject", subject),
	)
	return nil
}

func (p *LogProvider) SendTemplate(ctx context.Context, to []string, templateName string, data Subjecter) error {
	if _, err := render(templateName, data); err != nil {
		return err
	}
	return p.Send(ctx, to, data.Subject(), "")
}
