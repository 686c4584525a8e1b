package mailer

import (
	"context"
	"log/slog"
)

// Mailer - порт доставки писем с кодом подтверждения.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogMailer пишет письмо в лог вместо отправки. Используется в разработке
// и пока не подключен реальный SMTP-провайдер.
type LogMailer struct {
	log *slog.Logger
}

func NewLogMailer(log *slog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	m.log.Info("sending email",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", body),
	)
	return nil
}
