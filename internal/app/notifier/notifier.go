// Package notifier содержит процесс уведомлений: читает события подписки
// из очередей RabbitMQ и отправляет письма.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/social-stories/internal/config"
	"github.com/magabrotheeeer/social-stories/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/social-stories/internal/lib/sl"
	"github.com/magabrotheeeer/social-stories/internal/lib/smtp"
	mailerservice "github.com/magabrotheeeer/social-stories/internal/services/mailer"
)

type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	mailerService *mailerservice.MailerService
	logger        *slog.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg.RabbitMQ.URL == "" {
		return nil, errors.New("notifier requires rabbitmq.url")
	}
	if cfg.SMTP.SMTPHost == "" {
		return nil, errors.New("notifier requires smtp.host")
	}

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.Retries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, cfg.RabbitMQ.Exchange, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)
	return &App{
		conn:          conn,
		ch:            ch,
		mailerService: mailerservice.NewMailerService(transport, logger),
		logger:        logger,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	for _, q := range rabbitmq.GetNotificationQueues() {
		err := rabbitmq.ConsumerMessage(ctx, a.ch, q.QueueName, a.mailerService.HandleSubscriptionEvent, a.logger)
		if err != nil {
			a.close()
			return fmt.Errorf("failed to start %s consumer: %w", q.QueueName, err)
		}
		a.logger.Info("consuming queue", slog.String("queue", q.QueueName))
	}

	<-ctx.Done()
	a.logger.Info("notifier shutting down gracefully")
	a.close()
	return nil
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
}
