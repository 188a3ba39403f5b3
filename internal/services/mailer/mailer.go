// Package services отправляет письма по событиям подписки, прочитанным
// из брокера.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/magabrotheeeer/social-stories/internal/lib/sl"
	"github.com/magabrotheeeer/social-stories/internal/lib/smtp"
	"github.com/magabrotheeeer/social-stories/internal/models"
)

// ErrUnknownKind — событие неизвестного вида; повторная доставка не поможет.
var ErrUnknownKind = errors.New("unknown subscription event kind")

// Transport открывает SMTP-сессию.
type Transport interface {
	Connect() (smtp.Client, error)
	Sender() string
}

// Message — готовое письмо.
type Message struct {
	To      string
	Subject string
	Body    string
}

type MailerService struct {
	transport Transport
	log       *slog.Logger
}

// NewMailerService создает новый экземпляр MailerService.
func NewMailerService(transport Transport, log *slog.Logger) *MailerService {
	return &MailerService{
		transport: transport,
		log:       log,
	}
}

// HandleSubscriptionEvent разбирает событие и отправляет письмо. Битые
// сообщения и неизвестные виды событий подтверждаются без отправки.
func (s *MailerService) HandleSubscriptionEvent(_ context.Context, body []byte) error {
	const op = "services.mailer.HandleSubscriptionEvent"
	log := s.log.With(slog.String("op", op))

	var event models.SubscriptionEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Error("failed to unmarshal message body, dropping", sl.Err(err))
		return nil
	}

	msg, err := Compose(event)
	if err != nil {
		log.Warn("dropping event", slog.String("kind", event.Kind), sl.Err(err))
		return nil
	}
	if err := s.Send(msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("email sent", slog.String("kind", event.Kind), slog.String("user_id", event.UserID))
	return nil
}

// Compose строит письмо для события.
func Compose(e models.SubscriptionEvent) (Message, error) {
	if e.Email == "" {
		return Message{}, errors.New("event has no recipient")
	}
	msg := Message{To: e.Email}
	switch e.Kind {
	case models.SubscriptionChanged:
		if e.IsPremium {
			msg.Subject = "Premium подписка активна"
			msg.Body = "Здравствуйте!\n\nPremium подписка активна" + untilDate(e.EndDate) +
				". Создание историй не ограничено, доступна генерация видео."
		} else {
			msg.Subject = "Premium подписка отключена"
			msg.Body = "Здравствуйте!\n\nPremium подписка отключена. Вам снова доступна бесплатная квота историй."
		}
	case models.SubscriptionCancelled:
		msg.Subject = "Подписка отменена"
		msg.Body = "Здравствуйте!\n\nВаша premium подписка отменена. Оформить её снова можно в любой момент."
	case models.SubscriptionExpired:
		msg.Subject = "Срок подписки истёк"
		msg.Body = "Здравствуйте!\n\nСрок вашей premium подписки истёк. Продлите её, чтобы продолжить создавать истории без ограничений."
	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
	return msg, nil
}

func untilDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return " до " + t.UTC().Format("02.01.2006")
}

// Send отправляет письмо через одну SMTP-сессию.
func (s *MailerService) Send(m Message) error {
	const op = "services.mailer.Send"

	from := s.transport.Sender()
	envelopeFrom := from
	if addr, err := mail.ParseAddress(from); err == nil {
		envelopeFrom = addr.Address
	}

	raw := strings.Join([]string{
		"From: " + from,
		"To: " + m.To,
		"Subject: " + m.Subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		m.Body,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(envelopeFrom); err != nil {
		return fmt.Errorf("%s: mail from: %w", op, err)
	}
	if err := client.Rcpt(m.To); err != nil {
		return fmt.Errorf("%s: rcpt to: %w", op, err)
	}
	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("%s: data: %w", op, err)
	}
	if _, err = wc.Write([]byte(raw)); err != nil {
		return fmt.Errorf("%s: write body: %w", op, err)
	}
	if err = wc.Close(); err != nil {
		return fmt.Errorf("%s: close data: %w", op, err)
	}
	if err = client.Quit(); err != nil {
		return fmt.Errorf("%s: quit: %w", op, err)
	}
	return nil
}
