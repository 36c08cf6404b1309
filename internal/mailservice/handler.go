package mailservice

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/exp/rand"

	"github.com/sushihentaime/bloglist/internal/common"
)

const welcomeTemplate = "welcome_email.html"

func NewMailService(mb common.MessageConsumer, host, username, password, sender string, port int, logger *slog.Logger) *MailService {
	ctx, cancel := context.WithCancel(context.Background())
	return &MailService{
		mb:        mb,
		m:         NewMailer(host, port, username, password, sender, NewTemplate()),
		logger:    logger,
		baseDelay: 500 * time.Millisecond,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SendWelcomeEmail consumes user.created events and greets every new user
// that registered with an email address.
func (s *MailService) SendWelcomeEmail() error {
	msgs, err := s.mb.Consume(common.UserCreatedQueue, "mailservice")
	if err != nil {
		s.logger.Error("could not consume message", slog.String("error", err.Error()))
		return err
	}

	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				s.welcome(msg)

			case <-s.ctx.Done():
				s.logger.Info("stopping SendWelcomeEmail due to context cancellation")
				return
			}
		}
	}()

	return nil
}

func (s *MailService) welcome(msg amqp.Delivery) {
	var event common.UserEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		s.logger.Error("could not unmarshal message", slog.String("error", err.Error()))
		msg.Ack(false)
		return
	}

	if event.Email == "" {
		msg.Ack(false)
		return
	}

	// using exponential backoff with jitter
	const maxRetries = 5

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := s.m.send(event.Email, event, welcomeTemplate)
		if err == nil {
			s.logger.Info("welcome email sent", slog.String("email", event.Email))
			msg.Ack(false)
			return
		}

		delay := time.Duration(rand.Int63n(int64(s.baseDelay) << uint(attempt)))
		s.logger.Info("delaying welcome email", slog.String("email", event.Email), slog.Int("attempt", attempt), slog.Duration("delay", delay))

		select {
		case <-time.After(delay):
		case <-s.ctx.Done():
			msg.Nack(false, true)
			return
		}
	}

	s.logger.Error("could not send welcome email", slog.String("email", event.Email))
	msg.Ack(false)
}

// Close stops the consumer and waits for the message in flight.
func (s *MailService) Close() {
	s.cancel()
	if s.done != nil {
		<-s.done
	}
}
