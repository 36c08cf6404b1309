package indexservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/exp/rand"

	"github.com/sushihentaime/bloglist/internal/common"
)

const (
	defaultMaxRetries = 5
	defaultBaseDelay  = 500 * time.Millisecond
)

func NewIndexService(mb common.MessageConsumer, users UserIndex, blogs BlogSource, logger *slog.Logger) *IndexService {
	ctx, cancel := context.WithCancel(context.Background())
	return &IndexService{
		mb:         mb,
		users:      users,
		blogs:      blogs,
		logger:     logger,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// SetBlogSource replaces the blog source used by Rebuild.
func (s *IndexService) SetBlogSource(blogs BlogSource) {
	s.blogs = blogs
}

// Rebuild recomputes every user's blog list from the blog store.
func (s *IndexService) Rebuild(ctx context.Context) error {
	blogs, err := s.blogs.GetBlogs(ctx)
	if err != nil {
		return fmt.Errorf("could not list blogs: %w", err)
	}

	owned := make(map[string][]string)
	for _, b := range blogs {
		owner := b.OwnerID()
		owned[owner] = append(owned[owner], b.ID)
	}

	users, err := s.users.GetUsers(ctx)
	if err != nil {
		return fmt.Errorf("could not list users: %w", err)
	}

	for _, u := range users {
		ids := owned[u.ID]
		if ids == nil {
			ids = []string{}
		}
		if err := s.users.ReplaceBlogs(ctx, u.ID, ids); err != nil {
			return fmt.Errorf("could not rebuild index for user %s: %w", u.ID, err)
		}
	}

	s.logger.Info("blog index rebuilt", slog.Int("users", len(users)), slog.Int("blogs", len(blogs)))

	return nil
}

// Run consumes blog events until Close is called or the delivery channel closes.
func (s *IndexService) Run() error {
	msgs, err := s.mb.Consume(common.BlogIndexQueue, "indexservice")
	if err != nil {
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
				s.handle(msg)

			case <-s.ctx.Done():
				s.logger.Info("stopping blog index consumer due to context cancellation")
				return
			}
		}
	}()

	return nil
}

func (s *IndexService) handle(msg amqp.Delivery) {
	var event common.BlogEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		s.logger.Error("could not unmarshal message", slog.String("error", err.Error()))
		msg.Ack(false)
		return
	}

	apply, err := s.applier(common.BindingKey(msg.RoutingKey))
	if err != nil {
		s.logger.Error("unexpected routing key", slog.String("key", msg.RoutingKey))
		msg.Ack(false)
		return
	}

	// exponential backoff with jitter
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := apply(s.ctx, event.UserID, event.BlogID)
		if err == nil {
			s.logger.Info("blog index updated", slog.String("key", msg.RoutingKey), slog.String("user_id", event.UserID), slog.String("blog_id", event.BlogID))
			msg.Ack(false)
			return
		}

		if errors.Is(err, common.ErrRecordNotFound) || errors.Is(err, common.ErrInvalidID) {
			s.logger.Error("dropping blog event", slog.String("user_id", event.UserID), slog.String("blog_id", event.BlogID), slog.String("error", err.Error()))
			msg.Ack(false)
			return
		}

		delay := time.Duration(rand.Int63n(int64(s.baseDelay) << uint(attempt)))
		s.logger.Info("delaying blog index update", slog.String("blog_id", event.BlogID), slog.Int("attempt", attempt), slog.Duration("delay", delay))

		select {
		case <-time.After(delay):
		case <-s.ctx.Done():
			// leave the event for the next consumer
			msg.Nack(false, true)
			return
		}
	}

	s.logger.Error("could not update blog index", slog.String("user_id", event.UserID), slog.String("blog_id", event.BlogID))
	msg.Ack(false)
}

func (s *IndexService) applier(key common.BindingKey) (func(ctx context.Context, userID, blogID string) error, error) {
	switch key {
	case common.BlogCreatedKey:
		return s.users.AddBlog, nil
	case common.BlogDeletedKey:
		return s.users.RemoveBlog, nil
	default:
		return nil, fmt.Errorf("unexpected routing key %q", key)
	}
}

// Publish applies a blog event in process. It lets the index stay current
// when no message broker is configured.
func (s *IndexService) Publish(ctx context.Context, msg []byte, key common.BindingKey, exchange common.Exchange) error {
	if exchange != common.BlogExchange {
		return fmt.Errorf("unexpected exchange %q", exchange)
	}

	apply, err := s.applier(key)
	if err != nil {
		return err
	}

	var event common.BlogEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		return err
	}

	return apply(ctx, event.UserID, event.BlogID)
}

// Close stops the consumer and waits for the event in flight.
func (s *IndexService) Close() {
	s.cancel()
	if s.done != nil {
		<-s.done
	}
}
