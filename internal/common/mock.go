package common

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/mock"
)

type MockMessageProducer struct {
	mock.Mock
}

func (m *MockMessageProducer) Publish(ctx context.Context, msg []byte, key BindingKey, exchange Exchange) error {
	args := m.Called(ctx, msg, key, exchange)
	return args.Error(0)
}

// MockMessageConsumer hands out a channel fed by the test.
type MockMessageConsumer struct {
	mock.Mock
}

func (m *MockMessageConsumer) Consume(queue Queue, consumer string) (<-chan amqp.Delivery, error) {
	args := m.Called(queue, consumer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan amqp.Delivery), args.Error(1)
}
