package indexservice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sushihentaime/bloglist/internal/blogservice"
	"github.com/sushihentaime/bloglist/internal/common"
	"github.com/sushihentaime/bloglist/internal/userservice"
)

type MockUserIndex struct {
	mock.Mock
}

func (m *MockUserIndex) GetUsers(ctx context.Context) ([]userservice.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]userservice.User), args.Error(1)
}

func (m *MockUserIndex) AddBlog(ctx context.Context, userID, blogID string) error {
	return m.Called(ctx, userID, blogID).Error(0)
}

func (m *MockUserIndex) RemoveBlog(ctx context.Context, userID, blogID string) error {
	return m.Called(ctx, userID, blogID).Error(0)
}

func (m *MockUserIndex) ReplaceBlogs(ctx context.Context, userID string, blogIDs []string) error {
	return m.Called(ctx, userID, blogIDs).Error(0)
}

type fakeBlogs struct {
	blogs []blogservice.Blog
	err   error
}

func (f *fakeBlogs) GetBlogs(context.Context) ([]blogservice.Blog, error) {
	return f.blogs, f.err
}

func newTestService(users UserIndex, blogs BlogSource, mb common.MessageConsumer) *IndexService {
	s := NewIndexService(mb, users, blogs, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.baseDelay = time.Millisecond
	return s
}

func delivery(t *testing.T, key common.BindingKey, userID, blogID string) amqp.Delivery {
	t.Helper()

	body, err := json.Marshal(common.BlogEvent{BlogID: blogID, UserID: userID})
	require.NoError(t, err)

	return amqp.Delivery{RoutingKey: string(key), Body: body}
}

// runEvents feeds the deliveries to a running service and waits until the
// consumer has drained them.
func runEvents(t *testing.T, s *IndexService, consumer *common.MockMessageConsumer, deliveries ...amqp.Delivery) {
	t.Helper()

	ch := make(chan amqp.Delivery, len(deliveries))
	for _, d := range deliveries {
		ch <- d
	}
	close(ch)

	consumer.On("Consume", common.BlogIndexQueue, "indexservice").Return((<-chan amqp.Delivery)(ch), nil)

	require.NoError(t, s.Run())

	select {
	case <-s.done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not finish")
	}
}

func TestRunAppliesEvents(t *testing.T) {
	users := new(MockUserIndex)
	users.On("AddBlog", mock.Anything, "u1", "b1").Return(nil).Once()
	users.On("RemoveBlog", mock.Anything, "u1", "b0").Return(nil).Once()

	consumer := new(common.MockMessageConsumer)
	s := newTestService(users, &fakeBlogs{}, consumer)

	runEvents(t, s, consumer,
		delivery(t, common.BlogCreatedKey, "u1", "b1"),
		delivery(t, common.BlogDeletedKey, "u1", "b0"),
		amqp.Delivery{RoutingKey: string(common.BlogCreatedKey), Body: []byte("not json")},
		delivery(t, "blog.unknown", "u1", "b2"),
	)

	users.AssertExpectations(t)
	users.AssertNumberOfCalls(t, "AddBlog", 1)
}

func TestRunRetries(t *testing.T) {
	users := new(MockUserIndex)
	users.On("AddBlog", mock.Anything, "u1", "b1").Return(errors.New("connection reset")).Twice()
	users.On("AddBlog", mock.Anything, "u1", "b1").Return(nil).Once()

	consumer := new(common.MockMessageConsumer)
	s := newTestService(users, &fakeBlogs{}, consumer)

	runEvents(t, s, consumer, delivery(t, common.BlogCreatedKey, "u1", "b1"))

	users.AssertNumberOfCalls(t, "AddBlog", 3)
}

func TestRunGivesUp(t *testing.T) {
	users := new(MockUserIndex)
	users.On("AddBlog", mock.Anything, "u1", "b1").Return(errors.New("connection reset"))
	users.On("AddBlog", mock.Anything, "gone", "b2").Return(common.ErrRecordNotFound)

	consumer := new(common.MockMessageConsumer)
	s := newTestService(users, &fakeBlogs{}, consumer)
	s.maxRetries = 3

	runEvents(t, s, consumer,
		delivery(t, common.BlogCreatedKey, "u1", "b1"),
		delivery(t, common.BlogCreatedKey, "gone", "b2"),
	)

	// three attempts for the transient failure, one for the missing user
	users.AssertNumberOfCalls(t, "AddBlog", 4)
}

func TestRunConsumeError(t *testing.T) {
	consumer := new(common.MockMessageConsumer)
	consumer.On("Consume", common.BlogIndexQueue, "indexservice").Return(nil, errors.New("channel closed"))

	s := newTestService(new(MockUserIndex), &fakeBlogs{}, consumer)
	assert.Error(t, s.Run())

	s.Close()
}

func TestRebuild(t *testing.T) {
	blogs := &fakeBlogs{blogs: []blogservice.Blog{
		{ID: "b1", User: &blogservice.Owner{ID: "u1"}},
		{ID: "b2", User: &blogservice.Owner{ID: "u2"}},
		{ID: "b3", User: &blogservice.Owner{ID: "u1"}},
	}}

	users := new(MockUserIndex)
	users.On("GetUsers", mock.Anything).Return([]userservice.User{{ID: "u1"}, {ID: "u2"}, {ID: "u3"}}, nil)
	users.On("ReplaceBlogs", mock.Anything, "u1", []string{"b1", "b3"}).Return(nil).Once()
	users.On("ReplaceBlogs", mock.Anything, "u2", []string{"b2"}).Return(nil).Once()
	users.On("ReplaceBlogs", mock.Anything, "u3", []string{}).Return(nil).Once()

	s := newTestService(users, blogs, new(common.MockMessageConsumer))
	require.NoError(t, s.Rebuild(context.Background()))

	users.AssertExpectations(t)
}

func TestRebuildErrors(t *testing.T) {
	s := newTestService(new(MockUserIndex), &fakeBlogs{err: errors.New("db down")}, new(common.MockMessageConsumer))
	assert.Error(t, s.Rebuild(context.Background()))

	users := new(MockUserIndex)
	users.On("GetUsers", mock.Anything).Return([]userservice.User{{ID: "u1"}}, nil)
	users.On("ReplaceBlogs", mock.Anything, "u1", []string{}).Return(errors.New("db down"))

	s = newTestService(users, &fakeBlogs{}, new(common.MockMessageConsumer))
	assert.Error(t, s.Rebuild(context.Background()))
}

func TestPublishInProcess(t *testing.T) {
	users := new(MockUserIndex)
	users.On("AddBlog", mock.Anything, "u1", "b1").Return(nil).Once()
	users.On("RemoveBlog", mock.Anything, "u1", "b1").Return(common.ErrRecordNotFound).Once()

	s := newTestService(users, &fakeBlogs{}, nil)
	ctx := context.Background()

	body, err := json.Marshal(common.BlogEvent{BlogID: "b1", UserID: "u1"})
	require.NoError(t, err)

	assert.NoError(t, s.Publish(ctx, body, common.BlogCreatedKey, common.BlogExchange))
	assert.ErrorIs(t, s.Publish(ctx, body, common.BlogDeletedKey, common.BlogExchange), common.ErrRecordNotFound)
	assert.Error(t, s.Publish(ctx, body, common.UserCreatedKey, common.BlogExchange))
	assert.Error(t, s.Publish(ctx, body, common.BlogCreatedKey, common.UserExchange))
	assert.Error(t, s.Publish(ctx, []byte("{"), common.BlogCreatedKey, common.BlogExchange))

	users.AssertExpectations(t)
}
