package indexservice

import (
	"context"
	"log/slog"
	"time"

	"github.com/sushihentaime/bloglist/internal/blogservice"
	"github.com/sushihentaime/bloglist/internal/common"
	"github.com/sushihentaime/bloglist/internal/userservice"
)

// UserIndex is the write side of the denormalized user -> blogs index.
type UserIndex interface {
	GetUsers(ctx context.Context) ([]userservice.User, error)
	AddBlog(ctx context.Context, userID, blogID string) error
	RemoveBlog(ctx context.Context, userID, blogID string) error
	ReplaceBlogs(ctx context.Context, userID string, blogIDs []string) error
}

// BlogSource lists the authoritative blog records.
type BlogSource interface {
	GetBlogs(ctx context.Context) ([]blogservice.Blog, error)
}

type IndexService struct {
	mb         common.MessageConsumer
	users      UserIndex
	blogs      BlogSource
	logger     *slog.Logger
	maxRetries int
	baseDelay  time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}
