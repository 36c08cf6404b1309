package blogservice

import (
	"context"
	"log/slog"
	"time"

	"github.com/sushihentaime/bloglist/internal/common"
)

// Owner references the user that created a blog. Username and Name are only
// filled in when the store populates the reference.
type Owner struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
}

type Blog struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	URL       string    `json:"url"`
	Likes     int       `json:"likes"`
	User      *Owner    `json:"user,omitempty"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (b Blog) AuthorName() string { return b.Author }

func (b Blog) LikeCount() int { return b.Likes }

func (b *Blog) OwnerID() string {
	if b.User == nil {
		return ""
	}
	return b.User.ID
}

// Store persists blog records. Implementations return common.ErrInvalidID for
// malformed ids and common.ErrRecordNotFound when nothing matches. GetAll and
// Get populate the owner reference.
type Store interface {
	Insert(ctx context.Context, b *Blog) error
	GetAll(ctx context.Context) ([]Blog, error)
	Get(ctx context.Context, id string) (*Blog, error)
	Update(ctx context.Context, b *Blog) error
	Delete(ctx context.Context, id string) error
}

type BlogService struct {
	m      Store
	mb     common.MessageProducer
	logger *slog.Logger
}

type CreateBlogRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	URL    string `json:"url"`
	Likes  *int   `json:"likes"`
}

// UpdateBlogRequest carries a partial update; nil fields keep their value.
type UpdateBlogRequest struct {
	Title  *string `json:"title"`
	Author *string `json:"author"`
	URL    *string `json:"url"`
	Likes  *int    `json:"likes"`
}
