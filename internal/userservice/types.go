package userservice

import (
	"context"
	"log/slog"
	"time"

	"github.com/sushihentaime/bloglist/internal/common"
)

var (
	AnonymousUser = User{}
)

// Store persists users and the denormalized list of blog ids each user owns.
// Implementations return common.ErrInvalidID for malformed ids and
// common.ErrRecordNotFound when nothing matches.
type Store interface {
	Insert(ctx context.Context, u *User) error
	GetAll(ctx context.Context) ([]User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	AddBlog(ctx context.Context, userID, blogID string) error
	RemoveBlog(ctx context.Context, userID, blogID string) error
	ReplaceBlogs(ctx context.Context, userID string, blogIDs []string) error
}

type UserService struct {
	m      Store
	mb     common.MessageProducer
	c      *common.Cache
	tm     *TokenManager
	logger *slog.Logger
}

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Password  Password  `json:"-"`
	Blogs     []string  `json:"blogs"`
	CreatedAt time.Time `json:"-"`
}

// Password holds only the bcrypt hash; the plaintext is never retained.
type Password struct {
	hash []byte
}

type CreateUserRequest struct {
	Username string
	Name     string
	Email    string
	Password string
}

// AuthToken is returned on a successful login.
type AuthToken struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Name     string `json:"name"`
}
