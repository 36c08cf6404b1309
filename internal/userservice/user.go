package userservice

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/sushihentaime/bloglist/internal/common"
)

var (
	ErrDuplicateUsername     = errors.New("username must be unique")
	ErrAuthenticationFailure = errors.New("invalid username or password")
	ErrInvalidToken          = errors.New("invalid or expired token")
)

// NewUserService wires a user store to the token manager. mb may be nil, in
// which case no user.created events are published.
func NewUserService(m Store, mb common.MessageProducer, c *common.Cache, tm *TokenManager, logger *slog.Logger) *UserService {
	return &UserService{
		m:      m,
		mb:     mb,
		c:      c,
		tm:     tm,
		logger: logger,
	}
}

// CreateUser registers a new account and publishes a user.created event.
func (s *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	v := common.NewValidator()
	validateUsername(v, req.Username)
	validateName(v, req.Name)
	validateEmail(v, req.Email)
	validatePassword(v, req.Password)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	u := User{
		Username: req.Username,
		Name:     req.Name,
		Email:    req.Email,
		Blogs:    []string{},
	}

	if err := u.Password.set(req.Password); err != nil {
		return nil, err
	}

	if err := s.m.Insert(ctx, &u); err != nil {
		return nil, err
	}

	s.publishUserCreated(ctx, &u)

	return &u, nil
}

// publishUserCreated is best effort; the account exists whether or not the
// event goes out.
func (s *UserService) publishUserCreated(ctx context.Context, u *User) {
	if s.mb == nil {
		return
	}

	msg, err := json.Marshal(common.UserEvent{
		UserID:   u.ID,
		Username: u.Username,
		Name:     u.Name,
		Email:    u.Email,
	})
	if err != nil {
		s.logger.Error("could not encode user event", slog.String("error", err.Error()))
		return
	}

	if err := s.mb.Publish(ctx, msg, common.UserCreatedKey, common.UserExchange); err != nil {
		s.logger.Error("could not publish user event", slog.String("user_id", u.ID), slog.String("error", err.Error()))
	}
}

func (s *UserService) GetUsers(ctx context.Context) ([]User, error) {
	return s.m.GetAll(ctx)
}

// LoginUser checks the credentials and issues a signed access token.
func (s *UserService) LoginUser(ctx context.Context, username, password string) (*AuthToken, error) {
	v := common.NewValidator()
	validateLogin(v, username, password)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	user, err := s.m.GetByUsername(ctx, username)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrRecordNotFound):
			return nil, ErrAuthenticationFailure
		default:
			return nil, err
		}
	}

	ok, err := user.Password.matches(password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAuthenticationFailure
	}

	token, err := s.tm.Sign(user.ID, user.Username)
	if err != nil {
		return nil, err
	}

	return &AuthToken{
		Token:    token,
		Username: user.Username,
		Name:     user.Name,
	}, nil
}

// GetUserByToken resolves the caller behind an access token. Users are cached
// by id; a token whose user no longer exists is rejected.
func (s *UserService) GetUserByToken(ctx context.Context, token string) (*User, error) {
	id, err := s.tm.Parse(token)
	if err != nil {
		return nil, err
	}

	key := common.CacheKeyUserByID(id)
	if cached, ok := s.c.Get(key); ok {
		return cached.(*User), nil
	}

	user, err := s.m.GetByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrRecordNotFound), errors.Is(err, common.ErrInvalidID):
			return nil, ErrInvalidToken
		default:
			return nil, err
		}
	}

	s.c.Set(key, user)

	return user, nil
}

// AddBlog records blogID in the owner's denormalized blog list.
func (s *UserService) AddBlog(ctx context.Context, userID, blogID string) error {
	defer s.c.Delete(common.CacheKeyUserByID(userID))
	return s.m.AddBlog(ctx, userID, blogID)
}

// RemoveBlog drops blogID from the owner's denormalized blog list.
func (s *UserService) RemoveBlog(ctx context.Context, userID, blogID string) error {
	defer s.c.Delete(common.CacheKeyUserByID(userID))
	return s.m.RemoveBlog(ctx, userID, blogID)
}

// ReplaceBlogs overwrites the owner's denormalized blog list.
func (s *UserService) ReplaceBlogs(ctx context.Context, userID string, blogIDs []string) error {
	defer s.c.Delete(common.CacheKeyUserByID(userID))
	return s.m.ReplaceBlogs(ctx, userID, blogIDs)
}

func (u *User) IsAnonymous() bool {
	return u == nil || u == &AnonymousUser || u.ID == ""
}
