package blogservice

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/sushihentaime/bloglist/internal/common"
	"github.com/sushihentaime/bloglist/internal/stats"
	"github.com/sushihentaime/bloglist/internal/userservice"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("only the creator can modify this blog")
)

// NewBlogService wires a blog store to an optional event producer. With a nil
// producer no blog events are published.
func NewBlogService(m Store, mb common.MessageProducer, logger *slog.Logger) *BlogService {
	return &BlogService{m: m, mb: mb, logger: logger}
}

// GetBlogs returns every blog with its owner populated.
func (s *BlogService) GetBlogs(ctx context.Context) ([]Blog, error) {
	return s.m.GetAll(ctx)
}

func (s *BlogService) GetBlogByID(ctx context.Context, id string) (*Blog, error) {
	return s.m.Get(ctx, id)
}

// Stats summarizes the current blogs.
func (s *BlogService) Stats(ctx context.Context) (stats.Report, error) {
	blogs, err := s.m.GetAll(ctx)
	if err != nil {
		return stats.Report{}, err
	}

	return stats.Summarize(blogs), nil
}

// CreateBlog stores a new blog owned by user. Likes default to zero.
func (s *BlogService) CreateBlog(ctx context.Context, user *userservice.User, req CreateBlogRequest) (*Blog, error) {
	if user.IsAnonymous() {
		return nil, ErrUnauthenticated
	}

	blog := Blog{
		Title:  req.Title,
		Author: req.Author,
		URL:    req.URL,
		User:   &Owner{ID: user.ID, Username: user.Username, Name: user.Name},
	}
	if req.Likes != nil {
		blog.Likes = *req.Likes
	}

	v := common.NewValidator()
	validateBlog(v, &blog)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	if err := s.m.Insert(ctx, &blog); err != nil {
		return nil, err
	}

	s.publish(ctx, common.BlogCreatedKey, &blog)

	return &blog, nil
}

// authorize loads the blog and checks that user owns it.
func (s *BlogService) authorize(ctx context.Context, user *userservice.User, id string) (*Blog, error) {
	if user.IsAnonymous() {
		return nil, ErrUnauthenticated
	}

	blog, err := s.m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if blog.OwnerID() != user.ID {
		return nil, ErrForbidden
	}

	return blog, nil
}

// UpdateBlog applies the non-nil fields of req to a blog owned by user and
// returns the stored result.
func (s *BlogService) UpdateBlog(ctx context.Context, user *userservice.User, id string, req UpdateBlogRequest) (*Blog, error) {
	blog, err := s.authorize(ctx, user, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		blog.Title = *req.Title
	}
	if req.Author != nil {
		blog.Author = *req.Author
	}
	if req.URL != nil {
		blog.URL = *req.URL
	}
	if req.Likes != nil {
		blog.Likes = *req.Likes
	}

	v := common.NewValidator()
	validateBlog(v, blog)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	if err := s.m.Update(ctx, blog); err != nil {
		return nil, err
	}

	return blog, nil
}

// DeleteBlog removes a blog owned by user.
func (s *BlogService) DeleteBlog(ctx context.Context, user *userservice.User, id string) error {
	blog, err := s.authorize(ctx, user, id)
	if err != nil {
		return err
	}

	if err := s.m.Delete(ctx, blog.ID); err != nil {
		return err
	}

	s.publish(ctx, common.BlogDeletedKey, blog)

	return nil
}

// publish is best effort; the owner index is repaired by a rebuild if an
// event is lost.
func (s *BlogService) publish(ctx context.Context, key common.BindingKey, blog *Blog) {
	if s.mb == nil {
		return
	}

	msg, err := json.Marshal(common.BlogEvent{BlogID: blog.ID, UserID: blog.OwnerID()})
	if err != nil {
		s.logger.Error("could not encode blog event", slog.String("error", err.Error()))
		return
	}

	if err := s.mb.Publish(ctx, msg, key, common.BlogExchange); err != nil {
		s.logger.Error("could not publish blog event", slog.String("key", string(key)), slog.String("blog_id", blog.ID), slog.String("error", err.Error()))
	}
}
