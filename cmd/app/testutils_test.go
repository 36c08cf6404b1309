package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sushihentaime/bloglist/internal/blogservice"
	"github.com/sushihentaime/bloglist/internal/common"
	"github.com/sushihentaime/bloglist/internal/config"
	"github.com/sushihentaime/bloglist/internal/indexservice"
	"github.com/sushihentaime/bloglist/internal/userservice"
)

// userStore and blogStore are in-memory stores with the same id and error
// behaviour as the Postgres ones.
type userStore struct {
	mu    sync.Mutex
	users []*userservice.User
}

func (s *userStore) find(id string) (*userservice.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrInvalidID
	}
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, common.ErrRecordNotFound
}

func (s *userStore) Insert(_ context.Context, u *userservice.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username {
			return userservice.ErrDuplicateUsername
		}
	}
	u.ID = uuid.NewString()
	cp := *u
	cp.Blogs = []string{}
	s.users = append(s.users, &cp)

	return nil
}

func (s *userStore) GetAll(_ context.Context) ([]userservice.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := []userservice.User{}
	for _, u := range s.users {
		cp := *u
		cp.Blogs = append([]string{}, u.Blogs...)
		users = append(users, cp)
	}
	return users, nil
}

func (s *userStore) GetByID(_ context.Context, id string) (*userservice.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.find(id)
	if err != nil {
		return nil, err
	}
	cp := *u
	cp.Blogs = append([]string{}, u.Blogs...)
	return &cp, nil
}

func (s *userStore) GetByUsername(_ context.Context, username string) (*userservice.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrRecordNotFound
}

func (s *userStore) AddBlog(_ context.Context, userID, blogID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.find(userID)
	if err != nil {
		return err
	}
	for _, id := range u.Blogs {
		if id == blogID {
			return nil
		}
	}
	u.Blogs = append(u.Blogs, blogID)
	return nil
}

func (s *userStore) RemoveBlog(_ context.Context, userID, blogID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.find(userID)
	if err != nil {
		return err
	}
	blogs := []string{}
	for _, id := range u.Blogs {
		if id != blogID {
			blogs = append(blogs, id)
		}
	}
	u.Blogs = blogs
	return nil
}

func (s *userStore) ReplaceBlogs(_ context.Context, userID string, blogIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.find(userID)
	if err != nil {
		return err
	}
	u.Blogs = append([]string{}, blogIDs...)
	return nil
}

type blogStore struct {
	mu    sync.Mutex
	blogs []blogservice.Blog
	users *userStore
}

func (s *blogStore) populate(b blogservice.Blog) blogservice.Blog {
	owner := blogservice.Owner{ID: b.OwnerID()}

	s.users.mu.Lock()
	if u, err := s.users.find(owner.ID); err == nil {
		owner.Username = u.Username
		owner.Name = u.Name
	}
	s.users.mu.Unlock()

	b.User = &owner
	return b
}

func (s *blogStore) index(id string) (int, error) {
	if _, err := uuid.Parse(id); err != nil {
		return -1, common.ErrInvalidID
	}
	for i, b := range s.blogs {
		if b.ID == id {
			return i, nil
		}
	}
	return -1, common.ErrRecordNotFound
}

func (s *blogStore) Insert(_ context.Context, b *blogservice.Blog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b.ID = uuid.NewString()
	stored := *b
	stored.User = &blogservice.Owner{ID: b.OwnerID()}
	s.blogs = append(s.blogs, stored)
	return nil
}

func (s *blogStore) GetAll(_ context.Context) ([]blogservice.Blog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blogs := []blogservice.Blog{}
	for _, b := range s.blogs {
		blogs = append(blogs, s.populate(b))
	}
	return blogs, nil
}

func (s *blogStore) Get(_ context.Context, id string) (*blogservice.Blog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.index(id)
	if err != nil {
		return nil, err
	}
	b := s.populate(s.blogs[i])
	return &b, nil
}

func (s *blogStore) Update(_ context.Context, b *blogservice.Blog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.index(b.ID)
	if err != nil {
		return err
	}
	s.blogs[i].Title = b.Title
	s.blogs[i].Author = b.Author
	s.blogs[i].URL = b.URL
	s.blogs[i].Likes = b.Likes
	return nil
}

func (s *blogStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.index(id)
	if err != nil {
		return err
	}
	s.blogs = append(s.blogs[:i], s.blogs[i+1:]...)
	return nil
}

func newTestApplication(t *testing.T) *application {
	t.Helper()

	cfg := &config.Config{
		Environment:  "testing",
		Version:      "test",
		StoreDriver:  config.DriverPostgres,
		LimiterRPS:   2,
		LimiterBurst: 4,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tm, err := userservice.NewTokenManager("test-secret", "", time.Minute)
	require.NoError(t, err)

	users := &userStore{}
	blogs := &blogStore{users: users}

	app := &application{
		config:  cfg,
		logger:  logger,
		limiter: newClientLimiter(cfg.LimiterRPS, cfg.LimiterBurst),
	}
	t.Cleanup(app.limiter.stop)

	app.userService = userservice.NewUserService(users, nil, common.NewCache(time.Minute, time.Minute), tm, logger)
	app.indexService = indexservice.NewIndexService(nil, app.userService, nil, logger)
	app.blogService = blogservice.NewBlogService(blogs, app.indexService, logger)
	app.indexService.SetBlogSource(app.blogService)

	return app
}

type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T, h http.Handler) *testServer {
	ts := httptest.NewServer(h)

	t.Cleanup(ts.Close)

	return &testServer{ts}
}

func readResponse(t *testing.T, res *http.Response) (int, http.Header, []byte) {
	defer res.Body.Close()

	responseBody, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}

	return res.StatusCode, res.Header, responseBody
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("could not decode %q: %v", body, err)
	}

	return v
}

func errorMessage(t *testing.T, body []byte) string {
	t.Helper()

	return decode[envelope](t, body)["error"].(string)
}

func (ts *testServer) do(t *testing.T, method, path string, token *string, payload any) (int, http.Header, []byte) {
	t.Helper()

	var body io.Reader
	switch p := payload.(type) {
	case nil:
	case string:
		body = bytes.NewReader([]byte(p))
	default:
		jsonPayload, err := json.Marshal(p)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(jsonPayload)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatal(err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != nil {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", *token))
	}

	res, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}

	return readResponse(t, res)
}

func (ts *testServer) get(t *testing.T, path string, token *string) (int, http.Header, []byte) {
	return ts.do(t, http.MethodGet, path, token, nil)
}

func (ts *testServer) post(t *testing.T, path string, token *string, payload any) (int, http.Header, []byte) {
	return ts.do(t, http.MethodPost, path, token, payload)
}

func (ts *testServer) put(t *testing.T, path string, token *string, payload any) (int, http.Header, []byte) {
	return ts.do(t, http.MethodPut, path, token, payload)
}

func (ts *testServer) delete(t *testing.T, path string, token *string) (int, http.Header, []byte) {
	return ts.do(t, http.MethodDelete, path, token, nil)
}

// registerAndLogin creates a user and returns its id and access token.
func (ts *testServer) registerAndLogin(t *testing.T, username, name string) (string, *string) {
	t.Helper()

	code, _, body := ts.post(t, "/v1/users", nil, map[string]string{
		"username": username,
		"name":     name,
		"password": "sekret",
	})
	require.Equal(t, http.StatusCreated, code, string(body))
	user := decode[userservice.User](t, body)

	code, _, body = ts.post(t, "/v1/login", nil, map[string]string{
		"username": username,
		"password": "sekret",
	})
	require.Equal(t, http.StatusOK, code, string(body))
	token := decode[userservice.AuthToken](t, body)

	return user.ID, &token.Token
}

func strptr(s string) *string {
	return &s
}
