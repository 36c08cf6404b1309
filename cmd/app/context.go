package main

import (
	"context"
	"net/http"

	"github.com/sushihentaime/bloglist/internal/userservice"
)

type contextKey string

const userContextKey = contextKey("user")

func (app *application) contextSetUser(r *http.Request, user *userservice.User) *http.Request {
	ctx := context.WithValue(r.Context(), userContextKey, user)
	return r.WithContext(ctx)
}

// contextGetUser returns the caller set by authenticate, or the anonymous
// user when none was set.
func (app *application) contextGetUser(r *http.Request) *userservice.User {
	user, ok := r.Context().Value(userContextKey).(*userservice.User)
	if !ok || user == nil {
		return &userservice.AnonymousUser
	}
	return user
}
