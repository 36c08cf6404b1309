package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

func (app *application) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundErrorResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedErrorResponse)

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthCheckHandler)

	// user service
	router.HandlerFunc(http.MethodPost, "/v1/users", app.registerUserHandler)
	router.HandlerFunc(http.MethodGet, "/v1/users", app.listUsersHandler)
	router.HandlerFunc(http.MethodPost, "/v1/login", app.loginUserHandler)

	// blog service
	router.HandlerFunc(http.MethodGet, "/v1/blogs", app.listBlogsHandler)
	router.HandlerFunc(http.MethodPost, "/v1/blogs", app.requireAuthUser(app.createBlogHandler))
	router.HandlerFunc(http.MethodGet, "/v1/blogs/:id", app.showBlogHandler)
	router.HandlerFunc(http.MethodPut, "/v1/blogs/:id", app.requireAuthUser(app.updateBlogHandler))
	router.HandlerFunc(http.MethodDelete, "/v1/blogs/:id", app.requireAuthUser(app.deleteBlogHandler))
	router.HandlerFunc(http.MethodGet, "/v1/stats", app.statsHandler)

	return app.recoverPanic(app.logRequest(app.rateLimit(app.enableCORS(app.authenticate(router)))))
}
