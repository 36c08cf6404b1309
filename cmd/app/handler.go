package main

import (
	"net/http"

	"github.com/sushihentaime/bloglist/internal/blogservice"
	"github.com/sushihentaime/bloglist/internal/userservice"
)

type registerUserRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (app *application) registerUserHandler(w http.ResponseWriter, r *http.Request) {
	var input registerUserRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user, err := app.userService.CreateUser(r.Context(), userservice.CreateUserRequest{
		Username: input.Username,
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, user, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := app.userService.GetUsers(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, users, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

type loginUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (app *application) loginUserHandler(w http.ResponseWriter, r *http.Request) {
	var input loginUserRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	token, err := app.userService.LoginUser(r.Context(), input.Username, input.Password)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, token, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) listBlogsHandler(w http.ResponseWriter, r *http.Request) {
	blogs, err := app.blogService.GetBlogs(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, blogs, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) showBlogHandler(w http.ResponseWriter, r *http.Request) {
	blog, err := app.blogService.GetBlogByID(r.Context(), app.readIDParam(r, "id"))
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, blog, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) createBlogHandler(w http.ResponseWriter, r *http.Request) {
	var input blogservice.CreateBlogRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	blog, err := app.blogService.CreateBlog(r.Context(), app.contextGetUser(r), input)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, blog, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) updateBlogHandler(w http.ResponseWriter, r *http.Request) {
	var input blogservice.UpdateBlogRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	blog, err := app.blogService.UpdateBlog(r.Context(), app.contextGetUser(r), app.readIDParam(r, "id"), input)
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, blog, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) deleteBlogHandler(w http.ResponseWriter, r *http.Request) {
	err := app.blogService.DeleteBlog(r.Context(), app.contextGetUser(r), app.readIDParam(r, "id"))
	if err != nil {
		app.serviceErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (app *application) statsHandler(w http.ResponseWriter, r *http.Request) {
	report, err := app.blogService.Stats(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, report, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}
