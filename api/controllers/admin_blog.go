package controllers

import (
	"net/http"
	"strings"

	"github.com/brunotavares/sorrisodigital-backend/api/responses"
	"github.com/brunotavares/sorrisodigital-backend/api/validators"
	"github.com/brunotavares/sorrisodigital-backend/internal/blog"
	pkgerrors "github.com/brunotavares/sorrisodigital-backend/pkg/errors"
	"github.com/brunotavares/sorrisodigital-backend/pkg/logger"
)

type blogPostRequest struct {
	Title    string `json:"title" validate:"required,max=200"`
	Slug     string `json:"slug" validate:"required,max=200"`
	Excerpt  string `json:"excerpt" validate:"omitempty,max=500"`
	Body     string `json:"body" validate:"required"`
	CoverURL string `json:"cover_url" validate:"omitempty,url,max=500"`
	Publish  bool   `json:"publish"`
}

func (r blogPostRequest) toInput() blog.PostInput {
	return blog.PostInput{
		Title:    strings.TrimSpace(r.Title),
		Slug:     strings.TrimSpace(r.Slug),
		Excerpt:  strings.TrimSpace(r.Excerpt),
		Body:     r.Body,
		CoverURL: strings.TrimSpace(r.CoverURL),
		Publish:  r.Publish,
	}
}

// AdminBlogList returns every post, drafts included.
func AdminBlogList(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "blog service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListAll(r.Context(), blog.ListParams{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminBlogGet returns one post by id.
func AdminBlogGet(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "blog service unavailable"))
			return
		}

		postID, err := pathUUID(r, "postID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		post, err := svc.Get(r.Context(), postID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, post)
	}
}

// AdminBlogCreate creates a post, optionally publishing it immediately.
func AdminBlogCreate(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "blog service unavailable"))
			return
		}

		var req blogPostRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		post, err := svc.Create(r.Context(), req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, post)
	}
}

// AdminBlogUpdate replaces the editable fields of a post.
func AdminBlogUpdate(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "blog service unavailable"))
			return
		}

		postID, err := pathUUID(r, "postID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req blogPostRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		post, err := svc.Update(r.Context(), postID, req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, post)
	}
}

// AdminBlogDelete removes a post.
func AdminBlogDelete(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "blog service unavailable"))
			return
		}

		postID, err := pathUUID(r, "postID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), postID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
