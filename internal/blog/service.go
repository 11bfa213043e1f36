package blog

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brunotavares/sorrisodigital-backend/pkg/db"
	"github.com/brunotavares/sorrisodigital-backend/pkg/db/models"
	pkgerrors "github.com/brunotavares/sorrisodigital-backend/pkg/errors"
	"github.com/brunotavares/sorrisodigital-backend/pkg/pagination"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// PostInput is the admin create/update payload.
type PostInput struct {
	Title    string
	Slug     string
	Excerpt  string
	Body     string
	CoverURL string
	Publish  bool
}

// ListParams are the listing inputs for both surfaces.
type ListParams struct {
	Limit  int
	Cursor string
}

// ListResult is one page of posts.
type ListResult struct {
	Posts      []models.BlogPost
	NextCursor string
}

// Service exposes the marketing blog to the public site and the back office.
type Service interface {
	// Public surface: published posts only.
	ListPublished(ctx context.Context, params ListParams) (*ListResult, error)
	GetPublished(ctx context.Context, slug string) (*models.BlogPost, error)

	// Admin surface.
	ListAll(ctx context.Context, params ListParams) (*ListResult, error)
	Get(ctx context.Context, id uuid.UUID) (*models.BlogPost, error)
	Create(ctx context.Context, input PostInput) (*models.BlogPost, error)
	Update(ctx context.Context, id uuid.UUID, input PostInput) (*models.BlogPost, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService builds the blog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "blog repo required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListPublished(ctx context.Context, params ListParams) (*ListResult, error) {
	return s.list(ctx, params, true)
}

func (s *service) ListAll(ctx context.Context, params ListParams) (*ListResult, error) {
	return s.list(ctx, params, false)
}

func (s *service) list(ctx context.Context, params ListParams, publishedOnly bool) (*ListResult, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := ListQuery{Limit: limit + 1, PublishedOnly: publishedOnly}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	posts, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list posts")
	}

	nextCursor := ""
	if len(posts) > limit {
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: posts[limit-1].CreatedAt,
			ID:        posts[limit-1].ID,
		})
		posts = posts[:limit]
	}
	return &ListResult{Posts: posts, NextCursor: nextCursor}, nil
}

func (s *service) GetPublished(ctx context.Context, slug string) (*models.BlogPost, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}
	post, err := s.repo.FindBySlug(ctx, slug)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load post")
	}
	// Draft posts are invisible to the public site.
	if !post.Published {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
	}
	return post, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.BlogPost, error) {
	return s.findByID(ctx, id)
}

func (s *service) Create(ctx context.Context, input PostInput) (*models.BlogPost, error) {
	if err := validateInput(&input); err != nil {
		return nil, err
	}

	post := &models.BlogPost{
		ID:      uuid.New(),
		Title:   input.Title,
		Slug:    input.Slug,
		Excerpt: input.Excerpt,
		Body:    input.Body,
	}
	if input.CoverURL != "" {
		cover := input.CoverURL
		post.CoverURL = &cover
	}
	if input.Publish {
		now := time.Now().UTC()
		post.Published = true
		post.PublishedAt = &now
	}

	if err := s.repo.Insert(ctx, post); err != nil {
		if db.IsUniqueViolation(err, "ux_blog_posts_slug") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "slug already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert post")
	}
	return post, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input PostInput) (*models.BlogPost, error) {
	if err := validateInput(&input); err != nil {
		return nil, err
	}
	post, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}

	post.Title = input.Title
	post.Slug = input.Slug
	post.Excerpt = input.Excerpt
	post.Body = input.Body
	post.CoverURL = nil
	if input.CoverURL != "" {
		cover := input.CoverURL
		post.CoverURL = &cover
	}
	if input.Publish && !post.Published {
		now := time.Now().UTC()
		post.Published = true
		post.PublishedAt = &now
	}
	if !input.Publish && post.Published {
		post.Published = false
		post.PublishedAt = nil
	}

	if err := s.repo.Update(ctx, post); err != nil {
		if db.IsUniqueViolation(err, "ux_blog_posts_slug") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "slug already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update post")
	}
	return post, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.findByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete post")
	}
	return nil
}

func (s *service) findByID(ctx context.Context, id uuid.UUID) (*models.BlogPost, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "post id is required")
	}
	post, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load post")
	}
	return post, nil
}

func validateInput(input *PostInput) error {
	input.Title = strings.TrimSpace(input.Title)
	input.Slug = strings.ToLower(strings.TrimSpace(input.Slug))
	input.Excerpt = strings.TrimSpace(input.Excerpt)
	input.CoverURL = strings.TrimSpace(input.CoverURL)

	if input.Title == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if !slugPattern.MatchString(input.Slug) {
		return pkgerrors.New(pkgerrors.CodeValidation, "slug must be lowercase letters, digits, and hyphens")
	}
	if strings.TrimSpace(input.Body) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "body is required")
	}
	return nil
}
