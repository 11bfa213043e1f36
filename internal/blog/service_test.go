package blog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brunotavares/sorrisodigital-backend/pkg/db/models"
	pkgerrors "github.com/brunotavares/sorrisodigital-backend/pkg/errors"
)

func setupBlogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	schema := `
CREATE TABLE IF NOT EXISTS blog_posts (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  slug TEXT NOT NULL,
  excerpt TEXT NOT NULL DEFAULT '',
  body TEXT NOT NULL,
  cover_url TEXT,
  published INTEGER NOT NULL DEFAULT 0,
  published_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_blog_posts_slug ON blog_posts (slug);`
	if err := gdb.Exec(schema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		gdb.Exec("DELETE FROM blog_posts")
	})
	return gdb
}

func newTestBlogService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	gdb := setupBlogTestDB(t)
	svc, err := NewService(NewRepository(gdb))
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	return svc, gdb
}

func validPostInput() PostInput {
	return PostInput{
		Title:   "5 sinais de que sua clinica precisa de um site",
		Slug:    "sinais-clinica-precisa-site",
		Excerpt: "Pacientes pesquisam antes de marcar.",
		Body:    "Corpo do artigo.",
		Publish: true,
	}
}

func TestBlogCreateAndPublicRead(t *testing.T) {
	svc, _ := newTestBlogService(t)
	ctx := context.Background()

	post, err := svc.Create(ctx, validPostInput())
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if !post.Published || post.PublishedAt == nil {
		t.Fatalf("expected published post, got %+v", post)
	}

	got, err := svc.GetPublished(ctx, "sinais-clinica-precisa-site")
	if err != nil {
		t.Fatalf("GetPublished error: %v", err)
	}
	if got.ID != post.ID {
		t.Fatalf("wrong post: %s", got.ID)
	}
}

func TestBlogDraftHiddenFromPublic(t *testing.T) {
	svc, _ := newTestBlogService(t)
	ctx := context.Background()

	input := validPostInput()
	input.Publish = false
	post, err := svc.Create(ctx, input)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if _, err := svc.GetPublished(ctx, post.Slug); pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		t.Fatalf("draft should 404 publicly, got %v", err)
	}

	public, err := svc.ListPublished(ctx, ListParams{})
	if err != nil {
		t.Fatalf("ListPublished: %v", err)
	}
	if len(public.Posts) != 0 {
		t.Fatalf("draft leaked to public list: %+v", public.Posts)
	}

	all, err := svc.ListAll(ctx, ListParams{})
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all.Posts) != 1 {
		t.Fatalf("admin list should include drafts, got %d", len(all.Posts))
	}
}

func TestBlogSlugConflict(t *testing.T) {
	svc, _ := newTestBlogService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, validPostInput()); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	input := validPostInput()
	input.Title = "Outro titulo"
	if _, err := svc.Create(ctx, input); pkgerrors.CodeOf(err) != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on duplicate slug, got %v", err)
	}
}

func TestBlogValidation(t *testing.T) {
	svc, _ := newTestBlogService(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*PostInput)
	}{
		{"missing title", func(in *PostInput) { in.Title = " " }},
		{"upper slug rejected before lowering invalid chars", func(in *PostInput) { in.Slug = "Bad Slug!" }},
		{"missing body", func(in *PostInput) { in.Body = "" }},
		{"empty slug", func(in *PostInput) { in.Slug = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validPostInput()
			tc.mutate(&input)
			if _, err := svc.Create(ctx, input); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestBlogUpdateAndUnpublish(t *testing.T) {
	svc, _ := newTestBlogService(t)
	ctx := context.Background()

	post, err := svc.Create(ctx, validPostInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	input := validPostInput()
	input.Title = "Titulo revisado"
	input.Publish = false
	updated, err := svc.Update(ctx, post.ID, input)
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if updated.Published || updated.PublishedAt != nil {
		t.Fatalf("expected unpublished post, got %+v", updated)
	}
	if updated.Title != "Titulo revisado" {
		t.Fatalf("title not updated: %q", updated.Title)
	}

	if _, err := svc.Update(ctx, uuid.New(), validPostInput()); pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBlogListPaginates(t *testing.T) {
	svc, gdb := newTestBlogService(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, slug := range []string{"post-a", "post-b", "post-c"} {
		input := validPostInput()
		input.Slug = slug
		post, err := svc.Create(ctx, input)
		if err != nil {
			t.Fatalf("seed %s: %v", slug, err)
		}
		gdb.Model(&models.BlogPost{}).Where("id = ?", post.ID).
			Update("created_at", base.Add(time.Duration(i)*time.Minute))
	}

	page1, err := svc.ListPublished(ctx, ListParams{Limit: 2})
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if len(page1.Posts) != 2 || page1.NextCursor == "" {
		t.Fatalf("expected 2 posts and cursor, got %d", len(page1.Posts))
	}
	page2, err := svc.ListPublished(ctx, ListParams{Limit: 2, Cursor: page1.NextCursor})
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(page2.Posts) != 1 || page2.NextCursor != "" {
		t.Fatalf("expected final page of 1, got %d", len(page2.Posts))
	}
}

func TestBlogDelete(t *testing.T) {
	svc, _ := newTestBlogService(t)
	ctx := context.Background()

	post, err := svc.Create(ctx, validPostInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(ctx, post.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := svc.Delete(ctx, post.ID); pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}
