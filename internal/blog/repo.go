package blog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brunotavares/sorrisodigital-backend/pkg/db/models"
	"github.com/brunotavares/sorrisodigital-backend/pkg/pagination"
)

// ListQuery narrows a post listing.
type ListQuery struct {
	Limit         int
	Cursor        *pagination.Cursor
	PublishedOnly bool
}

// Repository persists blog posts.
type Repository interface {
	Insert(ctx context.Context, post *models.BlogPost) error
	Update(ctx context.Context, post *models.BlogPost) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.BlogPost, error)
	FindBySlug(ctx context.Context, slug string) (*models.BlogPost, error)
	List(ctx context.Context, query ListQuery) ([]models.BlogPost, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, post *models.BlogPost) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *repository) Update(ctx context.Context, post *models.BlogPost) error {
	return r.db.WithContext(ctx).Save(post).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.BlogPost{}, "id = ?", id).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.BlogPost, error) {
	var post models.BlogPost
	if err := r.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *repository) FindBySlug(ctx context.Context, slug string) (*models.BlogPost, error) {
	var post models.BlogPost
	if err := r.db.WithContext(ctx).First(&post, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.BlogPost, error) {
	q := r.db.WithContext(ctx).Model(&models.BlogPost{})
	if query.PublishedOnly {
		q = q.Where("published = ?", true)
	}
	if query.Cursor != nil {
		q = q.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			query.Cursor.CreatedAt, query.Cursor.CreatedAt, query.Cursor.ID,
		)
	}
	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}

	var posts []models.BlogPost
	if err := q.Order("created_at DESC, id DESC").Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}
