package orphans

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brunotavares/sorrisodigital-backend/pkg/db/models"
	"github.com/brunotavares/sorrisodigital-backend/pkg/pagination"
)

// ListQuery narrows the orphan review queue.
type ListQuery struct {
	Limit           int
	Cursor          *pagination.Cursor
	IncludeResolved bool
}

// Repository manages persistence for orphaned webhook events.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, orphan *models.OrphanEvent) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.OrphanEvent, error)
	List(ctx context.Context, query ListQuery) ([]models.OrphanEvent, error)
	MarkResolved(ctx context.Context, id uuid.UUID, adminID uuid.UUID, at time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orphan event repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, orphan *models.OrphanEvent) error {
	return r.db.WithContext(ctx).Create(orphan).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.OrphanEvent, error) {
	var orphan models.OrphanEvent
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&orphan).Error
	if err != nil {
		return nil, err
	}
	return &orphan, nil
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.OrphanEvent, error) {
	q := r.db.WithContext(ctx).Model(&models.OrphanEvent{})
	if !query.IncludeResolved {
		q = q.Where("resolved_at IS NULL")
	}
	if query.Cursor != nil {
		q = q.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			query.Cursor.CreatedAt, query.Cursor.CreatedAt, query.Cursor.ID,
		)
	}
	var rows []models.OrphanEvent
	err := q.Order("created_at DESC").Order("id DESC").Limit(query.Limit).Find(&rows).Error
	return rows, err
}

// MarkResolved resolves the orphan only when it is still open, so two admins
// cannot both claim the resolution.
func (r *repository) MarkResolved(ctx context.Context, id uuid.UUID, adminID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OrphanEvent{}).
		Where("id = ? AND resolved_at IS NULL", id).
		Updates(map[string]interface{}{
			"resolved_at": at,
			"resolved_by": adminID,
		})
	return res.RowsAffected, res.Error
}
