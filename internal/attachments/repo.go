package attachments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brunotavares/sorrisodigital-backend/pkg/db/models"
)

// Repository persists attachment rows.
type Repository interface {
	Insert(ctx context.Context, attachment *models.Attachment) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Attachment, error)
	ListByLead(ctx context.Context, leadID uuid.UUID) ([]models.Attachment, error)
	MarkUploaded(ctx context.Context, id uuid.UUID, sizeBytes int64) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, attachment *models.Attachment) error {
	return r.db.WithContext(ctx).Create(attachment).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Attachment{}, "id = ?", id).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Attachment, error) {
	var attachment models.Attachment
	if err := r.db.WithContext(ctx).First(&attachment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &attachment, nil
}

func (r *repository) ListByLead(ctx context.Context, leadID uuid.UUID) ([]models.Attachment, error) {
	var attachments []models.Attachment
	err := r.db.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("created_at ASC").
		Find(&attachments).Error
	if err != nil {
		return nil, err
	}
	return attachments, nil
}

func (r *repository) MarkUploaded(ctx context.Context, id uuid.UUID, sizeBytes int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Attachment{}).
		Where("id = ? AND uploaded = ?", id, false).
		Updates(map[string]interface{}{"uploaded": true, "size_bytes": sizeBytes})
	return result.RowsAffected, result.Error
}
