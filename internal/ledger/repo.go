package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brunotavares/sorrisodigital-backend/pkg/db/models"
	"github.com/brunotavares/sorrisodigital-backend/pkg/enums"
)

// Repository manages persistence for webhook event claims.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, event *models.WebhookEvent) error
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateOutcome(ctx context.Context, id uuid.UUID, outcome enums.WebhookOutcome) error
	FindByProviderEvent(ctx context.Context, provider enums.PaymentProvider, eventID string) (*models.WebhookEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a webhook event repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, event *models.WebhookEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.WebhookEvent{}).Error
}

func (r *repository) UpdateOutcome(ctx context.Context, id uuid.UUID, outcome enums.WebhookOutcome) error {
	return r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("id = ?", id).
		Update("outcome", outcome).Error
}

func (r *repository) FindByProviderEvent(ctx context.Context, provider enums.PaymentProvider, eventID string) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("provider = ? AND event_id = ?", provider, eventID).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}
