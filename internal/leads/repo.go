package leads

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brunotavares/sorrisodigital-backend/pkg/db/models"
	"github.com/brunotavares/sorrisodigital-backend/pkg/enums"
	"github.com/brunotavares/sorrisodigital-backend/pkg/pagination"
)

// ListQuery narrows the admin lead list.
type ListQuery struct {
	Limit           int
	Cursor          *pagination.Cursor
	Status          *enums.LeadStatus
	Search          string
	IncludeArchived bool
}

// Repository manages persistence for leads and their satellite rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, lead *models.Lead) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Lead, error)
	List(ctx context.Context, query ListQuery) ([]models.Lead, error)
	UpdateGuarded(ctx context.Context, id uuid.UUID, version int, updates map[string]interface{}) (int64, error)
	ListPayments(ctx context.Context, leadID uuid.UUID) ([]models.Payment, error)
	AppendHistory(ctx context.Context, entry *models.LeadStatusHistory) error
	ListHistory(ctx context.Context, leadID uuid.UUID) ([]models.LeadStatusHistory, error)
	InsertNote(ctx context.Context, note *models.LeadNote) error
	ListNotes(ctx context.Context, leadID uuid.UUID) ([]models.LeadNote, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a lead repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, lead *models.Lead) error {
	return r.db.WithContext(ctx).Create(lead).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	var lead models.Lead
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&lead).Error
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.Lead, error) {
	q := r.db.WithContext(ctx).Model(&models.Lead{})
	if !query.IncludeArchived {
		q = q.Where("archived = ?", false)
	}
	if query.Status != nil {
		q = q.Where("status = ?", *query.Status)
	}
	if query.Search != "" {
		pattern := "%" + query.Search + "%"
		q = q.Where("clinic_name LIKE ? OR responsible_name LIKE ? OR email LIKE ?", pattern, pattern, pattern)
	}
	if query.Cursor != nil {
		q = q.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			query.Cursor.CreatedAt, query.Cursor.CreatedAt, query.Cursor.ID,
		)
	}
	var rows []models.Lead
	err := q.Order("created_at DESC").Order("id DESC").Limit(query.Limit).Find(&rows).Error
	return rows, err
}

// UpdateGuarded applies updates only when the stored version still matches,
// bumping the version in the same statement.
func (r *repository) UpdateGuarded(ctx context.Context, id uuid.UUID, version int, updates map[string]interface{}) (int64, error) {
	updates["version"] = version + 1
	res := r.db.WithContext(ctx).
		Model(&models.Lead{}).
		Where("id = ? AND version = ?", id, version).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) ListPayments(ctx context.Context, leadID uuid.UUID) ([]models.Payment, error) {
	var rows []models.Payment
	err := r.db.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) AppendHistory(ctx context.Context, entry *models.LeadStatusHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListHistory(ctx context.Context, leadID uuid.UUID) ([]models.LeadStatusHistory, error) {
	var rows []models.LeadStatusHistory
	err := r.db.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) InsertNote(ctx context.Context, note *models.LeadNote) error {
	return r.db.WithContext(ctx).Create(note).Error
}

func (r *repository) ListNotes(ctx context.Context, leadID uuid.UUID) ([]models.LeadNote, error) {
	var rows []models.LeadNote
	err := r.db.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}
