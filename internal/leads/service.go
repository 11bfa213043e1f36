package leads

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brunotavares/sorrisodigital-backend/pkg/db/models"
	"github.com/brunotavares/sorrisodigital-backend/pkg/enums"
	pkgerrors "github.com/brunotavares/sorrisodigital-backend/pkg/errors"
	"github.com/brunotavares/sorrisodigital-backend/pkg/logger"
	"github.com/brunotavares/sorrisodigital-backend/pkg/outbox"
	"github.com/brunotavares/sorrisodigital-backend/pkg/outbox/payloads"
	"github.com/brunotavares/sorrisodigital-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateLeadInput is the public briefing form payload.
type CreateLeadInput struct {
	ClinicName      string
	ResponsibleName string
	Email           string
	Whatsapp        string
	City            string
	Plan            string
	TotalCents      int64
	Briefing        json.RawMessage
}

// ListParams are the admin Kanban list inputs.
type ListParams struct {
	Limit           int
	Cursor          string
	Status          string
	Search          string
	IncludeArchived bool
}

// ListResult is one page of leads.
type ListResult struct {
	Leads      []models.Lead
	NextCursor string
}

// Detail bundles everything the admin lead page shows.
type Detail struct {
	Lead     *models.Lead
	Payments []models.Payment
	History  []models.LeadStatusHistory
	Notes    []models.LeadNote
}

// UpdateStatusInput is a manual Kanban move.
type UpdateStatusInput struct {
	LeadID  uuid.UUID
	Target  enums.LeadStatus
	AdminID uuid.UUID
	Note    string
}

// Service exposes lead intake and back-office operations.
type Service interface {
	Create(ctx context.Context, input CreateLeadInput) (*models.Lead, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Get(ctx context.Context, id uuid.UUID) (*Detail, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Lead, error)
	Archive(ctx context.Context, leadID, adminID uuid.UUID) error
	AddNote(ctx context.Context, leadID, adminID uuid.UUID, body string) (*models.LeadNote, error)
	ListNotes(ctx context.Context, leadID uuid.UUID) ([]models.LeadNote, error)
	ListHistory(ctx context.Context, leadID uuid.UUID) ([]models.LeadStatusHistory, error)
}

// ServiceParams wires the lead service.
type ServiceParams struct {
	Repo              Repository
	Outbox            *outbox.Service
	TransactionRunner txRunner
	Logger            *logger.Logger
}

type service struct {
	repo     Repository
	outbox   *outbox.Service
	txRunner txRunner
	logg     *logger.Logger
}

// NewService validates dependencies and returns a ready service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "lead repo required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox service required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &service{
		repo:     params.Repo,
		outbox:   params.Outbox,
		txRunner: params.TransactionRunner,
		logg:     params.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateLeadInput) (*models.Lead, error) {
	input.ClinicName = strings.TrimSpace(input.ClinicName)
	input.ResponsibleName = strings.TrimSpace(input.ResponsibleName)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Whatsapp = strings.TrimSpace(input.Whatsapp)

	if input.ClinicName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "clinic name is required")
	}
	if input.ResponsibleName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "responsible name is required")
	}
	if input.Email == "" || !strings.Contains(input.Email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	if input.Whatsapp == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "whatsapp is required")
	}
	if input.TotalCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total must be non-negative")
	}

	lead := &models.Lead{
		ID:              uuid.New(),
		ClinicName:      input.ClinicName,
		ResponsibleName: input.ResponsibleName,
		Email:           input.Email,
		Whatsapp:        input.Whatsapp,
		Briefing:        input.Briefing,
		Status:          enums.LeadStatusNovo,
		TotalCents:      input.TotalCents,
		Version:         1,
	}
	if input.City != "" {
		city := input.City
		lead.City = &city
	}
	if input.Plan != "" {
		plan := input.Plan
		lead.Plan = &plan
	}

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Insert(ctx, lead); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert lead")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLeadCreated,
			AggregateType: enums.AggregateLead,
			AggregateID:   lead.ID,
			Actor:         &outbox.ActorRef{Source: "public:intake"},
			Data: payloads.LeadCreatedEvent{
				LeadID:     lead.ID,
				ClinicName: lead.ClinicName,
				Email:      lead.Email,
				Plan:       input.Plan,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithLeadID(ctx, lead.ID.String()), "lead created")
	}
	return lead, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := ListQuery{
		Limit:           limit + 1,
		Search:          strings.TrimSpace(params.Search),
		IncludeArchived: params.IncludeArchived,
	}
	if params.Status != "" {
		status, err := enums.ParseLeadStatus(params.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		query.Status = &status
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list leads")
	}

	nextCursor := ""
	if len(rows) > limit {
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: rows[limit-1].CreatedAt,
			ID:        rows[limit-1].ID,
		})
		rows = rows[:limit]
	}
	return &ListResult{Leads: rows, NextCursor: nextCursor}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Detail, error) {
	lead, err := s.findLead(ctx, id)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list lead payments")
	}
	history, err := s.repo.ListHistory(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list lead history")
	}
	notes, err := s.repo.ListNotes(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list lead notes")
	}
	return &Detail{Lead: lead, Payments: payments, History: history, Notes: notes}, nil
}

// UpdateStatus performs a manual Kanban move. The move is validated against
// the admin transition graph and committed under the same version guard the
// reconciliation gateway uses, so the two writers contend instead of
// clobbering each other.
func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Lead, error) {
	if input.AdminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin id is required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}

	lead, err := s.findLead(ctx, input.LeadID)
	if err != nil {
		return nil, err
	}
	if lead.Archived {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "lead is archived")
	}
	if !lead.Status.CanTransitionTo(input.Target) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			"cannot move lead from "+lead.Status.String()+" to "+input.Target.String())
	}

	changedBy := "admin:" + input.AdminID.String()
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		updated, err := repo.UpdateGuarded(ctx, lead.ID, lead.Version, map[string]interface{}{
			"status": input.Target,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update lead status")
		}
		if updated == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "lead was modified concurrently")
		}

		entry := &models.LeadStatusHistory{
			ID:        uuid.New(),
			LeadID:    lead.ID,
			OldStatus: lead.Status,
			NewStatus: input.Target,
			ChangedBy: changedBy,
		}
		if input.Note != "" {
			note := input.Note
			entry.Note = &note
		}
		if err := repo.AppendHistory(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLeadStatusChanged,
			AggregateType: enums.AggregateLead,
			AggregateID:   lead.ID,
			Actor:         &outbox.ActorRef{AdminID: &input.AdminID, Source: "admin"},
			Data: payloads.LeadStatusChangedEvent{
				LeadID:    lead.ID,
				OldStatus: lead.Status,
				NewStatus: input.Target,
				ChangedBy: changedBy,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	lead.Status = input.Target
	lead.Version++
	return lead, nil
}

func (s *service) Archive(ctx context.Context, leadID, adminID uuid.UUID) error {
	if adminID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "admin id is required")
	}
	lead, err := s.findLead(ctx, leadID)
	if err != nil {
		return err
	}
	if lead.Archived {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "lead is already archived")
	}

	updated, err := s.repo.UpdateGuarded(ctx, lead.ID, lead.Version, map[string]interface{}{
		"archived": true,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "archive lead")
	}
	if updated == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "lead was modified concurrently")
	}
	return nil
}

func (s *service) AddNote(ctx context.Context, leadID, adminID uuid.UUID, body string) (*models.LeadNote, error) {
	if adminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin id is required")
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "note body is required")
	}
	if _, err := s.findLead(ctx, leadID); err != nil {
		return nil, err
	}

	note := &models.LeadNote{
		ID:       uuid.New(),
		LeadID:   leadID,
		AuthorID: adminID,
		Body:     body,
	}
	if err := s.repo.InsertNote(ctx, note); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert lead note")
	}
	return note, nil
}

func (s *service) ListNotes(ctx context.Context, leadID uuid.UUID) ([]models.LeadNote, error) {
	if _, err := s.findLead(ctx, leadID); err != nil {
		return nil, err
	}
	notes, err := s.repo.ListNotes(ctx, leadID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list lead notes")
	}
	return notes, nil
}

func (s *service) ListHistory(ctx context.Context, leadID uuid.UUID) ([]models.LeadStatusHistory, error) {
	if _, err := s.findLead(ctx, leadID); err != nil {
		return nil, err
	}
	history, err := s.repo.ListHistory(ctx, leadID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list lead history")
	}
	return history, nil
}

func (s *service) findLead(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lead id is required")
	}
	lead, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "lead not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lead")
	}
	return lead, nil
}
