package attachments

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brunotavares/sorrisodigital-backend/pkg/db/models"
	pkgerrors "github.com/brunotavares/sorrisodigital-backend/pkg/errors"
)

const maxUploadBytes = 20 * 1024 * 1024

// Kinds of briefing assets a clinic can upload.
const (
	KindLogo     = "logo"
	KindPhoto    = "photo"
	KindDocument = "document"
)

var mimeTypesByKind = map[string][]string{
	KindLogo:     {"image/png", "image/jpeg", "image/svg+xml", "image/webp"},
	KindPhoto:    {"image/png", "image/jpeg", "image/webp"},
	KindDocument: {"application/pdf"},
}

type leadFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Lead, error)
}

type gcsSigner interface {
	SignedURL(bucket, object, contentType string, expires time.Duration) (string, error)
	SignedReadURL(bucket, object string, expires time.Duration) (string, error)
}

// Service hands out presigned upload and download URLs for briefing assets.
type Service interface {
	PresignUpload(ctx context.Context, leadID uuid.UUID, input PresignInput) (*PresignOutput, error)
	ConfirmUpload(ctx context.Context, attachmentID uuid.UUID, sizeBytes int64) error
	List(ctx context.Context, leadID uuid.UUID) ([]models.Attachment, error)
	DownloadURL(ctx context.Context, attachmentID uuid.UUID) (string, error)
}

type service struct {
	repo      Repository
	leads     leadFinder
	gcs       gcsSigner
	bucket    string
	uploadTTL time.Duration
}

// ServiceParams wires the attachment service.
type ServiceParams struct {
	Repo      Repository
	Leads     leadFinder
	GCS       gcsSigner
	Bucket    string
	UploadTTL time.Duration
}

// NewService validates dependencies and returns a ready service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "attachments repository required")
	}
	if params.Leads == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "lead finder required")
	}
	if params.GCS == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "gcs signer required")
	}
	if params.Bucket == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "gcs bucket required")
	}
	if params.UploadTTL <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "upload ttl must be positive")
	}
	return &service{
		repo:      params.Repo,
		leads:     params.Leads,
		gcs:       params.GCS,
		bucket:    params.Bucket,
		uploadTTL: params.UploadTTL,
	}, nil
}

// PresignInput models a request for an upload URL.
type PresignInput struct {
	Kind        string
	FileName    string
	ContentType string
	SizeBytes   int64
}

// PresignOutput is returned to the client so it can PUT the file directly.
type PresignOutput struct {
	AttachmentID uuid.UUID `json:"attachment_id"`
	ObjectKey    string    `json:"object_key"`
	SignedPUTURL string    `json:"signed_put_url"`
	ContentType  string    `json:"content_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (s *service) PresignUpload(ctx context.Context, leadID uuid.UUID, input PresignInput) (*PresignOutput, error) {
	if err := s.ensureLead(ctx, leadID); err != nil {
		return nil, err
	}

	kind := strings.ToLower(strings.TrimSpace(input.Kind))
	allowed, ok := mimeTypesByKind[kind]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid attachment kind")
	}

	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file_name is required")
	}
	if input.SizeBytes <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size_bytes must be positive")
	}
	if input.SizeBytes > maxUploadBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("size_bytes must be at most %d", maxUploadBytes))
	}

	contentType := strings.TrimSpace(input.ContentType)
	if !isAllowedMime(allowed, contentType) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content_type not allowed for attachment kind")
	}

	attachmentID := uuid.New()
	objectKey := buildObjectKey(leadID, attachmentID, fileName)

	row := &models.Attachment{
		ID:          attachmentID,
		LeadID:      leadID,
		Kind:        kind,
		ObjectKey:   objectKey,
		ContentType: contentType,
		SizeBytes:   input.SizeBytes,
	}
	if err := s.repo.Insert(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist attachment row")
	}

	signedURL, err := s.gcs.SignedURL(s.bucket, objectKey, contentType, s.uploadTTL)
	if err != nil {
		_ = s.repo.Delete(ctx, attachmentID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign upload url")
	}

	return &PresignOutput{
		AttachmentID: attachmentID,
		ObjectKey:    objectKey,
		SignedPUTURL: signedURL,
		ContentType:  contentType,
		ExpiresAt:    time.Now().UTC().Add(s.uploadTTL),
	}, nil
}

func (s *service) ConfirmUpload(ctx context.Context, attachmentID uuid.UUID, sizeBytes int64) error {
	if attachmentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "attachment id is required")
	}
	if sizeBytes <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "size_bytes must be positive")
	}

	updated, err := s.repo.MarkUploaded(ctx, attachmentID, sizeBytes)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark uploaded")
	}
	if updated == 0 {
		attachment, err := s.findByID(ctx, attachmentID)
		if err != nil {
			return err
		}
		if attachment.Uploaded {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "attachment already confirmed")
		}
		return pkgerrors.New(pkgerrors.CodeDependency, "confirm upload raced")
	}
	return nil
}

func (s *service) List(ctx context.Context, leadID uuid.UUID) ([]models.Attachment, error) {
	if err := s.ensureLead(ctx, leadID); err != nil {
		return nil, err
	}
	attachments, err := s.repo.ListByLead(ctx, leadID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list attachments")
	}
	return attachments, nil
}

// DownloadURL signs a short-lived read URL. Only confirmed uploads are
// readable; a presigned-but-never-uploaded row has no object behind it.
func (s *service) DownloadURL(ctx context.Context, attachmentID uuid.UUID) (string, error) {
	attachment, err := s.findByID(ctx, attachmentID)
	if err != nil {
		return "", err
	}
	if !attachment.Uploaded {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "attachment upload not confirmed")
	}
	url, err := s.gcs.SignedReadURL(s.bucket, attachment.ObjectKey, s.uploadTTL)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign read url")
	}
	return url, nil
}

func (s *service) ensureLead(ctx context.Context, leadID uuid.UUID) error {
	if leadID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "lead id is required")
	}
	_, err := s.leads.FindByID(ctx, leadID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "lead not found")
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lead")
	}
	return nil
}

func (s *service) findByID(ctx context.Context, id uuid.UUID) (*models.Attachment, error) {
	attachment, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "attachment not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load attachment")
	}
	return attachment, nil
}

func isAllowedMime(allowed []string, contentType string) bool {
	for _, candidate := range allowed {
		if strings.EqualFold(candidate, contentType) {
			return true
		}
	}
	return false
}

func buildObjectKey(leadID, attachmentID uuid.UUID, fileName string) string {
	cleanName := sanitizeFileName(fileName)
	if cleanName == "" {
		cleanName = attachmentID.String()
	}
	return fmt.Sprintf("briefings/%s/%s-%s", leadID, attachmentID, cleanName)
}

func sanitizeFileName(name string) string {
	clean := path.Base(strings.TrimSpace(name))
	if clean == "." || clean == "/" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r == '/' || r == '\\' || unicode.IsControl(r):
			continue
		case r == ' ':
			b.WriteRune('-')
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
