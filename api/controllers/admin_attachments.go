package controllers

import (
	"net/http"

	"github.com/brunotavares/sorrisodigital-backend/api/responses"
	"github.com/brunotavares/sorrisodigital-backend/api/validators"
	"github.com/brunotavares/sorrisodigital-backend/internal/attachments"
	pkgerrors "github.com/brunotavares/sorrisodigital-backend/pkg/errors"
	"github.com/brunotavares/sorrisodigital-backend/pkg/logger"
)

type presignAttachmentRequest struct {
	Kind        string `json:"kind" validate:"required,oneof=logo photo document"`
	FileName    string `json:"file_name" validate:"required,max=200"`
	ContentType string `json:"content_type" validate:"required,max=100"`
	SizeBytes   int64  `json:"size_bytes" validate:"required,gt=0"`
}

// AdminAttachmentPresign hands out a signed PUT URL for a briefing asset.
func AdminAttachmentPresign(svc attachments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "attachment service unavailable"))
			return
		}

		leadID, err := pathUUID(r, "leadID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req presignAttachmentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out, err := svc.PresignUpload(r.Context(), leadID, attachments.PresignInput{
			Kind:        req.Kind,
			FileName:    req.FileName,
			ContentType: req.ContentType,
			SizeBytes:   req.SizeBytes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, out)
	}
}

type confirmAttachmentRequest struct {
	SizeBytes int64 `json:"size_bytes" validate:"required,gt=0"`
}

// AdminAttachmentConfirm marks an attachment as uploaded after the client PUT.
func AdminAttachmentConfirm(svc attachments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "attachment service unavailable"))
			return
		}

		attachmentID, err := pathUUID(r, "attachmentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req confirmAttachmentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ConfirmUpload(r.Context(), attachmentID, req.SizeBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "uploaded"})
	}
}

// AdminAttachmentList lists briefing assets for a lead.
func AdminAttachmentList(svc attachments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "attachment service unavailable"))
			return
		}

		leadID, err := pathUUID(r, "leadID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.List(r.Context(), leadID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// AdminAttachmentDownload returns a short-lived signed GET URL.
func AdminAttachmentDownload(svc attachments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "attachment service unavailable"))
			return
		}

		attachmentID, err := pathUUID(r, "attachmentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		url, err := svc.DownloadURL(r.Context(), attachmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"url": url})
	}
}
