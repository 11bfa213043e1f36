package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/brunotavares/sorrisodigital-backend/api/middleware"
	"github.com/brunotavares/sorrisodigital-backend/api/responses"
	"github.com/brunotavares/sorrisodigital-backend/api/validators"
	"github.com/brunotavares/sorrisodigital-backend/internal/leads"
	"github.com/brunotavares/sorrisodigital-backend/pkg/enums"
	pkgerrors "github.com/brunotavares/sorrisodigital-backend/pkg/errors"
	"github.com/brunotavares/sorrisodigital-backend/pkg/logger"
)

func adminID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.AdminIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid admin id")
	}
	return id, nil
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+param)
	}
	return id, nil
}

// AdminLeadList powers the Kanban board: cursor pagination plus status,
// search and archive filters.
func AdminLeadList(svc leads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lead service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := leads.ListParams{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			Status: strings.TrimSpace(r.URL.Query().Get("status")),
			Search: validators.SanitizeString(r.URL.Query().Get("search"), 160),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("include_archived")); raw != "" {
			value, err := strconv.ParseBool(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid include_archived value"))
				return
			}
			params.IncludeArchived = value
		}

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminLeadGet returns the full lead detail page payload.
func AdminLeadGet(svc leads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lead service unavailable"))
			return
		}

		leadID, err := pathUUID(r, "leadID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.Get(r.Context(), leadID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

type updateLeadStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"omitempty,max=2000"`
}

// AdminLeadUpdateStatus performs a manual Kanban move.
func AdminLeadUpdateStatus(svc leads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lead service unavailable"))
			return
		}

		aid, err := adminID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		leadID, err := pathUUID(r, "leadID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateLeadStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target, err := enums.ParseLeadStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		lead, err := svc.UpdateStatus(r.Context(), leads.UpdateStatusInput{
			LeadID:  leadID,
			Target:  target,
			AdminID: aid,
			Note:    validators.SanitizeString(req.Note, 2000),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, lead)
	}
}

// AdminLeadArchive soft-hides a lead from the board.
func AdminLeadArchive(svc leads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lead service unavailable"))
			return
		}

		aid, err := adminID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		leadID, err := pathUUID(r, "leadID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Archive(r.Context(), leadID, aid); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "archived"})
	}
}

type addLeadNoteRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}

// AdminLeadAddNote appends an internal note to the lead timeline.
func AdminLeadAddNote(svc leads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lead service unavailable"))
			return
		}

		aid, err := adminID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		leadID, err := pathUUID(r, "leadID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req addLeadNoteRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		note, err := svc.AddNote(r.Context(), leadID, aid, req.Body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, note)
	}
}

// AdminLeadNotes lists internal notes for a lead.
func AdminLeadNotes(svc leads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lead service unavailable"))
			return
		}

		leadID, err := pathUUID(r, "leadID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		notes, err := svc.ListNotes(r.Context(), leadID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, notes)
	}
}

// AdminLeadHistory lists the status transition trail for a lead.
func AdminLeadHistory(svc leads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lead service unavailable"))
			return
		}

		leadID, err := pathUUID(r, "leadID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history, err := svc.ListHistory(r.Context(), leadID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, history)
	}
}
