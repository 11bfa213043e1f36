package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/brunotavares/sorrisodigital-backend/api/responses"
	"github.com/brunotavares/sorrisodigital-backend/api/validators"
	"github.com/brunotavares/sorrisodigital-backend/internal/leads"
	pkgerrors "github.com/brunotavares/sorrisodigital-backend/pkg/errors"
	"github.com/brunotavares/sorrisodigital-backend/pkg/logger"
)

type createLeadRequest struct {
	ClinicName      string          `json:"clinic_name" validate:"required,max=160"`
	ResponsibleName string          `json:"responsible_name" validate:"required,max=160"`
	Email           string          `json:"email" validate:"required,email,max=254"`
	Whatsapp        string          `json:"whatsapp" validate:"required,max=32"`
	City            string          `json:"city" validate:"omitempty,max=120"`
	Plan            string          `json:"plan" validate:"required,max=64"`
	TotalCents      int64           `json:"total_cents" validate:"required,gt=0"`
	Briefing        json.RawMessage `json:"briefing" validate:"omitempty"`
}

type createLeadResponse struct {
	LeadID string `json:"lead_id"`
	Status string `json:"status"`
}

// PublicCreateLead is the marketing-site intake endpoint. It returns only the
// new lead id; everything else stays behind the admin surface.
func PublicCreateLead(svc leads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lead service unavailable"))
			return
		}

		var req createLeadRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lead, err := svc.Create(r.Context(), leads.CreateLeadInput{
			ClinicName:      validators.SanitizeString(req.ClinicName, 160),
			ResponsibleName: validators.SanitizeString(req.ResponsibleName, 160),
			Email:           req.Email,
			Whatsapp:        validators.SanitizeString(req.Whatsapp, 32),
			City:            validators.SanitizeString(req.City, 120),
			Plan:            validators.SanitizeString(req.Plan, 64),
			TotalCents:      req.TotalCents,
			Briefing:        req.Briefing,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, createLeadResponse{
			LeadID: lead.ID.String(),
			Status: lead.Status.String(),
		})
	}
}
