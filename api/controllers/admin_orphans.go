package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/brunotavares/sorrisodigital-backend/api/responses"
	"github.com/brunotavares/sorrisodigital-backend/api/validators"
	"github.com/brunotavares/sorrisodigital-backend/internal/orphans"
	pkgerrors "github.com/brunotavares/sorrisodigital-backend/pkg/errors"
	"github.com/brunotavares/sorrisodigital-backend/pkg/logger"
)

// AdminOrphanList serves the review queue of deliveries that matched no lead.
func AdminOrphanList(svc orphans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orphan service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := orphans.ListParams{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("include_resolved")); raw != "" {
			value, err := strconv.ParseBool(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid include_resolved value"))
				return
			}
			params.IncludeResolved = value
		}

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminOrphanResolve marks an orphan event as handled by the acting admin.
func AdminOrphanResolve(svc orphans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orphan service unavailable"))
			return
		}

		aid, err := adminID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orphanID, err := pathUUID(r, "orphanID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orphan, err := svc.Resolve(r.Context(), orphanID, aid)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orphan)
	}
}
