package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avelazco/labstock-backend/api/responses"
	"github.com/avelazco/labstock-backend/internal/export"
	"github.com/avelazco/labstock-backend/internal/stocklog"
	"github.com/avelazco/labstock-backend/pkg/enums"
	pkgerrors "github.com/avelazco/labstock-backend/pkg/errors"
	"github.com/avelazco/labstock-backend/pkg/logger"
)

func writeAttachmentHeaders(w http.ResponseWriter, format export.Format, prefix string) {
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename(prefix, time.Now())))
}

// ExportComponents streams the component catalog as CSV or JSON.
func ExportComponents(svc *export.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format, err := export.ParseFormat(r.URL.Query().Get("format"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		includeEmpty := r.URL.Query().Get("include_empty") == "true"

		writeAttachmentHeaders(w, format, "components")
		if err := svc.WriteComponents(r.Context(), w, format, includeEmpty); err != nil {
			logg.Error(r.Context(), "component export failed", err)
		}
	}
}

// ExportLogs streams the stock log history as CSV or JSON.
func ExportLogs(svc *export.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format, err := export.ParseFormat(r.URL.Query().Get("format"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter, err := logExportFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		writeAttachmentHeaders(w, format, "stock_logs")
		if err := svc.WriteLogs(r.Context(), w, format, filter); err != nil {
			logg.Error(r.Context(), "log export failed", err)
		}
	}
}

func logExportFilter(r *http.Request) (stocklog.ListFilter, error) {
	var filter stocklog.ListFilter
	query := r.URL.Query()

	if raw := strings.TrimSpace(query.Get("component_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid component id")
		}
		filter.ComponentID = &id
	}
	if raw := strings.TrimSpace(query.Get("action")); raw != "" {
		action := enums.LogAction(raw)
		if !action.IsValid() {
			return filter, pkgerrors.New(pkgerrors.CodeValidation, "invalid action")
		}
		filter.Action = &action
	}
	if raw := strings.TrimSpace(query.Get("from")); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "from must be RFC3339")
		}
		filter.From = &from
	}
	if raw := strings.TrimSpace(query.Get("to")); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "to must be RFC3339")
		}
		filter.To = &to
	}
	return filter, nil
}
