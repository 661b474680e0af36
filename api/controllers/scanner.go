package controllers

import (
	"net/http"

	"github.com/avelazco/labstock-backend/api/responses"
	"github.com/avelazco/labstock-backend/internal/scanner"
	pkgerrors "github.com/avelazco/labstock-backend/pkg/errors"
	"github.com/avelazco/labstock-backend/pkg/logger"
)

// ScannerRun triggers both health scans on demand.
func ScannerRun(s *scanner.Scanner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lowStock, err := s.ScanLowStock(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "low stock scan"))
			return
		}
		staleStock, err := s.ScanStaleStock(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stale stock scan"))
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"low_stock":   lowStock,
			"stale_stock": staleStock,
		})
	}
}
