package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/avelazco/labstock-backend/api/middleware"
	"github.com/avelazco/labstock-backend/pkg/enums"
)

// actorID extracts the authenticated user's UUID from the request context.
// Returns nil when the context carries no parseable user id.
func actorID(r *http.Request) *uuid.UUID {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

func actorRole(r *http.Request) enums.UserRole {
	return enums.UserRole(middleware.RoleFromContext(r.Context()))
}
