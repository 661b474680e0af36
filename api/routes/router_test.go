package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avelazco/labstock-backend/pkg/auth"
	"github.com/avelazco/labstock-backend/pkg/config"
	"github.com/avelazco/labstock-backend/pkg/db/models"
	"github.com/avelazco/labstock-backend/pkg/enums"
	"github.com/avelazco/labstock-backend/pkg/logger"
)

type stubUserDirectory struct {
	byID map[uuid.UUID]*models.User
}

func (s *stubUserDirectory) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := s.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func testRouter(t *testing.T) (http.Handler, config.JWTConfig, *stubUserDirectory) {
	t.Helper()
	jwtCfg := config.JWTConfig{Secret: "secret", Issuer: "labstock-test", ExpirationMinutes: 60}
	cfg := &config.Config{
		App: config.AppConfig{Env: "dev", Port: "8080"},
		JWT: jwtCfg,
	}
	directory := &stubUserDirectory{byID: map[uuid.UUID]*models.User{}}
	router := NewRouter(Params{
		Config: cfg,
		Logger: logger.New(logger.Options{ServiceName: "router-test"}),
		Users:  directory,
	})
	return router, jwtCfg, directory
}

func mintToken(t *testing.T, cfg config.JWTConfig, directory *stubUserDirectory, role enums.UserRole) string {
	t.Helper()
	userID := uuid.New()
	directory.byID[userID] = &models.User{
		ID:       userID,
		Email:    "user@lab.test",
		Name:     "Test User",
		Role:     role,
		IsActive: true,
	}
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{
		UserID: userID,
		Email:  "user@lab.test",
		Role:   role,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthEndpointsArePublic(t *testing.T) {
	router, _, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 from /health/live, got %d", resp.Code)
	}
	if resp.Header().Get("X-LabStock-Env") != "dev" {
		t.Fatal("expected environment header on health response")
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	router, _, _ := testRouter(t)

	paths := []string{
		"/api/v1/components",
		"/api/v1/notifications",
		"/api/v1/analytics/dashboard",
		"/api/v1/exports/components",
	}
	for _, path := range paths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 from %s without token, got %d", path, resp.Code)
		}
	}
}

func TestProtectedRoutesRejectUnknownAccount(t *testing.T) {
	router, jwtCfg, _ := testRouter(t)

	token, err := auth.MintAccessToken(jwtCfg, time.Now(), auth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "ghost@lab.test",
		Role:   enums.UserRoleAdmin,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for token without stored account, got %d", resp.Code)
	}
}

func TestRoleGatesOnMutations(t *testing.T) {
	router, jwtCfg, directory := testRouter(t)
	researcher := mintToken(t, jwtCfg, directory, enums.UserRoleResearcher)
	engineer := mintToken(t, jwtCfg, directory, enums.UserRoleEngineer)

	cases := []struct {
		method string
		path   string
		token  string
		want   int
	}{
		{http.MethodPost, "/api/v1/components", researcher, http.StatusForbidden},
		{http.MethodDelete, "/api/v1/components/" + uuid.NewString(), engineer, http.StatusForbidden},
		{http.MethodPost, "/api/v1/components/" + uuid.NewString() + "/inward", engineer, http.StatusForbidden},
		{http.MethodPost, "/api/v1/components/" + uuid.NewString() + "/adjust", engineer, http.StatusForbidden},
		{http.MethodPost, "/api/admin/v1/scanner/run", engineer, http.StatusForbidden},
		{http.MethodGet, "/api/v1/notifications/stats", researcher, http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		req.Header.Set("Authorization", "Bearer "+tc.token)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != tc.want {
			t.Fatalf("%s %s: expected %d, got %d", tc.method, tc.path, tc.want, resp.Code)
		}
	}
}
