package auth_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/openvote/backend/internal/auth"
	"github.com/openvote/backend/internal/memstore"
	"github.com/openvote/backend/internal/models"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *memstore.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memstore.NewStore()
	jwtService := auth.NewJWTService("test-secret", 1)
	handler := auth.NewHandler(store, store, jwtService, zap.NewNop())

	router := gin.New()
	router.POST("/auth/register", handler.Register)
	router.POST("/auth/login", handler.Login)
	return router, store
}

func postJSON(t *testing.T, router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRegister(t *testing.T) {
	router, _ := newAuthRouter(t)

	w := postJSON(t, router, "/auth/register", `{"email":"Alice@Example.com","password":"secret1"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body: %s)", w.Code, w.Body.String())
	}
	var body struct {
		Data auth.TokenResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Data.Token == "" {
		t.Error("expected a token in the response")
	}
	if body.Data.User.Email != "alice@example.com" {
		t.Errorf("email = %q, want normalized lowercase", body.Data.User.Email)
	}
	if body.Data.User.Role != models.RoleUser {
		t.Errorf("role = %q, want user", body.Data.User.Role)
	}

	// same email again, case-insensitive
	if w := postJSON(t, router, "/auth/register", `{"email":"alice@example.com","password":"secret1"}`); w.Code != http.StatusBadRequest {
		t.Errorf("duplicate: status = %d, want 400", w.Code)
	}

	// short password
	if w := postJSON(t, router, "/auth/register", `{"email":"bob@example.com","password":"ab"}`); w.Code != http.StatusBadRequest {
		t.Errorf("short password: status = %d, want 400", w.Code)
	}
}

func TestRegisterGate(t *testing.T) {
	router, store := newAuthRouter(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	if err := store.Set(ctx, models.SettingRegistrationsClosed, "true"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if w := postJSON(t, router, "/auth/register", `{"email":"alice@example.com","password":"secret1"}`); w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}

	if err := store.Set(ctx, models.SettingRegistrationsClosed, "false"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if w := postJSON(t, router, "/auth/register", `{"email":"alice@example.com","password":"secret1"}`); w.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", w.Code)
	}
}

func TestLogin(t *testing.T) {
	router, _ := newAuthRouter(t)

	if w := postJSON(t, router, "/auth/register", `{"email":"alice@example.com","password":"secret1"}`); w.Code != http.StatusCreated {
		t.Fatalf("register: status = %d", w.Code)
	}

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "valid", body: `{"email":"alice@example.com","password":"secret1"}`, wantStatus: http.StatusOK},
		{name: "case-insensitive email", body: `{"email":"ALICE@example.com","password":"secret1"}`, wantStatus: http.StatusOK},
		{name: "wrong password", body: `{"email":"alice@example.com","password":"nope"}`, wantStatus: http.StatusUnauthorized},
		{name: "unknown email", body: `{"email":"bob@example.com","password":"secret1"}`, wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, router, "/auth/login", tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body: %s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestEnsureAdmin(t *testing.T) {
	store := memstore.NewStore()
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	if err := auth.EnsureAdmin(ctx, store, "admin@example.com", "changeme", zap.NewNop()); err != nil {
		t.Fatalf("EnsureAdmin() error: %v", err)
	}
	user, err := store.GetByEmail(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error: %v", err)
	}
	if user.Role != models.RoleAdmin {
		t.Errorf("role = %q, want admin", user.Role)
	}

	// second run is a no-op
	if err := auth.EnsureAdmin(ctx, store, "admin@example.com", "changeme", zap.NewNop()); err != nil {
		t.Fatalf("EnsureAdmin() second run error: %v", err)
	}
}
