package settings_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/openvote/backend/internal/memstore"
	"github.com/openvote/backend/internal/models"
	"github.com/openvote/backend/internal/settings"
)

func newSettingsRouter(t *testing.T) (*gin.Engine, *memstore.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memstore.NewStore()
	handler := settings.NewHandler(store)

	router := gin.New()
	router.GET("/settings", handler.List)
	router.POST("/admin/registrations", handler.ToggleRegistrations)
	return router, store
}

func TestToggleRegistrations(t *testing.T) {
	router, store := newSettingsRouter(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	closed, err := store.RegistrationsClosed(ctx)
	if err != nil {
		t.Fatalf("RegistrationsClosed() error: %v", err)
	}
	if closed {
		t.Fatal("registrations should start open")
	}

	req := httptest.NewRequest(http.MethodPost, "/admin/registrations", bytes.NewReader([]byte(`{"value":true}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	closed, err = store.RegistrationsClosed(ctx)
	if err != nil {
		t.Fatalf("RegistrationsClosed() error: %v", err)
	}
	if !closed {
		t.Error("expected registrations to be closed after toggle")
	}
}

func TestListSettings(t *testing.T) {
	router, store := newSettingsRouter(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	if err := store.Set(ctx, models.SettingRegistrationsClosed, "true"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/settings", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Data[models.SettingRegistrationsClosed] != "true" {
		t.Errorf("settings = %v, want %s=true", body.Data, models.SettingRegistrationsClosed)
	}
}
