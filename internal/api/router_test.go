package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jkorhonen/carrier/internal/config"
)

func testRouterConfig(fake bool) *config.Config {
	return &config.Config{
		API:       config.APIConfig{APIKeys: []string{"test-key"}},
		Languages: []string{"fi", "sv", "en"},
		Directory: config.DirectoryConfig{Fake: fake},
	}
}

func TestRouter_HealthzNoAuth(t *testing.T) {
	r := NewRouter(testRouterConfig(false), newMockQuerier(), nil, nil, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestRouter_MessagesRequireAuth(t *testing.T) {
	r := NewRouter(testRouterConfig(false), newMockQuerier(), nil, nil, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/v1/messages/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, expected 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/messages/"+uuid.New().String(), nil)
	req.Header.Set("Authorization", "Bearer test-key")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("authenticated status = %d, expected 404 for unknown id", rec.Code)
	}
}

func TestRouter_CorrelationIDHeader(t *testing.T) {
	r := NewRouter(testRouterConfig(false), newMockQuerier(), nil, nil, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Correlation-ID"); got != "abc-123" {
		t.Errorf("correlation id = %q, expected passthrough", got)
	}
}

func TestRouter_FakeDirectoryDisabledByDefault(t *testing.T) {
	r := NewRouter(testRouterConfig(false), newMockQuerier(), nil, nil, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/get_contact_info?ids="+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, expected 404 when fake directory is off", rec.Code)
	}
}

func TestRouter_FakeDirectory(t *testing.T) {
	r := NewRouter(testRouterConfig(true), newMockQuerier(), nil, nil, zerolog.Nop())

	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/get_contact_info?ids="+id.String()+",bogus", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var result map[string]map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	record, ok := result[id.String()]
	if !ok || record["email"] == "" || record["language"] != "fi" {
		t.Errorf("record = %+v", record)
	}
	if result["bogus"]["error"] == "" {
		t.Error("expected error record for unparseable id")
	}
}
