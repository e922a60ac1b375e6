package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func authedRequest(t *testing.T, keys []string, header string) *httptest.ResponseRecorder {
	t.Helper()

	handler := BearerAuth(keys)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/messages", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestBearerAuth_ValidKey(t *testing.T) {
	rec := authedRequest(t, []string{"key-one", "key-two"}, "Bearer key-two")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, expected 200", rec.Code)
	}
}

func TestBearerAuth_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic key-one"},
		{"empty key", "Bearer "},
		{"unknown key", "Bearer nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := authedRequest(t, []string{"key-one"}, tt.header)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, expected 401", rec.Code)
			}
		})
	}
}

func TestGenerateAPIKey(t *testing.T) {
	a, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	b, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	if len(a) != 64 {
		t.Errorf("key length = %d, expected 64 hex chars", len(a))
	}
	if a == b {
		t.Error("expected distinct keys")
	}
}
