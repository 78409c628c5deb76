package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		mode   string
		key    string
		header map[string]string
		want   int
	}{
		{"disabled mode passes through", "none", "s3cret", nil, http.StatusOK},
		{"empty key passes through", "apikey", "", nil, http.StatusOK},
		{"missing header rejected", "apikey", "s3cret", nil, http.StatusUnauthorized},
		{"wrong key rejected", "apikey", "s3cret", map[string]string{"x-api-key": "nope"}, http.StatusUnauthorized},
		{"correct key accepted", "apikey", "s3cret", map[string]string{"x-api-key": "s3cret"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := APIKeyMiddleware(tt.mode, "x-api-key", func() string { return tt.key })
			req := httptest.NewRequest(http.MethodGet, "/api/sources", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			mw(okHandler()).ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAPIKeyMiddleware_HotReload(t *testing.T) {
	key := "first"
	mw := APIKeyMiddleware("apikey", "x-api-key", func() string { return key })
	h := mw(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("x-api-key", "second")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d before reload", w.Code)
	}

	key = "second"
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d after reload, want 200", w.Code)
	}
}
