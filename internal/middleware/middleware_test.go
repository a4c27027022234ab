package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"compdash/internal/domain"
	"compdash/pkg/errors"
	"compdash/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator struct {
	principal *domain.Principal
	err       error
	seen      string
}

func (s *stubValidator) ValidateToken(ctx context.Context, token string) (*domain.Principal, error) {
	s.seen = token
	return s.principal, s.err
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		validator  *stubValidator
		wantStatus int
	}{
		{
			name:       "valid token",
			header:     "Bearer good",
			validator:  &stubValidator{principal: &domain.Principal{UserID: "u-1", Email: "t@x.com"}},
			wantStatus: http.StatusOK,
		},
		{name: "no header", validator: &stubValidator{}, wantStatus: http.StatusUnauthorized},
		{name: "basic scheme", header: "Basic abc", validator: &stubValidator{}, wantStatus: http.StatusUnauthorized},
		{name: "empty bearer", header: "Bearer ", validator: &stubValidator{}, wantStatus: http.StatusUnauthorized},
		{
			name:       "rejected token",
			header:     "Bearer bad",
			validator:  &stubValidator{err: errors.NewAuthenticationError("Token has expired")},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "provider failure is still unauthorized",
			header:     "Bearer bad",
			validator:  &stubValidator{err: errors.NewExternalError("auth down", nil)},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *domain.Principal
			handler := Auth(tt.validator, logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = GetPrincipal(r.Context())
				assert.Equal(t, "good", GetToken(r.Context()))
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				require.NotNil(t, got)
				assert.Equal(t, "u-1", got.UserID)
				return
			}

			var body errors.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, errors.ErrorTypeAuthentication, body.Error.Type)
			assert.Nil(t, got)
		})
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-1")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "upstream-1", seen)
}

func TestCORS(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"https://dash.example.com"}
	handler := CORS(cfg, logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		method     string
		origin     string
		wantOrigin string
		wantStatus int
	}{
		{name: "allowed origin", method: http.MethodGet, origin: "https://dash.example.com", wantOrigin: "https://dash.example.com", wantStatus: http.StatusOK},
		{name: "other origin", method: http.MethodGet, origin: "https://evil.example.com", wantStatus: http.StatusOK},
		{name: "preflight", method: http.MethodOptions, origin: "https://dash.example.com", wantOrigin: "https://dash.example.com", wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/me", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
			assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")
		})
	}
}

func TestObserve_RoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Observe(logger.NewNop()))
	var pattern string
	r.Get("/api/submissions/{kind}", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.With(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req)
			pattern = routePattern(req)
		})
	}).Get("/api/bugs", func(w http.ResponseWriter, req *http.Request) {})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/submissions/bugs", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bugs", nil))
	assert.Equal(t, "/api/bugs", pattern)
}
