package auth

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	id "infrastat/pkg/domain"
	dErrors "infrastat/pkg/domain-errors"
	"infrastat/pkg/requestcontext"
)

type stubValidator struct {
	tenantID id.TenantID
	err      error
}

func (s stubValidator) ExtractTenantID(string) (id.TenantID, error) {
	return s.tenantID, s.err
}

func serve(t *testing.T, validator TenantValidator, authHeader string) (*httptest.ResponseRecorder, id.TenantID) {
	t.Helper()
	var seen id.TenantID
	handler := RequireAuth(validator, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = requestcontext.TenantID(r.Context())
			w.WriteHeader(http.StatusNoContent)
		}))

	req := httptest.NewRequest(http.MethodGet, "/infrastat/batches", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func TestRequireAuthAcceptsValidToken(t *testing.T) {
	tenantID := id.TenantID(uuid.New())
	rec, seen := serve(t, stubValidator{tenantID: tenantID}, "Bearer good-token")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, tenantID, seen)
}

func TestRequireAuthRejectsMissingHeader(t *testing.T) {
	rec, _ := serve(t, stubValidator{}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing bearer token")
}

func TestRequireAuthRejectsNonBearerScheme(t *testing.T) {
	rec, _ := serve(t, stubValidator{}, "Basic dXNlcjpwYXNz")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthRejectsInvalidToken(t *testing.T) {
	validator := stubValidator{err: dErrors.New(dErrors.CodeUnauthorized, "invalid token")}
	rec, _ := serve(t, validator, "Bearer bad-token")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid or expired token")
}
