package accounts

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
	_ "github.com/meridian-erp/meridian-erp/testing"
)

func newTestRouter(repo *mockRepository) http.Handler {
	svc := NewService(repo, nil, nil, Policy{})
	handler := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	r.Route("/accounts", handler.MountRoutes)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	ctx := internalshared.ContextWithTenant(context.Background(), tenant)
	ctx = internalshared.ContextWithActor(ctx, 1)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req.WithContext(ctx))
	return rec
}

func TestCreateAccountEndpoint(t *testing.T) {
	router := newTestRouter(newMockRepository())

	rec := doRequest(t, router, http.MethodPost, "/accounts/",
		`{"code":"1000","name":"Cash","type":"ASSET"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"code":"1000"`)
	assert.Contains(t, rec.Body.String(), `"normal_balance":"DEBIT"`)
}

func TestCreateAccountEndpointValidation(t *testing.T) {
	router := newTestRouter(newMockRepository())

	rec := doRequest(t, router, http.MethodPost, "/accounts/",
		`{"code":"1000","name":"Cash","type":"GOODWILL"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Bad Request")
}

func TestCreateAccountEndpointDuplicate(t *testing.T) {
	router := newTestRouter(newMockRepository())

	body := `{"code":"1000","name":"Cash","type":"ASSET"}`
	rec := doRequest(t, router, http.MethodPost, "/accounts/", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/accounts/", body)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetAccountEndpoint(t *testing.T) {
	repo := newMockRepository()
	router := newTestRouter(repo)

	rec := doRequest(t, router, http.MethodPost, "/accounts/",
		`{"code":"1000","name":"Cash","type":"ASSET"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/accounts/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Cash"`)

	rec = doRequest(t, router, http.MethodGet, "/accounts/99", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/accounts/nope", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeactivateEndpoint(t *testing.T) {
	repo := newMockRepository()
	router := newTestRouter(repo)

	rec := doRequest(t, router, http.MethodPost, "/accounts/",
		`{"code":"1000","name":"Cash","type":"ASSET"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/accounts/1/deactivate", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/accounts/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"is_active":false`)
}

func TestListAccountsEndpoint(t *testing.T) {
	repo := newMockRepository()
	router := newTestRouter(repo)

	for _, body := range []string{
		`{"code":"1000","name":"Cash","type":"ASSET"}`,
		`{"code":"4000","name":"Sales","type":"REVENUE"}`,
	} {
		rec := doRequest(t, router, http.MethodPost, "/accounts/", body)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doRequest(t, router, http.MethodGet, "/accounts/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"1000"`)
	assert.Contains(t, rec.Body.String(), `"code":"4000"`)
}
