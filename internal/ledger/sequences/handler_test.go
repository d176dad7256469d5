package sequences

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
	_ "github.com/meridian-erp/meridian-erp/testing"
)

func newTestRouter(svc *Service) http.Handler {
	handler := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	r.Route("/sequences", handler.MountRoutes)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	ctx := internalshared.ContextWithTenant(context.Background(), uuid.MustParse("0b37a9f2-5a62-4f4a-9c58-06a7a1a9a002"))
	ctx = internalshared.ContextWithActor(ctx, 1)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req.WithContext(ctx))
	return rec
}

func TestSeedEndpoint(t *testing.T) {
	seeder := &mockSeeder{}
	svc := NewService(&mockAllocator{}, 3, time.Millisecond)
	svc.WithAdmin(seeder, nil)
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodPut, "/sequences/JE", `{"prefix":"JRNL-","padding":4}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.Equal(t, "JRNL-", seeder.prefix)
	assert.Equal(t, 4, seeder.padding)

	rec = doRequest(t, router, http.MethodPut, "/sequences/invoice", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "INV-", seeder.prefix, "missing body falls back to derived prefix")
}

func TestSeedEndpointForbidden(t *testing.T) {
	svc := NewService(&mockAllocator{}, 3, time.Millisecond)
	svc.WithAdmin(&mockSeeder{}, denyAll{})
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodPut, "/sequences/JE", `{"prefix":"JRNL-"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestNextEndpoint(t *testing.T) {
	svc := NewService(&mockAllocator{}, 3, time.Millisecond)
	noSleep(svc)
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodPost, "/sequences/JE/next", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"number":"JE-000001"`)

	rec = doRequest(t, router, http.MethodPost, "/sequences/JE/next", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"number":"JE-000002"`)
}
