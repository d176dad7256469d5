package journals

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/ledger/periods"
	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
	_ "github.com/meridian-erp/meridian-erp/testing"
)

func newTestRouter(repo *memoryRepository) http.Handler {
	handler := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), newTestService(repo))
	r := chi.NewRouter()
	r.Route("/journals", handler.MountRoutes)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	ctx := internalshared.ContextWithTenant(context.Background(), testTenant)
	ctx = internalshared.ContextWithActor(ctx, 7)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req.WithContext(ctx))
	return rec
}

func postBody(sourceID string) string {
	return fmt.Sprintf(`{
		"entry_date": "2025-01-15",
		"source_type": "INVOICE",
		"source_id": %q,
		"memo": "January sale",
		"lines": [
			{"account_id": 100, "debit": "150.25"},
			{"account_id": 200, "credit": "150.25"}
		]
	}`, sourceID)
}

func TestPostEndpoint(t *testing.T) {
	repo := newMemoryRepository(openPeriod(), testAccounts())
	router := newTestRouter(repo)

	rec := doRequest(t, router, http.MethodPost, "/journals/", postBody(uuid.NewString()))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Number   string `json:"number"`
		IsPosted bool   `json:"is_posted"`
		Lines    []struct {
			Debit  string `json:"debit"`
			Credit string `json:"credit"`
		} `json:"lines"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "JE-000001", resp.Number)
	assert.True(t, resp.IsPosted)
	require.Len(t, resp.Lines, 2)
	assert.Equal(t, "150.25", resp.Lines[0].Debit)
}

func TestPostEndpointUnbalanced(t *testing.T) {
	repo := newMemoryRepository(openPeriod(), testAccounts())
	router := newTestRouter(repo)

	body := `{
		"entry_date": "2025-01-15",
		"source_type": "INVOICE",
		"source_id": "` + uuid.NewString() + `",
		"lines": [
			{"account_id": 100, "debit": "100"},
			{"account_id": 200, "credit": "90"}
		]
	}`
	rec := doRequest(t, router, http.MethodPost, "/journals/", body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "debits")
}

func TestPostEndpointBadPayload(t *testing.T) {
	repo := newMemoryRepository(openPeriod(), testAccounts())
	router := newTestRouter(repo)

	rec := doRequest(t, router, http.MethodPost, "/journals/", `{"entry_date":"15/01/2025"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := strings.Replace(postBody(uuid.NewString()), `"150.25"`, `"abc"`, 1)
	rec = doRequest(t, router, http.MethodPost, "/journals/", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostEndpointClosedPeriod(t *testing.T) {
	period := openPeriod()
	period.Status = periods.PeriodStatusClosed
	repo := newMemoryRepository(period, testAccounts())
	router := newTestRouter(repo)

	rec := doRequest(t, router, http.MethodPost, "/journals/", postBody(uuid.NewString()))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestReverseEndpoint(t *testing.T) {
	repo := newMemoryRepository(openPeriod(), testAccounts())
	router := newTestRouter(repo)

	rec := doRequest(t, router, http.MethodPost, "/journals/", postBody(uuid.NewString()))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/journals/1/reverse", `{"memo":"billing error"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"is_reversal":true`)
	assert.Contains(t, rec.Body.String(), `"reversed_entry_id":1`)
	assert.Contains(t, rec.Body.String(), "billing error")

	rec = doRequest(t, router, http.MethodPost, "/journals/1/reverse", "")
	require.Equal(t, http.StatusConflict, rec.Code, "second reversal must conflict")
}

func TestGetEndpoint(t *testing.T) {
	repo := newMemoryRepository(openPeriod(), testAccounts())
	router := newTestRouter(repo)

	rec := doRequest(t, router, http.MethodPost, "/journals/", postBody(uuid.NewString()))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/journals/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"number":"JE-000001"`)

	rec = doRequest(t, router, http.MethodGet, "/journals/42", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
