package reports

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes the reporting endpoints. All reports are GETs with the
// window or as-of date in query parameters.
type Handler struct {
	service *Service
	logger  *slog.Logger
	now     func() time.Time
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, now: time.Now}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/trial-balance", h.TrialBalance)
	r.Get("/general-ledger/{accountID}", h.GeneralLedger)
	r.Get("/profit-loss", h.ProfitAndLoss)
	r.Get("/balance-sheet", h.BalanceSheet)
	r.Get("/aging/receivables", h.ReceivablesAging)
	r.Get("/aging/payables", h.PayablesAging)
	r.Get("/budget-variance/{periodID}", h.BudgetVariance)
	r.Get("/cash-flow", h.CashFlow)
}

func (h *Handler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.window(w, r)
	if !ok {
		return
	}
	report, err := h.service.TrialBalance(r.Context(), internalshared.TenantFromContext(r.Context()), from, to)
	if err != nil {
		h.fail(w, r, "trial balance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) GeneralLedger(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account id")
		return
	}
	from, to, ok := h.window(w, r)
	if !ok {
		return
	}
	report, err := h.service.GeneralLedger(r.Context(), internalshared.TenantFromContext(r.Context()), accountID, from, to)
	if err != nil {
		h.fail(w, r, "general ledger", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) ProfitAndLoss(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.window(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	tenant := internalshared.TenantFromContext(ctx)
	priorFrom, okFrom := parseDay(r.URL.Query().Get("prior_from"))
	priorTo, okTo := parseDay(r.URL.Query().Get("prior_to"))
	if okFrom && okTo {
		report, err := h.service.ComparativeProfitAndLoss(ctx, tenant, from, to, priorFrom, priorTo)
		if err != nil {
			h.fail(w, r, "comparative profit and loss", err)
			return
		}
		httpx.JSON(w, http.StatusOK, report)
		return
	}
	report, err := h.service.ProfitAndLoss(ctx, tenant, from, to)
	if err != nil {
		h.fail(w, r, "profit and loss", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) BalanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf := h.asOf(r)
	ctx := r.Context()
	tenant := internalshared.TenantFromContext(ctx)
	if prior, ok := parseDay(r.URL.Query().Get("prior_as_of")); ok {
		report, err := h.service.ComparativeBalanceSheet(ctx, tenant, asOf, prior)
		if err != nil {
			h.fail(w, r, "comparative balance sheet", err)
			return
		}
		httpx.JSON(w, http.StatusOK, report)
		return
	}
	report, err := h.service.BalanceSheet(ctx, tenant, asOf)
	if err != nil {
		h.fail(w, r, "balance sheet", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) ReceivablesAging(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.ReceivablesAging(r.Context(), internalshared.TenantFromContext(r.Context()), h.asOf(r))
	if err != nil {
		h.fail(w, r, "receivables aging", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) PayablesAging(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.PayablesAging(r.Context(), internalshared.TenantFromContext(r.Context()), h.asOf(r))
	if err != nil {
		h.fail(w, r, "payables aging", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) BudgetVariance(w http.ResponseWriter, r *http.Request) {
	periodID, err := strconv.ParseInt(chi.URLParam(r, "periodID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid period id")
		return
	}
	report, err := h.service.BudgetVariance(r.Context(), internalshared.TenantFromContext(r.Context()), periodID)
	if err != nil {
		h.fail(w, r, "budget variance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) CashFlow(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.window(w, r)
	if !ok {
		return
	}
	report, err := h.service.CashFlow(r.Context(), internalshared.TenantFromContext(r.Context()), from, to)
	if err != nil {
		h.fail(w, r, "cash flow", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) window(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	from, okFrom := parseDay(r.URL.Query().Get("from"))
	to, okTo := parseDay(r.URL.Query().Get("to"))
	if !okFrom || !okTo {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "from and to dates required as YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	if to.Before(from) {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "to must not precede from")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func (h *Handler) asOf(r *http.Request) time.Time {
	if asOf, ok := parseDay(r.URL.Query().Get("as_of")); ok {
		return asOf
	}
	return h.now()
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, report string, err error) {
	h.logger.Error("report failed", slog.String("report", report), slog.Any("error", err))
	httpx.RespondError(w, err)
}

func parseDay(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
