package budgets

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes budget endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

type setBudgetRequest struct {
	AccountID int64  `json:"account_id" validate:"required"`
	Amount    string `json:"amount" validate:"required"`
	Notes     string `json:"notes"`
}

type budgetLineResponse struct {
	ID        int64  `json:"id"`
	PeriodID  int64  `json:"period_id"`
	AccountID int64  `json:"account_id"`
	Amount    string `json:"amount"`
	Notes     string `json:"notes,omitempty"`
}

func toBudgetLineResponse(line BudgetLine) budgetLineResponse {
	return budgetLineResponse{
		ID:        line.ID,
		PeriodID:  line.PeriodID,
		AccountID: line.AccountID,
		Amount:    line.Amount.String(),
		Notes:     line.Notes,
	}
}

// MountRoutes registers budget routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/periods/{periodID}", h.ListForPeriod)
	r.Put("/periods/{periodID}", h.Set)
	r.Delete("/periods/{periodID}/accounts/{accountID}", h.Remove)
}

func (h *Handler) ListForPeriod(w http.ResponseWriter, r *http.Request) {
	periodID, err := strconv.ParseInt(chi.URLParam(r, "periodID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid period id")
		return
	}
	lines, err := h.service.ListForPeriod(r.Context(), internalshared.TenantFromContext(r.Context()), periodID)
	if err != nil {
		h.logger.Error("list budget", slog.Int64("period_id", periodID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]budgetLineResponse, 0, len(lines))
	for _, line := range lines {
		out = append(out, toBudgetLineResponse(line))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"lines": out})
}

func (h *Handler) Set(w http.ResponseWriter, r *http.Request) {
	periodID, err := strconv.ParseInt(chi.URLParam(r, "periodID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid period id")
		return
	}
	var req setBudgetRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid amount")
		return
	}
	ctx := r.Context()
	line, err := h.service.Set(ctx, UpsertInput{
		TenantID:  internalshared.TenantFromContext(ctx),
		PeriodID:  periodID,
		AccountID: req.AccountID,
		Amount:    amount,
		Notes:     req.Notes,
		ActorID:   internalshared.ActorFromContext(ctx),
	})
	if err != nil {
		h.logger.Warn("set budget", slog.Int64("period_id", periodID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toBudgetLineResponse(line))
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	periodID, err := strconv.ParseInt(chi.URLParam(r, "periodID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid period id")
		return
	}
	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account id")
		return
	}
	ctx := r.Context()
	if err := h.service.Remove(ctx, internalshared.TenantFromContext(ctx), periodID, accountID, internalshared.ActorFromContext(ctx)); err != nil {
		h.logger.Warn("remove budget", slog.Int64("period_id", periodID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
