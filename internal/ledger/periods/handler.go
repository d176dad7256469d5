package periods

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes fiscal calendar endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

type createYearRequest struct {
	Label     string `json:"label" validate:"required"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	Months    int    `json:"months" validate:"required,min=1,max=18"`
}

type periodResponse struct {
	ID        int64  `json:"id"`
	Number    int    `json:"number"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Status    string `json:"status"`
}

func toPeriodResponse(p Period) periodResponse {
	return periodResponse{
		ID:        p.ID,
		Number:    p.Number,
		StartDate: p.StartDate.Format("2006-01-02"),
		EndDate:   p.EndDate.Format("2006-01-02"),
		Status:    string(p.Status),
	}
}

// MountRoutes registers fiscal calendar routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/years", h.ListYears)
	r.Post("/years", h.CreateYear)
	r.Get("/years/{yearID}", h.ListPeriods)
	r.Get("/resolve", h.Resolve)
	r.Post("/{id}/close", h.Close)
	r.Post("/{id}/reopen", h.Reopen)
}

func (h *Handler) CreateYear(w http.ResponseWriter, r *http.Request) {
	var req createYearRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid start_date")
		return
	}
	ctx := r.Context()
	year, generated, err := h.service.CreateYear(ctx, CreateYearInput{
		TenantID:  internalshared.TenantFromContext(ctx),
		Label:     req.Label,
		StartDate: start,
		Months:    req.Months,
		ActorID:   internalshared.ActorFromContext(ctx),
	})
	if err != nil {
		h.logger.Warn("create fiscal year", slog.String("label", req.Label), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]periodResponse, 0, len(generated))
	for _, p := range generated {
		out = append(out, toPeriodResponse(p))
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"id":      year.ID,
		"label":   year.Label,
		"periods": out,
	})
}

func (h *Handler) ListYears(w http.ResponseWriter, r *http.Request) {
	years, err := h.service.ListYears(r.Context(), internalshared.TenantFromContext(r.Context()))
	if err != nil {
		h.logger.Error("list fiscal years", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"years": years})
}

func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	yearID, err := strconv.ParseInt(chi.URLParam(r, "yearID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid year id")
		return
	}
	list, err := h.service.ListPeriods(r.Context(), internalshared.TenantFromContext(r.Context()), yearID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]periodResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toPeriodResponse(p))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"periods": out})
}

func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "date query parameter required as YYYY-MM-DD")
		return
	}
	period, err := h.service.Resolve(r.Context(), internalshared.TenantFromContext(r.Context()), date)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPeriodResponse(period))
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, PeriodStatusClosed)
}

func (h *Handler) Reopen(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, PeriodStatusOpen)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, target PeriodStatus) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid period id")
		return
	}
	ctx := r.Context()
	tenant := internalshared.TenantFromContext(ctx)
	actor := internalshared.ActorFromContext(ctx)
	var period Period
	if target == PeriodStatusClosed {
		period, err = h.service.Close(ctx, tenant, id, actor)
	} else {
		period, err = h.service.Reopen(ctx, tenant, id, actor)
	}
	if err != nil {
		h.logger.Warn("period transition", slog.Int64("id", id), slog.String("target", string(target)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPeriodResponse(period))
}
