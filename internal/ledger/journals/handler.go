package journals

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes journal endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

type postLineRequest struct {
	AccountID int64  `json:"account_id" validate:"required"`
	Debit     string `json:"debit"`
	Credit    string `json:"credit"`
}

type postEntryRequest struct {
	EntryDate  string            `json:"entry_date" validate:"required,datetime=2006-01-02"`
	SourceType string            `json:"source_type" validate:"required"`
	SourceID   string            `json:"source_id" validate:"required,uuid"`
	Memo       string            `json:"memo"`
	Lines      []postLineRequest `json:"lines" validate:"required,min=2,dive"`
}

type reverseRequest struct {
	Memo string `json:"memo"`
}

type lineResponse struct {
	ID        int64  `json:"id"`
	AccountID int64  `json:"account_id"`
	Debit     string `json:"debit"`
	Credit    string `json:"credit"`
}

type entryResponse struct {
	ID              int64          `json:"id"`
	Number          string         `json:"number"`
	PeriodID        int64          `json:"period_id"`
	EntryDate       string         `json:"entry_date"`
	SourceType      string         `json:"source_type"`
	SourceID        string         `json:"source_id"`
	Memo            string         `json:"memo,omitempty"`
	IsPosted        bool           `json:"is_posted"`
	IsReversal      bool           `json:"is_reversal"`
	ReversedEntryID *int64         `json:"reversed_entry_id,omitempty"`
	ReversedByID    *int64         `json:"reversed_by_id,omitempty"`
	Lines           []lineResponse `json:"lines,omitempty"`
}

func toEntryResponse(e JournalEntry) entryResponse {
	out := entryResponse{
		ID:              e.ID,
		Number:          e.Number,
		PeriodID:        e.PeriodID,
		EntryDate:       e.EntryDate.Format("2006-01-02"),
		SourceType:      e.SourceType,
		SourceID:        e.SourceID.String(),
		Memo:            e.Memo,
		IsPosted:        e.IsPosted,
		IsReversal:      e.IsReversal,
		ReversedEntryID: e.ReversedEntryID,
		ReversedByID:    e.ReversedByID,
	}
	for _, line := range e.Lines {
		out.Lines = append(out.Lines, lineResponse{
			ID:        line.ID,
			AccountID: line.AccountID,
			Debit:     line.Debit.String(),
			Credit:    line.Credit.String(),
		})
	}
	return out
}

// MountRoutes registers journal routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Post)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/reverse", h.Reverse)
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	var req postEntryRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	entryDate, err := time.Parse("2006-01-02", req.EntryDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry_date")
		return
	}
	sourceID, err := uuid.Parse(req.SourceID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid source_id")
		return
	}
	lines := make([]LineInput, 0, len(req.Lines))
	for idx, line := range req.Lines {
		debit, err := parseAmount(line.Debit)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "line "+strconv.Itoa(idx)+": invalid debit")
			return
		}
		credit, err := parseAmount(line.Credit)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "line "+strconv.Itoa(idx)+": invalid credit")
			return
		}
		lines = append(lines, LineInput{AccountID: line.AccountID, Debit: debit, Credit: credit})
	}
	ctx := r.Context()
	entry, err := h.service.Post(ctx, PostingInput{
		TenantID:   internalshared.TenantFromContext(ctx),
		EntryDate:  entryDate,
		SourceType: req.SourceType,
		SourceID:   sourceID,
		Memo:       req.Memo,
		ActorID:    internalshared.ActorFromContext(ctx),
		Lines:      lines,
	})
	if err != nil {
		h.logger.Warn("post journal", slog.String("source_type", req.SourceType), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(entry))
}

func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	var req reverseRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
	}
	ctx := r.Context()
	reversal, err := h.service.Reverse(ctx, ReverseInput{
		TenantID: internalshared.TenantFromContext(ctx),
		EntryID:  id,
		ActorID:  internalshared.ActorFromContext(ctx),
		Memo:     req.Memo,
	})
	if err != nil {
		h.logger.Warn("reverse journal", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(reversal))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	entry, err := h.service.Get(r.Context(), internalshared.TenantFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Limit: 50}
	query := r.URL.Query()
	if v := query.Get("period_id"); v != "" {
		filter.PeriodID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := query.Get("from"); v != "" {
		filter.From, _ = time.Parse("2006-01-02", v)
	}
	if v := query.Get("to"); v != "" {
		filter.To, _ = time.Parse("2006-01-02", v)
	}
	if v := query.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := query.Get("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}
	entries, err := h.service.List(r.Context(), internalshared.TenantFromContext(r.Context()), filter)
	if err != nil {
		h.logger.Error("list journals", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": out})
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}
