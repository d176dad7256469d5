package postingrules

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes posting-rule and document-posting endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

type mappingRequest struct {
	Key       string `json:"key" validate:"required"`
	AccountID int64  `json:"account_id" validate:"required"`
}

type mappingResponse struct {
	DocType   string `json:"doc_type"`
	Key       string `json:"key"`
	AccountID int64  `json:"account_id"`
}

type postDocumentRequest struct {
	ID          string `json:"id" validate:"required,uuid"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	DueDate     string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Subtotal    string `json:"subtotal"`
	Tax         string `json:"tax"`
	Amount      string `json:"amount"`
	Gross       string `json:"gross"`
	Withholding string `json:"withholding"`
	Cost        string `json:"cost"`
	AccumDepr   string `json:"accum_depr"`
	Proceeds    string `json:"proceeds"`
	Memo        string `json:"memo"`
}

// MountRoutes registers posting-rule routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/types/{docType}/mappings", h.ListMappings)
	r.Put("/types/{docType}/mappings", h.SetMapping)
	r.Post("/types/{docType}/post", h.PostDocument)
}

func (h *Handler) ListMappings(w http.ResponseWriter, r *http.Request) {
	docType := strings.ToUpper(chi.URLParam(r, "docType"))
	mappings, err := h.service.ListMappings(r.Context(), internalshared.TenantFromContext(r.Context()), docType)
	if err != nil {
		h.logger.Error("list mappings", slog.String("doc_type", docType), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]mappingResponse, 0, len(mappings))
	for _, m := range mappings {
		out = append(out, mappingResponse{DocType: m.DocType, Key: m.Key, AccountID: m.AccountID})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"mappings": out})
}

func (h *Handler) SetMapping(w http.ResponseWriter, r *http.Request) {
	var req mappingRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	ctx := r.Context()
	err := h.service.SetMapping(ctx, internalshared.ActorFromContext(ctx), AccountMapping{
		TenantID:  internalshared.TenantFromContext(ctx),
		DocType:   strings.ToUpper(chi.URLParam(r, "docType")),
		Key:       strings.ToUpper(req.Key),
		AccountID: req.AccountID,
	})
	if err != nil {
		h.logger.Warn("set mapping", slog.String("key", req.Key), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PostDocument(w http.ResponseWriter, r *http.Request) {
	docType := strings.ToUpper(chi.URLParam(r, "docType"))
	var req postDocumentRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	doc, err := buildDocument(docType, req)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	ctx := r.Context()
	entry, err := h.service.PostDocument(ctx, internalshared.TenantFromContext(ctx), internalshared.ActorFromContext(ctx), docType, doc)
	if err != nil {
		h.logger.Warn("post document", slog.String("doc_type", docType), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"entry_id": entry.ID,
		"number":   entry.Number,
	})
}

func buildDocument(docType string, req postDocumentRequest) (any, error) {
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, err
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, err
	}
	var dueAt time.Time
	if req.DueDate != "" {
		dueAt, err = time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			return nil, err
		}
	}
	amount := func(raw string) (decimal.Decimal, error) {
		if raw == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(raw)
	}
	switch docType {
	case DocTypeInvoice, DocTypeBill:
		subtotal, err := amount(req.Subtotal)
		if err != nil {
			return nil, err
		}
		tax, err := amount(req.Tax)
		if err != nil {
			return nil, err
		}
		if docType == DocTypeInvoice {
			return Invoice{ID: id, IssuedAt: date, DueAt: dueAt, Subtotal: subtotal, Tax: tax, Memo: req.Memo}, nil
		}
		return Bill{ID: id, IssuedAt: date, DueAt: dueAt, Subtotal: subtotal, Tax: tax, Memo: req.Memo}, nil
	case DocTypeExpense:
		total, err := amount(req.Amount)
		if err != nil {
			return nil, err
		}
		return Expense{ID: id, SpentAt: date, Amount: total, Memo: req.Memo}, nil
	case DocTypePayrollRun:
		gross, err := amount(req.Gross)
		if err != nil {
			return nil, err
		}
		withholding, err := amount(req.Withholding)
		if err != nil {
			return nil, err
		}
		return PayrollRun{ID: id, PaidAt: date, Gross: gross, Withholding: withholding, Memo: req.Memo}, nil
	case DocTypeAssetDisposal:
		cost, err := amount(req.Cost)
		if err != nil {
			return nil, err
		}
		accum, err := amount(req.AccumDepr)
		if err != nil {
			return nil, err
		}
		proceeds, err := amount(req.Proceeds)
		if err != nil {
			return nil, err
		}
		return AssetDisposal{ID: id, DisposedAt: date, Cost: cost, AccumulatedDepr: accum, Proceeds: proceeds, Memo: req.Memo}, nil
	}
	return nil, errUnknownDocType(docType)
}

type errUnknownDocType string

func (e errUnknownDocType) Error() string { return "ledger: unknown document type " + string(e) }
