package sequences

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes document counter administration.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

type seedRequest struct {
	Prefix  string `json:"prefix"`
	Padding int    `json:"padding"`
}

// MountRoutes registers sequence routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Put("/{docType}", h.Seed)
	r.Post("/{docType}/next", h.Next)
}

func (h *Handler) Seed(w http.ResponseWriter, r *http.Request) {
	docType := chi.URLParam(r, "docType")
	var req seedRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
	}
	ctx := r.Context()
	err := h.service.SeedCounter(ctx, SeedInput{
		TenantID: internalshared.TenantFromContext(ctx),
		ActorID:  internalshared.ActorFromContext(ctx),
		DocType:  docType,
		Prefix:   req.Prefix,
		Padding:  req.Padding,
	})
	if err != nil {
		h.logger.Warn("seed sequence", slog.String("doc_type", docType), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	docType := chi.URLParam(r, "docType")
	ctx := r.Context()
	number, err := h.service.IssueNumber(ctx, internalshared.TenantFromContext(ctx), internalshared.ActorFromContext(ctx), docType)
	if err != nil {
		h.logger.Warn("issue number", slog.String("doc_type", docType), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"doc_type": docType, "number": number})
}
