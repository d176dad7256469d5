package auditor

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes the on-demand integrity audit.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/run", h.Run)
}

func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := internalshared.TenantFromContext(ctx)
	report, err := h.service.AuditTenant(ctx, tenant, internalshared.ActorFromContext(ctx))
	if err != nil {
		h.logger.Error("integrity audit", slog.String("tenant", tenant.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if !report.IsBalanced {
		h.logger.Warn("ledger integrity anomalies",
			slog.String("tenant", tenant.String()),
			slog.Int("anomalies", len(report.Anomalies)))
	}
	httpx.JSON(w, http.StatusOK, report)
}
