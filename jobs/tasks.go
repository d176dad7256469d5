package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/ledger/auditor"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity runs the integrity audit across active tenants.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskIdempotencyCleanup prunes processed idempotency keys.
	TaskIdempotencyCleanup = "ledger:idempotency_cleanup"
)

// IntegrityPayload scopes an integrity run. A nil tenant sweeps every tenant
// with journal activity.
type IntegrityPayload struct {
	TenantID *uuid.UUID `json:"tenant_id,omitempty"`
}

// NewIntegrityTask constructs the integrity audit task.
func NewIntegrityTask(payload IntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data), nil
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}

// NewIntegrityHandler builds the handler for scheduled integrity audits.
// Findings are logged and exported as a metric; the audit never repairs.
func NewIntegrityHandler(logger *slog.Logger, service *auditor.Service, metrics *observability.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload IntegrityPayload
		if len(t.Payload()) > 0 {
			if err := json.Unmarshal(t.Payload(), &payload); err != nil {
				return asynq.SkipRetry
			}
		}
		tenants := []uuid.UUID{}
		if payload.TenantID != nil {
			tenants = append(tenants, *payload.TenantID)
		} else {
			var err error
			tenants, err = service.ActiveTenants(ctx)
			if err != nil {
				return err
			}
		}
		total := 0
		for _, tenant := range tenants {
			report, err := service.AuditTenant(ctx, tenant, 0)
			if err != nil {
				logger.Error("integrity audit failed",
					slog.String("tenant", tenant.String()), slog.Any("error", err))
				return err
			}
			total += len(report.Anomalies)
			if len(report.Anomalies) > 0 {
				logger.Warn("ledger integrity anomalies",
					slog.String("tenant", tenant.String()),
					slog.Int("anomalies", len(report.Anomalies)),
					slog.String("total_debits", report.TotalDebits.String()),
					slog.String("total_credits", report.TotalCredits.String()))
			} else {
				logger.Info("ledger integrity clean", slog.String("tenant", tenant.String()))
			}
		}
		metrics.AuditAnomalies(total)
		return nil
	}
}

// NewIdempotencyCleanupHandler builds the handler that prunes old keys.
func NewIdempotencyCleanupHandler(logger *slog.Logger, store *internalshared.IdempotencyStore, retention time.Duration) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		if retention <= 0 {
			retention = 30 * 24 * time.Hour
		}
		if err := store.Cleanup(ctx, retention); err != nil {
			logger.Error("idempotency cleanup failed", slog.Any("error", err))
			return err
		}
		return nil
	}
}
