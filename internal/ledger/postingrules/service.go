package postingrules

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/ledger/journals"
	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
)

// Poster commits a validated posting. Satisfied by journals.Service.
type Poster interface {
	Post(ctx context.Context, input journals.PostingInput) (journals.JournalEntry, error)
}

// DueDateSetter stamps the source link with a document due date.
type DueDateSetter interface {
	SetDueDate(ctx context.Context, tenant uuid.UUID, sourceID uuid.UUID, dueDate time.Time) error
}

// Service turns approved source documents into journal entries through the
// rule registry. One approval event maps to at most one entry; duplicates are
// fenced by the idempotency store keyed on the source document id.
type Service struct {
	registry *Registry
	resolver MappingResolver
	mappings *Repository
	idem     *internalshared.IdempotencyStore
	poster   Poster
	due      DueDateSetter
	authz    internalshared.Authorizer
}

// NewService constructs a Service instance.
func NewService(registry *Registry, repo *Repository, idem *internalshared.IdempotencyStore, poster Poster, authz internalshared.Authorizer) *Service {
	return &Service{
		registry: registry,
		resolver: repo,
		mappings: repo,
		idem:     idem,
		poster:   poster,
		due:      repo,
		authz:    authz,
	}
}

// PostDocument builds and posts the journal entry for an approved document.
// A redelivered event returns the idempotency conflict instead of posting
// twice.
func (s *Service) PostDocument(ctx context.Context, tenant uuid.UUID, actor int64, docType string, doc any) (journals.JournalEntry, error) {
	if tenant == uuid.Nil {
		return journals.JournalEntry{}, internalshared.ErrTenantRequired
	}
	meta, err := documentMeta(docType, doc)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	lines, err := s.registry.Build(ctx, s.resolver, tenant, docType, doc)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	if s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, tenant, meta.sourceID.String(), "postingrules:"+docType); err != nil {
			return journals.JournalEntry{}, err
		}
	}
	entry, err := s.poster.Post(ctx, journals.PostingInput{
		TenantID:   tenant,
		EntryDate:  meta.date,
		SourceType: docType,
		SourceID:   meta.sourceID,
		Memo:       meta.memo,
		ActorID:    actor,
		Lines:      lines,
	})
	if err != nil {
		// Release the key so the caller can retry after fixing the cause.
		if s.idem != nil {
			_ = s.idem.Delete(ctx, tenant, meta.sourceID.String())
		}
		return journals.JournalEntry{}, err
	}
	if s.due != nil && !meta.dueAt.IsZero() {
		if err := s.due.SetDueDate(ctx, tenant, meta.sourceID, meta.dueAt); err != nil {
			return entry, fmt.Errorf("ledger: entry %s posted but due date not recorded: %w", entry.Number, err)
		}
	}
	return entry, nil
}

// SetMapping installs or replaces a tenant account mapping.
func (s *Service) SetMapping(ctx context.Context, actor int64, m AccountMapping) error {
	if m.TenantID == uuid.Nil {
		return internalshared.ErrTenantRequired
	}
	if m.AccountID == 0 {
		return errors.New("ledger: mapping account id required")
	}
	if s.authz != nil {
		if err := s.authz.Allow(ctx, m.TenantID, actor, internalshared.CanManageAccounts); err != nil {
			return err
		}
	}
	return s.mappings.Upsert(ctx, m)
}

// ListMappings returns the tenant's mappings for a document type.
func (s *Service) ListMappings(ctx context.Context, tenant uuid.UUID, docType string) ([]AccountMapping, error) {
	return s.mappings.List(ctx, tenant, docType)
}

type docMeta struct {
	sourceID uuid.UUID
	date     time.Time
	dueAt    time.Time
	memo     string
}

func documentMeta(docType string, doc any) (docMeta, error) {
	switch d := doc.(type) {
	case Invoice:
		return docMeta{sourceID: d.ID, date: d.IssuedAt, dueAt: d.DueAt, memo: d.Memo}, nil
	case Bill:
		return docMeta{sourceID: d.ID, date: d.IssuedAt, dueAt: d.DueAt, memo: d.Memo}, nil
	case Expense:
		return docMeta{sourceID: d.ID, date: d.SpentAt, memo: d.Memo}, nil
	case PayrollRun:
		return docMeta{sourceID: d.ID, date: d.PaidAt, memo: d.Memo}, nil
	case AssetDisposal:
		return docMeta{sourceID: d.ID, date: d.DisposedAt, memo: d.Memo}, nil
	default:
		return docMeta{}, fmt.Errorf("ledger: unsupported document %T for %s", doc, docType)
	}
}
