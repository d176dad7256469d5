package sequences

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/meridian-erp/meridian-erp/internal/ledger/shared"
	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
)

// AllocatorPort issues the next number for a tenant's document type.
type AllocatorPort interface {
	Next(ctx context.Context, tenant uuid.UUID, docType string) (string, error)
}

// SeederPort provisions a counter with an explicit prefix and padding.
type SeederPort interface {
	Seed(ctx context.Context, tenant uuid.UUID, docType, prefix string, padding int) error
}

// Service wraps the allocator with bounded retries. Contention on the counter
// row is expected under concurrent posting and is not a caller error.
type Service struct {
	repo     AllocatorPort
	seeder   SeederPort
	authz    internalshared.Authorizer
	attempts int
	backoff  time.Duration
	sleep    func(context.Context, time.Duration) error
}

// NewService constructs a Service instance.
func NewService(repo AllocatorPort, attempts int, backoff time.Duration) *Service {
	if attempts <= 0 {
		attempts = 3
	}
	if backoff <= 0 {
		backoff = 25 * time.Millisecond
	}
	return &Service{repo: repo, attempts: attempts, backoff: backoff, sleep: Sleep}
}

// WithAdmin attaches counter provisioning and the capability gate for the
// actor-facing operations.
func (s *Service) WithAdmin(seeder SeederPort, authz internalshared.Authorizer) {
	s.seeder = seeder
	s.authz = authz
}

// Next returns the next document number, retrying transient serialization
// failures before surfacing ErrSequenceExhausted.
func (s *Service) Next(ctx context.Context, tenant uuid.UUID, docType string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < s.attempts; attempt++ {
		number, err := s.repo.Next(ctx, tenant, docType)
		if err == nil {
			return number, nil
		}
		if !IsContention(err) {
			return "", err
		}
		lastErr = err
		if err := s.sleep(ctx, s.backoff*time.Duration(attempt+1)); err != nil {
			return "", err
		}
	}
	return "", errors.Join(shared.ErrSequenceExhausted, lastErr)
}

// SeedInput describes a counter to provision.
type SeedInput struct {
	TenantID uuid.UUID
	ActorID  int64
	DocType  string
	Prefix   string
	Padding  int
}

// SeedCounter provisions or reconfigures a document counter. Reconfiguring
// never rewinds next_value, so already issued numbers stay unique.
func (s *Service) SeedCounter(ctx context.Context, input SeedInput) error {
	if input.TenantID == uuid.Nil {
		return internalshared.ErrTenantRequired
	}
	if input.DocType == "" {
		return errors.New("ledger: doc type required")
	}
	if s.authz != nil {
		if err := s.authz.Allow(ctx, input.TenantID, input.ActorID, internalshared.CanManageAccounts); err != nil {
			return err
		}
	}
	prefix := input.Prefix
	if prefix == "" {
		prefix = DefaultPrefix(input.DocType)
	}
	padding := input.Padding
	if padding <= 0 {
		padding = 6
	}
	return s.seeder.Seed(ctx, input.TenantID, input.DocType, prefix, padding)
}

// IssueNumber hands out a number to a posting-capable actor. Numbers issued
// here are consumed whether or not a document follows.
func (s *Service) IssueNumber(ctx context.Context, tenant uuid.UUID, actor int64, docType string) (string, error) {
	if tenant == uuid.Nil {
		return "", internalshared.ErrTenantRequired
	}
	if docType == "" {
		return "", errors.New("ledger: doc type required")
	}
	if s.authz != nil {
		if err := s.authz.Allow(ctx, tenant, actor, internalshared.CanPost); err != nil {
			return "", err
		}
	}
	return s.Next(ctx, tenant, docType)
}

// IsContention reports whether the error is a transient locking conflict.
func IsContention(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01", "55P03":
		return true
	}
	return false
}

// Sleep waits for d unless ctx is cancelled first.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
