package sequences

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sequence is a per-tenant, per-document-type counter. Numbers issued are
// strictly increasing and never reused, even under concurrent issuance.
type Sequence struct {
	TenantID  uuid.UUID
	DocType   string
	Prefix    string
	NextValue int64
	Padding   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Format renders the document number for an issued counter value.
func Format(prefix string, value int64, padding int) string {
	if padding <= 0 {
		padding = 6
	}
	return fmt.Sprintf("%s%0*d", prefix, padding, value)
}

// DefaultPrefix derives a prefix for a document type that has no seeded row.
func DefaultPrefix(docType string) string {
	cleaned := strings.ToUpper(strings.TrimSpace(docType))
	if cleaned == "" {
		cleaned = "DOC"
	}
	if len(cleaned) > 3 {
		cleaned = cleaned[:3]
	}
	return cleaned + "-"
}
