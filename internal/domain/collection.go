package domain

import (
	"fmt"
	"time"
)

// Collection is a named, independently queryable partition of embedding
// records. Collections are created implicitly on first insert.
type Collection struct {
	Name        string
	OwnerUserID string
	RecordCount int
	CreatedAt   time.Time
}

// ScopeAll is the sentinel collection scope meaning "search every collection".
const ScopeAll = "all"

// ValidateCollectionName rejects names that would be ambiguous in a scope list.
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("collection name is required")
	}
	if name == ScopeAll {
		return fmt.Errorf("collection name %q is reserved", ScopeAll)
	}
	return nil
}
