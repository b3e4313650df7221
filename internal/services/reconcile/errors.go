package reconcile

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidationError rejects a single input (a row missing its natural key, an
// unknown entity type). During bulk import the offending row is skipped and
// the batch continues.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError reports a link/unlink/ignore/promote call referencing an
// external record that does not exist for the tenant.
type NotFoundError struct {
	EntityType string
	ID         uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s record %s not found", e.EntityType, e.ID)
}

// ConflictError reports a manual link against a canonical entity that a
// different external record already claims. Both parties are identified so
// the operator can decide; the engine never auto-resolves it.
type ConflictError struct {
	EntityType  string
	CanonicalID uuid.UUID
	HolderID    uuid.UUID
	HolderKey   string
	HolderLabel string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("canonical entity %s is already linked to %s %s (%s)",
		e.CanonicalID, e.EntityType, e.HolderKey, e.HolderLabel)
}
