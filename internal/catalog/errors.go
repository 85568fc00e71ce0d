// internal/catalog/errors.go
package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound reports that a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrArtifactMissing reports that a file row exists but its bytes are gone
// from blob storage. This is storage/database drift, not a bad request.
var ErrArtifactMissing = errors.New("stored artifact missing from blob storage")

// ErrHierarchyMismatch reports that caller-supplied ancestor identifiers do
// not agree with the parent chain already persisted for the entity.
var ErrHierarchyMismatch = errors.New("ancestor identifiers do not match parent chain")

// ReferenceNotFoundError reports a create operation referencing a foreign row
// that does not exist.
type ReferenceNotFoundError struct {
	Entity string
	ID     uint
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %d does not exist", e.Entity, e.ID)
}

func (e *ReferenceNotFoundError) Is(target error) bool { return target == ErrNotFound }

// DependencyNotFoundError reports that a reconciliation step found a missing
// row for an identifier produced by (or handed to) an earlier step.
type DependencyNotFoundError struct {
	Entity string
	ID     uint
}

func (e *DependencyNotFoundError) Error() string {
	return fmt.Sprintf("ingestion dependency %s with ID %d does not exist", e.Entity, e.ID)
}

func (e *DependencyNotFoundError) Is(target error) bool { return target == ErrNotFound }

// IncompleteMetadataError rejects an upload whose extracted metadata lacks
// one of the required fields. Nothing is written when this is returned.
type IncompleteMetadataError struct {
	Missing []string
}

func (e *IncompleteMetadataError) Error() string {
	return fmt.Sprintf("incomplete DICOM metadata: missing %s", strings.Join(e.Missing, ", "))
}
