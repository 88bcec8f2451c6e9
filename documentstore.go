package elfaes

import (
	"context"

	elfaeserr "github.com/elfaes-go/elfaes/errors"
)

// DocumentStore gets, creates, and compare-and-swaps an ObjectDocument.
type DocumentStore interface {
	// Get fetches the document or fails with NotFound.
	Get(ctx context.Context, objectName, objectID string) (ObjectDocument, error)

	// GetOrCreate fetches the document, creating it on first access.
	// Idempotent: concurrent creators for a fresh identity all observe
	// equal documents.
	GetOrCreate(ctx context.Context, objectName, objectID string) (ObjectDocument, error)

	// Set performs a compare-and-swap on doc.Hash against doc.PrevHash.
	// Succeeds if the stored hash equals doc.PrevHash, or doc.PrevHash
	// is AnyHash; otherwise fails ConcurrencyConflict.
	Set(ctx context.Context, doc ObjectDocument) (ObjectDocument, error)
}

// ErrDocumentNotFound is returned by Get when no document exists for the identity.
func ErrDocumentNotFound(objectName, objectID string) error {
	return elfaeserr.New(elfaeserr.CodeDocNotFound, elfaeserr.KindNotFound,
		"document not found for "+objectName+"/"+objectID)
}

// ErrDocumentConflict is returned by Set on a hash mismatch.
func ErrDocumentConflict(objectName, objectID, expected, actual string) error {
	return &elfaeserr.DocumentConflictError{
		ObjectName:   objectName,
		ObjectID:     objectID,
		ExpectedHash: expected,
		ActualHash:   actual,
	}
}
