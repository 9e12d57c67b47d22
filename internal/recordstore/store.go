// Package recordstore holds the storage-independent rules for the student collection:
// id allocation, search, position lookup and status changes.
package recordstore

import (
	"context"
	"errors"

	"github.com/noah-isme/sma-enrollment/internal/models"
)

// NotFound is returned by the lookup helpers when no record qualifies.
const NotFound = -1

// ErrRecordNotFound reports an index that does not address a stored record.
var ErrRecordNotFound = errors.New("could not locate record")

// Store persists the whole collection at once.
//
// LoadAll never fails: an unreadable or corrupt backend yields an empty collection.
// SaveAll replaces everything previously stored with records, in order.
type Store interface {
	LoadAll(ctx context.Context) []models.StudentRecord
	SaveAll(ctx context.Context, records []models.StudentRecord) error
}
