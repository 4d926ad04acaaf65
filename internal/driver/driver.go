package driver

import (
	"context"

	"github.com/roach88/tabula/internal/filter"
	"github.com/roach88/tabula/internal/query"
	"github.com/roach88/tabula/internal/value"
)

// Reserved record fields.
const (
	FieldID        = "id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// Driver is the contract orchestration code calls into.
//
// Identifiers are value.Text or numeric values; the table keys records by
// value.IDKey, so Int 1 and Text "1" address the same record.
//
// Error policy:
//   - Create fails with a Conflict error on a duplicate id in any mode.
//   - Update and Delete on a missing record return (nil, nil) and
//     (false, nil) in lenient mode, and a NotFound error in strict mode.
//   - FindOne never reports a missing record as an error.
//   - Malformed filters and queries fail with InvalidRequest.
//
// A missing table reads as an empty one.
type Driver interface {
	// Connect prepares the driver. Drivers with nothing to prepare return nil.
	Connect(ctx context.Context) error

	// Disconnect releases driver resources.
	Disconnect(ctx context.Context) error

	// Create stores a copy of data, generating an id when absent, and
	// returns a copy of the stored record.
	Create(ctx context.Context, object string, data *value.Record) (*value.Record, error)

	// FindOne returns the record with id, or nil when absent.
	//
	// With a non-null id, only q's projection applies. With a null id and a
	// non-nil q, it returns the first record Find would return.
	FindOne(ctx context.Context, object string, id value.Value, q *query.Query) (*value.Record, error)

	// Find runs q over the table and returns record copies.
	Find(ctx context.Context, object string, q *query.Query) ([]*value.Record, error)

	// Update shallow-merges data over the stored record. The id and
	// created_at fields are never replaced; updated_at is refreshed.
	Update(ctx context.Context, object string, id value.Value, data *value.Record) (*value.Record, error)

	// Delete removes the record with id and reports whether one was removed.
	Delete(ctx context.Context, object string, id value.Value) (bool, error)

	// Count returns the number of records matching expr. An empty
	// expression counts the table without evaluating anything.
	Count(ctx context.Context, object string, expr filter.Expression) (int, error)

	// Distinct returns the non-null values of field across records matching
	// expr, in first-occurrence order.
	Distinct(ctx context.Context, object string, field string, expr filter.Expression) ([]value.Value, error)
}
