package driver

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/tabula/internal/value"
)

// CreateMany creates records in order and returns the stored copies.
//
// It is not atomic: on the first failure it stops and returns the records
// created so far together with the error. Earlier writes stay in place.
func CreateMany(ctx context.Context, d Driver, object string, records []*value.Record) ([]*value.Record, error) {
	created := make([]*value.Record, 0, len(records))
	for i, rec := range records {
		out, err := d.Create(ctx, object, rec)
		if err != nil {
			return created, fmt.Errorf("create %s[%d]: %w", object, i, err)
		}
		created = append(created, out)
	}
	return created, nil
}

// Seed loads initial data into d, one object at a time in name order.
func Seed(ctx context.Context, d Driver, data map[string][]*value.Record) error {
	for _, object := range slices.Sorted(maps.Keys(data)) {
		if _, err := CreateMany(ctx, d, object, data[object]); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}
	return nil
}
