package memory

import (
	"context"
	"log/slog"

	"github.com/roach88/tabula/internal/driver"
	"github.com/roach88/tabula/internal/errdefs"
	"github.com/roach88/tabula/internal/filter"
	"github.com/roach88/tabula/internal/query"
	"github.com/roach88/tabula/internal/value"
)

// Driver is the in-memory driver.Driver.
type Driver struct {
	store  *Store
	strict bool
	ids    driver.IDGenerator
	clock  driver.Clock
	logger *slog.Logger
}

var _ driver.Driver = (*Driver)(nil)

// New creates a driver and loads opts' initial data.
//
// A seed failure (a duplicate id, an invalid id) is returned; the
// partially seeded driver is discarded.
func New(opts ...driver.Option) (*Driver, error) {
	return NewWithOptions(driver.NewOptions(opts...))
}

// NewWithOptions creates a driver from an Options value.
func NewWithOptions(o driver.Options) (*Driver, error) {
	o = o.Normalize()
	d := &Driver{
		store:  NewStore(),
		strict: o.StrictMode,
		ids:    o.IDs,
		clock:  o.Clock,
		logger: o.Logger.With("driver", "memory"),
	}
	if err := driver.Seed(context.Background(), d, o.InitialData); err != nil {
		return nil, err
	}
	return d, nil
}

// Store exposes the underlying store.
func (d *Driver) Store() *Store {
	return d.store
}

// Connect is a no-op.
func (d *Driver) Connect(ctx context.Context) error {
	return ctx.Err()
}

// Disconnect is a no-op; the data stays readable.
func (d *Driver) Disconnect(ctx context.Context) error {
	return nil
}

// Create implements driver.Driver.
func (d *Driver) Create(ctx context.Context, object string, data *value.Record) (*value.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, key, err := driver.PrepareCreate(data, d.ids, d.clock.Now())
	if err != nil {
		d.rejected("create", object, "", err)
		return nil, err
	}
	if !d.store.Ensure(object).Insert(key, rec) {
		err := errdefs.Conflict(object, key)
		d.rejected("create", object, key, err)
		return nil, err
	}
	d.logger.Debug("record created", "object", object, "id", key)
	return rec.Clone(), nil
}

// FindOne implements driver.Driver.
func (d *Driver) FindOne(ctx context.Context, object string, id value.Value, q *query.Query) (*value.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if value.IsNull(id) {
		return d.findFirst(ctx, object, q)
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	t := d.store.Table(object)
	if t == nil {
		return nil, nil
	}
	rec, ok := t.Get(value.IDKey(id))
	if !ok {
		return nil, nil
	}
	if q != nil && len(q.Fields) > 0 {
		return rec.Project(q.Fields), nil
	}
	return rec.Clone(), nil
}

func (d *Driver) findFirst(ctx context.Context, object string, q *query.Query) (*value.Record, error) {
	if q == nil {
		return nil, nil
	}
	first := *q
	if first.Limit == nil || *first.Limit > 1 {
		first = first.WithLimit(1)
	}
	out, err := d.Find(ctx, object, &first)
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return out[0], nil
}

// Find implements driver.Driver.
func (d *Driver) Find(ctx context.Context, object string, q *query.Query) ([]*value.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return query.Run(d.snapshot(object), q)
}

// Update implements driver.Driver.
func (d *Driver) Update(ctx context.Context, object string, id value.Value, data *value.Record) (*value.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := value.IDKey(id)

	var updated *value.Record
	t := d.store.Table(object)
	found := t != nil && t.Replace(key, func(existing *value.Record) *value.Record {
		updated = driver.ApplyUpdate(existing, data, d.clock.Now())
		return updated
	})
	if !found {
		return nil, d.missing("update", object, key)
	}
	d.logger.Debug("record updated", "object", object, "id", key)
	return updated.Clone(), nil
}

// Delete implements driver.Driver.
func (d *Driver) Delete(ctx context.Context, object string, id value.Value) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	key := value.IDKey(id)

	t := d.store.Table(object)
	if t == nil || !t.Remove(key) {
		return false, d.missing("delete", object, key)
	}
	d.logger.Debug("record deleted", "object", object, "id", key)
	return true, nil
}

// Count implements driver.Driver.
func (d *Driver) Count(ctx context.Context, object string, expr filter.Expression) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(expr) == 0 {
		if t := d.store.Table(object); t != nil {
			return t.Len(), nil
		}
		return 0, nil
	}
	return query.Count(d.snapshot(object), expr)
}

// Distinct implements driver.Driver.
func (d *Driver) Distinct(ctx context.Context, object string, field string, expr filter.Expression) ([]value.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return query.Distinct(d.snapshot(object), field, expr)
}

func (d *Driver) snapshot(object string) []*value.Record {
	if t := d.store.Table(object); t != nil {
		return t.Snapshot()
	}
	return nil
}

// missing returns the strict-mode NotFound error, or nil in lenient mode.
func (d *Driver) missing(op, object, key string) error {
	if !d.strict {
		d.logger.Debug("record not found", "op", op, "object", object, "id", key)
		return nil
	}
	err := errdefs.NotFound(object, key)
	d.rejected(op, object, key, err)
	return err
}

func (d *Driver) rejected(op, object, key string, err error) {
	d.logger.Debug("mutation rejected",
		"op", op,
		"object", object,
		"id", key,
		"code", string(errdefs.CodeOf(err)),
		"error", err,
	)
}
