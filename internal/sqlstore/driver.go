package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/tabula/internal/driver"
	"github.com/roach88/tabula/internal/errdefs"
	"github.com/roach88/tabula/internal/filter"
	"github.com/roach88/tabula/internal/query"
	"github.com/roach88/tabula/internal/value"
)

// Config locates the database.
type Config struct {
	// Path is the SQLite file, or ":memory:".
	Path string

	// CacheSize bounds the decoded-record cache. Zero means DefaultCacheSize.
	CacheSize int
}

// Driver is the SQLite driver.Driver.
type Driver struct {
	store  *Store
	cache  *recordCache
	strict bool
	ids    driver.IDGenerator
	clock  driver.Clock
	logger *slog.Logger
}

var _ driver.Driver = (*Driver)(nil)

// Open opens the database and loads opts' initial data.
//
// Initial data is loaded only into objects that have no rows yet, so
// reopening a file does not collide with its own seed.
func Open(cfg Config, opts ...driver.Option) (*Driver, error) {
	return OpenWithOptions(cfg, driver.NewOptions(opts...))
}

// OpenWithOptions opens the database with an Options value.
func OpenWithOptions(cfg Config, o driver.Options) (*Driver, error) {
	o = o.Normalize()
	if cfg.Path == "" {
		cfg.Path = ":memory:"
	}

	s, err := OpenStore(cfg.Path)
	if err != nil {
		return nil, err
	}
	cache, err := newRecordCache(cfg.CacheSize)
	if err != nil {
		s.Close()
		return nil, err
	}

	d := &Driver{
		store:  s,
		cache:  cache,
		strict: o.StrictMode,
		ids:    o.IDs,
		clock:  o.Clock,
		logger: o.Logger.With("driver", "sqlite"),
	}
	if err := d.seed(context.Background(), o.InitialData); err != nil {
		s.Close()
		return nil, err
	}
	return d, nil
}

func (d *Driver) seed(ctx context.Context, data map[string][]*value.Record) error {
	pending := make(map[string][]*value.Record, len(data))
	for object, records := range data {
		n, err := d.store.count(ctx, object)
		if err != nil {
			return fmt.Errorf("seed %s: %w", object, err)
		}
		if n > 0 {
			d.logger.Debug("seed skipped, object has rows", "object", object, "rows", n)
			continue
		}
		pending[object] = records
	}
	return driver.Seed(ctx, d, pending)
}

// Store exposes the underlying store.
func (d *Driver) Store() *Store {
	return d.store
}

// Connect verifies the database connection.
func (d *Driver) Connect(ctx context.Context) error {
	return d.store.Ping(ctx)
}

// Disconnect closes the database.
func (d *Driver) Disconnect(ctx context.Context) error {
	return d.store.Close()
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
	doc, err := value.EncodeDocument(rec)
	if err != nil {
		return nil, errdefs.WrapInvalidRequest(err, "encode record")
	}

	rev, err := d.store.insert(ctx, object, key, doc)
	if err != nil {
		if errors.Is(err, errDuplicate) {
			conflict := errdefs.Conflict(object, key)
			d.rejected("create", object, key, conflict)
			return nil, conflict
		}
		return nil, fmt.Errorf("sqlstore: create %s/%s: %w", object, key, err)
	}
	d.cache.put(object, key, rev, rec)
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

	key := value.IDKey(id)
	r, err := d.store.get(ctx, object, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: find one %s/%s: %w", object, key, err)
	}
	rec, err := d.cache.decode(object, r)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: decode %s/%s: %w", object, key, err)
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
	if err := q.Validate(); err != nil {
		return nil, err
	}
	records, err := d.load(ctx, object)
	if err != nil {
		return nil, err
	}
	return query.Run(records, q)
}

// Update implements driver.Driver.
func (d *Driver) Update(ctx context.Context, object string, id value.Value, data *value.Record) (*value.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := value.IDKey(id)

	var updated *value.Record
	rev, err := d.store.update(ctx, object, key, func(current row) ([]byte, error) {
		existing, err := d.cache.decode(object, current)
		if err != nil {
			return nil, err
		}
		updated = driver.ApplyUpdate(existing, data, d.clock.Now())
		return value.EncodeDocument(updated)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, d.missing("update", object, key)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: update %s/%s: %w", object, key, err)
	}
	d.cache.put(object, key, rev, updated)
	d.logger.Debug("record updated", "object", object, "id", key, "rev", rev)
	return updated.Clone(), nil
}

// Delete implements driver.Driver.
func (d *Driver) Delete(ctx context.Context, object string, id value.Value) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	key := value.IDKey(id)

	removed, err := d.store.remove(ctx, object, key)
	if err != nil {
		return false, fmt.Errorf("sqlstore: delete %s/%s: %w", object, key, err)
	}
	d.cache.forget(object, key)
	if !removed {
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
		n, err := d.store.count(ctx, object)
		if err != nil {
			return 0, fmt.Errorf("sqlstore: count %s: %w", object, err)
		}
		return n, nil
	}
	if err := filter.Validate(expr); err != nil {
		return 0, err
	}
	records, err := d.load(ctx, object)
	if err != nil {
		return 0, err
	}
	return query.Count(records, expr)
}

// Distinct implements driver.Driver.
func (d *Driver) Distinct(ctx context.Context, object string, field string, expr filter.Expression) ([]value.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := filter.Validate(expr); err != nil {
		return nil, err
	}
	records, err := d.load(ctx, object)
	if err != nil {
		return nil, err
	}
	return query.Distinct(records, field, expr)
}

// load decodes every record of object in insertion order. The records are
// shared with the cache and must not be modified.
func (d *Driver) load(ctx context.Context, object string) ([]*value.Record, error) {
	rows, err := d.store.scan(ctx, object)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: scan %s: %w", object, err)
	}
	out := make([]*value.Record, len(rows))
	for i, r := range rows {
		if out[i], err = d.cache.decode(object, r); err != nil {
			return nil, fmt.Errorf("sqlstore: decode %s/%s: %w", object, r.id, err)
		}
	}
	return out, nil
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
