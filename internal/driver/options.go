package driver

import (
	"log/slog"

	"github.com/roach88/tabula/internal/value"
)

// Options configures a driver at construction.
type Options struct {
	// InitialData pre-populates tables. Seed records go through Create,
	// so missing ids are generated and duplicates fail with Conflict.
	InitialData map[string][]*value.Record

	// StrictMode turns missing-record results of Update and Delete into
	// NotFound errors.
	StrictMode bool

	// Logger receives Debug logs for mutations. Defaults to slog.Default().
	Logger *slog.Logger

	// IDs generates identifiers for records created without one.
	// Defaults to UUIDv7Generator.
	IDs IDGenerator

	// Clock stamps created_at and updated_at. Defaults to SystemClock.
	Clock Clock
}

// Option mutates Options.
type Option func(*Options)

// WithInitialData sets the seed records.
func WithInitialData(data map[string][]*value.Record) Option {
	return func(o *Options) {
		o.InitialData = data
	}
}

// WithStrictMode sets the NotFound policy.
func WithStrictMode(strict bool) Option {
	return func(o *Options) {
		o.StrictMode = strict
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithIDGenerator sets the identifier generator.
//
// Use a fixed generator in tests for reproducible ids.
func WithIDGenerator(ids IDGenerator) Option {
	return func(o *Options) {
		o.IDs = ids
	}
}

// WithClock sets the timestamp source.
func WithClock(clock Clock) Option {
	return func(o *Options) {
		o.Clock = clock
	}
}

// NewOptions applies opts over the defaults.
func NewOptions(opts ...Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o.Normalize()
}

// Normalize returns o with unset fields defaulted.
func (o Options) Normalize() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.IDs == nil {
		o.IDs = UUIDv7Generator{}
	}
	if o.Clock == nil {
		o.Clock = SystemClock{}
	}
	return o
}
