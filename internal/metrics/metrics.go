// Package metrics instruments any driver.Driver with Prometheus counters
// and latency histograms.
package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/tabula/internal/driver"
	"github.com/roach88/tabula/internal/errdefs"
	"github.com/roach88/tabula/internal/filter"
	"github.com/roach88/tabula/internal/query"
	"github.com/roach88/tabula/internal/value"
)

// Status label values besides the lower-cased error codes.
const (
	StatusOK       = "ok"
	StatusAbsent   = "absent"
	StatusCanceled = "canceled"
	StatusError    = "error"
)

// Metrics holds the collectors registered for one registry.
type Metrics struct {
	// OperationsTotal counts driver calls by operation, object and status.
	OperationsTotal *prometheus.CounterVec

	// OperationDuration is the latency of driver calls by operation.
	OperationDuration *prometheus.HistogramVec

	// RecordsReturned counts records handed back by find.
	RecordsReturned *prometheus.CounterVec
}

// New registers the collectors with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabula_operations_total",
				Help: "Total number of driver operations",
			},
			[]string{"operation", "object", "status"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tabula_operation_duration_seconds",
				Help:    "Driver operation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		RecordsReturned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tabula_records_returned_total",
				Help: "Total number of records returned by find",
			},
			[]string{"object"},
		),
	}
}

// Status maps an operation error to its status label.
func Status(err error) string {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StatusCanceled
	}
	if code := errdefs.CodeOf(err); code != "" {
		return strings.ToLower(string(code))
	}
	return StatusError
}

// Instrument wraps d so every call is counted and timed in m.
func Instrument(d driver.Driver, m *Metrics) driver.Driver {
	return &instrumented{next: d, m: m}
}

type instrumented struct {
	next driver.Driver
	m    *Metrics
}

func (i *instrumented) observe(op, object string, start time.Time, status string) {
	i.m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	i.m.OperationsTotal.WithLabelValues(op, object, status).Inc()
}

func (i *instrumented) Connect(ctx context.Context) error {
	return i.next.Connect(ctx)
}

func (i *instrumented) Disconnect(ctx context.Context) error {
	return i.next.Disconnect(ctx)
}

func (i *instrumented) Create(ctx context.Context, object string, data *value.Record) (*value.Record, error) {
	start := time.Now()
	out, err := i.next.Create(ctx, object, data)
	i.observe("create", object, start, Status(err))
	return out, err
}

func (i *instrumented) FindOne(ctx context.Context, object string, id value.Value, q *query.Query) (*value.Record, error) {
	start := time.Now()
	out, err := i.next.FindOne(ctx, object, id, q)
	status := Status(err)
	if err == nil && out == nil {
		status = StatusAbsent
	}
	i.observe("find_one", object, start, status)
	return out, err
}

func (i *instrumented) Find(ctx context.Context, object string, q *query.Query) ([]*value.Record, error) {
	start := time.Now()
	out, err := i.next.Find(ctx, object, q)
	i.observe("find", object, start, Status(err))
	if err == nil {
		i.m.RecordsReturned.WithLabelValues(object).Add(float64(len(out)))
	}
	return out, err
}

func (i *instrumented) Update(ctx context.Context, object string, id value.Value, data *value.Record) (*value.Record, error) {
	start := time.Now()
	out, err := i.next.Update(ctx, object, id, data)
	status := Status(err)
	if err == nil && out == nil {
		status = StatusAbsent
	}
	i.observe("update", object, start, status)
	return out, err
}

func (i *instrumented) Delete(ctx context.Context, object string, id value.Value) (bool, error) {
	start := time.Now()
	removed, err := i.next.Delete(ctx, object, id)
	status := Status(err)
	if err == nil && !removed {
		status = StatusAbsent
	}
	i.observe("delete", object, start, status)
	return removed, err
}

func (i *instrumented) Count(ctx context.Context, object string, expr filter.Expression) (int, error) {
	start := time.Now()
	n, err := i.next.Count(ctx, object, expr)
	i.observe("count", object, start, Status(err))
	return n, err
}

func (i *instrumented) Distinct(ctx context.Context, object string, field string, expr filter.Expression) ([]value.Value, error) {
	start := time.Now()
	out, err := i.next.Distinct(ctx, object, field, expr)
	i.observe("distinct", object, start, Status(err))
	return out, err
}
