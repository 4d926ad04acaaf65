package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/tabula/internal/driver"
	"github.com/roach88/tabula/internal/errdefs"
	"github.com/roach88/tabula/internal/memory"
	"github.com/roach88/tabula/internal/query"
	"github.com/roach88/tabula/internal/sqlstore"
	"github.com/roach88/tabula/internal/testutil"
	"github.com/roach88/tabula/internal/value"
)

// Factory builds a fresh driver for one scenario run.
type Factory func(opts ...driver.Option) (driver.Driver, error)

// Drivers lists the built-in factories by name.
var Drivers = map[string]Factory{
	"memory": func(opts ...driver.Option) (driver.Driver, error) {
		return memory.New(opts...)
	},
	"sqlite": func(opts ...driver.Option) (driver.Driver, error) {
		return sqlstore.Open(sqlstore.Config{Path: ":memory:"}, opts...)
	},
}

// DriverNames returns the built-in driver names in sorted order.
func DriverNames() []string {
	names := make([]string, 0, len(Drivers))
	for name := range Drivers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Harness executes scenario steps against one driver.
type Harness struct {
	driver driver.Driver
	clock  *testutil.FixedClock
	ids    *testutil.SequenceIDs
	logger *slog.Logger
}

// Run executes a scenario against a fresh driver and returns the result.
//
// Each run gets its own driver, a fixed clock starting at testutil.Epoch
// and sequential ids, so a scenario yields the same trace on every driver.
// The returned error covers failures outside the scenario's control
// (bad seed data, a driver that fails to open); expectation mismatches
// land in Result.Errors.
func Run(ctx context.Context, scenario *Scenario, factory Factory) (*Result, error) {
	seed, err := initialData(&scenario.InitialData)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	h := &Harness{
		clock:  testutil.NewFixedClock(),
		ids:    testutil.NewSequenceIDs(scenario.IDPrefix),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	d, err := factory(
		driver.WithClock(h.clock),
		driver.WithIDGenerator(h.ids),
		driver.WithLogger(h.logger),
		driver.WithStrictMode(scenario.StrictMode),
		driver.WithInitialData(seed),
	)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: failed to open driver: %w", scenario.Name, err)
	}
	h.driver = d

	if err := d.Connect(ctx); err != nil {
		return nil, fmt.Errorf("scenario %s: failed to connect: %w", scenario.Name, err)
	}
	defer d.Disconnect(ctx) //nolint:errcheck

	result := NewResult()
	for i := range scenario.Steps {
		step := &scenario.Steps[i]
		event, err := h.execute(ctx, int64(i+1), step)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: steps[%d]: %w", scenario.Name, i, err)
		}
		result.AddTrace(event)
		for _, msg := range checkExpect(event, step) {
			result.AddError(fmt.Sprintf("step %d (%s %s): %s", event.Seq, step.Op, step.Object, msg))
		}
	}
	return result, nil
}

// execute runs one step. Engine errors become the event's outcome; any
// other error aborts the run.
func (h *Harness) execute(ctx context.Context, seq int64, step *Step) (TraceEvent, error) {
	event := TraceEvent{Seq: seq, Op: step.Op, Object: step.Object}

	var id value.Value = value.Null{}
	if step.ID != nil {
		v, err := value.FromAny(step.ID)
		if err != nil {
			return event, fmt.Errorf("id: %w", err)
		}
		id = v
		event.ID = v
	}

	result, err := h.dispatch(ctx, step, id)
	if err != nil {
		code := errdefs.CodeOf(err)
		if code == "" {
			return event, err
		}
		event.Outcome = strings.ToLower(string(code))
		return event, nil
	}

	event.Outcome = OutcomeOK
	if value.IsNull(result) {
		event.Outcome = OutcomeAbsent
		return event, nil
	}
	event.Result = result
	return event, nil
}

func (h *Harness) dispatch(ctx context.Context, step *Step, id value.Value) (value.Value, error) {
	switch step.Op {
	case OpCreate:
		data, err := nodeRecord(&step.Data)
		if err != nil {
			return nil, fmt.Errorf("data: %w", err)
		}
		return asValue(h.driver.Create(ctx, step.Object, data))

	case OpUpdate:
		data, err := nodeRecord(&step.Data)
		if err != nil {
			return nil, fmt.Errorf("data: %w", err)
		}
		return asValue(h.driver.Update(ctx, step.Object, id, data))

	case OpDelete:
		removed, err := h.driver.Delete(ctx, step.Object, id)
		if err != nil {
			return nil, err
		}
		return value.Bool(removed), nil

	case OpFindOne:
		q, err := stepQuery(step)
		if err != nil {
			return nil, err
		}
		return asValue(h.driver.FindOne(ctx, step.Object, id, q))

	case OpFind:
		q, err := stepQuery(step)
		if err != nil {
			return nil, err
		}
		records, err := h.driver.Find(ctx, step.Object, q)
		if err != nil {
			return nil, err
		}
		return recordList(records), nil

	case OpCount:
		expr, err := query.CountFilter(step.Filters)
		if err != nil {
			return nil, err
		}
		n, err := h.driver.Count(ctx, step.Object, expr)
		if err != nil {
			return nil, err
		}
		return value.Int(n), nil

	case OpDistinct:
		expr, err := query.CountFilter(step.Filters)
		if err != nil {
			return nil, err
		}
		vals, err := h.driver.Distinct(ctx, step.Object, step.Field, expr)
		if err != nil {
			return nil, err
		}
		return value.NewList(vals...), nil

	default:
		return nil, fmt.Errorf("unknown op %q", step.Op)
	}
}

// stepQuery decodes the step's query, or nil when the step has none.
func stepQuery(step *Step) (*query.Query, error) {
	if step.Query == nil {
		return nil, nil
	}
	return query.FromAny(step.Query)
}

func asValue(rec *value.Record, err error) (value.Value, error) {
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return value.Null{}, nil
	}
	return rec, nil
}

func recordList(records []*value.Record) value.List {
	list := make(value.List, len(records))
	for i, r := range records {
		list[i] = r
	}
	return list
}
