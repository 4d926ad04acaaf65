package harness

import (
	"github.com/roach88/tabula/internal/value"
)

// Outcomes recorded for steps that did not fail.
const (
	OutcomeOK     = "ok"
	OutcomeAbsent = "absent"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	// Seq is the 1-based step number.
	Seq int64 `json:"seq"`

	Op     string `json:"op"`
	Object string `json:"object"`

	// ID is the addressed identifier, nil for steps without one.
	ID value.Value `json:"-"`

	// Outcome is ok, absent, or the lowercase error kind.
	Outcome string `json:"outcome"`

	// Result is the operation's output. Nil when the step failed or
	// returned nothing.
	Result value.Value `json:"-"`
}

// Value renders the event as a record for canonical serialization.
func (e TraceEvent) Value() *value.Record {
	rec := value.RecordOf(
		value.F("seq", value.Int(e.Seq)),
		value.F("op", value.Text(e.Op)),
		value.F("object", value.Text(e.Object)),
	)
	if e.ID != nil {
		rec.Set("id", e.ID)
	}
	rec.Set("outcome", value.Text(e.Outcome))
	if e.Result != nil {
		rec.Set("result", e.Result)
	}
	return rec
}

// MarshalJSON renders the event with its values in plain JSON.
func (e TraceEvent) MarshalJSON() ([]byte, error) {
	return value.MarshalValue(e.Value())
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success.
	// True if all expect clauses match.
	Pass bool `json:"pass"`

	// Trace contains every executed step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(e TraceEvent) {
	r.Trace = append(r.Trace, e)
}
