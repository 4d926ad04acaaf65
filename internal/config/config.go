// Package config loads driver configuration from CUE.
//
// A configuration file looks like:
//
//	strictMode: true
//	driver:     "sqlite"
//	database:   "tabula.db"
//	cacheSize:  1024
//	initialData: {
//		users: [
//			{id: "u1", name: "Alice", role: "admin"},
//			{name: "Bob"},
//		]
//	}
//
// Every field is optional. Records in initialData keep their declared field
// order; CUE ints load as value.Int and CUE floats as value.Float.
package config

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/tabula/internal/value"
)

// Driver names.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config is a loaded configuration.
type Config struct {
	StrictMode bool
	Driver     string
	Database   string
	CacheSize  int

	// InitialData maps object names to seed records.
	InitialData map[string][]*value.Record

	// Objects lists the InitialData keys in declaration order.
	Objects []string
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Driver:      DriverMemory,
		Database:    ":memory:",
		InitialData: map[string][]*value.Record{},
	}
}

// Error is a configuration error with the CUE position when known.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads a configuration from a .cue file, or from the CUE package in
// a directory.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if !info.IsDir() {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		return Parse(path, src)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return nil, &Error{Field: "load", Message: "no CUE instances loaded from " + path}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}
	v := cuecontext.New().BuildInstance(inst)
	return FromValue(v)
}

// Parse compiles CUE source. filename is used in error positions.
func Parse(filename string, src []byte) (*Config, error) {
	v := cuecontext.New().CompileBytes(src, cue.Filename(filename))
	return FromValue(v)
}

// FromValue decodes a compiled CUE value.
func FromValue(v cue.Value) (*Config, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	cfg := Default()
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		field := iter.Value()
		label := iter.Label()
		switch label {
		case "strictMode":
			cfg.StrictMode, err = field.Bool()
		case "driver":
			cfg.Driver, err = field.String()
			if err == nil && cfg.Driver != DriverMemory && cfg.Driver != DriverSQLite {
				return nil, &Error{
					Field:   "driver",
					Message: fmt.Sprintf("unknown driver %q, must be %q or %q", cfg.Driver, DriverMemory, DriverSQLite),
					Pos:     field.Pos(),
				}
			}
		case "database":
			cfg.Database, err = field.String()
		case "cacheSize":
			var n int64
			n, err = field.Int64()
			cfg.CacheSize = int(n)
			if err == nil && n < 0 {
				return nil, &Error{Field: "cacheSize", Message: "must not be negative", Pos: field.Pos()}
			}
		case "initialData":
			err = decodeInitialData(field, cfg)
		default:
			return nil, &Error{Field: label, Message: "unknown field", Pos: field.Pos()}
		}
		if err != nil {
			return nil, fieldError(label, field, err)
		}
	}
	return cfg, nil
}

func decodeInitialData(v cue.Value, cfg *Config) error {
	objects, err := v.Fields()
	if err != nil {
		return err
	}
	for objects.Next() {
		name := objects.Label()
		list, err := objects.Value().List()
		if err != nil {
			return &Error{
				Field:   "initialData." + name,
				Message: "must be a list of records",
				Pos:     objects.Value().Pos(),
			}
		}

		records := []*value.Record{}
		for i := 0; list.Next(); i++ {
			elem := list.Value()
			data, err := elem.MarshalJSON()
			if err != nil {
				return err
			}
			decoded, err := value.DecodeJSON(data)
			if err != nil {
				return err
			}
			rec, ok := decoded.(*value.Record)
			if !ok {
				return &Error{
					Field:   fmt.Sprintf("initialData.%s[%d]", name, i),
					Message: fmt.Sprintf("must be a record, got %s", decoded.Kind()),
					Pos:     elem.Pos(),
				}
			}
			records = append(records, rec)
		}
		cfg.InitialData[name] = records
		cfg.Objects = append(cfg.Objects, name)
	}
	return nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*Error); ok {
		return err
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &Error{Field: "cue", Message: err.Error()}
	}

	first := errs[0]
	cfgErr := &Error{Field: "cue", Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		cfgErr.Pos = positions[0]
	}
	return cfgErr
}

// fieldError attributes a decode failure to a top-level field.
func fieldError(label string, field cue.Value, err error) error {
	if cfgErr, ok := err.(*Error); ok {
		return cfgErr
	}
	return &Error{Field: label, Message: err.Error(), Pos: field.Pos()}
}
