package config

import (
	"github.com/roach88/tabula/internal/driver"
	"github.com/roach88/tabula/internal/memory"
	"github.com/roach88/tabula/internal/sqlstore"
)

// Options returns the driver options the configuration implies.
func (c *Config) Options() []driver.Option {
	return []driver.Option{
		driver.WithStrictMode(c.StrictMode),
		driver.WithInitialData(c.InitialData),
	}
}

// Open builds the configured driver and seeds it. extra options apply after
// the configuration's own, so callers can override them.
func (c *Config) Open(extra ...driver.Option) (driver.Driver, error) {
	opts := append(c.Options(), extra...)
	switch c.Driver {
	case DriverSQLite:
		return sqlstore.Open(sqlstore.Config{Path: c.Database, CacheSize: c.CacheSize}, opts...)
	case DriverMemory, "":
		return memory.New(opts...)
	}
	return nil, &Error{Field: "driver", Message: "unknown driver " + c.Driver}
}
