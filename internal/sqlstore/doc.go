// Package sqlstore is a driver.Driver that keeps records in SQLite.
//
// Every record is one row of the records table:
//   - (object, id): primary key; id is value.IDKey of the record's id
//   - seq: store-wide insertion counter, the pre-sort order of reads
//   - rev: bumped on every update
//   - data: the record as a typed JSON document (value.EncodeDocument)
//
// Filtering, sorting, pagination and projection run in Go through
// query.Run, exactly as in the memory driver, so both drivers answer every
// query identically. SQL only selects an object's rows in seq order.
//
// Decoded records are cached in an LRU keyed by (object, id) and validated
// against rev, so repeated scans skip JSON decoding for unchanged rows.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - one open connection: writes serialize, ":memory:" stays one database
package sqlstore
