// Package driver defines the contract every storage driver implements and the
// record rules they share.
//
// A driver answers create/findOne/find/update/delete/count/distinct requests
// for named objects (tables) of schema-less records. Two implementations ship
// with this module:
//
//   - memory: the in-process engine (internal/memory)
//   - sqlite: the same semantics persisted in SQLite (internal/sqlstore)
//
// Both run reads through query.Run, so filter, sort, pagination and
// projection behave identically. The rules for identifiers and timestamps
// live here (PrepareCreate, ApplyUpdate) for the same reason.
//
// Every record crossing the contract is a copy. Mutating a returned record
// never changes stored state.
package driver
