// Package memory is the in-process driver: every table lives in a Go map
// owned by a Store, and reads run through the shared query pipeline.
//
// Locking: the Store guards its table map; each Table guards its own rows.
// A create holds its table's write lock across the duplicate check and the
// insert, so two concurrent creates of one id cannot both succeed. There is
// no cross-table lock.
//
// Stored records are never modified in place. Update swaps in a new record,
// so readers may hold a snapshot of record pointers after releasing the lock.
package memory
