package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on records(object, seq) for ordered scans
// 2 - Revisions drawn from the global "rev" counter; '$' keys escaped in documents
const currentSchemaVersion = 2

// errDuplicate reports a primary-key collision on insert.
var errDuplicate = errors.New("duplicate record id")

// row is one stored record before decoding.
type row struct {
	id   string
	rev  int64
	data []byte
}

// Store owns the SQLite connection and the records table.
type Store struct {
	db *sql.DB
}

// OpenStore creates or opens a SQLite database at path and applies pragmas
// and migrations. ":memory:" opens a private in-memory database.
//
// This function is idempotent - safe to call multiple times on one file.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps a
	// ":memory:" database from splitting across pool connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if version < 2 {
		if err := migrateToV2(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_records_object_seq
		ON records(object, seq)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// migrateToV2 starts the rev counter above every stored revision.
func migrateToV2(db *sql.DB) error {
	_, err := db.Exec(`
		INSERT OR IGNORE INTO counters (name, value)
		SELECT 'rev', COALESCE(MAX(rev), 0) FROM records
	`)
	if err != nil {
		return fmt.Errorf("migrate to v2: %w", err)
	}
	return nil
}

// nextRev draws the next revision. Revisions are never reused, even for a
// record deleted and created again under the same id.
func nextRev(ctx context.Context, tx *sql.Tx) (int64, error) {
	var rev int64
	err := tx.QueryRowContext(ctx,
		`UPDATE counters SET value = value + 1 WHERE name = 'rev' RETURNING value`,
	).Scan(&rev)
	if err != nil {
		return 0, fmt.Errorf("next rev: %w", err)
	}
	return rev, nil
}

// insert stores a new row at the end of the insertion order and returns its
// revision. It returns errDuplicate when (object, id) exists.
func (s *Store) insert(ctx context.Context, object, id string, data []byte) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	rev, err := nextRev(ctx, tx)
	if err != nil {
		return 0, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO records (object, id, seq, rev, data)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM records), ?, ?)
	`, object, id, rev, string(data))
	if isPrimaryKeyViolation(err) {
		return 0, errDuplicate
	}
	if err != nil {
		return 0, err
	}
	return rev, tx.Commit()
}

// get loads one row. It returns sql.ErrNoRows when absent.
func (s *Store) get(ctx context.Context, object, id string) (row, error) {
	r := row{id: id}
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT rev, data FROM records WHERE object = ? AND id = ?`,
		object, id,
	).Scan(&r.rev, &data)
	r.data = []byte(data)
	return r, err
}

// update rewrites one row through fn inside a transaction, so the read and
// the write see the same revision. It returns sql.ErrNoRows when absent.
func (s *Store) update(ctx context.Context, object, id string, fn func(current row) ([]byte, error)) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	current := row{id: id}
	var data string
	err = tx.QueryRowContext(ctx,
		`SELECT rev, data FROM records WHERE object = ? AND id = ?`,
		object, id,
	).Scan(&current.rev, &data)
	if err != nil {
		return 0, err
	}
	current.data = []byte(data)

	next, err := fn(current)
	if err != nil {
		return 0, err
	}

	rev, err := nextRev(ctx, tx)
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE records SET data = ?, rev = ? WHERE object = ? AND id = ?`,
		string(next), rev, object, id,
	); err != nil {
		return 0, err
	}
	return rev, tx.Commit()
}

// remove deletes one row and reports whether it existed.
func (s *Store) remove(ctx context.Context, object, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE object = ? AND id = ?`,
		object, id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// scan returns every row of object in insertion order.
func (s *Store) scan(ctx context.Context, object string) ([]row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, rev, data FROM records WHERE object = ? ORDER BY seq ASC`,
		object,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []row
	for rows.Next() {
		var r row
		var data string
		if err := rows.Scan(&r.id, &r.rev, &data); err != nil {
			return nil, err
		}
		r.data = []byte(data)
		out = append(out, r)
	}
	return out, rows.Err()
}

// count returns the number of rows of object.
func (s *Store) count(ctx context.Context, object string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE object = ?`,
		object,
	).Scan(&n)
	return n, err
}

// Objects returns the names of objects with at least one row, sorted.
func (s *Store) Objects(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT object FROM records ORDER BY object COLLATE BINARY`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func isPrimaryKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
