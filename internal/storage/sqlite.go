package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteAdapter is the capable backend: one SQLite database per collection,
// records stored as JSON bodies queried through json_extract, with real
// indexes created by CreateIndex.
type SQLiteAdapter struct {
	db   *sql.DB
	path string
}

// NewSQLiteAdapter opens or creates the collection database at dbPath.
// Parent directories are created if they do not exist.
func NewSQLiteAdapter(dbPath string) (*SQLiteAdapter, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		rev TEXT NOT NULL,
		body TEXT NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteAdapter{db: db, path: dbPath}, nil
}

// Get returns the record with the given id.
func (s *SQLiteAdapter) Get(ctx context.Context, id string) (Record, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM records WHERE id = ?`, id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return nil, fmt.Errorf("%w: %s: corrupt payload", ErrNotFound, id)
	}
	return rec, nil
}

// Put persists rec after the revision check and returns the new revision.
// The read-check-write runs in a single transaction so two writers racing on
// the same record cannot both succeed.
func (s *SQLiteAdapter) Put(ctx context.Context, rec Record) (string, error) {
	id := rec.ID()
	if id == "" {
		return "", fmt.Errorf("record has no _id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var storedRev string
	err = tx.QueryRowContext(ctx, `SELECT rev FROM records WHERE id = ?`, id).Scan(&storedRev)
	exists := err == nil
	if err != nil && err != sql.ErrNoRows {
		return "", err
	}

	callerRev := rec.Rev()
	if exists && callerRev != storedRev {
		return "", fmt.Errorf("%w: %s", ErrConflict, id)
	}
	if !exists && callerRev != "" {
		return "", fmt.Errorf("%w: %s: record was removed", ErrConflict, id)
	}

	newRev, err := nextRevision(storedRev, rec)
	if err != nil {
		return "", err
	}
	stored := make(Record, len(rec))
	for k, v := range rec {
		stored[k] = v
	}
	stored["_rev"] = newRev
	body, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}

	if exists {
		_, err = tx.ExecContext(ctx, `UPDATE records SET rev = ?, body = ? WHERE id = ?`, newRev, string(body), id)
	} else {
		_, err = tx.ExecContext(ctx, `INSERT INTO records (id, rev, body) VALUES (?, ?, ?)`, id, newRev, string(body))
	}
	if err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return newRev, nil
}

// Remove deletes the record with the given id.
func (s *SQLiteAdapter) Remove(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Find compiles scalar equality clauses and sorts to SQL over json_extract.
// Selector values that cannot be expressed in SQL (arrays) fall back to a
// full scan with the shared in-memory matcher.
func (s *SQLiteAdapter) Find(ctx context.Context, q Query) ([]Record, error) {
	where, args, compilable := compileSelector(q.Selector)
	if !compilable {
		return s.findScan(ctx, q)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT body FROM records`)
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	if len(q.Sort) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, f := range q.Sort {
			if !validFieldPath(f.Field) {
				return nil, fmt.Errorf("invalid sort field %q", f.Field)
			}
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "json_extract(body, '$.%s')", f.Field)
			if f.Desc {
				sb.WriteString(" DESC")
			}
		}
	}
	if q.Limit > 0 || q.Skip > 0 {
		limit := q.Limit
		if limit == 0 {
			limit = -1
		}
		fmt.Fprintf(&sb, " LIMIT %d OFFSET %d", limit, q.Skip)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// compileSelector builds the WHERE clause for scalar equality selectors.
// Returns compilable=false when any value needs the in-memory matcher.
func compileSelector(selector map[string]any) (string, []any, bool) {
	if len(selector) == 0 {
		return "", nil, true
	}
	clauses := make([]string, 0, len(selector))
	args := make([]any, 0, len(selector))
	for path, v := range selector {
		if !validFieldPath(path) {
			return "", nil, false
		}
		switch val := v.(type) {
		case string:
			// json_each walks an array element-by-element and yields a
			// scalar as a single row, so one clause covers both plain
			// equality and array-contains (e.g. a tag inside metadata.tags).
			clauses = append(clauses, fmt.Sprintf(
				"EXISTS (SELECT 1 FROM json_each(body, '$.%s') WHERE json_each.value = ?)", path))
			args = append(args, val)
		case bool:
			// json_extract yields 0/1 for JSON booleans.
			if val {
				args = append(args, 1)
			} else {
				args = append(args, 0)
			}
			clauses = append(clauses, fmt.Sprintf("json_extract(body, '$.%s') = ?", path))
		case float64, float32, int, int32, int64, uint:
			args = append(args, val)
			clauses = append(clauses, fmt.Sprintf("json_extract(body, '$.%s') = ?", path))
		default:
			return "", nil, false
		}
	}
	return strings.Join(clauses, " AND "), args, true
}

// findScan loads every record and filters with the shared matcher. Used for
// selector shapes SQL cannot express, such as array-contains on tags.
func (s *SQLiteAdapter) findScan(ctx context.Context, q Query) ([]Record, error) {
	all, err := s.AllRecords(ctx, true)
	if err != nil {
		return nil, err
	}
	matched := make([]Record, 0, len(all))
	for _, rec := range all {
		if matchSelector(rec, q.Selector) {
			matched = append(matched, rec)
		}
	}
	sortRecords(matched, q.Sort)
	return paginate(matched, q.Skip, q.Limit), nil
}

// AllRecords returns every record ordered by id.
func (s *SQLiteAdapter) AllRecords(ctx context.Context, includeRecords bool) ([]Record, error) {
	if !includeRecords {
		rows, err := s.db.QueryContext(ctx, `SELECT id FROM records ORDER BY id`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		var recs []Record
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return nil, err
			}
			recs = append(recs, Record{"_id": id})
		}
		return recs, rows.Err()
	}
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM records ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var recs []Record
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var rec Record
		if err := json.Unmarshal([]byte(body), &rec); err != nil {
			// Corrupt rows are skipped rather than failing the whole query.
			continue
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// CreateIndex creates an expression index over json_extract for each field.
func (s *SQLiteAdapter) CreateIndex(ctx context.Context, spec IndexSpec) error {
	if spec.Name == "" || len(spec.Fields) == 0 {
		return fmt.Errorf("index spec requires a name and at least one field")
	}
	exprs := make([]string, 0, len(spec.Fields))
	for _, f := range spec.Fields {
		if !validFieldPath(f.Field) {
			return fmt.Errorf("invalid index field %q", f.Field)
		}
		expr := fmt.Sprintf("json_extract(body, '$.%s')", f.Field)
		if f.Desc {
			expr += " DESC"
		}
		exprs = append(exprs, expr)
	}
	stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %q ON records (%s)", "idx_"+spec.Name, strings.Join(exprs, ", "))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create index %s: %w", spec.Name, err)
	}
	return nil
}

// Info reports the record count and the database file size.
func (s *SQLiteAdapter) Info(ctx context.Context) (Info, error) {
	var info Info
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&info.Records); err != nil {
		return Info{}, err
	}
	if fi, err := os.Stat(s.path); err == nil {
		info.SizeBytes = fi.Size()
	}
	return info, nil
}

// Compact reclaims free pages.
func (s *SQLiteAdapter) Compact(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `VACUUM`)
	return err
}

// Destroy drops all records and removes the database file.
func (s *SQLiteAdapter) Destroy(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return err
	}
	if err := s.db.Close(); err != nil {
		return err
	}
	for _, p := range []string{s.path, s.path + "-wal", s.path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteAdapter) Close() error {
	return s.db.Close()
}
