package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/tfcanon/tfcanon/pkg/models"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    source_path  TEXT NOT NULL,
    created_at   DATETIME NOT NULL,
    resources    INTEGER DEFAULT 0,
    data_sources INTEGER DEFAULT 0,
    ignored      INTEGER DEFAULT 0,
    hash         TEXT NOT NULL,
    envelope     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS records (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    snapshot_id INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
    address     TEXT NOT NULL,
    type        TEXT NOT NULL,
    name        TEXT NOT NULL,
    service     TEXT NOT NULL,
    mode        TEXT NOT NULL,
    depends     TEXT,
    record      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_source ON snapshots(source_path);
CREATE INDEX IF NOT EXISTS idx_records_snapshot ON records(snapshot_id);
CREATE INDEX IF NOT EXISTS idx_records_address ON records(address);
CREATE INDEX IF NOT EXISTS idx_records_service ON records(service);
`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(wal)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Init creates the database schema if it doesn't exist.
func (s *SQLiteStore) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSnapshot persists a snapshot and its records in one transaction.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap Snapshot, records []models.Record) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (source_path, created_at, resources, data_sources, ignored, hash, envelope)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, snap.SourcePath, snap.CreatedAt.Format(time.RFC3339), snap.Resources,
		snap.DataSources, snap.Ignored, snap.Hash, string(snap.Envelope))
	if err != nil {
		return 0, fmt.Errorf("inserting snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, r := range records {
		recJSON, err := json.Marshal(r)
		if err != nil {
			return 0, fmt.Errorf("marshaling record %s: %w", r.Address, err)
		}
		depends, err := json.Marshal(r.DependsOn)
		if err != nil {
			return 0, fmt.Errorf("marshaling depends_on for %s: %w", r.Address, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO records (snapshot_id, address, type, name, service, mode, depends, record)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, id, r.Address, r.Type, r.Name, string(r.Service), string(r.Mode),
			string(depends), string(recJSON))
		if err != nil {
			return 0, fmt.Errorf("inserting record %s: %w", r.Address, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing snapshot: %w", err)
	}
	return id, nil
}

func scanSnapshot(row interface{ Scan(dest ...any) error }) (*Snapshot, error) {
	var snap Snapshot
	var createdAt, envelope string

	err := row.Scan(&snap.ID, &snap.SourcePath, &createdAt, &snap.Resources,
		&snap.DataSources, &snap.Ignored, &snap.Hash, &envelope)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	snap.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	snap.Envelope = []byte(envelope)
	return &snap, nil
}

const snapshotCols = `id, source_path, created_at, resources, data_sources, ignored, hash, envelope`

// GetSnapshot retrieves a snapshot by ID.
func (s *SQLiteStore) GetSnapshot(ctx context.Context, id int64) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+snapshotCols+` FROM snapshots WHERE id = ?`, id)
	return scanSnapshot(row)
}

// LatestSnapshot returns the newest snapshot, optionally per source path.
func (s *SQLiteStore) LatestSnapshot(ctx context.Context, sourcePath string) (*Snapshot, error) {
	query := `SELECT ` + snapshotCols + ` FROM snapshots`
	var args []any
	if sourcePath != "" {
		query += ` WHERE source_path = ?`
		args = append(args, sourcePath)
	}
	query += ` ORDER BY id DESC LIMIT 1`
	return scanSnapshot(s.db.QueryRowContext(ctx, query, args...))
}

// ListSnapshots returns the most recent snapshots, newest first.
func (s *SQLiteStore) ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+snapshotCols+` FROM snapshots ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // best-effort cleanup

	var snaps []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *snap)
	}
	return snaps, rows.Err()
}

// ListRecords returns the records of a snapshot in stored order.
func (s *SQLiteStore) ListRecords(ctx context.Context, snapshotID int64) ([]models.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM records WHERE snapshot_id = ? ORDER BY id`, snapshotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // best-effort cleanup

	var records []models.Record
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var rec models.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("unmarshaling record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Diff compares two snapshots by address. Duplicate addresses within a
// snapshot are tolerated; the last stored record per address wins for
// comparison purposes.
func (s *SQLiteStore) Diff(ctx context.Context, fromID, toID int64) (*DiffResult, error) {
	fromRecs, err := s.recordJSONByAddress(ctx, fromID)
	if err != nil {
		return nil, err
	}
	toRecs, err := s.recordJSONByAddress(ctx, toID)
	if err != nil {
		return nil, err
	}

	diff := &DiffResult{
		From:    fromID,
		To:      toID,
		Added:   []string{},
		Removed: []string{},
		Changed: []string{},
	}
	for addr, toJSON := range toRecs {
		fromJSON, ok := fromRecs[addr]
		switch {
		case !ok:
			diff.Added = append(diff.Added, addr)
		case fromJSON != toJSON:
			diff.Changed = append(diff.Changed, addr)
		}
	}
	for addr := range fromRecs {
		if _, ok := toRecs[addr]; !ok {
			diff.Removed = append(diff.Removed, addr)
		}
	}
	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Strings(diff.Changed)
	return diff, nil
}

func (s *SQLiteStore) recordJSONByAddress(ctx context.Context, snapshotID int64) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT address, record FROM records WHERE snapshot_id = ? ORDER BY id`, snapshotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // best-effort cleanup

	out := make(map[string]string)
	for rows.Next() {
		var addr, rec string
		if err := rows.Scan(&addr, &rec); err != nil {
			return nil, err
		}
		out[addr] = rec
	}
	return out, rows.Err()
}

// Stats returns store counters.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&st.Snapshots); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&st.Records); err != nil {
		return nil, err
	}
	return &st, nil
}

// Reset deletes all snapshots and records.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM snapshots`)
	return err
}
