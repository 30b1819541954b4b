package datastore

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	// sqlite registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// timestampLayout is RFC 3339 with fixed-width nanoseconds. RFC3339Nano
// trims trailing zeros, which would break the lexicographic ordering the
// TEXT timestamp column relies on.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// PredictionStore owns the predictions table and is its sole writer; every
// other component consumes read snapshots. Construct it once in main and
// pass the handle to all call sites.
type PredictionStore struct {
	db *sql.DB
}

// NewPredictionStore opens (creating if necessary) the SQLite database at
// dbPath and ensures the schema exists.
func NewPredictionStore(dbPath string) (*PredictionStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &StorageError{Op: "open", Err: err}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}

	// WAL lets readers keep working against a consistent snapshot while a
	// write transaction commits; the busy timeout queues concurrent
	// writers instead of failing them immediately.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, &StorageError{Op: "configure", Err: err}
		}
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &PredictionStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	table := `
		CREATE TABLE IF NOT EXISTS predictions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			filename TEXT NOT NULL,
			predicted_class TEXT NOT NULL,
			confidence REAL NOT NULL,
			timestamp TEXT NOT NULL
		)`
	if _, err := db.Exec(table); err != nil {
		return &StorageError{Op: "init schema", Err: err}
	}

	// Index on timestamp backs the ordering and range-filter contract.
	index := `CREATE INDEX IF NOT EXISTS idx_predictions_timestamp ON predictions(timestamp)`
	if _, err := db.Exec(index); err != nil {
		return &StorageError{Op: "init schema", Err: err}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *PredictionStore) Close() error {
	return s.db.Close()
}

// Insert appends a single prediction and returns its store-assigned ID.
// The id and timestamp are assigned here, never supplied by the caller.
// The write is all-or-nothing: on failure the transaction rolls back and
// previously committed records are untouched.
func (s *PredictionStore) Insert(filename, predictedClass string, confidence float64) (int64, error) {
	return s.insertAt(filename, predictedClass, confidence, time.Now().UTC())
}

func (s *PredictionStore) insertAt(filename, predictedClass string, confidence float64, at time.Time) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, &StorageError{Op: "insert", Err: err}
	}

	result, err := tx.Exec(
		`INSERT INTO predictions (filename, predicted_class, confidence, timestamp) VALUES (?, ?, ?, ?)`,
		filename, predictedClass, confidence, at.Format(timestampLayout),
	)
	if err != nil {
		tx.Rollback()
		return 0, &StorageError{Op: "insert", Err: err}
	}

	id, err := result.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, &StorageError{Op: "insert", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return 0, &StorageError{Op: "insert", Err: err}
	}
	return id, nil
}

// InsertBatch inserts the given items and returns the count actually
// written. Each record is fully written or not written at all; the batch
// as a whole is not atomic, so a mid-batch failure returns the count
// committed so far together with the StorageError. All records of one
// batch share the same timestamp.
func (s *PredictionStore) InsertBatch(items []BatchItem) (int, error) {
	now := time.Now().UTC()
	inserted := 0
	for _, item := range items {
		if _, err := s.insertAt(item.Filename, item.PredictedClass, item.Confidence, now); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

// Query returns records matching the filter, ordered most recent first.
// The id is the tie-break for records sharing a timestamp so the order
// stays deterministic. All filter values travel as bound parameters.
func (s *PredictionStore) Query(filter QueryFilter) ([]PredictionRecord, error) {
	query := `SELECT id, filename, predicted_class, confidence, timestamp FROM predictions`
	var clauses []string
	var args []interface{}

	if filter.MinConfidence != nil || filter.MaxConfidence != nil {
		min, max := 0.0, 1.0
		if filter.MinConfidence != nil {
			min = clampConfidence(*filter.MinConfidence)
		}
		if filter.MaxConfidence != nil {
			max = clampConfidence(*filter.MaxConfidence)
		}
		if min > max {
			min, max = max, min
		}
		clauses = append(clauses, "confidence BETWEEN ? AND ?")
		args = append(args, min, max)
	}
	if filter.PredictedClass != "" {
		clauses = append(clauses, "predicted_class = ?")
		args = append(args, filter.PredictedClass)
	}
	if filter.StartTime != nil {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, filter.StartTime.UTC().Format(timestampLayout))
	}
	if filter.EndTime != nil {
		clauses = append(clauses, "timestamp <= ?")
		args = append(args, filter.EndTime.UTC().Format(timestampLayout))
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY timestamp DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, &StorageError{Op: "query", Err: err}
	}
	defer rows.Close()

	records := []PredictionRecord{}
	for rows.Next() {
		var rec PredictionRecord
		if err := rows.Scan(&rec.ID, &rec.Filename, &rec.PredictedClass, &rec.Confidence, &rec.Timestamp); err != nil {
			return nil, &StorageError{Op: "query", Err: err}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "query", Err: err}
	}

	return records, nil
}

// Statistics summarizes the store: total count, per-class counts, mean
// confidence over all records (nil when the store is empty) and the count
// of records written within the last 24 hours.
func (s *PredictionStore) Statistics() (*PredictionStatistics, error) {
	stats := &PredictionStatistics{PredictionsByClass: map[string]int{}}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM predictions`).Scan(&stats.TotalPredictions); err != nil {
		return nil, &StorageError{Op: "statistics", Err: err}
	}

	rows, err := s.db.Query(`SELECT predicted_class, COUNT(*) FROM predictions GROUP BY predicted_class`)
	if err != nil {
		return nil, &StorageError{Op: "statistics", Err: err}
	}
	defer rows.Close()
	for rows.Next() {
		var class string
		var count int
		if err := rows.Scan(&class, &count); err != nil {
			return nil, &StorageError{Op: "statistics", Err: err}
		}
		stats.PredictionsByClass[class] = count
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "statistics", Err: err}
	}

	var avg sql.NullFloat64
	if err := s.db.QueryRow(`SELECT AVG(confidence) FROM predictions`).Scan(&avg); err != nil {
		return nil, &StorageError{Op: "statistics", Err: err}
	}
	if avg.Valid {
		stats.AverageConfidence = &avg.Float64
	}

	cutoff := time.Now().UTC().Add(-24 * time.Hour).Format(timestampLayout)
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM predictions WHERE timestamp > ?`, cutoff).Scan(&stats.RecentPredictions24h); err != nil {
		return nil, &StorageError{Op: "statistics", Err: err}
	}

	return stats, nil
}

// Delete removes the record with the given id. It returns false when no
// such record exists; a missing record is not an error.
func (s *PredictionStore) Delete(id int64) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM predictions WHERE id = ?`, id)
	if err != nil {
		return false, &StorageError{Op: "delete", Err: err}
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, &StorageError{Op: "delete", Err: err}
	}
	return affected > 0, nil
}

// Clear removes every record and returns the count removed. An empty
// store returns 0 and is not an error.
func (s *PredictionStore) Clear() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM predictions`)
	if err != nil {
		return 0, &StorageError{Op: "clear", Err: err}
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, &StorageError{Op: "clear", Err: err}
	}
	return affected, nil
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
