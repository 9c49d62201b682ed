// Package store implements the engine's persistence boundary on SQLite.
package store

import (
	"database/sql"
	"time"
)

const dateLayout = "2006-01-02"

// SQLStore implements services.LedgerStore on a SQLite database. All
// multi-row writes run inside a single SQL transaction.
type SQLStore struct {
	db *sql.DB
}

// New builds a SQLStore on an open database handle.
func New(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Dates are stored as "YYYY-MM-DD" text so SQLite range comparisons and
// unique-per-date constraints work lexically.

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func parseDate(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatDatePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatDate(*t)
}

func parseDatePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseDate(s.String)
	return &t
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
