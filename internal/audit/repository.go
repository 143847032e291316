// Package audit persists listener lifecycle transitions to the
// listener_audit table and serves them back for the control plane.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry is one listener state transition as recorded by Recorder.
type Entry struct {
	ID        string    `json:"id"`
	Port      int       `json:"port"`
	Protocol  string    `json:"protocol"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Reason    string    `json:"reason"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter selects entries. Zero fields match everything.
type Filter struct {
	Port     int
	Protocol string    // udp or tcp, any case
	Reason   string    // one of the listener.Reason* values
	Since    time.Time // entries at or after this instant
	Limit    int       // page size, defaultLimit when <= 0, capped at maxLimit
	Offset   int
}

// ListResult is one page of entries plus the total matching Filter.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository stores listener transitions.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

const (
	defaultLimit = 50
	maxLimit     = 200
)

const entryColumns = "id, port, protocol, from_state, to_state, reason, error, created_at"

// SQLiteRepository reads and writes the listener_audit table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository wraps a migrated database handle.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create stores e, filling in ID and CreatedAt when they are empty.
func (r *SQLiteRepository) Create(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = "aud-" + uuid.NewString()[:8]
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	var errText sql.NullString
	if e.Error != "" {
		errText = sql.NullString{String: e.Error, Valid: true}
	}

	if _, err := r.db.ExecContext(ctx,
		"INSERT INTO listener_audit ("+entryColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		e.ID, e.Port, strings.ToLower(e.Protocol), e.From, e.To, e.Reason, errText, stamp(e.CreatedAt),
	); err != nil {
		return fmt.Errorf("inserting audit entry for port %d: %w", e.Port, err)
	}
	return nil
}

// stamp formats t so that text ordering matches time ordering.
func stamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

// page applies the Limit and Offset bounds.
func (f Filter) page() Filter {
	switch {
	case f.Limit <= 0:
		f.Limit = defaultLimit
	case f.Limit > maxLimit:
		f.Limit = maxLimit
	}
	f.Offset = max(f.Offset, 0)
	return f
}

// where renders the filter as a WHERE clause with positional arguments.
func (f Filter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		conds = append(conds, cond)
		args = append(args, arg)
	}

	if f.Port != 0 {
		add("port = ?", f.Port)
	}
	if f.Protocol != "" {
		add("protocol = ?", strings.ToLower(f.Protocol))
	}
	if f.Reason != "" {
		add("reason = ?", f.Reason)
	}
	if !f.Since.IsZero() {
		add("created_at >= ?", stamp(f.Since))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns one page of matching entries, newest first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	filter = filter.page()
	where, args := filter.where()

	res := &ListResult{Entries: []Entry{}, Limit: filter.Limit, Offset: filter.Offset}
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM listener_audit"+where, args...,
	).Scan(&res.Total); err != nil {
		return nil, fmt.Errorf("counting audit entries: %w", err)
	}
	if res.Total <= filter.Offset {
		return res, nil
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM listener_audit"+where+
			" ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?",
		append(args, filter.Limit, filter.Offset)...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		res.Entries = append(res.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading audit entries: %w", err)
	}
	return res, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e       Entry
		errText sql.NullString
		created string
	)
	if err := rows.Scan(&e.ID, &e.Port, &e.Protocol, &e.From, &e.To, &e.Reason, &errText, &created); err != nil {
		return Entry{}, fmt.Errorf("scanning audit entry: %w", err)
	}
	e.Error = errText.String

	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Entry{}, fmt.Errorf("audit entry %s: bad created_at %q: %w", e.ID, created, err)
	}
	e.CreatedAt = t
	return e, nil
}
