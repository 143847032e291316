package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/cotbridge/internal/infrastructure/database"
	"github.com/nerrad567/cotbridge/internal/listener"
	_ "github.com/nerrad567/cotbridge/migrations"
)

// openTestRepo creates a migrated SQLite database in a temp directory.
func openTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "audit.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestCreate_GeneratesIDAndTimestamp(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	e := &Entry{Port: 9999, Protocol: "udp", From: "NEW", To: "RUNNING", Reason: listener.ReasonStarted}
	if err := repo.Create(ctx, e); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if len(e.ID) != len("aud-")+8 || e.ID[:4] != "aud-" {
		t.Errorf("ID = %q, want aud-xxxxxxxx", e.ID)
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt was not set")
	}

	res, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 1 || len(res.Entries) != 1 {
		t.Fatalf("List() = %+v", res)
	}
	got := res.Entries[0]
	if got.ID != e.ID || got.Port != 9999 || got.To != "RUNNING" || got.Error != "" {
		t.Errorf("entry = %+v", got)
	}
	if !got.CreatedAt.Equal(e.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, e.CreatedAt)
	}
}

func TestList_FiltersAndPagination(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	seed := []Entry{
		{Port: 9999, Protocol: "udp", From: "NEW", To: "NEW", Reason: listener.ReasonAdded},
		{Port: 9999, Protocol: "udp", From: "NEW", To: "RUNNING", Reason: listener.ReasonStarted},
		{Port: 9998, Protocol: "tcp", From: "NEW", To: "NEW", Reason: listener.ReasonAdded},
		{Port: 9998, Protocol: "tcp", From: "NEW", To: "STOPPED", Reason: listener.ReasonBindFailed, Error: "address already in use"},
	}
	for i := range seed {
		seed[i].CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := repo.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	tests := []struct {
		name      string
		filter    Filter
		wantTotal int
		wantFirst string
	}{
		{"all, newest first", Filter{}, 4, listener.ReasonBindFailed},
		{"by port", Filter{Port: 9999}, 2, listener.ReasonStarted},
		{"by protocol case-insensitive", Filter{Protocol: "TCP"}, 2, listener.ReasonBindFailed},
		{"by reason", Filter{Reason: listener.ReasonAdded}, 2, listener.ReasonAdded},
		{"offset", Filter{Limit: 1, Offset: 3}, 4, listener.ReasonAdded},
		{"offset past end", Filter{Offset: 10}, 4, ""},
		{"since", Filter{Since: base.Add(2 * time.Second)}, 2, listener.ReasonBindFailed},
		{"since and port", Filter{Since: base.Add(time.Second), Port: 9999}, 1, listener.ReasonStarted},
		{"no match", Filter{Port: 1}, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if res.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", res.Total, tt.wantTotal)
			}
			if tt.wantFirst == "" {
				if len(res.Entries) != 0 {
					t.Errorf("Entries = %+v, want none", res.Entries)
				}
				return
			}
			if len(res.Entries) == 0 || res.Entries[0].Reason != tt.wantFirst {
				t.Errorf("first entry = %+v, want reason %q", res.Entries, tt.wantFirst)
			}
		})
	}

	res, err := repo.List(ctx, Filter{Reason: listener.ReasonBindFailed})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Entries[0].Error != "address already in use" {
		t.Errorf("Error = %q", res.Entries[0].Error)
	}
}

func TestList_ClampsLimit(t *testing.T) {
	repo := openTestRepo(t)

	tests := []struct {
		in, want int
	}{
		{0, defaultLimit},
		{-3, defaultLimit},
		{10, 10},
		{maxLimit + 1, maxLimit},
	}
	for _, tt := range tests {
		res, err := repo.List(context.Background(), Filter{Limit: tt.in, Offset: -1})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if res.Limit != tt.want || res.Offset != 0 {
			t.Errorf("Limit(%d) = %d offset %d, want %d offset 0", tt.in, res.Limit, res.Offset, tt.want)
		}
		if res.Entries == nil {
			t.Error("Entries should be an empty slice, not nil")
		}
	}
}
