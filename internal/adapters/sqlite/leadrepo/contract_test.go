package leadrepo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/leadline/lead-import-api/internal/adapters/contracttest"
	"github.com/leadline/lead-import-api/internal/adapters/sqlite"
	"github.com/leadline/lead-import-api/internal/domain"
	leadrepoport "github.com/leadline/lead-import-api/internal/ports/out/leadrepo"
)

func TestContract_SQLiteLeadRepo(t *testing.T) {
	contracttest.RunLeadRepo(t, func(t *testing.T) (leadrepoport.Repository, func()) {
		t.Helper()
		db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "leads.db"))
		if err != nil {
			t.Fatalf("sqlite.Open: %v", err)
		}
		return NewRepo(db), func() { _ = db.Close() }
	})
}

func TestRepo_ReopenKeepsLeads(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "leads.db")

	db, err := sqlite.Open(ctx, path)
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	repo := NewRepo(db)
	if _, err := repo.UpsertBatch(ctx, "owner-1", []domain.Lead{{
		ID:         "6f1c2f8e-0a7d-4d55-9d0e-3c0f5b8a1e22",
		Identity:   "ada@example.com",
		ClientName: "Ada",
		Lists:      []string{"VIP"},
	}}); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err = sqlite.Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	got, err := NewRepo(db).GetByIdentity(ctx, "owner-1", "ada@example.com")
	if err != nil {
		t.Fatalf("GetByIdentity: %v", err)
	}
	if got.ClientName != "Ada" || len(got.Lists) != 1 || got.Lists[0] != "VIP" {
		t.Fatalf("got=%+v", got)
	}
}
