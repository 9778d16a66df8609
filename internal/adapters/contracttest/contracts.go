package contracttest

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/leadline/lead-import-api/internal/domain"
	idempotencyport "github.com/leadline/lead-import-api/internal/ports/out/idempotency"
	leadrepoport "github.com/leadline/lead-import-api/internal/ports/out/leadrepo"
)

type CleanupFunc = func()

type LeadRepoFactory func(t *testing.T) (leadrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	fp := idempotencyport.Fingerprint{
		Key:      idempotencyport.Key("k-" + uuid.NewString()),
		Owner:    domain.SubjectID("sub-1"),
		Route:    "POST /imports/commit",
		BodyHash: "hash-abc",
	}
	rec := idempotencyport.Record{
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{"created":1}`),
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Hour),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp, now)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != `{"created":1}` || got.ContentType != "application/json" || got.StatusCode != 201 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte(`{"created":2}`)
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp, now)
	if err != nil || !ok || string(got.Body) != `{"created":2}` {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// Same key, different body.
	other := fp
	other.BodyHash = "hash-def"
	if _, ok, err := store.Get(ctx, other, now); err != nil || ok {
		t.Fatalf("Get(other body) ok=%v err=%v, want miss", ok, err)
	}
	inUse, err := store.KeyInUse(ctx, other, now)
	if err != nil || !inUse {
		t.Fatalf("KeyInUse=%v err=%v, want true", inUse, err)
	}

	// Expiry.
	later := now.Add(2 * time.Hour)
	if _, ok, err := store.Get(ctx, fp, later); err != nil || ok {
		t.Fatalf("Get after expiry ok=%v err=%v, want miss", ok, err)
	}
	inUse, err = store.KeyInUse(ctx, other, later)
	if err != nil || inUse {
		t.Fatalf("KeyInUse after expiry=%v err=%v, want false", inUse, err)
	}
}

func newLead(identity, clientName string, lists []string, now time.Time) domain.Lead {
	return domain.Lead{
		ID:         domain.LeadID(uuid.NewString()),
		Identity:   identity,
		Title:      "Untitled Lead",
		ClientName: clientName,
		Email:      identity,
		Lists:      lists,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func RunLeadRepo(t *testing.T, newRepo LeadRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	// Unique owners keep shared databases isolated between runs.
	owner := domain.SubjectID("owner-" + uuid.NewString())
	otherOwner := domain.SubjectID("owner-" + uuid.NewString())
	now := time.Unix(1000, 0).UTC()

	alice := newLead("alice@example.com", "alice", []string{"VIP"}, now)
	bob := newLead("bob@example.com", "Bob", []string{}, now)
	res, err := repo.UpsertBatch(ctx, owner, []domain.Lead{bob, alice})
	if err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}
	if res.Created != 2 || res.Updated != 0 || len(res.Leads) != 2 {
		t.Fatalf("UpsertBatch result=%+v, want 2 created", res)
	}

	got, err := repo.GetByIdentity(ctx, owner, "alice@example.com")
	if err != nil {
		t.Fatalf("GetByIdentity: %v", err)
	}
	if got.ID != alice.ID || got.Owner != owner || !reflect.DeepEqual(got.Lists, []string{"VIP"}) {
		t.Fatalf("GetByIdentity=%+v", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("CreatedAt=%v, want %v", got.CreatedAt, now)
	}

	if _, err := repo.GetByIdentity(ctx, owner, "nobody@example.com"); !errors.Is(err, leadrepoport.ErrNotFound) {
		t.Fatalf("GetByIdentity(missing) err=%v, want ErrNotFound", err)
	}
	if _, err := repo.GetByIdentity(ctx, otherOwner, "alice@example.com"); !errors.Is(err, leadrepoport.ErrNotFound) {
		t.Fatalf("GetByIdentity(other owner) err=%v, want ErrNotFound", err)
	}

	// Re-import merges into the existing record.
	later := now.Add(time.Hour)
	again := newLead("alice@example.com", "Alice Smith", []string{"vip", "Gold"}, later)
	again.Phone = "4155550100"
	res, err = repo.UpsertBatch(ctx, owner, []domain.Lead{again})
	if err != nil {
		t.Fatalf("UpsertBatch merge: %v", err)
	}
	if res.Created != 0 || res.Updated != 1 {
		t.Fatalf("merge result=%+v, want 1 updated", res)
	}
	got, err = repo.GetByIdentity(ctx, owner, "alice@example.com")
	if err != nil {
		t.Fatalf("GetByIdentity after merge: %v", err)
	}
	if got.ID != alice.ID {
		t.Fatalf("merge changed ID: %s -> %s", alice.ID, got.ID)
	}
	if got.ClientName != "Alice Smith" || got.Phone != "4155550100" {
		t.Fatalf("merged fields=%+v", got)
	}
	if !reflect.DeepEqual(got.Lists, []string{"VIP", "Gold"}) {
		t.Fatalf("merged lists=%v, want [VIP Gold]", got.Lists)
	}
	if !got.CreatedAt.Equal(now) || !got.UpdatedAt.Equal(later) {
		t.Fatalf("timestamps created=%v updated=%v", got.CreatedAt, got.UpdatedAt)
	}

	// Same identity under another owner is a separate lead.
	res, err = repo.UpsertBatch(ctx, otherOwner, []domain.Lead{newLead("alice@example.com", "Alice", nil, now)})
	if err != nil || res.Created != 1 {
		t.Fatalf("UpsertBatch other owner res=%+v err=%v", res, err)
	}

	// Deterministic list ordering by clientName (case-insensitive).
	ls, err := repo.ListByOwner(ctx, owner)
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(ls) != 2 || ls[0].ClientName != "Alice Smith" || ls[1].ClientName != "Bob" {
		t.Fatalf("ListByOwner=%+v", ls)
	}

	// A batch with an invalid lead stores nothing.
	carol := newLead("carol@example.com", "Carol", nil, now)
	invalid := newLead("", "Nobody", nil, now)
	if _, err := repo.UpsertBatch(ctx, owner, []domain.Lead{carol, invalid}); !errors.Is(err, leadrepoport.ErrInvalidLead) {
		t.Fatalf("UpsertBatch(invalid) err=%v, want ErrInvalidLead", err)
	}
	if _, err := repo.GetByIdentity(ctx, owner, "carol@example.com"); !errors.Is(err, leadrepoport.ErrNotFound) {
		t.Fatalf("partial batch was stored: err=%v", err)
	}
}
