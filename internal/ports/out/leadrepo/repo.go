package leadrepo

import (
	"context"

	"github.com/leadline/lead-import-api/internal/domain"
)

// UpsertResult reports what an UpsertBatch did, in input order.
type UpsertResult struct {
	Created int
	Updated int
	// Leads holds the stored state of every input lead after the batch.
	Leads []domain.Lead
}

// Repository provides access to committed leads.
//
// Owner + Identity is the natural key. Result ordering expectations:
// - ListByOwner returns leads ordered by ClientName (case-insensitive), then ID.
type Repository interface {
	// UpsertBatch stores leads atomically: a lead whose (owner, identity) already
	// exists is merged with domain.MergeLead, otherwise it is inserted. Either every
	// lead is stored or none is.
	UpsertBatch(ctx context.Context, owner domain.SubjectID, leads []domain.Lead) (UpsertResult, error)

	GetByIdentity(ctx context.Context, owner domain.SubjectID, identity string) (domain.Lead, error)
	ListByOwner(ctx context.Context, owner domain.SubjectID) ([]domain.Lead, error)
}
