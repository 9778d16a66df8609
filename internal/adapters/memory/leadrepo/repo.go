package leadrepo

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/leadline/lead-import-api/internal/domain"
	"github.com/leadline/lead-import-api/internal/ports/out/leadrepo"
)

type naturalKey struct {
	owner    domain.SubjectID
	identity string
}

// Repo is an in-memory implementation of leadrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID    map[domain.LeadID]domain.Lead
	idByKey map[naturalKey]domain.LeadID
}

func NewRepo() *Repo {
	return &Repo{
		byID:    make(map[domain.LeadID]domain.Lead),
		idByKey: make(map[naturalKey]domain.LeadID),
	}
}

func (r *Repo) UpsertBatch(ctx context.Context, owner domain.SubjectID, leads []domain.Lead) (leadrepo.UpsertResult, error) {
	_ = ctx
	for _, l := range leads {
		if l.ID == "" || l.Identity == "" {
			return leadrepo.UpsertResult{}, leadrepo.ErrInvalidLead
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Stage into copies so a failure part-way leaves the store untouched.
	staged := make(map[domain.LeadID]domain.Lead)
	stagedKeys := make(map[naturalKey]domain.LeadID)
	lookup := func(k naturalKey) (domain.Lead, bool) {
		if id, ok := stagedKeys[k]; ok {
			return staged[id], true
		}
		if id, ok := r.idByKey[k]; ok {
			return r.byID[id], true
		}
		return domain.Lead{}, false
	}

	res := leadrepo.UpsertResult{Leads: make([]domain.Lead, 0, len(leads))}
	for _, l := range leads {
		l.Owner = owner
		k := naturalKey{owner: owner, identity: l.Identity}
		if existing, ok := lookup(k); ok {
			merged := domain.MergeLead(existing, l)
			staged[merged.ID] = merged
			stagedKeys[k] = merged.ID
			res.Updated++
			res.Leads = append(res.Leads, cloneLead(merged))
			continue
		}
		if _, taken := r.byID[l.ID]; taken {
			return leadrepo.UpsertResult{}, leadrepo.ErrInvalidLead
		}
		if _, taken := staged[l.ID]; taken {
			return leadrepo.UpsertResult{}, leadrepo.ErrInvalidLead
		}
		staged[l.ID] = cloneLead(l)
		stagedKeys[k] = l.ID
		res.Created++
		res.Leads = append(res.Leads, cloneLead(l))
	}

	for id, l := range staged {
		r.byID[id] = l
	}
	for k, id := range stagedKeys {
		r.idByKey[k] = id
	}
	return res, nil
}

func (r *Repo) GetByIdentity(ctx context.Context, owner domain.SubjectID, identity string) (domain.Lead, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.idByKey[naturalKey{owner: owner, identity: identity}]
	if !ok {
		return domain.Lead{}, leadrepo.ErrNotFound
	}
	l, ok := r.byID[id]
	if !ok {
		return domain.Lead{}, leadrepo.ErrNotFound
	}
	return cloneLead(l), nil
}

func (r *Repo) ListByOwner(ctx context.Context, owner domain.SubjectID) ([]domain.Lead, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Lead, 0)
	for _, l := range r.byID {
		if l.Owner != owner {
			continue
		}
		out = append(out, cloneLead(l))
	}
	sortLeadsByClientName(out)
	return out, nil
}

func cloneLead(l domain.Lead) domain.Lead {
	out := l
	out.Lists = append([]string{}, l.Lists...)
	return out
}

func sortLeadsByClientName(ls []domain.Lead) {
	sort.Slice(ls, func(i, j int) bool {
		ci := strings.ToLower(ls[i].ClientName)
		cj := strings.ToLower(ls[j].ClientName)
		if ci == cj {
			return string(ls[i].ID) < string(ls[j].ID)
		}
		return ci < cj
	})
}
