package domain

import (
	"strings"
	"time"
)

// Lead is the domain representation of a committed lead.
//
// Owner + Identity is the natural key: a re-import of the same prospect by the same
// owner merges into the existing record instead of creating a second one.
type Lead struct {
	ID    LeadID
	Owner SubjectID

	// Identity is the resolved de-duplication anchor (email, else normalized phone,
	// else "name|company").
	Identity string

	Title       string
	ClientName  string
	CompanyName string
	Email       string
	Phone       string
	Socials     string
	Location    string
	Industry    string
	Website     string
	Notes       string

	Lists []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MergeLead folds incoming into existing. Non-empty incoming fields win; lists are
// unioned case-insensitively with the existing entries first. ID, Owner, Identity and
// CreatedAt are kept from existing.
func MergeLead(existing, incoming Lead) Lead {
	out := existing
	pick := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	pick(&out.Title, incoming.Title)
	pick(&out.ClientName, incoming.ClientName)
	pick(&out.CompanyName, incoming.CompanyName)
	pick(&out.Email, incoming.Email)
	pick(&out.Phone, incoming.Phone)
	pick(&out.Socials, incoming.Socials)
	pick(&out.Location, incoming.Location)
	pick(&out.Industry, incoming.Industry)
	pick(&out.Website, incoming.Website)
	pick(&out.Notes, incoming.Notes)
	out.Lists = UnionLists(existing.Lists, incoming.Lists)
	if incoming.UpdatedAt.After(out.UpdatedAt) {
		out.UpdatedAt = incoming.UpdatedAt
	}
	return out
}

// UnionLists appends the entries of b that are not already in a (case-insensitive).
// The result is a new slice.
func UnionLists(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, src := range [][]string{a, b} {
		for _, v := range src {
			k := strings.ToLower(v)
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
