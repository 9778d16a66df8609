package leadrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/leadline/lead-import-api/internal/domain"
	"github.com/leadline/lead-import-api/internal/ports/out/leadrepo"
)

// Repo is a SQLite implementation of leadrepo.Repository. Lists are stored as a
// JSON array and timestamps as RFC 3339 text.
type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

const leadColumns = `external_id, owner_subject, identity, title, client_name, company_name,
	email, phone, socials, location, industry, website, notes, lists, created_at, updated_at`

func (r *Repo) UpsertBatch(ctx context.Context, owner domain.SubjectID, leads []domain.Lead) (leadrepo.UpsertResult, error) {
	if r.db == nil {
		return leadrepo.UpsertResult{}, eris.New("nil sqlite db")
	}
	for _, l := range leads {
		if l.ID == "" || l.Identity == "" {
			return leadrepo.UpsertResult{}, leadrepo.ErrInvalidLead
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return leadrepo.UpsertResult{}, eris.Wrap(err, "sqlite: begin")
	}
	defer func() { _ = tx.Rollback() }()

	res := leadrepo.UpsertResult{Leads: make([]domain.Lead, 0, len(leads))}
	for _, l := range leads {
		l.Owner = owner
		existing, err := getByIdentity(ctx, tx, owner, l.Identity)
		switch {
		case err == nil:
			merged := domain.MergeLead(existing, l)
			if err := updateLead(ctx, tx, merged); err != nil {
				return leadrepo.UpsertResult{}, err
			}
			res.Updated++
			res.Leads = append(res.Leads, merged)
		case errors.Is(err, leadrepo.ErrNotFound):
			taken, err := idExists(ctx, tx, l.ID)
			if err != nil {
				return leadrepo.UpsertResult{}, err
			}
			if taken {
				return leadrepo.UpsertResult{}, leadrepo.ErrInvalidLead
			}
			if err := insertLead(ctx, tx, l); err != nil {
				return leadrepo.UpsertResult{}, err
			}
			if l.Lists == nil {
				l.Lists = []string{}
			}
			res.Created++
			res.Leads = append(res.Leads, l)
		default:
			return leadrepo.UpsertResult{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return leadrepo.UpsertResult{}, eris.Wrap(err, "sqlite: commit")
	}
	return res, nil
}

func (r *Repo) GetByIdentity(ctx context.Context, owner domain.SubjectID, identity string) (domain.Lead, error) {
	if r.db == nil {
		return domain.Lead{}, eris.New("nil sqlite db")
	}
	return getByIdentity(ctx, r.db, owner, identity)
}

func (r *Repo) ListByOwner(ctx context.Context, owner domain.SubjectID) ([]domain.Lead, error) {
	if r.db == nil {
		return nil, eris.New("nil sqlite db")
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE owner_subject = ?`, string(owner))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	out := make([]domain.Lead, 0)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	// Sorted in Go: SQLite's lower() only folds ASCII.
	sort.Slice(out, func(i, j int) bool {
		ci, cj := strings.ToLower(out[i].ClientName), strings.ToLower(out[j].ClientName)
		if ci == cj {
			return out[i].ID < out[j].ID
		}
		return ci < cj
	})
	return out, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func getByIdentity(ctx context.Context, q queryer, owner domain.SubjectID, identity string) (domain.Lead, error) {
	row := q.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE owner_subject = ? AND identity = ?`, string(owner), identity)
	l, err := scanLead(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Lead{}, leadrepo.ErrNotFound
		}
		return domain.Lead{}, err
	}
	return l, nil
}

func idExists(ctx context.Context, tx *sql.Tx, id domain.LeadID) (bool, error) {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM leads WHERE external_id = ?`, string(id)).Scan(&n); err != nil {
		return false, eris.Wrap(err, "sqlite: check lead id")
	}
	return n > 0, nil
}

func scanLead(row scanner) (domain.Lead, error) {
	var (
		l                    domain.Lead
		id, owner, lists     string
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&id,
		&owner,
		&l.Identity,
		&l.Title,
		&l.ClientName,
		&l.CompanyName,
		&l.Email,
		&l.Phone,
		&l.Socials,
		&l.Location,
		&l.Industry,
		&l.Website,
		&l.Notes,
		&lists,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Lead{}, err
		}
		return domain.Lead{}, eris.Wrap(err, "sqlite: scan lead")
	}
	l.ID = domain.LeadID(id)
	l.Owner = domain.SubjectID(owner)
	if err := json.Unmarshal([]byte(lists), &l.Lists); err != nil {
		return domain.Lead{}, eris.Wrapf(err, "sqlite: decode lists for lead %s", id)
	}
	if l.Lists == nil {
		l.Lists = []string{}
	}
	var err error
	if l.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return domain.Lead{}, eris.Wrap(err, "sqlite: parse created_at")
	}
	if l.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return domain.Lead{}, eris.Wrap(err, "sqlite: parse updated_at")
	}
	return l, nil
}

func encodeLists(ls []string) (string, error) {
	if ls == nil {
		ls = []string{}
	}
	b, err := json.Marshal(ls)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: encode lists")
	}
	return string(b), nil
}

func insertLead(ctx context.Context, tx *sql.Tx, l domain.Lead) error {
	lists, err := encodeLists(l.Lists)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO leads (`+leadColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		string(l.ID),
		string(l.Owner),
		l.Identity,
		l.Title,
		l.ClientName,
		l.CompanyName,
		l.Email,
		l.Phone,
		l.Socials,
		l.Location,
		l.Industry,
		l.Website,
		l.Notes,
		lists,
		l.CreatedAt.UTC().Format(time.RFC3339Nano),
		l.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert lead %s", l.Identity)
	}
	return nil
}

func updateLead(ctx context.Context, tx *sql.Tx, l domain.Lead) error {
	lists, err := encodeLists(l.Lists)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE leads
		SET title = ?, client_name = ?, company_name = ?, email = ?, phone = ?,
		    socials = ?, location = ?, industry = ?, website = ?, notes = ?,
		    lists = ?, updated_at = ?
		WHERE external_id = ?`,
		l.Title,
		l.ClientName,
		l.CompanyName,
		l.Email,
		l.Phone,
		l.Socials,
		l.Location,
		l.Industry,
		l.Website,
		l.Notes,
		lists,
		l.UpdatedAt.UTC().Format(time.RFC3339Nano),
		string(l.ID),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update lead %s", l.Identity)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return leadrepo.ErrNotFound
	}
	return nil
}
