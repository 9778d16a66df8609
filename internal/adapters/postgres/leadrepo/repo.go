package leadrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/leadline/lead-import-api/internal/adapters/postgres"
	"github.com/leadline/lead-import-api/internal/domain"
	"github.com/leadline/lead-import-api/internal/ports/out/leadrepo"
)

// Repo is a Postgres implementation of leadrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const leadColumns = `
	external_id,
	owner_subject,
	identity,
	title,
	client_name,
	company_name,
	email,
	phone,
	socials,
	location,
	industry,
	website,
	notes,
	lists,
	created_at,
	updated_at`

func (r *Repo) UpsertBatch(ctx context.Context, owner domain.SubjectID, leads []domain.Lead) (leadrepo.UpsertResult, error) {
	if r.pool == nil {
		return leadrepo.UpsertResult{}, errors.New("nil postgres pool")
	}
	ids := make([]uuid.UUID, len(leads))
	for i, l := range leads {
		if l.Identity == "" {
			return leadrepo.UpsertResult{}, leadrepo.ErrInvalidLead
		}
		id, err := uuid.Parse(string(l.ID))
		if err != nil {
			return leadrepo.UpsertResult{}, fmt.Errorf("%w: lead id: %v", leadrepo.ErrInvalidLead, err)
		}
		ids[i] = id
	}

	var res leadrepo.UpsertResult
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		res = leadrepo.UpsertResult{Leads: make([]domain.Lead, 0, len(leads))}
		for i, l := range leads {
			l.Owner = owner
			existing, err := getByIdentity(ctx, tx, owner, l.Identity, true)
			switch {
			case err == nil:
				merged := domain.MergeLead(existing, l)
				if err := updateLead(ctx, tx, merged); err != nil {
					return err
				}
				res.Updated++
				res.Leads = append(res.Leads, merged)
			case errors.Is(err, leadrepo.ErrNotFound):
				if err := insertLead(ctx, tx, ids[i], l); err != nil {
					return err
				}
				res.Created++
				res.Leads = append(res.Leads, l)
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return leadrepo.UpsertResult{}, err
	}
	return res, nil
}

func (r *Repo) GetByIdentity(ctx context.Context, owner domain.SubjectID, identity string) (domain.Lead, error) {
	if r.pool == nil {
		return domain.Lead{}, errors.New("nil postgres pool")
	}
	return getByIdentity(ctx, r.pool, owner, identity, false)
}

func (r *Repo) ListByOwner(ctx context.Context, owner domain.SubjectID) ([]domain.Lead, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE owner_subject = $1
		ORDER BY lower(client_name) ASC, external_id::text ASC
	`, string(owner))
	if err != nil {
		return nil, err
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
	return out, rows.Err()
}

type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getByIdentity(ctx context.Context, q queryer, owner domain.SubjectID, identity string, forUpdate bool) (domain.Lead, error) {
	sql := `
		SELECT ` + leadColumns + `
		FROM leads
		WHERE owner_subject = $1 AND identity = $2`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	l, err := scanLead(q.QueryRow(ctx, sql, string(owner), identity))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Lead{}, leadrepo.ErrNotFound
		}
		return domain.Lead{}, err
	}
	return l, nil
}

func scanLead(row pgx.Row) (domain.Lead, error) {
	var (
		l     domain.Lead
		id    uuid.UUID
		owner string
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
		&l.Lists,
		&l.CreatedAt,
		&l.UpdatedAt,
	); err != nil {
		return domain.Lead{}, err
	}
	l.ID = domain.LeadID(id.String())
	l.Owner = domain.SubjectID(owner)
	if l.Lists == nil {
		l.Lists = []string{}
	}
	l.CreatedAt = l.CreatedAt.UTC()
	l.UpdatedAt = l.UpdatedAt.UTC()
	return l, nil
}

func insertLead(ctx context.Context, tx pgx.Tx, id uuid.UUID, l domain.Lead) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO leads (`+leadColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`,
		id,
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
		nonNilLists(l.Lists),
		l.CreatedAt.UTC(),
		l.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			if pe.ConstraintName == "leads_external_id_unique" {
				return fmt.Errorf("%w: duplicate lead id", leadrepo.ErrInvalidLead)
			}
		}
		return err
	}
	return nil
}

func updateLead(ctx context.Context, tx pgx.Tx, l domain.Lead) error {
	id, err := uuid.Parse(string(l.ID))
	if err != nil {
		return fmt.Errorf("invalid lead id: %w", err)
	}
	ct, err := tx.Exec(ctx, `
		UPDATE leads
		SET title = $2,
		    client_name = $3,
		    company_name = $4,
		    email = $5,
		    phone = $6,
		    socials = $7,
		    location = $8,
		    industry = $9,
		    website = $10,
		    notes = $11,
		    lists = $12,
		    updated_at = $13
		WHERE external_id = $1
	`,
		id,
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
		nonNilLists(l.Lists),
		l.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return leadrepo.ErrNotFound
	}
	return nil
}

func nonNilLists(ls []string) []string {
	if ls == nil {
		return []string{}
	}
	return ls
}
