package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadline/lead-import-api/internal/ports/out/idempotency"
)

// Store is a Postgres implementation of idempotency.Store.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint, now time.Time) (idempotency.Record, bool, error) {
	if s.pool == nil {
		return idempotency.Record{}, false, errors.New("nil postgres pool")
	}
	row := s.pool.QueryRow(ctx, `
		SELECT status_code, content_type, body, created_at, expires_at
		FROM idempotency_keys
		WHERE idempotency_key = $1
		  AND owner_subject = $2
		  AND route = $3
		  AND body_hash = $4
		  AND (expires_at IS NULL OR expires_at > $5)
	`,
		string(fp.Key),
		string(fp.Owner),
		fp.Route,
		fp.BodyHash,
		now.UTC(),
	)
	var (
		rec       idempotency.Record
		expiresAt *time.Time
	)
	if err := row.Scan(&rec.StatusCode, &rec.ContentType, &rec.Body, &rec.CreatedAt, &expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return idempotency.Record{}, false, nil
		}
		return idempotency.Record{}, false, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	if expiresAt != nil {
		rec.ExpiresAt = expiresAt.UTC()
	}
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var expiresAt *time.Time
	if !rec.ExpiresAt.IsZero() {
		t := rec.ExpiresAt.UTC()
		expiresAt = &t
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO idempotency_keys (
			idempotency_key,
			owner_subject,
			route,
			body_hash,
			status_code,
			content_type,
			body,
			created_at,
			expires_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (idempotency_key, owner_subject, route, body_hash)
		DO UPDATE SET
			status_code = EXCLUDED.status_code,
			content_type = EXCLUDED.content_type,
			body = EXCLUDED.body,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`,
		string(fp.Key),
		string(fp.Owner),
		fp.Route,
		fp.BodyHash,
		rec.StatusCode,
		rec.ContentType,
		rec.Body,
		createdAt.UTC(),
		expiresAt,
	)
	return err
}

func (s *Store) KeyInUse(ctx context.Context, fp idempotency.Fingerprint, now time.Time) (bool, error) {
	if s.pool == nil {
		return false, errors.New("nil postgres pool")
	}
	var inUse bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM idempotency_keys
			WHERE idempotency_key = $1
			  AND owner_subject = $2
			  AND route = $3
			  AND (expires_at IS NULL OR expires_at > $4)
		)
	`,
		string(fp.Key),
		string(fp.Owner),
		fp.Route,
		now.UTC(),
	).Scan(&inUse)
	return inUse, err
}
