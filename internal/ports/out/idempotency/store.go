package idempotency

import (
	"context"
	"time"

	"github.com/leadline/lead-import-api/internal/domain"
)

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// Fingerprint identifies a commit request for replay purposes:
// key + owner + route + request body hash.
type Fingerprint struct {
	Key      Key
	Owner    domain.SubjectID
	Route    string
	BodyHash string
}

// Record is the stored response replayed for a retried commit.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
	// ExpiresAt bounds replay; a zero value never expires.
	ExpiresAt time.Time
}

// Expired reports whether the record is no longer replayable at now.
func (r Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// Store persists commit responses so a retried request with the same key is not
// imported twice. Get treats expired records as absent.
type Store interface {
	Get(ctx context.Context, fp Fingerprint, now time.Time) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error
	// KeyInUse reports whether an unexpired record exists for key+owner+route with
	// any body hash; used to reject key reuse with a different payload.
	KeyInUse(ctx context.Context, fp Fingerprint, now time.Time) (bool, error)
}
