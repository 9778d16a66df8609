package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/leadline/lead-import-api/internal/ports/out/idempotency"
)

// Store is an in-memory implementation of idempotency.Store.
// It is safe for concurrent use. Expired records are dropped lazily on Get.
type Store struct {
	mu sync.Mutex
	m  map[idempotency.Fingerprint]idempotency.Record
}

func NewStore() *Store {
	return &Store{
		m: make(map[idempotency.Fingerprint]idempotency.Record),
	}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint, now time.Time) (idempotency.Record, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.m[fp]
	if !ok {
		return idempotency.Record{}, false, nil
	}
	if rec.Expired(now) {
		delete(s.m, fp)
		return idempotency.Record{}, false, nil
	}
	return cloneRecord(rec), true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[fp] = cloneRecord(rec)
	return nil
}

func (s *Store) KeyInUse(ctx context.Context, fp idempotency.Fingerprint, now time.Time) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, rec := range s.m {
		if k.Key == fp.Key && k.Owner == fp.Owner && k.Route == fp.Route && !rec.Expired(now) {
			return true, nil
		}
	}
	return false, nil
}

func cloneRecord(rec idempotency.Record) idempotency.Record {
	out := rec
	out.Body = append([]byte(nil), rec.Body...)
	return out
}
