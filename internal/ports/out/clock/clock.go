package clock

import "time"

// Clock stamps committed leads and idempotency records.
// Tests swap in a manual clock to get deterministic CreatedAt/UpdatedAt values.
type Clock interface {
	Now() time.Time
}
