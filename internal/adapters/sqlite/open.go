// Package sqlite opens the embedded single-file lead store used for local runs
// and the command-line importer.
package sqlite

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS leads (
	external_id   TEXT PRIMARY KEY,
	owner_subject TEXT NOT NULL,
	identity      TEXT NOT NULL,
	title         TEXT NOT NULL DEFAULT '',
	client_name   TEXT NOT NULL,
	company_name  TEXT NOT NULL DEFAULT '',
	email         TEXT NOT NULL DEFAULT '',
	phone         TEXT NOT NULL DEFAULT '',
	socials       TEXT NOT NULL DEFAULT '',
	location      TEXT NOT NULL DEFAULT '',
	industry      TEXT NOT NULL DEFAULT '',
	website       TEXT NOT NULL DEFAULT '',
	notes         TEXT NOT NULL DEFAULT '',
	lists         TEXT NOT NULL DEFAULT '[]',
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL,
	UNIQUE (owner_subject, identity)
);
`

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, eris.New("sqlite: empty path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: open %s", path)
	}
	// One writer at a time; avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA busy_timeout = 5000`,
		schema,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, eris.Wrap(err, "sqlite: apply schema")
		}
	}
	return db, nil
}
