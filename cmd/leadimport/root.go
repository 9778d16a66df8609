package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	memleadrepo "github.com/leadline/lead-import-api/internal/adapters/memory/leadrepo"
	postgres "github.com/leadline/lead-import-api/internal/adapters/postgres"
	pgleadrepo "github.com/leadline/lead-import-api/internal/adapters/postgres/leadrepo"
	"github.com/leadline/lead-import-api/internal/adapters/spreadsheet"
	"github.com/leadline/lead-import-api/internal/adapters/sqlite"
	sqliteleadrepo "github.com/leadline/lead-import-api/internal/adapters/sqlite/leadrepo"
	"github.com/leadline/lead-import-api/internal/app/imports"
	platformclock "github.com/leadline/lead-import-api/internal/platform/clock"
	"github.com/leadline/lead-import-api/internal/platform/config"
	"github.com/leadline/lead-import-api/internal/platform/logging"
	leadrepoport "github.com/leadline/lead-import-api/internal/ports/out/leadrepo"
)

type rootOptions struct {
	logLevel  string
	logFormat string
	maxRows   int
}

func newRootCmd() *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:           "leadimport",
		Short:         "Normalize, check and import lead spreadsheets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv()
		},
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "console", "Log format (console, json)")
	cmd.PersistentFlags().IntVar(&opts.maxRows, "max-rows", 5000, "Maximum data rows per file")

	cmd.AddCommand(newPreviewCmd(&opts), newApplyCmd(&opts), newLeadsCmd(&opts))
	return cmd
}

// storeOptions selects the lead store for commands that persist.
type storeOptions struct {
	sqlitePath  string
	databaseURL string
}

func (o *storeOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.sqlitePath, "sqlite", "", "Path to a SQLite lead database")
	cmd.Flags().StringVar(&o.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres DSN (default $DATABASE_URL)")
	cmd.MarkFlagsMutuallyExclusive("sqlite", "database-url")
}

func (o *storeOptions) open(ctx context.Context) (leadrepoport.Repository, func(), error) {
	switch {
	case o.sqlitePath != "":
		db, err := sqlite.Open(ctx, o.sqlitePath)
		if err != nil {
			return nil, nil, err
		}
		return sqliteleadrepo.NewRepo(db), func() { _ = db.Close() }, nil
	case o.databaseURL != "":
		pool, err := postgres.NewPool(ctx, o.databaseURL, postgres.PoolOptions{MaxConns: 2})
		if err != nil {
			return nil, nil, eris.Wrap(err, "open postgres")
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, eris.Wrap(err, "migrate postgres")
		}
		return pgleadrepo.NewRepo(pool), pool.Close, nil
	default:
		return nil, nil, withCode(exitUsage, eris.New("one of --sqlite or --database-url is required"))
	}
}

func newService(opts *rootOptions, repo leadrepoport.Repository) (*imports.Service, *zap.Logger, error) {
	log, err := logging.New(opts.logLevel, opts.logFormat)
	if err != nil {
		return nil, nil, withCode(exitUsage, err)
	}
	if repo == nil {
		repo = memleadrepo.NewRepo()
	}
	svc := imports.NewService(spreadsheet.NewDecoder(), repo, platformclock.NewSystemClock(), log)
	svc.MaxRows = opts.maxRows
	return svc, log, nil
}

func openUpload(path string) (imports.Upload, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return imports.Upload{}, nil, withCode(exitUsage, eris.Wrapf(err, "open %s", path))
	}
	return imports.Upload{Filename: filepath.Base(path), Body: f}, func() { _ = f.Close() }, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
