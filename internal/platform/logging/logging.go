// Package logging builds the process-wide zap logger.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// New returns a JSON production logger, or a console development logger when
// format is "console". level is any zap level name ("debug", "info", ...).
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	var cfg zap.Config
	switch format {
	case "console":
		cfg = zap.NewDevelopmentConfig()
	case "", "json":
		cfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("LOG_FORMAT must be json or console (got %q)", format)
	}
	cfg.Level = lvl
	return cfg.Build()
}
