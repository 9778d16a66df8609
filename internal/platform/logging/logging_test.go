package logging

import (
	"testing"

	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	t.Parallel()

	log, err := New("debug", "console")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !log.Core().Enabled(zap.DebugLevel) {
		t.Fatalf("debug level not enabled")
	}

	log, err = New("WARN", "json")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if log.Core().Enabled(zap.InfoLevel) {
		t.Fatalf("info enabled at warn level")
	}

	if _, err := New("loud", "json"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if _, err := New("info", "xml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
