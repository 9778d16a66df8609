package leadrepo

import (
	"testing"

	"github.com/leadline/lead-import-api/internal/adapters/contracttest"
	leadrepoport "github.com/leadline/lead-import-api/internal/ports/out/leadrepo"
)

func TestContract_LeadRepo(t *testing.T) {
	contracttest.RunLeadRepo(t, func(t *testing.T) (leadrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(), nil
	})
}
