package imports

import (
	"io"

	"github.com/leadline/lead-import-api/internal/domain"
)

// Upload is a spreadsheet file as received from the caller.
type Upload struct {
	Filename string
	Body     io.Reader
}

type CommitResult struct {
	Created int
	Updated int
	Leads   []domain.Lead
}
