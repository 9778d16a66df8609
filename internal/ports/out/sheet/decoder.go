package sheet

import (
	"context"
	"errors"
	"io"

	"github.com/leadline/lead-import-api/internal/domain/leadimport"
)

var (
	// ErrEmptySheet indicates the upload has a header row but no data rows.
	ErrEmptySheet = errors.New("sheet has no data rows")

	// ErrNoHeader indicates the upload has no readable header row.
	ErrNoHeader = errors.New("sheet has no header row")

	// ErrUnsupportedFormat indicates the file type cannot be decoded.
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")

	// ErrMalformed indicates a supported file type whose content could not be parsed.
	ErrMalformed = errors.New("malformed spreadsheet")
)

// Decoder turns an uploaded spreadsheet into raw rows in upload order.
// The filename is used to pick the format.
type Decoder interface {
	Decode(ctx context.Context, filename string, r io.Reader) ([]leadimport.RawRow, error)
}
