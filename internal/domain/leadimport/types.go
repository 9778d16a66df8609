package leadimport

// HeaderRows is the number of header rows preceding the data in an upload.
// The first data row is therefore row HeaderRows+1 (2), as spreadsheet tools show it.
const HeaderRows = 1

const (
	// UnknownClient is the last link of the client-name fallback chain.
	UnknownClient = "Unknown Client"
	// UntitledLead is used when a row carries no title.
	UntitledLead = "Untitled Lead"

	noListMarker = "no-list"
)

// RawRow is one decoded spreadsheet row: column header -> cell value.
// Cell values may be strings, numbers, bools, time.Time or nil.
// Header matching is case- and whitespace-insensitive; unknown headers are ignored.
type RawRow map[string]any

// CanonicalLead is the normalized form of one uploaded row.
type CanonicalLead struct {
	RowNumber   int    `json:"rowNumber"`
	Title       string `json:"title"`
	ClientName  string `json:"clientName"`
	CompanyName string `json:"companyName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Socials     string `json:"socials"`
	Location    string `json:"location"`
	Industry    string `json:"industry"`
	Website     string `json:"website"`
	Notes       string `json:"notes"`

	// Lists holds the row's list items, de-duplicated case-insensitively in order
	// of first occurrence.
	Lists []string `json:"lists"`

	// Identity is email, else normalized phone, else "client|company" (lower-cased).
	Identity string `json:"identity"`
	// DuplicateKey is "identity::sorted-lists" (or "identity::no-list").
	DuplicateKey string `json:"duplicateKey"`

	// InlineDuplicates lists the tokens dropped from the Lists cell because they
	// repeated an earlier item. It describes the raw cell, not the lead, so it does
	// not survive a round trip through RawRow.
	InlineDuplicates []string `json:"inlineDuplicates,omitempty"`
}

// IssueKind classifies a DuplicateIssue.
type IssueKind string

const (
	IssueInlineDuplicate   IssueKind = "inline_duplicate"
	IssueCrossRowDuplicate IssueKind = "cross_row_duplicate"
)

// DuplicateIssue is a non-fatal finding about a row's list assignment.
type DuplicateIssue struct {
	RowNumber    int       `json:"rowNumber"`
	DuplicateKey string    `json:"duplicateKey"`
	Reason       string    `json:"reason"`
	Kind         IssueKind `json:"kind"`
	// ListItem is the conflicting item (cross-row) or the dropped tokens (inline).
	ListItem string `json:"listItem,omitempty"`
	// FirstRow is the row that claimed ListItem first; 0 for inline issues.
	FirstRow int `json:"firstRow,omitempty"`
}

// Result is the engine output for one batch.
type Result struct {
	ParsedRows      []CanonicalLead  `json:"parsedRows"`
	DuplicateIssues []DuplicateIssue `json:"duplicateIssues"`
}

// HasIssues reports whether the batch produced any findings.
func (r Result) HasIssues() bool {
	return len(r.DuplicateIssues) > 0
}
