package imports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leadline/lead-import-api/internal/domain"
	"github.com/leadline/lead-import-api/internal/domain/leadimport"
	clockport "github.com/leadline/lead-import-api/internal/ports/out/clock"
	"github.com/leadline/lead-import-api/internal/ports/out/leadrepo"
	"github.com/leadline/lead-import-api/internal/ports/out/sheet"
)

type Service struct {
	decoder sheet.Decoder
	leads   leadrepo.Repository
	clk     clockport.Clock
	log     *zap.Logger

	newLeadID func() domain.LeadID

	// MaxRows bounds the number of data rows accepted per upload or commit.
	MaxRows int
}

func NewService(decoder sheet.Decoder, leads leadrepo.Repository, clk clockport.Clock, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		decoder: decoder,
		leads:   leads,
		clk:     clk,
		log:     log,
		newLeadID: func() domain.LeadID {
			return domain.LeadID(uuid.NewString())
		},
		MaxRows: 5000,
	}
}

// Preview decodes the upload and runs the normalizer and duplicate detector.
// Nothing is persisted.
func (s *Service) Preview(ctx context.Context, owner domain.SubjectID, up Upload) (leadimport.Result, error) {
	rows, err := s.decoder.Decode(ctx, up.Filename, up.Body)
	if err != nil {
		return leadimport.Result{}, mapDecodeError(err)
	}
	if err := s.checkRowLimit(len(rows)); err != nil {
		return leadimport.Result{}, err
	}

	res := leadimport.Process(rows)
	s.log.Info("import previewed",
		zap.String("owner", string(owner)),
		zap.String("filename", up.Filename),
		zap.Int("rows", len(res.ParsedRows)),
		zap.Int("duplicateIssues", len(res.DuplicateIssues)),
	)
	return res, nil
}

// Commit persists previewed rows. Every row is normalized again before the
// duplicate check; any finding blocks the whole commit.
func (s *Service) Commit(ctx context.Context, owner domain.SubjectID, rows []leadimport.CanonicalLead) (CommitResult, error) {
	if len(rows) == 0 {
		return CommitResult{}, &Error{
			Status:  422,
			Code:    "VALIDATION_ERROR",
			Message: "invalid commit request",
			Details: map[string]any{"rows": "must contain at least one row"},
		}
	}
	if err := s.checkRowLimit(len(rows)); err != nil {
		return CommitResult{}, err
	}

	canonical := make([]leadimport.CanonicalLead, 0, len(rows))
	for _, row := range rows {
		lead := leadimport.NormalizeRow(row.RawRow(), row.RowNumber)
		// Inline duplicates only exist in the original cell; keep what preview saw.
		if len(lead.InlineDuplicates) == 0 && len(row.InlineDuplicates) > 0 {
			lead.InlineDuplicates = append([]string(nil), row.InlineDuplicates...)
		}
		canonical = append(canonical, lead)
	}

	if issues := leadimport.DetectDuplicates(canonical); len(issues) > 0 {
		s.log.Info("import commit blocked",
			zap.String("owner", string(owner)),
			zap.Int("rows", len(canonical)),
			zap.Int("duplicateIssues", len(issues)),
		)
		return CommitResult{}, &Error{
			Status:  409,
			Code:    "DUPLICATE_ISSUES",
			Message: "Resolve duplicate list assignments before committing.",
			Details: map[string]any{"duplicateIssues": issues},
		}
	}

	now := s.clk.Now().UTC()
	leads := make([]domain.Lead, 0, len(canonical))
	for _, c := range canonical {
		leads = append(leads, toLead(s.newLeadID(), owner, c, now))
	}

	res, err := s.leads.UpsertBatch(ctx, owner, leads)
	if err != nil {
		if errors.Is(err, leadrepo.ErrInvalidLead) {
			return CommitResult{}, &Error{
				Status:  422,
				Code:    "VALIDATION_ERROR",
				Message: "invalid lead in commit request",
			}
		}
		return CommitResult{}, err
	}
	s.log.Info("import committed",
		zap.String("owner", string(owner)),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
	)
	return CommitResult{Created: res.Created, Updated: res.Updated, Leads: res.Leads}, nil
}

// Import previews the upload and, when it is clean, commits it in one step.
func (s *Service) Import(ctx context.Context, owner domain.SubjectID, up Upload) (leadimport.Result, CommitResult, error) {
	preview, err := s.Preview(ctx, owner, up)
	if err != nil {
		return leadimport.Result{}, CommitResult{}, err
	}
	if preview.HasIssues() {
		return preview, CommitResult{}, &Error{
			Status:  409,
			Code:    "DUPLICATE_ISSUES",
			Message: "Resolve duplicate list assignments before committing.",
			Details: map[string]any{"duplicateIssues": preview.DuplicateIssues},
		}
	}
	res, err := s.Commit(ctx, owner, preview.ParsedRows)
	return preview, res, err
}

func (s *Service) ListLeads(ctx context.Context, owner domain.SubjectID) ([]domain.Lead, error) {
	return s.leads.ListByOwner(ctx, owner)
}

func (s *Service) checkRowLimit(n int) error {
	if s.MaxRows > 0 && n > s.MaxRows {
		return &Error{
			Status:  413,
			Code:    "TOO_MANY_ROWS",
			Message: "The upload has more rows than a single import allows.",
			Details: map[string]any{"rows": n, "maxRows": s.MaxRows},
		}
	}
	return nil
}

func mapDecodeError(err error) error {
	switch {
	case errors.Is(err, sheet.ErrEmptySheet), errors.Is(err, sheet.ErrNoHeader):
		return &Error{
			Status:  422,
			Code:    "EMPTY_SHEET",
			Message: "The uploaded sheet has no data rows.",
		}
	case errors.Is(err, sheet.ErrUnsupportedFormat):
		return &Error{
			Status:  415,
			Code:    "UNSUPPORTED_FORMAT",
			Message: "Upload a .xlsx or .csv file.",
		}
	case errors.Is(err, sheet.ErrMalformed):
		return &Error{
			Status:  422,
			Code:    "MALFORMED_SHEET",
			Message: "The uploaded file could not be read.",
		}
	default:
		return err
	}
}

func toLead(id domain.LeadID, owner domain.SubjectID, c leadimport.CanonicalLead, now time.Time) domain.Lead {
	lists := c.Lists
	if lists == nil {
		lists = []string{}
	}
	return domain.Lead{
		ID:          id,
		Owner:       owner,
		Identity:    c.Identity,
		Title:       c.Title,
		ClientName:  c.ClientName,
		CompanyName: c.CompanyName,
		Email:       c.Email,
		Phone:       c.Phone,
		Socials:     c.Socials,
		Location:    c.Location,
		Industry:    c.Industry,
		Website:     c.Website,
		Notes:       c.Notes,
		Lists:       lists,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
