package httpapi

import (
	"time"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/leadline/lead-import-api/internal/domain"
	"github.com/leadline/lead-import-api/internal/domain/leadimport"
)

type PreviewResponse struct {
	ParsedRows      []leadimport.CanonicalLead  `json:"parsedRows"`
	DuplicateIssues []leadimport.DuplicateIssue `json:"duplicateIssues"`
	// Blocked is true while duplicateIssues is non-empty; commits are refused until then.
	Blocked bool `json:"blocked"`
}

type CommitRequest struct {
	Rows []leadimport.CanonicalLead `json:"rows"`
}

type CommitResponse struct {
	Created int    `json:"created"`
	Updated int    `json:"updated"`
	Leads   []Lead `json:"leads"`
}

type ListLeadsResponse struct {
	Leads []Lead `json:"leads"`
}

type Lead struct {
	LeadId      openapi_types.UUID `json:"leadId"`
	Identity    string             `json:"identity"`
	Title       string             `json:"title"`
	ClientName  string             `json:"clientName"`
	CompanyName string             `json:"companyName"`
	Email       string             `json:"email"`
	Phone       string             `json:"phone"`
	Socials     string             `json:"socials"`
	Location    string             `json:"location"`
	Industry    string             `json:"industry"`
	Website     string             `json:"website"`
	Notes       string             `json:"notes"`
	Lists       []string           `json:"lists"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

func toLeads(ls []domain.Lead) ([]Lead, error) {
	out := make([]Lead, 0, len(ls))
	for _, l := range ls {
		id, err := uuid.Parse(string(l.ID))
		if err != nil {
			return nil, err
		}
		lists := l.Lists
		if lists == nil {
			lists = []string{}
		}
		out = append(out, Lead{
			LeadId:      openapi_types.UUID(id),
			Identity:    l.Identity,
			Title:       l.Title,
			ClientName:  l.ClientName,
			CompanyName: l.CompanyName,
			Email:       l.Email,
			Phone:       l.Phone,
			Socials:     l.Socials,
			Location:    l.Location,
			Industry:    l.Industry,
			Website:     l.Website,
			Notes:       l.Notes,
			Lists:       lists,
			CreatedAt:   l.CreatedAt,
			UpdatedAt:   l.UpdatedAt,
		})
	}
	return out, nil
}
