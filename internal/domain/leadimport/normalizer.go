package leadimport

import (
	"regexp"
	"sort"
	"strings"

	"github.com/leadline/lead-import-api/internal/domain"
)

var (
	emailPattern    = regexp.MustCompile(`[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	emailSeparators = regexp.MustCompile(`[\s,;/]+`)
	phoneSeparators = regexp.MustCompile(`[\n,;/]`)
	listSeparators  = regexp.MustCompile(`[\n,;|]`)

	localPartSeparators = strings.NewReplacer(".", " ", "_", " ", "-", " ")
)

// NormalizeRows normalizes an upload in order. Row i (0-based) becomes row
// i+HeaderRows+1 regardless of what later stages find.
func NormalizeRows(rows []RawRow) []CanonicalLead {
	out := make([]CanonicalLead, 0, len(rows))
	for i, raw := range rows {
		out = append(out, NormalizeRow(raw, i+HeaderRows+1))
	}
	return out
}

// NormalizeRow maps one raw row onto a CanonicalLead. Missing or unreadable cells
// degrade to "", never to a panic; ClientName is never empty.
func NormalizeRow(raw RawRow, rowNumber int) CanonicalLead {
	v := newHeaderView(raw)

	title := domain.NormalizeHumanName(v.first(fieldTitle))
	company := domain.NormalizeHumanName(v.first(fieldCompanyName))
	email := primaryEmail(v.first(fieldEmail))
	phone := primaryPhone(v.first(fieldPhone))
	lists, dropped := splitLists(v.first(fieldLists))

	clientName := resolveClientName(
		domain.NormalizeHumanName(v.first(fieldClientName)),
		title,
		company,
		email,
	)

	lead := CanonicalLead{
		RowNumber:        rowNumber,
		Title:            title,
		ClientName:       clientName,
		CompanyName:      company,
		Email:            email,
		Phone:            phone,
		Socials:          v.first(fieldSocials),
		Location:         v.first(fieldLocation),
		Industry:         v.first(fieldIndustry),
		Website:          v.first(fieldWebsite),
		Notes:            v.first(fieldNotes),
		Lists:            lists,
		InlineDuplicates: dropped,
	}
	if lead.Title == "" {
		lead.Title = UntitledLead
	}
	lead.Identity = resolveIdentity(email, phone, clientName, company)
	lead.DuplicateKey = duplicateKey(lead.Identity, lists)
	return lead
}

// RawRow renders the lead back into a raw row keyed by each field's primary header.
// NormalizeRow(l.RawRow(), l.RowNumber) reproduces l, minus InlineDuplicates.
func (l CanonicalLead) RawRow() RawRow {
	return RawRow{
		primaryHeader(fieldTitle):       l.Title,
		primaryHeader(fieldClientName):  l.ClientName,
		primaryHeader(fieldCompanyName): l.CompanyName,
		primaryHeader(fieldEmail):       l.Email,
		primaryHeader(fieldPhone):       l.Phone,
		primaryHeader(fieldSocials):     l.Socials,
		primaryHeader(fieldLocation):    l.Location,
		primaryHeader(fieldIndustry):    l.Industry,
		primaryHeader(fieldWebsite):     l.Website,
		primaryHeader(fieldNotes):       l.Notes,
		primaryHeader(fieldLists):       strings.Join(l.Lists, ", "),
	}
}

// resolveClientName walks the fallback chain; the first non-empty link wins.
func resolveClientName(explicit, title, company, email string) string {
	switch {
	case explicit != "":
		return explicit
	case title != "" && company != "":
		return title + " - " + company
	case company != "":
		return company
	}
	if local := emailLocalPart(email); local != "" {
		return local
	}
	if title != "" {
		return title
	}
	return UnknownClient
}

func emailLocalPart(email string) string {
	local := email
	if at := strings.IndexByte(email, '@'); at >= 0 {
		local = email[:at]
	}
	return domain.NormalizeHumanName(localPartSeparators.Replace(local))
}

// primaryEmail keeps only the first address of a multi-valued cell.
func primaryEmail(raw string) string {
	lower := domain.NormalizeEmail(raw)
	if lower == "" {
		return ""
	}
	if m := emailPattern.FindString(lower); m != "" {
		return m
	}
	for _, tok := range emailSeparators.Split(lower, -1) {
		if tok != "" {
			return tok
		}
	}
	return ""
}

// primaryPhone keeps only the first number of a multi-valued cell.
func primaryPhone(raw string) string {
	for _, tok := range phoneSeparators.Split(raw, -1) {
		if t := strings.TrimSpace(tok); t != "" {
			return t
		}
	}
	return strings.TrimSpace(raw)
}

// splitLists returns the distinct items of a Lists cell and the tokens dropped as
// case-insensitive repeats.
func splitLists(raw string) (items []string, dropped []string) {
	set := newOrderedSet()
	for _, tok := range listSeparators.Split(raw, -1) {
		t := strings.TrimSpace(tok)
		if t == "" {
			continue
		}
		if !set.add(t) {
			dropped = append(dropped, t)
		}
	}
	return set.values(), dropped
}

func resolveIdentity(email, phone, clientName, company string) string {
	if email != "" {
		return email
	}
	if p := domain.NormalizePhone(phone); p != "" {
		return p
	}
	return strings.ToLower(clientName) + "|" + strings.ToLower(company)
}

func duplicateKey(identity string, lists []string) string {
	if len(lists) == 0 {
		return identity + "::" + noListMarker
	}
	keys := make([]string, 0, len(lists))
	for _, l := range lists {
		keys = append(keys, strings.ToLower(l))
	}
	sort.Strings(keys)
	return identity + "::" + strings.Join(keys, "|")
}
