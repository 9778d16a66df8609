package leadimport

import "github.com/leadline/lead-import-api/internal/domain"

type field int

const (
	fieldTitle field = iota
	fieldClientName
	fieldCompanyName
	fieldEmail
	fieldPhone
	fieldSocials
	fieldLocation
	fieldIndustry
	fieldWebsite
	fieldNotes
	fieldLists
)

// fieldAliases lists the accepted header spellings per field, highest priority first.
// The first alias is also the header used when a canonical lead is rendered back
// into a raw row. Add spellings here; matching logic does not change.
var fieldAliases = map[field][]string{
	fieldTitle: {
		"Title", "Task Title", "Task", "Job Title", "Role", "Position", "Subject",
	},
	fieldClientName: {
		"Client Name", "Contact Name", "Name", "Customer", "Customer Name", "Client",
		"Contact", "Full Name", "Lead Name", "Lead",
	},
	fieldCompanyName: {
		"Company Name", "Company", "Business Name", "Business", "Organization",
		"Organisation", "Account", "Account Name", "Brand",
	},
	fieldEmail: {
		"Email", "Email Address", "E-mail", "E-mail Address", "Emails", "Mail",
		"Contact Email",
	},
	fieldPhone: {
		"Phone", "Phone Number", "Phone Numbers", "Phones", "Mobile", "Mobile Number",
		"Cell", "Telephone", "Tel", "Contact Number", "WhatsApp",
	},
	fieldSocials: {
		"Socials", "Social", "Social Media", "Social Links", "LinkedIn", "Instagram",
		"Facebook", "Twitter", "X",
	},
	fieldLocation: {
		"Location", "Address", "City", "Region", "State", "Country",
	},
	fieldIndustry: {
		"Industry", "Sector", "Niche", "Vertical", "Category",
	},
	fieldWebsite: {
		"Website", "Web Site", "Site", "URL", "Web", "Domain",
	},
	fieldNotes: {
		"Notes", "Note", "Comments", "Comment", "Description", "Details", "Remarks",
	},
	fieldLists: {
		"Lists", "List", "List Name", "Segments", "Segment", "Tags", "Tag", "Groups",
		"Group",
	},
}

// foldedAliases is fieldAliases with every spelling passed through domain.FoldHeader.
var foldedAliases = foldAliases(fieldAliases)

func foldAliases(in map[field][]string) map[field][]string {
	out := make(map[field][]string, len(in))
	for f, aliases := range in {
		folded := make([]string, 0, len(aliases))
		for _, a := range aliases {
			folded = append(folded, domain.FoldHeader(a))
		}
		out[f] = folded
	}
	return out
}

func primaryHeader(f field) string {
	return fieldAliases[f][0]
}
