package leadimport

import (
	"fmt"
	"strings"
)

const reasonInlineDuplicate = "Duplicate list items inside the Lists cell"

// DetectDuplicates reports list-assignment conflicts in one forward pass over leads.
//
// A row whose Lists cell repeated an item gets one inline issue. A list item already
// claimed by the same identity on an earlier row gets a cross-row issue on the later
// row; the earlier row is never flagged. leads is not modified.
func DetectDuplicates(leads []CanonicalLead) []DuplicateIssue {
	issues := make([]DuplicateIssue, 0)
	claimedBy := make(map[string]int)

	for _, lead := range leads {
		if len(lead.InlineDuplicates) > 0 {
			issues = append(issues, DuplicateIssue{
				RowNumber:    lead.RowNumber,
				DuplicateKey: lead.DuplicateKey,
				Reason:       reasonInlineDuplicate,
				Kind:         IssueInlineDuplicate,
				ListItem:     strings.Join(lead.InlineDuplicates, ", "),
			})
		}

		for _, item := range lead.Lists {
			key := lead.Identity + "::" + strings.ToLower(item)
			if first, ok := claimedBy[key]; ok {
				issues = append(issues, DuplicateIssue{
					RowNumber:    lead.RowNumber,
					DuplicateKey: lead.DuplicateKey,
					Reason:       fmt.Sprintf("List %q is already assigned to this lead on row %d", item, first),
					Kind:         IssueCrossRowDuplicate,
					ListItem:     item,
					FirstRow:     first,
				})
				continue
			}
			claimedBy[key] = lead.RowNumber
		}
	}
	return issues
}

// Process normalizes rows and runs the duplicate detector over the result.
func Process(rows []RawRow) Result {
	leads := NormalizeRows(rows)
	return Result{
		ParsedRows:      leads,
		DuplicateIssues: DetectDuplicates(leads),
	}
}
