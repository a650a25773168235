package bulk

import (
	"fmt"
	"strings"

	"github.com/swdepot/depot-engine/internal/models"
)

// maxNamedConflicts bounds how many conflicting item names a summary spells
// out before collapsing the rest into a count.
const maxNamedConflicts = 3

// SummarizeMove renders a bulk-move result as one human-scannable message.
// Structured conflicts name the first few offending items plus an overflow
// count; they are never dumped unbounded.
func SummarizeMove(result models.BulkOperationResult) string {
	if len(result.Conflicted) == 0 {
		return fmt.Sprintf("Moved %d item(s).", result.SuccessCount)
	}
	if result.FailedEntirely {
		return fmt.Sprintf(
			"No items were moved; all %d name(s) already exist in the target version: %s.",
			len(result.Conflicted),
			conflictNames(result.Conflicted, maxNamedConflicts),
		)
	}
	return fmt.Sprintf(
		"Moved %d item(s); %d could not be moved because the name already exists in the target version: %s.",
		result.SuccessCount,
		len(result.Conflicted),
		conflictNames(result.Conflicted, maxNamedConflicts),
	)
}

// SummarizeDownload renders the bulk-download success message, disclosing
// when part of the selection was excluded as non-downloadable.
func SummarizeDownload(archiveName string, downloaded, excluded int) string {
	if excluded == 0 {
		return fmt.Sprintf("Preparing download of %d item(s) as %s.", downloaded, archiveName)
	}
	return fmt.Sprintf(
		"Preparing download of %d item(s) as %s; %d selected item(s) were excluded (external links and non-downloadable items cannot be archived).",
		downloaded, archiveName, excluded,
	)
}

// conflictNames joins at most limit display names, appending "and N more"
// when the list overflows.
func conflictNames(items []models.ConflictedItem, limit int) string {
	names := make([]string, 0, limit)
	for i, item := range items {
		if i == limit {
			break
		}
		names = append(names, item.Name)
	}
	joined := strings.Join(names, ", ")
	if rest := len(items) - limit; rest > 0 {
		joined += fmt.Sprintf(" and %d more", rest)
	}
	return joined
}
