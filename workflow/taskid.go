package workflow

import (
	"regexp"

	"mm_importer/core"
)

// Older backends announce the enrichment task only inside a warning
// string instead of a structured field. This is the single place that
// knows about that format; everything else consumes the plain id.
var taskIDWarningPattern = regexp.MustCompile(`Enrichment task created:\s*([A-Za-z0-9_-]+)`)

// ExtractTaskID returns the enrichment task id from an import result,
// preferring the structured field and falling back to scanning the
// warning strings. Empty when the backend scheduled no task.
func ExtractTaskID(result *core.ImportResult) string {
	if result == nil {
		return ""
	}
	if result.EnrichmentTaskID != "" {
		return result.EnrichmentTaskID
	}
	for _, warning := range result.Warnings {
		if m := taskIDWarningPattern.FindStringSubmatch(warning); m != nil {
			return m[1]
		}
	}
	return ""
}
