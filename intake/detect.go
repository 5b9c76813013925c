package intake

import (
	"path/filepath"
	"regexp"
	"strings"

	"mm_importer/core"
)

// Filename patterns for supplier detection. Checked in order; first hit
// wins. These mirror the export naming conventions of the suppliers the
// backend ships parsers for.
var detectionPatterns = []struct {
	supplier string
	pattern  *regexp.Regexp
}{
	{"lcsc", regexp.MustCompile(`(?i)^lcsc[_-]`)},
	{"lcsc", regexp.MustCompile(`(?i)^szlcsc`)},
	{"digikey", regexp.MustCompile(`(?i)^(dk|digi[-_]?key)[_-]`)},
	{"digikey", regexp.MustCompile(`(?i)^dk_products`)},
	{"mouser", regexp.MustCompile(`(?i)^mouser`)},
	{"mouser", regexp.MustCompile(`(?i)^\d{8}\.xls$`)}, // mouser order exports are named by order number
	{"bolt-depot", regexp.MustCompile(`(?i)^bolt[-_]?depot`)},
}

// DetectParser infers a supplier id from the filename. Returns "" when no
// pattern matches; callers fall back to content detection or user choice.
func DetectParser(filename string) string {
	base := filepath.Base(filename)
	for _, d := range detectionPatterns {
		if d.pattern.MatchString(base) {
			return d.supplier
		}
	}
	return ""
}

// LCSC exports are named LCSC_Exported__YYYYMMDD_HHMMSS.csv.
var lcscExportPattern = regexp.MustCompile(`(?i)lcsc_exported__(\d{4})(\d{2})(\d{2})_\d{6}`)

// DigiKey sales order exports carry the order number in the filename.
var digikeyOrderPattern = regexp.MustCompile(`(?i)(?:dk_products|weborder)[_-](\d{6,})`)

// ExtractFromFilename pulls order metadata out of a filename using local
// patterns only. The result is a partial OrderInfo, possibly empty.
func ExtractFromFilename(filename, parserID string) core.OrderInfo {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	var info core.OrderInfo
	switch parserID {
	case "lcsc":
		if m := lcscExportPattern.FindStringSubmatch(base); m != nil {
			info.OrderDate = m[1] + "-" + m[2] + "-" + m[3]
		}
	case "digikey":
		if m := digikeyOrderPattern.FindStringSubmatch(base); m != nil {
			info.OrderNumber = m[1]
		}
	case "mouser":
		// Mouser exports named by their numeric order number
		if m := regexp.MustCompile(`^(\d{8})$`).FindStringSubmatch(base); m != nil {
			info.OrderNumber = m[1]
		}
	}
	return info
}
