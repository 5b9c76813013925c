package logging

import (
	"regexp"
	"strings"
)

// RedactedPlaceholder is the string used to replace sensitive data.
const RedactedPlaceholder = "[REDACTED]"

// sensitivePatterns are compiled once at package initialization.
var sensitivePatterns = []*regexp.Regexp{
	// Bearer tokens in request dumps
	regexp.MustCompile(`(?i)(bearer\s+[a-zA-Z0-9._-]{20,})`),
	// Generic 32+ char hex strings (most MakerMatrix API keys)
	regexp.MustCompile(`\b[a-f0-9]{32,}\b`),
	// Generic secret assignments
	regexp.MustCompile(`(?i)(password\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(secret\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(token\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(api_key\s*[:=]\s*[^\s,;]{8,})`),
}

// sensitiveFieldMarkers flag structured-log field names whose values must
// never reach the log output.
var sensitiveFieldMarkers = []string{
	"MAKERMATRIX_API_KEY",
	"API_KEY",
	"APIKEY",
	"PASSWORD",
	"SECRET",
	"TOKEN",
	"CREDENTIAL",
}

// RedactSensitiveData scans a string and redacts any detected sensitive data.
func RedactSensitiveData(value string) string {
	if value == "" {
		return value
	}

	result := value
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, RedactedPlaceholder)
	}
	return result
}

// RedactField redacts a field value when the field name indicates
// sensitive data; otherwise the value passes through a content scan.
func RedactField(fieldName, value string) string {
	if IsSensitiveFieldName(fieldName) {
		return RedactedPlaceholder
	}
	return RedactSensitiveData(value)
}

// IsSensitiveFieldName reports whether a field name marks sensitive data.
func IsSensitiveFieldName(name string) bool {
	upper := strings.ToUpper(name)
	for _, marker := range sensitiveFieldMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}
