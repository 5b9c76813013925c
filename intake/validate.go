package intake

import (
	"os"
	"path/filepath"
	"strings"

	"mm_importer/core"
)

// Supported order file formats, by normalized extension.
var supportedFormats = map[string]string{
	"csv":  "text/csv",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// FileFormat returns the normalized extension ("csv", "xls", "xlsx") or
// "" for anything else.
func FileFormat(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if _, ok := supportedFormats[ext]; !ok {
		return ""
	}
	return ext
}

// ValidateFile checks extension and size against the configured ceiling
// before any file content is read. supplierID may be empty when no
// supplier is resolved yet; the default ceiling applies.
func (i *Intake) ValidateFile(path, supplierID string) (os.FileInfo, string, error) {
	format := FileFormat(path)
	if format == "" {
		return nil, "", core.ErrUnsupportedFormat(filepath.Ext(path))
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, "", core.ErrFileUnreadable(path, err)
	}
	if stat.IsDir() {
		return nil, "", core.ErrFileUnreadable(path, os.ErrInvalid)
	}

	limit := i.cfg.MaxFileSizeFor(supplierID)
	if stat.Size() > limit {
		return nil, "", core.ErrFileTooLarge(stat.Size(), limit)
	}

	return stat, format, nil
}
