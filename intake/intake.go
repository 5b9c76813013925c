// Package intake handles order file selection: validation, preview
// generation, supplier detection from the filename, and best-effort
// extraction of order metadata.
//
// Preview is heuristic and never blocks the workflow: a file that fails
// both the local reader and the backend preview still yields a
// FilePreview with IsSupported=false so the user can decide to proceed
// or pick another file.
package intake

import (
	"context"
	"io"
	"mime"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"mm_importer/core"
	"mm_importer/logging"
)

// backend is the slice of the MakerMatrix client the intake layer needs.
type backend interface {
	PreviewFile(ctx context.Context, filename string, file io.Reader) (*core.FilePreview, error)
	ExtractFilenameInfo(ctx context.Context, filename, parserType string) (core.OrderInfo, error)
}

// Intake validates and previews order files.
type Intake struct {
	cfg    *core.Config
	client backend
	log    *logging.Logger
}

// New creates an Intake. client may come from makermatrix.NewClientFromConfig.
func New(cfg *core.Config, client backend, log *logging.Logger) *Intake {
	return &Intake{cfg: cfg, client: client, log: log}
}

// SelectFile validates the file and builds its preview. supplierID is the
// currently resolved supplier, or "" if none; it only affects the size
// ceiling. The returned preview replaces any prior one wholesale.
func (i *Intake) SelectFile(ctx context.Context, path, supplierID string) (*core.FilePreview, error) {
	stat, format, err := i.ValidateFile(path, supplierID)
	if err != nil {
		return nil, err
	}

	preview := &core.FilePreview{
		Filename:       filepath.Base(path),
		Size:           stat.Size(),
		MimeType:       mime.TypeByExtension(filepath.Ext(path)),
		FileFormat:     format,
		DetectedParser: DetectParser(path),
	}

	headers, samples, total, localErr := i.previewLocal(path, format)
	if localErr == nil {
		preview.Headers = headers
		preview.SampleRows = samples
		preview.TotalRows = total
		preview.IsSupported = true
		return preview, nil
	}

	i.log.Debug("local preview failed, trying backend",
		zap.String("file", preview.Filename), zap.Error(localErr))

	remote, remoteErr := i.previewRemote(ctx, path)
	if remoteErr == nil {
		remote.Size = stat.Size()
		remote.MimeType = preview.MimeType
		if remote.FileFormat == "" {
			remote.FileFormat = format
		}
		if remote.DetectedParser == "" {
			remote.DetectedParser = preview.DetectedParser
		}
		return remote, nil
	}

	i.log.Warn("preview unavailable",
		zap.String("file", preview.Filename),
		zap.NamedError("local", localErr),
		zap.NamedError("backend", remoteErr))

	preview.IsSupported = false
	preview.ValidationErrors = append(preview.ValidationErrors,
		"Could not generate a preview: "+localErr.Error())
	return preview, nil
}

func (i *Intake) previewLocal(path, format string) ([]string, []map[string]string, int, error) {
	if format == "csv" {
		return previewCSV(path)
	}
	return previewExcel(path)
}

func (i *Intake) previewRemote(ctx context.Context, path string) (*core.FilePreview, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return i.client.PreviewFile(ctx, path, f)
}

// ExtractOrderInfo pulls order metadata for the selected file: local
// filename patterns first, then the backend helper. Failures are logged
// at debug and yield the empty partial; extraction never blocks the
// workflow.
func (i *Intake) ExtractOrderInfo(ctx context.Context, filename, parserID string) core.OrderInfo {
	info := ExtractFromFilename(filename, parserID)

	remote, err := i.client.ExtractFilenameInfo(ctx, filename, parserID)
	if err != nil {
		i.log.Debug("backend filename extraction failed",
			zap.String("file", filepath.Base(filename)), zap.Error(err))
		return info
	}

	// Local patterns win; backend fills what they missed
	info.Merge(remote)
	return info
}
