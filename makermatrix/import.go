package makermatrix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strconv"

	"mm_importer/core"
)

// Canonical endpoint paths. The backend historically exposed a parallel
// /api/csv/import-file route; this client uses /api/import/file only.
const (
	pathImportSuppliers     = "/api/import/suppliers"
	pathConfiguredSuppliers = "/api/suppliers/config/suppliers"
	pathPreviewFile         = "/api/csv/preview-file"
	pathExtractFilename     = "/api/csv/extract-filename-info"
	pathImportFile          = "/api/import/file"
	pathTask                = "/api/tasks/"
)

// ListImportSuppliers fetches the suppliers capable of order import.
func (c *Client) ListImportSuppliers(ctx context.Context) ([]core.SupplierCapability, error) {
	data, err := c.getJSON(ctx, pathImportSuppliers, nil)
	if err != nil {
		return nil, err
	}

	var payloads []supplierPayload
	if err := json.Unmarshal(data, &payloads); err != nil {
		return nil, fmt.Errorf("decoding supplier listing: %w", err)
	}

	caps := make([]core.SupplierCapability, 0, len(payloads))
	for _, p := range payloads {
		cap := p.toCapability()
		if cap.ID == "" {
			continue
		}
		caps = append(caps, cap)
	}
	return caps, nil
}

// ListConfiguredSuppliers fetches the enabled-configuration listing used
// to narrow the import-capable set.
func (c *Client) ListConfiguredSuppliers(ctx context.Context) ([]ConfiguredSupplier, error) {
	data, err := c.getJSON(ctx, pathConfiguredSuppliers, nil)
	if err != nil {
		return nil, err
	}

	var out []ConfiguredSupplier
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding configured suppliers: %w", err)
	}
	return out, nil
}

// PreviewFile posts the raw file to the backend preview endpoint.
// Used as the fallback when the local heuristic preview fails.
func (c *Client) PreviewFile(ctx context.Context, filename string, file io.Reader) (*core.FilePreview, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, err
	}
	size, err := io.Copy(part, file)
	if err != nil {
		return nil, fmt.Errorf("buffering %s for preview: %w", filename, err)
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	data, err := c.postMultipart(ctx, pathPreviewFile, body, writer.FormDataContentType())
	if err != nil {
		return nil, err
	}

	var payload previewPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decoding preview: %w", err)
	}

	preview := &core.FilePreview{
		Filename:         filepath.Base(filename),
		Size:             size,
		DetectedParser:   payload.DetectedParser,
		Headers:          payload.Headers,
		SampleRows:       payload.SampleRows,
		TotalRows:        payload.TotalRows,
		IsSupported:      payload.IsSupported,
		ValidationErrors: payload.ValidationErrors,
		FileFormat:       payload.FileFormat,
	}
	return preview, nil
}

// ExtractFilenameInfo asks the backend to parse order metadata out of a
// filename. Best-effort: callers swallow failures.
func (c *Client) ExtractFilenameInfo(ctx context.Context, filename, parserType string) (core.OrderInfo, error) {
	payload := map[string]string{"filename": filepath.Base(filename)}
	if parserType != "" {
		payload["parser_type"] = parserType
	}

	data, err := c.postJSON(ctx, pathExtractFilename, payload)
	if err != nil {
		return core.OrderInfo{}, err
	}

	var info filenameInfoPayload
	if err := json.Unmarshal(data, &info); err != nil {
		return core.OrderInfo{}, fmt.Errorf("decoding filename info: %w", err)
	}

	return core.OrderInfo{
		OrderNumber: info.OrderNumber,
		OrderDate:   info.OrderDate,
		Notes:       info.Notes,
	}, nil
}

// ImportRequest carries one import submission.
type ImportRequest struct {
	Filename               string
	File                   io.Reader
	SupplierName           string
	OrderInfo              core.OrderInfo
	EnableEnrichment       bool
	EnrichmentCapabilities []string
}

// ImportFile submits the order file and its metadata as one multipart
// request. The response is the structured import outcome; a domain-level
// rejection inside an HTTP 200 surfaces as an error.
func (c *Client) ImportFile(ctx context.Context, req ImportRequest) (*core.ImportResult, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(req.Filename))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, req.File); err != nil {
		return nil, fmt.Errorf("buffering %s for import: %w", req.Filename, err)
	}

	fields := map[string]string{
		"supplier_name":     req.SupplierName,
		"order_number":      req.OrderInfo.OrderNumber,
		"order_date":        req.OrderInfo.OrderDate,
		"notes":             req.OrderInfo.Notes,
		"enable_enrichment": strconv.FormatBool(req.EnableEnrichment),
	}
	for name, value := range fields {
		if value == "" && name != "enable_enrichment" {
			continue
		}
		if err := writer.WriteField(name, value); err != nil {
			return nil, err
		}
	}

	if req.EnableEnrichment && len(req.EnrichmentCapabilities) > 0 {
		capsJSON, err := json.Marshal(req.EnrichmentCapabilities)
		if err != nil {
			return nil, err
		}
		if err := writer.WriteField("enrichment_capabilities", string(capsJSON)); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	data, err := c.postMultipart(ctx, pathImportFile, body, writer.FormDataContentType())
	if err != nil {
		return nil, err
	}

	var payload importResultPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decoding import result: %w", err)
	}
	return payload.toResult(), nil
}
