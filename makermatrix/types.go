package makermatrix

import (
	"strings"

	"mm_importer/core"
)

// supplierPayload is the wire shape of one import-capable supplier.
// Older backends use "supplier_name" where newer ones use "id"; both are
// accepted.
type supplierPayload struct {
	ID                     string   `json:"id"`
	SupplierName           string   `json:"supplier_name"`
	DisplayName            string   `json:"display_name"`
	SupportedFileTypes     []string `json:"supported_file_types"`
	ImportAvailable        bool     `json:"import_available"`
	IsConfigured           bool     `json:"is_configured"`
	ConfigurationStatus    string   `json:"configuration_status"`
	EnrichmentCapabilities []string `json:"enrichment_capabilities"`
	EnrichmentAvailable    bool     `json:"enrichment_available"`
	MissingCredentials     []string `json:"missing_credentials"`
}

func (p supplierPayload) toCapability() core.SupplierCapability {
	id := p.ID
	if id == "" {
		id = p.SupplierName
	}
	id = strings.ToLower(strings.TrimSpace(id))

	display := p.DisplayName
	if display == "" {
		display = id
	}

	status := core.ConfigurationStatus(p.ConfigurationStatus)
	switch status {
	case core.ConfigNotConfigured, core.ConfigPartial, core.ConfigConfigured:
	default:
		if p.IsConfigured {
			status = core.ConfigConfigured
		} else {
			status = core.ConfigNotConfigured
		}
	}

	return core.SupplierCapability{
		ID:                     id,
		DisplayName:            display,
		SupportedFileTypes:     normalizeFileTypes(p.SupportedFileTypes),
		ImportAvailable:        p.ImportAvailable,
		IsConfigured:           p.IsConfigured,
		ConfigurationStatus:    status,
		EnrichmentCapabilities: p.EnrichmentCapabilities,
		EnrichmentAvailable:    p.EnrichmentAvailable,
		MissingCredentials:     p.MissingCredentials,
	}
}

func normalizeFileTypes(types []string) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t), "."))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ConfiguredSupplier is one entry from the enabled-configuration listing.
type ConfiguredSupplier struct {
	SupplierName string `json:"supplier_name"`
	Enabled      bool   `json:"enabled"`
}

// previewPayload is the wire shape of the backend preview endpoint.
type previewPayload struct {
	Filename         string              `json:"filename"`
	DetectedParser   string              `json:"detected_parser"`
	Headers          []string            `json:"headers"`
	SampleRows       []map[string]string `json:"sample_rows"`
	TotalRows        int                 `json:"total_rows"`
	IsSupported      bool                `json:"is_supported"`
	ValidationErrors []string            `json:"validation_errors"`
	FileFormat       string              `json:"file_format"`
}

// filenameInfoPayload is the wire shape of the filename-extraction helper.
type filenameInfoPayload struct {
	OrderNumber string `json:"order_number"`
	OrderDate   string `json:"order_date"`
	Notes       string `json:"notes"`
}

// importResultPayload is the wire shape of an import submission response.
// Older backends report "successful_imports" where newer ones use
// "imported_count"; both are accepted.
type importResultPayload struct {
	ImportedCount     int              `json:"imported_count"`
	SuccessfulImports int              `json:"successful_imports"`
	FailedCount       int              `json:"failed_count"`
	SkippedCount      int              `json:"skipped_count"`
	Warnings          []string         `json:"warnings"`
	SuccessParts      []map[string]any `json:"success_parts"`
	FailedParts       []map[string]any `json:"failed_parts"`
	OrderID           string           `json:"order_id"`
	EnrichmentTaskID  string           `json:"enrichment_task_id"`
}

func (p importResultPayload) toResult() *core.ImportResult {
	imported := p.ImportedCount
	if imported == 0 && p.SuccessfulImports > 0 {
		imported = p.SuccessfulImports
	}
	return &core.ImportResult{
		ImportedCount:    imported,
		FailedCount:      p.FailedCount,
		SkippedCount:     p.SkippedCount,
		Warnings:         p.Warnings,
		SuccessParts:     p.SuccessParts,
		FailedParts:      p.FailedParts,
		OrderID:          p.OrderID,
		EnrichmentTaskID: p.EnrichmentTaskID,
	}
}

// taskPayload is the wire shape of the task status endpoint.
type taskPayload struct {
	ID                 string         `json:"id"`
	Status             string         `json:"status"`
	ProgressPercentage float64        `json:"progress_percentage"`
	CurrentStep        string         `json:"current_step"`
	ErrorMessage       string         `json:"error_message"`
	ResultData         map[string]any `json:"result_data"`
}
