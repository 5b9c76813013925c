// Package suppliers resolves which backend parser handles an order file
// and manages the enrichment capability selection for the chosen
// supplier.
package suppliers

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"mm_importer/core"
	"mm_importer/logging"
	"mm_importer/makermatrix"
)

// backend is the slice of the MakerMatrix client the resolver needs.
type backend interface {
	ListImportSuppliers(ctx context.Context) ([]core.SupplierCapability, error)
	ListConfiguredSuppliers(ctx context.Context) ([]makermatrix.ConfiguredSupplier, error)
}

// fallbackSuppliers is the built-in list used when the backend cannot
// enumerate its own suppliers. The workflow must never dead-end on a
// listing failure; these are the parsers every deployment ships.
var fallbackSuppliers = []core.SupplierCapability{
	{
		ID:                     "lcsc",
		DisplayName:            "LCSC Electronics",
		SupportedFileTypes:     []string{"csv"},
		ImportAvailable:        true,
		EnrichmentCapabilities: []string{"get_part_details", "fetch_datasheet", "fetch_pricing_stock"},
	},
	{
		ID:                     "digikey",
		DisplayName:            "DigiKey",
		SupportedFileTypes:     []string{"csv", "xls", "xlsx"},
		ImportAvailable:        true,
		EnrichmentCapabilities: []string{"get_part_details", "fetch_datasheet"},
	},
	{
		ID:                     "mouser",
		DisplayName:            "Mouser Electronics",
		SupportedFileTypes:     []string{"xls", "xlsx"},
		ImportAvailable:        true,
		EnrichmentCapabilities: []string{"get_part_details", "fetch_datasheet"},
	},
}

// Resolver fetches and caches the supplier set for one workflow session.
type Resolver struct {
	client backend
	log    *logging.Logger

	suppliers []core.SupplierCapability
	// UsedFallback is true when the built-in list is in effect
	UsedFallback bool
}

// NewResolver creates a Resolver. The supplier set is fetched lazily on
// the first ListSuppliers call and cached for the session.
func NewResolver(client backend, log *logging.Logger) *Resolver {
	return &Resolver{client: client, log: log}
}

// ListSuppliers returns the import-capable suppliers narrowed to the
// enabled configuration set. Degradation is progressive: if the
// configuration listing fails, all import-capable suppliers are offered;
// if the capability listing fails too, the built-in fallback list is
// used so the user can still pick a parser.
func (r *Resolver) ListSuppliers(ctx context.Context) []core.SupplierCapability {
	if r.suppliers != nil {
		return r.suppliers
	}

	capable, err := r.client.ListImportSuppliers(ctx)
	if err != nil || len(capable) == 0 {
		r.log.Warn("supplier listing unavailable, using built-in fallback", zap.Error(err))
		r.UsedFallback = true
		r.suppliers = fallbackSuppliers
		return r.suppliers
	}

	configured, err := r.client.ListConfiguredSuppliers(ctx)
	if err != nil {
		r.log.Debug("configured-supplier listing failed, offering all import-capable", zap.Error(err))
		r.suppliers = importable(capable)
		return r.suppliers
	}

	enabled := make(map[string]bool, len(configured))
	for _, c := range configured {
		if c.Enabled {
			enabled[strings.ToLower(c.SupplierName)] = true
		}
	}

	narrowed := make([]core.SupplierCapability, 0, len(capable))
	for _, cap := range importable(capable) {
		if enabled[cap.ID] {
			narrowed = append(narrowed, cap)
		}
	}
	if len(narrowed) == 0 {
		// An empty intersection means the configuration listing is stale
		// or unrelated; offering nothing would dead-end the workflow
		narrowed = importable(capable)
	}

	r.suppliers = narrowed
	return r.suppliers
}

// importable filters to import-capable suppliers, sorted by ID so every
// degradation path renders the listing in the same order.
func importable(caps []core.SupplierCapability) []core.SupplierCapability {
	out := make([]core.SupplierCapability, 0, len(caps))
	for _, c := range caps {
		if c.ImportAvailable {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Resolve returns the supplier with the given id from the session set.
func (r *Resolver) Resolve(ctx context.Context, id string) (*core.SupplierCapability, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return nil, core.ErrSupplierNotFound(id)
	}
	for _, s := range r.ListSuppliers(ctx) {
		if s.ID == id {
			out := s
			return &out, nil
		}
	}
	return nil, core.ErrSupplierNotFound(id)
}

// AutoDetect resolves the preview's detected parser to a supplier,
// marking it AutoDetected. Returns nil when the detected id is unknown;
// auto-detection is advisory and a manual choice always wins.
func (r *Resolver) AutoDetect(ctx context.Context, detectedParser string) *core.SupplierCapability {
	if detectedParser == "" {
		return nil
	}
	cap, err := r.Resolve(ctx, detectedParser)
	if err != nil {
		r.log.Debug("detected parser is not an offered supplier",
			zap.String("parser", detectedParser))
		return nil
	}
	cap.AutoDetected = true
	return cap
}
