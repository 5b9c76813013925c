package suppliers

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"mm_importer/core"
)

// builtinRecommended maps supplier id to the capability subset enabled by
// default. Suppliers without an entry get the "default" set.
var builtinRecommended = map[string][]string{
	"lcsc":    {"get_part_details", "fetch_datasheet", "fetch_pricing_stock"},
	"default": {"get_part_details", "fetch_datasheet"},
}

// capabilityDefaults is the shape of the optional capabilities.yaml
// override file: supplier id to recommended capability list.
type capabilityDefaults struct {
	Recommended map[string][]string `yaml:"recommended"`
}

// LoadCapabilityDefaults merges an optional YAML override file over the
// built-in recommended sets. A missing path returns the built-ins; a
// malformed file is an error so a typo does not silently disable
// enrichment defaults.
func LoadCapabilityDefaults(path string) (map[string][]string, error) {
	merged := make(map[string][]string, len(builtinRecommended))
	for k, v := range builtinRecommended {
		merged[k] = append([]string(nil), v...)
	}
	if path == "" {
		return merged, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return merged, nil
		}
		return nil, fmt.Errorf("reading capability defaults %s: %w", path, err)
	}

	var overrides capabilityDefaults
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, fmt.Errorf("parsing capability defaults %s: %w", path, err)
	}
	for supplier, caps := range overrides.Recommended {
		merged[strings.ToLower(supplier)] = caps
	}
	return merged, nil
}

// Selection tracks which enrichment capabilities are enabled for one
// resolved supplier. Defaults are seeded exactly once at construction;
// after that only explicit calls mutate the set.
type Selection struct {
	supplier  core.SupplierCapability
	available []string
	enabled   map[string]bool
}

// NewSelection seeds a Selection with the recommended subset for the
// supplier. defaults comes from LoadCapabilityDefaults; nil uses the
// built-ins.
func NewSelection(cap core.SupplierCapability, defaults map[string][]string) *Selection {
	if defaults == nil {
		defaults = builtinRecommended
	}

	available := append([]string(nil), cap.EnrichmentCapabilities...)
	sort.Strings(available)

	recommended := defaults[cap.ID]
	if recommended == nil {
		recommended = defaults["default"]
	}

	enabled := make(map[string]bool, len(available))
	for _, rec := range recommended {
		for _, avail := range available {
			if avail == rec {
				enabled[rec] = true
			}
		}
	}

	return &Selection{supplier: cap, available: available, enabled: enabled}
}

// Available returns the capabilities the supplier can perform, sorted.
func (s *Selection) Available() []string {
	return s.available
}

// Toggle flips one capability. Unknown ids are ignored.
func (s *Selection) Toggle(capability string) {
	for _, avail := range s.available {
		if avail == capability {
			s.enabled[capability] = !s.enabled[capability]
			return
		}
	}
}

// SelectAll enables every available capability.
func (s *Selection) SelectAll() {
	for _, avail := range s.available {
		s.enabled[avail] = true
	}
}

// ClearAll disables every capability. Import then proceeds with base
// file data only.
func (s *Selection) ClearAll() {
	s.enabled = make(map[string]bool, len(s.available))
}

// Selected returns the enabled capabilities, sorted.
func (s *Selection) Selected() []string {
	out := make([]string, 0, len(s.enabled))
	for cap, on := range s.enabled {
		if on {
			out = append(out, cap)
		}
	}
	sort.Strings(out)
	return out
}

// Enabled reports whether the given capability is on.
func (s *Selection) Enabled(capability string) bool {
	return s.enabled[capability]
}

// CredentialNotice returns a non-blocking warning when the supplier
// reports missing credentials, or "" when fully configured. Import
// proceeds either way; enrichment simply degrades to base data.
func (s *Selection) CredentialNotice() string {
	if len(s.supplier.MissingCredentials) == 0 {
		return ""
	}
	return fmt.Sprintf(
		"Supplier %s is missing credentials (%s); enrichment may return base data only",
		s.supplier.DisplayName, strings.Join(s.supplier.MissingCredentials, ", "))
}
