package suppliers

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"mm_importer/core"
)

func lcscCapability() core.SupplierCapability {
	return core.SupplierCapability{
		ID:          "lcsc",
		DisplayName: "LCSC Electronics",
		EnrichmentCapabilities: []string{
			"get_part_details", "fetch_datasheet", "fetch_pricing_stock", "fetch_image",
		},
	}
}

func TestNewSelection_RecommendedDefaults(t *testing.T) {
	sel := NewSelection(lcscCapability(), nil)

	want := []string{"fetch_datasheet", "fetch_pricing_stock", "get_part_details"}
	if got := sel.Selected(); !reflect.DeepEqual(got, want) {
		t.Errorf("Selected() = %v, want %v", got, want)
	}
	if sel.Enabled("fetch_image") {
		t.Error("fetch_image is not recommended for lcsc")
	}
}

func TestNewSelection_DefaultSetForUnknownSupplier(t *testing.T) {
	cap := core.SupplierCapability{
		ID:                     "mouser",
		EnrichmentCapabilities: []string{"get_part_details", "fetch_datasheet", "fetch_pricing_stock"},
	}
	sel := NewSelection(cap, nil)

	want := []string{"fetch_datasheet", "get_part_details"}
	if got := sel.Selected(); !reflect.DeepEqual(got, want) {
		t.Errorf("Selected() = %v, want %v", got, want)
	}
}

func TestNewSelection_RecommendedIntersectsAvailable(t *testing.T) {
	// Supplier only offers part details; recommended datasheet/pricing
	// must not appear selected
	cap := core.SupplierCapability{
		ID:                     "lcsc",
		EnrichmentCapabilities: []string{"get_part_details"},
	}
	sel := NewSelection(cap, nil)

	if got := sel.Selected(); !reflect.DeepEqual(got, []string{"get_part_details"}) {
		t.Errorf("Selected() = %v", got)
	}
}

func TestSelection_Toggle(t *testing.T) {
	sel := NewSelection(lcscCapability(), nil)

	sel.Toggle("fetch_pricing_stock")
	if sel.Enabled("fetch_pricing_stock") {
		t.Error("toggle off failed")
	}
	sel.Toggle("fetch_pricing_stock")
	if !sel.Enabled("fetch_pricing_stock") {
		t.Error("toggle back on failed")
	}

	sel.Toggle("nonexistent_capability")
	if sel.Enabled("nonexistent_capability") {
		t.Error("unknown capability must not become enabled")
	}
}

func TestSelection_SelectAllClearAll(t *testing.T) {
	sel := NewSelection(lcscCapability(), nil)

	sel.SelectAll()
	if len(sel.Selected()) != 4 {
		t.Errorf("SelectAll: %v", sel.Selected())
	}

	sel.ClearAll()
	if len(sel.Selected()) != 0 {
		t.Errorf("ClearAll: %v", sel.Selected())
	}
}

func TestSelection_CredentialNotice(t *testing.T) {
	cap := lcscCapability()
	if notice := NewSelection(cap, nil).CredentialNotice(); notice != "" {
		t.Errorf("configured supplier should have no notice, got %q", notice)
	}

	cap.MissingCredentials = []string{"api_key", "api_secret"}
	notice := NewSelection(cap, nil).CredentialNotice()
	if notice == "" {
		t.Fatal("expected a credential notice")
	}
}

func TestLoadCapabilityDefaults_MissingFile(t *testing.T) {
	defaults, err := LoadCapabilityDefaults(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file must fall back to built-ins: %v", err)
	}
	if len(defaults["lcsc"]) != 3 {
		t.Errorf("built-in lcsc defaults = %v", defaults["lcsc"])
	}
}

func TestLoadCapabilityDefaults_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capabilities.yaml")
	content := "recommended:\n  LCSC:\n    - get_part_details\n  bolt-depot:\n    - get_part_details\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	defaults, err := LoadCapabilityDefaults(path)
	if err != nil {
		t.Fatalf("LoadCapabilityDefaults() error: %v", err)
	}
	if !reflect.DeepEqual(defaults["lcsc"], []string{"get_part_details"}) {
		t.Errorf("override not applied: %v", defaults["lcsc"])
	}
	if len(defaults["bolt-depot"]) != 1 {
		t.Errorf("new supplier not merged: %v", defaults["bolt-depot"])
	}
	// Untouched entries keep the built-in values
	if !reflect.DeepEqual(defaults["default"], []string{"get_part_details", "fetch_datasheet"}) {
		t.Errorf("default set changed: %v", defaults["default"])
	}
}

func TestLoadCapabilityDefaults_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capabilities.yaml")
	if err := os.WriteFile(path, []byte("recommended: [not a map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCapabilityDefaults(path); err == nil {
		t.Error("malformed YAML must be an error")
	}
}
