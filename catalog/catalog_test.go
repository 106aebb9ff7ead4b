package catalog

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeCatalogs(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		"brand_mapping.json":     `{"01": "Prusament", "02": "Anycubic", "03": "eSUN"}`,
		"material_mapping.json":  `{"01": "PLA", "02": "PETG"}`,
		"attribute_mapping.json": `{"00": "", "01": "Silk", "02": "Matte"}`,
		"color_mapping.json": `{
  "Black": {"001": "Galaxy Black", "002": "Jet Black"},
  "Transparent": {"101": "Clear"},
  "Gray": {"201": "Silver Gray"}
}`,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatalf("WriteFile(%s) error = %v", name, err)
		}
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	dir := t.TempDir()
	writeCatalogs(t, dir)
	return NewRegistry(dir, nil)
}

func TestRegistry_FlattensColors(t *testing.T) {
	r := newTestRegistry(t)
	colors, err := r.Catalog(KindColor)
	if err != nil {
		t.Fatalf("Catalog(color) error = %v", err)
	}
	want := Catalog{"001": "Galaxy Black", "002": "Jet Black", "101": "Clear", "201": "Silver Gray"}
	if !reflect.DeepEqual(colors, want) {
		t.Fatalf("flattened colors = %v, want %v", colors, want)
	}

	groups := r.ColorGroups()
	if len(groups) != 3 {
		t.Fatalf("expected 3 colour groups, got %d", len(groups))
	}
	if groups["Transparent"]["101"] != "Clear" {
		t.Fatalf("Transparent group = %v", groups["Transparent"])
	}
}

func TestCatalog_CodeFor(t *testing.T) {
	r := newTestRegistry(t)
	cases := []struct {
		kind  Kind
		label string
		code  string
		ok    bool
	}{
		{KindColor, "galaxy   BLACK", "001", true},
		{KindBrand, " esun ", "03", true},
		{KindAttribute, "", "00", true},
		{KindMaterial, "ABS", "", false},
		{KindBrand, "Prusa", "", false},
	}
	for _, tc := range cases {
		code, ok := r.Lookup(tc.kind).CodeFor(tc.label)
		if code != tc.code || ok != tc.ok {
			t.Fatalf("CodeFor(%s, %q) = (%q, %v), want (%q, %v)", tc.kind, tc.label, code, ok, tc.code, tc.ok)
		}
	}
}

func TestCatalog_CodeForPrefersLowestCode(t *testing.T) {
	c := Catalog{"10": "PLA", "02": "pla", "x1": "PLA"}
	code, ok := c.CodeFor("Pla")
	if !ok || code != "02" {
		t.Fatalf("CodeFor = (%q, %v), want (02, true)", code, ok)
	}
}

func TestRegistry_MissingDirIsEmpty(t *testing.T) {
	r := NewRegistry(filepath.Join(t.TempDir(), "nope"), nil)
	c, err := r.Catalog(KindBrand)
	if err != nil {
		t.Fatalf("Catalog() error = %v", err)
	}
	if len(c) != 0 {
		t.Fatalf("expected empty catalog, got %v", c)
	}
}

func TestRegistry_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "brand_mapping.json"), []byte(`{"01": `), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	r := NewRegistry(dir, nil)
	if _, err := r.Catalog(KindBrand); err == nil {
		t.Fatal("expected decode error for malformed catalog")
	}
	if got := r.Lookup(KindBrand); len(got) != 0 {
		t.Fatalf("Lookup() on malformed catalog = %v, want empty", got)
	}
}

func TestRegistry_InvalidateReloads(t *testing.T) {
	dir := t.TempDir()
	writeCatalogs(t, dir)
	r := NewRegistry(dir, nil)

	if _, ok := r.Lookup(KindBrand).Label("04"); ok {
		t.Fatal("code 04 should not exist yet")
	}
	updated := `{"01": "Prusament", "02": "Anycubic", "03": "eSUN", "04": "Polymaker"}`
	if err := os.WriteFile(filepath.Join(dir, "brand_mapping.json"), []byte(updated), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, ok := r.Lookup(KindBrand).Label("04"); ok {
		t.Fatal("cached catalog should not see the edit before Invalidate")
	}
	r.Invalidate()
	if label, ok := r.Lookup(KindBrand).Label("04"); !ok || label != "Polymaker" {
		t.Fatalf("Label(04) after Invalidate = (%q, %v)", label, ok)
	}
}

func TestRegistry_Options(t *testing.T) {
	r := newTestRegistry(t)
	opts := r.Options()
	if !reflect.DeepEqual(opts.Brands, []string{"Prusament", "Anycubic", "eSUN"}) {
		t.Fatalf("brands = %v", opts.Brands)
	}
	if !reflect.DeepEqual(opts.Attributes, []string{"", "Silk", "Matte"}) {
		t.Fatalf("attributes = %v", opts.Attributes)
	}
	if !reflect.DeepEqual(opts.Locations, []string{"Lab", "Storage"}) {
		t.Fatalf("locations = %v", opts.Locations)
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "attribute_mapping.json"), []byte(`{"01": "Silk"}`), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	noEmpty := NewRegistry(dir, nil).Options()
	if !reflect.DeepEqual(noEmpty.Attributes, []string{"", "Silk"}) {
		t.Fatalf("attributes without empty entry = %v", noEmpty.Attributes)
	}
}

func TestRegistry_ColorSearchTokens(t *testing.T) {
	r := newTestRegistry(t)
	tokens := r.ColorSearchTokens()
	if got, want := tokens["clear"], []string{"clear", "translucent", "transparent"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("tokens[clear] = %v, want %v", got, want)
	}
	if got, want := tokens["silver gray"], []string{"gray", "grey"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("tokens[silver gray] = %v, want %v", got, want)
	}
}
