package weightmap

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMapping(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weight_mapping.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestEstimate_MaterialOnly(t *testing.T) {
	m, err := Load(writeMapping(t, `{"levels": {"material": {"pla": 140.0}}}`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	e := &Estimator{Mapping: m}
	got, ok := e.Estimate(Key{Brand: "Anycubic", Material: "PLA"})
	if !ok {
		t.Fatal("Estimate() found no match")
	}
	if got.Grams != 140.0 || got.Level != LevelMaterial {
		t.Fatalf("Estimate() = %+v, want 140/material", got)
	}
}

func TestEstimate_PrefersMostSpecificLevel(t *testing.T) {
	m, err := Load(writeMapping(t, `{
		"levels": {
			"brand_color_material_attributes": {"prusament|galaxy black|pla||": 0},
			"brand_material_attributes": {"prusament|pla||": 190.5},
			"brand_material": {"prusament|pla": 185},
			"material": {"pla": 140}
		}
	}`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	e := &Estimator{Mapping: m}
	got, ok := e.Estimate(Key{Brand: "Prusament", Color: "Galaxy Black", Material: "PLA"})
	if !ok {
		t.Fatal("Estimate() found no match")
	}
	if got.Level != LevelBrandMaterialAttributes || got.Grams != 190.5 {
		t.Fatalf("Estimate() = %+v", got)
	}
}

func TestEstimate_NoMatch(t *testing.T) {
	m, err := Load(writeMapping(t, `{"levels": {"material": {"pla": 140, "petg": -3}}}`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	e := &Estimator{Mapping: m}
	cases := []Key{
		{Brand: "Anycubic"},
		{Brand: "Anycubic", Material: "  "},
		{Material: "PETG"},
		{Material: "ABS"},
	}
	for _, k := range cases {
		if got, ok := e.Estimate(k); ok {
			t.Fatalf("Estimate(%+v) = %+v, want no match", k, got)
		}
	}
}

func TestEstimate_MaxLevel(t *testing.T) {
	m, err := Load(writeMapping(t, `{"levels": {"brand_material": {"esun|petg": 220}, "material": {"petg": 150}}}`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	k := Key{Brand: "eSUN", Material: "PETG"}

	e := &Estimator{Mapping: m, MaxLevel: LevelBrandMaterialAttributes}
	if got, ok := e.Estimate(k); ok {
		t.Fatalf("Estimate() = %+v, want no match above brand_material", got)
	}
	e.MaxLevel = LevelBrandMaterial
	if got, ok := e.Estimate(k); !ok || got.Grams != 220 {
		t.Fatalf("Estimate() = %+v, %v", got, ok)
	}
}

func TestEstimate_MinSamples(t *testing.T) {
	m, err := Load(writeMapping(t, `{
		"levels": {"brand_material": {"esun|petg": 220}, "material": {"petg": 150}},
		"samples": {"brand_material": {"esun|petg": 2}}
	}`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	e := &Estimator{Mapping: m, MinSamples: 3}
	got, ok := e.Estimate(Key{Brand: "eSUN", Material: "PETG"})
	if !ok || got.Level != LevelMaterial || got.Grams != 150 {
		t.Fatalf("Estimate() = %+v, %v; want material fallback", got, ok)
	}
	e.MinSamples = 2
	got, _ = e.Estimate(Key{Brand: "eSUN", Material: "PETG"})
	if got.Level != LevelBrandMaterial {
		t.Fatalf("Estimate().Level = %q, want brand_material", got.Level)
	}
}

func TestLoad_NormalizesKeys(t *testing.T) {
	m, err := Load(writeMapping(t, `{"levels": {"brand_material": {" Prusament |PLA": 200}}}`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := m.Levels[LevelBrandMaterial]["prusament|pla"]; !ok {
		t.Fatalf("keys = %v", m.Levels[LevelBrandMaterial])
	}
}

func TestLoad_MissingAndInvalid(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), "none.json"))
	if err != nil {
		t.Fatalf("Load(missing) error = %v", err)
	}
	if _, ok := (&Estimator{Mapping: m}).Estimate(Key{Material: "PLA"}); ok {
		t.Fatal("empty mapping produced a match")
	}
	if _, err := Load(writeMapping(t, `{"levels": [`)); err == nil {
		t.Fatal("Load(invalid) expected error")
	}
}

func TestComposite(t *testing.T) {
	k := Key{Brand: "Prusament", Color: "Galaxy  Black", Material: "PLA", Attribute1: "Silk"}
	cases := map[Level]string{
		LevelBrandColorMaterialAttributes: "prusament|galaxy black|pla|silk|",
		LevelBrandMaterialAttributes:      "prusament|pla|silk|",
		LevelBrandMaterial:                "prusament|pla",
		LevelMaterialAttributes:           "pla|silk|",
		LevelMaterial:                     "pla",
	}
	for lvl, want := range cases {
		if got := k.Composite(lvl); got != want {
			t.Fatalf("Composite(%s) = %q, want %q", lvl, got, want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	if lvl, err := ParseLevel(" Brand_Material "); err != nil || lvl != LevelBrandMaterial {
		t.Fatalf("ParseLevel() = %q, %v", lvl, err)
	}
	if lvl, _ := ParseLevel(""); lvl != LevelMaterial {
		t.Fatalf("ParseLevel(\"\") = %q", lvl)
	}
	if _, err := ParseLevel("color"); err == nil {
		t.Fatal("ParseLevel(color) expected error")
	}
}
