package catalog

import "testing"

func TestCanonicalize(t *testing.T) {
	c := NewCanonicalizer(newTestRegistry(t))
	cases := []struct {
		value string
		field Field
		want  string
	}{
		{"  prusament ", FieldBrand, "Prusament"},
		{"ESUN", FieldBrand, "eSUN"},
		{"galaxy    black", FieldColor, "Galaxy Black"},
		{"silk", FieldAttribute1, "Silk"},
		{"MATTE", FieldAttribute2, "Matte"},
		{"polymaker", FieldBrand, "Polymaker"},
		{"NEW   brand X", FieldBrand, "New brand x"},
		{"", FieldMaterial, ""},
		{"   ", FieldMaterial, ""},
		{"LAB", FieldLocation, "Lab"},
		{" storage", FieldLocation, "Storage"},
		{"  Shelf 3 ", FieldLocation, "Shelf 3"},
	}
	for _, tc := range cases {
		t.Run(string(tc.field)+"/"+tc.value, func(t *testing.T) {
			if got := c.Canonicalize(tc.value, tc.field); got != tc.want {
				t.Fatalf("Canonicalize(%q, %s) = %q, want %q", tc.value, tc.field, got, tc.want)
			}
		})
	}
}

func TestCanonicalize_NoCatalogs(t *testing.T) {
	var c *Canonicalizer
	if got := c.Canonicalize("pla", FieldMaterial); got != "Pla" {
		t.Fatalf("Canonicalize() without catalogs = %q, want Pla", got)
	}
}

func TestCanonicalize_IsIdempotent(t *testing.T) {
	c := NewCanonicalizer(newTestRegistry(t))
	for _, v := range []string{"jet BLACK", "unknown thing", "Storage", "petg"} {
		once := c.Canonicalize(v, FieldColor)
		if twice := c.Canonicalize(once, FieldColor); twice != once {
			t.Fatalf("Canonicalize not idempotent for %q: %q then %q", v, once, twice)
		}
	}
}
