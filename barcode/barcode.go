// Package barcode mints and reads the 17-digit roll identifiers.
//
// Layout, left to right: brand(2) color(3) material(2) attribute_1(2)
// attribute_2(2) location(1) suffix(5). Encoding is strict because the
// result is permanent; decoding is total so stored barcodes stay readable
// after catalog edits.
package barcode

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/quailyquaily/spoolkeeper/catalog"
)

const (
	Length = 17

	brandWidth    = 2
	colorWidth    = 3
	materialWidth = 2
	attrWidth     = 2
	suffixWidth   = 5

	// MaxSuffix is the largest sequence number that fits the suffix field.
	MaxSuffix = 99999

	// EmptyAttributeCode stands for "no attribute" when the attribute
	// catalog does not define an empty label itself.
	EmptyAttributeCode = "00"

	UnknownBrand     = "Unknown Brand"
	UnknownColor     = "Unknown Color"
	UnknownMaterial  = "Unknown Material"
	UnknownAttribute = "Unknown Attribute"
)

var (
	ErrMalformed  = errors.New("barcode must be exactly 17 digits")
	ErrUnresolved = errors.New("invalid selection")
	ErrExhausted  = errors.New("barcode sequence exhausted")
)

// UnresolvedError lists every field that could not be mapped to a code.
type UnresolvedError struct {
	Fields []string
}

func (e *UnresolvedError) Error() string {
	return "invalid selection for: " + strings.Join(e.Fields, ", ")
}

func (e *UnresolvedError) Unwrap() error { return ErrUnresolved }

// Fields are the categorical labels carried by a barcode.
type Fields struct {
	Brand      string `json:"brand" yaml:"brand"`
	Color      string `json:"color" yaml:"color"`
	Material   string `json:"material" yaml:"material"`
	Attribute1 string `json:"attribute_1" yaml:"attribute_1"`
	Attribute2 string `json:"attribute_2" yaml:"attribute_2"`
	Location   string `json:"location" yaml:"location"`
}

type Codec struct {
	Catalogs *catalog.Registry
}

func NewCodec(r *catalog.Registry) *Codec {
	return &Codec{Catalogs: r}
}

// Encode mints a barcode for f. The suffix is one past the highest suffix
// among existing well-formed barcodes.
func (c *Codec) Encode(f Fields, existing []string) (string, error) {
	brands := c.lookup(catalog.KindBrand)
	colors := c.lookup(catalog.KindColor)
	materials := c.lookup(catalog.KindMaterial)
	attrs := c.lookup(catalog.KindAttribute)

	var (
		missing []string
		b       strings.Builder
	)
	resolve := func(field string, cat catalog.Catalog, label string, width int) {
		code, ok := cat.CodeFor(label)
		if !ok || len(code) != width || !isDigits(code) {
			missing = append(missing, field)
			return
		}
		b.WriteString(code)
	}
	resolveAttr := func(field string, label string) {
		if strings.TrimSpace(label) == "" {
			if _, ok := attrs.CodeFor(""); !ok {
				if _, taken := attrs.Label(EmptyAttributeCode); !taken {
					b.WriteString(EmptyAttributeCode)
					return
				}
			}
		}
		resolve(field, attrs, label, attrWidth)
	}

	resolve("brand", brands, f.Brand, brandWidth)
	resolve("color", colors, f.Color, colorWidth)
	resolve("material", materials, f.Material, materialWidth)
	resolveAttr("attribute_1", f.Attribute1)
	resolveAttr("attribute_2", f.Attribute2)

	switch loc, _ := catalog.CanonicalLocation(f.Location); loc {
	case catalog.LocationLab:
		b.WriteByte('0')
	case catalog.LocationStorage:
		b.WriteByte('1')
	default:
		missing = append(missing, "location")
	}

	if len(missing) > 0 {
		return "", &UnresolvedError{Fields: missing}
	}

	next := NextSuffix(existing)
	if next > MaxSuffix {
		return "", fmt.Errorf("%w: next suffix %d", ErrExhausted, next)
	}
	fmt.Fprintf(&b, "%0*d", suffixWidth, next)
	return b.String(), nil
}

// Decode splits a barcode into labels. Unknown codes decode to the
// Unknown* sentinels; only a malformed barcode is an error.
func (c *Codec) Decode(code string) (Fields, error) {
	if !Valid(code) {
		return Fields{}, fmt.Errorf("%w: %q", ErrMalformed, code)
	}
	brands := c.lookup(catalog.KindBrand)
	colors := c.lookup(catalog.KindColor)
	materials := c.lookup(catalog.KindMaterial)
	attrs := c.lookup(catalog.KindAttribute)

	pos := 0
	next := func(width int) string {
		s := code[pos : pos+width]
		pos += width
		return s
	}

	f := Fields{
		Brand:      labelOr(brands, next(brandWidth), UnknownBrand),
		Color:      labelOr(colors, next(colorWidth), UnknownColor),
		Material:   labelOr(materials, next(materialWidth), UnknownMaterial),
		Attribute1: attributeLabel(attrs, next(attrWidth)),
		Attribute2: attributeLabel(attrs, next(attrWidth)),
	}
	if next(1) == "0" {
		f.Location = catalog.LocationLab
	} else {
		f.Location = catalog.LocationStorage
	}
	return f, nil
}

// Valid reports whether s has the barcode shape: 17 ASCII digits.
func Valid(s string) bool {
	return len(s) == Length && isDigits(s)
}

// Suffix returns the trailing sequence number of a well-formed barcode.
func Suffix(s string) (int, bool) {
	if !Valid(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s[Length-suffixWidth:])
	if err != nil {
		return 0, false
	}
	return n, true
}

// NextSuffix is max(existing suffixes)+1, ignoring anything that is not a
// 17-digit barcode.
func NextSuffix(existing []string) int {
	highest := 0
	for _, s := range existing {
		if n, ok := Suffix(strings.TrimSpace(s)); ok && n > highest {
			highest = n
		}
	}
	return highest + 1
}

func (c *Codec) lookup(kind catalog.Kind) catalog.Catalog {
	if c == nil || c.Catalogs == nil {
		return catalog.Catalog{}
	}
	return c.Catalogs.Lookup(kind)
}

func labelOr(cat catalog.Catalog, code, fallback string) string {
	if label, ok := cat.Label(code); ok {
		return label
	}
	return fallback
}

func attributeLabel(cat catalog.Catalog, code string) string {
	if label, ok := cat.Label(code); ok {
		return label
	}
	if code == EmptyAttributeCode {
		return ""
	}
	return UnknownAttribute
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
