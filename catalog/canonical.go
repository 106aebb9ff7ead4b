package catalog

import (
	"strings"

	"github.com/quailyquaily/spoolkeeper/internal/strutil"
)

// Field names a categorical column of a roll.
type Field string

const (
	FieldBrand      Field = "brand"
	FieldColor      Field = "color"
	FieldMaterial   Field = "material"
	FieldAttribute1 Field = "attribute_1"
	FieldAttribute2 Field = "attribute_2"
	FieldLocation   Field = "location"
)

const (
	LocationLab     = "Lab"
	LocationStorage = "Storage"
)

// Kind reports which catalog backs the field. Location has none.
func (f Field) Kind() (Kind, bool) {
	switch f {
	case FieldBrand:
		return KindBrand, true
	case FieldColor:
		return KindColor, true
	case FieldMaterial:
		return KindMaterial, true
	case FieldAttribute1, FieldAttribute2:
		return KindAttribute, true
	default:
		return "", false
	}
}

// Canonicalizer maps free-form input onto catalog labels.
type Canonicalizer struct {
	Catalogs *Registry
}

func NewCanonicalizer(r *Registry) *Canonicalizer {
	return &Canonicalizer{Catalogs: r}
}

// Canonicalize returns the catalog spelling of value for field. Unknown
// values come back whitespace-collapsed with only the first letter upper
// case. Locations only ever resolve to Lab or Storage; anything else is
// returned trimmed but otherwise untouched.
func (c *Canonicalizer) Canonicalize(value string, field Field) string {
	text := strutil.CollapseSpaces(value)
	if text == "" {
		return ""
	}
	if field == FieldLocation {
		if loc, ok := CanonicalLocation(text); ok {
			return loc
		}
		return strings.TrimSpace(value)
	}
	if kind, ok := field.Kind(); ok && c != nil && c.Catalogs != nil {
		if label, found := c.Catalogs.Lookup(kind).MatchLabel(text); found {
			return label
		}
	}
	return strutil.Capitalize(text)
}

// CanonicalLocation resolves lab/storage case-insensitively.
func CanonicalLocation(value string) (string, bool) {
	switch strutil.FoldKey(value) {
	case "lab":
		return LocationLab, true
	case "storage":
		return LocationStorage, true
	default:
		return "", false
	}
}
