package catalog

import (
	"sort"
	"strings"

	"github.com/quailyquaily/spoolkeeper/internal/strutil"
)

// Options holds the selectable labels per field, for pickers and CLI help.
type Options struct {
	Brands     []string `json:"brands" yaml:"brands"`
	Colors     []string `json:"colors" yaml:"colors"`
	Materials  []string `json:"materials" yaml:"materials"`
	Attributes []string `json:"attributes" yaml:"attributes"`
	Locations  []string `json:"locations" yaml:"locations"`
}

// Options lists catalog labels in code order. Attributes always start with
// the empty choice.
func (r *Registry) Options() Options {
	attrs := r.Lookup(KindAttribute).Labels()
	hasEmpty := false
	for _, a := range attrs {
		if a == "" {
			hasEmpty = true
			break
		}
	}
	if !hasEmpty {
		attrs = append([]string{""}, attrs...)
	}
	return Options{
		Brands:     r.Lookup(KindBrand).Labels(),
		Colors:     r.Lookup(KindColor).Labels(),
		Materials:  r.Lookup(KindMaterial).Labels(),
		Attributes: attrs,
		Locations:  []string{LocationLab, LocationStorage},
	}
}

var colorCategoryAliases = map[string][]string{
	"gray":            {"grey"},
	"dual color":      {"multicolor", "multi color", "two color"},
	"triple color":    {"multicolor", "multi color", "three color", "tri color"},
	"gradient colors": {"gradient", "rainbow", "chameleon"},
	"transparent":     {"clear", "translucent"},
	"metallic":        {"metal", "shimmer"},
	"fluorescent":     {"neon"},
}

// ColorSearchTokens maps each normalised colour label to the search tokens
// of the categories it appears under, so "clear" finds transparent colours.
func (r *Registry) ColorSearchTokens() map[string][]string {
	buckets := map[string]map[string]bool{}
	for category, group := range r.ColorGroups() {
		tokens := categoryTokens(category)
		if len(tokens) == 0 {
			continue
		}
		for _, label := range group {
			key := strutil.FoldKey(label)
			if key == "" {
				continue
			}
			bucket, ok := buckets[key]
			if !ok {
				bucket = map[string]bool{}
				buckets[key] = bucket
			}
			for _, tok := range tokens {
				bucket[tok] = true
			}
		}
	}

	out := make(map[string][]string, len(buckets))
	for label, bucket := range buckets {
		list := make([]string, 0, len(bucket))
		for tok := range bucket {
			list = append(list, tok)
		}
		sort.Strings(list)
		out[label] = list
	}
	return out
}

func categoryTokens(category string) []string {
	name := strutil.FoldKey(category)
	if name == "" {
		return nil
	}
	tokens := []string{name}
	if compact := strings.ReplaceAll(name, " ", ""); compact != name {
		tokens = append(tokens, compact)
	}
	for _, alias := range colorCategoryAliases[name] {
		if a := strutil.FoldKey(alias); a != "" {
			tokens = append(tokens, a)
		}
	}
	return tokens
}
