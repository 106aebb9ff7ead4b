// Package weightmap estimates the tare of partially used rolls from
// observed spool weights, falling back from specific to coarse keys.
package weightmap

import (
	"fmt"
	"strings"

	"github.com/quailyquaily/spoolkeeper/internal/jsonutil"
	"github.com/quailyquaily/spoolkeeper/internal/pathutil"
	"github.com/quailyquaily/spoolkeeper/internal/strutil"
)

type Level string

const (
	LevelBrandColorMaterialAttributes Level = "brand_color_material_attributes"
	LevelBrandMaterialAttributes      Level = "brand_material_attributes"
	LevelBrandMaterial                Level = "brand_material"
	LevelMaterialAttributes           Level = "material_attributes"
	LevelMaterial                     Level = "material"
)

// Levels is the lookup order, most specific first.
var Levels = []Level{
	LevelBrandColorMaterialAttributes,
	LevelBrandMaterialAttributes,
	LevelBrandMaterial,
	LevelMaterialAttributes,
	LevelMaterial,
}

const keySep = "|"

func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return LevelMaterial, nil
	}
	for _, lvl := range Levels {
		if string(lvl) == s {
			return lvl, nil
		}
	}
	return "", fmt.Errorf("unknown weight map level %q", s)
}

func (l Level) rank() int {
	for i, lvl := range Levels {
		if lvl == l {
			return i
		}
	}
	return -1
}

// Key is the categorical profile of a roll.
type Key struct {
	Brand      string
	Color      string
	Material   string
	Attribute1 string
	Attribute2 string
}

// Composite returns the lookup key of k at lvl.
func (k Key) Composite(lvl Level) string {
	var parts []string
	switch lvl {
	case LevelBrandColorMaterialAttributes:
		parts = []string{k.Brand, k.Color, k.Material, k.Attribute1, k.Attribute2}
	case LevelBrandMaterialAttributes:
		parts = []string{k.Brand, k.Material, k.Attribute1, k.Attribute2}
	case LevelBrandMaterial:
		parts = []string{k.Brand, k.Material}
	case LevelMaterialAttributes:
		parts = []string{k.Material, k.Attribute1, k.Attribute2}
	case LevelMaterial:
		parts = []string{k.Material}
	default:
		return ""
	}
	for i, p := range parts {
		parts[i] = strutil.FoldKey(p)
	}
	return strings.Join(parts, keySep)
}

// Mapping is the decoded weight_mapping.json document.
type Mapping struct {
	Levels  map[Level]map[string]float64 `json:"levels"`
	Samples map[Level]map[string]int     `json:"samples,omitempty"`
}

// Load reads a mapping file. A missing or blank file is an empty mapping.
func Load(path string) (*Mapping, error) {
	path = pathutil.ExpandHomePath(path)
	m := &Mapping{}
	if path == "" {
		return m, nil
	}
	if _, err := jsonutil.ReadFile(path, m); err != nil {
		return nil, fmt.Errorf("weight map: %w", err)
	}
	m.normalize()
	return m, nil
}

// normalize re-folds stored keys so hand-edited files still match.
func (m *Mapping) normalize() {
	for lvl, entries := range m.Levels {
		folded := make(map[string]float64, len(entries))
		for k, v := range entries {
			folded[foldComposite(k)] = v
		}
		m.Levels[lvl] = folded
	}
	for lvl, entries := range m.Samples {
		folded := make(map[string]int, len(entries))
		for k, v := range entries {
			folded[foldComposite(k)] = v
		}
		m.Samples[lvl] = folded
	}
}

func foldComposite(k string) string {
	parts := strings.Split(k, keySep)
	for i, p := range parts {
		parts[i] = strutil.FoldKey(p)
	}
	return strings.Join(parts, keySep)
}

type Estimate struct {
	Grams float64 `json:"grams" yaml:"grams"`
	Level Level   `json:"level" yaml:"level"`
}

type Estimator struct {
	Mapping *Mapping
	// MaxLevel is the coarsest level consulted. Empty means all levels.
	MaxLevel Level
	// MinSamples skips entries backed by fewer observations, for levels
	// that record sample counts.
	MinSamples int
}

// Estimate returns the weight of the most specific level holding a
// positive entry for k. An empty material never matches.
func (e *Estimator) Estimate(k Key) (Estimate, bool) {
	if e == nil || e.Mapping == nil || strutil.FoldKey(k.Material) == "" {
		return Estimate{}, false
	}
	limit := len(Levels) - 1
	if r := e.MaxLevel.rank(); r >= 0 {
		limit = r
	}
	for _, lvl := range Levels[:limit+1] {
		entries := e.Mapping.Levels[lvl]
		if len(entries) == 0 {
			continue
		}
		key := k.Composite(lvl)
		grams, ok := entries[key]
		if !ok || grams <= 0 {
			continue
		}
		if !e.enoughSamples(lvl, key) {
			continue
		}
		return Estimate{Grams: grams, Level: lvl}, true
	}
	return Estimate{}, false
}

func (e *Estimator) enoughSamples(lvl Level, key string) bool {
	if e.MinSamples <= 1 {
		return true
	}
	counts, ok := e.Mapping.Samples[lvl]
	if !ok {
		return true
	}
	return counts[key] >= e.MinSamples
}
