package inventory

import (
	"fmt"
	"strings"

	"github.com/quailyquaily/spoolkeeper/catalog"
)

// NegativePolicy decides what happens when a used roll's starting weight is
// below its estimated tare.
type NegativePolicy string

const (
	PolicyBlock NegativePolicy = "block"
	PolicyWarn  NegativePolicy = "warn"
	PolicyClamp NegativePolicy = "clamp"
)

func ParseNegativePolicy(s string) (NegativePolicy, error) {
	switch p := NegativePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyBlock, nil
	case PolicyBlock, PolicyWarn, PolicyClamp:
		return p, nil
	default:
		return "", fmt.Errorf("unknown negative filament policy %q", s)
	}
}

// Settings are the inventory tunables. The zero Settings means
// DefaultSettings; otherwise an EmptyThreshold of 0 is kept, so only
// rolls at exactly 0 g count as empty.
type Settings struct {
	EmptyThreshold  float64
	LowThreshold    float64
	NegativePolicy  NegativePolicy
	DefaultLocation string
	// FilamentAmount is the nominal net weight of a new roll.
	FilamentAmount float64
}

func DefaultSettings() Settings {
	return Settings{
		EmptyThreshold:  5,
		LowThreshold:    250,
		NegativePolicy:  PolicyBlock,
		DefaultLocation: catalog.LocationLab,
		FilamentAmount:  1000,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s == (Settings{}) {
		return d
	}
	if s.EmptyThreshold < 0 {
		s.EmptyThreshold = d.EmptyThreshold
	}
	if s.LowThreshold <= 0 {
		s.LowThreshold = d.LowThreshold
	}
	if s.NegativePolicy == "" {
		s.NegativePolicy = d.NegativePolicy
	}
	if strings.TrimSpace(s.DefaultLocation) == "" {
		s.DefaultLocation = d.DefaultLocation
	}
	if s.FilamentAmount <= 0 {
		s.FilamentAmount = d.FilamentAmount
	}
	return s
}
