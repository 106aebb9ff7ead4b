package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/quailyquaily/spoolkeeper/catalog"
	"github.com/quailyquaily/spoolkeeper/db/models"
	"github.com/shopspring/decimal"
)

const unknownLabel = "Unknown"

type EventFilter struct {
	Barcode string
	Type    string
	Since   time.Time
	Until   time.Time
	Limit   int
}

// ListEvents returns events oldest first.
func (s *Store) ListEvents(ctx context.Context, f EventFilter) ([]models.UsageEvent, error) {
	q := s.DB.WithContext(ctx).Model(&models.UsageEvent{}).Order("timestamp ASC").Order("id ASC")
	if code := strings.TrimSpace(f.Barcode); code != "" {
		q = q.Where("barcode = ?", code)
	}
	if t := strings.ToLower(strings.TrimSpace(f.Type)); t != "" {
		q = q.Where("event_type = ?", t)
	}
	if !f.Since.IsZero() {
		q = q.Where("timestamp >= ?", f.Since.UTC())
	}
	if !f.Until.IsZero() {
		q = q.Where("timestamp <= ?", f.Until.UTC())
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var rows []models.UsageEvent
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return rows, nil
}

type UsageBucket struct {
	Label      string  `json:"label" yaml:"label"`
	UsedGrams  float64 `json:"used_g" yaml:"used_g"`
	EventCount int     `json:"event_count" yaml:"event_count"`
}

type DailyUsage struct {
	Date      string  `json:"date" yaml:"date"`
	UsedGrams float64 `json:"used_g" yaml:"used_g"`
}

type UsageSummary struct {
	TotalUsedGrams  float64       `json:"total_used_g" yaml:"total_used_g"`
	EventCount      int           `json:"event_count" yaml:"event_count"`
	RollsTouched    int           `json:"rolls_touched" yaml:"rolls_touched"`
	AveragePerEvent float64       `json:"average_per_event_g" yaml:"average_per_event_g"`
	FirstEvent      *time.Time    `json:"first_event,omitempty" yaml:"first_event,omitempty"`
	LastEvent       *time.Time    `json:"last_event,omitempty" yaml:"last_event,omitempty"`
	ByMaterial      []UsageBucket `json:"by_material" yaml:"by_material"`
	ByColor         []UsageBucket `json:"by_color" yaml:"by_color"`
	Daily           []DailyUsage  `json:"daily_usage" yaml:"daily_usage"`
}

type bucket struct {
	used  decimal.Decimal
	count int
}

func sortedBuckets(m map[string]*bucket) []UsageBucket {
	out := make([]UsageBucket, 0, len(m))
	for label, b := range m {
		out = append(out, UsageBucket{Label: label, UsedGrams: b.used.Round(2).InexactFloat64(), EventCount: b.count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UsedGrams != out[j].UsedGrams {
			return out[i].UsedGrams > out[j].UsedGrams
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func (s *Store) label(v string, field catalog.Field) string {
	if c := s.canon.Canonicalize(v, field); c != "" {
		return c
	}
	return unknownLabel
}

// UsageSummary aggregates consumption from log_usage events with a positive
// delta in [since, until]. Zero bounds are open.
func (s *Store) UsageSummary(ctx context.Context, since, until time.Time) (UsageSummary, error) {
	events, err := s.ListEvents(ctx, EventFilter{Type: models.EventLogUsage, Since: since, Until: until})
	if err != nil {
		return UsageSummary{}, err
	}

	total := decimal.Zero
	rolls := map[string]bool{}
	byMaterial := map[string]*bucket{}
	byColor := map[string]*bucket{}
	byDay := map[string]decimal.Decimal{}
	var sum UsageSummary

	add := func(m map[string]*bucket, key string, used decimal.Decimal) {
		b, ok := m[key]
		if !ok {
			b = &bucket{used: decimal.Zero}
			m[key] = b
		}
		b.used = b.used.Add(used)
		b.count++
	}

	for _, e := range events {
		if e.DeltaUsed <= 0 {
			continue
		}
		used := grams(e.DeltaUsed)
		total = total.Add(used)
		sum.EventCount++
		if sum.FirstEvent == nil {
			t := e.Timestamp
			sum.FirstEvent = &t
		}
		t := e.Timestamp
		sum.LastEvent = &t
		if code := strings.TrimSpace(e.Barcode); code != "" {
			rolls[code] = true
		}
		add(byMaterial, s.label(e.Material, catalog.FieldMaterial), used)
		add(byColor, s.label(e.Color, catalog.FieldColor), used)
		day := e.Timestamp.UTC().Format("2006-01-02")
		byDay[day] = byDay[day].Add(used)
	}

	sum.TotalUsedGrams = total.Round(2).InexactFloat64()
	sum.RollsTouched = len(rolls)
	if sum.EventCount > 0 {
		sum.AveragePerEvent = total.Div(decimal.NewFromInt(int64(sum.EventCount))).Round(2).InexactFloat64()
	}
	sum.ByMaterial = sortedBuckets(byMaterial)
	sum.ByColor = sortedBuckets(byColor)
	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Strings(days)
	sum.Daily = make([]DailyUsage, 0, len(days))
	for _, d := range days {
		sum.Daily = append(sum.Daily, DailyUsage{Date: d, UsedGrams: byDay[d].Round(2).InexactFloat64()})
	}
	return sum, nil
}

// LowStock lists rolls that are empty or below the low threshold, least
// filament first.
func (s *Store) LowStock(ctx context.Context, low, empty float64) ([]models.Roll, error) {
	var rows []models.Roll
	err := s.DB.WithContext(ctx).
		Where("is_empty = ? OR filament_amount <= ? OR filament_amount < ?", true, empty, low).
		Order("filament_amount ASC").Order("barcode ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("low stock: %w", err)
	}
	return rows, nil
}

// EmptyRolls lists empty rolls, most recently logged first.
func (s *Store) EmptyRolls(ctx context.Context, empty float64) ([]models.Roll, error) {
	var rows []models.Roll
	err := s.DB.WithContext(ctx).
		Where("is_empty = ? OR filament_amount <= ?", true, empty).
		Order("timestamp DESC").Order("barcode ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("empty rolls: %w", err)
	}
	return rows, nil
}

type PopularRoll struct {
	models.Roll `yaml:",inline"`
	Uses        int `json:"uses" yaml:"uses"`
}

// Popular ranks rolls by how often they were logged. With a non-zero since,
// only log_usage events from then on count; when there are none, rolls
// touched since then are ranked by their lifetime counter.
func (s *Store) Popular(ctx context.Context, topN int, since time.Time) ([]PopularRoll, error) {
	rolls, err := s.ListRolls(ctx, RollFilter{})
	if err != nil {
		return nil, err
	}
	out := make([]PopularRoll, 0, len(rolls))
	if since.IsZero() {
		for _, r := range rolls {
			out = append(out, PopularRoll{Roll: r, Uses: r.TimesLoggedOut})
		}
	} else {
		events, err := s.ListEvents(ctx, EventFilter{Type: models.EventLogUsage, Since: since})
		if err != nil {
			return nil, err
		}
		counts := map[string]int{}
		for _, e := range events {
			counts[e.Barcode]++
		}
		for _, r := range rolls {
			switch {
			case len(counts) > 0:
				if n := counts[r.Barcode]; n > 0 {
					out = append(out, PopularRoll{Roll: r, Uses: n})
				}
			case !r.Timestamp.Before(since):
				out = append(out, PopularRoll{Roll: r, Uses: r.TimesLoggedOut})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Uses > out[j].Uses })
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}

type GroupBy string

const (
	GroupByBrand      GroupBy = "brand"
	GroupByColor      GroupBy = "color"
	GroupByBrandColor GroupBy = "brand_color"
)

type GroupUsage struct {
	Brand      string  `json:"brand,omitempty" yaml:"brand,omitempty"`
	Color      string  `json:"color,omitempty" yaml:"color,omitempty"`
	UsageCount int     `json:"usage_count" yaml:"usage_count"`
	UsedGrams  float64 `json:"used_g" yaml:"used_g"`
}

// PopularGroups ranks brands, colours or brand+colour pairs by the number
// of consuming log_usage events since the given time.
func (s *Store) PopularGroups(ctx context.Context, topN int, since time.Time, by GroupBy) ([]GroupUsage, error) {
	switch by {
	case GroupByBrand, GroupByColor, GroupByBrandColor:
	default:
		by = GroupByBrandColor
	}
	events, err := s.ListEvents(ctx, EventFilter{Type: models.EventLogUsage, Since: since})
	if err != nil {
		return nil, err
	}
	type acc struct {
		GroupUsage
		used decimal.Decimal
	}
	groups := map[string]*acc{}
	for _, e := range events {
		if e.DeltaUsed <= 0 {
			continue
		}
		g := GroupUsage{}
		if by != GroupByColor {
			g.Brand = s.label(e.Brand, catalog.FieldBrand)
		}
		if by != GroupByBrand {
			g.Color = s.label(e.Color, catalog.FieldColor)
		}
		key := g.Brand + "\x00" + g.Color
		a, ok := groups[key]
		if !ok {
			a = &acc{GroupUsage: g, used: decimal.Zero}
			groups[key] = a
		}
		a.UsageCount++
		a.used = a.used.Add(grams(e.DeltaUsed))
	}
	out := make([]GroupUsage, 0, len(groups))
	for _, a := range groups {
		a.UsedGrams = a.used.Round(2).InexactFloat64()
		out = append(out, a.GroupUsage)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.UsageCount != b.UsageCount {
			return a.UsageCount > b.UsageCount
		}
		if a.UsedGrams != b.UsedGrams {
			return a.UsedGrams > b.UsedGrams
		}
		if a.Brand != b.Brand {
			return a.Brand < b.Brand
		}
		return a.Color < b.Color
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}

type FavoriteProfile struct {
	Brand      string `json:"brand" yaml:"brand"`
	Color      string `json:"color" yaml:"color"`
	Material   string `json:"material" yaml:"material"`
	Attribute1 string `json:"attribute_1" yaml:"attribute_1"`
	Attribute2 string `json:"attribute_2" yaml:"attribute_2"`
	TotalCount int    `json:"total_count" yaml:"total_count"`
	LowCount   int    `json:"low_count" yaml:"low_count"`
}

// Favorites returns one entry per distinct favourited filament profile with
// how many rolls of it exist and how many are below low.
func (s *Store) Favorites(ctx context.Context, low float64) ([]FavoriteProfile, error) {
	rolls, err := s.ListRolls(ctx, RollFilter{})
	if err != nil {
		return nil, err
	}
	key := func(r models.Roll) string {
		return strings.ToLower(strings.Join([]string{r.Brand, r.Color, r.Material, r.Attribute1, r.Attribute2}, "\x00"))
	}
	type counts struct{ total, low int }
	byKey := map[string]*counts{}
	for _, r := range rolls {
		c, ok := byKey[key(r)]
		if !ok {
			c = &counts{}
			byKey[key(r)] = c
		}
		c.total++
		if r.FilamentAmount < low {
			c.low++
		}
	}
	var out []FavoriteProfile
	seen := map[string]bool{}
	for _, r := range rolls {
		k := key(r)
		if !r.IsFavorite || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, FavoriteProfile{
			Brand:      r.Brand,
			Color:      r.Color,
			Material:   r.Material,
			Attribute1: r.Attribute1,
			Attribute2: r.Attribute2,
			TotalCount: byKey[k].total,
			LowCount:   byKey[k].low,
		})
	}
	return out, nil
}
