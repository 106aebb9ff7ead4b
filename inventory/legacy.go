package inventory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/quailyquaily/spoolkeeper/catalog"
	"github.com/quailyquaily/spoolkeeper/db/models"
	"github.com/quailyquaily/spoolkeeper/internal/strutil"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const (
	legacyInventorySheet = "Inventory"
	legacyEventsSheet    = "UsageEvents"
	legacySource         = "legacy_import"
)

var legacyInventoryHeaders = []string{
	"Timestamp", "Barcode", "Brand", "Color", "Material", "Attribute 1", "Attribute 2",
	"Filament Amount (g)", "Location", "Roll Weight (g)", "Times Logged Out", "Is Empty", "Is Favorite",
}

var legacyEventHeaders = []string{
	"Timestamp", "Event Type", "Barcode", "Brand", "Color", "Material", "Attribute 1", "Attribute 2",
	"Location", "Input Weight (g)", "Roll Weight (g)", "Filament Amount (g)", "Delta Used (g)",
	"Times Logged Out", "Source",
}

var legacyTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/06 15:04",
	"01-02-06",
}

type ImportResult struct {
	Rolls   int `json:"rolls" yaml:"rolls"`
	Events  int `json:"events" yaml:"events"`
	Skipped int `json:"skipped" yaml:"skipped"`
	// AlreadyPopulated is set when the store had data and nothing was read.
	AlreadyPopulated bool `json:"already_populated" yaml:"already_populated"`
}

// sheetRows gives header-addressed access to a worksheet.
type sheetRows struct {
	index map[string]int
	rows  [][]string
}

func readSheet(f *excelize.File, name string, headers []string) (*sheetRows, error) {
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", name, err)
	}
	sr := &sheetRows{index: map[string]int{}}
	if len(rows) == 0 {
		return sr, nil
	}
	for i, h := range rows[0] {
		if k := strutil.FoldKey(h); k != "" {
			if _, dup := sr.index[k]; !dup {
				sr.index[k] = i
			}
		}
	}
	if _, ok := sr.index[strutil.FoldKey("Barcode")]; ok {
		sr.rows = rows[1:]
		return sr, nil
	}
	// No header row: the legacy column order applies and row one is data.
	sr.index = make(map[string]int, len(headers))
	for i, h := range headers {
		sr.index[strutil.FoldKey(h)] = i
	}
	sr.rows = rows
	return sr, nil
}

func (sr *sheetRows) cell(row []string, header string) string {
	i, ok := sr.index[strutil.FoldKey(header)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseLegacyFloat(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseLegacyInt(s string) int {
	v, ok := parseLegacyFloat(s)
	if !ok || v < 0 {
		return 0
	}
	return int(v)
}

func parseLegacyBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

func parseLegacyTime(s string, fallback time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	for _, layout := range legacyTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.UTC()
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.UTC()
		}
	}
	return fallback
}

func optionalGrams(s string) *float64 {
	v, ok := parseLegacyFloat(s)
	if !ok {
		return nil
	}
	return floatPtr(round2(v))
}

// ImportLegacy copies the legacy workbook into an empty store. The store
// must have no rolls and no events; otherwise the file is left unread and
// AlreadyPopulated is reported.
func (s *Store) ImportLegacy(ctx context.Context, path string) (ImportResult, error) {
	empty, err := storeIsEmpty(s.DB.WithContext(ctx))
	if err != nil {
		return ImportResult{}, err
	}
	if !empty {
		return ImportResult{AlreadyPopulated: true}, nil
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return ImportResult{}, fmt.Errorf("open legacy workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ImportResult{}, fmt.Errorf("%w: legacy workbook has no sheets", ErrInvalid)
	}
	invName := sheets[0]
	hasEvents := false
	for _, name := range sheets {
		switch name {
		case legacyInventorySheet:
			invName = name
		case legacyEventsSheet:
			hasEvents = true
		}
	}

	inv, err := readSheet(f, invName, legacyInventoryHeaders)
	if err != nil {
		return ImportResult{}, err
	}
	events := &sheetRows{}
	if hasEvents {
		if events, err = readSheet(f, legacyEventsSheet, legacyEventHeaders); err != nil {
			return ImportResult{}, err
		}
	}

	now := s.timestamp()
	var res ImportResult
	err = s.write(ctx, "import_legacy", func(tx *gorm.DB) ([]models.UsageEvent, error) {
		// Another writer may have filled the store since the read above.
		empty, err := storeIsEmpty(tx)
		if err != nil {
			return nil, err
		}
		if !empty {
			res.AlreadyPopulated = true
			return nil, nil
		}

		seen := map[string]bool{}
		for _, row := range inv.rows {
			code := inv.cell(row, "Barcode")
			if code == "" || seen[code] {
				res.Skipped++
				continue
			}
			seen[code] = true
			amount, _ := parseLegacyFloat(inv.cell(row, "Filament Amount (g)"))
			if amount < 0 {
				amount = 0
			}
			amount = round2(amount)
			roll := models.Roll{
				Barcode:        code,
				Timestamp:      parseLegacyTime(inv.cell(row, "Timestamp"), now),
				Brand:          s.canon.Canonicalize(inv.cell(row, "Brand"), catalog.FieldBrand),
				Color:          s.canon.Canonicalize(inv.cell(row, "Color"), catalog.FieldColor),
				Material:       s.canon.Canonicalize(inv.cell(row, "Material"), catalog.FieldMaterial),
				Attribute1:     s.canon.Canonicalize(inv.cell(row, "Attribute 1"), catalog.FieldAttribute1),
				Attribute2:     s.canon.Canonicalize(inv.cell(row, "Attribute 2"), catalog.FieldAttribute2),
				FilamentAmount: amount,
				Location:       s.canon.Canonicalize(inv.cell(row, "Location"), catalog.FieldLocation),
				RollWeight:     optionalGrams(inv.cell(row, "Roll Weight (g)")),
				TimesLoggedOut: parseLegacyInt(inv.cell(row, "Times Logged Out")),
				IsEmpty:        isEmpty(amount, s.settings.EmptyThreshold),
				IsFavorite:     parseLegacyBool(inv.cell(row, "Is Favorite")),
			}
			if err := tx.Create(&roll).Error; err != nil {
				return nil, fmt.Errorf("import roll %s: %w", code, err)
			}
			res.Rolls++
		}

		for _, row := range events.rows {
			code := events.cell(row, "Barcode")
			eventType := strings.ToLower(events.cell(row, "Event Type"))
			if eventType == "" {
				eventType = models.EventLogUsage
			}
			if code == "" || (eventType != models.EventNewRoll && eventType != models.EventLogUsage) {
				res.Skipped++
				continue
			}
			amount, _ := parseLegacyFloat(events.cell(row, "Filament Amount (g)"))
			delta, _ := parseLegacyFloat(events.cell(row, "Delta Used (g)"))
			src := legacySource
			if v := events.cell(row, "Source"); v != "" {
				src = source(v)
			}
			ev := models.UsageEvent{
				Timestamp:      parseLegacyTime(events.cell(row, "Timestamp"), now),
				EventType:      eventType,
				Barcode:        code,
				Brand:          s.canon.Canonicalize(events.cell(row, "Brand"), catalog.FieldBrand),
				Color:          s.canon.Canonicalize(events.cell(row, "Color"), catalog.FieldColor),
				Material:       s.canon.Canonicalize(events.cell(row, "Material"), catalog.FieldMaterial),
				Attribute1:     s.canon.Canonicalize(events.cell(row, "Attribute 1"), catalog.FieldAttribute1),
				Attribute2:     s.canon.Canonicalize(events.cell(row, "Attribute 2"), catalog.FieldAttribute2),
				Location:       s.canon.Canonicalize(events.cell(row, "Location"), catalog.FieldLocation),
				InputWeight:    optionalGrams(events.cell(row, "Input Weight (g)")),
				RollWeight:     optionalGrams(events.cell(row, "Roll Weight (g)")),
				FilamentAmount: round2(max(amount, 0)),
				DeltaUsed:      round2(max(delta, 0)),
				TimesLoggedOut: parseLegacyInt(events.cell(row, "Times Logged Out")),
				Source:         src,
			}
			if err := tx.Create(&ev).Error; err != nil {
				return nil, fmt.Errorf("import event for %s: %w", code, err)
			}
			res.Events++
		}
		return nil, nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	s.log.Info("legacy_import_done", "path", path, "rolls", res.Rolls, "events", res.Events, "skipped", res.Skipped, "already_populated", res.AlreadyPopulated)
	return res, nil
}

// storeIsEmpty reports whether there are no rolls and no events.
func storeIsEmpty(q *gorm.DB) (bool, error) {
	var rolls, evs int64
	if err := q.Model(&models.Roll{}).Count(&rolls).Error; err != nil {
		return false, fmt.Errorf("count rolls: %w", err)
	}
	if err := q.Model(&models.UsageEvent{}).Count(&evs).Error; err != nil {
		return false, fmt.Errorf("count events: %w", err)
	}
	return rolls == 0 && evs == 0, nil
}

// ExportWorkbook writes the store in the legacy workbook layout.
func (s *Store) ExportWorkbook(ctx context.Context, path string) error {
	rolls, err := s.ListRolls(ctx, RollFilter{})
	if err != nil {
		return err
	}
	events, err := s.ListEvents(ctx, EventFilter{})
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", legacyInventorySheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(legacyEventsSheet); err != nil {
		return err
	}

	optional := func(v *float64) any {
		if v == nil {
			return ""
		}
		return *v
	}
	boolText := func(b bool) string {
		if b {
			return "True"
		}
		return "False"
	}
	writeRow := func(sheet string, row int, values []any) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		return f.SetSheetRow(sheet, cell, &values)
	}

	header := make([]any, len(legacyInventoryHeaders))
	for i, h := range legacyInventoryHeaders {
		header[i] = h
	}
	if err := writeRow(legacyInventorySheet, 1, header); err != nil {
		return err
	}
	for i, r := range rolls {
		if err := writeRow(legacyInventorySheet, i+2, []any{
			r.Timestamp.Local().Format(legacyTimeLayouts[0]), r.Barcode, r.Brand, r.Color, r.Material,
			r.Attribute1, r.Attribute2, r.FilamentAmount, r.Location, optional(r.RollWeight),
			r.TimesLoggedOut, boolText(r.IsEmpty), boolText(r.IsFavorite),
		}); err != nil {
			return err
		}
	}

	header = make([]any, len(legacyEventHeaders))
	for i, h := range legacyEventHeaders {
		header[i] = h
	}
	if err := writeRow(legacyEventsSheet, 1, header); err != nil {
		return err
	}
	for i, e := range events {
		if err := writeRow(legacyEventsSheet, i+2, []any{
			e.Timestamp.Local().Format(legacyTimeLayouts[0]), e.EventType, e.Barcode, e.Brand, e.Color,
			e.Material, e.Attribute1, e.Attribute2, e.Location, optional(e.InputWeight), optional(e.RollWeight),
			e.FilamentAmount, e.DeltaUsed, e.TimesLoggedOut, e.Source,
		}); err != nil {
			return err
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
