package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/quailyquaily/spoolkeeper/barcode"
	"github.com/quailyquaily/spoolkeeper/catalog"
	"github.com/quailyquaily/spoolkeeper/db/models"
	"github.com/quailyquaily/spoolkeeper/internal/strutil"
	"gorm.io/gorm"
)

const DefaultSource = "cli"

// MaxSourceBytes caps the provenance tag stored on events.
const MaxSourceBytes = 64

// NewRoll describes a roll being registered. Exactly one of TargetAmount
// (fresh roll, tare derived) or RollWeight (used roll, tare known or
// estimated) should be set; with neither, Settings.FilamentAmount is the
// target.
type NewRoll struct {
	barcode.Fields
	// Barcode is minted when empty.
	Barcode        string
	StartingWeight float64
	TargetAmount   *float64
	RollWeight     *float64
	Favorite       bool
	Source         string
}

type UsageOptions struct {
	// RollWeight replaces the stored tare when set.
	RollWeight *float64
	// EmptyThreshold overrides Settings.EmptyThreshold for this call.
	EmptyThreshold *float64
	Source         string
}

// RollEdit overwrites the non-nil fields of a roll.
type RollEdit struct {
	Brand           *string
	Color           *string
	Material        *string
	Attribute1      *string
	Attribute2      *string
	Location        *string
	FilamentAmount  *float64
	RollWeight      *float64
	ClearRollWeight bool
}

type RollFilter struct {
	Brand    string
	Color    string
	Material string
	Location string
	Favorite *bool
	Empty    *bool
	Limit    int
}

func (s *Store) canonical(f barcode.Fields) barcode.Fields {
	return barcode.Fields{
		Brand:      s.canon.Canonicalize(f.Brand, catalog.FieldBrand),
		Color:      s.canon.Canonicalize(f.Color, catalog.FieldColor),
		Material:   s.canon.Canonicalize(f.Material, catalog.FieldMaterial),
		Attribute1: s.canon.Canonicalize(f.Attribute1, catalog.FieldAttribute1),
		Attribute2: s.canon.Canonicalize(f.Attribute2, catalog.FieldAttribute2),
		Location:   s.canon.Canonicalize(f.Location, catalog.FieldLocation),
	}
}

func source(s string) string {
	if s = strings.TrimSpace(s); s != "" {
		return strutil.TruncateUTF8(s, MaxSourceBytes)
	}
	return DefaultSource
}

// CreateRoll inserts a roll and its new_roll event.
func (s *Store) CreateRoll(ctx context.Context, in NewRoll) (models.Roll, error) {
	if err := checkWeight("starting weight", in.StartingWeight); err != nil {
		return models.Roll{}, err
	}
	fields := s.canonical(in.Fields)
	if fields.Location == "" {
		fields.Location = s.canon.Canonicalize(s.settings.DefaultLocation, catalog.FieldLocation)
	}

	var tare, amount float64
	switch {
	case in.RollWeight != nil:
		if err := checkWeight("roll weight", *in.RollWeight); err != nil {
			return models.Roll{}, err
		}
		tare = round2(*in.RollWeight)
		amount = sub2(in.StartingWeight, tare)
		if amount < 0 {
			switch s.settings.NegativePolicy {
			case PolicyWarn:
				s.log.Warn("negative_filament_clamped", "starting_weight", in.StartingWeight, "roll_weight", tare, "amount", amount)
				amount = 0
			case PolicyClamp:
				amount = 0
			default:
				return models.Roll{}, fmt.Errorf("%w: starting weight %.2f g is below roll weight %.2f g", ErrInvalid, in.StartingWeight, tare)
			}
		}
	default:
		target := s.settings.FilamentAmount
		if in.TargetAmount != nil {
			target = *in.TargetAmount
		}
		if err := checkWeight("target amount", target); err != nil {
			return models.Roll{}, err
		}
		amount = round2(target)
		tare = sub2(in.StartingWeight, amount)
		if tare < 0 {
			return models.Roll{}, fmt.Errorf("%w: starting weight %.2f g is below target amount %.2f g", ErrInvalid, in.StartingWeight, amount)
		}
	}

	code := strings.TrimSpace(in.Barcode)
	if code != "" && !barcode.Valid(code) {
		return models.Roll{}, fmt.Errorf("%w: %w", ErrInvalid, barcode.ErrMalformed)
	}

	var created models.Roll
	err := s.write(ctx, "create_roll", func(tx *gorm.DB) ([]models.UsageEvent, error) {
		if code == "" {
			existing, err := listBarcodes(tx)
			if err != nil {
				return nil, err
			}
			minted, err := s.codec.Encode(fields, existing)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
			}
			code = minted
		} else {
			var n int64
			if err := tx.Model(&models.Roll{}).Where("barcode = ?", code).Count(&n).Error; err != nil {
				return nil, err
			}
			if n > 0 {
				return nil, fmt.Errorf("%w: %s", ErrBarcodeExists, code)
			}
		}

		created = models.Roll{
			Barcode:        code,
			Timestamp:      s.timestamp(),
			Brand:          fields.Brand,
			Color:          fields.Color,
			Material:       fields.Material,
			Attribute1:     fields.Attribute1,
			Attribute2:     fields.Attribute2,
			FilamentAmount: amount,
			Location:       fields.Location,
			RollWeight:     floatPtr(tare),
			IsEmpty:        isEmpty(amount, s.settings.EmptyThreshold),
			IsFavorite:     in.Favorite,
		}
		if err := tx.Create(&created).Error; err != nil {
			return nil, fmt.Errorf("insert roll: %w", err)
		}
		ev := eventFor(created, models.EventNewRoll)
		ev.InputWeight = floatPtr(round2(in.StartingWeight))
		ev.Source = source(in.Source)
		if err := tx.Create(&ev).Error; err != nil {
			return nil, fmt.Errorf("insert event: %w", err)
		}
		return []models.UsageEvent{ev}, nil
	})
	if err != nil {
		return models.Roll{}, err
	}
	return created, nil
}

// LogUsage records a scale reading of roll+spool for code.
func (s *Store) LogUsage(ctx context.Context, code string, measured float64, opts UsageOptions) (models.Roll, error) {
	code = strings.TrimSpace(code)
	if err := checkWeight("measured weight", measured); err != nil {
		return models.Roll{}, err
	}
	if opts.RollWeight != nil {
		if err := checkWeight("roll weight", *opts.RollWeight); err != nil {
			return models.Roll{}, err
		}
	}
	threshold := s.settings.EmptyThreshold
	if opts.EmptyThreshold != nil {
		threshold = *opts.EmptyThreshold
	}

	var updated models.Roll
	err := s.write(ctx, "log_usage", func(tx *gorm.DB) ([]models.UsageEvent, error) {
		roll, err := findRoll(tx, code)
		if err != nil {
			return nil, err
		}
		tare := roll.RollWeight
		if opts.RollWeight != nil {
			tare = floatPtr(round2(*opts.RollWeight))
		}
		if tare == nil {
			return nil, fmt.Errorf("%w: roll %s has no known roll weight", ErrInvalid, code)
		}
		amount := sub2(measured, *tare)
		if amount < 0 {
			return nil, fmt.Errorf("%w: measured %.2f g is below roll weight %.2f g", ErrInvalid, measured, *tare)
		}
		delta := usedSince(roll.FilamentAmount, amount)

		roll.Timestamp = s.timestamp()
		roll.FilamentAmount = amount
		roll.RollWeight = tare
		roll.TimesLoggedOut++
		roll.IsEmpty = isEmpty(amount, threshold)

		res := tx.Model(&models.Roll{}).Where("barcode = ?", code).Updates(map[string]any{
			"timestamp":        roll.Timestamp,
			"filament_amount":  roll.FilamentAmount,
			"roll_weight":      roll.RollWeight,
			"times_logged_out": roll.TimesLoggedOut,
			"is_empty":         roll.IsEmpty,
		})
		if res.Error != nil {
			return nil, fmt.Errorf("update roll: %w", res.Error)
		}

		ev := eventFor(roll, models.EventLogUsage)
		ev.InputWeight = floatPtr(round2(measured))
		ev.DeltaUsed = delta
		ev.Source = source(opts.Source)
		if err := tx.Create(&ev).Error; err != nil {
			return nil, fmt.Errorf("insert event: %w", err)
		}
		updated = roll
		return []models.UsageEvent{ev}, nil
	})
	if err != nil {
		return models.Roll{}, err
	}
	return updated, nil
}

// ToggleFavorite flips is_favorite and returns the new value.
func (s *Store) ToggleFavorite(ctx context.Context, code string) (bool, error) {
	code = strings.TrimSpace(code)
	var fav bool
	err := s.write(ctx, "toggle_favorite", func(tx *gorm.DB) ([]models.UsageEvent, error) {
		roll, err := findRoll(tx, code)
		if err != nil {
			return nil, err
		}
		fav = !roll.IsFavorite
		if err := tx.Model(&models.Roll{}).Where("barcode = ?", code).Update("is_favorite", fav).Error; err != nil {
			return nil, err
		}
		return nil, nil
	})
	return fav, err
}

// EditRoll corrects a roll. The categorical fields of every event for the
// roll are rewritten too, so history follows the corrected identity.
func (s *Store) EditRoll(ctx context.Context, code string, edit RollEdit) (models.Roll, error) {
	code = strings.TrimSpace(code)
	if edit.FilamentAmount != nil {
		if err := checkWeight("filament amount", *edit.FilamentAmount); err != nil {
			return models.Roll{}, err
		}
	}
	if edit.RollWeight != nil {
		if err := checkWeight("roll weight", *edit.RollWeight); err != nil {
			return models.Roll{}, err
		}
	}

	var updated models.Roll
	err := s.write(ctx, "edit_roll", func(tx *gorm.DB) ([]models.UsageEvent, error) {
		roll, err := findRoll(tx, code)
		if err != nil {
			return nil, err
		}
		apply := func(dst *string, v *string, field catalog.Field) {
			if v != nil {
				*dst = s.canon.Canonicalize(*v, field)
			}
		}
		apply(&roll.Brand, edit.Brand, catalog.FieldBrand)
		apply(&roll.Color, edit.Color, catalog.FieldColor)
		apply(&roll.Material, edit.Material, catalog.FieldMaterial)
		apply(&roll.Attribute1, edit.Attribute1, catalog.FieldAttribute1)
		apply(&roll.Attribute2, edit.Attribute2, catalog.FieldAttribute2)
		apply(&roll.Location, edit.Location, catalog.FieldLocation)
		if edit.FilamentAmount != nil {
			roll.FilamentAmount = round2(*edit.FilamentAmount)
		}
		switch {
		case edit.ClearRollWeight:
			roll.RollWeight = nil
		case edit.RollWeight != nil:
			roll.RollWeight = floatPtr(round2(*edit.RollWeight))
		}
		roll.IsEmpty = isEmpty(roll.FilamentAmount, s.settings.EmptyThreshold)

		categorical := map[string]any{
			"brand":       roll.Brand,
			"color":       roll.Color,
			"material":    roll.Material,
			"attribute_1": roll.Attribute1,
			"attribute_2": roll.Attribute2,
			"location":    roll.Location,
		}
		rollCols := map[string]any{
			"filament_amount": roll.FilamentAmount,
			"roll_weight":     roll.RollWeight,
			"is_empty":        roll.IsEmpty,
		}
		for k, v := range categorical {
			rollCols[k] = v
		}
		if err := tx.Model(&models.Roll{}).Where("barcode = ?", code).Updates(rollCols).Error; err != nil {
			return nil, fmt.Errorf("update roll: %w", err)
		}
		if err := tx.Model(&models.UsageEvent{}).Where("barcode = ?", code).Updates(categorical).Error; err != nil {
			return nil, fmt.Errorf("update events: %w", err)
		}
		updated = roll
		return nil, nil
	})
	if err != nil {
		return models.Roll{}, err
	}
	return updated, nil
}

func (s *Store) GetRoll(ctx context.Context, code string) (models.Roll, error) {
	return findRoll(s.DB.WithContext(ctx), strings.TrimSpace(code))
}

// ListRolls returns rolls most recently touched first.
func (s *Store) ListRolls(ctx context.Context, f RollFilter) ([]models.Roll, error) {
	q := s.DB.WithContext(ctx).Model(&models.Roll{}).Order("timestamp DESC").Order("barcode ASC")
	eq := func(col, v string, field catalog.Field) {
		if v = strings.TrimSpace(v); v != "" {
			q = q.Where(col+" = ?", s.canon.Canonicalize(v, field))
		}
	}
	eq("brand", f.Brand, catalog.FieldBrand)
	eq("color", f.Color, catalog.FieldColor)
	eq("material", f.Material, catalog.FieldMaterial)
	eq("location", f.Location, catalog.FieldLocation)
	if f.Favorite != nil {
		q = q.Where("is_favorite = ?", *f.Favorite)
	}
	if f.Empty != nil {
		q = q.Where("is_empty = ?", *f.Empty)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var rows []models.Roll
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) ListBarcodes(ctx context.Context) ([]string, error) {
	return listBarcodes(s.DB.WithContext(ctx))
}

func listBarcodes(tx *gorm.DB) ([]string, error) {
	var codes []string
	if err := tx.Model(&models.Roll{}).Order("barcode ASC").Pluck("barcode", &codes).Error; err != nil {
		return nil, fmt.Errorf("list barcodes: %w", err)
	}
	return codes, nil
}
