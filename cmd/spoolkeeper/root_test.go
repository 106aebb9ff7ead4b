package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quailyquaily/spoolkeeper/barcode"
	"github.com/quailyquaily/spoolkeeper/db/models"
	"github.com/quailyquaily/spoolkeeper/inventory"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type cliEnv struct {
	dbPath     string
	catalogDir string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("NO_COLOR", "1")

	catalogDir := filepath.Join(home, "catalogs")
	if err := os.MkdirAll(catalogDir, 0o700); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	files := map[string]string{
		"brand_mapping.json":     `{"01": "Prusament", "02": "Anycubic"}`,
		"material_mapping.json":  `{"01": "PLA", "02": "PETG"}`,
		"attribute_mapping.json": `{"00": "", "01": "Silk"}`,
		"color_mapping.json":     `{"Black": {"001": "Galaxy Black"}, "Red": {"010": "Signal Red"}}`,
		"weight_mapping.json":    `{"levels": {"brand_material": {"prusament|pla": 193}, "material": {"pla": 230}}}`,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(catalogDir, name), []byte(body), 0o600); err != nil {
			t.Fatalf("WriteFile(%s) error = %v", name, err)
		}
	}
	return cliEnv{dbPath: filepath.Join(home, "inv.db"), catalogDir: catalogDir}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (e cliEnv) command(args ...string) (*cobra.Command, *cli, *bytes.Buffer) {
	root, c := newRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--db", e.dbPath, "--catalog-dir", e.catalogDir, "--log-level", "error"}, args...))
	return root, c, out
}

func (e cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root, c, out := e.command(args...)
	err := execute(root, c)
	return out.String(), err
}

func (e cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("spoolkeeper %s error = %v", strings.Join(args, " "), err)
	}
	return out
}

func decodeRoll(t *testing.T, out string) models.Roll {
	t.Helper()
	var r models.Roll
	if err := json.Unmarshal([]byte(out), &r); err != nil {
		t.Fatalf("json.Unmarshal() error = %v\n%s", err, out)
	}
	return r
}

func TestCLI_AddLogShow(t *testing.T) {
	env := newCLIEnv(t)

	added := decodeRoll(t, env.mustRun(t, "roll", "add",
		"--brand", "prusament", "--color", "galaxy black", "--material", "pla",
		"--weight", "1250", "--target", "1000", "--format", "json"))
	if added.Barcode != "01001010000000001" {
		t.Fatalf("barcode = %q, want 01001010000000001", added.Barcode)
	}
	if added.Brand != "Prusament" || added.FilamentAmount != 1000 {
		t.Fatalf("added roll = %+v", added)
	}
	if added.RollWeight == nil || *added.RollWeight != 250 {
		t.Fatalf("roll weight = %v, want 250", added.RollWeight)
	}

	logged := decodeRoll(t, env.mustRun(t, "roll", "log", added.Barcode, "1100", "-o", "json"))
	if logged.FilamentAmount != 850 || logged.TimesLoggedOut != 1 {
		t.Fatalf("after log = %+v", logged)
	}

	out := env.mustRun(t, "roll", "show", added.Barcode, "--events", "--format", "json")
	var shown struct {
		models.Roll
		Events []models.UsageEvent `json:"events"`
	}
	if err := json.Unmarshal([]byte(out), &shown); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if len(shown.Events) != 2 || shown.Events[1].DeltaUsed != 150 {
		t.Fatalf("events = %+v", shown.Events)
	}

	table := env.mustRun(t, "roll", "list")
	if !strings.Contains(table, added.Barcode) || !strings.Contains(table, "850.00 g") {
		t.Fatalf("roll list output missing roll:\n%s", table)
	}
}

func TestCLI_UsedRollEstimatesRollWeight(t *testing.T) {
	env := newCLIEnv(t)
	t.Setenv("SPOOLKEEPER_WEIGHT_MAP_PATH", filepath.Join(env.catalogDir, "weight_mapping.json"))

	r := decodeRoll(t, env.mustRun(t, "roll", "add",
		"--brand", "Prusament", "--color", "Signal Red", "--material", "PLA",
		"--weight", "693", "--used", "--format", "json"))
	if r.RollWeight == nil || *r.RollWeight != 193 || r.FilamentAmount != 500 {
		t.Fatalf("used roll = %+v", r)
	}

	_, err := env.run(t, "roll", "add",
		"--brand", "Prusament", "--color", "Signal Red", "--material", "PETG",
		"--weight", "693", "--used")
	if code := exitCode(err); code != exitInvalid {
		t.Fatalf("exitCode(no estimate) = %d (%v), want %d", code, err, exitInvalid)
	}
}

func TestCLI_BarcodeDecode(t *testing.T) {
	env := newCLIEnv(t)
	out := env.mustRun(t, "barcode", "decode", "02010020100100007", "--format", "json")
	var got struct {
		barcode.Fields
		Suffix int `json:"suffix"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if got.Brand != "Anycubic" || got.Color != "Signal Red" || got.Material != "PETG" || got.Attribute1 != "Silk" || got.Location != "Storage" || got.Suffix != 7 {
		t.Fatalf("decoded = %+v", got)
	}

	_, err := env.run(t, "barcode", "decode", "123")
	if code := exitCode(err); code != exitInvalid {
		t.Fatalf("exitCode(malformed) = %d, want %d", code, exitInvalid)
	}
}

func TestCLI_ExitCodes(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "roll", "show", "01001010000099999")
	if code := exitCode(err); code != exitNotFound {
		t.Fatalf("exitCode(missing roll) = %d (%v), want %d", code, err, exitNotFound)
	}

	args := []string{"roll", "add", "--barcode", "01001010000000005", "--brand", "Prusament",
		"--color", "Galaxy Black", "--material", "PLA", "--weight", "1200"}
	env.mustRun(t, args...)
	_, err = env.run(t, args...)
	if code := exitCode(err); code != exitConflict {
		t.Fatalf("exitCode(duplicate) = %d (%v), want %d", code, err, exitConflict)
	}

	_, err = env.run(t, "roll", "log", "01001010000000005", "abc")
	if code := exitCode(err); code != exitInvalid {
		t.Fatalf("exitCode(bad weight) = %d, want %d", code, exitInvalid)
	}

	if code := exitCode(fmt.Errorf("wrapped: %w", barcode.ErrUnresolved)); code != exitInvalid {
		t.Fatalf("exitCode(unresolved) = %d, want %d", code, exitInvalid)
	}
	if code := exitCode(errors.New("disk on fire")); code != exitError {
		t.Fatalf("exitCode(other) = %d, want %d", code, exitError)
	}
	if code := exitCode(nil); code != exitOK {
		t.Fatalf("exitCode(nil) = %d, want %d", code, exitOK)
	}
}

func TestExecute_ClosesDatabaseOnError(t *testing.T) {
	env := newCLIEnv(t)
	root, c, _ := env.command("roll", "show", "01001010000099999")
	if err := execute(root, c); exitCode(err) != exitNotFound {
		t.Fatalf("execute() error = %v, want not found", err)
	}
	if c.app == nil || c.app.gdb == nil {
		t.Fatalf("command did not open the database")
	}
	sqlDB, err := c.app.gdb.DB()
	if err != nil {
		t.Fatalf("DB() error = %v", err)
	}
	if err := sqlDB.Ping(); err == nil {
		t.Fatalf("database still open after a failed command")
	}
}

func TestCLI_ReportUsage(t *testing.T) {
	env := newCLIEnv(t)
	r := decodeRoll(t, env.mustRun(t, "roll", "add", "--brand", "Prusament", "--color", "Galaxy Black",
		"--material", "PLA", "--weight", "1250", "--format", "json"))
	env.mustRun(t, "roll", "log", r.Barcode, "1150")
	env.mustRun(t, "roll", "log", r.Barcode, "1000")

	out := env.mustRun(t, "report", "usage", "--format", "json")
	var sum inventory.UsageSummary
	if err := json.Unmarshal([]byte(out), &sum); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if sum.TotalUsedGrams != 250 || sum.EventCount != 2 || sum.AveragePerEvent != 125 {
		t.Fatalf("summary = %+v", sum)
	}
	if len(sum.ByMaterial) != 1 || sum.ByMaterial[0].Label != "PLA" {
		t.Fatalf("by material = %+v", sum.ByMaterial)
	}
}

func TestCLI_BadFormat(t *testing.T) {
	env := newCLIEnv(t)
	if _, err := env.run(t, "catalog", "options", "--format", "xml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
	out := env.mustRun(t, "catalog", "options", "--format", "yaml")
	if !strings.Contains(out, "- Prusament") {
		t.Fatalf("yaml options missing brand:\n%s", out)
	}
}

func TestInitViper_EnvAndFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	body := "db:\n  dsn: data/inv.db\ninventory:\n  negative_filament_policy: clamp\n  low_threshold_g: 100\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("SPOOLKEEPER_INVENTORY_EMPTY_THRESHOLD_G", "12")

	v := viper.New()
	if err := initViper(v, cfgPath); err != nil {
		t.Fatalf("initViper() error = %v", err)
	}
	if got, want := dbConfigFromViper(v).DSN, filepath.Join(dir, "data", "inv.db"); got != want {
		t.Fatalf("dsn = %q, want %q", got, want)
	}
	s := settingsFromViper(v, discardLogger())
	if s.NegativePolicy != inventory.PolicyClamp || s.LowThreshold != 100 || s.EmptyThreshold != 12 {
		t.Fatalf("settings = %+v", s)
	}
	if s.DefaultLocation != "Lab" || s.FilamentAmount != 1000 {
		t.Fatalf("defaults not applied: %+v", s)
	}

	if err := initViper(viper.New(), filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for explicit missing config")
	}
	if err := initViper(viper.New(), ""); err != nil {
		t.Fatalf("initViper(default) error = %v", err)
	}
}
