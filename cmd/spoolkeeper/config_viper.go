package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/quailyquaily/spoolkeeper/backup"
	"github.com/quailyquaily/spoolkeeper/db"
	"github.com/quailyquaily/spoolkeeper/internal/pathutil"
	"github.com/quailyquaily/spoolkeeper/inventory"
	"github.com/quailyquaily/spoolkeeper/weightmap"
	"github.com/spf13/viper"
)

const envPrefix = "SPOOLKEEPER"

func setDefaults(v *viper.Viper) {
	appDir := pathutil.AppDir()
	inv := inventory.DefaultSettings()

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", filepath.Join(appDir, "spoolkeeper.db"))
	v.SetDefault("db.automigrate", true)
	v.SetDefault("db.pool.max_open_conns", 4)
	v.SetDefault("db.pool.max_idle_conns", 2)
	v.SetDefault("db.pool.conn_max_lifetime", "0s")
	v.SetDefault("db.sqlite.busy_timeout_ms", 5000)
	v.SetDefault("db.sqlite.wal", true)
	v.SetDefault("db.sqlite.foreign_keys", false)

	v.SetDefault("catalog.dir", filepath.Join(appDir, "catalogs"))
	v.SetDefault("legacy.xlsx_path", filepath.Join(appDir, "Filament Logs.xlsx"))

	v.SetDefault("inventory.empty_threshold_g", inv.EmptyThreshold)
	v.SetDefault("inventory.low_threshold_g", inv.LowThreshold)
	v.SetDefault("inventory.negative_filament_policy", string(inv.NegativePolicy))
	v.SetDefault("inventory.default_location", inv.DefaultLocation)
	v.SetDefault("inventory.filament_amount_g", inv.FilamentAmount)

	v.SetDefault("weight_map.path", filepath.Join(appDir, "catalogs", "weight_mapping.json"))
	v.SetDefault("weight_map.fallback_level", string(weightmap.LevelMaterial))
	v.SetDefault("weight_map.min_samples", 1)

	v.SetDefault("backup.enabled", true)
	v.SetDefault("backup.dir", "")
	v.SetDefault("backup.retention_days", 30)

	v.SetDefault("journal.jsonl_path", "")
	v.SetDefault("journal.rotate_max_bytes", int64(100*1024*1024))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// initViper wires defaults, env overrides and the optional config file.
// An explicit configPath must exist; the default one may be absent.
func initViper(v *viper.Viper, configPath string) error {
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath = pathutil.ExpandHomePath(configPath)
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", configPath, err)
		}
		return nil
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(pathutil.AppDir())
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// configDir anchors relative paths in the config file.
func configDir(v *viper.Viper) string {
	if f := v.ConfigFileUsed(); f != "" {
		return filepath.Dir(f)
	}
	return ""
}

func pathFromViper(v *viper.Viper, key string) string {
	return pathutil.ResolveIn(configDir(v), v.GetString(key))
}

func dbConfigFromViper(v *viper.Viper) db.Config {
	cfg := db.DefaultConfig()

	cfg.Driver = v.GetString("db.driver")
	cfg.DSN = pathFromViper(v, "db.dsn")
	cfg.AutoMigrate = v.GetBool("db.automigrate")

	cfg.Pool.MaxOpenConns = v.GetInt("db.pool.max_open_conns")
	cfg.Pool.MaxIdleConns = v.GetInt("db.pool.max_idle_conns")
	cfg.Pool.ConnMaxLifetime = v.GetDuration("db.pool.conn_max_lifetime")
	if cfg.Pool.ConnMaxLifetime < 0 {
		cfg.Pool.ConnMaxLifetime = 0
	}

	cfg.SQLite.BusyTimeoutMs = v.GetInt("db.sqlite.busy_timeout_ms")
	cfg.SQLite.WAL = v.GetBool("db.sqlite.wal")
	cfg.SQLite.ForeignKeys = v.GetBool("db.sqlite.foreign_keys")

	// Ensure reasonable defaults even if config has zeros.
	if cfg.Pool.MaxOpenConns <= 0 {
		cfg.Pool.MaxOpenConns = 1
	}
	if cfg.Pool.MaxIdleConns <= 0 {
		cfg.Pool.MaxIdleConns = 1
	}
	if cfg.SQLite.BusyTimeoutMs <= 0 {
		cfg.SQLite.BusyTimeoutMs = 5000
	}
	return cfg
}

func settingsFromViper(v *viper.Viper, log *slog.Logger) inventory.Settings {
	s := inventory.Settings{
		EmptyThreshold:  v.GetFloat64("inventory.empty_threshold_g"),
		LowThreshold:    v.GetFloat64("inventory.low_threshold_g"),
		DefaultLocation: v.GetString("inventory.default_location"),
		FilamentAmount:  v.GetFloat64("inventory.filament_amount_g"),
	}
	policy, err := inventory.ParseNegativePolicy(v.GetString("inventory.negative_filament_policy"))
	if err != nil {
		log.Warn("config_invalid_policy", "error", err.Error(), "using", string(inventory.PolicyBlock))
		policy = inventory.PolicyBlock
	}
	s.NegativePolicy = policy
	return s
}

func backupConfigFromViper(v *viper.Viper) backup.Config {
	cfg := backup.Config{
		Enabled:       v.GetBool("backup.enabled"),
		RetentionDays: v.GetInt("backup.retention_days"),
	}
	if dir := strings.TrimSpace(v.GetString("backup.dir")); dir != "" {
		cfg.Dir = pathFromViper(v, "backup.dir")
	}
	if cfg.RetentionDays < 0 {
		cfg.RetentionDays = 0
	}
	return cfg
}

func estimatorFromViper(v *viper.Viper, log *slog.Logger) (*weightmap.Estimator, error) {
	m, err := weightmap.Load(pathFromViper(v, "weight_map.path"))
	if err != nil {
		return nil, err
	}
	level, err := weightmap.ParseLevel(v.GetString("weight_map.fallback_level"))
	if err != nil {
		log.Warn("config_invalid_fallback_level", "error", err.Error(), "using", string(weightmap.LevelMaterial))
		level = weightmap.LevelMaterial
	}
	minSamples := v.GetInt("weight_map.min_samples")
	if minSamples < 1 {
		minSamples = 1
	}
	return &weightmap.Estimator{Mapping: m, MaxLevel: level, MinSamples: minSamples}, nil
}
