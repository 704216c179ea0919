package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var defaults = map[string]any{
	"app_env":                 "development",
	"http_addr":               ":8080",
	"doli_db_port":            3306,
	"doli_db_max_conns":       3,
	"doli_db_connect_timeout": "20s",
	"doli_table_prefix":       "llxfb_",
	"pg_port":                 5432,
	"redis_host":              "",
	"redis_port":              6379,
	"target_store":            StorePostgres,
	"target_document_key":     "adv_orders",
	"target_max_entries":      2000,
	"tx_max_attempts":         5,
	"sync_interval":           "15m",
	"author_cache_ttl":        "10m",
	"sync_history_retention":  "720h",
	"webhook_rate_per_sec":    5,
	"webhook_burst":           10,
}

// keys lists every setting bound to an environment variable of the same name, upper-cased.
var keys = []string{
	"app_env", "http_addr",
	"doli_db_host", "doli_db_port", "doli_db_user", "doli_db_password", "doli_db_name",
	"doli_db_max_conns", "doli_db_connect_timeout", "doli_table_prefix",
	"pg_host", "pg_port", "pg_user", "pg_password", "pg_db",
	"redis_host", "redis_port", "redis_password",
	"target_store", "target_document_key", "target_max_entries", "tx_max_attempts",
	"sync_interval", "author_cache_ttl", "sync_history_retention",
	"sync_jwt_secret", "webhook_rate_per_sec", "webhook_burst",
}

// Load reads an optional .env file, then the environment, applies defaults and validates.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config load: %w", err)
	}

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	for _, key := range keys {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("config bind %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	cfg.Sync.TargetStore = strings.ToLower(strings.TrimSpace(cfg.Sync.TargetStore))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}
