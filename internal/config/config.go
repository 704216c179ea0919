package config

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"time"
)

// Store kinds accepted by TARGET_STORE.
const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

var tablePrefixPattern = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

// Config is the full runtime configuration of the sync service.
type Config struct {
	AppEnv   string `mapstructure:"app_env"`
	HTTPAddr string `mapstructure:"http_addr"`

	Source   SourceDB   `mapstructure:",squash"`
	Postgres PostgresDB `mapstructure:",squash"`
	Redis    Redis      `mapstructure:",squash"`
	Sync     Sync       `mapstructure:",squash"`
	HTTP     HTTP       `mapstructure:",squash"`
}

// SourceDB configures the read-only Dolibarr MySQL connection pool.
type SourceDB struct {
	Host           string        `mapstructure:"doli_db_host"`
	Port           int           `mapstructure:"doli_db_port"`
	User           string        `mapstructure:"doli_db_user"`
	Password       string        `mapstructure:"doli_db_password"`
	Name           string        `mapstructure:"doli_db_name"`
	MaxConns       int           `mapstructure:"doli_db_max_conns"`
	ConnectTimeout time.Duration `mapstructure:"doli_db_connect_timeout"`
	TablePrefix    string        `mapstructure:"doli_table_prefix"`
}

// PostgresDB configures the portal database holding the ADV document and sync history.
type PostgresDB struct {
	Host     string `mapstructure:"pg_host"`
	Port     int    `mapstructure:"pg_port"`
	User     string `mapstructure:"pg_user"`
	Password string `mapstructure:"pg_password"`
	Name     string `mapstructure:"pg_db"`
}

// DSN returns the lib/pq / pgx connection URL.
func (p PostgresDB) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:     "/" + p.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Enabled reports whether a Postgres host was configured.
func (p PostgresDB) Enabled() bool { return p.Host != "" }

type Redis struct {
	Host     string `mapstructure:"redis_host"`
	Port     int    `mapstructure:"redis_port"`
	Password string `mapstructure:"redis_password"`
}

// Addr returns host:port.
func (r Redis) Addr() string { return fmt.Sprintf("%s:%d", r.Host, r.Port) }

// Sync configures the reconciliation engine and its triggers.
type Sync struct {
	TargetStore      string        `mapstructure:"target_store"`
	DocumentKey      string        `mapstructure:"target_document_key"`
	MaxEntries       int           `mapstructure:"target_max_entries"`
	TxMaxAttempts    int           `mapstructure:"tx_max_attempts"`
	Interval         time.Duration `mapstructure:"sync_interval"`
	AuthorCacheTTL   time.Duration `mapstructure:"author_cache_ttl"`
	HistoryRetention time.Duration `mapstructure:"sync_history_retention"`
}

// HTTP configures the trigger endpoints.
type HTTP struct {
	JWTSecret         string  `mapstructure:"sync_jwt_secret"`
	WebhookRatePerSec float64 `mapstructure:"webhook_rate_per_sec"`
	WebhookBurst      int     `mapstructure:"webhook_burst"`
}

// Validate checks the values the service cannot run without.
func (c *Config) Validate() error {
	if c.Source.Host == "" {
		return fmt.Errorf("DOLI_DB_HOST is required")
	}
	if c.Source.MaxConns <= 0 {
		return fmt.Errorf("DOLI_DB_MAX_CONNS must be positive, got %d", c.Source.MaxConns)
	}
	if !tablePrefixPattern.MatchString(c.Source.TablePrefix) {
		return fmt.Errorf("DOLI_TABLE_PREFIX %q contains invalid characters", c.Source.TablePrefix)
	}
	if c.Sync.MaxEntries <= 0 {
		return fmt.Errorf("TARGET_MAX_ENTRIES must be positive, got %d", c.Sync.MaxEntries)
	}
	if c.Sync.TxMaxAttempts <= 0 {
		return fmt.Errorf("TX_MAX_ATTEMPTS must be positive, got %d", c.Sync.TxMaxAttempts)
	}
	if c.Sync.DocumentKey == "" {
		return fmt.Errorf("TARGET_DOCUMENT_KEY must not be empty")
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL must be positive, got %s", c.Sync.Interval)
	}

	switch c.Sync.TargetStore {
	case StorePostgres:
		if !c.Postgres.Enabled() {
			return fmt.Errorf("PG_HOST is required when TARGET_STORE=%s", StorePostgres)
		}
	case StoreRedis:
		if c.Redis.Host == "" {
			return fmt.Errorf("REDIS_HOST is required when TARGET_STORE=%s", StoreRedis)
		}
	default:
		return fmt.Errorf("unknown TARGET_STORE %q", c.Sync.TargetStore)
	}

	return nil
}
