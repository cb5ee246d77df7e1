package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ErrInvalid marks configuration that cannot drive a run
var ErrInvalid = errors.New("invalid configuration")

// Store backends
const (
	StoreRedis = "redis"
	StoreSQL   = "sql"
)

// Dedup sources
const (
	DedupLedger  = "ledger"
	DedupJournal = "journal"
)

// EnvPrefix is prepended to every environment override
const EnvPrefix = "SPLIT2YNAB"

type Config struct {
	YNAB          YNABConfig      `mapstructure:"ynab"`
	Splitwise     SplitwiseConfig `mapstructure:"splitwise"`
	StartDate     string          `mapstructure:"start_date" validate:"omitempty,datetime=2006-01-02"`
	Limit         int             `mapstructure:"limit" validate:"gte=0"`
	NoWrite       bool            `mapstructure:"nowrite"`
	Writeback     bool            `mapstructure:"writeback"`
	Loop          bool            `mapstructure:"loop"`
	Delay         int             `mapstructure:"delay" validate:"gte=0"` // milliseconds
	Debug         bool            `mapstructure:"debug"`
	BudgetCCs     bool            `mapstructure:"budget_ccs"`
	CCSGroup      string          `mapstructure:"ccs_group" validate:"required_if=BudgetCCs true"`
	SourceTimeout time.Duration   `mapstructure:"source_timeout" validate:"gt=0"`
	Store         StoreConfig     `mapstructure:"store"`
	Redis         RedisConfig     `mapstructure:"redis"`
	Database      DatabaseConfig  `mapstructure:"database"`
	Dedup         DedupConfig     `mapstructure:"dedup"`
	HTTP          HTTPConfig      `mapstructure:"http"`
	Log           LogConfig       `mapstructure:"log"`
}

type YNABConfig struct {
	Budget  string `mapstructure:"budget" validate:"required"`
	Account string `mapstructure:"account"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
}

type SplitwiseConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=redis sql"`
	Prefix  string `mapstructure:"prefix"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"oneof=postgres sqlite3"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type DedupConfig struct {
	Source string `mapstructure:"source" validate:"oneof=ledger journal"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json console"`
}

// SetDefaults registers every key so environment overrides resolve during Unmarshal
func SetDefaults(v *viper.Viper) {
	v.SetDefault("ynab.budget", "")
	v.SetDefault("ynab.account", "")
	v.SetDefault("ynab.api_key", "")
	v.SetDefault("ynab.base_url", "https://api.ynab.com/v1")
	v.SetDefault("splitwise.api_key", "")
	v.SetDefault("splitwise.base_url", "https://secure.splitwise.com/api/v3.0")
	v.SetDefault("start_date", "")
	v.SetDefault("limit", 0)
	v.SetDefault("nowrite", false)
	v.SetDefault("writeback", false)
	v.SetDefault("loop", false)
	v.SetDefault("delay", 60000)
	v.SetDefault("debug", false)
	v.SetDefault("budget_ccs", false)
	v.SetDefault("ccs_group", "Credit Card Payments")
	v.SetDefault("source_timeout", 10*time.Second)

	v.SetDefault("store.backend", StoreRedis)
	v.SetDefault("store.prefix", "")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("dedup.source", DedupLedger)
	v.SetDefault("http.addr", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// BindEnv wires SPLIT2YNAB_* environment variables onto config keys
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes and validates a Config from v
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: unable to decode: %v", ErrInvalid, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field constraints and cross-field rules
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if c.Dedup.Source == DedupJournal && c.Store.Backend != StoreSQL {
		return fmt.Errorf("%w: dedup.source=journal requires store.backend=sql", ErrInvalid)
	}
	// the journal only learns of sent records when the watermark is written back
	if c.Dedup.Source == DedupJournal && !c.Writeback {
		return fmt.Errorf("%w: dedup.source=journal requires writeback", ErrInvalid)
	}
	if c.Store.Backend == StoreSQL && c.Database.DSN == "" {
		return fmt.Errorf("%w: database.dsn is required for store.backend=sql", ErrInvalid)
	}

	return nil
}

// DelayDuration is the loop interval
func (c *Config) DelayDuration() time.Duration {
	return time.Duration(c.Delay) * time.Millisecond
}

// RedisAddr joins host and port
func (c *Config) RedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}

// LogLevel forces debug when verbose record dumps are requested
func (c *Config) LogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.Log.Level
}
