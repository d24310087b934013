package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	Cron   CronConfig   `mapstructure:"cron"`
	Vault  VaultConfig  `mapstructure:"vault"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	// DSN empty means run without persistence.
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	RateSnapshot     string        `mapstructure:"rate_snapshot"`
	JournalPrune     string        `mapstructure:"journal_prune"`
	JournalRetention time.Duration `mapstructure:"journal_retention"`
}

// VaultConfig seeds the accounting cores at boot.
type VaultConfig struct {
	SelfID         string   `mapstructure:"self_id"`
	Admin          string   `mapstructure:"admin"`
	Keepers        []string `mapstructure:"keepers"`
	Pausers        []string `mapstructure:"pausers"`
	DepositFeeBps  uint32   `mapstructure:"deposit_fee_bps"`
	WithdrawFeeBps uint32   `mapstructure:"withdraw_fee_bps"`
	// Cap of zero means uncapped.
	Cap     uint64 `mapstructure:"cap"`
	FeeMode string `mapstructure:"fee_mode"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.rate_snapshot", "@every 1m")
	v.SetDefault("cron.journal_prune", "0 0 3 * * *")
	v.SetDefault("cron.journal_retention", "2160h") // 90 days
	v.SetDefault("vault.self_id", "vault")
	v.SetDefault("vault.deposit_fee_bps", 0)
	v.SetDefault("vault.withdraw_fee_bps", 0)
	v.SetDefault("vault.cap", 0)
	v.SetDefault("vault.fee_mode", "accrue")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
