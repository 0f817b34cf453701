package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var config = viper.New()

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	Server     struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout  time.Duration `mapstructure:"IDLE_TIMEOUT"`
	} `mapstructure:"HTTP_SERVER"`
	Database struct {
		Type           string `mapstructure:"TYPE"`
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBNAME         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		EnableMetrics  bool   `mapstructure:"ENABLE_METRICS"`
		EnableTracing  bool   `mapstructure:"ENABLE_TRACING"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConn     int           `mapstructure:"MAX_OPEN_CONN"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	Engage struct {
		PollInterval   time.Duration `mapstructure:"POLL_INTERVAL"`
		StuckAfter     time.Duration `mapstructure:"STUCK_AFTER"`
		Concurrency    int           `mapstructure:"CONCURRENCY"`
		MaxAttempts    int           `mapstructure:"MAX_ATTEMPTS"`
		RetryBaseDelay time.Duration `mapstructure:"RETRY_BASE_DELAY"`
		ClaimBatchSize int           `mapstructure:"CLAIM_BATCH_SIZE"`
	} `mapstructure:"ENGAGE"`
	Verifier struct {
		BaseURL string        `mapstructure:"BASE_URL"`
		Token   string        `mapstructure:"TOKEN"`
		Timeout time.Duration `mapstructure:"TIMEOUT"`
	} `mapstructure:"VERIFIER"`
}

var Module = fx.Module("config", fx.Provide(LoadConfig))

func LoadConfig() *Config {
	config.SetConfigName("config")
	config.SetConfigType("yaml")
	config.AddConfigPath(".")

	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()

	if err := config.ReadInConfig(); err != nil {
		zap.L().Error("failed to read config", zap.Error(err))
		os.Exit(1)
	}

	var cfg Config
	if err := config.Unmarshal(&cfg); err != nil {
		zap.L().Error("failed to unmarshal config", zap.Error(err))
		os.Exit(1)
	}

	applyDefaults(&cfg)

	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Engage.PollInterval <= 0 {
		cfg.Engage.PollInterval = 5 * time.Minute
	}
	if cfg.Engage.StuckAfter <= 0 {
		cfg.Engage.StuckAfter = 15 * time.Minute
	}
	if cfg.Engage.Concurrency <= 0 {
		cfg.Engage.Concurrency = 5
	}
	if cfg.Engage.MaxAttempts <= 0 {
		cfg.Engage.MaxAttempts = 3
	}
	if cfg.Engage.RetryBaseDelay <= 0 {
		cfg.Engage.RetryBaseDelay = time.Minute
	}
	if cfg.Engage.ClaimBatchSize <= 0 {
		cfg.Engage.ClaimBatchSize = 100
	}
	if cfg.Verifier.Timeout <= 0 {
		cfg.Verifier.Timeout = 30 * time.Second
	}
}
