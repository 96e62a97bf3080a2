package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/Alturino/pricing/internal/log"
)

type Application struct {
	Env       string `mapstructure:"env"        json:"env"`
	Host      string `mapstructure:"host"       json:"host"`
	SecretKey string `mapstructure:"secret_key" json:"-"`
	LogPath   string `mapstructure:"log_path"   json:"log_path"`
	Port      int    `mapstructure:"port"       json:"port"`
}

type Database struct {
	Name           string `mapstructure:"name"             json:"name"`
	Host           string `mapstructure:"host"             json:"host"`
	MigrationPath  string `mapstructure:"migration_path"   json:"migration_path"`
	Password       string `mapstructure:"password"         json:"-"`
	Username       string `mapstructure:"username"         json:"username"`
	MaxConnections int32  `mapstructure:"max_connections"  json:"max_connections"`
	MinConnections int32  `mapstructure:"min_connections"  json:"min_connections"`
	Port           uint16 `mapstructure:"port"             json:"port"`
	MigrateOnStart bool   `mapstructure:"migrate_on_start" json:"migrate_on_start"`
}

type Cache struct {
	Host     string `mapstructure:"host"     json:"host"`
	Password string `mapstructure:"password" json:"-"`
	Database int    `mapstructure:"database" json:"database"`
	Port     uint16 `mapstructure:"port"     json:"port"`
}

type Otel struct {
	Host string `mapstructure:"host" json:"host"`
	Port int    `mapstructure:"port" json:"port"`
}

type MarginThreshold struct {
	Category  string  `mapstructure:"category"   json:"category"`
	MarginEur float64 `mapstructure:"margin_eur" json:"margin_eur"`
}

type Pricing struct {
	MarginThresholds []MarginThreshold `mapstructure:"margin_thresholds" json:"margin_thresholds"`
	CacheTTL         time.Duration     `mapstructure:"cache_ttl"         json:"cache_ttl"`
}

type Cart struct {
	WriteMode         string `mapstructure:"write_mode"          json:"write_mode"`
	MergePricing      string `mapstructure:"merge_pricing"       json:"merge_pricing"`
	PricingServiceURL string `mapstructure:"pricing_service_url" json:"pricing_service_url"`
	MaxRetries        int    `mapstructure:"max_retries"         json:"max_retries"`
}

type Config struct {
	Database    `mapstructure:"db"          json:"db"`
	Cache       `mapstructure:"cache"       json:"cache"`
	Application `mapstructure:"application" json:"application"`
	Otel        `mapstructure:"otel"        json:"otel"`
	Pricing     `mapstructure:"pricing"     json:"pricing"`
	Cart        `mapstructure:"cart"        json:"cart"`
}

func (o Otel) Endpoint() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

var (
	once   sync.Once
	config *Config
)

func setDefaults() {
	viper.SetDefault("application.env", "production")
	viper.SetDefault("application.host", "0.0.0.0")
	viper.SetDefault("application.port", 8080)
	viper.SetDefault("db.migration_path", "file://migrations")
	viper.SetDefault("db.max_connections", 10)
	viper.SetDefault("db.min_connections", 2)
	viper.SetDefault("otel.host", "otel-collector")
	viper.SetDefault("otel.port", 4317)
	viper.SetDefault("pricing.cache_ttl", "5m")
	viper.SetDefault("cart.write_mode", "optimistic")
	viper.SetDefault("cart.merge_pricing", "keep")
	viper.SetDefault("cart.max_retries", 3)
	viper.SetDefault("cart.pricing_service_url", "http://pricing-service:8080")
}

func InitConfig(c context.Context, filename string) *Config {
	once.Do(func() {
		cfg := Config{}
		logger := zerolog.Ctx(c).
			With().
			Str(log.KeyTag, "main InitConfig").
			Str(log.KeyProcess, "init config").
			Str("filename", filename).
			Logger()

		viper.SetConfigName(filename)
		viper.AddConfigPath("./env")
		viper.SetConfigType("yaml")
		viper.AutomaticEnv()
		setDefaults()

		logger = logger.With().Str(log.KeyProcess, "reading config").Logger()
		logger.Info().Msg("reading config")
		err := viper.ReadInConfig()
		if err != nil {
			err = fmt.Errorf("error when reading config with error=%w", err)
			logger.Fatal().Err(err).Msg(err.Error())
		}
		logger.Info().Msg("read config")

		logger = logger.With().Str(log.KeyProcess, "unmarshaling config").Logger()
		logger.Info().Msg("unmarshaling config")
		err = viper.Unmarshal(&cfg)
		if err != nil {
			err = fmt.Errorf("error unmarshaling config with error=%w", err)
			logger.Fatal().Err(err).Msg(err.Error())
		}
		config = &cfg
		logger = logger.With().Any(log.KeyConfig, cfg).Logger()
		logger.Info().Msg("unmarshaled config")
	})
	return config
}
