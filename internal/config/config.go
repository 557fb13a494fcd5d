package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	// Common
	Env      string `yaml:"env" env:"ENV" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFile  string `yaml:"log_file" env:"LOG_FILE"`
	// API
	Port          string        `yaml:"port" env:"PORT" env-default:"8080"`
	QueryTimeout  time.Duration `yaml:"query_timeout" env:"QUERY_TIMEOUT" env-default:"10s"`
	ImpactTimeout time.Duration `yaml:"impact_timeout" env:"IMPACT_TIMEOUT" env-default:"15s"`
	// Storage: pg | dynamodb | memory
	Storage     string `yaml:"storage" env:"STORAGE" env-default:"pg"`
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`
	// DynamoDB
	AWSRegion        string `yaml:"aws_region" env:"AWS_REGION"`
	DynamoEndpoint   string `yaml:"dynamodb_endpoint" env:"DYNAMODB_ENDPOINT"`
	RatesTableName   string `yaml:"rates_table_name" env:"RATES_TABLE_NAME" env-default:"fx-margin-guard-rates"`
	OrdersTableName  string `yaml:"orders_table_name" env:"ORDERS_TABLE_NAME" env-default:"fx-margin-guard-orders"`
	OrdersStoreIndex string `yaml:"orders_store_index" env:"ORDERS_STORE_INDEX" env-default:"storeIndex"`
	// Providers: fixer | fake
	Provider           string        `yaml:"provider" env:"PROVIDER" env-default:"fixer"`
	FakeRate           float64       `yaml:"fake_rate" env:"FAKE_RATE" env-default:"83.25"`
	Pair               string        `yaml:"pair" env:"RATE_PAIR" env-default:"USD-INR"`
	FixerAPIBase       string        `yaml:"fixer_api_base" env:"FIXER_API_BASE" env-default:"http://data.fixer.io/api"`
	FixerAPIKey        string        `yaml:"fixer_api_key" env:"FIXER_API_KEY"`
	FixerMode          string        `yaml:"fixer_mode" env:"FIXER_MODE" env-default:"cross"`
	FallbackAPIBase    string        `yaml:"fallback_api_base" env:"FALLBACK_API_BASE" env-default:"https://api.exchangerate-api.com"`
	ProviderTimeout    time.Duration `yaml:"provider_timeout" env:"PROVIDER_TIMEOUT" env-default:"8s"`
	ProviderRatePerSec float64       `yaml:"provider_rate_per_sec" env:"PROVIDER_RATE_PER_SEC" env-default:"1"`
	// Scheduler
	SchedulerEnabled bool          `yaml:"scheduler_enabled" env:"SCHEDULER_ENABLED" env-default:"false"`
	FetchInterval    time.Duration `yaml:"fetch_interval" env:"FETCH_INTERVAL" env-default:"30m"`
	AcquireTimeout   time.Duration `yaml:"acquire_timeout" env:"ACQUIRE_TIMEOUT" env-default:"30s"`
	// Redis (scheduler slot guard)
	GuardBackend  string `yaml:"guard_backend" env:"GUARD_BACKEND" env-default:"redis"`
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB" env-default:"0"`
}

// Load reads CONFIG_PATH (yaml) when set, then environment variables, and
// applies defaults.
func Load() (Config, error) {
	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		return cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	return cfg, nil
}

// MustLoad is Load for process entry points.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
