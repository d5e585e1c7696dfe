package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"market-aggregator/src/helpers"
	"market-aggregator/src/models"
	"market-aggregator/src/utils"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides, read after the optional .env file
const (
	EnvRedisAddr     = "AGGREGATOR_REDIS_ADDR"
	EnvRedisPassword = "AGGREGATOR_REDIS_PASSWORD"
	EnvDBConnString  = "AGGREGATOR_DB_CONNECTION_STRING"
	EnvDBPath        = "AGGREGATOR_DB_PATH"
	EnvRequestsHour  = "AGGREGATOR_REQUESTS_PER_HOUR"
	EnvLogLevel      = "AGGREGATOR_LOG_LEVEL"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config from a YAML file, an optional .env file and
// AGGREGATOR_* environment variables.
func NewConfig(configPath string) (*Config, error) {
	// 1. Load .env if present
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, helpers.NewConfigurationError(err, "failed to load .env")
	}

	// 2. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, helpers.NewConfigurationError(err, "failed to read config file '%s'", configPath)
	}

	return Parse(data)
}

// -----------------------------------------------------------------------------

// Parse builds a validated Config from YAML bytes.
func Parse(data []byte) (*Config, error) {
	modelConfig := Default()
	if err := yaml.Unmarshal(data, modelConfig); err != nil {
		return nil, helpers.NewConfigurationError(err, "failed to parse config from YAML")
	}

	config := &Config{MConfig: modelConfig}
	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, helpers.NewConfigurationError(err, "config validation failed")
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Default returns the configuration used for every key the YAML leaves out.
func Default() *models.MConfig {
	return &models.MConfig{
		Name:     "market-aggregator",
		LogLevel: "INFO",
		Cadence:  string(models.CadenceDaily),
		Market: models.MMarketConfig{
			Timezone:    "America/New_York",
			CalendarMIC: "xnys",
			OpenTime:    "09:30",
			CloseTime:   "16:00",
		},
		Schedule: models.MScheduleConfig{
			BootstrapOnStart: true,
		},
		Provider: models.MProviderConfig{
			Name:            "yahoo",
			BaseURL:         "https://query1.finance.yahoo.com/v8/finance/chart",
			RequestsPerHour: 2000,
			RequestTimeout:  15,
			MaxRetries:      2,
		},
		History: models.MHistoryConfig{Window: 30},
		Publish: models.MPublishConfig{
			Websocket: models.MWebsocketConfig{Enabled: true, Host: "0.0.0.0", Port: 21000},
			Redis:     models.MRedisConfig{Addr: "localhost:6379", ChannelPrefix: "aggregator:"},
		},
		Control: models.MControlConfig{GrpcHost: "0.0.0.0", GrpcPort: 21001},
		Storage: models.MStorageConfig{DBType: "none", RetentionDays: 365, CleanupAt: "02:00"},
	}
}

// -----------------------------------------------------------------------------

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Publish.Redis.Addr = v
	}
	if v := os.Getenv(EnvRedisPassword); v != "" {
		c.Publish.Redis.Password = v
	}
	if v := os.Getenv(EnvDBConnString); v != "" {
		c.Storage.DBConnectionString = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv(EnvRequestsHour); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Provider.RequestsPerHour = n
		}
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	if _, err := models.ParseCadence(c.Cadence); err != nil {
		return err
	}

	// Market calendar
	if _, err := time.LoadLocation(c.Market.Timezone); err != nil {
		return fmt.Errorf("invalid market timezone %q: %w", c.Market.Timezone, err)
	}
	open, err := ParseClock(c.Market.OpenTime)
	if err != nil {
		return fmt.Errorf("invalid market open time: %w", err)
	}
	closeAt, err := ParseClock(c.Market.CloseTime)
	if err != nil {
		return fmt.Errorf("invalid market close time: %w", err)
	}
	if closeAt <= open {
		return fmt.Errorf("market close %s must be after open %s", c.Market.CloseTime, c.Market.OpenTime)
	}

	// Schedule
	if g := c.Schedule.GraceSeconds; g != nil && *g < 0 {
		return fmt.Errorf("grace seconds cannot be negative")
	}
	if c.Schedule.LeadMinutes < 0 {
		return fmt.Errorf("lead minutes cannot be negative")
	}

	// Provider
	if c.Provider.RequestsPerHour <= 0 {
		return fmt.Errorf("requests per hour must be greater than 0")
	}
	if c.Provider.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Provider.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	if c.History.Window < 1 {
		return fmt.Errorf("history window must be at least 1")
	}

	// Transports
	if c.Publish.Websocket.Enabled {
		if err := validatePort("websocket", c.Publish.Websocket.Port); err != nil {
			return err
		}
	}
	if c.Publish.Redis.Enabled && c.Publish.Redis.Addr == "" {
		return fmt.Errorf("redis address cannot be empty when redis publishing is enabled")
	}
	if c.Control.GrpcEnabled {
		if err := validatePort("grpc", c.Control.GrpcPort); err != nil {
			return err
		}
	}

	// Storage
	switch c.Storage.DBType {
	case "", "none":
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("database connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unsupported database type %q", c.Storage.DBType)
	}
	if c.Storage.RetentionDays < 0 {
		return fmt.Errorf("retention days cannot be negative")
	}

	for name, src := range map[string]models.MSymbolSource{"market": c.Symbols.Market, "always_on": c.Symbols.AlwaysOn} {
		if src.Table != "" && c.Storage.DBType != "postgres" {
			return fmt.Errorf("%s symbols from table %q require postgres storage", name, src.Table)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}

// -----------------------------------------------------------------------------

// CadenceValue returns the parsed cadence. Only valid after Validate.
func (c *Config) CadenceValue() models.MCadence {
	cad, _ := models.ParseCadence(c.Cadence)
	return cad
}

// Grace returns the configured grace offset, or the cadence default when unset.
func (c *Config) Grace() time.Duration {
	if g := c.Schedule.GraceSeconds; g != nil {
		return time.Duration(*g) * time.Second
	}
	if c.CadenceValue().IsDaily() {
		return utils.DefaultDailyGraceSeconds * time.Second
	}
	return utils.DefaultIntradayGraceSeconds * time.Second
}

// Location returns the market timezone. Only valid after Validate.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Market.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// -----------------------------------------------------------------------------

// ParseClock parses "HH:MM" (or "HH:MM:SS") into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("expected HH:MM, got %q", s)
}

func validatePort(name string, port int) error {
	if port <= 1024 || port > 65535 {
		return fmt.Errorf("invalid %s port number: %d (must be between 1025 and 65535)", name, port)
	}
	return nil
}
