package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Report   ReportConfig   `mapstructure:"report"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds sqlite configuration.
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// LoggerConfig holds logger configuration.
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// ReportConfig holds report policy configuration.
type ReportConfig struct {
	// DefaultCurrency is used for new reports when the client omits one.
	DefaultCurrency string `mapstructure:"default_currency"`
}

// ArchiveConfig holds the workbook archive location.
type ArchiveConfig struct {
	// Dir is the root directory for archived report workbooks.
	Dir string `mapstructure:"dir"`
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	// RecoveryInterval is how often the stuck-receipt sweep runs.
	RecoveryInterval time.Duration `mapstructure:"recovery_interval"`
}

// Load loads configuration from an optional file plus environment variables.
func Load(configPath string) (*Config, error) {
	setDefaults()
	viper.AutomaticEnv()
	bindEnvVars()

	if configPath != "" {
		viper.SetConfigFile(configPath)
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	viper.SetDefault("database.path", "data/expensio.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")

	viper.SetDefault("report.default_currency", "USD")

	viper.SetDefault("archive.dir", "data/archive")
	viper.SetDefault("worker.recovery_interval", 5*time.Minute)
}

func bindEnvVars() {
	viper.BindEnv("server.port", "EXPENSIO_PORT")
	viper.BindEnv("database.path", "EXPENSIO_DB_PATH")
	viper.BindEnv("logger.level", "EXPENSIO_LOG_LEVEL")
	viper.BindEnv("report.default_currency", "EXPENSIO_DEFAULT_CURRENCY")
	viper.BindEnv("archive.dir", "EXPENSIO_ARCHIVE_DIR")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if len(c.Report.DefaultCurrency) != 3 {
		return fmt.Errorf("report.default_currency must be a 3-letter code, got %q", c.Report.DefaultCurrency)
	}
	if c.Worker.RecoveryInterval <= 0 {
		return fmt.Errorf("worker.recovery_interval must be positive")
	}
	return nil
}
