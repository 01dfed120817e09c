package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/zlog"

	"github.com/yokitheyo/watermarkremover/internal/helpers"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Inpaint   InpaintConfig   `mapstructure:"inpaint"`
	Watermark WatermarkConfig `mapstructure:"watermark"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Addr               string `mapstructure:"addr"`
	ShutdownTimeoutSec int    `mapstructure:"shutdown_timeout_sec"`
	ReadTimeoutSec     int    `mapstructure:"read_timeout_sec"`
	WriteTimeoutSec    int    `mapstructure:"write_timeout_sec"`
	MaxRequestSizeKB   int    `mapstructure:"max_request_size_kb"`
}

type FetchConfig struct {
	TimeoutSec     int      `mapstructure:"timeout_sec"`
	MaxImageSizeMB int      `mapstructure:"max_image_size_mb"`
	UserAgent      string   `mapstructure:"user_agent"`
	AllowedSchemes []string `mapstructure:"allowed_schemes"`
}

func (c FetchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// StorageConfig configures the optional S3/MinIO source for s3:// URLs.
type StorageConfig struct {
	S3Endpoint  string `mapstructure:"s3_endpoint"`
	S3AccessKey string `mapstructure:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key"`
	S3Region    string `mapstructure:"s3_region"`
	S3UseSSL    bool   `mapstructure:"s3_use_ssl"`
}

func (c StorageConfig) S3Enabled() bool {
	return c.S3Endpoint != ""
}

type InpaintConfig struct {
	Backend        string `mapstructure:"backend"`
	DefaultDevice  string `mapstructure:"default_device"`
	Devices        string `mapstructure:"devices"`
	CacheSize      int    `mapstructure:"cache_size"`
	Workers        int    `mapstructure:"workers"`
	ConcurrentSafe bool   `mapstructure:"concurrent_safe"`

	RemoteURL        string `mapstructure:"remote_url"`
	RemoteTimeoutSec int    `mapstructure:"remote_timeout_sec"`
	RemoteToken      string `mapstructure:"remote_token"`

	BuiltinIterations int `mapstructure:"builtin_iterations"`
}

// AllowedDevices parses the comma separated device list.
func (c InpaintConfig) AllowedDevices() []string {
	return helpers.SplitAndTrim(c.Devices, ",")
}

type WatermarkConfig struct {
	Width   int `mapstructure:"width"`
	Height  int `mapstructure:"height"`
	OffsetX int `mapstructure:"offset_x"`
	OffsetY int `mapstructure:"offset_y"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

const (
	BackendBuiltin = "builtin"
	BackendRemote  = "remote"
)

func Load(path string) (*Config, error) {
	cfg := config.New()

	configPath := path
	if configPath == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			configPath = "config.yaml"
		} else if _, err := os.Stat("/app/config.yaml"); err == nil {
			configPath = "/app/config.yaml"
		} else {
			return nil, fmt.Errorf("config.yaml not found")
		}
	}

	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = ""
	}

	if err := cfg.Load(configPath, envPath, "APP"); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	appConfig := &Config{}
	if err := cfg.Unmarshal(appConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(appConfig)

	if device := strings.TrimSpace(os.Getenv("LAMA_DEVICE")); device != "" {
		appConfig.Inpaint.DefaultDevice = device
	}

	if err := validateConfig(appConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	zlog.Logger.Info().
		Str("addr", appConfig.Server.Addr).
		Str("backend", appConfig.Inpaint.Backend).
		Str("default_device", appConfig.Inpaint.DefaultDevice).
		Int("cache_size", appConfig.Inpaint.CacheSize).
		Int("workers", appConfig.Inpaint.Workers).
		Int("fetch_timeout_sec", appConfig.Fetch.TimeoutSec).
		Bool("s3_enabled", appConfig.Storage.S3Enabled()).
		Msg("Config loaded successfully via wbf")

	return appConfig, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.MaxRequestSizeKB == 0 {
		cfg.Server.MaxRequestSizeKB = 256
	}
	if cfg.Fetch.TimeoutSec == 0 {
		cfg.Fetch.TimeoutSec = 10
	}
	if cfg.Fetch.MaxImageSizeMB == 0 {
		cfg.Fetch.MaxImageSizeMB = 20
	}
	if len(cfg.Fetch.AllowedSchemes) == 0 {
		cfg.Fetch.AllowedSchemes = []string{"http", "https"}
	}
	if cfg.Inpaint.Backend == "" {
		cfg.Inpaint.Backend = BackendBuiltin
	}
	if cfg.Inpaint.DefaultDevice == "" {
		cfg.Inpaint.DefaultDevice = "cpu"
	}
	if cfg.Inpaint.Devices == "" {
		cfg.Inpaint.Devices = "cpu,cuda"
	}
	if cfg.Inpaint.CacheSize == 0 {
		cfg.Inpaint.CacheSize = 2
	}
	if cfg.Inpaint.Workers == 0 {
		cfg.Inpaint.Workers = 2
	}
	if cfg.Inpaint.RemoteTimeoutSec == 0 {
		cfg.Inpaint.RemoteTimeoutSec = 120
	}
	if cfg.Inpaint.BuiltinIterations == 0 {
		cfg.Inpaint.BuiltinIterations = 200
	}
	if cfg.Watermark.Width == 0 && cfg.Watermark.Height == 0 {
		cfg.Watermark.Width = 120
		cfg.Watermark.Height = 120
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

func validateConfig(cfg *Config) error {
	// Server
	if cfg.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if cfg.Server.ShutdownTimeoutSec <= 0 {
		return fmt.Errorf("server.shutdown_timeout_sec must be positive")
	}
	if cfg.Server.ReadTimeoutSec <= 0 {
		return fmt.Errorf("server.read_timeout_sec must be positive")
	}
	if cfg.Server.WriteTimeoutSec <= 0 {
		return fmt.Errorf("server.write_timeout_sec must be positive")
	}
	if cfg.Server.MaxRequestSizeKB <= 0 {
		return fmt.Errorf("server.max_request_size_kb must be positive")
	}

	// Fetch
	if cfg.Fetch.TimeoutSec <= 0 {
		return fmt.Errorf("fetch.timeout_sec must be positive")
	}
	if cfg.Fetch.MaxImageSizeMB <= 0 {
		return fmt.Errorf("fetch.max_image_size_mb must be positive")
	}
	if slices.Contains(cfg.Fetch.AllowedSchemes, "s3") && !cfg.Storage.S3Enabled() {
		return fmt.Errorf("fetch.allowed_schemes contains s3 but storage.s3_endpoint is empty")
	}

	// Storage
	if cfg.Storage.S3Enabled() && (cfg.Storage.S3AccessKey == "" || cfg.Storage.S3SecretKey == "") {
		return fmt.Errorf("storage.s3_access_key and storage.s3_secret_key are required for s3 sources")
	}

	// Inpaint
	switch cfg.Inpaint.Backend {
	case BackendBuiltin:
	case BackendRemote:
		if cfg.Inpaint.RemoteURL == "" {
			return fmt.Errorf("inpaint.remote_url is required for the remote backend")
		}
	default:
		return fmt.Errorf("inpaint.backend must be 'builtin' or 'remote'")
	}
	devices := cfg.Inpaint.AllowedDevices()
	if len(devices) == 0 {
		return fmt.Errorf("inpaint.devices must contain at least one device")
	}
	if !slices.Contains(devices, cfg.Inpaint.DefaultDevice) {
		return fmt.Errorf("inpaint.default_device %q is not in inpaint.devices %v", cfg.Inpaint.DefaultDevice, devices)
	}
	if cfg.Inpaint.CacheSize <= 0 {
		return fmt.Errorf("inpaint.cache_size must be positive")
	}
	if cfg.Inpaint.Workers <= 0 {
		return fmt.Errorf("inpaint.workers must be positive")
	}
	if cfg.Inpaint.BuiltinIterations <= 0 {
		return fmt.Errorf("inpaint.builtin_iterations must be positive")
	}

	// Watermark
	if cfg.Watermark.Width <= 0 || cfg.Watermark.Height <= 0 {
		return fmt.Errorf("watermark.width and watermark.height must be positive")
	}
	if cfg.Watermark.OffsetX < 0 || cfg.Watermark.OffsetY < 0 {
		return fmt.Errorf("watermark offsets must be non-negative")
	}

	if cfg.Logging.Level == "" {
		return fmt.Errorf("logging.level is required")
	}

	return nil
}
