// Package config defines keggminer's configuration structures. No I/O lives
// in this file, only plain data types and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/logging"
)

// KEGGConfig holds the remote fetcher tunables.
type KEGGConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Pause     time.Duration `mapstructure:"pause"`
	Timeout   time.Duration `mapstructure:"timeout"`

	// MaxRetries is the total number of attempts per request, first included.
	MaxRetries int           `mapstructure:"max_retries"`
	MaxBackoff time.Duration `mapstructure:"max_backoff"`

	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// CircuitBreakerConfig configures the optional breaker in front of KEGG.
type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MinRequests  uint32        `mapstructure:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
}

// MiningConfig holds the similarity search parameters.
type MiningConfig struct {
	ReferenceSMILES string  `mapstructure:"reference_smiles"`
	Threshold       float64 `mapstructure:"threshold"`
	Radius          int     `mapstructure:"radius"`
	NBits           int     `mapstructure:"nbits"`
	Workers         int     `mapstructure:"workers"`
}

// OutputConfig names the files read and written by a run.
type OutputConfig struct {
	Input    string `mapstructure:"input"`
	Results  string `mapstructure:"results"`
	Failed   string `mapstructure:"failed"`
	Metadata string `mapstructure:"metadata"`
	Image    string `mapstructure:"image"`

	GridLimit  int `mapstructure:"grid_limit"`
	GridPerRow int `mapstructure:"grid_per_row"`
	CellSize   int `mapstructure:"cell_size"`
}

// RedisConfig configures the optional shared fingerprint store.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	TTL          time.Duration `mapstructure:"ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// CacheConfig groups cache tiers.
type CacheConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// MinIOConfig configures optional publication of output files.
type MinIOConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Prefix    string `mapstructure:"prefix"`
}

// StorageConfig groups object storage backends.
type StorageConfig struct {
	MinIO MinIOConfig `mapstructure:"minio"`
}

// MetricsConfig controls the prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// ServerConfig controls the optional status server. An empty Addr disables it.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Config is the root configuration structure.
type Config struct {
	Log     logging.LogConfig `mapstructure:"log"`
	KEGG    KEGGConfig        `mapstructure:"kegg"`
	Mining  MiningConfig      `mapstructure:"mining"`
	Output  OutputConfig      `mapstructure:"output"`
	Cache   CacheConfig       `mapstructure:"cache"`
	Storage StorageConfig     `mapstructure:"storage"`
	Metrics MetricsConfig     `mapstructure:"metrics"`
	Server  ServerConfig      `mapstructure:"server"`
}

// Validate performs semantic validation and returns the first problem found.
func (c *Config) Validate() error {
	if c.KEGG.BaseURL == "" {
		return fmt.Errorf("config: kegg.base_url is required")
	}
	if c.KEGG.Pause <= 0 {
		return fmt.Errorf("config: kegg.pause must be > 0, got %s", c.KEGG.Pause)
	}
	if c.KEGG.MaxBackoff < c.KEGG.Pause {
		return fmt.Errorf("config: kegg.max_backoff %s must be ≥ kegg.pause %s", c.KEGG.MaxBackoff, c.KEGG.Pause)
	}
	if c.KEGG.Timeout <= 0 {
		return fmt.Errorf("config: kegg.timeout must be > 0, got %s", c.KEGG.Timeout)
	}
	if c.KEGG.MaxRetries < 1 {
		return fmt.Errorf("config: kegg.max_retries must be ≥ 1, got %d", c.KEGG.MaxRetries)
	}
	if cb := c.KEGG.CircuitBreaker; cb.Enabled && (cb.FailureRatio <= 0 || cb.FailureRatio > 1) {
		return fmt.Errorf("config: kegg.circuit_breaker.failure_ratio %v is out of range (0, 1]", cb.FailureRatio)
	}

	if strings.TrimSpace(c.Mining.ReferenceSMILES) == "" {
		return fmt.Errorf("config: mining.reference_smiles is required")
	}
	if c.Mining.Threshold < 0 || c.Mining.Threshold > 1 {
		return fmt.Errorf("config: mining.threshold %v is out of range [0, 1]", c.Mining.Threshold)
	}
	if c.Mining.Radius < 0 {
		return fmt.Errorf("config: mining.radius must be ≥ 0, got %d", c.Mining.Radius)
	}
	if c.Mining.NBits < 1 {
		return fmt.Errorf("config: mining.nbits must be ≥ 1, got %d", c.Mining.NBits)
	}
	if c.Mining.Workers < 1 {
		return fmt.Errorf("config: mining.workers must be ≥ 1, got %d", c.Mining.Workers)
	}

	if c.Output.GridPerRow < 1 {
		return fmt.Errorf("config: output.grid_per_row must be ≥ 1, got %d", c.Output.GridPerRow)
	}
	if c.Output.CellSize < 50 {
		return fmt.Errorf("config: output.cell_size must be ≥ 50, got %d", c.Output.CellSize)
	}

	if c.Cache.Redis.Enabled && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("config: cache.redis.addr is required when redis is enabled")
	}
	if m := c.Storage.MinIO; m.Enabled && (m.Endpoint == "" || m.Bucket == "") {
		return fmt.Errorf("config: storage.minio.endpoint and bucket are required when minio is enabled")
	}

	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
