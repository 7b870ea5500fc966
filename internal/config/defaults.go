package config

import (
	"runtime"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultKEGGBaseURL  = "https://rest.kegg.jp"
	DefaultUserAgent    = "keggminer/1.0"
	DefaultPause        = 200 * time.Millisecond
	DefaultTimeout      = 10 * time.Second
	DefaultMaxRetries   = 3
	DefaultMaxBackoff   = 30 * time.Second
	DefaultBreakerRatio = 0.6

	// DefaultReferenceSMILES is acetylsalicylic acid.
	DefaultReferenceSMILES = "CC(=O)OC1=CC=CC=C1C(=O)O"
	DefaultThreshold       = 0.8
	DefaultRadius          = 2
	DefaultNBits           = 2048

	DefaultInputFile    = "compounds.txt"
	DefaultResultsFile  = "resultados_similares_kegg.csv"
	DefaultFailedFile   = "failed_kegg_ids.csv"
	DefaultMetadataFile = "kegg_compounds.csv"
	DefaultImageFile    = "mols_grid.png"
	DefaultGridLimit    = 6
	DefaultGridPerRow   = 3
	DefaultCellSize     = 200

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "keggminer:fp:"
	DefaultRedisTTL       = 7 * 24 * time.Hour

	DefaultMetricsNamespace = "keggminer"
	DefaultServerMode       = "release"
	DefaultShutdownTimeout  = 5 * time.Second

	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

// DefaultWorkers is the worker pool size used when none is configured.
func DefaultWorkers() int {
	return runtime.NumCPU()
}

// Default returns a Config with every field set to its default.
func Default() *Config {
	cfg := &Config{
		Mining: MiningConfig{
			Threshold: DefaultThreshold,
			Radius:    DefaultRadius,
		},
		KEGG: KEGGConfig{
			Pause: DefaultPause,
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-value fields whose zero is never meaningful.
// Threshold and radius accept zero and an explicit zero pause must reach
// Validate, so their defaults are registered with viper instead (see
// registerDefaults) and by Default.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.KEGG.BaseURL == "" {
		cfg.KEGG.BaseURL = DefaultKEGGBaseURL
	}
	if cfg.KEGG.UserAgent == "" {
		cfg.KEGG.UserAgent = DefaultUserAgent
	}
	if cfg.KEGG.Timeout == 0 {
		cfg.KEGG.Timeout = DefaultTimeout
	}
	if cfg.KEGG.MaxRetries == 0 {
		cfg.KEGG.MaxRetries = DefaultMaxRetries
	}
	if cfg.KEGG.MaxBackoff == 0 {
		cfg.KEGG.MaxBackoff = DefaultMaxBackoff
	}
	cb := &cfg.KEGG.CircuitBreaker
	if cb.MaxRequests == 0 {
		cb.MaxRequests = 1
	}
	if cb.Interval == 0 {
		cb.Interval = time.Minute
	}
	if cb.Timeout == 0 {
		cb.Timeout = 30 * time.Second
	}
	if cb.MinRequests == 0 {
		cb.MinRequests = 10
	}
	if cb.FailureRatio == 0 {
		cb.FailureRatio = DefaultBreakerRatio
	}

	if cfg.Mining.ReferenceSMILES == "" {
		cfg.Mining.ReferenceSMILES = DefaultReferenceSMILES
	}
	if cfg.Mining.NBits == 0 {
		cfg.Mining.NBits = DefaultNBits
	}
	if cfg.Mining.Workers == 0 {
		cfg.Mining.Workers = DefaultWorkers()
	}

	if cfg.Output.Input == "" {
		cfg.Output.Input = DefaultInputFile
	}
	if cfg.Output.Results == "" {
		cfg.Output.Results = DefaultResultsFile
	}
	if cfg.Output.Failed == "" {
		cfg.Output.Failed = DefaultFailedFile
	}
	if cfg.Output.Metadata == "" {
		cfg.Output.Metadata = DefaultMetadataFile
	}
	if cfg.Output.Image == "" {
		cfg.Output.Image = DefaultImageFile
	}
	if cfg.Output.GridLimit == 0 {
		cfg.Output.GridLimit = DefaultGridLimit
	}
	if cfg.Output.GridPerRow == 0 {
		cfg.Output.GridPerRow = DefaultGridPerRow
	}
	if cfg.Output.CellSize == 0 {
		cfg.Output.CellSize = DefaultCellSize
	}

	if cfg.Cache.Redis.Addr == "" {
		cfg.Cache.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Cache.Redis.KeyPrefix == "" {
		cfg.Cache.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Cache.Redis.TTL == 0 {
		cfg.Cache.Redis.TTL = DefaultRedisTTL
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

// registerDefaults declares every key on v. Besides supplying defaults this
// makes AutomaticEnv overrides visible to Unmarshal, which only walks known
// keys.
func registerDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.output_paths", []string{})
	v.SetDefault("log.error_output_paths", []string{})
	v.SetDefault("log.file", "")

	v.SetDefault("kegg.base_url", DefaultKEGGBaseURL)
	v.SetDefault("kegg.user_agent", DefaultUserAgent)
	v.SetDefault("kegg.pause", DefaultPause)
	v.SetDefault("kegg.timeout", DefaultTimeout)
	v.SetDefault("kegg.max_retries", DefaultMaxRetries)
	v.SetDefault("kegg.max_backoff", DefaultMaxBackoff)
	v.SetDefault("kegg.circuit_breaker.enabled", false)
	v.SetDefault("kegg.circuit_breaker.max_requests", 1)
	v.SetDefault("kegg.circuit_breaker.interval", time.Minute)
	v.SetDefault("kegg.circuit_breaker.timeout", 30*time.Second)
	v.SetDefault("kegg.circuit_breaker.min_requests", 10)
	v.SetDefault("kegg.circuit_breaker.failure_ratio", DefaultBreakerRatio)

	v.SetDefault("mining.reference_smiles", DefaultReferenceSMILES)
	v.SetDefault("mining.threshold", DefaultThreshold)
	v.SetDefault("mining.radius", DefaultRadius)
	v.SetDefault("mining.nbits", DefaultNBits)
	v.SetDefault("mining.workers", DefaultWorkers())

	v.SetDefault("output.input", DefaultInputFile)
	v.SetDefault("output.results", DefaultResultsFile)
	v.SetDefault("output.failed", DefaultFailedFile)
	v.SetDefault("output.metadata", DefaultMetadataFile)
	v.SetDefault("output.image", DefaultImageFile)
	v.SetDefault("output.grid_limit", DefaultGridLimit)
	v.SetDefault("output.grid_per_row", DefaultGridPerRow)
	v.SetDefault("output.cell_size", DefaultCellSize)

	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.addr", DefaultRedisAddr)
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 0)
	v.SetDefault("cache.redis.dial_timeout", 5*time.Second)
	v.SetDefault("cache.redis.read_timeout", 3*time.Second)
	v.SetDefault("cache.redis.write_timeout", 3*time.Second)
	v.SetDefault("cache.redis.ttl", DefaultRedisTTL)
	v.SetDefault("cache.redis.key_prefix", DefaultRedisKeyPrefix)

	v.SetDefault("storage.minio.enabled", false)
	v.SetDefault("storage.minio.endpoint", "")
	v.SetDefault("storage.minio.access_key", "")
	v.SetDefault("storage.minio.secret_key", "")
	v.SetDefault("storage.minio.bucket", "")
	v.SetDefault("storage.minio.region", "")
	v.SetDefault("storage.minio.use_ssl", false)
	v.SetDefault("storage.minio.prefix", "")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", DefaultMetricsNamespace)

	v.SetDefault("server.addr", "")
	v.SetDefault("server.mode", DefaultServerMode)
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout)
}
