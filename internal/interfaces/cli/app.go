package cli

import (
	"context"
	"io"

	"github.com/turtacn/keggminer/internal/application/fingerprint"
	"github.com/turtacn/keggminer/internal/application/mining"
	"github.com/turtacn/keggminer/internal/application/reporting"
	"github.com/turtacn/keggminer/internal/config"
	"github.com/turtacn/keggminer/internal/infrastructure/database/redis"
	"github.com/turtacn/keggminer/internal/infrastructure/kegg"
	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/keggminer/internal/infrastructure/storage/minio"
	httpapi "github.com/turtacn/keggminer/internal/interfaces/http"
	"github.com/turtacn/keggminer/internal/interfaces/http/handlers"
	"github.com/turtacn/keggminer/pkg/errors"
)

// app holds the components shared by the similar and fetch commands.
type app struct {
	cfg       *config.Config
	logger    logging.Logger
	collector prometheus.MetricsCollector
	metrics   *prometheus.MinerMetrics
	tracker   *mining.Tracker

	fetcher *kegg.Fetcher
	scorer  *fingerprint.Scorer

	redis  *redis.Client
	store  *minio.Client
	server *httpapi.Server
}

// newApp wires the run from cfg. Optional backends that cannot be reached
// are logged and left out; only an unusable KEGG base URL or a status server
// that cannot bind is fatal.
func newApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*app, error) {
	a := &app{
		cfg:       cfg,
		logger:    log,
		collector: prometheus.NewNoopCollector(),
		tracker:   mining.NewTracker(),
	}

	if cfg.Metrics.Enabled || cfg.Server.Addr != "" {
		collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableGoMetrics:      true,
			EnableProcessMetrics: true,
		}, log)
		if err != nil {
			log.Warn("metrics disabled", logging.Err(err))
		} else {
			a.collector = collector
		}
	}
	a.metrics = prometheus.NewMinerMetrics(a.collector)

	client, err := kegg.NewClient(cfg.KEGG.BaseURL,
		kegg.WithUserAgent(cfg.KEGG.UserAgent),
		kegg.WithTimeout(cfg.KEGG.Timeout),
		kegg.WithLogger(log.Named("kegg")),
		kegg.WithMetrics(a.metrics))
	if err != nil {
		return nil, err
	}
	fopts := []kegg.FetcherOption{
		kegg.WithFetcherLogger(log.Named("kegg")),
		kegg.WithFetcherMetrics(a.metrics),
	}
	if cb := cfg.KEGG.CircuitBreaker; cb.Enabled {
		fopts = append(fopts, kegg.WithBreaker(kegg.BreakerSettings{
			Name:         "kegg",
			MaxRequests:  cb.MaxRequests,
			Interval:     cb.Interval,
			Timeout:      cb.Timeout,
			MinRequests:  cb.MinRequests,
			FailureRatio: cb.FailureRatio,
		}))
	}
	a.fetcher = kegg.NewFetcher(client,
		kegg.NewRetryPolicy(cfg.KEGG.MaxRetries, cfg.KEGG.Pause, cfg.KEGG.MaxBackoff), fopts...)

	copts := []fingerprint.Option{
		fingerprint.WithLogger(log.Named("fingerprint")),
		fingerprint.WithMetrics(a.metrics),
	}
	if rc := cfg.Cache.Redis; rc.Enabled {
		rdb, err := redis.NewClient(ctx, &redis.Config{
			Addr:         rc.Addr,
			Password:     rc.Password,
			DB:           rc.DB,
			PoolSize:     rc.PoolSize,
			DialTimeout:  rc.DialTimeout,
			ReadTimeout:  rc.ReadTimeout,
			WriteTimeout: rc.WriteTimeout,
		}, log.Named("redis"))
		if err != nil {
			log.Warn("redis unavailable, fingerprints cached in memory only",
				logging.String("addr", rc.Addr), logging.Err(err))
		} else {
			a.redis = rdb
			store := redis.NewFingerprintStore(rdb, log.Named("redis"),
				redis.WithPrefix(rc.KeyPrefix), redis.WithTTL(rc.TTL))
			copts = append(copts, fingerprint.WithStore(store, rc.ReadTimeout))
		}
	}
	a.scorer = fingerprint.NewScorer(fingerprint.NewCache(copts...))

	if mc := cfg.Storage.MinIO; mc.Enabled {
		store, err := minio.NewClient(ctx, &minio.Config{
			Endpoint:  mc.Endpoint,
			AccessKey: mc.AccessKey,
			SecretKey: mc.SecretKey,
			Bucket:    mc.Bucket,
			Region:    mc.Region,
			UseSSL:    mc.UseSSL,
			Prefix:    mc.Prefix,
		}, log.Named("minio"))
		if err != nil {
			log.Warn("object storage unavailable, outputs stay local",
				logging.String("endpoint", mc.Endpoint), logging.Err(err))
		} else {
			a.store = store
		}
	}

	if cfg.Server.Addr != "" {
		if err := a.startServer(); err != nil {
			a.close(ctx)
			return nil, err
		}
	}
	return a, nil
}

func (a *app) startServer() error {
	var checkers []handlers.HealthChecker
	if a.redis != nil {
		checkers = append(checkers, handlers.NewChecker("redis", a.redis.Ping))
	}
	if a.store != nil {
		checkers = append(checkers, handlers.NewChecker("minio", a.store.HealthCheck))
	}

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Mode:             a.cfg.Server.Mode,
		HealthHandler:    handlers.NewHealthHandler(Version, checkers...),
		ProgressHandler:  handlers.NewProgressHandler(a.tracker),
		Logger:           a.logger.Named("http"),
		MetricsCollector: a.collector,
	})
	a.server = httpapi.NewServer(a.cfg.Server.Addr, router, a.cfg.Server.ShutdownTimeout, a.logger.Named("http"))
	return a.server.Start()
}

// exporter builds the output writer, publishing to object storage when it is
// connected.
func (a *app) exporter(paths reporting.Paths) *reporting.Exporter {
	opts := []reporting.ExporterOption{
		reporting.WithExportLogger(a.logger.Named("export")),
		reporting.WithExportMetrics(a.metrics),
		reporting.WithGridOptions(reporting.GridOptions{
			Limit:    a.cfg.Output.GridLimit,
			PerRow:   a.cfg.Output.GridPerRow,
			CellSize: a.cfg.Output.CellSize,
		}),
	}
	if a.store != nil {
		opts = append(opts, reporting.WithPublisher(reporting.NewPublisher(a.store,
			reporting.WithPublishLogger(a.logger.Named("publish")),
			reporting.WithPublishMetrics(a.metrics))))
	}
	return reporting.NewExporter(paths, opts...)
}

// progress starts tracking a pipeline of total items and returns the
// observer to hand to it, plus a func to call when the run ends.
func (a *app) progress(pipeline string, total int, w io.Writer, quiet bool) (mining.Progress, func()) {
	a.tracker.Start(pipeline, total)
	if quiet || total == 0 {
		return a.tracker, a.tracker.Finish
	}
	bar := newBarProgress(w, total, pipeline)
	return mining.MultiProgress(a.tracker, bar), func() {
		a.tracker.Finish()
		bar.Finish()
	}
}

// close releases every backend. Errors are logged only.
func (a *app) close(ctx context.Context) {
	if a.server != nil {
		if err := a.server.Stop(context.WithoutCancel(ctx)); err != nil {
			a.logger.Warn("status server shutdown failed", logging.Err(err))
		}
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("redis close failed", logging.Err(err))
		}
	}
	stats := a.scorer.Cache().Stats()
	a.logger.Debug("fingerprint cache stats", logging.Any("stats", stats))
}

// interrupted reports a run stopped by a signal.
func interrupted(ctx context.Context) error {
	if ctx.Err() == nil {
		return nil
	}
	return errors.Wrap(ctx.Err(), errors.ErrCodeCanceled, "run interrupted")
}
