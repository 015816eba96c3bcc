package cli

import (
	"context"
	"path/filepath"
	"time"

	"github.com/turtacn/liposome-ivr/internal/application/backend"
	"github.com/turtacn/liposome-ivr/internal/config"
	"github.com/turtacn/liposome-ivr/internal/domain/molecule"
	"github.com/turtacn/liposome-ivr/internal/infrastructure/database"
	"github.com/turtacn/liposome-ivr/internal/infrastructure/database/redis"
	"github.com/turtacn/liposome-ivr/internal/infrastructure/database/repositories"
	"github.com/turtacn/liposome-ivr/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/liposome-ivr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/liposome-ivr/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/liposome-ivr/internal/infrastructure/storage/minio"
)

// pipeline bundles everything a command needs to run the backend service.
// Close must be called on every exit path once openPipeline succeeded.
type pipeline struct {
	conn      *database.Connection
	collector prometheus.MetricsCollector
	metrics   *prometheus.PipelineMetrics
	service   backend.Service
	logger    logging.Logger
	redis     *redis.Client
	lock      *redis.Mutex
	producer  *kafka.Producer
}

// openPipeline acquires the store connection and wires the repository, the
// descriptor extractor and pipeline metrics.  Artifact upload, the Redis
// descriptor cache and build events are added when enabled.
func openPipeline(ctx context.Context, cfg *config.Config, log logging.Logger) (*pipeline, error) {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace: cfg.Metrics.Namespace,
	}, log)
	if err != nil {
		return nil, err
	}
	metrics := prometheus.NewPipelineMetrics(collector)

	extractor, err := newExtractor(cfg.Pipeline, log, backend.WithFailureHook(metrics.DescriptorFailed))
	if err != nil {
		return nil, err
	}

	conn, err := database.Open(ctx, database.OptionsFromConfig(cfg.Database), log)
	if err != nil {
		return nil, err
	}

	opts := []backend.Option{backend.WithRecorder(metrics)}
	if cfg.Storage.MinIO.Enabled {
		client, err := minio.NewMinIOClient(ctx, cfg.Storage.MinIO, log)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		opts = append(opts, backend.WithUploader(minio.NewArtifactStore(client, log)))
	}

	var rc *redis.Client
	if cfg.Redis.Enabled {
		rc, err = redis.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		opts = append(opts, backend.WithDescriptorCache(redis.NewDescriptorCache(rc, cfg.Redis.DescriptorTTL, log)))
	}

	var producer *kafka.Producer
	if cfg.Events.Kafka.Enabled {
		producer, err = kafka.NewProducer(cfg.Events.Kafka, log)
		if err != nil {
			if rc != nil {
				_ = rc.Close()
			}
			_ = conn.Close()
			return nil, err
		}
		opts = append(opts, backend.WithEventPublisher(producer))
	}

	repo := repositories.NewIVRRepository(conn, log).WithObserver(metrics)

	return &pipeline{
		conn:      conn,
		collector: collector,
		metrics:   metrics,
		service:   backend.NewService(repo, extractor, cfg, log, opts...),
		logger:    log,
		redis:     rc,
		producer:  producer,
	}, nil
}

// lockOutput takes the build lock for dir so concurrent builds cannot write
// the same artifacts.  Without Redis it does nothing.
func (p *pipeline) lockOutput(ctx context.Context, dir string, ttl time.Duration) error {
	if p.redis == nil {
		return nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	m := redis.NewMutex(p.redis, "build:"+abs, p.logger, redis.WithLockTTL(ttl), redis.WithWatchdog(0))
	if err := m.Lock(ctx); err != nil {
		return err
	}
	p.lock = m
	p.logger.Debug("Acquired build lock", logging.String("key", m.Key()))
	return nil
}

// writeMetrics dumps the pipeline metrics to path.  An empty path is a no-op.
func (p *pipeline) writeMetrics(path string) {
	if path == "" {
		return
	}
	if err := p.collector.WriteTextfile(path); err != nil {
		p.logger.Warn("Failed to write metrics textfile", logging.String("path", path), logging.Err(err))
		return
	}
	p.logger.Debug("Wrote metrics textfile", logging.String("path", path))
}

// Close releases the build lock, the Redis client, the event producer and the
// store connection.
func (p *pipeline) Close() {
	if p.lock != nil {
		if err := p.lock.Unlock(context.Background()); err != nil {
			p.logger.Warn("Failed to release build lock", logging.Err(err))
		}
	}
	if p.redis != nil {
		_ = p.redis.Close()
	}
	if p.producer != nil {
		if err := p.producer.Close(); err != nil {
			p.logger.Warn("Failed to close event producer", logging.Err(err))
		}
	}
	_ = p.conn.Close()
}

// newExtractor builds the descriptor extractor restricted to the configured
// descriptor names, in configured order.
func newExtractor(pc config.PipelineConfig, log logging.Logger, opts ...backend.ExtractorOption) (*backend.DescriptorExtractor, error) {
	registry := molecule.DefaultRegistry()
	if len(pc.Descriptors) > 0 {
		selected, err := registry.Select(pc.Descriptors)
		if err != nil {
			return nil, err
		}
		registry = selected
	}
	opts = append([]backend.ExtractorOption{backend.WithSentinel(backend.ParseSentinel(pc.DescriptorSentinel))}, opts...)
	return backend.NewDescriptorExtractor(registry, log, opts...), nil
}
