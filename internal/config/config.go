// Package config defines all configuration structures for the IVR dataset
// builder.  No I/O or parsing logic lives in this file, only plain data types
// and validation.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// DatabaseConfig selects and parameterises the relational source.
type DatabaseConfig struct {
	Driver      string `mapstructure:"driver"` // "sqlite" | "pgx"
	Path        string `mapstructure:"path"`   // sqlite file path
	DSN         string `mapstructure:"dsn"`    // pgx connection string
	ReadOnly    bool   `mapstructure:"read_only"`
	BusyTimeout int    `mapstructure:"busy_timeout_ms"`
}

// PipelineConfig holds the feature selections used by the build pipeline.
type PipelineConfig struct {
	IVRFeatures        []string `mapstructure:"ivr_features"`
	CQAFeatures        []string `mapstructure:"cqa_features"`
	Descriptors        []string `mapstructure:"descriptors"`
	DescriptorSentinel string   `mapstructure:"descriptor_sentinel"` // "" means null
	MissingColumns     []string `mapstructure:"missing_columns"`
	ReleaseProfilesDir string   `mapstructure:"release_profiles_dir"`
	CheckCardinality   bool     `mapstructure:"check_cardinality"`
}

// HeatmapConfig controls the drug × method count matrix.
type HeatmapConfig struct {
	DrugColumn   string `mapstructure:"drug_column"`
	MethodColumn string `mapstructure:"method_column"`
	Pivot        bool   `mapstructure:"pivot"`
	Totals       bool   `mapstructure:"totals"`
}

// OutputConfig names every artifact, relative to Dir unless absolute.
type OutputConfig struct {
	Dir           string `mapstructure:"dir"`
	Combined      string `mapstructure:"combined"`
	Descriptors   string `mapstructure:"descriptors"`
	TimeUnits     string `mapstructure:"time_units"`
	APIPercent    string `mapstructure:"api_percent"`
	MethodPercent string `mapstructure:"method_percent"`
	Heatmap       string `mapstructure:"heatmap"`
	Missing       string `mapstructure:"missing"`
	ReleasePoints string `mapstructure:"release_points"`
	Manifest      string `mapstructure:"manifest"`
}

// Resolve joins p onto Dir unless p is absolute or empty.
func (o OutputConfig) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(o.Dir, p)
}

// MinIOConfig holds optional artifact upload parameters.
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

// StorageConfig groups object-storage backends.
type StorageConfig struct {
	MinIO MinIOConfig `mapstructure:"minio"`
}

// MetricsConfig controls the Prometheus textfile written after a run.
type MetricsConfig struct {
	Namespace    string `mapstructure:"namespace"`
	TextfilePath string `mapstructure:"textfile_path"`
}

// RedisConfig holds the optional Redis connection shared by the descriptor
// cache and the build lock.
type RedisConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Mode          string        `mapstructure:"mode"` // "standalone" | "sentinel" | "cluster"
	Addr          string        `mapstructure:"addr"`
	MasterName    string        `mapstructure:"master_name"`
	SentinelAddrs []string      `mapstructure:"sentinel_addrs"`
	ClusterAddrs  []string      `mapstructure:"cluster_addrs"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
	DB            int           `mapstructure:"db"`
	Prefix        string        `mapstructure:"prefix"`
	DialTimeout   time.Duration `mapstructure:"dial_timeout"`
	DescriptorTTL time.Duration `mapstructure:"descriptor_ttl"`
	LockTTL       time.Duration `mapstructure:"lock_ttl"`
}

// KafkaConfig holds the optional publisher of build-completed events.
type KafkaConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Brokers       []string      `mapstructure:"brokers"`
	Topic         string        `mapstructure:"topic"`
	Acks          string        `mapstructure:"acks"`        // "none" | "one" | "all"
	Compression   string        `mapstructure:"compression"` // "none" | "gzip" | "snappy" | "lz4" | "zstd"
	SASLMechanism string        `mapstructure:"sasl_mechanism"`
	SASLUsername  string        `mapstructure:"sasl_username"`
	SASLPassword  string        `mapstructure:"sasl_password"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
}

// EventsConfig groups event publishers.
type EventsConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level       string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format      string   `mapstructure:"format"` // "json" | "console"
	OutputPaths []string `mapstructure:"output_paths"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Heatmap  HeatmapConfig  `mapstructure:"heatmap"`
	Output   OutputConfig   `mapstructure:"output"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Events   EventsConfig   `mapstructure:"events"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config and
// returns the first problem found.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("config: database.path is required for driver %q", DriverSQLite)
		}
	case DriverPGX:
		if c.Database.DSN == "" {
			return fmt.Errorf("config: database.dsn is required for driver %q", DriverPGX)
		}
	default:
		return fmt.Errorf("config: database.driver %q is invalid; expected sqlite|pgx", c.Database.Driver)
	}
	if c.Database.BusyTimeout < 0 {
		return fmt.Errorf("config: database.busy_timeout_ms must be ≥ 0, got %d", c.Database.BusyTimeout)
	}

	if len(c.Pipeline.IVRFeatures) == 0 {
		return fmt.Errorf("config: pipeline.ivr_features must list at least one column")
	}
	if len(c.Pipeline.CQAFeatures) == 0 {
		return fmt.Errorf("config: pipeline.cqa_features must list at least one column")
	}

	if strings.TrimSpace(c.Heatmap.DrugColumn) == "" || strings.TrimSpace(c.Heatmap.MethodColumn) == "" {
		return fmt.Errorf("config: heatmap.drug_column and heatmap.method_column are required")
	}
	if c.Heatmap.Totals && !c.Heatmap.Pivot {
		return fmt.Errorf("config: heatmap.totals requires heatmap.pivot")
	}

	if c.Output.Dir == "" {
		return fmt.Errorf("config: output.dir is required")
	}

	if c.Storage.MinIO.Enabled {
		if c.Storage.MinIO.Endpoint == "" {
			return fmt.Errorf("config: storage.minio.endpoint is required when upload is enabled")
		}
		if c.Storage.MinIO.Bucket == "" {
			return fmt.Errorf("config: storage.minio.bucket is required when upload is enabled")
		}
	}

	if c.Redis.Enabled {
		switch c.Redis.Mode {
		case RedisStandalone:
			if c.Redis.Addr == "" {
				return fmt.Errorf("config: redis.addr is required in standalone mode")
			}
		case RedisSentinel:
			if c.Redis.MasterName == "" || len(c.Redis.SentinelAddrs) == 0 {
				return fmt.Errorf("config: redis.master_name and redis.sentinel_addrs are required in sentinel mode")
			}
		case RedisCluster:
			if len(c.Redis.ClusterAddrs) == 0 {
				return fmt.Errorf("config: redis.cluster_addrs is required in cluster mode")
			}
		default:
			return fmt.Errorf("config: redis.mode %q is invalid; expected standalone|sentinel|cluster", c.Redis.Mode)
		}
		if c.Redis.DescriptorTTL < 0 || c.Redis.LockTTL <= 0 {
			return fmt.Errorf("config: redis.descriptor_ttl must be ≥ 0 and redis.lock_ttl > 0")
		}
	}

	if k := c.Events.Kafka; k.Enabled {
		if len(k.Brokers) == 0 || k.Topic == "" {
			return fmt.Errorf("config: events.kafka.brokers and events.kafka.topic are required when events are enabled")
		}
		switch k.Acks {
		case "none", "one", "all":
		default:
			return fmt.Errorf("config: events.kafka.acks %q is invalid; expected none|one|all", k.Acks)
		}
		switch k.Compression {
		case "none", "gzip", "snappy", "lz4", "zstd":
		default:
			return fmt.Errorf("config: events.kafka.compression %q is invalid; expected none|gzip|snappy|lz4|zstd", k.Compression)
		}
		switch k.SASLMechanism {
		case "", "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512":
		default:
			return fmt.Errorf("config: events.kafka.sasl_mechanism %q is invalid; expected PLAIN|SCRAM-SHA-256|SCRAM-SHA-512", k.SASLMechanism)
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
