package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DriverSQLite = "sqlite"
	DriverPGX    = "pgx"

	DefaultDBDriver        = DriverSQLite
	DefaultDBPath          = "data/liposome_IVR.db"
	DefaultDBBusyTimeoutMS = 10000

	DefaultDrugColumn   = "API_name"
	DefaultMethodColumn = "release_method"

	DefaultOutputDir      = "data"
	DefaultCombined       = "unprocessed/backend_data.csv"
	DefaultDescriptorsCSV = "processed/mol_descriptors.csv"
	DefaultTimeUnits      = "time_units.csv"
	DefaultAPIPercent     = "processed/API_percent.csv"
	DefaultMethodPercent  = "processed/method_percent.csv"
	DefaultHeatmap        = "processed/heatmap_counts.csv"
	DefaultMissing        = "processed/missing_data.csv"
	DefaultReleasePoints  = "processed/release_points.csv"
	DefaultManifest       = "manifest.yaml"

	DefaultMinIORegion = "us-east-1"
	DefaultMinIOPrefix = "ivr"

	RedisStandalone = "standalone"
	RedisSentinel   = "sentinel"
	RedisCluster    = "cluster"

	DefaultRedisMode          = RedisStandalone
	DefaultRedisPrefix        = "ivrdata:"
	DefaultRedisDialTimeout   = 5 * time.Second
	DefaultRedisDescriptorTTL = 7 * 24 * time.Hour
	DefaultRedisLockTTL       = 10 * time.Minute

	DefaultKafkaTopic        = "ivr.dataset.built"
	DefaultKafkaAcks         = "all"
	DefaultKafkaCompression  = "none"
	DefaultKafkaWriteTimeout = 10 * time.Second

	DefaultMetricsNamespace = "ivrdata"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

// DefaultIVRFeatures are the experiment-level columns of the combined table.
var DefaultIVRFeatures = []string{"IVR.ID", "release_method", "media_pH", "media_temp_oC", "media_volume_mL"}

// DefaultCQAFeatures are the quality-attribute columns of the combined table.
var DefaultCQAFeatures = []string{"drug_loading", "structure_type", "Z_average_nm", "PDI", "zeta_potential"}

// DefaultDescriptors are the descriptor columns kept in the descriptor table.
var DefaultDescriptors = []string{"MolWt", "TPSA", "NumHAcceptors", "NumHDonors", "NumRotatableBonds", "MolLogP"}

// DefaultMissingColumns are the numeric columns profiled for missing values.
var DefaultMissingColumns = []string{"media_pH", "media_temp_oC", "media_volume_mL", "drug_loading", "Z_average_nm", "PDI", "zeta_potential"}

// ApplyDefaults fills every zero-value field in cfg with its default.  Fields
// already set are left unchanged so that explicit configuration always wins.
//
// Boolean switches whose default is true (read_only, heatmap pivot/totals,
// check_cardinality) are defaulted by the loader through viper.SetDefault,
// since false is indistinguishable from "unset" here.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DefaultDBDriver
	}
	if cfg.Database.Driver == DriverSQLite && cfg.Database.Path == "" {
		cfg.Database.Path = DefaultDBPath
	}
	if cfg.Database.BusyTimeout == 0 {
		cfg.Database.BusyTimeout = DefaultDBBusyTimeoutMS
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	if len(cfg.Pipeline.IVRFeatures) == 0 {
		cfg.Pipeline.IVRFeatures = append([]string(nil), DefaultIVRFeatures...)
	}
	if len(cfg.Pipeline.CQAFeatures) == 0 {
		cfg.Pipeline.CQAFeatures = append([]string(nil), DefaultCQAFeatures...)
	}
	if len(cfg.Pipeline.Descriptors) == 0 {
		cfg.Pipeline.Descriptors = append([]string(nil), DefaultDescriptors...)
	}
	if len(cfg.Pipeline.MissingColumns) == 0 {
		cfg.Pipeline.MissingColumns = append([]string(nil), DefaultMissingColumns...)
	}

	// ── Heatmap ───────────────────────────────────────────────────────────────
	if cfg.Heatmap.DrugColumn == "" {
		cfg.Heatmap.DrugColumn = DefaultDrugColumn
	}
	if cfg.Heatmap.MethodColumn == "" {
		cfg.Heatmap.MethodColumn = DefaultMethodColumn
	}

	// ── Output ────────────────────────────────────────────────────────────────
	o := &cfg.Output
	if o.Dir == "" {
		o.Dir = DefaultOutputDir
	}
	setIfEmpty(&o.Combined, DefaultCombined)
	setIfEmpty(&o.Descriptors, DefaultDescriptorsCSV)
	setIfEmpty(&o.TimeUnits, DefaultTimeUnits)
	setIfEmpty(&o.APIPercent, DefaultAPIPercent)
	setIfEmpty(&o.MethodPercent, DefaultMethodPercent)
	setIfEmpty(&o.Heatmap, DefaultHeatmap)
	setIfEmpty(&o.Missing, DefaultMissing)
	setIfEmpty(&o.ReleasePoints, DefaultReleasePoints)
	setIfEmpty(&o.Manifest, DefaultManifest)

	// ── Storage ───────────────────────────────────────────────────────────────
	setIfEmpty(&cfg.Storage.MinIO.Region, DefaultMinIORegion)
	setIfEmpty(&cfg.Storage.MinIO.Prefix, DefaultMinIOPrefix)

	// ── Redis ─────────────────────────────────────────────────────────────────
	r := &cfg.Redis
	setIfEmpty(&r.Mode, DefaultRedisMode)
	setIfEmpty(&r.Prefix, DefaultRedisPrefix)
	if r.DialTimeout == 0 {
		r.DialTimeout = DefaultRedisDialTimeout
	}
	if r.DescriptorTTL == 0 {
		r.DescriptorTTL = DefaultRedisDescriptorTTL
	}
	if r.LockTTL == 0 {
		r.LockTTL = DefaultRedisLockTTL
	}

	// ── Events ────────────────────────────────────────────────────────────────
	k := &cfg.Events.Kafka
	setIfEmpty(&k.Topic, DefaultKafkaTopic)
	setIfEmpty(&k.Acks, DefaultKafkaAcks)
	setIfEmpty(&k.Compression, DefaultKafkaCompression)
	if k.WriteTimeout == 0 {
		k.WriteTimeout = DefaultKafkaWriteTimeout
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	setIfEmpty(&cfg.Metrics.Namespace, DefaultMetricsNamespace)

	// ── Log ───────────────────────────────────────────────────────────────────
	setIfEmpty(&cfg.Log.Level, DefaultLogLevel)
	setIfEmpty(&cfg.Log.Format, DefaultLogFormat)
}

func setIfEmpty(dst *string, val string) {
	if *dst == "" {
		*dst = val
	}
}

// NewDefaultConfig returns a Config populated entirely from defaults.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Database.ReadOnly = true
	cfg.Heatmap.Pivot = true
	cfg.Heatmap.Totals = true
	cfg.Pipeline.CheckCardinality = true
	ApplyDefaults(cfg)
	return cfg
}
