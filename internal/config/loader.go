package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "IVR"

// SearchPaths lists the files tried by Discover, in order.
var SearchPaths = []string{
	"./ivrdata.yaml",
	"~/.ivrdata/config.yaml",
	"/etc/ivrdata/config.yaml",
}

// newViper builds a Viper instance with YAML file type, the IVR_ env prefix
// and a key replacer mapping "." → "_" so that "database.path" resolves to
// IVR_DATABASE_PATH.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerKeys(v)
	return v
}

// registerKeys makes every key known to viper so that AutomaticEnv can bind
// it during Unmarshal, and seeds the boolean switches that default to true.
func registerKeys(v *viper.Viper) {
	v.SetDefault("database.driver", "")
	v.SetDefault("database.path", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.read_only", true)
	v.SetDefault("database.busy_timeout_ms", 0)

	v.SetDefault("pipeline.ivr_features", []string{})
	v.SetDefault("pipeline.cqa_features", []string{})
	v.SetDefault("pipeline.descriptors", []string{})
	v.SetDefault("pipeline.descriptor_sentinel", "")
	v.SetDefault("pipeline.missing_columns", []string{})
	v.SetDefault("pipeline.release_profiles_dir", "")
	v.SetDefault("pipeline.check_cardinality", true)

	v.SetDefault("heatmap.drug_column", "")
	v.SetDefault("heatmap.method_column", "")
	v.SetDefault("heatmap.pivot", true)
	v.SetDefault("heatmap.totals", true)

	for _, k := range []string{"dir", "combined", "descriptors", "time_units", "api_percent",
		"method_percent", "heatmap", "missing", "release_points", "manifest"} {
		v.SetDefault("output."+k, "")
	}

	v.SetDefault("storage.minio.enabled", false)
	for _, k := range []string{"endpoint", "access_key", "secret_key", "bucket", "region", "prefix"} {
		v.SetDefault("storage.minio."+k, "")
	}
	v.SetDefault("storage.minio.use_ssl", false)

	v.SetDefault("redis.enabled", false)
	for _, k := range []string{"mode", "addr", "master_name", "username", "password", "prefix"} {
		v.SetDefault("redis."+k, "")
	}
	v.SetDefault("redis.sentinel_addrs", []string{})
	v.SetDefault("redis.cluster_addrs", []string{})
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.dial_timeout", "0s")
	v.SetDefault("redis.descriptor_ttl", "0s")
	v.SetDefault("redis.lock_ttl", "0s")

	v.SetDefault("events.kafka.enabled", false)
	v.SetDefault("events.kafka.brokers", []string{})
	for _, k := range []string{"topic", "acks", "compression", "sasl_mechanism", "sasl_username", "sasl_password"} {
		v.SetDefault("events.kafka."+k, "")
	}
	v.SetDefault("events.kafka.write_timeout", "0s")

	v.SetDefault("metrics.namespace", "")
	v.SetDefault("metrics.textfile_path", "")

	v.SetDefault("log.level", "")
	v.SetDefault("log.format", "")
	v.SetDefault("log.output_paths", []string{})
}

// Load reads the YAML file at configPath, merges IVR_* environment overrides,
// applies defaults for unset fields and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from IVR_* environment variables and defaults
// only.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// Discover loads configPath when given.  Otherwise it tries SearchPaths and
// falls back to LoadFromEnv when none of them exists.  The returned string is
// the file actually used ("" for env/defaults).
func Discover(configPath string) (*Config, string, error) {
	if configPath != "" {
		cfg, err := Load(configPath)
		return cfg, configPath, err
	}
	for _, p := range SearchPaths {
		p = expandHome(p)
		if _, err := os.Stat(p); err == nil {
			cfg, err := Load(p)
			return cfg, p, err
		}
	}
	cfg, err := LoadFromEnv()
	return cfg, "", err
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}

// unmarshalAndFinalize unmarshals viper state into a Config struct, applies
// defaults, and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// MustLoad is a convenience wrapper around Load that panics on any error.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
