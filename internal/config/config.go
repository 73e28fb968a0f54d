// Package config loads the daemon's configuration from defaults, an
// optional YAML overlay file, environment variables, and command-line
// flags, in that increasing order of precedence.
//
// Grounded on stratastor-rodent's config.LoadConfig (defaults seeded first,
// then overlaid by a config file, generalized here from viper's implicit
// merge to an explicit three-stage overlay: YAML file, then NASINDEX_*
// environment variables, then spf13/pflag flags, whose own defaults are
// pre-seeded with the result of the first two stages so an unset flag never
// clobbers a value the file or environment already provided). DESIGN.md
// records why this package uses pflag + gopkg.in/yaml.v2 directly instead
// of pulling in spf13/viper the way dittofs and rodent do.
package config

import (
	"os"
	"strconv"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v2"

	"github.com/nasindex/nasindex/internal/nerrors"
)

// Config holds every key the specification enumerates, plus the derived
// paths the daemon needs to wire its components together.
type Config struct {
	NASMountPath string `yaml:"nas_mount_path"` // legacy; unused in SMB-only mode

	AuthToken string `yaml:"auth_token"`

	DatabasePath string `yaml:"database_path"`
	CachePath    string `yaml:"cache_path"`

	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	SSLCertPath string `yaml:"ssl_cert_path"`
	SSLKeyPath  string `yaml:"ssl_key_path"`

	ScanBatchSize     int `yaml:"scan_batch_size"`
	MaxTextExtractMB  int `yaml:"max_text_extract_mb"`
	MaxTextStoreKB    int `yaml:"max_text_store_kb"`
	HashSampleSizeKB  int `yaml:"hash_sample_size_kb"`
	EnrichmentWorkers int `yaml:"enrichment_workers"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
}

// DefaultAuthToken disables auth when configured, the specification's
// documented dev-mode bypass value.
const DefaultAuthToken = "change-me-to-a-secure-token"

// Defaults returns the specification's documented defaults.
func Defaults() Config {
	return Config{
		AuthToken:         DefaultAuthToken,
		DatabasePath:      "nasindex.db",
		CachePath:         ".",
		Host:              "0.0.0.0",
		Port:              8080,
		ScanBatchSize:     1000,
		MaxTextExtractMB:  100,
		MaxTextStoreKB:    50,
		HashSampleSizeKB:  64,
		EnrichmentWorkers: 4,
		LogLevel:          "info",
		LogJSON:           false,
	}
}

// envOverrides applies NASINDEX_<KEY> environment variables over cfg,
// mirroring the enumerated key names in spec §6.
func envOverrides(cfg *Config) {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv("NASINDEX_" + key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv("NASINDEX_" + key); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := os.LookupEnv("NASINDEX_" + key); ok {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	str("AUTH_TOKEN", &cfg.AuthToken)
	str("DATABASE_PATH", &cfg.DatabasePath)
	str("CACHE_PATH", &cfg.CachePath)
	str("HOST", &cfg.Host)
	num("PORT", &cfg.Port)
	str("SSL_CERT_PATH", &cfg.SSLCertPath)
	str("SSL_KEY_PATH", &cfg.SSLKeyPath)
	num("SCAN_BATCH_SIZE", &cfg.ScanBatchSize)
	num("MAX_TEXT_EXTRACT_MB", &cfg.MaxTextExtractMB)
	num("MAX_TEXT_STORE_KB", &cfg.MaxTextStoreKB)
	num("HASH_SAMPLE_SIZE_KB", &cfg.HashSampleSizeKB)
	num("ENRICHMENT_WORKERS", &cfg.EnrichmentWorkers)
	str("LOG_LEVEL", &cfg.LogLevel)
	boolean("LOG_JSON", &cfg.LogJSON)
}

// loadYAMLOverlay reads path (if non-empty) and overlays its keys onto cfg.
// A missing path is not an error when path was never requested; an explicit
// path that cannot be read or parsed is.
func loadYAMLOverlay(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nerrors.Wrap(nerrors.EInvalidConfig, "read config file", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nerrors.Wrap(nerrors.EInvalidConfig, "parse config file", err)
	}
	return nil
}

// Load builds a Config from defaults, an optional --config YAML overlay,
// NASINDEX_* environment variables, and finally the flags in args, in that
// increasing order of precedence. args should be the process's argument
// list excluding argv[0].
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("nasindexd", pflag.ContinueOnError)

	var configFile string
	fs.StringVar(&configFile, "config", "", "path to an optional YAML configuration overlay")
	// A first pass extracts only --config, tolerating every other flag,
	// so the overlay is loaded before the real flag defaults are seeded.
	preScan := pflag.NewFlagSet("nasindexd-prescan", pflag.ContinueOnError)
	preScan.ParseErrorsWhitelist.UnknownFlags = true
	preScan.StringVar(&configFile, "config", "", "")
	_ = preScan.Parse(args)

	cfg := Defaults()
	if err := loadYAMLOverlay(&cfg, configFile); err != nil {
		return nil, err
	}
	envOverrides(&cfg)

	fs.StringVar(&cfg.AuthToken, "auth-token", cfg.AuthToken, "bearer token for the HTTP surface")
	fs.StringVar(&cfg.DatabasePath, "database-path", cfg.DatabasePath, "catalog database file path")
	fs.StringVar(&cfg.CachePath, "cache-path", cfg.CachePath, "directory for the source list, encryption key, and temp downloads")
	fs.StringVar(&cfg.Host, "host", cfg.Host, "HTTP listen host")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP listen port")
	fs.StringVar(&cfg.SSLCertPath, "ssl-cert-path", cfg.SSLCertPath, "optional TLS certificate path")
	fs.StringVar(&cfg.SSLKeyPath, "ssl-key-path", cfg.SSLKeyPath, "optional TLS key path")
	fs.IntVar(&cfg.ScanBatchSize, "scan-batch-size", cfg.ScanBatchSize, "Phase 1 flush size")
	fs.IntVar(&cfg.MaxTextExtractMB, "max-text-extract-mb", cfg.MaxTextExtractMB, "text extraction size ceiling, in MB")
	fs.IntVar(&cfg.MaxTextStoreKB, "max-text-store-kb", cfg.MaxTextStoreKB, "stored full_text truncation, in KB")
	fs.IntVar(&cfg.HashSampleSizeKB, "hash-sample-size-kb", cfg.HashSampleSizeKB, "content fingerprint head/tail sample size, in KB")
	fs.IntVar(&cfg.EnrichmentWorkers, "enrichment-workers", cfg.EnrichmentWorkers, "Phase 2 worker pool width")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "logrus level name")
	fs.BoolVar(&cfg.LogJSON, "log-json", cfg.LogJSON, "emit JSON logs instead of text")

	if err := fs.Parse(args); err != nil {
		return nil, nerrors.Wrap(nerrors.EInvalidConfig, "parse flags", err)
	}

	if cfg.EnrichmentWorkers < 1 {
		return nil, nerrors.New(nerrors.EInvalidConfig, "enrichment-workers must be at least 1")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, nerrors.New(nerrors.EInvalidConfig, "port out of range")
	}

	return &cfg, nil
}

// DevModeAuth reports whether AuthToken is the well-known default, disabling
// the auth guard per the specification's dev-mode bypass.
func (c *Config) DevModeAuth() bool {
	return c.AuthToken == DefaultAuthToken
}
