// Package config loads the catalogue command configuration.
//
// Values come from, in increasing priority: built-in defaults, a YAML file,
// .env files, and the process environment. Command-line flags are applied
// on top by the caller.
//
// .env files are loaded before the environment is read:
//
//  1. ENV_FILE, if set, is the only file loaded.
//  2. Otherwise .env.local and then .env are loaded if they exist.
//
// Variables already present in the environment are never overwritten.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/3vilTid/Catalogue-Web-App/internal/kv/rediskv"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendDisk   = "disk"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendGCS    = "gcs"
	BackendS3     = "s3"
)

var backends = []string{BackendSQLite, BackendDisk, BackendMemory, BackendRedis, BackendGCS, BackendS3}

// Config is the full command configuration.
type Config struct {
	// Origin is the URL of the application shell being served.
	Origin string `yaml:"origin" env:"CATALOGUE_ORIGIN"`
	// Listen is the address serve binds to.
	Listen string `yaml:"listen" env:"CATALOGUE_LISTEN"`
	// Verbose enables development logging.
	Verbose bool `yaml:"verbose" env:"CATALOGUE_VERBOSE"`

	RPC     RPCConfig     `yaml:"rpc" envPrefix:"CATALOGUE_RPC_"`
	Store   StoreConfig   `yaml:"store" envPrefix:"CATALOGUE_STORE_"`
	Cache   CacheConfig   `yaml:"cache" envPrefix:"CATALOGUE_CACHE_"`
	Network NetworkConfig `yaml:"network" envPrefix:"CATALOGUE_NETWORK_"`
}

// RPCConfig configures the backend endpoint.
type RPCConfig struct {
	URL         string        `yaml:"url" env:"URL"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
	AppDataCall string        `yaml:"app_data_call" env:"APP_DATA_CALL"`
	TabDataCall string        `yaml:"tab_data_call" env:"TAB_DATA_CALL"`
}

// StoreConfig selects and configures the structured store backend.
type StoreConfig struct {
	Backend string `yaml:"backend" env:"BACKEND"`
	// Path is the sqlite file or disk directory.
	Path string `yaml:"path" env:"PATH"`
	// Codec compresses disk, gcs and s3 records: zstd, gzip or none.
	Codec string `yaml:"codec" env:"CODEC"`
	// CacheSize enables an in-memory LRU of this many records when > 0.
	CacheSize int `yaml:"cache_size" env:"CACHE_SIZE"`

	Bucket   string `yaml:"bucket" env:"BUCKET"`
	Prefix   string `yaml:"prefix" env:"PREFIX"`
	Region   string `yaml:"region" env:"REGION"`
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`

	Redis rediskv.Config `yaml:"redis"`
}

// CacheConfig configures the interception layer.
type CacheConfig struct {
	// Dir holds the cache partitions. Empty keeps them in memory.
	Dir          string   `yaml:"dir" env:"DIR"`
	Manifest     string   `yaml:"manifest" env:"MANIFEST"`
	Version      int      `yaml:"version" env:"VERSION"`
	DataHosts    []string `yaml:"data_hosts" env:"DATA_HOSTS" envSeparator:","`
	ImageParam   string   `yaml:"image_param" env:"IMAGE_PARAM"`
	Strategy     string   `yaml:"strategy" env:"STRATEGY"`
	AutoActivate bool     `yaml:"auto_activate" env:"AUTO_ACTIVATE"`
}

// NetworkConfig configures connectivity probing.
type NetworkConfig struct {
	ProbeURL      string        `yaml:"probe_url" env:"PROBE_URL"`
	ProbeInterval time.Duration `yaml:"probe_interval" env:"PROBE_INTERVAL"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen: "127.0.0.1:8080",
		RPC: RPCConfig{
			Timeout:     30 * time.Second,
			AppDataCall: "getAppData",
			TabDataCall: "getTabData",
		},
		Store: StoreConfig{
			Backend: BackendSQLite,
			Path:    "catalogue.db",
			Codec:   "zstd",
		},
		Cache: CacheConfig{
			Strategy:     "network-first",
			ImageParam:   "img",
			AutoActivate: true,
		},
		Network: NetworkConfig{
			ProbeInterval: 15 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is not empty), .env files and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("load environment files: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// Validate checks the configuration for values no command can use.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains(backends, c.Store.Backend) {
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend))
	}
	switch c.Store.Backend {
	case BackendSQLite, BackendDisk:
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store.path: required for %s", c.Store.Backend))
		}
	case BackendGCS, BackendS3:
		if c.Store.Bucket == "" {
			errs = append(errs, fmt.Errorf("store.bucket: required for %s", c.Store.Backend))
		}
	case BackendRedis:
		if c.Store.Redis.Address == "" {
			errs = append(errs, errors.New("store.redis.address: required for redis"))
		}
	}

	if c.Origin != "" {
		if u, err := url.Parse(c.Origin); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("origin: %q is not an absolute URL", c.Origin))
		}
	}
	if c.RPC.Timeout < 0 {
		errs = append(errs, errors.New("rpc.timeout: must not be negative"))
	}
	if c.Cache.Version < 0 {
		errs = append(errs, errors.New("cache.version: must not be negative"))
	}
	if c.Network.ProbeInterval < 0 {
		errs = append(errs, errors.New("network.probe_interval: must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// OriginURL parses Origin. It returns nil when Origin is empty.
func (c *Config) OriginURL() (*url.URL, error) {
	if c.Origin == "" {
		return nil, nil
	}
	return url.Parse(c.Origin)
}
