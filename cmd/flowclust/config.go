package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config mirrors the clusterer options. Zero values fall back to the
// library defaults.
type Config struct {
	Mode           string `yaml:"mode"`
	Clusters       int    `yaml:"clusters"`
	PostProcessing string `yaml:"post_processing"`
	Init           string `yaml:"init"`
	Metric         string `yaml:"metric"`
	Seed           int64  `yaml:"seed"`
	Workers        int    `yaml:"workers"`
	Special        bool   `yaml:"special"`
	MemoryLimit    int64  `yaml:"memory_limit"`

	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MetricsAddr string `yaml:"metrics_addr"`

	Cache  CacheConfig  `yaml:"cache"`
	Report ReportConfig `yaml:"report"`
}

// CacheConfig selects the distance-matrix cache backend.
type CacheConfig struct {
	// Backend is one of "", "local", "minio" or "s3". Empty disables the cache.
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Bucket      string `yaml:"bucket"`
	Prefix      string `yaml:"prefix"`
	Endpoint    string `yaml:"endpoint"`
	Region      string `yaml:"region"`
	Secure      bool   `yaml:"secure"`
	Compression string `yaml:"compression"`
	// DynamoDBTable enables the commit index.
	DynamoDBTable string `yaml:"dynamodb_table"`
	// IOLimit bounds cache throughput in bytes per second.
	IOLimit int64 `yaml:"io_limit"`
}

// ReportConfig selects the run summary sinks.
type ReportConfig struct {
	Readme string `yaml:"readme"`
	SQLite string `yaml:"sqlite"`
}

func defaultConfig() Config {
	return Config{
		Mode:           "pca",
		PostProcessing: "kmeans",
		Init:           "from-samples",
		Metric:         "euclidean",
		Seed:           1,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

var errUnknownMode = errors.New("unknown mode")

// loadConfig reads path over the defaults. An empty path returns the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Mode {
	case "pca", "direct":
	default:
		return fmt.Errorf("%w: %q", errUnknownMode, c.Mode)
	}
	switch c.Cache.Backend {
	case "", "local", "minio", "s3":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	return nil
}
