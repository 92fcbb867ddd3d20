// Package config loads the CLI driver's TOML configuration: tree
// geometry, endpoint and codec selection, and build tuning. Loading
// stays confined to cmd/lodtree; the core and storage engine never
// import this package, only the concrete values it produces.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Structure mirrors geom.NewStructure's parameters as plain TOML
// fields, so a config file can describe tree geometry without
// importing internal/geom.
type Structure struct {
	Dimensions        int    `toml:"dimensions"`
	Factor            uint64 `toml:"factor"`
	NominalChunkDepth int    `toml:"nominal_chunk_depth"`
	ColdDepthBegin    int    `toml:"cold_depth_begin"`
	SparseDepthBegin  int    `toml:"sparse_depth_begin"`
	BaseChunkPoints   uint64 `toml:"base_chunk_points"`
}

// Endpoint selects and configures one durable storage backend. Only
// the fields relevant to Kind are consulted.
type Endpoint struct {
	Kind   string `toml:"kind"` // "local", "s3", or "redis"
	Dir    string `toml:"dir"`
	Bucket string `toml:"bucket"`
	Addr   string `toml:"addr"`
	Prefix string `toml:"prefix"`
}

// Codec selects the chunk compression codec.
type Codec struct {
	Kind  string `toml:"kind"` // "gzip" or "snappy"
	Level int    `toml:"level"`
}

// Config is the full CLI configuration, decoded from one TOML file.
type Config struct {
	Structure Structure `toml:"structure"`
	Endpoint  Endpoint  `toml:"endpoint"`
	Codec     Codec     `toml:"codec"`
	Workers   int       `toml:"workers"`
	CacheSize int       `toml:"cache_size"`
}

// Default returns a Config with the conservative defaults used when a
// config file omits a section entirely.
func Default() Config {
	return Config{
		Structure: Structure{
			Dimensions:        3,
			Factor:            8,
			NominalChunkDepth: 6,
			ColdDepthBegin:    6,
			SparseDepthBegin:  0,
			BaseChunkPoints:   1 << 20,
		},
		Endpoint:  Endpoint{Kind: "local", Dir: "./tree"},
		Codec:     Codec{Kind: "snappy"},
		Workers:   4,
		CacheSize: 256,
	}
}

// Load decodes path into a Config seeded with Default, so a file only
// needs to override what it cares about.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values Load's caller would otherwise only discover
// when construction of the real components fails deep in the build.
func (c Config) Validate() error {
	switch c.Endpoint.Kind {
	case "local", "s3", "redis":
	default:
		return fmt.Errorf("config: unknown endpoint kind %q", c.Endpoint.Kind)
	}
	switch c.Codec.Kind {
	case "gzip", "snappy":
	default:
		return fmt.Errorf("config: unknown codec kind %q", c.Codec.Kind)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("config: workers must be positive, got %d", c.Workers)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("config: cache_size must be positive, got %d", c.CacheSize)
	}
	return nil
}
