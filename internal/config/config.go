// Package config loads runtime configuration via spf13/viper. Per spec §1
// Non-goals, the env-loading design itself is out of scope; this is the
// thin ambient loader the cmd/* entrypoints need to start a Runtime, in
// the style of the teacher's flag/env-driven cmd/*/main.go exercises.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level process configuration.
type Config struct {
	DatabaseURL string
	RedisURL    string
	HTTPAddr    string
	MetricsAddr string
	Dev         bool
	Networks    []string
}

// Load reads configuration from environment variables (BUGCHAIN_ prefix)
// with sane defaults, the same viper.AutomaticEnv idiom the rest of the
// corpus uses for CLI config.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("bugchain")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("database_url", "postgres://localhost:5432/bugchainindexer")
	v.SetDefault("redis_url", "")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("dev", false)
	v.SetDefault("networks", "ethereum,optimism,bsc,polygon,arbitrum,base,avalanche")

	networks := strings.Split(v.GetString("networks"), ",")
	for i := range networks {
		networks[i] = strings.TrimSpace(networks[i])
	}

	return Config{
		DatabaseURL: v.GetString("database_url"),
		RedisURL:    v.GetString("redis_url"),
		HTTPAddr:    v.GetString("http_addr"),
		MetricsAddr: v.GetString("metrics_addr"),
		Dev:         v.GetBool("dev"),
		Networks:    networks,
	}, nil
}
