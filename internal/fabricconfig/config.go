// Package fabricconfig loads the fabric daemon's configuration from a
// file plus environment overlay, watching the file for changes,
// grounded on the pack's config loader (fsnotify watch + env overlay
// pattern) and .env convention.
package fabricconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the fabric daemon's resolved configuration (spec.md §6
// CLI/config surface).
type Config struct {
	ZID          string
	Role         string // "client", "peer-mesh", "peer-linkstate", "router"
	ListenAddrs  []string
	ConnectAddrs []string

	TxDispatchPolicy string // "Sequential", "Parallel", "Spawn"
	TxQueueCapacity  int

	MetricsAddr string
	LogLevel    string
	LogFormat   string // "json" or "console"

	ShmEnabled bool
}

// Default returns the zero-configuration baseline a daemon falls back
// to when neither a config file nor matching environment variables
// are present.
func Default() Config {
	return Config{
		Role:             "peer-mesh",
		TxDispatchPolicy: "Sequential",
		TxQueueCapacity:  256,
		MetricsAddr:      ":9090",
		LogLevel:         "info",
		LogFormat:        "console",
	}
}

// Load resolves configuration from (in ascending priority) the
// built-in Default, a .env file at envPath if present, and the
// process environment, mirroring the pack's dotenv-then-env-overlay
// convention.
func Load(envPath string) (Config, error) {
	cfg := Default()

	if envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return cfg, fmt.Errorf("load %s: %w", envPath, err)
			}
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("FABRIC_ZID"); v != "" {
		cfg.ZID = v
	}
	if v := os.Getenv("FABRIC_ROLE"); v != "" {
		cfg.Role = v
	}
	if v := os.Getenv("FABRIC_LISTEN"); v != "" {
		cfg.ListenAddrs = splitCSV(v)
	}
	if v := os.Getenv("FABRIC_CONNECT"); v != "" {
		cfg.ConnectAddrs = splitCSV(v)
	}
	if v := os.Getenv("FABRIC_TX_DISPATCH"); v != "" {
		cfg.TxDispatchPolicy = v
	}
	if v := os.Getenv("FABRIC_TX_QUEUE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TxQueueCapacity = n
		}
	}
	if v := os.Getenv("FABRIC_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("FABRIC_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("FABRIC_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("FABRIC_SHM_ENABLED"); v != "" {
		cfg.ShmEnabled = v == "1" || strings.EqualFold(v, "true")
	}
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
