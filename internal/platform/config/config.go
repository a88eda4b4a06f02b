package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	PostgresDSN string
	BusBrokers  []string

	RegistryAdmin string
	Treasury      string
	FeeAsset      string

	CreationFeeSplit   int64
	CreationFeeSavings int64
	CreationFeeFees    int64

	RelayInterval time.Duration
	SweepInterval time.Duration

	EnableOutboxRelay    bool
	EnableAutoDeposit    bool
	EnableLateFeeSweeper bool
}

type configFile struct {
	Service struct {
		Name     string `yaml:"name"`
		HTTPPort string `yaml:"http_port"`
	} `yaml:"service"`
	Infra struct {
		PostgresDSN string   `yaml:"postgres_dsn"`
		BusBrokers  []string `yaml:"bus_brokers"`
	} `yaml:"infra"`
	Registry struct {
		Admin string `yaml:"admin"`
	} `yaml:"registry"`
	Factory struct {
		Treasury           string `yaml:"treasury"`
		FeeAsset           string `yaml:"fee_asset"`
		CreationFeeSplit   int64  `yaml:"creation_fee_split"`
		CreationFeeSavings int64  `yaml:"creation_fee_savings"`
		CreationFeeFees    int64  `yaml:"creation_fee_fees"`
	} `yaml:"factory"`
	Workers struct {
		RelaySeconds int `yaml:"relay_seconds"`
		SweepSeconds int `yaml:"sweep_seconds"`
	} `yaml:"workers"`
}

// Load reads the optional YAML file named by TESSERA_CONFIG (default
// config.yaml), then applies env-var overrides on top.
func Load() (Config, error) {
	cfg := Config{
		ServiceName:          "tessera",
		HTTPPort:             "8080",
		BusBrokers:           []string{"localhost:9092"},
		RegistryAdmin:        "admin",
		Treasury:             "treasury",
		FeeAsset:             "usd",
		RelayInterval:        2 * time.Second,
		SweepInterval:        15 * time.Second,
		EnableOutboxRelay:    true,
		EnableAutoDeposit:    true,
		EnableLateFeeSweeper: true,
	}

	path := os.Getenv("TESSERA_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.Name != "" {
			cfg.ServiceName = f.Service.Name
		}
		if f.Service.HTTPPort != "" {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Infra.PostgresDSN != "" {
			cfg.PostgresDSN = f.Infra.PostgresDSN
		}
		if len(f.Infra.BusBrokers) > 0 {
			cfg.BusBrokers = trimNonEmpty(f.Infra.BusBrokers)
		}
		if f.Registry.Admin != "" {
			cfg.RegistryAdmin = f.Registry.Admin
		}
		if f.Factory.Treasury != "" {
			cfg.Treasury = f.Factory.Treasury
		}
		if f.Factory.FeeAsset != "" {
			cfg.FeeAsset = f.Factory.FeeAsset
		}
		if f.Factory.CreationFeeSplit > 0 {
			cfg.CreationFeeSplit = f.Factory.CreationFeeSplit
		}
		if f.Factory.CreationFeeSavings > 0 {
			cfg.CreationFeeSavings = f.Factory.CreationFeeSavings
		}
		if f.Factory.CreationFeeFees > 0 {
			cfg.CreationFeeFees = f.Factory.CreationFeeFees
		}
		if f.Workers.RelaySeconds > 0 {
			cfg.RelayInterval = time.Duration(f.Workers.RelaySeconds) * time.Second
		}
		if f.Workers.SweepSeconds > 0 {
			cfg.SweepInterval = time.Duration(f.Workers.SweepSeconds) * time.Second
		}
	}

	cfg.ServiceName = envOrDefault("SERVICE_NAME", cfg.ServiceName)
	cfg.HTTPPort = envOrDefault("HTTP_PORT", cfg.HTTPPort)
	cfg.PostgresDSN = envOrDefault("POSTGRES_DSN", cfg.PostgresDSN)
	cfg.BusBrokers = envCSV("BUS_BROKERS", cfg.BusBrokers)
	cfg.RegistryAdmin = envOrDefault("REGISTRY_ADMIN", cfg.RegistryAdmin)
	cfg.Treasury = envOrDefault("FACTORY_TREASURY", cfg.Treasury)
	cfg.FeeAsset = envOrDefault("FACTORY_FEE_ASSET", cfg.FeeAsset)
	cfg.CreationFeeSplit = envInt64("CREATION_FEE_SPLIT", cfg.CreationFeeSplit)
	cfg.CreationFeeSavings = envInt64("CREATION_FEE_SAVINGS", cfg.CreationFeeSavings)
	cfg.CreationFeeFees = envInt64("CREATION_FEE_FEES", cfg.CreationFeeFees)
	cfg.RelayInterval = time.Duration(envInt("RELAY_SECONDS", int(cfg.RelayInterval.Seconds()))) * time.Second
	cfg.SweepInterval = time.Duration(envInt("SWEEP_SECONDS", int(cfg.SweepInterval.Seconds()))) * time.Second
	cfg.EnableOutboxRelay = envBool("ENABLE_OUTBOX_RELAY", cfg.EnableOutboxRelay)
	cfg.EnableAutoDeposit = envBool("ENABLE_AUTO_DEPOSIT", cfg.EnableAutoDeposit)
	cfg.EnableLateFeeSweeper = envBool("ENABLE_LATE_FEE_SWEEPER", cfg.EnableLateFeeSweeper)

	return cfg, nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envInt64(name string, fallback int64) int64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	return trimNonEmpty(strings.Split(raw, ","))
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
