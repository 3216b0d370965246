package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds runtime configuration for the raffle client.
type Config struct {
	Network   string `toml:"network"`
	RPCURL    string `toml:"rpc_url"`
	PackageID string `toml:"package_id"`
	HouseID   string `toml:"house_id"`

	RaffleModule     string `toml:"raffle_module"`
	CurrencySymbol   string `toml:"currency_symbol"`
	CurrencyDecimals int32  `toml:"currency_decimals"`

	// MaxEventScan bounds how many events one discovery call may read.
	MaxEventScan int `toml:"max_event_scan"`
	// MaxOwnedScan bounds how many owned objects one capability scan may read.
	MaxOwnedScan int `toml:"max_owned_scan"`
	// MaxConcurrency bounds the detail fan-out; 0 means one goroutine per raffle.
	MaxConcurrency int `toml:"max_concurrency"`

	HTTPAddr      string   `toml:"http_addr"`
	WatchInterval Duration `toml:"watch_interval"`

	Redis RedisConfig `toml:"redis"`
	Kafka KafkaConfig `toml:"kafka"`
}

// RedisConfig configures the registry of discovered raffle IDs.
// An empty Addr disables the registry.
type RedisConfig struct {
	Addr        string `toml:"addr"`
	Password    string `toml:"password"`
	DB          int    `toml:"db"`
	RegistryKey string `toml:"registry_key"`
}

// KafkaConfig configures the raffle event stream.
// No brokers disables publishing.
type KafkaConfig struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

// Duration lets TOML carry values such as "15s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// NetworkDefaults returns the known deployment of the raffle contract on a
// network. Every call returns a fresh value.
func NetworkDefaults(network string) (Config, error) {
	cfg := Config{
		Network:          network,
		RaffleModule:     "raffle",
		CurrencySymbol:   "SUI",
		CurrencyDecimals: 9,
		MaxEventScan:     1000,
		MaxOwnedScan:     500,
		HTTPAddr:         ":8080",
		WatchInterval:    Duration{15 * time.Second},
		Redis:            RedisConfig{RegistryKey: "drips:raffles:known"},
		Kafka:            KafkaConfig{Topic: "raffle_events"},
	}
	switch network {
	case "testnet":
		cfg.RPCURL = "https://fullnode.testnet.sui.io:443"
		cfg.PackageID = "0xf1a54310356e2a90d896462e19ce926eae5903bce26bd4a37b7c8553b628f71d"
		cfg.HouseID = "0x33940b0b58b225b6f3673608c16acca032ceb3107aa47204ee33fa6f827b0452"
	case "mainnet":
		cfg.RPCURL = "https://fullnode.mainnet.sui.io:443"
	case "devnet":
		cfg.RPCURL = "https://fullnode.devnet.sui.io:443"
	case "localnet":
		cfg.RPCURL = "http://127.0.0.1:9000"
	default:
		return Config{}, fmt.Errorf("unknown network %q", network)
	}
	return cfg, nil
}

// envOrDefault returns the value of an env var or a default.
func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) (int, error) {
	if raw := os.Getenv(key); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return val, nil
	}

	return def, nil
}

func envDurationOrDefault(key string, def time.Duration) (time.Duration, error) {
	if raw := os.Getenv(key); raw != "" {
		val, err := time.ParseDuration(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return val, nil
	}
	return def, nil
}

func envCSVOrDefault(key string, def []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load builds the configuration for network: network defaults, then the
// TOML file at path (if any), then a .env file in the working directory
// (if present), then environment variables.
func Load(network, path string) (Config, error) {
	if network == "" {
		network = envOrDefault("DRIPS_NETWORK", "testnet")
	}
	cfg, err := NetworkDefaults(network)
	if err != nil {
		return Config{}, err
	}

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	c.RPCURL = envOrDefault("DRIPS_RPC_URL", c.RPCURL)
	c.PackageID = envOrDefault("DRIPS_PACKAGE_ID", c.PackageID)
	c.HouseID = envOrDefault("DRIPS_HOUSE_ID", c.HouseID)
	c.RaffleModule = envOrDefault("DRIPS_RAFFLE_MODULE", c.RaffleModule)
	c.HTTPAddr = envOrDefault("DRIPS_HTTP_ADDR", c.HTTPAddr)

	var err error
	if c.MaxEventScan, err = envIntOrDefault("DRIPS_MAX_EVENT_SCAN", c.MaxEventScan); err != nil {
		return err
	}
	if c.MaxOwnedScan, err = envIntOrDefault("DRIPS_MAX_OWNED_SCAN", c.MaxOwnedScan); err != nil {
		return err
	}
	if c.MaxConcurrency, err = envIntOrDefault("DRIPS_MAX_CONCURRENCY", c.MaxConcurrency); err != nil {
		return err
	}
	if c.WatchInterval.Duration, err = envDurationOrDefault("DRIPS_WATCH_INTERVAL", c.WatchInterval.Duration); err != nil {
		return err
	}

	c.Redis.Addr = envOrDefault("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = envOrDefault("REDIS_PASSWORD", c.Redis.Password)
	if c.Redis.DB, err = envIntOrDefault("REDIS_DB", c.Redis.DB); err != nil {
		return err
	}
	c.Redis.RegistryKey = envOrDefault("REDIS_REGISTRY_KEY", c.Redis.RegistryKey)

	c.Kafka.Brokers = envCSVOrDefault("KAFKA_BROKERS", c.Kafka.Brokers)
	c.Kafka.Topic = envOrDefault("KAFKA_TOPIC_RAFFLE_EVENTS", c.Kafka.Topic)
	return nil
}

// Validate reports configuration that would make every ledger query fail.
func (c Config) Validate() error {
	switch {
	case c.RPCURL == "":
		return fmt.Errorf("rpc url not set for network %q", c.Network)
	case c.PackageID == "":
		return fmt.Errorf("package id not available for network %q", c.Network)
	case c.HouseID == "":
		return fmt.Errorf("house id not available for network %q", c.Network)
	case c.RaffleModule == "":
		return errors.New("raffle module not set")
	case c.CurrencyDecimals < 0:
		return fmt.Errorf("invalid currency decimals %d", c.CurrencyDecimals)
	}
	return nil
}
