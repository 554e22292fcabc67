package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	DataDir     string      `toml:"DataDir"`
	RPCAddress  string      `toml:"RPCAddress"`
	Log         Log         `toml:"log"`
	Marketplace Marketplace `toml:"marketplace"`
	USDT        USDT        `toml:"usdt"`
	Relay       Relay       `toml:"relay"`
	Wallets     []Wallet    `toml:"wallets"`
}

// Load loads the configuration from the given path. A missing file is
// replaced by a default devnet configuration written to path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./affiliate-data"
	}
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8080"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = LogFormatJSON
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Env == "" {
		cfg.Log.Env = "dev"
	}
	if cfg.Marketplace.Balance == "" {
		cfg.Marketplace.Balance = "1000000000"
	}
	if cfg.Relay.Channel == "" {
		cfg.Relay.Channel = "affiliate-events"
	}
	if cfg.Wallets == nil {
		cfg.Wallets = []Wallet{}
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		Marketplace: Marketplace{
			Owner:                   devnetOwner,
			Bot:                     devnetBot,
			AdvertiserFeePercentage: 100,
			AffiliateFeePercentage:  100,
		},
		Wallets: []Wallet{
			{Address: devnetOwner, Balance: "100000000000"},
			{Address: devnetBot, Balance: "10000000000"},
		},
	}
	applyDefaults(cfg)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
