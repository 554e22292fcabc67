package config

import (
	"fmt"

	"tonaffiliate/native/fees"
)

// Validate checks the configuration before the node builds anything from
// it.
func Validate(cfg *Config) error {
	switch cfg.Log.Format {
	case LogFormatJSON, LogFormatConsole:
	default:
		return fmt.Errorf("log: unknown format %q", cfg.Log.Format)
	}
	if err := fees.ValidatePercentages(cfg.Marketplace.AdvertiserFeePercentage, cfg.Marketplace.AffiliateFeePercentage); err != nil {
		return fmt.Errorf("marketplace: %w", err)
	}
	if _, err := cfg.Genesis(); err != nil {
		return err
	}
	if cfg.Relay.DB < 0 {
		return fmt.Errorf("relay: DB must be >= 0")
	}
	return nil
}
