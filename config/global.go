package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/tonkeeper/tongo/ton"
)

// Genesis is the parsed form of the genesis sections.
type Genesis struct {
	Owner                   ton.AccountID
	Bot                     ton.AccountID
	AdvertiserFeePercentage uint32
	AffiliateFeePercentage  uint32
	MarketplaceBalance      *big.Int
	// USDTAdmin is set when a jetton minter should be deployed.
	USDTAdmin *ton.AccountID
	Wallets   map[ton.AccountID]*big.Int
}

// Genesis parses addresses and amounts into runtime values.
func (c *Config) Genesis() (*Genesis, error) {
	g := &Genesis{
		AdvertiserFeePercentage: c.Marketplace.AdvertiserFeePercentage,
		AffiliateFeePercentage:  c.Marketplace.AffiliateFeePercentage,
		Wallets:                 make(map[ton.AccountID]*big.Int, len(c.Wallets)),
	}
	var err error
	if g.Owner, err = parseAddress(c.Marketplace.Owner); err != nil {
		return nil, fmt.Errorf("invalid marketplace.Owner: %w", err)
	}
	if g.Bot, err = parseAddress(c.Marketplace.Bot); err != nil {
		return nil, fmt.Errorf("invalid marketplace.Bot: %w", err)
	}
	if g.MarketplaceBalance, err = parseUintAmount(c.Marketplace.Balance); err != nil {
		return nil, fmt.Errorf("invalid marketplace.Balance: %w", err)
	}
	if c.USDT.Enabled {
		admin := g.Owner
		if strings.TrimSpace(c.USDT.Admin) != "" {
			if admin, err = parseAddress(c.USDT.Admin); err != nil {
				return nil, fmt.Errorf("invalid usdt.Admin: %w", err)
			}
		}
		g.USDTAdmin = &admin
	}
	for i, w := range c.Wallets {
		addr, err := parseAddress(w.Address)
		if err != nil {
			return nil, fmt.Errorf("invalid wallets[%d].Address: %w", i, err)
		}
		if _, dup := g.Wallets[addr]; dup {
			return nil, fmt.Errorf("wallets[%d]: duplicate address %s", i, w.Address)
		}
		balance, err := parseUintAmount(w.Balance)
		if err != nil {
			return nil, fmt.Errorf("invalid wallets[%d].Balance: %w", i, err)
		}
		g.Wallets[addr] = balance
	}
	return g, nil
}

func parseAddress(raw string) (ton.AccountID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ton.AccountID{}, fmt.Errorf("address required")
	}
	return ton.ParseAccountID(trimmed)
}

func parseUintAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("amount %q is not an integer", raw)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("amount %q is negative", raw)
	}
	return v, nil
}
