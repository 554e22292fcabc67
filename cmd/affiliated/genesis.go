package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/tonkeeper/tongo/ton"

	"tonaffiliate/config"
	"tonaffiliate/core/ledger"
	"tonaffiliate/core/wire"
	"tonaffiliate/native/jetton"
	"tonaffiliate/native/marketplace"
)

// chain is the set of well-known accounts a node serves.
type chain struct {
	marketplace ton.AccountID
	minter      *ton.AccountID
}

// resolveChain derives the genesis addresses from configuration. They are
// pure functions of the config so a restarted node finds the same accounts.
func resolveChain(g *config.Genesis) (*chain, error) {
	init, err := marketplace.StateInit(g.Owner, g.Bot, g.AdvertiserFeePercentage, g.AffiliateFeePercentage)
	if err != nil {
		return nil, fmt.Errorf("marketplace state init: %w", err)
	}
	addr, err := init.Address()
	if err != nil {
		return nil, err
	}
	c := &chain{marketplace: addr}
	if g.USDTAdmin != nil {
		minterInit, err := jetton.MinterStateInit(*g.USDTAdmin, jetton.WalletCode)
		if err != nil {
			return nil, fmt.Errorf("jetton minter state init: %w", err)
		}
		minter, err := minterInit.Address()
		if err != nil {
			return nil, err
		}
		c.minter = &minter
	}
	return c, nil
}

// bootstrap creates the genesis accounts on an empty ledger: the configured
// wallets, the marketplace and, when enabled, a jetton minter that the
// marketplace owner then registers as the USDT master.
func bootstrap(ctx context.Context, l *ledger.Ledger, g *config.Genesis, logger *slog.Logger) (*chain, error) {
	for addr, balance := range g.Wallets {
		if err := l.CreateWallet(addr, balance); err != nil {
			return nil, fmt.Errorf("genesis wallet %s: %w", addr.ToRaw(), err)
		}
	}
	for _, role := range []ton.AccountID{g.Owner, g.Bot} {
		if !l.Exists(role) {
			if err := l.CreateWallet(role, new(big.Int)); err != nil {
				return nil, err
			}
		}
	}

	init, err := marketplace.StateInit(g.Owner, g.Bot, g.AdvertiserFeePercentage, g.AffiliateFeePercentage)
	if err != nil {
		return nil, err
	}
	mpAddr, err := l.Genesis(init, g.MarketplaceBalance)
	if err != nil {
		return nil, fmt.Errorf("genesis marketplace: %w", err)
	}
	c := &chain{marketplace: mpAddr}
	logger.Info("marketplace created", slog.String("address", mpAddr.ToRaw()))

	if g.USDTAdmin == nil {
		return c, nil
	}
	if !l.Exists(*g.USDTAdmin) {
		if err := l.CreateWallet(*g.USDTAdmin, new(big.Int)); err != nil {
			return nil, err
		}
	}
	minterInit, err := jetton.MinterStateInit(*g.USDTAdmin, jetton.WalletCode)
	if err != nil {
		return nil, err
	}
	minter, err := l.Genesis(minterInit, new(big.Int))
	if err != nil {
		return nil, fmt.Errorf("genesis jetton minter: %w", err)
	}
	c.minter = &minter

	msg, err := ledger.NewMessage(mpAddr, new(big.Int), &wire.AdminSetUSDTConfig{Master: minter, WalletCode: jetton.WalletCode})
	if err != nil {
		return nil, err
	}
	msg.From = g.Owner
	if err := l.Submit(msg); err != nil {
		return nil, fmt.Errorf("configure usdt: %w", err)
	}
	if err := l.Run(ctx); err != nil {
		return nil, err
	}
	if receipts := l.Receipts(); len(receipts) > 0 {
		if last := receipts[len(receipts)-1]; last.Aborted() {
			return nil, fmt.Errorf("configure usdt: exit code %d: %v", last.ExitCode, last.Err)
		}
	}
	logger.Info("usdt minter created", slog.String("address", minter.ToRaw()), slog.String("admin", g.USDTAdmin.ToRaw()))
	return c, nil
}
