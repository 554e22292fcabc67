package jetton

import (
	"math/big"

	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/ton"

	"tonaffiliate/core/ledger"
	"tonaffiliate/core/wire"
)

func walletData(balance *big.Int, owner, master ton.AccountID) (*boc.Cell, error) {
	return wire.NewBuilder().Coins(balance).Address(owner).Address(master).Cell()
}

// WalletStateInit returns the StateInit of owner's wallet for master, built
// from walletCode with a zero balance.
func WalletStateInit(master, owner ton.AccountID, walletCode *boc.Cell) (*ledger.StateInit, error) {
	data, err := walletData(new(big.Int), owner, master)
	if err != nil {
		return nil, err
	}
	return &ledger.StateInit{Code: walletCode, Data: data}, nil
}

// WalletAddress derives the address of owner's jetton wallet. Both the
// sending wallet and any contract validating a notification compute it the
// same way, so a mismatched walletCode makes every notification fail
// validation.
func WalletAddress(master, owner ton.AccountID, walletCode *boc.Cell) (ton.AccountID, error) {
	init, err := WalletStateInit(master, owner, walletCode)
	if err != nil {
		return ton.AccountID{}, err
	}
	return init.Address()
}
