package marketplace

import (
	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/ton"

	"tonaffiliate/core/ledger"
	"tonaffiliate/core/wire"
	"tonaffiliate/native/fees"
)

var Code = ledger.Register("affiliate-marketplace", load)

// StateInit returns the genesis image of a marketplace. The address depends
// on every argument.
func StateInit(owner, bot ton.AccountID, advertiserFee, affiliateFee uint32) (*ledger.StateInit, error) {
	if err := fees.ValidatePercentages(advertiserFee, affiliateFee); err != nil {
		return nil, err
	}
	data, err := newMarketplace(owner, bot, advertiserFee, affiliateFee).Data()
	if err != nil {
		return nil, err
	}
	return &ledger.StateInit{Code: Code, Data: data}, nil
}

// Data layout: owner, bot, campaign counter, default fees, optional USDT
// configuration, then a reference holding the statistics.
func (mp *Marketplace) Data() (*boc.Cell, error) {
	return wire.NewBuilder().
		Address(mp.owner).
		Address(mp.bot).
		Uint(uint64(mp.campaignCount), 32).
		Uint(uint64(mp.advertiserFee), 32).
		Uint(uint64(mp.affiliateFee), 32).
		USDTConfig(mp.usdt).
		RefWith(mp.stats.store).
		Cell()
}

func load(data *boc.Cell) (ledger.Contract, error) {
	s := wire.NewSlice(data)
	mp := &Marketplace{
		owner:         s.Address(),
		bot:           s.Address(),
		campaignCount: uint32(s.Uint(32)),
		advertiserFee: uint32(s.Uint(32)),
		affiliateFee:  uint32(s.Uint(32)),
		usdt:          s.USDTConfig(),
	}
	s.RefWith(mp.stats.load)
	if err := s.Err(); err != nil {
		return nil, err
	}
	return mp, nil
}

func (st *Stats) store(b *wire.Builder) {
	b.Uint(uint64(st.CampaignsConfirmed), 32).Uint(uint64(st.CampaignsConfigured), 32)
	b.Uint(st.AffiliatesReported, 64).Uint(st.PayoutsReported, 64).Uint(st.Replenishments, 64)
	b.Uint(uint64(st.Seizures), 32).Uint(st.IgnoredEchoes, 64)
	b.Coins(st.FeesCollected.Native).Coins(st.FeesCollected.USDT)
	b.Coins(st.Seized.Native).Coins(st.Seized.USDT)
	b.Coins(st.USDTBalance)
}

func (st *Stats) load(s *wire.Slice) {
	st.CampaignsConfirmed = uint32(s.Uint(32))
	st.CampaignsConfigured = uint32(s.Uint(32))
	st.AffiliatesReported = s.Uint(64)
	st.PayoutsReported = s.Uint(64)
	st.Replenishments = s.Uint(64)
	st.Seizures = uint32(s.Uint(32))
	st.IgnoredEchoes = s.Uint(64)
	st.FeesCollected = fees.Totals{Native: s.Coins(), USDT: s.Coins()}
	st.Seized = fees.Totals{Native: s.Coins(), USDT: s.Coins()}
	st.USDTBalance = s.Coins()
}
