package campaign

import (
	"math/big"

	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/ton"

	"tonaffiliate/core/ledger"
	"tonaffiliate/core/wire"
)

// Code is the campaign contract code. Changing the registered name changes
// every derived campaign address.
var Code = ledger.Register("affiliate-campaign", load)

// StateInit returns the deploy image of a campaign: the parent, the campaign
// id, the advertiser and an unset deployed bit.
func StateInit(parent ton.AccountID, campaignID uint32, advertiser ton.AccountID) (*ledger.StateInit, error) {
	data, err := wire.NewBuilder().
		Address(parent).
		Uint(uint64(campaignID), 32).
		Address(advertiser).
		Bool(false).
		Cell()
	if err != nil {
		return nil, err
	}
	return &ledger.StateInit{Code: Code, Data: data}, nil
}

// Address derives the campaign address from its identity. The marketplace
// uses it both to deploy and to validate echoes.
func Address(parent ton.AccountID, campaignID uint32, advertiser ton.AccountID) (ton.AccountID, error) {
	init, err := StateInit(parent, campaignID, advertiser)
	if err != nil {
		return ton.AccountID{}, err
	}
	return init.Address()
}

// Data serializes the campaign. Before deployment it is exactly the
// StateInit data; afterwards four references follow: settings, books,
// affiliates and the earnings ranking.
func (c *Campaign) Data() (*boc.Cell, error) {
	b := wire.NewBuilder().
		Address(c.parent).
		Uint(uint64(c.campaignID), 32).
		Address(c.advertiser).
		Bool(c.deployed)
	if c.deployed {
		b.RefWith(c.storeSettings).
			RefWith(c.storeBooks).
			RefWith(func(rb *wire.Builder) { wire.StoreDict(rb, c.affiliates, storeAffiliateRef) }).
			RefWith(func(rb *wire.Builder) { rb.CoinsDict(c.top) })
	}
	return b.Cell()
}

func load(data *boc.Cell) (ledger.Contract, error) {
	s := wire.NewSlice(data)
	c := newCampaign(s.Address(), uint32(s.Uint(32)), s.Address())
	c.deployed = s.Bool()
	if c.deployed {
		s.RefWith(c.loadSettings)
		s.RefWith(c.loadBooks)
		s.RefWith(func(rs *wire.Slice) { c.affiliates = wire.LoadDict(rs, loadAffiliateRef) })
		s.RefWith(func(rs *wire.Slice) { c.top = rs.CoinsDict() })
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Campaign) storeSettings(b *wire.Builder) {
	b.Address(c.payout).Address(c.bot)
	b.Uint(uint64(c.state), 8).Bool(c.paused)
	b.Uint(c.startTimestamp, 64).Uint(c.lastActionTimestamp, 64)
	b.Uint(uint64(c.advertiserFee), 32).Uint(uint64(c.affiliateFee), 32)
	if c.details == nil {
		b.Bool(false)
		return
	}
	b.Bool(true).RefWith(func(rb *wire.Builder) { rb.CampaignDetails(c.details) })
}

func (c *Campaign) loadSettings(s *wire.Slice) {
	c.payout = s.Address()
	c.bot = s.Address()
	c.state = State(s.Uint(8))
	c.paused = s.Bool()
	c.startTimestamp = s.Uint(64)
	c.lastActionTimestamp = s.Uint(64)
	c.advertiserFee = uint32(s.Uint(32))
	c.affiliateFee = uint32(s.Uint(32))
	if s.Bool() {
		s.RefWith(func(rs *wire.Slice) { c.details = rs.CampaignDetails() })
	}
}

func (c *Campaign) storeBooks(b *wire.Builder) {
	b.Coins(c.totalAffiliateEarnings).Coins(c.totalWithdrawnEarnings)
	b.Coins(c.maxCpaValue).Coins(c.platformFeesOwed).Coins(c.usdtBalance)
	n := c.counters
	b.Uint(uint64(n.AdvertiserWithdrawals), 32).Uint(uint64(n.SignOffs), 32).Uint(uint64(n.Replenishments), 32)
	b.Uint(uint64(n.AffiliateWithdrawals), 32).Uint(uint64(n.UserActions), 32).Uint(uint64(n.Bounces), 32)
	b.USDTConfig(c.usdt)
}

func (c *Campaign) loadBooks(s *wire.Slice) {
	c.totalAffiliateEarnings = s.Coins()
	c.totalWithdrawnEarnings = s.Coins()
	c.maxCpaValue = s.Coins()
	c.platformFeesOwed = s.Coins()
	c.usdtBalance = s.Coins()
	c.counters = Counters{
		AdvertiserWithdrawals: uint32(s.Uint(32)),
		SignOffs:              uint32(s.Uint(32)),
		Replenishments:        uint32(s.Uint(32)),
		AffiliateWithdrawals:  uint32(s.Uint(32)),
		UserActions:           uint32(s.Uint(32)),
		Bounces:               uint32(s.Uint(32)),
	}
	c.usdt = s.USDTConfig()
}

// Affiliate records live in their own cells so a dictionary leaf only holds
// the reference.
func storeAffiliateRef(b *wire.Builder, r *AffiliateRecord) {
	b.RefWith(func(rb *wire.Builder) { storeAffiliate(rb, r) })
}

func loadAffiliateRef(s *wire.Slice) *AffiliateRecord {
	var out *AffiliateRecord
	s.RefWith(func(rs *wire.Slice) { out = loadAffiliate(rs) })
	return out
}

func storeAffiliate(b *wire.Builder, r *AffiliateRecord) {
	b.Address(r.Affiliate).Uint(uint64(r.State), 8)
	b.Coins(r.PendingApprovalEarnings).Coins(r.TotalEarnings).Coins(r.WithdrawnEarnings)
	storeCounters(b, r.RegularUsers)
	storeCounters(b, r.PremiumUsers)
}

func loadAffiliate(s *wire.Slice) *AffiliateRecord {
	r := newAffiliateRecord(s.Address(), AffiliateState(s.Uint(8)))
	r.PendingApprovalEarnings = s.Coins()
	r.TotalEarnings = s.Coins()
	r.WithdrawnEarnings = s.Coins()
	r.RegularUsers = loadCounters(s)
	r.PremiumUsers = loadCounters(s)
	return r
}

func storeCounters(b *wire.Builder, m map[uint32]ActionCounter) {
	wire.StoreDict(b, m, func(vb *wire.Builder, v ActionCounter) {
		vb.Uint(v.Count, 64).Uint(v.LastActionTimestamp, 64)
	})
}

func loadCounters(s *wire.Slice) map[uint32]ActionCounter {
	return wire.LoadDict(s, func(vs *wire.Slice) ActionCounter {
		return ActionCounter{Count: vs.Uint(64), LastActionTimestamp: vs.Uint(64)}
	})
}

func newCampaign(parent ton.AccountID, campaignID uint32, advertiser ton.AccountID) *Campaign {
	return &Campaign{
		parent:                 parent,
		campaignID:             campaignID,
		advertiser:             advertiser,
		payout:                 advertiser,
		affiliates:             make(map[uint32]*AffiliateRecord),
		top:                    make(map[uint32]*big.Int),
		totalAffiliateEarnings: new(big.Int),
		totalWithdrawnEarnings: new(big.Int),
		maxCpaValue:            new(big.Int),
		platformFeesOwed:       new(big.Int),
		usdtBalance:            new(big.Int),
	}
}
