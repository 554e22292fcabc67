package campaign

import (
	"math/big"

	"github.com/tonkeeper/tongo/ton"

	"tonaffiliate/core/wire"
)

// Snapshot returns the campaignData getter result as of now.
func (c *Campaign) Snapshot(now int64) *Data {
	top := make(map[uint32]*big.Int, len(c.top))
	for k, v := range c.top {
		top[k] = new(big.Int).Set(v)
	}
	out := &Data{
		Parent:                  c.parent,
		CampaignID:              c.campaignID,
		Advertiser:              c.advertiser,
		Payout:                  c.payout,
		Bot:                     c.bot,
		Deployed:                c.deployed,
		State:                   c.effectiveState(now),
		Paused:                  c.paused,
		Expired:                 c.expired(now),
		Active:                  c.deployed && c.active(now),
		StartTimestamp:          c.startTimestamp,
		LastActionTimestamp:     c.lastActionTimestamp,
		NumAffiliates:           uint32(len(c.affiliates)),
		Counters:                c.counters,
		TotalAffiliateEarnings:  new(big.Int).Set(c.totalAffiliateEarnings),
		TotalWithdrawnEarnings:  new(big.Int).Set(c.totalWithdrawnEarnings),
		MaxCpaValue:             new(big.Int).Set(c.maxCpaValue),
		PlatformFeesOwed:        new(big.Int).Set(c.platformFeesOwed),
		AdvertiserFeePercentage: c.advertiserFee,
		AffiliateFeePercentage:  c.affiliateFee,
		TopAffiliates:           top,
		ContractUSDTBalance:     new(big.Int).Set(c.usdtBalance),
	}
	if c.details != nil {
		out.Details = cloneDetails(c.details)
	}
	if c.usdt != nil {
		usdt := *c.usdt
		out.USDT = &usdt
	}
	return out
}

func cloneDetails(d *wire.CampaignDetails) *wire.CampaignDetails {
	out := *d
	out.RegularUsersCostPerAction = cloneAmounts(d.RegularUsersCostPerAction)
	out.PremiumUsersCostPerAction = cloneAmounts(d.PremiumUsersCostPerAction)
	if d.CampaignValidForNumDays != nil {
		days := *d.CampaignValidForNumDays
		out.CampaignValidForNumDays = &days
	}
	return &out
}

func cloneAmounts(m map[uint32]*big.Int) map[uint32]*big.Int {
	out := make(map[uint32]*big.Int, len(m))
	for k, v := range m {
		out[k] = new(big.Int).Set(v)
	}
	return out
}

// Affiliate returns a copy of one affiliate record.
func (c *Campaign) Affiliate(id uint32) (*AffiliateRecord, bool) {
	rec, ok := c.affiliates[id]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// AffiliatesInRange returns copies of the records with from <= id <= to.
func (c *Campaign) AffiliatesInRange(from, to uint32) map[uint32]*AffiliateRecord {
	out := make(map[uint32]*AffiliateRecord)
	if from == 0 {
		from = 1
	}
	last := uint32(len(c.affiliates))
	if to > last {
		to = last
	}
	for id := from; id <= to; id++ {
		out[id] = c.affiliates[id].Clone()
	}
	return out
}

// Stopped reports the admin pause flag.
func (c *Campaign) Stopped() bool { return c.paused }

// Owner is the marketplace that deployed the campaign.
func (c *Campaign) Owner() ton.AccountID { return c.parent }

func (c *Campaign) CampaignID() uint32        { return c.campaignID }
func (c *Campaign) Advertiser() ton.AccountID { return c.advertiser }
