package marketplace

import "github.com/tonkeeper/tongo/ton"

// Snapshot returns a copy of the marketplace state.
func (mp *Marketplace) Snapshot() *Data {
	out := &Data{
		Owner:                   mp.owner,
		Bot:                     mp.bot,
		CampaignCount:           mp.campaignCount,
		AdvertiserFeePercentage: mp.advertiserFee,
		AffiliateFeePercentage:  mp.affiliateFee,
		Stats:                   mp.stats.Clone(),
	}
	if mp.usdt != nil {
		usdt := *mp.usdt
		out.USDT = &usdt
	}
	return out
}

func (mp *Marketplace) Owner() ton.AccountID { return mp.owner }

