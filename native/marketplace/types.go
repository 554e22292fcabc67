package marketplace

import (
	"math/big"

	"github.com/tonkeeper/tongo/ton"

	"tonaffiliate/core/wire"
	"tonaffiliate/native/fees"
)

var (
	// MinDeployValue is the smallest attached value that deploys a
	// campaign. All of it is forwarded to the new campaign.
	MinDeployValue = big.NewInt(100_000_000)
	// MinTonsForStorage stays on the marketplace when the owner withdraws.
	MinTonsForStorage = big.NewInt(50_000_000)
)

// Stats aggregates what the marketplace learned from verified echoes and
// its own jetton wallet.
type Stats struct {
	CampaignsConfirmed  uint32
	CampaignsConfigured uint32
	AffiliatesReported  uint64
	PayoutsReported     uint64
	Replenishments      uint64
	Seizures            uint32
	IgnoredEchoes       uint64
	// FeesCollected counts platform fees per currency; Seized counts
	// seized balances.
	FeesCollected fees.Totals
	Seized        fees.Totals
	// USDTBalance is what the marketplace wallet reported receiving.
	USDTBalance *big.Int
}

func newStats() Stats {
	return Stats{
		FeesCollected: fees.Totals{}.Clone(),
		Seized:        fees.Totals{}.Clone(),
		USDTBalance:   new(big.Int),
	}
}

// Clone returns a deep copy.
func (s Stats) Clone() Stats {
	out := s
	out.FeesCollected = s.FeesCollected.Clone()
	out.Seized = s.Seized.Clone()
	out.USDTBalance = new(big.Int).Set(s.USDTBalance)
	return out
}

// Data is the marketplace getter snapshot.
type Data struct {
	Owner                   ton.AccountID
	Bot                     ton.AccountID
	CampaignCount           uint32
	AdvertiserFeePercentage uint32
	AffiliateFeePercentage  uint32
	// USDT holds the jetton master, the marketplace's own wallet and the
	// wallet code; nil until configured.
	USDT  *wire.USDTConfig
	Stats Stats
}
