package rpc

import (
	"math/big"
	"strconv"

	"github.com/tonkeeper/tongo/ton"

	"tonaffiliate/core/ledger"
	"tonaffiliate/core/wire"
	"tonaffiliate/native/campaign"
	"tonaffiliate/native/fees"
	"tonaffiliate/native/marketplace"
)

// Amounts are decimal strings and addresses are raw "wc:hex" strings.

type USDTResult struct {
	Master string `json:"master"`
	Wallet string `json:"wallet"`
}

type TotalsResult struct {
	Native string `json:"native"`
	USDT   string `json:"usdt"`
}

type MarketplaceStatsResult struct {
	CampaignsConfirmed  uint32       `json:"campaignsConfirmed"`
	CampaignsConfigured uint32       `json:"campaignsConfigured"`
	AffiliatesReported  uint64       `json:"affiliatesReported"`
	PayoutsReported     uint64       `json:"payoutsReported"`
	Replenishments      uint64       `json:"replenishments"`
	Seizures            uint32       `json:"seizures"`
	IgnoredEchoes       uint64       `json:"ignoredEchoes"`
	FeesCollected       TotalsResult `json:"feesCollected"`
	Seized              TotalsResult `json:"seized"`
	USDTBalance         string       `json:"usdtBalance"`
}

type MarketplaceResult struct {
	Address                 string                 `json:"address"`
	Balance                 string                 `json:"balance"`
	Owner                   string                 `json:"owner"`
	Bot                     string                 `json:"bot"`
	CampaignCount           uint32                 `json:"campaignCount"`
	AdvertiserFeePercentage uint32                 `json:"advertiserFeePercentage"`
	AffiliateFeePercentage  uint32                 `json:"affiliateFeePercentage"`
	USDT                    *USDTResult            `json:"usdt,omitempty"`
	Stats                   MarketplaceStatsResult `json:"stats"`
}

type DetailsResult struct {
	RegularUsersCostPerAction               map[string]string `json:"regularUsersCostPerAction"`
	PremiumUsersCostPerAction               map[string]string `json:"premiumUsersCostPerAction"`
	IsPublicCampaign                        bool              `json:"isPublicCampaign"`
	CampaignValidForNumDays                 *uint32           `json:"campaignValidForNumDays,omitempty"`
	PaymentMethod                           string            `json:"paymentMethod"`
	RequiresAdvertiserApprovalForWithdrawal bool              `json:"requiresAdvertiserApprovalForWithdrawal"`
}

type CountersResult struct {
	AdvertiserWithdrawals uint32 `json:"advertiserWithdrawals"`
	SignOffs              uint32 `json:"signOffs"`
	Replenishments        uint32 `json:"replenishments"`
	AffiliateWithdrawals  uint32 `json:"affiliateWithdrawals"`
	UserActions           uint32 `json:"userActions"`
	Bounces               uint32 `json:"bounces"`
}

type CampaignResult struct {
	Address                 string            `json:"address"`
	Balance                 string            `json:"balance"`
	Parent                  string            `json:"parent"`
	CampaignID              uint32            `json:"campaignId"`
	Advertiser              string            `json:"advertiser"`
	Payout                  string            `json:"payout"`
	Bot                     string            `json:"bot"`
	Deployed                bool              `json:"deployed"`
	State                   string            `json:"state"`
	Paused                  bool              `json:"paused"`
	Expired                 bool              `json:"expired"`
	Active                  bool              `json:"active"`
	Details                 *DetailsResult    `json:"details,omitempty"`
	StartTimestamp          uint64            `json:"startTimestamp"`
	LastActionTimestamp     uint64            `json:"lastActionTimestamp"`
	NumAffiliates           uint32            `json:"numAffiliates"`
	Counters                CountersResult    `json:"counters"`
	TotalAffiliateEarnings  string            `json:"totalAffiliateEarnings"`
	TotalWithdrawnEarnings  string            `json:"totalWithdrawnEarnings"`
	MaxCpaValue             string            `json:"maxCpaValue"`
	PlatformFeesOwed        string            `json:"platformFeesOwed"`
	AdvertiserFeePercentage uint32            `json:"advertiserFeePercentage"`
	AffiliateFeePercentage  uint32            `json:"affiliateFeePercentage"`
	TopAffiliates           map[string]string `json:"topAffiliates"`
	USDT                    *USDTResult       `json:"usdt,omitempty"`
	ContractUSDTBalance     string            `json:"contractUsdtBalance"`
}

type ActionCounterResult struct {
	Count               uint64 `json:"count"`
	LastActionTimestamp uint64 `json:"lastActionTimestamp"`
}

type AffiliateResult struct {
	ID                      uint32                         `json:"id"`
	Affiliate               string                         `json:"affiliate"`
	State                   string                         `json:"state"`
	RegularUsers            map[string]ActionCounterResult `json:"regularUsers"`
	PremiumUsers            map[string]ActionCounterResult `json:"premiumUsers"`
	PendingApprovalEarnings string                         `json:"pendingApprovalEarnings"`
	TotalEarnings           string                         `json:"totalEarnings"`
	WithdrawnEarnings       string                         `json:"withdrawnEarnings"`
}

type DeriveResult struct {
	Address    string `json:"address"`
	CampaignID uint32 `json:"campaignId"`
	Advertiser string `json:"advertiser"`
	Deployed   bool   `json:"deployed"`
}

type ReceiptResult struct {
	Seq      uint64 `json:"seq"`
	From     string `json:"from"`
	To       string `json:"to"`
	Op       string `json:"op"`
	ExitCode int32  `json:"exitCode"`
	Bounced  bool   `json:"bounced"`
	Error    string `json:"error,omitempty"`
}

// SubmitRequest is an external message from a wallet. Body and the state
// init cells are base64 BoCs.
type SubmitRequest struct {
	From      string            `json:"from"`
	To        string            `json:"to"`
	Value     string            `json:"value"`
	Bounce    *bool             `json:"bounce,omitempty"`
	Body      string            `json:"body,omitempty"`
	StateInit *StateInitRequest `json:"stateInit,omitempty"`
}

type StateInitRequest struct {
	Code string `json:"code"`
	Data string `json:"data"`
}

type SubmitResult struct {
	Receipts []ReceiptResult `json:"receipts"`
}

type ErrorResult struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func amount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func usdtResult(c *wire.USDTConfig) *USDTResult {
	if c == nil {
		return nil
	}
	return &USDTResult{Master: c.Master.ToRaw(), Wallet: c.Wallet.ToRaw()}
}

func totalsResult(t fees.Totals) TotalsResult {
	return TotalsResult{Native: amount(t.Native), USDT: amount(t.USDT)}
}

func marketplaceResult(addr ton.AccountID, balance *big.Int, d *marketplace.Data) MarketplaceResult {
	s := d.Stats
	return MarketplaceResult{
		Address:                 addr.ToRaw(),
		Balance:                 amount(balance),
		Owner:                   d.Owner.ToRaw(),
		Bot:                     d.Bot.ToRaw(),
		CampaignCount:           d.CampaignCount,
		AdvertiserFeePercentage: d.AdvertiserFeePercentage,
		AffiliateFeePercentage:  d.AffiliateFeePercentage,
		USDT:                    usdtResult(d.USDT),
		Stats: MarketplaceStatsResult{
			CampaignsConfirmed:  s.CampaignsConfirmed,
			CampaignsConfigured: s.CampaignsConfigured,
			AffiliatesReported:  s.AffiliatesReported,
			PayoutsReported:     s.PayoutsReported,
			Replenishments:      s.Replenishments,
			Seizures:            s.Seizures,
			IgnoredEchoes:       s.IgnoredEchoes,
			FeesCollected:       totalsResult(s.FeesCollected),
			Seized:              totalsResult(s.Seized),
			USDTBalance:         amount(s.USDTBalance),
		},
	}
}

func amountMap(m map[uint32]*big.Int) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strconv.FormatUint(uint64(k), 10)] = amount(v)
	}
	return out
}

func detailsResult(d *wire.CampaignDetails) *DetailsResult {
	if d == nil {
		return nil
	}
	return &DetailsResult{
		RegularUsersCostPerAction:               amountMap(d.RegularUsersCostPerAction),
		PremiumUsersCostPerAction:               amountMap(d.PremiumUsersCostPerAction),
		IsPublicCampaign:                        d.IsPublicCampaign,
		CampaignValidForNumDays:                 d.CampaignValidForNumDays,
		PaymentMethod:                           d.PaymentMethod.String(),
		RequiresAdvertiserApprovalForWithdrawal: d.RequiresAdvertiserApprovalForWithdrawal,
	}
}

func campaignResult(addr ton.AccountID, balance *big.Int, d *campaign.Data) CampaignResult {
	n := d.Counters
	return CampaignResult{
		Address:             addr.ToRaw(),
		Balance:             amount(balance),
		Parent:              d.Parent.ToRaw(),
		CampaignID:          d.CampaignID,
		Advertiser:          d.Advertiser.ToRaw(),
		Payout:              d.Payout.ToRaw(),
		Bot:                 d.Bot.ToRaw(),
		Deployed:            d.Deployed,
		State:               d.State.String(),
		Paused:              d.Paused,
		Expired:             d.Expired,
		Active:              d.Active,
		Details:             detailsResult(d.Details),
		StartTimestamp:      d.StartTimestamp,
		LastActionTimestamp: d.LastActionTimestamp,
		NumAffiliates:       d.NumAffiliates,
		Counters: CountersResult{
			AdvertiserWithdrawals: n.AdvertiserWithdrawals,
			SignOffs:              n.SignOffs,
			Replenishments:        n.Replenishments,
			AffiliateWithdrawals:  n.AffiliateWithdrawals,
			UserActions:           n.UserActions,
			Bounces:               n.Bounces,
		},
		TotalAffiliateEarnings:  amount(d.TotalAffiliateEarnings),
		TotalWithdrawnEarnings:  amount(d.TotalWithdrawnEarnings),
		MaxCpaValue:             amount(d.MaxCpaValue),
		PlatformFeesOwed:        amount(d.PlatformFeesOwed),
		AdvertiserFeePercentage: d.AdvertiserFeePercentage,
		AffiliateFeePercentage:  d.AffiliateFeePercentage,
		TopAffiliates:           amountMap(d.TopAffiliates),
		USDT:                    usdtResult(d.USDT),
		ContractUSDTBalance:     amount(d.ContractUSDTBalance),
	}
}

func counterMap(m map[uint32]campaign.ActionCounter) map[string]ActionCounterResult {
	out := make(map[string]ActionCounterResult, len(m))
	for k, v := range m {
		out[strconv.FormatUint(uint64(k), 10)] = ActionCounterResult{Count: v.Count, LastActionTimestamp: v.LastActionTimestamp}
	}
	return out
}

func affiliateResult(id uint32, r *campaign.AffiliateRecord) AffiliateResult {
	return AffiliateResult{
		ID:                      id,
		Affiliate:               r.Affiliate.ToRaw(),
		State:                   r.State.String(),
		RegularUsers:            counterMap(r.RegularUsers),
		PremiumUsers:            counterMap(r.PremiumUsers),
		PendingApprovalEarnings: amount(r.PendingApprovalEarnings),
		TotalEarnings:           amount(r.TotalEarnings),
		WithdrawnEarnings:       amount(r.WithdrawnEarnings),
	}
}

func receiptResult(r ledger.Receipt) ReceiptResult {
	out := ReceiptResult{
		Seq:      r.Seq,
		From:     r.From.ToRaw(),
		To:       r.To.ToRaw(),
		Op:       "0x" + strconv.FormatUint(uint64(r.Op), 16),
		ExitCode: r.ExitCode,
		Bounced:  r.Bounced,
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}
