package campaign

import (
	"math/big"
	"strconv"

	"github.com/tonkeeper/tongo/ton"

	"tonaffiliate/core/types"
)

const (
	// EventTypeCampaignCreated is emitted when the marketplace deploy message
	// initializes the campaign.
	EventTypeCampaignCreated = "campaign.created"
	// EventTypeDetailsSet is emitted when the advertiser installs the
	// configuration.
	EventTypeDetailsSet        = "campaign.details.set"
	EventTypeAffiliateCreated  = "campaign.affiliate.created"
	EventTypeAffiliateApproved = "campaign.affiliate.approved"
	EventTypeAffiliateRemoved  = "campaign.affiliate.removed"
	EventTypeActionRecorded    = "campaign.action.recorded"
	EventTypeEarningsApproved  = "campaign.earnings.approved"
	EventTypeEarningsWithdrawn = "campaign.earnings.withdrawn"
	EventTypePayoutBounced     = "campaign.payout.bounced"
	EventTypeReplenished       = "campaign.replenished"
	EventTypeFundsWithdrawn    = "campaign.funds.withdrawn"
	EventTypePayoutAddressSet  = "campaign.payout.updated"
	EventTypeStopped           = "campaign.stopped"
	EventTypeResumed           = "campaign.resumed"
	EventTypeFeesUpdated       = "campaign.fees.updated"
	EventTypeFeesCollected     = "campaign.fees.collected"
	EventTypeUSDTCredited      = "campaign.usdt.credited"
	EventTypeUSDTResent        = "campaign.usdt.resent"
	// EventTypeBalanceSeized records the irreversible admin seizure. It is
	// kept apart from lifecycle events.
	EventTypeBalanceSeized = "campaign.balance.seized"
)

func (c *Campaign) event(typ string, attrs map[string]string) *types.Event {
	if attrs == nil {
		attrs = make(map[string]string, 2)
	}
	attrs["campaignId"] = strconv.FormatUint(uint64(c.campaignID), 10)
	attrs["advertiser"] = c.advertiser.ToRaw()
	return &types.Event{Type: typ, Attributes: attrs}
}

func affiliateAttrs(id uint32, addr ton.AccountID) map[string]string {
	return map[string]string{
		"affiliateId": strconv.FormatUint(uint64(id), 10),
		"affiliate":   addr.ToRaw(),
	}
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
