package marketplace

import (
	"strconv"

	"tonaffiliate/core/types"
	"tonaffiliate/core/wire"
)

const (
	EventTypeCampaignDeployed   = "marketplace.campaign.deployed"
	EventTypeCampaignConfirmed  = "marketplace.campaign.confirmed"
	EventTypeCampaignConfigured = "marketplace.campaign.configured"
	EventTypeAffiliateReported  = "marketplace.affiliate.reported"
	EventTypePayoutReported     = "marketplace.payout.reported"
	EventTypeReplenishReported  = "marketplace.replenish.reported"
	EventTypeFeesReceived       = "marketplace.fees.received"
	EventTypeCampaignSeized     = "marketplace.campaign.seized"
	EventTypeAdminForwarded     = "marketplace.admin.forwarded"
	EventTypeForwardBounced     = "marketplace.admin.bounced"
	EventTypeConfigUpdated      = "marketplace.config.updated"
	EventTypeFundsWithdrawn     = "marketplace.funds.withdrawn"
	EventTypeUSDTReceived       = "marketplace.usdt.received"
)

func refAttrs(ref wire.CampaignRef) map[string]string {
	return map[string]string{
		"campaignId": strconv.FormatUint(uint64(ref.CampaignID), 10),
		"advertiser": ref.Advertiser.ToRaw(),
	}
}

func newEvent(typ string, attrs map[string]string) *types.Event {
	if attrs == nil {
		attrs = map[string]string{}
	}
	return &types.Event{Type: typ, Attributes: attrs}
}
