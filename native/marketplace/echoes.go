package marketplace

import (
	"strconv"

	"tonaffiliate/core/ledger"
	"tonaffiliate/core/wire"
	"tonaffiliate/native/campaign"
)

// echoRef extracts the campaign identity an echo claims to come from.
func echoRef(m wire.Message) (wire.CampaignRef, bool) {
	switch e := m.(type) {
	case *wire.ChildToParentCampaignCreated:
		return e.CampaignRef, true
	case *wire.ChildToParentCampaignDetailsSet:
		return e.CampaignRef, true
	case *wire.ChildToParentAffiliateCreated:
		return e.CampaignRef, true
	case *wire.ChildToParentAffiliateWithdrawEarnings:
		return e.CampaignRef, true
	case *wire.ChildToParentCampaignReplenished:
		return e.CampaignRef, true
	case *wire.ChildToParentPlatformFees:
		return e.CampaignRef, true
	case *wire.ChildToParentCampaignSeized:
		return e.CampaignRef, true
	}
	return wire.CampaignRef{}, false
}

// onEcho applies an echo only when the sender is the campaign derived from
// the identity it claims. Anything else is dropped without failing, since
// echoes are advisory.
func (mp *Marketplace) onEcho(tx *ledger.Tx, msg *ledger.Message, m wire.Message) error {
	ref, ok := echoRef(m)
	if !ok {
		return nil
	}
	expected, err := campaign.Address(tx.Self(), ref.CampaignID, ref.Advertiser)
	if err != nil || expected != msg.From || ref.CampaignID == 0 || ref.CampaignID > mp.campaignCount {
		mp.stats.IgnoredEchoes++
		return nil
	}
	attrs := refAttrs(ref)
	attrs["campaign"] = msg.From.ToRaw()
	switch e := m.(type) {
	case *wire.ChildToParentCampaignCreated:
		mp.stats.CampaignsConfirmed++
		tx.Emit(newEvent(EventTypeCampaignConfirmed, attrs))
	case *wire.ChildToParentCampaignDetailsSet:
		mp.stats.CampaignsConfigured++
		attrs["paymentMethod"] = e.PaymentMethod.String()
		tx.Emit(newEvent(EventTypeCampaignConfigured, attrs))
	case *wire.ChildToParentAffiliateCreated:
		mp.stats.AffiliatesReported++
		attrs["affiliateId"] = strconv.FormatUint(uint64(e.AffiliateID), 10)
		attrs["affiliate"] = e.Affiliate.ToRaw()
		attrs["state"] = campaign.AffiliateState(e.State).String()
		tx.Emit(newEvent(EventTypeAffiliateReported, attrs))
	case *wire.ChildToParentAffiliateWithdrawEarnings:
		mp.stats.PayoutsReported++
		attrs["affiliateId"] = strconv.FormatUint(uint64(e.AffiliateID), 10)
		attrs["amount"] = amountString(e.Amount)
		attrs["fee"] = amountString(e.Fee)
		tx.Emit(newEvent(EventTypePayoutReported, attrs))
	case *wire.ChildToParentCampaignReplenished:
		mp.stats.Replenishments++
		attrs["paymentMethod"] = e.PaymentMethod.String()
		attrs["amount"] = amountString(e.Amount)
		tx.Emit(newEvent(EventTypeReplenishReported, attrs))
	case *wire.ChildToParentPlatformFees:
		// The carried value is what actually arrived.
		mp.stats.FeesCollected = mp.stats.FeesCollected.Add(false, msg.Value)
		attrs["currency"] = wire.PaymentMethodNative.String()
		attrs["amount"] = amountString(msg.Value)
		tx.Emit(newEvent(EventTypeFeesReceived, attrs))
	case *wire.ChildToParentCampaignSeized:
		mp.stats.Seizures++
		mp.stats.Seized = mp.stats.Seized.Add(false, msg.Value)
		attrs["native"] = amountString(msg.Value)
		attrs["usdt"] = amountString(e.USDTAmount)
		tx.Emit(newEvent(EventTypeCampaignSeized, attrs))
	}
	return nil
}
