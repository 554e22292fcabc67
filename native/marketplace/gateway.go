package marketplace

import (
	"math/big"

	"github.com/tonkeeper/tongo/ton"

	coreerrors "tonaffiliate/core/errors"
	"tonaffiliate/core/ledger"
	"tonaffiliate/core/wire"
	"tonaffiliate/native/campaign"
)

// onJettonNotification books USDT that reached the marketplace wallet:
// platform fees and seized campaign balances. Only the marketplace's own
// wallet is trusted, and a tagged transfer is booked as fees or seizure only
// when its sender is the campaign the tag names.
func (mp *Marketplace) onJettonNotification(tx *ledger.Tx, msg *ledger.Message, m *wire.JettonTransferNotification) error {
	if mp.usdt == nil || msg.From != mp.usdt.Wallet {
		return coreerrors.ErrOnlyContractWalletAllowedToInvoke
	}
	amount := amountOrZero(m.Amount)
	mp.stats.USDTBalance.Add(mp.stats.USDTBalance, amount)
	attrs := map[string]string{
		"sender": m.Sender.ToRaw(),
		"amount": amount.String(),
		"kind":   "transfer",
	}
	if m.ForwardPayload != nil {
		payload, err := wire.Decode(m.ForwardPayload)
		if err == nil {
			switch p := payload.(type) {
			case *wire.PayloadPlatformFee:
				if mp.fromCampaign(tx, m.Sender, p.CampaignID, p.Advertiser) {
					mp.stats.FeesCollected = mp.stats.FeesCollected.Add(true, amount)
					attrs["kind"] = "platformFee"
				}
			case *wire.PayloadSeize:
				if mp.fromCampaign(tx, m.Sender, p.CampaignID, p.Advertiser) {
					mp.stats.Seized = mp.stats.Seized.Add(true, amount)
					attrs["kind"] = "seize"
				}
			}
		}
	}
	tx.Emit(newEvent(EventTypeUSDTReceived, attrs))
	return nil
}

func (mp *Marketplace) fromCampaign(tx *ledger.Tx, sender ton.AccountID, id uint32, advertiser ton.AccountID) bool {
	addr, err := campaign.Address(tx.Self(), id, advertiser)
	return err == nil && addr == sender
}

func amountOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
