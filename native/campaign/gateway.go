package campaign

import (
	"fmt"
	"math/big"

	"github.com/tonkeeper/tongo/ton"

	coreerrors "tonaffiliate/core/errors"
	"tonaffiliate/core/ledger"
	"tonaffiliate/core/wire"
)

// sendJettons asks the campaign's own jetton wallet to move amount to dest.
// The payload tags the purpose; if the wallet rejects the transfer the whole
// body, payload included, bounces back and onJettonBounce undoes the books
// from it. Excesses come back to the campaign.
func (c *Campaign) sendJettons(tx *ledger.Tx, dest ton.AccountID, amount *big.Int, payload wire.Message) error {
	if c.usdt == nil {
		return coreerrors.ErrUSDTNotConfigured
	}
	forward, err := wire.Encode(payload)
	if err != nil {
		return err
	}
	self := tx.Self()
	return tx.SendBody(c.usdt.Wallet, JettonTransferValue, true, &wire.JettonTransfer{
		QueryID:             uint64(tx.Now()),
		Amount:              new(big.Int).Set(amount),
		Destination:         dest,
		ResponseDestination: &self,
		ForwardTonAmount:    JettonForwardValue,
		ForwardPayload:      forward,
	})
}

// onJettonNotification credits USDT that reached the campaign wallet. Only
// the campaign's own wallet is trusted to report it.
func (c *Campaign) onJettonNotification(tx *ledger.Tx, msg *ledger.Message, m *wire.JettonTransferNotification) error {
	if c.usdt == nil {
		return coreerrors.ErrUSDTNotConfigured
	}
	if msg.From != c.usdt.Wallet {
		return coreerrors.ErrOnlyContractWalletAllowedToInvoke
	}
	amount := amountOrZero(m.Amount)
	c.usdtBalance.Add(c.usdtBalance, amount)
	if m.ForwardPayload != nil {
		if op, ok := wire.PeekOp(m.ForwardPayload); ok && op == wire.OpPayloadAdvertiserReplenish {
			return c.recordReplenish(tx, wire.PaymentMethodUSDT, amount)
		}
	}
	tx.Emit(c.event(EventTypeUSDTCredited, map[string]string{
		"sender": m.Sender.ToRaw(),
		"amount": amount.String(),
	}))
	return nil
}

func (c *Campaign) onBounce(tx *ledger.Tx, msg *ledger.Message) error {
	decoded, err := wire.DecodeBounced(msg.Body)
	if err != nil {
		// Nothing we sent; nothing to undo.
		return nil
	}
	switch m := decoded.(type) {
	case *wire.CampaignPayout:
		rec, ok := c.affiliates[m.AffiliateID]
		if !ok || msg.From != rec.Affiliate {
			return nil
		}
		c.rollbackPayout(tx, m.AffiliateID, m.Gross, m.Fee, m.PendingCleared, false)
	case *wire.ChildToParentPlatformFees:
		if msg.From != c.parent {
			return nil
		}
		c.counters.Bounces++
		c.platformFeesOwed.Add(c.platformFeesOwed, amountOrZero(m.Amount))
	case *wire.JettonTransfer:
		if c.usdt == nil || msg.From != c.usdt.Wallet {
			return nil
		}
		c.onJettonBounce(tx, m)
	}
	return nil
}

// onJettonBounce restores exactly the amounts carried in the bounced
// payload. Current state may have moved on since the transfer left.
func (c *Campaign) onJettonBounce(tx *ledger.Tx, m *wire.JettonTransfer) {
	if m.ForwardPayload == nil {
		return
	}
	payload, err := wire.Decode(m.ForwardPayload)
	if err != nil {
		return
	}
	switch p := payload.(type) {
	case *wire.PayloadPayAffiliate:
		c.rollbackPayout(tx, p.AffiliateID, p.Gross, p.Fee, p.PendingCleared, true)
		return
	case *wire.PayloadWithdrawToPayout:
		c.usdtBalance.Add(c.usdtBalance, amountOrZero(p.Amount))
	case *wire.PayloadSeize:
		c.usdtBalance.Add(c.usdtBalance, amountOrZero(p.Amount))
	case *wire.PayloadPlatformFee:
		c.usdtBalance.Add(c.usdtBalance, amountOrZero(p.Amount))
		c.platformFeesOwed.Add(c.platformFeesOwed, amountOrZero(p.Amount))
	case *wire.PayloadAdminPayAffiliate:
		// Resends are not booked, so nothing moves.
	default:
		return
	}
	c.counters.Bounces++
	tx.Emit(c.event(EventTypePayoutBounced, map[string]string{
		"payload": fmt.Sprintf("0x%08x", payload.OpCode()),
		"amount":  amountString(m.Amount),
	}))
}

// rollbackPayout reverses withdrawEarnings for one payout.
func (c *Campaign) rollbackPayout(tx *ledger.Tx, id uint32, gross, fee, cleared *big.Int, usdt bool) {
	rec, ok := c.affiliates[id]
	if !ok {
		return
	}
	gross, fee, cleared = amountOrZero(gross), amountOrZero(fee), amountOrZero(cleared)
	c.counters.Bounces++
	rec.WithdrawnEarnings.Sub(rec.WithdrawnEarnings, gross)
	rec.PendingApprovalEarnings.Add(rec.PendingApprovalEarnings, cleared)
	c.totalWithdrawnEarnings.Sub(c.totalWithdrawnEarnings, gross)
	// Fees collected in the meantime cannot be clawed back from the
	// marketplace; the owed counter never goes below zero.
	if c.platformFeesOwed.Cmp(fee) >= 0 {
		c.platformFeesOwed.Sub(c.platformFeesOwed, fee)
	} else {
		c.platformFeesOwed.SetInt64(0)
	}
	if usdt {
		c.usdtBalance.Add(c.usdtBalance, new(big.Int).Sub(gross, fee))
	}
	attrs := affiliateAttrs(id, rec.Affiliate)
	attrs["gross"] = gross.String()
	attrs["fee"] = fee.String()
	tx.Emit(c.event(EventTypePayoutBounced, attrs))
}

// withdrawUSDTToPayout is an admin recovery path and ignores the lifecycle.
func (c *Campaign) withdrawUSDTToPayout(tx *ledger.Tx, msg *ledger.Message, m *wire.ParentToChildWithdrawUSDTToPayout) error {
	if err := c.requireParent(msg.From); err != nil {
		return err
	}
	if c.usdt == nil {
		return coreerrors.ErrUSDTNotConfigured
	}
	amount := amountOrZero(m.Amount)
	if amount.Sign() <= 0 {
		return coreerrors.ErrInvalidAmount
	}
	if amount.Cmp(c.usdtBalance) > 0 {
		return fmt.Errorf("campaign: withdraw %s of %s USDT: %w", amount, c.usdtBalance, coreerrors.ErrInsufficientCampaignFunds)
	}
	c.usdtBalance.Sub(c.usdtBalance, amount)
	tx.Emit(c.event(EventTypeFundsWithdrawn, map[string]string{
		"payout": c.payout.ToRaw(),
		"amount": amount.String(),
		"admin":  "true",
	}))
	return c.sendJettons(tx, c.payout, amount, &wire.PayloadWithdrawToPayout{Amount: amount})
}

// payAffiliateUSDTBounced resends a payout that was booked as withdrawn but
// bounced at the affiliate's wallet. The tokens are back in the campaign
// wallet without being on the books, so the balance is not debited again.
func (c *Campaign) payAffiliateUSDTBounced(tx *ledger.Tx, msg *ledger.Message, m *wire.ParentToChildPayAffiliateUSDTBounced) error {
	if err := c.requireParent(msg.From); err != nil {
		return err
	}
	if c.usdt == nil {
		return coreerrors.ErrUSDTNotConfigured
	}
	rec, ok := c.affiliates[m.AffiliateID]
	if !ok {
		return coreerrors.ErrAffiliateNotFound
	}
	amount := amountOrZero(m.Amount)
	if amount.Sign() <= 0 {
		return coreerrors.ErrInvalidAmount
	}
	attrs := affiliateAttrs(m.AffiliateID, rec.Affiliate)
	attrs["amount"] = amount.String()
	tx.Emit(c.event(EventTypeUSDTResent, attrs))
	return c.sendJettons(tx, rec.Affiliate, amount, &wire.PayloadAdminPayAffiliate{AffiliateID: m.AffiliateID, Amount: amount})
}

// creditMissedNotification books USDT that reached the wallet without a
// notification the campaign accepted.
func (c *Campaign) creditMissedNotification(tx *ledger.Tx, msg *ledger.Message, m *wire.ParentToChildJettonNotificationFailure) error {
	if err := c.requireParent(msg.From); err != nil {
		return err
	}
	if c.usdt == nil {
		return coreerrors.ErrUSDTNotConfigured
	}
	amount := amountOrZero(m.Amount)
	if amount.Sign() <= 0 {
		return coreerrors.ErrInvalidAmount
	}
	c.usdtBalance.Add(c.usdtBalance, amount)
	tx.Emit(c.event(EventTypeUSDTCredited, map[string]string{
		"amount": amount.String(),
		"admin":  "true",
	}))
	return nil
}
