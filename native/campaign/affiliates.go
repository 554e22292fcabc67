package campaign

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/tonkeeper/tongo/ton"

	coreerrors "tonaffiliate/core/errors"
	"tonaffiliate/core/ledger"
	"tonaffiliate/core/wire"
	"tonaffiliate/native/fees"
)

// createAffiliate opens the next affiliate slot. IDs start at 1 and are
// never reused.
func (c *Campaign) createAffiliate(tx *ledger.Tx, addr ton.AccountID, state AffiliateState) (uint32, error) {
	if !c.active(tx.Now()) {
		return 0, coreerrors.ErrCampaignNotActive
	}
	if len(c.affiliates) >= MaxAffiliates {
		return 0, coreerrors.ErrMaxAffiliatesReached
	}
	id := uint32(len(c.affiliates)) + 1
	c.affiliates[id] = newAffiliateRecord(addr, state)
	attrs := affiliateAttrs(id, addr)
	attrs["state"] = state.String()
	tx.Emit(c.event(EventTypeAffiliateCreated, attrs))
	return id, c.echo(tx, &wire.ChildToParentAffiliateCreated{
		CampaignRef: c.ref(),
		AffiliateID: id,
		Affiliate:   addr,
		State:       uint8(state),
	})
}

// openState is where self-registered and bot-registered affiliates start.
func (c *Campaign) openState() AffiliateState {
	if c.details != nil && c.details.IsPublicCampaign {
		return AffiliateActive
	}
	return AffiliatePendingApproval
}

func (c *Campaign) selfRegister(tx *ledger.Tx, msg *ledger.Message) error {
	_, err := c.createAffiliate(tx, msg.From, c.openState())
	return err
}

func (c *Campaign) botCreateAffiliate(tx *ledger.Tx, msg *ledger.Message, m *wire.BotCreateNewAffiliate) error {
	if err := c.requireBot(msg.From); err != nil {
		return err
	}
	_, err := c.createAffiliate(tx, m.Affiliate, c.openState())
	return err
}

// addAffiliate is the advertiser path. The advertiser is the approver, so
// the affiliate starts active.
func (c *Campaign) addAffiliate(tx *ledger.Tx, msg *ledger.Message, m *wire.AdvertiserAddNewAffiliate) error {
	if err := c.requireAdvertiser(msg.From); err != nil {
		return err
	}
	if c.details != nil && c.details.IsPublicCampaign {
		return coreerrors.ErrCannotAddAffiliatesToPublicCampaign
	}
	_, err := c.createAffiliate(tx, m.Affiliate, AffiliateActive)
	return err
}

func (c *Campaign) approveAffiliate(tx *ledger.Tx, msg *ledger.Message, m *wire.AdvertiserApproveAffiliate) error {
	if err := c.requireAdvertiser(msg.From); err != nil {
		return err
	}
	rec, ok := c.affiliates[m.AffiliateID]
	if !ok {
		return coreerrors.ErrAffiliateNotFound
	}
	if rec.State != AffiliatePendingApproval {
		return coreerrors.ErrAffiliateNotPendingApproval
	}
	rec.State = AffiliateActive
	tx.Emit(c.event(EventTypeAffiliateApproved, affiliateAttrs(m.AffiliateID, rec.Affiliate)))
	return nil
}

// removeAffiliate marks the slot removed. Unwithdrawn earnings stay on the
// record and remain withdrawable.
func (c *Campaign) removeAffiliate(tx *ledger.Tx, msg *ledger.Message, m *wire.AdvertiserRemoveAffiliate) error {
	if err := c.requireAdvertiser(msg.From); err != nil {
		return err
	}
	rec, ok := c.affiliates[m.AffiliateID]
	if !ok {
		return coreerrors.ErrAffiliateNotFound
	}
	if rec.State == AffiliateRemoved {
		return coreerrors.ErrAffiliateAlreadyRemoved
	}
	if c.details != nil && c.details.RequiresAdvertiserApprovalForWithdrawal && rec.PendingApprovalEarnings.Sign() > 0 {
		return coreerrors.ErrAffiliateHasPendingEarnings
	}
	rec.State = AffiliateRemoved
	tx.Emit(c.event(EventTypeAffiliateRemoved, affiliateAttrs(m.AffiliateID, rec.Affiliate)))
	return nil
}

// recordAction books one verified user action. The bot verifies op codes
// below BotOpCodeLimit and the advertiser the rest.
func (c *Campaign) recordAction(tx *ledger.Tx, msg *ledger.Message, a *wire.UserAction, byBot bool) error {
	if byBot {
		if err := c.requireBot(msg.From); err != nil {
			return err
		}
		if a.UserActionOpCode >= wire.BotOpCodeLimit {
			return coreerrors.ErrBotCanVerifyOnlyOpCodesUnder20000
		}
	} else {
		if err := c.requireAdvertiser(msg.From); err != nil {
			return err
		}
		if a.UserActionOpCode < wire.BotOpCodeLimit {
			return coreerrors.ErrAdvertiserCanVerifyOnlyOpCodesOver20000
		}
	}
	if c.details == nil {
		return coreerrors.ErrMustBeInStateDetailsSet
	}
	now := tx.Now()
	if !c.active(now) {
		return coreerrors.ErrCampaignNotActive
	}
	rec, ok := c.affiliates[a.AffiliateID]
	if !ok {
		return coreerrors.ErrAffiliateNotFound
	}
	if rec.State != AffiliateActive {
		return coreerrors.ErrAffiliateNotActive
	}
	table, counters := c.details.RegularUsersCostPerAction, rec.RegularUsers
	if a.IsPremiumUser {
		table, counters = c.details.PremiumUsersCostPerAction, rec.PremiumUsers
	}
	cpa, ok := table[a.UserActionOpCode]
	if !ok {
		return fmt.Errorf("campaign: op %d premium=%t: %w", a.UserActionOpCode, a.IsPremiumUser, coreerrors.ErrOpCodeNotFound)
	}
	liability := new(big.Int).Add(c.outstanding(), cpa)
	if available := c.available(tx); liability.Cmp(available) > 0 {
		return fmt.Errorf("campaign: liability %s above available %s: %w", liability, available, coreerrors.ErrInsufficientCampaignFunds)
	}

	counter := counters[a.UserActionOpCode]
	counter.Count++
	counter.LastActionTimestamp = uint64(now)
	counters[a.UserActionOpCode] = counter
	rec.PendingApprovalEarnings.Add(rec.PendingApprovalEarnings, cpa)
	rec.TotalEarnings.Add(rec.TotalEarnings, cpa)
	c.totalAffiliateEarnings.Add(c.totalAffiliateEarnings, cpa)
	c.counters.UserActions++
	c.lastActionTimestamp = uint64(now)
	if c.state == StateDetailsSetByAdvertiser {
		c.state = StateActive
	}
	c.rank(a.AffiliateID, rec.TotalEarnings)

	attrs := affiliateAttrs(a.AffiliateID, rec.Affiliate)
	attrs["opCode"] = strconv.FormatUint(uint64(a.UserActionOpCode), 10)
	attrs["premium"] = strconv.FormatBool(a.IsPremiumUser)
	attrs["cpa"] = cpa.String()
	tx.Emit(c.event(EventTypeActionRecorded, attrs))
	return nil
}

// rank keeps the TopAffiliatesLimit highest earners. Ties drop the higher
// id first.
func (c *Campaign) rank(id uint32, total *big.Int) {
	c.top[id] = new(big.Int).Set(total)
	if len(c.top) <= TopAffiliatesLimit {
		return
	}
	var lowID uint32
	var low *big.Int
	for k, v := range c.top {
		if low == nil || v.Cmp(low) < 0 || (v.Cmp(low) == 0 && k > lowID) {
			lowID, low = k, v
		}
	}
	delete(c.top, lowID)
}

func (c *Campaign) requireApprovalFlow() error {
	if c.details == nil {
		return coreerrors.ErrMustBeInStateDetailsSet
	}
	if !c.details.RequiresAdvertiserApprovalForWithdrawal {
		return coreerrors.ErrAdvertiserApprovalNotRequired
	}
	return nil
}

func (c *Campaign) approveEarnings(tx *ledger.Tx, msg *ledger.Message, m *wire.AdvertiserApproveEarnings) error {
	if err := c.requireAdvertiser(msg.From); err != nil {
		return err
	}
	if err := c.requireApprovalFlow(); err != nil {
		return err
	}
	rec, ok := c.affiliates[m.AffiliateID]
	if !ok {
		return coreerrors.ErrAffiliateNotFound
	}
	amount := amountOrZero(m.Amount)
	if amount.Cmp(rec.PendingApprovalEarnings) > 0 {
		return coreerrors.ErrAmountExceedsPending
	}
	rec.PendingApprovalEarnings.Sub(rec.PendingApprovalEarnings, amount)
	attrs := affiliateAttrs(m.AffiliateID, rec.Affiliate)
	attrs["amount"] = amount.String()
	tx.Emit(c.event(EventTypeEarningsApproved, attrs))
	return nil
}

// signOffWithdrawals approves a batch. Every entry is checked before any is
// applied.
func (c *Campaign) signOffWithdrawals(tx *ledger.Tx, msg *ledger.Message, m *wire.AdvertiserSignOffWithdrawals) error {
	if err := c.requireAdvertiser(msg.From); err != nil {
		return err
	}
	if err := c.requireApprovalFlow(); err != nil {
		return err
	}
	for id, amount := range m.Approvals {
		rec, ok := c.affiliates[id]
		if !ok {
			return fmt.Errorf("campaign: affiliate %d: %w", id, coreerrors.ErrAffiliateNotFound)
		}
		if amountOrZero(amount).Cmp(rec.PendingApprovalEarnings) > 0 {
			return fmt.Errorf("campaign: affiliate %d: %w", id, coreerrors.ErrAmountExceedsPending)
		}
	}
	total := new(big.Int)
	for id, amount := range m.Approvals {
		rec := c.affiliates[id]
		rec.PendingApprovalEarnings.Sub(rec.PendingApprovalEarnings, amountOrZero(amount))
		total.Add(total, amountOrZero(amount))
	}
	c.counters.SignOffs++
	tx.Emit(c.event(EventTypeEarningsApproved, map[string]string{
		"affiliates": strconv.Itoa(len(m.Approvals)),
		"amount":     total.String(),
	}))
	return nil
}

// withdrawEarnings pays an affiliate. The books move before the payout is
// sent; a bounce of the payout carries the amounts needed to undo them.
func (c *Campaign) withdrawEarnings(tx *ledger.Tx, msg *ledger.Message, m *wire.AffiliateWithdrawEarnings) error {
	rec, ok := c.affiliates[m.AffiliateID]
	if !ok {
		return coreerrors.ErrAffiliateNotFound
	}
	if msg.From != rec.Affiliate {
		return coreerrors.ErrOnlyAffiliateCanInvoke
	}
	if c.details == nil {
		return coreerrors.ErrMustBeInStateDetailsSet
	}
	requiresApproval := c.details.RequiresAdvertiserApprovalForWithdrawal
	gross := rec.Payable(requiresApproval)
	if gross.Sign() <= 0 {
		return coreerrors.ErrNoEarningsToWithdraw
	}
	if available := c.available(tx); gross.Cmp(available) > 0 {
		return fmt.Errorf("campaign: payout %s above available %s: %w", gross, available, coreerrors.ErrInsufficientContractFundsToMakePayment)
	}
	split, err := fees.SplitPayment(gross, c.advertiserFee, c.affiliateFee)
	if err != nil {
		return err
	}
	fee := split.Fee()
	cleared := new(big.Int)
	if !requiresApproval {
		cleared.Set(rec.PendingApprovalEarnings)
		rec.PendingApprovalEarnings.SetInt64(0)
	}
	rec.WithdrawnEarnings.Add(rec.WithdrawnEarnings, gross)
	c.totalWithdrawnEarnings.Add(c.totalWithdrawnEarnings, gross)
	c.platformFeesOwed.Add(c.platformFeesOwed, fee)
	c.counters.AffiliateWithdrawals++

	attrs := affiliateAttrs(m.AffiliateID, rec.Affiliate)
	attrs["gross"] = gross.String()
	attrs["net"] = split.Net.String()
	attrs["fee"] = fee.String()
	tx.Emit(c.event(EventTypeEarningsWithdrawn, attrs))

	if c.paysUSDT() {
		c.usdtBalance.Sub(c.usdtBalance, split.Net)
		err = c.sendJettons(tx, rec.Affiliate, split.Net, &wire.PayloadPayAffiliate{
			AffiliateID:    m.AffiliateID,
			Gross:          gross,
			Fee:            fee,
			PendingCleared: cleared,
		})
	} else {
		err = tx.SendBody(rec.Affiliate, split.Net, true, &wire.CampaignPayout{
			CampaignID:     c.campaignID,
			AffiliateID:    m.AffiliateID,
			Gross:          gross,
			Fee:            fee,
			PendingCleared: cleared,
		})
	}
	if err != nil {
		return err
	}
	return c.echo(tx, &wire.ChildToParentAffiliateWithdrawEarnings{
		CampaignRef: c.ref(),
		AffiliateID: m.AffiliateID,
		Amount:      split.Net,
		Fee:         fee,
	})
}
