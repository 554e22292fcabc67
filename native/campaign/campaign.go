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

// Text comments the owner may send instead of the typed parent messages.
const (
	CommentStop   = "Stop"
	CommentResume = "Resume"
)

// Campaign is one advertiser campaign. It owns its affiliates, its balances
// and its lifecycle; other actors only reach it through messages.
type Campaign struct {
	parent     ton.AccountID
	campaignID uint32
	advertiser ton.AccountID
	deployed   bool

	payout              ton.AccountID
	bot                 ton.AccountID
	state               State
	paused              bool
	startTimestamp      uint64
	lastActionTimestamp uint64
	advertiserFee       uint32
	affiliateFee        uint32
	details             *wire.CampaignDetails

	totalAffiliateEarnings *big.Int
	totalWithdrawnEarnings *big.Int
	maxCpaValue            *big.Int
	platformFeesOwed       *big.Int
	usdtBalance            *big.Int
	counters               Counters
	usdt                   *wire.USDTConfig

	affiliates map[uint32]*AffiliateRecord
	top        map[uint32]*big.Int
}

func (c *Campaign) Receive(tx *ledger.Tx, msg *ledger.Message) error {
	if msg.Bounced {
		return c.onBounce(tx, msg)
	}
	if wire.IsEmpty(msg.Body) {
		return nil
	}
	decoded, err := wire.Decode(msg.Body)
	if err != nil {
		return err
	}
	if m, ok := decoded.(*wire.ParentToChildDeployCampaign); ok {
		return c.deploy(tx, msg, m)
	}
	if !c.deployed {
		return coreerrors.ErrCampaignNotDeployed
	}

	switch m := decoded.(type) {
	case *wire.TextComment:
		return c.onComment(tx, msg, m)

	case *wire.ParentToChildStopCampaign:
		return c.setPaused(tx, msg, true)
	case *wire.ParentToChildResumeCampaign:
		return c.setPaused(tx, msg, false)
	case *wire.ParentToChildUpdateFeePercentages:
		return c.updateFees(tx, msg, m)
	case *wire.ParentToChildSeizeCampaignBalance:
		return c.seize(tx, msg)
	case *wire.ParentToChildCollectPlatformFees:
		return c.collectPlatformFees(tx, msg)
	case *wire.ParentToChildWithdrawUSDTToPayout:
		return c.withdrawUSDTToPayout(tx, msg, m)
	case *wire.ParentToChildPayAffiliateUSDTBounced:
		return c.payAffiliateUSDTBounced(tx, msg, m)
	case *wire.ParentToChildJettonNotificationFailure:
		return c.creditMissedNotification(tx, msg, m)

	case *wire.AdvertiserSetCampaignDetails:
		return c.setDetails(tx, msg, m)
	case *wire.AdvertiserReplenish:
		return c.replenish(tx, msg)
	case *wire.AdvertiserWithdrawFunds:
		return c.withdrawFunds(tx, msg, m)
	case *wire.AdvertiserUpdatePayoutAddress:
		return c.updatePayout(tx, msg, m)
	case *wire.AdvertiserAddNewAffiliate:
		return c.addAffiliate(tx, msg, m)
	case *wire.AdvertiserApproveAffiliate:
		return c.approveAffiliate(tx, msg, m)
	case *wire.AdvertiserRemoveAffiliate:
		return c.removeAffiliate(tx, msg, m)
	case *wire.AdvertiserUserAction:
		return c.recordAction(tx, msg, &m.UserAction, false)
	case *wire.AdvertiserApproveEarnings:
		return c.approveEarnings(tx, msg, m)
	case *wire.AdvertiserSignOffWithdrawals:
		return c.signOffWithdrawals(tx, msg, m)

	case *wire.BotCreateNewAffiliate:
		return c.botCreateAffiliate(tx, msg, m)
	case *wire.BotUserAction:
		return c.recordAction(tx, msg, &m.UserAction, true)

	case *wire.AffiliateCreateNewAffiliate:
		return c.selfRegister(tx, msg)
	case *wire.AffiliateWithdrawEarnings:
		return c.withdrawEarnings(tx, msg, m)

	case *wire.JettonTransferNotification:
		return c.onJettonNotification(tx, msg, m)
	case *wire.JettonExcesses:
		return nil

	default:
		return fmt.Errorf("campaign: unexpected op 0x%08x: %w", m.OpCode(), coreerrors.ErrInvalidMessage)
	}
}

func (c *Campaign) requireParent(from ton.AccountID) error {
	if from != c.parent {
		return coreerrors.ErrOnlyParentCanInvoke
	}
	return nil
}

func (c *Campaign) requireAdvertiser(from ton.AccountID) error {
	if from != c.advertiser {
		return coreerrors.ErrOnlyAdvertiserCanInvoke
	}
	return nil
}

func (c *Campaign) requireBot(from ton.AccountID) error {
	if from != c.bot {
		return coreerrors.ErrOnlyBotCanInvoke
	}
	return nil
}

func (c *Campaign) ref() wire.CampaignRef {
	return wire.CampaignRef{CampaignID: c.campaignID, Advertiser: c.advertiser}
}

// echo reports to the marketplace. Echoes are advisory and carry no value.
func (c *Campaign) echo(tx *ledger.Tx, body wire.Message) error {
	return tx.SendBody(c.parent, nil, false, body)
}

func (c *Campaign) paysUSDT() bool {
	return c.details != nil && c.details.PaymentMethod == wire.PaymentMethodUSDT
}

func (c *Campaign) expired(now int64) bool {
	if c.details == nil || c.details.CampaignValidForNumDays == nil {
		return false
	}
	deadline := int64(c.startTimestamp) + int64(*c.details.CampaignValidForNumDays)*SecondsPerDay
	return now >= deadline
}

// active is re-derived on every call: details installed, not expired and
// not paused.
func (c *Campaign) active(now int64) bool {
	return c.details != nil && !c.expired(now) && !c.paused
}

// effectiveState folds the pause flag and expiry into the stored state.
func (c *Campaign) effectiveState(now int64) State {
	switch {
	case c.paused:
		return StateStoppedByAdmin
	case c.expired(now):
		return StateExpired
	default:
		return c.state
	}
}

// outstanding is everything earned and not yet withdrawn.
func (c *Campaign) outstanding() *big.Int {
	return new(big.Int).Sub(c.totalAffiliateEarnings, c.totalWithdrawnEarnings)
}

// available is what the campaign can spend in its payment currency after
// platform fees and, for native campaigns, the storage reserve.
func (c *Campaign) available(tx *ledger.Tx) *big.Int {
	if c.paysUSDT() {
		return new(big.Int).Sub(c.usdtBalance, c.platformFeesOwed)
	}
	out := tx.Balance()
	out.Sub(out, MinTonsForStorage)
	return out.Sub(out, c.platformFeesOwed)
}

func (c *Campaign) deploy(tx *ledger.Tx, msg *ledger.Message, m *wire.ParentToChildDeployCampaign) error {
	if err := c.requireParent(msg.From); err != nil {
		return err
	}
	if c.deployed {
		return coreerrors.ErrCampaignAlreadyDeployed
	}
	if err := fees.ValidatePercentages(m.AdvertiserFeePercentage, m.AffiliateFeePercentage); err != nil {
		return err
	}
	c.deployed = true
	c.state = StateCreated
	c.payout = m.Payout
	c.bot = m.Bot
	c.advertiserFee = m.AdvertiserFeePercentage
	c.affiliateFee = m.AffiliateFeePercentage
	c.usdt = m.USDT
	tx.Emit(c.event(EventTypeCampaignCreated, map[string]string{
		"payout": c.payout.ToRaw(),
		"bot":    c.bot.ToRaw(),
	}))
	return c.echo(tx, &wire.ChildToParentCampaignCreated{CampaignRef: c.ref()})
}

func (c *Campaign) setDetails(tx *ledger.Tx, msg *ledger.Message, m *wire.AdvertiserSetCampaignDetails) error {
	if err := c.requireAdvertiser(msg.From); err != nil {
		return err
	}
	if c.state != StateCreated {
		return coreerrors.ErrMustBeInStateCampaignCreated
	}
	details := m.Details
	maxCpa, err := validateDetails(&details)
	if err != nil {
		return err
	}
	if details.PaymentMethod == wire.PaymentMethodUSDT && c.usdt == nil {
		return coreerrors.ErrUSDTNotConfigured
	}
	c.details = &details
	c.maxCpaValue = maxCpa
	c.startTimestamp = uint64(tx.Now())
	c.state = StateDetailsSetByAdvertiser
	tx.Emit(c.event(EventTypeDetailsSet, map[string]string{
		"paymentMethod": details.PaymentMethod.String(),
		"public":        strconv.FormatBool(details.IsPublicCampaign),
		"maxCpa":        maxCpa.String(),
	}))
	return c.echo(tx, &wire.ChildToParentCampaignDetailsSet{CampaignRef: c.ref(), PaymentMethod: details.PaymentMethod})
}

// validateDetails checks the configuration and returns its highest CPA.
func validateDetails(d *wire.CampaignDetails) (*big.Int, error) {
	if !d.PaymentMethod.Valid() {
		return nil, fmt.Errorf("campaign: payment method %d: %w", d.PaymentMethod, coreerrors.ErrInvalidCampaignDetails)
	}
	if len(d.RegularUsersCostPerAction)+len(d.PremiumUsersCostPerAction) == 0 {
		return nil, fmt.Errorf("campaign: no cost per action configured: %w", coreerrors.ErrInvalidCampaignDetails)
	}
	maxCpa := new(big.Int)
	for _, table := range []map[uint32]*big.Int{d.RegularUsersCostPerAction, d.PremiumUsersCostPerAction} {
		for op, cpa := range table {
			if cpa == nil || cpa.Sign() <= 0 {
				return nil, fmt.Errorf("campaign: op %d has no price: %w", op, coreerrors.ErrInvalidCampaignDetails)
			}
			if cpa.Cmp(maxCpa) > 0 {
				maxCpa.Set(cpa)
			}
		}
	}
	if d.CampaignValidForNumDays != nil && *d.CampaignValidForNumDays == 0 {
		return nil, fmt.Errorf("campaign: zero day validity: %w", coreerrors.ErrInvalidCampaignDetails)
	}
	return maxCpa, nil
}

func (c *Campaign) onComment(tx *ledger.Tx, msg *ledger.Message, m *wire.TextComment) error {
	switch m.Text {
	case CommentStop, CommentResume:
		if msg.From != c.parent {
			return coreerrors.ErrOnlyOwnerCanInvoke
		}
		return c.setPaused(tx, msg, m.Text == CommentStop)
	default:
		return fmt.Errorf("campaign: unknown comment %q: %w", m.Text, coreerrors.ErrInvalidMessage)
	}
}

func (c *Campaign) setPaused(tx *ledger.Tx, msg *ledger.Message, paused bool) error {
	if err := c.requireParent(msg.From); err != nil {
		return err
	}
	c.paused = paused
	typ := EventTypeResumed
	if paused {
		typ = EventTypeStopped
	}
	tx.Emit(c.event(typ, nil))
	return nil
}

func (c *Campaign) updateFees(tx *ledger.Tx, msg *ledger.Message, m *wire.ParentToChildUpdateFeePercentages) error {
	if err := c.requireParent(msg.From); err != nil {
		return err
	}
	if err := fees.ValidatePercentages(m.AdvertiserFeePercentage, m.AffiliateFeePercentage); err != nil {
		return err
	}
	c.advertiserFee = m.AdvertiserFeePercentage
	c.affiliateFee = m.AffiliateFeePercentage
	tx.Emit(c.event(EventTypeFeesUpdated, map[string]string{
		"advertiserFeePercentage": strconv.FormatUint(uint64(c.advertiserFee), 10),
		"affiliateFeePercentage":  strconv.FormatUint(uint64(c.affiliateFee), 10),
	}))
	return nil
}

func (c *Campaign) replenish(tx *ledger.Tx, msg *ledger.Message) error {
	if err := c.requireAdvertiser(msg.From); err != nil {
		return err
	}
	if c.paysUSDT() {
		return fmt.Errorf("campaign: native top-up of a USDT campaign: %w", coreerrors.ErrPaymentMethodMismatch)
	}
	return c.recordReplenish(tx, wire.PaymentMethodNative, msg.Value)
}

func (c *Campaign) recordReplenish(tx *ledger.Tx, method wire.PaymentMethod, amount *big.Int) error {
	c.counters.Replenishments++
	tx.Emit(c.event(EventTypeReplenished, map[string]string{
		"paymentMethod": method.String(),
		"amount":        amountString(amount),
	}))
	return c.echo(tx, &wire.ChildToParentCampaignReplenished{
		CampaignRef:   c.ref(),
		PaymentMethod: method,
		Amount:        new(big.Int).Set(amountOrZero(amount)),
	})
}

// withdrawFunds returns money not owed to anybody to the payout address.
func (c *Campaign) withdrawFunds(tx *ledger.Tx, msg *ledger.Message, m *wire.AdvertiserWithdrawFunds) error {
	if err := c.requireAdvertiser(msg.From); err != nil {
		return err
	}
	amount := amountOrZero(m.Amount)
	if amount.Sign() <= 0 {
		return coreerrors.ErrInvalidAmount
	}
	free := c.available(tx)
	free.Sub(free, c.outstanding())
	if amount.Cmp(free) > 0 {
		return fmt.Errorf("campaign: withdraw %s with %s free: %w", amount, free, coreerrors.ErrInsufficientCampaignFunds)
	}
	c.counters.AdvertiserWithdrawals++
	tx.Emit(c.event(EventTypeFundsWithdrawn, map[string]string{
		"payout": c.payout.ToRaw(),
		"amount": amount.String(),
	}))
	if c.paysUSDT() {
		c.usdtBalance.Sub(c.usdtBalance, amount)
		return c.sendJettons(tx, c.payout, amount, &wire.PayloadWithdrawToPayout{Amount: amount})
	}
	return tx.SendBody(c.payout, amount, true, nil)
}

func (c *Campaign) updatePayout(tx *ledger.Tx, msg *ledger.Message, m *wire.AdvertiserUpdatePayoutAddress) error {
	if err := c.requireAdvertiser(msg.From); err != nil {
		return err
	}
	c.payout = m.Payout
	tx.Emit(c.event(EventTypePayoutAddressSet, map[string]string{"payout": c.payout.ToRaw()}))
	return nil
}

// seize sends both balances to the marketplace whatever the lifecycle state.
func (c *Campaign) seize(tx *ledger.Tx, msg *ledger.Message) error {
	if err := c.requireParent(msg.From); err != nil {
		return err
	}
	usdt := new(big.Int).Set(c.usdtBalance)
	if usdt.Sign() > 0 && c.usdt != nil {
		payload := &wire.PayloadSeize{CampaignID: c.campaignID, Advertiser: c.advertiser, Amount: usdt}
		if err := c.sendJettons(tx, c.parent, usdt, payload); err != nil {
			return err
		}
		c.usdtBalance.SetInt64(0)
	} else {
		usdt.SetInt64(0)
	}
	native := tx.Balance()
	c.platformFeesOwed.SetInt64(0)
	tx.Emit(c.event(EventTypeBalanceSeized, map[string]string{
		"native": native.String(),
		"usdt":   usdt.String(),
	}))
	body, err := wire.Encode(&wire.ChildToParentCampaignSeized{
		CampaignRef:  c.ref(),
		NativeAmount: native,
		USDTAmount:   usdt,
	})
	if err != nil {
		return err
	}
	return tx.SendRemainingBalance(&ledger.Message{To: c.parent, Body: body})
}

func (c *Campaign) collectPlatformFees(tx *ledger.Tx, msg *ledger.Message) error {
	if err := c.requireParent(msg.From); err != nil {
		return err
	}
	owed := new(big.Int).Set(c.platformFeesOwed)
	if owed.Sign() == 0 {
		return nil
	}
	c.platformFeesOwed.SetInt64(0)
	tx.Emit(c.event(EventTypeFeesCollected, map[string]string{"amount": owed.String()}))
	if c.paysUSDT() {
		c.usdtBalance.Sub(c.usdtBalance, owed)
		return c.sendJettons(tx, c.parent, owed, &wire.PayloadPlatformFee{
			CampaignID: c.campaignID,
			Advertiser: c.advertiser,
			Amount:     owed,
		})
	}
	return tx.SendBody(c.parent, owed, true, &wire.ChildToParentPlatformFees{CampaignRef: c.ref(), Amount: owed})
}

func amountOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
