package marketplace

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/tonkeeper/tongo/ton"

	coreerrors "tonaffiliate/core/errors"
	"tonaffiliate/core/ledger"
	"tonaffiliate/core/wire"
	"tonaffiliate/native/campaign"
	"tonaffiliate/native/fees"
	"tonaffiliate/native/jetton"
)

// Marketplace deploys campaigns, relays owner commands to them and keeps
// statistics from their echoes. It never touches campaign state directly.
type Marketplace struct {
	owner         ton.AccountID
	bot           ton.AccountID
	campaignCount uint32
	advertiserFee uint32
	affiliateFee  uint32
	usdt          *wire.USDTConfig
	stats         Stats
}

func newMarketplace(owner, bot ton.AccountID, advertiserFee, affiliateFee uint32) *Marketplace {
	return &Marketplace{
		owner:         owner,
		bot:           bot,
		advertiserFee: advertiserFee,
		affiliateFee:  affiliateFee,
		stats:         newStats(),
	}
}

func (mp *Marketplace) Receive(tx *ledger.Tx, msg *ledger.Message) error {
	if msg.Bounced {
		return mp.onBounce(tx, msg)
	}
	if wire.IsEmpty(msg.Body) {
		// Plain top-up.
		return nil
	}
	decoded, err := wire.Decode(msg.Body)
	if err != nil {
		return err
	}
	switch m := decoded.(type) {
	case *wire.AdvertiserDeployNewCampaign:
		return mp.deployCampaign(tx, msg)

	case *wire.AdminStopCampaign:
		return mp.forward(tx, msg, m.CampaignRef, &wire.ParentToChildStopCampaign{})
	case *wire.AdminResumeCampaign:
		return mp.forward(tx, msg, m.CampaignRef, &wire.ParentToChildResumeCampaign{})
	case *wire.AdminModifyCampaignFeePercentage:
		if err := mp.requireOwner(msg.From); err != nil {
			return err
		}
		if err := fees.ValidatePercentages(m.AdvertiserFeePercentage, m.AffiliateFeePercentage); err != nil {
			return err
		}
		return mp.forward(tx, msg, m.CampaignRef, &wire.ParentToChildUpdateFeePercentages{
			AdvertiserFeePercentage: m.AdvertiserFeePercentage,
			AffiliateFeePercentage:  m.AffiliateFeePercentage,
		})
	case *wire.AdminSeizeCampaignBalance:
		return mp.forward(tx, msg, m.CampaignRef, &wire.ParentToChildSeizeCampaignBalance{})
	case *wire.AdminCollectPlatformFees:
		return mp.forward(tx, msg, m.CampaignRef, &wire.ParentToChildCollectPlatformFees{})
	case *wire.AdminWithdrawUSDTToPayout:
		return mp.forward(tx, msg, m.CampaignRef, &wire.ParentToChildWithdrawUSDTToPayout{Amount: m.Amount})
	case *wire.AdminPayAffiliateUSDTBounced:
		return mp.forward(tx, msg, m.CampaignRef, &wire.ParentToChildPayAffiliateUSDTBounced{
			AffiliateID: m.AffiliateID,
			Amount:      m.Amount,
		})
	case *wire.AdminJettonNotificationMessageFailure:
		return mp.forward(tx, msg, m.CampaignRef, &wire.ParentToChildJettonNotificationFailure{Amount: m.Amount})

	case *wire.AdminWithdrawFunds:
		return mp.withdrawFunds(tx, msg, m)
	case *wire.AdminUpdateDefaultFees:
		return mp.updateDefaultFees(tx, msg, m)
	case *wire.AdminSetBotAddress:
		return mp.setBot(tx, msg, m)
	case *wire.AdminSetUSDTConfig:
		return mp.setUSDTConfig(tx, msg, m)

	case *wire.ChildToParentCampaignCreated,
		*wire.ChildToParentCampaignDetailsSet,
		*wire.ChildToParentAffiliateCreated,
		*wire.ChildToParentAffiliateWithdrawEarnings,
		*wire.ChildToParentCampaignReplenished,
		*wire.ChildToParentPlatformFees,
		*wire.ChildToParentCampaignSeized:
		return mp.onEcho(tx, msg, decoded)

	case *wire.JettonTransferNotification:
		return mp.onJettonNotification(tx, msg, m)
	case *wire.JettonExcesses:
		return nil

	default:
		return fmt.Errorf("marketplace: unexpected op 0x%08x: %w", m.OpCode(), coreerrors.ErrInvalidMessage)
	}
}

func (mp *Marketplace) requireOwner(from ton.AccountID) error {
	if from != mp.owner {
		return coreerrors.ErrAccessDenied
	}
	return nil
}

// deployCampaign assigns the next id and deploys the campaign at its
// derived address, forwarding the whole attached value.
func (mp *Marketplace) deployCampaign(tx *ledger.Tx, msg *ledger.Message) error {
	value := msg.Value
	if value == nil || value.Cmp(MinDeployValue) < 0 {
		return fmt.Errorf("marketplace: deploy with %v, need %s: %w", value, MinDeployValue, coreerrors.ErrInsufficientFundsToDeploy)
	}
	id := mp.campaignCount + 1
	init, err := campaign.StateInit(tx.Self(), id, msg.From)
	if err != nil {
		return err
	}
	addr, err := init.Address()
	if err != nil {
		return err
	}
	var usdt *wire.USDTConfig
	if mp.usdt != nil {
		wallet, err := jetton.WalletAddress(mp.usdt.Master, addr, mp.usdt.WalletCode)
		if err != nil {
			return err
		}
		usdt = &wire.USDTConfig{Master: mp.usdt.Master, Wallet: wallet, WalletCode: mp.usdt.WalletCode}
	}
	out, err := ledger.NewMessage(addr, value, &wire.ParentToChildDeployCampaign{
		Payout:                  msg.From,
		Bot:                     mp.bot,
		AdvertiserFeePercentage: mp.advertiserFee,
		AffiliateFeePercentage:  mp.affiliateFee,
		USDT:                    usdt,
	})
	if err != nil {
		return err
	}
	out.StateInit = init
	if err := tx.Send(out); err != nil {
		return err
	}
	mp.campaignCount = id
	attrs := refAttrs(wire.CampaignRef{CampaignID: id, Advertiser: msg.From})
	attrs["campaign"] = addr.ToRaw()
	attrs["value"] = value.String()
	tx.Emit(newEvent(EventTypeCampaignDeployed, attrs))
	return nil
}

// forward relays an owner command to the campaign derived from ref. The
// attached value travels with it; a bounce brings it back here.
func (mp *Marketplace) forward(tx *ledger.Tx, msg *ledger.Message, ref wire.CampaignRef, body wire.Message) error {
	if err := mp.requireOwner(msg.From); err != nil {
		return err
	}
	addr, err := campaign.Address(tx.Self(), ref.CampaignID, ref.Advertiser)
	if err != nil {
		return err
	}
	if err := tx.SendBody(addr, msg.Value, true, body); err != nil {
		return err
	}
	attrs := refAttrs(ref)
	attrs["campaign"] = addr.ToRaw()
	attrs["op"] = fmt.Sprintf("0x%08x", body.OpCode())
	tx.Emit(newEvent(EventTypeAdminForwarded, attrs))
	return nil
}

func (mp *Marketplace) onBounce(tx *ledger.Tx, msg *ledger.Message) error {
	op := uint32(0)
	if decoded, err := wire.DecodeBounced(msg.Body); err == nil {
		op = decoded.OpCode()
	}
	tx.Emit(newEvent(EventTypeForwardBounced, map[string]string{
		"campaign": msg.From.ToRaw(),
		"op":       fmt.Sprintf("0x%08x", op),
		"value":    amountString(msg.Value),
	}))
	return nil
}

func (mp *Marketplace) withdrawFunds(tx *ledger.Tx, msg *ledger.Message, m *wire.AdminWithdrawFunds) error {
	if err := mp.requireOwner(msg.From); err != nil {
		return err
	}
	if m.Amount == nil || m.Amount.Sign() <= 0 {
		return coreerrors.ErrInvalidAmount
	}
	free := tx.Balance()
	free.Sub(free, MinTonsForStorage)
	if m.Amount.Cmp(free) > 0 {
		return fmt.Errorf("marketplace: withdraw %s with %s free: %w", m.Amount, free, coreerrors.ErrInsufficientBalance)
	}
	tx.Emit(newEvent(EventTypeFundsWithdrawn, map[string]string{"amount": m.Amount.String()}))
	return tx.SendBody(mp.owner, m.Amount, false, nil)
}

func (mp *Marketplace) updateDefaultFees(tx *ledger.Tx, msg *ledger.Message, m *wire.AdminUpdateDefaultFees) error {
	if err := mp.requireOwner(msg.From); err != nil {
		return err
	}
	if err := fees.ValidatePercentages(m.AdvertiserFeePercentage, m.AffiliateFeePercentage); err != nil {
		return err
	}
	mp.advertiserFee = m.AdvertiserFeePercentage
	mp.affiliateFee = m.AffiliateFeePercentage
	tx.Emit(newEvent(EventTypeConfigUpdated, map[string]string{
		"advertiserFeePercentage": strconv.FormatUint(uint64(mp.advertiserFee), 10),
		"affiliateFeePercentage":  strconv.FormatUint(uint64(mp.affiliateFee), 10),
	}))
	return nil
}

func (mp *Marketplace) setBot(tx *ledger.Tx, msg *ledger.Message, m *wire.AdminSetBotAddress) error {
	if err := mp.requireOwner(msg.From); err != nil {
		return err
	}
	mp.bot = m.Bot
	tx.Emit(newEvent(EventTypeConfigUpdated, map[string]string{"bot": m.Bot.ToRaw()}))
	return nil
}

// setUSDTConfig installs the jetton master and wallet code. The
// marketplace's own wallet is derived from them; campaigns deployed earlier
// keep the configuration they were deployed with.
func (mp *Marketplace) setUSDTConfig(tx *ledger.Tx, msg *ledger.Message, m *wire.AdminSetUSDTConfig) error {
	if err := mp.requireOwner(msg.From); err != nil {
		return err
	}
	if m.WalletCode == nil {
		return fmt.Errorf("marketplace: missing wallet code: %w", coreerrors.ErrInvalidMessage)
	}
	wallet, err := jetton.WalletAddress(m.Master, tx.Self(), m.WalletCode)
	if err != nil {
		return err
	}
	mp.usdt = &wire.USDTConfig{Master: m.Master, Wallet: wallet, WalletCode: m.WalletCode}
	tx.Emit(newEvent(EventTypeConfigUpdated, map[string]string{
		"usdtMaster": m.Master.ToRaw(),
		"usdtWallet": wallet.ToRaw(),
	}))
	return nil
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
