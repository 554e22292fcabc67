package wire

import (
	"math/big"

	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/ton"
)

// CampaignRef names a campaign by the pair its address is derived from.
type CampaignRef struct {
	CampaignID uint32
	Advertiser ton.AccountID
}

func (r *CampaignRef) store(b *Builder) {
	b.Uint(uint64(r.CampaignID), 32).Address(r.Advertiser)
}

func (r *CampaignRef) load(s *Slice) {
	r.CampaignID = uint32(s.Uint(32))
	r.Advertiser = s.Address()
}

// AdvertiserDeployNewCampaign asks the marketplace to deploy a campaign owned
// by the sender.
type AdvertiserDeployNewCampaign struct{}

func (*AdvertiserDeployNewCampaign) OpCode() uint32 { return OpAdvertiserDeployNewCampaign }
func (*AdvertiserDeployNewCampaign) store(*Builder) {}
func (*AdvertiserDeployNewCampaign) load(*Slice)    {}

type AdminStopCampaign struct{ CampaignRef }

func (*AdminStopCampaign) OpCode() uint32 { return OpAdminStopCampaign }

type AdminResumeCampaign struct{ CampaignRef }

func (*AdminResumeCampaign) OpCode() uint32 { return OpAdminResumeCampaign }

type AdminSeizeCampaignBalance struct{ CampaignRef }

func (*AdminSeizeCampaignBalance) OpCode() uint32 { return OpAdminSeizeCampaignBalance }

type AdminCollectPlatformFees struct{ CampaignRef }

func (*AdminCollectPlatformFees) OpCode() uint32 { return OpAdminCollectPlatformFees }

// AdminModifyCampaignFeePercentage overrides the fee split of one campaign.
type AdminModifyCampaignFeePercentage struct {
	CampaignRef
	AdvertiserFeePercentage uint32
	AffiliateFeePercentage  uint32
}

func (*AdminModifyCampaignFeePercentage) OpCode() uint32 { return OpAdminModifyCampaignFeePercentage }

func (m *AdminModifyCampaignFeePercentage) store(b *Builder) {
	m.CampaignRef.store(b)
	b.Uint(uint64(m.AdvertiserFeePercentage), 32).Uint(uint64(m.AffiliateFeePercentage), 32)
}

func (m *AdminModifyCampaignFeePercentage) load(s *Slice) {
	m.CampaignRef.load(s)
	m.AdvertiserFeePercentage = uint32(s.Uint(32))
	m.AffiliateFeePercentage = uint32(s.Uint(32))
}

type AdminWithdrawUSDTToPayout struct {
	CampaignRef
	Amount *big.Int
}

func (*AdminWithdrawUSDTToPayout) OpCode() uint32 { return OpAdminWithdrawUSDTToPayout }

func (m *AdminWithdrawUSDTToPayout) store(b *Builder) {
	m.CampaignRef.store(b)
	b.Coins(m.Amount)
}

func (m *AdminWithdrawUSDTToPayout) load(s *Slice) {
	m.CampaignRef.load(s)
	m.Amount = s.Coins()
}

// AdminPayAffiliateUSDTBounced re-sends a USDT payout whose transfer bounced
// after the campaign had already booked it.
type AdminPayAffiliateUSDTBounced struct {
	CampaignRef
	AffiliateID uint32
	Amount      *big.Int
}

func (*AdminPayAffiliateUSDTBounced) OpCode() uint32 { return OpAdminPayAffiliateUSDTBounced }

func (m *AdminPayAffiliateUSDTBounced) store(b *Builder) {
	m.CampaignRef.store(b)
	b.Uint(uint64(m.AffiliateID), 32).Coins(m.Amount)
}

func (m *AdminPayAffiliateUSDTBounced) load(s *Slice) {
	m.CampaignRef.load(s)
	m.AffiliateID = uint32(s.Uint(32))
	m.Amount = s.Coins()
}

// AdminJettonNotificationMessageFailure credits a campaign with USDT that
// reached its wallet without a usable notification.
type AdminJettonNotificationMessageFailure struct {
	CampaignRef
	Amount *big.Int
}

func (*AdminJettonNotificationMessageFailure) OpCode() uint32 {
	return OpAdminJettonNotificationMessageFailure
}

func (m *AdminJettonNotificationMessageFailure) store(b *Builder) {
	m.CampaignRef.store(b)
	b.Coins(m.Amount)
}

func (m *AdminJettonNotificationMessageFailure) load(s *Slice) {
	m.CampaignRef.load(s)
	m.Amount = s.Coins()
}

// AdminWithdrawFunds moves native coins from the marketplace to its owner.
type AdminWithdrawFunds struct {
	Amount *big.Int
}

func (*AdminWithdrawFunds) OpCode() uint32     { return OpAdminWithdrawFunds }
func (m *AdminWithdrawFunds) store(b *Builder) { b.Coins(m.Amount) }
func (m *AdminWithdrawFunds) load(s *Slice)    { m.Amount = s.Coins() }

// AdminUpdateDefaultFees sets the fee split given to newly deployed campaigns.
type AdminUpdateDefaultFees struct {
	AdvertiserFeePercentage uint32
	AffiliateFeePercentage  uint32
}

func (*AdminUpdateDefaultFees) OpCode() uint32 { return OpAdminUpdateDefaultFees }

func (m *AdminUpdateDefaultFees) store(b *Builder) {
	b.Uint(uint64(m.AdvertiserFeePercentage), 32).Uint(uint64(m.AffiliateFeePercentage), 32)
}

func (m *AdminUpdateDefaultFees) load(s *Slice) {
	m.AdvertiserFeePercentage = uint32(s.Uint(32))
	m.AffiliateFeePercentage = uint32(s.Uint(32))
}

type AdminSetBotAddress struct {
	Bot ton.AccountID
}

func (*AdminSetBotAddress) OpCode() uint32     { return OpAdminSetBotAddress }
func (m *AdminSetBotAddress) store(b *Builder) { b.Address(m.Bot) }
func (m *AdminSetBotAddress) load(s *Slice)    { m.Bot = s.Address() }

// AdminSetUSDTConfig points the marketplace at a jetton master. The wallet
// code is needed to derive wallet addresses locally.
type AdminSetUSDTConfig struct {
	Master     ton.AccountID
	WalletCode *boc.Cell
}

func (*AdminSetUSDTConfig) OpCode() uint32     { return OpAdminSetUSDTConfig }
func (m *AdminSetUSDTConfig) store(b *Builder) { b.Address(m.Master).Ref(m.WalletCode) }

func (m *AdminSetUSDTConfig) load(s *Slice) {
	m.Master = s.Address()
	m.WalletCode = s.Ref()
}

// USDTConfig is the jetton configuration handed to campaigns.
type USDTConfig struct {
	Master     ton.AccountID
	Wallet     ton.AccountID
	WalletCode *boc.Cell
}

func (b *Builder) USDTConfig(c *USDTConfig) *Builder {
	if c == nil {
		return b.Bool(false)
	}
	return b.Bool(true).RefWith(func(rb *Builder) {
		rb.Address(c.Master).Address(c.Wallet).Ref(c.WalletCode)
	})
}

func (s *Slice) USDTConfig() *USDTConfig {
	if !s.Bool() {
		return nil
	}
	out := &USDTConfig{}
	s.RefWith(func(rs *Slice) {
		out.Master = rs.Address()
		out.Wallet = rs.Address()
		out.WalletCode = rs.Ref()
	})
	if s.err != nil {
		return nil
	}
	return out
}

// ParentToChildDeployCampaign initializes a freshly deployed campaign. The
// campaign's own USDT wallet is derived by the marketplace and passed in.
type ParentToChildDeployCampaign struct {
	Payout                  ton.AccountID
	Bot                     ton.AccountID
	AdvertiserFeePercentage uint32
	AffiliateFeePercentage  uint32
	USDT                    *USDTConfig
}

func (*ParentToChildDeployCampaign) OpCode() uint32 { return OpParentToChildDeployCampaign }

func (m *ParentToChildDeployCampaign) store(b *Builder) {
	b.Address(m.Payout).Address(m.Bot)
	b.Uint(uint64(m.AdvertiserFeePercentage), 32).Uint(uint64(m.AffiliateFeePercentage), 32)
	b.USDTConfig(m.USDT)
}

func (m *ParentToChildDeployCampaign) load(s *Slice) {
	m.Payout = s.Address()
	m.Bot = s.Address()
	m.AdvertiserFeePercentage = uint32(s.Uint(32))
	m.AffiliateFeePercentage = uint32(s.Uint(32))
	m.USDT = s.USDTConfig()
}

type ParentToChildStopCampaign struct{}

func (*ParentToChildStopCampaign) OpCode() uint32 { return OpParentToChildStopCampaign }
func (*ParentToChildStopCampaign) store(*Builder) {}
func (*ParentToChildStopCampaign) load(*Slice)    {}

type ParentToChildResumeCampaign struct{}

func (*ParentToChildResumeCampaign) OpCode() uint32 { return OpParentToChildResumeCampaign }
func (*ParentToChildResumeCampaign) store(*Builder) {}
func (*ParentToChildResumeCampaign) load(*Slice)    {}

type ParentToChildSeizeCampaignBalance struct{}

func (*ParentToChildSeizeCampaignBalance) OpCode() uint32 { return OpParentToChildSeizeCampaignBalance }
func (*ParentToChildSeizeCampaignBalance) store(*Builder) {}
func (*ParentToChildSeizeCampaignBalance) load(*Slice)    {}

type ParentToChildCollectPlatformFees struct{}

func (*ParentToChildCollectPlatformFees) OpCode() uint32 { return OpParentToChildCollectPlatformFees }
func (*ParentToChildCollectPlatformFees) store(*Builder) {}
func (*ParentToChildCollectPlatformFees) load(*Slice)    {}

type ParentToChildUpdateFeePercentages struct {
	AdvertiserFeePercentage uint32
	AffiliateFeePercentage  uint32
}

func (*ParentToChildUpdateFeePercentages) OpCode() uint32 { return OpParentToChildUpdateFeePercentages }

func (m *ParentToChildUpdateFeePercentages) store(b *Builder) {
	b.Uint(uint64(m.AdvertiserFeePercentage), 32).Uint(uint64(m.AffiliateFeePercentage), 32)
}

func (m *ParentToChildUpdateFeePercentages) load(s *Slice) {
	m.AdvertiserFeePercentage = uint32(s.Uint(32))
	m.AffiliateFeePercentage = uint32(s.Uint(32))
}

type ParentToChildWithdrawUSDTToPayout struct {
	Amount *big.Int
}

func (*ParentToChildWithdrawUSDTToPayout) OpCode() uint32     { return OpParentToChildWithdrawUSDTToPayout }
func (m *ParentToChildWithdrawUSDTToPayout) store(b *Builder) { b.Coins(m.Amount) }
func (m *ParentToChildWithdrawUSDTToPayout) load(s *Slice)    { m.Amount = s.Coins() }

type ParentToChildPayAffiliateUSDTBounced struct {
	AffiliateID uint32
	Amount      *big.Int
}

func (*ParentToChildPayAffiliateUSDTBounced) OpCode() uint32 {
	return OpParentToChildPayAffiliateUSDTBounced
}

func (m *ParentToChildPayAffiliateUSDTBounced) store(b *Builder) {
	b.Uint(uint64(m.AffiliateID), 32).Coins(m.Amount)
}

func (m *ParentToChildPayAffiliateUSDTBounced) load(s *Slice) {
	m.AffiliateID = uint32(s.Uint(32))
	m.Amount = s.Coins()
}

type ParentToChildJettonNotificationFailure struct {
	Amount *big.Int
}

func (*ParentToChildJettonNotificationFailure) OpCode() uint32 {
	return OpParentToChildJettonNotificationFailure
}
func (m *ParentToChildJettonNotificationFailure) store(b *Builder) { b.Coins(m.Amount) }
func (m *ParentToChildJettonNotificationFailure) load(s *Slice)    { m.Amount = s.Coins() }

// ChildToParentCampaignCreated and the other echoes let the marketplace keep
// aggregate statistics. Each carries the campaign identity so the parent can
// re-derive and check the sender address.
type ChildToParentCampaignCreated struct{ CampaignRef }

func (*ChildToParentCampaignCreated) OpCode() uint32 { return OpChildToParentCampaignCreated }

type ChildToParentCampaignDetailsSet struct {
	CampaignRef
	PaymentMethod PaymentMethod
}

func (*ChildToParentCampaignDetailsSet) OpCode() uint32 { return OpChildToParentCampaignDetailsSet }

func (m *ChildToParentCampaignDetailsSet) store(b *Builder) {
	m.CampaignRef.store(b)
	b.Uint(uint64(m.PaymentMethod), 8)
}

func (m *ChildToParentCampaignDetailsSet) load(s *Slice) {
	m.CampaignRef.load(s)
	m.PaymentMethod = PaymentMethod(s.Uint(8))
}

type ChildToParentAffiliateCreated struct {
	CampaignRef
	AffiliateID uint32
	Affiliate   ton.AccountID
	State       uint8
}

func (*ChildToParentAffiliateCreated) OpCode() uint32 { return OpChildToParentAffiliateCreated }

func (m *ChildToParentAffiliateCreated) store(b *Builder) {
	m.CampaignRef.store(b)
	b.Uint(uint64(m.AffiliateID), 32).Address(m.Affiliate).Uint(uint64(m.State), 8)
}

func (m *ChildToParentAffiliateCreated) load(s *Slice) {
	m.CampaignRef.load(s)
	m.AffiliateID = uint32(s.Uint(32))
	m.Affiliate = s.Address()
	m.State = uint8(s.Uint(8))
}

type ChildToParentAffiliateWithdrawEarnings struct {
	CampaignRef
	AffiliateID uint32
	Amount      *big.Int
	Fee         *big.Int
}

func (*ChildToParentAffiliateWithdrawEarnings) OpCode() uint32 {
	return OpChildToParentAffiliateWithdrawEarnings
}

func (m *ChildToParentAffiliateWithdrawEarnings) store(b *Builder) {
	m.CampaignRef.store(b)
	b.Uint(uint64(m.AffiliateID), 32).Coins(m.Amount).Coins(m.Fee)
}

func (m *ChildToParentAffiliateWithdrawEarnings) load(s *Slice) {
	m.CampaignRef.load(s)
	m.AffiliateID = uint32(s.Uint(32))
	m.Amount = s.Coins()
	m.Fee = s.Coins()
}

type ChildToParentCampaignReplenished struct {
	CampaignRef
	PaymentMethod PaymentMethod
	Amount        *big.Int
}

func (*ChildToParentCampaignReplenished) OpCode() uint32 { return OpChildToParentCampaignReplenished }

func (m *ChildToParentCampaignReplenished) store(b *Builder) {
	m.CampaignRef.store(b)
	b.Uint(uint64(m.PaymentMethod), 8).Coins(m.Amount)
}

func (m *ChildToParentCampaignReplenished) load(s *Slice) {
	m.CampaignRef.load(s)
	m.PaymentMethod = PaymentMethod(s.Uint(8))
	m.Amount = s.Coins()
}

// ChildToParentPlatformFees delivers native coin platform fees. The value of
// the carrying message is the fee amount.
type ChildToParentPlatformFees struct {
	CampaignRef
	Amount *big.Int
}

func (*ChildToParentPlatformFees) OpCode() uint32 { return OpChildToParentPlatformFees }

func (m *ChildToParentPlatformFees) store(b *Builder) {
	m.CampaignRef.store(b)
	b.Coins(m.Amount)
}

func (m *ChildToParentPlatformFees) load(s *Slice) {
	m.CampaignRef.load(s)
	m.Amount = s.Coins()
}

type ChildToParentCampaignSeized struct {
	CampaignRef
	NativeAmount *big.Int
	USDTAmount   *big.Int
}

func (*ChildToParentCampaignSeized) OpCode() uint32 { return OpChildToParentCampaignSeized }

func (m *ChildToParentCampaignSeized) store(b *Builder) {
	m.CampaignRef.store(b)
	b.Coins(m.NativeAmount).Coins(m.USDTAmount)
}

func (m *ChildToParentCampaignSeized) load(s *Slice) {
	m.CampaignRef.load(s)
	m.NativeAmount = s.Coins()
	m.USDTAmount = s.Coins()
}

func init() {
	register(func() Message { return &AdvertiserDeployNewCampaign{} })
	register(func() Message { return &AdminStopCampaign{} })
	register(func() Message { return &AdminResumeCampaign{} })
	register(func() Message { return &AdminModifyCampaignFeePercentage{} })
	register(func() Message { return &AdminSeizeCampaignBalance{} })
	register(func() Message { return &AdminWithdrawUSDTToPayout{} })
	register(func() Message { return &AdminPayAffiliateUSDTBounced{} })
	register(func() Message { return &AdminJettonNotificationMessageFailure{} })
	register(func() Message { return &AdminCollectPlatformFees{} })
	register(func() Message { return &AdminWithdrawFunds{} })
	register(func() Message { return &AdminUpdateDefaultFees{} })
	register(func() Message { return &AdminSetBotAddress{} })
	register(func() Message { return &AdminSetUSDTConfig{} })

	register(func() Message { return &ParentToChildDeployCampaign{} })
	register(func() Message { return &ParentToChildStopCampaign{} })
	register(func() Message { return &ParentToChildResumeCampaign{} })
	register(func() Message { return &ParentToChildUpdateFeePercentages{} })
	register(func() Message { return &ParentToChildSeizeCampaignBalance{} })
	register(func() Message { return &ParentToChildWithdrawUSDTToPayout{} })
	register(func() Message { return &ParentToChildPayAffiliateUSDTBounced{} })
	register(func() Message { return &ParentToChildJettonNotificationFailure{} })
	register(func() Message { return &ParentToChildCollectPlatformFees{} })

	register(func() Message { return &ChildToParentCampaignCreated{} })
	register(func() Message { return &ChildToParentCampaignDetailsSet{} })
	register(func() Message { return &ChildToParentAffiliateCreated{} })
	register(func() Message { return &ChildToParentAffiliateWithdrawEarnings{} })
	register(func() Message { return &ChildToParentCampaignReplenished{} })
	register(func() Message { return &ChildToParentPlatformFees{} })
	register(func() Message { return &ChildToParentCampaignSeized{} })
}
