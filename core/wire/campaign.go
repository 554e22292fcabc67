package wire

import (
	"math/big"

	"github.com/tonkeeper/tongo/ton"
)

// PaymentMethod selects the currency a campaign settles in.
type PaymentMethod uint8

const (
	PaymentMethodNative PaymentMethod = 0
	PaymentMethodUSDT   PaymentMethod = 1
)

func (p PaymentMethod) Valid() bool {
	return p == PaymentMethodNative || p == PaymentMethodUSDT
}

func (p PaymentMethod) String() string {
	switch p {
	case PaymentMethodNative:
		return "TON"
	case PaymentMethodUSDT:
		return "USDT"
	default:
		return "unknown"
	}
}

// CampaignDetails is the advertiser supplied campaign configuration.
type CampaignDetails struct {
	RegularUsersCostPerAction               map[uint32]*big.Int
	PremiumUsersCostPerAction               map[uint32]*big.Int
	IsPublicCampaign                        bool
	CampaignValidForNumDays                 *uint32
	PaymentMethod                           PaymentMethod
	RequiresAdvertiserApprovalForWithdrawal bool
}

// CampaignDetails writes d inline.
func (b *Builder) CampaignDetails(d *CampaignDetails) *Builder {
	b.CoinsDict(d.RegularUsersCostPerAction).CoinsDict(d.PremiumUsersCostPerAction).Bool(d.IsPublicCampaign)
	if d.CampaignValidForNumDays != nil {
		b.Bool(true).Uint(uint64(*d.CampaignValidForNumDays), 32)
	} else {
		b.Bool(false)
	}
	return b.Uint(uint64(d.PaymentMethod), 8).Bool(d.RequiresAdvertiserApprovalForWithdrawal)
}

// CampaignDetails reads details written by Builder.CampaignDetails.
func (s *Slice) CampaignDetails() *CampaignDetails {
	d := &CampaignDetails{}
	d.RegularUsersCostPerAction = s.CoinsDict()
	d.PremiumUsersCostPerAction = s.CoinsDict()
	d.IsPublicCampaign = s.Bool()
	if s.Bool() {
		days := uint32(s.Uint(32))
		d.CampaignValidForNumDays = &days
	}
	d.PaymentMethod = PaymentMethod(s.Uint(8))
	d.RequiresAdvertiserApprovalForWithdrawal = s.Bool()
	return d
}

// AdvertiserSetCampaignDetails installs the campaign configuration.
type AdvertiserSetCampaignDetails struct {
	Details CampaignDetails
}

func (*AdvertiserSetCampaignDetails) OpCode() uint32     { return OpAdvertiserSetCampaignDetails }
func (m *AdvertiserSetCampaignDetails) store(b *Builder) { b.CampaignDetails(&m.Details) }
func (m *AdvertiserSetCampaignDetails) load(s *Slice)    { m.Details = *s.CampaignDetails() }

// AdvertiserReplenish tops up a native coin campaign with the attached value.
type AdvertiserReplenish struct{}

func (*AdvertiserReplenish) OpCode() uint32 { return OpAdvertiserReplenish }
func (*AdvertiserReplenish) store(*Builder) {}
func (*AdvertiserReplenish) load(*Slice)    {}

// AdvertiserWithdrawFunds withdraws funds not owed to affiliates.
type AdvertiserWithdrawFunds struct {
	Amount *big.Int
}

func (*AdvertiserWithdrawFunds) OpCode() uint32     { return OpAdvertiserWithdrawFunds }
func (m *AdvertiserWithdrawFunds) store(b *Builder) { b.Coins(m.Amount) }
func (m *AdvertiserWithdrawFunds) load(s *Slice)    { m.Amount = s.Coins() }

type AdvertiserAddNewAffiliate struct {
	Affiliate ton.AccountID
}

func (*AdvertiserAddNewAffiliate) OpCode() uint32     { return OpAdvertiserAddNewAffiliate }
func (m *AdvertiserAddNewAffiliate) store(b *Builder) { b.Address(m.Affiliate) }
func (m *AdvertiserAddNewAffiliate) load(s *Slice)    { m.Affiliate = s.Address() }

type AdvertiserApproveAffiliate struct {
	AffiliateID uint32
}

func (*AdvertiserApproveAffiliate) OpCode() uint32     { return OpAdvertiserApproveAffiliate }
func (m *AdvertiserApproveAffiliate) store(b *Builder) { b.Uint(uint64(m.AffiliateID), 32) }
func (m *AdvertiserApproveAffiliate) load(s *Slice)    { m.AffiliateID = uint32(s.Uint(32)) }

type AdvertiserRemoveAffiliate struct {
	AffiliateID uint32
}

func (*AdvertiserRemoveAffiliate) OpCode() uint32     { return OpAdvertiserRemoveAffiliate }
func (m *AdvertiserRemoveAffiliate) store(b *Builder) { b.Uint(uint64(m.AffiliateID), 32) }
func (m *AdvertiserRemoveAffiliate) load(s *Slice)    { m.AffiliateID = uint32(s.Uint(32)) }

// UserAction is the shared layout of bot and advertiser action reports.
type UserAction struct {
	AffiliateID      uint32
	UserActionOpCode uint32
	IsPremiumUser    bool
}

func (m *UserAction) store(b *Builder) {
	b.Uint(uint64(m.AffiliateID), 32).Uint(uint64(m.UserActionOpCode), 32).Bool(m.IsPremiumUser)
}

func (m *UserAction) load(s *Slice) {
	m.AffiliateID = uint32(s.Uint(32))
	m.UserActionOpCode = uint32(s.Uint(32))
	m.IsPremiumUser = s.Bool()
}

// BotUserAction reports a user action verified by the bot (op codes below
// BotOpCodeLimit).
type BotUserAction struct{ UserAction }

func (*BotUserAction) OpCode() uint32 { return OpBotUserAction }

// AdvertiserUserAction reports a user action verified by the advertiser
// (op codes at or above BotOpCodeLimit).
type AdvertiserUserAction struct{ UserAction }

func (*AdvertiserUserAction) OpCode() uint32 { return OpAdvertiserUserAction }

type AdvertiserApproveEarnings struct {
	AffiliateID uint32
	Amount      *big.Int
}

func (*AdvertiserApproveEarnings) OpCode() uint32 { return OpAdvertiserApproveEarnings }

func (m *AdvertiserApproveEarnings) store(b *Builder) {
	b.Uint(uint64(m.AffiliateID), 32).Coins(m.Amount)
}

func (m *AdvertiserApproveEarnings) load(s *Slice) {
	m.AffiliateID = uint32(s.Uint(32))
	m.Amount = s.Coins()
}

// AdvertiserSignOffWithdrawals approves several affiliates at once.
type AdvertiserSignOffWithdrawals struct {
	Approvals map[uint32]*big.Int
}

func (*AdvertiserSignOffWithdrawals) OpCode() uint32     { return OpAdvertiserSignOffWithdrawals }
func (m *AdvertiserSignOffWithdrawals) store(b *Builder) { b.CoinsDict(m.Approvals) }
func (m *AdvertiserSignOffWithdrawals) load(s *Slice)    { m.Approvals = s.CoinsDict() }

type AdvertiserUpdatePayoutAddress struct {
	Payout ton.AccountID
}

func (*AdvertiserUpdatePayoutAddress) OpCode() uint32     { return OpAdvertiserUpdatePayoutAddress }
func (m *AdvertiserUpdatePayoutAddress) store(b *Builder) { b.Address(m.Payout) }
func (m *AdvertiserUpdatePayoutAddress) load(s *Slice)    { m.Payout = s.Address() }

// AffiliateCreateNewAffiliate registers the sender as an affiliate.
type AffiliateCreateNewAffiliate struct{}

func (*AffiliateCreateNewAffiliate) OpCode() uint32 { return OpAffiliateCreateNewAffiliate }
func (*AffiliateCreateNewAffiliate) store(*Builder) {}
func (*AffiliateCreateNewAffiliate) load(*Slice)    {}

type AffiliateWithdrawEarnings struct {
	AffiliateID uint32
}

func (*AffiliateWithdrawEarnings) OpCode() uint32     { return OpAffiliateWithdrawEarnings }
func (m *AffiliateWithdrawEarnings) store(b *Builder) { b.Uint(uint64(m.AffiliateID), 32) }
func (m *AffiliateWithdrawEarnings) load(s *Slice)    { m.AffiliateID = uint32(s.Uint(32)) }

// BotCreateNewAffiliate registers Affiliate on its behalf.
type BotCreateNewAffiliate struct {
	Affiliate ton.AccountID
}

func (*BotCreateNewAffiliate) OpCode() uint32     { return OpBotCreateNewAffiliate }
func (m *BotCreateNewAffiliate) store(b *Builder) { b.Address(m.Affiliate) }
func (m *BotCreateNewAffiliate) load(s *Slice)    { m.Affiliate = s.Address() }

// CampaignPayout is the body of a native coin payout to an affiliate. It
// mirrors PayloadPayAffiliate so a bounce carries the amounts to restore.
type CampaignPayout struct {
	CampaignID     uint32
	AffiliateID    uint32
	Gross          *big.Int
	Fee            *big.Int
	PendingCleared *big.Int
}

func (*CampaignPayout) OpCode() uint32 { return OpCampaignPayout }

func (m *CampaignPayout) store(b *Builder) {
	b.Uint(uint64(m.CampaignID), 32).Uint(uint64(m.AffiliateID), 32)
	b.Coins(m.Gross).Coins(m.Fee).Coins(m.PendingCleared)
}

func (m *CampaignPayout) load(s *Slice) {
	m.CampaignID = uint32(s.Uint(32))
	m.AffiliateID = uint32(s.Uint(32))
	m.Gross = s.Coins()
	m.Fee = s.Coins()
	m.PendingCleared = s.Coins()
}

func init() {
	register(func() Message { return &AdvertiserSetCampaignDetails{} })
	register(func() Message { return &AdvertiserReplenish{} })
	register(func() Message { return &AdvertiserWithdrawFunds{} })
	register(func() Message { return &AdvertiserAddNewAffiliate{} })
	register(func() Message { return &AdvertiserApproveAffiliate{} })
	register(func() Message { return &AdvertiserRemoveAffiliate{} })
	register(func() Message { return &AdvertiserUserAction{} })
	register(func() Message { return &AdvertiserApproveEarnings{} })
	register(func() Message { return &AdvertiserSignOffWithdrawals{} })
	register(func() Message { return &AdvertiserUpdatePayoutAddress{} })
	register(func() Message { return &AffiliateCreateNewAffiliate{} })
	register(func() Message { return &AffiliateWithdrawEarnings{} })
	register(func() Message { return &BotCreateNewAffiliate{} })
	register(func() Message { return &BotUserAction{} })
	register(func() Message { return &CampaignPayout{} })
}
