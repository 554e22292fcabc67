package wire

import (
	"math/big"

	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/ton"
)

func storeEitherRef(b *Builder, c *boc.Cell) {
	if c == nil {
		b.Bool(false)
		return
	}
	b.Bool(true).Ref(c)
}

func loadEitherRef(s *Slice) *boc.Cell {
	if s.Bool() {
		return s.Ref()
	}
	rest := s.Remainder()
	if rest == nil || IsEmpty(rest) {
		return nil
	}
	return rest
}

// JettonTransfer asks a jetton wallet to move Amount to Destination's wallet.
type JettonTransfer struct {
	QueryID             uint64
	Amount              *big.Int
	Destination         ton.AccountID
	ResponseDestination *ton.AccountID
	CustomPayload       *boc.Cell
	ForwardTonAmount    *big.Int
	ForwardPayload      *boc.Cell
}

func (*JettonTransfer) OpCode() uint32 { return OpJettonTransfer }

func (m *JettonTransfer) store(b *Builder) {
	b.Uint(m.QueryID, 64).Coins(m.Amount).Address(m.Destination).MaybeAddress(m.ResponseDestination)
	b.MaybeRef(m.CustomPayload).Coins(m.ForwardTonAmount)
	storeEitherRef(b, m.ForwardPayload)
}

func (m *JettonTransfer) load(s *Slice) {
	m.QueryID = s.Uint(64)
	m.Amount = s.Coins()
	m.Destination = s.Address()
	m.ResponseDestination = s.MaybeAddress()
	m.CustomPayload = s.MaybeRef()
	m.ForwardTonAmount = s.Coins()
	m.ForwardPayload = loadEitherRef(s)
}

// JettonInternalTransfer moves balance between two wallets of one master.
type JettonInternalTransfer struct {
	QueryID          uint64
	Amount           *big.Int
	From             ton.AccountID
	ResponseAddress  *ton.AccountID
	ForwardTonAmount *big.Int
	ForwardPayload   *boc.Cell
}

func (*JettonInternalTransfer) OpCode() uint32 { return OpJettonInternalTransfer }

func (m *JettonInternalTransfer) store(b *Builder) {
	b.Uint(m.QueryID, 64).Coins(m.Amount).Address(m.From).MaybeAddress(m.ResponseAddress).Coins(m.ForwardTonAmount)
	storeEitherRef(b, m.ForwardPayload)
}

func (m *JettonInternalTransfer) load(s *Slice) {
	m.QueryID = s.Uint(64)
	m.Amount = s.Coins()
	m.From = s.Address()
	m.ResponseAddress = s.MaybeAddress()
	m.ForwardTonAmount = s.Coins()
	m.ForwardPayload = loadEitherRef(s)
}

// JettonTransferNotification tells a wallet owner that tokens arrived.
type JettonTransferNotification struct {
	QueryID        uint64
	Amount         *big.Int
	Sender         ton.AccountID
	ForwardPayload *boc.Cell
}

func (*JettonTransferNotification) OpCode() uint32 { return OpJettonTransferNotification }

func (m *JettonTransferNotification) store(b *Builder) {
	b.Uint(m.QueryID, 64).Coins(m.Amount).Address(m.Sender)
	storeEitherRef(b, m.ForwardPayload)
}

func (m *JettonTransferNotification) load(s *Slice) {
	m.QueryID = s.Uint(64)
	m.Amount = s.Coins()
	m.Sender = s.Address()
	m.ForwardPayload = loadEitherRef(s)
}

// JettonExcesses returns unspent forwarding value to the response address.
type JettonExcesses struct {
	QueryID uint64
}

func (*JettonExcesses) OpCode() uint32     { return OpJettonExcesses }
func (m *JettonExcesses) store(b *Builder) { b.Uint(m.QueryID, 64) }
func (m *JettonExcesses) load(s *Slice)    { m.QueryID = s.Uint(64) }

// JettonMint credits freshly minted tokens to To's wallet. Only the minter
// admin may send it.
type JettonMint struct {
	QueryID uint64
	To      ton.AccountID
	Amount  *big.Int
}

func (*JettonMint) OpCode() uint32 { return OpJettonMint }

func (m *JettonMint) store(b *Builder) { b.Uint(m.QueryID, 64).Address(m.To).Coins(m.Amount) }

func (m *JettonMint) load(s *Slice) {
	m.QueryID = s.Uint(64)
	m.To = s.Address()
	m.Amount = s.Coins()
}

// PayloadAdvertiserReplenish tags a USDT transfer that funds a campaign.
type PayloadAdvertiserReplenish struct{}

func (*PayloadAdvertiserReplenish) OpCode() uint32 { return OpPayloadAdvertiserReplenish }
func (*PayloadAdvertiserReplenish) store(*Builder) {}
func (*PayloadAdvertiserReplenish) load(*Slice)    {}

// PayloadPayAffiliate tags an affiliate payout. It carries everything the
// campaign debited so a bounce can restore it exactly: the gross amount
// added to WithdrawnEarnings, the fee accrued to the platform and the pending
// amount cleared from the affiliate record.
type PayloadPayAffiliate struct {
	AffiliateID    uint32
	Gross          *big.Int
	Fee            *big.Int
	PendingCleared *big.Int
}

func (*PayloadPayAffiliate) OpCode() uint32 { return OpPayloadPayAffiliate }

func (m *PayloadPayAffiliate) store(b *Builder) {
	b.Uint(uint64(m.AffiliateID), 32).Coins(m.Gross).Coins(m.Fee).Coins(m.PendingCleared)
}

func (m *PayloadPayAffiliate) load(s *Slice) {
	m.AffiliateID = uint32(s.Uint(32))
	m.Gross = s.Coins()
	m.Fee = s.Coins()
	m.PendingCleared = s.Coins()
}

// PayloadAdminPayAffiliate tags a manual re-payment ordered by the admin.
type PayloadAdminPayAffiliate struct {
	AffiliateID uint32
	Amount      *big.Int
}

func (*PayloadAdminPayAffiliate) OpCode() uint32 { return OpPayloadAdminPayAffiliate }

func (m *PayloadAdminPayAffiliate) store(b *Builder) {
	b.Uint(uint64(m.AffiliateID), 32).Coins(m.Amount)
}

func (m *PayloadAdminPayAffiliate) load(s *Slice) {
	m.AffiliateID = uint32(s.Uint(32))
	m.Amount = s.Coins()
}

// PayloadWithdrawToPayout tags funds leaving a campaign for its payout
// address.
type PayloadWithdrawToPayout struct {
	Amount *big.Int
}

func (*PayloadWithdrawToPayout) OpCode() uint32     { return OpPayloadWithdrawToPayout }
func (m *PayloadWithdrawToPayout) store(b *Builder) { b.Coins(m.Amount) }
func (m *PayloadWithdrawToPayout) load(s *Slice)    { m.Amount = s.Coins() }

// PayloadSeize tags a seized campaign balance.
type PayloadSeize struct {
	CampaignID uint32
	Advertiser ton.AccountID
	Amount     *big.Int
}

func (*PayloadSeize) OpCode() uint32 { return OpPayloadSeize }

func (m *PayloadSeize) store(b *Builder) {
	b.Uint(uint64(m.CampaignID), 32).Address(m.Advertiser).Coins(m.Amount)
}

func (m *PayloadSeize) load(s *Slice) {
	m.CampaignID = uint32(s.Uint(32))
	m.Advertiser = s.Address()
	m.Amount = s.Coins()
}

// PayloadPlatformFee tags platform fees collected from a campaign.
type PayloadPlatformFee struct {
	CampaignID uint32
	Advertiser ton.AccountID
	Amount     *big.Int
}

func (*PayloadPlatformFee) OpCode() uint32 { return OpPayloadPlatformFee }

func (m *PayloadPlatformFee) store(b *Builder) {
	b.Uint(uint64(m.CampaignID), 32).Address(m.Advertiser).Coins(m.Amount)
}

func (m *PayloadPlatformFee) load(s *Slice) {
	m.CampaignID = uint32(s.Uint(32))
	m.Advertiser = s.Address()
	m.Amount = s.Coins()
}

func init() {
	register(func() Message { return &JettonTransfer{} })
	register(func() Message { return &JettonInternalTransfer{} })
	register(func() Message { return &JettonTransferNotification{} })
	register(func() Message { return &JettonExcesses{} })
	register(func() Message { return &JettonMint{} })
	register(func() Message { return &PayloadAdvertiserReplenish{} })
	register(func() Message { return &PayloadPayAffiliate{} })
	register(func() Message { return &PayloadAdminPayAffiliate{} })
	register(func() Message { return &PayloadWithdrawToPayout{} })
	register(func() Message { return &PayloadSeize{} })
	register(func() Message { return &PayloadPlatformFee{} })
}
