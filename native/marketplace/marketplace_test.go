package marketplace

import (
	"context"
	"math/big"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"github.com/tonkeeper/tongo/ton"

	coreerrors "tonaffiliate/core/errors"
	"tonaffiliate/core/events"
	"tonaffiliate/core/ledger"
	"tonaffiliate/core/wire"
	"tonaffiliate/native/campaign"
	"tonaffiliate/native/jetton"
)

const (
	oneCoin  = 1_000_000_000
	tenthTON = 100_000_000
	oneUSDT  = 1_000_000
)

func testAddr(seed byte) ton.AccountID {
	var id ton.AccountID
	id.Address[0] = 0xbe
	id.Address[31] = seed
	return id
}

func coins(v int64) *big.Int { return big.NewInt(v) }

type fixture struct {
	ledger      *ledger.Ledger
	events      *events.Recorder
	owner       ton.AccountID
	bot         ton.AccountID
	advertiser  ton.AccountID
	alice       ton.AccountID
	marketplace ton.AccountID
	minter      ton.AccountID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ledger:     ledger.New(),
		events:     &events.Recorder{},
		owner:      testAddr(1),
		bot:        testAddr(2),
		advertiser: testAddr(3),
		alice:      testAddr(4),
	}
	f.ledger.SetClock(clockwork.NewFakeClock())
	f.ledger.SetEmitter(f.events)
	for _, w := range []ton.AccountID{f.owner, f.bot, f.advertiser, f.alice} {
		require.NoError(t, f.ledger.CreateWallet(w, coins(100*oneCoin)))
	}
	init, err := StateInit(f.owner, f.bot, 100, 200)
	require.NoError(t, err)
	f.marketplace, err = f.ledger.Genesis(init, coins(oneCoin))
	require.NoError(t, err)
	return f
}

func (f *fixture) send(t *testing.T, from, to ton.AccountID, value int64, body wire.Message) {
	t.Helper()
	msg, err := ledger.NewMessage(to, coins(value), body)
	require.NoError(t, err)
	msg.From = from
	require.NoError(t, f.ledger.Submit(msg))
	require.NoError(t, f.ledger.Run(context.Background()))
}

// exitOf returns the exit code of the most recent non-bounced delivery to
// addr.
func (f *fixture) exitOf(addr ton.AccountID) int32 {
	receipts := f.ledger.Receipts()
	for i := len(receipts) - 1; i >= 0; i-- {
		if receipts[i].To == addr && !receipts[i].Bounced {
			return receipts[i].ExitCode
		}
	}
	return -1
}

func (f *fixture) deployCampaign(t *testing.T) (wire.CampaignRef, ton.AccountID) {
	t.Helper()
	f.send(t, f.advertiser, f.marketplace, oneCoin/2, &wire.AdvertiserDeployNewCampaign{})
	require.Zero(t, f.exitOf(f.marketplace))
	count := f.snapshot(t).CampaignCount
	addr, err := campaign.Address(f.marketplace, count, f.advertiser)
	require.NoError(t, err)
	require.True(t, f.ledger.Exists(addr))
	return wire.CampaignRef{CampaignID: count, Advertiser: f.advertiser}, addr
}

func (f *fixture) snapshot(t *testing.T) *Data {
	t.Helper()
	var out *Data
	require.NoError(t, f.ledger.View(f.marketplace, func(c ledger.Contract, _ *big.Int) error {
		out = c.(*Marketplace).Snapshot()
		return nil
	}))
	return out
}

func (f *fixture) campaign(t *testing.T, addr ton.AccountID) *campaign.Data {
	t.Helper()
	var out *campaign.Data
	require.NoError(t, f.ledger.View(addr, func(c ledger.Contract, _ *big.Int) error {
		out = c.(*campaign.Campaign).Snapshot(f.ledger.Now())
		return nil
	}))
	return out
}

func (f *fixture) balance(t *testing.T, addr ton.AccountID) *big.Int {
	t.Helper()
	b, ok := f.ledger.Balance(addr)
	require.True(t, ok)
	return b
}

func details(method wire.PaymentMethod, cpa int64) *wire.AdvertiserSetCampaignDetails {
	return &wire.AdvertiserSetCampaignDetails{Details: wire.CampaignDetails{
		RegularUsersCostPerAction: map[uint32]*big.Int{100: coins(cpa)},
		PremiumUsersCostPerAction: map[uint32]*big.Int{},
		IsPublicCampaign:          true,
		PaymentMethod:             method,
	}}
}

// earn runs a campaign through details, one affiliate, one action and one
// withdrawal.
func (f *fixture) earn(t *testing.T, addr ton.AccountID, method wire.PaymentMethod, cpa int64) {
	t.Helper()
	f.send(t, f.advertiser, addr, 0, details(method, cpa))
	require.Zero(t, f.exitOf(addr))
	f.send(t, f.alice, addr, 0, &wire.AffiliateCreateNewAffiliate{})
	require.Zero(t, f.exitOf(addr))
	if method == wire.PaymentMethodNative {
		f.send(t, f.advertiser, addr, oneCoin, &wire.AdvertiserReplenish{})
		require.Zero(t, f.exitOf(addr))
	}
	f.send(t, f.bot, addr, 0, &wire.BotUserAction{UserAction: wire.UserAction{AffiliateID: 1, UserActionOpCode: 100}})
	require.Zero(t, f.exitOf(addr))
	f.send(t, f.alice, addr, 0, &wire.AffiliateWithdrawEarnings{AffiliateID: 1})
	require.Zero(t, f.exitOf(addr))
}

func TestDeployCampaign(t *testing.T) {
	f := newFixture(t)
	ref, addr := f.deployCampaign(t)
	require.Equal(t, uint32(1), ref.CampaignID)

	snap := f.campaign(t, addr)
	require.Equal(t, f.marketplace, snap.Parent)
	require.Equal(t, f.advertiser, snap.Advertiser)
	require.Equal(t, f.advertiser, snap.Payout)
	require.Equal(t, f.bot, snap.Bot)
	require.Equal(t, campaign.StateCreated, snap.State)
	require.Equal(t, uint32(100), snap.AdvertiserFeePercentage)
	require.Equal(t, uint32(200), snap.AffiliateFeePercentage)
	require.Nil(t, snap.USDT)
	require.Equal(t, int64(oneCoin/2), f.balance(t, addr).Int64())

	mp := f.snapshot(t)
	require.Equal(t, uint32(1), mp.CampaignCount)
	require.Equal(t, uint32(1), mp.Stats.CampaignsConfirmed)
	require.Len(t, f.events.OfType(EventTypeCampaignDeployed), 1)
	require.Len(t, f.events.OfType(EventTypeCampaignConfirmed), 1)

	ref, _ = f.deployCampaign(t)
	require.Equal(t, uint32(2), ref.CampaignID)
}

func TestDeployBelowMinimumRefunds(t *testing.T) {
	f := newFixture(t)
	before := f.balance(t, f.advertiser)
	f.send(t, f.advertiser, f.marketplace, tenthTON/2, &wire.AdvertiserDeployNewCampaign{})
	require.Equal(t, coreerrors.ErrInsufficientFundsToDeploy.Code, f.exitOf(f.marketplace))
	require.Zero(t, f.balance(t, f.advertiser).Cmp(before))
	require.Zero(t, f.snapshot(t).CampaignCount)
}

func TestAdminDispatchRequiresOwner(t *testing.T) {
	f := newFixture(t)
	ref, addr := f.deployCampaign(t)

	f.send(t, f.alice, f.marketplace, 0, &wire.AdminStopCampaign{CampaignRef: ref})
	require.Equal(t, coreerrors.ErrAccessDenied.Code, f.exitOf(f.marketplace))
	require.False(t, f.campaign(t, addr).Paused)

	f.send(t, f.owner, f.marketplace, 0, &wire.AdminStopCampaign{CampaignRef: ref})
	require.Zero(t, f.exitOf(f.marketplace))
	require.True(t, f.campaign(t, addr).Paused)
	require.Equal(t, campaign.StateStoppedByAdmin, f.campaign(t, addr).State)

	f.send(t, f.owner, f.marketplace, 0, &wire.AdminResumeCampaign{CampaignRef: ref})
	require.False(t, f.campaign(t, addr).Paused)

	f.send(t, f.owner, f.marketplace, 0, &wire.AdminModifyCampaignFeePercentage{CampaignRef: ref, AdvertiserFeePercentage: 6_000, AffiliateFeePercentage: 6_000})
	require.Equal(t, coreerrors.ErrPercentageOutOfRange.Code, f.exitOf(f.marketplace))
	f.send(t, f.owner, f.marketplace, 0, &wire.AdminModifyCampaignFeePercentage{CampaignRef: ref, AdvertiserFeePercentage: 300, AffiliateFeePercentage: 400})
	require.Zero(t, f.exitOf(f.marketplace))
	require.Equal(t, uint32(300), f.campaign(t, addr).AdvertiserFeePercentage)

	require.Len(t, f.events.OfType(EventTypeAdminForwarded), 3)
}

func TestAdminCommandToMissingCampaignBounces(t *testing.T) {
	f := newFixture(t)
	ref := wire.CampaignRef{CampaignID: 9, Advertiser: f.advertiser}
	f.send(t, f.owner, f.marketplace, tenthTON, &wire.AdminStopCampaign{CampaignRef: ref})
	require.Zero(t, f.exitOf(f.marketplace))
	require.Len(t, f.events.OfType(EventTypeForwardBounced), 1)
	require.Equal(t, int64(oneCoin+tenthTON), f.balance(t, f.marketplace).Int64())
}

func TestForgedEchoIgnored(t *testing.T) {
	f := newFixture(t)
	ref, _ := f.deployCampaign(t)
	f.send(t, f.alice, f.marketplace, 0, &wire.ChildToParentAffiliateCreated{CampaignRef: ref, AffiliateID: 1, Affiliate: f.alice})
	require.Zero(t, f.exitOf(f.marketplace))

	stats := f.snapshot(t).Stats
	require.Zero(t, stats.AffiliatesReported)
	require.Equal(t, uint64(1), stats.IgnoredEchoes)
	require.Empty(t, f.events.OfType(EventTypeAffiliateReported))
}

func TestEchoStatisticsAndNativeFees(t *testing.T) {
	f := newFixture(t)
	ref, addr := f.deployCampaign(t)
	f.earn(t, addr, wire.PaymentMethodNative, tenthTON)

	stats := f.snapshot(t).Stats
	require.Equal(t, uint32(1), stats.CampaignsConfigured)
	require.Equal(t, uint64(1), stats.AffiliatesReported)
	require.Equal(t, uint64(1), stats.Replenishments)
	require.Equal(t, uint64(1), stats.PayoutsReported)

	// 1% + 2% of 0.1.
	fee := int64(3 * tenthTON / 100)
	require.Equal(t, fee, f.campaign(t, addr).PlatformFeesOwed.Int64())
	f.send(t, f.owner, f.marketplace, 0, &wire.AdminCollectPlatformFees{CampaignRef: ref})
	require.Zero(t, f.exitOf(f.marketplace))
	require.Equal(t, fee, f.snapshot(t).Stats.FeesCollected.Native.Int64())
	require.Zero(t, f.campaign(t, addr).PlatformFeesOwed.Sign())

	remaining := f.balance(t, addr)
	f.send(t, f.owner, f.marketplace, 0, &wire.AdminSeizeCampaignBalance{CampaignRef: ref})
	stats = f.snapshot(t).Stats
	require.Equal(t, uint32(1), stats.Seizures)
	require.Zero(t, stats.Seized.Native.Cmp(remaining))
	require.Zero(t, f.balance(t, addr).Sign())
}

func TestUSDTConfigAndFees(t *testing.T) {
	f := newFixture(t)
	init, err := jetton.MinterStateInit(f.owner, jetton.WalletCode)
	require.NoError(t, err)
	f.minter, err = f.ledger.Genesis(init, nil)
	require.NoError(t, err)

	f.send(t, f.alice, f.marketplace, 0, &wire.AdminSetUSDTConfig{Master: f.minter, WalletCode: jetton.WalletCode})
	require.Equal(t, coreerrors.ErrAccessDenied.Code, f.exitOf(f.marketplace))
	f.send(t, f.owner, f.marketplace, 0, &wire.AdminSetUSDTConfig{Master: f.minter, WalletCode: jetton.WalletCode})
	require.Zero(t, f.exitOf(f.marketplace))
	ownWallet, err := jetton.WalletAddress(f.minter, f.marketplace, jetton.WalletCode)
	require.NoError(t, err)
	require.Equal(t, ownWallet, f.snapshot(t).USDT.Wallet)

	ref, addr := f.deployCampaign(t)
	campaignWallet, err := jetton.WalletAddress(f.minter, addr, jetton.WalletCode)
	require.NoError(t, err)
	require.Equal(t, campaignWallet, f.campaign(t, addr).USDT.Wallet)

	// Fund the campaign wallet directly, then have the owner book it.
	f.send(t, f.owner, f.minter, tenthTON, &wire.JettonMint{To: addr, Amount: coins(100 * oneUSDT)})
	f.send(t, f.owner, f.marketplace, 0, &wire.AdminJettonNotificationMessageFailure{CampaignRef: ref, Amount: coins(100 * oneUSDT)})
	require.Zero(t, f.exitOf(addr))
	require.Equal(t, int64(100*oneUSDT), f.campaign(t, addr).ContractUSDTBalance.Int64())

	f.earn(t, addr, wire.PaymentMethodUSDT, 10*oneUSDT)
	fee := int64(3 * 10 * oneUSDT / 100)
	f.send(t, f.owner, f.marketplace, 0, &wire.AdminCollectPlatformFees{CampaignRef: ref})
	stats := f.snapshot(t).Stats
	require.Equal(t, fee, stats.FeesCollected.USDT.Int64())
	require.Equal(t, fee, stats.USDTBalance.Int64())

	left := f.campaign(t, addr).ContractUSDTBalance
	f.send(t, f.owner, f.marketplace, 0, &wire.AdminSeizeCampaignBalance{CampaignRef: ref})
	stats = f.snapshot(t).Stats
	require.Zero(t, stats.Seized.USDT.Cmp(left))
	require.Equal(t, uint32(1), stats.Seizures)
	require.Zero(t, f.campaign(t, addr).ContractUSDTBalance.Sign())
}

func TestUntrustedSeizeTagNotBooked(t *testing.T) {
	f := newFixture(t)
	init, err := jetton.MinterStateInit(f.owner, jetton.WalletCode)
	require.NoError(t, err)
	f.minter, err = f.ledger.Genesis(init, nil)
	require.NoError(t, err)
	f.send(t, f.owner, f.marketplace, 0, &wire.AdminSetUSDTConfig{Master: f.minter, WalletCode: jetton.WalletCode})
	require.Zero(t, f.exitOf(f.marketplace))
	f.deployCampaign(t)

	// The tag names a real campaign, but alice's wallet sent the transfer.
	f.send(t, f.owner, f.minter, tenthTON, &wire.JettonMint{To: f.alice, Amount: coins(10 * oneUSDT)})
	aliceWallet, err := jetton.WalletAddress(f.minter, f.alice, jetton.WalletCode)
	require.NoError(t, err)
	f.send(t, f.alice, aliceWallet, tenthTON, &wire.JettonTransfer{
		Amount:           coins(4 * oneUSDT),
		Destination:      f.marketplace,
		ForwardTonAmount: coins(tenthTON / 10),
		ForwardPayload:   wire.MustEncode(&wire.PayloadSeize{CampaignID: 1, Advertiser: f.advertiser, Amount: coins(4 * oneUSDT)}),
	})
	require.Zero(t, f.exitOf(f.marketplace))

	stats := f.snapshot(t).Stats
	require.Equal(t, int64(4*oneUSDT), stats.USDTBalance.Int64())
	require.Zero(t, stats.Seized.USDT.Sign())
	require.Zero(t, stats.Seizures)
}

func TestUSDTNotificationFromStrangerRejected(t *testing.T) {
	f := newFixture(t)
	f.send(t, f.alice, f.marketplace, 0, &wire.JettonTransferNotification{Amount: coins(oneUSDT), Sender: f.alice})
	require.Equal(t, coreerrors.ErrOnlyContractWalletAllowedToInvoke.Code, f.exitOf(f.marketplace))
	require.Zero(t, f.snapshot(t).Stats.USDTBalance.Sign())
}

func TestOwnAdminOperations(t *testing.T) {
	f := newFixture(t)
	f.send(t, f.owner, f.marketplace, 0, &wire.AdminWithdrawFunds{Amount: coins(oneCoin)})
	require.Equal(t, coreerrors.ErrInsufficientBalance.Code, f.exitOf(f.marketplace))

	before := f.balance(t, f.owner)
	f.send(t, f.owner, f.marketplace, 0, &wire.AdminWithdrawFunds{Amount: coins(oneCoin / 2)})
	require.Zero(t, f.exitOf(f.marketplace))
	gained := new(big.Int).Sub(f.balance(t, f.owner), before)
	require.Equal(t, int64(oneCoin/2), gained.Int64())

	f.send(t, f.owner, f.marketplace, 0, &wire.AdminUpdateDefaultFees{AdvertiserFeePercentage: 10_001})
	require.Equal(t, coreerrors.ErrPercentageOutOfRange.Code, f.exitOf(f.marketplace))
	f.send(t, f.owner, f.marketplace, 0, &wire.AdminUpdateDefaultFees{AdvertiserFeePercentage: 50, AffiliateFeePercentage: 75})
	f.send(t, f.owner, f.marketplace, 0, &wire.AdminSetBotAddress{Bot: f.alice})
	f.send(t, f.alice, f.marketplace, 0, &wire.AdminSetBotAddress{Bot: f.alice})
	require.Equal(t, coreerrors.ErrAccessDenied.Code, f.exitOf(f.marketplace))

	snap := f.snapshot(t)
	require.Equal(t, uint32(50), snap.AdvertiserFeePercentage)
	require.Equal(t, uint32(75), snap.AffiliateFeePercentage)
	require.Equal(t, f.alice, snap.Bot)

	_, addr := f.deployCampaign(t)
	c := f.campaign(t, addr)
	require.Equal(t, f.alice, c.Bot)
	require.Equal(t, uint32(75), c.AffiliateFeePercentage)
}

func TestStateRoundTrip(t *testing.T) {
	mp := newMarketplace(testAddr(1), testAddr(2), 10, 20)
	mp.campaignCount = 42
	mp.usdt = &wire.USDTConfig{Master: testAddr(5), Wallet: testAddr(6), WalletCode: jetton.WalletCode}
	mp.stats.AffiliatesReported = 7
	mp.stats.IgnoredEchoes = 3
	mp.stats.FeesCollected = mp.stats.FeesCollected.Add(true, coins(55))
	mp.stats.Seized = mp.stats.Seized.Add(false, coins(66))
	mp.stats.USDTBalance.SetInt64(55)

	data, err := mp.Data()
	require.NoError(t, err)
	restored, err := load(data)
	require.NoError(t, err)
	snap := restored.(*Marketplace).Snapshot()

	require.Equal(t, uint32(42), snap.CampaignCount)
	require.Equal(t, testAddr(6), snap.USDT.Wallet)
	require.Equal(t, uint64(7), snap.Stats.AffiliatesReported)
	require.Equal(t, uint64(3), snap.Stats.IgnoredEchoes)
	require.Equal(t, int64(55), snap.Stats.FeesCollected.USDT.Int64())
	require.Zero(t, snap.Stats.FeesCollected.Native.Sign())
	require.Equal(t, int64(66), snap.Stats.Seized.Native.Int64())

	_, err = StateInit(testAddr(1), testAddr(2), 9_000, 2_000)
	require.ErrorIs(t, err, coreerrors.ErrPercentageOutOfRange)
}
