package campaign

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"tonaffiliate/core/wire"
	"tonaffiliate/native/jetton"
)

func TestUndeployedDataMatchesStateInit(t *testing.T) {
	parent, advertiser := testAddr(1), testAddr(2)
	init, err := StateInit(parent, 7, advertiser)
	require.NoError(t, err)
	data, err := newCampaign(parent, 7, advertiser).Data()
	require.NoError(t, err)

	want, err := wire.Hash(init.Data)
	require.NoError(t, err)
	got, err := wire.Hash(data)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestStateRoundTrip(t *testing.T) {
	parent, advertiser := testAddr(1), testAddr(2)
	c := newCampaign(parent, 3, advertiser)
	c.deployed = true
	c.bot = testAddr(3)
	c.state = StateActive
	c.paused = true
	c.startTimestamp = uint64(genesisTime.Unix())
	c.lastActionTimestamp = c.startTimestamp + 60
	c.advertiserFee, c.affiliateFee = 150, 250
	days := uint32(30)
	c.details = &wire.CampaignDetails{
		RegularUsersCostPerAction:               map[uint32]*big.Int{1: coins(5), 2: coins(6)},
		PremiumUsersCostPerAction:               map[uint32]*big.Int{30_000: coins(9)},
		CampaignValidForNumDays:                 &days,
		PaymentMethod:                           wire.PaymentMethodUSDT,
		RequiresAdvertiserApprovalForWithdrawal: true,
	}
	c.totalAffiliateEarnings.SetInt64(40)
	c.totalWithdrawnEarnings.SetInt64(11)
	c.maxCpaValue.SetInt64(9)
	c.platformFeesOwed.SetInt64(2)
	c.usdtBalance.SetInt64(1_000)
	c.counters = Counters{AdvertiserWithdrawals: 1, SignOffs: 2, Replenishments: 3, AffiliateWithdrawals: 4, UserActions: 5, Bounces: 6}
	c.usdt = &wire.USDTConfig{Master: testAddr(8), Wallet: testAddr(9), WalletCode: jetton.WalletCode}
	rec := newAffiliateRecord(testAddr(4), AffiliateActive)
	rec.RegularUsers[1] = ActionCounter{Count: 3, LastActionTimestamp: 99}
	rec.TotalEarnings.SetInt64(40)
	rec.WithdrawnEarnings.SetInt64(11)
	rec.PendingApprovalEarnings.SetInt64(20)
	c.affiliates[1] = rec
	c.affiliates[2] = newAffiliateRecord(testAddr(5), AffiliateRemoved)
	c.top[1] = coins(40)

	data, err := c.Data()
	require.NoError(t, err)
	restored, err := load(data)
	require.NoError(t, err)

	now := genesisTime.Unix() + 120
	want, snap := c.Snapshot(now), restored.(*Campaign).Snapshot(now)
	require.Equal(t, want.State, snap.State)
	require.Equal(t, want.Counters, snap.Counters)
	require.Equal(t, want.Bot, snap.Bot)
	require.Equal(t, want.LastActionTimestamp, snap.LastActionTimestamp)
	require.Equal(t, uint32(2), snap.NumAffiliates)
	require.Zero(t, want.ContractUSDTBalance.Cmp(snap.ContractUSDTBalance))
	require.Zero(t, want.PlatformFeesOwed.Cmp(snap.PlatformFeesOwed))
	require.Equal(t, days, *snap.Details.CampaignValidForNumDays)
	require.Zero(t, snap.Details.PremiumUsersCostPerAction[30_000].Cmp(coins(9)))
	require.Equal(t, c.usdt.Wallet, snap.USDT.Wallet)

	got, ok := restored.(*Campaign).Affiliate(1)
	require.True(t, ok)
	require.Equal(t, rec.RegularUsers[1], got.RegularUsers[1])
	require.Zero(t, rec.PendingApprovalEarnings.Cmp(got.PendingApprovalEarnings))
	removed, ok := restored.(*Campaign).Affiliate(2)
	require.True(t, ok)
	require.Equal(t, AffiliateRemoved, removed.State)

	again, err := restored.Data()
	require.NoError(t, err)
	h1, err := wire.Hash(data)
	require.NoError(t, err)
	h2, err := wire.Hash(again)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}
