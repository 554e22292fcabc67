package jetton

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
)

var oneCoin = big.NewInt(1_000_000_000)

func testAddr(seed byte) ton.AccountID {
	var id ton.AccountID
	id.Address[0] = 0x1e
	id.Address[31] = seed
	return id
}

type fixture struct {
	ledger *ledger.Ledger
	events *events.Recorder
	minter ton.AccountID
	admin  ton.AccountID
	alice  ton.AccountID
	bob    ton.AccountID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ledger: ledger.New(),
		events: &events.Recorder{},
		admin:  testAddr(1),
		alice:  testAddr(2),
		bob:    testAddr(3),
	}
	f.ledger.SetClock(clockwork.NewFakeClock())
	f.ledger.SetEmitter(f.events)
	for _, w := range []ton.AccountID{f.admin, f.alice, f.bob} {
		require.NoError(t, f.ledger.CreateWallet(w, new(big.Int).Mul(oneCoin, big.NewInt(10))))
	}
	init, err := MinterStateInit(f.admin, WalletCode)
	require.NoError(t, err)
	f.minter, err = f.ledger.Genesis(init, nil)
	require.NoError(t, err)
	return f
}

func (f *fixture) submit(t *testing.T, from, to ton.AccountID, value *big.Int, body wire.Message) {
	t.Helper()
	msg, err := ledger.NewMessage(to, value, body)
	require.NoError(t, err)
	msg.From = from
	require.NoError(t, f.ledger.Submit(msg))
	require.NoError(t, f.ledger.Run(context.Background()))
}

func (f *fixture) walletOf(t *testing.T, owner ton.AccountID) ton.AccountID {
	t.Helper()
	addr, err := WalletAddress(f.minter, owner, WalletCode)
	require.NoError(t, err)
	return addr
}

func (f *fixture) balanceOf(t *testing.T, owner ton.AccountID) *big.Int {
	t.Helper()
	out := new(big.Int)
	err := f.ledger.View(f.walletOf(t, owner), func(c ledger.Contract, _ *big.Int) error {
		out = c.(*Wallet).Balance()
		return nil
	})
	require.NoError(t, err)
	return out
}

func (f *fixture) mint(t *testing.T, to ton.AccountID, amount int64) {
	t.Helper()
	f.submit(t, f.admin, f.minter, big.NewInt(100_000_000), &wire.JettonMint{To: to, Amount: big.NewInt(amount)})
}

func lastReceipt(l *ledger.Ledger, to ton.AccountID) ledger.Receipt {
	receipts := l.Receipts()
	for i := len(receipts) - 1; i >= 0; i-- {
		if receipts[i].To == to {
			return receipts[i]
		}
	}
	return ledger.Receipt{}
}

func TestMintDeploysWallet(t *testing.T) {
	f := newFixture(t)
	f.mint(t, f.alice, 1_000)

	require.Equal(t, int64(1_000), f.balanceOf(t, f.alice).Int64())
	require.NoError(t, f.ledger.View(f.minter, func(c ledger.Contract, _ *big.Int) error {
		require.Equal(t, int64(1_000), c.(*Minter).TotalSupply().Int64())
		return nil
	}))
	require.NoError(t, f.ledger.View(f.walletOf(t, f.alice), func(c ledger.Contract, _ *big.Int) error {
		w := c.(*Wallet)
		require.Equal(t, f.alice, w.Owner())
		require.Equal(t, f.minter, w.Master())
		return nil
	}))

	minted := f.events.OfType(EventTypeMinted)
	require.Len(t, minted, 1)
	require.Equal(t, "1000", minted[0].Attributes["amount"])
	require.Equal(t, f.minter.ToRaw(), minted[0].Contract)

	// The attached value returns to the admin as excesses.
	inbox := f.ledger.Inbox(f.admin)
	require.Len(t, inbox, 1)
	var excess wire.JettonExcesses
	require.NoError(t, wire.DecodeInto(inbox[0].Body, &excess))
}

func TestMintRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	f.submit(t, f.alice, f.minter, big.NewInt(100_000_000), &wire.JettonMint{To: f.alice, Amount: big.NewInt(5)})

	require.False(t, f.ledger.Exists(f.walletOf(t, f.alice)))
	require.Equal(t, coreerrors.ErrJettonUnauthorized.Code, lastReceipt(f.ledger, f.minter).ExitCode)
}

func TestTransferNotifiesAndReturnsExcess(t *testing.T) {
	f := newFixture(t)
	f.mint(t, f.alice, 100)

	payload := wire.MustEncode(&wire.PayloadAdvertiserReplenish{})
	response := f.alice
	f.submit(t, f.alice, f.walletOf(t, f.alice), big.NewInt(50_000_000), &wire.JettonTransfer{
		QueryID:             7,
		Amount:              big.NewInt(40),
		Destination:         f.bob,
		ResponseDestination: &response,
		ForwardTonAmount:    big.NewInt(10_000_000),
		ForwardPayload:      payload,
	})

	require.Equal(t, int64(60), f.balanceOf(t, f.alice).Int64())
	require.Equal(t, int64(40), f.balanceOf(t, f.bob).Int64())

	bobInbox := f.ledger.Inbox(f.bob)
	require.Len(t, bobInbox, 1)
	var note wire.JettonTransferNotification
	require.NoError(t, wire.DecodeInto(bobInbox[0].Body, &note))
	require.Equal(t, uint64(7), note.QueryID)
	require.Equal(t, f.alice, note.Sender)
	require.Equal(t, int64(40), note.Amount.Int64())
	require.Equal(t, int64(10_000_000), bobInbox[0].Value.Int64())
	op, ok := wire.PeekOp(note.ForwardPayload)
	require.True(t, ok)
	require.Equal(t, wire.OpPayloadAdvertiserReplenish, op)

	aliceInbox := f.ledger.Inbox(f.alice)
	require.Len(t, aliceInbox, 1)
	require.Equal(t, int64(40_000_000), aliceInbox[0].Value.Int64())
}

func TestTransferRejectsStranger(t *testing.T) {
	f := newFixture(t)
	f.mint(t, f.alice, 100)
	wallet := f.walletOf(t, f.alice)

	f.submit(t, f.bob, wallet, big.NewInt(50_000_000), &wire.JettonTransfer{Amount: big.NewInt(1), Destination: f.bob})

	require.Equal(t, coreerrors.ErrJettonUnauthorized.Code, lastReceipt(f.ledger, wallet).ExitCode)
	require.Equal(t, int64(100), f.balanceOf(t, f.alice).Int64())
	inbox := f.ledger.Inbox(f.bob)
	require.Len(t, inbox, 1)
	require.True(t, inbox[0].Bounced)
}

func TestTransferAboveBalanceBouncesBody(t *testing.T) {
	f := newFixture(t)
	f.mint(t, f.alice, 100)
	wallet := f.walletOf(t, f.alice)

	payload := wire.MustEncode(&wire.PayloadPayAffiliate{AffiliateID: 3, Gross: big.NewInt(500), Fee: big.NewInt(5), PendingCleared: big.NewInt(0)})
	f.submit(t, f.alice, wallet, big.NewInt(50_000_000), &wire.JettonTransfer{
		Amount:           big.NewInt(500),
		Destination:      f.bob,
		ForwardTonAmount: big.NewInt(1),
		ForwardPayload:   payload,
	})

	require.Equal(t, coreerrors.ErrJettonBalanceInsufficient.Code, lastReceipt(f.ledger, wallet).ExitCode)
	inbox := f.ledger.Inbox(f.alice)
	require.Len(t, inbox, 1)
	bounced := inbox[0]
	require.True(t, bounced.Bounced)
	decoded, err := wire.DecodeBounced(bounced.Body)
	require.NoError(t, err)
	transfer, ok := decoded.(*wire.JettonTransfer)
	require.True(t, ok)
	var pay wire.PayloadPayAffiliate
	require.NoError(t, wire.DecodeInto(transfer.ForwardPayload, &pay))
	require.Equal(t, uint32(3), pay.AffiliateID)
	require.Equal(t, int64(500), pay.Gross.Int64())
}

func TestForgedInternalTransferRejected(t *testing.T) {
	f := newFixture(t)
	f.mint(t, f.alice, 100)
	wallet := f.walletOf(t, f.alice)

	f.submit(t, f.bob, wallet, big.NewInt(1_000), &wire.JettonInternalTransfer{
		Amount:           big.NewInt(1_000_000),
		From:             f.bob,
		ForwardTonAmount: big.NewInt(0),
	})

	require.Equal(t, coreerrors.ErrJettonUnauthorized.Code, lastReceipt(f.ledger, wallet).ExitCode)
	require.Equal(t, int64(100), f.balanceOf(t, f.alice).Int64())
}

func TestWalletAddressDependsOnOwnerAndMaster(t *testing.T) {
	a, err := WalletAddress(testAddr(10), testAddr(11), WalletCode)
	require.NoError(t, err)
	b, err := WalletAddress(testAddr(10), testAddr(12), WalletCode)
	require.NoError(t, err)
	c, err := WalletAddress(testAddr(13), testAddr(11), WalletCode)
	require.NoError(t, err)
	again, err := WalletAddress(testAddr(10), testAddr(11), WalletCode)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
	require.NotEqual(t, a, c)
	require.Equal(t, a, again)
}
