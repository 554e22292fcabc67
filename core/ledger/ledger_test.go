package ledger

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/ton"

	coreerrors "tonaffiliate/core/errors"
	"tonaffiliate/core/events"
	"tonaffiliate/core/types"
	"tonaffiliate/core/wire"
	"tonaffiliate/storage"
)

var errCounterFail = errors.New("counter: asked to fail")

// counter is a minimal contract driven by text comments.
type counter struct {
	count uint32
}

var counterCode = Register("ledger-test-counter", func(data *boc.Cell) (Contract, error) {
	s := wire.NewSlice(data)
	c := &counter{count: uint32(s.Uint(32))}
	return c, s.Err()
})

func (c *counter) Data() (*boc.Cell, error) {
	return wire.NewBuilder().Uint(uint64(c.count), 32).Cell()
}

func (c *counter) Receive(tx *Tx, msg *Message) error {
	if msg.Bounced {
		return nil
	}
	var comment wire.TextComment
	if err := wire.DecodeInto(msg.Body, &comment); err != nil {
		return err
	}
	c.count++
	switch comment.Text {
	case "inc":
		tx.Emit(&types.Event{Type: "counter.incremented", Attributes: map[string]string{"count": "x"}})
		return nil
	case "fail":
		return errCounterFail
	case "ping":
		return tx.SendBody(msg.From, big.NewInt(1), false, &wire.TextComment{Text: "pong"})
	case "overspend":
		return tx.SendBody(msg.From, new(big.Int).Add(tx.Balance(), big.NewInt(1)), false, &wire.TextComment{Text: "x"})
	case "drain":
		return tx.SendRemainingBalance(&Message{To: msg.From, Body: wire.MustEncode(&wire.TextComment{Text: "all"})})
	default:
		return coreerrors.ErrInvalidMessage
	}
}

func counterInit(t *testing.T, start uint32) (*StateInit, ton.AccountID) {
	t.Helper()
	data, err := wire.NewBuilder().Uint(uint64(start), 32).Cell()
	require.NoError(t, err)
	init := &StateInit{Code: counterCode, Data: data}
	addr, err := init.Address()
	require.NoError(t, err)
	return init, addr
}

func testAddr(seed byte) ton.AccountID {
	var id ton.AccountID
	id.Address[0] = 0xaa
	id.Address[31] = seed
	return id
}

func comment(t *testing.T, text string) *boc.Cell {
	t.Helper()
	cell, err := wire.Encode(&wire.TextComment{Text: text})
	require.NoError(t, err)
	return cell
}

func counterValue(t *testing.T, l *Ledger, addr ton.AccountID) uint32 {
	t.Helper()
	var out uint32
	require.NoError(t, l.View(addr, func(c Contract, _ *big.Int) error {
		out = c.(*counter).count
		return nil
	}))
	return out
}

func newTestLedger(t *testing.T) (*Ledger, ton.AccountID) {
	t.Helper()
	l := New()
	l.SetClock(clockwork.NewFakeClock())
	user := testAddr(1)
	require.NoError(t, l.CreateWallet(user, big.NewInt(1_000)))
	return l, user
}

func TestWalletTransfer(t *testing.T) {
	l, user := newTestLedger(t)
	other := testAddr(2)
	require.NoError(t, l.CreateWallet(other, nil))

	require.NoError(t, l.Submit(&Message{From: user, To: other, Value: big.NewInt(300), Body: comment(t, "hi")}))
	require.NoError(t, l.Run(context.Background()))

	balance, ok := l.Balance(other)
	require.True(t, ok)
	require.Equal(t, int64(300), balance.Int64())
	balance, _ = l.Balance(user)
	require.Equal(t, int64(700), balance.Int64())
	require.Len(t, l.Inbox(other), 1)

	err := l.Submit(&Message{From: user, To: other, Value: big.NewInt(701)})
	require.ErrorIs(t, err, coreerrors.ErrInsufficientBalance)
}

func TestDeployAndCommit(t *testing.T) {
	l, user := newTestLedger(t)
	rec := &events.Recorder{}
	l.SetEmitter(rec)
	init, addr := counterInit(t, 0)

	require.NoError(t, l.Submit(&Message{From: user, To: addr, Value: big.NewInt(100), Body: comment(t, "inc"), StateInit: init, Bounce: true}))
	require.NoError(t, l.Run(context.Background()))

	require.Equal(t, uint32(1), counterValue(t, l, addr))
	balance, _ := l.Balance(addr)
	require.Equal(t, int64(100), balance.Int64())

	evts := rec.OfType("counter.incremented")
	require.Len(t, evts, 1)
	require.Equal(t, addr.ToRaw(), evts[0].Contract)
}

func TestDeployRejectsMismatchedAddress(t *testing.T) {
	l, user := newTestLedger(t)
	init, _ := counterInit(t, 0)
	wrong := testAddr(9)

	require.NoError(t, l.Submit(&Message{From: user, To: wrong, Value: big.NewInt(50), Body: comment(t, "inc"), StateInit: init, Bounce: true}))
	require.NoError(t, l.Run(context.Background()))

	require.False(t, l.Exists(wrong))
	receipts := l.Receipts()
	require.Equal(t, coreerrors.ErrInvalidAddress.Code, receipts[0].ExitCode)
	balance, _ := l.Balance(user)
	require.Equal(t, int64(1_000), balance.Int64())
}

func TestAbortRestoresStateAndBounces(t *testing.T) {
	l, user := newTestLedger(t)
	init, addr := counterInit(t, 5)
	_, err := l.Genesis(init, big.NewInt(10))
	require.NoError(t, err)

	require.NoError(t, l.Submit(&Message{From: user, To: addr, Value: big.NewInt(40), Body: comment(t, "fail"), Bounce: true}))
	require.NoError(t, l.Run(context.Background()))

	require.Equal(t, uint32(5), counterValue(t, l, addr))
	balance, _ := l.Balance(addr)
	require.Equal(t, int64(10), balance.Int64())
	balance, _ = l.Balance(user)
	require.Equal(t, int64(1_000), balance.Int64())

	inbox := l.Inbox(user)
	require.Len(t, inbox, 1)
	require.True(t, inbox[0].Bounced)
	op, ok := wire.PeekOp(inbox[0].Body)
	require.True(t, ok)
	require.Equal(t, wire.OpBounced, op)

	receipts := l.Receipts()
	require.True(t, receipts[0].Aborted())
	require.ErrorIs(t, receipts[0].Err, errCounterFail)
	require.Equal(t, coreerrors.ExitCodeUnknown, receipts[0].ExitCode)
}

func TestNonBounceableAbortKeepsValue(t *testing.T) {
	l, user := newTestLedger(t)
	init, addr := counterInit(t, 0)
	_, err := l.Genesis(init, nil)
	require.NoError(t, err)

	require.NoError(t, l.Submit(&Message{From: user, To: addr, Value: big.NewInt(40), Body: comment(t, "fail")}))
	require.NoError(t, l.Run(context.Background()))

	balance, _ := l.Balance(addr)
	require.Equal(t, int64(40), balance.Int64())
	require.Empty(t, l.Inbox(user))
}

func TestSendChecksBalance(t *testing.T) {
	l, user := newTestLedger(t)
	init, addr := counterInit(t, 0)
	_, err := l.Genesis(init, big.NewInt(10))
	require.NoError(t, err)

	require.NoError(t, l.Submit(&Message{From: user, To: addr, Body: comment(t, "overspend"), Bounce: true}))
	require.NoError(t, l.Run(context.Background()))
	receipts := l.Receipts()
	require.Equal(t, int32(37), receipts[0].ExitCode)
	require.Equal(t, uint32(0), counterValue(t, l, addr))
}

func TestRepliesAndDrain(t *testing.T) {
	l, user := newTestLedger(t)
	init, addr := counterInit(t, 0)
	_, err := l.Genesis(init, big.NewInt(10))
	require.NoError(t, err)

	require.NoError(t, l.Submit(&Message{From: user, To: addr, Body: comment(t, "ping")}))
	require.NoError(t, l.Submit(&Message{From: user, To: addr, Body: comment(t, "drain")}))
	require.NoError(t, l.Run(context.Background()))

	inbox := l.Inbox(user)
	require.Len(t, inbox, 2)
	var first, second wire.TextComment
	require.NoError(t, wire.DecodeInto(inbox[0].Body, &first))
	require.NoError(t, wire.DecodeInto(inbox[1].Body, &second))
	require.Equal(t, "pong", first.Text)
	require.Equal(t, "all", second.Text)
	require.Equal(t, int64(9), inbox[1].Value.Int64())

	balance, _ := l.Balance(addr)
	require.Zero(t, balance.Sign())
}

func TestUnknownDestinationBounces(t *testing.T) {
	l, user := newTestLedger(t)
	ghost := testAddr(7)
	require.NoError(t, l.Submit(&Message{From: user, To: ghost, Value: big.NewInt(5), Bounce: true}))
	require.NoError(t, l.Run(context.Background()))
	require.False(t, l.Exists(ghost))
	balance, _ := l.Balance(user)
	require.Equal(t, int64(1_000), balance.Int64())
}

func TestPersistAndLoad(t *testing.T) {
	db := storage.NewMemDB()
	l, user := newTestLedger(t)
	l.SetDatabase(db)
	init, addr := counterInit(t, 0)

	require.NoError(t, l.Submit(&Message{From: user, To: addr, Value: big.NewInt(25), Body: comment(t, "inc"), StateInit: init}))
	require.NoError(t, l.Submit(&Message{From: user, To: addr, Body: comment(t, "inc")}))
	require.NoError(t, l.Run(context.Background()))

	restored := New()
	restored.SetDatabase(db)
	require.NoError(t, restored.Load())
	require.Equal(t, uint32(2), counterValue(t, restored, addr))
	balance, ok := restored.Balance(addr)
	require.True(t, ok)
	require.Equal(t, int64(25), balance.Int64())
	require.True(t, restored.Exists(user))
}

func TestRunHonoursContext(t *testing.T) {
	l, user := newTestLedger(t)
	require.NoError(t, l.Submit(&Message{From: user, To: user, Value: big.NewInt(1)}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, l.Run(ctx), context.Canceled)
	require.Equal(t, 1, l.Pending())
}

func TestStateInitAddressIsDeterministic(t *testing.T) {
	_, a := counterInit(t, 3)
	_, b := counterInit(t, 3)
	_, c := counterInit(t, 4)
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	code, ok := CodeCell("ledger-test-counter")
	require.True(t, ok)
	require.Same(t, counterCode, code)
}

func TestSubmitCannotForgeBounce(t *testing.T) {
	l, user := newTestLedger(t)
	init, addr := counterInit(t, 0)
	_, err := l.Genesis(init, nil)
	require.NoError(t, err)

	require.NoError(t, l.Submit(&Message{From: user, To: addr, Body: comment(t, "inc"), Bounced: true}))
	require.NoError(t, l.Run(context.Background()))
	require.Equal(t, uint32(1), counterValue(t, l, addr))
}

func TestDeployOverPrefundedAddress(t *testing.T) {
	db := storage.NewMemDB()
	l, user := newTestLedger(t)
	l.SetDatabase(db)
	init, addr := counterInit(t, 0)

	require.NoError(t, l.Submit(&Message{From: user, To: addr, Value: big.NewInt(7)}))
	require.NoError(t, l.Run(context.Background()))
	require.True(t, l.Exists(addr))
	require.ErrorIs(t, l.View(addr, func(Contract, *big.Int) error { return nil }), ErrNotContract)

	require.NoError(t, l.Submit(&Message{From: user, To: addr, Value: big.NewInt(100), Body: comment(t, "inc"), StateInit: init, Bounce: true}))
	require.NoError(t, l.Run(context.Background()))

	require.Equal(t, uint32(1), counterValue(t, l, addr))
	balance, _ := l.Balance(addr)
	require.Equal(t, int64(107), balance.Int64())

	restored := New()
	restored.SetDatabase(db)
	require.NoError(t, restored.Load())
	require.Equal(t, uint32(1), counterValue(t, restored, addr))
	balance, _ = restored.Balance(addr)
	require.Equal(t, int64(107), balance.Int64())
}

func TestFailedDeployOverPrefundedAddressKeepsItUninit(t *testing.T) {
	l, user := newTestLedger(t)
	init, addr := counterInit(t, 0)

	require.NoError(t, l.Submit(&Message{From: user, To: addr, Value: big.NewInt(7)}))
	require.NoError(t, l.Submit(&Message{From: user, To: addr, Value: big.NewInt(40), Body: comment(t, "fail"), StateInit: init, Bounce: true}))
	require.NoError(t, l.Run(context.Background()))

	require.ErrorIs(t, l.View(addr, func(Contract, *big.Int) error { return nil }), ErrNotContract)
	balance, _ := l.Balance(addr)
	require.Equal(t, int64(7), balance.Int64())
	balance, _ = l.Balance(user)
	require.Equal(t, int64(993), balance.Int64())

	require.NoError(t, l.Submit(&Message{From: user, To: addr, Value: big.NewInt(10), Body: comment(t, "inc"), StateInit: init, Bounce: true}))
	require.NoError(t, l.Run(context.Background()))
	require.Equal(t, uint32(1), counterValue(t, l, addr))
	balance, _ = l.Balance(addr)
	require.Equal(t, int64(17), balance.Int64())
}

func TestNonBounceableFailedDeployKeepsValue(t *testing.T) {
	db := storage.NewMemDB()
	l, user := newTestLedger(t)
	l.SetDatabase(db)
	init, addr := counterInit(t, 0)

	require.NoError(t, l.Submit(&Message{From: user, To: addr, Value: big.NewInt(40), Body: comment(t, "fail"), StateInit: init}))
	require.NoError(t, l.Run(context.Background()))

	require.ErrorIs(t, l.View(addr, func(Contract, *big.Int) error { return nil }), ErrNotContract)
	receipts := l.Receipts()
	require.True(t, receipts[len(receipts)-1].Aborted())

	restored := New()
	restored.SetDatabase(db)
	require.NoError(t, restored.Load())
	balance, ok := restored.Balance(addr)
	require.True(t, ok)
	require.Equal(t, int64(40), balance.Int64())
}

func TestNonBounceableAbortPersistsValue(t *testing.T) {
	db := storage.NewMemDB()
	l, user := newTestLedger(t)
	l.SetDatabase(db)
	init, addr := counterInit(t, 3)
	_, err := l.Genesis(init, big.NewInt(10))
	require.NoError(t, err)

	require.NoError(t, l.Submit(&Message{From: user, To: addr, Value: big.NewInt(40), Body: comment(t, "fail")}))
	require.NoError(t, l.Run(context.Background()))

	restored := New()
	restored.SetDatabase(db)
	require.NoError(t, restored.Load())
	require.Equal(t, uint32(3), counterValue(t, restored, addr))
	balance, _ := restored.Balance(addr)
	require.Equal(t, int64(50), balance.Int64())
}
