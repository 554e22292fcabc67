package ledger

import (
	"fmt"
	"math/big"

	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/ton"

	coreerrors "tonaffiliate/core/errors"
	"tonaffiliate/core/types"
	"tonaffiliate/core/wire"
)

// Tx is the execution context of one delivery. Outgoing messages and events
// are buffered and only take effect if the handler returns nil.
type Tx struct {
	self    ton.AccountID
	code    *boc.Cell
	now     int64
	balance *big.Int
	drained bool
	out     []*Message
	events  []*types.Event
}

func newTx(self ton.AccountID, code *boc.Cell, balance *big.Int, now int64) *Tx {
	return &Tx{self: self, code: code, now: now, balance: new(big.Int).Set(balance)}
}

// Self returns the address of the executing contract.
func (tx *Tx) Self() ton.AccountID { return tx.self }

// Code returns the code cell of the executing contract.
func (tx *Tx) Code() *boc.Cell { return tx.code }

// Now returns the ledger time in unix seconds.
func (tx *Tx) Now() int64 { return tx.now }

// Balance returns the contract balance including the inbound value and minus
// everything sent so far.
func (tx *Tx) Balance() *big.Int { return new(big.Int).Set(tx.balance) }

// Send queues msg and debits its value from the contract balance.
func (tx *Tx) Send(msg *Message) error {
	if tx.drained {
		return fmt.Errorf("ledger: balance already carried away: %w", coreerrors.ErrInsufficientBalance)
	}
	value := msg.value()
	if value.Sign() < 0 {
		return fmt.Errorf("ledger: negative value %s: %w", value, coreerrors.ErrInvalidAmount)
	}
	if value.Cmp(tx.balance) > 0 {
		return fmt.Errorf("ledger: send %s with balance %s: %w", value, tx.balance, coreerrors.ErrInsufficientBalance)
	}
	tx.balance.Sub(tx.balance, value)
	out := *msg
	out.From = tx.self
	out.Value = new(big.Int).Set(value)
	tx.out = append(tx.out, &out)
	return nil
}

// SendBody encodes body and sends it with the given value and bounce flag.
func (tx *Tx) SendBody(to ton.AccountID, value *big.Int, bounce bool, body wire.Message) error {
	msg, err := NewMessage(to, value, body)
	if err != nil {
		return err
	}
	msg.Bounce = bounce
	return tx.Send(msg)
}

// SendRemainingBalance sends msg carrying the whole remaining balance. No
// value-bearing message may follow it in the same delivery.
func (tx *Tx) SendRemainingBalance(msg *Message) error {
	if tx.drained {
		return fmt.Errorf("ledger: balance already carried away: %w", coreerrors.ErrInsufficientBalance)
	}
	carry := *msg
	carry.Value = new(big.Int).Set(tx.balance)
	if err := tx.Send(&carry); err != nil {
		return err
	}
	tx.drained = true
	return nil
}

// Emit buffers an event for off-chain listeners.
func (tx *Tx) Emit(evt *types.Event) {
	if evt == nil {
		return
	}
	tx.events = append(tx.events, evt)
}

// Outbox returns the messages queued so far. Intended for tests that drive a
// contract without a ledger.
func (tx *Tx) Outbox() []*Message { return tx.out }

// Events returns the events emitted so far.
func (tx *Tx) Events() []*types.Event { return tx.events }

// NewTestTx builds a standalone context so a contract handler can be driven
// directly in unit tests.
func NewTestTx(self ton.AccountID, balance *big.Int, now int64) *Tx {
	if balance == nil {
		balance = new(big.Int)
	}
	return newTx(self, nil, balance, now)
}
