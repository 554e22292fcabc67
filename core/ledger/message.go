package ledger

import (
	"fmt"
	"math/big"

	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/ton"

	"tonaffiliate/core/wire"
)

// Message is an internal message between two accounts.
type Message struct {
	From  ton.AccountID
	To    ton.AccountID
	Value *big.Int
	Body  *boc.Cell
	// Bounce asks the ledger to return the value when the receiver aborts.
	Bounce bool
	// Bounced marks a message returned to its sender. Its body is
	// 0xFFFFFFFF followed by the original body.
	Bounced   bool
	StateInit *StateInit
}

// Op returns the leading op code of the body, or 0 for an empty body.
func (m *Message) Op() uint32 {
	op, _ := wire.PeekOp(m.Body)
	return op
}

func (m *Message) value() *big.Int {
	if m.Value == nil {
		return new(big.Int)
	}
	return m.Value
}

// NewMessage encodes body and returns a bounceable message.
func NewMessage(to ton.AccountID, value *big.Int, body wire.Message) (*Message, error) {
	msg := &Message{To: to, Value: value, Bounce: true}
	if body != nil {
		cell, err := wire.Encode(body)
		if err != nil {
			return nil, err
		}
		msg.Body = cell
	}
	return msg, nil
}

// StateInit is the code and initial data of a contract. Its cell hash is the
// contract address.
type StateInit struct {
	Code *boc.Cell
	Data *boc.Cell
}

// Cell serializes the StateInit: no split depth, no special flag, code and
// data as references, empty library.
func (s *StateInit) Cell() (*boc.Cell, error) {
	if s == nil || s.Code == nil || s.Data == nil {
		return nil, fmt.Errorf("ledger: state init needs code and data")
	}
	return wire.NewBuilder().
		Bool(false).
		Bool(false).
		MaybeRef(s.Code).
		MaybeRef(s.Data).
		Bool(false).
		Cell()
}

// Address derives the workchain 0 address of the StateInit.
func (s *StateInit) Address() (ton.AccountID, error) {
	cell, err := s.Cell()
	if err != nil {
		return ton.AccountID{}, err
	}
	hash, err := wire.Hash(cell)
	if err != nil {
		return ton.AccountID{}, err
	}
	return ton.AccountID{Workchain: 0, Address: hash}, nil
}

// Receipt records the outcome of one delivery.
type Receipt struct {
	// Seq increases by one per delivery and survives receipt log trimming.
	Seq      uint64
	From     ton.AccountID
	To       ton.AccountID
	Op       uint32
	ExitCode int32
	Bounced  bool
	// Err is the handler error for aborted deliveries.
	Err error
}

// Aborted reports whether the handler failed.
func (r Receipt) Aborted() bool { return r.ExitCode != 0 }
