package jetton

import (
	"fmt"
	"math/big"

	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/ton"

	coreerrors "tonaffiliate/core/errors"
	"tonaffiliate/core/ledger"
	"tonaffiliate/core/wire"
)

// WalletCode is the code cell of the jetton wallet contract.
var WalletCode = ledger.Register("jetton-wallet", loadWallet)

// Wallet holds one owner's balance of one jetton.
type Wallet struct {
	balance *big.Int
	owner   ton.AccountID
	master  ton.AccountID
}

func loadWallet(data *boc.Cell) (ledger.Contract, error) {
	s := wire.NewSlice(data)
	w := &Wallet{balance: s.Coins(), owner: s.Address(), master: s.Address()}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Wallet) Data() (*boc.Cell, error) { return walletData(w.balance, w.owner, w.master) }

func (w *Wallet) Balance() *big.Int     { return new(big.Int).Set(w.balance) }
func (w *Wallet) Owner() ton.AccountID  { return w.owner }
func (w *Wallet) Master() ton.AccountID { return w.master }

func (w *Wallet) Receive(tx *ledger.Tx, msg *ledger.Message) error {
	if msg.Bounced {
		return w.onBounce(msg)
	}
	decoded, err := wire.Decode(msg.Body)
	if err != nil {
		return err
	}
	switch m := decoded.(type) {
	case *wire.JettonTransfer:
		return w.transfer(tx, msg, m)
	case *wire.JettonInternalTransfer:
		return w.receiveTransfer(tx, msg, m)
	default:
		return fmt.Errorf("jetton: wallet cannot handle op 0x%08x: %w", m.OpCode(), coreerrors.ErrInvalidMessage)
	}
}

func (w *Wallet) transfer(tx *ledger.Tx, msg *ledger.Message, m *wire.JettonTransfer) error {
	if msg.From != w.owner {
		return coreerrors.ErrJettonUnauthorized
	}
	amount := amountOrZero(m.Amount)
	if amount.Cmp(w.balance) > 0 {
		return fmt.Errorf("jetton: transfer %s with balance %s: %w", amount, w.balance, coreerrors.ErrJettonBalanceInsufficient)
	}
	forward := amountOrZero(m.ForwardTonAmount)
	if forward.Cmp(msg.Value) > 0 {
		return fmt.Errorf("jetton: forward amount %s above attached %s: %w", forward, msg.Value, coreerrors.ErrInsufficientBalance)
	}
	init, err := WalletStateInit(w.master, m.Destination, tx.Code())
	if err != nil {
		return err
	}
	dest, err := init.Address()
	if err != nil {
		return err
	}
	w.balance.Sub(w.balance, amount)
	body, err := wire.Encode(&wire.JettonInternalTransfer{
		QueryID:          m.QueryID,
		Amount:           amount,
		From:             w.owner,
		ResponseAddress:  m.ResponseDestination,
		ForwardTonAmount: forward,
		ForwardPayload:   m.ForwardPayload,
	})
	if err != nil {
		return err
	}
	return tx.Send(&ledger.Message{To: dest, Value: msg.Value, Body: body, Bounce: true, StateInit: init})
}

func (w *Wallet) receiveTransfer(tx *ledger.Tx, msg *ledger.Message, m *wire.JettonInternalTransfer) error {
	if msg.From != w.master {
		peer, err := WalletAddress(w.master, m.From, tx.Code())
		if err != nil {
			return err
		}
		if msg.From != peer {
			return coreerrors.ErrJettonUnauthorized
		}
	}
	w.balance.Add(w.balance, amountOrZero(m.Amount))

	remaining := new(big.Int).Set(msg.Value)
	forward := amountOrZero(m.ForwardTonAmount)
	if forward.Sign() > 0 {
		if forward.Cmp(remaining) > 0 {
			return fmt.Errorf("jetton: forward amount %s above attached %s: %w", forward, remaining, coreerrors.ErrInsufficientBalance)
		}
		notify := &wire.JettonTransferNotification{
			QueryID:        m.QueryID,
			Amount:         amountOrZero(m.Amount),
			Sender:         m.From,
			ForwardPayload: m.ForwardPayload,
		}
		if err := tx.SendBody(w.owner, forward, false, notify); err != nil {
			return err
		}
		remaining.Sub(remaining, forward)
	}
	if m.ResponseAddress != nil && remaining.Sign() > 0 {
		return tx.SendBody(*m.ResponseAddress, remaining, false, &wire.JettonExcesses{QueryID: m.QueryID})
	}
	return nil
}

// onBounce re-credits tokens whose internal transfer was rejected by the
// receiving wallet.
func (w *Wallet) onBounce(msg *ledger.Message) error {
	decoded, err := wire.DecodeBounced(msg.Body)
	if err != nil {
		return nil
	}
	if m, ok := decoded.(*wire.JettonInternalTransfer); ok {
		w.balance.Add(w.balance, amountOrZero(m.Amount))
	}
	return nil
}

func amountOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
