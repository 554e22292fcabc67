package jetton

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/ton"

	coreerrors "tonaffiliate/core/errors"
	"tonaffiliate/core/ledger"
	"tonaffiliate/core/types"
	"tonaffiliate/core/wire"
)

const EventTypeMinted = "jetton.minted"

// MinterCode is the code cell of the jetton master contract.
var MinterCode = ledger.Register("jetton-minter", loadMinter)

// Minter is the jetton master. Only its admin may mint.
type Minter struct {
	admin       ton.AccountID
	totalSupply *big.Int
	walletCode  *boc.Cell
}

// MinterStateInit returns the StateInit of a minter with no supply.
func MinterStateInit(admin ton.AccountID, walletCode *boc.Cell) (*ledger.StateInit, error) {
	m := &Minter{admin: admin, totalSupply: new(big.Int), walletCode: walletCode}
	data, err := m.Data()
	if err != nil {
		return nil, err
	}
	return &ledger.StateInit{Code: MinterCode, Data: data}, nil
}

func loadMinter(data *boc.Cell) (ledger.Contract, error) {
	s := wire.NewSlice(data)
	m := &Minter{admin: s.Address(), totalSupply: s.Coins(), walletCode: s.Ref()}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Minter) Data() (*boc.Cell, error) {
	return wire.NewBuilder().Address(m.admin).Coins(m.totalSupply).Ref(m.walletCode).Cell()
}

func (m *Minter) Admin() ton.AccountID  { return m.admin }
func (m *Minter) TotalSupply() *big.Int { return new(big.Int).Set(m.totalSupply) }
func (m *Minter) WalletCode() *boc.Cell { return m.walletCode }

func (m *Minter) Receive(tx *ledger.Tx, msg *ledger.Message) error {
	if msg.Bounced {
		decoded, err := wire.DecodeBounced(msg.Body)
		if err != nil {
			return nil
		}
		if t, ok := decoded.(*wire.JettonInternalTransfer); ok {
			m.totalSupply.Sub(m.totalSupply, amountOrZero(t.Amount))
		}
		return nil
	}
	var mint wire.JettonMint
	if err := wire.DecodeInto(msg.Body, &mint); err != nil {
		return err
	}
	if msg.From != m.admin {
		return coreerrors.ErrJettonUnauthorized
	}
	amount := amountOrZero(mint.Amount)
	if amount.Sign() <= 0 {
		return fmt.Errorf("jetton: mint amount %s: %w", amount, coreerrors.ErrInvalidAmount)
	}
	init, err := WalletStateInit(tx.Self(), mint.To, m.walletCode)
	if err != nil {
		return err
	}
	dest, err := init.Address()
	if err != nil {
		return err
	}
	admin := m.admin
	body, err := wire.Encode(&wire.JettonInternalTransfer{
		QueryID:          mint.QueryID,
		Amount:           amount,
		From:             tx.Self(),
		ResponseAddress:  &admin,
		ForwardTonAmount: new(big.Int),
	})
	if err != nil {
		return err
	}
	if err := tx.Send(&ledger.Message{To: dest, Value: msg.Value, Body: body, Bounce: true, StateInit: init}); err != nil {
		return err
	}
	m.totalSupply.Add(m.totalSupply, amount)
	tx.Emit(&types.Event{Type: EventTypeMinted, Attributes: map[string]string{
		"to":          mint.To.ToRaw(),
		"wallet":      dest.ToRaw(),
		"amount":      amount.String(),
		"queryId":     strconv.FormatUint(mint.QueryID, 10),
		"totalSupply": m.totalSupply.String(),
	}})
	return nil
}
