package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/tonkeeper/tongo/ton"

	"tonaffiliate/core/wire"
	"tonaffiliate/storage"
)

var accountIndexKey = crypto.Keccak256([]byte("ledger/accounts"))

func accountKey(addr ton.AccountID) []byte {
	return crypto.Keccak256([]byte("ledger/account/" + addr.ToRaw()))
}

// accountRecord is the RLP layout of a persisted account. Code and Data are
// bags of cells; both are empty for wallets and uninit accounts.
type accountRecord struct {
	Address string
	Kind    string
	Balance *big.Int
	Code    []byte
	Data    []byte
}

type accountIndex struct {
	Addresses []string
}

func (l *Ledger) persist(acct *account) error {
	if l.db == nil {
		return nil
	}
	rec := accountRecord{Address: acct.addr.ToRaw(), Kind: acct.kind, Balance: acct.balance}
	if acct.contract != nil {
		data, err := acct.contract.Data()
		if err != nil {
			return err
		}
		if rec.Data, err = wire.ToBoc(data); err != nil {
			return err
		}
		if rec.Code, err = wire.ToBoc(acct.code); err != nil {
			return err
		}
	}
	encoded, err := rlp.EncodeToBytes(&rec)
	if err != nil {
		return fmt.Errorf("ledger: encode account: %w", err)
	}
	pairs := []storage.KV{{Key: accountKey(acct.addr), Value: encoded}}
	if _, ok := l.indexed[acct.addr]; !ok {
		idx, err := l.loadIndex()
		if err != nil {
			return err
		}
		idx.Addresses = append(idx.Addresses, rec.Address)
		encodedIdx, err := rlp.EncodeToBytes(idx)
		if err != nil {
			return fmt.Errorf("ledger: encode index: %w", err)
		}
		pairs = append(pairs, storage.KV{Key: accountIndexKey, Value: encodedIdx})
	}
	if err := l.db.PutBatch(pairs); err != nil {
		return err
	}
	l.indexed[acct.addr] = struct{}{}
	return nil
}

func (l *Ledger) loadIndex() (*accountIndex, error) {
	idx := new(accountIndex)
	raw, err := l.db.Get(accountIndexKey)
	if errors.Is(err, storage.ErrNotFound) {
		return idx, nil
	}
	if err != nil {
		return nil, err
	}
	if err := rlp.DecodeBytes(raw, idx); err != nil {
		return nil, fmt.Errorf("ledger: decode index: %w", err)
	}
	return idx, nil
}

// Load restores every persisted account from the configured database,
// replacing in-memory accounts with the same address. Contract code must be
// registered before Load runs.
func (l *Ledger) Load() error {
	if l.db == nil {
		return errors.New("ledger: no database configured")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	idx, err := l.loadIndex()
	if err != nil {
		return err
	}
	for _, raw := range idx.Addresses {
		addr, err := ton.ParseAccountID(raw)
		if err != nil {
			return fmt.Errorf("ledger: index entry %q: %w", raw, err)
		}
		encoded, err := l.db.Get(accountKey(addr))
		if err != nil {
			return fmt.Errorf("ledger: account %s: %w", raw, err)
		}
		var rec accountRecord
		if err := rlp.DecodeBytes(encoded, &rec); err != nil {
			return fmt.Errorf("ledger: decode account %s: %w", raw, err)
		}
		acct, err := restoreAccount(addr, &rec)
		if err != nil {
			return fmt.Errorf("ledger: restore %s: %w", raw, err)
		}
		l.accounts[addr] = acct
		l.indexed[addr] = struct{}{}
	}
	return nil
}

func restoreAccount(addr ton.AccountID, rec *accountRecord) (*account, error) {
	balance := cloneOrZero(rec.Balance)
	switch rec.Kind {
	case walletKind:
		return &account{addr: addr, kind: walletKind, balance: balance}, nil
	case uninitKind:
		return newUninit(addr, balance), nil
	}
	code, err := wire.FromBoc(rec.Code)
	if err != nil {
		return nil, err
	}
	data, err := wire.FromBoc(rec.Data)
	if err != nil {
		return nil, err
	}
	acct, err := instantiate(addr, &StateInit{Code: code, Data: data})
	if err != nil {
		return nil, err
	}
	acct.balance = balance
	return acct, nil
}
