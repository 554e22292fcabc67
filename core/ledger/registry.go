package ledger

import (
	"fmt"
	"sync"

	"github.com/tonkeeper/tongo/boc"

	"tonaffiliate/core/wire"
)

// Contract is the message handler of a deployed account. Receive runs with
// exclusive access to the contract; an error aborts the delivery and the
// ledger restores the contract from the Data it returned beforehand.
type Contract interface {
	Receive(tx *Tx, msg *Message) error
	Data() (*boc.Cell, error)
}

// Factory restores a contract from its persisted data cell.
type Factory func(data *boc.Cell) (Contract, error)

type codeEntry struct {
	name    string
	code    *boc.Cell
	factory Factory
}

var (
	codeMu    sync.RWMutex
	codeByKey = map[[32]byte]codeEntry{}
	codeByTag = map[string]codeEntry{}
)

// Register binds a contract kind to a code cell derived from name and returns
// that cell. Deploying a StateInit with this code instantiates the contract
// through factory. Registering a name twice panics.
func Register(name string, factory Factory) *boc.Cell {
	codeMu.Lock()
	defer codeMu.Unlock()
	if _, dup := codeByTag[name]; dup {
		panic(fmt.Sprintf("ledger: contract %q registered twice", name))
	}
	code, err := wire.NewBuilder().Bytes([]byte("tonaffiliate/code/" + name)).Cell()
	if err != nil {
		panic(err)
	}
	key, err := wire.Hash(code)
	if err != nil {
		panic(err)
	}
	entry := codeEntry{name: name, code: code, factory: factory}
	codeByKey[key] = entry
	codeByTag[name] = entry
	return code
}

// CodeCell returns the code cell registered under name.
func CodeCell(name string) (*boc.Cell, bool) {
	codeMu.RLock()
	defer codeMu.RUnlock()
	entry, ok := codeByTag[name]
	return entry.code, ok
}

func lookupCode(code *boc.Cell) (codeEntry, error) {
	key, err := wire.Hash(code)
	if err != nil {
		return codeEntry{}, err
	}
	codeMu.RLock()
	defer codeMu.RUnlock()
	entry, ok := codeByKey[key]
	if !ok {
		return codeEntry{}, fmt.Errorf("ledger: unknown contract code %x", key[:8])
	}
	return entry, nil
}
