package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/ton"

	coreerrors "tonaffiliate/core/errors"
	"tonaffiliate/core/events"
	"tonaffiliate/core/types"
	"tonaffiliate/core/wire"
	"tonaffiliate/observability"
	"tonaffiliate/storage"
)

const (
	walletKind = "wallet"
	// uninitKind holds value sent to an address before any code was
	// deployed there. A later message with a StateInit deploys over it.
	uninitKind = "uninit"
	// maxReceipts bounds the in-memory receipt log.
	maxReceipts = 4096
	// maxDeliveriesPerRun stops runaway message loops.
	maxDeliveriesPerRun = 100_000
)

var (
	ErrAccountExists   = errors.New("ledger: account already exists")
	ErrAccountNotFound = errors.New("ledger: account not found")
	ErrNotWallet       = errors.New("ledger: sender is not a wallet")
	ErrNotContract     = errors.New("ledger: account is not a contract")
	ErrRunawayQueue    = errors.New("ledger: delivery limit reached")
)

type account struct {
	addr     ton.AccountID
	kind     string
	balance  *big.Int
	code     *boc.Cell
	contract Contract
	factory  Factory
	inbox    []*Message
}

// Ledger delivers messages between wallets and contracts one at a time from a
// single FIFO queue, so messages between any pair of accounts arrive in send
// order.
type Ledger struct {
	mu       sync.RWMutex
	clock    clockwork.Clock
	accounts map[ton.AccountID]*account
	indexed  map[ton.AccountID]struct{}
	queue    []*Message
	receipts []Receipt
	seq      uint64
	emitter  events.Emitter
	db       storage.Database
	logger   *slog.Logger
	metrics  *observability.LedgerMetrics
}

// New returns an empty ledger on the real clock with no persistence.
func New() *Ledger {
	return &Ledger{
		clock:    clockwork.NewRealClock(),
		accounts: make(map[ton.AccountID]*account),
		indexed:  make(map[ton.AccountID]struct{}),
		emitter:  events.NoopEmitter{},
		logger:   slog.Default(),
		metrics:  observability.Ledger(),
	}
}

// SetClock overrides the time source. Tests pass a clockwork fake clock.
func (l *Ledger) SetClock(clock clockwork.Clock) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	l.clock = clock
}

// SetEmitter configures the event emitter used by the ledger. Passing nil resets
// the emitter to a no-op implementation.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// SetDatabase enables persistence of every committed account.
func (l *Ledger) SetDatabase(db storage.Database) { l.db = db }

func (l *Ledger) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	l.logger = logger
}

// Now returns the ledger time in unix seconds.
func (l *Ledger) Now() int64 { return l.clock.Now().Unix() }

// CreateWallet opens a plain wallet account holding balance.
func (l *Ledger) CreateWallet(addr ton.AccountID, balance *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.accounts[addr]; exists {
		return fmt.Errorf("%w: %s", ErrAccountExists, addr.ToRaw())
	}
	acct := &account{addr: addr, kind: walletKind, balance: cloneOrZero(balance)}
	l.accounts[addr] = acct
	return l.persist(acct)
}

// Genesis installs a contract directly, without a deploy message. The node
// uses it to create the marketplace.
func (l *Ledger) Genesis(init *StateInit, balance *big.Int) (ton.AccountID, error) {
	addr, err := init.Address()
	if err != nil {
		return ton.AccountID{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.accounts[addr]; exists {
		return addr, fmt.Errorf("%w: %s", ErrAccountExists, addr.ToRaw())
	}
	acct, err := instantiate(addr, init)
	if err != nil {
		return ton.AccountID{}, err
	}
	acct.balance = cloneOrZero(balance)
	l.accounts[addr] = acct
	return addr, l.persist(acct)
}

// Submit queues a message originated by a wallet account. The value is
// debited immediately and any Bounced flag is cleared.
func (l *Ledger) Submit(msg *Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	from, ok := l.accounts[msg.From]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, msg.From.ToRaw())
	}
	if from.contract != nil {
		return fmt.Errorf("%w: %s", ErrNotWallet, msg.From.ToRaw())
	}
	value := msg.value()
	if value.Sign() < 0 {
		return fmt.Errorf("ledger: negative value: %w", coreerrors.ErrInvalidAmount)
	}
	if value.Cmp(from.balance) > 0 {
		return fmt.Errorf("ledger: wallet %s holds %s, needs %s: %w", msg.From.ToRaw(), from.balance, value, coreerrors.ErrInsufficientBalance)
	}
	from.balance.Sub(from.balance, value)
	if err := l.persist(from); err != nil {
		from.balance.Add(from.balance, value)
		return err
	}
	queued := *msg
	queued.Value = new(big.Int).Set(value)
	// Only the ledger produces bounces.
	queued.Bounced = false
	l.queue = append(l.queue, &queued)
	l.metrics.SetQueueDepth(len(l.queue))
	return nil
}

// Run delivers queued messages, including everything they cause, until the
// queue is empty or ctx is cancelled.
func (l *Ledger) Run(ctx context.Context) error {
	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i >= maxDeliveriesPerRun {
			return ErrRunawayQueue
		}
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return nil
		}
		msg := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		committed := l.deliver(msg)
		depth := len(l.queue)
		l.mu.Unlock()

		l.metrics.SetQueueDepth(depth)
		for _, evt := range committed {
			observability.Events().RecordEmitted(evt.Type)
			l.emitter.Emit(events.Envelope{Evt: evt})
		}
	}
}

// deliver handles one message and returns the events to publish. The caller
// holds l.mu.
func (l *Ledger) deliver(msg *Message) []*types.Event {
	value := msg.value()
	acct := l.accounts[msg.To]
	// prior is the uninit account a deploy replaces, restored if the deploy
	// aborts.
	var prior *account
	deployed := false
	if msg.StateInit != nil && (acct == nil || acct.kind == uninitKind) {
		deployedAcct, err := l.deploy(msg, acct)
		if err != nil {
			l.abortUninit(msg, acct, err)
			return nil
		}
		prior, acct, deployed = acct, deployedAcct, true
	}
	if acct == nil {
		if msg.Bounce && !msg.Bounced {
			l.reject(msg, uninitKind, fmt.Errorf("%w: %s", ErrAccountNotFound, msg.To.ToRaw()))
			return nil
		}
		acct = newUninit(msg.To, nil)
		l.accounts[msg.To] = acct
	}

	if acct.contract == nil {
		acct.balance.Add(acct.balance, value)
		acct.inbox = append(acct.inbox, msg)
		l.record(Receipt{From: msg.From, To: msg.To, Op: msg.Op(), Bounced: msg.Bounced})
		if err := l.persist(acct); err != nil {
			l.logger.Error("persist wallet", "account", acct.addr.ToRaw(), "error", err)
		}
		return nil
	}

	snapshot, err := acct.contract.Data()
	if err != nil {
		l.logger.Error("snapshot contract", "account", acct.addr.ToRaw(), "error", err)
		l.reject(msg, acct.kind, err)
		return nil
	}
	tx := newTx(acct.addr, acct.code, new(big.Int).Add(acct.balance, value), l.Now())
	start := l.clock.Now()
	err = receive(acct.contract, tx, msg)
	l.metrics.ObserveDelivery(acct.kind, coreerrors.ExitCode(err), l.clock.Since(start))

	if err != nil {
		restored, rerr := acct.factory(snapshot)
		if rerr != nil {
			l.logger.Error("restore contract", "account", acct.addr.ToRaw(), "error", rerr)
		} else {
			acct.contract = restored
		}
		l.reject(msg, acct.kind, err)
		if deployed {
			// A failed deploy leaves the address as it was before.
			if prior != nil {
				l.accounts[acct.addr] = prior
			} else {
				delete(l.accounts, acct.addr)
			}
			l.abortUninit(msg, prior, nil)
			return nil
		}
		if !msg.Bounce || msg.Bounced {
			l.keepValue(acct, value)
		}
		return nil
	}

	acct.balance = tx.balance
	l.queue = append(l.queue, tx.out...)
	l.record(Receipt{From: msg.From, To: msg.To, Op: msg.Op(), Bounced: msg.Bounced})
	l.logger.Debug("message committed",
		"contract", acct.kind,
		"account", acct.addr.ToRaw(),
		"op", fmt.Sprintf("0x%08x", msg.Op()),
		"bounced", msg.Bounced,
		"out", len(tx.out))
	if err := l.persist(acct); err != nil {
		l.logger.Error("persist contract", "account", acct.addr.ToRaw(), "error", err)
	}
	raw := acct.addr.ToRaw()
	for _, evt := range tx.events {
		evt.Contract = raw
	}
	return tx.events
}

func receive(c Contract, tx *Tx, msg *Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ledger: handler panic: %v", r)
		}
	}()
	return c.Receive(tx, msg)
}

// reject records the failure and bounces the value when requested. Messages
// that already bounced never bounce again.
func (l *Ledger) reject(msg *Message, kind string, cause error) {
	code := coreerrors.ExitCode(cause)
	if code == 0 {
		code = coreerrors.ExitCodeUnknown
	}
	bounce := msg.Bounce && !msg.Bounced
	l.record(Receipt{From: msg.From, To: msg.To, Op: msg.Op(), ExitCode: code, Bounced: msg.Bounced, Err: cause})
	l.logger.Warn("message aborted",
		"contract", kind,
		"account", msg.To.ToRaw(),
		"op", fmt.Sprintf("0x%08x", msg.Op()),
		"exit_code", code,
		"bounce", bounce,
		"error", cause)
	if !bounce {
		return
	}
	body, err := wire.BounceBody(msg.Body)
	if err != nil {
		l.logger.Warn("bounce body", "account", msg.To.ToRaw(), "error", err)
		body, _ = wire.BounceBody(nil)
	}
	l.metrics.RecordBounce(kind)
	l.queue = append(l.queue, &Message{
		From:    msg.To,
		To:      msg.From,
		Value:   new(big.Int).Set(msg.value()),
		Body:    body,
		Bounced: true,
	})
}

// abortUninit finishes a message that could not run at an address without
// code. cause is nil when the failure was already recorded. Value that does
// not bounce stays at the address.
func (l *Ledger) abortUninit(msg *Message, acct *account, cause error) {
	if cause != nil {
		l.reject(msg, uninitKind, cause)
	}
	if msg.Bounce && !msg.Bounced {
		return
	}
	if acct == nil {
		acct = newUninit(msg.To, nil)
		l.accounts[msg.To] = acct
	}
	l.keepValue(acct, msg.value())
}

// keepValue credits the value of an aborted non-bounceable message to the
// account it was sent to.
func (l *Ledger) keepValue(acct *account, value *big.Int) {
	if value.Sign() == 0 {
		return
	}
	acct.balance.Add(acct.balance, value)
	l.logger.Info("aborted message value kept",
		"contract", acct.kind,
		"account", acct.addr.ToRaw(),
		"value", value.String())
	if err := l.persist(acct); err != nil {
		l.logger.Error("persist account", "account", acct.addr.ToRaw(), "error", err)
	}
}

func newUninit(addr ton.AccountID, balance *big.Int) *account {
	return &account{addr: addr, kind: uninitKind, balance: cloneOrZero(balance)}
}

// deploy instantiates the StateInit of msg at its destination. The balance of
// an uninit account already there carries over.
func (l *Ledger) deploy(msg *Message, uninit *account) (*account, error) {
	addr, err := msg.StateInit.Address()
	if err != nil {
		return nil, err
	}
	if addr != msg.To {
		return nil, fmt.Errorf("ledger: state init hashes to %s, not %s: %w", addr.ToRaw(), msg.To.ToRaw(), coreerrors.ErrInvalidAddress)
	}
	acct, err := instantiate(addr, msg.StateInit)
	if err != nil {
		return nil, err
	}
	if uninit != nil {
		acct.balance.Set(uninit.balance)
	}
	l.accounts[addr] = acct
	return acct, nil
}

func instantiate(addr ton.AccountID, init *StateInit) (*account, error) {
	entry, err := lookupCode(init.Code)
	if err != nil {
		return nil, err
	}
	contract, err := entry.factory(init.Data)
	if err != nil {
		return nil, err
	}
	return &account{
		addr:     addr,
		kind:     entry.name,
		balance:  new(big.Int),
		code:     entry.code,
		contract: contract,
		factory:  entry.factory,
	}, nil
}

func (l *Ledger) record(r Receipt) {
	if len(l.receipts) >= maxReceipts {
		l.receipts = append(l.receipts[:0], l.receipts[len(l.receipts)-maxReceipts/2:]...)
	}
	l.seq++
	r.Seq = l.seq
	l.receipts = append(l.receipts, r)
}

// Receipts returns the recent delivery receipts, oldest first.
func (l *Ledger) Receipts() []Receipt {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Receipt(nil), l.receipts...)
}

// Balance returns the balance of addr.
func (l *Ledger) Balance(addr ton.AccountID) (*big.Int, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acct, ok := l.accounts[addr]
	if !ok {
		return nil, false
	}
	return new(big.Int).Set(acct.balance), true
}

// Inbox returns the messages received by a wallet account.
func (l *Ledger) Inbox(addr ton.AccountID) []*Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acct, ok := l.accounts[addr]
	if !ok {
		return nil
	}
	return append([]*Message(nil), acct.inbox...)
}

// Exists reports whether addr holds an account.
func (l *Ledger) Exists(addr ton.AccountID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.accounts[addr]
	return ok
}

// View runs fn against the contract at addr under the read lock. fn must not
// retain or mutate the contract.
func (l *Ledger) View(addr ton.AccountID, fn func(c Contract, balance *big.Int) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acct, ok := l.accounts[addr]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, addr.ToRaw())
	}
	if acct.contract == nil {
		return fmt.Errorf("%w: %s", ErrNotContract, addr.ToRaw())
	}
	return fn(acct.contract, new(big.Int).Set(acct.balance))
}

// Pending reports the number of undelivered messages.
func (l *Ledger) Pending() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.queue)
}

// Clock exposes the ledger clock.
func (l *Ledger) Clock() clockwork.Clock { return l.clock }

func cloneOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
