// Package state implements the account bookkeeping for the ledger. Every
// successful mutating operation appends one block to the block log, which in
// turn informs the registered append listeners.
package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tesseralabs/ledger/foundation/ledger/blocklog"
)

// Transaction kinds recorded in the block log.
const (
	KindTransfer     = "transfer"
	KindApprove      = "approve"
	KindTransferFrom = "transfer_from"
	KindSettle       = "settle"
)

// ErrInsufficientFunds is returned when an account's balance can't cover a
// transfer.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrInsufficientAllowance is returned when a spender's allowance can't
// cover a transfer.
var ErrInsufficientAllowance = errors.New("insufficient allowance")

// EventHandler defines a function that is called when events occur in the
// processing of ledger operations.
type EventHandler func(v string, args ...any)

// =============================================================================

// Config represents the configuration required to start the ledger state.
type Config struct {
	Genesis   Genesis
	BlockLog  *blocklog.Log
	EvHandler EventHandler
}

// State manages the account balances and allowances for the ledger.
type State struct {
	mu         sync.Mutex
	balances   map[string]uint64
	allowances map[string]uint64
	genesis    Genesis
	blockLog   *blocklog.Log
	evHandler  EventHandler
}

// New constructs the ledger state by applying the genesis balances and then
// replaying every block already present in the log.
func New(cfg Config) (*State, error) {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	s := State{
		balances:   make(map[string]uint64),
		allowances: make(map[string]uint64),
		genesis:    cfg.Genesis,
		blockLog:   cfg.BlockLog,
		evHandler:  ev,
	}

	for owner, balance := range cfg.Genesis.Balances {
		accountID, err := ToAccountID(owner)
		if err != nil {
			return nil, fmt.Errorf("genesis account %q: %w", owner, err)
		}
		s.balances[Account{Owner: accountID}.key()] = balance
	}

	blocks, err := cfg.BlockLog.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("replaying block log: %w", err)
	}

	for _, block := range blocks {
		for _, tx := range block.Trans {
			if err := s.checkApply(tx); err != nil {
				return nil, fmt.Errorf("replaying block %d: %w", block.Header.Number, err)
			}
			s.apply(tx)
		}
	}

	ev("state: New: accounts[%d] height[%d]", len(s.balances), cfg.BlockLog.CurrentHeight())

	return &s, nil
}

// Genesis returns a copy of the genesis information.
func (s *State) Genesis() Genesis {
	return s.genesis
}

// =============================================================================

// Transfer moves the amount from one account to another and commits the
// result as a new block.
func (s *State) Transfer(from Account, to Account, amount uint64, memo []byte, sig string) (blocklog.Block, error) {
	return s.commit(KindTransfer, from, to, Account{}, amount, memo, nil, sig)
}

// Settle is the service-to-service transfer path. It behaves like Transfer
// but records the settle kind so the block log shows where the operation
// came from. The data attachment is an opaque reconciliation payload the
// calling service wants recorded with the transaction.
func (s *State) Settle(from Account, to Account, amount uint64, memo []byte, data []byte) (blocklog.Block, error) {
	return s.commit(KindSettle, from, to, Account{}, amount, memo, data, "")
}

// Approve sets the spender's allowance over the owner's account and commits
// the result as a new block.
func (s *State) Approve(owner Account, spender Account, amount uint64, memo []byte, sig string) (blocklog.Block, error) {
	return s.commit(KindApprove, owner, spender, Account{}, amount, memo, nil, sig)
}

// TransferFrom moves the amount from one account to another on the strength
// of the spender's allowance and commits the result as a new block.
func (s *State) TransferFrom(spender Account, from Account, to Account, amount uint64, memo []byte, sig string) (blocklog.Block, error) {
	return s.commit(KindTransferFrom, from, to, spender, amount, memo, nil, sig)
}

// TransferItem represents a single element of a batch transfer.
type TransferItem struct {
	To     Account
	Amount uint64
	Memo   []byte
}

// BatchTransfer moves amounts from one account to a set of destinations as
// a single block. The batch is all-or-nothing: if any element would fail,
// nothing is committed.
func (s *State) BatchTransfer(from Account, items []TransferItem, sig string) (blocklog.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Check the source can cover the whole batch before applying anything
	// so a failure midway can't leave the balances half-applied. A total
	// that wraps the unsigned range can never be covered by a real balance,
	// so a wrap is rejected the same way.
	var total uint64
	for _, item := range items {
		sum := total + item.Amount
		if sum < total {
			return blocklog.Block{}, ErrInsufficientFunds
		}
		total = sum
	}
	if s.balances[from.key()] < total {
		return blocklog.Block{}, ErrInsufficientFunds
	}

	now := uint64(time.Now().UTC().UnixMilli())
	trans := make([]blocklog.Tx, len(items))
	for i, item := range items {
		trans[i] = blocklog.Tx{
			Kind:      KindTransfer,
			From:      string(from.Owner),
			FromSub:   from.SubaccountString(),
			To:        string(item.To.Owner),
			ToSub:     item.To.SubaccountString(),
			Amount:    item.Amount,
			Memo:      item.Memo,
			TimeStamp: now,
			Signature: sig,
		}
	}

	// All elements debit the same source and the total is already covered,
	// so once the block is on disk the applies cannot fail.
	block, err := s.blockLog.Append(trans)
	if err != nil {
		return blocklog.Block{}, fmt.Errorf("appending block: %w", err)
	}

	for _, tx := range trans {
		s.apply(tx)
	}

	s.evHandler("state: BatchTransfer: from[%s] items[%d] block[%d]", from.Owner, len(items), block.Header.Number)

	return block, nil
}

// =============================================================================
// Queries.

// Balance returns the balance of the specified account.
func (s *State) Balance(account Account) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.balances[account.key()]
}

// Allowance returns the spender's allowance over the owner's account.
func (s *State) Allowance(owner Account, spender Account) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.allowances[allowanceKey(owner, spender)]
}

// Accounts returns a copy of every account balance.
func (s *State) Accounts() map[string]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	balances := make(map[string]uint64, len(s.balances))
	for key, balance := range s.balances {
		balances[key] = balance
	}

	return balances
}

// =============================================================================

// commit validates one transaction, appends it to the log, and applies it.
func (s *State) commit(kind string, from Account, to Account, spender Account, amount uint64, memo []byte, data []byte, sig string) (blocklog.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := blocklog.Tx{
		Kind:       kind,
		From:       string(from.Owner),
		FromSub:    from.SubaccountString(),
		To:         string(to.Owner),
		ToSub:      to.SubaccountString(),
		Spender:    string(spender.Owner),
		SpenderSub: spender.SubaccountString(),
		Amount:     amount,
		Memo:       memo,
		Data:       data,
		TimeStamp:  uint64(time.Now().UTC().UnixMilli()),
		Signature:  sig,
	}

	if err := s.checkApply(tx); err != nil {
		return blocklog.Block{}, err
	}

	// The block is persisted before any balance moves so a failed write
	// leaves the in-memory state untouched. The checks above guarantee
	// the apply cannot fail afterward.
	block, err := s.blockLog.Append([]blocklog.Tx{tx})
	if err != nil {
		return blocklog.Block{}, fmt.Errorf("appending block: %w", err)
	}

	s.apply(tx)

	s.evHandler("state: commit: kind[%s] from[%s] to[%s] amount[%d] block[%d]", kind, from.Owner, to.Owner, amount, block.Header.Number)

	return block, nil
}

// checkApply validates that a transaction can be applied against the current
// balances and allowances without mutating anything. The caller must hold
// the mutex.
func (s *State) checkApply(tx blocklog.Tx) error {
	fromKey := tx.From + "/" + tx.FromSub

	switch tx.Kind {
	case KindTransfer, KindSettle:
		if s.balances[fromKey] < tx.Amount {
			return ErrInsufficientFunds
		}

	case KindApprove:

	case KindTransferFrom:
		allowKey := fromKey + "|" + tx.Spender + "/" + tx.SpenderSub
		if s.allowances[allowKey] < tx.Amount {
			return ErrInsufficientAllowance
		}
		if s.balances[fromKey] < tx.Amount {
			return ErrInsufficientFunds
		}

	default:
		return fmt.Errorf("unknown transaction kind %q", tx.Kind)
	}

	return nil
}

// apply mutates the balances and allowances for one transaction. The caller
// must hold the mutex and have validated the transaction with checkApply.
func (s *State) apply(tx blocklog.Tx) {
	fromKey := tx.From + "/" + tx.FromSub
	toKey := tx.To + "/" + tx.ToSub

	switch tx.Kind {
	case KindTransfer, KindSettle:
		s.balances[fromKey] -= tx.Amount
		s.balances[toKey] += tx.Amount

	case KindApprove:
		// The approve transaction records the owner as from and the spender
		// as to. The allowance is an absolute grant, not an increment.
		s.allowances[fromKey+"|"+toKey] = tx.Amount

	case KindTransferFrom:
		allowKey := fromKey + "|" + tx.Spender + "/" + tx.SpenderSub
		s.allowances[allowKey] -= tx.Amount
		s.balances[fromKey] -= tx.Amount
		s.balances[toKey] += tx.Amount
	}
}

// allowanceKey returns the map key form of an owner/spender pair.
func allowanceKey(owner Account, spender Account) string {
	return owner.key() + "|" + spender.key()
}
