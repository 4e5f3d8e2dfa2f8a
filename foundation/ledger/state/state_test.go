package state_test

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/tesseralabs/ledger/foundation/ledger/blocklog"
	"github.com/tesseralabs/ledger/foundation/ledger/state"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	alice   = "0x6Fe6CF3c8fF57c58d24BfC869668F48BCbDb3BD9"
	bob     = "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32"
	charlie = "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4"
)

func mustAccount(t *testing.T, owner string, subaccount string) state.Account {
	t.Helper()

	account, err := state.NewAccount(owner, subaccount)
	if err != nil {
		t.Fatalf("constructing account %s: %s", owner, err)
	}

	return account
}

func newState(t *testing.T, path string) (*state.State, *blocklog.Log) {
	t.Helper()

	blockLog, err := blocklog.New(path, nil)
	if err != nil {
		t.Fatalf("opening block log: %s", err)
	}
	t.Cleanup(func() { blockLog.Close() })

	st, err := state.New(state.Config{
		Genesis: state.Genesis{
			ChainID: 1,
			Name:    "Tessera",
			Balances: map[string]uint64{
				alice: 1_000,
				bob:   500,
			},
		},
		BlockLog: blockLog,
	})
	if err != nil {
		t.Fatalf("constructing state: %s", err)
	}

	return st, blockLog
}

func TestTransfer(t *testing.T) {
	t.Log("Given the need to move funds between accounts.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen transferring within the source balance.", testID)
		{
			st, _ := newState(t, filepath.Join(t.TempDir(), "blocks.db"))

			from := mustAccount(t, alice, "")
			to := mustAccount(t, charlie, "")

			block, err := st.Transfer(from, to, 300, []byte("rent"), "")
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to transfer: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to transfer.", success, testID)

			if block.Header.Number != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould commit block 1, got %d.", failed, testID, block.Header.Number)
			}
			t.Logf("\t%s\tTest %d:\tShould commit one block.", success, testID)

			if bal := st.Balance(from); bal != 700 {
				t.Fatalf("\t%s\tTest %d:\tShould debit the source to 700, got %d.", failed, testID, bal)
			}
			if bal := st.Balance(to); bal != 300 {
				t.Fatalf("\t%s\tTest %d:\tShould credit the destination to 300, got %d.", failed, testID, bal)
			}
			t.Logf("\t%s\tTest %d:\tShould adjust both balances.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen transferring more than the source balance.", testID)
		{
			st, _ := newState(t, filepath.Join(t.TempDir(), "blocks.db"))

			from := mustAccount(t, bob, "")
			to := mustAccount(t, charlie, "")

			if _, err := st.Transfer(from, to, 501, nil, ""); !errors.Is(err, state.ErrInsufficientFunds) {
				t.Fatalf("\t%s\tTest %d:\tShould get ErrInsufficientFunds, got %v.", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get ErrInsufficientFunds.", success, testID)

			if bal := st.Balance(from); bal != 500 {
				t.Fatalf("\t%s\tTest %d:\tShould leave the source untouched, got %d.", failed, testID, bal)
			}
			t.Logf("\t%s\tTest %d:\tShould leave the source untouched.", success, testID)
		}

		testID = 2
		t.Logf("\tTest %d:\tWhen transferring between subaccounts of one owner.", testID)
		{
			st, _ := newState(t, filepath.Join(t.TempDir(), "blocks.db"))

			main := mustAccount(t, alice, "")
			savings := mustAccount(t, alice, "01")

			if _, err := st.Transfer(main, savings, 400, nil, ""); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to transfer: %s", failed, testID, err)
			}

			if bal := st.Balance(main); bal != 600 {
				t.Fatalf("\t%s\tTest %d:\tShould debit the main subaccount to 600, got %d.", failed, testID, bal)
			}
			if bal := st.Balance(savings); bal != 400 {
				t.Fatalf("\t%s\tTest %d:\tShould credit the savings subaccount to 400, got %d.", failed, testID, bal)
			}
			t.Logf("\t%s\tTest %d:\tShould track subaccounts independently.", success, testID)
		}
	}
}

func TestAllowance(t *testing.T) {
	t.Log("Given the need to spend funds through an allowance.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the spender stays within the allowance.", testID)
		{
			st, _ := newState(t, filepath.Join(t.TempDir(), "blocks.db"))

			owner := mustAccount(t, alice, "")
			spender := mustAccount(t, bob, "")
			to := mustAccount(t, charlie, "")

			if _, err := st.Approve(owner, spender, 300, nil, ""); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to approve: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to approve.", success, testID)

			if allow := st.Allowance(owner, spender); allow != 300 {
				t.Fatalf("\t%s\tTest %d:\tShould record the allowance at 300, got %d.", failed, testID, allow)
			}
			t.Logf("\t%s\tTest %d:\tShould record the allowance.", success, testID)

			if _, err := st.TransferFrom(spender, owner, to, 200, nil, ""); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to transfer from: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to transfer from.", success, testID)

			if allow := st.Allowance(owner, spender); allow != 100 {
				t.Fatalf("\t%s\tTest %d:\tShould reduce the allowance to 100, got %d.", failed, testID, allow)
			}
			if bal := st.Balance(owner); bal != 800 {
				t.Fatalf("\t%s\tTest %d:\tShould debit the owner to 800, got %d.", failed, testID, bal)
			}
			if bal := st.Balance(to); bal != 200 {
				t.Fatalf("\t%s\tTest %d:\tShould credit the destination to 200, got %d.", failed, testID, bal)
			}
			t.Logf("\t%s\tTest %d:\tShould adjust the allowance and balances.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen the spender exceeds the allowance.", testID)
		{
			st, _ := newState(t, filepath.Join(t.TempDir(), "blocks.db"))

			owner := mustAccount(t, alice, "")
			spender := mustAccount(t, bob, "")
			to := mustAccount(t, charlie, "")

			if _, err := st.Approve(owner, spender, 100, nil, ""); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to approve: %s", failed, testID, err)
			}

			if _, err := st.TransferFrom(spender, owner, to, 101, nil, ""); !errors.Is(err, state.ErrInsufficientAllowance) {
				t.Fatalf("\t%s\tTest %d:\tShould get ErrInsufficientAllowance, got %v.", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get ErrInsufficientAllowance.", success, testID)
		}

		testID = 2
		t.Logf("\tTest %d:\tWhen a second approve changes the grant.", testID)
		{
			st, _ := newState(t, filepath.Join(t.TempDir(), "blocks.db"))

			owner := mustAccount(t, alice, "")
			spender := mustAccount(t, bob, "")

			if _, err := st.Approve(owner, spender, 300, nil, ""); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to approve: %s", failed, testID, err)
			}
			if _, err := st.Approve(owner, spender, 50, nil, ""); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to approve again: %s", failed, testID, err)
			}

			// The grant is absolute, not cumulative.
			if allow := st.Allowance(owner, spender); allow != 50 {
				t.Fatalf("\t%s\tTest %d:\tShould replace the allowance with 50, got %d.", failed, testID, allow)
			}
			t.Logf("\t%s\tTest %d:\tShould replace the allowance.", success, testID)
		}
	}
}

func TestBatchTransfer(t *testing.T) {
	t.Log("Given the need to commit a batch of transfers as one block.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the source covers the whole batch.", testID)
		{
			st, _ := newState(t, filepath.Join(t.TempDir(), "blocks.db"))

			from := mustAccount(t, alice, "")
			items := []state.TransferItem{
				{To: mustAccount(t, bob, ""), Amount: 100},
				{To: mustAccount(t, charlie, ""), Amount: 200},
				{To: mustAccount(t, charlie, "01"), Amount: 300},
			}

			block, err := st.BatchTransfer(from, items, "")
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to batch transfer: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to batch transfer.", success, testID)

			if len(block.Trans) != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould commit one block with 3 transactions, got %d.", failed, testID, len(block.Trans))
			}
			t.Logf("\t%s\tTest %d:\tShould commit one block with every transaction.", success, testID)

			if bal := st.Balance(from); bal != 400 {
				t.Fatalf("\t%s\tTest %d:\tShould debit the source to 400, got %d.", failed, testID, bal)
			}
			t.Logf("\t%s\tTest %d:\tShould debit the source once for the total.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen the batch total exceeds the source balance.", testID)
		{
			st, _ := newState(t, filepath.Join(t.TempDir(), "blocks.db"))

			from := mustAccount(t, alice, "")
			items := []state.TransferItem{
				{To: mustAccount(t, bob, ""), Amount: 600},
				{To: mustAccount(t, charlie, ""), Amount: 600},
			}

			if _, err := st.BatchTransfer(from, items, ""); !errors.Is(err, state.ErrInsufficientFunds) {
				t.Fatalf("\t%s\tTest %d:\tShould get ErrInsufficientFunds, got %v.", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get ErrInsufficientFunds.", success, testID)

			if bal := st.Balance(from); bal != 1_000 {
				t.Fatalf("\t%s\tTest %d:\tShould leave the source untouched, got %d.", failed, testID, bal)
			}
			if bal := st.Balance(mustAccount(t, bob, "")); bal != 500 {
				t.Fatalf("\t%s\tTest %d:\tShould leave the first destination untouched, got %d.", failed, testID, bal)
			}
			t.Logf("\t%s\tTest %d:\tShould leave every balance untouched.", success, testID)
		}

		testID = 2
		t.Logf("\tTest %d:\tWhen the batch total wraps the unsigned range.", testID)
		{
			st, blockLog := newState(t, filepath.Join(t.TempDir(), "blocks.db"))

			from := mustAccount(t, alice, "")
			items := []state.TransferItem{
				{To: mustAccount(t, bob, ""), Amount: 10},
				{To: mustAccount(t, charlie, ""), Amount: math.MaxUint64 - 4},
			}

			if _, err := st.BatchTransfer(from, items, ""); !errors.Is(err, state.ErrInsufficientFunds) {
				t.Fatalf("\t%s\tTest %d:\tShould get ErrInsufficientFunds, got %v.", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get ErrInsufficientFunds.", success, testID)

			if bal := st.Balance(from); bal != 1_000 {
				t.Fatalf("\t%s\tTest %d:\tShould leave the source untouched, got %d.", failed, testID, bal)
			}
			if bal := st.Balance(mustAccount(t, bob, "")); bal != 500 {
				t.Fatalf("\t%s\tTest %d:\tShould leave the first destination untouched, got %d.", failed, testID, bal)
			}
			t.Logf("\t%s\tTest %d:\tShould leave every balance untouched.", success, testID)

			if height := blockLog.CurrentHeight(); height != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould not append a block, got height %d.", failed, testID, height)
			}
			t.Logf("\t%s\tTest %d:\tShould not append a block.", success, testID)
		}
	}
}

func TestCommitDurability(t *testing.T) {
	t.Log("Given the need to keep balances aligned with the block log.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the block cannot be persisted.", testID)
		{
			st, blockLog := newState(t, filepath.Join(t.TempDir(), "blocks.db"))

			if err := blockLog.Close(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to close the block log: %s", failed, testID, err)
			}

			from := mustAccount(t, alice, "")
			to := mustAccount(t, charlie, "")

			if _, err := st.Transfer(from, to, 100, nil, ""); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould fail when the block cannot be persisted.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould fail when the block cannot be persisted.", success, testID)

			if bal := st.Balance(from); bal != 1_000 {
				t.Fatalf("\t%s\tTest %d:\tShould leave the source untouched, got %d.", failed, testID, bal)
			}
			if bal := st.Balance(to); bal != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould leave the destination untouched, got %d.", failed, testID, bal)
			}
			t.Logf("\t%s\tTest %d:\tShould leave every balance untouched.", success, testID)
		}
	}
}

func TestReplay(t *testing.T) {
	t.Log("Given the need to rebuild state from the block log on startup.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a second state replays the same log.", testID)
		{
			path := filepath.Join(t.TempDir(), "blocks.db")
			st, _ := newState(t, path)

			from := mustAccount(t, alice, "")
			spender := mustAccount(t, bob, "")
			to := mustAccount(t, charlie, "")

			if _, err := st.Transfer(from, to, 300, nil, ""); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to transfer: %s", failed, testID, err)
			}
			if _, err := st.Approve(from, spender, 200, nil, ""); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to approve: %s", failed, testID, err)
			}
			if _, err := st.TransferFrom(spender, from, to, 150, nil, ""); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to transfer from: %s", failed, testID, err)
			}
			if _, err := st.Settle(to, spender, 50, nil, []byte("recon-88")); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to settle: %s", failed, testID, err)
			}

			replayed, _ := newState(t, path)

			for key, balance := range st.Accounts() {
				if got := replayed.Accounts()[key]; got != balance {
					t.Fatalf("\t%s\tTest %d:\tShould replay balance %d for %s, got %d.", failed, testID, balance, key, got)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould replay every balance.", success, testID)

			if allow := replayed.Allowance(from, spender); allow != 50 {
				t.Fatalf("\t%s\tTest %d:\tShould replay the allowance at 50, got %d.", failed, testID, allow)
			}
			t.Logf("\t%s\tTest %d:\tShould replay the allowance.", success, testID)
		}
	}
}
