package public

import (
	"fmt"

	"github.com/tesseralabs/ledger/foundation/ledger/inspect"
	"github.com/tesseralabs/ledger/foundation/ledger/limits"
)

// Operation names registered in the endpoint validation table. Operations
// not listed here carry only bounded values and need no per-field rules.
const (
	OpTransfer     = "transfer"
	OpApprove      = "approve"
	OpTransferFrom = "transfer_from"
	OpBatch        = "batch_transfer"
)

// Query operation names. These carry no payload worth a rule entry but
// still pass through the admission filter so the raw size gate applies to
// every public route.
const (
	OpQueryGenesis     = "query_genesis"
	OpQueryLatestBlock = "query_latest_block"
	OpQueryBalance     = "query_balance"
)

// Rules returns the validation rules for the public transaction operations.
// The checks for each operation run in declared order, cheapest first, and
// the first failure wins.
func Rules() []inspect.Rule {
	return []inspect.Rule{
		{
			Operation: OpTransfer,
			Prototype: func() any { return &signedTransferTx{} },
			Checks: []inspect.Check{
				func(args any, l limits.Limits) error {
					tx := args.(*signedTransferTx)
					if err := l.CheckNumber("amount", tx.Amount); err != nil {
						return err
					}
					if err := l.CheckMemo(tx.Memo); err != nil {
						return err
					}
					if err := l.CheckText("to owner", tx.To.Owner); err != nil {
						return err
					}
					if err := checkSubaccount(l, "from subaccount", tx.FromSub); err != nil {
						return err
					}
					return checkSubaccount(l, "to subaccount", tx.To.Subaccount)
				},
			},
		},
		{
			Operation: OpApprove,
			Prototype: func() any { return &signedApproveTx{} },
			Checks: []inspect.Check{
				func(args any, l limits.Limits) error {
					tx := args.(*signedApproveTx)
					if err := l.CheckNumber("amount", tx.Amount); err != nil {
						return err
					}
					if err := l.CheckMemo(tx.Memo); err != nil {
						return err
					}
					if err := l.CheckText("spender owner", tx.Spender.Owner); err != nil {
						return err
					}
					if err := checkSubaccount(l, "owner subaccount", tx.OwnerSub); err != nil {
						return err
					}
					return checkSubaccount(l, "spender subaccount", tx.Spender.Subaccount)
				},
			},
		},
		{
			Operation: OpTransferFrom,
			Prototype: func() any { return &signedTransferFromTx{} },
			Checks: []inspect.Check{
				func(args any, l limits.Limits) error {
					tx := args.(*signedTransferFromTx)
					if err := l.CheckNumber("amount", tx.Amount); err != nil {
						return err
					}
					if err := l.CheckMemo(tx.Memo); err != nil {
						return err
					}
					if err := l.CheckText("from owner", tx.From.Owner); err != nil {
						return err
					}
					if err := l.CheckText("to owner", tx.To.Owner); err != nil {
						return err
					}
					if err := checkSubaccount(l, "spender subaccount", tx.SpenderSub); err != nil {
						return err
					}
					if err := checkSubaccount(l, "from subaccount", tx.From.Subaccount); err != nil {
						return err
					}
					return checkSubaccount(l, "to subaccount", tx.To.Subaccount)
				},
			},
		},
		{
			Operation: OpBatch,
			Prototype: func() any { return &signedBatchTx{} },
			Checks: []inspect.Check{

				// The element count check runs on its own ahead of the
				// per-item pass so a huge batch is refused before any
				// element is looked at.
				func(args any, l limits.Limits) error {
					tx := args.(*signedBatchTx)
					return l.CheckArray("items", len(tx.Items))
				},
				func(args any, l limits.Limits) error {
					tx := args.(*signedBatchTx)
					if err := checkSubaccount(l, "from subaccount", tx.FromSub); err != nil {
						return err
					}
					for i, item := range tx.Items {
						if err := l.CheckNumber(fmt.Sprintf("items[%d].amount", i), item.Amount); err != nil {
							return err
						}
						if err := l.CheckMemo(item.Memo); err != nil {
							return err
						}
						if err := l.CheckText(fmt.Sprintf("items[%d].to owner", i), item.To.Owner); err != nil {
							return err
						}
						if err := checkSubaccount(l, fmt.Sprintf("items[%d].to subaccount", i), item.To.Subaccount); err != nil {
							return err
						}
					}
					return nil
				},
			},
		},
	}
}

// checkSubaccount bounds a hex-encoded subaccount by its implied byte
// length without decoding it.
func checkSubaccount(l limits.Limits, field string, sub string) error {
	if len(sub)/2 > l.MaxSubaccountBytes {
		return fmt.Errorf("%s exceeds %d bytes", field, l.MaxSubaccountBytes)
	}

	return nil
}
