package private

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/tesseralabs/ledger/foundation/ledger/inspect"
	"github.com/tesseralabs/ledger/foundation/ledger/limits"
)

// OpSettle is the operation name for the service-to-service transfer path.
const OpSettle = "settle"

// accountModel is the wire form of a composite account reference.
type accountModel struct {
	Owner      string `json:"owner" validate:"required"`
	Subaccount string `json:"subaccount,omitempty"`
}

// settleTx is the service submitted transaction for moving funds. There is
// no signature, the private host binding authenticates the caller. The data
// attachment is an opaque payload the calling service wants recorded with
// the transaction, bounded by the generic blob limit.
type settleTx struct {
	From   accountModel `json:"from"`
	To     accountModel `json:"to"`
	Amount string       `json:"amount" validate:"required"`
	Memo   []byte       `json:"memo,omitempty"`
	Data   []byte       `json:"data,omitempty"`
}

// Rules returns the validation rules for the private operations. They are
// registered in the same endpoint table as the public rules so the guard
// path runs the identical checks.
func Rules() []inspect.Rule {
	return []inspect.Rule{
		{
			Operation: OpSettle,
			Prototype: func() any { return &settleTx{} },
			Checks: []inspect.Check{
				func(args any, l limits.Limits) error {
					tx := args.(*settleTx)
					if err := l.CheckNumber("amount", tx.Amount); err != nil {
						return err
					}
					if err := l.CheckMemo(tx.Memo); err != nil {
						return err
					}
					if err := l.CheckBlob("data", tx.Data); err != nil {
						return err
					}
					if err := l.CheckText("from owner", tx.From.Owner); err != nil {
						return err
					}
					if err := l.CheckText("to owner", tx.To.Owner); err != nil {
						return err
					}
					if err := checkSubaccount(l, "from subaccount", tx.From.Subaccount); err != nil {
						return err
					}
					return checkSubaccount(l, "to subaccount", tx.To.Subaccount)
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

// parseAmount converts a validated decimal amount into a uint64.
func parseAmount(amount string) (uint64, error) {
	value, err := strconv.ParseUint(amount, 10, 64)
	if err != nil {
		return 0, errors.New("amount is not a representable number")
	}

	return value, nil
}
