package public

import "math/big"

// account is the wire form of a composite account reference. The owner is a
// hex address, the subaccount an optional hex string.
type account struct {
	Owner      string `json:"owner" validate:"required"`
	Subaccount string `json:"subaccount,omitempty"`
}

// transferTx is the user submitted transaction for moving funds.
type transferTx struct {
	FromSub string  `json:"from_sub,omitempty"`
	To      account `json:"to"`
	Amount  string  `json:"amount" validate:"required"`
	Memo    []byte  `json:"memo,omitempty"`
}

// signedTransferTx is a transfer transaction with the signature of the
// account that submitted it.
type signedTransferTx struct {
	transferTx
	V *big.Int `json:"v" validate:"required"`
	R *big.Int `json:"r" validate:"required"`
	S *big.Int `json:"s" validate:"required"`
}

// approveTx is the user submitted transaction for granting an allowance.
type approveTx struct {
	OwnerSub string  `json:"owner_sub,omitempty"`
	Spender  account `json:"spender"`
	Amount   string  `json:"amount" validate:"required"`
	Memo     []byte  `json:"memo,omitempty"`
}

// signedApproveTx is an approve transaction with the owner's signature.
type signedApproveTx struct {
	approveTx
	V *big.Int `json:"v" validate:"required"`
	R *big.Int `json:"r" validate:"required"`
	S *big.Int `json:"s" validate:"required"`
}

// transferFromTx is the user submitted transaction for spending an
// allowance.
type transferFromTx struct {
	SpenderSub string  `json:"spender_sub,omitempty"`
	From       account `json:"from"`
	To         account `json:"to"`
	Amount     string  `json:"amount" validate:"required"`
	Memo       []byte  `json:"memo,omitempty"`
}

// signedTransferFromTx is a transfer-from transaction with the spender's
// signature.
type signedTransferFromTx struct {
	transferFromTx
	V *big.Int `json:"v" validate:"required"`
	R *big.Int `json:"r" validate:"required"`
	S *big.Int `json:"s" validate:"required"`
}

// batchItem is one element of a batch transfer.
type batchItem struct {
	To     account `json:"to"`
	Amount string  `json:"amount" validate:"required"`
	Memo   []byte  `json:"memo,omitempty"`
}

// batchTx is the user submitted transaction for a batch of transfers.
type batchTx struct {
	FromSub string      `json:"from_sub,omitempty"`
	Items   []batchItem `json:"items" validate:"required,min=1"`
}

// signedBatchTx is a batch transaction with the signature of the account
// that submitted it.
type signedBatchTx struct {
	batchTx
	V *big.Int `json:"v" validate:"required"`
	R *big.Int `json:"r" validate:"required"`
	S *big.Int `json:"s" validate:"required"`
}

// =============================================================================

// txResult is the response for a committed transaction.
type txResult struct {
	Status string `json:"status"`
	Block  uint64 `json:"block"`
	Hash   string `json:"hash"`
}

// balanceInfo is the response for a balance query.
type balanceInfo struct {
	Account account `json:"account"`
	Balance uint64  `json:"balance"`
	Height  uint64  `json:"height"`
}
