package state

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// AccountID represents the owner component of an account. It is the
// hex-encoded address associated with a signing key.
type AccountID string

// ToAccountID converts a hex-encoded string to an account id and validates
// the hex-encoded string is formatted correctly.
func ToAccountID(hex string) (AccountID, error) {
	a := AccountID(hex)
	if !a.IsAccountID() {
		return "", errors.New("invalid account format")
	}

	return a, nil
}

// PublicKeyToAccountID converts the public key to an account id value.
func PublicKeyToAccountID(pk ecdsa.PublicKey) AccountID {
	return AccountID(crypto.PubkeyToAddress(pk).String())
}

// IsAccountID verifies whether the underlying data represents a valid
// hex-encoded account.
func (a AccountID) IsAccountID() bool {
	const addressLength = 20

	if has0xPrefix(a) {
		a = a[2:]
	}

	return len(a) == 2*addressLength && isHex(a)
}

// =============================================================================

// Account represents a composite account reference: the owner and an
// optional subaccount that partitions the owner's funds.
type Account struct {
	Owner      AccountID
	Subaccount []byte
}

// NewAccount constructs an account reference from its wire form: the owner
// as a hex address and the subaccount as an optional hex string.
func NewAccount(owner string, subaccount string) (Account, error) {
	accountID, err := ToAccountID(owner)
	if err != nil {
		return Account{}, err
	}

	var sub []byte
	if subaccount != "" {
		sub, err = hex.DecodeString(subaccount)
		if err != nil {
			return Account{}, fmt.Errorf("invalid subaccount: %w", err)
		}
	}

	return Account{Owner: accountID, Subaccount: sub}, nil
}

// SubaccountString returns the hex form of the subaccount, empty when the
// subaccount is absent.
func (a Account) SubaccountString() string {
	if len(a.Subaccount) == 0 {
		return ""
	}

	return hex.EncodeToString(a.Subaccount)
}

// key returns the map key form of the account.
func (a Account) key() string {
	return string(a.Owner) + "/" + a.SubaccountString()
}

// =============================================================================

// has0xPrefix validates the account starts with a 0x.
func has0xPrefix(a AccountID) bool {
	return len(a) >= 2 && a[0] == '0' && (a[1] == 'x' || a[1] == 'X')
}

// isHex validates whether each byte is valid hexadecimal string.
func isHex(a AccountID) bool {
	if len(a)%2 != 0 {
		return false
	}

	for _, c := range []byte(a) {
		if !isHexCharacter(c) {
			return false
		}
	}

	return true
}

// isHexCharacter returns bool of c being a valid hexadecimal.
func isHexCharacter(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
