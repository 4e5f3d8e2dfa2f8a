// Package limits maintains the named size bounds applied to inbound request
// values before the ledger spends any real compute on them. The checks are
// pure functions so they can run anywhere: in the admission filter before a
// handler executes, or inside a handler as a guard.
package limits

import (
	"errors"
	"fmt"
)

// Default values for the reference deployment. Any individual value can be
// overridden at service construction time while the rest keep these defaults.
const (
	DefaultMaxMemoBytes       = 32
	DefaultMaxBlobBytes       = 256
	DefaultMaxTextBytes       = 256
	DefaultMaxIntegerDigits   = 20
	DefaultMaxArrayLength     = 100
	DefaultMaxSubaccountBytes = 32
	DefaultMaxRawRequestBytes = 50_000
)

// Limits represents the set of named bounds applied to request values. The
// value is immutable once constructed.
type Limits struct {
	MaxMemoBytes       int
	MaxBlobBytes       int
	MaxTextBytes       int
	MaxIntegerDigits   int
	MaxArrayLength     int
	MaxSubaccountBytes int
	MaxRawRequestBytes int
}

// Default returns the limits used by the reference deployment.
func Default() Limits {
	return Limits{
		MaxMemoBytes:       DefaultMaxMemoBytes,
		MaxBlobBytes:       DefaultMaxBlobBytes,
		MaxTextBytes:       DefaultMaxTextBytes,
		MaxIntegerDigits:   DefaultMaxIntegerDigits,
		MaxArrayLength:     DefaultMaxArrayLength,
		MaxSubaccountBytes: DefaultMaxSubaccountBytes,
		MaxRawRequestBytes: DefaultMaxRawRequestBytes,
	}
}

// Validate checks every bound is a positive integer.
func (l Limits) Validate() error {
	for _, bound := range []struct {
		name  string
		value int
	}{
		{"max memo bytes", l.MaxMemoBytes},
		{"max blob bytes", l.MaxBlobBytes},
		{"max text bytes", l.MaxTextBytes},
		{"max integer digits", l.MaxIntegerDigits},
		{"max array length", l.MaxArrayLength},
		{"max subaccount bytes", l.MaxSubaccountBytes},
		{"max raw request bytes", l.MaxRawRequestBytes},
	} {
		if bound.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", bound.name, bound.value)
		}
	}

	return nil
}

// =============================================================================
// Field validators. Each one is total: any input yields either nil or a
// rejection reason, never a panic. The first failing check wins, so callers
// chain them cheapest first.

// CheckNumber validates a decimal integer by its digit count rather than by
// magnitude. Counting digits bounds numbers that could be hundreds of digits
// long without performing any big-integer arithmetic. The sign is excluded
// from the count.
func (l Limits) CheckNumber(field string, value string) error {
	if value == "" {
		return fmt.Errorf("%s is not a number", field)
	}

	digits := value
	if digits[0] == '-' || digits[0] == '+' {
		digits = digits[1:]
	}

	if digits == "" {
		return fmt.Errorf("%s is not a number", field)
	}

	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return fmt.Errorf("%s is not a number", field)
		}
	}

	if len(digits) > l.MaxIntegerDigits {
		return fmt.Errorf("%s exceeds %d digits", field, l.MaxIntegerDigits)
	}

	return nil
}

// CheckBlob validates an arbitrary byte string against the generic bound.
func (l Limits) CheckBlob(field string, blob []byte) error {
	if len(blob) > l.MaxBlobBytes {
		return fmt.Errorf("%s exceeds %d bytes", field, l.MaxBlobBytes)
	}

	return nil
}

// CheckText validates a text value against the text bound.
func (l Limits) CheckText(field string, text string) error {
	if len(text) > l.MaxTextBytes {
		return fmt.Errorf("%s exceeds %d bytes", field, l.MaxTextBytes)
	}

	return nil
}

// CheckMemo validates a memo byte string against the memo bound.
func (l Limits) CheckMemo(memo []byte) error {
	if len(memo) > l.MaxMemoBytes {
		return fmt.Errorf("memo exceeds %d bytes", l.MaxMemoBytes)
	}

	return nil
}

// CheckSubaccount validates a subaccount byte string. An absent subaccount
// is valid.
func (l Limits) CheckSubaccount(subaccount []byte) error {
	if len(subaccount) > l.MaxSubaccountBytes {
		return fmt.Errorf("subaccount exceeds %d bytes", l.MaxSubaccountBytes)
	}

	return nil
}

// CheckAccount validates a composite account reference. Only the subaccount
// component needs a check, the owner is already bounded by its own encoding.
func (l Limits) CheckAccount(subaccount []byte) error {
	return l.CheckSubaccount(subaccount)
}

// CheckArray validates the element count of a batch value.
func (l Limits) CheckArray(field string, length int) error {
	if length > l.MaxArrayLength {
		return fmt.Errorf("%s exceeds %d elements", field, l.MaxArrayLength)
	}

	return nil
}

// ErrRejected is the generic reason handed to external callers. The detailed
// reasons above stay inside the service so callers can't tune payloads to
// just-under-threshold sizes.
var ErrRejected = errors.New("request rejected")
