package limits_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tesseralabs/ledger/foundation/ledger/limits"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestCheckNumber(t *testing.T) {
	type table struct {
		name  string
		value string
		pass  bool
	}

	l := limits.Default()

	tt := []table{
		{"zero", "0", true},
		{"simple", "12345", true},
		{"negative", "-12345", true},
		{"positive_sign", "+12345", true},
		{"at_bound", strings.Repeat("9", l.MaxIntegerDigits), true},
		{"signed_at_bound", "-" + strings.Repeat("9", l.MaxIntegerDigits), true},
		{"over_bound", strings.Repeat("9", l.MaxIntegerDigits+1), false},
		{"empty", "", false},
		{"sign_only", "-", false},
		{"hex", "0x10", false},
		{"spaces", " 42", false},
		{"decimal_point", "1.5", false},
	}

	t.Log("Given the need to validate numbers by digit count.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling the value %q.", testID, tst.value)
			{
				f := func(t *testing.T) {
					err := l.CheckNumber("amount", tst.value)

					if tst.pass && err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould accept the value: %s", failed, testID, err)
					}
					if !tst.pass && err == nil {
						t.Fatalf("\t%s\tTest %d:\tShould reject the value.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get the right verdict.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func TestByteBounds(t *testing.T) {
	type table struct {
		name  string
		check func(l limits.Limits, n int) error
		bound func(l limits.Limits) int
	}

	l := limits.Default()

	tt := []table{
		{
			name:  "memo",
			check: func(l limits.Limits, n int) error { return l.CheckMemo(bytes.Repeat([]byte{0xAB}, n)) },
			bound: func(l limits.Limits) int { return l.MaxMemoBytes },
		},
		{
			name:  "blob",
			check: func(l limits.Limits, n int) error { return l.CheckBlob("data", bytes.Repeat([]byte{0xAB}, n)) },
			bound: func(l limits.Limits) int { return l.MaxBlobBytes },
		},
		{
			name:  "text",
			check: func(l limits.Limits, n int) error { return l.CheckText("name", strings.Repeat("x", n)) },
			bound: func(l limits.Limits) int { return l.MaxTextBytes },
		},
		{
			name:  "subaccount",
			check: func(l limits.Limits, n int) error { return l.CheckSubaccount(bytes.Repeat([]byte{0xAB}, n)) },
			bound: func(l limits.Limits) int { return l.MaxSubaccountBytes },
		},
		{
			name:  "account",
			check: func(l limits.Limits, n int) error { return l.CheckAccount(bytes.Repeat([]byte{0xAB}, n)) },
			bound: func(l limits.Limits) int { return l.MaxSubaccountBytes },
		},
		{
			name:  "array",
			check: func(l limits.Limits, n int) error { return l.CheckArray("items", n) },
			bound: func(l limits.Limits) int { return l.MaxArrayLength },
		},
	}

	t.Log("Given the need to bound sized request values.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a %s value.", testID, tst.name)
			{
				f := func(t *testing.T) {
					bound := tst.bound(l)

					if err := tst.check(l, 0); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould accept an empty value: %s", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould accept an empty value.", success, testID)

					if err := tst.check(l, bound); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould accept a value at the bound: %s", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould accept a value at the bound.", success, testID)

					if err := tst.check(l, bound+1); err == nil {
						t.Fatalf("\t%s\tTest %d:\tShould reject a value one past the bound.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould reject a value one past the bound.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func TestValidate(t *testing.T) {
	t.Log("Given the need to validate the limits themselves.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen handling the default limits.", testID)
		{
			if err := limits.Default().Validate(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould validate the defaults: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould validate the defaults.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen handling a zero bound.", testID)
		{
			l := limits.Default()
			l.MaxMemoBytes = 0

			if err := l.Validate(); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject a zero bound.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a zero bound.", success, testID)
		}
	}
}
