package signature_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tesseralabs/ledger/foundation/ledger/signature"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestSigning(t *testing.T) {
	type payload struct {
		To     string `json:"to"`
		Amount uint64 `json:"amount"`
	}

	t.Log("Given the need to sign values and recover the signer.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen signing a transfer payload.", testID)
		{
			pk, err := crypto.HexToECDSA("fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959")
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to parse the private key: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to parse the private key.", success, testID)

			value := payload{To: "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32", Amount: 100}

			v, r, s, err := signature.Sign(value, pk)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to sign the value: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to sign the value.", success, testID)

			if err := signature.VerifySignature(v, r, s); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould produce a valid signature: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould produce a valid signature.", success, testID)

			addr, err := signature.FromAddress(value, v, r, s)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to recover the signer: %s", failed, testID, err)
			}

			want := crypto.PubkeyToAddress(pk.PublicKey).String()
			if addr != want {
				t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, addr)
				t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, want)
				t.Fatalf("\t%s\tTest %d:\tShould recover the signing address.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould recover the signing address.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen the payload was tampered with after signing.", testID)
		{
			pk, err := crypto.HexToECDSA("fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959")
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to parse the private key: %s", failed, testID, err)
			}

			value := payload{To: "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32", Amount: 100}

			v, r, s, err := signature.Sign(value, pk)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to sign the value: %s", failed, testID, err)
			}

			tampered := value
			tampered.Amount = 1_000_000

			addr, err := signature.FromAddress(tampered, v, r, s)
			if err == nil && addr == crypto.PubkeyToAddress(pk.PublicKey).String() {
				t.Fatalf("\t%s\tTest %d:\tShould not recover the signer from tampered data.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not recover the signer from tampered data.", success, testID)
		}
	}
}
