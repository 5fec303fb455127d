package signer

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// well-known test key, do not use for anything real
const testKeyHex = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

func testSigner(t *testing.T) *GenericSigner {
	t.Helper()
	s, err := FromHex(testKeyHex)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestAddress(t *testing.T) {
	s := testSigner(t)
	expected := common.HexToAddress("0x71562b71999873DB5b286dF957af199Ec94617F7")
	if s.Address() != expected {
		t.Fatalf("expected address %s, got %s", expected.Hex(), s.Address().Hex())
	}
}

func TestSignAndRecover(t *testing.T) {
	s := testSigner(t)
	digest := common.BytesToHash(crypto.Keccak256([]byte("feedcore test digest")))

	sig, err := s.Sign(digest)
	if err != nil {
		t.Fatal(err)
	}
	recovered, err := Recover(digest, sig)
	if err != nil {
		t.Fatal(err)
	}
	if recovered != s.Address() {
		t.Fatalf("expected to recover %s, got %s", s.Address().Hex(), recovered.Hex())
	}

	// deterministic signing: the same digest yields the same signature
	sig2, err := s.Sign(digest)
	if err != nil {
		t.Fatal(err)
	}
	if sig != sig2 {
		t.Fatal("expected deterministic signatures for the same digest")
	}
}

func TestRecoverOtherDigest(t *testing.T) {
	s := testSigner(t)
	digest := common.BytesToHash(crypto.Keccak256([]byte("signed digest")))
	sig, err := s.Sign(digest)
	if err != nil {
		t.Fatal(err)
	}

	// recovery over a different digest must not reproduce the signer; that is
	// a caller-level mismatch, not a signature format error
	other := common.BytesToHash(crypto.Keccak256([]byte("some other digest")))
	recovered, err := Recover(other, sig)
	if err != nil {
		t.Fatal(err)
	}
	if recovered == s.Address() {
		t.Fatal("recovering over a different digest must not yield the owner")
	}
}

func TestRecoverMalformed(t *testing.T) {
	digest := common.BytesToHash(crypto.Keccak256([]byte("digest")))
	var sig Signature
	sig[64] = 0xff // invalid recovery id
	if _, err := Recover(digest, sig); err == nil {
		t.Fatal("expected an error recovering a malformed signature")
	}
}

func TestFromHexInvalid(t *testing.T) {
	for _, key := range []string{
		"",
		"beef",
		strings.Repeat("zz", 32),
	} {
		if _, err := FromHex(key); err == nil {
			t.Fatalf("expected an error parsing key %q", key)
		}
	}
}
