package record

import (
	"testing"

	"golang.org/x/crypto/ed25519"

	"tak.dev/bridge/identity"
	"tak.dev/bridge/internal/errs"
)

func TestBuildChainVerifiesCleanly(t *testing.T) {
	payloads := [][]byte{[]byte("first"), []byte("second"), []byte("third")}
	links := BuildChain(payloads)
	if err := Verify(links, payloads, VerifyChainOptions{}); err != nil {
		t.Fatalf("unexpected verify error: %v", err)
	}
	if links[0].PreviousChain != zeroChain {
		t.Fatal("first link must chain from the all-zero hash")
	}
}

// TestIntegrityChainTamperDetected seeds spec §8 scenario 4.
func TestIntegrityChainTamperDetected(t *testing.T) {
	payloads := [][]byte{[]byte("first"), []byte("second"), []byte("third")}
	links := BuildChain(payloads)

	tampered := make([][]byte, len(payloads))
	copy(tampered, payloads)
	corrupted := append([]byte(nil), payloads[1]...)
	corrupted[0] ^= 0x01 // flip one bit of "second"
	tampered[1] = corrupted

	err := Verify(links, tampered, VerifyChainOptions{})
	if err == nil {
		t.Fatal("expected tamper detection")
	}
	e, ok := err.(*errs.Error)
	if !ok || e.Kind != errs.KindPayloadHashMismatch || e.Sequence != 1 {
		t.Fatalf("got %v", err)
	}
}

func TestIntegrityChainHashTamperDetected(t *testing.T) {
	payloads := [][]byte{[]byte("first"), []byte("second")}
	links := BuildChain(payloads)
	links[1].ChainHash[0] ^= 0xFF

	err := Verify(links, payloads, VerifyChainOptions{})
	if err == nil {
		t.Fatal("expected chain hash mismatch")
	}
	e, ok := err.(*errs.Error)
	if !ok || e.Kind != errs.KindChainHashMismatch || e.Sequence != 1 {
		t.Fatalf("got %v", err)
	}
}

type fakeVerifier struct {
	ok bool
}

func (f fakeVerifier) Verify(chainHash, signature []byte) bool { return f.ok }

func TestVerifyRequiresSignatureWhenConfigured(t *testing.T) {
	payloads := [][]byte{[]byte("only")}
	links := BuildChain(payloads)

	err := Verify(links, payloads, VerifyChainOptions{RequireSignatures: true, Verifier: fakeVerifier{ok: true}})
	if err == nil {
		t.Fatal("expected MissingSignature because no signature was attached")
	}
	e, ok := err.(*errs.Error)
	if !ok || e.Kind != errs.KindMissingSignature {
		t.Fatalf("got %v", err)
	}
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	payloads := [][]byte{[]byte("only")}
	links := BuildChain(payloads)
	links[0].Signature = []byte("sig")

	err := Verify(links, payloads, VerifyChainOptions{RequireSignatures: true, Verifier: fakeVerifier{ok: true}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVerifyRejectsInvalidSignature(t *testing.T) {
	payloads := [][]byte{[]byte("only")}
	links := BuildChain(payloads)
	links[0].Signature = []byte("sig")

	err := Verify(links, payloads, VerifyChainOptions{RequireSignatures: true, Verifier: fakeVerifier{ok: false}})
	if err == nil {
		t.Fatal("expected InvalidSignature")
	}
	e, ok := err.(*errs.Error)
	if !ok || e.Kind != errs.KindInvalidSignature {
		t.Fatalf("got %v", err)
	}
}

// TestVerifyAcceptsIdentityDevEd25519Verifier confirms
// identity.DevEd25519Verifier satisfies the Verifier interface
// structurally, wiring the boundary signature check to a real
// ed25519 signature.
func TestVerifyAcceptsIdentityDevEd25519Verifier(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	payloads := [][]byte{[]byte("only")}
	links := BuildChain(payloads)
	links[0].Signature = ed25519.Sign(priv, links[0].ChainHash[:])

	v := identity.NewDevEd25519Verifier(pub)
	err = Verify(links, payloads, VerifyChainOptions{RequireSignatures: true, Verifier: v})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVerifyRequiresVerifierWhenSignaturesRequired(t *testing.T) {
	payloads := [][]byte{[]byte("only")}
	links := BuildChain(payloads)
	err := Verify(links, payloads, VerifyChainOptions{RequireSignatures: true})
	if err == nil {
		t.Fatal("expected MissingVerifier")
	}
	e, ok := err.(*errs.Error)
	if !ok || e.Kind != errs.KindMissingVerifier {
		t.Fatalf("got %v", err)
	}
}
