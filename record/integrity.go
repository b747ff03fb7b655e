package record

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"

	"tak.dev/bridge/internal/errs"
)

// Verifier checks a detached signature over a chain hash. It is an
// opaque boundary collaborator (spec §1: "identity material is
// consumed opaquely") — this package never constructs key material
// itself.
type Verifier interface {
	Verify(chainHash, signature []byte) bool
}

// IntegrityLink is one entry of the hash-linked integrity chain over a
// sequence of recorded payloads (spec §3/§4.7/§6).
type IntegrityLink struct {
	Sequence      uint64
	PayloadHash   [32]byte
	PreviousChain [32]byte
	ChainHash     [32]byte
	Signature     []byte
}

var zeroChain [32]byte

// BuildChain computes the hash-linked IntegrityLink sequence over
// payloads, in order, starting from the all-zero previous chain hash.
func BuildChain(payloads [][]byte) []IntegrityLink {
	links := make([]IntegrityLink, len(payloads))
	prev := zeroChain
	for i, payload := range payloads {
		payloadHash := sha256.Sum256(payload)
		chainHash := chainHashOf(prev, uint64(i), payloadHash)
		links[i] = IntegrityLink{
			Sequence:      uint64(i),
			PayloadHash:   payloadHash,
			PreviousChain: prev,
			ChainHash:     chainHash,
		}
		prev = chainHash
	}
	return links
}

func chainHashOf(previous [32]byte, sequence uint64, payloadHash [32]byte) [32]byte {
	h := sha256.New()
	h.Write(previous[:])
	var seqBuf [8]byte
	binary.LittleEndian.PutUint64(seqBuf[:], sequence)
	h.Write(seqBuf[:])
	h.Write(payloadHash[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// VerifyChainOptions configures Verify.
type VerifyChainOptions struct {
	RequireSignatures bool
	Verifier          Verifier
}

// Verify recomputes each link of links against payloads and reports the
// first mismatch found: PayloadHashMismatch when a payload was
// tampered with, ChainHashMismatch when only the stored chain hash
// diverges, and signature errors when RequireSignatures is set.
func Verify(links []IntegrityLink, payloads [][]byte, opts VerifyChainOptions) error {
	if len(links) != len(payloads) {
		return errs.New(errs.KindPayloadCountMismatch, "link count does not match payload count")
	}
	if opts.RequireSignatures && opts.Verifier == nil {
		return errs.New(errs.KindMissingVerifier, "require_signatures is set but no verifier was supplied")
	}

	prev := zeroChain
	for i, link := range links {
		if link.Sequence != uint64(i) {
			return errs.Sequenced(errs.KindSequenceMismatch, link.Sequence, "out-of-order link sequence")
		}
		actualPayloadHash := sha256.Sum256(payloads[i])
		if !bytes.Equal(actualPayloadHash[:], link.PayloadHash[:]) {
			return errs.Sequenced(errs.KindPayloadHashMismatch, link.Sequence, "payload hash mismatch")
		}
		expectedChainHash := chainHashOf(prev, link.Sequence, link.PayloadHash)
		if !bytes.Equal(expectedChainHash[:], link.ChainHash[:]) {
			return errs.Sequenced(errs.KindChainHashMismatch, link.Sequence, "chain hash mismatch")
		}
		if opts.RequireSignatures {
			if len(link.Signature) == 0 {
				return errs.Sequenced(errs.KindMissingSignature, link.Sequence, "signature required but absent")
			}
			if !opts.Verifier.Verify(link.ChainHash[:], link.Signature) {
				return errs.Sequenced(errs.KindInvalidSignature, link.Sequence, "signature verification failed")
			}
		}
		prev = link.ChainHash
	}
	return nil
}
