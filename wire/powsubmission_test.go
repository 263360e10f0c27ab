// SPDX-License-Identifier: ISC

package wire_test

import (
	"bytes"
	"testing"

	"github.com/shardpow/dsnode/blockhash"
	"github.com/shardpow/dsnode/peer"
	"github.com/shardpow/dsnode/wire"
)

func TestRoundTrip(t *testing.T) {
	var pk peer.PublicKey
	pk[0] = 0x02
	var result, mix blockhash.Hash
	result[0] = 0xaa
	mix[0] = 0xbb
	var sig peer.Signature
	sig[0] = 0xcc

	original := wire.PoWSubmission{
		DSBlockNumber: 42,
		Difficulty:    5,
		Port:          4201,
		PublicKey:     pk,
		Nonce:         123456789,
		ResultHash:    result,
		MixHash:       mix,
		Signature:     sig,
	}

	encoded := original.Encode()
	if len(encoded) != wire.PoWSubmissionSize {
		t.Fatalf("expected %d bytes, got %d", wire.PoWSubmissionSize, len(encoded))
	}

	decoded, err := wire.DecodePoWSubmission(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if decoded.DSBlockNumber != original.DSBlockNumber ||
		decoded.Difficulty != original.Difficulty ||
		decoded.Port != original.Port ||
		decoded.Nonce != original.Nonce {
		t.Error("scalar fields did not round-trip")
	}
	if decoded.PublicKey != original.PublicKey {
		t.Error("public key did not round-trip")
	}
	if decoded.ResultHash != original.ResultHash || decoded.MixHash != original.MixHash {
		t.Error("hashes did not round-trip")
	}
	if decoded.Signature != original.Signature {
		t.Error("signature did not round-trip")
	}
}

func TestDecodeTooShort(t *testing.T) {
	if _, err := wire.DecodePoWSubmission(make([]byte, 10)); err == nil {
		t.Error("expected error for short message")
	}
}

func TestSignedPrefixExcludesSignature(t *testing.T) {
	var s wire.PoWSubmission
	full := s.Encode()
	prefix := s.SignedPrefix()

	if !bytes.Equal(full[:len(prefix)], prefix) {
		t.Error("signed prefix should be the leading bytes of the full encoding")
	}
	if len(full)-len(prefix) != peer.SignatureSize {
		t.Errorf("expected signature-sized remainder, got %d", len(full)-len(prefix))
	}
}
