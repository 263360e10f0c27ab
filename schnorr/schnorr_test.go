// SPDX-License-Identifier: ISC

package schnorr_test

import (
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/shardpow/dsnode/peer"
	"github.com/shardpow/dsnode/schnorr"
)

func TestVerifyRoundTrip(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("key generation failed: %v", err)
	}

	k, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("nonce generation failed: %v", err)
	}

	message := []byte("pow submission prefix bytes")
	sig := schnorr.Sign(message, priv, new(big.Int).SetBytes(k.Serialize()))

	var pubKey peer.PublicKey
	copy(pubKey[:], priv.PubKey().SerializeCompressed())

	v := schnorr.Secp256k1Verifier{}
	if !v.Verify(message, sig, pubKey) {
		t.Fatal("expected valid signature to verify")
	}

	tampered := message
	tampered = append([]byte{}, tampered...)
	tampered[0] ^= 0xff
	if v.Verify(tampered, sig, pubKey) {
		t.Fatal("expected tampered message to fail verification")
	}
}

func TestVerifyRejectsGarbageKey(t *testing.T) {
	var pubKey peer.PublicKey // all-zero, not a valid compressed point
	var sig peer.Signature

	v := schnorr.Secp256k1Verifier{}
	if v.Verify([]byte("x"), sig, pubKey) {
		t.Fatal("expected invalid public key to fail verification")
	}
}
