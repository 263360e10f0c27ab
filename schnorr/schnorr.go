// SPDX-License-Identifier: ISC

// Package schnorr - signature verification for PoW submissions and DS
// gossip messages
//
// Messages are signed with the generalized Schnorr identification
// scheme: given a message m, private scalar x and public point
// Q = x*G, the signer picks a random scalar k, commits to R = k*G,
// derives the challenge c = H(R || Q || m) and the response
// s = k - c*x (mod n). A verifier recomputes R' = s*G + c*Q and
// accepts when H(R' || Q || m) == c.
package schnorr

import (
	"crypto/sha256"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/shardpow/dsnode/peer"
)

// Verifier - verifies a peer.Signature against a message and public key
type Verifier interface {
	Verify(message []byte, sig peer.Signature, pubKey peer.PublicKey) bool
}

// Secp256k1Verifier - the production verifier, backed by the secp256k1
// curve operations from btcec
type Secp256k1Verifier struct{}

// Verify - true when sig is a valid generalized-Schnorr signature over
// message under pubKey
func (Secp256k1Verifier) Verify(message []byte, sig peer.Signature, pubKey peer.PublicKey) bool {

	q, err := btcec.ParsePubKey(pubKey[:])
	if err != nil {
		return false
	}

	curve := btcec.S256()
	n := curve.N

	c := new(big.Int).SetBytes(sig.Challenge())
	s := new(big.Int).SetBytes(sig.Response())

	if c.Cmp(n) >= 0 || s.Cmp(n) >= 0 {
		return false
	}

	// R' = s*G + c*Q
	sgx, sgy := curve.ScalarBaseMult(s.Bytes())
	cqx, cqy := curve.ScalarMult(q.X(), q.Y(), c.Bytes())
	rx, ry := curve.Add(sgx, sgy, cqx, cqy)

	if rx.Sign() == 0 && ry.Sign() == 0 {
		return false
	}

	expected := challenge(rx, ry, q, message)
	return expected.Cmp(c) == 0
}

// challenge - c = H(R || Q || m) mod n, shared by Secp256k1Verifier's
// Verify and by Sign below
func challenge(rx, ry *big.Int, q *btcec.PublicKey, message []byte) *big.Int {
	h := sha256.New()
	h.Write(rx.Bytes())
	h.Write(ry.Bytes())
	h.Write(q.SerializeCompressed())
	h.Write(message)
	sum := h.Sum(nil)

	c := new(big.Int).SetBytes(sum)
	return c.Mod(c, btcec.S256().N)
}

// Sign - produce a (challenge, response) pair for message under the
// private scalar priv; used only by tests to construct fixtures, the
// production node never signs its own PoW submissions
func Sign(message []byte, priv *btcec.PrivateKey, k *big.Int) peer.Signature {
	curve := btcec.S256()
	n := curve.N

	rx, ry := curve.ScalarBaseMult(k.Bytes())
	pub := priv.PubKey()

	c := challenge(rx, ry, pub, message)

	// s = k - c*x mod n
	x := new(big.Int).SetBytes(priv.Serialize())
	s := new(big.Int).Sub(k, new(big.Int).Mul(c, x))
	s.Mod(s, n)

	var sig peer.Signature
	copy(sig[:peer.ChallengeSize], leftPad(c.Bytes(), peer.ChallengeSize))
	copy(sig[peer.ChallengeSize:], leftPad(s.Bytes(), peer.ResponseSize))
	return sig
}

func leftPad(b []byte, size int) []byte {
	if len(b) >= size {
		return b[len(b)-size:]
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}
