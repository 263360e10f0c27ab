// SPDX-License-Identifier: ISC

package powhash_test

import (
	"encoding/binary"
	"net"
	"testing"

	"golang.org/x/crypto/sha3"

	"github.com/shardpow/dsnode/blockhash"
	"github.com/shardpow/dsnode/peer"
	"github.com/shardpow/dsnode/powhash"
)

func TestTargetMonotonic(t *testing.T) {
	low := powhash.Target(5)
	high := powhash.Target(10)
	if low.Cmp(high) <= 0 {
		t.Error("a higher difficulty level should yield a smaller target")
	}
}

func TestMeetsDifficulty(t *testing.T) {
	var h blockhash.Hash
	h[blockhash.Length-1] = 0x01 // most-significant byte: 2^248, under the difficulty-1 target of 2^255

	if !powhash.MeetsDifficulty(h, 1) {
		t.Error("expected small hash to meet a low difficulty")
	}

	var huge blockhash.Hash
	for i := range huge {
		huge[i] = 0xff
	}
	if powhash.MeetsDifficulty(huge, 250) {
		t.Error("expected max-value hash to fail a steep difficulty")
	}
}

// referenceMix/referenceResult reproduce Keccak256Verifier's internal
// chain so the test can search for a qualifying nonce and build a
// known-good fixture without reaching into unexported internals.
func referenceMix(blockNumber uint64, rand1, rand2 blockhash.Hash, pubkey peer.PublicKey, nonce uint64) blockhash.Hash {
	var header, nonceBytes [8]byte
	binary.BigEndian.PutUint64(header[:], blockNumber)
	binary.BigEndian.PutUint64(nonceBytes[:], nonce)

	h := sha3.NewLegacyKeccak256()
	h.Write(header[:])
	h.Write(rand1[:])
	h.Write(rand2[:])
	h.Write(pubkey[:])
	h.Write(nonceBytes[:])
	return blockhash.FromBytes(h.Sum(nil))
}

func referenceResult(mixHash blockhash.Hash, nonce uint64) blockhash.Hash {
	var nonceBytes [8]byte
	binary.BigEndian.PutUint64(nonceBytes[:], nonce)

	h := sha3.NewLegacyKeccak256()
	h.Write(mixHash[:])
	h.Write(nonceBytes[:])
	return blockhash.FromBytes(h.Sum(nil))
}

func TestKeccak256VerifierRoundTrip(t *testing.T) {
	v := powhash.Keccak256Verifier{}

	var rand1, rand2 blockhash.Hash
	rand1[0] = 1
	rand2[0] = 2

	var pubkey peer.PublicKey
	pubkey[0] = 0x02
	ip := net.ParseIP("8.8.8.8")

	const blockNumber = uint64(7)
	const easyDifficulty = 1

	var nonce uint64
	var mixHash, resultHash blockhash.Hash
	found := false
	for n := uint64(0); n < 1<<16; n++ {
		m := referenceMix(blockNumber, rand1, rand2, pubkey, n)
		r := referenceResult(m, n)
		if powhash.MeetsDifficulty(r, easyDifficulty) {
			nonce, mixHash, resultHash, found = n, m, r, true
			break
		}
	}
	if !found {
		t.Skip("no qualifying nonce found in search space")
	}

	if !v.Verify(blockNumber, easyDifficulty, rand1, rand2, ip, pubkey, false, nonce, resultHash, mixHash) {
		t.Fatal("expected verifier to accept a self-consistent solution")
	}

	if v.Verify(blockNumber, easyDifficulty, rand1, rand2, ip, pubkey, false, nonce+1, resultHash, mixHash) {
		t.Fatal("expected verifier to reject a mismatched nonce")
	}

	var otherKey peer.PublicKey
	otherKey[0] = 0x03
	if v.Verify(blockNumber, easyDifficulty, rand1, rand2, ip, otherKey, false, nonce, resultHash, mixHash) {
		t.Fatal("expected verifier to reject a solution replayed under a different public key")
	}
}
