// SPDX-License-Identifier: ISC

// Package powhash - the proof-of-work hash check
//
// Full PoW verification (the header-dependent, nonce-dependent,
// memory-hard mix function) is treated as an external collaborator
// (see the Verifier interface) because it is deliberately out of
// scope for the DS core: the core only needs to know whether a
// submitted (nonce, resultHash, mixHash) tuple satisfies a difficulty
// target it is handed. This package supplies the target-comparison
// half of that contract plus a default mixhash recomputation a real
// Verifier implementation can build on.
package powhash

import (
	"encoding/binary"
	"math/big"
	"net"

	"golang.org/x/crypto/sha3"

	"github.com/shardpow/dsnode/blockhash"
	"github.com/shardpow/dsnode/peer"
)

// Verifier - the external collaborator that checks a submitted PoW
// solution against the difficulty level the DS core expects. ip and
// pubkey bind the solution to its submitter, matching PoWVerify's own
// signature; fullMining selects the memory-hard full verification path
// over the light client-side check when true.
type Verifier interface {
	Verify(blockNumber uint64, difficulty uint8, rand1, rand2 blockhash.Hash,
		ip net.IP, pubkey peer.PublicKey, fullMining bool,
		nonce uint64, resultHash, mixHash blockhash.Hash) bool
}

// Target - convert a difficulty level into the big-integer threshold a
// result hash must fall below, 2^256 / 2^difficulty
func Target(difficulty uint8) *big.Int {
	if difficulty == 0 {
		return new(big.Int).Lsh(big.NewInt(1), 256)
	}
	target := new(big.Int).Lsh(big.NewInt(1), 256-uint(difficulty))
	return target
}

// MeetsDifficulty - true when resultHash is numerically below the
// threshold implied by difficulty
func MeetsDifficulty(resultHash blockhash.Hash, difficulty uint8) bool {
	return resultHash.Cmp(Target(difficulty)) < 0
}

// Keccak256Verifier - a self-contained reference verifier: recomputes
// the mixhash/result pair from the header seed and nonce with Keccak
// and checks the result against the difficulty target. Good enough
// for single-process tests; a production deployment swaps this for a
// GPU/ASIC-backed Verifier behind the same interface.
type Keccak256Verifier struct{}

// Verify - recompute mixHash/resultHash from (rand1, rand2, pubkey,
// nonce) and compare against both the caller-supplied values and the
// difficulty target. ip is accepted for interface parity with
// PoWVerify but plays no part in this light, single-process
// verifier's own recomputation; fullMining likewise selects no
// separate code path here since this verifier only ever does the
// full recompute.
func (Keccak256Verifier) Verify(blockNumber uint64, difficulty uint8, rand1, rand2 blockhash.Hash,
	ip net.IP, pubkey peer.PublicKey, fullMining bool,
	nonce uint64, resultHash, mixHash blockhash.Hash) bool {

	expectedMix := mix(blockNumber, rand1, rand2, pubkey, nonce)
	if expectedMix != mixHash {
		return false
	}

	expectedResult := result(expectedMix, nonce)
	if expectedResult != resultHash {
		return false
	}

	return MeetsDifficulty(resultHash, difficulty)
}

func mix(blockNumber uint64, rand1, rand2 blockhash.Hash, pubkey peer.PublicKey, nonce uint64) blockhash.Hash {
	var header [8]byte
	binary.BigEndian.PutUint64(header[:], blockNumber)

	var nonceBytes [8]byte
	binary.BigEndian.PutUint64(nonceBytes[:], nonce)

	h := sha3.NewLegacyKeccak256()
	h.Write(header[:])
	h.Write(rand1[:])
	h.Write(rand2[:])
	h.Write(pubkey[:])
	h.Write(nonceBytes[:])

	return blockhash.FromBytes(h.Sum(nil))
}

func result(mixHash blockhash.Hash, nonce uint64) blockhash.Hash {
	var nonceBytes [8]byte
	binary.BigEndian.PutUint64(nonceBytes[:], nonce)

	h := sha3.NewLegacyKeccak256()
	h.Write(mixHash[:])
	h.Write(nonceBytes[:])

	return blockhash.FromBytes(h.Sum(nil))
}
