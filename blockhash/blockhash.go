// SPDX-License-Identifier: ISC

// Package blockhash - the fixed 32-byte hash type used for DS block
// hashes, tx block hashes and PoW result hashes
package blockhash

import (
	"encoding/hex"
	"math/big"
)

// Length - number of bytes in a hash
const Length = 32

// Hash - a 32-byte chain hash, stored little-endian, printed big-endian
type Hash [Length]byte

// FromBytes - build a Hash from a byte slice; a shorter slice leaves
// the trailing bytes zero and a longer one is truncated to Length
func FromBytes(b []byte) Hash {
	var h Hash
	copy(h[:], b)
	return h
}

// Cmp - compare against a difficulty target, treating both as
// big-endian big integers
func (h Hash) Cmp(target *big.Int) int {
	value := new(big.Int).SetBytes(reversed(h))
	return value.Cmp(target)
}

func reversed(h Hash) []byte {
	result := make([]byte, Length)
	for i := 0; i < Length; i++ {
		result[i] = h[Length-1-i]
	}
	return result
}

// String - big-endian hex for %s
func (h Hash) String() string {
	return hex.EncodeToString(reversed(h))
}

// GoString - big-endian hex for %#v
func (h Hash) GoString() string {
	return "<Hash:" + hex.EncodeToString(reversed(h)) + ">"
}

// IsZero - true for the zero hash (genesis predecessor)
func (h Hash) IsZero() bool {
	return h == Hash{}
}
