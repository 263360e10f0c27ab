// SPDX-License-Identifier: ISC

package blockhash_test

import (
	"math/big"
	"testing"

	"github.com/shardpow/dsnode/blockhash"
)

func TestZero(t *testing.T) {
	var h blockhash.Hash
	if !h.IsZero() {
		t.Error("default hash should be zero")
	}
	h[0] = 1
	if h.IsZero() {
		t.Error("non-zero hash reported as zero")
	}
}

func TestCmp(t *testing.T) {
	var low blockhash.Hash
	low[0] = 1 // least-significant byte, value 1

	var high blockhash.Hash
	high[blockhash.Length-1] = 0xff // most-significant byte, huge value

	target := big.NewInt(0).SetUint64(1000)

	if low.Cmp(target) >= 0 {
		t.Error("low hash should be below target")
	}
	if high.Cmp(target) <= 0 {
		t.Error("high hash should be above target")
	}
}
