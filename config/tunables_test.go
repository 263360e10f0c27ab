// SPDX-License-Identifier: ISC

package config_test

import (
	"testing"

	"github.com/shardpow/dsnode/config"
)

func TestDefaultSizes(t *testing.T) {
	tun := config.Default()

	if tun.PubKeySize != 33 {
		t.Errorf("PubKeySize: expected 33, got %d", tun.PubKeySize)
	}
	if tun.SignatureChallengeSize != 32 || tun.SignatureResponseSize != 32 {
		t.Errorf("signature halves: expected 32/32, got %d/%d", tun.SignatureChallengeSize, tun.SignatureResponseSize)
	}
	if tun.BlockHashSize != 32 {
		t.Errorf("BlockHashSize: expected 32, got %d", tun.BlockHashSize)
	}
}

func TestEstimatedBlocksPerYear(t *testing.T) {
	tun := config.Default()
	blocks := tun.EstimatedBlocksPerYear()
	if blocks == 0 {
		t.Fatal("expected a positive estimate")
	}
}
