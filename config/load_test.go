// SPDX-License-Identifier: ISC

package config_test

import (
	"testing"
	"time"

	"github.com/shardpow/dsnode/config"
)

func TestLoadWithNoOverridesMatchesDefault(t *testing.T) {
	got := config.Load(config.Overrides{})
	if got != config.Default() {
		t.Errorf("expected Load with no overrides to equal Default")
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	testnet := true
	window := 5 * time.Second
	difficulty := 7

	got := config.Load(config.Overrides{
		TestNetMode: &testnet,
		PoWWindow:   &window,
		PoWDifficulty: &difficulty,
	})

	if !got.TestNetMode {
		t.Error("expected TestNetMode override to apply")
	}
	if got.PoWWindow != window {
		t.Errorf("expected PoWWindow override to apply, got %v", got.PoWWindow)
	}
	if got.PoWDifficulty != difficulty {
		t.Errorf("expected PoWDifficulty override to apply, got %d", got.PoWDifficulty)
	}
	if got.DSPoWDifficulty != config.Default().DSPoWDifficulty {
		t.Error("expected un-overridden fields to keep their default value")
	}
}
