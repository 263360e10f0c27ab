// SPDX-License-Identifier: ISC

// Package retarget - difficulty adjustment between DS epochs
package retarget

import (
	"github.com/shardpow/dsnode/config"
)

// maxAdjustStep - the largest single-epoch difficulty change allowed
// in either direction, regardless of submission volume
const maxAdjustStep = 2

// maxAdjustThreshold - caps the adjustment threshold so small networks
// still retarget in sensible increments
const maxAdjustThreshold = 99

// maxIncreaseDifficultyYears - the decade ratchet only fires for this
// many years after genesis
const maxIncreaseDifficultyYears = 10

// Input - everything the retargeter needs to know about the epoch
// that just finished
type Input struct {
	CurrentDifficulty int
	PoWSubmissions    int64
	CurrentNodes      int64
	CurrentEpochNum   uint64
}

// NewDifficulty - the difficulty level the next epoch should use,
// grounded on the reference implementation's CalculateNewDifficulty:
// submissions vs. expected node count move the difficulty by at most
// maxAdjustStep, floored at the configured minimum, plus an annual
// ratchet that nudges difficulty up by one for the network's first
// maxIncreaseDifficultyYears
func NewDifficulty(in Input, tun config.Tunables) int {

	adjustment := int64(0)

	if in.CurrentNodes > 0 && in.CurrentNodes != in.PoWSubmissions {
		submissionsDiff := in.PoWSubmissions - in.CurrentNodes

		adjustThreshold := in.CurrentNodes * int64(tun.PoWChangePercentToAdjDiff) / 100
		if adjustThreshold > maxAdjustThreshold {
			adjustThreshold = maxAdjustThreshold
		}

		if abs64(submissionsDiff) < adjustThreshold {
			if submissionsDiff > 0 && in.PoWSubmissions > int64(tun.NumNetworkNode) {
				adjustment = 1
			} else if submissionsDiff < 0 && in.PoWSubmissions < int64(tun.NumNetworkNode) {
				adjustment = -1
			}
		} else if adjustThreshold > 0 {
			adjustment = submissionsDiff / adjustThreshold
		}
	}

	if adjustment > maxAdjustStep {
		adjustment = maxAdjustStep
	} else if adjustment < -maxAdjustStep {
		adjustment = -maxAdjustStep
	}

	newDifficulty := in.CurrentDifficulty + int(adjustment)
	if newDifficulty < tun.PoWDifficulty {
		newDifficulty = tun.PoWDifficulty
	}

	if shouldRatchet(in.CurrentEpochNum, tun) {
		newDifficulty++
	}

	return newDifficulty
}

// shouldRatchet - true once per year, for the network's first decade,
// on the epoch that lands exactly on the annual boundary
func shouldRatchet(currentEpochNum uint64, tun config.Tunables) bool {
	estimatedBlocksOneYear := tun.EstimatedBlocksPerYear()
	if estimatedBlocksOneYear == 0 {
		return false
	}
	return currentEpochNum/estimatedBlocksOneYear <= maxIncreaseDifficultyYears &&
		currentEpochNum%estimatedBlocksOneYear == 0
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
