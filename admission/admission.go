// SPDX-License-Identifier: ISC

// Package admission - the PoW submission pipeline: decode, rate-limit,
// verify and commit a shard or DS node's proof-of-work solution for the
// DS block currently being mined
package admission

import (
	"net"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/bitmark-inc/logger"
	"github.com/shardpow/dsnode/blockhash"
	"github.com/shardpow/dsnode/config"
	"github.com/shardpow/dsnode/dsstate"
	"github.com/shardpow/dsnode/external"
	"github.com/shardpow/dsnode/fault"
	"github.com/shardpow/dsnode/messagebus"
	"github.com/shardpow/dsnode/peer"
	"github.com/shardpow/dsnode/powhash"
	"github.com/shardpow/dsnode/schnorr"
	"github.com/shardpow/dsnode/wire"
)

// shortCircuitCacheSize - recently-accepted (pubkey, result hash) pairs
// short-circuit a retransmitted submission without repeating signature
// and PoW-hash verification
const shortCircuitCacheSize = 4096

// globals
var globalData struct {
	sync.RWMutex
	log *logger.L

	tunables  config.Tunables
	pow       powhash.Verifier
	schnorr   schnorr.Verifier
	tip       external.ChainTip
	peers     external.PeerStore
	whitelist external.Whitelist

	// the joint two-table commit: a winning hash is only ever visible
	// in allPoWs once its matching connection is in allPoWConns, and
	// vice versa - both are written together under the same lock
	allPoWs     map[peer.PublicKey]blockhash.Hash
	allPoWConns map[peer.PublicKey]peer.Address

	allDSPoWs map[peer.PublicKey]blockhash.Hash

	submissionCount map[peer.PublicKey]uint64

	seen *lru.Cache

	initialised bool
}

// Initialise - wire the admission pipeline to its collaborators and
// reset every PoW table for a fresh DS epoch
func Initialise(tunables config.Tunables, pow powhash.Verifier, sv schnorr.Verifier, tip external.ChainTip, peers external.PeerStore, whitelist external.Whitelist) error {
	globalData.Lock()
	defer globalData.Unlock()

	if globalData.initialised {
		return fault.ErrAlreadyInitialised
	}

	globalData.log = logger.New("admission")
	globalData.tunables = tunables
	globalData.pow = pow
	globalData.schnorr = sv
	globalData.tip = tip
	globalData.peers = peers
	globalData.whitelist = whitelist

	seen, err := lru.New(shortCircuitCacheSize)
	if err != nil {
		return err
	}
	globalData.seen = seen

	resetTables()
	globalData.initialised = true
	return nil
}

// Finalise - drop every PoW table
func Finalise() {
	globalData.Lock()
	defer globalData.Unlock()

	globalData.initialised = false
	globalData.allPoWs = nil
	globalData.allPoWConns = nil
	globalData.allDSPoWs = nil
	globalData.submissionCount = nil
	globalData.seen = nil
}

func resetTables() {
	globalData.allPoWs = make(map[peer.PublicKey]blockhash.Hash)
	globalData.allPoWConns = make(map[peer.PublicKey]peer.Address)
	globalData.allDSPoWs = make(map[peer.PublicKey]blockhash.Hash)
	globalData.submissionCount = make(map[peer.PublicKey]uint64)
}

// ClearDSPoWSolns - wipe every PoW table (shard tier, DS tier,
// connections) and every submission counter, called once a new DS
// epoch starts mining
func ClearDSPoWSolns() {
	globalData.Lock()
	defer globalData.Unlock()

	resetTables()
}

// ProcessPoWSubmission - decode, verify and (if admissible) commit a
// PROCESS_POWSUBMISSION payload received from senderIP
//
// LOOKUP_NODE_MODE nodes do not participate in PoW admission at all and
// report success unconditionally, matching every other guard the
// reference implementation repeats at the top of this call.
func ProcessPoWSubmission(message []byte, senderIP net.IP, rand1, rand2 blockhash.Hash) error {
	if globalData.tunables.LookupNodeMode {
		return nil
	}

	submission, err := wire.DecodePoWSubmission(message)
	if err != nil {
		return err
	}

	if err := checkFreshness(submission); err != nil {
		return err
	}

	sender := peer.Address{IP: senderIP, Port: submission.Port}

	globalData.RLock()
	whitelist := globalData.whitelist
	globalData.RUnlock()

	if whitelist != nil && !whitelist.IsNodeInDSWhitelist(sender, submission.PublicKey) {
		if globalData.tunables.TestNetMode {
			globalData.log.Debugf("testnet: submission from %s not in ds whitelist, accepting anyway", sender)
		} else {
			globalData.log.Debugf("rejecting submission from %s: not in ds whitelist", sender)
			return nil
		}
	}
	if whitelist != nil {
		if globalData.tunables.ExcludePrivateIP && !whitelist.IsValidIP(senderIP) {
			return fault.ErrNonPublicIP
		}
	} else if globalData.tunables.ExcludePrivateIP && !sender.IsPublic() {
		return fault.ErrNonPublicIP
	}

	if cacheKey, ok := checkShortCircuit(submission); ok {
		globalData.log.Debugf("short-circuit: already processed submission from %s", submission.PublicKey)
		_ = cacheKey
		// gated on the same limit the normal path enforces, so a
		// retransmit storm cannot push the counter past
		// PoWSubmissionLimit
		if err := checkSubmissionLimit(submission.PublicKey); err == nil {
			bumpSubmissionCount(submission.PublicKey)
		}
		return nil
	}

	if !dsstate.CheckState(dsstate.State(), dsstate.ActionPoWSubmission) {
		globalData.log.Warnf("pow submission from %s arrived outside the admissible state, treating as benign", submission.PublicKey)
		return nil
	}

	if err := checkSubmissionLimit(submission.PublicKey); err != nil {
		return err
	}

	if !globalData.schnorr.Verify(submission.SignedPrefix(), submission.Signature, submission.PublicKey) {
		return fault.ErrInvalidSignature
	}

	if err := checkDifficultyTier(submission.Difficulty); err != nil {
		return err
	}

	if !globalData.pow.Verify(submission.DSBlockNumber, submission.Difficulty, rand1, rand2,
		senderIP, submission.PublicKey, false,
		submission.Nonce, submission.ResultHash, submission.MixHash) {
		return fault.ErrInvalidPoWSolution
	}

	commit(submission, sender)
	messagebus.Send(messagebus.PoWAccepted, "admission", submission.PublicKey)

	if globalData.peers != nil {
		globalData.peers.AddPeerPair(submission.PublicKey, sender)
	}

	return nil
}

// checkFreshness - a submission is only accepted for the DS block
// number the node is currently about to finalise; anything past it is
// rejected as premature and anything at or before the last committed
// block is rejected as a duplicate, matching CheckWhetherDSBlockIsFresh
func checkFreshness(submission wire.PoWSubmission) error {
	globalData.RLock()
	tip := globalData.tip
	globalData.RUnlock()

	if tip == nil {
		return nil
	}

	expected := tip.LastBlockNum() + 1
	if submission.DSBlockNumber > expected {
		return fault.ErrFutureDSBlockNumber
	}
	if submission.DSBlockNumber < expected {
		return fault.ErrDuplicateDSBlockNumber
	}
	return nil
}

// checkDifficultyTier - the submitted difficulty must equal exactly one
// of the two tiers currently being mined: the shard tier or the DS tier
func checkDifficultyTier(difficulty uint8) error {
	globalData.RLock()
	tip := globalData.tip
	globalData.RUnlock()

	if tip == nil {
		return nil
	}

	if difficulty != tip.LastDSDifficulty() && difficulty != tip.LastDifficulty() {
		return fault.ErrWrongDifficulty
	}
	return nil
}

// checkShortCircuit - true when this exact (pubkey, result hash) pair
// has already been processed inside the current PoW window
func checkShortCircuit(submission wire.PoWSubmission) (string, bool) {
	key := shortCircuitKey(submission)

	globalData.Lock()
	defer globalData.Unlock()

	if globalData.seen == nil {
		return key, false
	}
	if _, ok := globalData.seen.Get(key); ok {
		return key, true
	}
	globalData.seen.Add(key, time.Now())
	return key, false
}

func shortCircuitKey(submission wire.PoWSubmission) string {
	return submission.PublicKey.String() + ":" + submission.ResultHash.String()
}

// checkSubmissionLimit - a public key may submit at most
// config.Tunables.PoWSubmissionLimit times per DS epoch
func checkSubmissionLimit(key peer.PublicKey) error {
	globalData.RLock()
	defer globalData.RUnlock()

	if globalData.submissionCount[key] >= globalData.tunables.PoWSubmissionLimit {
		return fault.ErrPoWSubmissionLimit
	}
	return nil
}

// bumpSubmissionCount - increment the per-pubkey submission counter on
// its own, used by the short-circuit path which otherwise never
// touches the PoW tables; a retransmitted submission still counts
// against the submitter's per-epoch limit
func bumpSubmissionCount(key peer.PublicKey) {
	withPowTables(func() {
		globalData.submissionCount[key]++
	})
}

// commit - the joint two-table write plus the conditional DS-tier table,
// and the submission counter increment, all under a single lock per the
// lock-ordering discipline: never leave allPoWConns and allPoWs visible
// out of step with one another.
func commit(submission wire.PoWSubmission, sender peer.Address) {
	withPowTables(func() {
		globalData.allPoWConns[submission.PublicKey] = sender
		globalData.allPoWs[submission.PublicKey] = submission.ResultHash

		if submission.Difficulty == lastDSDifficultySafe() {
			globalData.allDSPoWs[submission.PublicKey] = submission.ResultHash
		}

		globalData.submissionCount[submission.PublicKey]++
	})
}

// withPowTables - the sole entry point that may mutate allPoWs,
// allPoWConns, allDSPoWs or submissionCount; every write to those
// tables goes through here so the two-table commit is always atomic
// with respect to readers.
func withPowTables(fn func()) {
	globalData.Lock()
	defer globalData.Unlock()
	fn()
}

// lastDSDifficultySafe - LastDSDifficulty guarded against a nil tip,
// used only from inside withPowTables where the caller already holds
// the lock
func lastDSDifficultySafe() uint8 {
	if globalData.tip == nil {
		return 0
	}
	return globalData.tip.LastDSDifficulty()
}

// GetAllDSPoWs - a copy of the DS-tier winning hash table
func GetAllDSPoWs() map[peer.PublicKey]blockhash.Hash {
	globalData.RLock()
	defer globalData.RUnlock()

	out := make(map[peer.PublicKey]blockhash.Hash, len(globalData.allDSPoWs))
	for k, v := range globalData.allDSPoWs {
		out[k] = v
	}
	return out
}

// GetDSPoWSoln - the winning hash a given public key submitted at the
// DS tier, if any
func GetDSPoWSoln(key peer.PublicKey) (blockhash.Hash, bool) {
	globalData.RLock()
	defer globalData.RUnlock()

	h, ok := globalData.allDSPoWs[key]
	return h, ok
}

// IsNodeSubmittedDSPoWSoln - true when key has a recorded DS-tier
// winning hash for the current epoch
func IsNodeSubmittedDSPoWSoln(key peer.PublicKey) bool {
	_, ok := GetDSPoWSoln(key)
	return ok
}

// GetNumberOfDSPoWSolns - how many distinct public keys have submitted
// a DS-tier solution this epoch
func GetNumberOfDSPoWSolns() int {
	globalData.RLock()
	defer globalData.RUnlock()
	return len(globalData.allDSPoWs)
}

// GetNumberOfPoWs - how many distinct public keys have submitted a
// shard-tier solution this epoch
func GetNumberOfPoWs() int {
	globalData.RLock()
	defer globalData.RUnlock()
	return len(globalData.allPoWs)
}

// GetAllPoWs - a copy of the shard-tier winning hash table
func GetAllPoWs() map[peer.PublicKey]blockhash.Hash {
	globalData.RLock()
	defer globalData.RUnlock()

	out := make(map[peer.PublicKey]blockhash.Hash, len(globalData.allPoWs))
	for k, v := range globalData.allPoWs {
		out[k] = v
	}
	return out
}
