// SPDX-License-Identifier: ISC

// Package bootstrap - the SetPrimary handshake that seats a DS
// committee for a fresh epoch: role assignment, committee snapshot,
// lookup-node gossip and the deferred hand-off into consensus
package bootstrap

import (
	"sync"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/shardpow/dsnode/admission"
	"github.com/shardpow/dsnode/config"
	"github.com/shardpow/dsnode/external"
	"github.com/shardpow/dsnode/fault"
	"github.com/shardpow/dsnode/messagebus"
	"github.com/shardpow/dsnode/mode"
	"github.com/shardpow/dsnode/peer"
	"github.com/shardpow/dsnode/retarget"
	"github.com/shardpow/dsnode/wire"
)

// ConsensusRunner - the out-of-scope BFT consensus engine; bootstrap's
// only job is to hand it a seated committee and step aside
type ConsensusRunner interface {
	RunConsensusOnDSBlock(committee []external.Pair, myID, leaderID int, isRejoin bool)
}

// globals
var globalData struct {
	sync.RWMutex
	log *logger.L

	self      external.Pair
	peers     external.PeerStore
	lookup    external.Lookup
	tip       external.ChainTip
	consensus ConsensusRunner
	tunables  config.Tunables

	epochNum uint64

	initialised bool
}

// Initialise - wire the bootstrap flow to this node's own identity and
// its collaborators. tip may be nil, in which case the next epoch's
// suggested difficulty is always computed against the default floor.
func Initialise(self external.Pair, peers external.PeerStore, lookup external.Lookup, tip external.ChainTip, consensus ConsensusRunner, tunables config.Tunables) error {
	globalData.Lock()
	defer globalData.Unlock()

	if globalData.initialised {
		return fault.ErrAlreadyInitialised
	}
	if peers == nil {
		return fault.ErrInvalidStructPointer
	}

	globalData.log = logger.New("bootstrap")
	globalData.self = self
	globalData.peers = peers
	globalData.lookup = lookup
	globalData.tip = tip
	globalData.consensus = consensus
	globalData.tunables = tunables
	globalData.epochNum = 0
	globalData.initialised = true
	return nil
}

// Finalise - drop the bootstrap wiring
func Finalise() error {
	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return fault.ErrNotInitialised
	}
	globalData.initialised = false
	return nil
}

// ProcessSetPrimary - handle a SetPrimary payload: the wire-encoded
// Address of the round-0 leader. Sets this node's role, snapshots and
// (if primary) gossips the seated committee, then schedules the
// PoW-window wait before handing off to consensus.
func ProcessSetPrimary(payload []byte) error {
	leader, err := peer.DecodeAddress(payload)
	if err != nil {
		return err
	}

	globalData.RLock()
	self := globalData.self
	globalData.RUnlock()

	if addressEqual(leader, self.Address) {
		mode.Set(mode.PrimaryDS)
	} else {
		mode.Set(mode.BackupDS)
	}

	committee, myID, leaderID := snapshotCommittee()

	if mode.Is(mode.PrimaryDS) {
		gossipCommittee(committee)
	}

	go waitThenRunConsensus(committee, myID, leaderID, false)
	return nil
}

// FinishRejoinAsDS - recompute this node's committee index under the
// current peer store snapshot and trigger a DS-block consensus round
// with the rejoin flag set, per finish_rejoin_as_ds in the original
func FinishRejoinAsDS() {
	committee, myID, leaderID := snapshotCommittee()
	go waitThenRunConsensus(committee, myID, leaderID, true)
}

// snapshotCommittee - add self to the peer store just long enough to
// get a correctly-sorted-by-pubkey committee list, remove self again
// afterwards, and locate self's index in the snapshot
func snapshotCommittee() ([]external.Pair, int, int) {
	globalData.RLock()
	self := globalData.self
	peers := globalData.peers
	globalData.RUnlock()

	peers.AddPeerPair(self.PublicKey, self.Address)
	all := peers.GetAllPeerPairs()
	peers.RemovePeer(self.PublicKey)

	myID := -1
	for i, p := range all {
		if p.PublicKey == self.PublicKey {
			myID = i
			break
		}
	}
	return all, myID, 0
}

// gossipCommittee - the leader's duty: tell the lookup nodes who's on
// the committee this epoch
func gossipCommittee(committee []external.Pair) {
	globalData.RLock()
	lookup := globalData.lookup
	log := globalData.log
	globalData.RUnlock()

	messagebus.Send(messagebus.CommitteeSeated, "bootstrap", committee)

	if lookup == nil {
		return
	}
	if err := lookup.SendMessageToLookupNodes(wire.EncodeSetDSInfoFromSeed(committee)); err != nil {
		log.Errorf("failed to gossip ds committee to lookup nodes: %v", err)
	}
}

// waitThenRunConsensus - the unconditional PoW-window sleep before the
// leader (and every backup) opens DS-block consensus
func waitThenRunConsensus(committee []external.Pair, myID, leaderID int, isRejoin bool) {
	globalData.RLock()
	wait := globalData.tunables.PoWWindow
	consensus := globalData.consensus
	globalData.RUnlock()

	time.Sleep(wait)

	difficulty := nextDifficulty(len(committee))
	globalData.log.Infof("suggested next ds difficulty: %d", difficulty)

	if consensus != nil {
		consensus.RunConsensusOnDSBlock(committee, myID, leaderID, isRejoin)
	}
}

// nextDifficulty - the retargeted difficulty the consensus engine
// should propose for the DS block it is about to assemble, derived
// from this epoch's PoW submission count against the current
// committee size, matching DirectoryService::CalculateNewDifficulty's
// call just before a new DS block is composed
func nextDifficulty(currentNodes int) int {
	globalData.Lock()
	tip := globalData.tip
	tun := globalData.tunables
	globalData.epochNum++
	epoch := globalData.epochNum
	globalData.Unlock()

	current := tun.PoWDifficulty
	if tip != nil {
		current = int(tip.LastDifficulty())
	}

	in := retarget.Input{
		CurrentDifficulty: current,
		PoWSubmissions:    int64(admission.GetNumberOfPoWs()),
		CurrentNodes:      int64(currentNodes),
		CurrentEpochNum:   epoch,
	}
	return retarget.NewDifficulty(in, tun)
}

func addressEqual(a, b peer.Address) bool {
	return a.Port == b.Port && a.IP.Equal(b.IP)
}
