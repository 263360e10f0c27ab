// SPDX-License-Identifier: ISC

// Package dsstate - the DS committee member's state machine: the
// active DirState, the admissibility table every inbound action is
// checked against, and the broadcast primitive state transitions use
// to wake anything blocked waiting for the next state
package dsstate

import (
	"context"
	"sync"

	"github.com/bitmark-inc/logger"
	"github.com/shardpow/dsnode/counter"
	"github.com/shardpow/dsnode/fault"
	"github.com/shardpow/dsnode/messagebus"
)

// DirState - the DS committee member's current phase within one DS
// epoch
type DirState int

// every phase a DS committee member can be in; exactly one is active
const (
	PowSubmission DirState = iota
	DsBlockConsensusPrep
	DsBlockConsensus
	MicroblockSubmission
	FinalBlockConsensusPrep
	FinalBlockConsensus
	ViewchangeConsensusPrep
	ViewchangeConsensus
	Error
)

func (s DirState) String() string {
	switch s {
	case PowSubmission:
		return "PowSubmission"
	case DsBlockConsensusPrep:
		return "DsBlockConsensusPrep"
	case DsBlockConsensus:
		return "DsBlockConsensus"
	case MicroblockSubmission:
		return "MicroblockSubmission"
	case FinalBlockConsensusPrep:
		return "FinalBlockConsensusPrep"
	case FinalBlockConsensus:
		return "FinalBlockConsensus"
	case ViewchangeConsensusPrep:
		return "ViewchangeConsensusPrep"
	case ViewchangeConsensus:
		return "ViewchangeConsensus"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// Action - the kind of inbound message being checked for admissibility
// against the current DirState; these line up with the dispatcher's
// instruction tags, except SetPrimary which bypasses the table entirely
// (bootstrap is legal in any state).
type Action int

const (
	ActionPoWSubmission Action = iota
	ActionDsBlockConsensus
	ActionMicroblockSubmission
	ActionFinalBlockConsensus
	ActionViewChangeConsensus
)

// SyncType - whether, and how, the node is currently synchronising with
// the rest of the chain; any value other than NoSync drops every DS
// message before it reaches the admissibility table
type SyncType int

const (
	NoSync SyncType = iota
	DsSync
	LookupSync
	NewLookupSync
)

// admissibility table: the set of (state, action) pairs the dispatcher
// will hand off to a handler; any pair absent from this table is
// rejected with a warning
var admissible = map[DirState]map[Action]bool{
	PowSubmission: {
		ActionPoWSubmission: true,
	},
	DsBlockConsensus: {
		ActionDsBlockConsensus: true,
	},
	MicroblockSubmission: {
		ActionMicroblockSubmission: true,
	},
	FinalBlockConsensus: {
		ActionFinalBlockConsensus: true,
	},
	ViewchangeConsensus: {
		ActionViewChangeConsensus: true,
	},
}

// globals
var globalData struct {
	sync.RWMutex
	log *logger.L

	state    DirState
	syncType SyncType

	// view_change_counter: how many view-change rounds this epoch has
	// gone through, reset to zero whenever the epoch restarts at
	// PowSubmission
	viewChangeCounter counter.Counter

	// closed and replaced on every SetState, letting any number of
	// goroutines block on WaitForTransition without a sync.Cond
	transition chan struct{}

	initialised bool
}

// Initialise - start the state machine in PowSubmission, the phase a
// freshly-seated DS committee begins an epoch in
func Initialise() error {
	globalData.Lock()
	defer globalData.Unlock()

	if globalData.initialised {
		return fault.ErrAlreadyInitialised
	}

	globalData.log = logger.New("dsstate")
	globalData.state = PowSubmission
	globalData.syncType = NoSync
	globalData.viewChangeCounter = 0
	globalData.transition = make(chan struct{})
	globalData.initialised = true
	return nil
}

// Finalise - release the state machine
func Finalise() error {
	globalData.Lock()
	defer globalData.Unlock()

	globalData.initialised = false
	return nil
}

// State - the currently active DirState
func State() DirState {
	globalData.RLock()
	defer globalData.RUnlock()
	return globalData.state
}

// SetState - the single entry point for every state change: logs the
// transition and wakes every goroutine blocked in WaitForTransition
func SetState(state DirState) {
	globalData.Lock()
	defer globalData.Unlock()

	if globalData.state == state {
		return
	}

	globalData.log.Infof("state transition: %s -> %s", globalData.state, state)
	from := globalData.state
	globalData.state = state

	switch state {
	case ViewchangeConsensus:
		globalData.viewChangeCounter.Increment()
	case PowSubmission:
		globalData.viewChangeCounter = 0
	}

	close(globalData.transition)
	globalData.transition = make(chan struct{})

	messagebus.Send(messagebus.StateTransition, "dsstate", [2]DirState{from, state})
}

// GetSyncType - the node's current synchronisation mode
func GetSyncType() SyncType {
	globalData.RLock()
	defer globalData.RUnlock()
	return globalData.syncType
}

// SetSyncType - update the synchronisation mode; does not itself touch
// DirState
func SetSyncType(t SyncType) {
	globalData.Lock()
	defer globalData.Unlock()
	globalData.syncType = t
	messagebus.Send(messagebus.SyncTypeChanged, "dsstate", t)
}

// ViewChangeCount - how many view-change rounds have run so far this
// epoch, i.e. the original's view_change_counter
func ViewChangeCount() uint64 {
	globalData.RLock()
	defer globalData.RUnlock()
	return globalData.viewChangeCounter.Uint64()
}

// CheckState - true iff (state, action) is a legal pair in the
// admissibility table
func CheckState(state DirState, action Action) bool {
	actions, ok := admissible[state]
	if !ok {
		return false
	}
	return actions[action]
}

// WaitForTransition - blocks until the next call to SetState or until
// ctx is done, whichever comes first; returns true if a transition was
// observed. This is the channel-based stand-in for the condition
// variable the dispatcher's PoW late-arrival grace wait needs.
func WaitForTransition(ctx context.Context) bool {
	globalData.RLock()
	ch := globalData.transition
	globalData.RUnlock()

	select {
	case <-ch:
		return true
	case <-ctx.Done():
		return false
	}
}
