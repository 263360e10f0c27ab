// SPDX-License-Identifier: ISC

// Package dispatch - routes an inbound DS message to its handler by
// instruction tag, gated by the node's synchronisation status and the
// state machine's admissibility table
package dispatch

import (
	"context"

	"github.com/bitmark-inc/logger"
	"github.com/shardpow/dsnode/dsstate"
	"github.com/shardpow/dsnode/peer"
)

// instruction tags, the first byte of every dispatched message
const (
	TagSetPrimary           byte = 0
	TagPoWSubmission        byte = 1
	TagDsBlockConsensus     byte = 2
	TagMicroblockSubmission byte = 3
	TagFinalBlockConsensus  byte = 4
	TagViewChangeConsensus  byte = 5
)

// Handler - processes the payload following the instruction tag, from
// the address the message arrived on
type Handler func(payload []byte, from peer.Address) bool

// actionForTag - every tag except SetPrimary maps onto a dsstate.Action
// checked against the admissibility table before the handler runs
var actionForTag = map[byte]dsstate.Action{
	TagPoWSubmission:        dsstate.ActionPoWSubmission,
	TagDsBlockConsensus:     dsstate.ActionDsBlockConsensus,
	TagMicroblockSubmission: dsstate.ActionMicroblockSubmission,
	TagFinalBlockConsensus:  dsstate.ActionFinalBlockConsensus,
	TagViewChangeConsensus:  dsstate.ActionViewChangeConsensus,
}

// Dispatcher - a fixed handler table, selected once at construction by
// role (full DS node vs. lookup node)
type Dispatcher struct {
	log      *logger.L
	handlers [6]Handler
	fullNode bool

	powSubmissionTimeout func() context.Context
}

// New - build a dispatcher. When fullNode is false the handler table
// omits TagViewChangeConsensus, matching the 5-handler lookup-node
// variant in the original: view-change is a DS-role-only concern.
// powSubmissionTimeout builds the bounded context used for the PoW
// late-arrival grace wait; pass nil to use context.Background with no
// deadline (tests that don't care about the timeout).
func New(fullNode bool, powSubmissionTimeout func() context.Context, handlers [6]Handler) *Dispatcher {
	d := &Dispatcher{
		log:                  logger.New("dispatch"),
		handlers:             handlers,
		fullNode:             fullNode,
		powSubmissionTimeout: powSubmissionTimeout,
	}
	if !fullNode {
		d.handlers[TagViewChangeConsensus] = nil
	}
	return d
}

// Execute - route message to its handler, return false on any rejected
// or malformed message; matches DirectoryService::Execute in shape:
// a currently-synchronising node drops every message before dispatch,
// SetPrimary bypasses the admissibility table entirely (bootstrap is
// legal in any state), and a PoW submission arriving during
// FinalBlockConsensus gets one bounded wait for the state to advance
// before being retried.
func (d *Dispatcher) Execute(message []byte, from peer.Address) bool {
	if dsstate.GetSyncType() != dsstate.NoSync {
		return false
	}
	if len(message) < 1 {
		return false
	}

	tag := message[0]
	payload := message[1:]

	if int(tag) >= len(d.handlers) || d.handlers[tag] == nil {
		d.log.Warnf("unknown or unavailable instruction tag %d", tag)
		return false
	}

	if tag == TagSetPrimary {
		return d.handlers[tag](payload, from)
	}

	action, ok := actionForTag[tag]
	if !ok {
		return false
	}

	state := dsstate.State()
	if !dsstate.CheckState(state, action) {
		if tag != TagPoWSubmission || state != dsstate.FinalBlockConsensus {
			d.log.Warnf("rejecting tag %d: action not admissible in state %s", tag, state)
			return false
		}

		ctx := context.Background()
		if d.powSubmissionTimeout != nil {
			ctx = d.powSubmissionTimeout()
		}
		dsstate.WaitForTransition(ctx)

		if !dsstate.CheckState(dsstate.State(), action) {
			d.log.Warnf("pow submission still inadmissible after grace wait, state %s", dsstate.State())
			return false
		}
	}

	return d.handlers[tag](payload, from)
}
