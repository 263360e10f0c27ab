// SPDX-License-Identifier: ISC

// Package sync - the background synchronisation poller and the
// backup-DS rejoin flow
package sync

import (
	"context"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/shardpow/dsnode/background"
	"github.com/shardpow/dsnode/bootstrap"
	"github.com/shardpow/dsnode/config"
	"github.com/shardpow/dsnode/dsstate"
	"github.com/shardpow/dsnode/external"
	"github.com/shardpow/dsnode/fault"
	"github.com/shardpow/dsnode/mode"
)

// ClearState - wipes whatever DS-local state (committee, PoW tables,
// pending blocks) start_synchronization says to clear before a fresh
// catch-up; injected so this package doesn't need to import every
// package that owns a piece of that state.
type ClearState func()

// globals
var globalData struct {
	sync.RWMutex
	log *logger.L

	lookup     external.Lookup
	tip        external.ChainTip
	tunables   config.Tunables
	clearState ClearState

	proc *background.T

	initialised bool
}

// Initialise - wire the sync poller to its collaborators
func Initialise(lookup external.Lookup, tip external.ChainTip, tunables config.Tunables, clearState ClearState) error {
	globalData.Lock()
	defer globalData.Unlock()

	if globalData.initialised {
		return fault.ErrAlreadyInitialised
	}

	globalData.log = logger.New("sync")
	globalData.lookup = lookup
	globalData.tip = tip
	globalData.tunables = tunables
	globalData.clearState = clearState
	globalData.initialised = true
	return nil
}

// Finalise - stop any running sync task and release the wiring
func Finalise() error {
	globalData.Lock()
	proc := globalData.proc
	globalData.proc = nil
	globalData.initialised = false
	globalData.Unlock()

	if proc != nil {
		background.Stop(proc)
	}
	return nil
}

// StartSynchronization - clear DS-local state and spawn the background
// catch-up poller; idempotent while a poller is already running.
func StartSynchronization() error {
	return startSync(dsstate.LookupSync)
}

// RejoinAsDS - permitted only for an idle backup during no-sync; sets
// DsSync and re-enters the same poller RejoinAsDS shares with
// StartSynchronization, so that on catch-up the poller calls
// bootstrap.FinishRejoinAsDS instead of simply stopping.
func RejoinAsDS() error {
	if dsstate.GetSyncType() != dsstate.NoSync {
		return fault.ErrRejoinNotPermitted
	}
	if !mode.Is(mode.BackupDS) {
		return fault.ErrRejoinNotPermitted
	}
	return startSync(dsstate.DsSync)
}

func startSync(syncType dsstate.SyncType) error {
	globalData.Lock()
	if globalData.proc != nil {
		globalData.Unlock()
		return fault.ErrAlreadyInitialised
	}
	clearState := globalData.clearState
	globalData.Unlock()

	if clearState != nil {
		clearState()
	}
	dsstate.SetSyncType(syncType)

	p := background.Start(background.Processes{syncTask}, syncType)

	globalData.Lock()
	globalData.proc = p
	globalData.Unlock()
	return nil
}

// StopSynchronization - mark sync as finished; the poller notices on
// its next iteration and exits, and a DsSync poller then runs
// bootstrap.FinishRejoinAsDS before it returns
func StopSynchronization() {
	dsstate.SetSyncType(dsstate.NoSync)
}

// syncTask - the background.Process run by StartSynchronization and
// RejoinAsDS alike; step (a) fetches the offline-lookup list with a
// bounded wait, step (b) fetches DS committee info, step (c) loops
// pulling blocks beyond the local tip until sync_type returns to NoSync
func syncTask(args interface{}, shutdown <-chan bool, done chan<- bool) {
	defer func() { done <- true }()

	syncType, _ := args.(dsstate.SyncType)

	globalData.RLock()
	lookup := globalData.lookup
	tunables := globalData.tunables
	globalData.RUnlock()

	if lookup == nil {
		dsstate.SetSyncType(dsstate.NoSync)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), tunables.PoWWindow)
	err := lookup.FetchOfflineLookups(ctx)
	cancel()
	if err != nil {
		globalData.log.Warnf("fetch offline lookups aborted: %v", err)
		dsstate.SetSyncType(dsstate.NoSync)
		return
	}

	if err := lookup.FetchDSInfo(context.Background()); err != nil {
		globalData.log.Errorf("fetch ds info failed: %v", err)
	}

	for dsstate.GetSyncType() != dsstate.NoSync {
		select {
		case <-shutdown:
			return
		default:
		}

		from := uint64(0)
		globalData.RLock()
		tip := globalData.tip
		globalData.RUnlock()
		if tip != nil {
			from = tip.LastBlockNum() + 1
		}

		if err := lookup.FetchLatestDSBlocks(context.Background(), from); err != nil {
			globalData.log.Warnf("fetch latest ds blocks failed: %v", err)
		}
		if err := lookup.FetchLatestTxBlocks(context.Background(), from); err != nil {
			globalData.log.Warnf("fetch latest tx blocks failed: %v", err)
		}

		select {
		case <-shutdown:
			return
		case <-time.After(tunables.NewNodeSyncInterval):
		}
	}

	if syncType == dsstate.DsSync {
		bootstrap.FinishRejoinAsDS()
	}
}
