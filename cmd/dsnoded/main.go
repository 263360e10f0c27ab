// SPDX-License-Identifier: ISC

package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	flags "github.com/jessevdk/go-flags"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/bitmark-inc/logger"

	"github.com/shardpow/dsnode/admission"
	"github.com/shardpow/dsnode/blockhash"
	"github.com/shardpow/dsnode/bootstrap"
	"github.com/shardpow/dsnode/config"
	"github.com/shardpow/dsnode/dispatch"
	"github.com/shardpow/dsnode/dsstate"
	"github.com/shardpow/dsnode/external"
	"github.com/shardpow/dsnode/fault"
	"github.com/shardpow/dsnode/mode"
	"github.com/shardpow/dsnode/peer"
	"github.com/shardpow/dsnode/powhash"
	"github.com/shardpow/dsnode/schnorr"
	"github.com/shardpow/dsnode/storage"
	dssync "github.com/shardpow/dsnode/sync"
)

// to check if PID file was created
var lockWasCreated = false

func main() {
	// ensure exit handler is first
	defer exitwithstatus.Handler()
	defer fmt.Printf("\nprogram exit\n")
	defer logger.Finalise()

	options := &Options{}
	parser := flags.NewParser(options, flags.Default)
	if _, err := parser.Parse(); err != nil {
		exitwithstatus.Exit(1)
	}

	if options.Version {
		exitwithstatus.Message("Version: %s\n", Version())
	}

	logConfig := logger.Configuration{
		Directory: options.LogDirectory,
		File:      options.LogFile,
		Size:      options.LogSize,
		Count:     options.LogRotateCount,
		Levels:    options.Debug,
	}
	if err := logger.Initialise(logConfig); err != nil {
		exitwithstatus.Message("logger setup failed with error: %v\n", err)
	}

	log := logger.New("main")
	defer log.Info("shutting down…")
	log.Info("starting…")
	log.Debugf("options: %v", options)

	fault.Initialise()
	defer fault.Finalise()

	// grab lock file or fail
	lf, err := os.OpenFile(options.PidFile, os.O_WRONLY|os.O_EXCL|os.O_CREATE, os.ModeExclusive|0600)
	if err != nil {
		if os.IsExist(err) {
			exitwithstatus.Message("another instance is already running\n")
		}
		exitwithstatus.Message("pid file: %s creation failed with error: %v\n", options.PidFile, err)
	}
	fmt.Fprintf(lf, "%d\n", os.Getpid())
	lf.Close()
	lockWasCreated = true
	defer removeAppLock(options.PidFile)

	if err := mode.Initialise(options.Chain); err != nil {
		log.Criticalf("mode initialise error: %v", err)
		exitwithstatus.Exit(1)
	}
	defer mode.Finalise()

	if options.PublicKeyFile == "" {
		exitwithstatus.Message("a public key must be specified\n")
	}
	self, err := readPublicKeyFile(options.PublicKeyFile)
	if err != nil {
		log.Criticalf("read public key error = %v", err)
		exitwithstatus.Message("read public key error = %v\n", err)
	}
	if _, err := readPrivateKeyFile(options.PrivateKeyFile); err != nil {
		log.Criticalf("read private key error = %v", err)
		exitwithstatus.Message("read private key error = %v\n", err)
	}

	testnet := options.TestNetMode
	lookup := options.LookupNodeMode
	tun := config.Load(config.Overrides{
		TestNetMode:    &testnet,
		LookupNodeMode: &lookup,
	})

	log.Infof("chain: %s", mode.ChainName())
	log.Infof("test mode: %v", mode.IsTesting())
	log.Infof("data directory: %s", options.DataDirectory)

	if err := storage.Initialise(filepath.Join(options.DataDirectory, "dsnoded"), false); err != nil {
		log.Criticalf("storage initialise error: %v", err)
		exitwithstatus.Exit(1)
	}
	defer storage.Finalise()

	if err := dsstate.Initialise(); err != nil {
		log.Criticalf("dsstate initialise error: %v", err)
		exitwithstatus.Exit(1)
	}
	defer dsstate.Finalise()

	stopAudit := startAuditLog(options.LogDirectory, "dsnoded-events.log", 10, options.LogRotateCount)
	defer stopAudit()

	selfAddress, err := parseListenAddress(options.ListenAddress)
	if err != nil {
		log.Criticalf("listen address error: %v", err)
		exitwithstatus.Message("invalid listen address %q: %v\n", options.ListenAddress, err)
	}

	peers := newMemPeerStore()
	selfPair := external.Pair{PublicKey: self, Address: selfAddress}

	pow := powhash.Keccak256Verifier{}
	sv := schnorr.Secp256k1Verifier{}

	// ChainTip, Lookup and Whitelist are supplied by the surrounding
	// node process in a real deployment; standalone they are left nil
	// and every package that consumes them degrades gracefully.
	var tip external.ChainTip
	var lk external.Lookup
	var whitelist external.Whitelist

	if err := admission.Initialise(tun, pow, sv, tip, peers, whitelist); err != nil {
		log.Criticalf("admission initialise error: %v", err)
		exitwithstatus.Exit(1)
	}
	defer admission.Finalise()

	if err := bootstrap.Initialise(selfPair, peers, lk, tip, nil, tun); err != nil {
		log.Criticalf("bootstrap initialise error: %v", err)
		exitwithstatus.Exit(1)
	}
	defer bootstrap.Finalise()

	clearState := func() {
		admission.ClearDSPoWSolns()
	}
	if err := dssync.Initialise(lk, tip, tun, clearState); err != nil {
		log.Criticalf("sync initialise error: %v", err)
		exitwithstatus.Exit(1)
	}
	defer dssync.Finalise()

	// TagDsBlockConsensus, TagMicroblockSubmission, TagFinalBlockConsensus
	// and TagViewChangeConsensus all hand off to the BFT consensus
	// engine, which lives outside this repository; only SetPrimary and
	// PoW submission are wired to a concrete handler here.
	dispatcher := dispatch.New(!tun.LookupNodeMode, nil, [6]dispatch.Handler{
		dispatch.TagSetPrimary: func(payload []byte, from peer.Address) bool {
			return bootstrap.ProcessSetPrimary(payload) == nil
		},
		dispatch.TagPoWSubmission: func(payload []byte, from peer.Address) bool {
			// rand1/rand2 are the DS block's per-round PoW randomness,
			// produced by the consensus engine; a standalone node has
			// none to offer, so the hash check runs against all-zero
			// randomness.
			var rand1, rand2 blockhash.Hash
			return admission.ProcessPoWSubmission(payload, from.IP, rand1, rand2) == nil
		},
	})
	log.Infof("dispatcher ready, fullNode=%v; wire dispatcher.Execute into a transport listener's message callback", !tun.LookupNodeMode)
	_ = dispatcher

	if options.Rejoin {
		mode.Set(mode.BackupDS)
		if err := dssync.RejoinAsDS(); err != nil {
			log.Criticalf("rejoin as ds error: %v", err)
			exitwithstatus.Exit(1)
		}
	} else {
		if err := dssync.StartSynchronization(); err != nil {
			log.Criticalf("start synchronization error: %v", err)
			exitwithstatus.Exit(1)
		}
	}
	defer dssync.StopSynchronization()

	if !options.Quiet {
		fmt.Printf("\n\nWaiting for CTRL-C (SIGINT) or 'kill <pid>' (SIGTERM)…")
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	sig := <-ch
	log.Infof("received signal: %v", sig)
	if !options.Quiet {
		fmt.Printf("\nreceived signal: %v\n", sig)
		fmt.Printf("\nshutting down...\n")
	}
}

// remove the lock file - only if this instance created it
func removeAppLock(appLockFile string) {
	if lockWasCreated {
		os.Remove(appLockFile)
		lockWasCreated = false
	}
}

// Version - build identifier, overridden at link time with -ldflags
var version = "0.0.0"

// Version - returns the current build version
func Version() string {
	return version
}
