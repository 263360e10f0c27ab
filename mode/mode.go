// SPDX-License-Identifier: ISC

package mode

import (
	"sync"

	"github.com/bitmark-inc/logger"
	"github.com/shardpow/dsnode/chain"
	"github.com/shardpow/dsnode/fault"
)

// type to hold the mode
type Mode int

// all possible modes
const (
	Stopped Mode = iota
	Idle
	BackupDS
	PrimaryDS
	maximum
)

var globalData struct {
	sync.RWMutex
	log     *logger.L
	mode    Mode
	testing bool
	chain   string

	// set once during initialise
	initialised bool
}

// set up the mode system
func Initialise(chainName string) error {

	globalData.Lock()
	defer globalData.Unlock()

	if globalData.initialised {
		return fault.ErrAlreadyInitialised
	}

	globalData.log = logger.New("mode")
	globalData.log.Info("starting…")

	// a freshly started node holds no committee seat until SetPrimary/SetDS arrives
	globalData.chain = chainName
	globalData.testing = false
	globalData.mode = Idle

	// override for specific chain
	switch chainName {
	case chain.Mainnet:
		// no change
	case chain.Testnet, chain.Local:
		globalData.testing = true
	default:
		globalData.log.Criticalf("mode cannot handle chain: '%s'", chainName)
		return fault.ErrInvalidChain
	}

	globalData.initialised = true

	return nil
}

// shutdown mode handling
func Finalise() error {

	if !globalData.initialised {
		return fault.ErrNotInitialised
	}

	globalData.log.Info("shutting down…")
	globalData.log.Flush()

	Set(Stopped)

	globalData.initialised = false

	globalData.log.Info("finished")
	globalData.log.Flush()

	return nil
}

// change mode
func Set(mode Mode) {

	if mode >= Stopped && mode < maximum {
		globalData.Lock()
		globalData.mode = mode
		globalData.Unlock()

		globalData.log.Infof("set: %s", mode)
	} else {
		globalData.log.Errorf("ignore invalid set: %d", mode)
	}
}

// detect mode
func Is(mode Mode) bool {
	globalData.RLock()
	defer globalData.RUnlock()
	return mode == globalData.mode
}

// detect mode
func IsNot(mode Mode) bool {
	globalData.RLock()
	defer globalData.RUnlock()
	return mode != globalData.mode
}

// IsDS - true once the node holds a DS committee seat, primary or backup
func IsDS() bool {
	globalData.RLock()
	defer globalData.RUnlock()
	return globalData.mode == PrimaryDS || globalData.mode == BackupDS
}

// special for testing
func IsTesting() bool {
	globalData.RLock()
	defer globalData.RUnlock()
	return globalData.testing
}

// name of the current chain
func ChainName() string {
	globalData.RLock()
	defer globalData.RUnlock()
	return globalData.chain
}

// current mode represented as a string
func String() string {
	globalData.RLock()
	defer globalData.RUnlock()
	return globalData.mode.String()
}

// current mode represented as a string
func (m Mode) String() string {
	switch m {
	case Stopped:
		return "Stopped"
	case Idle:
		return "Idle"
	case BackupDS:
		return "BackupDS"
	case PrimaryDS:
		return "PrimaryDS"
	default:
		return "*Unknown*"
	}
}
