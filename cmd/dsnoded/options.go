// SPDX-License-Identifier: ISC

package main

// Options - the command-line and config-file flags for the DS node
// process, parsed by go-flags rather than the teacher's hand-rolled
// getoptions package.
type Options struct {
	ConfigFile string `short:"C" long:"configfile" description:"path to a configuration file"`
	Version    bool   `short:"v" long:"version" description:"display version information and exit"`
	Quiet      bool   `short:"q" long:"quiet" description:"suppress the startup/shutdown banner"`

	Chain          string `short:"c" long:"chain" description:"chain to run on: mainnet, testnet or local" default:"local"`
	TestNetMode    bool   `long:"testnet" description:"run with test-net tunables"`
	LookupNodeMode bool   `long:"lookup" description:"run as a lookup node rather than a full DS node"`
	Rejoin         bool   `long:"rejoin" description:"start as a backup DS node rejoining an in-progress epoch"`

	ListenAddress string `short:"l" long:"listen" description:"address to listen for DS messages on" default:"0.0.0.0:17935"`
	DataDirectory string `short:"d" long:"datadir" description:"directory to store block and metadata databases in" default:"./data"`

	PublicKeyFile  string `long:"public-key" description:"path to this node's hex-encoded public key" required:"true"`
	PrivateKeyFile string `long:"private-key" description:"path to this node's hex-encoded private key"`

	PidFile string `long:"pidfile" description:"path to the process lock file" default:"./dsnoded.pid"`

	LogDirectory   string `long:"log-directory" description:"directory to write the log file in" default:"."`
	LogFile        string `long:"log-file" description:"log file name" default:"dsnoded.log"`
	LogSize        int    `long:"log-size" description:"log file size in bytes before rotation" default:"1048576"`
	LogRotateCount int    `long:"log-rotate-count" description:"number of rotated log files to keep" default:"10"`
	Debug          map[string]string `long:"debug" description:"per-channel log level, e.g. --debug=admission:debug"`
}
