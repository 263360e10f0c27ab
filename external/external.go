// SPDX-License-Identifier: ISC

// Package external - the narrow collaborator interfaces the DS core
// depends on but does not implement itself: chain-tip state, peer
// bookkeeping, DS whitelist policy and lookup-node messaging. Every
// concrete implementation (a live P2P host, a BFT consensus engine, a
// PoW hash ASIC backend) lives outside this repository; these
// interfaces are the entire surface this repo needs from them.
package external

import (
	"context"
	"net"

	"github.com/shardpow/dsnode/peer"
)

// ChainTip - read-only view of the local chain the admission pipeline
// and bootstrap flow check submissions and committee state against
type ChainTip interface {
	LastBlockNum() uint64
	LastDSDifficulty() uint8
	LastDifficulty() uint8
}

// Pair - a public key and the address it was last seen at, as returned
// by PeerStore.GetAllPeerPairs sorted by public key bytes
type Pair struct {
	PublicKey peer.PublicKey
	Address   peer.Address
}

// PeerStore - the node's view of reachable peers, updated as PoW
// submissions and bootstrap messages arrive
type PeerStore interface {
	AddPeerPair(peer.PublicKey, peer.Address)
	RemovePeer(peer.PublicKey)
	GetAllPeerPairs() []Pair
}

// Whitelist - the node's admission policy for who may submit PoW, and
// which addresses are eligible to be considered at all
type Whitelist interface {
	IsNodeInDSWhitelist(peer.Address, peer.PublicKey) bool
	IsValidIP(net.IP) bool
}

// Lookup - the node's gateway to the lookup-node gossip network
type Lookup interface {
	FetchOfflineLookups(ctx context.Context) error
	FetchDSInfo(ctx context.Context) error
	FetchLatestDSBlocks(ctx context.Context, from uint64) error
	FetchLatestTxBlocks(ctx context.Context, from uint64) error
	SendMessageToLookupNodes(msg []byte) error
}
