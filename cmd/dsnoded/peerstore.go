// SPDX-License-Identifier: ISC

package main

import (
	"bytes"
	"sort"
	"sync"

	"github.com/shardpow/dsnode/external"
	"github.com/shardpow/dsnode/peer"
)

// memPeerStore - a minimal in-memory external.PeerStore, good enough to
// run a single node standalone. A networked deployment replaces this
// with a store backed by the real P2P layer; bootstrap and admission
// only ever see it through the external.PeerStore interface.
type memPeerStore struct {
	mu    sync.Mutex
	pairs map[peer.PublicKey]peer.Address
}

func newMemPeerStore() *memPeerStore {
	return &memPeerStore{pairs: make(map[peer.PublicKey]peer.Address)}
}

func (s *memPeerStore) AddPeerPair(pk peer.PublicKey, addr peer.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs[pk] = addr
}

func (s *memPeerStore) RemovePeer(pk peer.PublicKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pairs, pk)
}

func (s *memPeerStore) GetAllPeerPairs() []external.Pair {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]external.Pair, 0, len(s.pairs))
	for pk, addr := range s.pairs {
		out = append(out, external.Pair{PublicKey: pk, Address: addr})
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].PublicKey[:], out[j].PublicKey[:]) < 0
	})
	return out
}
