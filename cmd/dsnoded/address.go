// SPDX-License-Identifier: ISC

package main

import (
	"net"
	"strconv"

	"github.com/shardpow/dsnode/peer"
)

// parseListenAddress - "host:port" into the peer.Address this node
// advertises as its own in bootstrap's leader comparison and the peer
// store
func parseListenAddress(s string) (peer.Address, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return peer.Address{}, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return peer.Address{}, err
	}
	ip := net.ParseIP(host)
	if ip == nil {
		ip = net.IPv4zero
	}
	return peer.Address{IP: ip, Port: uint16(port)}, nil
}
