// SPDX-License-Identifier: ISC

package wire

import (
	"encoding/binary"

	"github.com/shardpow/dsnode/external"
	"github.com/shardpow/dsnode/fault"
	"github.com/shardpow/dsnode/peer"
)

// message-class and instruction bytes for the lookup-gossip channel;
// LOOKUP selects the class, SETDSINFOFROMSEED the instruction within it
const (
	LOOKUP            byte = 0x01
	SETDSINFOFROMSEED byte = 0x04
)

// dsInfoEntrySize - one committee member: a public key followed by its
// last-known address
const dsInfoEntrySize = peer.PublicKeySize + peer.AddressSize

// EncodeSetDSInfoFromSeed - the leader's full-committee gossip payload:
// [LOOKUP, SETDSINFOFROMSEED, u32 count, (PubKey‖Peer)×count]
func EncodeSetDSInfoFromSeed(committee []external.Pair) []byte {
	buf := make([]byte, 2+4+dsInfoEntrySize*len(committee))

	buf[0] = LOOKUP
	buf[1] = SETDSINFOFROMSEED
	binary.BigEndian.PutUint32(buf[2:], uint32(len(committee)))

	o := 6
	for _, pair := range committee {
		copy(buf[o:], pair.PublicKey[:])
		o += peer.PublicKeySize
		copy(buf[o:], pair.Address.Encode())
		o += peer.AddressSize
	}
	return buf
}

// DecodeSetDSInfoFromSeed - parse a lookup-gossip committee payload
func DecodeSetDSInfoFromSeed(message []byte) ([]external.Pair, error) {
	if len(message) < 6 || message[0] != LOOKUP || message[1] != SETDSINFOFROMSEED {
		return nil, fault.ErrMessageTooShort
	}

	count := binary.BigEndian.Uint32(message[2:])
	expected := 6 + int(count)*dsInfoEntrySize
	if len(message) != expected {
		return nil, fault.ErrMessageTooShort
	}

	committee := make([]external.Pair, 0, count)
	o := 6
	for i := uint32(0); i < count; i++ {
		pk, err := peer.NewPublicKey(message[o : o+peer.PublicKeySize])
		if err != nil {
			return nil, err
		}
		o += peer.PublicKeySize

		addr, err := peer.DecodeAddress(message[o : o+peer.AddressSize])
		if err != nil {
			return nil, err
		}
		o += peer.AddressSize

		committee = append(committee, external.Pair{PublicKey: pk, Address: addr})
	}
	return committee, nil
}
