// SPDX-License-Identifier: ISC

// Package peer - the fixed-size wire types shared by every DS core
// component: public keys, Schnorr signatures and network addresses
package peer

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net"

	"github.com/shardpow/dsnode/fault"
)

// sizes taken from the reference cryptographic layout
const (
	PublicKeySize = 33
	ChallengeSize = 32
	ResponseSize  = 32
	SignatureSize = ChallengeSize + ResponseSize
)

// PublicKey - a compressed secp256k1 public key
type PublicKey [PublicKeySize]byte

// Signature - a Schnorr signature, stored as challenge||response
type Signature [SignatureSize]byte

// Address - an IPv4 or IPv6 address plus listen port, as carried on
// the wire by every PoW submission and gossip payload
type Address struct {
	IP   net.IP
	Port uint16
}

// NewPublicKey - build a PublicKey from a byte slice, rejecting any
// length other than PublicKeySize
func NewPublicKey(raw []byte) (PublicKey, error) {
	var pk PublicKey
	if len(raw) != PublicKeySize {
		return pk, fault.ErrInvalidPublicKey
	}
	copy(pk[:], raw)
	return pk, nil
}

// NewSignature - build a Signature from challenge||response halves
func NewSignature(challenge []byte, response []byte) (Signature, error) {
	var sig Signature
	if len(challenge) != ChallengeSize || len(response) != ResponseSize {
		return sig, fault.ErrInvalidSignature
	}
	copy(sig[:ChallengeSize], challenge)
	copy(sig[ChallengeSize:], response)
	return sig, nil
}

// Challenge - the first half of the signature
func (s Signature) Challenge() []byte { return s[:ChallengeSize] }

// Response - the second half of the signature
func (s Signature) Response() []byte { return s[ChallengeSize:] }

// String - hex representation for logging
func (pk PublicKey) String() string { return hex.EncodeToString(pk[:]) }

// String - hex representation for logging
func (s Signature) String() string { return hex.EncodeToString(s[:]) }

// String - "ip:port" for logging
func (a Address) String() string { return fmt.Sprintf("%s:%d", a.IP, a.Port) }

// AddressSize - the fixed wire encoding of an Address: a 16-byte
// IPv6 (or IPv4-mapped-IPv6) address followed by a 4-byte port
const AddressSize = 16 + 4

// Encode - fixed 20-byte wire form of an Address: 16-byte IP followed
// by the port as a big-endian u32, matching the u32 listen_port field
// used everywhere else on the wire
func (a Address) Encode() []byte {
	buf := make([]byte, AddressSize)
	ip16 := a.IP.To16()
	if ip16 != nil {
		copy(buf, ip16)
	}
	binary.BigEndian.PutUint32(buf[16:], uint32(a.Port))
	return buf
}

// DecodeAddress - parse a fixed 20-byte wire-encoded Address
func DecodeAddress(raw []byte) (Address, error) {
	var a Address
	if len(raw) != AddressSize {
		return a, fault.ErrInvalidPeer
	}
	a.IP = net.IP(append([]byte{}, raw[:16]...))
	a.Port = uint16(binary.BigEndian.Uint32(raw[16:]))
	return a, nil
}

// IsPublic - true when the address is not loopback, link-local or a
// private (RFC1918/RFC4193) range; used to enforce the external-IP
// requirement on PoW submissions
func (a Address) IsPublic() bool {
	ip := a.IP
	if ip == nil {
		return false
	}
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified() || ip.IsPrivate() {
		return false
	}
	return true
}
