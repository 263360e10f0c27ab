// SPDX-License-Identifier: ISC

// Package wire - fixed-layout encode/decode for the messages exchanged
// between shard/DS nodes during PoW submission and DS bootstrap
package wire

import (
	"encoding/binary"

	"github.com/shardpow/dsnode/blockhash"
	"github.com/shardpow/dsnode/fault"
	"github.com/shardpow/dsnode/peer"
)

// PoWSubmissionSize - total byte length of an encoded PoWSubmission:
// 8 (block num) + 1 (difficulty) + 4 (port) + 33 (pubkey) + 8 (nonce) +
// 32 (result hash) + 32 (mixhash) + 64 (signature)
const PoWSubmissionSize = 8 + 1 + 4 + peer.PublicKeySize + 8 + blockhash.Length + blockhash.Length + peer.SignatureSize

// signedPrefixSize - everything that is covered by the signature, i.e.
// the submission minus its trailing signature bytes
const signedPrefixSize = PoWSubmissionSize - peer.SignatureSize

// PoWSubmission - a decoded PoW submission, as carried in a
// PROCESS_POWSUBMISSION instruction payload
type PoWSubmission struct {
	DSBlockNumber uint64
	Difficulty    uint8
	Port          uint16
	PublicKey     peer.PublicKey
	Nonce         uint64
	ResultHash    blockhash.Hash
	MixHash       blockhash.Hash
	Signature     peer.Signature
}

// Encode - serialise to the fixed wire layout
func (s PoWSubmission) Encode() []byte {
	buf := make([]byte, PoWSubmissionSize)
	o := 0

	binary.BigEndian.PutUint64(buf[o:], s.DSBlockNumber)
	o += 8

	buf[o] = s.Difficulty
	o++

	binary.BigEndian.PutUint32(buf[o:], uint32(s.Port))
	o += 4

	copy(buf[o:], s.PublicKey[:])
	o += peer.PublicKeySize

	binary.BigEndian.PutUint64(buf[o:], s.Nonce)
	o += 8

	copy(buf[o:], s.ResultHash[:])
	o += blockhash.Length

	copy(buf[o:], s.MixHash[:])
	o += blockhash.Length

	copy(buf[o:], s.Signature[:])

	return buf
}

// SignedPrefix - the bytes the sender's Schnorr signature was computed
// over, i.e. everything up to but excluding the signature itself
func (s PoWSubmission) SignedPrefix() []byte {
	return s.Encode()[:signedPrefixSize]
}

// DecodePoWSubmission - parse a PROCESS_POWSUBMISSION payload
func DecodePoWSubmission(message []byte) (PoWSubmission, error) {
	var s PoWSubmission

	if len(message) < PoWSubmissionSize {
		return s, fault.ErrMessageTooShort
	}

	o := 0
	s.DSBlockNumber = binary.BigEndian.Uint64(message[o:])
	o += 8

	s.Difficulty = message[o]
	o++

	s.Port = uint16(binary.BigEndian.Uint32(message[o:]))
	o += 4

	pk, err := peer.NewPublicKey(message[o : o+peer.PublicKeySize])
	if err != nil {
		return s, err
	}
	s.PublicKey = pk
	o += peer.PublicKeySize

	s.Nonce = binary.BigEndian.Uint64(message[o:])
	o += 8

	s.ResultHash = blockhash.FromBytes(message[o : o+blockhash.Length])
	o += blockhash.Length

	s.MixHash = blockhash.FromBytes(message[o : o+blockhash.Length])
	o += blockhash.Length

	sig, err := peer.NewSignature(
		message[o:o+peer.ChallengeSize],
		message[o+peer.ChallengeSize:o+peer.SignatureSize],
	)
	if err != nil {
		return s, err
	}
	s.Signature = sig

	return s, nil
}
