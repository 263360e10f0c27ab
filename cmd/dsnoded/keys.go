// SPDX-License-Identifier: ISC

package main

import (
	"encoding/hex"
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/shardpow/dsnode/peer"
)

// readPublicKeyFile - hex-decode a trimmed public key file into a
// peer.PublicKey
func readPublicKeyFile(name string) (peer.PublicKey, error) {
	raw, err := readHexFile(name)
	if err != nil {
		return peer.PublicKey{}, err
	}
	return peer.NewPublicKey(raw)
}

// readPrivateKeyFile - hex-decode a trimmed private key file into a
// btcec private key; an empty name yields a nil key and no error. main
// only checks that the file decodes and does not keep the key.
func readPrivateKeyFile(name string) (*btcec.PrivateKey, error) {
	if name == "" {
		return nil, nil
	}
	raw, err := readHexFile(name)
	if err != nil {
		return nil, err
	}
	priv, _ := btcec.PrivKeyFromBytes(raw)
	return priv, nil
}

func readHexFile(name string) ([]byte, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(strings.TrimSpace(string(data)))
}
