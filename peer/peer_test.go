// SPDX-License-Identifier: ISC

package peer_test

import (
	"net"
	"testing"

	"github.com/shardpow/dsnode/peer"
)

func TestNewPublicKeyLength(t *testing.T) {
	if _, err := peer.NewPublicKey(make([]byte, 32)); err == nil {
		t.Error("expected error for 32-byte key")
	}
	if _, err := peer.NewPublicKey(make([]byte, 33)); err != nil {
		t.Errorf("unexpected error for 33-byte key: %v", err)
	}
}

func TestSignatureHalves(t *testing.T) {
	challenge := make([]byte, 32)
	response := make([]byte, 32)
	challenge[0] = 0xaa
	response[0] = 0xbb

	sig, err := peer.NewSignature(challenge, response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig.Challenge()[0] != 0xaa || sig.Response()[0] != 0xbb {
		t.Error("challenge/response halves not preserved")
	}
}

func TestAddressEncodeDecodeRoundTrip(t *testing.T) {
	a := peer.Address{IP: net.ParseIP("203.0.113.7"), Port: 30303}

	encoded := a.Encode()
	if len(encoded) != peer.AddressSize {
		t.Fatalf("expected %d-byte encoding, got %d", peer.AddressSize, len(encoded))
	}

	decoded, err := peer.DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("DecodeAddress failed: %v", err)
	}
	if decoded.Port != a.Port {
		t.Errorf("expected port %d, got %d", a.Port, decoded.Port)
	}
	if !decoded.IP.Equal(a.IP) {
		t.Errorf("expected ip %s, got %s", a.IP, decoded.IP)
	}
}

func TestDecodeAddressWrongLength(t *testing.T) {
	if _, err := peer.DecodeAddress(make([]byte, 10)); err == nil {
		t.Error("expected error for short address")
	}
}

func TestAddressIsPublic(t *testing.T) {
	cases := []struct {
		ip     string
		public bool
	}{
		{"8.8.8.8", true},
		{"127.0.0.1", false},
		{"192.168.1.1", false},
		{"10.0.0.1", false},
		{"169.254.1.1", false},
	}
	for _, c := range cases {
		a := peer.Address{IP: net.ParseIP(c.ip), Port: 4201}
		if a.IsPublic() != c.public {
			t.Errorf("%s: expected IsPublic=%v, got %v", c.ip, c.public, a.IsPublic())
		}
	}
}
