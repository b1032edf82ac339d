package controller

import (
	"testing"

	"github.com/btvirt/btvirt"
	"github.com/btvirt/btvirt/hci"
)

func TestKeyStorage(t *testing.T) {
	sm := NewSecurityManager()
	peer := btvirt.MustNewAddress("0a:0b:0c:0d:0e:0f")

	if sm.ReadKey(peer) != 0 {
		t.Fatal("key present before write")
	}

	key := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	sm.WriteKey(peer, key)
	if sm.ReadKey(peer) != 1 {
		t.Fatal("key missing after write")
	}
	if sm.GetKey(peer) != key {
		t.Fatal("key mismatch")
	}

	sm.DeleteKey(peer)
	if sm.ReadKey(peer) != 0 {
		t.Fatal("key present after delete")
	}
}

func TestDeriveKeyDeterministicAndNonZero(t *testing.T) {
	sm := NewSecurityManager()
	a := btvirt.MustNewAddress("01:02:03:04:05:06")
	b := btvirt.MustNewAddress("0a:0b:0c:0d:0e:0f")

	k1 := sm.DeriveKey(a, b)
	k2 := sm.DeriveKey(a, b)
	if k1 != k2 {
		t.Fatal("derivation is not deterministic")
	}
	if k1 == ([16]byte{}) {
		t.Fatal("derived key is zero")
	}
	if sm.DeriveKey(b, a) == k1 {
		t.Fatal("derivation ignores address order")
	}
}

func TestAuthenticationSlot(t *testing.T) {
	sm := NewSecurityManager()
	peer := btvirt.MustNewAddress("0a:0b:0c:0d:0e:0f")

	sm.AuthenticationRequest(peer, 0x0042)
	if sm.GetAuthenticationAddress() != peer {
		t.Fatal("authentication address not bound")
	}
	if sm.GetAuthenticationHandle() != 0x0042 {
		t.Fatal("authentication handle not bound")
	}
}

func TestSimplePairingType(t *testing.T) {
	peer := btvirt.MustNewAddress("0a:0b:0c:0d:0e:0f")

	tests := []struct {
		name   string
		local  hci.IoCapability
		remote hci.IoCapability
		want   PairingType
	}{
		{"no io local", hci.IoCapNoInputNoOutput, hci.IoCapDisplayYesNo, PairingAutoConfirmation},
		{"no io peer", hci.IoCapDisplayOnly, hci.IoCapNoInputNoOutput, PairingAutoConfirmation},
		{"both display only", hci.IoCapDisplayOnly, hci.IoCapDisplayOnly, PairingAutoConfirmation},
		{"both yes no", hci.IoCapDisplayYesNo, hci.IoCapDisplayYesNo, PairingConfirmYN},
		{"local keyboard", hci.IoCapKeyboardOnly, hci.IoCapDisplayOnly, PairingInputPin},
		{"peer keyboard", hci.IoCapDisplayOnly, hci.IoCapKeyboardOnly, PairingDisplayPin},
		{"both keyboard", hci.IoCapKeyboardOnly, hci.IoCapKeyboardOnly, PairingInputPin},
		{"display and confirm", hci.IoCapDisplayYesNo, hci.IoCapDisplayOnly, PairingDisplayAndConfirm},
	}

	for _, tt := range tests {
		sm := NewSecurityManager()
		sm.SetLocalIoCapability(peer, tt.local, 0, 0)
		sm.SetPeerIoCapability(peer, tt.remote, 0, 0)
		if got := sm.GetSimplePairingType(); got != tt.want {
			t.Fatalf("%s: pairing type %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSimplePairingTypeRequiresBothSides(t *testing.T) {
	sm := NewSecurityManager()
	peer := btvirt.MustNewAddress("0a:0b:0c:0d:0e:0f")

	if sm.GetSimplePairingType() != PairingInvalid {
		t.Fatal("pairing type derivable with no capabilities")
	}
	sm.SetPeerIoCapability(peer, hci.IoCapDisplayYesNo, 0, 0)
	if sm.GetSimplePairingType() != PairingInvalid {
		t.Fatal("pairing type derivable with peer side only")
	}
	sm.SetLocalIoCapability(peer, hci.IoCapDisplayYesNo, 0, 0)
	if sm.GetSimplePairingType() == PairingInvalid {
		t.Fatal("pairing type not derivable with both sides")
	}

	sm.InvalidateIoCapabilities()
	if sm.GetSimplePairingType() != PairingInvalid {
		t.Fatal("pairing type survived invalidation")
	}
}
