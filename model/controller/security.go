package controller

import (
	"crypto/aes"
	"crypto/elliptic"
	"crypto/rand"

	"github.com/aead/cmac"
	"github.com/wsddn/go-ecdh"

	"github.com/btvirt/btvirt"
	"github.com/btvirt/btvirt/hci"
	"github.com/btvirt/btvirt/sliceops"
)

// PairingType is the simple-pairing interaction derived from the local and
// peer IO capabilities.
type PairingType int

const (
	PairingInvalid PairingType = iota
	PairingAutoConfirmation
	PairingConfirmYN
	PairingDisplayPin
	PairingDisplayAndConfirm
	PairingInputPin
)

// KeyStore persists link keys across controller lifetimes. The in-memory map
// is authoritative; a store only seeds and mirrors it.
type KeyStore interface {
	Store(addr btvirt.Address, key [16]byte) error
	Lookup(addr btvirt.Address) ([16]byte, bool, error)
	Delete(addr btvirt.Address) error
}

type ioCapabilities struct {
	valid                      bool
	capability                 hci.IoCapability
	oobDataPresent             uint8
	authenticationRequirements uint8
}

// SecurityManager owns link keys, the IO-capability exchange state, and the
// single-slot authentication binding.
type SecurityManager struct {
	keys  map[btvirt.Address][16]byte
	store KeyStore

	localCaps ioCapabilities
	peerCaps  ioCapabilities

	authenticating bool
	authAddress    btvirt.Address
	authHandle     uint16

	// keySeed feeds the deterministic link-key derivation; it is the first
	// 16 bytes of the X coordinate of a P-256 public key generated at
	// construction, byte-reversed.
	keySeed []byte
}

func NewSecurityManager() *SecurityManager {
	return &SecurityManager{
		keys:    make(map[btvirt.Address][16]byte),
		keySeed: generateKeySeed(),
	}
}

// SetKeyStore attaches persistent key storage.
func (s *SecurityManager) SetKeyStore(store KeyStore) {
	s.store = store
}

func generateKeySeed() []byte {
	e := ecdh.NewEllipticECDH(elliptic.P256())
	_, public, err := e.GenerateKey(rand.Reader)
	if err != nil {
		// No entropy; fall back to a fixed seed rather than fail the
		// controller. Keys remain non-zero.
		return []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	}
	seed := e.Marshal(public)
	seed = seed[1:] // strip the point format header
	return sliceops.SwapBuf(seed[:16])
}

// DeriveKey produces the placeholder link key for a pairing between local
// and peer: AES-CMAC over the two addresses keyed by the controller seed.
func (s *SecurityManager) DeriveKey(local, peer btvirt.Address) [16]byte {
	msg := append(local.Bytes(), peer.Bytes()...)
	out, err := aesCMAC(s.keySeed, msg)

	var key [16]byte
	if err != nil || len(out) != 16 {
		copy(key[:], []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16})
		return key
	}
	copy(key[:], out)
	return key
}

func aesCMAC(key, msg []byte) ([]byte, error) {
	mCipher, err := aes.NewCipher(sliceops.SwapBuf(key))
	if err != nil {
		return nil, err
	}

	mMac, err := cmac.New(mCipher)
	if err != nil {
		return nil, err
	}

	mMac.Write(sliceops.SwapBuf(msg))

	return sliceops.SwapBuf(mMac.Sum(nil)), nil
}

// WriteKey stores a link key for peer.
func (s *SecurityManager) WriteKey(peer btvirt.Address, key [16]byte) {
	s.keys[peer] = key
	if s.store != nil {
		if err := s.store.Store(peer, key); err != nil {
			log.Warn("security: key store write failed: ", err)
		}
	}
}

// ReadKey returns the number of keys held for peer (0 or 1).
func (s *SecurityManager) ReadKey(peer btvirt.Address) uint16 {
	if _, ok := s.keys[peer]; ok {
		return 1
	}
	if s.store != nil {
		if key, ok, err := s.store.Lookup(peer); err == nil && ok {
			s.keys[peer] = key
			return 1
		}
	}
	return 0
}

// GetKey returns peer's link key; ReadKey must have reported one.
func (s *SecurityManager) GetKey(peer btvirt.Address) [16]byte {
	return s.keys[peer]
}

// DeleteKey forgets peer's link key.
func (s *SecurityManager) DeleteKey(peer btvirt.Address) {
	delete(s.keys, peer)
	if s.store != nil {
		if err := s.store.Delete(peer); err != nil {
			log.Warn("security: key store delete failed: ", err)
		}
	}
}

// AuthenticationRequest binds the single authentication slot to peer.
func (s *SecurityManager) AuthenticationRequest(peer btvirt.Address, handle uint16) {
	s.authenticating = true
	s.authAddress = peer
	s.authHandle = handle
}

// AuthenticationRequestFinished clears the pairing-derived state once
// stage 2 is queued.
func (s *SecurityManager) AuthenticationRequestFinished() {
	s.InvalidateIoCapabilities()
}

func (s *SecurityManager) GetAuthenticationAddress() btvirt.Address {
	return s.authAddress
}

func (s *SecurityManager) GetAuthenticationHandle() uint16 {
	return s.authHandle
}

// SetLocalIoCapability records the host's capabilities for the pairing in
// progress.
func (s *SecurityManager) SetLocalIoCapability(peer btvirt.Address, capability hci.IoCapability, oobDataPresent, authenticationRequirements uint8) {
	s.localCaps = ioCapabilities{
		valid:                      true,
		capability:                 capability,
		oobDataPresent:             oobDataPresent,
		authenticationRequirements: authenticationRequirements,
	}
	_ = peer
}

// SetPeerIoCapability records the remote device's capabilities.
func (s *SecurityManager) SetPeerIoCapability(peer btvirt.Address, capability hci.IoCapability, oobDataPresent, authenticationRequirements uint8) {
	s.peerCaps = ioCapabilities{
		valid:                      true,
		capability:                 capability,
		oobDataPresent:             oobDataPresent,
		authenticationRequirements: authenticationRequirements,
	}
	_ = peer
}

// InvalidateIoCapabilities drops both sides of the exchange.
func (s *SecurityManager) InvalidateIoCapabilities() {
	s.localCaps = ioCapabilities{}
	s.peerCaps = ioCapabilities{}
}

// GetSimplePairingType derives the user interaction from the IO-capability
// association table [Vol 3, Part C, 5.2.2.6]. It returns PairingInvalid
// until both sides are known.
func (s *SecurityManager) GetSimplePairingType() PairingType {
	if !s.localCaps.valid || !s.peerCaps.valid {
		return PairingInvalid
	}

	local := s.localCaps.capability
	peer := s.peerCaps.capability

	switch {
	case local == hci.IoCapNoInputNoOutput || peer == hci.IoCapNoInputNoOutput:
		return PairingAutoConfirmation
	case local == hci.IoCapKeyboardOnly:
		return PairingInputPin
	case peer == hci.IoCapKeyboardOnly:
		return PairingDisplayPin
	case local == hci.IoCapDisplayOnly && peer == hci.IoCapDisplayOnly:
		return PairingAutoConfirmation
	case local == hci.IoCapDisplayYesNo && peer == hci.IoCapDisplayYesNo:
		return PairingConfirmYN
	default:
		// One side displays, the other displays and confirms.
		return PairingDisplayAndConfirm
	}
}
