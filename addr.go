package btvirt

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLength is the length of a BD_ADDR in bytes.
const AddressLength = 6

// Address is a 48-bit device address, stored most significant byte first.
type Address [AddressLength]byte

// AddressEmpty doubles as the broadcast destination on the link layer.
var AddressEmpty = Address{}

// NewAddress creates an Address from a string like "01:02:03:04:05:06".
func NewAddress(s string) (Address, error) {
	hexStr := strings.Replace(strings.ToLower(s), ":", "", -1)

	out, err := hex.DecodeString(hexStr)
	if err != nil {
		return AddressEmpty, fmt.Errorf("invalid address %q: %s", s, err)
	}
	if len(out) != AddressLength {
		return AddressEmpty, fmt.Errorf("invalid address %q: need %d bytes, got %d", s, AddressLength, len(out))
	}

	var a Address
	copy(a[:], out)
	return a, nil
}

// MustNewAddress is NewAddress for fixed inputs; it panics on a bad string.
func MustNewAddress(s string) Address {
	a, err := NewAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string {
	parts := make([]string, AddressLength)
	for i, b := range a {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, ":")
}

// Bytes returns a copy of the address bytes.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a[:])
	return out
}

// IsEmpty reports whether the address is the empty/broadcast value.
func (a Address) IsEmpty() bool {
	return a == AddressEmpty
}

// AddressType tags an Address per the LE addressing model.
type AddressType uint8

const (
	PublicDeviceAddress   AddressType = 0x00
	RandomDeviceAddress   AddressType = 0x01
	PublicIdentityAddress AddressType = 0x02
	RandomIdentityAddress AddressType = 0x03
)

func (t AddressType) String() string {
	switch t {
	case PublicDeviceAddress:
		return "public"
	case RandomDeviceAddress:
		return "random"
	case PublicIdentityAddress:
		return "public-identity"
	case RandomIdentityAddress:
		return "random-identity"
	default:
		return fmt.Sprintf("address-type(%d)", uint8(t))
	}
}

// AddressWithType pairs an address with its type.
type AddressWithType struct {
	Address Address
	Type    AddressType
}

func (a AddressWithType) String() string {
	return fmt.Sprintf("%s (%s)", a.Address, a.Type)
}
