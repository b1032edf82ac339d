// Package device holds the properties of one virtual device: the identity
// and capability snapshot the link-layer controller reads when answering
// peers and the host.
package device

import (
	"github.com/btvirt/btvirt"
	"github.com/btvirt/btvirt/hci"
	"github.com/btvirt/btvirt/ll"
)

const (
	defaultAclDataPacketSize  = 1024
	defaultNumAdvertisingSets = 3
	defaultConnectListSize    = 15
	defaultResolvingListSize  = 15

	// Bluetooth Core 5.0 over LMP 5.0.
	defaultLmpVersion    = 0x09
	defaultLmpSubversion = 0x0000
	// "Test" manufacturer id reserved for internal use.
	defaultManufacturerName = 0xFFFF
)

// Properties is the owned configuration of one virtual device.
type Properties struct {
	Address   btvirt.Address
	LeAddress btvirt.Address
	Name      string

	AuthenticationEnable uint8
	SimplePairingMode    bool

	ClassOfDevice          hci.ClassOfDevice
	PageScanRepetitionMode hci.PageScanRepetitionMode
	ClockOffset            uint16
	ExtendedInquiryData    []byte

	SupportedFeatures uint64
	// ExtendedFeatures pages; page 1 doubles as the LMP host features.
	ExtendedFeatures []uint64

	LmpVersion       uint8
	LmpSubversion    uint16
	ManufacturerName uint16

	AclDataPacketSize uint16

	LeAdvertisingIntervalMin     uint16
	LeAdvertisingIntervalMax     uint16
	LeAdvertisingOwnAddressType  btvirt.AddressType
	LeAdvertisingPeerAddress     btvirt.Address
	LeAdvertisingPeerAddressType btvirt.AddressType
	LeAdvertisingFilterPolicy    hci.LeScanningFilterPolicy
	LeAdvertisementType          ll.AdvertisementType
	LeAdvertisement              []byte
	LeScanResponse               []byte

	LeConnectListSize   uint8
	LeResolvingListSize uint8

	NumAdvertisingSets uint8
}

// An Option configures device properties at construction.
type Option func(*Properties)

func WithName(name string) Option {
	return func(p *Properties) { p.Name = name }
}

func WithLeAddress(addr btvirt.Address) Option {
	return func(p *Properties) { p.LeAddress = addr }
}

func WithClassOfDevice(cod hci.ClassOfDevice) Option {
	return func(p *Properties) { p.ClassOfDevice = cod }
}

func WithAclDataPacketSize(size uint16) Option {
	return func(p *Properties) { p.AclDataPacketSize = size }
}

func WithAuthenticationEnable(enable uint8) Option {
	return func(p *Properties) { p.AuthenticationEnable = enable }
}

func WithLeAdvertisement(data []byte) Option {
	return func(p *Properties) { p.LeAdvertisement = data }
}

func WithLeScanResponse(data []byte) Option {
	return func(p *Properties) { p.LeScanResponse = data }
}

// New returns device properties with the controller defaults.
func New(addr btvirt.Address, opts ...Option) *Properties {
	p := &Properties{
		Address:           addr,
		Name:              "btvirt",
		SimplePairingMode: true,

		ClassOfDevice:          0x30201,
		PageScanRepetitionMode: hci.PageScanR0,
		ClockOffset:            0x3626,

		SupportedFeatures: 0x8779ff9bfe8ffeff,
		ExtendedFeatures:  []uint64{0x8779ff9bfe8ffeff, 0x0000000000000007},

		LmpVersion:       defaultLmpVersion,
		LmpSubversion:    defaultLmpSubversion,
		ManufacturerName: defaultManufacturerName,

		AclDataPacketSize: defaultAclDataPacketSize,

		LeAdvertisingIntervalMin: 0x0800,
		LeAdvertisingIntervalMax: 0x0800,
		LeAdvertisementType:      ll.AdvInd,

		LeConnectListSize:   defaultConnectListSize,
		LeResolvingListSize: defaultResolvingListSize,

		NumAdvertisingSets: defaultNumAdvertisingSets,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ExtendedFeaturesMaximumPageNumber is the highest valid features page.
func (p *Properties) ExtendedFeaturesMaximumPageNumber() uint8 {
	if len(p.ExtendedFeatures) == 0 {
		return 0
	}
	return uint8(len(p.ExtendedFeatures) - 1)
}

// ExtendedFeaturesPage returns the requested page, or zero when the page is
// out of range.
func (p *Properties) ExtendedFeaturesPage(page uint8) uint64 {
	if int(page) >= len(p.ExtendedFeatures) {
		return 0
	}
	return p.ExtendedFeatures[page]
}
