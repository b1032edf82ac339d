// Package ll models the link-layer packets exchanged between virtual
// controllers over the radio fabric. A packet is a typed header plus a typed
// payload; byte layout is not modeled.
package ll

import (
	"fmt"

	"github.com/btvirt/btvirt"
)

// Phy selects the radio a packet travels on.
type Phy uint8

const (
	PhyBrEdr Phy = iota
	PhyLowEnergy
)

func (p Phy) String() string {
	switch p {
	case PhyBrEdr:
		return "BR_EDR"
	case PhyLowEnergy:
		return "LOW_ENERGY"
	default:
		return fmt.Sprintf("phy(%d)", uint8(p))
	}
}

// PacketType discriminates link-layer packets.
type PacketType uint8

const (
	PacketTypeUnknown PacketType = iota
	PacketTypeAcl
	PacketTypeDisconnect
	PacketTypeEncryptConnection
	PacketTypeEncryptConnectionResponse
	PacketTypeInquiry
	PacketTypeInquiryResponse
	PacketTypeIoCapabilityRequest
	PacketTypeIoCapabilityResponse
	PacketTypeIoCapabilityNegativeResponse
	PacketTypeLeAdvertisement
	PacketTypeLeConnect
	PacketTypeLeConnectComplete
	PacketTypeLeEncryptConnection
	PacketTypeLeEncryptConnectionResponse
	PacketTypeLeScan
	PacketTypeLeScanResponse
	PacketTypePage
	PacketTypePageResponse
	PacketTypePageReject
	PacketTypeRemoteNameRequest
	PacketTypeRemoteNameRequestResponse
	PacketTypeReadRemoteLmpFeatures
	PacketTypeReadRemoteLmpFeaturesResponse
	PacketTypeReadRemoteSupportedFeatures
	PacketTypeReadRemoteSupportedFeaturesResponse
	PacketTypeReadRemoteExtendedFeatures
	PacketTypeReadRemoteExtendedFeaturesResponse
	PacketTypeReadRemoteVersionInformation
	PacketTypeReadRemoteVersionInformationResponse
	PacketTypeReadClockOffset
	PacketTypeReadClockOffsetResponse
)

var packetTypeNames = map[PacketType]string{
	PacketTypeAcl:                                  "ACL",
	PacketTypeDisconnect:                           "DISCONNECT",
	PacketTypeEncryptConnection:                    "ENCRYPT_CONNECTION",
	PacketTypeEncryptConnectionResponse:            "ENCRYPT_CONNECTION_RESPONSE",
	PacketTypeInquiry:                              "INQUIRY",
	PacketTypeInquiryResponse:                      "INQUIRY_RESPONSE",
	PacketTypeIoCapabilityRequest:                  "IO_CAPABILITY_REQUEST",
	PacketTypeIoCapabilityResponse:                 "IO_CAPABILITY_RESPONSE",
	PacketTypeIoCapabilityNegativeResponse:         "IO_CAPABILITY_NEGATIVE_RESPONSE",
	PacketTypeLeAdvertisement:                      "LE_ADVERTISEMENT",
	PacketTypeLeConnect:                            "LE_CONNECT",
	PacketTypeLeConnectComplete:                    "LE_CONNECT_COMPLETE",
	PacketTypeLeEncryptConnection:                  "LE_ENCRYPT_CONNECTION",
	PacketTypeLeEncryptConnectionResponse:          "LE_ENCRYPT_CONNECTION_RESPONSE",
	PacketTypeLeScan:                               "LE_SCAN",
	PacketTypeLeScanResponse:                       "LE_SCAN_RESPONSE",
	PacketTypePage:                                 "PAGE",
	PacketTypePageResponse:                         "PAGE_RESPONSE",
	PacketTypePageReject:                           "PAGE_REJECT",
	PacketTypeRemoteNameRequest:                    "REMOTE_NAME_REQUEST",
	PacketTypeRemoteNameRequestResponse:            "REMOTE_NAME_REQUEST_RESPONSE",
	PacketTypeReadRemoteLmpFeatures:                "READ_REMOTE_LMP_FEATURES",
	PacketTypeReadRemoteLmpFeaturesResponse:        "READ_REMOTE_LMP_FEATURES_RESPONSE",
	PacketTypeReadRemoteSupportedFeatures:          "READ_REMOTE_SUPPORTED_FEATURES",
	PacketTypeReadRemoteSupportedFeaturesResponse:  "READ_REMOTE_SUPPORTED_FEATURES_RESPONSE",
	PacketTypeReadRemoteExtendedFeatures:           "READ_REMOTE_EXTENDED_FEATURES",
	PacketTypeReadRemoteExtendedFeaturesResponse:   "READ_REMOTE_EXTENDED_FEATURES_RESPONSE",
	PacketTypeReadRemoteVersionInformation:         "READ_REMOTE_VERSION_INFORMATION",
	PacketTypeReadRemoteVersionInformationResponse: "READ_REMOTE_VERSION_INFORMATION_RESPONSE",
	PacketTypeReadClockOffset:                      "READ_CLOCK_OFFSET",
	PacketTypeReadClockOffsetResponse:              "READ_CLOCK_OFFSET_RESPONSE",
}

func (t PacketType) String() string {
	if s, ok := packetTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
}

// Payload is implemented by every packet payload.
type Payload interface {
	packetType() PacketType
}

// Packet is one link-layer packet. A zero Destination addresses the
// broadcast medium.
type Packet struct {
	Source      btvirt.Address
	Destination btvirt.Address
	Payload     Payload
}

// Type returns the discriminator of the packet's payload.
func (p *Packet) Type() PacketType {
	if p.Payload == nil {
		return PacketTypeUnknown
	}
	return p.Payload.packetType()
}

// Valid reports whether the packet carries a payload.
func (p *Packet) Valid() bool {
	return p != nil && p.Payload != nil
}

func newPacket(source, destination btvirt.Address, payload Payload) *Packet {
	return &Packet{Source: source, Destination: destination, Payload: payload}
}
