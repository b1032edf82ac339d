// Package evt defines the typed HCI events the virtual controller emits to
// its host. Framing the events into transport bytes is the host interface's
// concern.
package evt

import (
	"github.com/btvirt/btvirt"
	"github.com/btvirt/btvirt/hci"
)

// Event is implemented by every HCI event struct.
type Event interface {
	Name() string
}

type ConnectionRequest struct {
	Addr          btvirt.Address
	ClassOfDevice hci.ClassOfDevice
	LinkType      hci.LinkType
}

func (ConnectionRequest) Name() string { return "Connection Request" }

type ConnectionComplete struct {
	Status            hci.ErrorCode
	Handle            uint16
	Addr              btvirt.Address
	LinkType          hci.LinkType
	EncryptionEnabled hci.Enable
}

func (ConnectionComplete) Name() string { return "Connection Complete" }

type DisconnectionComplete struct {
	Status hci.ErrorCode
	Handle uint16
	Reason hci.ErrorCode
}

func (DisconnectionComplete) Name() string { return "Disconnection Complete" }

type AuthenticationComplete struct {
	Status hci.ErrorCode
	Handle uint16
}

func (AuthenticationComplete) Name() string { return "Authentication Complete" }

type EncryptionChange struct {
	Status  hci.ErrorCode
	Handle  uint16
	Enabled hci.EncryptionEnabled
}

func (EncryptionChange) Name() string { return "Encryption Change" }

type EncryptionKeyRefreshComplete struct {
	Status hci.ErrorCode
	Handle uint16
}

func (EncryptionKeyRefreshComplete) Name() string { return "Encryption Key Refresh Complete" }

type InquiryResult struct {
	Addr                   btvirt.Address
	PageScanRepetitionMode hci.PageScanRepetitionMode
	ClassOfDevice          hci.ClassOfDevice
	ClockOffset            uint16
}

func (InquiryResult) Name() string { return "Inquiry Result" }

type InquiryResultWithRssi struct {
	Addr                   btvirt.Address
	PageScanRepetitionMode hci.PageScanRepetitionMode
	ClassOfDevice          hci.ClassOfDevice
	ClockOffset            uint16
	Rssi                   uint8
}

func (InquiryResultWithRssi) Name() string { return "Inquiry Result With RSSI" }

type ExtendedInquiryResult struct {
	Addr                   btvirt.Address
	PageScanRepetitionMode hci.PageScanRepetitionMode
	ClassOfDevice          hci.ClassOfDevice
	ClockOffset            uint16
	Rssi                   uint8
	Data                   []byte
}

func (ExtendedInquiryResult) Name() string { return "Extended Inquiry Result" }

type InquiryComplete struct {
	Status hci.ErrorCode
}

func (InquiryComplete) Name() string { return "Inquiry Complete" }

type RemoteNameRequestComplete struct {
	Status     hci.ErrorCode
	Addr       btvirt.Address
	RemoteName string
}

func (RemoteNameRequestComplete) Name() string { return "Remote Name Request Complete" }

type ReadRemoteSupportedFeaturesComplete struct {
	Status   hci.ErrorCode
	Handle   uint16
	Features uint64
}

func (ReadRemoteSupportedFeaturesComplete) Name() string {
	return "Read Remote Supported Features Complete"
}

type ReadRemoteExtendedFeaturesComplete struct {
	Status        hci.ErrorCode
	Handle        uint16
	PageNumber    uint8
	MaxPageNumber uint8
	Features      uint64
}

func (ReadRemoteExtendedFeaturesComplete) Name() string {
	return "Read Remote Extended Features Complete"
}

type ReadRemoteVersionInformationComplete struct {
	Status           hci.ErrorCode
	Handle           uint16
	LmpVersion       uint8
	ManufacturerName uint16
	LmpSubversion    uint16
}

func (ReadRemoteVersionInformationComplete) Name() string {
	return "Read Remote Version Information Complete"
}

type RemoteHostSupportedFeaturesNotification struct {
	Addr     btvirt.Address
	Features uint64
}

func (RemoteHostSupportedFeaturesNotification) Name() string {
	return "Remote Host Supported Features Notification"
}

type ReadClockOffsetComplete struct {
	Status hci.ErrorCode
	Handle uint16
	Offset uint16
}

func (ReadClockOffsetComplete) Name() string { return "Read Clock Offset Complete" }

// CompletedPackets is one handle's entry of a Number Of Completed Packets
// event.
type CompletedPackets struct {
	Handle uint16
	Count  uint16
}

type NumberOfCompletedPackets struct {
	Packets []CompletedPackets
}

func (NumberOfCompletedPackets) Name() string { return "Number Of Completed Packets" }

type IoCapabilityRequest struct {
	Addr btvirt.Address
}

func (IoCapabilityRequest) Name() string { return "IO Capability Request" }

type IoCapabilityResponse struct {
	Addr                       btvirt.Address
	IoCapability               hci.IoCapability
	OobDataPresent             uint8
	AuthenticationRequirements uint8
}

func (IoCapabilityResponse) Name() string { return "IO Capability Response" }

type UserConfirmationRequest struct {
	Addr         btvirt.Address
	NumericValue uint32
}

func (UserConfirmationRequest) Name() string { return "User Confirmation Request" }

type UserPasskeyRequest struct {
	Addr btvirt.Address
}

func (UserPasskeyRequest) Name() string { return "User Passkey Request" }

type SimplePairingComplete struct {
	Status hci.ErrorCode
	Addr   btvirt.Address
}

func (SimplePairingComplete) Name() string { return "Simple Pairing Complete" }

type LinkKeyRequest struct {
	Addr btvirt.Address
}

func (LinkKeyRequest) Name() string { return "Link Key Request" }

type LinkKeyNotification struct {
	Addr    btvirt.Address
	Key     [16]byte
	KeyType hci.KeyType
}

func (LinkKeyNotification) Name() string { return "Link Key Notification" }

type ConnectionPacketTypeChanged struct {
	Status     hci.ErrorCode
	Handle     uint16
	PacketType uint16
}

func (ConnectionPacketTypeChanged) Name() string { return "Connection Packet Type Changed" }

// LE meta events.

type LeAdvertisingReport struct {
	EventType   uint8
	AddressType btvirt.AddressType
	Addr        btvirt.Address
	Data        []byte
	Rssi        uint8
}

func (LeAdvertisingReport) Name() string { return "LE Advertising Report" }

// LeExtendedAdvertisingReport carries the extended report fields the
// controller fills in; the event-type byte is opaque to the controller and
// mirrors the legacy PDU that produced the report.
type LeExtendedAdvertisingReport struct {
	EventType                   uint8
	AddressType                 btvirt.AddressType
	Addr                        btvirt.Address
	PrimaryPhy                  uint8
	SecondaryPhy                uint8
	AdvertisingSid              uint8
	TxPower                     uint8
	Rssi                        uint8
	PeriodicAdvertisingInterval uint16
	DirectAddressType           btvirt.AddressType
	DirectAddress               btvirt.Address
	Data                        []byte
}

func (LeExtendedAdvertisingReport) Name() string { return "LE Extended Advertising Report" }

type LeConnectionComplete struct {
	Status              hci.ErrorCode
	Handle              uint16
	Role                uint8
	PeerAddressType     btvirt.AddressType
	PeerAddress         btvirt.Address
	ConnInterval        uint16
	ConnLatency         uint16
	SupervisionTimeout  uint16
	MasterClockAccuracy uint8
}

func (LeConnectionComplete) Name() string { return "LE Connection Complete" }

type LeLongTermKeyRequest struct {
	Handle uint16
	Rand   [8]byte
	Ediv   uint16
}

func (LeLongTermKeyRequest) Name() string { return "LE Long Term Key Request" }

type LeConnectionUpdateComplete struct {
	Status             hci.ErrorCode
	Handle             uint16
	ConnInterval       uint16
	ConnLatency        uint16
	SupervisionTimeout uint16
}

func (LeConnectionUpdateComplete) Name() string { return "LE Connection Update Complete" }
