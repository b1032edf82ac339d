package ll

import (
	"github.com/btvirt/btvirt"
	"github.com/btvirt/btvirt/hci"
)

// InquiryType selects the inquiry-response variant.
type InquiryType uint8

const (
	InquiryTypeStandard InquiryType = 0x00
	InquiryTypeRssi     InquiryType = 0x01
	InquiryTypeExtended InquiryType = 0x02
)

// AdvertisementType of an LE advertising PDU.
type AdvertisementType uint8

const (
	AdvInd        AdvertisementType = 0x00
	AdvDirectInd  AdvertisementType = 0x01
	AdvScanInd    AdvertisementType = 0x02
	AdvNonconnInd AdvertisementType = 0x03
	ScanResponse  AdvertisementType = 0x04
)

// Acl carries an HCI ACL data unit across the link.
type Acl struct {
	Handle             uint16
	PacketBoundaryFlag hci.PacketBoundaryFlag
	BroadcastFlag      hci.BroadcastFlag
	Data               []byte
}

func (*Acl) packetType() PacketType { return PacketTypeAcl }

func NewAcl(source, destination btvirt.Address, handle uint16, pbf hci.PacketBoundaryFlag, bf hci.BroadcastFlag, data []byte) *Packet {
	return newPacket(source, destination, &Acl{Handle: handle, PacketBoundaryFlag: pbf, BroadcastFlag: bf, Data: data})
}

type Disconnect struct {
	Reason uint8
}

func (*Disconnect) packetType() PacketType { return PacketTypeDisconnect }

func NewDisconnect(source, destination btvirt.Address, reason uint8) *Packet {
	return newPacket(source, destination, &Disconnect{Reason: reason})
}

type EncryptConnection struct {
	Key [16]byte
}

func (*EncryptConnection) packetType() PacketType { return PacketTypeEncryptConnection }

func NewEncryptConnection(source, destination btvirt.Address, key [16]byte) *Packet {
	return newPacket(source, destination, &EncryptConnection{Key: key})
}

type EncryptConnectionResponse struct {
	Key [16]byte
}

func (*EncryptConnectionResponse) packetType() PacketType {
	return PacketTypeEncryptConnectionResponse
}

func NewEncryptConnectionResponse(source, destination btvirt.Address, key [16]byte) *Packet {
	return newPacket(source, destination, &EncryptConnectionResponse{Key: key})
}

type Inquiry struct {
	InquiryType InquiryType
}

func (*Inquiry) packetType() PacketType { return PacketTypeInquiry }

func NewInquiry(source, destination btvirt.Address, typ InquiryType) *Packet {
	return newPacket(source, destination, &Inquiry{InquiryType: typ})
}

type InquiryResponse struct {
	InquiryType            InquiryType
	PageScanRepetitionMode hci.PageScanRepetitionMode
	ClassOfDevice          hci.ClassOfDevice
	ClockOffset            uint16

	// Set for the RSSI and extended variants.
	Rssi uint8

	// Set for the extended variant.
	ExtendedData []byte
}

func (*InquiryResponse) packetType() PacketType { return PacketTypeInquiryResponse }

func NewInquiryResponse(source, destination btvirt.Address, psrm hci.PageScanRepetitionMode, cod hci.ClassOfDevice, clockOffset uint16) *Packet {
	return newPacket(source, destination, &InquiryResponse{
		InquiryType:            InquiryTypeStandard,
		PageScanRepetitionMode: psrm,
		ClassOfDevice:          cod,
		ClockOffset:            clockOffset,
	})
}

func NewInquiryResponseWithRssi(source, destination btvirt.Address, psrm hci.PageScanRepetitionMode, cod hci.ClassOfDevice, clockOffset uint16, rssi uint8) *Packet {
	return newPacket(source, destination, &InquiryResponse{
		InquiryType:            InquiryTypeRssi,
		PageScanRepetitionMode: psrm,
		ClassOfDevice:          cod,
		ClockOffset:            clockOffset,
		Rssi:                   rssi,
	})
}

func NewExtendedInquiryResponse(source, destination btvirt.Address, psrm hci.PageScanRepetitionMode, cod hci.ClassOfDevice, clockOffset uint16, rssi uint8, data []byte) *Packet {
	return newPacket(source, destination, &InquiryResponse{
		InquiryType:            InquiryTypeExtended,
		PageScanRepetitionMode: psrm,
		ClassOfDevice:          cod,
		ClockOffset:            clockOffset,
		Rssi:                   rssi,
		ExtendedData:           data,
	})
}

type IoCapabilityRequest struct {
	IoCapability               hci.IoCapability
	OobDataPresent             uint8
	AuthenticationRequirements uint8
}

func (*IoCapabilityRequest) packetType() PacketType { return PacketTypeIoCapabilityRequest }

func NewIoCapabilityRequest(source, destination btvirt.Address, ioCap hci.IoCapability, oob, authReq uint8) *Packet {
	return newPacket(source, destination, &IoCapabilityRequest{IoCapability: ioCap, OobDataPresent: oob, AuthenticationRequirements: authReq})
}

type IoCapabilityResponse struct {
	IoCapability               hci.IoCapability
	OobDataPresent             uint8
	AuthenticationRequirements uint8
}

func (*IoCapabilityResponse) packetType() PacketType { return PacketTypeIoCapabilityResponse }

func NewIoCapabilityResponse(source, destination btvirt.Address, ioCap hci.IoCapability, oob, authReq uint8) *Packet {
	return newPacket(source, destination, &IoCapabilityResponse{IoCapability: ioCap, OobDataPresent: oob, AuthenticationRequirements: authReq})
}

type IoCapabilityNegativeResponse struct {
	Reason uint8
}

func (*IoCapabilityNegativeResponse) packetType() PacketType {
	return PacketTypeIoCapabilityNegativeResponse
}

func NewIoCapabilityNegativeResponse(source, destination btvirt.Address, reason uint8) *Packet {
	return newPacket(source, destination, &IoCapabilityNegativeResponse{Reason: reason})
}

type LeAdvertisement struct {
	AddressType       btvirt.AddressType
	AdvertisementType AdvertisementType
	Data              []byte
}

func (*LeAdvertisement) packetType() PacketType { return PacketTypeLeAdvertisement }

func NewLeAdvertisement(source, destination btvirt.Address, addrType btvirt.AddressType, advType AdvertisementType, data []byte) *Packet {
	return newPacket(source, destination, &LeAdvertisement{AddressType: addrType, AdvertisementType: advType, Data: data})
}

type LeConnect struct {
	IntervalMin uint16
	IntervalMax uint16
	Latency     uint16
	Timeout     uint16
	AddressType btvirt.AddressType
}

func (*LeConnect) packetType() PacketType { return PacketTypeLeConnect }

func NewLeConnect(source, destination btvirt.Address, intervalMin, intervalMax, latency, timeout uint16, addrType btvirt.AddressType) *Packet {
	return newPacket(source, destination, &LeConnect{
		IntervalMin: intervalMin,
		IntervalMax: intervalMax,
		Latency:     latency,
		Timeout:     timeout,
		AddressType: addrType,
	})
}

type LeConnectComplete struct {
	Interval    uint16
	Latency     uint16
	Timeout     uint16
	AddressType btvirt.AddressType
}

func (*LeConnectComplete) packetType() PacketType { return PacketTypeLeConnectComplete }

func NewLeConnectComplete(source, destination btvirt.Address, interval, latency, timeout uint16, addrType btvirt.AddressType) *Packet {
	return newPacket(source, destination, &LeConnectComplete{
		Interval:    interval,
		Latency:     latency,
		Timeout:     timeout,
		AddressType: addrType,
	})
}

type LeEncryptConnection struct {
	Rand [8]byte
	Ediv uint16
	Ltk  [16]byte
}

func (*LeEncryptConnection) packetType() PacketType { return PacketTypeLeEncryptConnection }

func NewLeEncryptConnection(source, destination btvirt.Address, rand [8]byte, ediv uint16, ltk [16]byte) *Packet {
	return newPacket(source, destination, &LeEncryptConnection{Rand: rand, Ediv: ediv, Ltk: ltk})
}

type LeEncryptConnectionResponse struct {
	Rand [8]byte
	Ediv uint16
	Ltk  [16]byte
}

func (*LeEncryptConnectionResponse) packetType() PacketType {
	return PacketTypeLeEncryptConnectionResponse
}

func NewLeEncryptConnectionResponse(source, destination btvirt.Address, rand [8]byte, ediv uint16, ltk [16]byte) *Packet {
	return newPacket(source, destination, &LeEncryptConnectionResponse{Rand: rand, Ediv: ediv, Ltk: ltk})
}

type LeScan struct{}

func (*LeScan) packetType() PacketType { return PacketTypeLeScan }

func NewLeScan(source, destination btvirt.Address) *Packet {
	return newPacket(source, destination, &LeScan{})
}

type LeScanResponse struct {
	AddressType       btvirt.AddressType
	AdvertisementType AdvertisementType
	Data              []byte
}

func (*LeScanResponse) packetType() PacketType { return PacketTypeLeScanResponse }

func NewLeScanResponse(source, destination btvirt.Address, addrType btvirt.AddressType, advType AdvertisementType, data []byte) *Packet {
	return newPacket(source, destination, &LeScanResponse{AddressType: addrType, AdvertisementType: advType, Data: data})
}

type Page struct {
	ClassOfDevice   hci.ClassOfDevice
	AllowRoleSwitch uint8
}

func (*Page) packetType() PacketType { return PacketTypePage }

func NewPage(source, destination btvirt.Address, cod hci.ClassOfDevice, allowRoleSwitch uint8) *Packet {
	return newPacket(source, destination, &Page{ClassOfDevice: cod, AllowRoleSwitch: allowRoleSwitch})
}

type PageResponse struct {
	TryRoleSwitch uint8
}

func (*PageResponse) packetType() PacketType { return PacketTypePageResponse }

func NewPageResponse(source, destination btvirt.Address, tryRoleSwitch uint8) *Packet {
	return newPacket(source, destination, &PageResponse{TryRoleSwitch: tryRoleSwitch})
}

type PageReject struct {
	Reason uint8
}

func (*PageReject) packetType() PacketType { return PacketTypePageReject }

func NewPageReject(source, destination btvirt.Address, reason uint8) *Packet {
	return newPacket(source, destination, &PageReject{Reason: reason})
}

type RemoteNameRequest struct{}

func (*RemoteNameRequest) packetType() PacketType { return PacketTypeRemoteNameRequest }

func NewRemoteNameRequest(source, destination btvirt.Address) *Packet {
	return newPacket(source, destination, &RemoteNameRequest{})
}

type RemoteNameRequestResponse struct {
	RemoteName string
}

func (*RemoteNameRequestResponse) packetType() PacketType {
	return PacketTypeRemoteNameRequestResponse
}

func NewRemoteNameRequestResponse(source, destination btvirt.Address, name string) *Packet {
	return newPacket(source, destination, &RemoteNameRequestResponse{RemoteName: name})
}

type ReadRemoteLmpFeatures struct{}

func (*ReadRemoteLmpFeatures) packetType() PacketType { return PacketTypeReadRemoteLmpFeatures }

func NewReadRemoteLmpFeatures(source, destination btvirt.Address) *Packet {
	return newPacket(source, destination, &ReadRemoteLmpFeatures{})
}

type ReadRemoteLmpFeaturesResponse struct {
	Features uint64
}

func (*ReadRemoteLmpFeaturesResponse) packetType() PacketType {
	return PacketTypeReadRemoteLmpFeaturesResponse
}

func NewReadRemoteLmpFeaturesResponse(source, destination btvirt.Address, features uint64) *Packet {
	return newPacket(source, destination, &ReadRemoteLmpFeaturesResponse{Features: features})
}

type ReadRemoteSupportedFeatures struct{}

func (*ReadRemoteSupportedFeatures) packetType() PacketType {
	return PacketTypeReadRemoteSupportedFeatures
}

func NewReadRemoteSupportedFeatures(source, destination btvirt.Address) *Packet {
	return newPacket(source, destination, &ReadRemoteSupportedFeatures{})
}

type ReadRemoteSupportedFeaturesResponse struct {
	Features uint64
}

func (*ReadRemoteSupportedFeaturesResponse) packetType() PacketType {
	return PacketTypeReadRemoteSupportedFeaturesResponse
}

func NewReadRemoteSupportedFeaturesResponse(source, destination btvirt.Address, features uint64) *Packet {
	return newPacket(source, destination, &ReadRemoteSupportedFeaturesResponse{Features: features})
}

type ReadRemoteExtendedFeatures struct {
	PageNumber uint8
}

func (*ReadRemoteExtendedFeatures) packetType() PacketType {
	return PacketTypeReadRemoteExtendedFeatures
}

func NewReadRemoteExtendedFeatures(source, destination btvirt.Address, pageNumber uint8) *Packet {
	return newPacket(source, destination, &ReadRemoteExtendedFeatures{PageNumber: pageNumber})
}

type ReadRemoteExtendedFeaturesResponse struct {
	Status        uint8
	PageNumber    uint8
	MaxPageNumber uint8
	Features      uint64
}

func (*ReadRemoteExtendedFeaturesResponse) packetType() PacketType {
	return PacketTypeReadRemoteExtendedFeaturesResponse
}

func NewReadRemoteExtendedFeaturesResponse(source, destination btvirt.Address, status, pageNumber, maxPageNumber uint8, features uint64) *Packet {
	return newPacket(source, destination, &ReadRemoteExtendedFeaturesResponse{
		Status:        status,
		PageNumber:    pageNumber,
		MaxPageNumber: maxPageNumber,
		Features:      features,
	})
}

type ReadRemoteVersionInformation struct{}

func (*ReadRemoteVersionInformation) packetType() PacketType {
	return PacketTypeReadRemoteVersionInformation
}

func NewReadRemoteVersionInformation(source, destination btvirt.Address) *Packet {
	return newPacket(source, destination, &ReadRemoteVersionInformation{})
}

type ReadRemoteVersionInformationResponse struct {
	LmpVersion       uint8
	ManufacturerName uint16
	LmpSubversion    uint16
}

func (*ReadRemoteVersionInformationResponse) packetType() PacketType {
	return PacketTypeReadRemoteVersionInformationResponse
}

func NewReadRemoteVersionInformationResponse(source, destination btvirt.Address, lmpVersion uint8, manufacturer, lmpSubversion uint16) *Packet {
	return newPacket(source, destination, &ReadRemoteVersionInformationResponse{
		LmpVersion:       lmpVersion,
		ManufacturerName: manufacturer,
		LmpSubversion:    lmpSubversion,
	})
}

type ReadClockOffset struct{}

func (*ReadClockOffset) packetType() PacketType { return PacketTypeReadClockOffset }

func NewReadClockOffset(source, destination btvirt.Address) *Packet {
	return newPacket(source, destination, &ReadClockOffset{})
}

type ReadClockOffsetResponse struct {
	Offset uint16
}

func (*ReadClockOffsetResponse) packetType() PacketType { return PacketTypeReadClockOffsetResponse }

func NewReadClockOffsetResponse(source, destination btvirt.Address, offset uint16) *Packet {
	return newPacket(source, destination, &ReadClockOffsetResponse{Offset: offset})
}
