package hci

// OpCode identifies the HCI commands the controller forwards to peers.
type OpCode uint16

const (
	OpRemoteNameRequest            OpCode = 0x0419
	OpReadRemoteSupportedFeatures  OpCode = 0x041B
	OpReadRemoteExtendedFeatures   OpCode = 0x041C
	OpReadRemoteVersionInformation OpCode = 0x041D
	OpReadClockOffset              OpCode = 0x041F
)

// Roles of an LE connection.
const (
	RoleMaster uint8 = 0x00
	RoleSlave  uint8 = 0x01
)

// LinkType of a BR/EDR connection request/complete.
type LinkType uint8

const (
	LinkTypeSco LinkType = 0x00
	LinkTypeAcl LinkType = 0x01
)

// Enable is the standard enable/disable parameter encoding.
type Enable uint8

const (
	Disabled Enable = 0x00
	Enabled  Enable = 0x01
)

// EncryptionEnabled values of the Encryption Change event.
type EncryptionEnabled uint8

const (
	EncryptionOff EncryptionEnabled = 0x00
	EncryptionOn  EncryptionEnabled = 0x01
)

// Packet boundary flags of an HCI ACL data packet [Vol 4, Part E, 5.4.2].
type PacketBoundaryFlag uint8

const (
	FirstNonAutomaticallyFlushable PacketBoundaryFlag = 0x00
	ContinuingFragment             PacketBoundaryFlag = 0x01
	FirstAutomaticallyFlushable    PacketBoundaryFlag = 0x02
	CompletePdu                    PacketBoundaryFlag = 0x03
)

// Broadcast flags of an HCI ACL data packet.
type BroadcastFlag uint8

const (
	PointToPoint         BroadcastFlag = 0x00
	ActiveSlaveBroadcast BroadcastFlag = 0x01
)

// KeyType of a Link Key Notification event.
type KeyType uint8

const (
	KeyTypeCombination         KeyType = 0x00
	KeyTypeUnauthenticatedP192 KeyType = 0x04
	KeyTypeAuthenticatedP192   KeyType = 0x05
	KeyTypeUnauthenticatedP256 KeyType = 0x07
	KeyTypeAuthenticatedP256   KeyType = 0x08
)

// IoCapability values of the IO capability exchange.
type IoCapability uint8

const (
	IoCapDisplayOnly     IoCapability = 0x00
	IoCapDisplayYesNo    IoCapability = 0x01
	IoCapKeyboardOnly    IoCapability = 0x02
	IoCapNoInputNoOutput IoCapability = 0x03
)

// LeScanMode tracks which scan-enable opcode armed scanning, if any.
type LeScanMode uint8

const (
	LeScanModeNone     LeScanMode = iota // scanning disabled
	LeScanModeLegacy                     // LE Set Scan Enable
	LeScanModeExtended                   // LE Set Extended Scan Enable
)

// LE scan types.
const (
	LeScanTypePassive uint8 = 0x00
	LeScanTypeActive  uint8 = 0x01
)

// OwnAddressType of LE advertising/scanning/initiating commands.
type OwnAddressType uint8

const (
	OwnAddressPublic             OwnAddressType = 0x00
	OwnAddressRandom             OwnAddressType = 0x01
	OwnAddressResolvableOrPublic OwnAddressType = 0x02
	OwnAddressResolvableOrRandom OwnAddressType = 0x03
)

// PeerAddressType of LE extended advertising parameters.
type PeerAddressType uint8

const (
	PeerAddressPublicDeviceOrIdentity PeerAddressType = 0x00
	PeerAddressRandomDeviceOrIdentity PeerAddressType = 0x01
)

// LegacyAdvertisingProperties of LE Set Extended Advertising Parameters
// restricted to legacy PDUs [Vol 4, Part E, 7.8.53].
type LegacyAdvertisingProperties uint8

const (
	LegacyAdvInd           LegacyAdvertisingProperties = 0x13
	LegacyAdvDirectIndHigh LegacyAdvertisingProperties = 0x1D
	LegacyAdvScanInd       LegacyAdvertisingProperties = 0x12
	LegacyAdvNonconnInd    LegacyAdvertisingProperties = 0x10
	LegacyAdvDirectIndLow  LegacyAdvertisingProperties = 0x15
)

// AdvertisingFilterPolicy of legacy/extended advertising parameters.
type AdvertisingFilterPolicy uint8

const (
	FilterAllDevices           AdvertisingFilterPolicy = 0x00
	FilterListedScan           AdvertisingFilterPolicy = 0x01
	FilterListedConnect        AdvertisingFilterPolicy = 0x02
	FilterListedScanAndConnect AdvertisingFilterPolicy = 0x03
)

// ClassOfDevice is the 24-bit class-of-device field.
type ClassOfDevice uint32

// PageScanRepetitionMode values R0-R2.
type PageScanRepetitionMode uint8

const (
	PageScanR0 PageScanRepetitionMode = 0x00
	PageScanR1 PageScanRepetitionMode = 0x01
	PageScanR2 PageScanRepetitionMode = 0x02
)

// LeScanningFilterPolicy shares its semantics with the advertising filter
// policy when applied to an advertising set.
type LeScanningFilterPolicy uint8

const (
	ScanFilterAcceptAll                        LeScanningFilterPolicy = 0x00
	ScanFilterConnectListOnly                  LeScanningFilterPolicy = 0x01
	ScanFilterCheckInitiatorsIdentity          LeScanningFilterPolicy = 0x02
	ScanFilterConnectListAndInitiatorsIdentity LeScanningFilterPolicy = 0x03
)
