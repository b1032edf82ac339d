package controller

import (
	"time"

	"github.com/btvirt/btvirt"
	"github.com/btvirt/btvirt/hci"
	"github.com/btvirt/btvirt/hci/evt"
	"github.com/btvirt/btvirt/ll"
)

// leAddressUnset is a placeholder random address that counts as unset, like
// the empty address a device starts with; advertising with either is a
// parameter error.
var leAddressUnset = btvirt.MustNewAddress("bb:bb:bb:ba:d0:1e")

// Extended advertising report event types for the legacy PDUs.
const (
	extReportAdvInd        = 0x13
	extReportAdvDirectInd  = 0x15
	extReportAdvScanInd    = 0x12
	extReportAdvNonconnInd = 0x10
	extReportScanResponse  = 0x1b
)

// Minimum legacy advertising interval.
const minAdvertisingInterval = 20 * time.Millisecond

func (c *LinkLayerController) incomingLeAdvertisementPacket(incoming *ll.Packet) {
	advertisement, ok := incoming.Payload.(*ll.LeAdvertisement)
	if !ok {
		log.Warn("malformed LE advertisement from ", incoming.Source.String())
		return
	}

	address := incoming.Source
	addressType := advertisement.AddressType
	advType := advertisement.AdvertisementType

	if c.leScanEnable == hci.LeScanModeLegacy {
		c.emitEvent(evt.LeAdvertisingReport{
			EventType:   uint8(advType),
			AddressType: addressType,
			Addr:        address,
			Data:        advertisement.Data,
			Rssi:        c.getRssi(),
		})
	}

	if c.leScanEnable == hci.LeScanModeExtended {
		var eventType uint8
		switch advType {
		case ll.AdvInd:
			eventType = extReportAdvInd
		case ll.AdvDirectInd:
			eventType = extReportAdvDirectInd
		case ll.AdvScanInd:
			eventType = extReportAdvScanInd
		case ll.AdvNonconnInd:
			eventType = extReportAdvNonconnInd
		case ll.ScanResponse:
			// Scan responses arrive through their own packet type.
			return
		}
		c.emitEvent(evt.LeExtendedAdvertisingReport{
			EventType:         eventType,
			AddressType:       addressType,
			Addr:              address,
			PrimaryPhy:        1,
			SecondaryPhy:      0,
			AdvertisingSid:    0xFF, // not provided
			TxPower:           0x7F, // not available
			Rssi:              c.getRssi(),
			DirectAddressType: btvirt.PublicDeviceAddress,
			DirectAddress:     btvirt.AddressEmpty,
			Data:              advertisement.Data,
		})
	}

	// Active scanning.
	if c.leScanEnable != hci.LeScanModeNone && c.leScanType == hci.LeScanTypeActive {
		c.sendLeLinkLayerPacket(ll.NewLeScan(c.props.LeAddress, address))
	}

	// Connect.
	armedMatch := c.leConnect && c.lePeerAddress == address &&
		c.lePeerAddressType == addressType &&
		(advType == ll.AdvInd || advType == ll.AdvDirectInd)
	if armedMatch || c.LeConnectListContainsDevice(address, addressType) {
		if !c.connections.CreatePendingLeConnection(btvirt.AddressWithType{Address: address, Type: addressType}) {
			log.Warnf("CreatePendingLeConnection failed for connection to %s (type %s)", address, addressType)
		}

		var ownAddress btvirt.Address
		switch c.leAddressType {
		case btvirt.PublicDeviceAddress:
			ownAddress = c.props.Address
		case btvirt.RandomDeviceAddress:
			ownAddress = c.props.LeAddress
		default:
			panic("unhandled connection own address type")
		}
		log.Infof("connecting to %s (type %s) as %s (type %s)", address, addressType, ownAddress, c.leAddressType)
		c.leConnect = false
		c.leScanEnable = hci.LeScanModeNone

		c.sendLeLinkLayerPacket(ll.NewLeConnect(ownAddress, address,
			c.leConnectionIntervalMin, c.leConnectionIntervalMax,
			c.leConnectionLatency, c.leConnectionSupervisionTimeout,
			c.leAddressType))
	}
}

// handleLeConnection promotes the pending LE connection and reports it to
// the host.
func (c *LinkLayerController) handleLeConnection(address, ownAddress btvirt.AddressWithType, role uint8, connectionInterval, connectionLatency, supervisionTimeout uint16) {
	handle := c.connections.CreateLeConnection(address, ownAddress)
	if handle == ReservedHandle {
		log.Warn("no pending connection for connection from ", address.String())
		return
	}
	c.emitEvent(evt.LeConnectionComplete{
		Status:             hci.Success,
		Handle:             handle,
		Role:               role,
		PeerAddressType:    address.Type,
		PeerAddress:        address.Address,
		ConnInterval:       connectionInterval,
		ConnLatency:        connectionLatency,
		SupervisionTimeout: supervisionTimeout,
	})
}

func (c *LinkLayerController) incomingLeConnectPacket(incoming *ll.Packet) {
	connect, ok := incoming.Payload.(*ll.LeConnect)
	if !ok {
		log.Warn("malformed LE connect from ", incoming.Source.String())
		return
	}

	connectionInterval := (connect.IntervalMax + connect.IntervalMin) / 2
	peer := btvirt.AddressWithType{Address: incoming.Source, Type: connect.AddressType}
	if !c.connections.CreatePendingLeConnection(peer) {
		log.Warnf("CreatePendingLeConnection failed for connection from %s (type %s)", peer.Address, peer.Type)
		return
	}

	var myAddress btvirt.AddressWithType
	matchedAdvertiser := false
	for i := range c.advertisers {
		advertiserAddress := c.advertisers[i].GetAddress()
		if incoming.Destination == advertiserAddress.Address {
			myAddress = advertiserAddress
			matchedAdvertiser = true
		}
	}

	if !matchedAdvertiser {
		log.Info("dropping unmatched connection request to ", incoming.Source.String())
		return
	}

	c.handleLeConnection(peer, myAddress, hci.RoleSlave,
		connectionInterval, connect.Latency, connect.Timeout)

	c.sendLeLinkLayerPacket(ll.NewLeConnectComplete(
		incoming.Destination, incoming.Source,
		connectionInterval, connect.Latency, connect.Timeout,
		myAddress.Type))
}

func (c *LinkLayerController) incomingLeConnectCompletePacket(incoming *ll.Packet) {
	complete, ok := incoming.Payload.(*ll.LeConnectComplete)
	if !ok {
		log.Warn("malformed LE connect complete from ", incoming.Source.String())
		return
	}
	c.handleLeConnection(
		btvirt.AddressWithType{Address: incoming.Source, Type: complete.AddressType},
		btvirt.AddressWithType{Address: incoming.Destination, Type: c.leAddressType},
		hci.RoleMaster,
		complete.Interval, complete.Latency, complete.Timeout)
}

func (c *LinkLayerController) incomingLeEncryptConnection(incoming *ll.Packet) {
	leEncrypt, ok := incoming.Payload.(*ll.LeEncryptConnection)
	if !ok {
		log.Warn("malformed LE encrypt connection from ", incoming.Source.String())
		return
	}

	peer := incoming.Source
	handle := c.connections.GetHandleOnlyAddress(peer)
	if handle == ReservedHandle {
		log.Infof("@%s: unknown connection @%s", incoming.Destination, peer)
		return
	}

	c.emitEvent(evt.LeLongTermKeyRequest{
		Handle: handle,
		Rand:   leEncrypt.Rand,
		Ediv:   leEncrypt.Ediv,
	})
}

func (c *LinkLayerController) incomingLeEncryptConnectionResponse(incoming *ll.Packet) {
	response, ok := incoming.Payload.(*ll.LeEncryptConnectionResponse)
	if !ok {
		log.Warn("malformed LE encrypt connection response from ", incoming.Source.String())
		return
	}
	handle := c.connections.GetHandleOnlyAddress(incoming.Source)
	if handle == ReservedHandle {
		log.Infof("@%s: unknown connection @%s", incoming.Destination, incoming.Source)
		return
	}

	status := hci.Success
	// A zero LTK is a rejection.
	if response.Ltk == ([16]byte{}) {
		status = hci.AuthenticationFailure
	}

	if c.connections.IsEncrypted(handle) {
		c.emitEvent(evt.EncryptionKeyRefreshComplete{Status: status, Handle: handle})
	} else {
		c.connections.Encrypt(handle)
		c.emitEvent(evt.EncryptionChange{
			Status:  status,
			Handle:  handle,
			Enabled: hci.EncryptionOn,
		})
	}
}

func (c *LinkLayerController) incomingLeScanPacket(incoming *ll.Packet) {
	for i := range c.advertisers {
		toSend := c.advertisers[i].GetScanResponse(incoming.Destination, incoming.Source)
		if toSend != nil {
			c.sendLeLinkLayerPacket(toSend)
		}
	}
}

func (c *LinkLayerController) incomingLeScanResponsePacket(incoming *ll.Packet) {
	scanResponse, ok := incoming.Payload.(*ll.LeScanResponse)
	if !ok {
		log.Warn("malformed LE scan response from ", incoming.Source.String())
		return
	}

	if c.leScanEnable == hci.LeScanModeLegacy {
		if scanResponse.AdvertisementType != ll.ScanResponse {
			return
		}
		c.emitEvent(evt.LeAdvertisingReport{
			EventType:   uint8(ll.ScanResponse),
			AddressType: scanResponse.AddressType,
			Addr:        incoming.Source,
			Data:        scanResponse.Data,
			Rssi:        c.getRssi(),
		})
	}

	if c.leScanEnable == hci.LeScanModeExtended {
		c.emitEvent(evt.LeExtendedAdvertisingReport{
			EventType:         extReportScanResponse,
			AddressType:       scanResponse.AddressType,
			Addr:              incoming.Source,
			PrimaryPhy:        1,
			SecondaryPhy:      0,
			AdvertisingSid:    0xFF, // not provided
			TxPower:           0x7F, // not available
			Rssi:              c.getRssi(),
			DirectAddressType: btvirt.PublicDeviceAddress,
			DirectAddress:     btvirt.AddressEmpty,
			Data:              scanResponse.Data,
		})
	}
}

// Host-side LE state setters.

// SetLeScanEnable arms or disarms scanning and records which opcode did it.
func (c *LinkLayerController) SetLeScanEnable(mode hci.LeScanMode) {
	c.leScanEnable = mode
}

// SetLeScanType selects passive or active scanning.
func (c *LinkLayerController) SetLeScanType(scanType uint8) {
	c.leScanType = scanType
}

// SetLeConnect arms or disarms the initiator toward a peer.
func (c *LinkLayerController) SetLeConnect(enable bool, peer btvirt.Address, peerType btvirt.AddressType) {
	c.leConnect = enable
	c.lePeerAddress = peer
	c.lePeerAddressType = peerType
}

// SetLeConnectionParameters stores the parameters carried by the next
// LE connect.
func (c *LinkLayerController) SetLeConnectionParameters(intervalMin, intervalMax, latency, supervisionTimeout uint16) {
	c.leConnectionIntervalMin = intervalMin
	c.leConnectionIntervalMax = intervalMax
	c.leConnectionLatency = latency
	c.leConnectionSupervisionTimeout = supervisionTimeout
}

// SetLeAddressType selects the own address used when initiating.
func (c *LinkLayerController) SetLeAddressType(addressType btvirt.AddressType) {
	c.leAddressType = addressType
}

// SetLeAddress writes the random device address.
func (c *LinkLayerController) SetLeAddress(addr btvirt.Address) {
	c.props.LeAddress = addr
}

// Advertising.

// SetLeAdvertisingEnable enables advertiser 0 from the legacy advertising
// parameters, or disables it.
func (c *LinkLayerController) SetLeAdvertisingEnable(leAdvertisingEnable uint8) hci.ErrorCode {
	if leAdvertisingEnable == 0 {
		c.advertisers[0].Disable()
		return hci.Success
	}

	intervalMs := float64(c.props.LeAdvertisingIntervalMax+c.props.LeAdvertisingIntervalMin) * 0.625 / 2

	ownAddress := c.props.Address
	if c.props.LeAdvertisingOwnAddressType == btvirt.RandomDeviceAddress ||
		c.props.LeAdvertisingOwnAddressType == btvirt.RandomIdentityAddress {
		if c.props.LeAddress == leAddressUnset || c.props.LeAddress == btvirt.AddressEmpty {
			return hci.InvalidHciCommandParameters
		}
		ownAddress = c.props.LeAddress
	}
	ownAddressWithType := btvirt.AddressWithType{
		Address: ownAddress,
		Type:    c.props.LeAdvertisingOwnAddressType,
	}

	interval := time.Duration(intervalMs * float64(time.Millisecond))
	if interval < minAdvertisingInterval {
		return hci.InvalidHciCommandParameters
	}

	c.advertisers[0].Initialize(
		ownAddressWithType,
		btvirt.AddressWithType{
			Address: c.props.LeAdvertisingPeerAddress,
			Type:    c.props.LeAdvertisingPeerAddressType,
		},
		c.props.LeAdvertisingFilterPolicy,
		c.props.LeAdvertisementType,
		c.props.LeAdvertisement, c.props.LeScanResponse,
		interval)
	c.advertisers[0].Enable()
	return hci.Success
}

// LeDisableAdvertisingSets disables every advertising set.
func (c *LinkLayerController) LeDisableAdvertisingSets() {
	for i := range c.advertisers {
		c.advertisers[i].Disable()
	}
}

func (c *LinkLayerController) LeReadNumberOfSupportedAdvertisingSets() uint8 {
	return uint8(len(c.advertisers))
}

// SetLeExtendedAddress sets the advertising address of one set.
func (c *LinkLayerController) SetLeExtendedAddress(set uint8, addr btvirt.Address) hci.ErrorCode {
	if int(set) >= len(c.advertisers) {
		return hci.InvalidHciCommandParameters
	}
	c.advertisers[set].SetAddress(addr)
	return hci.Success
}

// SetLeExtendedAdvertisingData sets the advertisement payload of one set.
func (c *LinkLayerController) SetLeExtendedAdvertisingData(set uint8, data []byte) hci.ErrorCode {
	if int(set) >= len(c.advertisers) {
		return hci.InvalidHciCommandParameters
	}
	c.advertisers[set].SetData(data)
	return hci.Success
}

// SetLeExtendedScanResponseData sets the scan-response payload of one set.
func (c *LinkLayerController) SetLeExtendedScanResponseData(set uint8, data []byte) hci.ErrorCode {
	if int(set) >= len(c.advertisers) {
		return hci.InvalidHciCommandParameters
	}
	c.advertisers[set].SetScanResponse(data)
	return hci.Success
}

// SetLeExtendedAdvertisingParameters configures a set from the
// legacy-restricted extended parameters.
func (c *LinkLayerController) SetLeExtendedAdvertisingParameters(set uint8, intervalMin, intervalMax uint16, advertisingType hci.LegacyAdvertisingProperties, ownAddressType hci.OwnAddressType, peerAddressType hci.PeerAddressType, peer btvirt.Address, filterPolicy hci.AdvertisingFilterPolicy) hci.ErrorCode {
	if int(set) >= len(c.advertisers) {
		return hci.InvalidHciCommandParameters
	}

	var adType ll.AdvertisementType
	switch advertisingType {
	case hci.LegacyAdvInd:
		adType = ll.AdvInd
		peer = btvirt.AddressEmpty
	case hci.LegacyAdvNonconnInd:
		adType = ll.AdvNonconnInd
		peer = btvirt.AddressEmpty
	case hci.LegacyAdvScanInd:
		adType = ll.AdvScanInd
		peer = btvirt.AddressEmpty
	case hci.LegacyAdvDirectIndHigh, hci.LegacyAdvDirectIndLow:
		adType = ll.AdvDirectInd
	default:
		return hci.InvalidHciCommandParameters
	}
	intervalMs := float64(intervalMax+intervalMin) * 0.625 / 2

	var peerAddress btvirt.AddressWithType
	switch peerAddressType {
	case hci.PeerAddressPublicDeviceOrIdentity:
		peerAddress = btvirt.AddressWithType{Address: peer, Type: btvirt.PublicDeviceAddress}
	case hci.PeerAddressRandomDeviceOrIdentity:
		peerAddress = btvirt.AddressWithType{Address: peer, Type: btvirt.RandomDeviceAddress}
	}

	var ownAddressAddressType btvirt.AddressType
	switch ownAddressType {
	case hci.OwnAddressRandom:
		ownAddressAddressType = btvirt.RandomDeviceAddress
	case hci.OwnAddressPublic:
		ownAddressAddressType = btvirt.PublicDeviceAddress
	case hci.OwnAddressResolvableOrPublic:
		ownAddressAddressType = btvirt.PublicIdentityAddress
	case hci.OwnAddressResolvableOrRandom:
		ownAddressAddressType = btvirt.RandomIdentityAddress
	}

	var scanningFilterPolicy hci.LeScanningFilterPolicy
	switch filterPolicy {
	case hci.FilterAllDevices:
		scanningFilterPolicy = hci.ScanFilterAcceptAll
	case hci.FilterListedScan:
		scanningFilterPolicy = hci.ScanFilterConnectListOnly
	case hci.FilterListedConnect:
		scanningFilterPolicy = hci.ScanFilterCheckInitiatorsIdentity
	case hci.FilterListedScanAndConnect:
		scanningFilterPolicy = hci.ScanFilterConnectListAndInitiatorsIdentity
	}

	c.advertisers[set].InitializeExtended(ownAddressAddressType, peerAddress,
		scanningFilterPolicy, adType,
		time.Duration(intervalMs*float64(time.Millisecond)))

	return hci.Success
}

// EnabledSet names one advertising set in an extended enable command.
type EnabledSet struct {
	AdvertisingHandle uint8
	// Duration in 10 ms units; zero advertises until disabled.
	Duration uint16
}

// SetLeExtendedAdvertisingEnable enables or disables the named sets.
func (c *LinkLayerController) SetLeExtendedAdvertisingEnable(enable hci.Enable, enabledSets []EnabledSet) hci.ErrorCode {
	for _, set := range enabledSets {
		if int(set.AdvertisingHandle) >= len(c.advertisers) {
			return hci.InvalidHciCommandParameters
		}
	}
	for _, set := range enabledSets {
		if enable == hci.Enabled {
			c.advertisers[set.AdvertisingHandle].EnableExtended(time.Duration(set.Duration) * 10 * time.Millisecond)
		} else {
			c.advertisers[set.AdvertisingHandle].Disable()
		}
	}
	return hci.Success
}

// LeRemoveAdvertisingSet disables one set.
func (c *LinkLayerController) LeRemoveAdvertisingSet(set uint8) hci.ErrorCode {
	if int(set) >= len(c.advertisers) {
		return hci.InvalidHciCommandParameters
	}
	c.advertisers[set].Disable()
	return hci.Success
}

// LeClearAdvertisingSets resets every set; disallowed while any is enabled.
func (c *LinkLayerController) LeClearAdvertisingSets() hci.ErrorCode {
	for i := range c.advertisers {
		if c.advertisers[i].IsEnabled() {
			return hci.CommandDisallowed
		}
	}
	for i := range c.advertisers {
		c.advertisers[i].Clear()
	}
	return hci.Success
}

// Connection update.

// LeConnectionUpdate acknowledges the request now and completes it after
// the negotiation delay; parameter validation surfaces in the completion
// status.
func (c *LinkLayerController) LeConnectionUpdate(handle uint16, intervalMin, intervalMax, latency, supervisionTimeout uint16) hci.ErrorCode {
	if !c.connections.HasHandle(handle) {
		return hci.UnknownConnection
	}

	c.ScheduleTask(connectionUpdateDelay, func() {
		c.leConnectionUpdateComplete(handle, intervalMin, intervalMax, latency, supervisionTimeout)
	})

	return hci.Success
}

func (c *LinkLayerController) leConnectionUpdateComplete(handle uint16, intervalMin, intervalMax, latency, supervisionTimeout uint16) {
	status := hci.Success
	if !c.connections.HasHandle(handle) {
		status = hci.UnknownConnection
	}

	if intervalMin < 6 || intervalMax > 0xC80 || intervalMin > intervalMax ||
		latency > 0x1F3 ||
		supervisionTimeout < 0xA || supervisionTimeout > 0xC80 ||
		// The supervision timeout (10 ms units) must exceed
		// (1 + latency) * intervalMax (1.25 ms units) * 2.
		uint32(supervisionTimeout) <= ((1+uint32(latency))*uint32(intervalMax)*10/4)/10 {
		status = hci.InvalidHciCommandParameters
	}
	interval := (intervalMin + intervalMax) / 2
	c.emitEvent(evt.LeConnectionUpdateComplete{
		Status:             status,
		Handle:             handle,
		ConnInterval:       interval,
		ConnLatency:        latency,
		SupervisionTimeout: supervisionTimeout,
	})
}

// LE encryption.

// LeEnableEncryption starts encryption toward the peer after the local
// processing delay.
func (c *LinkLayerController) LeEnableEncryption(handle uint16, rand [8]byte, ediv uint16, ltk [16]byte) hci.ErrorCode {
	if !c.connections.HasHandle(handle) {
		log.Infof("unknown handle %04x", handle)
		return hci.UnknownConnection
	}

	c.ScheduleTask(pairingStageDelay, func() {
		c.handleLeEnableEncryption(handle, rand, ediv, ltk)
	})
	return hci.Success
}

func (c *LinkLayerController) handleLeEnableEncryption(handle uint16, rand [8]byte, ediv uint16, ltk [16]byte) {
	if !c.connections.HasHandle(handle) {
		return
	}
	c.sendLeLinkLayerPacket(ll.NewLeEncryptConnection(
		c.connections.GetOwnAddress(handle).Address,
		c.connections.GetAddress(handle).Address,
		rand, ediv, ltk))
}

// LeLongTermKeyRequestReply encrypts the link (or refreshes the key) and
// answers the initiator.
func (c *LinkLayerController) LeLongTermKeyRequestReply(handle uint16, ltk [16]byte) hci.ErrorCode {
	if !c.connections.HasHandle(handle) {
		log.Infof("unknown handle %04x", handle)
		return hci.UnknownConnection
	}

	if c.connections.IsEncrypted(handle) {
		c.emitEvent(evt.EncryptionKeyRefreshComplete{Status: hci.Success, Handle: handle})
	} else {
		c.connections.Encrypt(handle)
		c.emitEvent(evt.EncryptionChange{
			Status:  hci.Success,
			Handle:  handle,
			Enabled: hci.EncryptionOn,
		})
	}
	c.sendLeLinkLayerPacket(ll.NewLeEncryptConnectionResponse(
		c.connections.GetOwnAddress(handle).Address,
		c.connections.GetAddress(handle).Address,
		[8]byte{}, 0, ltk))

	return hci.Success
}

// LeLongTermKeyRequestNegativeReply answers the initiator with a zero key.
func (c *LinkLayerController) LeLongTermKeyRequestNegativeReply(handle uint16) hci.ErrorCode {
	if !c.connections.HasHandle(handle) {
		log.Infof("unknown handle %04x", handle)
		return hci.UnknownConnection
	}

	c.sendLeLinkLayerPacket(ll.NewLeEncryptConnectionResponse(
		c.connections.GetOwnAddress(handle).Address,
		c.connections.GetAddress(handle).Address,
		[8]byte{}, 0, [16]byte{}))
	return hci.Success
}

// Connect and resolving lists.

func (c *LinkLayerController) LeConnectListClear() {
	c.leConnectList = nil
}

func (c *LinkLayerController) LeResolvingListClear() {
	c.leResolvingList = nil
}

func (c *LinkLayerController) LeConnectListAddDevice(addr btvirt.Address, addrType btvirt.AddressType) {
	for _, dev := range c.leConnectList {
		if dev.addr == addr && dev.addrType == addrType {
			return
		}
	}
	c.leConnectList = append(c.leConnectList, connectListEntry{addr: addr, addrType: addrType})
}

func (c *LinkLayerController) LeConnectListRemoveDevice(addr btvirt.Address, addrType btvirt.AddressType) {
	for i, dev := range c.leConnectList {
		if dev.addr == addr && dev.addrType == addrType {
			c.leConnectList = append(c.leConnectList[:i], c.leConnectList[i+1:]...)
			return
		}
	}
}

func (c *LinkLayerController) LeConnectListContainsDevice(addr btvirt.Address, addrType btvirt.AddressType) bool {
	for _, dev := range c.leConnectList {
		if dev.addr == addr && dev.addrType == addrType {
			return true
		}
	}
	return false
}

func (c *LinkLayerController) LeConnectListFull() bool {
	return len(c.leConnectList) >= int(c.props.LeConnectListSize)
}

// LeResolvingListAddDevice stores the IRK pair for a peer. When the device is
// on the connect list at an index the resolving list also has, the
// resolving-list entry at that index is overwritten, whichever device it
// held; otherwise the entry is appended.
func (c *LinkLayerController) LeResolvingListAddDevice(addr btvirt.Address, addrType btvirt.AddressType, peerIrk, localIrk [16]byte) {
	entry := resolvingListEntry{addr: addr, addrType: addrType, peerIrk: peerIrk, localIrk: localIrk}
	for i, dev := range c.leConnectList {
		if dev.addr == addr && dev.addrType == addrType && i < len(c.leResolvingList) {
			c.leResolvingList[i] = entry
			return
		}
	}
	c.leResolvingList = append(c.leResolvingList, entry)
}

func (c *LinkLayerController) LeResolvingListRemoveDevice(addr btvirt.Address, addrType btvirt.AddressType) {
	for i, dev := range c.leResolvingList {
		if dev.addr == addr && dev.addrType == addrType {
			c.leResolvingList = append(c.leResolvingList[:i], c.leResolvingList[i+1:]...)
			return
		}
	}
}

func (c *LinkLayerController) LeResolvingListContainsDevice(addr btvirt.Address, addrType btvirt.AddressType) bool {
	for _, dev := range c.leResolvingList {
		if dev.addr == addr && dev.addrType == addrType {
			return true
		}
	}
	return false
}

func (c *LinkLayerController) LeResolvingListFull() bool {
	return len(c.leResolvingList) >= int(c.props.LeResolvingListSize)
}

// LeSetPrivacyMode records nothing; address resolution is not modeled.
func (c *LinkLayerController) LeSetPrivacyMode(addressType btvirt.AddressType, addr btvirt.Address, mode uint8) {
	log.Debugf("privacy mode %d for %s (type %s)", mode, addr, addressType)
}
