package controller

import (
	"github.com/btvirt/btvirt"
	"github.com/btvirt/btvirt/hci"
	"github.com/btvirt/btvirt/hci/evt"
	"github.com/btvirt/btvirt/ll"
)

// IncomingPacket filters and demultiplexes one packet delivered by the
// radio. Packets not addressed to this device are dropped silently.
func (c *LinkLayerController) IncomingPacket(incoming *ll.Packet) {
	if !incoming.Valid() {
		log.Warn("dropping packet without payload")
		return
	}

	destination := incoming.Destination

	// Broadcasts match everybody.
	addressMatches := destination == btvirt.AddressEmpty

	if destination == c.props.Address || destination == c.props.LeAddress {
		addressMatches = true
	}

	for i := range c.advertisers {
		adv := &c.advertisers[i]
		if adv.IsEnabled() && adv.GetAddress().Address == destination {
			addressMatches = true
		}
	}

	if !addressMatches {
		return
	}

	switch incoming.Type() {
	case ll.PacketTypeAcl:
		c.incomingAclPacket(incoming)
	case ll.PacketTypeDisconnect:
		c.incomingDisconnectPacket(incoming)
	case ll.PacketTypeEncryptConnection:
		c.incomingEncryptConnection(incoming)
	case ll.PacketTypeEncryptConnectionResponse:
		c.incomingEncryptConnectionResponse(incoming)
	case ll.PacketTypeInquiry:
		if c.inquiryScansEnabled {
			c.incomingInquiryPacket(incoming)
		}
	case ll.PacketTypeInquiryResponse:
		c.incomingInquiryResponsePacket(incoming)
	case ll.PacketTypeIoCapabilityRequest:
		c.incomingIoCapabilityRequestPacket(incoming)
	case ll.PacketTypeIoCapabilityResponse:
		c.incomingIoCapabilityResponsePacket(incoming)
	case ll.PacketTypeIoCapabilityNegativeResponse:
		c.incomingIoCapabilityNegativeResponsePacket(incoming)
	case ll.PacketTypeLeAdvertisement:
		if c.leScanEnable != hci.LeScanModeNone || c.leConnect {
			c.incomingLeAdvertisementPacket(incoming)
		}
	case ll.PacketTypeLeConnect:
		c.incomingLeConnectPacket(incoming)
	case ll.PacketTypeLeConnectComplete:
		c.incomingLeConnectCompletePacket(incoming)
	case ll.PacketTypeLeEncryptConnection:
		c.incomingLeEncryptConnection(incoming)
	case ll.PacketTypeLeEncryptConnectionResponse:
		c.incomingLeEncryptConnectionResponse(incoming)
	case ll.PacketTypeLeScan:
		c.incomingLeScanPacket(incoming)
	case ll.PacketTypeLeScanResponse:
		if c.leScanEnable != hci.LeScanModeNone && c.leScanType == hci.LeScanTypeActive {
			c.incomingLeScanResponsePacket(incoming)
		}
	case ll.PacketTypePage:
		if c.pageScansEnabled {
			c.incomingPagePacket(incoming)
		}
	case ll.PacketTypePageResponse:
		c.incomingPageResponsePacket(incoming)
	case ll.PacketTypePageReject:
		c.incomingPageRejectPacket(incoming)
	case ll.PacketTypeRemoteNameRequest:
		c.incomingRemoteNameRequest(incoming)
	case ll.PacketTypeRemoteNameRequestResponse:
		c.incomingRemoteNameRequestResponse(incoming)
	case ll.PacketTypeReadRemoteSupportedFeatures:
		c.incomingReadRemoteSupportedFeatures(incoming)
	case ll.PacketTypeReadRemoteSupportedFeaturesResponse:
		c.incomingReadRemoteSupportedFeaturesResponse(incoming)
	case ll.PacketTypeReadRemoteLmpFeatures:
		c.incomingReadRemoteLmpFeatures(incoming)
	case ll.PacketTypeReadRemoteLmpFeaturesResponse:
		c.incomingReadRemoteLmpFeaturesResponse(incoming)
	case ll.PacketTypeReadRemoteExtendedFeatures:
		c.incomingReadRemoteExtendedFeatures(incoming)
	case ll.PacketTypeReadRemoteExtendedFeaturesResponse:
		c.incomingReadRemoteExtendedFeaturesResponse(incoming)
	case ll.PacketTypeReadRemoteVersionInformation:
		c.incomingReadRemoteVersion(incoming)
	case ll.PacketTypeReadRemoteVersionInformationResponse:
		c.incomingReadRemoteVersionResponse(incoming)
	case ll.PacketTypeReadClockOffset:
		c.incomingReadClockOffset(incoming)
	case ll.PacketTypeReadClockOffsetResponse:
		c.incomingReadClockOffsetResponse(incoming)
	default:
		log.Warn("dropping unhandled packet of type ", incoming.Type().String())
	}
}

func (c *LinkLayerController) incomingAclPacket(incoming *ll.Packet) {
	acl, ok := incoming.Payload.(*ll.Acl)
	if !ok {
		log.Warn("malformed ACL packet from ", incoming.Source.String())
		return
	}
	log.Debugf("acl packet %s -> %s", incoming.Source, incoming.Destination)

	localHandle := c.connections.GetHandleOnlyAddress(incoming.Source)
	if localHandle == ReservedHandle {
		log.Info("discarding ACL from unconnected device ", incoming.Source.String())
		return
	}

	if c.sendAcl == nil {
		log.Warn("no acl channel registered, dropping data")
		return
	}

	payload := acl.Data
	bufferSize := int(c.props.AclDataPacketSize)
	if bufferSize == 0 {
		bufferSize = len(payload) + 1
	}
	numPackets := (len(payload) + bufferSize - 1) / bufferSize

	pbf := acl.PacketBoundaryFlag
	if pbf == hci.FirstNonAutomaticallyFlushable {
		pbf = hci.FirstAutomaticallyFlushable
	}

	for i := 0; i < numPackets; i++ {
		start := bufferSize * i
		end := start + bufferSize
		if end > len(payload) {
			end = len(payload)
		}
		fragment := make([]byte, end-start)
		copy(fragment, payload[start:end])

		c.sendAcl(&hci.AclPacket{
			Handle:             localHandle,
			PacketBoundaryFlag: pbf,
			BroadcastFlag:      acl.BroadcastFlag,
			Payload:            fragment,
		})
		pbf = hci.ContinuingFragment
	}
}

func (c *LinkLayerController) incomingRemoteNameRequest(incoming *ll.Packet) {
	c.sendLinkLayerPacket(ll.NewRemoteNameRequestResponse(
		incoming.Destination, incoming.Source, c.props.Name))
}

func (c *LinkLayerController) incomingRemoteNameRequestResponse(incoming *ll.Packet) {
	response, ok := incoming.Payload.(*ll.RemoteNameRequestResponse)
	if !ok {
		log.Warn("malformed remote name response from ", incoming.Source.String())
		return
	}
	c.emitEvent(evt.RemoteNameRequestComplete{
		Status:     hci.Success,
		Addr:       incoming.Source,
		RemoteName: response.RemoteName,
	})
}

func (c *LinkLayerController) incomingReadRemoteLmpFeatures(incoming *ll.Packet) {
	c.sendLinkLayerPacket(ll.NewReadRemoteLmpFeaturesResponse(
		incoming.Destination, incoming.Source, c.props.ExtendedFeaturesPage(1)))
}

func (c *LinkLayerController) incomingReadRemoteLmpFeaturesResponse(incoming *ll.Packet) {
	response, ok := incoming.Payload.(*ll.ReadRemoteLmpFeaturesResponse)
	if !ok {
		log.Warn("malformed lmp features response from ", incoming.Source.String())
		return
	}
	c.emitEvent(evt.RemoteHostSupportedFeaturesNotification{
		Addr:     incoming.Source,
		Features: response.Features,
	})
}

func (c *LinkLayerController) incomingReadRemoteSupportedFeatures(incoming *ll.Packet) {
	c.sendLinkLayerPacket(ll.NewReadRemoteSupportedFeaturesResponse(
		incoming.Destination, incoming.Source, c.props.SupportedFeatures))
}

func (c *LinkLayerController) incomingReadRemoteSupportedFeaturesResponse(incoming *ll.Packet) {
	response, ok := incoming.Payload.(*ll.ReadRemoteSupportedFeaturesResponse)
	if !ok {
		log.Warn("malformed supported features response from ", incoming.Source.String())
		return
	}
	handle := c.connections.GetHandleOnlyAddress(incoming.Source)
	if handle == ReservedHandle {
		log.Info("discarding response from a disconnected device ", incoming.Source.String())
		return
	}
	c.emitEvent(evt.ReadRemoteSupportedFeaturesComplete{
		Status:   hci.Success,
		Handle:   handle,
		Features: response.Features,
	})
}

func (c *LinkLayerController) incomingReadRemoteExtendedFeatures(incoming *ll.Packet) {
	request, ok := incoming.Payload.(*ll.ReadRemoteExtendedFeatures)
	if !ok {
		log.Warn("malformed extended features request from ", incoming.Source.String())
		return
	}
	status := hci.Success
	if request.PageNumber > c.props.ExtendedFeaturesMaximumPageNumber() {
		status = hci.InvalidLmpOrLlParameters
	}
	c.sendLinkLayerPacket(ll.NewReadRemoteExtendedFeaturesResponse(
		incoming.Destination, incoming.Source, uint8(status), request.PageNumber,
		c.props.ExtendedFeaturesMaximumPageNumber(),
		c.props.ExtendedFeaturesPage(request.PageNumber)))
}

func (c *LinkLayerController) incomingReadRemoteExtendedFeaturesResponse(incoming *ll.Packet) {
	response, ok := incoming.Payload.(*ll.ReadRemoteExtendedFeaturesResponse)
	if !ok {
		log.Warn("malformed extended features response from ", incoming.Source.String())
		return
	}
	handle := c.connections.GetHandleOnlyAddress(incoming.Source)
	if handle == ReservedHandle {
		log.Info("discarding response from a disconnected device ", incoming.Source.String())
		return
	}
	c.emitEvent(evt.ReadRemoteExtendedFeaturesComplete{
		Status:        hci.ErrorCode(response.Status),
		Handle:        handle,
		PageNumber:    response.PageNumber,
		MaxPageNumber: response.MaxPageNumber,
		Features:      response.Features,
	})
}

func (c *LinkLayerController) incomingReadRemoteVersion(incoming *ll.Packet) {
	c.sendLinkLayerPacket(ll.NewReadRemoteVersionInformationResponse(
		incoming.Destination, incoming.Source,
		c.props.LmpVersion, c.props.ManufacturerName, c.props.LmpSubversion))
}

func (c *LinkLayerController) incomingReadRemoteVersionResponse(incoming *ll.Packet) {
	response, ok := incoming.Payload.(*ll.ReadRemoteVersionInformationResponse)
	if !ok {
		log.Warn("malformed version response from ", incoming.Source.String())
		return
	}
	handle := c.connections.GetHandleOnlyAddress(incoming.Source)
	if handle == ReservedHandle {
		log.Info("discarding response from a disconnected device ", incoming.Source.String())
		return
	}
	c.emitEvent(evt.ReadRemoteVersionInformationComplete{
		Status:           hci.Success,
		Handle:           handle,
		LmpVersion:       response.LmpVersion,
		ManufacturerName: response.ManufacturerName,
		LmpSubversion:    response.LmpSubversion,
	})
}

func (c *LinkLayerController) incomingReadClockOffset(incoming *ll.Packet) {
	c.sendLinkLayerPacket(ll.NewReadClockOffsetResponse(
		incoming.Destination, incoming.Source, c.props.ClockOffset))
}

func (c *LinkLayerController) incomingReadClockOffsetResponse(incoming *ll.Packet) {
	response, ok := incoming.Payload.(*ll.ReadClockOffsetResponse)
	if !ok {
		log.Warn("malformed clock offset response from ", incoming.Source.String())
		return
	}
	handle := c.connections.GetHandleOnlyAddress(incoming.Source)
	if handle == ReservedHandle {
		log.Info("discarding response from a disconnected device ", incoming.Source.String())
		return
	}
	c.emitEvent(evt.ReadClockOffsetComplete{
		Status: hci.Success,
		Handle: handle,
		Offset: response.Offset,
	})
}

func (c *LinkLayerController) incomingDisconnectPacket(incoming *ll.Packet) {
	disconnect, ok := incoming.Payload.(*ll.Disconnect)
	if !ok {
		log.Warn("malformed disconnect from ", incoming.Source.String())
		return
	}

	peer := incoming.Source
	handle := c.connections.GetHandleOnlyAddress(peer)
	if handle == ReservedHandle {
		log.Info("discarding disconnect from a disconnected device ", peer.String())
		return
	}
	if !c.connections.Disconnect(handle) {
		panic("lost connection handle during disconnect")
	}

	reason := disconnect.Reason
	c.ScheduleTask(disconnectCleanupDelay, func() {
		c.disconnectCleanup(handle, hci.ErrorCode(reason))
	})
}

func (c *LinkLayerController) incomingEncryptConnection(incoming *ll.Packet) {
	if _, ok := incoming.Payload.(*ll.EncryptConnection); !ok {
		log.Warn("malformed encrypt connection from ", incoming.Source.String())
		return
	}

	peer := incoming.Source
	handle := c.connections.GetHandleOnlyAddress(peer)
	if handle == ReservedHandle {
		log.Info("unknown connection @", peer.String())
		return
	}
	c.emitEvent(evt.EncryptionChange{
		Status:  hci.Success,
		Handle:  handle,
		Enabled: hci.EncryptionOn,
	})

	if c.security.ReadKey(peer) == 0 {
		log.Errorf("no key for %s", peer)
		return
	}
	key := c.security.GetKey(peer)
	c.sendLinkLayerPacket(ll.NewEncryptConnectionResponse(c.props.Address, peer, key))
}

func (c *LinkLayerController) incomingEncryptConnectionResponse(incoming *ll.Packet) {
	if _, ok := incoming.Payload.(*ll.EncryptConnectionResponse); !ok {
		log.Warn("malformed encrypt connection response from ", incoming.Source.String())
		return
	}
	handle := c.connections.GetHandleOnlyAddress(incoming.Source)
	if handle == ReservedHandle {
		log.Info("unknown connection @", incoming.Source.String())
		return
	}
	c.emitEvent(evt.EncryptionChange{
		Status:  hci.Success,
		Handle:  handle,
		Enabled: hci.EncryptionOn,
	})
}

func (c *LinkLayerController) incomingInquiryPacket(incoming *ll.Packet) {
	inquiry, ok := incoming.Payload.(*ll.Inquiry)
	if !ok {
		log.Warn("malformed inquiry from ", incoming.Source.String())
		return
	}

	peer := incoming.Source

	switch inquiry.InquiryType {
	case ll.InquiryTypeStandard:
		c.sendLinkLayerPacket(ll.NewInquiryResponse(
			c.props.Address, peer,
			c.props.PageScanRepetitionMode, c.props.ClassOfDevice, c.props.ClockOffset))
	case ll.InquiryTypeRssi:
		c.sendLinkLayerPacket(ll.NewInquiryResponseWithRssi(
			c.props.Address, peer,
			c.props.PageScanRepetitionMode, c.props.ClassOfDevice, c.props.ClockOffset,
			c.getRssi()))
	case ll.InquiryTypeExtended:
		c.sendLinkLayerPacket(ll.NewExtendedInquiryResponse(
			c.props.Address, peer,
			c.props.PageScanRepetitionMode, c.props.ClassOfDevice, c.props.ClockOffset,
			c.getRssi(), c.props.ExtendedInquiryData))
	default:
		log.Warnf("unhandled incoming inquiry of type %d", inquiry.InquiryType)
	}
}

func (c *LinkLayerController) incomingInquiryResponsePacket(incoming *ll.Packet) {
	response, ok := incoming.Payload.(*ll.InquiryResponse)
	if !ok {
		log.Warn("malformed inquiry response from ", incoming.Source.String())
		return
	}

	switch response.InquiryType {
	case ll.InquiryTypeStandard:
		c.emitEvent(evt.InquiryResult{
			Addr:                   incoming.Source,
			PageScanRepetitionMode: response.PageScanRepetitionMode,
			ClassOfDevice:          response.ClassOfDevice,
			ClockOffset:            response.ClockOffset,
		})
	case ll.InquiryTypeRssi:
		c.emitEvent(evt.InquiryResultWithRssi{
			Addr:                   incoming.Source,
			PageScanRepetitionMode: response.PageScanRepetitionMode,
			ClassOfDevice:          response.ClassOfDevice,
			ClockOffset:            response.ClockOffset,
			Rssi:                   response.Rssi,
		})
	case ll.InquiryTypeExtended:
		c.emitEvent(evt.ExtendedInquiryResult{
			Addr:                   incoming.Source,
			PageScanRepetitionMode: response.PageScanRepetitionMode,
			ClassOfDevice:          response.ClassOfDevice,
			ClockOffset:            response.ClockOffset,
			Rssi:                   response.Rssi,
			Data:                   response.ExtendedData,
		})
	default:
		log.Warnf("unhandled incoming inquiry response of type %d", response.InquiryType)
	}
}

func (c *LinkLayerController) incomingIoCapabilityRequestPacket(incoming *ll.Packet) {
	if !c.props.SimplePairingMode {
		log.Warn("only simple pairing mode is implemented")
		return
	}
	request, ok := incoming.Payload.(*ll.IoCapabilityRequest)
	if !ok {
		log.Warn("malformed io capability request from ", incoming.Source.String())
		return
	}

	peer := incoming.Source
	handle := c.connections.GetHandle(btvirt.AddressWithType{
		Address: peer,
		Type:    btvirt.PublicDeviceAddress,
	})
	if handle == ReservedHandle {
		log.Info("device not connected ", peer.String())
		return
	}

	c.security.AuthenticationRequest(peer, handle)
	c.security.SetPeerIoCapability(peer, request.IoCapability, request.OobDataPresent, request.AuthenticationRequirements)

	c.emitEvent(evt.IoCapabilityResponse{
		Addr:                       peer,
		IoCapability:               request.IoCapability,
		OobDataPresent:             request.OobDataPresent,
		AuthenticationRequirements: request.AuthenticationRequirements,
	})

	c.startSimplePairing(peer)
}

func (c *LinkLayerController) incomingIoCapabilityResponsePacket(incoming *ll.Packet) {
	response, ok := incoming.Payload.(*ll.IoCapabilityResponse)
	if !ok {
		log.Warn("malformed io capability response from ", incoming.Source.String())
		return
	}

	peer := incoming.Source
	c.security.SetPeerIoCapability(peer, response.IoCapability, response.OobDataPresent, response.AuthenticationRequirements)

	c.emitEvent(evt.IoCapabilityResponse{
		Addr:                       peer,
		IoCapability:               response.IoCapability,
		OobDataPresent:             response.OobDataPresent,
		AuthenticationRequirements: response.AuthenticationRequirements,
	})

	pairingType := c.security.GetSimplePairingType()
	if pairingType == PairingInvalid {
		log.Info("security manager returned invalid pairing type")
		return
	}
	c.ScheduleTask(pairingStageDelay, func() {
		c.authenticateRemoteStage1(peer, pairingType)
	})
}

func (c *LinkLayerController) incomingIoCapabilityNegativeResponsePacket(incoming *ll.Packet) {
	peer := incoming.Source
	if c.security.GetAuthenticationAddress() != peer {
		log.Warn("io capability negative response from unexpected peer ", peer.String())
		return
	}
	c.security.InvalidateIoCapabilities()
}

func (c *LinkLayerController) incomingPagePacket(incoming *ll.Packet) {
	page, ok := incoming.Payload.(*ll.Page)
	if !ok {
		log.Warn("malformed page from ", incoming.Source.String())
		return
	}
	log.Debug("page from ", incoming.Source.String())

	if !c.connections.CreatePendingConnection(incoming.Source, c.props.AuthenticationEnable == 1) {
		log.Warn("failed to create a pending connection for ", incoming.Source.String())
	}

	c.emitEvent(evt.ConnectionRequest{
		Addr:          incoming.Source,
		ClassOfDevice: page.ClassOfDevice,
		LinkType:      hci.LinkTypeAcl,
	})
}

func (c *LinkLayerController) incomingPageRejectPacket(incoming *ll.Packet) {
	reject, ok := incoming.Payload.(*ll.PageReject)
	if !ok {
		log.Warn("malformed page reject from ", incoming.Source.String())
		return
	}
	log.Debug("page reject from ", incoming.Source.String())

	c.emitEvent(evt.ConnectionComplete{
		Status:            hci.ErrorCode(reject.Reason),
		Handle:            rejectedConnectionHandle,
		Addr:              incoming.Source,
		LinkType:          hci.LinkTypeAcl,
		EncryptionEnabled: hci.Disabled,
	})
}

func (c *LinkLayerController) incomingPageResponsePacket(incoming *ll.Packet) {
	peer := incoming.Source
	log.Debug("page response from ", peer.String())

	awaitingAuthentication := c.connections.AuthenticatePendingConnection(peer)
	handle := c.connections.CreateConnection(peer, incoming.Destination)
	if handle == ReservedHandle {
		log.Warn("no free handles")
		return
	}
	c.emitEvent(evt.ConnectionComplete{
		Status:            hci.Success,
		Handle:            handle,
		Addr:              peer,
		LinkType:          hci.LinkTypeAcl,
		EncryptionEnabled: hci.Disabled,
	})

	if awaitingAuthentication {
		c.ScheduleTask(pairingStageDelay, func() {
			c.handleAuthenticationRequest(peer, handle)
		})
	}
}
