package controller

import (
	"github.com/btvirt/btvirt"
	"github.com/btvirt/btvirt/hci"
	"github.com/btvirt/btvirt/hci/evt"
	"github.com/btvirt/btvirt/ll"
)

// SendCommandToRemoteByAddress forwards a host command that targets a peer
// by address, translating it to the matching link-layer request. pageNumber
// is only meaningful for the extended-features read.
func (c *LinkLayerController) SendCommandToRemoteByAddress(opcode hci.OpCode, remote btvirt.Address, pageNumber uint8) hci.ErrorCode {
	local := c.props.Address

	switch opcode {
	case hci.OpRemoteNameRequest:
		// LMP features get requested with remote name requests.
		c.sendLinkLayerPacket(ll.NewReadRemoteLmpFeatures(local, remote))
		c.sendLinkLayerPacket(ll.NewRemoteNameRequest(local, remote))
	case hci.OpReadRemoteSupportedFeatures:
		c.sendLinkLayerPacket(ll.NewReadRemoteSupportedFeatures(local, remote))
	case hci.OpReadRemoteExtendedFeatures:
		c.sendLinkLayerPacket(ll.NewReadRemoteExtendedFeatures(local, remote, pageNumber))
	case hci.OpReadRemoteVersionInformation:
		c.sendLinkLayerPacket(ll.NewReadRemoteVersionInformation(local, remote))
	case hci.OpReadClockOffset:
		c.sendLinkLayerPacket(ll.NewReadClockOffset(local, remote))
	default:
		log.Infof("dropping unhandled command 0x%04x", uint16(opcode))
		return hci.UnknownHciCommand
	}

	return hci.Success
}

// SendCommandToRemoteByHandle is SendCommandToRemoteByAddress for commands
// that name a connection handle.
func (c *LinkLayerController) SendCommandToRemoteByHandle(opcode hci.OpCode, handle uint16, pageNumber uint8) hci.ErrorCode {
	if !c.connections.HasHandle(handle) {
		return hci.UnknownConnection
	}
	return c.SendCommandToRemoteByAddress(opcode, c.connections.GetAddress(handle).Address, pageNumber)
}

// SendAclToRemote forwards host ACL data to the connected peer, completing
// the host's buffer accounting shortly after.
func (c *LinkLayerController) SendAclToRemote(acl *hci.AclPacket) hci.ErrorCode {
	handle := acl.Handle
	if !c.connections.HasHandle(handle) {
		return hci.UnknownConnection
	}

	myAddress := c.connections.GetOwnAddress(handle)
	destination := c.connections.GetAddress(handle)
	phy := c.connections.GetPhyType(handle)

	c.ScheduleTask(aclCompletedDelay, func() {
		c.emitEvent(evt.NumberOfCompletedPackets{
			Packets: []evt.CompletedPackets{{Handle: handle, Count: 1}},
		})
	})

	packet := ll.NewAcl(myAddress.Address, destination.Address,
		acl.Handle, acl.PacketBoundaryFlag, acl.BroadcastFlag, acl.Payload)

	switch phy {
	case ll.PhyBrEdr:
		c.sendLinkLayerPacket(packet)
	case ll.PhyLowEnergy:
		c.sendLeLinkLayerPacket(packet)
	}
	return hci.Success
}

// CreateConnection pages addr. The pending connection remembers whether
// authentication should start once the link is up.
func (c *LinkLayerController) CreateConnection(addr btvirt.Address, allowRoleSwitch uint8) hci.ErrorCode {
	if !c.connections.CreatePendingConnection(addr, c.props.AuthenticationEnable == 1) {
		return hci.ControllerBusy
	}
	c.sendLinkLayerPacket(ll.NewPage(c.props.Address, addr, c.props.ClassOfDevice, allowRoleSwitch))

	return hci.Success
}

// CreateConnectionCancel drops an in-flight page.
func (c *LinkLayerController) CreateConnectionCancel(addr btvirt.Address) hci.ErrorCode {
	if !c.connections.CancelPendingConnection(addr) {
		return hci.UnknownConnection
	}
	return hci.Success
}

// AcceptConnectionRequest answers an inbound page positively after the page
// turnaround time.
func (c *LinkLayerController) AcceptConnectionRequest(addr btvirt.Address, tryRoleSwitch uint8) hci.ErrorCode {
	if !c.connections.HasPendingConnection(addr) {
		log.Info("no pending connection for ", addr.String())
		return hci.UnknownConnection
	}

	c.ScheduleTask(pageResponseDelay, func() {
		c.makeSlaveConnection(addr, tryRoleSwitch)
	})

	return hci.Success
}

func (c *LinkLayerController) makeSlaveConnection(addr btvirt.Address, tryRoleSwitch uint8) {
	log.Debug("sending page response to ", addr.String())
	c.sendLinkLayerPacket(ll.NewPageResponse(c.props.Address, addr, tryRoleSwitch))

	handle := c.connections.CreateConnection(addr, c.props.Address)
	if handle == ReservedHandle {
		log.Info("CreateConnection failed for ", addr.String())
		return
	}
	c.emitEvent(evt.ConnectionComplete{
		Status:            hci.Success,
		Handle:            handle,
		Addr:              addr,
		LinkType:          hci.LinkTypeAcl,
		EncryptionEnabled: hci.Disabled,
	})
}

// RejectConnectionRequest answers an inbound page negatively after the page
// turnaround time.
func (c *LinkLayerController) RejectConnectionRequest(addr btvirt.Address, reason uint8) hci.ErrorCode {
	if !c.connections.HasPendingConnection(addr) {
		log.Info("no pending connection for ", addr.String())
		return hci.UnknownConnection
	}

	c.ScheduleTask(pageResponseDelay, func() {
		c.rejectSlaveConnection(addr, reason)
	})

	return hci.Success
}

func (c *LinkLayerController) rejectSlaveConnection(addr btvirt.Address, reason uint8) {
	log.Debugf("sending page reject to %s (reason 0x%02x)", addr, reason)
	c.sendLinkLayerPacket(ll.NewPageReject(c.props.Address, addr, reason))

	c.connections.CancelPendingConnection(addr)

	c.emitEvent(evt.ConnectionComplete{
		Status:            hci.ErrorCode(reason),
		Handle:            rejectedConnectionHandle,
		Addr:              addr,
		LinkType:          hci.LinkTypeAcl,
		EncryptionEnabled: hci.Disabled,
	})
}

// Disconnect tears down a live connection; the completion event follows
// after the cleanup delay.
func (c *LinkLayerController) Disconnect(handle uint16, reason uint8) hci.ErrorCode {
	if !c.connections.HasHandle(handle) {
		return hci.UnknownConnection
	}

	remote := c.connections.GetAddress(handle)
	c.sendLinkLayerPacket(ll.NewDisconnect(c.props.Address, remote.Address, reason))
	if !c.connections.Disconnect(handle) {
		panic("lost connection handle during disconnect")
	}

	c.ScheduleTask(disconnectCleanupDelay, func() {
		c.disconnectCleanup(handle, hci.ConnectionTerminatedByLocalHost)
	})

	return hci.Success
}

func (c *LinkLayerController) disconnectCleanup(handle uint16, reason hci.ErrorCode) {
	c.emitEvent(evt.DisconnectionComplete{
		Status: hci.Success,
		Handle: handle,
		Reason: reason,
	})
}

// ChangeConnectionPacketType reports the new packet types back after the
// renegotiation delay.
func (c *LinkLayerController) ChangeConnectionPacketType(handle uint16, types uint16) hci.ErrorCode {
	if !c.connections.HasHandle(handle) {
		return hci.UnknownConnection
	}
	c.ScheduleTask(packetTypeChangedDelay, func() {
		c.emitEvent(evt.ConnectionPacketTypeChanged{
			Status:     hci.Success,
			Handle:     handle,
			PacketType: types,
		})
	})

	return hci.Success
}

// AuthenticationRequested starts authentication on a live link.
func (c *LinkLayerController) AuthenticationRequested(handle uint16) hci.ErrorCode {
	if !c.connections.HasHandle(handle) {
		log.Infof("authentication requested for unknown handle %04x", handle)
		return hci.UnknownConnection
	}

	remote := c.connections.GetAddress(handle)

	c.ScheduleTask(pairingStageDelay, func() {
		c.handleAuthenticationRequest(remote.Address, handle)
	})

	return hci.Success
}

func (c *LinkLayerController) handleAuthenticationRequest(addr btvirt.Address, handle uint16) {
	if c.props.SimplePairingMode {
		c.security.AuthenticationRequest(addr, handle)
		c.emitEvent(evt.LinkKeyRequest{Addr: addr})
		return
	}
	// Legacy pairing is not modeled.
	c.emitEvent(evt.AuthenticationComplete{
		Status: hci.AuthenticationFailure,
		Handle: handle,
	})
}

// SetConnectionEncryption starts or refuses link encryption.
func (c *LinkLayerController) SetConnectionEncryption(handle uint16, encryptionEnable uint8) hci.ErrorCode {
	if !c.connections.HasHandle(handle) {
		log.Infof("set connection encryption for unknown handle %04x", handle)
		return hci.UnknownConnection
	}

	if c.connections.IsEncrypted(handle) && encryptionEnable == 0 {
		return hci.EncryptionModeNotAcceptable
	}
	remote := c.connections.GetAddress(handle)

	if c.security.ReadKey(remote.Address) == 0 {
		return hci.PinOrKeyMissing
	}

	c.ScheduleTask(pairingStageDelay, func() {
		c.handleSetConnectionEncryption(remote.Address, handle, encryptionEnable)
	})
	return hci.Success
}

func (c *LinkLayerController) handleSetConnectionEncryption(peer btvirt.Address, handle uint16, encryptionEnable uint8) {
	if c.connections.IsEncrypted(handle) && encryptionEnable != 0 {
		c.emitEvent(evt.EncryptionChange{
			Status:  hci.Success,
			Handle:  handle,
			Enabled: hci.EncryptionEnabled(encryptionEnable),
		})
		return
	}

	if c.security.ReadKey(peer) == 0 {
		log.Errorf("no key for %s", peer)
		return
	}
	key := c.security.GetKey(peer)
	c.sendLinkLayerPacket(ll.NewEncryptConnection(c.props.Address, peer, key))
}

// Simple pairing.

// WriteSimplePairingMode toggles secure simple pairing; hosts must not
// disable it.
func (c *LinkLayerController) WriteSimplePairingMode(enabled bool) hci.ErrorCode {
	if !enabled {
		return hci.InvalidHciCommandParameters
	}
	c.props.SimplePairingMode = true
	return hci.Success
}

func (c *LinkLayerController) startSimplePairing(addr btvirt.Address) {
	// IO capability exchange starts with asking our own host.
	c.emitEvent(evt.IoCapabilityRequest{Addr: addr})
}

func (c *LinkLayerController) authenticateRemoteStage1(peer btvirt.Address, pairingType PairingType) {
	if c.security.GetAuthenticationAddress() != peer {
		log.Warn("stage 1 for unexpected peer ", peer.String())
		return
	}
	switch pairingType {
	case PairingAutoConfirmation, PairingConfirmYN, PairingDisplayPin, PairingDisplayAndConfirm:
		c.emitEvent(evt.UserConfirmationRequest{Addr: peer, NumericValue: confirmationNumber})
	case PairingInputPin:
		c.emitEvent(evt.UserPasskeyRequest{Addr: peer})
	default:
		panic("invalid pairing type")
	}
}

// confirmationNumber is the fixed numeric comparison value shown to both
// hosts; real key math is not modeled.
const confirmationNumber uint32 = 123456

func (c *LinkLayerController) authenticateRemoteStage2(peer btvirt.Address) {
	handle := c.security.GetAuthenticationHandle()
	if c.security.GetAuthenticationAddress() != peer {
		log.Warn("stage 2 for unexpected peer ", peer.String())
		return
	}
	c.emitEvent(evt.AuthenticationComplete{
		Status: hci.Success,
		Handle: handle,
	})
}

// LinkKeyRequestReply hands the stored key back; authentication completes
// at stage 2.
func (c *LinkLayerController) LinkKeyRequestReply(peer btvirt.Address, key [16]byte) hci.ErrorCode {
	c.security.WriteKey(peer, key)
	c.security.AuthenticationRequestFinished()

	c.ScheduleTask(pairingStageDelay, func() {
		c.authenticateRemoteStage2(peer)
	})

	return hci.Success
}

// LinkKeyRequestNegativeReply restarts pairing from the IO capability
// exchange.
func (c *LinkLayerController) LinkKeyRequestNegativeReply(addr btvirt.Address) hci.ErrorCode {
	c.security.DeleteKey(addr)

	handle := c.connections.GetHandleOnlyAddress(addr)
	if handle == ReservedHandle {
		log.Info("device not connected ", addr.String())
		return hci.UnknownConnection
	}

	c.security.AuthenticationRequest(addr, handle)

	c.ScheduleTask(pairingStageDelay, func() {
		c.startSimplePairing(addr)
	})
	return hci.Success
}

// IoCapabilityRequestReply records the host capabilities; when both sides
// are known stage 1 starts, otherwise the peer is asked for its
// capabilities.
func (c *LinkLayerController) IoCapabilityRequestReply(peer btvirt.Address, ioCapability hci.IoCapability, oobDataPresent, authenticationRequirements uint8) hci.ErrorCode {
	c.security.SetLocalIoCapability(peer, ioCapability, oobDataPresent, authenticationRequirements)

	pairingType := c.security.GetSimplePairingType()

	if pairingType != PairingInvalid {
		c.ScheduleTask(pairingStageDelay, func() {
			c.authenticateRemoteStage1(peer, pairingType)
		})
		c.sendLinkLayerPacket(ll.NewIoCapabilityResponse(
			c.props.Address, peer, ioCapability, oobDataPresent, authenticationRequirements))
	} else {
		log.Info("requesting remote capability")
		c.sendLinkLayerPacket(ll.NewIoCapabilityRequest(
			c.props.Address, peer, ioCapability, oobDataPresent, authenticationRequirements))
	}

	return hci.Success
}

func (c *LinkLayerController) IoCapabilityRequestNegativeReply(peer btvirt.Address, reason hci.ErrorCode) hci.ErrorCode {
	if c.security.GetAuthenticationAddress() != peer {
		return hci.AuthenticationFailure
	}

	c.security.InvalidateIoCapabilities()

	c.sendLinkLayerPacket(ll.NewIoCapabilityNegativeResponse(c.props.Address, peer, uint8(reason)))

	return hci.Success
}

// UserConfirmationRequestReply concludes stage 1: a link key is derived and
// notified, then stage 2 completes authentication.
func (c *LinkLayerController) UserConfirmationRequestReply(peer btvirt.Address) hci.ErrorCode {
	if c.security.GetAuthenticationAddress() != peer {
		return hci.AuthenticationFailure
	}
	key := c.security.DeriveKey(c.props.Address, peer)
	c.security.WriteKey(peer, key)

	c.security.AuthenticationRequestFinished()

	c.ScheduleTask(pairingStageDelay, func() {
		c.emitEvent(evt.SimplePairingComplete{Status: hci.Success, Addr: peer})
	})

	c.ScheduleTask(pairingStageDelay, func() {
		c.emitEvent(evt.LinkKeyNotification{
			Addr:    peer,
			Key:     key,
			KeyType: hci.KeyTypeAuthenticatedP256,
		})
	})

	c.ScheduleTask(pairingStage2UserDelay, func() {
		c.authenticateRemoteStage2(peer)
	})
	return hci.Success
}

func (c *LinkLayerController) UserConfirmationRequestNegativeReply(peer btvirt.Address) hci.ErrorCode {
	if c.security.GetAuthenticationAddress() != peer {
		return hci.AuthenticationFailure
	}

	c.ScheduleTask(pairingStageDelay, func() {
		c.emitEvent(evt.SimplePairingComplete{Status: hci.AuthenticationFailure, Addr: peer})
	})

	return hci.Success
}

func (c *LinkLayerController) UserPasskeyRequestReply(peer btvirt.Address, numericValue uint32) hci.ErrorCode {
	if c.security.GetAuthenticationAddress() != peer {
		return hci.AuthenticationFailure
	}
	log.Debugf("passkey %06d from host for %s", numericValue, peer)
	return hci.Success
}

func (c *LinkLayerController) UserPasskeyRequestNegativeReply(peer btvirt.Address) hci.ErrorCode {
	if c.security.GetAuthenticationAddress() != peer {
		return hci.AuthenticationFailure
	}
	return hci.Success
}

func (c *LinkLayerController) RemoteOobDataRequestReply(peer btvirt.Address, confirmation, random []byte) hci.ErrorCode {
	if c.security.GetAuthenticationAddress() != peer {
		return hci.AuthenticationFailure
	}
	log.Debugf("oob data from host for %s (c %d bytes, r %d bytes)", peer, len(confirmation), len(random))
	return hci.Success
}

func (c *LinkLayerController) RemoteOobDataRequestNegativeReply(peer btvirt.Address) hci.ErrorCode {
	if c.security.GetAuthenticationAddress() != peer {
		return hci.AuthenticationFailure
	}
	return hci.Success
}

// Link policy and mode commands; the intervals are validated but the modes
// themselves are not modeled.

func (c *LinkLayerController) ChangeConnectionLinkKey(handle uint16) hci.ErrorCode {
	if !c.connections.HasHandle(handle) {
		return hci.UnknownConnection
	}
	return hci.CommandDisallowed
}

func (c *LinkLayerController) MasterLinkKey(keyFlag uint8) hci.ErrorCode {
	_ = keyFlag
	return hci.CommandDisallowed
}

func (c *LinkLayerController) HoldMode(handle uint16, holdModeMaxInterval, holdModeMinInterval uint16) hci.ErrorCode {
	if !c.connections.HasHandle(handle) {
		return hci.UnknownConnection
	}
	if holdModeMaxInterval < holdModeMinInterval {
		return hci.InvalidHciCommandParameters
	}
	return hci.CommandDisallowed
}

func (c *LinkLayerController) SniffMode(handle uint16, sniffMaxInterval, sniffMinInterval, sniffAttempt, sniffTimeout uint16) hci.ErrorCode {
	if !c.connections.HasHandle(handle) {
		return hci.UnknownConnection
	}
	if sniffMaxInterval < sniffMinInterval || sniffAttempt < 0x0001 ||
		sniffAttempt > 0x7FFF || sniffTimeout > 0x7FFF {
		return hci.InvalidHciCommandParameters
	}
	return hci.CommandDisallowed
}

func (c *LinkLayerController) ExitSniffMode(handle uint16) hci.ErrorCode {
	if !c.connections.HasHandle(handle) {
		return hci.UnknownConnection
	}
	return hci.CommandDisallowed
}

func (c *LinkLayerController) QosSetup(handle uint16, serviceType uint8, tokenRate, peakBandwidth, latency, delayVariation uint32) hci.ErrorCode {
	if !c.connections.HasHandle(handle) {
		return hci.UnknownConnection
	}
	if serviceType > 0x02 {
		return hci.InvalidHciCommandParameters
	}
	_, _, _, _ = tokenRate, peakBandwidth, latency, delayVariation
	return hci.CommandDisallowed
}

func (c *LinkLayerController) SwitchRole(addr btvirt.Address, role uint8) hci.ErrorCode {
	_, _ = addr, role
	return hci.CommandDisallowed
}

func (c *LinkLayerController) FlowSpecification(handle uint16, flowDirection, serviceType uint8, tokenRate, tokenBucketSize, peakBandwidth, accessLatency uint32) hci.ErrorCode {
	if !c.connections.HasHandle(handle) {
		return hci.UnknownConnection
	}
	if flowDirection > 0x01 || serviceType > 0x02 {
		return hci.InvalidHciCommandParameters
	}
	_, _, _, _ = tokenRate, tokenBucketSize, peakBandwidth, accessLatency
	return hci.CommandDisallowed
}

func (c *LinkLayerController) WriteLinkPolicySettings(handle uint16, settings uint16) hci.ErrorCode {
	if !c.connections.HasHandle(handle) {
		return hci.UnknownConnection
	}
	_ = settings
	return hci.Success
}

// WriteDefaultLinkPolicySettings accepts any combination of role switch,
// hold, and sniff.
func (c *LinkLayerController) WriteDefaultLinkPolicySettings(settings uint16) hci.ErrorCode {
	if settings > 7 {
		return hci.InvalidHciCommandParameters
	}
	c.defaultLinkPolicySettings = settings
	return hci.Success
}

func (c *LinkLayerController) ReadDefaultLinkPolicySettings() uint16 {
	return c.defaultLinkPolicySettings
}

func (c *LinkLayerController) WriteLinkSupervisionTimeout(handle uint16, timeout uint16) hci.ErrorCode {
	if !c.connections.HasHandle(handle) {
		return hci.UnknownConnection
	}
	_ = timeout
	return hci.Success
}
