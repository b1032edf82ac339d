package hci

// AclPacket is an HCI ACL data packet exchanged with the host. The byte
// layout of the transport header is the host interface's concern; the
// controller works with the decoded form.
type AclPacket struct {
	Handle             uint16
	PacketBoundaryFlag PacketBoundaryFlag
	BroadcastFlag      BroadcastFlag
	Payload            []byte
}
