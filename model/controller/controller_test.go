package controller

import (
	"bytes"
	"testing"
	"time"

	"github.com/btvirt/btvirt"
	"github.com/btvirt/btvirt/hci"
	"github.com/btvirt/btvirt/hci/evt"
	"github.com/btvirt/btvirt/ll"
	"github.com/btvirt/btvirt/model/device"
	"github.com/btvirt/btvirt/model/radio"
	"github.com/btvirt/btvirt/model/scheduler"
)

const tickPeriod = 5 * time.Millisecond

// testDevice is one virtual controller wired to a shared scheduler and
// radio, with its host-facing channels recorded.
type testDevice struct {
	ctrl   *LinkLayerController
	addr   btvirt.Address
	events []evt.Event
	acls   []*hci.AclPacket
}

func newTestFleet(t *testing.T, sched *scheduler.Scheduler, opts []device.Option, addrs ...string) []*testDevice {
	t.Helper()

	fabric := radio.NewFabric()
	fleet := make([]*testDevice, 0, len(addrs))

	for _, s := range addrs {
		addr, err := btvirt.NewAddress(s)
		if err != nil {
			t.Fatal(err)
		}
		d := &testDevice{addr: addr}
		d.ctrl = New(device.New(addr, opts...))
		d.ctrl.RegisterEventChannel(func(e evt.Event) { d.events = append(d.events, e) })
		d.ctrl.RegisterAclChannel(func(p *hci.AclPacket) { d.acls = append(d.acls, p) })
		d.ctrl.RegisterTaskScheduler(sched.Schedule)
		d.ctrl.RegisterPeriodicTaskScheduler(sched.SchedulePeriodic)
		d.ctrl.RegisterTaskCancel(sched.Cancel)
		d.ctrl.RegisterClock(sched.Now)

		ep, err := fabric.Attach(func(p *ll.Packet, phy ll.Phy) { d.ctrl.IncomingPacket(p) })
		if err != nil {
			t.Fatal(err)
		}
		d.ctrl.RegisterRemoteChannel(ep.Send)

		sched.SchedulePeriodic(tickPeriod, tickPeriod, d.ctrl.TimerTick)

		fleet = append(fleet, d)
	}
	return fleet
}

func eventsOf[T evt.Event](d *testDevice) []T {
	var out []T
	for _, e := range d.events {
		if v, ok := e.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// connectBrEdr pages b from a and accepts on b, returning both handles.
func connectBrEdr(t *testing.T, sched *scheduler.Scheduler, a, b *testDevice) (uint16, uint16) {
	t.Helper()

	b.ctrl.SetPageScanEnable(true)
	if status := a.ctrl.CreateConnection(b.addr, 1); status != hci.Success {
		t.Fatalf("CreateConnection: %s", status)
	}

	sched.AdvanceBy(60 * time.Millisecond)
	requests := eventsOf[evt.ConnectionRequest](b)
	if len(requests) != 1 {
		t.Fatalf("connection requests at B: %d, want 1", len(requests))
	}
	if requests[0].Addr != a.addr {
		t.Fatalf("connection request from %s, want %s", requests[0].Addr, a.addr)
	}

	if status := b.ctrl.AcceptConnectionRequest(a.addr, 1); status != hci.Success {
		t.Fatalf("AcceptConnectionRequest: %s", status)
	}
	sched.AdvanceBy(300 * time.Millisecond)

	aComplete := eventsOf[evt.ConnectionComplete](a)
	bComplete := eventsOf[evt.ConnectionComplete](b)
	if len(aComplete) != 1 || len(bComplete) != 1 {
		t.Fatalf("connection completes: A %d, B %d", len(aComplete), len(bComplete))
	}
	for _, cc := range []evt.ConnectionComplete{aComplete[0], bComplete[0]} {
		if cc.Status != hci.Success {
			t.Fatalf("connection complete status %s", cc.Status)
		}
		if cc.Handle == ReservedHandle {
			t.Fatal("connection complete with reserved handle")
		}
		if cc.LinkType != hci.LinkTypeAcl {
			t.Fatalf("link type %d", cc.LinkType)
		}
		if cc.EncryptionEnabled != hci.Disabled {
			t.Fatal("new link reported encrypted")
		}
	}
	if aComplete[0].Addr != b.addr || bComplete[0].Addr != a.addr {
		t.Fatal("connection complete peer mismatch")
	}
	return aComplete[0].Handle, bComplete[0].Handle
}

func TestBrEdrConnectionEstablishment(t *testing.T) {
	sched := scheduler.New()
	fleet := newTestFleet(t, sched, nil, "01:02:03:04:05:06", "0a:0b:0c:0d:0e:0f")
	a, b := fleet[0], fleet[1]

	hA, hB := connectBrEdr(t, sched, a, b)

	if !a.ctrl.Connections().HasHandle(hA) {
		t.Fatal("A lost its handle")
	}
	if !b.ctrl.Connections().HasHandle(hB) {
		t.Fatal("B lost its handle")
	}
	if got := a.ctrl.Connections().GetHandleOnlyAddress(b.addr); got != hA {
		t.Fatalf("A handle lookup %04x, want %04x", got, hA)
	}
}

func TestCreateConnectionBusy(t *testing.T) {
	sched := scheduler.New()
	fleet := newTestFleet(t, sched, nil, "01:02:03:04:05:06", "0a:0b:0c:0d:0e:0f")
	a, b := fleet[0], fleet[1]

	if status := a.ctrl.CreateConnection(b.addr, 0); status != hci.Success {
		t.Fatalf("first CreateConnection: %s", status)
	}
	if status := a.ctrl.CreateConnection(b.addr, 0); status != hci.ControllerBusy {
		t.Fatalf("second CreateConnection: %s, want controller busy", status)
	}
	if status := a.ctrl.CreateConnectionCancel(b.addr); status != hci.Success {
		t.Fatalf("CreateConnectionCancel: %s", status)
	}
	if status := a.ctrl.CreateConnectionCancel(b.addr); status != hci.UnknownConnection {
		t.Fatalf("second CreateConnectionCancel: %s, want unknown connection", status)
	}
}

func TestRejectConnectionRequest(t *testing.T) {
	sched := scheduler.New()
	fleet := newTestFleet(t, sched, nil, "01:02:03:04:05:06", "0a:0b:0c:0d:0e:0f")
	a, b := fleet[0], fleet[1]

	b.ctrl.SetPageScanEnable(true)
	a.ctrl.CreateConnection(b.addr, 0)
	sched.AdvanceBy(60 * time.Millisecond)

	const reason = uint8(hci.ConnectionAcceptTimeout)
	if status := b.ctrl.RejectConnectionRequest(a.addr, reason); status != hci.Success {
		t.Fatalf("RejectConnectionRequest: %s", status)
	}
	sched.AdvanceBy(300 * time.Millisecond)

	aComplete := eventsOf[evt.ConnectionComplete](a)
	if len(aComplete) != 1 {
		t.Fatalf("connection completes at A: %d", len(aComplete))
	}
	if aComplete[0].Status != hci.ErrorCode(reason) {
		t.Fatalf("status %s, want %s", aComplete[0].Status, hci.ErrorCode(reason))
	}
	if aComplete[0].Handle != rejectedConnectionHandle {
		t.Fatalf("handle %04x, want %04x", aComplete[0].Handle, rejectedConnectionHandle)
	}
}

func TestDisconnect(t *testing.T) {
	sched := scheduler.New()
	fleet := newTestFleet(t, sched, nil, "01:02:03:04:05:06", "0a:0b:0c:0d:0e:0f")
	a, b := fleet[0], fleet[1]

	hA, hB := connectBrEdr(t, sched, a, b)

	const reason = uint8(hci.RemoteUserTerminatedConnection)
	if status := a.ctrl.Disconnect(hA, reason); status != hci.Success {
		t.Fatalf("Disconnect: %s", status)
	}
	sched.AdvanceBy(100 * time.Millisecond)

	aDone := eventsOf[evt.DisconnectionComplete](a)
	if len(aDone) != 1 {
		t.Fatalf("disconnection completes at A: %d", len(aDone))
	}
	if aDone[0].Handle != hA || aDone[0].Status != hci.Success ||
		aDone[0].Reason != hci.ConnectionTerminatedByLocalHost {
		t.Fatalf("A disconnection complete %+v", aDone[0])
	}

	bDone := eventsOf[evt.DisconnectionComplete](b)
	if len(bDone) != 1 {
		t.Fatalf("disconnection completes at B: %d", len(bDone))
	}
	// The remote side reports the reason carried by the disconnect packet.
	if bDone[0].Handle != hB || bDone[0].Reason != hci.ErrorCode(reason) {
		t.Fatalf("B disconnection complete %+v", bDone[0])
	}

	if a.ctrl.Connections().HasHandle(hA) || b.ctrl.Connections().HasHandle(hB) {
		t.Fatal("handle live after disconnect")
	}

	if status := a.ctrl.Disconnect(hA, reason); status != hci.UnknownConnection {
		t.Fatalf("disconnect of dead handle: %s", status)
	}
}

func TestInquiry(t *testing.T) {
	sched := scheduler.New()
	fleet := newTestFleet(t, sched, nil,
		"01:02:03:04:05:06", "0a:0b:0c:0d:0e:0f", "11:22:33:44:55:66")
	a, b, c := fleet[0], fleet[1], fleet[2]

	b.ctrl.SetInquiryScanEnable(true)
	c.ctrl.SetInquiryScanEnable(true)

	a.ctrl.StartInquiry(4000 * time.Millisecond)
	sched.AdvanceBy(4200 * time.Millisecond)

	results := eventsOf[evt.InquiryResult](a)
	// Two emission windows inside the timeout, two scanners.
	if len(results) != 4 {
		t.Fatalf("inquiry results: %d, want 4", len(results))
	}
	perPeer := make(map[btvirt.Address]int)
	for _, r := range results {
		perPeer[r.Addr]++
	}
	if perPeer[b.addr] != 2 || perPeer[c.addr] != 2 {
		t.Fatalf("results per peer: %v", perPeer)
	}

	complete := eventsOf[evt.InquiryComplete](a)
	if len(complete) != 1 {
		t.Fatalf("inquiry completes: %d, want 1", len(complete))
	}
	if complete[0].Status != hci.Success {
		t.Fatalf("inquiry complete status %s", complete[0].Status)
	}
}

func TestInquiryCancel(t *testing.T) {
	sched := scheduler.New()
	fleet := newTestFleet(t, sched, nil, "01:02:03:04:05:06")
	a := fleet[0]

	a.ctrl.StartInquiry(4000 * time.Millisecond)
	sched.AdvanceBy(100 * time.Millisecond)
	a.ctrl.InquiryCancel()
	sched.AdvanceBy(5000 * time.Millisecond)

	if n := len(eventsOf[evt.InquiryComplete](a)); n != 0 {
		t.Fatalf("inquiry completes after cancel: %d", n)
	}
}

func TestInquiryModeRssi(t *testing.T) {
	sched := scheduler.New()
	fleet := newTestFleet(t, sched, nil, "01:02:03:04:05:06", "0a:0b:0c:0d:0e:0f")
	a, b := fleet[0], fleet[1]

	b.ctrl.SetInquiryScanEnable(true)
	a.ctrl.SetInquiryMode(uint8(ll.InquiryTypeRssi))
	a.ctrl.StartInquiry(1000 * time.Millisecond)
	sched.AdvanceBy(1100 * time.Millisecond)

	results := eventsOf[evt.InquiryResultWithRssi](a)
	if len(results) != 1 {
		t.Fatalf("rssi inquiry results: %d, want 1", len(results))
	}
	if results[0].Addr != b.addr {
		t.Fatalf("result from %s", results[0].Addr)
	}
}

func TestInquiryScanGating(t *testing.T) {
	sched := scheduler.New()
	fleet := newTestFleet(t, sched, nil, "01:02:03:04:05:06", "0a:0b:0c:0d:0e:0f")
	a := fleet[0]

	// B never enables inquiry scan.
	a.ctrl.StartInquiry(1000 * time.Millisecond)
	sched.AdvanceBy(1100 * time.Millisecond)

	if n := len(eventsOf[evt.InquiryResult](a)); n != 0 {
		t.Fatalf("inquiry results without inquiry scan: %d", n)
	}
}

func TestAddressFilterDropsForeignPackets(t *testing.T) {
	sched := scheduler.New()
	fleet := newTestFleet(t, sched, nil, "01:02:03:04:05:06", "0a:0b:0c:0d:0e:0f")
	b := fleet[1]

	b.ctrl.SetPageScanEnable(true)
	other := btvirt.MustNewAddress("11:22:33:44:55:66")
	b.ctrl.IncomingPacket(ll.NewPage(fleet[0].addr, other, 0x30201, 0))

	if len(b.events) != 0 {
		t.Fatalf("events after foreign packet: %d", len(b.events))
	}
}

func TestRemoteNameAndFeatureQueries(t *testing.T) {
	sched := scheduler.New()
	fleet := newTestFleet(t, sched, []device.Option{device.WithName("peer-device")},
		"01:02:03:04:05:06", "0a:0b:0c:0d:0e:0f")
	a, b := fleet[0], fleet[1]

	hA, _ := connectBrEdr(t, sched, a, b)

	if status := a.ctrl.SendCommandToRemoteByHandle(hci.OpRemoteNameRequest, hA, 0); status != hci.Success {
		t.Fatalf("remote name request: %s", status)
	}
	sched.AdvanceBy(200 * time.Millisecond)

	names := eventsOf[evt.RemoteNameRequestComplete](a)
	if len(names) != 1 || names[0].RemoteName != "peer-device" {
		t.Fatalf("remote name events %+v", names)
	}
	// The LMP features ride along with a remote name request.
	if n := len(eventsOf[evt.RemoteHostSupportedFeaturesNotification](a)); n != 1 {
		t.Fatalf("lmp feature notifications: %d", n)
	}

	if status := a.ctrl.SendCommandToRemoteByHandle(hci.OpReadRemoteVersionInformation, hA, 0); status != hci.Success {
		t.Fatalf("version request: %s", status)
	}
	sched.AdvanceBy(200 * time.Millisecond)
	versions := eventsOf[evt.ReadRemoteVersionInformationComplete](a)
	if len(versions) != 1 {
		t.Fatalf("version completes: %d", len(versions))
	}
	if versions[0].LmpVersion != b.ctrl.Properties().LmpVersion {
		t.Fatalf("lmp version %d", versions[0].LmpVersion)
	}

	if status := a.ctrl.SendCommandToRemoteByHandle(hci.OpReadClockOffset, hA, 0); status != hci.Success {
		t.Fatalf("clock offset request: %s", status)
	}
	sched.AdvanceBy(200 * time.Millisecond)
	offsets := eventsOf[evt.ReadClockOffsetComplete](a)
	if len(offsets) != 1 || offsets[0].Offset != b.ctrl.Properties().ClockOffset {
		t.Fatalf("clock offset completes %+v", offsets)
	}

	// An out-of-range features page is answered with an error status.
	if status := a.ctrl.SendCommandToRemoteByHandle(hci.OpReadRemoteExtendedFeatures, hA, 7); status != hci.Success {
		t.Fatalf("extended features request: %s", status)
	}
	sched.AdvanceBy(200 * time.Millisecond)
	features := eventsOf[evt.ReadRemoteExtendedFeaturesComplete](a)
	if len(features) != 1 || features[0].Status != hci.InvalidLmpOrLlParameters {
		t.Fatalf("extended features completes %+v", features)
	}

	if status := a.ctrl.SendCommandToRemoteByHandle(hci.OpRemoteNameRequest, 0x0123, 0); status != hci.UnknownConnection {
		t.Fatalf("request on unknown handle: %s", status)
	}
}

func TestAclFragmentation(t *testing.T) {
	sched := scheduler.New()
	fabric := []device.Option{device.WithAclDataPacketSize(100)}
	fleet := newTestFleet(t, sched, fabric, "01:02:03:04:05:06", "0a:0b:0c:0d:0e:0f")
	a, b := fleet[0], fleet[1]

	hA, _ := connectBrEdr(t, sched, a, b)

	payload := make([]byte, 300)
	for i := range payload {
		payload[i] = byte(i)
	}
	status := a.ctrl.SendAclToRemote(&hci.AclPacket{
		Handle:             hA,
		PacketBoundaryFlag: hci.FirstNonAutomaticallyFlushable,
		BroadcastFlag:      hci.PointToPoint,
		Payload:            payload,
	})
	if status != hci.Success {
		t.Fatalf("SendAclToRemote: %s", status)
	}

	sched.AdvanceBy(100 * time.Millisecond)

	completed := eventsOf[evt.NumberOfCompletedPackets](a)
	if len(completed) != 1 || len(completed[0].Packets) != 1 ||
		completed[0].Packets[0].Handle != hA || completed[0].Packets[0].Count != 1 {
		t.Fatalf("number of completed packets %+v", completed)
	}

	if len(b.acls) != 3 {
		t.Fatalf("acl fragments at B: %d, want 3", len(b.acls))
	}
	if b.acls[0].PacketBoundaryFlag != hci.FirstAutomaticallyFlushable {
		t.Fatalf("first fragment pbf %d", b.acls[0].PacketBoundaryFlag)
	}
	for _, frag := range b.acls[1:] {
		if frag.PacketBoundaryFlag != hci.ContinuingFragment {
			t.Fatalf("continuation fragment pbf %d", frag.PacketBoundaryFlag)
		}
	}
	var reassembled []byte
	for _, frag := range b.acls {
		if frag.BroadcastFlag != hci.PointToPoint {
			t.Fatal("broadcast flag not preserved")
		}
		if frag.Handle == ReservedHandle {
			t.Fatal("fragment with reserved handle")
		}
		reassembled = append(reassembled, frag.Payload...)
	}
	if !bytes.Equal(reassembled, payload) {
		t.Fatal("payload not reassembled")
	}

	if status := a.ctrl.SendAclToRemote(&hci.AclPacket{Handle: 0x0456}); status != hci.UnknownConnection {
		t.Fatalf("acl on unknown handle: %s", status)
	}
}

func TestSimplePairingDisplayYesNo(t *testing.T) {
	sched := scheduler.New()
	fleet := newTestFleet(t, sched, nil, "01:02:03:04:05:06", "0a:0b:0c:0d:0e:0f")
	a, b := fleet[0], fleet[1]

	hA, hB := connectBrEdr(t, sched, a, b)

	// B's host starts authentication; the missing key leads into the IO
	// capability exchange.
	if status := b.ctrl.AuthenticationRequested(hB); status != hci.Success {
		t.Fatalf("AuthenticationRequested: %s", status)
	}
	sched.AdvanceBy(20 * time.Millisecond)
	if n := len(eventsOf[evt.LinkKeyRequest](b)); n != 1 {
		t.Fatalf("link key requests at B: %d", n)
	}
	if status := b.ctrl.LinkKeyRequestNegativeReply(a.addr); status != hci.Success {
		t.Fatalf("LinkKeyRequestNegativeReply: %s", status)
	}
	sched.AdvanceBy(20 * time.Millisecond)
	if n := len(eventsOf[evt.IoCapabilityRequest](b)); n != 1 {
		t.Fatalf("io capability requests at B: %d", n)
	}

	// B's host provides its capabilities; the peer's are still unknown, so
	// the request goes over the air.
	if status := b.ctrl.IoCapabilityRequestReply(a.addr, hci.IoCapDisplayYesNo, 0, 0); status != hci.Success {
		t.Fatalf("IoCapabilityRequestReply at B: %s", status)
	}
	sched.AdvanceBy(100 * time.Millisecond)

	if n := len(eventsOf[evt.IoCapabilityResponse](a)); n != 1 {
		t.Fatalf("io capability responses at A: %d", n)
	}
	if n := len(eventsOf[evt.IoCapabilityRequest](a)); n != 1 {
		t.Fatalf("io capability requests at A: %d", n)
	}

	if status := a.ctrl.IoCapabilityRequestReply(b.addr, hci.IoCapDisplayYesNo, 0, 0); status != hci.Success {
		t.Fatalf("IoCapabilityRequestReply at A: %s", status)
	}
	sched.AdvanceBy(100 * time.Millisecond)

	aConfirm := eventsOf[evt.UserConfirmationRequest](a)
	if len(aConfirm) != 1 || aConfirm[0].NumericValue != 123456 {
		t.Fatalf("user confirmation at A %+v", aConfirm)
	}
	bConfirm := eventsOf[evt.UserConfirmationRequest](b)
	if len(bConfirm) != 1 || bConfirm[0].NumericValue != 123456 {
		t.Fatalf("user confirmation at B %+v", bConfirm)
	}

	// Replies from the wrong peer are refused.
	other := btvirt.MustNewAddress("11:22:33:44:55:66")
	if status := a.ctrl.UserConfirmationRequestReply(other); status != hci.AuthenticationFailure {
		t.Fatalf("confirmation for wrong peer: %s", status)
	}

	if status := a.ctrl.UserConfirmationRequestReply(b.addr); status != hci.Success {
		t.Fatalf("UserConfirmationRequestReply at A: %s", status)
	}
	if status := b.ctrl.UserConfirmationRequestReply(a.addr); status != hci.Success {
		t.Fatalf("UserConfirmationRequestReply at B: %s", status)
	}
	sched.AdvanceBy(50 * time.Millisecond)

	for _, d := range []*testDevice{a, b} {
		pairing := eventsOf[evt.SimplePairingComplete](d)
		if len(pairing) != 1 || pairing[0].Status != hci.Success {
			t.Fatalf("simple pairing completes %+v", pairing)
		}
		keys := eventsOf[evt.LinkKeyNotification](d)
		if len(keys) != 1 {
			t.Fatalf("link key notifications: %d", len(keys))
		}
		if keys[0].KeyType != hci.KeyTypeAuthenticatedP256 {
			t.Fatalf("key type %d", keys[0].KeyType)
		}
		if keys[0].Key == ([16]byte{}) {
			t.Fatal("zero link key notified")
		}
	}

	aAuth := eventsOf[evt.AuthenticationComplete](a)
	if len(aAuth) != 1 || aAuth[0].Status != hci.Success || aAuth[0].Handle != hA {
		t.Fatalf("authentication completes at A %+v", aAuth)
	}
	bAuth := eventsOf[evt.AuthenticationComplete](b)
	if len(bAuth) != 1 || bAuth[0].Status != hci.Success || bAuth[0].Handle != hB {
		t.Fatalf("authentication completes at B %+v", bAuth)
	}
}

func TestBrEdrEncryption(t *testing.T) {
	sched := scheduler.New()
	fleet := newTestFleet(t, sched, nil, "01:02:03:04:05:06", "0a:0b:0c:0d:0e:0f")
	a, b := fleet[0], fleet[1]

	hA, _ := connectBrEdr(t, sched, a, b)

	// Without a key the command is refused.
	if status := a.ctrl.SetConnectionEncryption(hA, 1); status != hci.PinOrKeyMissing {
		t.Fatalf("encryption without key: %s", status)
	}

	key := a.ctrl.SecurityManager().DeriveKey(a.addr, b.addr)
	a.ctrl.SecurityManager().WriteKey(b.addr, key)
	b.ctrl.SecurityManager().WriteKey(a.addr, key)

	if status := a.ctrl.SetConnectionEncryption(hA, 1); status != hci.Success {
		t.Fatalf("SetConnectionEncryption: %s", status)
	}
	sched.AdvanceBy(200 * time.Millisecond)

	aChanges := eventsOf[evt.EncryptionChange](a)
	if len(aChanges) != 1 || aChanges[0].Enabled != hci.EncryptionOn || aChanges[0].Status != hci.Success {
		t.Fatalf("encryption changes at A %+v", aChanges)
	}
	bChanges := eventsOf[evt.EncryptionChange](b)
	if len(bChanges) != 1 || bChanges[0].Enabled != hci.EncryptionOn {
		t.Fatalf("encryption changes at B %+v", bChanges)
	}

	if status := a.ctrl.SetConnectionEncryption(0x0999, 1); status != hci.UnknownConnection {
		t.Fatalf("encryption on unknown handle: %s", status)
	}
}

func TestLeAdvertisingEnableValidation(t *testing.T) {
	sched := scheduler.New()
	fleet := newTestFleet(t, sched, nil, "01:02:03:04:05:06")
	a := fleet[0]

	props := a.ctrl.Properties()
	props.LeAdvertisingOwnAddressType = btvirt.RandomDeviceAddress

	props.LeAddress = btvirt.MustNewAddress("bb:bb:bb:ba:d0:1e")
	if status := a.ctrl.SetLeAdvertisingEnable(1); status != hci.InvalidHciCommandParameters {
		t.Fatalf("enable with placeholder address: %s", status)
	}

	props.LeAddress = btvirt.AddressEmpty
	if status := a.ctrl.SetLeAdvertisingEnable(1); status != hci.InvalidHciCommandParameters {
		t.Fatalf("enable with empty address: %s", status)
	}

	props.LeAddress = btvirt.MustNewAddress("c0:11:ec:7a:b1:e5")
	if status := a.ctrl.SetLeAdvertisingEnable(1); status != hci.Success {
		t.Fatalf("enable with configured address: %s", status)
	}
	if status := a.ctrl.SetLeAdvertisingEnable(0); status != hci.Success {
		t.Fatalf("disable: %s", status)
	}

	// An interval below the minimum is refused.
	props.LeAdvertisingIntervalMin = 8
	props.LeAdvertisingIntervalMax = 8
	if status := a.ctrl.SetLeAdvertisingEnable(1); status != hci.InvalidHciCommandParameters {
		t.Fatalf("enable below minimum interval: %s", status)
	}
}

func TestLeAdvertisingAndActiveScan(t *testing.T) {
	sched := scheduler.New()
	fleet := newTestFleet(t, sched, []device.Option{
		device.WithLeAdvertisement([]byte{0x02, 0x01, 0x06}),
		device.WithLeScanResponse([]byte{0x04, 0x09, 'a', 'd', 'v'}),
	}, "01:02:03:04:05:06", "0a:0b:0c:0d:0e:0f")
	a, b := fleet[0], fleet[1]

	if status := a.ctrl.SetLeAdvertisingEnable(1); status != hci.Success {
		t.Fatalf("SetLeAdvertisingEnable: %s", status)
	}

	b.ctrl.SetLeAddress(btvirt.MustNewAddress("0b:0b:0b:0b:0b:0b"))
	b.ctrl.SetLeScanType(hci.LeScanTypeActive)
	b.ctrl.SetLeScanEnable(hci.LeScanModeLegacy)

	sched.AdvanceBy(500 * time.Millisecond)

	reports := eventsOf[evt.LeAdvertisingReport](b)
	if len(reports) < 2 {
		t.Fatalf("advertising reports at B: %d, want at least 2", len(reports))
	}
	var advReports, srReports int
	for _, r := range reports {
		switch r.EventType {
		case uint8(ll.AdvInd):
			advReports++
			if !bytes.Equal(r.Data, []byte{0x02, 0x01, 0x06}) {
				t.Fatal("advertisement data mismatch")
			}
		case uint8(ll.ScanResponse):
			srReports++
			if !bytes.Equal(r.Data, []byte{0x04, 0x09, 'a', 'd', 'v'}) {
				t.Fatal("scan response data mismatch")
			}
		}
		if r.Addr != a.addr {
			t.Fatalf("report from %s", r.Addr)
		}
	}
	if advReports == 0 || srReports == 0 {
		t.Fatalf("adv %d, scan response %d reports; want both", advReports, srReports)
	}
}

func TestLeConnectionEstablishment(t *testing.T) {
	sched := scheduler.New()
	fleet := newTestFleet(t, sched, []device.Option{
		device.WithLeAdvertisement([]byte{0x02, 0x01, 0x06}),
	}, "01:02:03:04:05:06", "0a:0b:0c:0d:0e:0f")
	a, b := fleet[0], fleet[1]

	if status := a.ctrl.SetLeAdvertisingEnable(1); status != hci.Success {
		t.Fatalf("SetLeAdvertisingEnable: %s", status)
	}

	b.ctrl.SetLeConnectionParameters(0x20, 0x40, 0, 0x0100)
	b.ctrl.SetLeAddressType(btvirt.PublicDeviceAddress)
	b.ctrl.SetLeConnect(true, a.addr, btvirt.PublicDeviceAddress)

	sched.AdvanceBy(500 * time.Millisecond)

	aComplete := eventsOf[evt.LeConnectionComplete](a)
	bComplete := eventsOf[evt.LeConnectionComplete](b)
	if len(aComplete) != 1 || len(bComplete) != 1 {
		t.Fatalf("le connection completes: A %d, B %d", len(aComplete), len(bComplete))
	}
	if aComplete[0].Status != hci.Success || bComplete[0].Status != hci.Success {
		t.Fatal("le connection complete failure status")
	}
	if aComplete[0].Role != hci.RoleSlave {
		t.Fatalf("A role %d, want slave", aComplete[0].Role)
	}
	if bComplete[0].Role != hci.RoleMaster {
		t.Fatalf("B role %d, want master", bComplete[0].Role)
	}
	if bComplete[0].PeerAddress != a.addr {
		t.Fatalf("B peer %s", bComplete[0].PeerAddress)
	}
	// Interval is the midpoint of the armed range.
	if bComplete[0].ConnInterval != 0x30 {
		t.Fatalf("interval %#x, want 0x30", bComplete[0].ConnInterval)
	}
}

func TestLeEncryption(t *testing.T) {
	sched := scheduler.New()
	fleet := newTestFleet(t, sched, []device.Option{
		device.WithLeAdvertisement([]byte{0x02, 0x01, 0x06}),
	}, "01:02:03:04:05:06", "0a:0b:0c:0d:0e:0f")
	a, b := fleet[0], fleet[1]

	a.ctrl.SetLeAdvertisingEnable(1)
	b.ctrl.SetLeConnectionParameters(0x20, 0x40, 0, 0x0100)
	b.ctrl.SetLeConnect(true, a.addr, btvirt.PublicDeviceAddress)
	sched.AdvanceBy(500 * time.Millisecond)

	hA := eventsOf[evt.LeConnectionComplete](a)[0].Handle
	hB := eventsOf[evt.LeConnectionComplete](b)[0].Handle

	ltk := [16]byte{0xde, 0xad, 0xbe, 0xef, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	randVal := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}

	if status := b.ctrl.LeEnableEncryption(hB, randVal, 0x1234, ltk); status != hci.Success {
		t.Fatalf("LeEnableEncryption: %s", status)
	}
	sched.AdvanceBy(100 * time.Millisecond)

	ltkRequests := eventsOf[evt.LeLongTermKeyRequest](a)
	if len(ltkRequests) != 1 || ltkRequests[0].Handle != hA ||
		ltkRequests[0].Ediv != 0x1234 || ltkRequests[0].Rand != randVal {
		t.Fatalf("ltk requests at A %+v", ltkRequests)
	}

	if status := a.ctrl.LeLongTermKeyRequestReply(hA, ltk); status != hci.Success {
		t.Fatalf("LeLongTermKeyRequestReply: %s", status)
	}
	sched.AdvanceBy(100 * time.Millisecond)

	if !a.ctrl.Connections().IsEncrypted(hA) {
		t.Fatal("A link not encrypted")
	}
	if !b.ctrl.Connections().IsEncrypted(hB) {
		t.Fatal("B link not encrypted")
	}
	aChanges := eventsOf[evt.EncryptionChange](a)
	bChanges := eventsOf[evt.EncryptionChange](b)
	if len(aChanges) != 1 || len(bChanges) != 1 {
		t.Fatalf("encryption changes: A %d, B %d", len(aChanges), len(bChanges))
	}

	// Re-encrypting an encrypted link refreshes the key instead.
	b.ctrl.LeEnableEncryption(hB, randVal, 0x1234, ltk)
	sched.AdvanceBy(100 * time.Millisecond)
	a.ctrl.LeLongTermKeyRequestReply(hA, ltk)
	sched.AdvanceBy(100 * time.Millisecond)

	if n := len(eventsOf[evt.EncryptionKeyRefreshComplete](a)); n != 1 {
		t.Fatalf("key refreshes at A: %d", n)
	}
	if n := len(eventsOf[evt.EncryptionKeyRefreshComplete](b)); n != 1 {
		t.Fatalf("key refreshes at B: %d", n)
	}
}

func TestLeEncryptionNegativeReply(t *testing.T) {
	sched := scheduler.New()
	fleet := newTestFleet(t, sched, []device.Option{
		device.WithLeAdvertisement([]byte{0x02, 0x01, 0x06}),
	}, "01:02:03:04:05:06", "0a:0b:0c:0d:0e:0f")
	a, b := fleet[0], fleet[1]

	a.ctrl.SetLeAdvertisingEnable(1)
	b.ctrl.SetLeConnectionParameters(0x20, 0x40, 0, 0x0100)
	b.ctrl.SetLeConnect(true, a.addr, btvirt.PublicDeviceAddress)
	sched.AdvanceBy(500 * time.Millisecond)

	hA := eventsOf[evt.LeConnectionComplete](a)[0].Handle
	hB := eventsOf[evt.LeConnectionComplete](b)[0].Handle

	b.ctrl.LeEnableEncryption(hB, [8]byte{}, 0, [16]byte{1})
	sched.AdvanceBy(100 * time.Millisecond)

	if status := a.ctrl.LeLongTermKeyRequestNegativeReply(hA); status != hci.Success {
		t.Fatalf("LeLongTermKeyRequestNegativeReply: %s", status)
	}
	sched.AdvanceBy(100 * time.Millisecond)

	// A zero LTK in the response is reported as an authentication failure.
	bChanges := eventsOf[evt.EncryptionChange](b)
	if len(bChanges) != 1 || bChanges[0].Status != hci.AuthenticationFailure {
		t.Fatalf("encryption changes at B %+v", bChanges)
	}
}

func TestLeConnectionUpdate(t *testing.T) {
	sched := scheduler.New()
	fleet := newTestFleet(t, sched, []device.Option{
		device.WithLeAdvertisement([]byte{0x02, 0x01, 0x06}),
	}, "01:02:03:04:05:06", "0a:0b:0c:0d:0e:0f")
	a, b := fleet[0], fleet[1]

	a.ctrl.SetLeAdvertisingEnable(1)
	b.ctrl.SetLeConnectionParameters(0x20, 0x40, 0, 0x0100)
	b.ctrl.SetLeConnect(true, a.addr, btvirt.PublicDeviceAddress)
	sched.AdvanceBy(500 * time.Millisecond)

	hB := eventsOf[evt.LeConnectionComplete](b)[0].Handle

	if status := b.ctrl.LeConnectionUpdate(0x0999, 6, 12, 0, 0x0100); status != hci.UnknownConnection {
		t.Fatalf("update on unknown handle: %s", status)
	}

	if status := b.ctrl.LeConnectionUpdate(hB, 6, 12, 0, 0x0100); status != hci.Success {
		t.Fatalf("LeConnectionUpdate: %s", status)
	}
	sched.AdvanceBy(50 * time.Millisecond)

	updates := eventsOf[evt.LeConnectionUpdateComplete](b)
	if len(updates) != 1 || updates[0].Status != hci.Success || updates[0].ConnInterval != 9 {
		t.Fatalf("connection updates %+v", updates)
	}

	// Interval ordering violations surface in the completion status.
	b.ctrl.LeConnectionUpdate(hB, 12, 6, 0, 0x0100)
	sched.AdvanceBy(50 * time.Millisecond)
	updates = eventsOf[evt.LeConnectionUpdateComplete](b)
	if len(updates) != 2 || updates[1].Status != hci.InvalidHciCommandParameters {
		t.Fatalf("connection updates %+v", updates)
	}
}

func TestLinkPolicyCommands(t *testing.T) {
	sched := scheduler.New()
	fleet := newTestFleet(t, sched, nil, "01:02:03:04:05:06", "0a:0b:0c:0d:0e:0f")
	a, b := fleet[0], fleet[1]

	hA, _ := connectBrEdr(t, sched, a, b)
	ctrl := a.ctrl

	if status := ctrl.HoldMode(hA, 1, 2); status != hci.InvalidHciCommandParameters {
		t.Fatalf("hold mode interval ordering: %s", status)
	}
	if status := ctrl.HoldMode(hA, 2, 1); status != hci.CommandDisallowed {
		t.Fatalf("hold mode: %s", status)
	}
	if status := ctrl.SniffMode(hA, 2, 1, 0, 0); status != hci.InvalidHciCommandParameters {
		t.Fatalf("sniff mode attempt range: %s", status)
	}
	if status := ctrl.SniffMode(hA, 2, 1, 1, 1); status != hci.CommandDisallowed {
		t.Fatalf("sniff mode: %s", status)
	}
	if status := ctrl.QosSetup(hA, 3, 0, 0, 0, 0); status != hci.InvalidHciCommandParameters {
		t.Fatalf("qos service type range: %s", status)
	}
	if status := ctrl.SwitchRole(b.addr, 0); status != hci.CommandDisallowed {
		t.Fatalf("switch role: %s", status)
	}
	if status := ctrl.WriteDefaultLinkPolicySettings(8); status != hci.InvalidHciCommandParameters {
		t.Fatalf("default link policy range: %s", status)
	}
	if status := ctrl.WriteDefaultLinkPolicySettings(7); status != hci.Success {
		t.Fatalf("default link policy: %s", status)
	}
	if got := ctrl.ReadDefaultLinkPolicySettings(); got != 7 {
		t.Fatalf("default link policy readback: %d", got)
	}
	if status := ctrl.WriteLinkPolicySettings(hA, 1); status != hci.Success {
		t.Fatalf("link policy: %s", status)
	}
	if status := ctrl.WriteLinkSupervisionTimeout(hA, 0x7D00); status != hci.Success {
		t.Fatalf("link supervision timeout: %s", status)
	}
	if status := ctrl.WriteLinkPolicySettings(0x0999, 1); status != hci.UnknownConnection {
		t.Fatalf("link policy on unknown handle: %s", status)
	}
}

func TestChangeConnectionPacketType(t *testing.T) {
	sched := scheduler.New()
	fleet := newTestFleet(t, sched, nil, "01:02:03:04:05:06", "0a:0b:0c:0d:0e:0f")
	a, b := fleet[0], fleet[1]

	hA, _ := connectBrEdr(t, sched, a, b)

	if status := a.ctrl.ChangeConnectionPacketType(hA, 0xCC18); status != hci.Success {
		t.Fatalf("ChangeConnectionPacketType: %s", status)
	}
	sched.AdvanceBy(50 * time.Millisecond)

	changed := eventsOf[evt.ConnectionPacketTypeChanged](a)
	if len(changed) != 1 || changed[0].PacketType != 0xCC18 || changed[0].Handle != hA {
		t.Fatalf("packet type changed %+v", changed)
	}
}

func TestConnectAndResolvingLists(t *testing.T) {
	sched := scheduler.New()
	fleet := newTestFleet(t, sched, nil, "01:02:03:04:05:06")
	ctrl := fleet[0].ctrl

	addr := btvirt.MustNewAddress("0a:0b:0c:0d:0e:0f")
	ctrl.LeConnectListAddDevice(addr, btvirt.PublicDeviceAddress)
	ctrl.LeConnectListAddDevice(addr, btvirt.PublicDeviceAddress)
	if !ctrl.LeConnectListContainsDevice(addr, btvirt.PublicDeviceAddress) {
		t.Fatal("connect list missing device")
	}
	if ctrl.LeConnectListContainsDevice(addr, btvirt.RandomDeviceAddress) {
		t.Fatal("connect list matched wrong address type")
	}
	ctrl.LeConnectListRemoveDevice(addr, btvirt.PublicDeviceAddress)
	if ctrl.LeConnectListContainsDevice(addr, btvirt.PublicDeviceAddress) {
		t.Fatal("connect list kept removed device")
	}

	var irk [16]byte
	irk[0] = 1
	ctrl.LeResolvingListAddDevice(addr, btvirt.PublicDeviceAddress, irk, irk)
	if !ctrl.LeResolvingListContainsDevice(addr, btvirt.PublicDeviceAddress) {
		t.Fatal("resolving list missing device")
	}
	ctrl.LeResolvingListRemoveDevice(addr, btvirt.PublicDeviceAddress)
	if ctrl.LeResolvingListContainsDevice(addr, btvirt.PublicDeviceAddress) {
		t.Fatal("resolving list kept removed device")
	}

	for i := 0; i < int(fleet[0].ctrl.Properties().LeConnectListSize); i++ {
		ctrl.LeConnectListAddDevice(btvirt.Address{0, 0, 0, 0, 0, byte(i + 1)}, btvirt.PublicDeviceAddress)
	}
	if !ctrl.LeConnectListFull() {
		t.Fatal("connect list not full")
	}
	ctrl.LeConnectListClear()
	if ctrl.LeConnectListFull() {
		t.Fatal("connect list full after clear")
	}
}

func TestLeConnectViaConnectList(t *testing.T) {
	sched := scheduler.New()
	fleet := newTestFleet(t, sched, []device.Option{
		device.WithLeAdvertisement([]byte{0x02, 0x01, 0x06}),
	}, "01:02:03:04:05:06", "0a:0b:0c:0d:0e:0f")
	a, b := fleet[0], fleet[1]

	a.ctrl.SetLeAdvertisingEnable(1)

	// Arm the connect toward nobody in particular; the connect list decides.
	b.ctrl.SetLeConnectionParameters(0x20, 0x40, 0, 0x0100)
	b.ctrl.LeConnectListAddDevice(a.addr, btvirt.PublicDeviceAddress)
	b.ctrl.SetLeConnect(true, btvirt.AddressEmpty, btvirt.PublicDeviceAddress)

	sched.AdvanceBy(500 * time.Millisecond)

	if n := len(eventsOf[evt.LeConnectionComplete](b)); n != 1 {
		t.Fatalf("le connection completes at B: %d", n)
	}
}

func TestResetClearsTransientState(t *testing.T) {
	sched := scheduler.New()
	fleet := newTestFleet(t, sched, []device.Option{
		device.WithLeAdvertisement([]byte{0x02, 0x01, 0x06}),
	}, "01:02:03:04:05:06")
	a := fleet[0]

	a.ctrl.SetLeAdvertisingEnable(1)
	a.ctrl.SetLeScanEnable(hci.LeScanModeLegacy)
	a.ctrl.StartInquiry(10 * time.Second)

	a.ctrl.Reset()
	sched.AdvanceBy(15 * time.Second)

	if n := len(eventsOf[evt.InquiryComplete](a)); n != 0 {
		t.Fatalf("inquiry completes after reset: %d", n)
	}
	if n := len(eventsOf[evt.LeAdvertisingReport](a)); n != 0 {
		t.Fatalf("advertising reports after reset: %d", n)
	}
}
