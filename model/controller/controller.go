// Package controller implements the link-layer state machine of one virtual
// Bluetooth controller. It terminates host commands on one side and
// exchanges typed link-layer packets with peer controllers on the other,
// driving all deferred work through a registered task scheduler.
//
// The controller is single-threaded by contract: host commands, incoming
// packets, and timer callbacks must be serialized by the owning event loop.
// It never blocks and never takes locks.
package controller

import (
	"time"

	"github.com/btvirt/btvirt"
	"github.com/btvirt/btvirt/hci"
	"github.com/btvirt/btvirt/hci/evt"
	"github.com/btvirt/btvirt/ll"
	"github.com/btvirt/btvirt/model/device"
	"github.com/btvirt/btvirt/model/scheduler"
)

var log = btvirt.GetLogger().ChildLogger(map[string]interface{}{"pkg": "controller"})

// Transmission and procedure delays.
const (
	llTransmitDelay        = 50 * time.Millisecond
	pageResponseDelay      = 200 * time.Millisecond
	disconnectCleanupDelay = 20 * time.Millisecond
	pairingStageDelay      = 5 * time.Millisecond
	pairingStage2UserDelay = 15 * time.Millisecond
	aclCompletedDelay      = 1 * time.Millisecond
	connectionUpdateDelay  = 25 * time.Millisecond
	packetTypeChangedDelay = 20 * time.Millisecond
	inquiryEmitWindow      = 2000 * time.Millisecond
)

type connectListEntry struct {
	addr     btvirt.Address
	addrType btvirt.AddressType
}

type resolvingListEntry struct {
	addr     btvirt.Address
	addrType btvirt.AddressType
	peerIrk  [16]byte
	localIrk [16]byte
}

// LinkLayerController is one virtual controller instance.
type LinkLayerController struct {
	props       *device.Properties
	connections *AclConnections
	security    *SecurityManager
	advertisers []Advertiser

	// Outbound channels, registered by the owning device.
	sendEvent    func(evt.Event)
	sendAcl      func(*hci.AclPacket)
	sendSco      func([]byte)
	sendIso      func([]byte)
	sendToRemote func(*ll.Packet, ll.Phy)

	// Deferred-task hooks, registered by the owning device.
	scheduleTask     func(time.Duration, func()) scheduler.TaskID
	schedulePeriodic func(time.Duration, time.Duration, func()) scheduler.TaskID
	cancelTask       func(scheduler.TaskID)
	clock            func() time.Time

	// Inquiry state.
	inquiryTimer        scheduler.TaskID
	lastInquiry         time.Time
	everInquired        bool
	inquiryMode         ll.InquiryType
	inquiryLap          uint64
	inquiryMaxResponses uint8
	inquiryScansEnabled bool
	pageScansEnabled    bool

	// LE scanning and initiating state.
	leScanEnable                   hci.LeScanMode
	leScanType                     uint8
	leConnect                      bool
	lePeerAddress                  btvirt.Address
	lePeerAddressType              btvirt.AddressType
	leAddressType                  btvirt.AddressType
	leConnectionIntervalMin        uint16
	leConnectionIntervalMax        uint16
	leConnectionLatency            uint16
	leConnectionSupervisionTimeout uint16

	leConnectList   []connectListEntry
	leResolvingList []resolvingListEntry

	defaultLinkPolicySettings uint16

	// Stepping pseudo-RSSI; owned per instance so runs are reproducible.
	rssi uint8
}

// New creates a controller around the given device properties.
func New(props *device.Properties) *LinkLayerController {
	return &LinkLayerController{
		props:       props,
		connections: NewAclConnections(),
		security:    NewSecurityManager(),
		advertisers: make([]Advertiser, props.NumAdvertisingSets),
	}
}

// Properties exposes the device properties the controller answers with.
func (c *LinkLayerController) Properties() *device.Properties {
	return c.props
}

// Connections exposes the live connection table.
func (c *LinkLayerController) Connections() *AclConnections {
	return c.connections
}

// SecurityManager exposes the pairing and key state.
func (c *LinkLayerController) SecurityManager() *SecurityManager {
	return c.security
}

// RegisterEventChannel directs HCI events to the host.
func (c *LinkLayerController) RegisterEventChannel(send func(evt.Event)) {
	c.sendEvent = send
}

// RegisterAclChannel directs ACL data to the host.
func (c *LinkLayerController) RegisterAclChannel(send func(*hci.AclPacket)) {
	c.sendAcl = send
}

// RegisterScoChannel directs SCO data to the host.
func (c *LinkLayerController) RegisterScoChannel(send func([]byte)) {
	c.sendSco = send
}

// RegisterIsoChannel directs ISO data to the host.
func (c *LinkLayerController) RegisterIsoChannel(send func([]byte)) {
	c.sendIso = send
}

// RegisterRemoteChannel directs link-layer packets to the radio.
func (c *LinkLayerController) RegisterRemoteChannel(send func(*ll.Packet, ll.Phy)) {
	c.sendToRemote = send
}

// RegisterTaskScheduler provides the one-shot deferred-task hook.
func (c *LinkLayerController) RegisterTaskScheduler(schedule func(time.Duration, func()) scheduler.TaskID) {
	c.scheduleTask = schedule
}

// RegisterPeriodicTaskScheduler provides the periodic hook.
func (c *LinkLayerController) RegisterPeriodicTaskScheduler(schedule func(time.Duration, time.Duration, func()) scheduler.TaskID) {
	c.schedulePeriodic = schedule
}

// RegisterTaskCancel provides the cancellation hook.
func (c *LinkLayerController) RegisterTaskCancel(cancel func(scheduler.TaskID)) {
	c.cancelTask = cancel
}

// RegisterClock provides the time source behind interval checks. Without it
// the controller falls back to wall time.
func (c *LinkLayerController) RegisterClock(now func() time.Time) {
	c.clock = now
}

// ScheduleTask defers fn by delay. Without a registered scheduler fn runs
// inline and the returned id is invalid.
func (c *LinkLayerController) ScheduleTask(delay time.Duration, fn func()) scheduler.TaskID {
	if c.scheduleTask != nil {
		return c.scheduleTask(delay, fn)
	}
	fn()
	return scheduler.InvalidTaskID
}

// CancelScheduledTask drops a pending task, best effort.
func (c *LinkLayerController) CancelScheduledTask(id scheduler.TaskID) {
	if c.scheduleTask != nil && c.cancelTask != nil {
		c.cancelTask(id)
	}
}

func (c *LinkLayerController) now() time.Time {
	if c.clock != nil {
		return c.clock()
	}
	return time.Now()
}

func (c *LinkLayerController) emitEvent(e evt.Event) {
	if c.sendEvent == nil {
		log.Warn("no event channel registered, dropping ", e.Name())
		return
	}
	c.sendEvent(e)
}

// sendLinkLayerPacket transmits on the BR/EDR phy after the air delay.
func (c *LinkLayerController) sendLinkLayerPacket(p *ll.Packet) {
	c.transmit(p, ll.PhyBrEdr)
}

// sendLeLinkLayerPacket transmits on the LE phy after the air delay.
func (c *LinkLayerController) sendLeLinkLayerPacket(p *ll.Packet) {
	c.transmit(p, ll.PhyLowEnergy)
}

func (c *LinkLayerController) transmit(p *ll.Packet, phy ll.Phy) {
	c.ScheduleTask(llTransmitDelay, func() {
		if c.sendToRemote == nil {
			log.Warn("no remote channel registered, dropping ", p.Type().String())
			return
		}
		c.sendToRemote(p, phy)
	})
}

// getRssi steps the pseudo-RSSI stub and returns it negated.
func (c *LinkLayerController) getRssi() uint8 {
	c.rssi += 5
	if c.rssi > 128 {
		c.rssi = c.rssi % 7
	}
	return -c.rssi
}

// TimerTick drives the periodic work: inquiry re-emission and advertising.
func (c *LinkLayerController) TimerTick() {
	if c.inquiryTimer != scheduler.InvalidTaskID {
		c.inquiry()
	}
	c.leAdvertising()
}

func (c *LinkLayerController) leAdvertising() {
	now := c.now()
	for i := range c.advertisers {
		ad := c.advertisers[i].GetAdvertisement(now)
		if ad == nil {
			continue
		}
		c.sendLeLinkLayerPacket(ad)
	}
}

// Reset stops inquiry, disables every advertising set, and disarms LE scan
// and connect. Connections, link keys, the connect and resolving lists, and
// the page/inquiry scan settings are kept.
func (c *LinkLayerController) Reset() {
	if c.inquiryTimer != scheduler.InvalidTaskID {
		c.CancelScheduledTask(c.inquiryTimer)
		c.inquiryTimer = scheduler.InvalidTaskID
	}
	c.everInquired = false
	c.leScanEnable = hci.LeScanModeNone
	c.LeDisableAdvertisingSets()
	c.leConnect = false
}
