package controller

import (
	"time"

	"github.com/btvirt/btvirt"
	"github.com/btvirt/btvirt/hci"
	"github.com/btvirt/btvirt/ll"
)

// Advertiser owns one LE advertising set: its parameters and the pacing of
// its beacon.
type Advertiser struct {
	enabled bool

	ownAddress   btvirt.AddressWithType
	peerAddress  btvirt.AddressWithType
	filterPolicy hci.LeScanningFilterPolicy
	advType      ll.AdvertisementType
	interval     time.Duration

	advertisement []byte
	scanResponse  []byte

	lastAdvertisement time.Time
	hasAdvertised     bool

	// Extended sets may carry an enable duration; zero means unlimited.
	// The window is anchored to the first beacon opportunity after enable.
	duration  time.Duration
	endsAt    time.Time
	hasExpiry bool
}

// Initialize configures a legacy advertising set.
func (a *Advertiser) Initialize(own, peer btvirt.AddressWithType, filterPolicy hci.LeScanningFilterPolicy, advType ll.AdvertisementType, advertisement, scanResponse []byte, interval time.Duration) {
	a.ownAddress = own
	a.peerAddress = peer
	a.filterPolicy = filterPolicy
	a.advType = advType
	a.advertisement = advertisement
	a.scanResponse = scanResponse
	a.interval = interval
}

// InitializeExtended configures an extended set; the address itself arrives
// separately via SetAddress.
func (a *Advertiser) InitializeExtended(ownAddressType btvirt.AddressType, peer btvirt.AddressWithType, filterPolicy hci.LeScanningFilterPolicy, advType ll.AdvertisementType, interval time.Duration) {
	a.ownAddress = btvirt.AddressWithType{Type: ownAddressType}
	a.peerAddress = peer
	a.filterPolicy = filterPolicy
	a.advType = advType
	a.interval = interval
}

// SetAddress sets the set's advertising address, keeping its type.
func (a *Advertiser) SetAddress(addr btvirt.Address) {
	a.ownAddress.Address = addr
}

// GetAddress returns the set's advertising address.
func (a *Advertiser) GetAddress() btvirt.AddressWithType {
	return a.ownAddress
}

// SetData replaces the advertisement payload.
func (a *Advertiser) SetData(data []byte) {
	a.advertisement = data
}

// SetScanResponse replaces the scan-response payload.
func (a *Advertiser) SetScanResponse(data []byte) {
	a.scanResponse = data
}

func (a *Advertiser) Enable() {
	a.enabled = true
	a.hasAdvertised = false
	a.hasExpiry = false
}

// EnableExtended enables the set for a bounded duration; zero means no
// bound. The expiry is armed against the next beacon emission.
func (a *Advertiser) EnableExtended(duration time.Duration) {
	a.enabled = true
	a.hasAdvertised = false
	a.hasExpiry = duration > 0
	a.duration = duration
	a.endsAt = time.Time{}
}

func (a *Advertiser) Disable() {
	a.enabled = false
}

// Clear resets the set to its unconfigured state.
func (a *Advertiser) Clear() {
	*a = Advertiser{}
}

func (a *Advertiser) IsEnabled() bool {
	return a.enabled
}

// GetAdvertisement emits the set's beacon when the interval elapsed,
// updating the pacing state; otherwise nil.
func (a *Advertiser) GetAdvertisement(now time.Time) *ll.Packet {
	if !a.enabled {
		return nil
	}
	if a.hasExpiry {
		if a.endsAt.IsZero() {
			a.endsAt = now.Add(a.duration)
		} else if !now.Before(a.endsAt) {
			a.enabled = false
			return nil
		}
	}
	if a.hasAdvertised && now.Sub(a.lastAdvertisement) < a.interval {
		return nil
	}
	a.lastAdvertisement = now
	a.hasAdvertised = true

	return ll.NewLeAdvertisement(a.ownAddress.Address, btvirt.AddressEmpty, a.ownAddress.Type, a.advType, a.advertisement)
}

// GetScanResponse answers an LE scan addressed to this set, when the filter
// policy admits the scanner.
func (a *Advertiser) GetScanResponse(destination, source btvirt.Address) *ll.Packet {
	if !a.enabled || destination != a.ownAddress.Address {
		return nil
	}
	switch a.filterPolicy {
	case hci.ScanFilterConnectListOnly,
		hci.ScanFilterCheckInitiatorsIdentity,
		hci.ScanFilterConnectListAndInitiatorsIdentity:
		if source != a.peerAddress.Address {
			return nil
		}
	}

	return ll.NewLeScanResponse(a.ownAddress.Address, source, a.ownAddress.Type, ll.ScanResponse, a.scanResponse)
}
