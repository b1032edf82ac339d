package controller

import (
	"testing"
	"time"

	"github.com/btvirt/btvirt"
	"github.com/btvirt/btvirt/hci"
	"github.com/btvirt/btvirt/ll"
)

func testAdvertiser() *Advertiser {
	a := &Advertiser{}
	a.Initialize(
		btvirt.AddressWithType{Address: btvirt.MustNewAddress("01:02:03:04:05:06")},
		btvirt.AddressWithType{},
		hci.ScanFilterAcceptAll,
		ll.AdvInd,
		[]byte{0x02, 0x01, 0x06},
		[]byte{0x05, 0x09, 'a', 'd', 'v'},
		100*time.Millisecond)
	return a
}

func TestAdvertiserBeaconPacing(t *testing.T) {
	a := testAdvertiser()
	now := time.Time{}

	if a.GetAdvertisement(now) != nil {
		t.Fatal("disabled advertiser emitted a beacon")
	}

	a.Enable()
	p := a.GetAdvertisement(now)
	if p == nil {
		t.Fatal("no beacon after enable")
	}
	if p.Type() != ll.PacketTypeLeAdvertisement {
		t.Fatalf("beacon type %s", p.Type())
	}
	if p.Destination != btvirt.AddressEmpty {
		t.Fatal("beacon is not broadcast")
	}

	if a.GetAdvertisement(now.Add(50*time.Millisecond)) != nil {
		t.Fatal("beacon emitted before the interval elapsed")
	}
	if a.GetAdvertisement(now.Add(100*time.Millisecond)) == nil {
		t.Fatal("no beacon after the interval elapsed")
	}
}

func TestAdvertiserScanResponse(t *testing.T) {
	a := testAdvertiser()
	own := btvirt.MustNewAddress("01:02:03:04:05:06")
	scanner := btvirt.MustNewAddress("0a:0b:0c:0d:0e:0f")

	if a.GetScanResponse(own, scanner) != nil {
		t.Fatal("disabled advertiser answered a scan")
	}

	a.Enable()
	p := a.GetScanResponse(own, scanner)
	if p == nil {
		t.Fatal("no scan response")
	}
	if p.Type() != ll.PacketTypeLeScanResponse {
		t.Fatalf("scan response type %s", p.Type())
	}
	if p.Destination != scanner {
		t.Fatal("scan response not addressed to the scanner")
	}

	other := btvirt.MustNewAddress("11:22:33:44:55:66")
	if a.GetScanResponse(other, scanner) != nil {
		t.Fatal("advertiser answered a scan for another address")
	}
}

func TestAdvertiserFilterPolicy(t *testing.T) {
	a := testAdvertiser()
	own := btvirt.MustNewAddress("01:02:03:04:05:06")
	listed := btvirt.MustNewAddress("0a:0b:0c:0d:0e:0f")
	unlisted := btvirt.MustNewAddress("11:22:33:44:55:66")

	a.filterPolicy = hci.ScanFilterConnectListOnly
	a.peerAddress = btvirt.AddressWithType{Address: listed}
	a.Enable()

	if a.GetScanResponse(own, unlisted) != nil {
		t.Fatal("filter policy admitted an unlisted scanner")
	}
	if a.GetScanResponse(own, listed) == nil {
		t.Fatal("filter policy rejected the listed scanner")
	}
}

func TestAdvertiserClear(t *testing.T) {
	a := testAdvertiser()
	a.Enable()
	a.Clear()

	if a.IsEnabled() {
		t.Fatal("cleared advertiser still enabled")
	}
	if a.GetAdvertisement(time.Time{}) != nil {
		t.Fatal("cleared advertiser emitted a beacon")
	}
}

func TestAdvertiserExtendedDuration(t *testing.T) {
	a := testAdvertiser()
	now := time.Time{}

	a.EnableExtended(150 * time.Millisecond)
	if a.GetAdvertisement(now) == nil {
		t.Fatal("no beacon after extended enable")
	}
	if a.GetAdvertisement(now.Add(100*time.Millisecond)) == nil {
		t.Fatal("no beacon inside the duration window")
	}
	if a.GetAdvertisement(now.Add(300*time.Millisecond)) != nil {
		t.Fatal("beacon after the duration expired")
	}
	if a.IsEnabled() {
		t.Fatal("advertiser still enabled after expiry")
	}
}
