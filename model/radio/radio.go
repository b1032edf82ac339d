// Package radio is the in-process medium connecting virtual controllers.
// Every attached endpoint hears every transmission; address filtering is the
// receiving controller's job, exactly as on the air.
package radio

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/btvirt/btvirt/ll"
)

// A Sink receives packets delivered by the fabric.
type Sink func(p *ll.Packet, phy ll.Phy)

// Fabric is the shared medium. It performs no filtering and no timing; the
// controllers schedule their own transmission delays. Delivery follows
// attachment order.
type Fabric struct {
	mu        sync.Mutex
	endpoints []*Endpoint
}

func NewFabric() *Fabric {
	return &Fabric{}
}

// Endpoint is one device's tap on the fabric.
type Endpoint struct {
	id     uuid.UUID
	fabric *Fabric
	sink   Sink
}

// ID names the endpoint on its fabric.
func (e *Endpoint) ID() uuid.UUID { return e.id }

// Attach adds a device to the fabric.
func (f *Fabric) Attach(sink Sink) (*Endpoint, error) {
	if sink == nil {
		return nil, errors.New("radio: nil sink")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	e := &Endpoint{id: uuid.New(), fabric: f, sink: sink}
	f.endpoints = append(f.endpoints, e)
	return e, nil
}

// Detach removes a device from the fabric.
func (f *Fabric) Detach(e *Endpoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, other := range f.endpoints {
		if other.id == e.id {
			f.endpoints = append(f.endpoints[:i], f.endpoints[i+1:]...)
			return nil
		}
	}
	return errors.Errorf("radio: unknown endpoint %s", e.id)
}

// Send delivers the packet to every other endpoint synchronously.
func (e *Endpoint) Send(p *ll.Packet, phy ll.Phy) {
	if !p.Valid() {
		return
	}

	e.fabric.mu.Lock()
	sinks := make([]Sink, 0, len(e.fabric.endpoints))
	for _, other := range e.fabric.endpoints {
		if other.id == e.id {
			continue
		}
		sinks = append(sinks, other.sink)
	}
	e.fabric.mu.Unlock()

	for _, sink := range sinks {
		sink(p, phy)
	}
}
