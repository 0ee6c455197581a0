// Copyright (c) 2024 Coriolis Labs, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package announce

import (
	"net"

	"github.com/coriolis-labs/trackerd/core"
)

// event is one state transition applied to the dispatcher by its own
// goroutine. Every mutation of the dispatcher's record map happens
// through apply -- the dispatcher goroutine is the sole mutator, and
// every other goroutine (DNS lookups, connection workers, the public
// Announce/Stop calls) only ever sends events.
type event interface {
	apply(d *Dispatcher)
}

// requestEvent admits a new announce into the dispatcher.
type requestEvent struct {
	req core.AnnounceRequest
}

func (e requestEvent) apply(d *Dispatcher) {
	d.handleRequest(e.req)
}

// dnsResolvedEvent delivers a resolver outcome for a pending record.
type dnsResolvedEvent struct {
	id  uint64
	ip  net.IP
	err error
}

func (e dnsResolvedEvent) apply(d *Dispatcher) {
	d.handleDNSResolved(e.id, e.ip, e.err)
}

// phaseEvent reports a coarse progress transition from a worker
// goroutine -- used only to reset the inactivity clock and for
// logging, never to drive I/O from the dispatcher side.
type phaseEvent struct {
	id    uint64
	phase phase
}

func (e phaseEvent) apply(d *Dispatcher) {
	d.handlePhase(e.id, e.phase)
}

// doneEvent delivers a successful terminal outcome from a worker.
type doneEvent struct {
	id   uint64
	resp *core.TrackerResponse
}

func (e doneEvent) apply(d *Dispatcher) {
	d.handleDone(e.id, e.resp)
}

// errEvent delivers a failed terminal outcome from a worker. DNS
// failures arrive as dnsResolvedEvent, and the timeout sweep finishes
// records directly.
type errEvent struct {
	id  uint64
	err error
}

func (e errEvent) apply(d *Dispatcher) {
	d.handleErr(e.id, e.err)
}

// tickEvent drives the periodic timeout sweep.
type tickEvent struct{}

func (e tickEvent) apply(d *Dispatcher) {
	d.handleTick()
}

// stopEvent drains in-flight records and halts the run loop.
type stopEvent struct {
	done chan struct{}
}

func (e stopEvent) apply(d *Dispatcher) {
	d.handleStop()
	close(e.done)
}
