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

// Package announce implements the HTTP tracker announce engine: it
// multiplexes many concurrent announces over a single dispatcher
// goroutine, resolving hostnames and running the connect/request/parse
// sequence for each on dedicated worker goroutines that report back
// by event.
package announce

import (
	"context"
	"net"
	"sync"

	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/coriolis-labs/trackerd/core"
	"github.com/coriolis-labs/trackerd/tracker/dns"
	"github.com/coriolis-labs/trackerd/tracker/udp"
	"github.com/coriolis-labs/trackerd/utils/idpool"
)

// Dispatcher is the single-mutator engine behind the announce
// subsystem. All of its state -- the record table -- is touched only
// from its own run loop goroutine; every other goroutine communicates
// with it exclusively by sending events or by using the Announce /
// Responses / Stop methods, which are the only parts of this type
// safe to call concurrently.
type Dispatcher struct {
	config  Config
	clk     clock.Clock
	log     *zap.SugaredLogger
	metrics *metrics

	ids      *idpool.Pool
	resolver *dns.Resolver
	udp      *udp.Handler
	limiter  *rate.Limiter

	records map[uint64]*record

	events    chan event
	requests  chan core.AnnounceRequest
	responses chan core.AnnounceResponse

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New constructs a Dispatcher. The caller owns starting it (Start)
// and stopping it (Stop); New performs no I/O and spawns no
// goroutines.
func New(
	config Config,
	clk clock.Clock,
	log *zap.SugaredLogger,
	scope tally.Scope,
	resolver *dns.Resolver,
	udpHandler *udp.Handler,
) (*Dispatcher, error) {

	config = config.applyDefaults()
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if scope == nil {
		scope = tally.NoopScope
	}

	return &Dispatcher{
		config:    config,
		clk:       clk,
		log:       log,
		metrics:   newMetrics(scope),
		ids:       idpool.New(),
		resolver:  resolver,
		udp:       udpHandler,
		limiter:   config.dialLimiter(),
		records:   make(map[uint64]*record),
		events:    make(chan event, config.RequestQueueSize),
		requests:  make(chan core.AnnounceRequest, config.RequestQueueSize),
		responses: make(chan core.AnnounceResponse, config.RequestQueueSize),
	}, nil
}

// Start launches the dispatcher's run loop.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
}

// Announce submits req for processing. It returns false without
// blocking if the request queue is full.
func (d *Dispatcher) Announce(req core.AnnounceRequest) bool {
	select {
	case d.requests <- req:
		return true
	default:
		return false
	}
}

// Responses is the channel on which announce outcomes are delivered,
// tagged by TorrentID. A failed stopping announce delivers nothing; a
// successful one is delivered like any other. A response is dropped
// (and logged) if the channel's buffer is full.
func (d *Dispatcher) Responses() <-chan core.AnnounceResponse {
	return d.responses
}

// Stop drains in-flight records and halts the run loop. Safe to call
// more than once.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		done := make(chan struct{})
		d.events <- stopEvent{done: done}
		<-done
		d.wg.Wait()
	})
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	ticker := d.clk.Ticker(d.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case req := <-d.requests:
			requestEvent{req: req}.apply(d)
		case qr := <-d.resolver.Results():
			dnsResolvedEvent{id: qr.ID, ip: qr.IP, err: qr.Err}.apply(d)
		case <-ticker.C:
			tickEvent{}.apply(d)
		case ev := <-d.events:
			ev.apply(d)
			if _, ok := ev.(stopEvent); ok {
				return
			}
		}
	}
}

func (d *Dispatcher) handleRequest(req core.AnnounceRequest) {
	u, err := parseAnnounceURL(req.URL)
	if err != nil {
		d.deliver(core.AnnounceResponse{TorrentID: req.TorrentID, Err: err})
		return
	}

	if u.Scheme == "udp" {
		if err := d.udp.NewAnnounce(req.URL); err != nil {
			d.deliver(core.AnnounceResponse{
				TorrentID: req.TorrentID,
				Err:       newError(InvalidRequest, "udp tracker: %s", err),
			})
		}
		return
	}

	host, port := hostPort(u)
	id := d.ids.Next()
	ctx, cancel := context.WithTimeout(context.Background(), d.config.Timeout)

	rec := newRecord(id, req, u, host, port, d.clk.Now(), cancel)
	d.records[id] = rec
	d.metrics.inFlight.Update(float64(len(d.records)))

	d.resolver.NewQuery(ctx, id, host)
}

func (d *Dispatcher) handleDNSResolved(id uint64, ip net.IP, err error) {
	rec, ok := d.records[id]
	if !ok {
		return
	}
	if err != nil {
		d.finish(rec, nil, newError(DNS, "resolve %s: %s", rec.host, err))
		return
	}

	rec.touch(d.clk.Now(), phaseConnecting)

	reqBuf, berr := buildGETRequest(rec.req, rec.u, d.config)
	if berr != nil {
		d.finish(rec, nil, berr)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.config.Timeout)
	rec.cancel()
	rec.cancel = cancel

	go runWorker(ctx, d.config, id, ip, rec.port, reqBuf, d.limiter, d.events)
}

func (d *Dispatcher) handlePhase(id uint64, p phase) {
	if rec, ok := d.records[id]; ok {
		rec.touch(d.clk.Now(), p)
	}
}

func (d *Dispatcher) handleDone(id uint64, resp *core.TrackerResponse) {
	rec, ok := d.records[id]
	if !ok {
		return
	}
	d.finish(rec, resp, nil)
}

func (d *Dispatcher) handleErr(id uint64, err error) {
	rec, ok := d.records[id]
	if !ok {
		return
	}
	d.finish(rec, nil, err)
}

func (d *Dispatcher) handleTick() {
	now := d.clk.Now()
	for _, rec := range d.records {
		if rec.expired(now, d.config.Timeout) {
			d.finish(rec, nil, newError(Timeout, "announce to %s timed out in phase %s", rec.host, rec.curPhase))
		}
	}
	d.udp.Tick()
}

func (d *Dispatcher) handleStop() {
	for _, rec := range d.records {
		rec.cancel()
	}
	d.records = make(map[uint64]*record)
}

// finish removes rec from the record table before delivering its
// outcome -- a record is never visible to a second tick or event once
// its terminal outcome has been decided.
func (d *Dispatcher) finish(rec *record, resp *core.TrackerResponse, err error) {
	delete(d.records, rec.id)
	rec.cancel()
	d.metrics.inFlight.Update(float64(len(d.records)))
	d.metrics.latency.Record(d.clk.Now().Sub(rec.started))

	if err != nil {
		d.metrics.recordErr(err)
		d.log.Debugw("announce failed", "torrent_id", rec.req.TorrentID, "host", rec.host, "error", err)
	} else {
		d.metrics.success.Inc(1)
	}

	if rec.req.Stopping() && err != nil {
		// Best-effort: a failed "stopped" announce never delivers a
		// response to the caller. A successful one still does.
		return
	}

	d.deliver(core.AnnounceResponse{TorrentID: rec.req.TorrentID, Result: resp, Err: err})
}

func (d *Dispatcher) deliver(resp core.AnnounceResponse) {
	select {
	case d.responses <- resp:
	default:
		d.log.Warnw("dropping announce response, queue full", "torrent_id", resp.TorrentID)
	}
}
