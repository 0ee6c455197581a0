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
	"context"
	"net/url"
	"time"

	"github.com/coriolis-labs/trackerd/core"
)

// phase is the coarse stage of an in-flight announce, tracked by the
// dispatcher for logging and timeout bookkeeping. The fine-grained
// write/read stepping happens inside the worker goroutine; the
// dispatcher only ever sees phase transitions, never partial I/O.
type phase int

const (
	phaseResolvingDNS phase = iota
	phaseConnecting
	phaseReading
)

func (p phase) String() string {
	switch p {
	case phaseResolvingDNS:
		return "resolving_dns"
	case phaseConnecting:
		return "connecting"
	case phaseReading:
		return "reading"
	default:
		return "unknown"
	}
}

// record is the dispatcher's bookkeeping for a single in-flight
// announce, keyed by an internally allocated id distinct from the
// caller's TorrentID.
type record struct {
	id   uint64
	req  core.AnnounceRequest
	u    *url.URL
	host string
	port uint16

	curPhase   phase
	started    time.Time
	lastActive time.Time

	cancel context.CancelFunc
}

func newRecord(id uint64, req core.AnnounceRequest, u *url.URL, host string, port uint16, now time.Time, cancel context.CancelFunc) *record {
	return &record{
		id:         id,
		req:        req,
		u:          u,
		host:       host,
		port:       port,
		curPhase:   phaseResolvingDNS,
		started:    now,
		lastActive: now,
		cancel:     cancel,
	}
}

func (r *record) touch(now time.Time, p phase) {
	r.lastActive = now
	r.curPhase = p
}

func (r *record) expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(r.lastActive) > timeout
}
