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

import "github.com/uber-go/tally"

// metrics groups the per-outcome counters and latency timer emitted
// for every completed announce.
type metrics struct {
	success        tally.Counter
	trackerFailure tally.Counter
	invalidResp    tally.Counter
	dnsError       tally.Counter
	ioError        tally.Counter
	timeout        tally.Counter
	latency        tally.Timer
	inFlight       tally.Gauge
}

func newMetrics(scope tally.Scope) *metrics {
	outcomes := scope.SubScope("announce")
	return &metrics{
		success:        outcomes.Tagged(map[string]string{"result": "success"}).Counter("total"),
		trackerFailure: outcomes.Tagged(map[string]string{"result": "tracker_failure"}).Counter("total"),
		invalidResp:    outcomes.Tagged(map[string]string{"result": "invalid_response"}).Counter("total"),
		dnsError:       outcomes.Tagged(map[string]string{"result": "dns_error"}).Counter("total"),
		ioError:        outcomes.Tagged(map[string]string{"result": "io_error"}).Counter("total"),
		timeout:        outcomes.Tagged(map[string]string{"result": "timeout"}).Counter("total"),
		latency:        outcomes.Timer("latency"),
		inFlight:       outcomes.Gauge("in_flight"),
	}
}

func (m *metrics) recordErr(err error) {
	switch KindOf(err) {
	case TrackerFailure:
		m.trackerFailure.Inc(1)
	case InvalidResponse:
		m.invalidResp.Inc(1)
	case DNS:
		m.dnsError.Inc(1)
	case Timeout:
		m.timeout.Inc(1)
	default:
		m.ioError.Inc(1)
	}
}
