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
	"time"

	"golang.org/x/time/rate"
)

// Config defines Dispatcher / Handler configuration.
type Config struct {
	// Timeout is the inactivity budget for an in-flight announce.
	// Reset on every DNS, write, or read event it receives.
	Timeout time.Duration `yaml:"timeout"`

	// TickInterval is how often the handler sweeps for timed-out
	// records.
	TickInterval time.Duration `yaml:"tick_interval"`

	// DialTimeout bounds the TCP connect step. The original
	// non-blocking-connect design has no separate connect timeout
	// because a stalled connect is caught by the inactivity timeout;
	// the blocking net.Dialer used here needs an explicit bound instead.
	DialTimeout time.Duration `yaml:"dial_timeout"`

	// MaxResponseBytes caps the accumulated response buffer, so a
	// tracker that never closes its write half can't grow the buffer
	// without bound.
	MaxResponseBytes int64 `yaml:"max_response_bytes"`

	// RequestQueueSize is the buffer depth of the inbound announce
	// request queue.
	RequestQueueSize int `yaml:"request_queue_size"`

	// DialRatePerSec and DialBurst configure the token-bucket limiter
	// applied to outbound connect attempts, so a client re-announcing
	// many torrents at once doesn't open a connect storm against one
	// or many trackers.
	DialRatePerSec float64 `yaml:"dial_rate_per_sec"`
	DialBurst      int     `yaml:"dial_burst"`

	// PeerID is the 20-byte client identifier sent with every
	// announce. Fixed for the lifetime of the process.
	PeerID [20]byte `yaml:"-"`

	// NumWantStarted / NumWantDefault mirror the wire defaults for the
	// numwant query parameter.
	NumWantStarted int `yaml:"num_want_started"`
	NumWantDefault int `yaml:"num_want_default"`
}

func (c Config) applyDefaults() Config {
	if c.Timeout == 0 {
		c.Timeout = 2500 * time.Millisecond
	}
	if c.TickInterval == 0 {
		c.TickInterval = 150 * time.Millisecond
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.MaxResponseBytes == 0 {
		c.MaxResponseBytes = 2 << 20 // 2MiB
	}
	if c.RequestQueueSize == 0 {
		c.RequestQueueSize = 128
	}
	if c.DialRatePerSec == 0 {
		c.DialRatePerSec = 50
	}
	if c.DialBurst == 0 {
		c.DialBurst = 10
	}
	if c.NumWantStarted == 0 {
		c.NumWantStarted = 50
	}
	if c.NumWantDefault == 0 {
		c.NumWantDefault = 20
	}
	return c
}

// dialLimiter builds the rate.Limiter described by c.
func (c Config) dialLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(c.DialRatePerSec), c.DialBurst)
}
