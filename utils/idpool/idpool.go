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

// Package idpool hands out process-unique ids from a single source, so
// collaborators that must agree on an id space (a connection map, a DNS
// query table, a worker-event router) never collide.
package idpool

import "go.uber.org/atomic"

// Pool issues monotonically increasing ids. The zero value is not
// usable; construct with New.
type Pool struct {
	next *atomic.Uint64
}

// New creates a new Pool.
func New() *Pool {
	return &Pool{next: atomic.NewUint64(0)}
}

// Next returns the next id. Safe for concurrent use.
func (p *Pool) Next() uint64 {
	return p.next.Inc()
}
