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

// Package dns resolves tracker hostnames off the dispatcher goroutine,
// delivering results asynchronously by id so the dispatcher never
// blocks on a lookup.
package dns

import (
	"context"
	"errors"
	"net"
)

// ErrNoAddress is returned when a lookup succeeds but yields no usable
// IPv4 address.
var ErrNoAddress = errors.New("no A record found")

// QueryResponse is the outcome of a single NewQuery call, delivered on
// Results().
type QueryResponse struct {
	ID  uint64
	IP  net.IP
	Err error
}

// Resolver issues asynchronous hostname lookups keyed by caller-chosen
// id. It has no notion of "pending" state of its own -- the caller
// (the dispatcher) tracks which ids are outstanding.
type Resolver struct {
	results chan QueryResponse
}

// New creates a Resolver whose Results channel can buffer up to
// queueSize pending deliveries; beyond that, the lookup goroutines
// block until Results is read. NewQuery itself never blocks.
func New(queueSize int) *Resolver {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Resolver{results: make(chan QueryResponse, queueSize)}
}

// NewQuery starts resolving host in the background. The result, or
// failure, is eventually delivered on Results() tagged with id. ctx
// bounds how long the lookup may run; a canceled or expired ctx
// delivers the lookup error it causes.
func (r *Resolver) NewQuery(ctx context.Context, id uint64, host string) {
	go func() {
		addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
		if err != nil {
			r.results <- QueryResponse{ID: id, Err: err}
			return
		}
		for _, a := range addrs {
			if v4 := a.IP.To4(); v4 != nil {
				r.results <- QueryResponse{ID: id, IP: v4}
				return
			}
		}
		r.results <- QueryResponse{ID: id, Err: ErrNoAddress}
	}()
}

// Results is the channel on which every NewQuery outcome is delivered,
// in arbitrary completion order.
func (r *Resolver) Results() <-chan QueryResponse {
	return r.results
}
