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

// Package udp is a placeholder for the UDP tracker protocol (BEP 15).
// The dispatcher routes udp:// announce URLs here so the scheme
// switch lives in one place, but no wire support is implemented yet.
package udp

import "errors"

// ErrNotImplemented is returned by NewAnnounce for every request; the
// UDP tracker protocol is out of scope for this engine.
var ErrNotImplemented = errors.New("udp tracker protocol not implemented")

// Handler is a no-op stand-in for a future UDP tracker client. The
// dispatcher calls NewAnnounce for udp:// URLs and Tick on every
// timeout sweep.
type Handler struct{}

// New returns a Handler that rejects every announce.
func New() *Handler {
	return &Handler{}
}

// NewAnnounce always fails; no connection ids are ever allocated.
func (h *Handler) NewAnnounce(url string) error {
	return ErrNotImplemented
}

// Contains always reports false: the handler tracks no connections.
func (h *Handler) Contains(id uint64) bool { return false }

// Tick is a no-op: there is nothing to sweep for timeouts.
func (h *Handler) Tick() {}
