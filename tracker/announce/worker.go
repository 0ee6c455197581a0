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
	"net"
	"time"

	"golang.org/x/time/rate"
)

// runWorker performs the connect/write/read sequence for one announce
// on a dedicated goroutine, reporting every phase transition and the
// terminal outcome back to the dispatcher over events. It is the
// goroutine-per-connection stand-in for what the original design did
// with non-blocking sockets driven by a single poller: instead of the
// dispatcher stepping Writable/Readable across poll wakeups, the
// stepping happens here against a real blocking net.Conn, and the
// dispatcher only ever observes coarse progress.
//
// Every step extends the connection's deadline by cfg.Timeout, which
// is what gives the announce its "reset on activity, not an absolute
// deadline" inactivity budget.
func runWorker(ctx context.Context, cfg Config, id uint64, ip net.IP, port uint16, reqBuf []byte, limiter *rate.Limiter, events chan<- event) {
	if err := limiter.Wait(ctx); err != nil {
		send(ctx, events, errEvent{id: id, err: newError(IO, "dial rate limit: %s", err)})
		return
	}

	addr := &net.TCPAddr{IP: ip, Port: int(port)}

	dialer := net.Dialer{Timeout: cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr.String())
	if err != nil {
		send(ctx, events, errEvent{id: id, err: wrapConnErr("dial "+addr.String(), err)})
		return
	}
	defer conn.Close()

	send(ctx, events, phaseEvent{id: id, phase: phaseConnecting})

	w := newRequestWriter(reqBuf)
	for {
		if err := conn.SetWriteDeadline(time.Now().Add(cfg.Timeout)); err != nil {
			send(ctx, events, errEvent{id: id, err: newError(IO, "set write deadline: %s", err)})
			return
		}
		done, werr := w.Writable(conn)
		if werr != nil {
			send(ctx, events, errEvent{id: id, err: wrapConnErr("write", werr)})
			return
		}
		if done {
			break
		}
	}

	send(ctx, events, phaseEvent{id: id, phase: phaseReading})

	r := newResponseReader(cfg.MaxResponseBytes)
	for {
		if err := conn.SetReadDeadline(time.Now().Add(cfg.Timeout)); err != nil {
			send(ctx, events, errEvent{id: id, err: newError(IO, "set read deadline: %s", err)})
			return
		}
		done, rerr := r.Readable(conn)
		if rerr != nil {
			send(ctx, events, errEvent{id: id, err: wrapConnErr("read", rerr)})
			return
		}
		if done {
			break
		}
	}

	resp, perr := parseTrackerResponse(r.consume())
	if perr != nil {
		send(ctx, events, errEvent{id: id, err: perr})
		return
	}
	send(ctx, events, doneEvent{id: id, resp: resp})
}

// send delivers ev unless ctx has already been canceled (in which case
// the dispatcher has stopped listening and the record is gone).
func send(ctx context.Context, events chan<- event, ev event) {
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}
