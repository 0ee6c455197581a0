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
	"net/url"
	"strconv"

	"github.com/coriolis-labs/trackerd/core"
)

// buildGETRequest encodes req as an HTTP/1.1 GET request targeting u.
// The byte layout is deliberately minimal: a single request line, a
// bare Host header, and a blank line. No other headers are sent.
//
// Every byte of info_hash and peer_id is percent-encoded
// unconditionally -- there is no "unreserved character" exemption, to
// match what trackers actually see on the wire from clients that
// encode this way. The query string ends in a trailing '&', an
// artifact of unconditionally appending "key=value&" for every pair;
// common trackers tolerate it and this is kept rather than normalized
// away.
func buildGETRequest(req core.AnnounceRequest, u *url.URL, cfg Config) ([]byte, error) {
	host := u.Hostname()
	if host == "" {
		return nil, newError(InvalidRequest, "tracker announce url has no host")
	}

	buf := make([]byte, 0, 256)
	buf = append(buf, "GET "...)
	buf = append(buf, u.EscapedPath()...)
	buf = append(buf, '?')

	buf = appendQueryPair(buf, "info_hash", percentEncodeBytes(req.InfoHash[:]))
	buf = appendQueryPair(buf, "peer_id", percentEncodeBytes(cfg.PeerID[:]))
	buf = appendQueryPair(buf, "uploaded", strconv.FormatUint(req.Uploaded, 10))
	buf = appendQueryPair(buf, "downloaded", strconv.FormatUint(req.Downloaded, 10))
	buf = appendQueryPair(buf, "left", strconv.FormatUint(req.Left, 10))
	buf = appendQueryPair(buf, "compact", "1")
	buf = appendQueryPair(buf, "port", strconv.FormatUint(uint64(req.Port), 10))

	switch req.Event {
	case core.EventStarted:
		buf = appendQueryPair(buf, "numwant", strconv.Itoa(cfg.NumWantStarted))
		buf = appendQueryPair(buf, "event", "started")
	case core.EventStopped:
		// Matches observed on-the-wire behavior: a stopping announce
		// still sends event=started. See DESIGN.md.
		buf = appendQueryPair(buf, "event", "started")
	case core.EventCompleted:
		buf = appendQueryPair(buf, "numwant", strconv.Itoa(cfg.NumWantDefault))
		buf = appendQueryPair(buf, "event", "completed")
	default:
		buf = appendQueryPair(buf, "numwant", strconv.Itoa(cfg.NumWantDefault))
	}

	buf = append(buf, " HTTP/1.1\r\n"...)
	buf = append(buf, "Host: "...)
	buf = append(buf, host...)
	buf = append(buf, "\r\n\r\n"...)

	return buf, nil
}

func appendQueryPair(buf []byte, key, value string) []byte {
	buf = append(buf, key...)
	buf = append(buf, '=')
	buf = append(buf, value...)
	buf = append(buf, '&')
	return buf
}

// percentEncodeBytes encodes every byte of data as %XX, regardless of
// whether the byte is itself a "safe" ASCII character.
func percentEncodeBytes(data []byte) string {
	const hex = "0123456789ABCDEF"
	out := make([]byte, 0, len(data)*3)
	for _, b := range data {
		out = append(out, '%', hex[b>>4], hex[b&0x0f])
	}
	return string(out)
}

// parseAnnounceURL parses raw and validates it is usable by this
// engine (http or udp scheme, present host).
func parseAnnounceURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, newError(InvalidRequest, "invalid url %q: %s", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "udp" {
		return nil, newError(InvalidRequest, "unsupported tracker url scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, newError(InvalidRequest, "tracker announce url has no host")
	}
	return u, nil
}

// hostPort returns the (host, port) pair to dial, defaulting the port
// to 80 when the URL has none.
func hostPort(u *url.URL) (string, uint16) {
	host := u.Hostname()
	if p := u.Port(); p != "" {
		if port, err := strconv.ParseUint(p, 10, 16); err == nil {
			return host, uint16(port)
		}
	}
	return host, 80
}
