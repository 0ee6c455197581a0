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
	"bytes"
	"net"
	"unicode/utf8"

	"github.com/coriolis-labs/trackerd/core"
	bencode "github.com/jackpal/bencode-go"
)

// httpBodySplit finds the blank-line boundary between an HTTP
// response's headers and its body. If none is found, the whole buffer
// is assumed to already be the body -- this engine never separately
// validates the status line, so a caller that hands it a bare
// bencoded reply (as the test scenarios do) still works.
func httpBodySplit(raw []byte) []byte {
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		return raw[i+4:]
	}
	return raw
}

// parseTrackerResponse decodes raw (the full accumulated response,
// headers and all) into a TrackerResponse.
func parseTrackerResponse(raw []byte) (*core.TrackerResponse, error) {
	body := httpBodySplit(raw)

	decoded, err := bencode.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, newError(InvalidResponse, "bencode decode: %s", err)
	}

	dict, ok := decoded.(map[string]interface{})
	if !ok {
		return nil, newError(InvalidResponse, "tracker response must be a dictionary")
	}

	if v, ok := dict["failure reason"]; ok {
		reason, ok := v.(string)
		if !ok {
			return nil, newError(InvalidResponse, "failure reason must be a byte string")
		}
		if !utf8.ValidString(reason) {
			return nil, newError(InvalidResponse, "failure reason must be utf8")
		}
		return nil, newError(TrackerFailure, "%s", reason)
	}

	peersRaw, ok := dict["peers"]
	if !ok {
		return nil, newError(InvalidResponse, "response must have a peers field")
	}
	peersStr, ok := peersRaw.(string)
	if !ok {
		return nil, newError(InvalidResponse, "peers field must be a byte string")
	}
	peers, err := decodeCompactPeers([]byte(peersStr))
	if err != nil {
		return nil, err
	}

	intervalRaw, ok := dict["interval"]
	if !ok {
		return nil, newError(InvalidResponse, "response must have an interval field")
	}
	interval, ok := intervalRaw.(int64)
	if !ok {
		return nil, newError(InvalidResponse, "interval field must be an integer")
	}

	resp := &core.TrackerResponse{
		Peers:    peers,
		Interval: uint32(interval),
	}
	if v, ok := dict["leechers"].(int64); ok {
		resp.Leechers = uint32(v)
	}
	if v, ok := dict["seeders"].(int64); ok {
		resp.Seeders = uint32(v)
	}
	return resp, nil
}

// decodeCompactPeers parses the compact IPv4 peer list: consecutive
// 6-byte records of (4-byte IP, 2-byte big-endian port).
func decodeCompactPeers(data []byte) ([]core.Peer, error) {
	if len(data)%6 != 0 {
		return nil, newError(InvalidResponse, "peers field length %d not a multiple of 6", len(data))
	}
	peers := make([]core.Peer, 0, len(data)/6)
	for i := 0; i < len(data); i += 6 {
		ip := net.IPv4(data[i], data[i+1], data[i+2], data[i+3])
		port := uint16(data[i+4])<<8 | uint16(data[i+5])
		peers = append(peers, core.Peer{IP: ip, Port: port})
	}
	return peers, nil
}
