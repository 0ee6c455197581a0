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

// Command trackerd-announce sends a single HTTP tracker announce and
// prints the parsed response. It is a thin CLI harness around the
// announce.Dispatcher, useful for poking a tracker by hand.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/uber-go/tally"

	"github.com/coriolis-labs/trackerd/core"
	"github.com/coriolis-labs/trackerd/tracker/announce"
	"github.com/coriolis-labs/trackerd/tracker/dns"
	"github.com/coriolis-labs/trackerd/tracker/udp"
	"github.com/coriolis-labs/trackerd/utils/log"
)

var (
	configFile string
	trackerURL string
	infoHash   string
	eventFlag  string
	port       int

	rootCmd = &cobra.Command{
		Use:   "trackerd-announce",
		Short: "Send a single HTTP tracker announce and print the response.",
		Run: func(cmd *cobra.Command, args []string) {
			run()
		},
	}
)

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "configuration file path")
	rootCmd.Flags().StringVarP(&trackerURL, "url", "u", "", "tracker announce URL (required)")
	rootCmd.Flags().StringVarP(&infoHash, "info-hash", "i", "", "40-character hex-encoded info hash (required)")
	rootCmd.Flags().StringVarP(&eventFlag, "event", "e", "", "announce event: started, stopped, completed, or empty")
	rootCmd.Flags().IntVarP(&port, "port", "p", 6881, "local listening port to announce")
	rootCmd.MarkFlagRequired("url")
	rootCmd.MarkFlagRequired("info-hash")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() {
	config, err := loadConfig(configFile)
	if err != nil {
		fatalf("load config: %s", err)
	}

	logger, err := log.New(config.Log, nil)
	if err != nil {
		fatalf("init logging: %s", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	hashBytes, err := hex.DecodeString(infoHash)
	if err != nil || len(hashBytes) != 20 {
		fatalf("info-hash must be 40 hex characters")
	}
	var ih core.InfoHash
	copy(ih[:], hashBytes)

	event, err := parseEventFlag(eventFlag)
	if err != nil {
		fatalf("%s", err)
	}

	config.Announce.PeerID = randomPeerID()

	d, err := announce.New(config.Announce, nil, sugar, tally.NoopScope, dns.New(64), udp.New())
	if err != nil {
		fatalf("init dispatcher: %s", err)
	}
	d.Start()
	defer d.Stop()

	if !d.Announce(core.AnnounceRequest{
		TorrentID: 1,
		URL:       trackerURL,
		InfoHash:  ih,
		Port:      uint16(port),
		Event:     event,
	}) {
		fatalf("announce queue is full")
	}

	select {
	case resp := <-d.Responses():
		if resp.Err != nil {
			fatalf("announce failed: %s", resp.Err)
		}
		printResponse(resp.Result)
	case <-time.After(30 * time.Second):
		fatalf("timed out waiting for a response")
	}
}

func parseEventFlag(s string) (core.Event, error) {
	switch s {
	case "", "none":
		return core.EventNone, nil
	case "started":
		return core.EventStarted, nil
	case "stopped":
		return core.EventStopped, nil
	case "completed":
		return core.EventCompleted, nil
	default:
		return core.EventNone, fmt.Errorf("unknown event %q", s)
	}
}

func randomPeerID() [20]byte {
	var id [20]byte
	copy(id[:], "-TD0001-")
	rand.Read(id[8:])
	return id
}

func printResponse(resp *core.TrackerResponse) {
	fmt.Printf("interval=%d leechers=%d seeders=%d peers=%d\n",
		resp.Interval, resp.Leechers, resp.Seeders, len(resp.Peers))
	for _, p := range resp.Peers {
		fmt.Printf("  %s\n", p.String())
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
