package announce

import (
	"bufio"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"

	"github.com/coriolis-labs/trackerd/core"
	"github.com/coriolis-labs/trackerd/tracker/dns"
	"github.com/coriolis-labs/trackerd/tracker/udp"
)

// fakeTracker runs a minimal HTTP tracker on loopback: it reads the GET
// request up to its blank line (ignoring it), replies with a status
// line, a Content-Length header and a fixed bencoded body, then closes
// the connection.
func fakeTracker(t *testing.T, body string) (addr string, stop func()) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				reader := bufio.NewReader(c)
				for {
					line, err := reader.ReadString('\n')
					if err != nil || line == "\r\n" {
						break
					}
				}
				resp := "HTTP/1.1 200 OK\r\nContent-Length: " +
					fmt.Sprintf("%d", len(body)) + "\r\n\r\n" + body
				c.Write([]byte(resp))
			}(conn)
		}
	}()

	return ln.Addr().String(), func() { ln.Close() }
}

func newTestDispatcher(t *testing.T) *Dispatcher {
	cfg := Config{
		Timeout:      2 * time.Second,
		TickInterval: 20 * time.Millisecond,
		DialTimeout:  time.Second,
	}
	d, err := New(cfg, clock.New(), nil, tally.NoopScope, dns.New(16), udp.New())
	require.NoError(t, err)
	d.Start()
	t.Cleanup(d.Stop)
	return d
}

func TestDispatcherSuccessfulAnnounce(t *testing.T) {
	require := require.New(t)

	body := "d8:intervali1800e5:peers6:\x01\x02\x03\x04\x1a\x2be"
	addr, stop := fakeTracker(t, body)
	defer stop()

	d := newTestDispatcher(t)

	ok := d.Announce(core.AnnounceRequest{
		TorrentID: 42,
		URL:       "http://" + addr + "/announce",
		Event:     core.EventStarted,
	})
	require.True(ok)

	select {
	case resp := <-d.Responses():
		require.Equal(uint64(42), resp.TorrentID)
		require.NoError(resp.Err)
		require.Equal(uint32(1800), resp.Result.Interval)
		require.Len(resp.Result.Peers, 1)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for announce response")
	}
}

func TestDispatcherStoppedAnnounceStillDeliversSuccess(t *testing.T) {
	require := require.New(t)

	body := "d8:intervali1800e5:peers0:e"
	addr, stop := fakeTracker(t, body)
	defer stop()

	d := newTestDispatcher(t)

	ok := d.Announce(core.AnnounceRequest{
		TorrentID: 7,
		URL:       "http://" + addr + "/announce",
		Event:     core.EventStopped,
	})
	require.True(ok)

	select {
	case resp := <-d.Responses():
		require.Equal(uint64(7), resp.TorrentID)
		require.NoError(resp.Err)
		require.Equal(uint32(1800), resp.Result.Interval)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for announce response")
	}
}

func TestDispatcherStoppedAnnounceSuppressesFailure(t *testing.T) {
	require := require.New(t)

	// A closed listener address: nothing is listening, so the dial
	// fails immediately with a connection error.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(err)
	addr := ln.Addr().String()
	ln.Close()

	d := newTestDispatcher(t)

	ok := d.Announce(core.AnnounceRequest{
		TorrentID: 8,
		URL:       "http://" + addr + "/announce",
		Event:     core.EventStopped,
	})
	require.True(ok)

	select {
	case resp := <-d.Responses():
		t.Fatalf("unexpected response delivered for a failed stopping announce: %+v", resp)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestDispatcherInvalidURLFailsImmediately(t *testing.T) {
	require := require.New(t)

	d := newTestDispatcher(t)

	ok := d.Announce(core.AnnounceRequest{TorrentID: 99, URL: "::::not a url"})
	require.True(ok)

	select {
	case resp := <-d.Responses():
		require.Equal(uint64(99), resp.TorrentID)
		require.Error(resp.Err)
		require.Equal(InvalidRequest, KindOf(resp.Err))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for response")
	}
}

func TestDispatcherTimesOutOnSilentTracker(t *testing.T) {
	require := require.New(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(err)
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			// Accept the connection and never write a response.
			_ = conn
		}
	}()

	cfg := Config{
		Timeout:      200 * time.Millisecond,
		TickInterval: 20 * time.Millisecond,
		DialTimeout:  time.Second,
	}
	d, err := New(cfg, clock.New(), nil, tally.NoopScope, dns.New(16), udp.New())
	require.NoError(err)
	d.Start()
	defer d.Stop()

	ok := d.Announce(core.AnnounceRequest{
		TorrentID: 13,
		URL:       "http://" + ln.Addr().String() + "/announce",
	})
	require.True(ok)

	select {
	case resp := <-d.Responses():
		require.Error(resp.Err)
		require.Equal(Timeout, KindOf(resp.Err))
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for timeout response")
	}
}

func TestDispatcherUDPSchemeRejected(t *testing.T) {
	require := require.New(t)

	d := newTestDispatcher(t)

	ok := d.Announce(core.AnnounceRequest{TorrentID: 5, URL: "udp://tracker.example.com:80/announce"})
	require.True(ok)

	select {
	case resp := <-d.Responses():
		require.Error(resp.Err)
		require.Equal(InvalidRequest, KindOf(resp.Err))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for response")
	}
}
