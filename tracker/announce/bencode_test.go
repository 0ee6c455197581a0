package announce

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTrackerResponseCompactPeers(t *testing.T) {
	require := require.New(t)

	// peers: two compact entries (1.2.3.4:0x1A2B, 5.6.7.8:80)
	peers := string([]byte{1, 2, 3, 4, 0x1A, 0x2B, 5, 6, 7, 8, 0, 80})
	body := "d8:intervali1800e8:leechersi3e7:seedersi7e5:peers" +
		itoaLen(peers) + ":" + peers + "e"

	resp, err := parseTrackerResponse([]byte(body))
	require.NoError(err)
	require.Equal(uint32(1800), resp.Interval)
	require.Equal(uint32(3), resp.Leechers)
	require.Equal(uint32(7), resp.Seeders)
	require.Len(resp.Peers, 2)
	require.Equal("1.2.3.4", resp.Peers[0].IP.String())
	require.Equal(uint16(0x1A2B), resp.Peers[0].Port)
	require.Equal("5.6.7.8", resp.Peers[1].IP.String())
	require.Equal(uint16(80), resp.Peers[1].Port)
}

func TestParseTrackerResponseFailureReason(t *testing.T) {
	require := require.New(t)

	body := "d14:failure reason17:torrent not founde"
	_, err := parseTrackerResponse([]byte(body))
	require.Error(err)
	require.Equal(TrackerFailure, KindOf(err))
}

func TestParseTrackerResponseMissingPeersIsInvalid(t *testing.T) {
	require := require.New(t)

	body := "d8:intervali1800ee"
	_, err := parseTrackerResponse([]byte(body))
	require.Error(err)
	require.Equal(InvalidResponse, KindOf(err))
}

func TestParseTrackerResponseOddPeersLengthIsInvalid(t *testing.T) {
	require := require.New(t)

	body := "d8:intervali1800e5:peers5:abcdee"
	_, err := parseTrackerResponse([]byte(body))
	require.Error(err)
	require.Equal(InvalidResponse, KindOf(err))
}

func TestParseTrackerResponseSkipsLeadingHTTPHeaders(t *testing.T) {
	require := require.New(t)

	body := "d8:intervali900e5:peers0:e"
	raw := "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: " +
		itoaLen(body) + "\r\n\r\n" + body

	resp, err := parseTrackerResponse([]byte(raw))
	require.NoError(err)
	require.Equal(uint32(900), resp.Interval)
	require.Empty(resp.Peers)
}

func itoaLen(s string) string {
	n := len(s)
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
