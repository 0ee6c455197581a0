package announce

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type chunkedWriter struct {
	chunks [][]byte
	out    bytes.Buffer
}

func (w *chunkedWriter) Write(p []byte) (int, error) {
	if len(w.chunks) == 0 {
		return 0, errors.New("no chunks left")
	}
	n := w.chunks[0]
	w.chunks = w.chunks[1:]
	w.out.Write(p[:len(n)])
	return len(n), nil
}

func TestRequestWriterDrainsInOneCall(t *testing.T) {
	require := require.New(t)

	buf := []byte("GET /announce HTTP/1.1\r\n\r\n")
	var out bytes.Buffer
	w := newRequestWriter(buf)

	done, err := w.Writable(&out)
	require.NoError(err)
	require.True(done)
	require.Equal(buf, out.Bytes())
}

func TestRequestWriterDrainsAcrossPartialWrites(t *testing.T) {
	require := require.New(t)

	buf := []byte("0123456789")
	// Each empty chunk is a zero-progress write (the would-block edge),
	// which ends the current Writable call with done=false.
	cw := &chunkedWriter{chunks: [][]byte{buf[0:3], {}, buf[3:7], {}, buf[7:10]}}
	w := newRequestWriter(buf)

	done, err := w.Writable(cw)
	require.NoError(err)
	require.False(done)

	done, err = w.Writable(cw)
	require.NoError(err)
	require.False(done)

	done, err = w.Writable(cw)
	require.NoError(err)
	require.True(done)

	require.Equal(buf, cw.out.Bytes())
}

type erroringWriter struct{}

func (erroringWriter) Write(p []byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestRequestWriterPropagatesError(t *testing.T) {
	require := require.New(t)

	w := newRequestWriter([]byte("x"))
	done, err := w.Writable(erroringWriter{})
	require.Error(err)
	require.False(done)
}
