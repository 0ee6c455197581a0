package announce

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResponseReaderAccumulatesUntilEOF(t *testing.T) {
	require := require.New(t)

	body := bytes.Repeat([]byte("a"), readChunkSize+10)
	r := newResponseReader(0)

	src := bytes.NewReader(body)
	for {
		done, err := r.Readable(src)
		require.NoError(err)
		if done {
			break
		}
	}

	require.Equal(body, r.consume())
}

func TestResponseReaderRejectsOversizedResponse(t *testing.T) {
	require := require.New(t)

	body := bytes.Repeat([]byte("b"), readChunkSize*2)
	r := newResponseReader(readChunkSize)

	src := bytes.NewReader(body)
	var lastErr error
	for {
		done, err := r.Readable(src)
		if err != nil {
			lastErr = err
			break
		}
		if done {
			break
		}
	}

	require.Error(lastErr)
	require.Equal(IO, KindOf(lastErr))
}
