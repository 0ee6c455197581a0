package dns

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolverDeliversResultByID(t *testing.T) {
	require := require.New(t)

	r := New(4)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	r.NewQuery(ctx, 1, "localhost")

	select {
	case qr := <-r.Results():
		require.Equal(uint64(1), qr.ID)
		require.NoError(qr.Err)
		require.NotNil(qr.IP)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for lookup")
	}
}

func TestResolverReportsLookupFailure(t *testing.T) {
	require := require.New(t)

	r := New(4)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	r.NewQuery(ctx, 2, "this-host-should-not-resolve.invalid")

	select {
	case qr := <-r.Results():
		require.Equal(uint64(2), qr.ID)
		require.Error(qr.Err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for lookup")
	}
}
