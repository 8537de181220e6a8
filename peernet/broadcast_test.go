package peernet

import (
	"context"
	"errors"
	"testing"

	"forgenet/datamodel/block"

	"github.com/stretchr/testify/require"
)

func TestBroadcastBlockBestEffort(t *testing.T) {
	tr := &fakeTransport{
		postBlock: func(addr string) error {
			if addr == "10.0.0.2:4100" {
				return errors.New("connection refused")
			}
			return nil
		},
	}
	m := newTestManager(t, Options{
		Seeds:     seedList("10.0.0.1", "10.0.0.2", "10.0.0.3"),
		Transport: tr,
	})

	acked, failed := m.BroadcastBlock(context.Background(), &block.Block{ID: "b9", Height: 9})
	require.Equal(t, 2, acked)
	require.Equal(t, 1, failed)

	// Failures evict nothing: broadcast is not a liveness check.
	require.Equal(t, 3, m.Registry().Len())
}

func TestBroadcastBlockEmptyRegistry(t *testing.T) {
	m := newTestManager(t, Options{Seeds: seedList("10.0.0.1")})
	m.Registry().Remove("10.0.0.1")

	acked, failed := m.BroadcastBlock(context.Background(), &block.Block{Height: 1})
	require.Zero(t, acked)
	require.Zero(t, failed)
}
