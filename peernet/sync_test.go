package peernet

import (
	"context"
	"errors"
	"testing"

	"forgenet/datamodel/block"

	"github.com/stretchr/testify/require"
)

func TestDownloadBlocksRetriesWithFreshPeer(t *testing.T) {
	blocks := []*block.Block{{ID: "b2", Height: 2}, {ID: "b3", Height: 3}}
	tr := &fakeTransport{
		ping: func(addr string) (PeerState, error) {
			if addr == "10.0.0.1:4100" {
				return PeerState{}, errors.New("timeout")
			}
			return PeerState{Height: 3}, nil
		},
		download: func(addr string, from uint64) ([]*block.Block, error) {
			require.Equal(t, uint64(2), from)
			return blocks, nil
		},
	}
	m := newTestManager(t, Options{
		Seeds:     seedList("10.0.0.1", "10.0.0.2"),
		Transport: tr,
	})

	got, err := m.DownloadBlocks(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, blocks, got)

	// The unreachable peer never served the download.
	tr.mu.Lock()
	defer tr.mu.Unlock()
	require.Zero(t, tr.downloadCalls["10.0.0.1:4100"])
	require.Equal(t, 1, tr.downloadCalls["10.0.0.2:4100"])
}

func TestDownloadBlocksExhaustsAfterBoundedAttempts(t *testing.T) {
	tr := &fakeTransport{
		ping: func(addr string) (PeerState, error) {
			return PeerState{}, errors.New("timeout")
		},
	}
	m := newTestManager(t, Options{
		Seeds:            seedList("10.0.0.1", "10.0.0.2"),
		Transport:        tr,
		DownloadAttempts: 3,
	})

	_, err := m.DownloadBlocks(context.Background(), 1)
	require.ErrorIs(t, err, ErrDownloadExhausted)

	tr.mu.Lock()
	total := 0
	for _, n := range tr.pingCalls {
		total += n
	}
	tr.mu.Unlock()
	require.Equal(t, 3, total)
}

func TestDownloadBlocksFailedTransferRetries(t *testing.T) {
	attempt := 0
	tr := &fakeTransport{
		download: func(addr string, from uint64) ([]*block.Block, error) {
			attempt++
			if attempt == 1 {
				return nil, errors.New("connection reset mid-transfer")
			}
			return []*block.Block{{ID: "b5", Height: 5}}, nil
		},
	}
	m := newTestManager(t, Options{
		Seeds:     seedList("10.0.0.1", "10.0.0.2"),
		Transport: tr,
	})

	got, err := m.DownloadBlocks(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 2, attempt)
}
