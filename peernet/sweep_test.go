package peernet

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSweepEvictsUnresponsivePeers(t *testing.T) {
	failing := map[string]bool{
		"10.0.0.2:4100": true,
		"10.0.0.4:4100": true,
	}
	tr := &fakeTransport{
		ping: func(addr string) (PeerState, error) {
			if failing[addr] {
				return PeerState{}, errors.New("connection refused")
			}
			return PeerState{Height: 100}, nil
		},
	}
	rec := &eventRecorder{}
	m := newTestManager(t, Options{
		Seeds:     seedList("10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4", "10.0.0.5"),
		Transport: tr,
		Events:    rec,
	})

	m.Sweep(context.Background(), true)

	require.Equal(t, 3, m.Registry().Len())
	require.False(t, m.Registry().Has("10.0.0.2"))
	require.False(t, m.Registry().Has("10.0.0.4"))

	summary := rec.lastSweep(t)
	require.Equal(t, 5, summary.Checked)
	require.Equal(t, 3, summary.Responsive)
	require.True(t, summary.Fast)
	require.True(t, summary.HeightKnown)
	require.Equal(t, uint64(100), summary.MedianHeight)
	require.Len(t, rec.evicted, 2)
}

func TestSweepRecordsProbedState(t *testing.T) {
	tr := &fakeTransport{
		ping: func(addr string) (PeerState, error) {
			return PeerState{Height: 77, CurrentSlot: 3, ForgingAllowed: true}, nil
		},
	}
	m := newTestManager(t, Options{
		Seeds:     seedList("10.0.0.1"),
		Transport: tr,
	})

	m.Sweep(context.Background(), false)

	p, ok := m.Registry().Get("10.0.0.1")
	require.True(t, ok)
	require.Equal(t, uint64(77), p.State.Height)
	require.True(t, p.State.ForgingAllowed)
	require.Positive(t, p.Latency)
}

func TestSweepAllUnresponsive(t *testing.T) {
	tr := &fakeTransport{
		ping: func(addr string) (PeerState, error) {
			return PeerState{}, errors.New("timeout")
		},
	}
	rec := &eventRecorder{}
	m := newTestManager(t, Options{
		Seeds:     seedList("10.0.0.1", "10.0.0.2"),
		Transport: tr,
		Events:    rec,
	})

	m.Sweep(context.Background(), true)

	require.Equal(t, 0, m.Registry().Len())
	summary := rec.lastSweep(t)
	require.Equal(t, 2, summary.Checked)
	require.Equal(t, 0, summary.Responsive)
	require.False(t, summary.HeightKnown)
	require.False(t, summary.ForgingKnown)
}
