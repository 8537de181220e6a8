package peernet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRandomPeerHonorsMaxDelay(t *testing.T) {
	m := newTestManager(t, Options{
		Seeds: seedList("10.0.0.1", "10.0.0.2", "10.0.0.3"),
	})

	require.True(t, m.Registry().UpdateState("10.0.0.1", PeerState{}, 50*time.Millisecond))
	require.True(t, m.Registry().UpdateState("10.0.0.2", PeerState{}, 900*time.Millisecond))
	require.True(t, m.Registry().UpdateState("10.0.0.3", PeerState{}, 10*time.Millisecond))

	maxDelay := 100 * time.Millisecond
	for i := 0; i < 50; i++ {
		p, err := m.RandomPeer(maxDelay)
		require.NoError(t, err)
		require.LessOrEqual(t, p.Latency, maxDelay)
		require.NotEqual(t, "10.0.0.2", p.Address)
	}
}

func TestRandomPeerEmptyRegistry(t *testing.T) {
	m := newTestManager(t, Options{Seeds: seedList("10.0.0.1")})
	m.Registry().Remove("10.0.0.1")

	_, err := m.RandomPeer(0)
	require.ErrorIs(t, err, ErrNoEligiblePeer)
}

func TestRandomPeerAllFilteredOut(t *testing.T) {
	m := newTestManager(t, Options{Seeds: seedList("10.0.0.1", "10.0.0.2")})

	require.True(t, m.Registry().UpdateState("10.0.0.1", PeerState{}, time.Second))
	require.True(t, m.Registry().UpdateState("10.0.0.2", PeerState{}, time.Second))

	_, err := m.RandomPeer(10 * time.Millisecond)
	require.ErrorIs(t, err, ErrNoEligiblePeer)
}

func TestRandomPeerSkipsBanned(t *testing.T) {
	m := newTestManager(t, Options{Seeds: seedList("10.0.0.1", "10.0.0.2")})
	m.Registry().Ban("10.0.0.1", time.Now().Add(time.Hour))

	for i := 0; i < 20; i++ {
		p, err := m.RandomPeer(0)
		require.NoError(t, err)
		require.Equal(t, "10.0.0.2", p.Address)
	}
}

func TestRandomPeerExpiredBanIsEligible(t *testing.T) {
	m := newTestManager(t, Options{Seeds: seedList("10.0.0.1")})
	m.Registry().Ban("10.0.0.1", time.Now().Add(-time.Minute))

	p, err := m.RandomPeer(0)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1", p.Address)
}

func TestRandomDownloadPeerSkipsBusy(t *testing.T) {
	m := newTestManager(t, Options{Seeds: seedList("10.0.0.1", "10.0.0.2")})

	require.True(t, m.Registry().UpdateState("10.0.0.1", PeerState{DownloadBusy: true}, time.Millisecond))

	for i := 0; i < 20; i++ {
		p, err := m.RandomDownloadPeer()
		require.NoError(t, err)
		require.Equal(t, "10.0.0.2", p.Address)
	}
}

func TestRandomDownloadPeerFallsBack(t *testing.T) {
	m := newTestManager(t, Options{Seeds: seedList("10.0.0.1")})

	// Every peer is saturated; the selector falls back to the plain filter
	// rather than failing.
	require.True(t, m.Registry().UpdateState("10.0.0.1", PeerState{DownloadBusy: true}, time.Millisecond))

	p, err := m.RandomDownloadPeer()
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1", p.Address)
}
