package peernet

import (
	"time"
)

// RandomPeer picks one registered peer uniformly at random, excluding peers
// whose ban window is open and, when maxDelay is positive, peers whose
// observed latency exceeds it. Returns ErrNoEligiblePeer when the filters
// exclude everything or the registry is empty.
func (m *Manager) RandomPeer(maxDelay time.Duration) (Peer, error) {
	now := time.Now()
	eligible := m.registry.Filter(func(p *Peer) bool {
		if p.Banned(now) {
			return false
		}
		if maxDelay > 0 && p.Latency > maxDelay {
			return false
		}
		return true
	})
	return m.pick(eligible)
}

// RandomDownloadPeer picks a random non-banned peer whose download capacity
// is not saturated, falling back to RandomPeer when none qualifies.
func (m *Manager) RandomDownloadPeer() (Peer, error) {
	now := time.Now()
	eligible := m.registry.Filter(func(p *Peer) bool {
		return !p.Banned(now) && !p.State.DownloadBusy
	})
	if len(eligible) == 0 {
		return m.RandomPeer(0)
	}
	return m.pick(eligible)
}

func (m *Manager) pick(peers []Peer) (Peer, error) {
	if len(peers) == 0 {
		return Peer{}, ErrNoEligiblePeer
	}
	m.rngMu.Lock()
	i := m.rng.Intn(len(peers))
	m.rngMu.Unlock()
	return peers[i], nil
}
