package peernet

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	log "github.com/sirupsen/logrus"
)

// Sweep re-probes every registered peer concurrently and evicts the ones
// that fail. Fan-out is capped by the configured concurrency limit; the
// sweep returns only after every probe has settled. fast selects the short
// probe timeout. The outcome is reported through the observability hooks.
func (m *Manager) Sweep(ctx context.Context, fast bool) {
	timeout := m.opts.SlowProbeTimeout
	if fast {
		timeout = m.opts.FastProbeTimeout
	}

	peers := m.registry.All()

	var mu sync.Mutex
	responsive := make([]Peer, 0, len(peers))

	wg, cctx := errgroup.WithContext(ctx)
	wg.SetLimit(m.opts.Concurrency)

	for _, p := range peers {
		p := p
		wg.Go(func() error {
			state, latency, err := m.probePeer(cctx, p.Address, p.Port, timeout)
			if err != nil {
				m.registry.Remove(p.Address)
				m.emitEvicted(p, err)
				log.Debugf("peernet: sweep evicted %s: %v", p.Addr(), err)
				return nil
			}

			if m.registry.UpdateState(p.Address, state, latency) {
				p.State = state
				p.Latency = latency
				mu.Lock()
				responsive = append(responsive, p)
				mu.Unlock()
			}
			return nil
		})
	}

	// Probe failures are handled per peer; Wait is the join point.
	wg.Wait()

	summary := SweepSummary{
		Fast:       fast,
		Checked:    len(peers),
		Responsive: len(responsive),
	}
	if h, err := m.NetworkHeight(); err == nil {
		summary.MedianHeight = h
		summary.HeightKnown = true
	}
	if r, err := m.ForgingStatus(); err == nil {
		summary.ForgingRatio = r
		summary.ForgingKnown = true
	}

	m.storeHints(responsive)
	m.emitSweepDone(summary)

	log.Infof("peernet: sweep checked %d peers, %d responsive, median height %d, forging ratio %.2f",
		summary.Checked, summary.Responsive, summary.MedianHeight, summary.ForgingRatio)
}
