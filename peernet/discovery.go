package peernet

import (
	"context"
	"fmt"

	"forgenet/peernet/protocol"

	log "github.com/sirupsen/logrus"
)

// Discover grows the registry by asking one known peer for its peer list and
// admitting every healthy, unregistered, non-local candidate. Failures retry
// with backoff up to the configured bound; ErrDiscoveryExhausted is returned
// when no peer list could be obtained within it.
func (m *Manager) Discover(ctx context.Context) error {
	var lastErr error

	for attempt := 0; attempt < m.opts.DiscoveryAttempts; attempt++ {
		if attempt > 0 {
			if err := m.sleepBackoff(ctx, attempt-1); err != nil {
				return err
			}
		}

		source, err := m.RandomPeer(0)
		if err != nil {
			lastErr = err
			continue
		}

		cctx, cancel := context.WithTimeout(ctx, m.opts.SlowProbeTimeout)
		candidates, err := m.transport.ListPeers(cctx, source.Addr())
		cancel()
		if err != nil {
			log.Debugf("peernet: peer list from %s failed: %v", source.Addr(), err)
			lastErr = err
			continue
		}

		added := 0
		for _, c := range candidates {
			if c.Status != protocol.StatusOK {
				continue
			}
			if isLoopback(c.Address) || m.isSelf(c.Address, c.Port) {
				continue
			}
			if m.registry.Insert(c.Address, c.Port) {
				m.emitAdmitted(Peer{Address: c.Address, Port: c.Port})
				added++
			}
		}

		log.Debugf("peernet: discovered %d new peers via %s (%d advertised)", added, source.Addr(), len(candidates))
		return nil
	}

	return fmt.Errorf("%w: %v", ErrDiscoveryExhausted, lastErr)
}
