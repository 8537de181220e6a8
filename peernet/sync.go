package peernet

import (
	"context"
	"fmt"

	"forgenet/datamodel/block"

	log "github.com/sirupsen/logrus"
)

// DownloadBlocks fetches the block range starting at fromHeight from a
// download-capable peer. The selected peer is re-probed for liveness first;
// on probe or download failure a freshly selected peer is tried, bounded by
// the configured attempt count, after which ErrDownloadExhausted surfaces.
func (m *Manager) DownloadBlocks(ctx context.Context, fromHeight uint64) ([]*block.Block, error) {
	var lastErr error

	for attempt := 0; attempt < m.opts.DownloadAttempts; attempt++ {
		if attempt > 0 {
			if err := m.sleepBackoff(ctx, attempt-1); err != nil {
				return nil, err
			}
		}

		peer, err := m.RandomDownloadPeer()
		if err != nil {
			lastErr = err
			continue
		}

		state, latency, err := m.probePeer(ctx, peer.Address, peer.Port, m.opts.SlowProbeTimeout)
		if err != nil {
			log.Debugf("peernet: download probe of %s failed: %v", peer.Addr(), err)
			lastErr = err
			continue
		}
		m.registry.UpdateState(peer.Address, state, latency)

		cctx, cancel := context.WithTimeout(ctx, m.opts.SlowProbeTimeout)
		blocks, err := m.transport.DownloadBlocks(cctx, peer.Addr(), fromHeight, m.opts.DownloadBatch)
		cancel()
		if err != nil {
			log.Debugf("peernet: download from %s failed: %v", peer.Addr(), err)
			lastErr = err
			continue
		}

		log.Infof("peernet: downloaded %d blocks from %s starting at height %d", len(blocks), peer.Addr(), fromHeight)
		return blocks, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrDownloadExhausted, lastErr)
}
