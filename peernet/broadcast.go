package peernet

import (
	"context"
	"sync/atomic"

	"forgenet/datamodel/block"

	"golang.org/x/sync/errgroup"

	log "github.com/sirupsen/logrus"
)

// BroadcastBlock announces a freshly produced block to every registered
// peer. The fan-out is best effort and bounded by the concurrency limit: a
// peer's failure is neither retried nor does it abort the broadcast. The
// call returns once every send has settled, with the aggregate outcome.
func (m *Manager) BroadcastBlock(ctx context.Context, blk *block.Block) (acked, failed int) {
	peers := m.registry.All()

	var okCount, failCount atomic.Int64

	wg, cctx := errgroup.WithContext(ctx)
	wg.SetLimit(m.opts.Concurrency)

	for _, p := range peers {
		p := p
		wg.Go(func() error {
			sctx, cancel := context.WithTimeout(cctx, m.opts.SlowProbeTimeout)
			defer cancel()

			if err := m.transport.PostBlock(sctx, p.Addr(), blk); err != nil {
				log.Debugf("peernet: block post to %s failed: %v", p.Addr(), err)
				failCount.Add(1)
				return nil
			}
			okCount.Add(1)
			return nil
		})
	}

	wg.Wait()

	acked, failed = int(okCount.Load()), int(failCount.Load())
	log.Infof("peernet: broadcast block %d to %d peers, %d acked, %d failed", blk.Height, len(peers), acked, failed)
	return acked, failed
}
