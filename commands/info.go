package commands

import (
	"context"
	"time"

	"forgenet/config"
	"forgenet/datastore/peercache"
)

// RunInfo prints the node's network identity, configured seeds and the
// contents of the peer dial-hint cache.
func RunInfo(ctx context.Context, cfg *config.Config) {
	if cfg.Node.NetworkID != nil {
		log.Infof("Network identity: %s", cfg.Node.NetworkID.String())
	} else {
		log.Warn("Network identity is not set, run 'init' first")
	}
	log.Infof("Controlled mode: %t", cfg.Node.ControlledMode)

	log.Infof("Seed peers: %d configured", len(cfg.Network.SeedPeers))
	for _, s := range cfg.Network.SeedPeers {
		log.Infof("Seed: %s:%d", s.Address, s.Port)
	}

	if cfg.DataStore.PeerCachePath == "" {
		return
	}

	cache, err := peercache.Open(cfg.DataStore.PeerCachePath)
	if err != nil {
		log.Errorf("Failed to open peer cache: %v", err)
		return
	}
	defer cache.Close()

	hints, err := cache.All()
	if err != nil {
		log.Errorf("Failed to enumerate peer cache: %v", err)
		return
	}

	log.Infof("Peer cache: %d entries", len(hints))
	for _, h := range hints {
		log.Infof("Cached peer: %s:%d, last seen %v ago", h.Address, h.Port, time.Since(h.LastSeen).Round(time.Second))
	}
}
