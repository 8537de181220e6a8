package commands

import (
	"context"
	"net"
	"strconv"
	"time"

	"forgenet/config"
	"forgenet/datamodel/block"
	"forgenet/datastore/peercache"
	"forgenet/helper/timer"
	"forgenet/net/cbrpc"
	"forgenet/net/mcast"
	"forgenet/peernet"
	"forgenet/peernet/protocol"
	"forgenet/peernet/service"

	"golang.org/x/sync/errgroup"
)

// networkEpoch anchors the slot clock. Every node on a network must agree
// on it; it is part of the network definition, not local configuration.
var networkEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

const slotDuration = 8 * time.Second

// RunServe wires the node together and runs it until the context is
// cancelled: the peer RPC service, the peer manager with its recurring
// network status cycle, and the multicast announcement channel.
func RunServe(ctx context.Context, cfg *config.Config, genesisStart bool) {
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	advertised := cfg.Network.AdvertisedAddress
	if advertised == "" {
		advertised = cfg.Network.ListenAddress
	}
	selfHost, selfPortStr, err := net.SplitHostPort(advertised)
	if err != nil {
		log.Fatalf("Invalid advertised address %q: %v", advertised, err)
	}
	selfPort, err := strconv.Atoi(selfPortStr)
	if err != nil {
		log.Fatalf("Invalid advertised port %q: %v", selfPortStr, err)
	}

	// The chain collaborator. A full node replaces this with its real
	// chain; the memory chain keeps the network layer serviceable.
	genesis := &block.Block{ID: "genesis", Height: 1, Timestamp: uint64(networkEpoch.Unix())}
	chain := block.NewMemoryChain(genesis, networkEpoch, slotDuration)

	var cache *peercache.Cache
	if cfg.DataStore.PeerCachePath != "" {
		cache, err = peercache.Open(cfg.DataStore.PeerCachePath)
		if err != nil {
			log.Fatalf("Failed to open peer cache: %v", err)
		}
		defer cache.Close()
	}

	seeds := make([]peernet.Seed, 0, len(cfg.Network.SeedPeers))
	for _, s := range cfg.Network.SeedPeers {
		seeds = append(seeds, peernet.Seed{Address: s.Address, Port: s.Port})
	}

	mgr, err := peernet.New(peernet.Options{
		Seeds:             seeds,
		Self:              peernet.Seed{Address: selfHost, Port: selfPort},
		NetworkID:         cfg.Node.NetworkID,
		Chain:             chain,
		Controlled:        cfg.Node.ControlledMode,
		FastProbeTimeout:  time.Duration(cfg.Peering.FastProbeTimeoutMs) * time.Millisecond,
		SlowProbeTimeout:  time.Duration(cfg.Peering.SlowProbeTimeoutMs) * time.Millisecond,
		Concurrency:       cfg.Peering.Concurrency,
		DiscoveryAttempts: cfg.Peering.DiscoveryAttempts,
		DownloadAttempts:  cfg.Peering.DownloadAttempts,
		RecoveryAttempts:  cfg.Peering.RecoveryAttempts,
		BanWindow:         time.Duration(cfg.Peering.BanWindowSec) * time.Second,
		Cache:             cache,
	})
	if err != nil {
		log.Fatalf("Failed to create peer manager: %v", err)
	}
	defer mgr.Stop()

	listener, err := net.Listen("tcp4", cfg.Network.ListenAddress)
	if err != nil {
		log.Fatalf("Failed to create RPC listener: %v", err)
	}

	srv := cbrpc.NewServer(listener)
	svc := service.New(cfg.Node.NetworkID, chain, mgr.Registry(), cfg.Peering.Concurrency)
	if err := srv.Register(svc); err != nil {
		log.Fatalf("Failed to register peer service: %v", err)
	}

	log.Infof("Peer RPC service listening on %s, advertised as %s", srv.Addr(), advertised)

	var bus *mcast.Bus
	if cfg.Network.MulticastGroup != "" && !cfg.Node.ControlledMode {
		bus, err = mcast.Join(cfg.Network.MulticastGroup)
		if err != nil {
			log.Fatalf("Failed to join multicast group %s: %v", cfg.Network.MulticastGroup, err)
		}
		defer bus.Close()
	}

	wg, cctx := errgroup.WithContext(ctx)

	wg.Go(func() error {
		return srv.Serve(cctx)
	})

	wg.Go(func() error {
		if err := mgr.Start(cctx, genesisStart); err != nil {
			log.Errorf("Initial network status update failed: %v", err)
		}
		interval := &timer.Interval{
			Duration: time.Duration(cfg.Peering.UpdateIntervalSec) * time.Second,
			Jitter:   time.Second,
		}
		return timer.RunWithTicker(cctx, "updateNetworkStatus", interval, func(tctx context.Context) error {
			if err := mgr.UpdateNetworkStatus(tctx); err != nil {
				// A paused cycle degrades to fewer peers; the next tick
				// starts over from the seed list.
				log.Warnf("Network status update failed: %v", err)
			}
			return nil
		})
	})

	if bus != nil {
		wg.Go(func() error {
			return bus.Listen(cctx, func(from net.Addr, msg *protocol.PeerAnnouncement) {
				address := msg.Address
				if address == "" {
					if udp, ok := from.(*net.UDPAddr); ok {
						address = udp.IP.String()
					}
				}
				candidate := peernet.Candidate{Address: address, Port: msg.Port, NetworkID: msg.NetworkID}
				if err := mgr.AcceptPeer(cctx, candidate); err != nil {
					log.Debugf("Rejected announced peer %s:%d: %v", address, msg.Port, err)
				}
			})
		})

		wg.Go(func() error {
			interval := &timer.Interval{Duration: 15 * time.Second, Jitter: time.Second}
			return timer.RunWithTicker(cctx, "peerAnnouncement", interval, func(context.Context) error {
				msg := &protocol.PeerAnnouncement{
					NetworkID: *cfg.Node.NetworkID,
					Address:   selfHost,
					Port:      selfPort,
				}
				if err := bus.Announce(msg); err != nil {
					log.Errorf("Failed to publish peer announcement: %v", err)
				}
				return nil
			})
		})
	}

	if err := wg.Wait(); err != nil && err != context.Canceled {
		log.Errorf("Node stopped: %v", err)
	}
}
