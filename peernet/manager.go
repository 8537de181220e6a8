// Package peernet implements the peer-network management layer: the live
// registry of remote nodes, reachability probing, peer discovery, cleanup
// sweeps, consensus metrics, peer selection, block sync and broadcast, and
// admission of externally advertised peers.
package peernet

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"forgenet/datamodel/block"
	"forgenet/datastore/peercache"
	"forgenet/netid"

	"golang.org/x/sync/singleflight"

	log "github.com/sirupsen/logrus"
)

// Seed is one configured bootstrap peer.
type Seed struct {
	Address string
	Port    int
}

// Options configures a Manager. Zero fields fall back to the documented
// defaults; Seeds, NetworkID and Chain are required.
type Options struct {
	// Seeds is the configured bootstrap peer list. Must be non-empty.
	Seeds []Seed

	// Self is this node's advertised address and listen port, excluded
	// from the registry.
	Self Seed

	// NetworkID identifies the logical network; candidates advertising a
	// different identity are rejected.
	NetworkID *netid.ID

	// Chain is the local chain collaborator, read for the current slot and
	// served heights.
	Chain block.ChainState

	// Controlled disables discovery, sweeps and external peer admission
	// for isolated operation.
	Controlled bool

	// FastProbeTimeout bounds sweep-mode probes (default 1s);
	// SlowProbeTimeout bounds default probes (default 5s).
	FastProbeTimeout time.Duration
	SlowProbeTimeout time.Duration

	// Concurrency caps the sweep and broadcast fan-out (default 16).
	Concurrency int

	// Retry bounds (defaults: discovery 5, download 5, recovery 3).
	DiscoveryAttempts int
	DownloadAttempts  int
	RecoveryAttempts  int

	// Exponential backoff between retries (defaults 500ms base, 10s cap).
	BackoffBase time.Duration
	BackoffMax  time.Duration

	// DownloadBatch is the block count requested per download (default 400).
	DownloadBatch int

	// BanWindow is how long a suspended peer stays excluded from selection
	// (default 10m).
	BanWindow time.Duration

	// Transport overrides the wire transport; nil selects the CBOR-RPC
	// WireTransport.
	Transport Transport

	// Events receives lifecycle notifications; may be nil.
	Events Events

	// Cache holds dial hints across restarts; may be nil.
	Cache *peercache.Cache

	// Rand drives peer selection; nil seeds a new source.
	Rand *rand.Rand
}

func (o *Options) withDefaults() {
	if o.FastProbeTimeout <= 0 {
		o.FastProbeTimeout = time.Second
	}
	if o.SlowProbeTimeout <= 0 {
		o.SlowProbeTimeout = 5 * time.Second
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 16
	}
	if o.DiscoveryAttempts <= 0 {
		o.DiscoveryAttempts = 5
	}
	if o.DownloadAttempts <= 0 {
		o.DownloadAttempts = 5
	}
	if o.RecoveryAttempts <= 0 {
		o.RecoveryAttempts = 3
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 500 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 10 * time.Second
	}
	if o.DownloadBatch <= 0 {
		o.DownloadBatch = 400
	}
	if o.BanWindow <= 0 {
		o.BanWindow = 10 * time.Minute
	}
}

// Manager owns the registry and orchestrates every peer operation. It is the
// sole entry point the rest of the node uses.
type Manager struct {
	opts      Options
	registry  *Registry
	transport Transport
	chain     block.ChainState
	events    Events
	cache     *peercache.Cache

	rngMu sync.Mutex
	rng   *rand.Rand

	sf   singleflight.Group
	stop chan struct{}
	once sync.Once
}

// New validates the options and builds a Manager with the registry seeded
// from the configured list minus this node's own address.
func New(opts Options) (*Manager, error) {
	if len(opts.Seeds) == 0 {
		return nil, ErrNoSeedPeers
	}
	if opts.NetworkID == nil {
		return nil, errors.New("peernet: network identity is required")
	}
	if opts.Chain == nil {
		return nil, errors.New("peernet: chain collaborator is required")
	}
	opts.withDefaults()

	m := &Manager{
		opts:     opts,
		registry: NewRegistry(),
		chain:    opts.Chain,
		events:   opts.Events,
		cache:    opts.Cache,
		rng:      opts.Rand,
		stop:     make(chan struct{}),
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	m.transport = opts.Transport
	if m.transport == nil {
		m.transport = NewWireTransport(opts.NetworkID, opts.Self.Port)
	}

	m.reseed()
	return m, nil
}

// Registry exposes the registry to the peer service so that remote nodes
// can be answered with the current peer list.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// GetPeers returns a snapshot of all registered peers.
func (m *Manager) GetPeers() []Peer {
	return m.registry.All()
}

// Start brings the peer network up. On anything but a fresh network
// bootstrap it runs a full network status update before returning.
func (m *Manager) Start(ctx context.Context, genesisStart bool) error {
	m.mergeCachedHints()

	log.Infof("peernet: starting with %d seed peers, %d registered", len(m.opts.Seeds), m.registry.Len())

	if genesisStart {
		return nil
	}
	return m.UpdateNetworkStatus(ctx)
}

// Stop halts recurring work. Safe to call more than once.
func (m *Manager) Stop() {
	m.once.Do(func() { close(m.stop) })
}

func (m *Manager) stopped() bool {
	select {
	case <-m.stop:
		return true
	default:
		return false
	}
}

// UpdateNetworkStatus runs one discovery and cleanup cycle, re-seeding the
// registry and retrying within a bound when the registry stays
// underpopulated. Concurrent triggers collapse into a single run.
func (m *Manager) UpdateNetworkStatus(ctx context.Context) error {
	if m.opts.Controlled || m.stopped() {
		return nil
	}

	_, err, _ := m.sf.Do("updateNetworkStatus", func() (any, error) {
		return nil, m.updateNetworkStatus(ctx)
	})
	return err
}

func (m *Manager) updateNetworkStatus(ctx context.Context) error {
	// A healthy registry holds at least every seed except ourselves.
	minPeers := len(m.opts.Seeds) - 1

	for attempt := 0; attempt < m.opts.RecoveryAttempts; attempt++ {
		if attempt > 0 {
			if err := m.sleepBackoff(ctx, attempt-1); err != nil {
				return err
			}
		}

		err := m.Discover(ctx)
		if err == nil {
			m.Sweep(ctx, false)
			if m.registry.Len() >= minPeers {
				return nil
			}
			log.Warnf("peernet: registry underpopulated after sweep: %d < %d", m.registry.Len(), minPeers)
		} else {
			log.Warnf("peernet: discovery failed: %v", err)
		}

		m.reseed()
	}

	return ErrRecoveryExhausted
}

// reseed repopulates the registry wholesale from the configured seed list,
// skipping this node's own address.
func (m *Manager) reseed() {
	peers := make([]Peer, 0, len(m.opts.Seeds))
	for _, s := range m.opts.Seeds {
		if m.isSelf(s.Address, s.Port) {
			continue
		}
		peers = append(peers, Peer{Address: s.Address, Port: s.Port})
	}
	m.registry.Reset(peers)
}

func (m *Manager) isSelf(address string, port int) bool {
	return address == m.opts.Self.Address && port == m.opts.Self.Port
}

// SuspendPeer opens the configured ban window for a peer, typically after it
// served an invalid block.
func (m *Manager) SuspendPeer(address string) {
	if m.registry.Ban(address, time.Now().Add(m.opts.BanWindow)) {
		log.Infof("peernet: suspended %s for %v", address, m.opts.BanWindow)
	}
}

// probePeer performs one bounded handshake against a peer and returns the
// reported state and the observed round trip. The registry is not touched;
// callers decide whether to record or evict.
func (m *Manager) probePeer(ctx context.Context, address string, port int, timeout time.Duration) (PeerState, time.Duration, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p := Peer{Address: address, Port: port}
	start := time.Now()
	state, err := m.transport.Ping(cctx, p.Addr())
	latency := time.Since(start)
	if err != nil {
		return PeerState{}, 0, fmt.Errorf("%w: %s: %v", ErrProbeFailed, p.Addr(), err)
	}
	return state, latency, nil
}

// sleepBackoff waits the exponential backoff step for the given attempt,
// aborting early on cancellation or shutdown.
func (m *Manager) sleepBackoff(ctx context.Context, attempt int) error {
	d := m.opts.BackoffBase << uint(attempt)
	if d > m.opts.BackoffMax || d <= 0 {
		d = m.opts.BackoffMax
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.stop:
		return context.Canceled
	case <-t.C:
		return nil
	}
}

// mergeCachedHints inserts dial hints persisted by earlier runs behind the
// configured seeds. Hint failures only cost a probe during the next sweep,
// so errors here are not fatal.
func (m *Manager) mergeCachedHints() {
	if m.cache == nil {
		return
	}
	hints, err := m.cache.All()
	if err != nil {
		log.Warnf("peernet: unable to read peer cache: %v", err)
		return
	}
	added := 0
	for _, h := range hints {
		if m.isSelf(h.Address, h.Port) || isLoopback(h.Address) {
			continue
		}
		if m.registry.Insert(h.Address, h.Port) {
			added++
		}
	}
	if added > 0 {
		log.Infof("peernet: merged %d cached peer hints", added)
	}
}

// storeHints refreshes the dial-hint cache from peers that answered the
// latest sweep.
func (m *Manager) storeHints(peers []Peer) {
	if m.cache == nil {
		return
	}
	now := time.Now()
	for _, p := range peers {
		hint := &peercache.Hint{Address: p.Address, Port: p.Port, LastSeen: now}
		if err := m.cache.Put(hint); err != nil {
			log.Warnf("peernet: unable to cache peer %s: %v", p.Addr(), err)
			return
		}
	}
}
