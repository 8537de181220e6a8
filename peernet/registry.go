package peernet

import (
	"sync"
	"time"
)

// Registry is the address-keyed collection of known peers. It is owned by
// the Manager and shared by every peer operation; all mutation goes through
// its methods so that interleaved completions of concurrent network calls
// cannot produce duplicate or inconsistent entries.
type Registry struct {
	mu    sync.Mutex
	peers map[string]*Peer
}

func NewRegistry() *Registry {
	return &Registry{
		peers: make(map[string]*Peer),
	}
}

// Insert adds a peer if its address is not already registered. Re-insertion
// of a known address is a no-op; it reports whether the peer was added.
func (r *Registry) Insert(address string, port int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.peers[address]; ok {
		return false
	}
	r.peers[address] = &Peer{Address: address, Port: port}
	return true
}

// Remove evicts the peer with the given address, reporting whether it was
// present.
func (r *Registry) Remove(address string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.peers[address]; !ok {
		return false
	}
	delete(r.peers, address)
	return true
}

func (r *Registry) Has(address string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.peers[address]
	return ok
}

// Get returns a copy of the peer with the given address.
func (r *Registry) Get(address string) (Peer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.peers[address]
	if !ok {
		return Peer{}, false
	}
	return *p, true
}

// All returns a snapshot of every registered peer.
func (r *Registry) All() []Peer {
	return r.Filter(func(*Peer) bool { return true })
}

// Filter returns a snapshot of the peers matching the predicate.
func (r *Registry) Filter(pred func(*Peer) bool) []Peer {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]Peer, 0, len(r.peers))
	for _, p := range r.peers {
		if pred(p) {
			result = append(result, *p)
		}
	}
	return result
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers)
}

// UpdateState records the outcome of a successful probe. It reports whether
// the peer is still registered; a peer evicted while its probe was in flight
// is not resurrected.
func (r *Registry) UpdateState(address string, state PeerState, latency time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.peers[address]
	if !ok {
		return false
	}
	p.State = state
	p.Latency = latency
	return true
}

// Ban opens a ban window for the peer, excluding it from selection until
// the given time.
func (r *Registry) Ban(address string, until time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.peers[address]
	if !ok {
		return false
	}
	p.BannedUntil = until
	return true
}

// Reset repopulates the registry wholesale from the given peer list,
// dropping all current entries and their state.
func (r *Registry) Reset(peers []Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.peers = make(map[string]*Peer, len(peers))
	for _, p := range peers {
		p := p
		r.peers[p.Address] = &p
	}
}
