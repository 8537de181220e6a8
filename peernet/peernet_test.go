package peernet

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"forgenet/datamodel/block"
	"forgenet/netid"
	"forgenet/peernet/protocol"

	"github.com/stretchr/testify/require"
)

// fakeTransport implements Transport with overridable per-operation
// functions and call counting.
type fakeTransport struct {
	mu sync.Mutex

	ping      func(addr string) (PeerState, error)
	listPeers func(addr string) ([]protocol.PeerInfo, error)
	postBlock func(addr string) error
	download  func(addr string, from uint64) ([]*block.Block, error)

	pingCalls      map[string]int
	listPeersCalls int
	downloadCalls  map[string]int
}

func (f *fakeTransport) Ping(ctx context.Context, addr string) (PeerState, error) {
	f.mu.Lock()
	if f.pingCalls == nil {
		f.pingCalls = make(map[string]int)
	}
	f.pingCalls[addr]++
	f.mu.Unlock()

	if f.ping == nil {
		return PeerState{}, nil
	}
	return f.ping(addr)
}

func (f *fakeTransport) ListPeers(ctx context.Context, addr string) ([]protocol.PeerInfo, error) {
	f.mu.Lock()
	f.listPeersCalls++
	f.mu.Unlock()

	if f.listPeers == nil {
		return nil, nil
	}
	return f.listPeers(addr)
}

func (f *fakeTransport) PostBlock(ctx context.Context, addr string, blk *block.Block) error {
	if f.postBlock == nil {
		return nil
	}
	return f.postBlock(addr)
}

func (f *fakeTransport) DownloadBlocks(ctx context.Context, addr string, from uint64, batch int) ([]*block.Block, error) {
	f.mu.Lock()
	if f.downloadCalls == nil {
		f.downloadCalls = make(map[string]int)
	}
	f.downloadCalls[addr]++
	f.mu.Unlock()

	if f.download == nil {
		return nil, nil
	}
	return f.download(addr, from)
}

func (f *fakeTransport) pingCount(addr string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingCalls[addr]
}

// chainStub is a fixed-state chain collaborator.
type chainStub struct {
	height  uint64
	slot    uint64
	forging bool
}

func (c *chainStub) Height() uint64       { return c.height }
func (c *chainStub) CurrentSlot() uint64  { return c.slot }
func (c *chainStub) ForgingAllowed() bool { return c.forging }
func (c *chainStub) Blocks(from uint64, limit int) ([]*block.Block, error) {
	return nil, nil
}
func (c *chainStub) ApplyBlock(*block.Block) error { return nil }

// eventRecorder captures lifecycle notifications.
type eventRecorder struct {
	mu       sync.Mutex
	admitted []Peer
	evicted  []Peer
	sweeps   []SweepSummary
}

func (e *eventRecorder) PeerAdmitted(p Peer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.admitted = append(e.admitted, p)
}

func (e *eventRecorder) PeerEvicted(p Peer, reason error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evicted = append(e.evicted, p)
}

func (e *eventRecorder) SweepDone(s SweepSummary) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sweeps = append(e.sweeps, s)
}

func (e *eventRecorder) lastSweep(t *testing.T) SweepSummary {
	t.Helper()
	e.mu.Lock()
	defer e.mu.Unlock()
	require.NotEmpty(t, e.sweeps)
	return e.sweeps[len(e.sweeps)-1]
}

func seedList(addrs ...string) []Seed {
	seeds := make([]Seed, 0, len(addrs))
	for _, a := range addrs {
		seeds = append(seeds, Seed{Address: a, Port: 4100})
	}
	return seeds
}

// newTestManager builds a manager with fast retries and deterministic
// selection.
func newTestManager(t *testing.T, opts Options) *Manager {
	t.Helper()

	if opts.NetworkID == nil {
		id, err := netid.Random()
		require.NoError(t, err)
		opts.NetworkID = id
	}
	if opts.Chain == nil {
		opts.Chain = &chainStub{}
	}
	if opts.Transport == nil {
		opts.Transport = &fakeTransport{}
	}
	if opts.BackoffBase == 0 {
		opts.BackoffBase = time.Millisecond
	}
	if opts.BackoffMax == 0 {
		opts.BackoffMax = 2 * time.Millisecond
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(1))
	}

	m, err := New(opts)
	require.NoError(t, err)
	return m
}

func TestNewRequiresSeeds(t *testing.T) {
	id, err := netid.Random()
	require.NoError(t, err)

	_, err = New(Options{NetworkID: id, Chain: &chainStub{}})
	require.ErrorIs(t, err, ErrNoSeedPeers)
}

func TestRegistryExcludesSelf(t *testing.T) {
	self := Seed{Address: "10.0.0.1", Port: 4100}
	m := newTestManager(t, Options{
		Seeds: seedList("10.0.0.1", "10.0.0.2", "10.0.0.3"),
		Self:  self,
	})

	require.Equal(t, 2, m.Registry().Len())
	require.False(t, m.Registry().Has("10.0.0.1"))
	require.True(t, m.Registry().Has("10.0.0.2"))
	require.True(t, m.Registry().Has("10.0.0.3"))
}

func TestSuspendPeerExcludesFromSelection(t *testing.T) {
	m := newTestManager(t, Options{Seeds: seedList("10.0.0.2")})

	m.SuspendPeer("10.0.0.2")

	_, err := m.RandomPeer(0)
	require.ErrorIs(t, err, ErrNoEligiblePeer)
}
