package peernet

// SweepSummary is the aggregate outcome of one cleanup sweep.
type SweepSummary struct {
	Fast         bool
	Checked      int
	Responsive   int
	MedianHeight uint64
	HeightKnown  bool
	ForgingRatio float64
	ForgingKnown bool
}

// Events receives peer lifecycle notifications. All callbacks are optional;
// a nil Events drops everything. Callbacks must not block: they are invoked
// from the manager's network operations.
type Events interface {
	PeerAdmitted(p Peer)
	PeerEvicted(p Peer, reason error)
	SweepDone(s SweepSummary)
}

func (m *Manager) emitAdmitted(p Peer) {
	if m.events != nil {
		m.events.PeerAdmitted(p)
	}
}

func (m *Manager) emitEvicted(p Peer, reason error) {
	if m.events != nil {
		m.events.PeerEvicted(p, reason)
	}
}

func (m *Manager) emitSweepDone(s SweepSummary) {
	if m.events != nil {
		m.events.SweepDone(s)
	}
}
