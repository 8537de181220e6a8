package peernet

import (
	"sort"
)

// NetworkHeight derives the median chain height across peers with a known
// height. Heights sort numerically ascending; the median is the element at
// index count/2. Returns ErrNoHeightData when no peer reports a height.
func (m *Manager) NetworkHeight() (uint64, error) {
	peers := m.registry.Filter(func(p *Peer) bool {
		return p.State.Height > 0
	})
	if len(peers) == 0 {
		return 0, ErrNoHeightData
	}

	heights := make([]uint64, len(peers))
	for i, p := range peers {
		heights[i] = p.State.Height
	}
	sort.Slice(heights, func(i, j int) bool { return heights[i] < heights[j] })

	return heights[len(heights)/2], nil
}

// ForgingStatus computes, among peers sharing the local current slot, the
// fraction that are allowed to forge and report a height at or above the
// network height. Returns ErrNoForgingData when no peer shares the slot;
// callers must treat that distinctly from a ratio of zero.
func (m *Manager) ForgingStatus() (float64, error) {
	slot := m.chain.CurrentSlot()

	inSlot := m.registry.Filter(func(p *Peer) bool {
		return p.State.CurrentSlot == slot
	})
	if len(inSlot) == 0 {
		return 0, ErrNoForgingData
	}

	networkHeight, err := m.NetworkHeight()
	if err != nil {
		networkHeight = 0
	}

	forging := 0
	for _, p := range inSlot {
		if p.State.ForgingAllowed && p.State.Height >= networkHeight {
			forging++
		}
	}

	return float64(forging) / float64(len(inSlot)), nil
}
