package block

import (
	"fmt"
	"sync"
	"time"
)

// MemoryChain is a minimal in-memory ChainState. It gives the network layer
// a working collaborator when no full chain implementation is wired in;
// blocks are kept in order and validated only for height continuity.
type MemoryChain struct {
	mu           sync.Mutex
	blocks       []*Block
	epoch        time.Time
	slotDuration time.Duration
	forging      bool
}

var _ ChainState = (*MemoryChain)(nil)

// NewMemoryChain starts a chain at the given genesis block. The slot clock
// counts slots of slotDuration since epoch.
func NewMemoryChain(genesis *Block, epoch time.Time, slotDuration time.Duration) *MemoryChain {
	if slotDuration <= 0 {
		slotDuration = 8 * time.Second
	}
	return &MemoryChain{
		blocks:       []*Block{genesis},
		epoch:        epoch,
		slotDuration: slotDuration,
	}
}

func (c *MemoryChain) Height() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocks[len(c.blocks)-1].Height
}

func (c *MemoryChain) CurrentSlot() uint64 {
	elapsed := time.Since(c.epoch)
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed / c.slotDuration)
}

func (c *MemoryChain) ForgingAllowed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forging
}

// SetForgingAllowed toggles this node's forging eligibility as decided by
// the (external) consensus algorithm.
func (c *MemoryChain) SetForgingAllowed(allowed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forging = allowed
}

func (c *MemoryChain) Blocks(from uint64, limit int) ([]*Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]*Block, 0, limit)
	for _, b := range c.blocks {
		if b.Height < from {
			continue
		}
		result = append(result, b)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (c *MemoryChain) ApplyBlock(b *Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tip := c.blocks[len(c.blocks)-1]
	if b.Height != tip.Height+1 {
		return fmt.Errorf("block %d does not extend tip %d", b.Height, tip.Height)
	}
	if b.PreviousID != tip.ID {
		return fmt.Errorf("block %d does not reference tip %s", b.Height, tip.ID)
	}
	c.blocks = append(c.blocks, b)
	return nil
}
