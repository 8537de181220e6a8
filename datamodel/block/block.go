package block

// Block is one chain block as exchanged between peers. The network layer
// treats the payload as opaque; validation and application belong to the
// chain collaborator behind the ChainState interface.
type Block struct {
	ID         string `cbor:"1,keyasint,omitempty"` // Block identifier
	Height     uint64 `cbor:"2,keyasint,omitempty"` // Position in the chain
	PreviousID string `cbor:"3,keyasint,omitempty"` // Identifier of the preceding block
	Timestamp  uint64 `cbor:"4,keyasint,omitempty"` // Network epoch seconds
	Generator  string `cbor:"5,keyasint,omitempty"` // Public key of the forging node
	Payload    []byte `cbor:"6,keyasint,omitempty"` // Serialized transactions
}

// ChainState is the node-local chain collaborator the network layer reads
// from and hands downloaded blocks to. Transaction processing, validation
// and persistence live behind this interface.
type ChainState interface {
	// Height returns the height of the last applied block.
	Height() uint64

	// CurrentSlot returns the current forging slot number derived from the
	// network epoch clock.
	CurrentSlot() uint64

	// ForgingAllowed reports whether this node is currently permitted to
	// forge in the active slot window.
	ForgingAllowed() bool

	// Blocks returns up to limit consecutive blocks starting at the given
	// height, for serving a peer's download request.
	Blocks(from uint64, limit int) ([]*Block, error)

	// ApplyBlock hands a block received from the network to the chain for
	// validation and application.
	ApplyBlock(*Block) error
}
