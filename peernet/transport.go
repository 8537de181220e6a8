package peernet

import (
	"context"
	"fmt"

	"forgenet/datamodel/block"
	"forgenet/net/cbrpc"
	"forgenet/netid"
	"forgenet/peernet/protocol"
)

// Transport performs the wire operations against one remote peer. addr is
// the dialable "host:port" form. Implementations must honor context
// cancellation by tearing down the underlying network attempt.
type Transport interface {
	Ping(ctx context.Context, addr string) (PeerState, error)
	ListPeers(ctx context.Context, addr string) ([]protocol.PeerInfo, error)
	PostBlock(ctx context.Context, addr string, blk *block.Block) error
	DownloadBlocks(ctx context.Context, addr string, fromHeight uint64, batch int) ([]*block.Block, error)
}

// WireTransport implements Transport over the CBOR-RPC protocol. Each
// operation dials a fresh connection so that a timed-out call cancels its
// own network attempt without affecting others.
type WireTransport struct {
	networkID *netid.ID
	localPort int // advertised in pings for reverse registration
}

func NewWireTransport(networkID *netid.ID, localPort int) *WireTransport {
	return &WireTransport{networkID: networkID, localPort: localPort}
}

var _ Transport = (*WireTransport)(nil)

func (t *WireTransport) Ping(ctx context.Context, addr string) (PeerState, error) {
	client, err := cbrpc.DialContext(ctx, "tcp4", addr)
	if err != nil {
		return PeerState{}, err
	}
	defer client.Close()

	req := &protocol.PingRequest{NetworkID: *t.networkID, Port: t.localPort}
	res := &protocol.PingReply{}
	if err := client.Call(ctx, protocol.MethodPing, req, res); err != nil {
		return PeerState{}, err
	}
	if !t.networkID.Equal(&res.NetworkID) {
		return PeerState{}, fmt.Errorf("%w: %s reports %s", ErrWrongNetwork, addr, res.NetworkID.String())
	}

	return PeerState{
		Height:         res.Height,
		CurrentSlot:    res.CurrentSlot,
		ForgingAllowed: res.ForgingAllowed,
		DownloadBusy:   res.DownloadBusy,
	}, nil
}

func (t *WireTransport) ListPeers(ctx context.Context, addr string) ([]protocol.PeerInfo, error) {
	client, err := cbrpc.DialContext(ctx, "tcp4", addr)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	req := &protocol.ListPeersRequest{NetworkID: *t.networkID}
	res := &protocol.ListPeersReply{}
	if err := client.Call(ctx, protocol.MethodListPeers, req, res); err != nil {
		return nil, err
	}
	return res.Peers, nil
}

func (t *WireTransport) PostBlock(ctx context.Context, addr string, blk *block.Block) error {
	client, err := cbrpc.DialContext(ctx, "tcp4", addr)
	if err != nil {
		return err
	}
	defer client.Close()

	req := &protocol.PostBlockRequest{NetworkID: *t.networkID, Block: blk}
	res := &protocol.PostBlockReply{}
	return client.Call(ctx, protocol.MethodPostBlock, req, res)
}

func (t *WireTransport) DownloadBlocks(ctx context.Context, addr string, fromHeight uint64, batch int) ([]*block.Block, error) {
	client, err := cbrpc.DialContext(ctx, "tcp4", addr)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	req := &protocol.DownloadBlocksRequest{
		NetworkID:  *t.networkID,
		FromHeight: fromHeight,
		BatchSize:  batch,
	}
	res := &protocol.DownloadBlocksReply{}
	if err := client.Call(ctx, protocol.MethodDownloadBlocks, req, res); err != nil {
		return nil, err
	}
	return res.Blocks, nil
}
