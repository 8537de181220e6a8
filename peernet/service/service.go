// Package service implements the RPC surface a node exposes to its peers:
// the same four wire operations the manager consumes, so forgenet nodes can
// interoperate.
package service

import (
	"fmt"
	"sync/atomic"

	"forgenet/datamodel/block"
	"forgenet/netid"
	"forgenet/peernet"
	"forgenet/peernet/protocol"

	log "github.com/sirupsen/logrus"
)

const maxDownloadBatch = 400

// PeerService answers Ping, ListPeers, PostBlock and DownloadBlocks. Its
// type name is part of the wire protocol (see protocol.Method*).
type PeerService struct {
	networkID *netid.ID
	chain     block.ChainState
	registry  *peernet.Registry

	maxDownloads    int64
	activeDownloads atomic.Int64
}

// New builds the service. maxDownloads bounds concurrent block downloads;
// beyond it pings advertise saturated download capacity.
func New(networkID *netid.ID, chain block.ChainState, registry *peernet.Registry, maxDownloads int) *PeerService {
	if maxDownloads <= 0 {
		maxDownloads = 4
	}
	return &PeerService{
		networkID:    networkID,
		chain:        chain,
		registry:     registry,
		maxDownloads: int64(maxDownloads),
	}
}

func (s *PeerService) checkNetwork(id *netid.ID) error {
	if !s.networkID.Equal(id) {
		return fmt.Errorf("wrong network: %s", id.String())
	}
	return nil
}

// RPC: Ping
func (s *PeerService) Ping(req *protocol.PingRequest, res *protocol.PingReply) error {
	if err := s.checkNetwork(&req.NetworkID); err != nil {
		return err
	}

	res.NetworkID = *s.networkID
	res.Height = s.chain.Height()
	res.CurrentSlot = s.chain.CurrentSlot()
	res.ForgingAllowed = s.chain.ForgingAllowed()
	res.DownloadBusy = s.activeDownloads.Load() >= s.maxDownloads
	return nil
}

// RPC: ListPeers
func (s *PeerService) ListPeers(req *protocol.ListPeersRequest, res *protocol.ListPeersReply) error {
	if err := s.checkNetwork(&req.NetworkID); err != nil {
		return err
	}

	peers := s.registry.All()
	res.Peers = make([]protocol.PeerInfo, 0, len(peers))
	for _, p := range peers {
		res.Peers = append(res.Peers, protocol.PeerInfo{
			Address: p.Address,
			Port:    p.Port,
			Status:  protocol.StatusOK,
		})
	}
	return nil
}

// RPC: PostBlock
func (s *PeerService) PostBlock(req *protocol.PostBlockRequest, res *protocol.PostBlockReply) error {
	if err := s.checkNetwork(&req.NetworkID); err != nil {
		return err
	}
	if req.Block == nil {
		return fmt.Errorf("missing block")
	}

	if err := s.chain.ApplyBlock(req.Block); err != nil {
		log.Debugf("PeerService.PostBlock: block %d rejected: %v", req.Block.Height, err)
		return err
	}
	res.Accepted = true
	return nil
}

// RPC: DownloadBlocks
func (s *PeerService) DownloadBlocks(req *protocol.DownloadBlocksRequest, res *protocol.DownloadBlocksReply) error {
	if err := s.checkNetwork(&req.NetworkID); err != nil {
		return err
	}

	s.activeDownloads.Add(1)
	defer s.activeDownloads.Add(-1)

	batch := req.BatchSize
	if batch <= 0 || batch > maxDownloadBatch {
		batch = maxDownloadBatch
	}

	blocks, err := s.chain.Blocks(req.FromHeight, batch)
	if err != nil {
		return err
	}
	res.Blocks = blocks
	return nil
}
