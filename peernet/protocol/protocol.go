package protocol

import (
	"forgenet/datamodel/block"
	"forgenet/netid"
)

// RPC method names served by the peer service.
const (
	MethodPing           = "PeerService.Ping"
	MethodListPeers      = "PeerService.ListPeers"
	MethodPostBlock      = "PeerService.PostBlock"
	MethodDownloadBlocks = "PeerService.DownloadBlocks"
)

// PeerStatus values reported in ListPeers replies.
const (
	StatusOK        = "OK"
	StatusSyncing   = "SYNCING"
	StatusUnhealthy = "UNHEALTHY"
)

type PingRequest struct {
	NetworkID netid.ID `cbor:"1,keyasint,omitempty"` // Caller's network identity
	Port      int      `cbor:"2,keyasint,omitempty"` // Caller's listen port, for reverse registration
}

type PingReply struct {
	NetworkID      netid.ID `cbor:"1,keyasint,omitempty"` // Responder's network identity
	Height         uint64   `cbor:"2,keyasint,omitempty"` // Responder's chain height
	CurrentSlot    uint64   `cbor:"3,keyasint,omitempty"` // Responder's current forging slot
	ForgingAllowed bool     `cbor:"4,keyasint,omitempty"` // Whether the responder may forge right now
	DownloadBusy   bool     `cbor:"5,keyasint,omitempty"` // Whether the responder's download capacity is saturated
}

type ListPeersRequest struct {
	NetworkID netid.ID `cbor:"1,keyasint,omitempty"`
}

// PeerInfo is one entry of a ListPeers reply.
type PeerInfo struct {
	Address string `cbor:"1,keyasint,omitempty"`
	Port    int    `cbor:"2,keyasint,omitempty"`
	Status  string `cbor:"3,keyasint,omitempty"`
}

type ListPeersReply struct {
	Peers []PeerInfo `cbor:"1,keyasint,omitempty"`
}

type PostBlockRequest struct {
	NetworkID netid.ID     `cbor:"1,keyasint,omitempty"`
	Block     *block.Block `cbor:"2,keyasint,omitempty"`
}

type PostBlockReply struct {
	Accepted bool `cbor:"1,keyasint,omitempty"`
}

type DownloadBlocksRequest struct {
	NetworkID  netid.ID `cbor:"1,keyasint,omitempty"`
	FromHeight uint64   `cbor:"2,keyasint,omitempty"` // Return blocks starting at this height
	BatchSize  int      `cbor:"3,keyasint,omitempty"`
}

type DownloadBlocksReply struct {
	Blocks []*block.Block `cbor:"1,keyasint,omitempty"`
}

// PeerAnnouncement is published on the multicast group so that nodes on the
// same segment can find each other without a seed entry.
type PeerAnnouncement struct {
	NetworkID netid.ID `cbor:"1,keyasint,omitempty"`
	Address   string   `cbor:"2,keyasint,omitempty"`
	Port      int      `cbor:"3,keyasint,omitempty"`
}
