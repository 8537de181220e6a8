package peernet

import (
	"net"
	"strconv"
	"time"
)

// PeerState is the state a peer reported on its last successful probe.
type PeerState struct {
	Height         uint64 // Last known chain height, zero when never probed
	CurrentSlot    uint64 // Forging slot the peer reported
	ForgingAllowed bool   // Whether the peer may forge in its current slot
	DownloadBusy   bool   // Whether the peer's download capacity is saturated
}

// Peer is one remote node known to the registry. Peers are keyed by Address;
// the registry owns all mutation.
type Peer struct {
	Address     string        // Host part, unique registry key
	Port        int           // Listen port
	State       PeerState     // Updated on every successful probe
	Latency     time.Duration // Round trip observed by the last probe
	BannedUntil time.Time     // Zero when the peer was never banned
}

// Addr returns the dialable "host:port" form.
func (p *Peer) Addr() string {
	return net.JoinHostPort(p.Address, strconv.Itoa(p.Port))
}

// Banned reports whether the peer's ban window is still open.
func (p *Peer) Banned(now time.Time) bool {
	return p.BannedUntil.After(now)
}

// isLoopback reports whether the address names the local host.
func isLoopback(address string) bool {
	if ip := net.ParseIP(address); ip != nil {
		return ip.IsLoopback()
	}
	return address == "localhost"
}
