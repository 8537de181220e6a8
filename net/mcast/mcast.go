// Package mcast implements the multicast announcement channel. A node
// periodically publishes a CBOR-encoded PeerAnnouncement to a multicast
// group; a listener receives announcements from other nodes on the same
// segment and hands them to a registered handler.
package mcast

import (
	"bytes"
	"context"
	"net"
	"time"

	"forgenet/peernet/protocol"

	"github.com/fxamacker/cbor/v2"

	log "github.com/sirupsen/logrus"
)

const maxDatagram = 1024

// Bus is one multicast read/write pair.
type Bus struct {
	rc *net.UDPConn
	wc *net.UDPConn
}

// Join resolves the multicast group address and opens the read and write
// sides of the bus.
func Join(group string) (*Bus, error) {
	addr, err := net.ResolveUDPAddr("udp4", group)
	if err != nil {
		return nil, err
	}
	rc, err := net.ListenMulticastUDP("udp4", nil, addr)
	if err != nil {
		return nil, err
	}
	wc, err := net.DialUDP("udp4", nil, addr)
	if err != nil {
		rc.Close()
		return nil, err
	}
	return &Bus{rc: rc, wc: wc}, nil
}

func (b *Bus) Close() error {
	b.rc.Close()
	return b.wc.Close()
}

// Announce publishes this node's presence to the group.
func (b *Bus) Announce(msg *protocol.PeerAnnouncement) error {
	buf := new(bytes.Buffer)
	if err := cbor.NewEncoder(buf).Encode(msg); err != nil {
		return err
	}
	_, err := b.wc.Write(buf.Bytes())
	return err
}

// Listen receives announcements until the context is cancelled, invoking the
// handler with the sender's address for each decoded message. Malformed
// datagrams are logged and skipped.
func (b *Bus) Listen(ctx context.Context, handler func(from net.Addr, msg *protocol.PeerAnnouncement)) error {
	buf := make([]byte, maxDatagram)
	b.rc.SetReadBuffer(maxDatagram)

	for {
		// A short read deadline keeps the loop responsive to cancellation.
		b.rc.SetReadDeadline(time.Now().Add(time.Second))
		n, from, err := b.rc.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			log.Errorf("mcast: failed to read announcement: %v", err)
			continue
		}

		msg := &protocol.PeerAnnouncement{}
		if err := cbor.Unmarshal(buf[:n], msg); err != nil {
			log.Errorf("mcast: failed to decode announcement from %s: %v", from, err)
			continue
		}

		handler(from, msg)
	}
}
