// Package cbrpc implements a small CBOR-encoded RPC protocol over TCP.
// A request is a RequestHeader followed by the argument value; a response is
// a ResponseHeader followed, when the header carries no error, by the reply
// value.
package cbrpc

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/fxamacker/cbor/v2"

	log "github.com/sirupsen/logrus"
)

// ServerError is an error string returned by the remote side.
type ServerError string

func (e ServerError) Error() string {
	return string(e)
}

var ErrShutdown = errors.New("connection is shut down")

type pendingCall struct {
	reply any
	done  chan error
}

// Client is a connection to one remote RPC server. Calls may be issued from
// multiple goroutines; replies are matched to calls by sequence number.
type Client struct {
	conn io.ReadWriteCloser

	mu       sync.Mutex // protects the fields below
	enc      *cbor.Encoder
	seq      uint64
	pending  map[uint64]*pendingCall
	closing  bool
	shutdown bool
}

func NewClient(conn io.ReadWriteCloser) *Client {
	client := &Client{
		conn:    conn,
		enc:     cbor.NewEncoder(conn),
		pending: make(map[uint64]*pendingCall),
	}
	go client.input()
	return client
}

// Dial connects to an RPC server at the specified network address.
func Dial(network, address string) (*Client, error) {
	conn, err := net.Dial(network, address)
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

// DialContext connects to an RPC server, honoring the context's deadline and
// cancellation during connection establishment.
func DialContext(ctx context.Context, network, address string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

// Call invokes the named method and waits for the reply. When the context is
// cancelled or expires, the underlying connection is closed so that the
// outstanding network operation is torn down rather than left dangling.
func (client *Client) Call(ctx context.Context, serviceMethod string, args any, reply any) error {
	call := &pendingCall{
		reply: reply,
		done:  make(chan error, 1),
	}

	client.mu.Lock()
	if client.closing || client.shutdown {
		client.mu.Unlock()
		return ErrShutdown
	}
	seq := client.seq
	client.seq++
	client.pending[seq] = call

	err := client.enc.Encode(&RequestHeader{Seq: seq, Method: serviceMethod})
	if err == nil {
		err = client.enc.Encode(args)
	}
	if err != nil {
		delete(client.pending, seq)
		client.mu.Unlock()
		return err
	}
	client.mu.Unlock()

	select {
	case <-ctx.Done():
		// Closing the connection unblocks the reader and cancels the
		// in-flight request on the wire.
		client.Close()
		<-call.done
		return ctx.Err()
	case err := <-call.done:
		return err
	}
}

// input reads responses until the connection fails, dispatching each to its
// pending call.
func (client *Client) input() {
	var err error

	dec := cbor.NewDecoder(client.conn)
	for err == nil {
		var response ResponseHeader
		if err = dec.Decode(&response); err != nil {
			break
		}

		client.mu.Lock()
		call := client.pending[response.Seq]
		delete(client.pending, response.Seq)
		client.mu.Unlock()

		switch {
		case call == nil:
			// No pending call: the request write partially failed and the
			// call was already removed. Consume the body if one follows.
			log.Warnf("cbrpc: reply for unknown sequence %d, discarding", response.Seq)
			if response.Err == "" {
				var dummy any
				if e := dec.Decode(&dummy); e != nil {
					err = e
				}
			}

		case response.Err != "":
			call.done <- ServerError(response.Err)

		default:
			call.done <- dec.Decode(call.reply)
		}
	}

	// Terminate pending calls.
	client.mu.Lock()
	defer client.mu.Unlock()

	client.shutdown = true
	shutdownErr := err
	if client.closing || err == io.EOF || errors.Is(err, net.ErrClosed) {
		shutdownErr = ErrShutdown
	} else {
		log.Debugf("cbrpc: client input loop error: %v", err)
	}

	for _, call := range client.pending {
		call.done <- shutdownErr
	}
	client.pending = make(map[uint64]*pendingCall)
}

// Close closes the underlying connection. If the client is already shutting
// down, ErrShutdown is returned.
func (client *Client) Close() error {
	client.mu.Lock()
	if client.closing {
		client.mu.Unlock()
		return ErrShutdown
	}
	client.closing = true
	client.mu.Unlock()
	return client.conn.Close()
}
