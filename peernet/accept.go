package peernet

import (
	"context"

	"forgenet/netid"

	log "github.com/sirupsen/logrus"
)

// Candidate is an externally advertised peer offered for admission.
type Candidate struct {
	Address   string
	Port      int
	NetworkID netid.ID
}

// AcceptPeer validates and admits an advertised peer. Known addresses and
// controlled-mode operation are silent no-ops. A network identity mismatch
// fails with ErrWrongNetwork and a loopback address with
// ErrLocalhostRejected, both leaving the registry unchanged. Otherwise the
// candidate is probed; an unreachable candidate is dropped silently since an
// unverifiable advertisement is not the caller's error.
func (m *Manager) AcceptPeer(ctx context.Context, c Candidate) error {
	if m.opts.Controlled {
		return nil
	}
	if m.registry.Has(c.Address) || m.isSelf(c.Address, c.Port) {
		return nil
	}

	if !m.opts.NetworkID.Equal(&c.NetworkID) {
		return ErrWrongNetwork
	}
	if isLoopback(c.Address) {
		return ErrLocalhostRejected
	}

	state, latency, err := m.probePeer(ctx, c.Address, c.Port, m.opts.SlowProbeTimeout)
	if err != nil {
		log.Debugf("peernet: advertised peer %s:%d unreachable, dropping: %v", c.Address, c.Port, err)
		return nil
	}

	if m.registry.Insert(c.Address, c.Port) {
		m.registry.UpdateState(c.Address, state, latency)
		m.emitAdmitted(Peer{Address: c.Address, Port: c.Port, State: state, Latency: latency})
		log.Infof("peernet: admitted advertised peer %s:%d", c.Address, c.Port)
	}
	return nil
}
