package peernet

import "errors"

var (
	// ErrNoSeedPeers is returned when the manager is constructed with an
	// empty seed list. This is a fatal configuration error.
	ErrNoSeedPeers = errors.New("peernet: no seed peers configured")

	// ErrProbeFailed wraps any transport or timeout failure of a single
	// peer probe.
	ErrProbeFailed = errors.New("peernet: probe failed")

	// ErrWrongNetwork rejects a candidate whose network identity does not
	// match the local network.
	ErrWrongNetwork = errors.New("peernet: peer belongs to a different network")

	// ErrLocalhostRejected rejects a candidate advertising a loopback
	// address.
	ErrLocalhostRejected = errors.New("peernet: loopback peers are not accepted")

	// ErrNoEligiblePeer is returned when the selection filters exclude
	// every registered peer, or the registry is empty.
	ErrNoEligiblePeer = errors.New("peernet: no eligible peer")

	// ErrDiscoveryExhausted is returned when discovery made no progress
	// within its retry bound.
	ErrDiscoveryExhausted = errors.New("peernet: discovery attempts exhausted")

	// ErrDownloadExhausted is returned when a block download failed across
	// its full retry bound.
	ErrDownloadExhausted = errors.New("peernet: block download attempts exhausted")

	// ErrRecoveryExhausted is returned when the network status cycle could
	// not populate the registry within its retry bound.
	ErrRecoveryExhausted = errors.New("peernet: network status recovery exhausted")

	// ErrNoHeightData is the explicit no-data result of NetworkHeight when
	// no peer reports a height.
	ErrNoHeightData = errors.New("peernet: no peer reports a chain height")

	// ErrNoForgingData is the explicit no-data result of ForgingStatus when
	// no peer shares the local slot.
	ErrNoForgingData = errors.New("peernet: no peer reports the current slot")
)
