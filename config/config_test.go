package config

import (
	"path/filepath"
	"testing"

	"forgenet/netid"

	"github.com/stretchr/testify/require"
)

func TestValidateRequiresSeeds(t *testing.T) {
	cfg := NewEmptyConfig("")
	cfg.Node.NetworkID = netid.FromSeed([]byte("test network"))

	require.ErrorIs(t, cfg.Validate(), ErrNoSeedPeers)

	cfg.Network.SeedPeers = []SeedPeer{{Address: "10.0.0.2", Port: 4100}}
	require.NoError(t, cfg.Validate())
}

func TestValidateRequiresNetworkID(t *testing.T) {
	cfg := NewEmptyConfig("")
	cfg.Network.SeedPeers = []SeedPeer{{Address: "10.0.0.2", Port: 4100}}

	require.Error(t, cfg.Validate())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := NewEmptyConfig(path)
	cfg.Node.NetworkID = netid.FromSeed([]byte("test network"))
	cfg.Node.ControlledMode = true
	cfg.Network.SeedPeers = []SeedPeer{{Address: "10.0.0.2", Port: 4100}}
	require.NoError(t, cfg.Save())

	loaded, err := NewConfigFromFile(path)
	require.NoError(t, err)

	require.True(t, cfg.Node.NetworkID.Equal(loaded.Node.NetworkID))
	require.True(t, loaded.Node.ControlledMode)
	require.Equal(t, cfg.Network.SeedPeers, loaded.Network.SeedPeers)
	require.Equal(t, cfg.Peering.SlowProbeTimeoutMs, loaded.Peering.SlowProbeTimeoutMs)
}
