package config

import (
	"encoding/json"
	"errors"
	"os"

	"forgenet/netid"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

var ErrNoSeedPeers = errors.New("config: seed peer list is empty")

// SeedPeer is one configured bootstrap peer.
type SeedPeer struct {
	Address string `json:"address"`
	Port    int    `json:"port"`
}

// Config represents the configuration of a forgenet node
type Config struct {
	// Default config file location
	configFile string

	Node struct {
		NetworkID      *netid.ID `json:"network_id"`
		ControlledMode bool      `json:"controlled_mode"`
	} `json:"node"`

	Network struct {
		ListenAddress     string     `json:"listen"`     // RPC listen address, host:port
		AdvertisedAddress string     `json:"advertised"` // Address other peers dial; defaults to listen
		SeedPeers         []SeedPeer `json:"seed_peers"`
		MulticastGroup    string     `json:"multicast_group"` // Empty disables LAN announcements
	} `json:"network"`

	Peering struct {
		FastProbeTimeoutMs int `json:"fast_probe_timeout_ms"`
		SlowProbeTimeoutMs int `json:"slow_probe_timeout_ms"`
		Concurrency        int `json:"concurrency"`
		DiscoveryAttempts  int `json:"discovery_attempts"`
		DownloadAttempts   int `json:"download_attempts"`
		RecoveryAttempts   int `json:"recovery_attempts"`
		UpdateIntervalSec  int `json:"update_interval_sec"`
		BanWindowSec       int `json:"ban_window_sec"`
	} `json:"peering"`

	DataStore struct {
		PeerCachePath string `json:"peer_cache"` // Empty disables the dial-hint cache
	} `json:"datastore"`
}

// NewEmptyConfig generates a new configuration with default settings
func NewEmptyConfig(configFile string) *Config {
	cfg := &Config{}

	cfg.configFile = configFile

	cfg.Network.ListenAddress = "0.0.0.0:4100"
	cfg.Network.MulticastGroup = "224.0.0.142:4101"

	cfg.Peering.FastProbeTimeoutMs = 1000
	cfg.Peering.SlowProbeTimeoutMs = 5000
	cfg.Peering.Concurrency = 16
	cfg.Peering.DiscoveryAttempts = 5
	cfg.Peering.DownloadAttempts = 5
	cfg.Peering.RecoveryAttempts = 3
	cfg.Peering.UpdateIntervalSec = 60
	cfg.Peering.BanWindowSec = 600

	cfg.DataStore.PeerCachePath = "/var/lib/forgenet/peercache"

	return cfg
}

func NewConfigFromFile(configFile string) (*Config, error) {
	cfg := NewEmptyConfig(configFile)
	if err := cfg.Load(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants a running node depends on.
func (c *Config) Validate() error {
	if len(c.Network.SeedPeers) == 0 {
		return ErrNoSeedPeers
	}
	if c.Node.NetworkID == nil || c.Node.NetworkID.IsZero() {
		return errors.New("config: network_id is not set")
	}
	if c.Network.ListenAddress == "" {
		return errors.New("config: listen address is not set")
	}
	return nil
}

// Save saves the configuration to a file
func (c *Config) Save() error {
	log.Infof("Saving config to %s", c.configFile)

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.configFile, data, 0644)
}

func (c *Config) Load() error {
	log.Infof("Loading config from %s", c.configFile)
	data, err := os.ReadFile(c.configFile)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, c); err != nil {
		return err
	}

	return nil
}
