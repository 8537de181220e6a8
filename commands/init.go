package commands

import (
	"context"
	"forgenet/config"
	"forgenet/netid"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// RunInit writes a fresh default configuration with a random network
// identity. Joining an existing network means replacing the identity with
// that network's published one.
func RunInit(ctx context.Context, cfg *config.Config) {
	id, err := netid.Random()
	if err != nil {
		log.Fatalf("Failed to generate network identity: %v", err)
	}
	cfg.Node.NetworkID = id

	if err := cfg.Save(); err != nil {
		log.Fatalf("Failed to save config: %v", err)
	}

	log.Infof("Initialized node config, network identity %s", id.String())
}
