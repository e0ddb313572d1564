//go:build linux

package wifiscan

import (
	"github.com/mdlayher/wifiscan/internal/nlconn"
)

// newClient dials a generic netlink socket and verifies that nl80211 is
// available for use by this package. A second socket is dialed for events
// on first use.
func newClient(cfg *Config) (*client, error) {
	ncfg := &nlconn.Config{
		NetNS:             cfg.NetNS,
		ReceiveBufferSize: cfg.ReceiveBufferSize,
		Strict:            cfg.Strict,
	}

	dial := func() (transport, error) {
		c, err := nlconn.Dial(ncfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	t, err := dial()
	if err != nil {
		return nil, err
	}

	return initClient(t, dial, cfg)
}
