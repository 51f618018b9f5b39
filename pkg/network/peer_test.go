package network_test

import (
	"net"
	"testing"

	"github.com/nspcc-dev/neo-go-core/pkg/network"
	"github.com/stretchr/testify/require"
)

func TestPeerHandshakeSucceeds(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	cfg := network.PeerConfig{Network: 0x334f454e, Version: 0, UserAgent: "/test/"}
	pa := network.NewPeer(a, cfg, false)
	pb := network.NewPeer(b, cfg, true)

	errCh := make(chan error, 2)
	go func() { errCh <- pa.Handshake() }()
	go func() { errCh <- pb.Handshake() }()

	require.NoError(t, <-errCh)
	require.NoError(t, <-errCh)
	require.NotNil(t, pa.Remote)
	require.NotNil(t, pb.Remote)
	require.Equal(t, cfg.UserAgent, pa.Remote.UserAgent)
}

func TestPeerHandshakeRejectsNetworkMismatch(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	pa := network.NewPeer(a, network.PeerConfig{Network: 1, UserAgent: "/a/"}, false)
	pb := network.NewPeer(b, network.PeerConfig{Network: 2, UserAgent: "/b/"}, true)

	errCh := make(chan error, 2)
	go func() { errCh <- pa.Handshake() }()
	go func() { errCh <- pb.Handshake() }()

	err1 := <-errCh
	err2 := <-errCh
	require.True(t, err1 != nil || err2 != nil)
}
