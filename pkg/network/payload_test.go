package network_test

import (
	"testing"

	"github.com/nspcc-dev/neo-go-core/pkg/io"
	"github.com/nspcc-dev/neo-go-core/pkg/network"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
	"github.com/stretchr/testify/require"
)

func TestVersionPayloadRoundTrip(t *testing.T) {
	v := &network.VersionPayload{
		Network:   0x334f454e,
		Version:   0,
		Timestamp: 1700000000,
		Nonce:     42,
		UserAgent: "/neo-go-core:0.1.0/",
		Height:    123,
		Relay:     true,
	}
	bw := io.NewBufBinWriter()
	v.EncodeBinary(bw.BinWriter)

	got := &network.VersionPayload{}
	require.NoError(t, got.DecodeBinary(io.NewBinReaderFromBuf(bw.Bytes())))
	require.Equal(t, v, got)
}

func TestVersionPayloadRejectsOversizedUserAgent(t *testing.T) {
	v := &network.VersionPayload{UserAgent: string(make([]byte, network.MaxUserAgentLen+1))}
	bw := io.NewBufBinWriter()
	v.EncodeBinary(bw.BinWriter)

	got := &network.VersionPayload{}
	err := got.DecodeBinary(io.NewBinReaderFromBuf(bw.Bytes()))
	require.ErrorIs(t, err, io.ErrVarArraySize)
}

func TestInvPayloadRoundTrip(t *testing.T) {
	inv := &network.InvPayload{
		Type:   network.InvTypeTx,
		Hashes: []util.Uint256{{1, 2, 3}, {4, 5, 6}},
	}
	bw := io.NewBufBinWriter()
	inv.EncodeBinary(bw.BinWriter)

	got := &network.InvPayload{}
	require.NoError(t, got.DecodeBinary(io.NewBinReaderFromBuf(bw.Bytes())))
	require.Equal(t, inv, got)
}

func TestGetBlockByIndexPayloadRoundTrip(t *testing.T) {
	g := &network.GetBlockByIndexPayload{IndexStart: 100, Count: 500}
	bw := io.NewBufBinWriter()
	g.EncodeBinary(bw.BinWriter)

	got := &network.GetBlockByIndexPayload{}
	require.NoError(t, got.DecodeBinary(io.NewBinReaderFromBuf(bw.Bytes())))
	require.Equal(t, g, got)
}
