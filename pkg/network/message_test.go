package network_test

import (
	"bytes"
	"testing"

	"github.com/nspcc-dev/neo-go-core/pkg/network"
	"github.com/stretchr/testify/require"
)

func TestWriteReadMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("small payload")
	require.NoError(t, network.WriteMessage(&buf, 0x334f454e, network.CmdPing, payload))

	msg, err := network.ReadMessage(&buf, 0x334f454e)
	require.NoError(t, err)
	require.Equal(t, network.CmdPing, msg.Command)
	require.Equal(t, payload, msg.Payload)
}

func TestWriteReadMessageCompressesLargePayload(t *testing.T) {
	var buf bytes.Buffer
	payload := bytes.Repeat([]byte{0x42}, 4096)
	require.NoError(t, network.WriteMessage(&buf, 1, network.CmdBlock, payload))

	msg, err := network.ReadMessage(&buf, 1)
	require.NoError(t, err)
	require.Equal(t, payload, msg.Payload)
}

func TestReadMessageRejectsMagicMismatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, network.WriteMessage(&buf, 1, network.CmdVerack, nil))

	_, err := network.ReadMessage(&buf, 2)
	require.ErrorIs(t, err, network.ErrMagicMismatch)
}

func TestCommandTypeString(t *testing.T) {
	require.Equal(t, "version", network.CmdVersion.String())
	require.Equal(t, "block", network.CmdBlock.String())
}
