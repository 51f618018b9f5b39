package core_test

import (
	"testing"

	"github.com/nspcc-dev/neo-go-core/pkg/config"
	"github.com/nspcc-dev/neo-go-core/pkg/core"
	"github.com/nspcc-dev/neo-go-core/pkg/core/storage"
	"github.com/nspcc-dev/neo-go-core/pkg/crypto/keys"
	"github.com/stretchr/testify/require"
)

func testProtocolConfig(t *testing.T) *config.ProtocolConfiguration {
	t.Helper()
	priv, err := keys.NewPrivateKey()
	require.NoError(t, err)
	standby := keys.PublicKeys{priv.PublicKey()}
	cfg, err := config.New(0x334f454e, 53, 15000, 1, standby)
	require.NoError(t, err)
	return cfg
}

func TestNewBlockchainPersistsGenesis(t *testing.T) {
	cfg := testProtocolConfig(t)
	store := storage.NewMemoryStore()
	genesisAccount := cfg.StandbyCommittee[0].GetScriptHash()

	bc, err := core.New(store, cfg, cfg.Magic, genesisAccount, nil)
	require.NoError(t, err)
	require.Equal(t, uint32(0), bc.BlockHeight())

	blk, err := bc.GetBlock(0)
	require.NoError(t, err)
	require.Equal(t, bc.CurrentBlockHash(), blk.Hash())
	require.Equal(t, genesisAccount, blk.NextConsensus)
}

func TestReopenBlockchainRestoresHeight(t *testing.T) {
	cfg := testProtocolConfig(t)
	store := storage.NewMemoryStore()
	genesisAccount := cfg.StandbyCommittee[0].GetScriptHash()

	bc1, err := core.New(store, cfg, cfg.Magic, genesisAccount, nil)
	require.NoError(t, err)
	height := bc1.BlockHeight()
	hash := bc1.CurrentBlockHash()

	bc2, err := core.New(store, cfg, cfg.Magic, genesisAccount, nil)
	require.NoError(t, err)
	require.Equal(t, height, bc2.BlockHeight())
	require.Equal(t, hash, bc2.CurrentBlockHash())
}
