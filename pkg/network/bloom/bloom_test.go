package bloom_test

import (
	"testing"

	"github.com/nspcc-dev/neo-go-core/pkg/network/bloom"
	"github.com/stretchr/testify/require"
)

func TestFilterAddAndTest(t *testing.T) {
	f, err := bloom.New(256, 4, 0xdeadbeef)
	require.NoError(t, err)

	f.Add([]byte("tx-hash-1"))
	require.True(t, f.Test([]byte("tx-hash-1")))
	require.False(t, f.Test([]byte("tx-hash-2")))
}

func TestFilterClear(t *testing.T) {
	f, err := bloom.New(256, 4, 1)
	require.NoError(t, err)
	f.Add([]byte("something"))
	require.True(t, f.Test([]byte("something")))

	f.Clear()
	require.False(t, f.Test([]byte("something")))
}

func TestLoadRoundTrips(t *testing.T) {
	f, err := bloom.New(256, 3, 7)
	require.NoError(t, err)
	f.Add([]byte("payload"))

	loaded, err := bloom.Load(f.Bytes(), 3, 7)
	require.NoError(t, err)
	require.True(t, loaded.Test([]byte("payload")))
}

func TestNewRejectsOversizedFilter(t *testing.T) {
	_, err := bloom.New(bloom.MaxFilterBits+1, 1, 0)
	require.ErrorIs(t, err, bloom.ErrTooManyBits)

	_, err = bloom.New(8, bloom.MaxHashFuncs+1, 0)
	require.ErrorIs(t, err, bloom.ErrTooManyHashes)
}
