package network_test

import (
	"testing"
	"time"

	"github.com/nspcc-dev/neo-go-core/pkg/network"
	"github.com/stretchr/testify/require"
)

func TestBanScoreAccumulatesAndBans(t *testing.T) {
	now := time.Now()
	b := network.NewBanScore(now)
	require.False(t, b.ShouldBan(now))

	b.Add(now, network.ScoreInvalidBlock)
	require.True(t, b.ShouldBan(now))
}

func TestBanScoreThrottleBelowBanThreshold(t *testing.T) {
	now := time.Now()
	b := network.NewBanScore(now)
	b.Add(now, network.ScoreInvalidInv)
	b.Add(now, network.ScoreInvalidInv)
	b.Add(now, network.ScoreInvalidTx)
	for i := 0; i < 7; i++ {
		b.Add(now, network.ScoreInvalidInv)
	}
	require.True(t, b.ShouldThrottle(now))
	require.False(t, b.ShouldBan(now))
}

func TestBanScoreDecaysOverTime(t *testing.T) {
	now := time.Now()
	b := network.NewBanScore(now)
	b.Add(now, 30)

	later := now.Add(40 * time.Minute)
	require.Less(t, b.Score(later), 1.0)
}
