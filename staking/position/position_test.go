// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package position

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakewheel/stakewheel/stakes"
	"github.com/stakewheel/stakewheel/tiers"
)

func lockedTier(t *testing.T, length, weightBps uint32) *tiers.Tier {
	t.Helper()
	table := tiers.NewTable()
	id, err := table.Add(big.NewInt(0), length, weightBps)
	require.NoError(t, err)
	tier, err := table.Get(id)
	require.NoError(t, err)
	return tier
}

func liquidTier(t *testing.T) *tiers.Tier {
	t.Helper()
	tier, err := tiers.NewTable().Get(tiers.LiquidID)
	require.NoError(t, err)
	return tier
}

func TestPosition_LockExpiry(t *testing.T) {
	tier := lockedTier(t, 37, 12_000)
	ws := stakes.NewWeightedStake(big.NewInt(100_000), tier.WeightBps)

	p := New(1, TypeDelegator, 5, ws.Base, ws.Weighted, tier, 2, 1000, ws.Excess())
	assert.Equal(t, tier.ID, p.TierID())
	assert.Equal(t, uint32(2+37+1), p.EndLockEpoch())

	// weight holds through the full lock
	require.NoError(t, p.RollForward(39))
	assert.Equal(t, tier.ID, p.TierID())
	assert.Equal(t, big.NewInt(120_000), p.Series().Last(39))
	assert.False(t, p.LockExpired(39))

	// and drops exactly at the end-lock epoch, flipping the tier to liquid
	require.NoError(t, p.RollForward(40))
	assert.Equal(t, tiers.LiquidID, p.TierID())
	assert.Zero(t, p.EndLockEpoch())
	assert.Equal(t, big.NewInt(100_000), p.Series().Last(40))
	assert.True(t, p.LockExpired(40))

	// never reverts
	require.NoError(t, p.RollForward(50))
	assert.Equal(t, tiers.LiquidID, p.TierID())
}

func TestPosition_LiquidNeverLocked(t *testing.T) {
	tier := liquidTier(t)
	p := New(1, TypeOperator, 5, big.NewInt(1_000), big.NewInt(1_000), tier, 2, 1000, new(big.Int))

	assert.Zero(t, p.EndLockEpoch())
	assert.True(t, p.LockExpired(2))
	assert.Zero(t, p.OutstandingExcess().Sign())
}

func TestPosition_OutstandingExcess(t *testing.T) {
	tier := lockedTier(t, 10, 12_000)
	ws := stakes.NewWeightedStake(big.NewInt(50_000), tier.WeightBps)
	p := New(1, TypeDelegator, 5, ws.Base, ws.Weighted, tier, 2, 1000, ws.Excess())

	assert.Equal(t, big.NewInt(10_000), p.OutstandingExcess())

	require.NoError(t, p.RollForward(13))
	assert.Zero(t, p.OutstandingExcess().Sign())
}

func TestPosition_RewardAccounting(t *testing.T) {
	tier := liquidTier(t)
	p := New(1, TypeDelegator, 5, big.NewInt(1_000), big.NewInt(900), tier, 2, 1000, new(big.Int))

	p.AccrueRewards(big.NewInt(100), 4)
	p.AccrueRewards(big.NewInt(50), 6)
	assert.Equal(t, big.NewInt(150), p.Unclaimed())
	assert.Equal(t, uint32(6), p.RewardCursor())

	// cursor never moves backwards
	p.AccrueRewards(new(big.Int), 3)
	assert.Equal(t, uint32(6), p.RewardCursor())

	claimed := p.Claim()
	assert.Equal(t, big.NewInt(150), claimed)
	assert.Zero(t, p.Unclaimed().Sign())
	assert.Equal(t, big.NewInt(150), p.Cumulative())

	// claiming again is a no-op
	assert.Zero(t, p.Claim().Sign())
	assert.Equal(t, big.NewInt(150), p.Cumulative())
}

func TestPosition_Reanchor(t *testing.T) {
	tier := liquidTier(t)
	p := New(1, TypeDelegator, 5, big.NewInt(1_000), big.NewInt(900), tier, 2, 1000, new(big.Int))
	require.NoError(t, p.RollForward(4))

	p.SkipRewardsTo(4)
	p.Reanchor(9, 12, big.NewInt(950))

	assert.Equal(t, uint64(9), p.NodeID())
	assert.Equal(t, uint32(12), p.Series().Cursor())
	assert.Equal(t, big.NewInt(950), p.Series().Min(12))
	// the gap between the dead node and the re-anchor holds no credit
	assert.Zero(t, p.Series().Min(8).Sign())
}

func TestService(t *testing.T) {
	svc := NewService()
	tier := liquidTier(t)

	p1 := New(3, TypeOperator, 1, big.NewInt(1), big.NewInt(1), tier, 1, 0, new(big.Int))
	p2 := New(1, TypeDelegator, 1, big.NewInt(1), big.NewInt(1), tier, 1, 0, new(big.Int))
	svc.Add(p1)
	svc.Add(p2)

	got, err := svc.Get(3)
	require.NoError(t, err)
	assert.Same(t, p1, got)

	all := svc.All()
	require.Len(t, all, 2)
	assert.Equal(t, uint64(1), all[0].ID())
	assert.Equal(t, uint64(3), all[1].ID())

	svc.Remove(3)
	assert.False(t, svc.Has(3))
	_, err = svc.Get(3)
	assert.Error(t, err)
}
