// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeries_RollForward(t *testing.T) {
	s := NewSeries()
	s.Anchor(2, big.NewInt(100_000))

	require.NoError(t, s.RollForward(5))
	assert.Equal(t, uint32(5), s.Cursor())

	for e := uint32(2); e <= 5; e++ {
		assert.Equal(t, big.NewInt(100_000), s.Last(e), "epoch %d", e)
		assert.Equal(t, big.NewInt(100_000), s.Min(e), "epoch %d", e)
	}
}

func TestSeries_RollForwardIdempotent(t *testing.T) {
	s := NewSeries()
	s.Anchor(1, big.NewInt(500))
	require.NoError(t, s.RollForward(4))

	before := s.Last(4)
	require.NoError(t, s.RollForward(4))
	require.NoError(t, s.RollForward(3)) // older epoch is also a no-op

	assert.Equal(t, uint32(4), s.Cursor())
	assert.Equal(t, before, s.Last(4))
}

func TestSeries_ExcessUnwindsOnRoll(t *testing.T) {
	s := NewSeries()
	s.Anchor(2, big.NewInt(120_000))
	s.RegisterExcess(40, big.NewInt(20_000))

	require.NoError(t, s.RollForward(39))
	assert.Equal(t, big.NewInt(120_000), s.Last(39))

	require.NoError(t, s.RollForward(41))
	assert.Equal(t, big.NewInt(100_000), s.Last(40))
	assert.Equal(t, big.NewInt(100_000), s.Last(41))
	// the slot is consumed exactly once
	assert.Zero(t, s.ExcessAt(40).Sign())
}

func TestSeries_IncreaseRaisesMin(t *testing.T) {
	s := NewSeries()
	s.Anchor(2, big.NewInt(0))

	require.NoError(t, s.Increase(2, big.NewInt(100_000)))
	assert.Equal(t, big.NewInt(100_000), s.Last(2))
	assert.Equal(t, big.NewInt(100_000), s.Min(2))
}

func TestSeries_DecreaseClampsMin(t *testing.T) {
	s := NewSeries()
	s.Anchor(2, big.NewInt(100_000))

	require.NoError(t, s.Decrease(2, big.NewInt(30_000)))
	assert.Equal(t, big.NewInt(70_000), s.Last(2))
	assert.Equal(t, big.NewInt(70_000), s.Min(2))

	// raising the balance afterwards does not resurrect the clamped epochs
	require.NoError(t, s.Increase(2, big.NewInt(50_000)))
	assert.Equal(t, big.NewInt(120_000), s.Last(2))
	assert.Equal(t, big.NewInt(120_000), s.Min(2))

	require.NoError(t, s.RollForward(3))
	assert.Equal(t, big.NewInt(120_000), s.Min(3))
}

func TestSeries_DecreaseUnderflow(t *testing.T) {
	s := NewSeries()
	s.Anchor(2, big.NewInt(100))

	assert.Error(t, s.Decrease(2, big.NewInt(101)))
}

func TestSeries_WriteRequiresRoll(t *testing.T) {
	s := NewSeries()
	s.Anchor(2, big.NewInt(100))

	assert.Error(t, s.Increase(3, big.NewInt(1)))
	assert.Error(t, s.Decrease(3, big.NewInt(1)))
}

func TestSeries_MinNeverAboveLast(t *testing.T) {
	s := NewSeries()
	s.Anchor(1, big.NewInt(1_000))

	ops := []struct {
		roll     uint32
		increase int64
		decrease int64
	}{
		{roll: 3, increase: 500},
		{roll: 3, decrease: 700},
		{roll: 4, increase: 100},
		{roll: 7, decrease: 900},
		{roll: 7, increase: 50},
	}

	for _, op := range ops {
		require.NoError(t, s.RollForward(op.roll))
		if op.increase > 0 {
			require.NoError(t, s.Increase(op.roll, big.NewInt(op.increase)))
		}
		if op.decrease > 0 {
			require.NoError(t, s.Decrease(op.roll, big.NewInt(op.decrease)))
		}
		for e := uint32(1); e <= s.Cursor(); e++ {
			assert.LessOrEqual(t, s.Min(e).Cmp(s.Last(e)), 0, "epoch %d", e)
		}
	}
}

func TestSeries_UnregisterExcess(t *testing.T) {
	s := NewSeries()
	s.RegisterExcess(10, big.NewInt(500))

	require.NoError(t, s.UnregisterExcess(10, big.NewInt(200)))
	assert.Equal(t, big.NewInt(300), s.ExcessAt(10))

	require.NoError(t, s.UnregisterExcess(10, big.NewInt(300)))
	assert.Zero(t, s.ExcessAt(10).Sign())

	assert.Error(t, s.UnregisterExcess(10, big.NewInt(1)))
	assert.Error(t, s.UnregisterExcess(11, big.NewInt(1)))
}

func TestSeries_DrainExcess(t *testing.T) {
	s := NewSeries()
	s.Anchor(5, big.NewInt(1_000))
	s.RegisterExcess(8, big.NewInt(100))
	s.RegisterExcess(12, big.NewInt(200))

	drained := s.DrainExcess(5)
	require.Len(t, drained, 2)
	assert.Equal(t, big.NewInt(100), drained[8])
	assert.Equal(t, big.NewInt(200), drained[12])

	// nothing left to unwind
	require.NoError(t, s.RollForward(15))
	assert.Equal(t, big.NewInt(1_000), s.Last(15))
}

func TestSeries_AnchorSkipsHistory(t *testing.T) {
	s := NewSeries()
	s.Anchor(3, big.NewInt(900))
	s.Anchor(10, big.NewInt(400))

	assert.Equal(t, uint32(10), s.Cursor())
	assert.Equal(t, big.NewInt(400), s.Last(10))
	// epochs between anchors were never written
	assert.Zero(t, s.Min(7).Sign())
}
