// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakewheel/stakewheel/stakes"
)

func TestService_CreateAndGet(t *testing.T) {
	svc := NewService()
	op := common.BytesToAddress([]byte{0x01})

	n := svc.Create(op, 1_000, big.NewInt(1_000_000))
	assert.Equal(t, uint64(1), n.ID())
	assert.Equal(t, StatusNone, n.Status())
	assert.Equal(t, op, n.Operator())

	got, err := svc.Get(n.ID())
	require.NoError(t, err)
	assert.Same(t, n, got)

	_, err = svc.Get(99)
	assert.Error(t, err)

	n2 := svc.Create(op, 500, big.NewInt(1))
	assert.Equal(t, uint64(2), n2.ID())

	svc.Remove(n.ID())
	_, err = svc.Get(n.ID())
	assert.Error(t, err)

	// removed ids are not reused
	n3 := svc.Create(op, 500, big.NewInt(1))
	assert.Equal(t, uint64(3), n3.ID())
}

func TestNode_Lifecycle(t *testing.T) {
	svc := NewService()
	n := svc.Create(common.Address{}, 0, big.NewInt(1))

	n.Activate(7)
	assert.Equal(t, StatusActive, n.Status())
	assert.Equal(t, uint64(7), n.OperatorPosition())
	assert.False(t, n.Closed())
	assert.Equal(t, uint32(12), n.LastActiveEpoch(12))

	n.Deactivate(12)
	assert.Equal(t, StatusInactive, n.Status())
	assert.True(t, n.Closed())
	assert.Equal(t, uint32(12), n.LastActiveEpoch(20))
}

func TestNode_Slash(t *testing.T) {
	svc := NewService()
	n := svc.Create(common.Address{}, 0, big.NewInt(1))
	n.Activate(1)

	n.Slash(5_000, 9)
	assert.Equal(t, StatusSlashed, n.Status())
	assert.Equal(t, uint32(5_000), n.SlashedBps())
	assert.Equal(t, uint32(9), n.LastActiveEpoch(15))
	assert.False(t, n.FullySlashed())

	n.Slash(stakes.ScaleBps, 9)
	assert.True(t, n.FullySlashed())
}

func TestNode_Whitelist(t *testing.T) {
	svc := NewService()
	n := svc.Create(common.Address{}, 0, big.NewInt(1))
	alice := common.BytesToAddress([]byte{0xaa})

	// disabled by default: everyone accepted
	assert.True(t, n.AcceptsDelegator(alice))

	n.SetWhitelistEnabled(true)
	assert.False(t, n.AcceptsDelegator(alice))

	n.Whitelist(alice)
	assert.True(t, n.AcceptsDelegator(alice))

	n.Unwhitelist(alice)
	assert.False(t, n.AcceptsDelegator(alice))
}

func TestNode_BaseAccounting(t *testing.T) {
	svc := NewService()
	n := svc.Create(common.Address{}, 0, big.NewInt(1))

	n.AddBase(big.NewInt(100))
	require.NoError(t, n.SubBase(big.NewInt(40)))
	assert.Equal(t, big.NewInt(60), n.BaseStaked())
	assert.Error(t, n.SubBase(big.NewInt(61)))
}

func TestService_TotalBase(t *testing.T) {
	svc := NewService()

	active := svc.Create(common.Address{}, 0, big.NewInt(1))
	active.Activate(1)
	active.AddBase(big.NewInt(100))

	inactive := svc.Create(common.Address{}, 0, big.NewInt(1))
	inactive.Activate(2)
	inactive.AddBase(big.NewInt(50))
	inactive.Deactivate(5)

	pending := svc.Create(common.Address{}, 0, big.NewInt(1))
	pending.AddBase(big.NewInt(999))

	slashed := svc.Create(common.Address{}, 0, big.NewInt(1))
	slashed.Activate(3)
	slashed.AddBase(big.NewInt(70))
	slashed.Slash(1_000, 6)

	assert.Equal(t, big.NewInt(150), svc.TotalBase())
}

func TestDelegatorSet(t *testing.T) {
	s := newDelegatorSet()

	s.add(10)
	s.add(20)
	s.add(30)
	s.add(20) // duplicate is a no-op
	assert.Equal(t, 3, s.len())
	assert.True(t, s.has(20))

	// swap-and-pop: removing the middle entry moves the last into its slot
	s.remove(20)
	assert.False(t, s.has(20))
	assert.Equal(t, []uint64{10, 30}, s.list())

	s.remove(10)
	s.remove(30)
	assert.Zero(t, s.len())

	// removing a missing id is harmless
	s.remove(42)
}
