// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/stakewheel/stakewheel/custody"
	"github.com/stakewheel/stakewheel/staking/globalstats"
)

const (
	testInitTimestamp = uint64(1_000_000)
	testEpochSize     = uint64(1_000)
)

type env struct {
	*Engine
	vault    *custody.MemoryVault
	registry *custody.MemoryRegistry
	ts       uint64
}

func newEnv(t *testing.T) *env {
	e := &env{
		vault:    custody.NewMemoryVault(),
		registry: custody.NewMemoryRegistry(),
		ts:       testInitTimestamp,
	}
	engine, err := New(Options{
		InitTimestamp: testInitTimestamp,
		EpochSize:     testEpochSize,
		Bounds: globalstats.Bounds{
			MinStake:  big.NewInt(1),
			MaxStake:  big.NewInt(1_000_000_000),
			MinFeeBps: 0,
			MaxFeeBps: 10_000,
		},
		Now: func() uint64 { return e.ts },
	}, e.vault, e.registry)
	require.NoError(t, err)
	e.Engine = engine
	return e
}

// goToEpoch moves the fake clock to the start of the given epoch.
func (e *env) goToEpoch(ep uint32) {
	e.ts = e.EpochStart(ep)
}

// addNode requests and approves a node in one go, returning its id and
// the operator position id.
func (e *env) addNode(t *testing.T, operator common.Address, stake int64, feeBps uint32, tierID uint32) (uint64, uint64) {
	nodeID, posID, err := e.RequestNode(operator, big.NewInt(stake), feeBps, big.NewInt(1_000_000_000), tierID)
	require.NoError(t, err)
	require.NoError(t, e.ApproveNode(nodeID))
	return nodeID, posID
}

// assertConservation checks that the sum of live node base stakes equals
// the global total after an operation.
func assertConservation(t *testing.T, e *env) {
	require.Zero(t, e.nodes.TotalBase().Cmp(e.global.TotalBase()),
		"node base sum %s != global total %s", e.nodes.TotalBase(), e.global.TotalBase())
}

// assertLedgerInvariants checks min <= last on every rolled epoch of
// every live series.
func assertLedgerInvariants(t *testing.T, e *env) {
	require.NoError(t, checkSeries(e.global.Series()), "global series")
	for _, n := range e.nodes.All() {
		require.NoError(t, checkSeries(n.Series()), "node %d series", n.ID())
	}
	for _, p := range e.positions.All() {
		require.NoError(t, checkSeries(p.Series()), "position %d series", p.ID())
	}
}

// TestSequence chains staking operations and runs them in order with
// invariant checks after every step.
type TestSequence struct {
	env   *env
	funcs []func(t *testing.T)
}

func NewSequence(e *env) *TestSequence {
	return &TestSequence{env: e}
}

func (st *TestSequence) add(f func(t *testing.T)) *TestSequence {
	st.funcs = append(st.funcs, f)
	return st
}

func (st *TestSequence) GoToEpoch(ep uint32) *TestSequence {
	return st.add(func(t *testing.T) {
		st.env.goToEpoch(ep)
	})
}

func (st *TestSequence) AddNode(operator common.Address, stake int64, feeBps uint32, tierID uint32) *TestSequence {
	return st.add(func(t *testing.T) {
		nodeID, posID, err := st.env.RequestNode(operator, big.NewInt(stake), feeBps, big.NewInt(1_000_000_000), tierID)
		if err != nil {
			t.Fatalf("failed to request node for %s: %v", operator, err)
		}
		if err := st.env.ApproveNode(nodeID); err != nil {
			t.Fatalf("failed to approve node %d: %v", nodeID, err)
		}
		t.Logf("node %d added, operator position %d", nodeID, posID)
	})
}

func (st *TestSequence) Delegate(owner common.Address, nodeID uint64, stake int64, tierID uint32) *TestSequence {
	return st.add(func(t *testing.T) {
		pid, err := st.env.Delegate(owner, nodeID, big.NewInt(stake), tierID)
		if err != nil {
			t.Fatalf("failed to delegate to node %d: %v", nodeID, err)
		}
		t.Logf("delegation %d opened on node %d", pid, nodeID)
	})
}

func (st *TestSequence) ChangeDelegation(positionID, newNodeID uint64) *TestSequence {
	return st.add(func(t *testing.T) {
		if err := st.env.ChangeDelegation(positionID, newNodeID); err != nil {
			t.Fatalf("failed to move position %d to node %d: %v", positionID, newNodeID, err)
		}
	})
}

func (st *TestSequence) Withdraw(positionID uint64) *TestSequence {
	return st.add(func(t *testing.T) {
		if err := st.env.WithdrawDelegation(positionID); err != nil {
			t.Fatalf("failed to withdraw position %d: %v", positionID, err)
		}
	})
}

func (st *TestSequence) Leave(nodeID uint64) *TestSequence {
	return st.add(func(t *testing.T) {
		if err := st.env.LeaveNode(nodeID); err != nil {
			t.Fatalf("failed to leave node %d: %v", nodeID, err)
		}
	})
}

func (st *TestSequence) Claim(positionID uint64) *TestSequence {
	return st.add(func(t *testing.T) {
		amount, err := st.env.ClaimRewards(positionID)
		if err != nil {
			t.Fatalf("failed to claim position %d: %v", positionID, err)
		}
		t.Logf("claimed %s for position %d", amount, positionID)
	})
}

func (st *TestSequence) SetPool(ep uint32, amount int64) *TestSequence {
	return st.add(func(t *testing.T) {
		if err := st.env.SetRewardPool(ep, big.NewInt(amount)); err != nil {
			t.Fatalf("failed to set reward pool for epoch %d: %v", ep, err)
		}
	})
}

func (st *TestSequence) Slash(nodeID uint64, bps uint32) *TestSequence {
	return st.add(func(t *testing.T) {
		if err := st.env.SlashNode(nodeID, bps); err != nil {
			t.Fatalf("failed to slash node %d: %v", nodeID, err)
		}
	})
}

func (st *TestSequence) Run(t *testing.T) {
	for _, f := range st.funcs {
		f(t)
		assertConservation(t, st.env)
		assertLedgerInvariants(t, st.env)
	}
}
