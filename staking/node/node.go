// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/stakewheel/stakewheel/ledger"
	"github.com/stakewheel/stakewheel/stakes"
)

type Status uint8

const (
	StatusNone     Status = iota // created, approval pending
	StatusActive                 // approved, accruing
	StatusInactive               // operator left
	StatusSlashed                // admin slashed, terminal for new stake
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusActive:
		return "active"
	case StatusInactive:
		return "inactive"
	case StatusSlashed:
		return "slashed"
	default:
		return "unknown"
	}
}

// Request holds the escrowed operator stake while a node awaits approval.
type Request struct {
	Stake      *big.Int
	TierID     uint32
	PositionID uint64
}

// Node is a validator entity: one operator position plus any number of
// delegator positions, with its own per-epoch ledger.
type Node struct {
	id               uint64
	status           Status
	operator         common.Address
	operatorPosition uint64
	request          *Request

	baseStaked *big.Int
	feeBps     uint32
	maxStake   *big.Int
	slashedBps uint32

	// closing epoch once the node leaves StatusActive
	closedEpoch uint32

	whitelistOn bool
	whitelist   map[common.Address]struct{}
	delegators  *delegatorSet

	series *ledger.Series
}

func (n *Node) ID() uint64                 { return n.id }
func (n *Node) Status() Status             { return n.status }
func (n *Node) Operator() common.Address   { return n.operator }
func (n *Node) OperatorPosition() uint64   { return n.operatorPosition }
func (n *Node) FeeBps() uint32             { return n.feeBps }
func (n *Node) SlashedBps() uint32         { return n.slashedBps }
func (n *Node) MaxStake() *big.Int         { return new(big.Int).Set(n.maxStake) }
func (n *Node) BaseStaked() *big.Int       { return new(big.Int).Set(n.baseStaked) }
func (n *Node) Series() *ledger.Series     { return n.series }
func (n *Node) WhitelistEnabled() bool     { return n.whitelistOn }
func (n *Node) Delegators() []uint64       { return n.delegators.list() }
func (n *Node) DelegatorCount() int        { return n.delegators.len() }
func (n *Node) HasDelegator(id uint64) bool { return n.delegators.has(id) }

// Closed reports whether the node has stopped accruing.
func (n *Node) Closed() bool {
	return n.status == StatusInactive || n.status == StatusSlashed
}

// FullySlashed reports whether principal withdrawal is blocked entirely.
func (n *Node) FullySlashed() bool {
	return n.status == StatusSlashed && n.slashedBps == stakes.ScaleBps
}

// LastActiveEpoch returns the node's closing epoch, or the given current
// epoch while the node is still active.
func (n *Node) LastActiveEpoch(current uint32) uint32 {
	if n.Closed() {
		return n.closedEpoch
	}
	return current
}

func (n *Node) AddBase(amount *big.Int) {
	n.baseStaked.Add(n.baseStaked, amount)
}

func (n *Node) SubBase(amount *big.Int) error {
	if n.baseStaked.Cmp(amount) < 0 {
		return errors.Errorf("node %d base stake underflow", n.id)
	}
	n.baseStaked.Sub(n.baseStaked, amount)
	return nil
}

// SetRequest books the pending operator stake awaiting approval.
func (n *Node) SetRequest(stake *big.Int, tierID uint32, positionID uint64) {
	n.request = &Request{
		Stake:      new(big.Int).Set(stake),
		TierID:     tierID,
		PositionID: positionID,
	}
}

// Request returns the pending stake, nil once decided.
func (n *Node) Request() *Request {
	return n.request
}

func (n *Node) ClearRequest() {
	n.request = nil
}

// Activate moves an approved node into the active set.
func (n *Node) Activate(operatorPosition uint64) {
	n.status = StatusActive
	n.operatorPosition = operatorPosition
}

// Deactivate closes the node at the given epoch when its operator leaves.
func (n *Node) Deactivate(e uint32) {
	n.status = StatusInactive
	n.closedEpoch = e
}

// Slash closes the node at the given epoch with a principal haircut.
func (n *Node) Slash(slashedBps, e uint32) {
	n.status = StatusSlashed
	n.slashedBps = slashedBps
	n.closedEpoch = e
}

func (n *Node) AddDelegator(id uint64) {
	n.delegators.add(id)
}

func (n *Node) RemoveDelegator(id uint64) {
	n.delegators.remove(id)
}

// SetWhitelistEnabled toggles the delegator whitelist check.
func (n *Node) SetWhitelistEnabled(on bool) {
	n.whitelistOn = on
}

func (n *Node) Whitelist(addr common.Address) {
	n.whitelist[addr] = struct{}{}
}

func (n *Node) Unwhitelist(addr common.Address) {
	delete(n.whitelist, addr)
}

// AcceptsDelegator reports whether the address passes the whitelist check.
func (n *Node) AcceptsDelegator(addr common.Address) bool {
	if !n.whitelistOn {
		return true
	}
	_, ok := n.whitelist[addr]
	return ok
}
