// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/stakewheel/stakewheel/staking/node"
	"github.com/stakewheel/stakewheel/staking/position"
	"github.com/stakewheel/stakewheel/staking/rejects"
	"github.com/stakewheel/stakewheel/staking/rewards"
	"github.com/stakewheel/stakewheel/stakes"
)

// Delegate opens a delegation towards an active node. The delegation fee
// is carved out of the delegator's weighted contribution and credited to
// the operator position, leaving the node total unchanged.
func (e *Engine) Delegate(owner common.Address, nodeID uint64, stake *big.Int, tierID uint32) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, err := e.currentEpoch()
	if err != nil {
		return 0, err
	}
	n, err := e.nodes.Get(nodeID)
	if err != nil {
		return 0, err
	}
	if n.Status() != node.StatusActive {
		return 0, rejects.Domainf("node %d is not active", nodeID)
	}
	if !n.AcceptsDelegator(owner) {
		return 0, rejects.Domainf("node %d does not accept this delegator", nodeID)
	}
	tier, err := e.tierTable.Selectable(tierID)
	if err != nil {
		return 0, rejects.Domain(err.Error())
	}
	if err := e.global.ValidateStake(stake); err != nil {
		return 0, err
	}
	if stake.Cmp(tier.MinStake) < 0 {
		return 0, rejects.Domainf("stake below tier %d minimum", tierID)
	}
	if new(big.Int).Add(n.BaseStaked(), stake).Cmp(n.MaxStake()) > 0 {
		return 0, rejects.Domainf("node %d staking capacity exceeded", nodeID)
	}
	opPos, err := e.positions.Get(n.OperatorPosition())
	if err != nil {
		return 0, err
	}
	if _, err := e.rollLedgers(n, opPos, cur); err != nil {
		return 0, err
	}

	if err := e.vault.Deposit(owner, stake); err != nil {
		return 0, err
	}
	pid, err := e.registry.Mint(owner, stake)
	if err != nil {
		return 0, err
	}

	ws := stakes.NewWeightedStake(stake, tier.WeightBps)
	fee := stakes.Fee(stake, n.FeeBps())
	contribution := new(big.Int).Sub(ws.Weighted, fee)

	p := position.New(pid, position.TypeDelegator, nodeID, stake, contribution, tier, cur, e.now(), ws.Excess())
	e.positions.Add(p)

	if err := n.Series().Increase(cur, ws.Weighted); err != nil {
		return 0, err
	}
	if err := opPos.Series().Increase(cur, fee); err != nil {
		return 0, err
	}
	if err := e.global.Series().Increase(cur, ws.Weighted); err != nil {
		return 0, err
	}
	if tier.Locked() {
		n.Series().RegisterExcess(p.EndLockEpoch(), ws.Excess())
		e.global.Series().RegisterExcess(p.EndLockEpoch(), ws.Excess())
	}
	n.AddBase(stake)
	e.global.AddBase(stake)
	n.AddDelegator(pid)

	logger.Info("delegation opened", "position", pid, "node", nodeID, "stake", stake, "epoch", cur)
	opCount.AddWithLabel(1, map[string]string{"op": "delegate"})
	return pid, nil
}

// ChangeDelegation moves a delegator position to a new node. With a live
// source node the weighted stake transfers directly; with a dead one the
// position settles its history first and re-enters the ledgers fresh at
// the current epoch.
func (e *Engine) ChangeDelegation(positionID, newNodeID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, err := e.currentEpoch()
	if err != nil {
		return err
	}
	p, err := e.positions.Get(positionID)
	if err != nil {
		return err
	}
	if p.Type() != position.TypeDelegator {
		return rejects.Domain("operator positions cannot change delegation")
	}
	if p.NodeID() == newNodeID {
		return rejects.Domain("delegation unchanged")
	}
	oldN, err := e.nodes.Get(p.NodeID())
	if err != nil {
		return err
	}
	if oldN.Status() == node.StatusSlashed {
		return rejects.Domainf("node %d is slashed, withdraw instead", oldN.ID())
	}
	newN, err := e.nodes.Get(newNodeID)
	if err != nil {
		return err
	}
	if newN.Status() != node.StatusActive {
		return rejects.Domainf("node %d is not active", newNodeID)
	}
	owner, err := e.registry.OwnerOf(positionID)
	if err != nil {
		return err
	}
	if !newN.AcceptsDelegator(owner) {
		return rejects.Domainf("node %d does not accept this delegator", newNodeID)
	}
	if new(big.Int).Add(newN.BaseStaked(), p.BaseStaked()).Cmp(newN.MaxStake()) > 0 {
		return rejects.Domainf("node %d staking capacity exceeded", newNodeID)
	}
	newOp, err := e.positions.Get(newN.OperatorPosition())
	if err != nil {
		return err
	}
	if _, err := e.rollLedgers(newN, newOp, cur); err != nil {
		return err
	}

	base := p.BaseStaked()
	newFee := stakes.Fee(base, newN.FeeBps())

	if oldN.Status() == node.StatusActive {
		if err := e.transferDelegation(p, oldN, newN, newOp, cur, newFee); err != nil {
			return err
		}
	} else {
		if err := e.reanchorDelegation(p, oldN, newN, newOp, cur, newFee); err != nil {
			return err
		}
	}

	if err := oldN.SubBase(base); err != nil {
		return err
	}
	newN.AddBase(base)
	oldN.RemoveDelegator(positionID)
	newN.AddDelegator(positionID)

	logger.Info("delegation changed", "position", positionID, "from", oldN.ID(), "to", newNodeID, "epoch", cur)
	opCount.AddWithLabel(1, map[string]string{"op": "change_delegation"})
	return nil
}

// transferDelegation moves a position between two live nodes: the full
// weighted amount leaves the old node and enters the new one, and only
// the fee differential moves within the position's own series. The
// global ledger never sees the transfer.
func (e *Engine) transferDelegation(p *position.Position, oldN, newN *node.Node, newOp *position.Position, cur uint32, newFee *big.Int) error {
	oldOp, err := e.positions.Get(oldN.OperatorPosition())
	if err != nil {
		return err
	}
	if _, err := e.rollLedgers(oldN, oldOp, cur); err != nil {
		return err
	}
	if err := p.RollForward(cur); err != nil {
		return err
	}

	oldFee := stakes.Fee(p.BaseStaked(), oldN.FeeBps())
	weighted := new(big.Int).Add(p.Series().Last(cur), oldFee)

	if err := oldN.Series().Decrease(cur, weighted); err != nil {
		return err
	}
	if err := oldOp.Series().Decrease(cur, oldFee); err != nil {
		return err
	}
	if err := newN.Series().Increase(cur, weighted); err != nil {
		return err
	}
	if err := newOp.Series().Increase(cur, newFee); err != nil {
		return err
	}

	switch oldFee.Cmp(newFee) {
	case 1:
		if err := p.Series().Increase(cur, new(big.Int).Sub(oldFee, newFee)); err != nil {
			return err
		}
	case -1:
		if err := p.Series().Decrease(cur, new(big.Int).Sub(newFee, oldFee)); err != nil {
			return err
		}
	}

	// an outstanding lock bonus follows the position to the new node's
	// expiry slot; the global registration stays put
	if exc := p.OutstandingExcess(); exc.Sign() > 0 {
		if err := oldN.Series().UnregisterExcess(p.EndLockEpoch(), exc); err != nil {
			return err
		}
		newN.Series().RegisterExcess(p.EndLockEpoch(), exc)
	}
	p.SetNode(newN.ID())
	return nil
}

// reanchorDelegation settles a position whose node died while it sat
// idle: rewards and stuck shares are booked against the dead stretch,
// then the stake re-enters the new node and the global ledger as if
// staked fresh at the current epoch.
func (e *Engine) reanchorDelegation(p *position.Position, oldN, newN *node.Node, newOp *position.Position, cur uint32, newFee *big.Int) error {
	lastActive := oldN.LastActiveEpoch(cur)
	if err := p.RollForward(lastActive); err != nil {
		return err
	}
	earned, upTo := rewards.Accrue(p, e.global, true, lastActive)
	p.AccrueRewards(earned, upTo)
	e.recordStuckShares(p, lastActive)
	p.SkipRewardsTo(lastActive)

	// a lock that ran out during the dead stretch never got unwound by
	// a roll, so void it by hand before recomputing the weight
	if p.EndLockEpoch() != 0 && cur >= p.EndLockEpoch() {
		if err := p.DropLock(); err != nil {
			return err
		}
	}
	tier, err := e.tierTable.Get(p.TierID())
	if err != nil {
		return err
	}

	ws := stakes.NewWeightedStake(p.BaseStaked(), tier.WeightBps)
	p.Reanchor(newN.ID(), cur, new(big.Int).Sub(ws.Weighted, newFee))

	if err := newN.Series().Increase(cur, ws.Weighted); err != nil {
		return err
	}
	if err := newOp.Series().Increase(cur, newFee); err != nil {
		return err
	}
	if err := e.global.Series().Increase(cur, ws.Weighted); err != nil {
		return err
	}
	// the dead node's excess registrations were unwound when it closed,
	// so a still-running lock re-registers on both levels
	if exc := p.OutstandingExcess(); exc.Sign() > 0 {
		newN.Series().RegisterExcess(p.EndLockEpoch(), exc)
		e.global.Series().RegisterExcess(p.EndLockEpoch(), exc)
	}
	return nil
}

// LeaveNode exits a node's operator: the node closes at the current
// epoch, its whole weighted stake leaves the ledgers, and the operator
// is paid principal plus settled rewards. Delegators withdraw on their
// own schedule afterwards.
func (e *Engine) LeaveNode(nodeID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, err := e.currentEpoch()
	if err != nil {
		return err
	}
	n, err := e.nodes.Get(nodeID)
	if err != nil {
		return err
	}
	if n.Status() != node.StatusActive {
		return rejects.Domainf("node %d is not active", nodeID)
	}
	p, err := e.positions.Get(n.OperatorPosition())
	if err != nil {
		return err
	}
	owner, err := e.registry.OwnerOf(p.ID())
	if err != nil {
		return err
	}
	if _, err := e.rollLedgers(n, p, cur); err != nil {
		return err
	}
	if !p.LockExpired(cur) {
		return rejects.Domain("lock not yet expired")
	}

	earned, upTo := rewards.Accrue(p, e.global, true, cur)
	p.AccrueRewards(earned, upTo)
	e.recordStuckShares(p, cur)
	reward := p.Claim()

	total := n.Series().Last(cur)
	if err := e.global.Series().Decrease(cur, total); err != nil {
		return err
	}
	if err := n.Series().Decrease(cur, total); err != nil {
		return err
	}
	for ep, amt := range n.Series().DrainExcess(cur) {
		if err := e.global.Series().UnregisterExcess(ep, amt); err != nil {
			return err
		}
	}

	principal := p.BaseStaked()
	if err := n.SubBase(principal); err != nil {
		return err
	}
	if err := e.global.SubBase(principal); err != nil {
		return err
	}
	n.Deactivate(cur)

	if err := e.registry.Redeem(p.ID()); err != nil {
		return err
	}
	e.positions.Remove(p.ID())
	if err := e.vault.Withdraw(owner, new(big.Int).Add(principal, reward)); err != nil {
		return err
	}

	logger.Info("operator left", "node", nodeID, "position", p.ID(), "epoch", cur, "principal", principal, "reward", reward)
	opCount.AddWithLabel(1, map[string]string{"op": "leave_node"})
	return nil
}

// WithdrawDelegation exits a delegator position, settling rewards and
// returning principal. Against a slashed node the principal takes the
// haircut; a fully slashed node blocks principal withdrawal entirely.
func (e *Engine) WithdrawDelegation(positionID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, err := e.currentEpoch()
	if err != nil {
		return err
	}
	p, err := e.positions.Get(positionID)
	if err != nil {
		return err
	}
	if p.Type() != position.TypeDelegator {
		return rejects.Domain("operators leave their node instead of withdrawing")
	}
	n, err := e.nodes.Get(p.NodeID())
	if err != nil {
		return err
	}
	owner, err := e.registry.OwnerOf(positionID)
	if err != nil {
		return err
	}

	base := p.BaseStaked()
	payout := new(big.Int)

	switch n.Status() {
	case node.StatusActive:
		opPos, err := e.positions.Get(n.OperatorPosition())
		if err != nil {
			return err
		}
		if _, err := e.rollLedgers(n, opPos, cur); err != nil {
			return err
		}
		if err := p.RollForward(cur); err != nil {
			return err
		}
		if !p.LockExpired(cur) {
			return rejects.Domain("lock not yet expired")
		}
		earned, upTo := rewards.Accrue(p, e.global, false, cur)
		p.AccrueRewards(earned, upTo)
		e.recordStuckShares(p, cur)

		fee := stakes.Fee(base, n.FeeBps())
		weighted := new(big.Int).Add(p.Series().Last(cur), fee)
		if err := opPos.Series().Decrease(cur, fee); err != nil {
			return err
		}
		if err := n.Series().Decrease(cur, weighted); err != nil {
			return err
		}
		if err := e.global.Series().Decrease(cur, weighted); err != nil {
			return err
		}
		if err := n.SubBase(base); err != nil {
			return err
		}
		if err := e.global.SubBase(base); err != nil {
			return err
		}
		payout.Add(base, p.Claim())

	case node.StatusInactive:
		lastActive, err := e.rollLedgers(n, p, cur)
		if err != nil {
			return err
		}
		if !p.LockExpired(cur) {
			return rejects.Domain("lock not yet expired")
		}
		earned, upTo := rewards.Accrue(p, e.global, true, lastActive)
		p.AccrueRewards(earned, upTo)
		e.recordStuckShares(p, lastActive)
		if err := n.SubBase(base); err != nil {
			return err
		}
		if err := e.global.SubBase(base); err != nil {
			return err
		}
		payout.Add(base, p.Claim())

	case node.StatusSlashed:
		if n.FullySlashed() {
			return rejects.Domainf("node %d is fully slashed, claim rewards instead", n.ID())
		}
		lastActive, err := e.rollLedgers(n, p, cur)
		if err != nil {
			return err
		}
		earned, upTo := rewards.Accrue(p, e.global, true, lastActive)
		p.AccrueRewards(earned, upTo)
		e.recordStuckShares(p, lastActive)
		// the node's whole base left the global total at slash time
		if err := n.SubBase(base); err != nil {
			return err
		}
		payout.Add(stakes.SlashResidual(base, n.SlashedBps()), p.Claim())

	default:
		return rejects.Preconditionf("node %d is not staked", n.ID())
	}

	n.RemoveDelegator(positionID)
	if err := e.registry.Redeem(positionID); err != nil {
		return err
	}
	e.positions.Remove(positionID)
	if err := e.vault.Withdraw(owner, payout); err != nil {
		return err
	}

	logger.Info("delegation withdrawn", "position", positionID, "node", n.ID(), "epoch", cur, "payout", payout)
	opCount.AddWithLabel(1, map[string]string{"op": "withdraw_delegation"})
	return nil
}
