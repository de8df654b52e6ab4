// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/stakewheel/stakewheel/metrics"
	"github.com/stakewheel/stakewheel/staking/node"
	"github.com/stakewheel/stakewheel/staking/position"
	"github.com/stakewheel/stakewheel/staking/rejects"
	"github.com/stakewheel/stakewheel/stakes"
)

var opCount = metrics.CounterVec("staking_operation_count", []string{"op"})

// RequestNode escrows an operator stake and registers a node pending
// approval. No ledger is touched until the request is approved.
func (e *Engine) RequestNode(operator common.Address, stake *big.Int, feeBps uint32, maxStake *big.Int, tierID uint32) (nodeID, positionID uint64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.currentEpoch(); err != nil {
		return 0, 0, err
	}
	tier, err := e.tierTable.Selectable(tierID)
	if err != nil {
		return 0, 0, rejects.Domain(err.Error())
	}
	if err := e.global.ValidateStake(stake); err != nil {
		return 0, 0, err
	}
	if stake.Cmp(tier.MinStake) < 0 {
		return 0, 0, rejects.Domainf("stake below tier %d minimum", tierID)
	}
	if err := e.global.ValidateFee(feeBps); err != nil {
		return 0, 0, err
	}
	if maxStake == nil || maxStake.Cmp(stake) < 0 {
		return 0, 0, rejects.Domain("node capacity below own stake")
	}

	if err := e.vault.Deposit(operator, stake); err != nil {
		return 0, 0, err
	}
	positionID, err = e.registry.Mint(operator, stake)
	if err != nil {
		return 0, 0, err
	}

	n := e.nodes.Create(operator, feeBps, maxStake)
	n.SetRequest(stake, tierID, positionID)

	logger.Info("node requested", "node", n.ID(), "operator", operator, "stake", stake)
	opCount.AddWithLabel(1, map[string]string{"op": "request_node"})
	return n.ID(), positionID, nil
}

// ApproveNode activates a pending node: its operator position enters the
// ledgers at the current epoch with full credit for it.
func (e *Engine) ApproveNode(nodeID uint64) error {
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
	req := n.Request()
	if req == nil || n.Status() != node.StatusNone {
		return rejects.Preconditionf("node %d has no pending request", nodeID)
	}
	tier, err := e.tierTable.Get(req.TierID)
	if err != nil {
		return err
	}

	if err := e.global.Series().RollForward(cur); err != nil {
		return err
	}

	ws := stakes.NewWeightedStake(req.Stake, tier.WeightBps)
	p := position.New(req.PositionID, position.TypeOperator, nodeID, ws.Base, ws.Weighted, tier, cur, e.now(), ws.Excess())
	e.positions.Add(p)

	n.Series().Anchor(cur, ws.Weighted)
	if tier.Locked() {
		n.Series().RegisterExcess(p.EndLockEpoch(), ws.Excess())
		e.global.Series().RegisterExcess(p.EndLockEpoch(), ws.Excess())
	}
	if err := e.global.Series().Increase(cur, ws.Weighted); err != nil {
		return err
	}
	n.AddBase(ws.Base)
	e.global.AddBase(ws.Base)
	n.Activate(req.PositionID)
	n.ClearRequest()

	logger.Info("node approved", "node", nodeID, "position", req.PositionID, "epoch", cur)
	opCount.AddWithLabel(1, map[string]string{"op": "approve_node"})
	return nil
}

// RejectNode refunds a pending operator stake and removes the node.
func (e *Engine) RejectNode(nodeID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, err := e.nodes.Get(nodeID)
	if err != nil {
		return err
	}
	req := n.Request()
	if req == nil || n.Status() != node.StatusNone {
		return rejects.Preconditionf("node %d has no pending request", nodeID)
	}

	if err := e.registry.Redeem(req.PositionID); err != nil {
		return err
	}
	e.nodes.Remove(nodeID)
	if err := e.vault.Withdraw(n.Operator(), req.Stake); err != nil {
		return err
	}

	logger.Info("node rejected", "node", nodeID)
	opCount.AddWithLabel(1, map[string]string{"op": "reject_node"})
	return nil
}

// SlashNode closes an active node with a principal haircut. The node's
// whole weighted stake leaves the ledgers at the current epoch; positions
// settle the haircut individually when they withdraw or claim.
func (e *Engine) SlashNode(nodeID uint64, slashedBps uint32) error {
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
	if slashedBps == 0 || slashedBps > stakes.ScaleBps {
		return rejects.Domain("slash percentage out of range")
	}
	if _, err := e.rollLedgers(n, nil, cur); err != nil {
		return err
	}

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
	if err := e.global.SubBase(n.BaseStaked()); err != nil {
		return err
	}
	n.Slash(slashedBps, cur)

	logger.Info("node slashed", "node", nodeID, "bps", slashedBps, "epoch", cur)
	opCount.AddWithLabel(1, map[string]string{"op": "slash_node"})
	return nil
}

// SetWhitelistEnabled toggles a node's delegator whitelist check.
func (e *Engine) SetWhitelistEnabled(nodeID uint64, on bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, err := e.nodes.Get(nodeID)
	if err != nil {
		return err
	}
	n.SetWhitelistEnabled(on)
	return nil
}

// WhitelistDelegator admits an address to a node's whitelist.
func (e *Engine) WhitelistDelegator(nodeID uint64, addr common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, err := e.nodes.Get(nodeID)
	if err != nil {
		return err
	}
	n.Whitelist(addr)
	return nil
}

// UnwhitelistDelegator removes an address from a node's whitelist.
// Existing delegations are unaffected.
func (e *Engine) UnwhitelistDelegator(nodeID uint64, addr common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, err := e.nodes.Get(nodeID)
	if err != nil {
		return err
	}
	n.Unwhitelist(addr)
	return nil
}
