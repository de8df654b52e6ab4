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
)

// ClaimRewards settles and pays out a position's unclaimed rewards. A
// zero balance is a no-op. Claiming against a slashed node retires the
// position when nothing of value can ever accrue to it again: the
// operator always, a delegator only once the slash is total.
func (e *Engine) ClaimRewards(positionID uint64) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.claim(positionID)
}

// ClaimBatch settles a list of positions and returns the total paid.
func (e *Engine) ClaimBatch(positionIDs []uint64) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	total := new(big.Int)
	for _, id := range positionIDs {
		claimed, err := e.claim(id)
		if err != nil {
			return nil, err
		}
		total.Add(total, claimed)
	}
	return total, nil
}

// ClaimAllFor settles every live position held by an owner and returns
// the total paid.
func (e *Engine) ClaimAllFor(owner common.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids, err := e.registry.PositionsOf(owner)
	if err != nil {
		return nil, err
	}
	total := new(big.Int)
	for _, id := range ids {
		if !e.positions.Has(id) {
			continue
		}
		claimed, err := e.claim(id)
		if err != nil {
			return nil, err
		}
		total.Add(total, claimed)
	}
	return total, nil
}

func (e *Engine) claim(positionID uint64) (*big.Int, error) {
	cur, err := e.currentEpoch()
	if err != nil {
		return nil, err
	}
	p, err := e.positions.Get(positionID)
	if err != nil {
		return nil, err
	}
	n, err := e.nodes.Get(p.NodeID())
	if err != nil {
		return nil, err
	}
	lastActive, err := e.updateUnclaimed(n, p, cur)
	if err != nil {
		return nil, err
	}

	amount := p.Claim()
	if amount.Sign() == 0 {
		return amount, nil
	}
	owner, err := e.registry.OwnerOf(positionID)
	if err != nil {
		return nil, err
	}

	retire := n.FullySlashed() || (n.Status() == node.StatusSlashed && p.Type() == position.TypeOperator)
	if retire {
		e.recordStuckShares(p, lastActive)
		if err := n.SubBase(p.BaseStaked()); err != nil {
			return nil, err
		}
		if p.Type() == position.TypeDelegator {
			n.RemoveDelegator(positionID)
		}
		if err := e.registry.Redeem(positionID); err != nil {
			return nil, err
		}
		e.positions.Remove(positionID)
	}
	if err := e.vault.Withdraw(owner, amount); err != nil {
		return nil, err
	}

	logger.Info("rewards claimed", "position", positionID, "amount", amount, "retired", retire)
	opCount.AddWithLabel(1, map[string]string{"op": "claim"})
	return amount, nil
}
