// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rewards

import (
	"math/big"

	"github.com/stakewheel/stakewheel/staking/globalstats"
	"github.com/stakewheel/stakewheel/staking/position"
)

// FirstEarningEpoch is the first epoch that can accrue rewards. Epoch 1 is
// the bootstrap epoch and never earns.
const FirstEarningEpoch = uint32(2)

// UpTo returns the last epoch a position may accrue rewards for, given the
// global reward-setting cursor and its node's closing epoch. A closed
// node's final partial epoch never pays: once the cursor reaches or passes
// the closing epoch, accrual stops one epoch short of it.
func UpTo(rewardCursor uint32, nodeClosed bool, lastActive uint32) uint32 {
	upTo := rewardCursor
	if nodeClosed && upTo >= lastActive {
		if lastActive == 0 {
			return 0
		}
		upTo = lastActive - 1
	}
	return upTo
}

// Accrue walks the epochs a position has not yet been credited for and
// returns the earned amount together with the new reward cursor. Callers
// must have rolled the position, its node and the global ledger to the
// node's last active epoch beforehand.
//
// Per epoch the position earns min[e] * pool[e] / globalMin[e], with
// integer truncation. The walk is idempotent: without epoch progress it
// returns zero and leaves the cursor in place.
func Accrue(p *position.Position, global *globalstats.Stats, nodeClosed bool, lastActive uint32) (*big.Int, uint32) {
	from := p.RewardCursor() + 1
	if p.RewardCursor() == 0 {
		from = FirstEarningEpoch
	}
	upTo := UpTo(global.RewardCursor(), nodeClosed, lastActive)

	earned := new(big.Int)
	if upTo < from {
		return earned, p.RewardCursor()
	}

	for e := from; e <= upTo; e++ {
		posMin := p.Series().Min(e)
		if posMin.Sign() == 0 {
			continue
		}
		pool := global.RewardPool(e)
		if pool.Sign() == 0 {
			continue
		}
		// posMin > 0 implies the global minimum is > 0 as well, since the
		// position's contribution is part of it
		share := posMin.Mul(posMin, pool)
		share.Div(share, global.Series().Min(e))
		earned.Add(earned, share)
	}
	return earned, upTo
}
