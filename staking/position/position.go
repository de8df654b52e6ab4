// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package position

import (
	"math/big"

	"github.com/stakewheel/stakewheel/ledger"
	"github.com/stakewheel/stakewheel/tiers"
)

type Type uint8

const (
	TypeOperator Type = iota + 1
	TypeDelegator
)

func (t Type) String() string {
	switch t {
	case TypeOperator:
		return "operator"
	case TypeDelegator:
		return "delegator"
	default:
		return "unknown"
	}
}

// Position is a single staker record, operator or delegator, with its own
// per-epoch ledger and reward cursors.
type Position struct {
	id     uint64
	typ    Type
	nodeID uint64

	baseStaked     *big.Int
	tierID         uint32
	endLockEpoch   uint32 // first epoch at base weight, zero when liquid
	startTimestamp uint64

	series       *ledger.Series
	rewardCursor uint32 // lastEpochRewardsUpdated

	unclaimed  *big.Int
	cumulative *big.Int
}

// New creates a position anchored at the given epoch with its initial
// ledger contribution. For a locked tier the lock-bonus expiry is booked
// into the position's own series.
func New(id uint64, typ Type, nodeID uint64, base, contribution *big.Int, tier *tiers.Tier, startEpoch uint32, startTimestamp uint64, excess *big.Int) *Position {
	p := &Position{
		id:             id,
		typ:            typ,
		nodeID:         nodeID,
		baseStaked:     new(big.Int).Set(base),
		tierID:         tier.ID,
		startTimestamp: startTimestamp,
		series:         ledger.NewSeries(),
		unclaimed:      new(big.Int),
		cumulative:     new(big.Int),
	}
	p.series.Anchor(startEpoch, contribution)
	if tier.Locked() {
		p.endLockEpoch = startEpoch + tier.LengthEpochs + 1
		p.series.RegisterExcess(p.endLockEpoch, excess)
	}
	return p
}

func (p *Position) ID() uint64             { return p.id }
func (p *Position) Type() Type             { return p.typ }
func (p *Position) NodeID() uint64         { return p.nodeID }
func (p *Position) BaseStaked() *big.Int   { return new(big.Int).Set(p.baseStaked) }
func (p *Position) TierID() uint32         { return p.tierID }
func (p *Position) EndLockEpoch() uint32   { return p.endLockEpoch }
func (p *Position) StartTimestamp() uint64 { return p.startTimestamp }
func (p *Position) Series() *ledger.Series { return p.series }
func (p *Position) RewardCursor() uint32   { return p.rewardCursor }
func (p *Position) Unclaimed() *big.Int    { return new(big.Int).Set(p.unclaimed) }
func (p *Position) Cumulative() *big.Int   { return new(big.Int).Set(p.cumulative) }

// RollForward rolls the position ledger and expires the lock tier once the
// series crosses the end-lock epoch. The tier id flips to liquid exactly at
// that epoch and never reverts.
func (p *Position) RollForward(until uint32) error {
	if err := p.series.RollForward(until); err != nil {
		return err
	}
	if p.endLockEpoch != 0 && p.series.Cursor() >= p.endLockEpoch {
		p.tierID = tiers.LiquidID
		p.endLockEpoch = 0
	}
	return nil
}

// LockExpired reports whether principal may be withdrawn at the given epoch.
func (p *Position) LockExpired(current uint32) bool {
	return p.endLockEpoch == 0 || current >= p.endLockEpoch
}

// OutstandingExcess returns the lock bonus still booked beyond the current
// epoch, zero once the lock has run out.
func (p *Position) OutstandingExcess() *big.Int {
	if p.endLockEpoch == 0 {
		return new(big.Int)
	}
	return p.series.ExcessAt(p.endLockEpoch)
}

// DropLock voids an expired lock without rolling the series, clearing the
// pending excess slot and flipping the tier to liquid. Used when a position
// re-anchors after idling past its end-lock epoch on a dead node.
func (p *Position) DropLock() error {
	if p.endLockEpoch == 0 {
		return nil
	}
	excess := p.series.ExcessAt(p.endLockEpoch)
	if excess.Sign() > 0 {
		if err := p.series.UnregisterExcess(p.endLockEpoch, excess); err != nil {
			return err
		}
	}
	p.tierID = tiers.LiquidID
	p.endLockEpoch = 0
	return nil
}

// Reanchor fast-forwards the position into a new node at the current epoch,
// voiding the series history accumulated while its previous node was dead.
func (p *Position) Reanchor(nodeID uint64, e uint32, contribution *big.Int) {
	p.nodeID = nodeID
	p.series.Anchor(e, contribution)
}

// SetNode repoints the position at a new node.
func (p *Position) SetNode(nodeID uint64) {
	p.nodeID = nodeID
}

// AccrueRewards adds freshly computed rewards and advances the reward
// cursor. Cursors only move forward.
func (p *Position) AccrueRewards(amount *big.Int, upTo uint32) {
	p.unclaimed.Add(p.unclaimed, amount)
	if upTo > p.rewardCursor {
		p.rewardCursor = upTo
	}
}

// SkipRewardsTo bumps the reward cursor without accrual, used when the
// epochs being skipped can never pay (a dead node's closing stretch).
func (p *Position) SkipRewardsTo(e uint32) {
	if e > p.rewardCursor {
		p.rewardCursor = e
	}
}

// Claim empties the unclaimed balance into the cumulative total and
// returns the claimed amount.
func (p *Position) Claim() *big.Int {
	claimed := new(big.Int).Set(p.unclaimed)
	p.cumulative.Add(p.cumulative, claimed)
	p.unclaimed.SetInt64(0)
	return claimed
}
