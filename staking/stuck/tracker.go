// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stuck

import "math/big"

// Tracker records reward shares that belong to positions which exited
// before a reward pool was ever set for the epochs they were staked in.
// Those epochs can never be distributed to the exited position, so their
// per-epoch contributions are kept here for external reconciliation.
type Tracker struct {
	shares map[uint32]*big.Int // stuckRewardSharesPerEpoch
	cursor uint32              // lastEpochStuckRewardsUpdated
}

func NewTracker() *Tracker {
	return &Tracker{
		shares: make(map[uint32]*big.Int),
	}
}

// Record adds an exited position's min-staked contribution for an epoch.
func (t *Tracker) Record(e uint32, amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	cur, ok := t.shares[e]
	if !ok {
		cur = new(big.Int)
		t.shares[e] = cur
	}
	cur.Add(cur, amount)
}

// Shares returns the stuck contribution recorded for an epoch.
func (t *Tracker) Shares(e uint32) *big.Int {
	if v, ok := t.shares[e]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// Cursor returns the last epoch consumed by reconciliation.
func (t *Tracker) Cursor() uint32 {
	return t.cursor
}

// Consume hands epochs up to and including the given one to the external
// reconciliation and advances the cursor. Consumed epochs are cleared.
func (t *Tracker) Consume(until uint32) map[uint32]*big.Int {
	out := make(map[uint32]*big.Int)
	for e := t.cursor + 1; e <= until; e++ {
		if v, ok := t.shares[e]; ok {
			out[e] = v
			delete(t.shares, e)
		}
	}
	if until > t.cursor {
		t.cursor = until
	}
	return out
}
