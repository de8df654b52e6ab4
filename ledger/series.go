// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"

	"github.com/pkg/errors"
)

// Series is the per-epoch staking record shared by the global, node and
// position ledgers. It tracks, for every epoch up to its cursor, the last
// and minimum weighted amounts observed during that epoch, plus pending
// lock-bonus expiries keyed by the epoch at which they unwind.
//
// Rolling forward is lazy: nothing is written for an epoch until an action
// touches the record, and the cost of a roll is proportional to the epoch
// gap of this record only, never to the number of live records.
type Series struct {
	cursor uint32 // lastEpochStakingUpdated

	last   map[uint32]*big.Int // lastStakedAmountPerEpoch
	min    map[uint32]*big.Int // minStakedAmountPerEpoch
	excess map[uint32]*big.Int // lockingExcessWeightedStakePerEpoch
}

func NewSeries() *Series {
	return &Series{
		last:   make(map[uint32]*big.Int),
		min:    make(map[uint32]*big.Int),
		excess: make(map[uint32]*big.Int),
	}
}

// Cursor returns the last epoch this series has been rolled to.
func (s *Series) Cursor() uint32 {
	return s.cursor
}

// Last returns the last staked amount recorded for an epoch, zero if unset.
func (s *Series) Last(e uint32) *big.Int {
	if v, ok := s.last[e]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// Min returns the minimum staked amount recorded for an epoch, zero if unset.
func (s *Series) Min(e uint32) *big.Int {
	if v, ok := s.min[e]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// ExcessAt returns the pending lock-bonus expiry registered for an epoch.
func (s *Series) ExcessAt(e uint32) *big.Int {
	if v, ok := s.excess[e]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// RollForward extends the series up to the given epoch. The amount carried
// into each new epoch is the previous epoch's closing amount, minus any
// lock-bonus expiry registered for the entered epoch. Rolling is idempotent:
// calling it again with the same epoch is a no-op.
func (s *Series) RollForward(until uint32) error {
	if s.cursor >= until {
		return nil
	}

	rolling := s.Last(s.cursor)
	for e := s.cursor + 1; e <= until; e++ {
		if exc, ok := s.excess[e]; ok {
			if rolling.Cmp(exc) < 0 {
				return errors.Errorf("lock expiry exceeds rolling amount at epoch %d", e)
			}
			rolling.Sub(rolling, exc)
			delete(s.excess, e)
		}
		s.last[e] = new(big.Int).Set(rolling)
		s.min[e] = new(big.Int).Set(rolling)
	}
	s.cursor = until
	return nil
}

// Anchor fast-forwards the series to the given epoch and sets its last and
// min amounts directly, without writing the intervening epochs. Used when a
// record (re)enters the ledger and its history before the anchor is void.
func (s *Series) Anchor(e uint32, amount *big.Int) {
	s.cursor = e
	s.last[e] = new(big.Int).Set(amount)
	s.min[e] = new(big.Int).Set(amount)
}

// Increase adds to the current epoch's staked amount. New stake gains full
// credit for the epoch it enters, so both last and min move together.
// The series must already be rolled to the epoch being written.
func (s *Series) Increase(e uint32, amount *big.Int) error {
	if e != s.cursor {
		return errors.Errorf("series not rolled to epoch %d (cursor %d)", e, s.cursor)
	}
	s.last[e] = new(big.Int).Add(s.Last(e), amount)
	s.min[e] = new(big.Int).Add(s.Min(e), amount)
	return nil
}

// Decrease subtracts from the current epoch's staked amount and clamps the
// epoch minimum, so a balance reduced mid-epoch is never credited for more
// than it sustained across the whole epoch.
func (s *Series) Decrease(e uint32, amount *big.Int) error {
	if e != s.cursor {
		return errors.Errorf("series not rolled to epoch %d (cursor %d)", e, s.cursor)
	}
	last := s.Last(e)
	if last.Cmp(amount) < 0 {
		return errors.Errorf("staked amount underflow at epoch %d", e)
	}
	last.Sub(last, amount)
	s.last[e] = last
	s.RegisterMidEpochDecrease(e)
	return nil
}

// RegisterMidEpochDecrease clamps the epoch minimum to the epoch's current
// last amount. Every action that reduces a last-staked amount within the
// current epoch must invoke this immediately after.
func (s *Series) RegisterMidEpochDecrease(e uint32) {
	last := s.Last(e)
	if s.Min(e).Cmp(last) > 0 {
		s.min[e] = last
	}
}

// RegisterExcess books a lock bonus to be unwound when the series rolls
// into the given epoch.
func (s *Series) RegisterExcess(e uint32, amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	s.excess[e] = new(big.Int).Add(s.ExcessAt(e), amount)
}

// UnregisterExcess removes part of a booked lock bonus, used when the
// underlying position moves its registration elsewhere.
func (s *Series) UnregisterExcess(e uint32, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	cur, ok := s.excess[e]
	if !ok || cur.Cmp(amount) < 0 {
		return errors.Errorf("excess weight underflow at epoch %d", e)
	}
	cur = new(big.Int).Sub(cur, amount)
	if cur.Sign() == 0 {
		delete(s.excess, e)
	} else {
		s.excess[e] = cur
	}
	return nil
}

// DrainExcess removes and returns every lock-bonus registration beyond the
// given epoch. Called when a node closes, so matching registrations can be
// unwound from the global ledger without iterating positions.
func (s *Series) DrainExcess(after uint32) map[uint32]*big.Int {
	drained := make(map[uint32]*big.Int)
	for e, amt := range s.excess {
		if e > after {
			drained[e] = amt
			delete(s.excess, e)
		}
	}
	return drained
}
