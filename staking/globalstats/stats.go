// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package globalstats

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/stakewheel/stakewheel/ledger"
	"github.com/stakewheel/stakewheel/staking/rejects"
	"github.com/stakewheel/stakewheel/stakes"
)

// Bounds are the system-wide policy limits applied to new stakes and to
// node fees at creation time.
type Bounds struct {
	MinStake  *big.Int
	MaxStake  *big.Int
	MinFeeBps uint32
	MaxFeeBps uint32
}

// Stats is the singleton global ledger: the aggregate base stake across
// live nodes, the shared per-epoch series, and the reward pools with their
// setting cursor.
type Stats struct {
	totalBase *big.Int
	bounds    Bounds
	series    *ledger.Series

	pools        map[uint32]*big.Int // totalRewardsPerEpoch
	rewardCursor uint32              // lastEpochRewardsUpdated
}

func New(bounds Bounds) (*Stats, error) {
	if bounds.MinStake == nil || bounds.MaxStake == nil {
		return nil, errors.New("stake bounds must be set")
	}
	if bounds.MinStake.Cmp(bounds.MaxStake) > 0 {
		return nil, errors.New("min stake exceeds max stake")
	}
	if bounds.MaxFeeBps > stakes.ScaleBps || bounds.MinFeeBps > bounds.MaxFeeBps {
		return nil, errors.New("fee bounds out of range")
	}
	return &Stats{
		totalBase: new(big.Int),
		bounds: Bounds{
			MinStake:  new(big.Int).Set(bounds.MinStake),
			MaxStake:  new(big.Int).Set(bounds.MaxStake),
			MinFeeBps: bounds.MinFeeBps,
			MaxFeeBps: bounds.MaxFeeBps,
		},
		series: ledger.NewSeries(),
		pools:  make(map[uint32]*big.Int),
	}, nil
}

// Series exposes the global per-epoch ledger.
func (s *Stats) Series() *ledger.Series {
	return s.series
}

// TotalBase returns the aggregate base stake of active and inactive nodes.
func (s *Stats) TotalBase() *big.Int {
	return new(big.Int).Set(s.totalBase)
}

func (s *Stats) AddBase(amount *big.Int) {
	s.totalBase.Add(s.totalBase, amount)
}

func (s *Stats) SubBase(amount *big.Int) error {
	if s.totalBase.Cmp(amount) < 0 {
		return errors.New("total base stake underflow")
	}
	s.totalBase.Sub(s.totalBase, amount)
	return nil
}

func (s *Stats) Bounds() Bounds {
	return Bounds{
		MinStake:  new(big.Int).Set(s.bounds.MinStake),
		MaxStake:  new(big.Int).Set(s.bounds.MaxStake),
		MinFeeBps: s.bounds.MinFeeBps,
		MaxFeeBps: s.bounds.MaxFeeBps,
	}
}

// SetStakeBounds updates the min/max stake policy for future stakes.
func (s *Stats) SetStakeBounds(minStake, maxStake *big.Int) error {
	if minStake == nil || maxStake == nil || minStake.Cmp(maxStake) > 0 {
		return rejects.Domain("stake bounds out of range")
	}
	s.bounds.MinStake = new(big.Int).Set(minStake)
	s.bounds.MaxStake = new(big.Int).Set(maxStake)
	return nil
}

// SetFeeBounds updates the min/max fee policy for future nodes.
func (s *Stats) SetFeeBounds(minFeeBps, maxFeeBps uint32) error {
	if maxFeeBps > stakes.ScaleBps || minFeeBps > maxFeeBps {
		return rejects.Domain("fee bounds out of range")
	}
	s.bounds.MinFeeBps = minFeeBps
	s.bounds.MaxFeeBps = maxFeeBps
	return nil
}

// ValidateStake checks a new stake amount against the global policy.
func (s *Stats) ValidateStake(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return rejects.Domain("stake must be positive")
	}
	if amount.Cmp(s.bounds.MinStake) < 0 || amount.Cmp(s.bounds.MaxStake) > 0 {
		return rejects.Domain("stake is out of range")
	}
	return nil
}

// ValidateFee checks a node fee against the global policy.
func (s *Stats) ValidateFee(feeBps uint32) error {
	if feeBps < s.bounds.MinFeeBps || feeBps > s.bounds.MaxFeeBps {
		return rejects.Domain("fee is out of range")
	}
	return nil
}

// RewardCursor returns the last epoch a reward pool has been set for.
func (s *Stats) RewardCursor() uint32 {
	return s.rewardCursor
}

// RewardPool returns the reward pool set for an epoch, zero if none.
func (s *Stats) RewardPool(e uint32) *big.Int {
	if pool, ok := s.pools[e]; ok {
		return new(big.Int).Set(pool)
	}
	return new(big.Int)
}

// SetRewardPool records the reward pool for a closed epoch. Pools are set
// strictly in epoch order; epoch 1 is the bootstrap epoch and never earns.
func (s *Stats) SetRewardPool(e uint32, amount *big.Int, currentEpoch uint32) error {
	if amount == nil || amount.Sign() < 0 {
		return rejects.Domain("reward pool cannot be negative")
	}
	if e >= currentEpoch {
		return rejects.Domainf("epoch %d is not closed yet", e)
	}
	next := s.rewardCursor + 1
	if s.rewardCursor == 0 {
		next = 2
	}
	if e != next {
		return rejects.Domainf("reward pool must be set for epoch %d, got %d", next, e)
	}
	s.pools[e] = new(big.Int).Set(amount)
	s.rewardCursor = e
	return nil
}
