// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tiers

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/stakewheel/stakewheel/stakes"
)

// LiquidID is the reserved tier id for unlocked stake: full weight, no
// minimum, no expiry.
const LiquidID = uint32(0)

// Tier describes a lock duration a position may opt into at creation.
type Tier struct {
	ID           uint32
	MinStake     *big.Int
	LengthEpochs uint32
	WeightBps    uint32

	hidden bool
}

// Locked reports whether the tier carries a lock at all.
func (t *Tier) Locked() bool {
	return t.ID != LiquidID
}

// Table is the registry of lock tiers. Tier ids are append-only; removing a
// tier only hides it from new stakes and never mutates existing positions.
type Table struct {
	tiers []*Tier
}

func NewTable() *Table {
	return &Table{
		tiers: []*Tier{{
			ID:        LiquidID,
			MinStake:  new(big.Int),
			WeightBps: stakes.ScaleBps,
		}},
	}
}

// Add appends a new tier and returns its id.
func (t *Table) Add(minStake *big.Int, lengthEpochs, weightBps uint32) (uint32, error) {
	if lengthEpochs == 0 {
		return 0, errors.New("tier length must be at least one epoch")
	}
	if weightBps < stakes.ScaleBps {
		return 0, errors.New("tier weight cannot be below base weight")
	}
	if minStake == nil || minStake.Sign() < 0 {
		return 0, errors.New("tier minimum stake cannot be negative")
	}

	id := uint32(len(t.tiers))
	t.tiers = append(t.tiers, &Tier{
		ID:           id,
		MinStake:     new(big.Int).Set(minStake),
		LengthEpochs: lengthEpochs,
		WeightBps:    weightBps,
	})
	return id, nil
}

// Remove hides a tier from new stakes. The liquid tier cannot be removed.
func (t *Table) Remove(id uint32) error {
	if id == LiquidID {
		return errors.New("liquid tier cannot be removed")
	}
	if int(id) >= len(t.tiers) {
		return errors.Errorf("unknown tier %d", id)
	}
	t.tiers[id].hidden = true
	return nil
}

// Get returns a tier by id, hidden or not. Existing positions keep using
// tiers that were hidden after they staked.
func (t *Table) Get(id uint32) (*Tier, error) {
	if int(id) >= len(t.tiers) {
		return nil, errors.Errorf("unknown tier %d", id)
	}
	return t.tiers[id], nil
}

// Selectable returns a tier usable for a new stake.
func (t *Table) Selectable(id uint32) (*Tier, error) {
	tier, err := t.Get(id)
	if err != nil {
		return nil, err
	}
	if tier.hidden {
		return nil, errors.Errorf("tier %d is no longer available", id)
	}
	return tier, nil
}

// List returns all tiers currently selectable for new stakes.
func (t *Table) List() []*Tier {
	visible := make([]*Tier, 0, len(t.tiers))
	for _, tier := range t.tiers {
		if !tier.hidden {
			visible = append(visible, tier)
		}
	}
	return visible
}
