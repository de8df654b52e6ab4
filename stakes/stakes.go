// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakes

import "math/big"

// ScaleBps is the basis-point scale used for lock weights, delegation fees
// and slashing percentages. 10_000 == 100%.
const ScaleBps = 10_000

var scale = big.NewInt(ScaleBps)

// WeightedStake pairs a base amount with its lock-weighted amount.
type WeightedStake struct {
	Base     *big.Int
	Weighted *big.Int
}

// NewWeightedStake computes weighted = base * weightBps / ScaleBps.
// A liquid stake carries weightBps == ScaleBps and weighs exactly its base.
func NewWeightedStake(base *big.Int, weightBps uint32) *WeightedStake {
	w := new(big.Int).Mul(base, big.NewInt(int64(weightBps)))
	w.Div(w, scale)
	return &WeightedStake{
		Base:     new(big.Int).Set(base),
		Weighted: w,
	}
}

// Excess returns the portion of the weight attributable solely to locking.
func (s *WeightedStake) Excess() *big.Int {
	return new(big.Int).Sub(s.Weighted, s.Base)
}

// Fee returns the operator cut of a delegated amount.
func Fee(amount *big.Int, feeBps uint32) *big.Int {
	f := new(big.Int).Mul(amount, big.NewInt(int64(feeBps)))
	return f.Div(f, scale)
}

// SlashResidual returns what remains of a principal after a slash haircut.
func SlashResidual(amount *big.Int, slashedBps uint32) *big.Int {
	r := new(big.Int).Mul(amount, big.NewInt(ScaleBps-int64(slashedBps)))
	return r.Div(r, scale)
}
