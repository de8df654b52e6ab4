// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/stakewheel/stakewheel/staking"
	"github.com/stakewheel/stakewheel/tiers"
)

// Amount is a decimal big integer on the wire. Stake values exceed what
// a JSON number can carry safely, so they travel as strings.
type Amount struct {
	*big.Int
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if a.Int == nil {
		return json.Marshal("0")
	}
	return json.Marshal(a.String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return errors.Errorf("invalid amount %q", s)
	}
	a.Int = i
	return nil
}

type Node struct {
	ID               uint64         `json:"id"`
	Status           string         `json:"status"`
	Operator         common.Address `json:"operator"`
	OperatorPosition uint64         `json:"operatorPosition"`
	BaseStaked       Amount         `json:"baseStaked"`
	FeeBps           uint32         `json:"feeBps"`
	MaxStake         Amount         `json:"maxStake"`
	SlashedBps       uint32         `json:"slashedBps"`
	WhitelistEnabled bool           `json:"whitelistEnabled"`
	Delegators       []uint64       `json:"delegators"`
	PendingRequest   bool           `json:"pendingRequest"`
}

func convertNode(info *staking.NodeInfo) *Node {
	return &Node{
		ID:               info.ID,
		Status:           info.Status,
		Operator:         info.Operator,
		OperatorPosition: info.OperatorPosition,
		BaseStaked:       Amount{info.BaseStaked},
		FeeBps:           info.FeeBps,
		MaxStake:         Amount{info.MaxStake},
		SlashedBps:       info.SlashedBps,
		WhitelistEnabled: info.WhitelistEnabled,
		Delegators:       info.Delegators,
		PendingRequest:   info.PendingRequest,
	}
}

type Position struct {
	ID             uint64         `json:"id"`
	Type           string         `json:"type"`
	NodeID         uint64         `json:"nodeId"`
	Owner          common.Address `json:"owner"`
	BaseStaked     Amount         `json:"baseStaked"`
	TierID         uint32         `json:"tierId"`
	EndLockEpoch   uint32         `json:"endLockEpoch"`
	StartTimestamp uint64         `json:"startTimestamp"`
	Unclaimed      Amount         `json:"unclaimed"`
	Cumulative     Amount         `json:"cumulative"`
}

func convertPosition(info *staking.PositionInfo) *Position {
	return &Position{
		ID:             info.ID,
		Type:           info.Type,
		NodeID:         info.NodeID,
		Owner:          info.Owner,
		BaseStaked:     Amount{info.BaseStaked},
		TierID:         info.TierID,
		EndLockEpoch:   info.EndLockEpoch,
		StartTimestamp: info.StartTimestamp,
		Unclaimed:      Amount{info.Unclaimed},
		Cumulative:     Amount{info.Cumulative},
	}
}

type Tier struct {
	ID           uint32 `json:"id"`
	MinStake     Amount `json:"minStake"`
	LengthEpochs uint32 `json:"lengthEpochs"`
	WeightBps    uint32 `json:"weightBps"`
}

func convertTier(t *tiers.Tier) *Tier {
	return &Tier{
		ID:           t.ID,
		MinStake:     Amount{t.MinStake},
		LengthEpochs: t.LengthEpochs,
		WeightBps:    t.WeightBps,
	}
}

type Bounds struct {
	MinStake  Amount `json:"minStake"`
	MaxStake  Amount `json:"maxStake"`
	MinFeeBps uint32 `json:"minFeeBps"`
	MaxFeeBps uint32 `json:"maxFeeBps"`
}

type Epoch struct {
	Number uint32 `json:"number"`
	Start  uint64 `json:"start"`
}

type NodeRequest struct {
	Operator common.Address `json:"operator"`
	Stake    Amount         `json:"stake"`
	FeeBps   uint32         `json:"feeBps"`
	MaxStake Amount         `json:"maxStake"`
	TierID   uint32         `json:"tierId"`
}

type NodeRequested struct {
	NodeID     uint64 `json:"nodeId"`
	PositionID uint64 `json:"positionId"`
}

type Delegation struct {
	Owner  common.Address `json:"owner"`
	NodeID uint64         `json:"nodeId"`
	Stake  Amount         `json:"stake"`
	TierID uint32         `json:"tierId"`
}

type DelegationOpened struct {
	PositionID uint64 `json:"positionId"`
}

type DelegationChange struct {
	NodeID uint64 `json:"nodeId"`
}

type Claimed struct {
	Amount Amount `json:"amount"`
}

type RewardPool struct {
	Epoch  uint32 `json:"epoch"`
	Amount Amount `json:"amount"`
}

type Slash struct {
	SlashedBps uint32 `json:"slashedBps"`
}

type WhitelistToggle struct {
	Enabled bool `json:"enabled"`
}

type TierRequest struct {
	MinStake     Amount `json:"minStake"`
	LengthEpochs uint32 `json:"lengthEpochs"`
	WeightBps    uint32 `json:"weightBps"`
}

type TierAdded struct {
	ID uint32 `json:"id"`
}

type StuckShares struct {
	Epoch  uint32 `json:"epoch"`
	Amount Amount `json:"amount"`
}
