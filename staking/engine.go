// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package staking is the epoch-based stake-weighted reward accounting
// engine. It tracks staked value at three nested levels, whole system,
// per node and per position, and walks the per-epoch history lazily to
// compute rewards. The engine never moves value itself: custody and
// certificate issuance are injected collaborators.
package staking

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/stakewheel/stakewheel/custody"
	"github.com/stakewheel/stakewheel/epoch"
	"github.com/stakewheel/stakewheel/ledger"
	"github.com/stakewheel/stakewheel/log"
	"github.com/stakewheel/stakewheel/staking/globalstats"
	"github.com/stakewheel/stakewheel/staking/node"
	"github.com/stakewheel/stakewheel/staking/position"
	"github.com/stakewheel/stakewheel/staking/rejects"
	"github.com/stakewheel/stakewheel/staking/rewards"
	"github.com/stakewheel/stakewheel/staking/stuck"
	"github.com/stakewheel/stakewheel/tiers"
)

var logger = log.WithContext("pkg", "staking")

// Options configures a new engine.
type Options struct {
	// InitTimestamp is the unix time the staking window opens. The epoch
	// containing it is epoch 1.
	InitTimestamp uint64
	// EpochSize is the epoch length in seconds.
	EpochSize uint64
	// Bounds are the initial stake and fee policy limits.
	Bounds globalstats.Bounds
	// Now overrides the wall clock, mainly for tests. Defaults to
	// time.Now.
	Now func() uint64
}

// Engine is the staking core. All mutating operations are serialized
// behind a single writer lock and are all-or-nothing: a rejected
// operation leaves no partial state behind.
type Engine struct {
	mu sync.RWMutex

	clock *epoch.Clock
	now   func() uint64

	vault    custody.Vault
	registry custody.PositionRegistry

	global      *globalstats.Stats
	tierTable   *tiers.Table
	nodes       *node.Service
	positions   *position.Service
	stuckShares *stuck.Tracker
}

// New creates an engine with the given custody collaborators.
func New(opts Options, vault custody.Vault, registry custody.PositionRegistry) (*Engine, error) {
	if vault == nil || registry == nil {
		return nil, errors.New("custody collaborators must be set")
	}
	clock, err := epoch.NewClock(opts.InitTimestamp, opts.EpochSize)
	if err != nil {
		return nil, err
	}
	global, err := globalstats.New(opts.Bounds)
	if err != nil {
		return nil, err
	}
	now := opts.Now
	if now == nil {
		now = func() uint64 { return uint64(time.Now().Unix()) }
	}
	return &Engine{
		clock:       clock,
		now:         now,
		vault:       vault,
		registry:    registry,
		global:      global,
		tierTable:   tiers.NewTable(),
		nodes:       node.NewService(),
		positions:   position.NewService(),
		stuckShares: stuck.NewTracker(),
	}, nil
}

// currentEpoch resolves the wall clock to an epoch number. Callers must
// hold the write lock.
func (e *Engine) currentEpoch() (uint32, error) {
	cur, err := e.clock.At(e.now())
	if err != nil {
		return 0, rejects.Precondition("staking window not yet open")
	}
	return cur, nil
}

// rollLedgers rolls the global ledger to the current epoch and the node
// and position ledgers to the node's last active epoch, which is the
// current epoch while the node is alive and its closing epoch after.
// Returns the last active epoch.
func (e *Engine) rollLedgers(n *node.Node, p *position.Position, cur uint32) (uint32, error) {
	lastActive := n.LastActiveEpoch(cur)
	if err := e.global.Series().RollForward(cur); err != nil {
		return 0, err
	}
	if err := n.Series().RollForward(lastActive); err != nil {
		return 0, err
	}
	if p != nil {
		if err := p.RollForward(lastActive); err != nil {
			return 0, err
		}
	}
	return lastActive, nil
}

// updateUnclaimed rolls the ledgers and accrues every epoch the position
// has not been credited for yet. Idempotent without epoch progress.
func (e *Engine) updateUnclaimed(n *node.Node, p *position.Position, cur uint32) (uint32, error) {
	lastActive, err := e.rollLedgers(n, p, cur)
	if err != nil {
		return 0, err
	}
	earned, upTo := rewards.Accrue(p, e.global, n.Closed(), lastActive)
	p.AccrueRewards(earned, upTo)
	return lastActive, nil
}

// recordStuckShares books the exiting position's per-epoch contributions
// for epochs no reward pool has been set for yet. Once the position is
// gone those epochs can never be distributed to it, so their shares are
// kept for external reconciliation.
func (e *Engine) recordStuckShares(p *position.Position, lastActive uint32) {
	from := e.global.RewardCursor() + 1
	if from < rewards.FirstEarningEpoch {
		from = rewards.FirstEarningEpoch
	}
	for ep := from; ep < lastActive; ep++ {
		e.stuckShares.Record(ep, p.Series().Min(ep))
	}
}

// CurrentEpoch returns the epoch containing the current wall-clock time.
func (e *Engine) CurrentEpoch() (uint32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.currentEpoch()
}

// EpochStart returns the timestamp at which the given epoch begins.
func (e *Engine) EpochStart(ep uint32) uint64 {
	return e.clock.Start(ep)
}

// Bounds returns the current stake and fee policy limits.
func (e *Engine) Bounds() globalstats.Bounds {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.global.Bounds()
}

// TotalStaked returns the aggregate base stake across active and
// inactive nodes.
func (e *Engine) TotalStaked() *big.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.global.TotalBase()
}

// Tiers lists the lock tiers currently selectable for new stakes.
func (e *Engine) Tiers() []*tiers.Tier {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tierTable.List()
}

// NodeInfo is a read-only snapshot of a node.
type NodeInfo struct {
	ID               uint64
	Status           string
	Operator         common.Address
	OperatorPosition uint64
	BaseStaked       *big.Int
	FeeBps           uint32
	MaxStake         *big.Int
	SlashedBps       uint32
	WhitelistEnabled bool
	Delegators       []uint64
	PendingRequest   bool
}

// PositionInfo is a read-only snapshot of a position.
type PositionInfo struct {
	ID             uint64
	Type           string
	NodeID         uint64
	Owner          common.Address
	BaseStaked     *big.Int
	TierID         uint32
	EndLockEpoch   uint32
	StartTimestamp uint64
	Unclaimed      *big.Int
	Cumulative     *big.Int
}

// GetNode returns a snapshot of a node.
func (e *Engine) GetNode(id uint64) (*NodeInfo, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	n, err := e.nodes.Get(id)
	if err != nil {
		return nil, err
	}
	return &NodeInfo{
		ID:               n.ID(),
		Status:           n.Status().String(),
		Operator:         n.Operator(),
		OperatorPosition: n.OperatorPosition(),
		BaseStaked:       n.BaseStaked(),
		FeeBps:           n.FeeBps(),
		MaxStake:         n.MaxStake(),
		SlashedBps:       n.SlashedBps(),
		WhitelistEnabled: n.WhitelistEnabled(),
		Delegators:       n.Delegators(),
		PendingRequest:   n.Request() != nil,
	}, nil
}

// ListNodes returns snapshots of every node ordered by id.
func (e *Engine) ListNodes() []*NodeInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()

	all := e.nodes.All()
	out := make([]*NodeInfo, 0, len(all))
	for _, n := range all {
		out = append(out, &NodeInfo{
			ID:               n.ID(),
			Status:           n.Status().String(),
			Operator:         n.Operator(),
			OperatorPosition: n.OperatorPosition(),
			BaseStaked:       n.BaseStaked(),
			FeeBps:           n.FeeBps(),
			MaxStake:         n.MaxStake(),
			SlashedBps:       n.SlashedBps(),
			WhitelistEnabled: n.WhitelistEnabled(),
			Delegators:       n.Delegators(),
			PendingRequest:   n.Request() != nil,
		})
	}
	return out
}

// GetPosition returns a snapshot of a position.
func (e *Engine) GetPosition(id uint64) (*PositionInfo, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	p, err := e.positions.Get(id)
	if err != nil {
		return nil, err
	}
	owner, err := e.registry.OwnerOf(id)
	if err != nil {
		return nil, err
	}
	return &PositionInfo{
		ID:             p.ID(),
		Type:           p.Type().String(),
		NodeID:         p.NodeID(),
		Owner:          owner,
		BaseStaked:     p.BaseStaked(),
		TierID:         p.TierID(),
		EndLockEpoch:   p.EndLockEpoch(),
		StartTimestamp: p.StartTimestamp(),
		Unclaimed:      p.Unclaimed(),
		Cumulative:     p.Cumulative(),
	}, nil
}

// PositionsOf lists the live position ids held by an owner.
func (e *Engine) PositionsOf(owner common.Address) ([]uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ids, err := e.registry.PositionsOf(owner)
	if err != nil {
		return nil, err
	}
	live := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if e.positions.Has(id) {
			live = append(live, id)
		}
	}
	return live, nil
}

// PendingRewards returns a position's unclaimed balance including epochs
// earned but not yet credited. It does not advance the reward cursor.
func (e *Engine) PendingRewards(id uint64) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, err := e.currentEpoch()
	if err != nil {
		return nil, err
	}
	p, err := e.positions.Get(id)
	if err != nil {
		return nil, err
	}
	n, err := e.nodes.Get(p.NodeID())
	if err != nil {
		return nil, err
	}
	lastActive, err := e.rollLedgers(n, p, cur)
	if err != nil {
		return nil, err
	}
	earned, _ := rewards.Accrue(p, e.global, n.Closed(), lastActive)
	return earned.Add(earned, p.Unclaimed()), nil
}

// StuckShares returns the stuck contribution recorded for an epoch.
func (e *Engine) StuckShares(ep uint32) *big.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stuckShares.Shares(ep)
}

// ConsumeStuckShares hands the stuck shares of epochs up to and including
// the given one to the caller and clears them. Consumption is cursored
// and monotonic, matching the reward-pool-setting process it reconciles.
func (e *Engine) ConsumeStuckShares(until uint32) map[uint32]*big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stuckShares.Consume(until)
}

// AddLockTier registers a new lock tier and returns its id.
func (e *Engine) AddLockTier(minStake *big.Int, lengthEpochs, weightBps uint32) (uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, err := e.tierTable.Add(minStake, lengthEpochs, weightBps)
	if err != nil {
		return 0, err
	}
	logger.Info("lock tier added", "id", id, "length", lengthEpochs, "weight", weightBps)
	return id, nil
}

// RemoveLockTier hides a tier from new stakes. Existing positions keep
// their tier until it expires.
func (e *Engine) RemoveLockTier(id uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.tierTable.Remove(id); err != nil {
		return err
	}
	logger.Info("lock tier removed", "id", id)
	return nil
}

// SetStakeBounds updates the min/max stake policy for future stakes.
func (e *Engine) SetStakeBounds(minStake, maxStake *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.global.SetStakeBounds(minStake, maxStake)
}

// SetFeeBounds updates the min/max fee policy for future nodes.
func (e *Engine) SetFeeBounds(minFeeBps, maxFeeBps uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.global.SetFeeBounds(minFeeBps, maxFeeBps)
}

// SetRewardPool records the reward pool for a closed epoch. Pools are
// set strictly in epoch order starting at epoch 2.
func (e *Engine) SetRewardPool(ep uint32, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, err := e.currentEpoch()
	if err != nil {
		return err
	}
	if err := e.global.Series().RollForward(cur); err != nil {
		return err
	}
	if err := e.global.SetRewardPool(ep, amount, cur); err != nil {
		return err
	}
	logger.Info("reward pool set", "epoch", ep, "amount", amount)
	return nil
}

// checkSeries is a test hook validating min <= last for every rolled
// epoch of a series.
func checkSeries(s *ledger.Series) error {
	for ep := uint32(1); ep <= s.Cursor(); ep++ {
		if s.Min(ep).Cmp(s.Last(ep)) > 0 {
			return errors.Errorf("min exceeds last at epoch %d", ep)
		}
	}
	return nil
}
