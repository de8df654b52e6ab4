// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/stakewheel/stakewheel/ledger"
	"github.com/stakewheel/stakewheel/staking/rejects"
)

// Service is the node repository. Ids are minted sequentially and never
// reused.
type Service struct {
	nodes  map[uint64]*Node
	nextID uint64
}

func NewService() *Service {
	return &Service{
		nodes:  make(map[uint64]*Node),
		nextID: 1,
	}
}

// Create registers a new node in StatusNone, pending approval.
func (s *Service) Create(operator common.Address, feeBps uint32, maxStake *big.Int) *Node {
	n := &Node{
		id:         s.nextID,
		status:     StatusNone,
		operator:   operator,
		baseStaked: new(big.Int),
		feeBps:     feeBps,
		maxStake:   new(big.Int).Set(maxStake),
		whitelist:  make(map[common.Address]struct{}),
		delegators: newDelegatorSet(),
		series:     ledger.NewSeries(),
	}
	s.nodes[n.id] = n
	s.nextID++
	return n
}

// Get returns an existing node.
func (s *Service) Get(id uint64) (*Node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, rejects.Preconditionf("node %d does not exist", id)
	}
	return n, nil
}

// Remove deletes a node record, used when a request is rejected.
func (s *Service) Remove(id uint64) {
	delete(s.nodes, id)
}

// All returns every node ordered by id.
func (s *Service) All() []*Node {
	out := make([]*Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// TotalBase sums the base stake of active and inactive nodes. Slashed and
// pending nodes do not count towards the global total.
func (s *Service) TotalBase() *big.Int {
	total := new(big.Int)
	for _, n := range s.nodes {
		if n.status == StatusActive || n.status == StatusInactive {
			total.Add(total, n.baseStaked)
		}
	}
	return total
}
