// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package position

import (
	"sort"

	"github.com/stakewheel/stakewheel/staking/rejects"
)

// Service is the position repository. Ids are minted by the external
// position registry, so the repository only indexes them.
type Service struct {
	positions map[uint64]*Position
}

func NewService() *Service {
	return &Service{
		positions: make(map[uint64]*Position),
	}
}

func (s *Service) Add(p *Position) {
	s.positions[p.id] = p
}

func (s *Service) Get(id uint64) (*Position, error) {
	p, ok := s.positions[id]
	if !ok {
		return nil, rejects.Preconditionf("position %d does not exist", id)
	}
	return p, nil
}

func (s *Service) Has(id uint64) bool {
	_, ok := s.positions[id]
	return ok
}

// Remove destroys a position record after exit or a retiring claim.
func (s *Service) Remove(id uint64) {
	delete(s.positions, id)
}

// All returns every live position ordered by id.
func (s *Service) All() []*Position {
	out := make([]*Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
