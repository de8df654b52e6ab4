// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

// delegatorSet is an index-stable arena of delegator position ids: a
// growable array plus a map from id to its current slot, giving O(1)
// membership, insertion and swap-and-pop removal.
type delegatorSet struct {
	ids  []uint64
	slot map[uint64]int
}

func newDelegatorSet() *delegatorSet {
	return &delegatorSet{
		slot: make(map[uint64]int),
	}
}

func (s *delegatorSet) add(id uint64) {
	if _, ok := s.slot[id]; ok {
		return
	}
	s.slot[id] = len(s.ids)
	s.ids = append(s.ids, id)
}

func (s *delegatorSet) remove(id uint64) {
	i, ok := s.slot[id]
	if !ok {
		return
	}
	lastIdx := len(s.ids) - 1
	if i != lastIdx {
		moved := s.ids[lastIdx]
		s.ids[i] = moved
		s.slot[moved] = i
	}
	s.ids = s.ids[:lastIdx]
	delete(s.slot, id)
}

func (s *delegatorSet) has(id uint64) bool {
	_, ok := s.slot[id]
	return ok
}

func (s *delegatorSet) len() int {
	return len(s.ids)
}

func (s *delegatorSet) list() []uint64 {
	out := make([]uint64, len(s.ids))
	copy(out, s.ids)
	return out
}
