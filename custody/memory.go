// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package custody

import (
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// MemoryVault is an in-memory Vault for tests and the solo server. It
// tracks the custody balance and the net flow per address.
type MemoryVault struct {
	mu      sync.Mutex
	held    *big.Int
	inflow  map[common.Address]*big.Int
	outflow map[common.Address]*big.Int
}

func NewMemoryVault() *MemoryVault {
	return &MemoryVault{
		held:    new(big.Int),
		inflow:  make(map[common.Address]*big.Int),
		outflow: make(map[common.Address]*big.Int),
	}
}

func (v *MemoryVault) Deposit(payer common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return errors.New("deposit amount cannot be negative")
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	v.held.Add(v.held, amount)
	add(v.inflow, payer, amount)
	return nil
}

func (v *MemoryVault) Withdraw(payee common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return errors.New("withdraw amount cannot be negative")
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.held.Cmp(amount) < 0 {
		return errors.New("custody balance exhausted")
	}
	v.held.Sub(v.held, amount)
	add(v.outflow, payee, amount)
	return nil
}

// Held returns the total amount currently in custody.
func (v *MemoryVault) Held() *big.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return new(big.Int).Set(v.held)
}

// PaidTo returns the total amount released to an address.
func (v *MemoryVault) PaidTo(payee common.Address) *big.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if f, ok := v.outflow[payee]; ok {
		return new(big.Int).Set(f)
	}
	return new(big.Int)
}

func add(m map[common.Address]*big.Int, addr common.Address, amount *big.Int) {
	cur, ok := m[addr]
	if !ok {
		cur = new(big.Int)
		m[addr] = cur
	}
	cur.Add(cur, amount)
}

// MemoryRegistry is an in-memory PositionRegistry. Position ids start at 1
// and are never reused.
type MemoryRegistry struct {
	mu     sync.Mutex
	nextID uint64
	owners map[uint64]common.Address
	held   map[common.Address]map[uint64]struct{}
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		nextID: 1,
		owners: make(map[uint64]common.Address),
		held:   make(map[common.Address]map[uint64]struct{}),
	}
}

func (r *MemoryRegistry) Mint(owner common.Address, _ *big.Int) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.owners[id] = owner
	if r.held[owner] == nil {
		r.held[owner] = make(map[uint64]struct{})
	}
	r.held[owner][id] = struct{}{}
	return id, nil
}

func (r *MemoryRegistry) Redeem(id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.owners[id]
	if !ok {
		return errors.Errorf("position %d not minted", id)
	}
	delete(r.owners, id)
	delete(r.held[owner], id)
	return nil
}

func (r *MemoryRegistry) OwnerOf(id uint64) (common.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.owners[id]
	if !ok {
		return common.Address{}, errors.Errorf("position %d not minted", id)
	}
	return owner, nil
}

func (r *MemoryRegistry) PositionsOf(owner common.Address) ([]uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]uint64, 0, len(r.held[owner]))
	for id := range r.held[owner] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
