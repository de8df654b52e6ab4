// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package custody

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryVault(t *testing.T) {
	v := NewMemoryVault()
	alice := common.BytesToAddress([]byte("alice"))
	bob := common.BytesToAddress([]byte("bob"))

	require.NoError(t, v.Deposit(alice, big.NewInt(100)))
	require.NoError(t, v.Deposit(bob, big.NewInt(50)))
	assert.Equal(t, big.NewInt(150), v.Held())

	require.NoError(t, v.Withdraw(alice, big.NewInt(120)))
	assert.Equal(t, big.NewInt(30), v.Held())
	assert.Equal(t, big.NewInt(120), v.PaidTo(alice))
	assert.Zero(t, v.PaidTo(bob).Sign())

	assert.Error(t, v.Withdraw(bob, big.NewInt(31)))
	assert.Error(t, v.Deposit(alice, big.NewInt(-1)))
}

func TestMemoryRegistry(t *testing.T) {
	r := NewMemoryRegistry()
	alice := common.BytesToAddress([]byte("alice"))
	bob := common.BytesToAddress([]byte("bob"))

	id1, err := r.Mint(alice, big.NewInt(100))
	require.NoError(t, err)
	id2, err := r.Mint(alice, big.NewInt(200))
	require.NoError(t, err)
	id3, err := r.Mint(bob, big.NewInt(300))
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, []uint64{id1, id2, id3})

	owner, err := r.OwnerOf(id2)
	require.NoError(t, err)
	assert.Equal(t, alice, owner)

	ids, err := r.PositionsOf(alice)
	require.NoError(t, err)
	assert.Equal(t, []uint64{id1, id2}, ids)

	require.NoError(t, r.Redeem(id1))
	_, err = r.OwnerOf(id1)
	assert.Error(t, err)
	assert.Error(t, r.Redeem(id1))

	ids, err = r.PositionsOf(alice)
	require.NoError(t, err)
	assert.Equal(t, []uint64{id2}, ids)

	// ids are never reused
	id4, err := r.Mint(bob, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(4), id4)
}
