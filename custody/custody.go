// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package custody defines the external collaborators the staking core
// calls out to. The core never moves value itself: it computes amounts and
// signals these interfaces, which are injected at construction.
package custody

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Vault moves the staked value token in and out of the system's custody.
type Vault interface {
	// Deposit pulls the given amount from the payer into custody.
	Deposit(payer common.Address, amount *big.Int) error
	// Withdraw releases the given amount from custody to the payee.
	Withdraw(payee common.Address, amount *big.Int) error
}

// PositionRegistry issues and redeems the transferable ownership
// certificates representing stakes.
type PositionRegistry interface {
	// Mint issues a certificate for a new stake and returns the position id.
	Mint(owner common.Address, amount *big.Int) (uint64, error)
	// Redeem burns the certificate of an exited position.
	Redeem(id uint64) error
	// OwnerOf resolves the current holder of a position certificate.
	OwnerOf(id uint64) (common.Address, error)
	// PositionsOf lists the position ids currently held by an owner.
	PositionsOf(owner common.Address) ([]uint64, error)
}
