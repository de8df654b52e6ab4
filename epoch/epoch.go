// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package epoch

import (
	"github.com/pkg/errors"
)

// ErrNotStarted is returned for timestamps before the staking window opened.
var ErrNotStarted = errors.New("staking not started")

// Clock converts between wall-clock timestamps and epoch numbers.
// Epochs are 1-based: the epoch containing initTimestamp is epoch 1.
type Clock struct {
	initTimestamp uint64
	epochSize     uint64
}

// NewClock creates a clock with the given start timestamp and epoch length,
// both in seconds.
func NewClock(initTimestamp, epochSize uint64) (*Clock, error) {
	if epochSize == 0 {
		return nil, errors.New("epoch size must be positive")
	}
	return &Clock{
		initTimestamp: initTimestamp,
		epochSize:     epochSize,
	}, nil
}

// At returns the epoch number containing the given timestamp.
func (c *Clock) At(ts uint64) (uint32, error) {
	if ts < c.initTimestamp {
		return 0, ErrNotStarted
	}
	return uint32(1 + (ts-c.initTimestamp)/c.epochSize), nil
}

// Start returns the timestamp at which the given epoch begins.
func (c *Clock) Start(e uint32) uint64 {
	if e == 0 {
		return c.initTimestamp
	}
	return c.initTimestamp + uint64(e-1)*c.epochSize
}

func (c *Clock) InitTimestamp() uint64 {
	return c.initTimestamp
}

func (c *Clock) EpochSize() uint64 {
	return c.epochSize
}
