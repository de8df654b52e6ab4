// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package config loads the YAML deployment configuration of the staking
// engine: epoch geometry, policy bounds and the initial lock tiers.
package config

import (
	"math/big"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/stakewheel/stakewheel/stakes"
)

// Amount is a decimal big integer in YAML. Stake values routinely exceed
// what a YAML number can carry, so they travel as strings.
type Amount struct {
	*big.Int
}

func (a *Amount) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return errors.Errorf("invalid amount %q", s)
	}
	a.Int = i
	return nil
}

func (a Amount) MarshalYAML() (any, error) {
	if a.Int == nil {
		return "0", nil
	}
	return a.String(), nil
}

// Tier seeds one lock tier at startup.
type Tier struct {
	MinStake     Amount `yaml:"minStake"`
	LengthEpochs uint32 `yaml:"lengthEpochs"`
	WeightBps    uint32 `yaml:"weightBps"`
}

// Bounds holds the initial stake and fee policy limits.
type Bounds struct {
	MinStake  Amount `yaml:"minStake"`
	MaxStake  Amount `yaml:"maxStake"`
	MinFeeBps uint32 `yaml:"minFeeBps"`
	MaxFeeBps uint32 `yaml:"maxFeeBps"`
}

// Config is the engine deployment configuration.
type Config struct {
	InitTimestamp uint64 `yaml:"initTimestamp"`
	EpochSize     uint64 `yaml:"epochSize"`
	Bounds        Bounds `yaml:"bounds"`
	Tiers         []Tier `yaml:"tiers"`
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	return Parse(data)
}

// Parse decodes and validates raw YAML configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.EpochSize == 0 {
		return errors.New("epochSize must be positive")
	}
	if c.Bounds.MinStake.Int == nil || c.Bounds.MaxStake.Int == nil {
		return errors.New("bounds.minStake and bounds.maxStake must be set")
	}
	if c.Bounds.MinStake.Cmp(c.Bounds.MaxStake.Int) > 0 {
		return errors.New("bounds.minStake exceeds bounds.maxStake")
	}
	if c.Bounds.MaxFeeBps > stakes.ScaleBps || c.Bounds.MinFeeBps > c.Bounds.MaxFeeBps {
		return errors.New("fee bounds out of range")
	}
	for i, tier := range c.Tiers {
		if tier.LengthEpochs == 0 {
			return errors.Errorf("tiers[%d]: lengthEpochs must be positive", i)
		}
		if tier.WeightBps < stakes.ScaleBps {
			return errors.Errorf("tiers[%d]: weightBps below base weight", i)
		}
		if tier.MinStake.Int == nil || tier.MinStake.Sign() < 0 {
			return errors.Errorf("tiers[%d]: minStake must be non-negative", i)
		}
	}
	return nil
}
