// Copyright 2023 The CubeFS Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

// Package zlog implements the per-object log protocol: epoch fencing,
// write-once positions with fill, trim and invalidate, max position
// tracking and a write-once projection store. One position index strategy
// is chosen per deployment.
package zlog

import (
	"fmt"
)

type Strategy string

const (
	// StrategyOmap keeps every entry with its payload as one omap value.
	StrategyOmap Strategy = "omap"
	// StrategyHybrid keeps entry metadata in omap and payloads in the byte
	// stream.
	StrategyHybrid Strategy = "hybrid"
	// StrategyStriped computes each entry's slot from the stripe layout and
	// keeps no index at all.
	StrategyStriped Strategy = "striped"
)

// EpochLocation is where the sealed epoch of an object is kept.
type EpochLocation string

const (
	EpochInOmap       EpochLocation = "omap"
	EpochInXattr      EpochLocation = "xattr"
	EpochInOmapHeader EpochLocation = "omap_header"
)

const defaultMaxObjectSize = 4 << 20

type Config struct {
	Strategy      Strategy      `json:"strategy"`
	EpochLocation EpochLocation `json:"epoch_location"`
	// MaxEntrySize bounds omap entries, 0 means unlimited.
	MaxEntrySize uint64 `json:"max_entry_size"`
	// MaxObjectSize bounds the byte stream of hybrid objects.
	MaxObjectSize uint64 `json:"max_object_size"`
}

func (cfg *Config) checkAndFix() error {
	switch cfg.Strategy {
	case "":
		cfg.Strategy = StrategyOmap
	case StrategyOmap, StrategyHybrid, StrategyStriped:
	default:
		return fmt.Errorf("unknown zlog strategy %q", cfg.Strategy)
	}
	switch cfg.EpochLocation {
	case "":
		cfg.EpochLocation = EpochInOmap
	case EpochInOmap, EpochInXattr, EpochInOmapHeader:
	default:
		return fmt.Errorf("unknown epoch location %q", cfg.EpochLocation)
	}
	if cfg.MaxObjectSize == 0 {
		cfg.MaxObjectSize = defaultMaxObjectSize
	}
	return nil
}
