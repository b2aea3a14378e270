package main

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/BurntSushi/toml"
)

// A tune is a scripted sequence of register writes, each scheduled on an
// absolute cycle:
//
//	tail = 1789773
//
//	[[event]]
//	cycle = 0
//	addr = 0x4015
//	value = 0x01
type tune struct {
	Tail   uint64  `toml:"tail"` // extra cycles to run after the last write
	Events []event `toml:"event"`
}

type event struct {
	Cycle uint64 `toml:"cycle"`
	Addr  uint16 `toml:"addr"`
	Value uint8  `toml:"value"`
}

// about one NTSC second
const defaultTailCycles = 1789773

func loadTune(path string) (*tune, error) {
	var t tune
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("failed to load tune: %s", err)
	}
	if len(t.Events) == 0 {
		return nil, fmt.Errorf("tune %s has no events", path)
	}

	for _, ev := range t.Events {
		if ev.Addr < 0x4000 || ev.Addr > 0x4017 {
			return nil, fmt.Errorf("event addr $%04X is not a sound register", ev.Addr)
		}
	}

	slices.SortStableFunc(t.Events, func(a, b event) int {
		return cmp.Compare(a.Cycle, b.Cycle)
	})
	return &t, nil
}

// length is the total number of cycles to play: the last write plus the tail.
func (t *tune) length() uint64 {
	tail := t.Tail
	if tail == 0 {
		tail = defaultTailCycles
	}
	return t.Events[len(t.Events)-1].Cycle + tail
}
