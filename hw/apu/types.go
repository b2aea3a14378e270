package apu

import "nesapu/hw/hwdefs"

// Channel identifies one of the five voices by role. Register-bit mapping
// (status bit N = channel N) follows this order.
//
//go:generate go tool stringer -type=Channel
type Channel uint8

const (
	Square1 Channel = iota
	Square2
	Triangle
	Noise
	DPCM
)

// mixer is the synthesis buffer contract consumed by the channel timers:
// per-channel timestamped amplitude deltas.
type mixer interface {
	AddDelta(ch Channel, time uint32, delta int16)
}

// apu is the subset of the scheduler visible to channel subunits.
type apu interface {
	SetNeedToRun()
	Run()
}

// cpu is the owning simulation: the interrupt source registry, the cycle
// parity needed by write-delay quirks, and the DMC sample transfer hooks.
type cpu interface {
	SetIRQSource(src hwdefs.IRQSource)
	ClearIRQSource(src hwdefs.IRQSource)
	HasIRQSource(src hwdefs.IRQSource) bool
	CurrentCycle() uint64
	StartDMCTransfer()
	StopDMCTransfer()
}

// AudioDevice is an optional playback sink for drained PCM frames. The
// handoff is fire and forget: the mixer never waits on it nor retries.
type AudioDevice interface {
	PlayBuffer(samples []int16)
	Pause()
}
