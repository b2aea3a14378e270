package hw

import (
	"nesapu/emu/log"
	"nesapu/hw/apu"
	"nesapu/hw/hwdefs"
	"nesapu/hw/hwio"
	"nesapu/hw/snapshot"
)

// SampleReader provides DMC sample bytes. Addresses are in the $8000-$FFFF
// range of the console address space.
type SampleReader func(addr uint16) uint8

// SoundCard bundles the APU, its mixer and the register bus into a standalone
// sound generator. It stands in for the console: it owns the cycle counter
// and the interrupt lines the APU raises.
type SoundCard struct {
	APU   *apu.APU
	Mixer *apu.Mixer
	Bus   *hwio.Table

	// ReadSample, when set, backs the DMC sample fetches. A nil reader feeds
	// the DMC silence.
	ReadSample SampleReader

	irqs       hwdefs.IRQSource
	cycles     uint64
	dmcRunning bool
}

func NewSoundCard() *SoundCard {
	sc := &SoundCard{}
	sc.Mixer = apu.NewMixer()
	sc.APU = apu.New(sc, sc.Mixer)
	sc.Bus = hwio.NewTable("snd")
	sc.APU.MapBanks(sc.Bus)
	return sc
}

func (sc *SoundCard) SetIRQSource(src hwdefs.IRQSource) {
	if sc.irqs&src == 0 {
		log.ModEmu.DebugZ("set irq source").Stringer("irq", src).End()
	}
	sc.irqs |= src
}

func (sc *SoundCard) ClearIRQSource(src hwdefs.IRQSource) {
	if sc.irqs&src != 0 {
		log.ModEmu.DebugZ("clear irq source").Stringer("irq", src).End()
	}
	sc.irqs &^= src
}

func (sc *SoundCard) HasIRQSource(src hwdefs.IRQSource) bool {
	return sc.irqs&src != 0
}

// PendingIRQ reports whether any interrupt line is currently asserted.
func (sc *SoundCard) PendingIRQ() bool {
	return sc.irqs != 0
}

func (sc *SoundCard) CurrentCycle() uint64 {
	return sc.cycles
}

// StartDMCTransfer services a DMC sample fetch. Without a CPU to halt, the
// byte is handed over immediately instead of going through a DMA unit.
func (sc *SoundCard) StartDMCTransfer() {
	sc.dmcRunning = true

	var val uint8
	if sc.ReadSample != nil {
		val = sc.ReadSample(sc.APU.DMC.CurrentAddr())
	}
	sc.APU.DMC.SetReadBuffer(val)
	sc.dmcRunning = false
}

func (sc *SoundCard) StopDMCTransfer() {
	sc.dmcRunning = false
}

// Exec advances the sound hardware by one CPU cycle.
func (sc *SoundCard) Exec() {
	sc.cycles++
	sc.APU.Exec()
}

// RunCycles advances the sound hardware by n CPU cycles.
func (sc *SoundCard) RunCycles(n uint32) {
	for range n {
		sc.Exec()
	}
}

func (sc *SoundCard) SetRegion(region hwdefs.Region) {
	sc.APU.SetRegion(region, false)
}

// Read8 reads the register at addr, with read side effects.
func (sc *SoundCard) Read8(addr uint16) uint8 {
	return sc.Bus.Read8(addr)
}

// Peek8 reads the register at addr without side effects.
func (sc *SoundCard) Peek8(addr uint16) uint8 {
	return sc.Bus.Peek8(addr)
}

// Write8 writes val to the register at addr.
func (sc *SoundCard) Write8(addr uint16, val uint8) {
	sc.Bus.Write8(addr, val)
}

func (sc *SoundCard) Reset(soft bool) {
	sc.cycles = 0
	sc.irqs = 0
	sc.dmcRunning = false
	sc.APU.Reset(soft)
	sc.Mixer.Reset()
}

const stateVersion = 1

func (sc *SoundCard) State() *snapshot.SoundCard {
	return &snapshot.SoundCard{
		Version: stateVersion,
		APU:     sc.APU.State(),
		Mixer:   sc.Mixer.State(),
		IRQs:    uint8(sc.irqs),
		Cycles:  sc.cycles,
	}
}

func (sc *SoundCard) SetState(state *snapshot.SoundCard) {
	sc.irqs = hwdefs.IRQSource(state.IRQs)
	sc.cycles = state.Cycles
	sc.Mixer.SetState(state.Mixer)
	sc.APU.SetState(state.APU)
}
