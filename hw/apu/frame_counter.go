package apu

import (
	"nesapu/emu/log"
	"nesapu/hw/hwdefs"
	"nesapu/hw/hwio"
	"nesapu/hw/snapshot"
)

type FrameType uint8

const (
	NoFrame FrameType = iota
	QuarterFrame
	HalfFrame
)

// Step cycle tables, per region then per step mode (0: 4-step, 1: 5-step).
var regionStepCycles = [2][2][6]int32{
	{ // NTSC
		{7457, 14913, 22371, 29828, 29829, 29830},
		{7457, 14913, 22371, 29829, 37281, 37282},
	},
	{ // PAL
		{8313, 16627, 24939, 33252, 33253, 33254},
		{8313, 16627, 24939, 33253, 41565, 41566},
	},
}

var frameTypes = [2][6]FrameType{
	{QuarterFrame, HalfFrame, QuarterFrame, NoFrame, HalfFrame, NoFrame},
	{QuarterFrame, HalfFrame, QuarterFrame, NoFrame, HalfFrame, NoFrame},
}

// frameCounter sequences the quarter-frame and half-frame clocks that drive
// envelopes, sweeps and length counters, and raises the frame interrupt in
// 4-step mode.
type frameCounter struct {
	apu *APU
	cpu cpu

	stepCycles        [2][6]int32
	prevCycle         int32
	curStep           uint32
	stepMode          uint32 // 0: 4-step mode, 1: 5-step mode
	inhibitIRQ        bool
	blockTick         uint8
	newval            int16
	writeDelayCounter int8

	FRAMECOUNTER hwio.Reg8 `hwio:"offset=0x17,writeonly,wcb"`
}

func (afc *frameCounter) init(apu *APU, cpu cpu) {
	afc.apu = apu
	afc.cpu = cpu
	afc.stepCycles = regionStepCycles[hwdefs.NTSC]
}

func (afc *frameCounter) setRegion(region hwdefs.Region) {
	afc.stepCycles = regionStepCycles[region]
}

func (afc *frameCounter) reset(soft bool) {
	afc.prevCycle = 0

	// After reset: step mode in $4017 is unchanged, so keep whatever value
	// stepMode has for soft resets.
	if !soft {
		afc.stepMode = 0
	}

	afc.curStep = 0

	// After reset or power-up, the sequencer acts as if $4017 were written
	// a few cycles before the first instruction runs.
	afc.newval = 0
	if afc.stepMode != 0 {
		afc.newval = 0x80
	}
	afc.writeDelayCounter = 3
	afc.inhibitIRQ = false

	afc.blockTick = 0
}

// $4017
func (afc *frameCounter) WriteFRAMECOUNTER(old, val uint8) {
	log.ModSound.InfoZ("write framecounter").Uint8("val", val).End()
	afc.apu.Run()
	afc.newval = int16(val)

	// Reset sequence after $4017 is written to.
	if afc.cpu.CurrentCycle()&0x01 != 0 {
		// If the write occurs between APU cycles, the effects occur 4 CPU
		// cycles after the write cycle.
		afc.writeDelayCounter = 4
	} else {
		// If the write occurs during an APU cycle, the effects occur 3 CPU
		// cycles after the write cycle.
		afc.writeDelayCounter = 3
	}

	afc.inhibitIRQ = (val & 0x40) == 0x40
	if afc.inhibitIRQ {
		afc.cpu.ClearIRQSource(hwdefs.FrameCounter)
	}
}

// run advances the sequencer by at most *cyclesToRun cycles, stopping early
// on its next tick boundary so the tick fires on its exact cycle. Returns the
// number of cycles actually covered and decrements *cyclesToRun by it.
func (afc *frameCounter) run(cyclesToRun *int32) uint32 {
	var cyclesRan int32

	if afc.prevCycle+*cyclesToRun >= afc.stepCycles[afc.stepMode][afc.curStep] {
		if !afc.inhibitIRQ && afc.stepMode == 0 && afc.curStep >= 3 {
			// Set irq on the last 3 cycles for 4-step mode.
			afc.cpu.SetIRQSource(hwdefs.FrameCounter)
		}

		ftyp := frameTypes[afc.stepMode][afc.curStep]
		if ftyp != NoFrame && afc.blockTick == 0 {
			afc.apu.frameCounterTick(ftyp)

			// Do not allow writes to $4017 to clock the frame counter for the
			// next cycle (i.e. this odd cycle + the following even cycle).
			afc.blockTick = 2
		}

		if afc.stepCycles[afc.stepMode][afc.curStep] < afc.prevCycle {
			// This can happen when switching from PAL to NTSC, which would
			// otherwise cause an endless catch-up loop.
			cyclesRan = 0
		} else {
			cyclesRan = afc.stepCycles[afc.stepMode][afc.curStep] - afc.prevCycle
		}

		*cyclesToRun -= cyclesRan

		afc.curStep++
		if afc.curStep == 6 {
			afc.curStep = 0
			afc.prevCycle = 0
		} else {
			afc.prevCycle += cyclesRan
		}
	} else {
		cyclesRan = *cyclesToRun
		*cyclesToRun = 0
		afc.prevCycle += cyclesRan
	}

	if afc.newval >= 0 {
		afc.writeDelayCounter--
		if afc.writeDelayCounter == 0 {
			// Apply the new value after the appropriate number of cycles has
			// elapsed.
			if (afc.newval & 0x80) == 0x80 {
				afc.stepMode = 1
			} else {
				afc.stepMode = 0
			}

			afc.writeDelayCounter = -1
			afc.curStep = 0
			afc.prevCycle = 0
			afc.newval = -1

			if afc.stepMode != 0 && afc.blockTick == 0 {
				// Writing to $4017 with bit 7 set immediately generates a
				// clock for both the quarter frame and the half frame units,
				// regardless of what the sequencer is doing.
				afc.apu.frameCounterTick(HalfFrame)
				afc.blockTick = 2
			}
		}
	}

	if afc.blockTick > 0 {
		afc.blockTick--
	}

	return uint32(cyclesRan)
}

// needToRun reports whether the sequencer must be clocked eagerly within the
// next cyclesToRun cycles:
// - a new $4017 value is pending
// - the "blockTick" process is running
// - we're at the before-last or last cycle of the current step
func (afc *frameCounter) needToRun(cyclesToRun uint32) bool {
	return afc.newval >= 0 ||
		afc.blockTick > 0 ||
		(afc.prevCycle+int32(cyclesToRun) >= afc.stepCycles[afc.stepMode][afc.curStep]-1)
}

func (afc *frameCounter) saveState(state *snapshot.APUFrameCounter) {
	state.PrevCycle = afc.prevCycle
	state.CurStep = afc.curStep
	state.StepMode = afc.stepMode
	state.InhibitIRQ = afc.inhibitIRQ
	state.BlockTick = afc.blockTick
	state.NewValue = afc.newval
	state.WriteDelayCounter = afc.writeDelayCounter
}

func (afc *frameCounter) setState(state *snapshot.APUFrameCounter) {
	afc.prevCycle = state.PrevCycle
	afc.curStep = state.CurStep
	afc.stepMode = state.StepMode
	afc.inhibitIRQ = state.InhibitIRQ
	afc.blockTick = state.BlockTick
	afc.newval = state.NewValue
	afc.writeDelayCounter = state.WriteDelayCounter
}
