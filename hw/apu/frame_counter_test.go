package apu

import (
	"testing"

	"nesapu/hw/hwdefs"
)

func square1Counter(a *APU) uint8 {
	return a.Square1.envelope.lenCounter.counter
}

func TestFiveStepModeImmediateTick(t *testing.T) {
	a, cpu, bus := newTestAPU(t)

	bus.Write8(0x4015, 0x01)
	bus.Write8(0x4003, 0x08) // length index 1 -> 254
	exec(a, cpu, 10)

	if got := square1Counter(a); got != 254 {
		t.Fatalf("length counter = %d, want 254", got)
	}

	// Writing $4017 with bit 7 set clocks the half frame units right away
	// (after the write delay), without waiting for a sequencer boundary.
	bus.Write8(0x4017, 0x80)
	exec(a, cpu, 10)

	if got := square1Counter(a); got != 253 {
		t.Errorf("length counter = %d, want 253 after immediate half-frame tick", got)
	}
}

func TestFrameIRQInhibit(t *testing.T) {
	a, cpu, bus := newTestAPU(t)

	cpu.SetIRQSource(hwdefs.FrameCounter)
	bus.Write8(0x4017, 0x40)

	// Setting the inhibit flag clears a pending frame irq.
	if cpu.HasIRQSource(hwdefs.FrameCounter) {
		t.Fatalf("pending frame irq not cleared by inhibit write")
	}

	// And no new one is raised across several frames.
	exec(a, cpu, 40000)
	if cpu.HasIRQSource(hwdefs.FrameCounter) {
		t.Errorf("frame irq raised despite inhibit flag")
	}
}

func TestQuarterFrameClocksEnvelope(t *testing.T) {
	a, cpu, bus := newTestAPU(t)

	bus.Write8(0x4015, 0x01)
	bus.Write8(0x4000, 0x05) // decaying envelope, divider period 5
	bus.Write8(0x4003, 0x08) // restarts the envelope

	// First quarter frame is at cycle 7457: the restarted envelope loads its
	// counter with 15 there.
	exec(a, cpu, 7500)

	if got := a.Square1.envelope.counter; got != 15 {
		t.Errorf("envelope counter = %d, want 15 after first quarter frame", got)
	}
}

func TestPALStepCyclesLonger(t *testing.T) {
	a, cpu, bus := newTestAPU(t)

	a.SetRegion(hwdefs.PAL, false)

	bus.Write8(0x4015, 0x01)
	bus.Write8(0x4000, 0x05)
	bus.Write8(0x4003, 0x08)

	// 7500 cycles reach the first NTSC quarter frame but not the PAL one
	// (8313).
	exec(a, cpu, 7500)
	if got := a.Square1.envelope.counter; got != 0 {
		t.Fatalf("envelope counter = %d, PAL quarter frame fired too early", got)
	}

	exec(a, cpu, 1000)
	if got := a.Square1.envelope.counter; got != 15 {
		t.Errorf("envelope counter = %d, want 15 after PAL quarter frame", got)
	}
}
