package apu

import "testing"

type nopAPU struct{}

func (nopAPU) SetNeedToRun() {}
func (nopAPU) Run()          {}

func newLengthCounter(ch Channel) lengthCounter {
	return lengthCounter{channel: ch, apu: nopAPU{}}
}

func TestLengthCounterLoadRequiresEnabled(t *testing.T) {
	lc := newLengthCounter(Square1)

	lc.load(1)
	lc.reload()
	if lc.status() {
		t.Errorf("load while disabled should be ignored")
	}

	lc.setEnabled(true)
	lc.load(1)
	lc.reload()
	if got := lc.counter; got != 254 {
		t.Errorf("counter = %d, want 254", got)
	}
}

func TestLengthCounterHalt(t *testing.T) {
	lc := newLengthCounter(Square1)
	lc.setEnabled(true)
	lc.load(3) // -> 2
	lc.reload()

	lc.tick()
	if got := lc.counter; got != 1 {
		t.Fatalf("counter = %d, want 1", got)
	}

	lc.init(true) // halt
	lc.reload()
	lc.tick()
	if got := lc.counter; got != 1 {
		t.Errorf("counter = %d, halted counter must not decrement", got)
	}
}

func TestLengthCounterReloadRace(t *testing.T) {
	lc := newLengthCounter(Square1)
	lc.setEnabled(true)
	lc.load(1)
	lc.reload()

	// A load pending while the counter gets clocked: the clock wins and the
	// reload is dropped.
	lc.load(3)
	lc.tick()
	lc.reload()
	if got := lc.counter; got != 253 {
		t.Errorf("counter = %d, want 253 (reload dropped after clock)", got)
	}
}

func TestLengthCounterDisableZeroes(t *testing.T) {
	lc := newLengthCounter(Noise)
	lc.setEnabled(true)
	lc.load(1)
	lc.reload()

	lc.setEnabled(false)
	if lc.status() {
		t.Errorf("disabling must zero the counter")
	}

	// And while disabled, loads stay ignored.
	lc.load(1)
	lc.reload()
	if lc.status() {
		t.Errorf("load while disabled should be ignored")
	}
}

func TestLengthCounterSoftResetKeepsTriangle(t *testing.T) {
	tri := newLengthCounter(Triangle)
	tri.setEnabled(true)
	tri.load(1)
	tri.reload()

	tri.reset(true)
	if !tri.status() {
		t.Errorf("triangle length counter must survive a soft reset")
	}

	sq := newLengthCounter(Square1)
	sq.setEnabled(true)
	sq.load(1)
	sq.reload()

	sq.reset(true)
	if sq.status() {
		t.Errorf("square length counter must be cleared by a soft reset")
	}
}
