package apu

import "nesapu/hw/snapshot"

// timer is the shared clock divider of every channel. It also remembers the
// last amplitude handed to the mixer so that only deltas are submitted.
type timer struct {
	previousCycle uint32
	timer         uint16
	period        uint16
	lastOutput    int8

	channel Channel
	mixer   mixer
}

func (t *timer) reset(_ bool) {
	t.timer = 0
	t.period = 0
	t.previousCycle = 0
	t.lastOutput = 0
}

func (t *timer) addOutput(output int8) {
	if output != t.lastOutput {
		t.mixer.AddDelta(t.channel, t.previousCycle, int16(output-t.lastOutput))
		t.lastOutput = output
	}
}

// run advances the timer towards targetCycle. Returns true if the divider
// expired before reaching it, in which case previousCycle sits exactly on the
// expiry cycle and the caller must clock its generator and call run again.
func (t *timer) run(targetCycle uint32) bool {
	cyclesToRun := uint16(targetCycle - t.previousCycle)

	if cyclesToRun > t.timer {
		t.previousCycle += uint32(t.timer) + 1
		t.timer = t.period
		return true
	}

	t.timer -= cyclesToRun
	t.previousCycle = targetCycle
	return false
}

// endFrame rebases the timer's cycle origin for the next frame.
func (t *timer) endFrame() {
	t.previousCycle = 0
}

func (t *timer) saveState(state *snapshot.APUTimer) {
	state.PreviousCycle = t.previousCycle
	state.Timer = t.timer
	state.Period = t.period
	state.LastOutput = t.lastOutput
}

func (t *timer) setState(state *snapshot.APUTimer) {
	t.previousCycle = state.PreviousCycle
	t.timer = state.Timer
	t.period = state.Period
	t.lastOutput = state.LastOutput
}
