package apu

import (
	"nesapu/emu/log"
	"nesapu/hw/hwdefs"
	"nesapu/hw/hwio"
	"nesapu/hw/snapshot"
)

// The noise channel contains the following: Envelope Generator, Timer, Length
// Counter, Linear Feedback Shift Register, 4-bit DAC.
//
//	+---------+    +---------+    +---------+
//	|  Timer  |--->| Random  |    | Length  |
//	+---------+    +---------+    +---------+
//	                    |              |
//	                    v              v
//	+---------+        |\             |\         +---------+
//	|Envelope |------->| >----------->| >------->|   DAC   |
//	+---------+        |/             |/         +---------+
type noiseChannel struct {
	apu      *APU
	envelope envelope
	timer    timer

	region hwdefs.Region

	shiftRegister uint16
	modeFlag      bool

	Volume hwio.Reg8 `hwio:"offset=0x0C,wcb"`
	Unused hwio.Reg8 `hwio:"offset=0x0D,wcb"`
	Period hwio.Reg8 `hwio:"offset=0x0E,wcb"`
	Length hwio.Reg8 `hwio:"offset=0x0F,wcb"`
}

// Noise timer periods, per region.
var noisePeriodLUT = [2][16]uint16{
	{4, 8, 16, 32, 64, 96, 128, 160, 202, 254, 380, 508, 762, 1016, 2034, 4068},
	{4, 8, 14, 30, 60, 88, 118, 148, 188, 236, 354, 472, 708, 944, 1890, 3778},
}

func newNoiseChannel(apu *APU, mixer *Mixer) noiseChannel {
	return noiseChannel{
		apu: apu,
		envelope: envelope{
			lenCounter: lengthCounter{
				channel: Noise,
				apu:     apu,
			},
		},
		timer: timer{
			channel: Noise,
			mixer:   mixer,
		},
	}
}

func (nc *noiseChannel) isMuted() bool {
	// The mixer receives the current envelope volume except when bit 0 of the
	// shift register is set.
	return (nc.shiftRegister & 0x01) == 0x01
}

func (nc *noiseChannel) run(targetCycle uint32) {
	for nc.timer.run(targetCycle) {
		// Feedback is calculated as the exclusive-OR of bit 0 and one other
		// bit: bit 6 if Mode flag is set, otherwise bit 1.
		bit := 1
		if nc.modeFlag {
			bit = 6
		}
		feedback := (nc.shiftRegister & 0x01) ^ ((nc.shiftRegister >> bit) & 0x01)
		nc.shiftRegister >>= 1
		nc.shiftRegister |= feedback << 14

		if nc.isMuted() {
			nc.timer.addOutput(0)
		} else {
			nc.timer.addOutput(int8(nc.envelope.volumeLevel()))
		}
	}
}

func (nc *noiseChannel) reset(soft bool) {
	nc.envelope.reset(soft)
	nc.timer.reset(soft)

	nc.timer.period = noisePeriodLUT[nc.region][0] - 1
	nc.shiftRegister = 1
	nc.modeFlag = false
}

func (nc *noiseChannel) setRegion(region hwdefs.Region) {
	nc.region = region
}

// $400C
func (nc *noiseChannel) WriteVOLUME(_, val uint8) {
	nc.apu.Run()
	nc.envelope.init(val)

	log.ModSound.InfoZ("write noise volume").
		Uint8("reg", val).
		End()
}

func (nc *noiseChannel) WriteUNUSED(_, _ uint8) {
	nc.apu.Run()
}

// $400E
func (nc *noiseChannel) WritePERIOD(_, val uint8) {
	nc.apu.Run()

	nc.timer.period = noisePeriodLUT[nc.region][val&0x0F] - 1
	nc.modeFlag = (val & 0x80) == 0x80

	log.ModSound.InfoZ("write noise period").
		Uint8("reg", val).
		Uint16("period", nc.timer.period).
		Bool("mode", nc.modeFlag).
		End()
}

// $400F
func (nc *noiseChannel) WriteLENGTH(_, val uint8) {
	nc.apu.Run()

	nc.envelope.lenCounter.load(val >> 3)

	// The envelope is also restarted.
	nc.envelope.restart()

	log.ModSound.InfoZ("write noise length").
		Uint8("reg", val).
		Uint8("length", val>>3).
		End()
}

func (nc *noiseChannel) tickEnvelope() {
	nc.envelope.tick()
}

func (nc *noiseChannel) tickLengthCounter() {
	nc.envelope.lenCounter.tick()
}

func (nc *noiseChannel) reloadLengthCounter() {
	nc.envelope.lenCounter.reload()
}

func (nc *noiseChannel) endFrame() {
	nc.timer.endFrame()
}

func (nc *noiseChannel) setEnabled(enabled bool) {
	nc.envelope.lenCounter.setEnabled(enabled)
}

func (nc *noiseChannel) status() bool {
	return nc.envelope.lenCounter.status()
}

func (nc *noiseChannel) output() uint8 {
	return uint8(nc.timer.lastOutput)
}

func (nc *noiseChannel) saveState(state *snapshot.APUNoise) {
	nc.timer.saveState(&state.Timer)
	nc.envelope.saveState(&state.Envelope)
	state.ShiftReg = nc.shiftRegister
	state.Mode = nc.modeFlag
}

func (nc *noiseChannel) setState(state *snapshot.APUNoise) {
	nc.timer.setState(&state.Timer)
	nc.envelope.setState(&state.Envelope)
	nc.shiftRegister = state.ShiftReg
	nc.modeFlag = state.Mode
}
