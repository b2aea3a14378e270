package apu

import (
	"slices"
	"testing"

	"nesapu/hw/hwdefs"
)

func TestMixerProducesSamples(t *testing.T) {
	m := NewMixer()
	sink := &fakeSink{}
	m.SetAudioDevice(sink)

	// A square wave stepping between 0 and 15.
	for time := uint32(100); time < 9000; time += 800 {
		m.AddDelta(Square1, time, 15)
		m.AddDelta(Square1, time+400, -15)
	}
	m.playAudioBuffer(CycleLength)

	if sink.frames != 1 {
		t.Fatalf("got %d buffers, want 1", sink.frames)
	}
	if len(sink.samples) == 0 {
		t.Fatalf("no samples produced")
	}
	if !slices.ContainsFunc(sink.samples, func(s int16) bool { return s != 0 }) {
		t.Errorf("all samples are zero")
	}

	// Without panning both stereo sides carry the same signal.
	for i := 0; i+1 < len(sink.samples); i += 2 {
		if sink.samples[i] != sink.samples[i+1] {
			t.Fatalf("stereo pair %d differs: %d != %d", i/2, sink.samples[i], sink.samples[i+1])
		}
	}
}

func TestMixerMasterVolumeZero(t *testing.T) {
	m := NewMixer()
	sink := &fakeSink{}
	m.SetAudioDevice(sink)
	m.SetMasterVolume(0)

	m.AddDelta(Triangle, 50, 12)
	m.AddDelta(Noise, 200, 7)
	m.playAudioBuffer(CycleLength)

	if slices.ContainsFunc(sink.samples, func(s int16) bool { return s != 0 }) {
		t.Errorf("muted mixer produced nonzero samples")
	}
}

func TestMixerPanning(t *testing.T) {
	m := NewMixer()
	sink := &fakeSink{}
	m.SetAudioDevice(sink)
	m.SetPanning(Square1, 0.0) // full left

	for time := uint32(100); time < 9000; time += 800 {
		m.AddDelta(Square1, time, 15)
		m.AddDelta(Square1, time+400, -15)
	}
	m.playAudioBuffer(CycleLength)

	differs := false
	for i := 0; i+1 < len(sink.samples); i += 2 {
		if sink.samples[i] != sink.samples[i+1] {
			differs = true
			break
		}
	}
	if !differs {
		t.Errorf("full-left panning produced identical stereo sides")
	}
}

func TestMixerRegionClockRate(t *testing.T) {
	m := NewMixer()
	if m.clockRate != hwdefs.ClockRateNTSC {
		t.Fatalf("clock rate = %d, want NTSC %d", m.clockRate, hwdefs.ClockRateNTSC)
	}

	m.setRegion(hwdefs.PAL)
	if m.clockRate != hwdefs.ClockRatePAL {
		t.Errorf("clock rate = %d, want PAL %d", m.clockRate, hwdefs.ClockRatePAL)
	}
}
