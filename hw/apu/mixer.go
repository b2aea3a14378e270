package apu

import (
	"slices"

	"github.com/arl/blip"

	"nesapu/emu/log"
	"nesapu/hw/hwdefs"
	"nesapu/hw/snapshot"
)

const MaxSampleRate = 96000
const maxSamplesPerFrame = MaxSampleRate / 60 * 4 * 2 //x4 to allow CPU overclocking up to 10x, x2 for panning stereo

// CycleLength is the fixed frame length, in master clock cycles.
const CycleLength = 10000
const BitsPerSample = 16

// Mixer accumulates per-channel amplitude deltas over one frame, folds them
// through the non-linear DAC mixing curves and resamples the result with a
// pair of band-limited buffers (one per stereo side).
type Mixer struct {
	outbuf   [maxSamplesPerFrame]int16
	bufleft  *blip.Buffer
	bufright *blip.Buffer

	prevOutleft  int16
	prevOutright int16

	nsamples   int
	hasPanning bool

	masterVolume float64
	volumes      [hwdefs.NumAudioChannels]float64
	panning      [hwdefs.NumAudioChannels]float64

	// Deltas can be stamped on the frame's final cycle, hence the +1.
	timestamps []uint32
	chanoutput [hwdefs.NumAudioChannels][CycleLength + 1]int16
	curOutput  [hwdefs.NumAudioChannels]int16

	region     hwdefs.Region
	clockRate  uint32
	sampleRate uint32

	device AudioDevice
}

func NewMixer() *Mixer {
	am := &Mixer{
		bufleft:      blip.NewBuffer(maxSamplesPerFrame),
		bufright:     blip.NewBuffer(maxSamplesPerFrame),
		sampleRate:   MaxSampleRate,
		masterVolume: 1.0,
	}

	for i := range hwdefs.NumAudioChannels {
		am.volumes[i] = 1.0
		am.panning[i] = 1.0
	}

	am.updateRates(true)
	return am
}

// SetAudioDevice installs the playback sink drained at each end of frame. A
// nil device keeps the mixer synthesizing (state keeps advancing) without
// playback.
func (am *Mixer) SetAudioDevice(dev AudioDevice) {
	am.device = dev
}

func (am *Mixer) SetSampleRate(rate uint32) {
	if rate == 0 || rate > MaxSampleRate {
		rate = MaxSampleRate
	}
	if rate != am.sampleRate {
		am.sampleRate = rate
		am.updateRates(true)
	}
}

func (am *Mixer) SetMasterVolume(vol float64) {
	am.masterVolume = vol
	am.updateRates(false)
}

// SetVolume sets the linear volume of a single channel, 0 silences it.
func (am *Mixer) SetVolume(ch Channel, vol float64) {
	am.volumes[ch] = vol
	am.updateRates(false)
}

// SetPanning pans a single channel, from 0.0 (full left) to 2.0 (full right).
// 1.0 is centered.
func (am *Mixer) SetPanning(ch Channel, pan float64) {
	am.panning[ch] = pan
	am.updateRates(false)
}

func (am *Mixer) Reset() {
	am.nsamples = 0

	am.prevOutleft = 0
	am.prevOutright = 0
	am.bufleft.Clear()
	am.bufright.Clear()
	am.timestamps = am.timestamps[:0]

	for i := range am.chanoutput {
		clear(am.chanoutput[i][:])
	}
	clear(am.curOutput[:])

	am.updateRates(true)
}

func (am *Mixer) setRegion(region hwdefs.Region) {
	am.region = region
	am.updateRates(true)
}

func (am *Mixer) updateRates(forceUpdate bool) {
	clockRate := am.region.ClockRate()
	if forceUpdate || am.clockRate != clockRate {
		am.clockRate = clockRate

		am.bufleft.SetRates(float64(am.clockRate), float64(am.sampleRate))
		am.bufright.SetRates(float64(am.clockRate), float64(am.sampleRate))
	}

	hasPanning := false
	for i := range hwdefs.NumAudioChannels {
		if am.panning[i] != 1.0 {
			if !am.hasPanning {
				// Left and right buffers are out of sync, so clear both to
				// resynchronize them.
				am.bufleft.Clear()
				am.bufright.Clear()
			}
			hasPanning = true
		}
	}
	am.hasPanning = hasPanning
}

func (am *Mixer) channelOutput(ch Channel, right bool) float64 {
	if right {
		return float64(am.curOutput[ch]) * am.volumes[ch] * am.panning[ch]
	}
	return float64(am.curOutput[ch]) * am.volumes[ch] * (2.0 - am.panning[ch])
}

func (am *Mixer) outputVolume(isRight bool) int16 {
	squareOutput := am.channelOutput(Square1, isRight) + am.channelOutput(Square2, isRight)
	tndOutput := am.channelOutput(DPCM, isRight) +
		2.7516713261*am.channelOutput(Triangle, isRight) +
		1.8493587125*am.channelOutput(Noise, isRight)

	squareVolume := uint16((95.88 * 5000.0 * am.masterVolume) / (8128.0/squareOutput + 100.0))
	tndVolume := uint16((159.79 * 5000.0 * am.masterVolume) / (22638.0/tndOutput + 100.0))

	return int16(squareVolume + tndVolume)
}

// AddDelta records an amplitude change of a single channel at the given frame
// cycle. Deltas are accumulated and only folded into the synthesis buffers at
// the end of the frame.
func (am *Mixer) AddDelta(ch Channel, time uint32, delta int16) {
	if delta != 0 {
		am.timestamps = append(am.timestamps, time)
		am.chanoutput[ch][time] += delta
	}
}

// endFrame folds the frame's accumulated deltas into the synthesis buffers.
// time is the frame duration in clock cycles.
func (am *Mixer) endFrame(time uint32) {
	slices.Sort(am.timestamps)
	am.timestamps = slices.Compact(am.timestamps)

	for _, stamp := range am.timestamps {
		for j := range hwdefs.NumAudioChannels {
			am.curOutput[j] += am.chanoutput[j][stamp]
		}

		currentOut := am.outputVolume(false) * 4
		am.bufleft.AddDelta(uint64(stamp), int32(currentOut-am.prevOutleft))
		am.prevOutleft = currentOut

		if am.hasPanning {
			currentOut = am.outputVolume(true) * 4
			am.bufright.AddDelta(uint64(stamp), int32(currentOut-am.prevOutright))
			am.prevOutright = currentOut
		}
	}

	am.bufleft.EndFrame(int(time))
	if am.hasPanning {
		am.bufright.EndFrame(int(time))
	}

	am.timestamps = am.timestamps[:0]
	for i := range am.chanoutput {
		clear(am.chanoutput[i][:])
	}
}

// playAudioBuffer ends the frame and hands the resampled interleaved stereo
// buffer to the audio device, if any.
func (am *Mixer) playAudioBuffer(time uint32) {
	am.endFrame(time)

	out := am.outbuf[am.nsamples*2:]
	sampleCount := am.bufleft.ReadSamples(out, len(out)/2, blip.Stereo)

	if am.hasPanning {
		am.bufright.ReadSamples(out[1:], sampleCount, blip.Stereo)
	} else {
		// When no panning, just copy the left channel to the right one.
		for i := 0; i < sampleCount*2; i += 2 {
			out[i+1] = out[i]
		}
	}

	am.nsamples += sampleCount

	if am.device != nil {
		am.device.PlayBuffer(am.outbuf[:am.nsamples*2])
	} else {
		log.ModSound.DebugZ("no audio device").
			Int("samples", am.nsamples).
			End()
	}

	am.nsamples = 0
	am.updateRates(false)
}

// Pause pauses the audio device, if any.
func (am *Mixer) Pause() {
	if am.device != nil {
		am.device.Pause()
	}
}

func (am *Mixer) SampleRate() uint32 { return am.sampleRate }

func (am *Mixer) State() *snapshot.APUMixer {
	var state snapshot.APUMixer
	state.ClockRate = am.clockRate
	state.SampleRate = am.sampleRate

	state.PreviousOutputLeft = am.prevOutleft
	state.PreviousOutputRight = am.prevOutright
	for i := range hwdefs.NumAudioChannels {
		state.CurrentOutput[i] = am.curOutput[i]
	}

	return &state
}

func (am *Mixer) SetState(state *snapshot.APUMixer) {
	am.clockRate = state.ClockRate
	am.sampleRate = state.SampleRate

	am.Reset()

	am.prevOutleft = state.PreviousOutputLeft
	am.prevOutright = state.PreviousOutputRight

	for i := range hwdefs.NumAudioChannels {
		am.curOutput[i] = state.CurrentOutput[i]
	}
}
