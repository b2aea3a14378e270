package hw

import (
	"fmt"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"nesapu/emu/log"
	"nesapu/hw/apu"
)

const (
	AudioFormat     = sdl.AUDIO_S16LSB
	AudioChannels   = 2
	AudioBufferSize = 4096 // TODO: adjust based on latency.
)

// SoundOutput queues the mixer's resampled frames on an SDL audio device.
type SoundOutput struct {
	id     sdl.AudioDeviceID
	spec   sdl.AudioSpec
	paused bool
}

var _ apu.AudioDevice = (*SoundOutput)(nil)

func NewSoundOutput(sampleRate uint32) (*SoundOutput, error) {
	if err := sdl.InitSubSystem(sdl.INIT_AUDIO); err != nil {
		return nil, fmt.Errorf("failed to init sdl audio: %s", err)
	}

	want := sdl.AudioSpec{
		Freq:     int32(sampleRate),
		Format:   AudioFormat,
		Channels: AudioChannels,
		Samples:  AudioBufferSize,
	}

	var have sdl.AudioSpec
	id, err := sdl.OpenAudioDevice("", false, &want, &have, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio device: %s", err)
	}

	so := &SoundOutput{id: id, spec: have}
	sdl.PauseAudioDevice(id, false)

	log.ModSound.InfoZ("audio device opened").
		Int("freq", int(have.Freq)).
		Uint8("channels", have.Channels).
		End()

	return so, nil
}

// PlayBuffer queues one frame of interleaved stereo samples. The samples are
// copied, the caller may reuse the buffer right away.
func (so *SoundOutput) PlayBuffer(samples []int16) {
	if len(samples) == 0 {
		return
	}

	if so.paused {
		sdl.PauseAudioDevice(so.id, false)
		so.paused = false
	}

	buf := unsafe.Slice((*byte)(unsafe.Pointer(&samples[0])), len(samples)*2)
	cpy := make([]byte, len(buf))
	copy(cpy, buf)

	if err := sdl.QueueAudio(so.id, cpy); err != nil {
		log.ModSound.DebugZ("failed to queue audio buffer").Error("err", err).End()
	}
}

func (so *SoundOutput) Pause() {
	sdl.PauseAudioDevice(so.id, true)
	so.paused = true
}

// QueuedBytes reports how much audio is queued and not yet played.
func (so *SoundOutput) QueuedBytes() uint32 {
	return sdl.GetQueuedAudioSize(so.id)
}

func (so *SoundOutput) Close() {
	sdl.ClearQueuedAudio(so.id)
	sdl.CloseAudioDevice(so.id)
}
