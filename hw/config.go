package hw

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"nesapu/hw/apu"
)

type AudioConfig struct {
	DisableAudio bool    `toml:"disable_audio"`
	SampleRate   uint32  `toml:"sample_rate"`
	MasterVolume float64 `toml:"master_volume"`

	Square1  ChannelConfig `toml:"square1"`
	Square2  ChannelConfig `toml:"square2"`
	Triangle ChannelConfig `toml:"triangle"`
	Noise    ChannelConfig `toml:"noise"`
	DMC      ChannelConfig `toml:"dmc"`
}

type ChannelConfig struct {
	Volume  float64 `toml:"volume"`
	Panning float64 `toml:"panning"` // 0.0 full left, 1.0 centered, 2.0 full right
}

func DefaultAudioConfig() AudioConfig {
	ch := ChannelConfig{Volume: 1.0, Panning: 1.0}
	return AudioConfig{
		SampleRate:   apu.MaxSampleRate,
		MasterVolume: 1.0,
		Square1:      ch,
		Square2:      ch,
		Triangle:     ch,
		Noise:        ch,
		DMC:          ch,
	}
}

// LoadAudioConfig loads the audio configuration from a toml file, or provides
// the default one if path is empty.
func LoadAudioConfig(path string) (AudioConfig, error) {
	cfg := DefaultAudioConfig()
	if path == "" {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to load audio config: %s", err)
	}
	return cfg, nil
}

// Apply pushes the configuration onto the mixer.
func (cfg AudioConfig) Apply(m *apu.Mixer) {
	m.SetSampleRate(cfg.SampleRate)
	m.SetMasterVolume(cfg.MasterVolume)

	chans := [...]struct {
		ch  apu.Channel
		cfg ChannelConfig
	}{
		{apu.Square1, cfg.Square1},
		{apu.Square2, cfg.Square2},
		{apu.Triangle, cfg.Triangle},
		{apu.Noise, cfg.Noise},
		{apu.DPCM, cfg.DMC},
	}

	for _, c := range chans {
		m.SetVolume(c.ch, c.cfg.Volume)
		m.SetPanning(c.ch, c.cfg.Panning)
	}
}
