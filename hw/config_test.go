package hw

import (
	"os"
	"path/filepath"
	"testing"

	"nesapu/hw/apu"
)

func TestLoadAudioConfigDefault(t *testing.T) {
	cfg, err := LoadAudioConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SampleRate != apu.MaxSampleRate {
		t.Errorf("sample rate = %d, want %d", cfg.SampleRate, apu.MaxSampleRate)
	}
	if cfg.MasterVolume != 1.0 {
		t.Errorf("master volume = %v, want 1.0", cfg.MasterVolume)
	}
	if cfg.Triangle.Panning != 1.0 {
		t.Errorf("triangle panning = %v, want 1.0 (centered)", cfg.Triangle.Panning)
	}
}

func TestLoadAudioConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audio.toml")
	data := `
sample_rate = 48000
master_volume = 0.5

[square1]
volume = 0.25
panning = 0.0
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadAudioConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SampleRate != 48000 {
		t.Errorf("sample rate = %d, want 48000", cfg.SampleRate)
	}
	if cfg.MasterVolume != 0.5 {
		t.Errorf("master volume = %v, want 0.5", cfg.MasterVolume)
	}
	if cfg.Square1.Volume != 0.25 || cfg.Square1.Panning != 0.0 {
		t.Errorf("square1 = %+v, want volume 0.25 panning 0.0", cfg.Square1)
	}

	// Unmentioned channels keep their defaults.
	if cfg.Noise.Volume != 1.0 {
		t.Errorf("noise volume = %v, want default 1.0", cfg.Noise.Volume)
	}
}

func TestLoadAudioConfigMissingFile(t *testing.T) {
	if _, err := LoadAudioConfig("/does/not/exist.toml"); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}
