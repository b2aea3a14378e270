package hwdefs

import "strings"

// IRQSource identifies a subsystem requesting interrupt service. Sources are
// independent bits so several of them can be pending at once.
type IRQSource uint8

const (
	External IRQSource = 1 << iota
	FrameCounter
	DMC

	numSources = 3
)

var irqSrcNames = [numSources]string{
	"ext",
	"fcnt",
	"dmc",
}

func (irq IRQSource) String() string {
	var names []string
	for i := range numSources {
		if irq&(1<<i) != 0 {
			names = append(names, irqSrcNames[i])
		}
	}
	return strings.Join(names, "|")
}

// Region selects the hardware variant being emulated. It determines the
// master clock rate and the frame counter step tables.
//
//go:generate go tool stringer -type=Region
type Region uint8

const (
	NTSC Region = iota
	PAL
)

// Master clock rates, in CPU cycles per second.
const (
	ClockRateNTSC uint32 = 1789773
	ClockRatePAL  uint32 = 1662607
)

func (r Region) ClockRate() uint32 {
	if r == PAL {
		return ClockRatePAL
	}
	return ClockRateNTSC
}

const (
	SoftReset = true
	HardReset = false
)

const NumAudioChannels = 5 // Square1, Square2, Triangle, Noise, DPCM
