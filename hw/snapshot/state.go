// Package snapshot declares the save-state structures of the sound hardware.
// Fields are plain ordered values; how they get serialized into a container
// is the embedder's business.
package snapshot

type SoundCard struct {
	Version int
	APU     *APU
	Mixer   *APUMixer

	IRQs   uint8
	Cycles uint64
}

// APU state is saved in a fixed order: region tag and cycle counters first,
// then each channel, then the frame counter.
type APU struct {
	Region        uint8
	CurrentCycle  uint32
	PreviousCycle uint32

	Square1      APUSquare
	Square2      APUSquare
	Triangle     APUTriangle
	Noise        APUNoise
	DMC          APUDMC
	FrameCounter APUFrameCounter
}

type APUTimer struct {
	PreviousCycle uint32
	Timer         uint16
	Period        uint16
	LastOutput    int8
}

type APULengthCounter struct {
	Enabled       bool
	Halt          bool
	NewHalt       bool
	Counter       uint8
	ReloadValue   uint8
	PreviousValue uint8
}

type APUEnvelope struct {
	LengthCounter APULengthCounter

	ConstantVolume bool
	Volume         uint8
	Start          bool
	Divider        int8
	Counter        uint8
}

type APUSquare struct {
	Timer    APUTimer
	Envelope APUEnvelope

	Duty    uint8
	DutyPos uint8

	RealPeriod        uint16
	SweepEnabled      bool
	SweepPeriod       uint8
	SweepNegate       bool
	SweepShift        uint8
	ReloadSweep       bool
	SweepDivider      uint8
	SweepTargetPeriod uint32
}

type APUTriangle struct {
	Timer         APUTimer
	LengthCounter APULengthCounter

	LinearCounter       uint8
	LinearCounterReload uint8
	LinearReload        bool
	LinearCtrl          bool
	Pos                 uint8
}

type APUNoise struct {
	Timer    APUTimer
	Envelope APUEnvelope

	ShiftReg uint16
	Mode     bool
}

type APUDMC struct {
	Timer APUTimer

	SampleAddr  uint16
	SampleLen   uint16
	CurrentAddr uint16
	Remaining   uint16

	OutputLevel  uint8
	ReadBuf      uint8
	BitsLeft     uint8
	StartDelay   uint8
	DisableDelay uint8
	ShiftReg     uint8
	Last4011     uint8

	IRQEnabled bool
	Loop       bool
	BufEmpty   bool
	Silence    bool
	NeedToRun  bool
}

type APUFrameCounter struct {
	PrevCycle         int32
	CurStep           uint32
	StepMode          uint32
	InhibitIRQ        bool
	BlockTick         uint8
	NewValue          int16
	WriteDelayCounter int8
}

type APUMixer struct {
	ClockRate  uint32
	SampleRate uint32

	PreviousOutputLeft  int16
	PreviousOutputRight int16
	CurrentOutput       [5]int16
}
