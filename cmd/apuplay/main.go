// Command apuplay plays a register tune through the sound hardware and an SDL
// audio device.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"golang.org/x/sync/errgroup"

	"nesapu/emu/log"
	"nesapu/hw"
	"nesapu/hw/apu"
	"nesapu/hw/hwdefs"
)

type CLI struct {
	Play    Play    `cmd:"" help:"Play a tune file. (default command)" default:"true"`
	Version Version `cmd:"" help:"Show apuplay version."`

	Log logModMask `help:"${log_help}" placeholder:"mod0,mod1,..."`
}

type Play struct {
	TunePath string `arg:"" name:"/path/to/tune" help:"${tunepath_help}" required:"true" type:"existingfile"`

	Config   string        `name:"config" help:"Audio configuration file (toml)." type:"existingfile"`
	Region   string        `name:"region" help:"Hardware region (ntsc or pal)." default:"ntsc" enum:"ntsc,pal"`
	Duration time.Duration `name:"duration" help:"Stop after this much emulated time. 0 plays the whole tune." default:"0"`
	NoAudio  bool          `name:"no-audio" help:"Synthesize without opening an audio device."`
	Trace    *outfile      `name:"trace" help:"Write register write trace (json lines)." placeholder:"FILE|stdout|stderr"`
}

type Version struct{}

var vars = kong.Vars{
	"tunepath_help": "Tune file: a toml script of timed register writes.",
	"log_help":      "Enable logging for specified modules.",
}

const version = "0.1.0"

func main() {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("apuplay"),
		kong.Description("NES sound hardware player."),
		kong.UsageOnError(),
		vars)
	if err != nil {
		panic(err)
	}

	kctx, err := parser.Parse(os.Args[1:])
	checkf(err, "failed to parse command line")

	switch kctx.Command() {
	case "version":
		fmt.Println("apuplay", version)
	default:
		checkf(cli.Play.run(), "playback error")
	}
}

func (cmd *Play) run() error {
	cfg, err := hw.LoadAudioConfig(cmd.Config)
	if err != nil {
		return err
	}

	tune, err := loadTune(cmd.TunePath)
	if err != nil {
		return err
	}

	region := hwdefs.NTSC
	if cmd.Region == "pal" {
		region = hwdefs.PAL
	}

	sc := hw.NewSoundCard()
	sc.Reset(hwdefs.HardReset)
	sc.SetRegion(region)
	cfg.Apply(sc.Mixer)

	if !cfg.DisableAudio && !cmd.NoAudio {
		out, err := hw.NewSoundOutput(sc.Mixer.SampleRate())
		if err != nil {
			return err
		}
		defer out.Close()
		sc.Mixer.SetAudioDevice(out)
	}

	var tr *tracer
	if cmd.Trace != nil {
		tr = newTracer(cmd.Trace)
		defer cmd.Trace.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return play(ctx, sc, tune, cmd.Duration, tr)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// play runs the sound card in real time, one frame of cycles per tick,
// applying the tune's register writes on their cycle.
func play(ctx context.Context, sc *hw.SoundCard, tune *tune, maxDur time.Duration, tr *tracer) error {
	clockRate := sc.APU.Region().ClockRate()

	total := tune.length()
	if maxDur > 0 {
		total = min(total, uint64(maxDur.Seconds()*float64(clockRate)))
	}

	frameDur := time.Duration(float64(apu.CycleLength) / float64(clockRate) * float64(time.Second))
	tick := time.NewTicker(frameDur)
	defer tick.Stop()

	var cycle uint64
	next := 0
	for cycle < total {
		select {
		case <-ctx.Done():
			sc.Mixer.Pause()
			return ctx.Err()
		case <-tick.C:
		}

		for range apu.CycleLength {
			for next < len(tune.Events) && tune.Events[next].Cycle == cycle {
				ev := tune.Events[next]
				sc.Write8(ev.Addr, ev.Value)
				if tr != nil {
					if err := tr.record(cycle, ev.Addr, ev.Value); err != nil {
						return err
					}
				}
				next++
			}

			sc.Exec()
			cycle++
			if cycle == total {
				break
			}
		}
	}

	sc.Mixer.Pause()
	return nil
}

type logModMask log.ModuleMask

// Decode decodes a comma-separated list of module names into a module mask.
//
// Implements kong.MapperValue interface.
func (lm logModMask) Decode(ctx *kong.DecodeContext) error {
	nolog := false
	allLogs := false

	tok := ctx.Scan.Pop()
	for _, v := range strings.Split(tok.Value.(string), ",") {
		switch v {
		case "all":
			allLogs = true
		case "no":
			nolog = true
		default:
			mod, ok := log.ModuleByName(v)
			if !ok {
				return fmt.Errorf("unknown log module %s", v)
			}
			lm |= logModMask(mod.Mask())
		}
	}

	if nolog {
		if allLogs {
			return fmt.Errorf("cannot use 'all' and 'no' together")
		}
		if lm != 0 {
			return fmt.Errorf("cannot combine 'no' with other log modules")
		}
		log.Disable()
		return nil
	}

	if allLogs {
		lm = logModMask(log.ModuleMaskAll)
	}

	log.EnableDebugModules(log.ModuleMask(lm))
	return nil
}

type outfile struct {
	w     io.Writer
	name  string
	close func() error
}

// Decode decodes FILE|stdout|stderr into an io.WriteCloser
// that writes to that file.
//
// Implements kong.MapperValue interface.
func (f *outfile) Decode(ctx *kong.DecodeContext) error {
	tok := ctx.Scan.Pop()
	f.name = tok.Value.(string)
	f.close = func() error { return nil }

	switch f.name {
	case "stdout":
		f.w = os.Stdout
	case "stderr":
		f.w = os.Stderr
	default:
		fd, err := os.Create(f.name)
		if err != nil {
			return err
		}
		f.w = fd
		f.close = fd.Close
	}
	return nil
}

func (f *outfile) String() string              { return f.name }
func (f *outfile) Write(p []byte) (int, error) { return f.w.Write(p) }
func (f *outfile) Close() error                { return f.close() }

func checkf(err error, format string, args ...any) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "fatal error:")
	fmt.Fprintf(os.Stderr, "\n\t%s: %s\n", fmt.Sprintf(format, args...), err)
	os.Exit(1)
}
