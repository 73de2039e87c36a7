package effects

import (
	algofx "github.com/cwbudde/algo-dsp/dsp/effects"

	"github.com/soundfold/rtfx/pkg/framework/effect"
	"github.com/soundfold/rtfx/pkg/framework/param"
)

// Parameter IDs of the echo effect.
const (
	EchoParamTime     = 0
	EchoParamFeedback = 1
	EchoParamMix      = 2
)

// EchoInfo is the echo effect's metadata.
var EchoInfo = effect.Info{
	ID:       "com.soundfold.rtfx.echo",
	Name:     "Echo",
	Version:  "1.0.0",
	Vendor:   "soundfold",
	Category: "Fx|Delay",
}

// Echo is a stereo feedback delay.
type Echo struct{}

// NewEcho creates the echo effect's settings manager.
func NewEcho() *Echo {
	return &Echo{}
}

// MakeSettings returns populated echo settings.
func (e *Echo) MakeSettings() effect.Settings {
	params := param.NewRegistry().Add(
		param.New(EchoParamTime, "Time", 0.001, 2, 0.25).WithUnit("s"),
		param.New(EchoParamFeedback, "Feedback", 0, 0.99, 0.35),
		param.New(EchoParamMix, "Mix", 0, 1, 0.25),
	)
	return effect.Settings{Value: &ParamSettings{params: params}}
}

// MakeOutputs returns nil; the echo effect has no secondary outputs.
func (e *Echo) MakeOutputs() effect.Outputs {
	return nil
}

// MakeInstance returns a new echo processing instance.
func (e *Echo) MakeInstance() effect.Instance {
	return &echoInstance{}
}

// CopySettingsContents copies parameter values from src to dst without
// relocating dst's storage.
func (e *Echo) CopySettingsContents(src, dst *effect.Settings) {
	copyParamContents(src, dst)
}

// echoProcessor is one stereo processor: an independent delay line per
// channel.
type echoProcessor struct {
	delays [2]*algofx.Delay
}

type echoInstance struct {
	blockSize  int
	processors []echoProcessor

	// Last applied plain values, so block starts touch the delay lines
	// only when a parameter actually moved.
	appliedTime     float64
	appliedFeedback float64
	appliedMix      float64
}

func (i *echoInstance) AudioInCount() int  { return 2 }
func (i *echoInstance) AudioOutCount() int { return 2 }

func (i *echoInstance) SetBlockSize(n int) { i.blockSize = n }
func (i *echoInstance) BlockSize() int     { return i.blockSize }

func (i *echoInstance) RealtimeInitialize(settings *effect.Settings, _ float64) bool {
	i.processors = i.processors[:0]
	i.appliedTime = 0
	i.appliedFeedback = -1
	i.appliedMix = -1
	return paramsOf(settings) != nil
}

func (i *echoInstance) RealtimeAddProcessor(_ *effect.Settings, _ effect.Outputs, _ int, sampleRate float64) bool {
	var p echoProcessor
	for ch := range p.delays {
		d, err := algofx.NewDelay(sampleRate)
		if err != nil {
			return false
		}
		p.delays[ch] = d
	}
	i.processors = append(i.processors, p)
	return true
}

func (i *echoInstance) RealtimeResume() bool { return true }

func (i *echoInstance) RealtimeSuspend() bool {
	for _, p := range i.processors {
		for _, d := range p.delays {
			d.Reset()
		}
	}
	return true
}

// RealtimeProcessStart applies parameter changes to the delay lines.
func (i *echoInstance) RealtimeProcessStart(settings *effect.Settings) bool {
	params := paramsOf(settings)
	if params == nil {
		return false
	}

	if t := params.PlainValue(EchoParamTime); t != i.appliedTime {
		for _, p := range i.processors {
			for _, d := range p.delays {
				if err := d.SetTime(t); err != nil {
					return false
				}
			}
		}
		i.appliedTime = t
	}
	if fb := params.PlainValue(EchoParamFeedback); fb != i.appliedFeedback {
		for _, p := range i.processors {
			for _, d := range p.delays {
				if err := d.SetFeedback(fb); err != nil {
					return false
				}
			}
		}
		i.appliedFeedback = fb
	}
	if mix := params.PlainValue(EchoParamMix); mix != i.appliedMix {
		for _, p := range i.processors {
			for _, d := range p.delays {
				if err := d.SetMix(mix); err != nil {
					return false
				}
			}
		}
		i.appliedMix = mix
	}
	return true
}

func (i *echoInstance) RealtimeProcess(processor int, _ *effect.Settings, in, out [][]float32, n int) int {
	if processor < 0 || processor >= len(i.processors) {
		return 0
	}
	p := i.processors[processor]
	for ch := 0; ch < 2 && ch < len(in) && ch < len(out); ch++ {
		if in[ch] == nil || out[ch] == nil {
			continue
		}
		d := p.delays[ch]
		for s := 0; s < n; s++ {
			out[ch][s] = float32(d.ProcessSample(float64(in[ch][s])))
		}
	}
	return n
}

func (i *echoInstance) Latency(_ *effect.Settings, _ float64) int { return 0 }

func (i *echoInstance) RealtimeProcessEnd(_ *effect.Settings) bool { return true }

func (i *echoInstance) RealtimeFinalize(_ *effect.Settings) bool {
	i.processors = nil
	return true
}
