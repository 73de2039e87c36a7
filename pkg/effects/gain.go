// Package effects provides built-in effects for the hosting core. Their
// DSP bodies build on github.com/cwbudde/algo-dsp; their settings
// payloads are parameter registries, so they work with the facade and
// with persistence out of the box.
package effects

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/core"

	"github.com/soundfold/rtfx/pkg/framework/effect"
	"github.com/soundfold/rtfx/pkg/framework/param"
)

// Parameter IDs of the gain effect.
const (
	GainParamGain = 0
)

// GainInfo is the gain effect's metadata.
var GainInfo = effect.Info{
	ID:       "com.soundfold.rtfx.gain",
	Name:     "Gain",
	Version:  "1.0.0",
	Vendor:   "soundfold",
	Category: "Fx",
}

// ParamSettings is a settings payload backed by a parameter registry.
// Both built-in effects use it; content copies go value-by-value through
// atomic stores, so nothing relocates and nothing allocates.
type ParamSettings struct {
	params *param.Registry
}

// Params exposes the payload's registry, which also makes the payload
// persistable as a named-parameter blob.
func (p *ParamSettings) Params() *param.Registry {
	return p.params
}

// Gain is a stereo gain effect with a peak meter output.
type Gain struct{}

// NewGain creates the gain effect's settings manager.
func NewGain() *Gain {
	return &Gain{}
}

// MakeSettings returns populated gain settings.
func (g *Gain) MakeSettings() effect.Settings {
	params := param.NewRegistry().Add(
		param.New(GainParamGain, "Gain", -24, 24, 0).WithUnit("dB"),
	)
	return effect.Settings{Value: &ParamSettings{params: params}}
}

// MakeOutputs returns a peak meter outputs object.
func (g *Gain) MakeOutputs() effect.Outputs {
	return &PeakOutputs{}
}

// MakeInstance returns a new gain processing instance.
func (g *Gain) MakeInstance() effect.Instance {
	return &gainInstance{}
}

// CopySettingsContents copies parameter values from src to dst without
// relocating dst's storage.
func (g *Gain) CopySettingsContents(src, dst *effect.Settings) {
	copyParamContents(src, dst)
}

func copyParamContents(src, dst *effect.Settings) {
	s, sok := src.Value.(*ParamSettings)
	d, dok := dst.Value.(*ParamSettings)
	if sok && dok {
		d.params.CopyValuesFrom(s.params)
	}
}

func paramsOf(s *effect.Settings) *param.Registry {
	if p, ok := s.Value.(*ParamSettings); ok {
		return p.params
	}
	return nil
}

// PeakOutputs carries per-channel peak levels from the worker to meters
// on the main thread.
type PeakOutputs struct {
	Peaks [2]float64
}

// Clone returns an independent copy.
func (o *PeakOutputs) Clone() effect.Outputs {
	c := &PeakOutputs{}
	c.Peaks = o.Peaks
	return c
}

// Assign copies the peak values of other into the receiver.
func (o *PeakOutputs) Assign(other effect.Outputs) {
	if p, ok := other.(*PeakOutputs); ok {
		o.Peaks = p.Peaks
	}
}

type gainInstance struct {
	blockSize  int
	processors int
	outputs    *PeakOutputs
}

func (i *gainInstance) AudioInCount() int  { return 2 }
func (i *gainInstance) AudioOutCount() int { return 2 }

func (i *gainInstance) SetBlockSize(n int) { i.blockSize = n }
func (i *gainInstance) BlockSize() int     { return i.blockSize }

func (i *gainInstance) RealtimeInitialize(_ *effect.Settings, _ float64) bool {
	i.processors = 0
	return true
}

func (i *gainInstance) RealtimeAddProcessor(_ *effect.Settings, outputs effect.Outputs, _ int, _ float64) bool {
	if p, ok := outputs.(*PeakOutputs); ok {
		i.outputs = p
	}
	i.processors++
	return true
}

func (i *gainInstance) RealtimeResume() bool  { return true }
func (i *gainInstance) RealtimeSuspend() bool { return true }

func (i *gainInstance) RealtimeProcessStart(_ *effect.Settings) bool { return true }

func (i *gainInstance) RealtimeProcess(_ int, settings *effect.Settings, in, out [][]float32, n int) int {
	gain := 1.0
	if params := paramsOf(settings); params != nil {
		gain = core.DBToLinear(params.PlainValue(GainParamGain))
	}
	for ch := 0; ch < 2 && ch < len(in) && ch < len(out); ch++ {
		if in[ch] == nil || out[ch] == nil {
			continue
		}
		peak := 0.0
		for s := 0; s < n; s++ {
			v := float64(in[ch][s]) * gain
			out[ch][s] = float32(v)
			peak = math.Max(peak, math.Abs(v))
		}
		if i.outputs != nil {
			i.outputs.Peaks[ch] = peak
		}
	}
	return n
}

func (i *gainInstance) Latency(_ *effect.Settings, _ float64) int { return 0 }

func (i *gainInstance) RealtimeProcessEnd(_ *effect.Settings) bool { return true }

func (i *gainInstance) RealtimeFinalize(_ *effect.Settings) bool {
	i.processors = 0
	i.outputs = nil
	return true
}
