package host

import (
	"sync/atomic"

	"github.com/soundfold/rtfx/pkg/framework/effect"
)

// fakePayload is an opaque settings payload with fixed-size storage so
// content copies never relocate it.
type fakePayload struct {
	data []float64
}

// fakeOutputs counts assignments so tests can observe the echo protocol's
// output merging.
type fakeOutputs struct {
	value   float64
	assigns atomic.Int64
}

func (o *fakeOutputs) Clone() effect.Outputs {
	return &fakeOutputs{value: o.value}
}

func (o *fakeOutputs) Assign(other effect.Outputs) {
	o.value = other.(*fakeOutputs).value
	o.assigns.Add(1)
}

// fakeManager counts payload content copies so tests can verify that
// unchanged snapshots are not re-copied.
type fakeManager struct {
	copies      atomic.Int64
	instance    *fakeInstance
	withOutputs bool
}

func (m *fakeManager) MakeSettings() effect.Settings {
	return effect.Settings{Value: &fakePayload{data: make([]float64, 4)}}
}

func (m *fakeManager) MakeOutputs() effect.Outputs {
	if m.withOutputs {
		return &fakeOutputs{}
	}
	return nil
}

func (m *fakeManager) MakeInstance() effect.Instance {
	if m.instance == nil {
		return nil
	}
	return m.instance
}

func (m *fakeManager) CopySettingsContents(src, dst *effect.Settings) {
	m.copies.Add(1)
	copy(dst.Value.(*fakePayload).data, src.Value.(*fakePayload).data)
}

func payloadOf(s effect.Settings) *fakePayload {
	return s.Value.(*fakePayload)
}

// fakeInstance scripts an effect instance and records every call the
// engine makes, including the order of resume/suspend transitions.
type fakeInstance struct {
	numIn, numOut int
	blockSize     int
	latency       int

	failInit    bool
	failAdd     bool
	failResume  bool
	failSuspend bool
	failStart   bool
	failEnd     bool
	failFinal   bool

	inits, adds, starts, ends, finals int
	latencyQueries                    int
	transitions                       []string

	// onProcess overrides the default identity processing (copy input to
	// output, report full production).
	onProcess func(processor int, in, out [][]float32, n int) int
}

func newFakeInstance(numIn, numOut int) *fakeInstance {
	return &fakeInstance{numIn: numIn, numOut: numOut}
}

func (f *fakeInstance) AudioInCount() int  { return f.numIn }
func (f *fakeInstance) AudioOutCount() int { return f.numOut }

func (f *fakeInstance) SetBlockSize(n int) { f.blockSize = n }
func (f *fakeInstance) BlockSize() int     { return f.blockSize }

func (f *fakeInstance) RealtimeInitialize(_ *effect.Settings, _ float64) bool {
	f.inits++
	return !f.failInit
}

func (f *fakeInstance) RealtimeAddProcessor(_ *effect.Settings, _ effect.Outputs, _ int, _ float64) bool {
	if f.failAdd {
		return false
	}
	f.adds++
	return true
}

func (f *fakeInstance) RealtimeResume() bool {
	f.transitions = append(f.transitions, "resume")
	return !f.failResume
}

func (f *fakeInstance) RealtimeSuspend() bool {
	f.transitions = append(f.transitions, "suspend")
	return !f.failSuspend
}

func (f *fakeInstance) RealtimeProcessStart(_ *effect.Settings) bool {
	f.starts++
	return !f.failStart
}

func (f *fakeInstance) RealtimeProcess(processor int, _ *effect.Settings, in, out [][]float32, n int) int {
	if f.onProcess != nil {
		return f.onProcess(processor, in, out, n)
	}
	for i := range out {
		if out[i] != nil && i < len(in) && in[i] != nil {
			copy(out[i][:n], in[i][:n])
		}
	}
	return n
}

func (f *fakeInstance) Latency(_ *effect.Settings, _ float64) int {
	f.latencyQueries++
	return f.latency
}

func (f *fakeInstance) RealtimeProcessEnd(_ *effect.Settings) bool {
	f.ends++
	return !f.failEnd
}

func (f *fakeInstance) RealtimeFinalize(_ *effect.Settings) bool {
	f.finals++
	return !f.failFinal
}

// newTestState registers mgr under id in a fresh registry and returns the
// engine for it.
func newTestState(id string, mgr effect.SettingsManager) *State {
	reg := effect.NewRegistry()
	_ = reg.Register(effect.Info{ID: id, Name: id, Version: "1.0.0"}, mgr)
	return NewState(reg, id)
}
