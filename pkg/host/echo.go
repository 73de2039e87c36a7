package host

import (
	"github.com/soundfold/rtfx/pkg/framework/effect"
	"github.com/soundfold/rtfx/pkg/framework/msgbuf"
)

// response is what the worker sends back to the main thread: the counter
// of the snapshot it has applied, plus its secondary outputs.
type response struct {
	counter uint64
	outputs effect.Outputs
}

// fromMainSlot carries a settings snapshot from the main thread to the
// worker.
type fromMainSlot struct {
	settings effect.SettingsAndCounter
}

// toMainSlot carries a response from the worker to the main thread. Its
// outputs object is cloned once at initialization and thereafter only
// assigned into, so the worker's writes never allocate.
type toMainSlot struct {
	resp response
}

// accessState mediates two-way inter-thread communication of settings
// changes: one mailbox channel per direction. Exactly one exists per
// engine, created on first main-thread access.
type accessState struct {
	effect effect.SettingsManager
	state  *State

	fromMain *msgbuf.Buffer[fromMainSlot]
	toMain   *msgbuf.Buffer[toMainSlot]

	// counter is the worker-applied counter most recently drained by
	// MainRead. Main thread only.
	counter uint64

	// lastSettings remembers the last snapshot the main thread wrote.
	// Its payload is always populated.
	lastSettings effect.SettingsAndCounter
}

func newAccessState(mgr effect.SettingsManager, state *State) *accessState {
	a := &accessState{
		effect:   mgr,
		state:    state,
		fromMain: msgbuf.New[fromMainSlot](),
		toMain:   msgbuf.New[toMainSlot](),
	}
	a.initialize(&state.mainSettings, state.movedOutputs)
	return a
}

// initialize resets the snapshot's counter, remembers it as the last
// written settings, and seeds each mailbox channel's two cells so both
// directions have defined starting content before the worker runs.
func (a *accessState) initialize(settings *effect.SettingsAndCounter, outputs effect.Outputs) {
	settings.Counter = 0
	a.lastSettings = a.cloneSnapshot(*settings)
	for i := 0; i < 2; i++ {
		resp := response{counter: 0}
		if outputs != nil {
			resp.outputs = outputs.Clone()
		}
		a.toMain.Write(toMainSlot{resp: resp})
		a.fromMain.Write(fromMainSlot{settings: a.cloneSnapshot(*settings)})
	}
}

// cloneSnapshot deep-copies a snapshot so the clone shares no storage
// with the original. Main thread only; it allocates.
func (a *accessState) cloneSnapshot(src effect.SettingsAndCounter) effect.SettingsAndCounter {
	clone := effect.SettingsAndCounter{Counter: src.Counter}
	clone.Settings = a.effect.MakeSettings()
	a.effect.CopySettingsContents(&src.Settings, &clone.Settings)
	clone.Settings.Extra = src.Settings.Extra
	return clone
}

// MainRead drains the worker-to-main channel: merges any secondary output
// content into the engine's main-owned outputs without relocating them,
// and records the worker-applied counter.
func (a *accessState) MainRead() {
	a.toMain.Read(func(slot *toMainSlot) {
		if a.state.movedOutputs != nil && slot.resp.outputs != nil {
			a.state.movedOutputs.Assign(slot.resp.outputs)
		}
		a.counter = slot.resp.counter
	})
}

// MainWrite publishes a settings snapshot toward the worker. It never
// blocks; the main thread may allocate freely before calling it.
func (a *accessState) MainWrite(settings effect.SettingsAndCounter) {
	a.fromMain.Write(fromMainSlot{settings: settings})
}

// WorkerRead drains the main-to-worker channel into the engine's
// worker-owned settings. The content is copied only when the published
// counter differs from the counter the worker already holds, and the copy
// goes through CopySettingsContents so the worker's owned containers do
// not relocate. No allocation.
func (a *accessState) WorkerRead() {
	a.fromMain.Read(func(slot *fromMainSlot) {
		worker := &a.state.workerSettings
		if slot.settings.Counter == worker.Counter {
			return // copy once
		}
		worker.Counter = slot.settings.Counter
		a.effect.CopySettingsContents(&slot.settings.Settings, &worker.Settings)
		worker.Settings.Extra = slot.settings.Settings.Extra
	})
}

// WorkerWrite publishes the worker's current counter and outputs toward
// the main thread. It never blocks and never allocates: the cell's cloned
// outputs object is assigned into, not replaced.
func (a *accessState) WorkerWrite() {
	counter := a.state.workerSettings.Counter
	outputs := a.state.outputs
	a.toMain.WriteWith(func(slot *toMainSlot) {
		slot.resp.counter = counter
		if slot.resp.outputs != nil && outputs != nil {
			slot.resp.outputs.Assign(outputs)
		}
	})
}

// flushAttempt tries once to detect that the worker has echoed the main
// thread's last write. Requires the engine's processing scope to be
// initialized.
func (a *accessState) flushAttempt() bool {
	a.MainRead()
	return a.counter == a.lastSettings.Counter
}
