package host

import (
	"sync/atomic"
	"time"

	"github.com/soundfold/rtfx/pkg/framework/effect"
)

// handle is a non-owning reference to a State with a liveness check: the
// engine clears it at Close, after which every facade that shares it
// degrades to safe defaults instead of touching a dead engine. All
// facades of one engine share one handle, which is what makes IsSameAs
// an identity comparison.
type handle struct {
	p atomic.Pointer[State]
}

func newHandle(s *State) *handle {
	h := &handle{}
	if s != nil {
		h.p.Store(s)
	}
	return h
}

func (h *handle) get() *State {
	return h.p.Load()
}

// deadHandle backs facades handed out before an engine's effect resolves.
// Shared so that two such facades compare equal, the same way two null
// weak references are equivalent.
var deadHandle = &handle{}

// SettingsAccess is the UI-side interface to an engine's settings. It is
// safe to hold after the engine is gone.
type SettingsAccess interface {
	// Get returns the last settings the holder wrote, freshened by one
	// non-blocking poll of the worker's progress.
	Get() effect.Settings

	// Set replaces the settings and publishes them toward the worker.
	Set(settings effect.Settings)

	// Modify lets the caller edit the remembered settings in place, then
	// publishes the result toward the worker.
	Modify(fn func(*effect.Settings))

	// Flush blocks until the worker has observed the last write, then
	// commits it to the engine's main-owned settings.
	Flush()

	// IsSameAs reports whether other addresses the same engine.
	IsSameAs(other SettingsAccess) bool
}

// Access is the main-thread facade over an engine's settings echo
// protocol. It stores nothing but the engine handle, so IsSameAs cannot
// lie about identity.
type Access struct {
	h *handle
}

var _ SettingsAccess = (*Access)(nil)

// emptySettings is returned when the engine is gone or not yet able to
// satisfy a read. Never a dangling reference.
var emptySettings effect.Settings

// Get returns the remembered last-written settings after one
// opportunistic, non-blocking flush attempt. If the engine is gone or
// its echo protocol is not yet running, it returns an empty value.
func (a *Access) Get() effect.Settings {
	if st := a.h.get(); st != nil {
		if as := st.access.Load(); as != nil {
			if st.initialized {
				a.flushAttempt(as) // try once, ignore success
			}
			// Not yet initialized: not waiting on the other thread's
			// progress, and not necessarily values in the engine's own
			// settings yet; the remembered snapshot is still the answer.
			return as.lastSettings.Settings
		}
	}
	// A non-modal dialog may have outlived the engine
	return emptySettings
}

// Set replaces the remembered settings payload, increments the version
// counter, and publishes a copy toward the worker. Settings without a
// value are rejected: an empty payload must never enter shared state.
func (a *Access) Set(settings effect.Settings) {
	if !settings.HasValue() {
		// Protect the invariant
		return
	}
	if st := a.h.get(); st != nil {
		if as := st.access.Load(); as != nil {
			as.lastSettings.Settings = settings
			as.lastSettings.Counter++
			as.MainWrite(as.cloneSnapshot(as.lastSettings))
		}
	}
}

// Modify edits the remembered settings in place and publishes the result,
// sparing callers a Get/Set round trip for small changes.
func (a *Access) Modify(fn func(*effect.Settings)) {
	if st := a.h.get(); st != nil {
		if as := st.access.Load(); as != nil {
			fn(&as.lastSettings.Settings)
			as.lastSettings.Counter++
			as.MainWrite(as.cloneSnapshot(as.lastSettings))
		}
	}
}

// Flush waits until the worker has echoed the last write, polling with a
// bounded sleep between attempts, then commits the remembered snapshot to
// the engine's main-owned settings (the value Get and persistence see).
// If the processing scope is not initialized there is no worker to wait
// for, and the commit happens immediately.
func (a *Access) Flush() {
	st := a.h.get()
	if st == nil {
		return
	}
	as := st.access.Load()
	if as == nil {
		return
	}
	if st.initialized {
		for !a.flushAttempt(as) {
			// Wait for progress of the audio thread
			time.Sleep(st.flushPoll)
		}
	}
	st.commitMainSettings(as.lastSettings)
}

// IsSameAs reports whether the two facades resolve to the same engine,
// compared by ownership identity rather than settings content.
func (a *Access) IsSameAs(other SettingsAccess) bool {
	if o, ok := other.(*Access); ok {
		return a.h == o.h
	}
	return false
}

func (a *Access) flushAttempt(as *accessState) bool {
	return as.flushAttempt()
}
