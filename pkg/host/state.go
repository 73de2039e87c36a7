package host

import (
	"sync/atomic"
	"time"

	"github.com/soundfold/rtfx/pkg/framework/debug"
	"github.com/soundfold/rtfx/pkg/framework/effect"
)

// defaultBlockSize conserves the block size the original hosting code
// always used; no derivation for the number is known.
const defaultBlockSize = 512

// defaultFlushPoll is the sleep between flush attempts while the main
// thread waits for the worker to echo a write. Tunable via
// SetFlushPollInterval; the default has no documented derivation.
const defaultFlushPoll = 50 * time.Millisecond

// StateChange is the notification emitted when the effect is switched on
// or off from the main thread.
type StateChange int

const (
	// EffectOn reports the effect was enabled.
	EffectOn StateChange = iota
	// EffectOff reports the effect was disabled.
	EffectOff
)

type groupEntry struct {
	first      int     // index of the group's first processor
	sampleRate float64 // track sample rate, for latency queries
}

// State is the realtime hosting engine for one effect. The main thread
// owns its lifecycle entries (EnsureInstance, AddTrack, Finalize, the
// facade); exactly one worker thread drives ProcessStart, Process and
// ProcessEnd during a processing scope. The two threads share nothing but
// the echo protocol's two mailbox channels.
type State struct {
	registry *effect.Registry
	id       string

	plugin effect.SettingsManager

	// mainSettings is owned by the main thread, workerSettings by the
	// worker during a scope. Their payloads never alias.
	mainSettings   effect.SettingsAndCounter
	workerSettings effect.SettingsAndCounter

	// outputs receives what the worker produces; movedOutputs is the
	// main-owned object the echo protocol merges responses into.
	outputs      effect.Outputs
	movedOutputs effect.Outputs

	instance effect.Instance

	// access is assigned at most once, by the main thread; the worker
	// loads it to reach the echo protocol.
	access atomic.Pointer[accessState]

	// self is the liveness handle shared with every facade.
	self *handle

	groups           map[TrackID]groupEntry
	currentProcessor int

	// latency is discovered once per processing scope and counted down
	// as discardable samples are produced.
	latency     int
	haveLatency bool

	// lastActive is the worker-side record of activity; transitions of
	// it trigger resume/suspend exactly once per edge.
	lastActive bool

	initialized bool

	blockSize int
	flushPoll time.Duration
	log       *debug.Logger

	observers []func(StateChange)

	// Channel window scratch, sized once per scope so Process does not
	// allocate.
	clientIn  [][]float32
	clientOut [][]float32
}

// NewState creates an engine for the effect registered under id in
// registry. If the identifier does not resolve, the engine still works:
// every operation degrades to pass-through.
func NewState(registry *effect.Registry, id string) *State {
	s := &State{
		registry:  registry,
		id:        id,
		groups:    make(map[TrackID]groupEntry),
		blockSize: defaultBlockSize,
		flushPoll: defaultFlushPoll,
		log:       debug.Default(),
	}
	s.self = newHandle(s)
	s.getEffect()
	return s
}

// ID returns the effect identifier the engine was created for.
func (s *State) ID() string {
	return s.id
}

// SetLogger replaces the engine's logger.
func (s *State) SetLogger(l *debug.Logger) {
	if l != nil {
		s.log = l
	}
}

// SetBlockSize overrides the processing block size fixed on the instance
// at the next scope initialization.
func (s *State) SetBlockSize(n int) {
	if n > 0 {
		s.blockSize = n
	}
}

// SetFlushPollInterval overrides the sleep between facade flush attempts.
func (s *State) SetFlushPollInterval(d time.Duration) {
	if d > 0 {
		s.flushPoll = d
	}
}

// OnChange registers an observer for on/off notifications. Main thread
// only; observers are invoked synchronously from SetActive.
func (s *State) OnChange(fn func(StateChange)) {
	s.observers = append(s.observers, fn)
}

// Close tears the engine down. Facades still held by dialogs degrade to
// safe defaults afterwards. Main thread only, outside any scope.
func (s *State) Close() {
	s.self.p.Store(nil)
	s.instance = nil
}

// getEffect lazily resolves the effect and builds its settings and
// outputs, preserving the activation flag across the rebuild.
func (s *State) getEffect() effect.SettingsManager {
	if s.plugin == nil {
		s.plugin = s.registry.Resolve(s.id)
		if s.plugin != nil {
			wasActive := s.mainSettings.Settings.Extra.Active
			s.mainSettings.Counter = 0
			s.mainSettings.Settings = s.plugin.MakeSettings()
			s.mainSettings.Settings.Extra.Active = wasActive
			s.outputs = s.plugin.MakeOutputs()
			s.movedOutputs = s.plugin.MakeOutputs()
		} else {
			s.log.Warn("effect %q not found in registry", s.id)
		}
	}
	return s.plugin
}

// GetInstance returns the processing instance, recycling the existing one
// or making a new one. Main thread only.
func (s *State) GetInstance() effect.Instance {
	if s.instance == nil && s.plugin != nil {
		s.instance = s.plugin.MakeInstance()
	}
	return s.instance
}

// EnsureInstance obtains the instance for a processing scope. On the
// first use in a scope it snapshots the main-owned settings into the
// worker-owned settings, captures the current activation state, fixes the
// processing block size, and runs the instance's realtime
// initialization. It returns nil if the effect cannot be resolved or
// initialization fails.
func (s *State) EnsureInstance(sampleRate float64) effect.Instance {
	if s.plugin == nil {
		return nil
	}

	if !s.initialized {
		// Copying settings on the main thread while the worker is not
		// yet running
		s.copySnapshot(&s.workerSettings, s.mainSettings)
		s.lastActive = s.IsActive()

		if s.GetInstance() == nil {
			return nil
		}
		s.instance.SetBlockSize(s.blockSize)

		if !s.instance.RealtimeInitialize(&s.mainSettings.Settings, sampleRate) {
			s.log.Warn("effect %q failed realtime initialization", s.id)
			return nil
		}

		s.clientIn = make([][]float32, s.instance.AudioInCount())
		s.clientOut = make([][]float32, s.instance.AudioOutCount())
		s.initialized = true

		s.log.Debug("effect %q initialized at %g Hz, block size %d",
			s.id, sampleRate, s.blockSize)
	}
	return s.instance
}

// Initialize enters a processing scope: it clears the processor group
// arena and the latency record, then ensures the instance.
func (s *State) Initialize(sampleRate float64) effect.Instance {
	if s.plugin == nil {
		return nil
	}
	s.currentProcessor = 0
	clear(s.groups)
	s.latency, s.haveLatency = 0, false
	return s.EnsureInstance(sampleRate)
}

// AddTrack allocates processors to cover chans channels of a track.
// The iteration over channels here and in Process must be the same.
func (s *State) AddTrack(track TrackID, chans int, sampleRate float64) effect.Instance {
	instance := s.EnsureInstance(sampleRate)
	if instance == nil || s.plugin == nil {
		return nil
	}
	first := s.currentProcessor
	numIn := instance.AudioInCount()
	numOut := instance.AudioOutCount()
	allocateChannelsToProcessors(chans, numIn, numOut, func(_, _ int) bool {
		// Add a new processor
		if instance.RealtimeAddProcessor(
			&s.workerSettings.Settings, s.outputs, numIn, sampleRate) {
			s.currentProcessor++
			return true
		}
		return false
	})
	if s.currentProcessor > first {
		// Remember the track's sample rate so latency can be computed
		// later
		s.groups[track] = groupEntry{first: first, sampleRate: sampleRate}
		return instance
	}
	return nil
}

// ProcessStart begins one block sequence on the worker thread. It drains
// pending settings changes from the main thread, applies at most one
// activation transition per edge, and starts the instance's per-scope
// processing. A false return tells the caller to pass audio through.
//
// It is only here that the answer of IsActive may change, so each scope
// sees a stable activity answer.
func (s *State) ProcessStart(running bool) bool {
	if as := s.access.Load(); as != nil {
		as.WorkerRead()
	}

	// Detect transitions of activity
	active := s.IsActive() && running
	if active != s.lastActive {
		if s.instance != nil {
			var ok bool
			if active {
				ok = s.instance.RealtimeResume()
			} else {
				ok = s.instance.RealtimeSuspend()
			}
			if !ok {
				return false
			}
		}
		s.lastActive = active
	}

	if s.instance == nil || !active {
		return false
	}

	// Inside a processing scope, use the worker settings
	return s.instance.RealtimeProcessStart(&s.workerSettings.Settings)
}

// Process runs numSamples of a track's channels through the processors
// allocated for it in AddTrack, visiting them in the same order. The
// return value is the count of trailing samples not yet available because
// of the effect's latency; the caller should withhold that many. With no
// instance, or while inactive, input is copied to output unchanged and 0
// is returned.
func (s *State) Process(track TrackID, chans int, inbuf, outbuf [][]float32, numSamples int) int {
	if s.plugin == nil || s.instance == nil || !s.lastActive {
		// Process trivially
		for i := 0; i < chans; i++ {
			copy(outbuf[i][:numSamples], inbuf[i][:numSamples])
		}
		return 0
	}

	numIn := s.instance.AudioInCount()
	numOut := s.instance.AudioOutCount()
	clientIn := s.clientIn[:numIn]
	clientOut := s.clientOut[:numOut]

	produced := 0
	pair := s.groups[track]
	processor := pair.first

	// Outer loop over processors
	allocateChannelsToProcessors(chans, numIn, numOut, func(indx, ondx int) bool {
		// Point at the correct input buffers
		copied := min(chans-indx, numIn)
		copy(clientIn[:copied], inbuf[indx:indx+copied])
		// If there are too few input channels for what the processor
		// requires, re-use input channels from the beginning
		for copied < numIn {
			more := min(chans, numIn-copied)
			copy(clientIn[copied:copied+more], inbuf[:more])
			copied += more
		}

		// Point at the correct output buffers
		copied = min(chans-ondx, numOut)
		copy(clientOut[:copied], outbuf[ondx:ondx+copied])
		for i := copied; i < numOut; i++ {
			// Make determinate entries
			clientOut[i] = nil
		}

		// Inner loop over blocks
		blockSize := s.instance.BlockSize()
		for block := 0; block < numSamples; block += blockSize {
			cnt := min(numSamples-block, blockSize)
			// Inside a processing scope, use the worker settings
			processed := s.instance.RealtimeProcess(processor,
				&s.workerSettings.Settings, clientIn, clientOut, cnt)
			if !s.haveLatency {
				// Find latency once only per initialization scope,
				// after processing one block
				s.latency = s.instance.Latency(&s.workerSettings.Settings, pair.sampleRate)
				s.haveLatency = true
			}
			for i := range clientIn {
				if clientIn[i] != nil {
					clientIn[i] = clientIn[i][cnt:]
				}
			}
			for i := range clientOut {
				if clientOut[i] != nil {
					clientOut[i] = clientOut[i][cnt:]
				}
			}
			if ondx == 0 {
				// For the first processor only
				produced += processed
				discard := min(produced, s.latency)
				produced -= discard
				s.latency -= discard
			}
		}
		processor++
		return true
	})
	// Report the number discardable during the processing scope,
	// assuming every processor produced as much as the first
	return numSamples - produced
}

// ProcessEnd finishes one block sequence on the worker thread. The echo
// protocol's worker write always happens, regardless of activity, so
// UI-facing dialogs can observe worker-side progress.
func (s *State) ProcessEnd() bool {
	result := s.instance != nil && s.IsActive() && s.lastActive &&
		// Inside a processing scope, use the worker settings
		s.instance.RealtimeProcessEnd(&s.workerSettings.Settings)

	if as := s.access.Load(); as != nil {
		// Always done: some dialogs require communication back from the
		// worker to update their appearance in idle time
		as.WorkerWrite()
	}

	return result
}

// IsEnabled reports the main-thread-visible activation flag.
func (s *State) IsEnabled() bool {
	return s.mainSettings.Settings.Extra.Active
}

// IsActive reports the worker-side activation flag. During a scope the
// effective answer also depends on the transport's running flag, folded
// in by ProcessStart.
func (s *State) IsActive() bool {
	return s.workerSettings.Settings.Extra.Active
}

// SetActive switches the effect on or off from the main thread: it writes
// the activation flag through the facade, flushes so the change is
// durably visible before returning, and notifies observers.
func (s *State) SetActive(active bool) {
	access := s.GetAccess()
	access.Modify(func(settings *effect.Settings) {
		settings.Extra.Active = active
	})
	access.Flush()

	change := EffectOff
	if active {
		change = EffectOn
	}
	s.log.Debug("effect %q active=%v", s.id, active)
	for _, fn := range s.observers {
		fn(change)
	}
}

// Finalize leaves a processing scope: the main thread copies the
// worker-owned settings back into the main-owned settings, clears the
// processor group arena, finalizes the instance, and forgets the
// discovered latency. It returns false if there is no instance.
func (s *State) Finalize() bool {
	// The main thread cleaning up a state not now used in processing
	if s.workerSettings.Settings.HasValue() {
		s.copySnapshot(&s.mainSettings, s.workerSettings)
	}

	clear(s.groups)
	s.currentProcessor = 0

	if s.instance == nil {
		return false
	}

	result := s.instance.RealtimeFinalize(&s.mainSettings.Settings)
	s.latency, s.haveLatency = 0, false
	s.initialized = false
	return result
}

// GetAccess returns a facade on this engine's settings, creating the echo
// protocol on first use. Main thread only. If the effect cannot be
// resolved the facade is a dummy that answers with safe defaults.
func (s *State) GetAccess() *Access {
	if s.getEffect() == nil || !s.mainSettings.Settings.HasValue() {
		// Return a dummy
		return &Access{h: deadHandle}
	}

	// Only the main thread assigns the pointer, here and once only in
	// the engine's lifetime
	if s.access.Load() == nil {
		s.access.Store(newAccessState(s.plugin, s))
	}
	return &Access{h: s.self}
}

// copySnapshot copies src's payload content into dst without relocating
// dst's storage, building dst's payload first if it has none, then copies
// the control sub-state and counter. Main thread only.
func (s *State) copySnapshot(dst *effect.SettingsAndCounter, src effect.SettingsAndCounter) {
	if !dst.Settings.HasValue() {
		dst.Settings = s.plugin.MakeSettings()
	}
	s.plugin.CopySettingsContents(&src.Settings, &dst.Settings)
	dst.Settings.Extra = src.Settings.Extra
	dst.Counter = src.Counter
}

// commitMainSettings makes snap the value returned by the engine's
// main-owned settings (and thus by persistence).
func (s *State) commitMainSettings(snap effect.SettingsAndCounter) {
	s.copySnapshot(&s.mainSettings, snap)
}
