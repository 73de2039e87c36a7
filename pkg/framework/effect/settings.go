// Package effect defines the contract between the realtime hosting core
// and effect implementations: settings snapshots, secondary outputs, the
// settings manager, the processing instance, and the registry that
// resolves effect identifiers.
package effect

// Extra is control sub-state carried alongside the opaque settings
// payload. It travels with every settings snapshot but is copied directly
// rather than through the manager's content copy.
type Extra struct {
	// Active is the effect's activation flag. On the main-owned settings
	// it means "enabled"; on the worker-owned settings it is the flag the
	// audio thread consults during a processing scope.
	Active bool
}

// Settings holds an effect's configuration: an opaque payload interpreted
// only by the owning effect, plus the Extra control sub-state.
type Settings struct {
	Value any
	Extra Extra
}

// HasValue reports whether the payload is populated. Settings reachable
// from an engine's main-owned or worker-owned state always have a value;
// an empty Settings must never be written into shared state.
func (s *Settings) HasValue() bool {
	return s.Value != nil
}

// SettingsAndCounter pairs a settings snapshot with its monotonically
// increasing version counter.
type SettingsAndCounter struct {
	Settings Settings
	Counter  uint64
}

// Outputs is secondary state an effect produces for its UI (meter values
// and the like), exchanged from the worker back to the main thread.
type Outputs interface {
	// Clone returns an independent copy with its own storage.
	Clone() Outputs

	// Assign copies the content of other into the receiver without
	// relocating the receiver's storage, so the worker side can call it
	// without allocating.
	Assign(other Outputs)
}

// SettingsManager is an effect's factory surface: it makes settings,
// outputs and processing instances, and knows how to copy its own opaque
// settings payload.
type SettingsManager interface {
	// MakeSettings returns freshly built, populated settings.
	MakeSettings() Settings

	// MakeOutputs returns a new outputs object, or nil if the effect
	// produces none.
	MakeOutputs() Outputs

	// MakeInstance returns a new processing instance, or nil if one
	// cannot be made.
	MakeInstance() Instance

	// CopySettingsContents copies the payload content of src into dst
	// without relocating dst's storage. The Extra sub-state is not the
	// manager's concern; callers copy it directly.
	CopySettingsContents(src, dst *Settings)
}

// Instance is one realtime processing instantiation of an effect. Its
// lifecycle entries (RealtimeInitialize, RealtimeFinalize) are called by
// the main thread outside any active processing scope; the per-scope and
// per-block entries are called only by the worker thread. That temporal
// separation substitutes for a lock.
//
// No entry may raise a panic across the worker boundary; every entry
// reports failure through its boolean or count result.
type Instance interface {
	// AudioInCount and AudioOutCount report how many input and output
	// channels one processor of this instance consumes and produces.
	AudioInCount() int
	AudioOutCount() int

	// SetBlockSize fixes the maximum samples per processing call;
	// BlockSize reports the fixed size.
	SetBlockSize(n int)
	BlockSize() int

	RealtimeInitialize(settings *Settings, sampleRate float64) bool

	// RealtimeAddProcessor binds one new processor to a window of numIn
	// input channels. Processors are indexed in creation order.
	RealtimeAddProcessor(settings *Settings, outputs Outputs, numIn int, sampleRate float64) bool

	RealtimeResume() bool
	RealtimeSuspend() bool

	RealtimeProcessStart(settings *Settings) bool

	// RealtimeProcess runs one block through the given processor, reading
	// up to numSamples from each channel of in and writing to out.
	// Entries of out may be nil when the host has fewer channels than the
	// processor produces. It returns the number of samples produced on
	// the processor's outputs.
	RealtimeProcess(processor int, settings *Settings, in, out [][]float32, numSamples int) int

	// Latency reports the instance's fixed processing delay in samples.
	Latency(settings *Settings, sampleRate float64) int

	RealtimeProcessEnd(settings *Settings) bool
	RealtimeFinalize(settings *Settings) bool
}
