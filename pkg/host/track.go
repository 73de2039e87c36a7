// Package host implements the realtime hosting core for a single audio
// effect: the settings echo protocol between the main thread and the
// audio worker, the main-thread access facade, and the state engine that
// allocates channels to effect processors and drives the per-block
// processing protocol.
package host

import (
	"github.com/google/uuid"
)

// TrackID is the stable identity of one track whose channels are routed
// through the engine. It keys the per-scope processor group map.
type TrackID uuid.UUID

// NewTrackID returns a fresh track identity.
func NewTrackID() TrackID {
	return TrackID(uuid.New())
}

// String returns the canonical textual form of the identity.
func (t TrackID) String() string {
	return uuid.UUID(t).String()
}
