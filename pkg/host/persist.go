package host

import (
	"fmt"
	"io"

	"github.com/soundfold/rtfx/pkg/framework/param"
	"github.com/soundfold/rtfx/pkg/framework/state"
)

// parameterized is implemented by settings payloads that expose their
// values as a parameter registry. Payloads that do not are persisted with
// an empty parameter blob.
type parameterized interface {
	Params() *param.Registry
}

// WriteState saves the engine's identifier, activation flag, version tag
// and named-parameter blob to w. The parameter semantics stay opaque:
// names and values are written as the effect exposes them. With no
// resolved effect there is nothing to save and WriteState is a no-op.
// Main thread only, outside any scope.
func (s *State) WriteState(w io.Writer) error {
	if s.plugin == nil {
		return nil
	}

	blob := state.Blob{
		ID:     s.id,
		Active: s.IsEnabled(),
	}
	if info, ok := s.registry.InfoFor(s.id); ok {
		blob.Version = info.Version
	}
	if p, ok := s.mainSettings.Settings.Value.(parameterized); ok {
		p.Params().ForEach(func(pp *param.Parameter) {
			blob.Params = append(blob.Params, state.NamedValue{
				Name:  pp.Name,
				Value: pp.GetValue(),
			})
		})
	}
	return state.NewManager().Save(w, blob)
}

// ReadState restores the engine's activation flag and parameter values
// from r. The stored identifier must match the engine's; parameters whose
// names the effect no longer exposes are ignored. Main thread only,
// outside any scope.
func (s *State) ReadState(r io.Reader) error {
	blob, err := state.NewManager().Load(r)
	if err != nil {
		return err
	}
	if blob.ID != s.id {
		return fmt.Errorf("state is for effect %q, engine hosts %q", blob.ID, s.id)
	}

	// The activation flag is restored even when the effect itself cannot
	// be resolved, so it survives a round trip past a missing effect.
	s.mainSettings.Settings.Extra.Active = blob.Active

	if s.getEffect() == nil {
		return nil
	}
	if p, ok := s.mainSettings.Settings.Value.(parameterized); ok {
		reg := p.Params()
		byName := make(map[string]*param.Parameter, reg.Count())
		reg.ForEach(func(pp *param.Parameter) { byName[pp.Name] = pp })
		for _, nv := range blob.Params {
			if pp := byName[nv.Name]; pp != nil {
				pp.SetValue(nv.Value)
			}
		}
	}
	return nil
}
