package host

import (
	"sync"
	"testing"
	"time"

	"github.com/soundfold/rtfx/pkg/framework/effect"
)

func TestSetRejectsEmptySettings(t *testing.T) {
	mgr := &fakeManager{instance: newFakeInstance(2, 2)}
	st := newTestState("com.test.fx", mgr)
	access := st.GetAccess()

	as := st.access.Load()
	counterBefore := as.lastSettings.Counter

	access.Set(effect.Settings{}) // no value: must be a no-op

	if as.lastSettings.Counter != counterBefore {
		t.Error("Expected empty settings to be rejected")
	}
	if !as.lastSettings.Settings.HasValue() {
		t.Error("Expected remembered settings to stay populated")
	}
}

func TestGetAfterEngineCloseReturnsEmpty(t *testing.T) {
	mgr := &fakeManager{instance: newFakeInstance(2, 2)}
	st := newTestState("com.test.fx", mgr)
	access := st.GetAccess()

	st.Close()

	got := access.Get()
	if got.HasValue() {
		t.Error("Expected empty settings after engine close")
	}
	// Set and Flush after close must not fault
	s := mgr.MakeSettings()
	access.Set(s)
	access.Flush()
}

func TestGetBeforeInitializationReturnsRememberedSettings(t *testing.T) {
	mgr := &fakeManager{instance: newFakeInstance(2, 2)}
	st := newTestState("com.test.fx", mgr)
	access := st.GetAccess()

	s := mgr.MakeSettings()
	payloadOf(s).data[0] = 3
	access.Set(s)

	// No scope initialized: Get answers from the remembered snapshot
	// without waiting on any worker.
	got := access.Get()
	if payloadOf(got).data[0] != 3 {
		t.Errorf("Expected remembered settings, got %g", payloadOf(got).data[0])
	}
}

func TestFlushWithoutScopeCommitsImmediately(t *testing.T) {
	mgr := &fakeManager{instance: newFakeInstance(2, 2)}
	st := newTestState("com.test.fx", mgr)
	access := st.GetAccess()

	s := mgr.MakeSettings()
	payloadOf(s).data[2] = 7
	access.Set(s)
	access.Flush() // no worker to wait for

	if got := payloadOf(st.mainSettings.Settings).data[2]; got != 7 {
		t.Errorf("Expected committed main settings value 7, got %g", got)
	}
}

func TestFlushTerminatesOnceWorkerEchoes(t *testing.T) {
	mgr := &fakeManager{instance: newFakeInstance(2, 2)}
	st := newTestState("com.test.fx", mgr)
	st.SetFlushPollInterval(time.Millisecond)
	access := st.GetAccess()
	if st.EnsureInstance(48000) == nil {
		t.Fatal("EnsureInstance failed")
	}

	// A worker loop drives the block protocol until told to stop
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				st.ProcessStart(true)
				st.ProcessEnd()
				time.Sleep(100 * time.Microsecond)
			}
		}
	}()

	s := mgr.MakeSettings()
	payloadOf(s).data[0] = 11
	access.Set(s)
	access.Flush() // must terminate once the worker has echoed

	close(done)
	wg.Wait()

	if got := payloadOf(st.mainSettings.Settings).data[0]; got != 11 {
		t.Errorf("Expected flushed value 11, got %g", got)
	}
}

func TestIsSameAsComparesEngineIdentity(t *testing.T) {
	mgr1 := &fakeManager{instance: newFakeInstance(2, 2)}
	mgr2 := &fakeManager{instance: newFakeInstance(2, 2)}
	st1 := newTestState("com.test.fx", mgr1)
	st2 := newTestState("com.test.fx", mgr2)

	a1 := st1.GetAccess()
	a2 := st1.GetAccess()
	b := st2.GetAccess()

	if !a1.IsSameAs(a2) {
		t.Error("Expected two facades of one engine to be the same")
	}
	if a1.IsSameAs(b) {
		t.Error("Expected facades of different engines to differ")
	}

	// Dummy facades (unresolvable effect) are all equivalent
	d1 := NewState(effect.NewRegistry(), "com.test.missing").GetAccess()
	d2 := NewState(effect.NewRegistry(), "com.test.missing").GetAccess()
	if !d1.IsSameAs(d2) {
		t.Error("Expected dummy facades to compare equal")
	}
	if d1.IsSameAs(a1) {
		t.Error("Expected dummy facade to differ from a live one")
	}
}

func TestModifyPublishesChange(t *testing.T) {
	mgr := &fakeManager{instance: newFakeInstance(2, 2)}
	st := newTestState("com.test.fx", mgr)
	access := st.GetAccess()

	access.Modify(func(s *effect.Settings) {
		s.Extra.Active = true
	})

	as := st.access.Load()
	if as.lastSettings.Counter != 1 {
		t.Errorf("Expected counter bump, got %d", as.lastSettings.Counter)
	}
	if !as.lastSettings.Settings.Extra.Active {
		t.Error("Expected modification to be remembered")
	}
}
