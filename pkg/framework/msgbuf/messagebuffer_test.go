package msgbuf

import (
	"sync"
	"testing"
)

func TestReadBeforeWrite(t *testing.T) {
	b := New[int]()

	called := false
	if b.Read(func(*int) { called = true }) {
		t.Error("Expected no update before first write")
	}
	if called {
		t.Error("Expected merge not to be called before first write")
	}
}

func TestWriteThenRead(t *testing.T) {
	b := New[int]()
	b.Write(42)

	var got int
	if !b.Read(func(p *int) { got = *p }) {
		t.Fatal("Expected an update after write")
	}
	if got != 42 {
		t.Errorf("Expected 42, got %d", got)
	}

	// Consumed; nothing new until next write
	if b.Read(func(*int) {}) {
		t.Error("Expected no update after value was consumed")
	}
}

func TestLatestWins(t *testing.T) {
	b := New[int]()
	b.Write(1)
	b.Write(2)
	b.Write(3)

	var got int
	if !b.Read(func(p *int) { got = *p }) {
		t.Fatal("Expected an update")
	}
	if got != 3 {
		t.Errorf("Expected latest value 3, got %d", got)
	}
}

func TestSeedWritesFillBothCells(t *testing.T) {
	b := New[string]()
	b.Write("seed")
	b.Write("seed")

	for i := 0; i < 2; i++ {
		if b.cells[i].data != "seed" {
			t.Errorf("Expected cell %d to be seeded, got %q", i, b.cells[i].data)
		}
	}
}

func TestMergeIntoWorkingCopy(t *testing.T) {
	type payload struct{ values []float64 }

	b := New[payload]()
	b.Write(payload{values: []float64{1, 2, 3}})

	// Reader merges content into its own storage instead of replacing it.
	working := payload{values: make([]float64, 3)}
	backing := &working.values[0]
	if !b.Read(func(p *payload) { copy(working.values, p.values) }) {
		t.Fatal("Expected an update")
	}
	if backing != &working.values[0] {
		t.Error("Expected the working copy's storage not to relocate")
	}
	if working.values[2] != 3 {
		t.Errorf("Expected merged content, got %v", working.values)
	}
}

// One writer and one reader hammer the buffer; the reader must only ever
// observe fully-formed values, in non-decreasing order, ending with the
// last value written.
func TestConcurrentOrdering(t *testing.T) {
	type pair struct{ a, b uint64 }

	const writes = 100000
	b := New[pair]()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := uint64(1); i <= writes; i++ {
			b.Write(pair{a: i, b: i * 2})
		}
	}()

	var last uint64
	for last < writes {
		b.Read(func(p *pair) {
			if p.b != p.a*2 {
				t.Errorf("Torn read: a=%d b=%d", p.a, p.b)
			}
			if p.a < last {
				t.Errorf("Value went backwards: %d after %d", p.a, last)
			}
			last = p.a
		})
	}
	wg.Wait()

	if last != writes {
		t.Errorf("Expected final value %d, got %d", writes, last)
	}
}
