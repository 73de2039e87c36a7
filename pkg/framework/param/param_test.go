package param

import (
	"testing"
)

func TestParameterNormalization(t *testing.T) {
	p := New(0, "Gain", -24, 24, 0).WithUnit("dB")

	if got := p.GetPlainValue(); got != 0 {
		t.Errorf("Expected default plain value 0, got %f", got)
	}
	if got := p.GetValue(); got != 0.5 {
		t.Errorf("Expected default normalized 0.5, got %f", got)
	}

	p.SetPlainValue(24)
	if got := p.GetValue(); got != 1 {
		t.Errorf("Expected normalized 1 at max, got %f", got)
	}

	p.SetPlainValue(100)
	if got := p.GetValue(); got != 1 {
		t.Errorf("Expected clamp to 1, got %f", got)
	}

	p.SetValue(-0.5)
	if got := p.GetValue(); got != 0 {
		t.Errorf("Expected clamp to 0, got %f", got)
	}
}

func TestParameterFormatAndParse(t *testing.T) {
	p := New(1, "Mix", 0, 1, 0.25)

	if got := p.FormatValue(0.5); got != "0.50" {
		t.Errorf("Expected '0.50', got %q", got)
	}

	norm, err := p.ParseValue("0.75")
	if err != nil {
		t.Fatalf("ParseValue failed: %v", err)
	}
	if norm != 0.75 {
		t.Errorf("Expected 0.75, got %f", norm)
	}

	if _, err := p.ParseValue("not a number"); err == nil {
		t.Error("Expected parse error")
	}
}

func TestRegistryCopyValues(t *testing.T) {
	mk := func() *Registry {
		return NewRegistry().Add(
			New(0, "Time", 0.001, 2, 0.25),
			New(1, "Feedback", 0, 0.99, 0.35),
		)
	}
	src := mk()
	dst := mk()

	src.Get(0).SetPlainValue(1.5)
	src.Get(1).SetPlainValue(0.5)

	dst.CopyValuesFrom(src)

	if got := dst.PlainValue(0); got < 1.499 || got > 1.501 {
		t.Errorf("Expected time 1.5, got %f", got)
	}
	if got := dst.PlainValue(1); got < 0.499 || got > 0.501 {
		t.Errorf("Expected feedback 0.5, got %f", got)
	}
}

func TestRegistryForEachOrder(t *testing.T) {
	r := NewRegistry().Add(
		New(3, "C", 0, 1, 0),
		New(1, "A", 0, 1, 0),
		New(2, "B", 0, 1, 0),
	)

	var ids []uint32
	r.ForEach(func(p *Parameter) { ids = append(ids, p.ID) })

	want := []uint32{3, 1, 2}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("Expected ids[%d]=%d, got %d", i, want[i], ids[i])
		}
	}
}

func TestRegistryDuplicateAdd(t *testing.T) {
	a := New(1, "A", 0, 1, 0)
	b := New(1, "B", 0, 1, 0)
	r := NewRegistry().Add(a, b)

	if r.Count() != 1 {
		t.Errorf("Expected duplicate ID to be skipped, count=%d", r.Count())
	}
	if r.Get(1) != a {
		t.Error("Expected first registration to win")
	}
}
