// Package param provides effect parameters with lock-free value access,
// suitable for reading on the audio thread while another thread writes.
package param

import (
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
)

// Parameter represents one effect parameter. The value is stored
// normalized in [0, 1] and accessed atomically, so the worker thread can
// read it without locks while the main thread writes it.
type Parameter struct {
	ID           uint32
	Name         string
	Unit         string
	Min          float64
	Max          float64
	DefaultValue float64
	StepCount    int32

	// Atomic bits of the normalized value
	value atomic.Uint64

	formatFunc func(float64) string
	parseFunc  func(string) (float64, error)
}

// New creates a parameter with the given range and default plain value.
func New(id uint32, name string, min, max, def float64) *Parameter {
	p := &Parameter{
		ID:           id,
		Name:         name,
		Min:          min,
		Max:          max,
		DefaultValue: def,
	}
	p.SetPlainValue(def)
	return p
}

// WithUnit sets the display unit and returns the parameter.
func (p *Parameter) WithUnit(unit string) *Parameter {
	p.Unit = unit
	return p
}

// GetValue returns the current normalized value (0-1).
func (p *Parameter) GetValue() float64 {
	return math.Float64frombits(p.value.Load())
}

// SetValue sets the normalized value, clamped to 0-1.
func (p *Parameter) SetValue(value float64) {
	if value < 0 {
		value = 0
	} else if value > 1 {
		value = 1
	}
	p.value.Store(math.Float64bits(value))
}

// GetPlainValue converts the current normalized value to a plain value.
func (p *Parameter) GetPlainValue() float64 {
	return p.Denormalize(p.GetValue())
}

// SetPlainValue converts plain to normalized and stores it.
func (p *Parameter) SetPlainValue(plain float64) {
	p.SetValue(p.Normalize(plain))
}

// SetFormatter sets custom value formatting and parsing.
func (p *Parameter) SetFormatter(format func(float64) string, parse func(string) (float64, error)) {
	p.formatFunc = format
	p.parseFunc = parse
}

// FormatValue returns the formatted plain value for a normalized value.
func (p *Parameter) FormatValue(normalized float64) string {
	plain := p.Denormalize(normalized)
	if p.formatFunc != nil {
		return p.formatFunc(plain)
	}
	if p.StepCount > 0 {
		return fmt.Sprintf("%.0f", plain)
	}
	return fmt.Sprintf("%.2f", plain)
}

// ParseValue parses a string to a normalized value.
func (p *Parameter) ParseValue(str string) (float64, error) {
	if p.parseFunc != nil {
		plain, err := p.parseFunc(str)
		if err != nil {
			return 0, err
		}
		return p.Normalize(plain), nil
	}
	plain, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, err
	}
	return p.Normalize(plain), nil
}

// Normalize converts a plain value to normalized (0-1), clamped.
func (p *Parameter) Normalize(plain float64) float64 {
	if p.Max <= p.Min {
		return 0
	}
	normalized := (plain - p.Min) / (p.Max - p.Min)
	if normalized < 0 {
		return 0
	}
	if normalized > 1 {
		return 1
	}
	return normalized
}

// Denormalize converts a normalized (0-1) value to a plain value.
func (p *Parameter) Denormalize(normalized float64) float64 {
	return p.Min + normalized*(p.Max-p.Min)
}
