// Package state handles saving and loading of hosted effect state: the
// effect identifier, its activation flag, a version tag, and a blob of
// named parameter values. The content of the parameter blob is opaque to
// this package; it is written and reread without interpreting what any
// parameter means to its effect.
package state

import (
	"encoding/binary"
	"fmt"
	"io"
)

const magic = "RTFX"

// Blob is the persisted form of one hosted effect's state.
type Blob struct {
	ID      string // Effect identifier
	Version string // Effect version tag at save time
	Active  bool   // Activation flag
	Params  []NamedValue
}

// NamedValue is one named parameter entry of the blob.
type NamedValue struct {
	Name  string
	Value float64
}

// Manager reads and writes effect state blobs.
type Manager struct {
	version uint32
}

// NewManager creates a state manager for the current format version.
func NewManager() *Manager {
	return &Manager{version: 1}
}

// Save writes a blob to w.
func (m *Manager) Save(w io.Writer, blob Blob) error {
	if _, err := w.Write([]byte(magic)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, m.version); err != nil {
		return err
	}

	if err := writeString(w, blob.ID); err != nil {
		return err
	}
	if err := writeString(w, blob.Version); err != nil {
		return err
	}

	var active uint8
	if blob.Active {
		active = 1
	}
	if err := binary.Write(w, binary.LittleEndian, active); err != nil {
		return err
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(blob.Params))); err != nil {
		return err
	}
	for _, p := range blob.Params {
		if err := writeString(w, p.Name); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, p.Value); err != nil {
			return err
		}
	}
	return nil
}

// Load reads a blob from r.
func (m *Manager) Load(r io.Reader) (Blob, error) {
	var blob Blob

	header := make([]byte, len(magic))
	if _, err := io.ReadFull(r, header); err != nil {
		return blob, err
	}
	if string(header) != magic {
		return blob, fmt.Errorf("invalid state format")
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return blob, err
	}
	if version > m.version {
		return blob, fmt.Errorf("state version %d is newer than supported version %d", version, m.version)
	}

	var err error
	if blob.ID, err = readString(r); err != nil {
		return blob, err
	}
	if blob.Version, err = readString(r); err != nil {
		return blob, err
	}

	var active uint8
	if err := binary.Read(r, binary.LittleEndian, &active); err != nil {
		return blob, err
	}
	blob.Active = active != 0

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return blob, err
	}
	for i := uint32(0); i < count; i++ {
		var p NamedValue
		if p.Name, err = readString(r); err != nil {
			return blob, err
		}
		if err := binary.Read(r, binary.LittleEndian, &p.Value); err != nil {
			return blob, err
		}
		blob.Params = append(blob.Params, p)
	}
	return blob, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if n > 1<<20 {
		return "", fmt.Errorf("unreasonable string length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
