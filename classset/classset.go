// Package classset reads and writes class-set images. An image is one named
// group of class definitions encoded as canonical CBOR, so the same set
// always produces the same bytes and the same digest.
package classset

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/chazu/jcore/vm"
	"github.com/fxamacker/cbor/v2"
)

// Version is the image format version written by Marshal.
const Version = 1

// ErrVersion is returned when an image carries an unsupported version.
var ErrVersion = errors.New("classset: unsupported image version")

// Set is a named group of class definitions linked together.
type Set struct {
	Version int            `cbor:"1,keyasint"`
	Name    string         `cbor:"2,keyasint"`
	Classes []*vm.ClassDef `cbor:"3,keyasint,omitempty"`
}

// New returns a set at the current version.
func New(name string, classes ...*vm.ClassDef) *Set {
	return &Set{Version: Version, Name: name, Classes: classes}
}

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("classset: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Marshal serializes a Set to CBOR bytes.
func Marshal(s *Set) ([]byte, error) {
	if s.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, s.Version)
	}
	return encMode.Marshal(s)
}

// Unmarshal deserializes a Set from CBOR bytes.
func Unmarshal(data []byte) (*Set, error) {
	var s Set
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("classset: unmarshal: %w", err)
	}
	if s.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, s.Version)
	}
	return &s, nil
}

// ReadFile loads an image from path.
func ReadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	s, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// WriteFile writes s to path as an image.
func WriteFile(path string, s *Set) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}

// Digest returns the hex SHA-256 of the canonical encoding of s.
func (s *Set) Digest() (string, error) {
	data, err := Marshal(s)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Class returns the definition named name, or nil.
func (s *Set) Class(name string) *vm.ClassDef {
	for _, c := range s.Classes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Merge returns a set holding the classes of every input, in order. The
// result is named name; duplicate class names are left for the linker to
// reject.
func Merge(name string, sets ...*Set) *Set {
	out := New(name)
	for _, s := range sets {
		out.Classes = append(out.Classes, s.Classes...)
	}
	return out
}
