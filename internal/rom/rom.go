// Package rom loads the KERNAL, BASIC and character ROM images installed into
// the engine at startup.
package rom

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
)

// Kind identifies one of the three ROM images
type Kind uint8

const (
	Character Kind = iota
	Kernal
	Basic
)

// Size returns the exact image size for the kind
func (k Kind) Size() int {
	switch k {
	case Character:
		return 0x1000
	case Kernal, Basic:
		return 0x2000
	default:
		return 0
	}
}

func (k Kind) String() string {
	switch k {
	case Character:
		return "character"
	case Kernal:
		return "kernal"
	case Basic:
		return "basic"
	default:
		return fmt.Sprintf("rom(%d)", uint8(k))
	}
}

// ErrSize is wrapped by Error when an image does not have its exact size
var ErrSize = errors.New("rom image has wrong size")

// Error describes a failure to load one image
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s rom %s: %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("%s rom: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Set is the complete set of images installed at startup
type Set struct {
	Character []byte
	Kernal    []byte
	Basic     []byte
}

// Image returns the image of the given kind
func (s Set) Image(k Kind) []byte {
	switch k {
	case Character:
		return s.Character
	case Kernal:
		return s.Kernal
	case Basic:
		return s.Basic
	default:
		return nil
	}
}

// Validate checks that every image has its exact size
func (s Set) Validate() error {
	for _, k := range []Kind{Kernal, Basic, Character} {
		if n := len(s.Image(k)); n != k.Size() {
			return &Error{Kind: k, Err: fmt.Errorf("%w: expected %d bytes, got %d", ErrSize, k.Size(), n)}
		}
	}
	return nil
}

// LoadFromFile loads one image from disk
func LoadFromFile(kind Kind, filename string) ([]byte, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, &Error{Kind: kind, Path: filename, Err: err}
	}
	defer file.Close()

	data, err := LoadFromReader(kind, file)
	if err != nil {
		var romErr *Error
		if errors.As(err, &romErr) {
			romErr.Path = filename
		}
		return nil, err
	}
	return data, nil
}

// LoadFromReader reads one image. The data may be the raw binary image or its
// base64 encoding; surrounding whitespace and line breaks are ignored.
func LoadFromReader(kind Kind, r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &Error{Kind: kind, Err: err}
	}
	return Decode(kind, data)
}

// Decode returns the raw image stored in data
func Decode(kind Kind, data []byte) ([]byte, error) {
	want := kind.Size()
	if len(data) == want {
		return data, nil
	}

	compact := bytes.Join(bytes.Fields(data), nil)
	decoded := make([]byte, base64.StdEncoding.DecodedLen(len(compact)))
	n, err := base64.StdEncoding.Decode(decoded, compact)
	if err != nil {
		return nil, &Error{Kind: kind, Err: fmt.Errorf("%w: %d bytes, not valid base64 either", ErrSize, len(data))}
	}
	if n != want {
		return nil, &Error{Kind: kind, Err: fmt.Errorf("%w: expected %d bytes, decoded %d", ErrSize, want, n)}
	}
	return decoded[:n], nil
}

// LoadSet loads all three images
func LoadSet(characterPath, kernalPath, basicPath string) (Set, error) {
	var set Set
	var err error
	if set.Kernal, err = LoadFromFile(Kernal, kernalPath); err != nil {
		return Set{}, err
	}
	if set.Basic, err = LoadFromFile(Basic, basicPath); err != nil {
		return Set{}, err
	}
	if set.Character, err = LoadFromFile(Character, characterPath); err != nil {
		return Set{}, err
	}
	return set, nil
}
