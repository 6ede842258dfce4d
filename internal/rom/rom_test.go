package rom

import (
	"bytes"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*31 + 7)
	}
	return b
}

func TestDecode_ShouldAcceptRawImage(t *testing.T) {
	raw := pattern(Kernal.Size())
	got, err := Decode(Kernal, raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Error("raw image was modified")
	}
}

func TestDecode_ShouldAcceptWrappedBase64(t *testing.T) {
	raw := pattern(Character.Size())
	enc := base64.StdEncoding.EncodeToString(raw)

	var b strings.Builder
	for len(enc) > 76 {
		b.WriteString(enc[:76])
		b.WriteString("\n")
		enc = enc[76:]
	}
	b.WriteString(enc)
	b.WriteString("\n")

	got, err := Decode(Character, []byte(b.String()))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Error("decoded image differs from source")
	}
}

func TestDecode_ShouldRejectWrongSize(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"short raw", pattern(100)},
		{"short base64", []byte(base64.StdEncoding.EncodeToString(pattern(100)))},
		{"empty", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(Basic, tt.data)
			if !errors.Is(err, ErrSize) {
				t.Fatalf("expected ErrSize, got %v", err)
			}
			var romErr *Error
			if !errors.As(err, &romErr) || romErr.Kind != Basic {
				t.Errorf("expected *Error for basic rom, got %v", err)
			}
		})
	}
}

func TestLoadSet_ShouldLoadAllImages(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}
	charPath := write("char.bin", pattern(0x1000))
	kernalPath := write("kernal.b64", []byte(base64.StdEncoding.EncodeToString(pattern(0x2000))))
	basicPath := write("basic.bin", pattern(0x2000))

	set, err := LoadSet(charPath, kernalPath, basicPath)
	if err != nil {
		t.Fatalf("LoadSet failed: %v", err)
	}
	if err := set.Validate(); err != nil {
		t.Errorf("loaded set should validate: %v", err)
	}
}

func TestLoadFromFile_ShouldReportPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bin")
	if err := os.WriteFile(path, []byte("nope"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadFromFile(Kernal, path)
	var romErr *Error
	if !errors.As(err, &romErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if romErr.Path != path {
		t.Errorf("expected path %s, got %s", path, romErr.Path)
	}
}

func TestSetValidate_ShouldRejectMissingImage(t *testing.T) {
	set := Set{Character: pattern(0x1000), Kernal: pattern(0x2000)}
	err := set.Validate()
	var romErr *Error
	if !errors.As(err, &romErr) || romErr.Kind != Basic {
		t.Fatalf("expected basic rom error, got %v", err)
	}
}
