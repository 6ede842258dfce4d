// Package debug provides frame dumping utilities
package debug

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/image/bmp"
)

// ErrUnsupportedFormat is returned for image extensions other than .png and .bmp
var ErrUnsupportedFormat = errors.New("unsupported image format")

// FrameDumper writes composed frames to image files
type FrameDumper struct {
	outputDir    string
	dumpEnabled  bool
	dumpCount    int
	maxDumps     int
	dumpInterval int // Dump every N frames
	format       string
}

// NewFrameDumper creates a disabled frame dumper writing PNG files
func NewFrameDumper(outputDir string) *FrameDumper {
	return &FrameDumper{
		outputDir:    outputDir,
		maxDumps:     10,
		dumpInterval: 1,
		format:       "png",
	}
}

// Enable activates frame dumping and creates the output directory
func (fd *FrameDumper) Enable() error {
	if err := os.MkdirAll(fd.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create dump directory: %w", err)
	}
	fd.dumpEnabled = true
	return nil
}

// Disable deactivates frame dumping
func (fd *FrameDumper) Disable() {
	fd.dumpEnabled = false
}

// Enabled reports whether dumping is active
func (fd *FrameDumper) Enabled() bool {
	return fd.dumpEnabled
}

// SetMaxDumps sets the maximum number of frames to dump; 0 means unlimited
func (fd *FrameDumper) SetMaxDumps(max int) {
	fd.maxDumps = max
}

// SetDumpInterval sets the interval between frame dumps
func (fd *FrameDumper) SetDumpInterval(interval int) {
	if interval < 1 {
		interval = 1
	}
	fd.dumpInterval = interval
}

// SetFormat selects "png" or "bmp"
func (fd *FrameDumper) SetFormat(format string) error {
	format = strings.TrimPrefix(strings.ToLower(format), ".")
	if format != "png" && format != "bmp" {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	fd.format = format
	return nil
}

// Dumped returns how many frames have been written
func (fd *FrameDumper) Dumped() int {
	return fd.dumpCount
}

// DumpFrame writes the frame if dumping is enabled, frameNum falls on the
// interval and the maximum has not been reached. It returns the written path,
// or "" when the frame was skipped.
func (fd *FrameDumper) DumpFrame(frame image.Image, frameNum uint64) (string, error) {
	if !fd.dumpEnabled {
		return "", nil
	}
	if frameNum%uint64(fd.dumpInterval) != 0 {
		return "", nil
	}
	if fd.maxDumps > 0 && fd.dumpCount >= fd.maxDumps {
		return "", nil
	}

	path := filepath.Join(fd.outputDir, fmt.Sprintf("frame_%06d.%s", frameNum, fd.format))
	if err := SaveImage(path, frame); err != nil {
		return "", err
	}
	fd.dumpCount++
	return path, nil
}

// SaveImage encodes img to path, choosing PNG or BMP by extension
func SaveImage(path string, img image.Image) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".png" && ext != ".bmp" {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create frame dump file: %w", err)
	}

	if ext == ".bmp" {
		err = bmp.Encode(file, img)
	} else {
		err = png.Encode(file, img)
	}
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return file.Close()
}

// ColorCount is one entry of a frame's color histogram
type ColorCount struct {
	RGB   uint32
	Count int
}

// ColorHistogram counts the distinct colors of a frame, most frequent first
func ColorHistogram(frame *image.RGBA) []ColorCount {
	freq := make(map[uint32]int)
	b := frame.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := frame.RGBAAt(x, y)
			freq[uint32(c.R)<<16|uint32(c.G)<<8|uint32(c.B)]++
		}
	}

	out := make([]ColorCount, 0, len(freq))
	for rgb, count := range freq {
		out = append(out, ColorCount{RGB: rgb, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].RGB < out[j].RGB
	})
	return out
}
