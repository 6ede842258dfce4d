package debug

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
)

func testFrame() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			c := color.RGBA{0x35, 0x28, 0x79, 0xff}
			if x < 2 {
				c = color.RGBA{0x70, 0xa4, 0xb2, 0xff}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestDumpFrame_Disabled_ShouldSkip(t *testing.T) {
	fd := NewFrameDumper(t.TempDir())
	path, err := fd.DumpFrame(testFrame(), 1)
	if err != nil || path != "" {
		t.Errorf("expected skip, got %q %v", path, err)
	}
}

func TestDumpFrame_ShouldHonorIntervalAndMax(t *testing.T) {
	fd := NewFrameDumper(filepath.Join(t.TempDir(), "frames"))
	if err := fd.Enable(); err != nil {
		t.Fatal(err)
	}
	fd.SetDumpInterval(2)
	fd.SetMaxDumps(2)

	var written []string
	for frame := uint64(1); frame <= 10; frame++ {
		path, err := fd.DumpFrame(testFrame(), frame)
		if err != nil {
			t.Fatal(err)
		}
		if path != "" {
			written = append(written, filepath.Base(path))
		}
	}
	want := []string{"frame_000002.png", "frame_000004.png"}
	if len(written) != len(want) || written[0] != want[0] || written[1] != want[1] {
		t.Errorf("expected %v, got %v", want, written)
	}
	if fd.Dumped() != 2 {
		t.Errorf("expected 2 dumps, got %d", fd.Dumped())
	}
}

func TestSaveImage_PNG_ShouldRoundTripPixels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.png")
	src := testFrame()
	if err := SaveImage(path, src); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, _ := img.At(0, 0).RGBA()
	if r>>8 != 0x70 || g>>8 != 0xa4 || b>>8 != 0xb2 {
		t.Errorf("unexpected pixel %x %x %x", r>>8, g>>8, b>>8)
	}
}

func TestSaveImage_BMP_ShouldDecode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.bmp")
	if err := SaveImage(path, testFrame()); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := bmp.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 4 {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}
}

func TestSaveImage_ShouldRejectUnknownExtension(t *testing.T) {
	err := SaveImage(filepath.Join(t.TempDir(), "shot.gif"), testFrame())
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestSetFormat_ShouldSelectBMP(t *testing.T) {
	dir := t.TempDir()
	fd := NewFrameDumper(dir)
	if err := fd.SetFormat(".BMP"); err != nil {
		t.Fatal(err)
	}
	fd.Enable()
	path, err := fd.DumpFrame(testFrame(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(path) != ".bmp" {
		t.Errorf("expected .bmp dump, got %s", path)
	}
	if err := fd.SetFormat("jpeg"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestColorHistogram_ShouldSortByFrequency(t *testing.T) {
	hist := ColorHistogram(testFrame())
	if len(hist) != 2 {
		t.Fatalf("expected 2 colors, got %d", len(hist))
	}
	if hist[0].RGB != 0x352879 || hist[0].Count != 24 {
		t.Errorf("unexpected top entry %+v", hist[0])
	}
	if hist[1].RGB != 0x70a4b2 || hist[1].Count != 8 {
		t.Errorf("unexpected second entry %+v", hist[1])
	}
}
