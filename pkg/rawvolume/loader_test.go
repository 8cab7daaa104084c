package rawvolume

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"volumeviewer/internal/models"
)

// writePair writes a sidecar and raw file under dir and returns the base path
func writePair(t *testing.T, dir, meta string, raw []byte) string {
	t.Helper()
	base := filepath.Join(dir, "scan.raw")
	if err := os.WriteFile(base+".dat", []byte(meta), 0644); err != nil {
		t.Fatalf("Failed to write sidecar: %v", err)
	}
	if raw != nil {
		if err := os.WriteFile(base, raw, 0644); err != nil {
			t.Fatalf("Failed to write raw file: %v", err)
		}
	}
	return base
}

// TestLoadWellFormed verifies a 2x2x2 scan is passed through unchanged
func TestLoadWellFormed(t *testing.T) {
	raw := []byte{0, 10, 20, 30, 40, 50, 60, 255}
	base := writePair(t, t.TempDir(), "2\n2\n2\n1\n1\n1\n", raw)

	vol, meta, err := Load(base)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if vol.Width != 2 || vol.Height != 2 || vol.Depth != 2 {
		t.Errorf("Expected 2x2x2, got %dx%dx%d", vol.Width, vol.Height, vol.Depth)
	}
	if !bytes.Equal(vol.Data, raw) {
		t.Errorf("Expected samples %v, got %v", raw, vol.Data)
	}
	if meta.AspectRatios != [3]int{1, 1, 1} {
		t.Errorf("Expected ratios [1 1 1], got %v", meta.AspectRatios)
	}

	// Row-major with z fastest
	if vol.At(0, 0, 1) != 10 || vol.At(0, 1, 0) != 20 || vol.At(1, 0, 0) != 40 {
		t.Errorf("Unexpected layout: (0,0,1)=%d (0,1,0)=%d (1,0,0)=%d",
			vol.At(0, 0, 1), vol.At(0, 1, 0), vol.At(1, 0, 0))
	}
}

// TestLoadNonCubic verifies width, height and depth come from the sidecar
func TestLoadNonCubic(t *testing.T) {
	raw := make([]byte, 3*4*5)
	for i := range raw {
		raw[i] = byte(i)
	}
	base := writePair(t, t.TempDir(), "3\n4\n5\n", raw)

	vol, meta, err := Load(base)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if vol.Width != 3 || vol.Height != 4 || vol.Depth != 5 {
		t.Errorf("Expected 3x4x5, got %dx%dx%d", vol.Width, vol.Height, vol.Depth)
	}
	if meta.AspectRatios != [3]int{} {
		t.Errorf("Expected zero ratios when omitted, got %v", meta.AspectRatios)
	}
	if vol.At(2, 3, 4) != byte(2*20+3*5+4) {
		t.Errorf("Unexpected last sample %d", vol.At(2, 3, 4))
	}
}

// TestLoadDimensionMismatch verifies a short raw file is rejected
func TestLoadDimensionMismatch(t *testing.T) {
	base := writePair(t, t.TempDir(), "2\n2\n2\n", make([]byte, 7))

	vol, _, err := Load(base)
	if vol != nil {
		t.Error("Expected no volume on mismatch")
	}

	var mismatch *DimensionMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("Expected DimensionMismatchError, got %v", err)
	}
	if mismatch.Expected != 8 || mismatch.Actual != 7 {
		t.Errorf("Expected 8 vs 7 bytes, got %d vs %d", mismatch.Expected, mismatch.Actual)
	}
}

// TestLoadMissingFiles verifies missing files surface as IOError
func TestLoadMissingFiles(t *testing.T) {
	dir := t.TempDir()

	_, _, err := Load(filepath.Join(dir, "absent.raw"))
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("Expected IOError for missing sidecar, got %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Expected wrapped fs.ErrNotExist, got %v", err)
	}

	// Sidecar present, raw file missing
	base := writePair(t, dir, "1\n1\n1\n", nil)
	_, _, err = Load(base)
	if !errors.As(err, &ioErr) || ioErr.Path != base {
		t.Errorf("Expected IOError for raw file %s, got %v", base, err)
	}
}

// TestParseMetadata covers malformed sidecars
func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    models.VolumeMetadata
		wantErr bool
	}{
		{"full", "256\n256\n109\n1\n1\n2\n", models.VolumeMetadata{Dims: [3]int{256, 256, 109}, AspectRatios: [3]int{1, 1, 2}}, false},
		{"dims only", "4\n5\n6", models.VolumeMetadata{Dims: [3]int{4, 5, 6}}, false},
		{"whitespace and blank lines", " 4 \r\n\n5\n6\n", models.VolumeMetadata{Dims: [3]int{4, 5, 6}}, false},
		{"partial ratios", "4\n5\n6\n2\n", models.VolumeMetadata{Dims: [3]int{4, 5, 6}, AspectRatios: [3]int{2, 0, 0}}, false},
		{"empty", "", models.VolumeMetadata{}, true},
		{"missing depth", "4\n5\n", models.VolumeMetadata{}, true},
		{"not a number", "4\nfive\n6\n", models.VolumeMetadata{}, true},
		{"zero dimension", "4\n0\n6\n", models.VolumeMetadata{}, true},
		{"negative dimension", "-4\n5\n6\n", models.VolumeMetadata{}, true},
		{"too many lines", "1\n1\n1\n1\n1\n1\n1\n", models.VolumeMetadata{}, true},
		{"dimension beyond texture limit", "4294967296\n1\n1\n", models.VolumeMetadata{}, true},
		{"overflowing voxel count", "2147483647\n2147483647\n2147483647\n", models.VolumeMetadata{}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseMetadata(strings.NewReader(tc.input))
			if tc.wantErr {
				var perr *MetadataParseError
				if !errors.As(err, &perr) {
					t.Errorf("Expected MetadataParseError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

// TestReadMetadataSetsPath verifies parse errors name the offending file
func TestReadMetadataSetsPath(t *testing.T) {
	base := writePair(t, t.TempDir(), "4\nx\n6\n", nil)

	_, err := ReadMetadata(MetadataPath(base))
	var perr *MetadataParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected MetadataParseError, got %v", err)
	}
	if perr.Path != MetadataPath(base) || perr.Line != 2 {
		t.Errorf("Expected %s:2, got %s:%d", MetadataPath(base), perr.Path, perr.Line)
	}
}

// TestReadExactRetriesShortReads verifies reads continue until the buffer is full
func TestReadExactRetriesShortReads(t *testing.T) {
	want := []byte("volumetric")
	got, err := readExact(iotest.OneByteReader(bytes.NewReader(want)), "mem", int64(len(want)))
	if err != nil {
		t.Fatalf("readExact failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

// TestReadExactStreamError verifies stream failures produce no buffer
func TestReadExactStreamError(t *testing.T) {
	boom := errors.New("device unplugged")
	r := iotest.ErrReader(boom)

	got, err := readExact(r, "mem", 16)
	if got != nil {
		t.Error("Expected nil buffer on error")
	}
	if !errors.Is(err, boom) {
		t.Errorf("Expected wrapped stream error, got %v", err)
	}

	// Truncated stream
	_, err = readExact(bytes.NewReader([]byte{1, 2}), "mem", 4)
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Errorf("Expected IOError for truncated stream, got %v", err)
	}
}

// TestWriteVolumeRoundTrip verifies written volumes load back identically
func TestWriteVolumeRoundTrip(t *testing.T) {
	data := make([]uint8, 3*2*4)
	for i := range data {
		data[i] = uint8(i * 7)
	}
	vol, err := models.NewVolume(3, 2, 4, data)
	if err != nil {
		t.Fatalf("NewVolume failed: %v", err)
	}

	base := filepath.Join(t.TempDir(), "nested", "export.raw")
	if err := WriteVolume(base, vol, [3]int{1, 1, 2}); err != nil {
		t.Fatalf("WriteVolume failed: %v", err)
	}

	loaded, meta, err := Load(base)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Width != 3 || loaded.Height != 2 || loaded.Depth != 4 {
		t.Errorf("Expected 3x2x4, got %dx%dx%d", loaded.Width, loaded.Height, loaded.Depth)
	}
	if !bytes.Equal(loaded.Data, data) {
		t.Error("Loaded samples differ from written samples")
	}
	if meta.AspectRatios != [3]int{1, 1, 2} {
		t.Errorf("Expected ratios [1 1 2], got %v", meta.AspectRatios)
	}
}

// TestFormatMetadata checks the sidecar text layout
func TestFormatMetadata(t *testing.T) {
	got := string(FormatMetadata(models.VolumeMetadata{Dims: [3]int{2, 3, 4}, AspectRatios: [3]int{1, 1, 1}}))
	want := "2\n3\n4\n1\n1\n1\n"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

// TestLoadRejectsWrappingDimensions verifies a sidecar whose voxel count
// would wrap to zero cannot pair with an empty raw file
func TestLoadRejectsWrappingDimensions(t *testing.T) {
	base := writePair(t, t.TempDir(), "4294967296\n4294967296\n1\n", []byte{})

	vol, _, err := Load(base)
	if err == nil {
		t.Fatalf("Expected error for out-of-range dimensions, got %dx%dx%d volume with %d samples",
			vol.Width, vol.Height, vol.Depth, len(vol.Data))
	}
	if vol != nil {
		t.Error("Expected no volume on error")
	}

	var parseErr *MetadataParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("Expected MetadataParseError, got %T: %v", err, err)
	}
}
