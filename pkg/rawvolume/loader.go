// Package rawvolume reads and writes raw 8-bit scans paired with a .dat
// sidecar holding their dimensions.
//
// The sidecar is plain text with one decimal integer per line: width,
// height and depth first, followed by up to three aspect ratio values.
// The raw file is a flat array of width*height*depth unsigned bytes laid
// out the way models.Volume stores them.
package rawvolume

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"volumeviewer/internal/models"
)

// MetadataSuffix is appended to a raw file path to find its sidecar
const MetadataSuffix = ".dat"

// MetadataPath returns the sidecar path for a raw file
func MetadataPath(basePath string) string {
	return basePath + MetadataSuffix
}

// ParseMetadata reads sidecar content. Blank lines are skipped. The three
// dimension lines are required and must be positive; ratio lines are
// optional and default to zero.
func ParseMetadata(r io.Reader) (models.VolumeMetadata, error) {
	var meta models.VolumeMetadata

	scanner := bufio.NewScanner(r)
	lineNo := 0
	values := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if values >= 6 {
			return meta, &MetadataParseError{Line: lineNo, Reason: "unexpected extra line"}
		}

		n, err := strconv.Atoi(line)
		if err != nil {
			return meta, &MetadataParseError{Line: lineNo, Reason: fmt.Sprintf("invalid integer %q", line), Err: err}
		}

		if values < 3 {
			if n <= 0 {
				return meta, &MetadataParseError{Line: lineNo, Reason: fmt.Sprintf("dimension must be positive, got %d", n)}
			}
			if n > models.MaxDimension {
				return meta, &MetadataParseError{Line: lineNo, Reason: fmt.Sprintf("dimension %d exceeds %d", n, models.MaxDimension)}
			}
			meta.Dims[values] = n
		} else {
			meta.AspectRatios[values-3] = n
		}
		values++
	}
	if err := scanner.Err(); err != nil {
		return meta, &MetadataParseError{Reason: "read failed", Err: err}
	}

	if values < 3 {
		return meta, &MetadataParseError{Reason: fmt.Sprintf("expected 3 dimension lines, found %d", values)}
	}
	if meta.Voxels() < 0 {
		return meta, &MetadataParseError{Reason: fmt.Sprintf("dimensions %v overflow the voxel count", meta.Dims)}
	}

	return meta, nil
}

// ReadMetadata parses the sidecar at path
func ReadMetadata(path string) (models.VolumeMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.VolumeMetadata{}, &IOError{Path: path, Op: "open", Err: err}
	}
	defer f.Close()

	meta, err := ParseMetadata(f)
	if err != nil {
		if perr, ok := err.(*MetadataParseError); ok {
			perr.Path = path
		}
		return meta, err
	}
	return meta, nil
}

// ReadRaw reads the whole file at path into a buffer sized to the file's
// length. io.ReadFull keeps reading until the buffer is filled, so short
// reads from the underlying file are retried.
func ReadRaw(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Op: "open", Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &IOError{Path: path, Op: "stat", Err: err}
	}

	return readExact(f, path, info.Size())
}

func readExact(r io.Reader, path string, size int64) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, &IOError{Path: path, Op: "read", Err: err}
	}
	return buf, nil
}

// Load reads basePath+".dat" and basePath and returns the scan as a volume.
// The raw bytes are used as-is: no padding or resampling is applied, and the
// aspect ratios are only carried in the returned metadata. Nothing is
// returned unless both files are read and agree on the voxel count.
func Load(basePath string) (*models.Volume, models.VolumeMetadata, error) {
	meta, err := ReadMetadata(MetadataPath(basePath))
	if err != nil {
		return nil, meta, err
	}

	data, err := ReadRaw(basePath)
	if err != nil {
		return nil, meta, err
	}

	if meta.Voxels() != len(data) {
		return nil, meta, &DimensionMismatchError{
			Path:     basePath,
			Dims:     meta.Dims,
			Expected: meta.Voxels(),
			Actual:   len(data),
		}
	}

	vol, err := models.NewVolume(meta.Dims[0], meta.Dims[1], meta.Dims[2], data)
	if err != nil {
		return nil, meta, fmt.Errorf("failed to build volume from %s: %w", basePath, err)
	}
	return vol, meta, nil
}

// FormatMetadata renders sidecar content for the given dimensions and ratios
func FormatMetadata(meta models.VolumeMetadata) []byte {
	var b bytes.Buffer
	for _, d := range meta.Dims {
		fmt.Fprintf(&b, "%d\n", d)
	}
	for _, r := range meta.AspectRatios {
		fmt.Fprintf(&b, "%d\n", r)
	}
	return b.Bytes()
}

// WriteVolume writes vol as a raw file at basePath together with its
// sidecar, so it can be read back with Load.
func WriteVolume(basePath string, vol *models.Volume, ratios [3]int) error {
	if dir := filepath.Dir(basePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &IOError{Path: dir, Op: "mkdir", Err: err}
		}
	}

	meta := models.VolumeMetadata{
		Dims:         [3]int{vol.Width, vol.Height, vol.Depth},
		AspectRatios: ratios,
	}

	if err := os.WriteFile(basePath, vol.Data, 0644); err != nil {
		return &IOError{Path: basePath, Op: "write", Err: err}
	}
	if err := os.WriteFile(MetadataPath(basePath), FormatMetadata(meta), 0644); err != nil {
		return &IOError{Path: MetadataPath(basePath), Op: "write", Err: err}
	}
	return nil
}
