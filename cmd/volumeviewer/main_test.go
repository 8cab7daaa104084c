package main

import (
	"io"
	"log"
	"path/filepath"
	"testing"

	"volumeviewer/pkg/config"
	"volumeviewer/pkg/rawvolume"
)

// TestNewLoggerFollowsVerbose verifies quiet configs discard renderer logs
func TestNewLoggerFollowsVerbose(t *testing.T) {
	cfg := config.DefaultConfig()

	if got := newLogger(cfg); got != log.Default() {
		t.Error("Expected the default logger when verbose")
	}

	cfg.Output.Verbose = false
	if w := newLogger(cfg).Writer(); w != io.Discard {
		t.Errorf("Expected io.Discard writer when quiet, got %T", w)
	}
}

// TestPrepareVolume verifies both heat map and raw sources
func TestPrepareVolume(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Synthesis.Size = 4

	vol, ratios, err := prepareVolume(cfg)
	if err != nil {
		t.Fatalf("prepareVolume failed: %v", err)
	}
	if vol.Len() != 64 || ratios != [3]int{1, 1, 1} {
		t.Errorf("Expected 4^3 heat map with unit ratios, got %d samples, ratios %v", vol.Len(), ratios)
	}

	base := filepath.Join(t.TempDir(), "scan.raw")
	if err := rawvolume.WriteVolume(base, vol, [3]int{1, 1, 2}); err != nil {
		t.Fatalf("WriteVolume failed: %v", err)
	}
	cfg.Volume.Path = base

	loaded, ratios, err := prepareVolume(cfg)
	if err != nil {
		t.Fatalf("prepareVolume failed: %v", err)
	}
	if loaded.Len() != 64 || ratios != [3]int{1, 1, 2} {
		t.Errorf("Expected loaded 4^3 scan with ratios 1:1:2, got %d samples, ratios %v", loaded.Len(), ratios)
	}
}
