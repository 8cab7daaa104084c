package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"volumeviewer/internal/models"
	"volumeviewer/pkg/camera"
	"volumeviewer/pkg/config"
	"volumeviewer/pkg/rawvolume"
	"volumeviewer/pkg/synthesis"
	"volumeviewer/pkg/visualization"
)

func main() {
	configPath := flag.String("config", "volumeviewer.yaml", "Path to the YAML configuration file")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	rawPath := flag.String("raw", "", "Raw volume to load (its sidecar is <raw>.dat); empty synthesizes the heat map")
	size := flag.Int("size", 0, "Heat map edge length (overrides config)")
	numCores := flag.Int("cores", 0, "Number of CPU cores to use (overrides config)")
	extractSlices := flag.Bool("extract-slices", false, "Extract and save slices along all axes")
	slicesDir := flag.String("slices-dir", "slices", "Directory to save extracted slices")
	exportPath := flag.String("export", "", "Write the volume as a raw file plus .dat sidecar")
	view := flag.Bool("view", false, "Open the interactive viewer")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *rawPath != "" {
		cfg.Volume.Path = *rawPath
	}
	if *size > 0 {
		cfg.Synthesis.Size = *size
	}
	if *numCores > 0 {
		cfg.Synthesis.NumCores = *numCores
	}

	if *view {
		if err := runViewer(cfg); err != nil {
			log.Fatalf("Viewer failed: %v", err)
		}
		return
	}

	fmt.Println("================================")
	fmt.Println("VOLUME VIEWER")
	fmt.Println("================================")

	startTime := time.Now()
	vol, ratios, err := prepareVolume(cfg)
	if err != nil {
		log.Fatalf("Failed to prepare volume: %v", err)
	}
	fmt.Printf("Prepared %dx%dx%d volume in %.2f seconds\n",
		vol.Width, vol.Height, vol.Depth, time.Since(startTime).Seconds())

	viewer := visualization.NewViewer(vol)
	stats := viewer.Stats()
	fmt.Printf("\nField statistics:\n")
	fmt.Printf("=================\n")
	fmt.Printf("Range: %d..%d\n", stats.Min, stats.Max)
	fmt.Printf("Mean: %.3f (stddev %.3f)\n", stats.Mean, stats.StdDev)
	fmt.Printf("Entropy: %.3f bits\n", stats.Entropy)
	fmt.Printf("Non-zero samples: %d of %d\n", stats.NonZero, vol.Len())

	cam := camera.New(cfg.Camera.Far, cfg.Camera.Near,
		cfg.Camera.Left, cfg.Camera.Right, cfg.Camera.Top, cfg.Camera.Bottom)
	eye := cfg.Camera.Eye
	if err := cam.UpdateLocation(float64(eye[0]), float64(eye[1]), float64(eye[2])); err != nil {
		log.Printf("Warning: Camera not updated: %v", err)
	} else if err := cam.UpdateViewVolume(); err != nil {
		log.Printf("Warning: Camera view not computed: %v", err)
	} else {
		fmt.Printf("Grid points inside the camera view: %d of %d\n", viewer.CountVisible(cam), vol.Len())
	}

	if *exportPath != "" {
		if err := rawvolume.WriteVolume(*exportPath, vol, ratios); err != nil {
			log.Fatalf("Export failed: %v", err)
		}
		fmt.Printf("\nVolume written to %s and %s\n", *exportPath, rawvolume.MetadataPath(*exportPath))
	}

	if *extractSlices {
		fmt.Println("\nExtracting slices along all axes...")
		for _, axis := range []string{"x", "y", "z"} {
			axisDir := filepath.Join(*slicesDir, axis)
			fmt.Printf("Saving %s-axis slices to: %s\n", axis, axisDir)

			if err := viewer.SaveSliceSequence(axis, axisDir); err != nil {
				log.Printf("Warning: Failed to save %s-axis slices: %v", axis, err)
			}
		}
		fmt.Println("Slice extraction completed!")
	}
}

// prepareVolume loads the configured raw volume or synthesizes the heat map.
// It also returns the aspect ratios to write alongside an export.
func prepareVolume(cfg *config.Config) (*models.Volume, [3]int, error) {
	if cfg.Volume.Path != "" {
		fmt.Printf("Loading raw volume %s...\n", cfg.Volume.Path)
		vol, meta, err := rawvolume.Load(cfg.Volume.Path)
		if err != nil {
			return nil, [3]int{}, err
		}
		return vol, meta.AspectRatios, nil
	}

	fmt.Printf("Synthesizing %d^3 heat map on %d cores...\n", cfg.Synthesis.Size, cfg.Synthesis.NumCores)
	vol, err := synthesis.NewHeatMapSynthesizer(cfg.Synthesis.Sharpness, cfg.Synthesis.NumCores).
		Synthesize(cfg.Synthesis.Size)
	if err != nil {
		return nil, [3]int{}, err
	}
	return vol, [3]int{1, 1, 1}, nil
}

// newLogger returns the renderer logger, silenced unless output is verbose
func newLogger(cfg *config.Config) *log.Logger {
	if !cfg.Output.Verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.Default()
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\n", filepath.Base(os.Args[0]))
		fmt.Fprintln(os.Stderr, "Synthesizes the reference heat map or loads a raw scan, prints field")
		fmt.Fprintln(os.Stderr, "statistics, and optionally exports slices or opens the viewer.")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
}
