package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"vesselscan/internal/models"
	"vesselscan/pkg/config"
	"vesselscan/pkg/eigen"
	"vesselscan/pkg/engine"
	"vesselscan/pkg/hessian"
	"vesselscan/pkg/phantom"
	"vesselscan/pkg/report"
	"vesselscan/pkg/visualization"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "vesselscan.yaml", "YAML configuration file (defaults are used when missing)")
	initConfig := flag.Bool("init-config", false, "Write the default configuration to -config and exit")
	modalityName := flag.String("modality", "CT_TEP", "Modality engine: CT_TEP or CT_SMART")
	phantomName := flag.String("phantom", "", fmt.Sprintf("Analyze a synthetic phantom %v instead of -raw", phantom.Names()))
	rawPath := flag.String("raw", "", "Little-endian float32 volume in Hounsfield Units, (Z, Y, X) order")
	maskPath := flag.String("mask", "", "Optional uint8 mask of the same shape (non-zero = analyzed)")
	shapeFlag := flag.String("shape", "", "Volume shape z,y,x (required with -raw)")
	spacingFlag := flag.String("spacing", "1,1,1", "Voxel spacing z,y,x in mm")
	scalesFlag := flag.String("scales", "", "Comma-separated physical sigmas in mm (default: modality profile)")
	cFlag := flag.Float64("c", 0, "Structure-strength constant (default: modality profile)")
	workers := flag.Int("workers", -1, "Goroutines to use (default: config, 0 = all CPUs)")
	outScores := flag.String("out-scores", "", "Write the vesselness volume as float32 to this file")
	outLabels := flag.String("out-labels", "", "Write the pseudocolor label volume as uint8 to this file")
	slicesDir := flag.String("slices-dir", "", "Save slices of the score and label volumes to this directory")
	plotDir := flag.String("plot", "", "Save the score histogram and label volume chart to this directory")
	verify := flag.Int("verify", 0, "Cross-check closed-form eigenvalues against an iterative solver on N voxels")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write configuration: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	if (*rawPath == "") == (*phantomName == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -raw or -phantom is required")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *workers >= 0 {
		cfg.Processing.Workers = *workers
	}
	if *slicesDir != "" {
		cfg.Output.SaveSlices = true
		cfg.Output.SlicesDir = *slicesDir
	}
	if *plotDir != "" {
		cfg.Output.PlotHistogram = true
	}

	modality, err := models.ParseModality(*modalityName)
	if err != nil {
		log.Fatalf("Invalid modality: %v", err)
	}
	if *cFlag > 0 {
		profile := cfg.Modalities[modality.String()]
		profile.C = *cFlag
		cfg.Modalities[modality.String()] = profile
	}

	in, err := buildInput(*phantomName, *rawPath, *maskPath, *shapeFlag, *spacingFlag, *scalesFlag)
	if err != nil {
		log.Fatalf("Failed to prepare input: %v", err)
	}

	fmt.Println("================================")
	fmt.Println("MULTISCALE VESSELNESS DETECTION FOR CT")
	fmt.Println("Frangi filter over a Hessian scale space")
	fmt.Println("================================")

	progress := newProgressBar(os.Stdout, cfg.Output.Verbose)
	logger := func(message string) {
		if cfg.Output.Verbose {
			fmt.Println(message)
		}
	}

	eng, err := engine.New(modality, cfg, engine.WithLogger(logger), engine.WithProgress(progress.Report))
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}
	study := models.NewStudyInfo(modality, "", describeInput(*phantomName, *rawPath))

	fmt.Printf("Engine: %s (%s)\n", eng.DisplayName(), eng.Domain().Name)
	startTime := time.Now()
	res, err := eng.Analyze(study, in)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}
	processingTime := time.Since(startTime)

	fmt.Printf("\nAnalysis completed successfully in %.2f seconds!\n", processingTime.Seconds())
	fmt.Printf("Scales: %v mm, c = %g\n\n", []float64(res.Scales), res.C)
	if err := res.Summary.Write(os.Stdout); err != nil {
		log.Fatalf("Failed to print summary: %v", err)
	}

	if *outScores != "" {
		if err := saveFile(*outScores, func(w io.Writer) error { return writeFloat32Volume(w, res.Vesselness) }); err != nil {
			log.Fatalf("Failed to write scores: %v", err)
		}
		fmt.Printf("\nVesselness volume saved to: %s\n", *outScores)
	}
	if *outLabels != "" {
		if err := saveFile(*outLabels, func(w io.Writer) error {
			_, err := w.Write(res.Labels.Data)
			return err
		}); err != nil {
			log.Fatalf("Failed to write labels: %v", err)
		}
		fmt.Printf("Label volume saved to: %s\n", *outLabels)
	}

	if cfg.Output.SaveSlices {
		saveSlices(res, in, cfg.Output.SlicesDir)
	}

	if cfg.Output.PlotHistogram {
		dir := *plotDir
		if dir == "" {
			dir = "."
		}
		title := fmt.Sprintf("%s vesselness", eng.DisplayName())
		if err := report.PlotHistogram(res.Response.Scores, title, filepath.Join(dir, "vesselness_histogram.png")); err != nil {
			log.Printf("Warning: Failed to plot histogram: %v", err)
		}
		if err := report.PlotLabelVolumes(res.Summary, "Tissue volumes in mask", filepath.Join(dir, "label_volumes.png")); err != nil {
			log.Printf("Warning: Failed to plot label volumes: %v", err)
		}
		fmt.Printf("Plots saved to: %s\n", dir)
	}

	if *verify > 0 {
		if err := verifyEigenvalues(in, res, *verify); err != nil {
			log.Fatalf("Verification failed: %v", err)
		}
	}
}

func describeInput(phantomName, rawPath string) string {
	if phantomName != "" {
		return "phantom " + phantomName
	}
	return filepath.Base(rawPath)
}

func buildInput(phantomName, rawPath, maskPath, shapeFlag, spacingFlag, scalesFlag string) (engine.Input, error) {
	var in engine.Input

	spacing, err := parseTriple(spacingFlag)
	if err != nil {
		return in, fmt.Errorf("spacing: %w", err)
	}
	in.Spacing = models.Spacing(spacing[:])

	scales, err := parseList(scalesFlag)
	if err != nil {
		return in, fmt.Errorf("scales: %w", err)
	}
	in.Scales = scales

	if phantomName != "" {
		vol, ok := phantom.Build(phantomName)
		if !ok {
			return in, fmt.Errorf("unknown phantom %q (available: %v)", phantomName, phantom.Names())
		}
		in.Volume = vol
	} else {
		shape, err := parseShape(shapeFlag)
		if err != nil {
			return in, fmt.Errorf("shape: %w", err)
		}
		if in.Volume, err = loadVolume(rawPath, shape); err != nil {
			return in, err
		}
	}

	if maskPath != "" {
		if in.Mask, err = loadMask(maskPath, in.Volume.Shape()); err != nil {
			return in, err
		}
	}
	return in, nil
}

// saveSlices writes axial slices of the score volume and of the CT volume
// with the pseudocolor overlay.
func saveSlices(res *engine.Result, in engine.Input, dir string) {
	fmt.Println("\nExtracting slices...")

	scores := visualization.NewViewer(res.Vesselness, in.Spacing)
	scores.SetAspectCorrection(true)

	ct := visualization.NewViewer(in.Volume, in.Spacing)
	ct.SetAspectCorrection(true)
	if res.Modality == models.ModalityCTSmart {
		ct.SetWindow(visualization.BrainWindow)
	} else {
		ct.SetWindow(visualization.LungWindow)
	}
	if err := ct.SetLabels(res.Labels, 0.6); err != nil {
		log.Printf("Warning: %v", err)
		return
	}

	for _, axis := range []string{"x", "y", "z"} {
		scoreDir := filepath.Join(dir, "vesselness", axis)
		fmt.Printf("Saving %s-axis slices to: %s\n", axis, scoreDir)
		if err := scores.SaveSliceSequence(axis, scoreDir); err != nil {
			log.Printf("Warning: Failed to save %s-axis score slices: %v", axis, err)
		}

		labelDir := filepath.Join(dir, "pseudocolor", axis)
		if err := ct.SaveSliceSequence(axis, labelDir); err != nil {
			log.Printf("Warning: Failed to save %s-axis label slices: %v", axis, err)
		}
	}
	fmt.Println("Slice extraction completed!")
}

// verifyEigenvalues recomputes the Hessian at the first scale for up to n
// masked voxels and compares the closed-form eigenvalues with the iterative
// reference solver.
func verifyEigenvalues(in engine.Input, res *engine.Result, n int) error {
	indices := res.Response.Indices
	if len(indices) == 0 {
		fmt.Println("\nNothing to verify: empty mask")
		return nil
	}
	step := len(indices) / n
	if step < 1 {
		step = 1
	}

	shape := in.Volume.Shape()
	sample := models.NewMask(shape[0], shape[1], shape[2])
	for i := 0; i < len(indices); i += step {
		sample.Data[indices[i]] = true
	}

	sigma, err := hessian.VoxelSigmaScalar(res.Scales[0], in.Spacing)
	if err != nil {
		return err
	}
	elements, err := hessian.ComputeMasked(in.Volume, sigma, sample)
	if err != nil {
		return err
	}

	maxDiff := 0.0
	for i := 0; i < elements.Len(); i++ {
		h := elements.Tensor(i)
		fast := eigen.Eigenvalues3(h[0], h[1], h[2], h[3], h[4], h[5])
		ref, err := eigen.Reference(h[0], h[1], h[2], h[3], h[4], h[5])
		if err != nil {
			return fmt.Errorf("voxel %d: %w", elements.Index[i], err)
		}
		for k := range fast {
			maxDiff = math.Max(maxDiff, math.Abs(fast[k]-ref[k]))
		}
	}

	fmt.Printf("\nEigenvalue verification at sigma=%g mm:\n", res.Scales[0])
	fmt.Printf("- Voxels checked: %d\n", elements.Len())
	fmt.Printf("- Max |closed form - iterative|: %.3e\n", maxDiff)
	return nil
}
