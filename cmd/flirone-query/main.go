// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// flirone-query streams frames from a FLIR One Pro LT (or a synthetic
// camera with -fake) and prints running statistics until interrupted.
//
// Unlike the Lepton's I²C CCI register interface, the FLIR One exposes no
// queryable device registers over USB: its status region is opaque
// telemetry bundled in every frame (see SPEC_FULL.md §9), so this tool's
// "query" is of the frame stream itself, not of camera registers.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gocamera/flirone/flirone"
	"github.com/maruel/interrupt"
)

func mainImpl() error {
	calPath := flag.String("cal", "", "path to a JSON calibration record")
	fake := flag.Bool("fake", false, "use a synthetic camera instead of real hardware")
	timeout := flag.Duration("timeout", 5*time.Second, "time to wait for each frame")
	flag.Parse()

	if flag.NArg() != 0 {
		return fmt.Errorf("unexpected argument: %s", flag.Args())
	}

	cal := flirone.DefaultCalibration()
	if *calPath != "" {
		f, err := os.Open(*calPath)
		if err != nil {
			return err
		}
		defer f.Close()
		var err2 error
		if cal, err2 = flirone.LoadCalibration(f); err2 != nil {
			return fmt.Errorf("loading calibration from %s: %w", *calPath, err2)
		}
	}

	var bus flirone.Bus
	if *fake {
		bus = flirone.NewSimulatedBus()
	} else {
		bus = flirone.NewTransport()
	}
	cam := flirone.NewCamera(bus, cal)
	if err := cam.Open(); err != nil {
		return fmt.Errorf("%s\nIf testing without hardware, use -fake to simulate a camera", err)
	}
	defer cam.Close()

	interrupt.HandleCtrlC()
	fmt.Printf("PlanckR1=%.2f PlanckB=%.2f PlanckF=%.2f PlanckO=%.2f Emissivity=%.2f\n",
		cal.PlanckR1, cal.PlanckB, cal.PlanckF, cal.PlanckO, cal.Emissivity)

	for !interrupt.IsSet() {
		frame, err := cam.ReadFrame(*timeout)
		if err != nil {
			return err
		}
		if frame == nil {
			fmt.Printf("\rno frame within %s, retrying...", *timeout)
			continue
		}
		stats := cam.Stats()
		fmt.Printf("\r%d good %d corrupt %d resyncs %d timeouts | min=%.1fC max=%.1fC mean=%.1fC",
			stats.GoodFrames, stats.CorruptFrames, stats.Resyncs, stats.ReadTimeouts,
			frame.MinCelsius, frame.MaxCelsius, frame.MeanCelsius)
	}
	fmt.Println()
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nflirone-query: %s.\n", err)
		os.Exit(1)
	}
}
