// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// flirone-grab captures a single composite frame from a FLIR One Pro LT and
// saves the raw thermal data as a 16-bit grayscale PNG.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"time"

	"github.com/gocamera/flirone/flirone"
)

func mainImpl() error {
	calPath := flag.String("cal", "", "path to a JSON calibration record")
	fake := flag.Bool("fake", false, "use a synthetic camera instead of real hardware")
	timeout := flag.Duration("timeout", 5*time.Second, "time to wait for a frame")
	meta := flag.Bool("meta", false, "print frame statistics")
	flag.Parse()

	if flag.NArg() != 1 {
		return errors.New("supply path to PNG to save")
	}

	cal := flirone.DefaultCalibration()
	if *calPath != "" {
		f, err := os.Open(*calPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if cal, err = flirone.LoadCalibration(f); err != nil {
			return fmt.Errorf("loading calibration from %s: %w", *calPath, err)
		}
	}

	cam, err := openCamera(*fake, cal)
	if err != nil {
		return fmt.Errorf("%s\nIf testing without hardware, use -fake to simulate a camera", err)
	}
	defer cam.Close()

	frame, err := cam.ReadFrame(*timeout)
	if err != nil {
		return err
	}
	if frame == nil {
		return fmt.Errorf("no frame received within %s", *timeout)
	}

	if *meta {
		fmt.Printf("Min:   %.2f C at (%d,%d)\n", frame.MinCelsius, frame.MinXY.X, frame.MinXY.Y)
		fmt.Printf("Max:   %.2f C at (%d,%d)\n", frame.MaxCelsius, frame.MaxXY.X, frame.MaxXY.Y)
		fmt.Printf("Mean:  %.2f C\n", frame.MeanCelsius)
		fmt.Printf("JPEG:  %d bytes\n", len(frame.JPEGBytes))
		fmt.Printf("Status: %d bytes\n", len(frame.StatusData))
	}

	out, err := os.Create(flag.Args()[0])
	if err != nil {
		return err
	}
	defer out.Close()
	return png.Encode(out, rawThermalImage(frame))
}

// rawThermalImage renders the raw counts as a 16-bit grayscale image.Gray16
// with no dynamic range adjustment: that kind of AGC/palette rendering is
// an explicit collaborator concern, not this driver's.
func rawThermalImage(frame *flirone.DecodedFrame) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, flirone.ThermalWidth, flirone.ThermalHeight))
	for y := 0; y < flirone.ThermalHeight; y++ {
		for x := 0; x < flirone.ThermalWidth; x++ {
			img.SetGray16(x, y, color.Gray16{Y: frame.RawThermal[y][x]})
		}
	}
	return img
}

// openCamera opens either a real USB-backed Camera or, with fake set, a
// synthetic one driven by flirone.NewSimulatedBus for testing without
// hardware.
func openCamera(fake bool, cal flirone.Calibration) (*flirone.Camera, error) {
	var bus flirone.Bus
	if fake {
		bus = flirone.NewSimulatedBus()
	} else {
		bus = flirone.NewTransport()
	}
	cam := flirone.NewCamera(bus, cal)
	if err := cam.Open(); err != nil {
		return nil, err
	}
	return cam, nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nflirone-grab: %s.\n", err)
		os.Exit(1)
	}
}
