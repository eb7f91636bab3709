// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package flirone

import (
	"testing"
	"time"
)

func TestCamera_openReadClose(t *testing.T) {
	cam := NewCamera(newFakeBus(), DefaultCalibration())
	if err := cam.Open(); err != nil {
		t.Fatal(err)
	}
	frame, err := cam.ReadFrame(time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if frame == nil {
		t.Fatal("expected a frame from the fake bus")
	}
	if frame.Timestamp.IsZero() {
		t.Fatal("expected a non-zero timestamp")
	}
	stats := cam.Stats()
	if stats.GoodFrames == 0 {
		t.Fatal("expected GoodFrames to be incremented")
	}
	if err := cam.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestCamera_readAfterCloseFails(t *testing.T) {
	cam := NewCamera(newFakeBus(), DefaultCalibration())
	if err := cam.Open(); err != nil {
		t.Fatal(err)
	}
	if err := cam.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := cam.ReadFrame(time.Second); err == nil {
		t.Fatal("expected an error reading from a closed camera")
	}
}

func TestCamera_statsAccumulateAcrossFrames(t *testing.T) {
	cam := NewCamera(newFakeBus(), DefaultCalibration())
	if err := cam.Open(); err != nil {
		t.Fatal(err)
	}
	defer cam.Close()

	for i := 0; i < 3; i++ {
		frame, err := cam.ReadFrame(time.Second)
		if err != nil {
			t.Fatal(err)
		}
		if frame == nil {
			t.Fatalf("expected a frame on iteration %d", i)
		}
	}
	if cam.Stats().GoodFrames != 3 {
		t.Fatalf("expected 3 good frames, got %d", cam.Stats().GoodFrames)
	}
}

func TestCamera_setCalibrationAffectsSubsequentFrames(t *testing.T) {
	cam := NewCamera(newFakeBus(), DefaultCalibration())
	if err := cam.Open(); err != nil {
		t.Fatal(err)
	}
	defer cam.Close()

	f1, err := cam.ReadFrame(time.Second)
	if err != nil || f1 == nil {
		t.Fatal(err)
	}

	alt := DefaultCalibration()
	alt.PlanckB *= 2
	cam.SetCalibration(alt)

	f2, err := cam.ReadFrame(time.Second)
	if err != nil || f2 == nil {
		t.Fatal(err)
	}
	if f1.MeanCelsius == f2.MeanCelsius {
		t.Fatal("expected calibration change to affect the conversion")
	}
}

func TestCamera_resyncRecoversFromGarbagePrefix(t *testing.T) {
	bus := newFakeBus()
	bus.prefixNoise = 17
	cam := NewCamera(bus, DefaultCalibration())
	if err := cam.Open(); err != nil {
		t.Fatal(err)
	}
	defer cam.Close()

	frame, err := cam.ReadFrame(2 * time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if frame == nil {
		t.Fatal("expected a frame despite the garbage prefix")
	}
	if cam.Stats().Resyncs == 0 {
		t.Fatal("expected the garbage prefix to have triggered at least one resync")
	}
}
