// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package flirone

import "time"

// ThermalWidth and ThermalHeight are the fixed dimensions of the
// microbolometer array. They are constants of the protocol, not
// configuration.
const (
	ThermalWidth  = 80
	ThermalHeight = 60
	thermalPixels = ThermalWidth * ThermalHeight
)

// ParsedFrame is one composite frame as extracted from the wire by the
// Parser, before radiometric conversion. Ownership of its slices belongs to
// the caller; the Parser keeps no reference to them after returning.
type ParsedFrame struct {
	RawThermal [ThermalHeight][ThermalWidth]uint16
	JPEGBytes  []byte // Opaque visible-light JPEG, may be nil.
	StatusData []byte // Opaque telemetry/status region, may be nil.

	FrameSize   uint32
	ThermalSize uint32
	JPEGSize    uint32
	StatusSize  uint32
}

// Point is a pixel coordinate, x is column 0..79, y is row 0..59.
type Point struct {
	X, Y int
}

// DecodedFrame is the immutable, fully processed output of the Camera
// facade: the raw counts, their Celsius conversion, and per-frame
// statistics.
type DecodedFrame struct {
	RawThermal [ThermalHeight][ThermalWidth]uint16
	Celsius    [ThermalHeight][ThermalWidth]float32

	JPEGBytes  []byte
	StatusData []byte

	MinCelsius  float32
	MaxCelsius  float32
	MeanCelsius float32
	MinXY       Point
	MaxXY       Point

	Timestamp time.Time
}

// Stats accumulates lifetime counters about frame grabbing, mirroring the
// kind of bookkeeping a field technician would want printed on a status
// line.
type Stats struct {
	GoodFrames    int
	CorruptFrames int
	Resyncs       int
	ReadTimeouts  int
}

func statsFromCelsius(c *[ThermalHeight][ThermalWidth]float32) (min, max, mean float32, minXY, maxXY Point) {
	min = c[0][0]
	max = c[0][0]
	var sum float64
	for y := 0; y < ThermalHeight; y++ {
		for x := 0; x < ThermalWidth; x++ {
			v := c[y][x]
			sum += float64(v)
			if v < min {
				min = v
				minXY = Point{X: x, Y: y}
			}
			if v > max {
				max = v
				maxXY = Point{X: x, Y: y}
			}
		}
	}
	mean = float32(sum / float64(thermalPixels))
	return min, max, mean, minXY, maxXY
}
