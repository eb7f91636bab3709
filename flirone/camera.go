// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package flirone

import (
	"time"
)

// Camera composes Bus, Parser, and Converter into the read_frame(timeout)
// operation described by the design. It is single-threaded along the
// ingest path: one owner calls Open, then ReadFrame repeatedly, then
// Close; see SPEC_FULL.md §5 for the concurrency model a caller must
// respect if it wants to fan out to multiple consumers.
type Camera struct {
	bus    Bus
	parser *Parser
	conv   *Converter
	stats  Stats
	closed bool
}

// NewCamera returns a Camera driving bus with the given calibration. Pass
// NewTransport() for real hardware, or a fake Bus in tests.
func NewCamera(bus Bus, cal Calibration) *Camera {
	return &Camera{
		bus:    bus,
		parser: NewParser(minBufferCapacity),
		conv:   NewConverter(cal),
	}
}

// Open claims the device and resets parser state.
func (c *Camera) Open() error {
	if err := c.bus.Open(); err != nil {
		return err
	}
	c.parser.Reset()
	c.closed = false
	return nil
}

// Close releases the device and clears state. Close is exclusive with
// ReadFrame: a caller sharing a Camera across goroutines must serialize
// the two itself (see SPEC_FULL.md §5).
func (c *Camera) Close() error {
	c.closed = true
	return c.bus.Close()
}

// Stats returns the lifetime frame-grabbing counters.
func (c *Camera) Stats() Stats {
	return c.stats
}

// SetCalibration updates the radiometric calibration in use. Call it
// between ReadFrame calls, never concurrently with one.
func (c *Camera) SetCalibration(cal Calibration) {
	c.conv.SetCalibration(cal)
}

// ReadFrame polls the bus until a complete frame is parsed or timeout
// elapses, returning nil (not an error) on deadline per the design's
// Option<DecodedFrame> contract. It is the single place that combines
// transport timeouts with the caller's own deadline.
func (c *Camera) ReadFrame(timeout time.Duration) (*DecodedFrame, error) {
	if c.closed {
		return nil, &TransportError{Op: "read_frame", Err: errClosed}
	}
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}
		chunk, err := c.bus.Read(int(remaining / time.Millisecond))
		if err != nil {
			c.closed = true
			return nil, err
		}
		if chunk == nil {
			c.stats.ReadTimeouts++
			continue
		}
		parsed, perr := c.parser.AddChunk(chunk)
		c.stats.Resyncs = c.parser.ResyncCount()
		if perr != nil {
			c.stats.CorruptFrames++
			continue
		}
		if parsed == nil {
			continue
		}
		c.stats.GoodFrames++
		return c.decode(parsed), nil
	}
}

func (c *Camera) decode(p *ParsedFrame) *DecodedFrame {
	celsius := c.conv.RawToCelsiusMatrix(&p.RawThermal)
	minC, maxC, meanC, minXY, maxXY := statsFromCelsius(&celsius)
	return &DecodedFrame{
		RawThermal:  p.RawThermal,
		Celsius:     celsius,
		JPEGBytes:   p.JPEGBytes,
		StatusData:  p.StatusData,
		MinCelsius:  minC,
		MaxCelsius:  maxC,
		MeanCelsius: meanC,
		MinXY:       minXY,
		MaxXY:       maxXY,
		Timestamp:   time.Now(),
	}
}
