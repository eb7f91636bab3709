// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package flirone

import (
	"bytes"
	"encoding/binary"
	"math/rand"
)

// vector is one Gaussian blob in the synthetic thermal scene, same shape as
// the teacher's noise generator.
type vector struct {
	intensity float64
	x, y      float64
}

// noise is cheezy but gets tests going without a device.
type noise struct {
	rand    *rand.Rand
	vectors []vector
}

func makeNoise() *noise {
	n := &noise{rand: rand.New(rand.NewSource(0))}
	n.vectors = make([]vector, 10)
	for i := range n.vectors {
		n.vectors[i].intensity = n.rand.NormFloat64() * 10
		n.vectors[i].x = n.rand.NormFloat64()*14 + 40
		n.vectors[i].y = n.rand.NormFloat64()*10 + 30
	}
	return n
}

func (n *noise) update() {
	for i := range n.vectors {
		n.vectors[i].intensity += n.rand.NormFloat64() * 0.1
		n.vectors[i].x += n.rand.NormFloat64() * 0.1
		n.vectors[i].y += n.rand.NormFloat64() * 0.1
	}
}

func (n *noise) render() [ThermalHeight][ThermalWidth]uint16 {
	var out [ThermalHeight][ThermalWidth]uint16
	const dynamicRange = 128
	for y := 0; y < ThermalHeight; y++ {
		fy := float64(y)
		for x := 0; x < ThermalWidth; x++ {
			fx := float64(x)
			value := float64(8192)
			for _, vec := range n.vectors {
				distance := (vec.x-fx)*(vec.x-fx) + (vec.y-fy)*(vec.y-fy)
				value += vec.intensity / distance
			}
			if value >= float64(8192+dynamicRange) {
				value = float64(8192 + dynamicRange)
			}
			if value < float64(8192-dynamicRange) {
				value = float64(8192 - dynamicRange)
			}
			out[y][x] = uint16(value)
		}
	}
	return out
}

// fakeBus is a hardware-free Bus that emits a continuous stream of
// well-formed wire frames built around a synthetic noise scene, optionally
// interleaved with prefix garbage to exercise resync. It implements Bus.
type fakeBus struct {
	noise       *noise
	frameCount  int
	prefixNoise int // bytes of 0xFF to prepend before the next frame
	pending     []byte
	open        bool
}

// newFakeBus returns a fakeBus ready to Open.
func newFakeBus() *fakeBus {
	return &fakeBus{noise: makeNoise()}
}

// NewSimulatedBus returns a Bus backed by a synthetic noise scene instead of
// real USB hardware, for exercising Camera without a FLIR One attached.
func NewSimulatedBus() Bus {
	return newFakeBus()
}

func (f *fakeBus) Open() error {
	f.open = true
	return nil
}

func (f *fakeBus) Close() error {
	f.open = false
	return nil
}

// Read returns up to bulkReadSize bytes of the synthetic stream, building
// one more encoded frame into the pending buffer whenever it runs low.
func (f *fakeBus) Read(timeoutMs int) ([]byte, error) {
	if !f.open {
		return nil, &TransportError{Op: "read", Err: errClosed}
	}
	for len(f.pending) < bulkReadSize {
		f.pending = append(f.pending, f.nextFrameBytes()...)
	}
	n := bulkReadSize
	if n > len(f.pending) {
		n = len(f.pending)
	}
	chunk := f.pending[:n]
	f.pending = f.pending[n:]
	return chunk, nil
}

func (f *fakeBus) nextFrameBytes() []byte {
	f.noise.update()
	thermal := f.noise.render()
	f.frameCount++

	var buf bytes.Buffer
	if f.prefixNoise > 0 {
		buf.Write(bytes.Repeat([]byte{0xFF}, f.prefixNoise))
		f.prefixNoise = 0
	}

	thermalBytes := make([]byte, 2*thermalPixels)
	for y := 0; y < ThermalHeight; y++ {
		for x := 0; x < ThermalWidth; x++ {
			o := 2 * (y*ThermalWidth + x)
			binary.BigEndian.PutUint16(thermalBytes[o:o+2], thermal[y][x])
		}
	}

	frameSize := uint32(len(thermalBytes))
	buf.Write(magic[:])
	var reserved [4]byte
	buf.Write(reserved[:])
	var sizes [16]byte
	binary.LittleEndian.PutUint32(sizes[0:4], frameSize)
	binary.LittleEndian.PutUint32(sizes[4:8], frameSize)
	binary.LittleEndian.PutUint32(sizes[8:12], 0)
	binary.LittleEndian.PutUint32(sizes[12:16], 0)
	buf.Write(sizes[:])
	buf.Write(reserved[:])
	buf.Write(thermalBytes)
	return buf.Bytes()
}
