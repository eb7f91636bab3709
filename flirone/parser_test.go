// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package flirone

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildFrame encodes one wire-format frame with the given thermal, JPEG, and
// status payloads.
func buildFrame(thermal [ThermalHeight][ThermalWidth]uint16, jpeg, status []byte) []byte {
	thermalBytes := make([]byte, 2*thermalPixels)
	for y := 0; y < ThermalHeight; y++ {
		for x := 0; x < ThermalWidth; x++ {
			o := 2 * (y*ThermalWidth + x)
			binary.BigEndian.PutUint16(thermalBytes[o:o+2], thermal[y][x])
		}
	}

	var buf bytes.Buffer
	buf.Write(magic[:])
	buf.Write(make([]byte, 4)) // reserved

	frameSize := uint32(len(thermalBytes) + len(jpeg) + len(status))
	var sizes [16]byte
	binary.LittleEndian.PutUint32(sizes[0:4], frameSize)
	binary.LittleEndian.PutUint32(sizes[4:8], uint32(len(thermalBytes)))
	binary.LittleEndian.PutUint32(sizes[8:12], uint32(len(jpeg)))
	binary.LittleEndian.PutUint32(sizes[12:16], uint32(len(status)))
	buf.Write(sizes[:])
	buf.Write(make([]byte, 4)) // reserved

	buf.Write(thermalBytes)
	buf.Write(jpeg)
	buf.Write(status)
	return buf.Bytes()
}

func TestParser_minimalFrame(t *testing.T) {
	var thermal [ThermalHeight][ThermalWidth]uint16
	thermal[0][0] = 1234
	thermal[59][79] = 5678
	wire := buildFrame(thermal, nil, nil)

	p := NewParser(0)
	f, err := p.AddChunk(wire)
	if err != nil {
		t.Fatal(err)
	}
	if f == nil {
		t.Fatal("expected a frame")
	}
	if f.RawThermal[0][0] != 1234 || f.RawThermal[59][79] != 5678 {
		t.Fatalf("unexpected thermal data: %+v", f.RawThermal[0][0])
	}
	if len(f.JPEGBytes) != 0 || len(f.StatusData) != 0 {
		t.Fatal("expected no JPEG or status payload")
	}
}

func TestParser_jpegAndStatus(t *testing.T) {
	var thermal [ThermalHeight][ThermalWidth]uint16
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xD9}
	status := []byte{1, 2, 3, 4, 5}
	wire := buildFrame(thermal, jpeg, status)

	p := NewParser(0)
	f, err := p.AddChunk(wire)
	if err != nil {
		t.Fatal(err)
	}
	if f == nil {
		t.Fatal("expected a frame")
	}
	if !bytes.Equal(f.JPEGBytes, jpeg) {
		t.Fatalf("jpeg mismatch: %v", f.JPEGBytes)
	}
	if !bytes.Equal(f.StatusData, status) {
		t.Fatalf("status mismatch: %v", f.StatusData)
	}
}

func TestParser_resyncWithGarbagePrefix(t *testing.T) {
	var thermal [ThermalHeight][ThermalWidth]uint16
	thermal[10][10] = 42
	wire := buildFrame(thermal, nil, nil)

	garbage := bytes.Repeat([]byte{0xFF}, 17)
	input := append(garbage, wire...)

	p := NewParser(0)
	f, err := p.AddChunk(input)
	if err != nil {
		t.Fatal(err)
	}
	if f == nil {
		t.Fatal("expected a frame after resync")
	}
	if f.RawThermal[10][10] != 42 {
		t.Fatalf("unexpected pixel: %d", f.RawThermal[10][10])
	}
	if p.ResyncCount() == 0 {
		t.Fatal("expected the garbage prefix to be counted as a resync")
	}
}

func TestParser_splitChunks(t *testing.T) {
	var thermal [ThermalHeight][ThermalWidth]uint16
	thermal[5][5] = 999
	wire := buildFrame(thermal, nil, nil)

	p := NewParser(0)
	var got *ParsedFrame
	for i := 0; i < len(wire); i += 3 {
		end := i + 3
		if end > len(wire) {
			end = len(wire)
		}
		f, err := p.AddChunk(wire[i:end])
		if err != nil {
			t.Fatal(err)
		}
		if f != nil {
			got = f
		}
	}
	if got == nil {
		t.Fatal("expected a frame once all chunks arrived")
	}
	if got.RawThermal[5][5] != 999 {
		t.Fatalf("unexpected pixel: %d", got.RawThermal[5][5])
	}
}

func TestParser_twoFramesBackToBack(t *testing.T) {
	var t1, t2 [ThermalHeight][ThermalWidth]uint16
	t1[0][0] = 111
	t2[0][0] = 222
	wire := append(buildFrame(t1, nil, nil), buildFrame(t2, nil, nil)...)

	p := NewParser(0)
	first, err := p.AddChunk(wire)
	if err != nil {
		t.Fatal(err)
	}
	if first == nil || first.RawThermal[0][0] != 111 {
		t.Fatalf("unexpected first frame: %+v", first)
	}
	second, err := p.AddChunk(nil)
	if err != nil {
		t.Fatal(err)
	}
	if second == nil || second.RawThermal[0][0] != 222 {
		t.Fatalf("unexpected second frame: %+v", second)
	}
}

func TestParser_corruptFrameSize(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(magic[:])
	buf.Write(make([]byte, 4))
	var sizes [16]byte
	binary.LittleEndian.PutUint32(sizes[0:4], 0xFFFFFFFF)
	buf.Write(sizes[:])
	buf.Write(make([]byte, 4))
	buf.Write(make([]byte, 4)) // the parser reads the sizes once headerSize+4 bytes are buffered

	p := NewParser(0)
	f, err := p.AddChunk(buf.Bytes())
	if err == nil {
		t.Fatal("expected a CorruptFrameError")
	}
	if _, ok := err.(*CorruptFrameError); !ok {
		t.Fatalf("expected *CorruptFrameError, got %T", err)
	}
	if f != nil {
		t.Fatal("expected no frame alongside the error")
	}
	if p.valid != 0 {
		t.Fatal("expected the buffer to be reset after a corrupt header")
	}
}

func TestParser_thermalSizeTooSmall(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(magic[:])
	buf.Write(make([]byte, 4))
	payload := make([]byte, 100)
	var sizes [16]byte
	binary.LittleEndian.PutUint32(sizes[0:4], uint32(len(payload)))
	binary.LittleEndian.PutUint32(sizes[4:8], 100) // far short of 2*thermalPixels
	buf.Write(sizes[:])
	buf.Write(make([]byte, 4))
	buf.Write(payload)

	p := NewParser(0)
	f, err := p.AddChunk(buf.Bytes())
	if err == nil {
		t.Fatal("expected a CorruptFrameError")
	}
	if f != nil {
		t.Fatal("expected no frame")
	}
}

func TestParser_resetMatchesFreshParser(t *testing.T) {
	var thermal [ThermalHeight][ThermalWidth]uint16
	thermal[3][3] = 7
	wire := buildFrame(thermal, nil, nil)

	p := NewParser(0)
	if _, err := p.AddChunk(bytes.Repeat([]byte{0xAA}, 50)); err != nil {
		t.Fatal(err)
	}
	p.Reset()

	f, err := p.AddChunk(wire)
	if err != nil {
		t.Fatal(err)
	}
	if f == nil || f.RawThermal[3][3] != 7 {
		t.Fatalf("unexpected frame after reset: %+v", f)
	}
}
