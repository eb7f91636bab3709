// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package flirone

import (
	"bytes"
	"encoding/binary"
)

// magic is the 4-byte sequence that marks the start of every wire frame.
var magic = [4]byte{0xEF, 0xBE, 0x00, 0x00}

const (
	headerSize        = 28      // magic(4) + reserved(4) + 4 uint32 sizes(16) + reserved(4)
	minBufferCapacity = 1 << 20 // 1 MiB, per the data model invariant.
)

// Parser is a resynchronizing state machine over a linear byte buffer. It
// never trusts the wire: every call to AddChunk either makes forward
// progress (a frame emitted, or a consumed prefix) or explicitly resets.
//
// Parser is not safe for concurrent use; the ingest path is single-threaded
// by design (see the concurrency model).
type Parser struct {
	buf     []byte
	valid   int
	resyncs int
}

// NewParser allocates a Parser with the given buffer capacity. Capacity is
// raised to minBufferCapacity if smaller, per the data model invariant
// that the parse buffer is at least 1 MiB.
func NewParser(capacity int) *Parser {
	if capacity < minBufferCapacity {
		capacity = minBufferCapacity
	}
	return &Parser{buf: make([]byte, capacity)}
}

// Reset clears all buffered bytes. Used after a device reopen; the
// Parser's output on fresh input afterwards is identical to that of a
// freshly constructed Parser.
func (p *Parser) Reset() {
	p.valid = 0
}

// AddChunk appends data to the internal buffer and attempts to parse as
// many complete frames as the buffered bytes allow, returning the first
// one found. Call AddChunk again (with an empty chunk, if nothing new has
// arrived) to drain additional frames already present in the buffer.
//
// A non-nil error is always a *CorruptFrameError: the parser has already
// recovered by the time it returns one, either by resetting its buffer (bad
// header) or by consuming the rejected frame (undersized thermal region). It
// is safe to ignore and keep calling AddChunk with further chunks.
func (p *Parser) AddChunk(chunk []byte) (*ParsedFrame, error) {
	if len(chunk) > 0 {
		if !p.append(chunk) {
			return nil, nil
		}
	}
	return p.tryParse()
}

// append adds chunk to the buffer, handling overflow recovery. It reports
// whether the chunk was appended to the buffer (false means overflow
// recovery consumed it instead).
func (p *Parser) append(chunk []byte) bool {
	if p.valid+len(chunk) > len(p.buf) {
		p.recoverOverflow(chunk)
		return false
	}
	copy(p.buf[p.valid:], chunk)
	p.valid += len(chunk)
	return true
}

// recoverOverflow handles a chunk that would overflow the buffer: search
// the new chunk itself for magic and restart the buffer from there, or
// keep only a magic-prefix candidate.
func (p *Parser) recoverOverflow(chunk []byte) {
	pos := bytes.Index(chunk, magic[:])
	if pos >= 0 {
		tail := chunk[pos:]
		n := copy(p.buf, tail)
		p.valid = n
		return
	}
	keep := 3
	if len(chunk) < keep {
		keep = len(chunk)
	}
	copy(p.buf, chunk[len(chunk)-keep:])
	p.valid = keep
}

// tryParse drives the SYNCED/RESYNCING state machine until no further
// progress can be made without more bytes. A successful resync realigns the
// buffer to the next magic candidate, which may already be followed by a
// complete frame, so it loops back and re-evaluates rather than returning.
func (p *Parser) tryParse() (*ParsedFrame, error) {
	for {
		if p.valid < 4 {
			return nil, nil
		}
		if !bytes.Equal(p.buf[:4], magic[:]) {
			if p.resync() {
				continue
			}
			return nil, nil
		}
		if p.valid < headerSize+4 {
			return nil, nil
		}
		return p.parseHeaderAndPayload()
	}
}

func (p *Parser) parseHeaderAndPayload() (*ParsedFrame, error) {
	frameSize := binary.LittleEndian.Uint32(p.buf[8:12])
	thermalSize := binary.LittleEndian.Uint32(p.buf[12:16])
	jpegSize := binary.LittleEndian.Uint32(p.buf[16:20])
	statusSize := binary.LittleEndian.Uint32(p.buf[20:24])

	if frameSize == 0 || uint64(frameSize)+headerSize > uint64(len(p.buf)) {
		p.valid = 0
		return nil, &CorruptFrameError{Reason: "frame_size invalid or exceeds buffer capacity"}
	}
	if uint64(thermalSize)+uint64(jpegSize)+uint64(statusSize) > uint64(frameSize) {
		p.valid = 0
		return nil, &CorruptFrameError{Reason: "declared sub-region sizes exceed frame_size"}
	}

	total := headerSize + int(frameSize)
	if p.valid < total {
		return nil, nil
	}

	if thermalSize < 2*thermalPixels {
		p.consume(total)
		return nil, &CorruptFrameError{Reason: "thermal_size too small for an 80x60 16-bit frame"}
	}

	f := &ParsedFrame{
		FrameSize:   frameSize,
		ThermalSize: thermalSize,
		JPEGSize:    jpegSize,
		StatusSize:  statusSize,
	}

	thermalStart := headerSize
	for y := 0; y < ThermalHeight; y++ {
		for x := 0; x < ThermalWidth; x++ {
			o := thermalStart + 2*(y*ThermalWidth+x)
			f.RawThermal[y][x] = binary.BigEndian.Uint16(p.buf[o : o+2])
		}
	}

	jpegStart := thermalStart + int(thermalSize)
	if jpegSize > 0 {
		f.JPEGBytes = append([]byte(nil), p.buf[jpegStart:jpegStart+int(jpegSize)]...)
	}
	statusStart := jpegStart + int(jpegSize)
	if statusSize > 0 {
		f.StatusData = append([]byte(nil), p.buf[statusStart:statusStart+int(statusSize)]...)
	}

	p.consume(total)
	return f, nil
}

// resync scans buf[1:valid] for magic. On a hit, the buffer is shifted so
// magic sits at offset 0 and true is returned (the caller can make further
// progress immediately). On a miss, only the last 3 bytes are retained,
// since magic may straddle the next chunk, and false is returned. Either
// way, sync was lost at least once, so the attempt is counted.
func (p *Parser) resync() bool {
	p.resyncs++
	pos := bytes.Index(p.buf[1:p.valid], magic[:])
	if pos >= 0 {
		pos++ // offset for searching from index 1
		n := copy(p.buf, p.buf[pos:p.valid])
		p.valid = n
		return true
	}
	keep := 3
	if p.valid < keep {
		keep = p.valid
	}
	copy(p.buf, p.buf[p.valid-keep:p.valid])
	p.valid = keep
	return false
}

// ResyncCount returns the lifetime number of times the parser has had to
// scan for a new magic candidate after losing sync.
func (p *Parser) ResyncCount() int {
	return p.resyncs
}

// consume removes n bytes from the front of the buffer, shifting the
// remaining tail down to offset 0.
func (p *Parser) consume(n int) {
	remaining := p.valid - n
	if remaining > 0 {
		copy(p.buf, p.buf[n:p.valid])
	}
	p.valid = remaining
}
