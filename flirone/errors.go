// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package flirone

import "fmt"

// ErrDeviceNotFound is returned by Open when no device matching the
// expected vendor/product ID is present.
var ErrDeviceNotFound = fmt.Errorf("flirone: device not found")

// ErrDeviceBusy is returned by Open when the device is present but every
// interface claim failed.
var ErrDeviceBusy = fmt.Errorf("flirone: device busy")

// errClosed is returned internally when ReadFrame is called on a Camera
// that has already hit a transport-fatal error or had Close called.
var errClosed = fmt.Errorf("flirone: camera is closed")

// TransportError wraps a fatal, non-recoverable transport failure. Once
// returned, the Camera considers itself closed.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("flirone: transport: %s: %s", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// CorruptFrameError describes a frame the parser rejected while validating
// its header or thermal region. The parser has already recovered (the buffer
// was reset, or the rejected frame was consumed) by the time this is
// returned; it is informational.
type CorruptFrameError struct {
	Reason string
}

func (e *CorruptFrameError) Error() string {
	return fmt.Sprintf("flirone: corrupt frame: %s", e.Reason)
}
