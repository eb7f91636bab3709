// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package flirone

// Bus is the minimal contract the Camera facade needs from a transport: it
// can be opened, closed, and polled for a bulk-read-sized chunk of bytes.
// The real implementation is *Transport; fakeBus provides a hardware-free
// stand-in for tests.
type Bus interface {
	Open() error
	Close() error
	Read(timeoutMs int) ([]byte, error)
}
