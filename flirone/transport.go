// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package flirone

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/gousb"
)

// USB identity and transfer parameters, per the device's non-standard
// stream-start handshake (see SPEC_FULL.md §4.1).
const (
	vendorID  = 0x09CB
	productID = 0x1996

	usbConfiguration = 3
	bulkInEndpoint   = 0x85
	bulkReadSize     = 16384

	controlRequestType = 0x01 // host-to-device, standard, interface
	controlRequest     = 0x0B // SET_INTERFACE
	controlTimeout     = 100 * time.Millisecond
)

var claimedInterfaces = [3]int{0, 1, 2}

// Transport drives the FLIR One Pro LT's USB control handshake and bulk
// read stream via gousb (a cgo binding over libusb). It implements Bus.
type Transport struct {
	ctx     *gousb.Context
	dev     *gousb.Device
	cfg     *gousb.Config
	ifaces  []*gousb.Interface
	claimed []int
	ep      *gousb.InEndpoint
}

// NewTransport returns an unopened Transport. Call Open before Read.
func NewTransport() *Transport {
	return &Transport{}
}

// Open locates the device, detaches any kernel driver, selects
// configuration 3, claims interfaces {0,1,2} (warning but continuing on
// per-interface failure), and drives the five-step stream-start handshake.
func (t *Transport) Open() error {
	ctx := gousb.NewContext()
	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vendorID), gousb.ID(productID))
	if err != nil {
		ctx.Close()
		return &TransportError{Op: "open device", Err: err}
	}
	if dev == nil {
		ctx.Close()
		return ErrDeviceNotFound
	}
	t.ctx = ctx
	t.dev = dev

	// Ignore "not attached" errors: gousb/libusb surfaces kernel-driver
	// detach failures for interfaces that were never bound to a kernel
	// driver in the first place.
	_ = dev.SetAutoDetach(true)

	cfg, err := dev.Config(usbConfiguration)
	if err != nil {
		t.closeBestEffort()
		return &TransportError{Op: "set configuration", Err: err}
	}
	t.cfg = cfg

	for _, n := range claimedInterfaces {
		iface, err := cfg.Interface(n, 0)
		if err != nil {
			// Interface 0 in particular may be unavailable and is not
			// required for streaming; warn and keep going.
			log.Printf("flirone: claim interface %d failed: %s", n, err)
			continue
		}
		t.ifaces = append(t.ifaces, iface)
		t.claimed = append(t.claimed, n)
	}
	if len(t.claimed) == 0 {
		t.closeBestEffort()
		return ErrDeviceBusy
	}

	dev.ControlTimeout = controlTimeout
	if err := t.handshake(); err != nil {
		t.closeBestEffort()
		return &TransportError{Op: "stream-start handshake", Err: err}
	}

	ep, err := t.ifaces[len(t.ifaces)-1].InEndpoint(bulkInEndpoint)
	if err != nil {
		// Fall back to searching every claimed interface for the bulk IN
		// endpoint; not every interface exposes it.
		for _, iface := range t.ifaces {
			if e, e2 := iface.InEndpoint(bulkInEndpoint); e2 == nil {
				ep = e
				err = nil
				break
			}
		}
	}
	if err != nil {
		t.closeBestEffort()
		return &TransportError{Op: "open bulk IN endpoint", Err: err}
	}
	t.ep = ep
	return nil
}

// handshake issues the five-step SET_INTERFACE sequence documented in
// SPEC_FULL.md §4.1: stop FRAME, stop FILEIO, start FILEIO, settle.
func (t *Transport) handshake() error {
	if _, err := t.dev.Control(controlRequestType, controlRequest, 0, 2, nil); err != nil {
		return fmt.Errorf("stop FRAME interface: %w", err)
	}
	if _, err := t.dev.Control(controlRequestType, controlRequest, 0, 1, nil); err != nil {
		return fmt.Errorf("stop FILEIO interface: %w", err)
	}
	if _, err := t.dev.Control(controlRequestType, controlRequest, 1, 1, nil); err != nil {
		return fmt.Errorf("start FILEIO interface: %w", err)
	}
	time.Sleep(100 * time.Millisecond)
	return nil
}

// Read issues one bulk-IN transfer of exactly bulkReadSize bytes, bounded
// by timeoutMs. A USB timeout or device-gone condition yields (nil, nil);
// any other error is fatal for the session.
func (t *Transport) Read(timeoutMs int) ([]byte, error) {
	if t.ep == nil {
		return nil, &TransportError{Op: "read", Err: fmt.Errorf("transport not open")}
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()

	buf := make([]byte, bulkReadSize)
	n, err := t.ep.ReadContext(ctx, buf)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded || isDeviceGone(err) {
			return nil, nil
		}
		return nil, &TransportError{Op: "bulk read", Err: err}
	}
	return buf[:n], nil
}

// isDeviceGone is a best-effort classifier: gousb does not expose a typed
// sentinel for "device disconnected", so this matches on the libusb error
// text the way the pack's USB-based drivers do for USBError.errno checks.
func isDeviceGone(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "no such device") || strings.Contains(s, "disconnected")
}

// Close releases claimed interfaces and the device, best-effort: it issues
// the stop-FRAME and stop-FILEIO control transfers (ignoring errors) before
// tearing down.
func (t *Transport) Close() error {
	if t.dev != nil {
		_, _ = t.dev.Control(controlRequestType, controlRequest, 0, 2, nil)
		_, _ = t.dev.Control(controlRequestType, controlRequest, 0, 1, nil)
	}
	t.closeBestEffort()
	return nil
}

func (t *Transport) closeBestEffort() {
	for _, iface := range t.ifaces {
		iface.Close()
	}
	t.ifaces = nil
	t.claimed = nil
	t.ep = nil
	if t.cfg != nil {
		t.cfg.Close()
		t.cfg = nil
	}
	if t.dev != nil {
		t.dev.Close()
		t.dev = nil
	}
	if t.ctx != nil {
		t.ctx.Close()
		t.ctx = nil
	}
}
