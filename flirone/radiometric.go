// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package flirone

import (
	"encoding/json"
	"io"
	"log"
	"math"
	"sync"
)

// Calibration holds the simplified-Planck constants for one camera. The
// zero value is not usable; use DefaultCalibration or LoadCalibration.
//
// Emissivity and ReflectedApparentTemperature are stored and may be set
// between frames, but the simplified formula in Converter.RawToCelsius
// does not yet fold them into a reflected-radiance subtraction. Whether to
// do so is a calibration decision for the camera vendor to specify, not to
// guess; see rawObject below.
type Calibration struct {
	PlanckR1                     float64 `json:"PlanckR1"`
	PlanckB                      float64 `json:"PlanckB"`
	PlanckF                      float64 `json:"PlanckF"`
	PlanckO                      float64 `json:"PlanckO"`
	Emissivity                   float64 `json:"Emissivity"`
	ReflectedApparentTemperature float64 `json:"ReflectedApparentTemperature"`
}

// DefaultCalibration returns constants representative of a Lepton-3.5-class
// sensor, used whenever no vendor-supplied record is available.
func DefaultCalibration() Calibration {
	return Calibration{
		PlanckR1:                     21106.77,
		PlanckB:                      1506.8,
		PlanckF:                      1.0,
		PlanckO:                      -7340,
		Emissivity:                   0.95,
		ReflectedApparentTemperature: 20.0,
	}
}

// LoadCalibration populates a Calibration from a JSON-shaped flat record.
// Fields absent from r keep their DefaultCalibration value. The module
// deliberately does not open files itself: where the record comes from
// (disk, embedded config, a UI) is a collaborator's concern.
func LoadCalibration(r io.Reader) (Calibration, error) {
	c := DefaultCalibration()
	dec := json.NewDecoder(r)
	if err := dec.Decode(&c); err != nil {
		return DefaultCalibration(), err
	}
	c.clamp()
	return c, nil
}

func (c *Calibration) clamp() {
	if c.Emissivity < 0.1 {
		c.Emissivity = 0.1
	}
	if c.Emissivity > 1.0 {
		c.Emissivity = 1.0
	}
}

var calibrationMissingOnce sync.Once

// Converter maps raw microbolometer counts to Celsius using a Calibration.
// It is stateless beyond the calibration constants it holds and never
// fails: every hazard (non-positive log argument, division by zero) is
// clamped rather than propagated, per the taxonomy in the radiometric
// error-handling design.
type Converter struct {
	cal Calibration
}

// NewConverter builds a Converter from cal. A zero-valued Calibration (as
// would result from an unpopulated struct literal) is replaced by
// DefaultCalibration, with a one-time diagnostic log, matching the
// calibration-missing behavior the design calls for.
func NewConverter(cal Calibration) *Converter {
	if cal == (Calibration{}) {
		calibrationMissingOnce.Do(func() {
			log.Printf("flirone: no calibration supplied, falling back to built-in Lepton-3.5-class defaults")
		})
		cal = DefaultCalibration()
	}
	cal.clamp()
	return &Converter{cal: cal}
}

// SetCalibration replaces the calibration in use. Callers must not call
// this concurrently with RawToCelsius / RawToCelsiusMatrix; it is meant to
// be published between Camera.ReadFrame calls.
func (c *Converter) SetCalibration(cal Calibration) {
	cal.clamp()
	c.cal = cal
}

// Calibration returns the calibration currently in use.
func (c *Converter) Calibration() Calibration {
	return c.cal
}

// RawToCelsius converts a single raw count to Celsius using the simplified
// Planck inversion described in the design: clamp r above PlanckO, guard
// the denominator, guard the log argument, then invert.
//
// The result is always finite: no NaN, no +-Inf, for any raw count and any
// valid Calibration.
func (c *Converter) RawToCelsius(raw uint16) float32 {
	return c.rawToCelsius(float64(raw))
}

func (c *Converter) rawToCelsius(raw float64) float32 {
	o := c.cal.PlanckO
	if raw <= o {
		raw = o + 1
	}
	denom := raw - o
	if denom == 0 {
		denom = 1
	}
	v := c.cal.PlanckR1/denom + c.cal.PlanckF
	if v <= 0 {
		v = 1
	}
	lv := math.Log(v)
	if lv == 0 {
		lv = 1
	}
	kelvin := c.cal.PlanckB / lv
	return float32(kelvin - 273.15)
}

// RawToCelsiusMatrix converts a full 60x80 raw matrix to Celsius,
// element-wise. RawToCelsiusMatrix(m)[y][x] always equals
// RawToCelsius(m[y][x]).
func (c *Converter) RawToCelsiusMatrix(raw *[ThermalHeight][ThermalWidth]uint16) [ThermalHeight][ThermalWidth]float32 {
	var out [ThermalHeight][ThermalWidth]float32
	for y := 0; y < ThermalHeight; y++ {
		for x := 0; x < ThermalWidth; x++ {
			out[y][x] = c.RawToCelsius(raw[y][x])
		}
	}
	return out
}

// rawObject is the documented extension point for folding emissivity and
// reflected apparent temperature into the conversion: given a raw count
// and the inverse-Planck image of ReflectedApparentTemperature
// (rawReflected), it would return the emissivity-corrected object radiance
// counts:
//
//	raw_obj = (raw - (1-E)*raw_refl) / E
//
// It is not wired into RawToCelsius: the full radiometric correction is an
// open calibration question that must come from the camera vendor, not be
// guessed. See SPEC_FULL.md Open Questions.
func (c *Converter) rawObject(raw, rawReflected float64) float64 {
	e := c.cal.Emissivity
	return (raw - (1-e)*rawReflected) / e
}
