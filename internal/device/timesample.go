package device

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FractionDigits is the fractional-second resolution the instrument accepts
// in alarm configuration writes.
const FractionDigits = 9

// TimeSample is one reading of the instrument's absolute TAI clock,
// split into integer seconds and a fractional remainder in [0, 1).
// Samples are ephemeral: every scheduling decision takes a fresh one.
type TimeSample struct {
	// Sec is the integer-second part of the reading.
	Sec int64
	// Frac is the fractional-second part, in [0, 1).
	Frac float64
}

// Add returns the sample shifted by d seconds, carrying overflow of the
// fractional part into the integer part so Frac stays in [0, 1).
func (t TimeSample) Add(d float64) TimeSample {
	frac := t.Frac + d
	carry := math.Floor(frac)

	sec := t.Sec + int64(carry)
	frac -= carry

	// Floating-point round-off can leave frac at exactly 1.0.
	if frac >= 1 {
		sec++
		frac--
	}

	if frac < 0 {
		sec--
		frac++
	}

	return TimeSample{Sec: sec, Frac: frac}
}

// Sub returns t minus other, in seconds.
func (t TimeSample) Sub(other TimeSample) float64 {
	return float64(t.Sec-other.Sec) + (t.Frac - other.Frac)
}

// After reports whether t is strictly later than other.
func (t TimeSample) After(other TimeSample) bool {
	return t.Sub(other) > 0
}

// Seconds returns the sample as one float64 second count.
// Precision degrades for large Sec; use Sub for interval arithmetic.
func (t TimeSample) Seconds() float64 {
	return float64(t.Sec) + t.Frac
}

// FracString formats the fractional part to the instrument's resolution.
func (t TimeSample) FracString() string {
	return strconv.FormatFloat(t.Frac, 'f', FractionDigits, 64)
}

// String renders the sample the way the instrument reports it.
func (t TimeSample) String() string {
	return fmt.Sprintf("%d,%s", t.Sec, t.FracString())
}

// parseTimeSample parses the "<sec>,<frac>" form returned by the time query.
func parseTimeSample(s string) (TimeSample, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return TimeSample{}, fmt.Errorf("%w: time reading %q", ErrBadResponse, s)
	}

	sec, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return TimeSample{}, fmt.Errorf("%w: seconds in %q", ErrBadResponse, s)
	}

	frac, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || frac < 0 || frac >= 1 {
		return TimeSample{}, fmt.Errorf("%w: fraction in %q", ErrBadResponse, s)
	}

	return TimeSample{Sec: sec, Frac: frac}, nil
}
