// Package calendar resolves sampling-frequency offset codes and builds the
// calendar index of a synthetic series.
//
// Tick offsets (min, H, D) step by a fixed duration and accept any start.
// Anchored offsets (W, MS, Y) roll the start forward onto the next anchor
// (Sunday, first of month, December 31st) and then step anchor to anchor,
// preserving the wall-clock time of the start.
package calendar

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownOffset is returned for offset codes the calendar cannot resolve
var ErrUnknownOffset = errors.New("unknown offset code")

// MaxTime is the last instant that still encodes as an RFC3339 timestamp
var MaxTime = time.Date(9999, time.December, 31, 23, 59, 59, 999999999, time.UTC)

const (
	Minute     = "min"
	Hour       = "H"
	Day        = "D"
	Week       = "W"
	MonthStart = "MS"
	YearEnd    = "Y"
)

// Offset is a resolved frequency offset
type Offset struct {
	code string
	tick time.Duration
}

// Parse resolves an offset code
func Parse(code string) (Offset, error) {
	switch code {
	case Minute:
		return Offset{code: code, tick: time.Minute}, nil
	case Hour:
		return Offset{code: code, tick: time.Hour}, nil
	case Day:
		return Offset{code: code, tick: 24 * time.Hour}, nil
	case Week, MonthStart, YearEnd:
		return Offset{code: code}, nil
	default:
		return Offset{}, fmt.Errorf("%w: %q", ErrUnknownOffset, code)
	}
}

// MustParse is like Parse but panics on an unknown code
func MustParse(code string) Offset {
	o, err := Parse(code)
	if err != nil {
		panic(err)
	}
	return o
}

// Code returns the offset code
func (o Offset) Code() string {
	return o.code
}

// IsTick reports whether the offset is a fixed duration step
func (o Offset) IsTick() bool {
	return o.tick > 0
}

// OnOffset reports whether t lies on an anchor of the offset
func (o Offset) OnOffset(t time.Time) bool {
	switch o.code {
	case Week:
		return t.Weekday() == time.Sunday
	case MonthStart:
		return t.Day() == 1
	case YearEnd:
		return t.Month() == time.December && t.Day() == 31
	default:
		return true
	}
}

// Next returns the first anchor strictly after t
func (o Offset) Next(t time.Time) time.Time {
	if o.IsTick() {
		return t.Add(o.tick)
	}
	y, m, d := t.Date()
	h, mi, s := t.Clock()
	ns, loc := t.Nanosecond(), t.Location()

	switch o.code {
	case Week:
		days := (7 - int(t.Weekday())) % 7
		if days == 0 {
			days = 7
		}
		return time.Date(y, m, d+days, h, mi, s, ns, loc)
	case MonthStart:
		return time.Date(y, m+1, 1, h, mi, s, ns, loc)
	case YearEnd:
		if o.OnOffset(t) {
			return time.Date(y+1, time.December, 31, h, mi, s, ns, loc)
		}
		return time.Date(y, time.December, 31, h, mi, s, ns, loc)
	}
	return t
}

// RollForward returns t if it is on an anchor, otherwise the next anchor
func (o Offset) RollForward(t time.Time) time.Time {
	if o.OnOffset(t) {
		return t
	}
	return o.Next(t)
}

// Range returns n consecutive timestamps starting at start rolled forward
func (o Offset) Range(start time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	dates := make([]time.Time, n)
	cur := o.RollForward(start)
	for i := 0; i < n; i++ {
		dates[i] = cur
		cur = o.Next(cur)
	}
	return dates
}

// Last returns the final timestamp of Range(start, n) without building the
// index. n must be positive.
func (o Offset) Last(start time.Time, n int) time.Time {
	first := o.RollForward(start)
	steps := n - 1
	switch o.code {
	case Week:
		return first.AddDate(0, 0, 7*steps)
	case MonthStart:
		return first.AddDate(0, steps, 0)
	case YearEnd:
		return first.AddDate(steps, 0, 0)
	}
	// whole days first so long tick ranges cannot overflow a Duration
	perDay := int(24 * time.Hour / o.tick)
	return first.AddDate(0, 0, steps/perDay).Add(time.Duration(steps%perDay) * o.tick)
}

// Fits reports whether Range(start, n) ends no later than MaxTime
func (o Offset) Fits(start time.Time, n int) bool {
	return !o.Last(start, n).After(MaxTime)
}
