// Package duration rounds and formats durations for display and parses the
// human-readable durations used in the settings file ("1day", "12h 30m").
package duration

import "time"

// Day is 24 hours.
const Day = 24 * time.Hour

// Accuracy selects the finest unit Round may use.
type Accuracy int

const (
	Minutes Accuracy = iota
	Seconds
)

// Direction selects whether Round truncates or rounds away from zero.
type Direction int

const (
	Down Direction = iota
	Up
)

// Round rounds d to a unit that depends on its magnitude: whole hours from one
// day up, whole minutes from one hour up or when acc is Minutes, and whole
// seconds otherwise. It returns the rounded duration and the remainder: the
// part cut off when rounding down, or the distance to the next unit when
// rounding up. Values that are already a multiple of the unit come back
// unchanged with a zero remainder.
func Round(d time.Duration, acc Accuracy, dir Direction) (rounded, remainder time.Duration) {
	unit := time.Second
	switch {
	case d >= Day:
		unit = time.Hour
	case d >= time.Hour || acc == Minutes:
		unit = time.Minute
	}

	whole := d.Truncate(unit)
	rest := d - whole
	if rest == 0 {
		return d, 0
	}
	if dir == Up {
		return whole + unit, unit - rest
	}
	return whole, rest
}
