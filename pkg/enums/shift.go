package enums

import "fmt"

// Shift is a named slice of the training day used to filter schedules.
type Shift string

const (
	ShiftMorning   Shift = "morning"
	ShiftAfternoon Shift = "afternoon"
	ShiftNight     Shift = "night"
)

var validShifts = []Shift{ShiftMorning, ShiftAfternoon, ShiftNight}

// Bounds returns the "HH:MM:SS" start bounds of the shift. Morning and
// afternoon are half-open; night includes its upper bound.
func (s Shift) Bounds() (from, to string, inclusive bool) {
	switch s {
	case ShiftMorning:
		return "07:00:00", "12:00:00", false
	case ShiftAfternoon:
		return "13:00:00", "18:00:00", false
	case ShiftNight:
		return "18:00:00", "22:00:00", true
	}
	return "", "", false
}

func (s Shift) IsValid() bool {
	for _, candidate := range validShifts {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseShift(value string) (Shift, error) {
	for _, candidate := range validShifts {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shift %q", value)
}
