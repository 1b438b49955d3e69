package instrument

import (
	"fmt"
	"strings"
)

// Lamp names one of the annunciator lamps on the gauge face.
type Lamp uint8

const (
	AltitudeHold Lamp = iota
	Ready
	LowVoltage
	TrimUp
	TrimDown
	SelectedTrack
	Heading
	TrackCaptureLow
	TrackCaptureHigh

	LampCount int = iota
)

var lampNames = [LampCount]string{
	"altitude_hold",
	"ready",
	"low_voltage",
	"trim_up",
	"trim_down",
	"selected_track",
	"heading",
	"track_capture_low",
	"track_capture_high",
}

func (l Lamp) Valid() bool { return int(l) < LampCount }

func (l Lamp) String() string {
	if !l.Valid() {
		return fmt.Sprintf("lamp(%d)", uint8(l))
	}
	return lampNames[l]
}

// Lamps lists every lamp in draw order.
func Lamps() []Lamp {
	out := make([]Lamp, LampCount)
	for i := range out {
		out[i] = Lamp(i)
	}
	return out
}

// ParseLamp accepts names like "ready", "trim-up" or "TRACK_CAPTURE_LOW".
func ParseLamp(s string) (Lamp, error) {
	n := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for i, name := range lampNames {
		if name == n {
			return Lamp(i), nil
		}
	}
	return 0, fmt.Errorf("unknown lamp %q", s)
}

func (l Lamp) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid lamp %d", uint8(l))
	}
	return []byte(l.String()), nil
}

func (l *Lamp) UnmarshalText(b []byte) error {
	v, err := ParseLamp(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}
