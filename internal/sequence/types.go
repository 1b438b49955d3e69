package sequence

import (
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/coreman2200/turn-coordinator/internal/instrument"
)

// Parameters a clip can automate.
const (
	ParamTurn = "turn"
	ParamBall = "ball"
)

// AllLamps as a lamp key drives every lamp from one envelope.
const AllLamps = "all"

// Keyframe represents a value at time T (seconds) with an easing function
// that applies to the segment starting at this keyframe.
type Keyframe struct {
	T    float64 `yaml:"t" json:"t"`
	V    float64 `yaml:"v" json:"v"`
	Ease string  `yaml:"ease,omitempty" json:"ease,omitempty"` // "linear","smooth","cubic","step"
}

// Envelope is a sorted list of keyframes; Eval(t) interpolates a value.
type Envelope struct {
	Keys []Keyframe
}

// UnmarshalYAML reads an envelope written as a plain list of keyframes.
func (e *Envelope) UnmarshalYAML(n *yaml.Node) error {
	var keys []Keyframe
	if err := n.Decode(&keys); err != nil {
		return err
	}
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].T < keys[j].T })
	e.Keys = keys
	return nil
}

func (e Envelope) MarshalYAML() (any, error) { return e.Keys, nil }

// Clip is one segment of a show: a duration plus the automation that runs
// during it. Lamp envelopes are thresholded at 0.5.
type Clip struct {
	Name      string              `yaml:"name"`
	DurationS float64             `yaml:"duration_s"`
	Params    map[string]Envelope `yaml:"params,omitempty"`
	Lamps     map[string]Envelope `yaml:"lamps,omitempty"`
}

// Program is a full sequence of clips.
type Program struct {
	Version string `yaml:"version"` // e.g., "seq.v1"
	Loop    bool   `yaml:"loop,omitempty"`
	Clips   []Clip `yaml:"clips"`
}

// PlayerState enumerates sequencer states.
type PlayerState string

const (
	Idle    PlayerState = "idle"
	Running PlayerState = "running"
	Paused  PlayerState = "paused"
)

// Hooks are dependency-injected callbacks into the instrument.
type Hooks struct {
	SetParam func(name string, v float64)
	SetLamp  func(l instrument.Lamp, on bool)
	// ClipStarted fires whenever playback enters a clip.
	ClipStarted func(name string)
	// Done fires when a non-looping program runs out.
	Done func()
}

type lampEnv struct {
	lamps []instrument.Lamp
	env   Envelope
}

// Player owns the current Program timeline and uses Hooks to drive the
// instrument.
type Player struct {
	State PlayerState

	prog  Program
	lamps [][]lampEnv // per clip, resolved at Load
	total float64

	nowS float64 // position within program
	idx  int     // current clip index

	hooks Hooks
}
