package sequence

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/coreman2200/turn-coordinator/internal/instrument"
)

// NewPlayer constructs a Player with provided hooks.
func NewPlayer(h Hooks) *Player {
	return &Player{State: Idle, hooks: h}
}

// Load replaces the current program. Resets time and state to Idle.
func (p *Player) Load(prog Program) error {
	if len(prog.Clips) == 0 {
		return errors.New("program has no clips")
	}
	lamps := make([][]lampEnv, len(prog.Clips))
	total := 0.0
	for i, c := range prog.Clips {
		if !(c.DurationS > 0) || math.IsInf(c.DurationS, 0) {
			return fmt.Errorf("clip %d (%s): duration must be positive", i, c.Name)
		}
		total += c.DurationS
		for name, env := range c.Params {
			if name != ParamTurn && name != ParamBall {
				return fmt.Errorf("clip %d (%s): unknown param %q", i, c.Name, name)
			}
			if err := checkEnvelope(env); err != nil {
				return fmt.Errorf("clip %d (%s): param %s: %w", i, c.Name, name, err)
			}
		}
		names := make([]string, 0, len(c.Lamps))
		for name := range c.Lamps {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			env := c.Lamps[name]
			if err := checkEnvelope(env); err != nil {
				return fmt.Errorf("clip %d (%s): lamp %s: %w", i, c.Name, name, err)
			}
			if name == AllLamps {
				lamps[i] = append(lamps[i], lampEnv{lamps: instrument.Lamps(), env: env})
				continue
			}
			l, err := instrument.ParseLamp(name)
			if err != nil {
				return fmt.Errorf("clip %d (%s): %w", i, c.Name, err)
			}
			lamps[i] = append(lamps[i], lampEnv{lamps: []instrument.Lamp{l}, env: env})
		}
	}
	p.prog = prog
	p.lamps = lamps
	p.total = total
	p.nowS = 0
	p.idx = 0
	p.State = Idle
	return nil
}

func checkEnvelope(e Envelope) error {
	for i, k := range e.Keys {
		if math.IsNaN(k.T) || math.IsNaN(k.V) || math.IsInf(k.V, 0) {
			return fmt.Errorf("keyframe %d is not finite", i)
		}
		if !validEase(k.Ease) {
			return fmt.Errorf("keyframe %d: unknown ease %q", i, k.Ease)
		}
		if i > 0 && k.T < e.Keys[i-1].T {
			return fmt.Errorf("keyframe %d out of order", i)
		}
	}
	return nil
}

// Start moves to Running and applies the current clip straight away.
func (p *Player) Start() {
	if p.State == Running || len(p.prog.Clips) == 0 {
		return
	}
	p.State = Running
	p.enter()
	p.apply()
}

// Pause pauses playback.
func (p *Player) Pause() {
	if p.State == Running {
		p.State = Paused
	}
}

// Resume resumes playback.
func (p *Player) Resume() {
	if p.State == Paused {
		p.State = Running
	}
}

// Stop stops and resets to start.
func (p *Player) Stop() {
	p.State = Idle
	p.nowS = 0
	p.idx = 0
}

// Now is the position within the program in seconds.
func (p *Player) Now() float64 { return p.nowS }

// Clip is the name of the current clip.
func (p *Player) Clip() string {
	if len(p.prog.Clips) == 0 {
		return ""
	}
	return p.prog.Clips[p.idx].Name
}

// Seek jumps to absolute program time t. Clamps into [0, totalDur).
func (p *Player) Seek(t float64) {
	if len(p.prog.Clips) == 0 || math.IsNaN(t) {
		return
	}
	if t < 0 {
		t = 0
	}
	if t >= p.total {
		// Clamp to just before end
		t = math.Nextafter(p.total, -1)
	}
	acc := 0.0
	idx := len(p.prog.Clips) - 1
	for i, c := range p.prog.Clips {
		if t < acc+c.DurationS {
			idx = i
			break
		}
		acc += c.DurationS
	}
	p.idx = idx
	p.nowS = t
	if p.State != Idle {
		p.enter()
		p.apply()
	}
}

// Tick advances the sequencer by dt seconds and emits control hooks.
func (p *Player) Tick(dt float64) {
	if p.State != Running || len(p.prog.Clips) == 0 {
		return
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return
	}
	p.nowS += dt

	for {
		clip, localT := p.currentClipAndLocalT()
		if localT < clip.DurationS {
			break
		}
		if !p.advanceClip() {
			p.emit(p.idx, clip.DurationS)
			p.State = Idle
			if p.hooks.Done != nil {
				p.hooks.Done()
			}
			return
		}
	}
	p.apply()
}

func (p *Player) apply() {
	_, localT := p.currentClipAndLocalT()
	p.emit(p.idx, localT)
}

func (p *Player) emit(idx int, localT float64) {
	clip := p.prog.Clips[idx]
	if p.hooks.SetParam != nil {
		for _, name := range []string{ParamTurn, ParamBall} {
			if env, ok := clip.Params[name]; ok {
				p.hooks.SetParam(name, env.Eval(localT))
			}
		}
	}
	if p.hooks.SetLamp != nil {
		for _, le := range p.lamps[idx] {
			on := le.env.BoolEval(localT)
			for _, l := range le.lamps {
				p.hooks.SetLamp(l, on)
			}
		}
	}
}

func (p *Player) enter() {
	if p.hooks.ClipStarted != nil {
		p.hooks.ClipStarted(p.prog.Clips[p.idx].Name)
	}
}

func (p *Player) currentClipAndLocalT() (Clip, float64) {
	acc := 0.0
	for i := 0; i < p.idx; i++ {
		acc += p.prog.Clips[i].DurationS
	}
	return p.prog.Clips[p.idx], p.nowS - acc
}

// advanceClip moves to the next clip, wrapping the timeline when the program
// loops. It reports false at the end of a non-looping program.
func (p *Player) advanceClip() bool {
	next := p.idx + 1
	if next >= len(p.prog.Clips) {
		if !p.prog.Loop {
			return false
		}
		next = 0
		p.nowS -= p.total
	}
	p.idx = next
	p.enter()
	return true
}
