// Package console turns typed command lines into instrument updates, for
// bench use without a flight-data source.
package console

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"github.com/coreman2200/turn-coordinator/internal/instrument"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("usage")
)

const Help = `turn <pct>                 needle, 0..100 with 50 wings level
ball <pct>                 inclinometer, -1..1 with 0 centred
lamp <name|all> on|off     lamp names: %s
reset                      power-on readings`

// Usage is Help with the lamp names filled in.
func Usage() string {
	names := make([]string, 0, instrument.LampCount)
	for _, l := range instrument.Lamps() {
		names = append(names, l.String())
	}
	return fmt.Sprintf(Help, strings.Join(names, " "))
}

// Command is one parsed line.
type Command struct {
	Name string
	Args []string
}

// Parse splits line shell-style. Blank lines and # comments give an empty
// Command.
func Parse(line string) (Command, error) {
	words, err := shlex.Split(line)
	if err != nil {
		return Command{}, err
	}
	if len(words) == 0 {
		return Command{}, nil
	}
	return Command{Name: strings.ToLower(words[0]), Args: words[1:]}, nil
}

// Apply parses line and applies it to st.
func Apply(st *instrument.State, line string) error {
	cmd, err := Parse(line)
	if err != nil {
		return err
	}
	return cmd.Apply(st)
}

func (c Command) Apply(st *instrument.State) error {
	switch c.Name {
	case "":
		return nil
	case "turn", "ball":
		if len(c.Args) != 1 {
			return fmt.Errorf("%w: %s <pct>", ErrUsage, c.Name)
		}
		v, err := strconv.ParseFloat(c.Args[0], 64)
		if err != nil {
			return fmt.Errorf("%s: %w", c.Name, err)
		}
		if c.Name == "turn" {
			st.SetTurnCoordinate(v)
		} else {
			st.SetInclinometer(v)
		}
	case "lamp":
		if len(c.Args) != 2 {
			return fmt.Errorf("%w: lamp <name|all> on|off", ErrUsage)
		}
		on, err := parseSwitch(c.Args[1])
		if err != nil {
			return err
		}
		if strings.EqualFold(c.Args[0], "all") {
			for _, l := range instrument.Lamps() {
				st.SetLamp(l, on)
			}
			return nil
		}
		l, err := instrument.ParseLamp(c.Args[0])
		if err != nil {
			return err
		}
		st.SetLamp(l, on)
	case "reset":
		st.Reset()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, c.Name)
	}
	return nil
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("%w: expected on or off, got %q", ErrUsage, s)
}
