package diagnostics

import "errors"

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

const (
	CodePresent       = "FRAME.PRESENT"
	CodeSelfTestStart = "SELFTEST.RUNNING"
	CodeSelfTestDone  = "SELFTEST.DONE"
	CodeSequenceDone  = "SEQUENCE.DONE"
	CodeCommand       = "CONSOLE.COMMAND"
)

type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// Reporter receives diagnostics as they happen.
type Reporter interface {
	Report(Diagnostic)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Diagnostic)

func (f ReporterFunc) Report(d Diagnostic) { f(d) }

// PresentFailed describes a dropped frame.
func PresentFailed(frame uint64, sink string, err error) Diagnostic {
	d := Diagnostic{
		Severity: Warn,
		Code:     CodePresent,
		Summary:  "Frame dropped: display did not accept it",
		LikelyCauses: []string{
			"display bus busy or disconnected",
			"preview client too slow",
		},
		SuggestedFixes: []string{
			"check the SPI wiring and chip select",
			"lower the frame rate",
		},
		Evidence: map[string]any{"frame": frame, "sink": sink},
	}
	if err != nil {
		d.Detail = err.Error()
		d.Evidence["cause"] = innermost(err).Error()
	}
	return d
}

// CommandFailed describes an operator command that was rejected.
func CommandFailed(line string, err error) Diagnostic {
	d := Diagnostic{
		Severity: Info,
		Code:     CodeCommand,
		Summary:  "Command rejected",
		Evidence: map[string]any{"line": line},
	}
	if err != nil {
		d.Detail = err.Error()
	}
	return d
}

func innermost(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
