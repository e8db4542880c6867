// Package compat resolves which downstream SQL client the generated
// scripts target. The clients disagree on how trigger DDL must be
// terminated, so the resolved mode governs the trigger output shape.
package compat

import "strings"

// Mode selects the statement-termination shape used when rendering
// trigger DDL.
type Mode int

const (
	// ModeDataGrip targets statement-by-statement execution in DataGrip.
	// Triggers end with the closing keyword's own semicolon and nothing
	// else.
	ModeDataGrip Mode = iota
	// ModeScript targets script runners (DBeaver, SQLark, DIsql). A
	// standalone "/" separator line follows each trigger.
	ModeScript
	// ModeDataGripScript keeps the main script DataGrip-friendly and
	// routes triggers, in script shape, to a separate file.
	ModeDataGripScript
)

const (
	selectorDataGrip       = "datagrip"
	selectorScript         = "script"
	selectorDataGripScript = "datagrip-script"
)

func (m Mode) String() string {
	switch m {
	case ModeScript:
		return selectorScript
	case ModeDataGripScript:
		return selectorDataGripScript
	default:
		return selectorDataGrip
	}
}

// Resolve maps a caller-supplied selector string to a Mode. An empty or
// unrecognized selector resolves to ModeDataGrip, which appends no extra
// terminator and is accepted by every client. Resolution happens once
// per export call; the mode is never revisited mid-call.
func Resolve(selector string) Mode {
	switch strings.ToLower(strings.TrimSpace(selector)) {
	case selectorScript:
		return ModeScript
	case selectorDataGripScript:
		return ModeDataGripScript
	default:
		return ModeDataGrip
	}
}
