// Package conn runs commands on machines, uniformly over a local
// subprocess or an SSH session, and captures their output the way the
// per-machine tile worker and machine-lifecycle code need.
package conn

import (
	"fmt"
	"regexp"
)

// EnvVar is a single K=V pair passed to a Command.
type EnvVar struct {
	Key   string
	Value string
}

// Command describes a program to run on a machine.
type Command struct {
	Executable string
	Args       []string
	Env        []EnvVar
	CurrentDir string
}

func (c Command) String() string {
	return fmt.Sprintf("%s %v (dir=%q env=%v)", c.Executable, c.Args, c.CurrentDir, c.Env)
}

// ansiEscape matches CSI/OSC terminal escape sequences. No maintained Go
// module in this dependency surface strips ANSI escapes the way the
// original's strip-ansi-escapes crate does, so this one small routine is
// hand-rolled rather than pulled from an unrelated library.
var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]|\x1b\][^\x07]*\x07`)

func stripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}
