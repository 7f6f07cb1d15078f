// Package assert panics when an internal invariant of the ecs package does not hold.
package assert

import "fmt"

// That panics with the formatted message if cond is false.
func That(cond bool, format string, args ...any) { //nolint:goprintffuncname // it's ok
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
