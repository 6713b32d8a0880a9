package ivsym

import "fmt"

// assert panics if condition is false. Used for internal invariants the
// type checker is supposed to have already ruled out (a Ref vanishing
// from memory, a map-reference type mismatch) — never for recoverable
// guest-program failures, which flow through the Outcome union in
// errors.go instead.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
