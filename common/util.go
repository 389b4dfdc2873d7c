package common

import "fmt"

// Assert panics with msg (formatted with args) if cond is false. Used to guard
// structural invariants that would otherwise corrupt on-disk state silently.
func Assert(cond bool, msg string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(msg, args...))
	}
}

