// Package testutil provides a tiny assertion helper in the style the
// teacher package's own tests use (an asserter closure bound to a
// *testing.T and a context label).
package testutil

import "testing"

// Asserter fails the test immediately (via t.Fatalf) when cond is false.
type Asserter func(cond bool, format string, v ...interface{})

// NewAsserter returns an Asserter that prefixes failures with ctx.
func NewAsserter(t *testing.T, ctx string) Asserter {
	return func(cond bool, format string, v ...interface{}) {
		if cond {
			return
		}
		t.Helper()
		if ctx != "" {
			t.Fatalf("%s: "+format, append([]interface{}{ctx}, v...)...)
		}
		t.Fatalf(format, v...)
	}
}
