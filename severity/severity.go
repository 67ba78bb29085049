// Copyright 2012, Sudhi Herle <sudhi -at- herle.net>
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package severity implements the numeric severity scale used to gate
// and tag log lines as they are fanned out to sinks. The scale matches
// syslog(3)'s notion of severity: 0 is the most severe (emergency) and 7
// is the least severe (debug); a line reaches a sink iff its severity is
// numerically at least as severe as (ie <=) the sink's configured
// ceiling.
package severity

import (
	"fmt"
	"strconv"
	"strings"
)

// Level is a syslog-compatible severity in the closed range [0,7].
type Level int

const (
	Emergency Level = iota // system is unusable
	Alert                  // action must be taken immediately
	Critical               // critical conditions
	Error                  // error conditions
	Warning                // warning conditions
	Notice                 // normal but significant condition
	Info                   // informational
	Debug                  // debug-level messages

	Min = Emergency
	Max = Debug
)

// name is the canonical (upper-case) spelling for each level.
var name = map[Level]string{
	Emergency: "EMERGENCY",
	Alert:     "ALERT",
	Critical:  "CRITICAL",
	Error:     "ERROR",
	Warning:   "WARNING",
	Notice:    "NOTICE",
	Info:      "INFO",
	Debug:     "DEBUG",
}

// alias maps every case-insensitive spelling we accept (including the
// canonical name, upper-cased) back to its Level.
var alias = map[string]Level{
	"EMERG": Emergency, "EMERGENCY": Emergency, "0": Emergency,
	"ALERT": Alert, "A": Alert, "1": Alert,
	"CRIT": Critical, "CRITICAL": Critical, "C": Critical, "2": Critical,
	"ERR": Error, "ERROR": Error, "E": Error, "3": Error,
	"WARN": Warning, "WARNING": Warning, "W": Warning, "4": Warning,
	"NOTICE": Notice, "N": Notice, "5": Notice,
	"INFO": Info, "I": Info, "6": Info,
	"DEBUG": Debug, "D": Debug, "7": Debug,
}

// String returns the canonical name of the level, or a synthetic
// "invalid-severity-N" label for an out-of-range value.
func (l Level) String() string {
	if s, ok := name[l]; ok {
		return s
	}
	return fmt.Sprintf("invalid-severity-%d", int(l))
}

// Valid reports whether l is in the representable range [0,7].
func (l Level) Valid() bool {
	return l >= Min && l <= Max
}

// AtLeastAsSevereAs reports whether l is as severe as, or more severe
// than, ceiling -- ie whether a line at severity l should reach a sink
// gated at severity ceiling. Lower numbers are more severe, so this is
// "l <= ceiling".
func (l Level) AtLeastAsSevereAs(ceiling Level) bool {
	return l <= ceiling
}

// Parse converts a case-insensitive name, single-letter alias, or
// decimal digit string into a Level.
func Parse(s string) (Level, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	if l, ok := alias[key]; ok {
		return l, nil
	}
	if n, err := strconv.Atoi(key); err == nil {
		l := Level(n)
		if l.Valid() {
			return l, nil
		}
	}
	return 0, fmt.Errorf("severity: %q is not a recognised severity", s)
}
