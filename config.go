// Package logger implements the capture-and-rotation engine described in
// srt-logger's specification: line-buffered multi-sink routing, severity
// parsing, cross-process file locking and rotation, the parent/child
// ready handshake, and terminal colourisation.
//
// It is not a general-purpose structured-logging framework: a line is an
// opaque byte string with at most a numeric severity; there is no
// indexing, querying, or field-based filtering.
package logger

import "github.com/opencoff/srt-logger/severity"

// noFD marks a Config descriptor field as "not supplied by the caller".
const noFD = -1

// Config is the immutable-after-Setup configuration of a Logger,
// matching spec.md §3's LoggerConfig.
type Config struct {
	// Argv0 is the wrapped program's name, used to default Identifier.
	Argv0 string

	// Identifier tags journal entries and defaults the log filename stem.
	Identifier string

	// Filename is the basename of the log file. It must not contain '/'
	// or begin with '.'.
	Filename string

	// LogDir is the directory holding Filename. Empty defaults per
	// resolveLogDir.
	LogDir string

	// MaxBytes is the rotation threshold; 0 disables rotation.
	MaxBytes int64

	// Severity ceilings: a line reaches a sink iff its severity is at
	// least as severe as (numerically <=) the sink's ceiling.
	DefaultLineLevel severity.Level
	FileLevel        severity.Level
	JournalLevel     severity.Level
	TerminalLevel    severity.Level

	Background       bool
	ShSyntax         bool
	ParseLevelPrefix bool
	Timestamps       bool
	UseFile          bool
	UseJournal       bool
	UseTerminal      bool
	NoAutoTerminal   bool // disable stderr-is-a-tty auto-discovery

	// Pre-opened descriptors; noFD (-1) means "not supplied".
	FileFD         int
	JournalFD      int
	TerminalFD     int
	OriginalStderr int
}

// DefaultConfig returns a Config with the same defaults spec.md's CLI
// surface implies: info-level default severity everywhere, 8 MiB
// rotation, level-prefix parsing and timestamps on, no pre-opened
// descriptors.
func DefaultConfig() Config {
	return Config{
		MaxBytes:         8 * 1024 * 1024,
		DefaultLineLevel: severity.Info,
		FileLevel:        severity.Debug,
		JournalLevel:     severity.Debug,
		TerminalLevel:    severity.Info,
		ParseLevelPrefix: true,
		Timestamps:       true,
		FileFD:           noFD,
		JournalFD:        noFD,
		TerminalFD:       noFD,
		OriginalStderr:   noFD,
	}
}
