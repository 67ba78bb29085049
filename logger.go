package logger

import (
	"fmt"
	"os"
	"sync"
)

// Logger is a fully set-up capture-and-rotation engine: a Config, its
// derived mutable state, and the sink set Setup opened. Setup is called
// at most once per Logger (spec.md §3's lifecycle rule); there is no
// re-entrant re-setup.
type Logger struct {
	cfg Config
	st  state
	snk sinks

	// rotMu serialises rotation attempts against concurrent writes from
	// this process. Cross-process coordination is handled separately by
	// internal/filelock.
	rotMu sync.Mutex

	progName string // for user-visible single-line messages, spec.md §7
}

// Setup performs the one-time setup sequence of spec.md §4.2: resolving
// names, opening the journal/file/terminal sinks it's asked for, and
// emitting the initial "Log opened" banner. Setup errors are fatal and
// are reported before any sink is committed to disk.
func Setup(cfg Config) (*Logger, error) {
	l := &Logger{cfg: cfg, progName: progName()}

	if err := l.resolveNames(); err != nil {
		return nil, err
	}
	if err := l.setupJournal(); err != nil {
		return nil, err
	}
	if err := l.setupFile(); err != nil {
		return nil, err
	}
	if err := l.setupTerminal(); err != nil {
		return nil, err
	}
	l.finishSetup()
	return l, nil
}

func progName() string {
	return filepathBase(os.Args[0])
}

func filepathBase(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[i+1:]
		}
	}
	return p
}

// Close closes every descriptor this Logger owns (strictly > 2) and
// releases the file lock.
func (l *Logger) Close() error {
	if l.snk.file != nil {
		unlockFile(l.snk.file)
	}
	l.snk.closeOwned()
	return nil
}

// warn logs a degraded-sink or rotation warning to the logger's own
// diagnostic path (spec.md §7: per-write failures are observational, not
// fatal, and must not be lost).
func (l *Logger) warn(format string, v ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s: warning: %s\n", l.progName, fmt.Sprintf(format, v...))
}

// info emits a single-line, program-name-prefixed informational message
// (eg the sink-set announcement) to the original stderr, per spec.md §7's
// "user-visible messages are single-line, prefixed with the program
// name."
func (l *Logger) info(format string, v ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", l.progName, fmt.Sprintf(format, v...))
}
