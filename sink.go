package logger

import (
	"os"

	"github.com/opencoff/srt-logger/internal/journal"
	"github.com/opencoff/srt-logger/severity"
)

// sinks owns every destination handle a Logger may write to. Each is
// optional (nil/zero-value if unused); the struct is the "small fixed
// struct with four optional sinks" shape spec.md §9's design notes call
// out as acceptable, generalised from alyu-logger's single-active-Handler
// model to four simultaneous ones, each with its own severity ceiling.
type sinks struct {
	file     *os.File
	fileCeil severity.Level

	journal     *journal.Stream
	journalCeil severity.Level

	terminal     *os.File
	terminalPath string
	terminalCeil severity.Level
	useColor     bool

	// stderr is the inherited original stderr, used either as the
	// "use_stderr" fallback sink or as a destination the terminal sink
	// happens to coincide with.
	stderr     *os.File
	stderrCeil severity.Level
	useStderr  bool
}

// closeOwned closes every descriptor strictly greater than 2 that this
// Logger owns, per spec.md §3's lifecycle rule. fd 0/1/2 (and anything
// the caller passed in that aliases them) are never touched.
func (s *sinks) closeOwned() {
	closeIfOwned(s.file)
	if s.journal != nil {
		s.journal.Close()
	}
	closeIfOwned(s.terminal)
	// s.stderr is never owned -- it is always either fd 2 itself or a
	// dup of a descriptor the caller is responsible for.
}

func closeIfOwned(f *os.File) {
	if f == nil {
		return
	}
	if fd := f.Fd(); fd <= 2 {
		return
	}
	f.Close()
}
