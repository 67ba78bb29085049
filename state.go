package logger

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/opencoff/srt-logger/severity"
	"golang.org/x/sys/unix"
)

// LineMax bounds a single logical line. It governs the pipeline's input
// buffer size (LineMax+1, the +1 is the sentinel byte reserved for a
// synthesized trailing newline when an oversize line overflows) per
// spec.md §3's "at least 4096 bytes, one byte reserved as sentinel".
const LineMax = 4096

// fileStat is the cached device+inode+size spec.md §3 requires so a
// writer can detect that the file on disk has been replaced or unlinked
// out from under it.
type fileStat struct {
	dev  uint64
	ino  uint64
	size int64
}

func statFile(fd int) (fileStat, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return fileStat{}, err
	}
	return fileStat{dev: uint64(st.Dev), ino: uint64(st.Ino), size: st.Size}, nil
}

// statPath is statFile's by-name counterpart, used to detect whether the
// path a Logger writes to still names the inode it has open.
func statPath(path string) (fileStat, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return fileStat{}, err
	}
	return fileStat{dev: uint64(st.Dev), ino: uint64(st.Ino), size: st.Size}, nil
}

// state holds the mutable parts of a Logger: derived rotation filenames,
// the cached stat of the open log file, the bounded input buffer, and
// the partial-line parsing cursor, per spec.md §3's LoggerState.
type state struct {
	dir              string // directory holding the log file
	previousFilename string
	newFilename      string

	stat fileStat

	// buf is the rolling input buffer; filled is how many bytes of it
	// hold real data, alreadyProcessed is how far the partial-line
	// severity scan has already advanced (invariant:
	// alreadyProcessed <= filled <= len(buf)-1).
	buf              [LineMax + 1]byte
	filled           int
	alreadyProcessed int

	// partialLevel is the severity assigned to the bytes of the current,
	// not-yet-terminated line; prefixKnown is false until a prefix
	// decision (present or absent) has been made for it.
	partialLevel severity.Level
	prefixKnown  bool
	partialSent  int // bytes of the current partial line already flushed

	// lineStart is when the current line's first byte arrived, captured
	// once the buffer goes from empty to non-empty; writeComplete uses
	// this rather than the time the trailing newline was seen, so a
	// timestamp reflects when the line began, not when it finished.
	lineStart   time.Time
	lineStarted bool

	useStderr         bool
	useTerminalColors bool
	directiveDisabled bool // true once a once-per-stream directive has fired
}

// deriveFilenames computes previous_filename and new_filename from a
// basename per spec.md §3: insert ".previous" (resp. prefix with "." and
// insert ".new") before the extension.
func deriveFilenames(filename string) (previous, newf string) {
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	previous = stem + ".previous" + ext
	newf = "." + stem + ".new" + ext
	return
}
