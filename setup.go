package logger

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opencoff/srt-logger/internal/filelock"
	"github.com/opencoff/srt-logger/internal/journal"
	"github.com/opencoff/srt-logger/severity"
	"golang.org/x/sys/unix"
)

// resolveNames implements spec.md §4.2 step 1: default identifier from
// argv0 then from filename, default filename from identifier, validate
// filename, and derive the rotation filenames.
func (l *Logger) resolveNames() error {
	cfg := &l.cfg

	if cfg.Identifier == "" && cfg.Argv0 != "" {
		cfg.Identifier = filepathBase(cfg.Argv0)
	}
	if cfg.Identifier == "" && cfg.Filename != "" {
		stem := cfg.Filename
		if i := strings.LastIndex(stem, "."); i > 0 {
			stem = stem[:i]
		}
		cfg.Identifier = stem
	}
	if cfg.Filename == "" && cfg.Identifier != "" {
		cfg.Filename = cfg.Identifier + ".txt"
	}

	if cfg.Filename != "" {
		if strings.ContainsRune(cfg.Filename, '/') {
			return newError(KindBadArgument, "filename", fmt.Errorf("%q must not contain '/'", cfg.Filename))
		}
		if strings.HasPrefix(cfg.Filename, ".") {
			return newError(KindBadArgument, "filename", fmt.Errorf("%q must not begin with '.'", cfg.Filename))
		}
		if len(cfg.Filename) > math.MaxInt32 {
			return newError(KindBadArgument, "filename", fmt.Errorf("filename too long"))
		}
		l.st.previousFilename, l.st.newFilename = deriveFilenames(cfg.Filename)
	}

	return nil
}

// setupJournal implements spec.md §4.2 step 2.
func (l *Logger) setupJournal() error {
	cfg := &l.cfg

	if cfg.JournalFD != noFD {
		// Caller handed us an already-handshaken stream; nothing to
		// dial. We cannot clear O_CLOEXEC on a descriptor we didn't
		// open ourselves if the kernel refuses -- that failure is
		// reported per spec.md §4.2's "journal-fd rejection" condition.
		if err := clearCloexec(cfg.JournalFD); err != nil {
			return newError(KindFilesystem, "journal-fd", err)
		}
		cfg.UseJournal = true
		return nil
	}

	stderrIsJournal := stderrRoutesToJournal()

	if !cfg.UseJournal && !stderrIsJournal {
		return nil
	}

	if cfg.Identifier != "" {
		stream, err := journal.Dial(cfg.Identifier, int(severity.Info), true)
		if err == nil {
			l.snk.journal = stream
			l.snk.journalCeil = cfg.JournalLevel
			cfg.UseJournal = true
			return nil
		}
		// Dial failed: fall back to the journal already on stderr, if
		// any; otherwise disable journal use entirely.
		if stderrIsJournal {
			cfg.UseJournal = true
			l.st.useStderr = true
			return nil
		}
		cfg.UseJournal = false
		return nil
	}

	if stderrIsJournal {
		cfg.UseJournal = true
		l.st.useStderr = true
	}
	return nil
}

// stderrRoutesToJournal reports whether fd 2 is already connected to the
// journal, using the JOURNAL_STREAM convention systemd sets in a unit's
// environment (device:inode of the journal socket fd 1/2 are dup'd
// from).
func stderrRoutesToJournal() bool {
	js := os.Getenv("JOURNAL_STREAM")
	if js == "" {
		return false
	}
	var dev, ino uint64
	if _, err := fmt.Sscanf(js, "%d:%d", &dev, &ino); err != nil {
		return false
	}
	st, err := statFile(2)
	if err != nil {
		return false
	}
	return st.dev == dev && st.ino == ino
}

// setupFile implements spec.md §4.2 steps 3-4: resolve the log
// directory, open (or adopt) the log file, lock it, and announce it.
func (l *Logger) setupFile() error {
	cfg := &l.cfg
	if cfg.Filename == "" {
		return nil
	}

	if cfg.FileFD != noFD {
		f := os.NewFile(uintptr(cfg.FileFD), cfg.Filename)
		if err := filelock.Lock(cfg.FileFD, filelock.Shared); err != nil {
			return newError(KindLock, "log-file", err)
		}
		st, err := statFile(cfg.FileFD)
		if err != nil {
			return newError(KindFilesystem, "stat log-file", err)
		}
		l.snk.file = f
		l.snk.fileCeil = cfg.FileLevel
		l.st.stat = st
		cfg.UseFile = true
		return nil
	}

	dir, err := resolveLogDir(cfg.LogDir)
	if err != nil {
		return err
	}
	l.st.dir = dir
	path := filepath.Join(dir, cfg.Filename)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_RDWR|os.O_CREATE|unix.O_NOCTTY, 0644)
	if err != nil {
		return newError(KindFilesystem, "open log-file", err)
	}
	// O_CLOEXEC isn't in the open() flags above because this descriptor
	// needs to survive exec into the wrapped program (spec.md §4.6); it
	// must be cleared explicitly instead.
	if err := clearCloexecFile(f); err != nil {
		f.Close()
		return newError(KindFilesystem, "clear close-on-exec", err)
	}
	if err := filelock.Lock(int(f.Fd()), filelock.Shared); err != nil {
		f.Close()
		return newError(KindLock, "log-file", err)
	}

	if err := writeBanner(f); err != nil {
		f.Close()
		return newError(KindFilesystem, "write banner", err)
	}

	st, err := statFile(int(f.Fd()))
	if err != nil {
		f.Close()
		return newError(KindFilesystem, "stat log-file", err)
	}

	l.snk.file = f
	l.snk.fileCeil = cfg.FileLevel
	l.st.stat = st
	cfg.UseFile = true
	return nil
}

// resolveLogDir implements spec.md §4.2 step 3's fallback chain.
func resolveLogDir(explicit string) (string, error) {
	dir := explicit
	if dir == "" {
		dir = os.Getenv("SRT_LOG_DIR")
	}
	if dir == "" {
		dir = os.Getenv("STEAM_CLIENT_LOG_FOLDER")
	}
	if dir == "" {
		if home := os.Getenv("HOME"); home != "" {
			dir = filepath.Join(home, ".steam", "steam", "logs")
		}
	}
	if dir == "" {
		return "", newError(KindBadArgument, "log-directory", fmt.Errorf("no log directory configured"))
	}
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		return "", newError(KindFilesystem, "log-directory", fmt.Errorf("%q does not exist", dir))
	}
	return dir, nil
}

// writeBanner writes the first line any log file sees: a timestamped
// "Log opened" banner naming the local time zone, per spec.md §4.2 step
// 4 and §5's "the banner is always the first write."
func writeBanner(f *os.File) error {
	now := time.Now()
	zone, _ := now.Zone()
	_, err := fmt.Fprintf(f, "[%s] Log opened (%s)\n", now.Format("2006-01-02 15:04:05"), zone)
	return err
}

// setupTerminal implements spec.md §4.2 steps 5-6.
func (l *Logger) setupTerminal() error {
	cfg := &l.cfg

	var f *os.File
	switch {
	case cfg.TerminalFD != noFD:
		f = os.NewFile(uintptr(cfg.TerminalFD), "terminal")

	default:
		if path, ok := os.LookupEnv("SRT_LOG_TERMINAL"); ok {
			if path == "" {
				f = nil
				break
			}
			var err error
			f, err = os.OpenFile(path, os.O_WRONLY, 0)
			if err != nil {
				return newError(KindFilesystem, "terminal", err)
			}
		} else if !cfg.NoAutoTerminal && isTTY(2) {
			f = os.NewFile(2, "/dev/stderr")
		} else if !cfg.NoAutoTerminal && cfg.OriginalStderr != noFD && isTTY(cfg.OriginalStderr) {
			f = os.NewFile(uintptr(cfg.OriginalStderr), "original-stderr")
		}
	}

	if f == nil {
		return nil
	}

	l.snk.terminal = f
	l.snk.terminalCeil = cfg.TerminalLevel
	l.snk.terminalPath = ttyName(int(f.Fd()))
	cfg.UseTerminal = true
	return nil
}

// isTTY reports whether fd refers to a terminal device.
func isTTY(fd int) bool {
	_, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	return err == nil
}

// ttyName returns the path of the tty fd refers to, best-effort, for
// display purposes only (spec.md §4.2 step 5).
func ttyName(fd int) string {
	link := fmt.Sprintf("/proc/self/fd/%d", fd)
	if target, err := os.Readlink(link); err == nil {
		return target
	}
	return ""
}

// finishSetup implements spec.md §4.2 step 6-7: decide colourisation,
// fall back to stderr if nothing else was selected, and announce the
// active sink set.
func (l *Logger) finishSetup() {
	cfg := &l.cfg

	if cfg.UseTerminal && os.Getenv("NO_COLOR") == "" {
		l.st.useTerminalColors = true
	}

	if !cfg.UseFile && !cfg.UseJournal && !cfg.UseTerminal {
		l.st.useStderr = true
	}

	if l.st.useStderr && l.snk.stderr == nil {
		fd := 2
		if cfg.OriginalStderr != noFD {
			fd = cfg.OriginalStderr
		}
		l.snk.stderr = os.NewFile(uintptr(fd), "stderr")
		l.snk.stderrCeil = cfg.TerminalLevel
	}

	l.announceSinks()
}

func (l *Logger) announceSinks() {
	cfg := &l.cfg
	var names []string
	if cfg.UseFile {
		names = append(names, fmt.Sprintf("file=%s", filepath.Join(cfg.LogDir, cfg.Filename)))
	}
	if cfg.UseJournal && l.snk.journal != nil {
		names = append(names, fmt.Sprintf("journal=%s", cfg.Identifier))
	}
	if cfg.UseTerminal {
		names = append(names, fmt.Sprintf("terminal=%s", l.snk.terminalPath))
	}
	if l.st.useStderr {
		names = append(names, "stderr")
	}

	// Skip the banner entirely when the only sink is a journal stream we
	// merely inherited via stderr -- nothing new is being opened.
	if len(names) == 1 && l.st.useStderr && cfg.UseJournal && l.snk.journal == nil {
		return
	}
	if len(names) == 0 {
		return
	}
	l.info("logging to: %s", strings.Join(names, ", "))
}
