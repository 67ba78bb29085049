package logger

import (
	"os"
	"path/filepath"

	"github.com/opencoff/srt-logger/internal/filelock"
	"golang.org/x/sys/unix"
)

// reopenFile re-opens the current log file when checkFileIdentity finds it
// has been unlinked or replaced by something other than this process's own
// rotate() (eg an external logrotate), per spec.md §4.5. The old fd and its
// lock are dropped; the replacement is locked and stat'd fresh.
func (l *Logger) reopenFile() error {
	path := l.currentPath()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	if err := clearCloexecFile(f); err != nil {
		f.Close()
		return err
	}
	if err := filelock.Lock(int(f.Fd()), filelock.Shared); err != nil {
		f.Close()
		return err
	}
	st, err := statFile(int(f.Fd()))
	if err != nil {
		f.Close()
		return err
	}

	old := l.snk.file
	l.snk.file = f
	l.st.stat = st
	old.Close()
	return nil
}

func (l *Logger) currentPath() string  { return filepath.Join(l.st.dir, l.cfg.Filename) }
func (l *Logger) previousPath() string { return filepath.Join(l.st.dir, l.st.previousFilename) }
func (l *Logger) newPath() string      { return filepath.Join(l.st.dir, l.st.newFilename) }

// maybeRotate rotates the log file if writing an additional n bytes
// would push it past MaxBytes, per spec.md §4.3. Rotation is best-effort:
// any failure leaves the old fd in place, logs a warning, and disables
// further rotation attempts for the life of this process (spec.md's
// "permanently set max_bytes = 0").
func (l *Logger) maybeRotate(n int) {
	l.rotMu.Lock()
	defer l.rotMu.Unlock()

	if l.cfg.MaxBytes <= 0 || l.snk.file == nil {
		return
	}
	if l.st.stat.size+int64(n) <= l.cfg.MaxBytes {
		return
	}

	if err := l.rotate(); err != nil {
		l.warn("log rotation failed, disabling further rotation: %s", err)
		l.cfg.MaxBytes = 0
	}
}

func (l *Logger) rotate() error {
	fd := int(l.snk.file.Fd())

	// Step 1: upgrade our own hold on the current file to exclusive.
	// If anything below fails, we downgrade back to shared and keep
	// using this same fd -- a lost rotation must never corrupt the log.
	if err := filelock.Lock(fd, filelock.Exclusive); err != nil {
		return err
	}

	cur := l.currentPath()
	prev := l.previousPath()
	next := l.newPath()

	// We may have been blocked on the exclusive lock while a peer
	// finished its own rotation: cur then names a different inode than
	// the one we have open. Re-running link/rename here would re-link
	// the peer's *already rotated* file over the .previous it just
	// produced. Become the loser instead: keep the old fd, touch nothing.
	if pathSt, err := statPath(cur); err == nil {
		if pathSt.dev != l.st.stat.dev || pathSt.ino != l.st.stat.ino {
			filelock.Lock(fd, filelock.Shared)
			return nil
		}
	}

	_ = os.Remove(prev) // step 2: unlink previous if present

	if err := unix.Link(cur, prev); err != nil { // step 3: preserve the lock on the old inode
		filelock.Lock(fd, filelock.Shared)
		return err
	}

	newFD, err := unix.Open(next, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR, 0644)
	if err != nil {
		// EEXIST means a genuinely racing peer already created next --
		// it is that peer's file, not ours, so leave it alone; only a
		// failure after we ourselves created it (below) warrants cleanup.
		filelock.Lock(fd, filelock.Shared)
		return err
	}
	newFile := os.NewFile(uintptr(newFD), next)

	if err := filelock.Lock(newFD, filelock.Exclusive); err != nil {
		newFile.Close()
		os.Remove(next)
		filelock.Lock(fd, filelock.Shared)
		return err
	}
	st, err := statFile(newFD)
	if err != nil {
		newFile.Close()
		os.Remove(next)
		filelock.Lock(fd, filelock.Shared)
		return err
	}

	if err := os.Rename(next, cur); err != nil {
		newFile.Close()
		os.Remove(next)
		filelock.Lock(fd, filelock.Shared)
		return err
	}

	old := l.snk.file
	l.snk.file = newFile
	l.st.stat = st
	old.Close() // releases the old fd's lock

	// Step 8: downgrade the new fd's lock back to shared steady state.
	filelock.Lock(newFD, filelock.Shared)

	return nil
}
