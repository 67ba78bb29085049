package logger

import (
	"os"

	"github.com/opencoff/srt-logger/internal/filelock"
	"golang.org/x/sys/unix"
)

// clearCloexec clears the close-on-exec flag on fd so it survives the
// exec() that starts the wrapped program, per spec.md §4.6 step 3
// ("clears close-on-exec on file/journal/terminal fds so they survive
// exec").
func clearCloexec(fd int) error {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	if err != nil {
		return err
	}
	flags &^= unix.FD_CLOEXEC
	_, err = unix.FcntlInt(uintptr(fd), unix.F_SETFD, flags)
	return err
}

func clearCloexecFile(f *os.File) error {
	return clearCloexec(int(f.Fd()))
}

// unlockFile releases whatever lock this process holds on f, ignoring
// the result: it is only ever called from Close(), where there is
// nothing useful a caller could do with the error.
func unlockFile(f *os.File) {
	_ = filelock.Unlock(int(f.Fd()))
}
