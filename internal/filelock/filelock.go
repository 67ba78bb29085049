// Package filelock implements the shared/exclusive locking discipline
// srt-logger uses to coordinate concurrent writers of the same log file.
//
// Open-file-description (OFD) locks are preferred because they are tied
// to the open() rather than the process, which matters once a file has
// been re-opened after rotation or after a maintainer unlinks it out from
// under us. Kernels older than 3.15 reject the OFD commands with EINVAL;
// on that error we fall back to legacy POSIX advisory locks, which are
// process-associated and therefore slightly weaker (two locks taken by
// the same process on the same file will not conflict), but are the best
// available fallback.
package filelock

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Kind selects shared (read) or exclusive (write) locking.
type Kind int16

const (
	Shared    Kind = unix.F_RDLCK
	Exclusive Kind = unix.F_WRLCK
)

// useOFD is flipped to false process-wide the first time the kernel
// rejects an OFD command with EINVAL. There is no point probing it again
// on every call: the kernel's support for F_OFD_* doesn't change mid-boot.
var useOFD = true

// Lock takes a whole-file lock of the given kind on fd, blocking until it
// is available.
func Lock(fd int, kind Kind) error {
	lk := unix.Flock_t{
		Type:   int16(kind),
		Whence: int16(unix.SEEK_SET),
		Start:  0,
		Len:    0, // whole file
	}

	if useOFD {
		if err := unix.FcntlFlock(uintptr(fd), unix.F_OFD_SETLKW, &lk); err == nil {
			return nil
		} else if !errors.Is(err, unix.EINVAL) {
			return err
		}
		// EINVAL: kernel doesn't understand F_OFD_SETLKW. Fall back and
		// remember the fallback for the rest of the process lifetime.
		useOFD = false
	}

	return unix.FcntlFlock(uintptr(fd), unix.F_SETLKW, &lk)
}

// Unlock releases whatever lock Lock took on fd.
func Unlock(fd int) error {
	lk := unix.Flock_t{
		Type:   int16(unix.F_UNLCK),
		Whence: int16(unix.SEEK_SET),
	}
	cmd := unix.F_SETLKW
	if useOFD {
		cmd = unix.F_OFD_SETLKW
	}
	return unix.FcntlFlock(uintptr(fd), cmd, &lk)
}
