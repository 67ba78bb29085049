// Package fifo creates the rendezvous named pipe used by the sibling
// launch client's named-pipe logging mode. srt-logger only needs to be
// able to create one in a well-known runtime directory; reading and
// writing it is the launch client's concern (spec.md §1's "deliberately
// out of scope" boundary).
package fifo

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// candidateDirs returns runtime directories to try, in preference order,
// the way systemd-adjacent tooling conventionally does: the user's
// private runtime dir, then a per-uid fallback under /tmp.
func candidateDirs() []string {
	dirs := make([]string, 0, 3)
	if d := os.Getenv("XDG_RUNTIME_DIR"); d != "" {
		dirs = append(dirs, d)
	}
	dirs = append(dirs, fmt.Sprintf("/tmp/srt-logger-%d", unix.Getuid()))
	dirs = append(dirs, os.TempDir())
	return dirs
}

// Create makes a named pipe called name inside the first usable runtime
// directory and returns its full path. Directories that don't exist are
// created (mode 0700) before falling back to the next candidate.
func Create(name string) (string, error) {
	var lastErr error
	for _, dir := range candidateDirs() {
		if err := os.MkdirAll(dir, 0700); err != nil {
			lastErr = err
			continue
		}
		path := filepath.Join(dir, name)
		_ = os.Remove(path) // best-effort: clear a stale fifo from a previous run
		if err := unix.Mkfifo(path, 0600); err != nil {
			lastErr = err
			continue
		}
		return path, nil
	}
	return "", fmt.Errorf("fifo: no usable runtime directory found: %w", lastErr)
}
