package logger

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// ReadyToken is the exact line the spawned worker must emit as the last
// thing it writes to the ready pipe before the launcher will consider
// setup to have succeeded, per spec.md §4.6 step 4.
const ReadyToken = "SRT_LOGGER_READY=1\n"

// SpawnConfig describes how to launch the worker copy of this binary that
// will perform Setup and Process against the wrapped command's output.
type SpawnConfig struct {
	// Background daemonizes the worker: it gets its own session (so it
	// survives the launcher exiting and isn't affected by the
	// controlling terminal's job control) instead of being waited on.
	Background bool

	// WorkerArgs is argv (excluding argv[0]) the worker should be
	// re-invoked with -- the same flags the launcher itself parsed,
	// minus --background, plus the --internal-worker marker spawn adds.
	WorkerArgs []string

	// ExtraFiles are already-open file/journal/terminal descriptors
	// that must survive into the worker, landing at fd 3, 4, 5, ... in
	// the same order (spec.md §4.6 step 3's "clears close-on-exec...
	// survive exec" -- exec.Cmd.ExtraFiles is the stdlib's equivalent
	// plumbing for a subprocess spawn, so the manual cloexec-clearing
	// in platform.go is reserved for the direct-exec path in
	// RunExecFallback, which bypasses exec.Cmd entirely).
	ExtraFiles []*os.File
}

// SpawnResult is what a successful Spawn hands back to its caller.
type SpawnResult struct {
	// Pid is the worker's process ID, for SRT_LOGGER_PID reporting.
	Pid int

	// DataWrite is the write end of the data pipe: the launcher dup2s
	// this over its own stdout and stderr, then execs the wrapped
	// program, so everything the wrapped program writes flows into the
	// worker's stdin (spec.md §4.6 step 5).
	DataWrite *os.File

	// ShellLines are `export KEY=VALUE` assignments the worker reported
	// on the ready pipe ahead of the terminating token, to be echoed
	// verbatim when --sh-syntax is set.
	ShellLines []string
}

// Spawn implements spec.md §4.6 steps 2-4: it creates the data and ready
// pipes, launches the worker, and blocks until the worker reports ready
// (or fails). A raw double-fork is not an option here -- forking a
// multi-threaded Go runtime only duplicates the calling thread, leaving
// every other goroutine's lock and memory state undefined in the child --
// so SysProcAttr.Setsid plus exec.Cmd's own fork+exec is this process's
// substitute for "setsid, fork again, intermediate parent exits".
func Spawn(sc SpawnConfig) (*SpawnResult, error) {
	dataR, dataW, err := os.Pipe()
	if err != nil {
		return nil, newError(KindSpawn, "data-pipe", err)
	}
	defer dataR.Close()

	readyR, readyW, err := os.Pipe()
	if err != nil {
		dataW.Close()
		return nil, newError(KindSpawn, "ready-pipe", err)
	}
	defer readyW.Close()

	exe, err := os.Executable()
	if err != nil {
		dataW.Close()
		readyR.Close()
		return nil, newError(KindSpawn, "find self", err)
	}

	args := append([]string{"--internal-worker"}, sc.WorkerArgs...)
	cmd := exec.Command(exe, args...)
	cmd.Stdin = dataR
	cmd.Stdout = readyW
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = sc.ExtraFiles
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: sc.Background}

	if err := cmd.Start(); err != nil {
		dataW.Close()
		readyR.Close()
		return nil, newError(KindSpawn, "start worker", err)
	}
	// The worker now owns its ends; ours are only needed for the
	// data/ready plumbing below.
	dataR.Close()
	readyW.Close()

	if sc.Background {
		// Orphan the worker: release it instead of waiting, so this
		// process can exit without taking the worker down with it.
		if err := cmd.Process.Release(); err != nil {
			return nil, newError(KindSpawn, "release worker", err)
		}
	} else {
		go cmd.Wait()
	}

	lines, err := readReadyPipe(readyR)
	readyR.Close()
	if err != nil {
		dataW.Close()
		return nil, err
	}

	return &SpawnResult{
		Pid:        cmd.Process.Pid,
		DataWrite:  dataW,
		ShellLines: lines,
	}, nil
}

// readReadyPipe reads ready_pipe to EOF and validates that its last line
// is exactly ReadyToken, per spec.md §4.6 step 4. Every other line is
// assumed to be a shell-syntax environment assignment to relay.
func readReadyPipe(r *os.File) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, LineMax), LineMax)

	var lines []string
	sawReady := false
	for sc.Scan() {
		line := sc.Text()
		if line == strings.TrimSuffix(ReadyToken, "\n") {
			sawReady = true
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, newError(KindSpawn, "read ready-pipe", err)
	}
	if !sawReady {
		return nil, newError(KindNotReady, "ready-pipe", fmt.Errorf("worker exited without %q", strings.TrimSpace(ReadyToken)))
	}
	return lines, nil
}

// AnnounceReady writes the worker side of the handshake: any shell-syntax
// lines the worker wants relayed, followed by the exact ready token, to w
// (the worker's stdout, which the launcher has wired to the ready pipe).
func AnnounceReady(w *os.File, shellLines []string) error {
	for _, l := range shellLines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	_, err := w.WriteString(ReadyToken)
	return err
}

// RunExecFallback implements the "--exec-fallback" path: rather than
// spawning a separate worker process, this process becomes the logger
// itself (Setup, then exec() straight over itself into the wrapped
// program, inheriting the now-unbuffered sinks directly). It is only
// correct for sinks that are themselves pass-through descriptors (eg
// journal-fd, file-fd) since no pipeline runs afterwards to parse
// severity prefixes or rotate.
func RunExecFallback(argv0 string, argv []string, env []string) error {
	path, err := exec.LookPath(argv0)
	if err != nil {
		return newError(KindSpawn, "exec-fallback lookup", err)
	}
	return syscall.Exec(path, argv, env)
}
