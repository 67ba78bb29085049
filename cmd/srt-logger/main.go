// Command srt-logger captures a wrapped program's stdout/stderr (or its
// own stdin), fans lines out to a log file, the systemd journal, a
// terminal, and/or stderr, and rotates the log file by size.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	logger "github.com/opencoff/srt-logger"
	"github.com/opencoff/srt-logger/internal/fifo"
	"github.com/opencoff/srt-logger/severity"
	flag "github.com/ogier/pflag"
)

// version is overwritten at build time via -ldflags.
var version = "dev"

// verboseCount implements flag.Value so -v/--verbose can be repeated.
type verboseCount int

func (c *verboseCount) String() string { return strconv.Itoa(int(*c)) }
func (c *verboseCount) Set(string) error {
	*c++
	return nil
}
func (c *verboseCount) Type() string { return "count" }

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	if len(argv) > 0 && argv[0] == "--internal-worker" {
		return runWorker(argv[1:])
	}
	return runLauncher(argv)
}

type cliFlags struct {
	background     bool
	execFallback   bool
	filename       string
	identifier     string
	journalFD      int
	logDirectory   string
	logFD          int
	noAutoTerminal bool
	rotate         string
	shSyntax       bool
	terminalFD     int
	useJournal     bool
	verbose        verboseCount
	showVersion    bool
	rendezvousFifo string
}

func parseFlags(fs *flag.FlagSet, argv []string) (*cliFlags, []string, error) {
	var f cliFlags
	f.journalFD = logger.DefaultConfig().JournalFD
	f.logFD = f.journalFD
	f.terminalFD = f.journalFD

	fs.BoolVar(&f.background, "background", false, "daemonize the logger subprocess")
	fs.BoolVar(&f.execFallback, "exec-fallback", false, "on setup failure, exec the wrapped command anyway")
	fs.StringVar(&f.filename, "filename", "", "basename of the log file")
	fs.StringVarP(&f.identifier, "identifier", "t", "", "journal tag and default filename stem")
	fs.IntVar(&f.journalFD, "journal-fd", f.journalFD, "pre-opened journal stream descriptor")
	fs.StringVarP(&f.logDirectory, "log-directory", "d", "", "directory for flat file logs")
	fs.IntVar(&f.logFD, "log-fd", f.logFD, "pre-opened log-file descriptor")
	fs.BoolVar(&f.noAutoTerminal, "no-auto-terminal", false, "disable automatic terminal discovery")
	fs.StringVar(&f.rotate, "rotate", "8MiB", "threshold for file rotation")
	fs.BoolVar(&f.shSyntax, "sh-syntax", false, "emit shell assignments on stdout when ready")
	fs.IntVar(&f.terminalFD, "terminal-fd", f.terminalFD, "pre-opened terminal descriptor")
	fs.BoolVar(&f.useJournal, "use-journal", false, "also write to the journal")
	fs.VarP(&f.verbose, "verbose", "v", "increase verbosity (repeatable)")
	fs.BoolVar(&f.showVersion, "version", false, "print version and exit")
	fs.StringVar(&f.rendezvousFifo, "rendezvous-fifo", "", "create a named pipe and read input from it instead of stdin")

	if err := fs.Parse(argv); err != nil {
		return nil, nil, err
	}
	return &f, fs.Args(), nil
}

// runLauncher parses the CLI, builds a Config, and either processes our
// own stdin inline (no wrapped command given) or spawns a worker copy of
// this binary to capture a wrapped command's output, per spec.md §4.6.
func runLauncher(argv []string) int {
	fs := flag.NewFlagSet("srt-logger", flag.ContinueOnError)
	f, rest, err := parseFlags(fs, argv)
	if err != nil {
		return 2
	}
	if f.showVersion {
		fmt.Println("srt-logger", version)
		return 0
	}

	cfg, err := buildConfig(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "srt-logger: %s\n", err)
		if f.execFallback {
			return execFallback(rest)
		}
		return 1
	}

	if len(rest) == 0 {
		return runInline(cfg, f, rest)
	}
	return runWrapped(cfg, f, rest)
}

// reconstructArgs rebuilds a canonical flag argv from parsed values, so the
// worker (re-exec'd as a fresh process) sees the same configuration the
// launcher parsed, independent of how the original argv happened to
// intermix flags and positional arguments.
func reconstructArgs(f *cliFlags) []string {
	var args []string
	if f.background {
		args = append(args, "--background")
	}
	if f.execFallback {
		args = append(args, "--exec-fallback")
	}
	if f.filename != "" {
		args = append(args, "--filename="+f.filename)
	}
	if f.identifier != "" {
		args = append(args, "--identifier="+f.identifier)
	}
	args = append(args, "--journal-fd="+strconv.Itoa(f.journalFD))
	if f.logDirectory != "" {
		args = append(args, "--log-directory="+f.logDirectory)
	}
	args = append(args, "--log-fd="+strconv.Itoa(f.logFD))
	if f.noAutoTerminal {
		args = append(args, "--no-auto-terminal")
	}
	if f.rotate != "" {
		args = append(args, "--rotate="+f.rotate)
	}
	if f.shSyntax {
		args = append(args, "--sh-syntax")
	}
	args = append(args, "--terminal-fd="+strconv.Itoa(f.terminalFD))
	if f.useJournal {
		args = append(args, "--use-journal")
	}
	for i := 0; i < int(f.verbose); i++ {
		args = append(args, "-v")
	}
	return args
}

// runWrapped implements spec.md §4.6's subprocess path: spawn a worker to
// capture rest's output, then exec rest with its stdout/stderr wired to
// the worker's stdin.
func runWrapped(cfg logger.Config, f *cliFlags, rest []string) int {
	sc := logger.SpawnConfig{
		Background: cfg.Background,
		WorkerArgs: reconstructArgs(f),
		ExtraFiles: preOpenedFiles(cfg),
	}

	sr, err := logger.Spawn(sc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "srt-logger: %s\n", err)
		if f.execFallback {
			return execFallback(rest)
		}
		return 1
	}

	if cfg.ShSyntax {
		for _, line := range sr.ShellLines {
			fmt.Println(line)
		}
	}
	if cfg.Background {
		fmt.Printf("SRT_LOGGER_PID=%d\n", sr.Pid)
	}
	fmt.Print(logger.ReadyToken)

	return execWrapped(sr, rest)
}

// preOpenedFiles collects the descriptors the caller pre-opened (--log-fd,
// --journal-fd, --terminal-fd) so the worker can inherit them across its
// own exec via exec.Cmd.ExtraFiles.
func preOpenedFiles(cfg logger.Config) []*os.File {
	var files []*os.File
	add := func(fd int, name string) {
		if fd != -1 {
			files = append(files, os.NewFile(uintptr(fd), name))
		}
	}
	add(cfg.FileFD, "log-fd")
	add(cfg.JournalFD, "journal-fd")
	add(cfg.TerminalFD, "terminal-fd")
	return files
}

func buildConfig(f *cliFlags) (logger.Config, error) {
	cfg := logger.DefaultConfig()
	cfg.Argv0 = os.Args[0]
	cfg.Filename = f.filename
	cfg.Identifier = f.identifier
	cfg.LogDir = f.logDirectory
	cfg.Background = f.background
	cfg.ShSyntax = f.shSyntax
	cfg.NoAutoTerminal = f.noAutoTerminal
	cfg.UseJournal = f.useJournal
	cfg.JournalFD = f.journalFD
	cfg.FileFD = f.logFD
	cfg.TerminalFD = f.terminalFD

	if f.rotate != "" {
		n, err := parseByteSize(f.rotate)
		if err != nil {
			return cfg, err
		}
		cfg.MaxBytes = n
	}
	if env := os.Getenv("SRT_LOG_ROTATION"); env != "" && f.rotate == "8MiB" {
		if n, err := parseByteSize(env); err == nil {
			cfg.MaxBytes = n
		}
	}
	if os.Getenv("SRT_LOGGER_USE_JOURNAL") == "1" {
		cfg.UseJournal = true
	}

	switch f.verbose {
	case 0:
		// leave the defaults (info-ish) in place
	case 1:
		cfg.TerminalLevel = severity.Info
		cfg.DefaultLineLevel = severity.Info
	default:
		cfg.TerminalLevel = severity.Debug
		cfg.DefaultLineLevel = severity.Debug
	}

	return cfg, nil
}

// parseByteSize parses strings like "8MiB", "512K", "1048576" into a byte
// count, per spec.md §6's `--rotate BYTES[K|KiB|M|MiB|...]`.
func parseByteSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	mult := int64(1)
	suffixes := []struct {
		suffix string
		mult   int64
	}{
		{"KiB", 1024}, {"MiB", 1024 * 1024}, {"GiB", 1024 * 1024 * 1024},
		{"K", 1000}, {"M", 1000 * 1000}, {"G", 1000 * 1000 * 1000},
	}
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf.suffix) {
			mult = suf.mult
			s = strings.TrimSuffix(s, suf.suffix)
			break
		}
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("--rotate: %q is not a valid byte size", s)
	}
	return n * mult, nil
}

func runInline(cfg logger.Config, f *cliFlags, rest []string) int {
	l, err := logger.Setup(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "srt-logger: %s\n", err)
		if f.execFallback {
			return execFallback(rest)
		}
		return 1
	}
	defer l.Close()

	input := os.Stdin
	if f.rendezvousFifo != "" {
		path, err := fifo.Create(f.rendezvousFifo)
		if err != nil {
			fmt.Fprintf(os.Stderr, "srt-logger: %s\n", err)
			return 1
		}
		fmt.Printf("SRT_LOGGER_FIFO=%s\n", path)
		// Opening for read blocks until the rendezvous partner opens
		// its own end for writing; announce the path first so that
		// partner knows where to dial in.
		rf, err := os.OpenFile(path, os.O_RDONLY, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "srt-logger: open %s: %s\n", path, err)
			return 1
		}
		defer rf.Close()
		input = rf
	}

	if cfg.ShSyntax {
		for _, line := range l.ShellLines() {
			fmt.Println(line)
		}
	}
	fmt.Print(logger.ReadyToken)

	if err := l.Process(input); err != nil {
		fmt.Fprintf(os.Stderr, "srt-logger: %s\n", err)
		return 1
	}
	return 0
}

// execWrapped dup2s the data pipe's write end over our own stdout and
// stderr, then execs rest over this process, per spec.md §4.6 step 5: the
// wrapped program inherits both as the same descriptor the worker reads
// as its stdin.
func execWrapped(sr *logger.SpawnResult, rest []string) int {
	fd := int(sr.DataWrite.Fd())
	if err := syscall.Dup2(fd, 1); err != nil {
		fmt.Fprintf(os.Stderr, "srt-logger: dup2 stdout: %s\n", err)
		return 1
	}
	if err := syscall.Dup2(fd, 2); err != nil {
		fmt.Fprintf(os.Stderr, "srt-logger: dup2 stderr: %s\n", err)
		return 1
	}
	sr.DataWrite.Close()

	path, err := exec.LookPath(rest[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "srt-logger: %s: not found\n", rest[0])
		return 127
	}
	if err := syscall.Exec(path, rest, os.Environ()); err != nil {
		fmt.Fprintf(os.Stderr, "srt-logger: exec %s: %s\n", rest[0], err)
		return 126
	}
	return 0 // unreachable on success
}

func execFallback(rest []string) int {
	if len(rest) == 0 {
		rest = []string{"cat"}
	}
	if err := logger.RunExecFallback(rest[0], rest, os.Environ()); err != nil {
		fmt.Fprintf(os.Stderr, "srt-logger: exec-fallback: %s\n", err)
		return 127
	}
	return 0 // unreachable on success: RunExecFallback replaces this process
}

// runWorker is the --internal-worker entry point: Setup, announce ready
// on stdout (wired by the launcher to the ready pipe), then Process our
// stdin (wired by the launcher to the data pipe).
func runWorker(argv []string) int {
	fs := flag.NewFlagSet("srt-logger-worker", flag.ContinueOnError)
	f, _, err := parseFlags(fs, argv)
	if err != nil {
		return 2
	}
	cfg, err := buildConfig(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	l, err := logger.Setup(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer l.Close()

	var shellLines []string
	if cfg.ShSyntax {
		shellLines = l.ShellLines()
	}
	if err := logger.AnnounceReady(os.Stdout, shellLines); err != nil {
		return 1
	}

	if err := l.Process(os.Stdin); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
