package logger

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/opencoff/srt-logger/severity"
)

// newTestLogger builds a Logger with a real temp file as its file sink and
// no other sinks, bypassing Setup's name resolution and sink discovery
// entirely so tests can drive Process directly against known inputs.
func newTestLogger(t *testing.T) (*Logger, *os.File) {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "srt-logger-test-*.log")
	if err != nil {
		t.Fatalf("create temp file: %s", err)
	}
	st, err := statFile(int(f.Fd()))
	if err != nil {
		t.Fatalf("stat temp file: %s", err)
	}

	l := &Logger{
		cfg: DefaultConfig(),
		st:  state{stat: st},
	}
	l.cfg.UseFile = true
	l.snk.file = f
	l.snk.fileCeil = severity.Debug
	l.progName = "srt-logger-test"
	return l, f
}

func fileContents(t *testing.T, f *os.File) string {
	t.Helper()
	b, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatalf("read back %s: %s", f.Name(), err)
	}
	return string(b)
}

func TestProcessRoundTrip(t *testing.T) {
	l, f := newTestLogger(t)
	defer f.Close()

	in := "first line\nsecond line\nthird line\n"
	if err := l.Process(strings.NewReader(in)); err != nil {
		t.Fatalf("Process: %s", err)
	}

	got := fileContents(t, f)
	for _, want := range []string{"first line", "second line", "third line"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q; got %q", want, got)
		}
	}
}

func TestProcessStripsSeverityPrefix(t *testing.T) {
	l, f := newTestLogger(t)
	defer f.Close()

	if err := l.Process(strings.NewReader("<3>disk full\n")); err != nil {
		t.Fatalf("Process: %s", err)
	}

	got := fileContents(t, f)
	if strings.Contains(got, "<3>") {
		t.Errorf("severity prefix leaked into file output: %q", got)
	}
	if !strings.Contains(got, "disk full") {
		t.Errorf("payload missing from file output: %q", got)
	}
}

func TestProcessDirectiveAppliesToRemainingLines(t *testing.T) {
	l, f := newTestLogger(t)
	defer f.Close()
	l.snk.fileCeil = severity.Error // only errors-and-worse reach the file

	in := "<remaining-lines-assume-level=2>\nfirst\nsecond\n"
	if err := l.Process(strings.NewReader(in)); err != nil {
		t.Fatalf("Process: %s", err)
	}
	if l.cfg.ParseLevelPrefix {
		t.Error("directive should disable further prefix parsing")
	}
	if l.cfg.DefaultLineLevel != severity.Critical {
		t.Errorf("DefaultLineLevel = %v, want Critical", l.cfg.DefaultLineLevel)
	}

	got := fileContents(t, f)
	if !strings.Contains(got, "first") || !strings.Contains(got, "second") {
		t.Errorf("both lines should have passed the ceiling at critical severity: %q", got)
	}
}

func TestProcessFileCeilingGatesLines(t *testing.T) {
	l, f := newTestLogger(t)
	defer f.Close()
	l.snk.fileCeil = severity.Warning // 4: drop anything less severe (Info=6, Debug=7)

	in := "<6>swallowed\n<2>kept\n"
	if err := l.Process(strings.NewReader(in)); err != nil {
		t.Fatalf("Process: %s", err)
	}

	got := fileContents(t, f)
	if strings.Contains(got, "swallowed") {
		t.Errorf("line below ceiling should have been dropped: %q", got)
	}
	if !strings.Contains(got, "kept") {
		t.Errorf("line at/above ceiling should have reached the file: %q", got)
	}
}

func TestProcessOverflowSplitsOversizeLine(t *testing.T) {
	l, f := newTestLogger(t)
	defer f.Close()

	body := strings.Repeat("x", LineMax+500)
	in := body + "\n"
	if err := l.Process(strings.NewReader(in)); err != nil {
		t.Fatalf("Process: %s", err)
	}

	got := fileContents(t, f)
	gotNoNewlines := strings.ReplaceAll(got, "\n", "")
	if strings.Count(gotNoNewlines, "x") != LineMax+500 {
		t.Errorf("overflowed line lost bytes: got %d x's, want %d", strings.Count(gotNoNewlines, "x"), LineMax+500)
	}
	if !bytes.Contains([]byte(got), []byte("\n")) {
		t.Errorf("overflow should have forced at least one synthesized newline: %q", got)
	}
}

func TestProcessPartialLineFlushedBeforeNewline(t *testing.T) {
	l, f := newTestLogger(t)
	defer f.Close()

	r, w := io.Pipe()
	done := make(chan error, 1)
	go func() { done <- l.Process(r) }()

	w.Write([]byte("incomplete"))
	// Nothing should be in the file yet: writes without a newline only
	// reach the partial-line sinks (terminal/stderr), never the file.
	if strings.Contains(fileContents(t, f), "incomplete") {
		t.Errorf("partial line should not have reached the file sink yet")
	}

	w.Write([]byte(" line\n"))
	w.Close()
	if err := <-done; err != nil {
		t.Fatalf("Process: %s", err)
	}
	if !strings.Contains(fileContents(t, f), "incomplete line") {
		t.Errorf("completed line missing from file: %q", fileContents(t, f))
	}
}
