package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/opencoff/srt-logger/internal/testutil"
)

func newSetupConfig(t *testing.T, dir string) Config {
	t.Helper()
	t.Setenv("JOURNAL_STREAM", "")
	t.Setenv("SRT_LOG_TERMINAL", "")
	cfg := DefaultConfig()
	cfg.LogDir = dir
	cfg.Filename = "test.log"
	cfg.NoAutoTerminal = true
	return cfg
}

func TestSetupOpensFileAndWritesBanner(t *testing.T) {
	dir := t.TempDir()
	cfg := newSetupConfig(t, dir)

	l, err := Setup(cfg)
	if err != nil {
		t.Fatalf("Setup: %s", err)
	}
	defer l.Close()

	if !l.cfg.UseFile || l.snk.file == nil {
		t.Fatal("expected file sink to be active")
	}

	contents, err := os.ReadFile(filepath.Join(dir, "test.log"))
	if err != nil {
		t.Fatalf("read log file: %s", err)
	}
	if !strings.Contains(string(contents), "Log opened") {
		t.Errorf("banner missing from freshly opened file, got %q", contents)
	}
}

func TestSetupFallsBackToStderrWhenNoSinksSelected(t *testing.T) {
	dir := t.TempDir()
	cfg := newSetupConfig(t, dir)
	cfg.Filename = ""

	l, err := Setup(cfg)
	if err != nil {
		t.Fatalf("Setup: %s", err)
	}
	defer l.Close()

	assert := testutil.NewAsserter(t, "no-sink fallback")
	assert(l.st.useStderr, "expected stderr fallback when no sink was explicitly selected")
	assert(l.snk.stderr != nil, "expected stderr sink fd to be populated")
}

func TestCheckFileIdentityReopensAfterExternalRotate(t *testing.T) {
	dir := t.TempDir()
	cfg := newSetupConfig(t, dir)

	l, err := Setup(cfg)
	if err != nil {
		t.Fatalf("Setup: %s", err)
	}
	defer l.Close()

	oldFD := l.snk.file.Fd()
	path := filepath.Join(dir, "test.log")

	// Simulate an external logrotate-style swap: move the current file
	// aside and create a brand new file at the same path.
	if err := os.Rename(path, path+".bak"); err != nil {
		t.Fatalf("rename aside: %s", err)
	}
	if err := os.WriteFile(path, []byte("fresh\n"), 0644); err != nil {
		t.Fatalf("write fresh file: %s", err)
	}

	if err := l.checkFileIdentity(); err != nil {
		t.Fatalf("checkFileIdentity: %s", err)
	}

	assert := testutil.NewAsserter(t, "reopen on external rotate")
	assert(l.snk.file.Fd() != oldFD, "expected a new fd after external rotation")

	l.writeFile([]byte("hello"), time.Now())

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read rotated-into file: %s", err)
	}
	assert(strings.Contains(string(got), "hello"), "expected new write to land in the freshly adopted file, got %q", got)
}
