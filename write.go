package logger

import (
	"fmt"
	"time"

	"github.com/opencoff/srt-logger/severity"
)

// ansi SGR sequences per severity, per spec.md §4.5.
const (
	ansiReset        = "\x1b[0m"
	ansiDim          = "\x1b[2m"
	ansiDefault      = "\x1b[0m"
	ansiBold         = "\x1b[1m"
	ansiBoldMagenta  = "\x1b[1;35m"
	ansiBoldRed      = "\x1b[1;31m"
)

func sgrFor(l severity.Level) string {
	switch {
	case l == severity.Debug:
		return ansiDim
	case l == severity.Info:
		return ansiDefault
	case l == severity.Notice:
		return ansiBold
	case l == severity.Warning:
		return ansiBoldMagenta
	default: // Error and more severe
		return ansiBoldRed
	}
}

// writeComplete fans a finished line out to the file and journal sinks
// (spec.md §4.5). payload does not include the trailing newline.
func (l *Logger) writeComplete(payload []byte, lvl severity.Level, ts time.Time) {
	if l.cfg.UseFile && l.snk.file != nil && lvl.AtLeastAsSevereAs(l.snk.fileCeil) {
		l.writeFile(payload, ts)
	}
	if l.cfg.UseJournal && l.snk.journal != nil && lvl.AtLeastAsSevereAs(l.snk.journalCeil) {
		l.writeJournal(payload, lvl)
	}
}

// writePartial fans the not-yet-terminated tail of a line out to the
// terminal and stderr sinks eagerly, so interactive use doesn't wait for
// a newline (spec.md §4.4, §4.5).
func (l *Logger) writePartial(payload []byte, lvl severity.Level) {
	if len(payload) == 0 {
		return
	}
	if l.cfg.UseTerminal && l.snk.terminal != nil && lvl.AtLeastAsSevereAs(l.snk.terminalCeil) {
		l.writeTerminal(payload, lvl)
	}
	if l.st.useStderr && lvl.AtLeastAsSevereAs(l.snk.stderrCeil) {
		l.writeStderrFallback(payload)
	}
}

func (l *Logger) writeFile(payload []byte, ts time.Time) {
	if err := l.checkFileIdentity(); err != nil {
		l.warn("log file identity check failed: %s", err)
	}

	var line []byte
	if l.cfg.Timestamps {
		line = append(line, '[')
		line = ts.AppendFormat(line, "2006-01-02 15:04:05")
		line = append(line, "] "...)
	}
	line = append(line, payload...)
	line = append(line, '\n')

	l.maybeRotate(len(line))

	n, err := l.snk.file.Write(line)
	if err != nil {
		l.warn("write to log file failed: %s", err)
		return
	}
	l.st.stat.size += int64(n)
}

// checkFileIdentity re-opens the log file if it has been unlinked or
// replaced out from under this process (spec.md §4.5's device+inode
// check), adopting the new fd and re-locking it. The comparison must be
// by path: fstat on our own fd always reports our own inode, so the only
// way to notice a peer's rotation or an external logrotate is to stat the
// name and see whether it still points at what we have open.
func (l *Logger) checkFileIdentity() error {
	onDisk, err := statPath(l.currentPath())
	if err != nil {
		return l.reopenFile()
	}
	if onDisk.dev == l.st.stat.dev && onDisk.ino == l.st.stat.ino {
		cur, err := statFile(int(l.snk.file.Fd()))
		if err != nil {
			return err
		}
		l.st.stat.size = cur.size
		return nil
	}
	return l.reopenFile()
}

func (l *Logger) writeJournal(payload []byte, lvl severity.Level) {
	line := append([]byte(fmt.Sprintf("<%d>", int(lvl))), payload...)
	line = append(line, '\n')
	if _, err := l.snk.journal.Write(line); err != nil {
		l.warn("write to journal failed: %s", err)
	}
}

func (l *Logger) writeTerminal(payload []byte, lvl severity.Level) {
	var out []byte
	if l.st.useTerminalColors {
		out = append(out, ansiReset...)
		out = append(out, sgrFor(lvl)...)
		out = append(out, payload...)
		out = append(out, ansiReset...)
		out = append(out, '\n')
	} else {
		out = append(out, payload...)
		out = append(out, '\n')
	}
	if _, err := l.snk.terminal.Write(out); err != nil {
		l.warn("write to terminal failed: %s", err)
	}
}

func (l *Logger) writeStderrFallback(payload []byte) {
	out := append(append([]byte{}, payload...), '\n')
	if _, err := l.snk.stderr.Write(out); err != nil {
		// There is nowhere left to report this failure to.
		_ = err
	}
}
