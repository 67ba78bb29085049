package logger

import (
	"bytes"
	"io"
	"time"

	"github.com/opencoff/srt-logger/severity"
)

// Process reads from r until EOF, splitting it into lines and fanning each
// one out to the configured sinks, per spec.md §4.4's streaming pipeline.
// It blocks until r is exhausted or returns a non-EOF error.
func (l *Logger) Process(r io.Reader) error {
	for {
		if l.st.filled >= LineMax {
			// Buffer is already full without a newline in it: this read
			// would have nowhere to land. Drain what we have first.
			if !l.drain(false) {
				break
			}
			continue
		}

		n, err := r.Read(l.st.buf[l.st.filled:LineMax])
		if n == 0 && err == nil {
			continue
		}
		l.st.filled += n
		eof := err == io.EOF

		l.drain(eof)

		if err != nil && !eof {
			return newError(KindIO, "read input", err)
		}
		if eof && l.st.filled == l.st.alreadyProcessed {
			return nil
		}
	}
	return nil
}

// drain dispatches every complete line currently sitting in the buffer,
// then eagerly flushes whatever undispatched partial-line tail remains to
// the partial-line sinks. It returns false if it made no progress at all
// (buffer full, no newline, not at EOF yet) -- the caller must read more.
func (l *Logger) drain(eof bool) bool {
	progressed := false

lines:
	for {
		if !l.resolvePrefix(eof) {
			break
		}

		rel := bytes.IndexByte(l.st.buf[l.st.alreadyProcessed:l.st.filled], '\n')
		overflow := false
		if rel < 0 {
			switch {
			case l.st.filled >= LineMax:
				// No room left to accumulate more of this line: force a
				// break by synthesizing the trailing newline in the
				// buffer's reserved sentinel byte (spec.md §3's "+1").
				l.st.buf[l.st.filled] = '\n'
				rel = l.st.filled - l.st.alreadyProcessed
				l.st.filled++
				overflow = true
			case eof && l.st.filled > l.st.alreadyProcessed:
				l.st.buf[l.st.filled] = '\n'
				rel = l.st.filled - l.st.alreadyProcessed
				l.st.filled++
			default:
				break lines
			}
		}

		l.dispatchLine(rel, overflow)
		progressed = true
	}

	if l.st.prefixKnown {
		tail := l.st.buf[l.st.alreadyProcessed+l.st.partialSent : l.st.filled]
		if len(tail) > 0 {
			l.writePartial(tail, l.st.partialLevel)
			l.st.partialSent += len(tail)
			progressed = true
		}
	}

	return progressed
}

// resolvePrefix decides, if it hasn't already been decided for the line
// currently at the front of the buffer, whether that line carries a
// severity prefix (spec.md §4.1). It reports false when the decision
// genuinely needs more input bytes than are currently buffered.
func (l *Logger) resolvePrefix(eof bool) bool {
	if !l.st.lineStarted {
		// The line (or, after an overflow split, the next chunk of it)
		// at the front of the buffer is new: its timestamp is when it
		// began, not whenever its trailing newline eventually shows up
		// (which matters for a slow, trickling writer).
		l.st.lineStart = time.Now()
		l.st.lineStarted = true
	}
	if l.st.prefixKnown {
		return true
	}
	if !l.cfg.ParseLevelPrefix {
		l.st.prefixKnown = true
		l.st.partialLevel = l.cfg.DefaultLineLevel
		return true
	}

	p, needMore := severity.ScanPrefix(l.st.buf[:l.st.filled])
	if needMore && !eof {
		return false
	}

	l.st.prefixKnown = true
	switch {
	case needMore:
		// The stream ended mid-prefix; nothing more is coming to
		// disambiguate it, so treat the line as unprefixed.
		l.st.partialLevel = l.cfg.DefaultLineLevel
	case p.Present && p.Directive:
		l.cfg.DefaultLineLevel = p.Level
		l.cfg.ParseLevelPrefix = false // once-per-stream: never scan again
		l.st.partialLevel = p.Level
		l.st.alreadyProcessed = p.Consumed
	case p.Present:
		l.st.partialLevel = p.Level
		l.st.alreadyProcessed = p.Consumed
	default:
		l.st.partialLevel = l.cfg.DefaultLineLevel
	}
	return true
}

// dispatchLine ships the line ending at buf[alreadyProcessed+rel] (the
// newline itself, whether real or synthesized by an overflow split) to the
// complete-line sinks, and whatever of its partial tail hasn't already been
// eagerly flushed to the partial-line sinks, then slides the buffer down.
func (l *Logger) dispatchLine(rel int, overflow bool) {
	lineEnd := l.st.alreadyProcessed + rel + 1 // one past the newline
	payload := l.st.buf[l.st.alreadyProcessed : lineEnd-1]

	tailStart := l.st.alreadyProcessed + l.st.partialSent
	if tailStart < lineEnd-1 {
		l.writePartial(l.st.buf[tailStart:lineEnd-1], l.st.partialLevel)
	}
	// resolvePrefix always runs before dispatchLine for this line, so
	// lineStart is already set to when its first byte arrived.
	l.writeComplete(payload, l.st.partialLevel, l.st.lineStart)

	remaining := l.st.filled - lineEnd
	copy(l.st.buf[:remaining], l.st.buf[lineEnd:l.st.filled])
	l.st.filled = remaining
	l.st.alreadyProcessed = 0
	l.st.partialSent = 0
	l.st.lineStarted = false

	if overflow {
		// Same logical line continues; keep its severity, don't rescan.
		l.st.prefixKnown = true
	} else {
		l.st.prefixKnown = false
	}
}
