// Package journal opens a systemd "journal stream" -- the same
// mechanism sd_journal_stream_fd(3) exposes -- and hands back a plain
// connected socket that the caller writes pre-formatted,
// optionally-`<N>`-prefixed lines to. This is deliberately the simpler
// of the two journal wire protocols systemd supports (the other being
// the structured, field-per-line native protocol used for
// sd_journal_sendv and friends): srt-logger only ever needs to emit
// opaque, already-prefixed lines (spec non-goal: it is not a structured
// logging framework), so there is no reason to carry the heavier
// protocol's framing.
package journal

import (
	"fmt"
	"net"
)

const streamSocketPath = "/run/systemd/journal/stdout"

// Stream is an open, already-handshaken journal stream socket. Lines
// written to it are line-prefixed with "<priority>" by the caller (see
// Prefix) and are otherwise opaque bytes, exactly like a regular pipe.
type Stream struct {
	conn net.Conn
}

// Dial performs the sd_journal_stream_fd handshake for the given
// identifier and returns the resulting stream. defaultPriority is used
// by journald for any line that does *not* carry its own "<N>" prefix;
// levelPrefix must be true for srt-logger's per-line prefixes to be
// honoured by journald rather than treated as literal message text.
func Dial(identifier string, defaultPriority int, levelPrefix bool) (*Stream, error) {
	conn, err := net.Dial("unix", streamSocketPath)
	if err != nil {
		return nil, fmt.Errorf("journal: dial %s: %w", streamSocketPath, err)
	}

	lp := 0
	if levelPrefix {
		lp = 1
	}
	handshake := fmt.Sprintf("%s\n\n%d\n%d\n0\n0\n0\n", identifier, defaultPriority, lp)
	if _, err := conn.Write([]byte(handshake)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: handshake: %w", err)
	}
	return &Stream{conn: conn}, nil
}

// Fd returns the underlying socket descriptor so it can be passed across
// exec() (spec.md §4.6's fd-passing handshake) with its close-on-exec bit
// cleared.
func (s *Stream) Fd() (uintptr, error) {
	uc, ok := s.conn.(*net.UnixConn)
	if !ok {
		return 0, fmt.Errorf("journal: not a unix socket")
	}
	f, err := uc.File()
	if err != nil {
		return 0, err
	}
	return f.Fd(), nil
}

// Write sends already-framed bytes (typically "<N>payload\n") to the
// journal stream verbatim.
func (s *Stream) Write(b []byte) (int, error) {
	return s.conn.Write(b)
}

// Close releases the journal connection.
func (s *Stream) Close() error {
	return s.conn.Close()
}
