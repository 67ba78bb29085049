package logger

import "strings"

// ProjectEnv computes the key/value overrides spec.md §4.7 says cooperating
// downstream tools should see, reflecting how this Logger ended up
// configured after Setup.
func (l *Logger) ProjectEnv() map[string]string {
	out := make(map[string]string)

	if l.cfg.UseTerminal && l.snk.terminal != nil && !strings.ContainsRune(l.snk.terminalPath, '\n') {
		out["SRT_LOG_TERMINAL"] = l.snk.terminalPath
	}

	activeSinks := 0
	if l.cfg.UseFile {
		activeSinks++
	}
	if l.cfg.UseJournal {
		activeSinks++
	}
	if l.cfg.UseTerminal {
		activeSinks++
	}

	switch {
	case l.cfg.UseJournal && activeSinks == 1:
		out["SRT_LOG_TO_JOURNAL"] = "1"
	case l.cfg.UseJournal:
		out["SRT_LOG_TO_JOURNAL"] = "0"
		out["SRT_LOGGER_USE_JOURNAL"] = "1"
	}

	if l.cfg.ParseLevelPrefix {
		out["SRT_LOG_LEVEL_PREFIX"] = "1"
	} else {
		out["SRT_LOG_LEVEL_PREFIX"] = "0"
	}

	return out
}

// ShellLines renders ProjectEnv as `export KEY=VALUE` lines in a stable
// order, for the --sh-syntax handshake output (spec.md §4.6 step 4).
func (l *Logger) ShellLines() []string {
	env := l.ProjectEnv()
	order := []string{
		"SRT_LOG_TERMINAL",
		"SRT_LOG_TO_JOURNAL",
		"SRT_LOGGER_USE_JOURNAL",
		"SRT_LOG_LEVEL_PREFIX",
	}
	var lines []string
	for _, k := range order {
		if v, ok := env[k]; ok {
			lines = append(lines, "export "+k+"="+shQuote(v))
		}
	}
	return lines
}

// shQuote wraps v in single quotes, the POSIX-shell-safe way to quote an
// arbitrary value (escaping embedded single quotes by closing, emitting an
// escaped quote, and reopening).
func shQuote(v string) string {
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}
