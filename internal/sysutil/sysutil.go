// Package sysutil wires process-level concerns for the entrypoint.
package sysutil

import (
	"strings"

	"github.com/rs/zerolog"
)

// ParseLogLevel maps a config string to a zerolog level. Unknown or empty
// input yields InfoLevel; "warning" is accepted as an alias for "warn".
func ParseLogLevel(lvl string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetLogLevel applies ParseLogLevel to the global zerolog level.
func SetLogLevel(lvl string) {
	zerolog.SetGlobalLevel(ParseLogLevel(lvl))
}
