// Package logging builds the zerolog loggers used by the CLI.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
)

func init() {
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}
}

// ParseLevel maps TRACE, DEBUG, INFO, WARN and ERROR, in any case, to a
// zerolog level. Anything else is INFO.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToUpper(s) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Sinks are optional outputs next to the console.
type Sinks struct {
	// File gets the console format without colors.
	File io.Writer
	// Graylog gets raw JSON events, one per write.
	Graylog io.Writer
}

// New returns a console logger writing to console and any configured sinks.
func New(console io.Writer, level string, sinks Sinks) zerolog.Logger {
	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: time.RFC3339,
	}}
	if sinks.File != nil {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        sinks.File,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
	}
	if sinks.Graylog != nil {
		writers = append(writers, sinks.Graylog)
	}

	var w io.Writer = writers[0]
	if len(writers) > 1 {
		w = zerolog.MultiLevelWriter(writers...)
	}
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// Setup returns a console logger writing to w.
func Setup(w io.Writer, level string) zerolog.Logger {
	return New(w, level, Sinks{})
}

// SetupWithFile logs to the console and, without colors, to file.
func SetupWithFile(console, file io.Writer, level string) zerolog.Logger {
	return New(console, level, Sinks{File: file})
}

// DialGraylog opens a GELF UDP writer to addr (host:port).
func DialGraylog(addr string) (*gelf.Writer, error) {
	return gelf.NewWriter(addr)
}
