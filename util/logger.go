// Package util provides low-level helpers shared by all other packages.
package util

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"sync"

	glog "github.com/google/logger"
)

// LogLevel is the verbosity knob; higher levels include the lower
// ones.
type LogLevel int

const (
	LogQuiet LogLevel = iota
	LogNormal
	LogVerbose
	LogDebug
)

// Logger gates levelled messages by verbosity and hands them to a
// google/logger backend, which stamps severity, timestamp, and caller.
// Verbose and Debug map to Info severity; only their gating differs.
type Logger struct {
	level   LogLevel
	out     *swapWriter
	backend *glog.Logger
}

// swapWriter lets SetOutput redirect the backend after Init and strips
// the date/time stamp when timestamps are off; google/logger fixes both
// its writer and its flags at Init time.
type swapWriter struct {
	mu   sync.Mutex
	w    io.Writer
	bare bool
}

// stampRe matches the date/time block the backend writes between the
// severity tag and the caller location.
var stampRe = regexp.MustCompile(`\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2}(\.\d+)? `)

func (s *swapWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.bare {
		return s.w.Write(p)
	}
	if _, err := s.w.Write(stampRe.ReplaceAll(p, nil)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *swapWriter) swap(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

func (s *swapWriter) setStamps(on bool) {
	s.mu.Lock()
	s.bare = !on
	s.mu.Unlock()
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity (0 = quiet, 1 = normal, 2 = verbose, 3 = debug) to stderr.
// The backend's own stdout tee stays off; gating happens here.
func NewLogger(verbosity int) *Logger {
	out := &swapWriter{w: os.Stderr}
	return &Logger{
		level:   LogLevel(verbosity),
		out:     out,
		backend: glog.Init("gotelnet", false, false, out),
	}
}

// SetOutput overrides the output writer (default: os.Stderr).
func (l *Logger) SetOutput(w io.Writer) { l.out.swap(w) }

// SetTimestamps enables or disables date/time prefixes.  Caller
// file:line stays on either way.
func (l *Logger) SetTimestamps(on bool) { l.out.setStamps(on) }

// Level returns the current log level.
func (l *Logger) Level() LogLevel { return l.level }

// Info prints when verbosity ≥ 1.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.level >= LogNormal {
		l.backend.InfoDepth(1, fmt.Sprintf(format, args...))
	}
}

// Warn prints when verbosity ≥ 1.
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level >= LogNormal {
		l.backend.WarningDepth(1, fmt.Sprintf(format, args...))
	}
}

// Verbose prints when verbosity ≥ 2.
func (l *Logger) Verbose(format string, args ...interface{}) {
	if l.level >= LogVerbose {
		l.backend.InfoDepth(1, fmt.Sprintf(format, args...))
	}
}

// Debug prints when verbosity ≥ 3.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level >= LogDebug {
		l.backend.InfoDepth(1, fmt.Sprintf(format, args...))
	}
}

// Error always prints regardless of verbosity.
func (l *Logger) Error(format string, args ...interface{}) {
	l.backend.ErrorDepth(1, fmt.Sprintf(format, args...))
}
