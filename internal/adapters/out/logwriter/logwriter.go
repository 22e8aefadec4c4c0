// Package logwriter provides process output collection with file rotation.
package logwriter

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bnema/zerowrap"
	"gopkg.in/natefinch/lumberjack.v2"
)

// maxLineLength bounds a single forwarded log line; longer output is split.
const maxLineLength = 16 << 10

// Config holds the configuration for the log writer.
type Config struct {
	// Dir is the directory where process logs are stored. Empty disables
	// file output.
	Dir string
	// MaxSize is the maximum size in megabytes before rotation.
	MaxSize int
	// MaxBackups is the number of old log files to retain.
	MaxBackups int
	// MaxAge is the maximum number of days to retain old log files.
	MaxAge int
	// Forward mirrors each output line into the structured log.
	Forward bool
}

// LogWriter implements the ProcessLogWriter interface.
type LogWriter struct {
	config Config
	log    zerowrap.Logger
	sinks  map[string]*sink
	mu     sync.Mutex
}

// New creates a new LogWriter.
func New(config Config, log zerowrap.Logger) (*LogWriter, error) {
	if config.Dir != "" {
		if err := os.MkdirAll(config.Dir, 0700); err != nil {
			return nil, err
		}
	}

	return &LogWriter{
		config: config,
		log:    log,
		sinks:  make(map[string]*sink),
	}, nil
}

// Writer returns the sink of the named process. Restarts of the same process
// reuse the rotating file.
func (w *LogWriter) Writer(name string) (io.WriteCloser, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if s, ok := w.sinks[name]; ok {
		return s.handle(), nil
	}

	s := &sink{name: name}
	if w.config.Dir != "" {
		s.file = &lumberjack.Logger{
			Filename:   filepath.Join(w.config.Dir, sanitizeName(name)+".log"),
			MaxSize:    w.config.MaxSize,
			MaxBackups: w.config.MaxBackups,
			MaxAge:     w.config.MaxAge,
			Compress:   true,
		}
	}
	if w.config.Forward {
		s.lines = &lineForwarder{log: w.log, process: name}
	}
	w.sinks[name] = s

	w.log.Debug().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "logwriter").
		Str("process", name).
		Bool("file", s.file != nil).
		Bool("forward", s.lines != nil).
		Msg("process log sink created")

	return s.handle(), nil
}

// Close flushes and closes every sink.
func (w *LogWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var firstErr error
	for name, s := range w.sinks {
		if err := s.close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(w.sinks, name)
	}
	return firstErr
}

// sink fans process output out to the rotating file and the line forwarder.
type sink struct {
	name  string
	file  *lumberjack.Logger
	lines *lineForwarder
	mu    sync.Mutex
}

func (s *sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil {
		if _, err := s.file.Write(p); err != nil {
			return 0, err
		}
	}
	if s.lines != nil {
		s.lines.write(p)
	}
	return len(p), nil
}

func (s *sink) flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lines != nil {
		s.lines.flush()
	}
}

func (s *sink) close() error {
	s.flush()
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// handle returns a per-run view of the sink. Closing it flushes a trailing
// partial line without closing the shared file.
func (s *sink) handle() io.WriteCloser {
	return &runHandle{sink: s}
}

type runHandle struct {
	*sink
}

func (h *runHandle) Close() error {
	h.flush()
	return nil
}

// lineForwarder splits output into lines and logs each one.
type lineForwarder struct {
	log     zerowrap.Logger
	process string
	buf     []byte
}

func (f *lineForwarder) write(p []byte) {
	f.buf = append(f.buf, p...)
	for {
		i := bytes.IndexByte(f.buf, '\n')
		if i < 0 {
			break
		}
		f.emit(f.buf[:i])
		f.buf = f.buf[i+1:]
	}
	for len(f.buf) > maxLineLength {
		f.emit(f.buf[:maxLineLength])
		f.buf = f.buf[maxLineLength:]
	}
	if len(f.buf) == 0 {
		f.buf = nil
	}
}

func (f *lineForwarder) flush() {
	if len(f.buf) > 0 {
		f.emit(f.buf)
		f.buf = nil
	}
}

func (f *lineForwarder) emit(line []byte) {
	text := strings.TrimRight(string(line), "\r")
	if text == "" {
		return
	}
	f.log.Info().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "logwriter").
		Str("process", f.process).
		Msg(text)
}

// sanitizeName converts a process name to a safe filename.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
