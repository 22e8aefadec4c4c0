package out

import "io"

// ProcessLogWriter defines the contract for process output collection.
type ProcessLogWriter interface {
	// Writer returns the sink for a process' stdout and stderr. Closing it
	// flushes pending output of that process.
	Writer(name string) (io.WriteCloser, error)

	// Close releases every sink.
	Close() error
}
