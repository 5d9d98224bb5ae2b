package utils

import (
	"io"
	"sync"
)

type flusher interface {
	Flush() error
}

// FlushingWriter serializes writes and flushes buffered destinations after each one,
// so reporter lines appear in order with zap console output.
type FlushingWriter struct {
	mutex       sync.Mutex
	destination io.Writer
}

// NewFlushingWriter wraps destination unless it already is a FlushingWriter.
func NewFlushingWriter(destination io.Writer) io.Writer {
	switch typed := destination.(type) {
	case nil:
		return nil
	case *FlushingWriter:
		return typed
	default:
		return &FlushingWriter{destination: destination}
	}
}

// Write forwards data and flushes when the destination supports it.
func (writer *FlushingWriter) Write(data []byte) (int, error) {
	if writer == nil || writer.destination == nil {
		return 0, nil
	}

	writer.mutex.Lock()
	defer writer.mutex.Unlock()

	written, writeError := writer.destination.Write(data)
	if writeError != nil {
		return written, writeError
	}
	if bufferedDestination, buffered := writer.destination.(flusher); buffered {
		return written, bufferedDestination.Flush()
	}
	return written, nil
}
