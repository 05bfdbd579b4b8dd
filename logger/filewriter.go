// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package logger

import (
	"os"
	"sync"
)

// FileWriter is an append-only log file which can be reopened in place, so
// that external log rotation (rename, then SIGHUP) starts a fresh file.
type FileWriter struct {
	mu   sync.Mutex // guards f across Write, Reopen and Close
	f    *os.File
	mode os.FileMode
	name string
}

// NewFileWriter opens name for appending, creating it with mode 0600 if it
// doesn't exist.
func NewFileWriter(name string) (*FileWriter, error) {
	return NewFileWriterMode(name, 0600)
}

// NewFileWriterMode is like NewFileWriter with an explicit file mode.
func NewFileWriterMode(name string, mode os.FileMode) (*FileWriter, error) {
	fw := &FileWriter{name: name, mode: mode}
	if err := fw.open(); err != nil {
		return nil, err
	}
	return fw, nil
}

// open must be called with mu held (or before fw is shared).
func (fw *FileWriter) open() error {
	if fw.f != nil {
		fw.f.Close()
		fw.f = nil
	}
	f, err := os.OpenFile(fw.name, os.O_WRONLY|os.O_APPEND|os.O_CREATE, fw.mode)
	if err != nil {
		return err
	}
	fw.f = f
	return nil
}

// Name returns the path the writer (re)opens.
func (fw *FileWriter) Name() string {
	return fw.name
}

// Reopen closes the current file and opens the path again.
func (fw *FileWriter) Reopen() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.open()
}

// Write implements io.Writer.
func (fw *FileWriter) Write(p []byte) (int, error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.f == nil {
		return 0, os.ErrClosed
	}
	return fw.f.Write(p)
}

// Close implements io.Closer.
func (fw *FileWriter) Close() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.f == nil {
		return nil
	}
	err := fw.f.Close()
	fw.f = nil
	return err
}
