package main

import (
	"bytes"
	"path/filepath"
	"testing"
)

// useBufferWriters swaps the package-level writers for buffers and restores
// them after the test, so run output can be asserted.
func useBufferWriters(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	outBuf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}

	prevOut, prevErr := stdOut, stdErr
	stdOut, stdErr = outBuf, errBuf
	t.Cleanup(func() {
		stdOut, stdErr = prevOut, prevErr
	})

	return outBuf, errBuf
}

// configFixture points at the shared valid config under internal/config.
func configFixture(t *testing.T) string {
	t.Helper()
	return filepath.Join("internal", "config", "testdata", "valid.toml")
}
