package console

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDownloadReporter_KnownSize(t *testing.T) {
	var buf bytes.Buffer
	r := NewDownloadReporter(&buf)

	r.Begin("vanilla", 200)
	r.Advance(100)
	r.Advance(100)
	r.Done(nil)

	out := buf.String()
	assert.Contains(t, out, "downloading vanilla")
	assert.Contains(t, out, " 50%")
	assert.Contains(t, out, "100%")
	assert.Contains(t, out, "download complete (200 B)")
}

func TestDownloadReporter_UnknownSizeShowsBytesOnly(t *testing.T) {
	var buf bytes.Buffer
	r := NewDownloadReporter(&buf)

	r.Begin("vanilla", -1)
	r.Advance(2048)
	r.Done(nil)

	out := buf.String()
	assert.NotContains(t, out, "%")
	assert.Contains(t, out, "2.0 KiB")
}

func TestDownloadReporter_Failure(t *testing.T) {
	var buf bytes.Buffer
	r := NewDownloadReporter(&buf)

	r.Begin("vanilla", 100)
	r.Advance(10)
	r.Done(errors.New("connection reset"))

	assert.Contains(t, buf.String(), "download failed: connection reset")
}
