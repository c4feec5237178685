// Package util provides small HTTP helpers shared across the gateway.
package util

import (
	"bytes"

	"github.com/gin-gonic/gin"
)

// CaptureWriter tees the response body into a buffer so handlers can
// store what was sent, e.g. for response caching. Capture stops
// silently once limit bytes have been buffered; the response itself is
// never truncated.
type CaptureWriter struct {
	gin.ResponseWriter
	buf        bytes.Buffer
	limit      int
	overflowed bool
}

// NewCaptureWriter wraps w, buffering at most limit body bytes.
func NewCaptureWriter(w gin.ResponseWriter, limit int) *CaptureWriter {
	return &CaptureWriter{ResponseWriter: w, limit: limit}
}

// Write forwards to the underlying writer and mirrors the bytes into
// the capture buffer.
func (cw *CaptureWriter) Write(b []byte) (int, error) {
	cw.capture(b)
	return cw.ResponseWriter.Write(b)
}

// WriteString forwards to the underlying writer and mirrors the bytes.
func (cw *CaptureWriter) WriteString(s string) (int, error) {
	cw.capture([]byte(s))
	return cw.ResponseWriter.WriteString(s)
}

func (cw *CaptureWriter) capture(b []byte) {
	if cw.overflowed {
		return
	}
	if cw.buf.Len()+len(b) > cw.limit {
		cw.overflowed = true
		cw.buf.Reset()
		return
	}
	cw.buf.Write(b)
}

// Body returns the captured bytes. Empty after an overflow.
func (cw *CaptureWriter) Body() []byte {
	return cw.buf.Bytes()
}

// Overflowed reports whether the body exceeded the capture limit.
func (cw *CaptureWriter) Overflowed() bool {
	return cw.overflowed
}
