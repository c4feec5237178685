package util

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCaptureContext(t *testing.T, limit int) (*CaptureWriter, *gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	cw := NewCaptureWriter(c.Writer, limit)
	c.Writer = cw
	return cw, c, rec
}

func TestCaptureWriter_MirrorsBody(t *testing.T) {
	cw, c, rec := newCaptureContext(t, 1024)

	c.Writer.WriteHeader(201)
	_, err := c.Writer.Write([]byte(`{"points":42}`))
	require.NoError(t, err)

	assert.Equal(t, 201, rec.Code)
	assert.Equal(t, `{"points":42}`, rec.Body.String())
	assert.Equal(t, []byte(`{"points":42}`), cw.Body())
	assert.False(t, cw.Overflowed())
}

func TestCaptureWriter_WriteString(t *testing.T) {
	cw, c, rec := newCaptureContext(t, 1024)

	_, err := c.Writer.WriteString("hello")
	require.NoError(t, err)

	assert.Equal(t, "hello", rec.Body.String())
	assert.Equal(t, []byte("hello"), cw.Body())
}

func TestCaptureWriter_AccumulatesChunks(t *testing.T) {
	cw, c, _ := newCaptureContext(t, 1024)

	_, _ = c.Writer.Write([]byte("part one, "))
	_, _ = c.Writer.Write([]byte("part two"))

	assert.Equal(t, "part one, part two", string(cw.Body()))
}

func TestCaptureWriter_OverflowStopsCaptureNotResponse(t *testing.T) {
	cw, c, rec := newCaptureContext(t, 10)

	payload := strings.Repeat("x", 50)
	_, err := c.Writer.Write([]byte(payload))
	require.NoError(t, err)

	// The client still receives the full body.
	assert.Equal(t, payload, rec.Body.String())

	assert.True(t, cw.Overflowed())
	assert.Empty(t, cw.Body())

	// Later writes stay uncaptured.
	_, _ = c.Writer.Write([]byte("more"))
	assert.Empty(t, cw.Body())
}

func TestCaptureWriter_StatusFromEmbeddedWriter(t *testing.T) {
	cw, c, _ := newCaptureContext(t, 1024)

	c.Writer.WriteHeader(503)
	assert.Equal(t, 503, cw.Status())
}
