package responsewriter

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_DefaultsToOKUntilWriteHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	w := Wrap(rec)

	assert.Equal(t, http.StatusOK, w.StatusCode())
}

func TestWriteHeader_RecordsStatusOnce(t *testing.T) {
	rec := httptest.NewRecorder()
	w := Wrap(rec)

	w.WriteHeader(http.StatusAccepted)
	w.WriteHeader(http.StatusInternalServerError)

	assert.Equal(t, http.StatusAccepted, w.StatusCode())
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestWrite_DefaultsHeaderToOKWhenNotSet(t *testing.T) {
	rec := httptest.NewRecorder()
	w := Wrap(rec)

	n, err := w.Write([]byte("hello"))

	assert.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, http.StatusOK, w.StatusCode())
	assert.Equal(t, 5, w.BytesWritten())
}

func TestWrite_AccumulatesBytesWritten(t *testing.T) {
	rec := httptest.NewRecorder()
	w := Wrap(rec)

	w.Write([]byte("abc"))
	w.Write([]byte("de"))

	assert.Equal(t, 5, w.BytesWritten())
	assert.Equal(t, "abcde", rec.Body.String())
}

func TestFlush_NoopWhenUnderlyingWriterDoesNotSupportFlushing(t *testing.T) {
	w := Wrap(&nonFlushingWriter{header: http.Header{}})

	assert.NotPanics(t, func() { w.Flush() })
}

func TestFlush_DelegatesToFlusher(t *testing.T) {
	rec := httptest.NewRecorder()
	w := Wrap(rec)

	w.Write([]byte("chunk"))
	w.Flush()

	assert.True(t, rec.Flushed)
}

type nonFlushingWriter struct {
	header http.Header
}

func (w *nonFlushingWriter) Header() http.Header         { return w.header }
func (w *nonFlushingWriter) Write(b []byte) (int, error) { return len(b), nil }
func (w *nonFlushingWriter) WriteHeader(int)             {}
