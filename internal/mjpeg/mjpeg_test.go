package mjpeg

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/camstack/camd/internal/camera"
	"github.com/camstack/camd/internal/streamer"
	"github.com/camstack/camd/pkg/mjpeg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	camera.Init()
	streamer.Init()
	Init()
	m.Run()
}

func TestHandlerPage(t *testing.T) {
	r := httptest.NewRequest("GET", "/stream", nil)
	w := httptest.NewRecorder()
	handlerPage(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "src='/video'")
}

// TestHandlerVideo streams until the request context expires, then
// checks the multipart framing of whatever was produced.
func TestHandlerVideo(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	r := httptest.NewRequest("GET", "/video", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	handlerVideo(w, r)

	assert.Equal(t, mjpeg.ContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))

	body := w.Body.String()
	parts := strings.Count(body, "\r\n--"+mjpeg.Boundary+"\r\n")
	require.Greater(t, parts, 1, "expected multiple frames in 300ms at 30fps")
	assert.Contains(t, body, "Content-Type: image/jpeg\r\n")

	// every part declares its payload length
	assert.Equal(t, parts, strings.Count(body, "Content-Length: "))
}
