package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type trackedBody struct {
	*bytes.Reader
	closed bool
}

func (b *trackedBody) Close() error {
	b.closed = true
	return nil
}

func TestDrainAndCloseRequest(t *testing.T) {
	for name, tc := range map[string]struct {
		bodySize      int
		wantRemaining int
	}{
		"small body fully drained": {
			bodySize:      1024,
			wantRemaining: 0,
		},
		"large body drained up to the limit": {
			bodySize:      maxDrainBytes + 100,
			wantRemaining: 100,
		},
	} {
		t.Run(name, func(t *testing.T) {
			body := &trackedBody{Reader: bytes.NewReader(make([]byte, tc.bodySize))}
			req := httptest.NewRequest("POST", "/blog/posts", nil)
			req.Body = body

			handlerCalled := false
			handler := DrainAndCloseRequest()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				// handler reads nothing
			}))
			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.True(t, handlerCalled)
			assert.True(t, body.closed)
			assert.Equal(t, tc.wantRemaining, body.Len())
		})
	}
}
