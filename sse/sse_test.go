package sse

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func streamBody(t *testing.T, msgs ...string) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/stream", func(c *gin.Context) {
		ch := make(chan string, len(msgs))
		for _, m := range msgs {
			ch <- m
		}
		close(ch)
		Stream(c, ch)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stream", nil))
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	return w.Body.String()
}

func TestStreamFramesTokens(t *testing.T) {
	body := streamBody(t, "bonjour", "docteur")
	want := "data: bonjour\n\ndata: docteur\n\ndata: [DONE]\n\n"
	if body != want {
		t.Errorf("body = %q, want %q", body, want)
	}
}

func TestStreamSplitsMultilineTokens(t *testing.T) {
	body := streamBody(t, "ligne 1\nligne 2")
	// both lines framed in the same event, newline preserved in the token
	if !strings.Contains(body, "data: ligne 1\n\ndata: ligne 2\n\n") {
		t.Errorf("body = %q", body)
	}
}

func TestStreamEmptyChannelStillTerminates(t *testing.T) {
	body := streamBody(t)
	if body != "data: [DONE]\n\n" {
		t.Errorf("body = %q", body)
	}
}
