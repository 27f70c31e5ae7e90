package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// headerRecorder captures the Authorization header of each inbound request.
type headerRecorder struct {
	mu   sync.Mutex
	auth []string
}

func (r *headerRecorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	r.auth = append(r.auth, req.Header.Get("Authorization"))
	r.mu.Unlock()
	w.WriteHeader(http.StatusForbidden)
}

func (r *headerRecorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.auth))
	copy(out, r.auth)
	return out
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestTokenDialerSendsBearerHeader(t *testing.T) {
	rec := &headerRecorder{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	// The handler refuses the upgrade, so the dial fails; the handshake
	// request and its headers still reach the server.
	dial := TokenDialer("s3cret")
	if _, err := dial(context.Background(), wsURL(srv)); err == nil {
		t.Fatal("expected dial to fail against a non-websocket handler")
	}

	got := rec.got()
	if len(got) != 1 {
		t.Fatalf("requests = %d, want 1", len(got))
	}
	if got[0] != "Bearer s3cret" {
		t.Fatalf("Authorization = %q, want %q", got[0], "Bearer s3cret")
	}
}

func TestTokenDialerWithEmptyTokenOmitsHeader(t *testing.T) {
	rec := &headerRecorder{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	dial := TokenDialer("")
	if _, err := dial(context.Background(), wsURL(srv)); err == nil {
		t.Fatal("expected dial to fail against a non-websocket handler")
	}

	got := rec.got()
	if len(got) != 1 {
		t.Fatalf("requests = %d, want 1", len(got))
	}
	if got[0] != "" {
		t.Fatalf("Authorization = %q, want empty", got[0])
	}
}
