package main

import (
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"printum/internal/config"
	"printum/internal/slicer/artifact"
	"printum/internal/slicer/controller"
	"printum/internal/slicer/engine"
	"printum/internal/slicer/health"
	"printum/internal/slicer/service"
	"printum/internal/slicer/upload"
	"printum/internal/slicer/workspace"

	"github.com/gin-gonic/gin"
)

func newTestServer(t *testing.T, metrics http.Handler) *http.Server {
	t.Helper()
	return newTestServerWithEngine(t, filepath.Join(t.TempDir(), "missing-engine"), metrics)
}

func newTestServerWithEngine(t *testing.T, binary string, metrics http.Handler) *http.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	cfg, err := config.Load(config.Options{LookupEnv: func(key string) (string, bool) {
		switch key {
		case "UPLOAD_DIR":
			return dir, true
		case "CURA_ENGINE_BIN":
			return binary, true
		case "APP_ENV":
			return "test", true
		case "SLICE_TIMEOUT_SECONDS":
			return "5", true
		}
		return "", false
	}})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	exec, err := engine.NewExecutor(engine.Config{Binary: cfg.Engine.Binary, Timeout: cfg.SliceTimeout()}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	svc := service.NewSliceService(upload.NewGate(cfg.AllowedExtensions(), cfg.MaxUploadBytes()), workspace.New(dir), exec, nil)
	h := controller.NewSliceController(svc, artifact.NewStreamer(false, cfg.WriteTimeout()), health.NewProbe(cfg.Engine.Binary))
	return buildHTTPServer(cfg, h, metrics)
}

func TestBuildHTTPServerRoutes(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	srv := newTestServer(t, metrics)

	if srv.Addr != ":8080" {
		t.Fatalf("addr = %q", srv.Addr)
	}
	if srv.WriteTimeout != 0 {
		t.Fatalf("write timeout = %v, want none at the server level", srv.WriteTimeout)
	}
	if srv.ReadTimeout != 300*time.Second {
		t.Fatalf("read timeout = %v", srv.ReadTimeout)
	}

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/health", http.StatusServiceUnavailable},
		{http.MethodGet, "/metrics", http.StatusTeapot},
		{http.MethodGet, "/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		srv.Handler.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
		if w.Code != tt.want {
			t.Fatalf("%s %s = %d, want %d", tt.method, tt.path, w.Code, tt.want)
		}
		if w.Header().Get("X-Trace-Id") == "" {
			t.Fatalf("%s %s missing trace header", tt.method, tt.path)
		}
	}
}

func TestBuildHTTPServerWithoutMetrics(t *testing.T) {
	srv := newTestServer(t, nil)
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestSlowUploadStillReceivesGcode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake engine requires a POSIX shell")
	}
	binary := filepath.Join(t.TempDir(), "CuraEngine")
	script := "#!/bin/sh\nfor a in \"$@\"; do [ \"$p\" = \"-o\" ] && out=\"$a\"; p=\"$a\"; done\nprintf 'G28\\n' > \"$out\"\n"
	if err := os.WriteFile(binary, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	srv := newTestServerWithEngine(t, binary, nil)
	// Shrink the connection-level budget so a pause in the upload outlasts it.
	srv.WriteTimeout = 150 * time.Millisecond
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		fw, err := mw.CreateFormFile("model", "part.stl")
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_, _ = fw.Write([]byte("solid x\n"))
		time.Sleep(400 * time.Millisecond)
		_, _ = fw.Write([]byte("endsolid x\n"))
		_ = pw.CloseWithError(mw.Close())
	}()

	resp, err := http.Post(fmt.Sprintf("http://%s/slice", ln.Addr()), mw.FormDataContentType(), pr)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != http.StatusOK || string(body) != "G28\n" {
		t.Fatalf("status = %d body = %q", resp.StatusCode, body)
	}
}
