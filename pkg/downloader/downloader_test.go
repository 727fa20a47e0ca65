package downloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type mockTask struct {
	lastPercent int
	lastMsg     string
	stage       string
}

func (m *mockTask) Log(msg string)                      {}
func (m *mockTask) SetStage(name string, target string) { m.stage = name }
func (m *mockTask) Progress(percent int, message string) {
	m.lastPercent = percent
	m.lastMsg = message
}
func (m *mockTask) Done() {}

func TestHTTPDownload(t *testing.T) {
	content := []byte("some large content to test download")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", len(content)))
		w.WriteHeader(http.StatusOK)
		w.Write(content)
	}))
	defer ts.Close()

	d := NewDefaultDownloader()
	buf := &bytes.Buffer{}
	task := &mockTask{}

	err := d.Download(context.Background(), ts.URL, buf, task)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	if !bytes.Equal(buf.Bytes(), content) {
		t.Errorf("Content mismatch")
	}
	if task.lastPercent != 100 {
		t.Errorf("Expected 100%% progress, got %d", task.lastPercent)
	}
	if task.stage != "Download" {
		t.Errorf("Expected Download stage, got %q", task.stage)
	}
}

func TestHTTPDownloadWithoutTask(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("quiet"))
	}))
	defer ts.Close()

	buf := &bytes.Buffer{}
	if err := NewDefaultDownloader().Download(context.Background(), ts.URL, buf, nil); err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if buf.String() != "quiet" {
		t.Errorf("Content mismatch, got %q", buf.String())
	}
}

func TestHTTPRedirect(t *testing.T) {
	content := []byte("redirected content")

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write(content)
	}))
	defer ts.Close()

	rs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, ts.URL, http.StatusMovedPermanently)
	}))
	defer rs.Close()

	d := NewDefaultDownloader()
	buf := &bytes.Buffer{}

	err := d.Download(context.Background(), rs.URL, buf, &mockTask{})
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), content) {
		t.Errorf("Content mismatch, got %q", buf.String())
	}
}

func TestHTTPBadStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()

	err := NewDefaultDownloader().Download(context.Background(), ts.URL+"/releases/wine-7.7.tar.xz", &bytes.Buffer{}, nil)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Expected StatusError, got: %v", err)
	}
	if statusErr.Code != http.StatusNotFound || statusErr.Asset != "wine-7.7.tar.xz" {
		t.Errorf("Unexpected status error %+v", statusErr)
	}
	if !strings.Contains(err.Error(), "wine-7.7.tar.xz") {
		t.Errorf("Error should name the release asset: %v", err)
	}
}

func TestHTTPSendsUserAgent(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer ts.Close()

	if err := NewDefaultDownloader().Download(context.Background(), ts.URL, &bytes.Buffer{}, nil); err != nil {
		t.Fatal(err)
	}
	if got != UserAgent {
		t.Errorf("Expected User-Agent %q, got %q", UserAgent, got)
	}
}

func TestHTTPTruncatedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.Write([]byte("only part"))
	}))
	defer ts.Close()

	if err := NewDefaultDownloader().Download(context.Background(), ts.URL, &bytes.Buffer{}, &mockTask{}); err == nil {
		t.Errorf("Expected error for a body shorter than Content-Length")
	}
}

func TestFileDownload(t *testing.T) {
	src := filepath.Join(t.TempDir(), "release.tar.gz")
	if err := os.WriteFile(src, []byte("local archive"), 0644); err != nil {
		t.Fatal(err)
	}

	buf := &bytes.Buffer{}
	if err := NewDefaultDownloader().Download(context.Background(), "file://"+src, buf, &mockTask{}); err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if buf.String() != "local archive" {
		t.Errorf("Content mismatch, got %q", buf.String())
	}
}

func TestUnsupportedScheme(t *testing.T) {
	d := NewDefaultDownloader()
	err := d.Download(context.Background(), "ftp://example.com", &bytes.Buffer{}, &mockTask{})
	if err == nil || !bytes.Contains([]byte(err.Error()), []byte("unsupported scheme")) {
		t.Errorf("Expected unsupported scheme error, got: %v", err)
	}
}
