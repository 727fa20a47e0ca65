package dxvk

import (
	"archive/tar"
	"bytes"
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/gzip"

	"xlcompat/pkg/downloader"
)

func TestHudEnvValue(t *testing.T) {
	cases := map[HudType]string{HudNone: "0", HudFps: "fps", HudFull: "full"}
	for h, want := range cases {
		if got := h.EnvValue(); got != want {
			t.Errorf("%s.EnvValue() = %q, want %q", h, got, want)
		}
	}
}

func TestHudEnvValuePanicsOnUnknown(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("Expected panic for unknown HudType")
		}
	}()
	HudType(42).EnvValue()
}

func TestParseHudType(t *testing.T) {
	if h, err := ParseHudType("FPS"); err != nil || h != HudFps {
		t.Errorf("Expected fps, got %v (%v)", h, err)
	}
	if _, err := ParseHudType("graph"); err == nil {
		t.Errorf("Expected error for unknown hud")
	}
}

func serveRelease(t *testing.T, name string, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		gw := gzip.NewWriter(w)
		tw := tar.NewWriter(gw)
		for _, f := range []struct{ name, body string }{
			{name + "/x64/d3d11.dll", "x64 d3d11"},
			{name + "/x64/dxgi.dll", "x64 dxgi"},
			{name + "/x32/d3d11.dll", "x32 d3d11"},
			{name + "/setup_dxvk.sh", "#!/bin/sh"},
		} {
			tw.WriteHeader(&tar.Header{Name: f.name, Mode: 0644, Size: int64(len(f.body))})
			tw.Write([]byte(f.body))
		}
		tw.Close()
		gw.Close()
	}))
}

func TestReleaseInstaller(t *testing.T) {
	var hits int32
	ts := serveRelease(t, "dxvk-test", &hits)
	defer ts.Close()

	prefix := t.TempDir()
	source := t.TempDir()
	i := &ReleaseInstaller{
		Release:    Release{Name: "dxvk-test", URL: ts.URL + "/dxvk-test.tar.gz"},
		Downloader: downloader.NewDefaultDownloader(),
	}

	if err := i.Install(context.Background(), prefix, source); err != nil {
		t.Fatalf("Install failed: %v", err)
	}

	checks := map[string]string{
		"drive_c/windows/system32/d3d11.dll": "x64 d3d11",
		"drive_c/windows/system32/dxgi.dll":  "x64 dxgi",
		"drive_c/windows/syswow64/d3d11.dll": "x32 d3d11",
	}
	for rel, want := range checks {
		b, err := os.ReadFile(filepath.Join(prefix, rel))
		if err != nil {
			t.Errorf("Missing %s: %v", rel, err)
			continue
		}
		if string(b) != want {
			t.Errorf("%s: want %q, got %q", rel, want, string(b))
		}
	}

	// A second install reuses the extracted release.
	if err := i.Install(context.Background(), prefix, source); err != nil {
		t.Fatalf("Second install failed: %v", err)
	}
	if hits != 1 {
		t.Errorf("Expected one download, got %d", hits)
	}

	matches, _ := filepath.Glob(filepath.Join(source, "download-*"))
	if len(matches) != 0 {
		t.Errorf("Temporary archive left behind: %v", matches)
	}
}

func TestReleaseInstallerDownloadFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer ts.Close()

	source := t.TempDir()
	i := &ReleaseInstaller{
		Release:    Release{Name: "dxvk-test", URL: ts.URL + "/dxvk-test.tar.gz"},
		Downloader: downloader.NewDefaultDownloader(),
	}
	if err := i.Install(context.Background(), t.TempDir(), source); err == nil {
		t.Fatalf("Expected download failure")
	}
	if _, err := os.Stat(filepath.Join(source, "dxvk-test")); !os.IsNotExist(err) {
		t.Errorf("Release dir should not exist after failure")
	}
}

// releaseBytes builds a dxvk style .tar.gz holding one large x32 DLL.
func releaseBytes(t *testing.T, name string, dll []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	files := []struct {
		name string
		body []byte
	}{
		{name + "/x64/dxgi.dll", []byte("x64 dxgi")},
		{name + "/x32/d3d11.dll", dll},
	}
	for _, f := range files {
		if err := tw.WriteHeader(&tar.Header{Name: f.name, Mode: 0644, Size: int64(len(f.body))}); err != nil {
			t.Fatal(err)
		}
		tw.Write(f.body)
	}
	tw.Close()
	gw.Close()
	return buf.Bytes()
}

func TestReleaseInstallerRetryAfterTruncatedDownload(t *testing.T) {
	dll := make([]byte, 200000)
	rand.New(rand.NewSource(1)).Read(dll)
	full := releaseBytes(t, "dxvk-test", dll)

	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.Write(full[:len(full)/2])
			return
		}
		w.Write(full)
	}))
	defer ts.Close()

	prefix := t.TempDir()
	source := t.TempDir()
	i := &ReleaseInstaller{
		Release:    Release{Name: "dxvk-test", URL: ts.URL + "/dxvk-test.tar.gz"},
		Downloader: downloader.NewDefaultDownloader(),
	}

	if err := i.Install(context.Background(), prefix, source); err == nil {
		t.Fatalf("Expected truncated archive to fail")
	}
	if _, err := os.Stat(filepath.Join(source, "dxvk-test")); !os.IsNotExist(err) {
		t.Fatalf("Partial release dir must not survive a failed extract")
	}

	if err := i.Install(context.Background(), prefix, source); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if hits != 2 {
		t.Errorf("Expected the retry to download again, got %d downloads", hits)
	}
	got, err := os.ReadFile(filepath.Join(prefix, "drive_c", "windows", "syswow64", "d3d11.dll"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, dll) {
		t.Errorf("Installed d3d11.dll has %d bytes, want the full %d", len(got), len(dll))
	}
}
