package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/dustin/go-humanize"

	"xlcompat/pkg/display"
)

// UserAgent is sent with every release request. Release hosts throttle
// anonymous clients without one.
var UserAgent = "xlcompat"

// StatusError reports a release asset the server refused to hand out.
type StatusError struct {
	Asset  string
	Host   string
	Status string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("release asset %s on %s: %s", e.Asset, e.Host, e.Status)
}

// releaseClient fetches release assets over http(s), following the
// redirects release pages use to point at their storage backend.
// Immutable
type releaseClient struct {
	client *http.Client
}

// NewHTTPHandler returns the http and https handler. Requests have no
// timeout of their own; runtimes are hundreds of megabytes, the caller's
// context bounds them.
func NewHTTPHandler() SchemeHandler {
	return &releaseClient{client: &http.Client{}}
}

func (c *releaseClient) Schemes() []string {
	return []string{"http", "https"}
}

func (c *releaseClient) Download(ctx context.Context, uri string, w io.Writer, task display.Task) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{
			Asset:  path.Base(req.URL.Path),
			Host:   req.URL.Host,
			Status: resp.Status,
			Code:   resp.StatusCode,
		}
	}

	var dst io.Writer = w
	if task != nil {
		dst = io.MultiWriter(w, &meter{task: task, total: resp.ContentLength, start: time.Now()})
	}
	n, err := io.Copy(dst, resp.Body)
	if err != nil {
		return fmt.Errorf("after %s: %w", humanize.IBytes(uint64(n)), err)
	}
	return nil
}

// meter turns bytes written into task progress. It only reports when the
// percentage changes, or once per received megabyte when the size is unknown.
// Mutable
type meter struct {
	task     display.Task
	total    int64
	written  int64
	start    time.Time
	reported int64
}

func (m *meter) Write(p []byte) (int, error) {
	m.written += int64(len(p))

	if m.total <= 0 {
		if m.written-m.reported >= 1<<20 || m.reported == 0 {
			m.reported = m.written
			m.task.Progress(0, humanize.IBytes(uint64(m.written))+" received")
		}
		return len(p), nil
	}

	percent := m.written * 100 / m.total
	if percent == m.reported && m.written != m.total {
		return len(p), nil
	}
	m.reported = percent

	rate := float64(m.written) / time.Since(m.start).Seconds()
	m.task.Progress(int(percent), fmt.Sprintf("%s of %s, %s/s",
		humanize.IBytes(uint64(m.written)),
		humanize.IBytes(uint64(m.total)),
		humanize.IBytes(uint64(rate))))
	return len(p), nil
}
