package downloader

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"xlcompat/pkg/display"
)

// mux picks a SchemeHandler by the scheme of the release URL.
// Mutable until returned from NewDefaultDownloader.
type mux struct {
	byScheme map[string]SchemeHandler
}

// NewDefaultDownloader returns a Downloader for http, https and file URLs.
// file:// serves offline mirrors of a release.
func NewDefaultDownloader() Downloader {
	m := &mux{byScheme: map[string]SchemeHandler{}}
	for _, h := range []SchemeHandler{NewHTTPHandler(), NewFileHandler()} {
		for _, scheme := range h.Schemes() {
			m.byScheme[scheme] = h
		}
	}
	return m
}

func (m *mux) Download(ctx context.Context, uri string, w io.Writer, task display.Task) error {
	u, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("invalid release url %q: %w", uri, err)
	}

	h, ok := m.byScheme[strings.ToLower(u.Scheme)]
	if !ok {
		return fmt.Errorf("unsupported scheme %q in release url %s", u.Scheme, uri)
	}

	if task != nil {
		task.SetStage("Download", uri)
	}
	return h.Download(ctx, uri, w, task)
}
