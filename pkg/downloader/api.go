// Package downloader retrieves remote release archives.
// It supports multiple schemes and reports progress via the display package.
package downloader

import (
	"context"
	"io"

	"xlcompat/pkg/display"
)

// Downloader manages the retrieval of resources from various URIs.
type Downloader interface {
	// Download retrieves the resource at the specified URI and writes it to w.
	// Progress is reported to task, which may be nil.
	Download(ctx context.Context, uri string, w io.Writer, task display.Task) error
}

// SchemeHandler handles a specific set of URI schemes (e.g., "https").
type SchemeHandler interface {
	Download(ctx context.Context, uri string, w io.Writer, task display.Task) error
	Schemes() []string
}
