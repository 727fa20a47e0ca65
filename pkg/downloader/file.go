package downloader

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"

	"xlcompat/pkg/display"
)

// fileHandler copies local archives, used for offline mirrors of a release.
// Immutable
type fileHandler struct{}

func NewFileHandler() SchemeHandler {
	return fileHandler{}
}

func (fileHandler) Schemes() []string {
	return []string{"file"}
}

func (fileHandler) Download(ctx context.Context, uri string, w io.Writer, task display.Task) error {
	u, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("invalid uri: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(u.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return err
	}
	if task != nil {
		task.Progress(100, "copied "+u.Path)
	}
	return nil
}
