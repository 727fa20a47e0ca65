// Package archive unpacks runtime and graphics layer release archives.
package archive

import (
	"archive/tar"
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// SupportedExtensions returns a list of all file extensions that the archive module can extract.
func SupportedExtensions() []string {
	return []string{".tar.xz", ".txz", ".tar.gz", ".tgz", ".tar.zst", ".tar", ".zip"}
}

// ExtensionOf returns the supported archive extension name ends with, or "".
func ExtensionOf(name string) string {
	for _, ext := range SupportedExtensions() {
		if strings.HasSuffix(name, ext) {
			return ext
		}
	}
	return ""
}

// IsSupported returns true if the filename has a supported archive extension.
func IsSupported(filename string) bool {
	return ExtensionOf(filename) != ""
}

// Extract extracts the contents of the archive at src into the directory dest.
// The format is chosen from the extension of src.
func Extract(src string, dest string) error {
	ext := ExtensionOf(src)
	if ext == ".zip" {
		return extractZip(src, dest)
	}

	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	var r io.Reader = f

	switch ext {
	case ".tar.xz", ".txz":
		xr, err := xz.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to create xz reader: %w", err)
		}
		r = xr
	case ".tar.gz", ".tgz":
		gzr, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzr.Close()
		r = gzr
	case ".tar.zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer zr.Close()
		r = zr
	case ".tar":
		// Plain tar, reader is file
	default:
		return fmt.Errorf("unsupported archive format: %s", src)
	}

	return extractTar(r, dest)
}

// ExtractRelease extracts an archive whose content sits under one top-level
// directory name and moves that directory to parent/name. Extraction happens
// in a staging directory under parent, so parent/name only appears once the
// whole archive has been written. A previous parent/name is replaced.
func ExtractRelease(src, parent, name string) error {
	if err := os.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", parent, err)
	}
	staging, err := os.MkdirTemp(parent, ".staging-*")
	if err != nil {
		return fmt.Errorf("failed to create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := Extract(src, staging); err != nil {
		return err
	}

	extracted := filepath.Join(staging, name)
	if info, err := os.Stat(extracted); err != nil || !info.IsDir() {
		return fmt.Errorf("archive %s has no top-level directory %s", filepath.Base(src), name)
	}

	target := filepath.Join(parent, name)
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("failed to remove previous %s: %w", target, err)
	}
	if err := os.Rename(extracted, target); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", name, err)
	}
	return nil
}

func extractZip(src, dest string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("failed to open zip archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		err := extractFile(f.Name, f.FileInfo(), dest, func() (io.ReadCloser, error) {
			return f.Open()
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func extractTar(r io.Reader, dest string) error {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read tar header: %w", err)
		}

		switch header.Typeflag {
		case tar.TypeSymlink:
			// Runtime releases link their lib directories; keep the links.
			if err := extractSymlink(header.Name, header.Linkname, dest); err != nil {
				return err
			}
			continue
		case tar.TypeDir, tar.TypeReg:
		default:
			continue
		}

		err = extractFile(header.Name, header.FileInfo(), dest, func() (io.ReadCloser, error) {
			return io.NopCloser(tr), nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func safeTarget(name, dest string) (string, error) {
	target := filepath.Join(dest, name)
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
		return "", fmt.Errorf("illegal file path in archive: %s", name)
	}
	return target, nil
}

func extractSymlink(name, linkname, dest string) error {
	target, err := safeTarget(name, dest)
	if err != nil {
		return err
	}
	if filepath.IsAbs(linkname) {
		return fmt.Errorf("illegal symlink in archive: %s -> %s", name, linkname)
	}
	resolved := filepath.Join(filepath.Dir(target), linkname)
	if !strings.HasPrefix(resolved, filepath.Clean(dest)+string(os.PathSeparator)) {
		return fmt.Errorf("illegal symlink in archive: %s -> %s", name, linkname)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", target, err)
	}
	os.Remove(target)
	if err := os.Symlink(linkname, target); err != nil {
		return fmt.Errorf("failed to create symlink %s: %w", target, err)
	}
	return nil
}

// extractFile is a helper to extract a single file/dir.
// opener is a function that returns a reader for the file content.
func extractFile(name string, info os.FileInfo, dest string, opener func() (io.ReadCloser, error)) error {
	// Zip Slip protection
	target, err := safeTarget(name, dest)
	if err != nil {
		return err
	}

	if info.IsDir() {
		if err := os.MkdirAll(target, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", target, err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", target, err)
	}

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", target, err)
	}
	defer f.Close()

	rc, err := opener()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", name, err)
	}
	// For tar, rc is NopCloser(tr) and Close does nothing.
	defer rc.Close()

	_, err = io.Copy(f, rc)
	if err != nil {
		return fmt.Errorf("failed to write file %s: %w", target, err)
	}
	return nil
}
