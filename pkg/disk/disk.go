// Package disk reports the local storage used by an environment.
package disk

import (
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"

	"xlcompat/pkg/config"
)

// Usage is the footprint of one directory.
type Usage struct {
	Label string
	Path  string
	Size  int64
	Items int
}

// HumanSize renders Size in binary units, e.g. "1.5 GiB".
func (u Usage) HumanSize() string {
	return humanize.IBytes(uint64(u.Size))
}

// Report measures the prefix, the runtime releases, the graphics layer
// releases and the log directory. Missing directories report zero.
// It returns the usages sorted by label and the grand total.
func Report(s config.Settings) ([]Usage, int64) {
	paths := map[string]string{
		"Prefix":  s.Wine.Prefix,
		"Runtime": s.RuntimeDir(),
		"DXVK":    s.DxvkDir(),
		"Logs":    filepath.Dir(s.Wine.LogFile),
	}

	var total int64
	var stats []Usage
	for label, path := range paths {
		size, count := DirSize(path)
		total += size
		stats = append(stats, Usage{Label: label, Path: path, Size: size, Items: count})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Label < stats[j].Label })
	return stats, total
}

// DirSize calculates the total size and file count of a directory.
// Symlinks are counted as entries but not followed, prefixes link into
// the host home directory.
func DirSize(path string) (int64, int) {
	var size int64
	var count int
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		count++
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				size += info.Size()
			}
		}
		return nil
	})
	return size, count
}
