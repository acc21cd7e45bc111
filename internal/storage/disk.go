package storage

import (
	"io/fs"
	"os"
	"path/filepath"
)

// Usage is the on-disk footprint of the store's files.
type Usage struct {
	Paths map[string]int64 `json:"paths"`
	Total int64            `json:"total_bytes"`
}

// DiskUsage sums the size of each path (a file, or a directory walked
// recursively). Empty and missing paths count as zero, so an in-memory index
// or a not-yet-created database is not an error.
func DiskUsage(paths ...string) (Usage, error) {
	u := Usage{Paths: make(map[string]int64, len(paths))}
	for _, p := range paths {
		if p == "" || p == ":memory:" {
			continue
		}
		n, err := pathSize(p)
		if err != nil {
			return Usage{}, err
		}
		u.Paths[p] = n
		u.Total += n
	}
	return u, nil
}

func pathSize(p string) (int64, error) {
	info, err := os.Stat(p)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		// SQLite in WAL mode keeps recent writes beside the main file.
		total := info.Size()
		for _, suffix := range []string{"-wal", "-shm"} {
			if side, err := os.Stat(p + suffix); err == nil {
				total += side.Size()
			}
		}
		return total, nil
	}
	var total int64
	err = filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		total += fi.Size()
		return nil
	})
	return total, err
}
