// Package fingerprint identifies files by size and modification time and
// locates sibling index files.
package fingerprint

import (
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Stat creates a FileFingerprint from an on-disk file.
func Stat(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Exists reports whether path can be stat'ed.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// FindIndex returns the first candidate index path that exists.
func FindIndex(candidates ...string) (string, bool) {
	for _, c := range candidates {
		if Exists(c) {
			return c, true
		}
	}
	return "", false
}

// Stale reports whether the index at indexPath is missing, empty or older
// than the data file it indexes.
func Stale(dataPath, indexPath string) bool {
	data, err := Stat(dataPath)
	if err != nil {
		return false
	}
	idx, err := Stat(indexPath)
	if err != nil || idx.Size == 0 {
		return true
	}
	return idx.ModTime.Before(data.ModTime)
}

// WriteAtomic writes via a temporary sibling and renames it into place.
func WriteAtomic(path string, write func(f *os.File) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
