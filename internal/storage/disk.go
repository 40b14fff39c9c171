package storage

import (
	"io/fs"
	"os"
	"path/filepath"
)

// DatabaseSize returns the on-disk size of a SQLite database, including its WAL and
// shared-memory files. Missing files count as zero.
func DatabaseSize(dbPath string) (int64, error) {
	if dbPath == "" {
		return 0, nil
	}
	return sizeOf(dbPath, dbPath+"-wal", dbPath+"-shm")
}

// Size returns the on-disk size of the store, or 0 for non-file stores.
func Size(s Storage) (int64, error) {
	if sq, ok := s.(*SQLiteStorage); ok {
		return DatabaseSize(sq.Path())
	}
	return 0, nil
}

func sizeOf(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if !info.IsDir() {
			total += info.Size()
			continue
		}
		err = filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			total += fi.Size()
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}
