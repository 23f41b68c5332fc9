package bundle

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// PackageDir archives every regular file under dir into a new bundle.
// Member paths are slash-separated and relative to dir, so a
// templates/ subdirectory ends up under templates/ in the archive.
func PackageDir(dir string) ([]byte, error) {
	w := NewWriter()
	defer w.Close()

	err := filepath.Walk(dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return w.Add(filepath.ToSlash(rel), string(content))
	})
	if err != nil {
		return nil, fmt.Errorf("bundle: unable to package %s: %v", dir, err)
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}
