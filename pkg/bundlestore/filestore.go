// Package bundlestore persists application bundle archives. It stands at
// the object-store boundary: a missing archive is a precondition failure
// for rendering, reported before any template work starts.
package bundlestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrBundleNotFound reports a missing bundle archive.
var ErrBundleNotFound = errors.New("bundlestore: bundle not found")

// Store holds one bundle archive per application id.
type Store interface {
	Put(applicationID int, data []byte) error
	Get(applicationID int) ([]byte, error)
	Delete(applicationID int) error
}

// FileStore keeps bundle archives as files inside a managed directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the backing directory if needed and returns a store
// over it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("bundlestore: unable to create %s: %v", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(applicationID int) string {
	return filepath.Join(f.dir, fmt.Sprintf("application-%d.tar.gz", applicationID))
}

// Put writes the archive for an application, replacing any previous one.
func (f *FileStore) Put(applicationID int, data []byte) error {
	if err := os.WriteFile(f.path(applicationID), data, 0644); err != nil {
		return fmt.Errorf("bundlestore: unable to store bundle for application %d: %v", applicationID, err)
	}
	return nil
}

// Get returns the archive bytes for an application.
func (f *FileStore) Get(applicationID int) ([]byte, error) {
	data, err := os.ReadFile(f.path(applicationID))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: application %d", ErrBundleNotFound, applicationID)
	} else if err != nil {
		return nil, fmt.Errorf("bundlestore: unable to read bundle for application %d: %v", applicationID, err)
	}
	return data, nil
}

// Delete removes the archive for an application. Deleting a missing
// archive is not an error; the owning row may already be gone.
func (f *FileStore) Delete(applicationID int) error {
	err := os.Remove(f.path(applicationID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("bundlestore: unable to delete bundle for application %d: %v", applicationID, err)
	}
	return nil
}
