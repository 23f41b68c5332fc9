package bundlestore

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

func TestPutGet(t *testing.T) {
	fileStore, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	want := []byte("archive-bytes")
	if err := fileStore.Put(1, want); err != nil {
		t.Fatal(err)
	}
	got, err := fileStore.Get(1)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestPutReplaces(t *testing.T) {
	fileStore, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := fileStore.Put(1, []byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := fileStore.Put(1, []byte("second")); err != nil {
		t.Fatal(err)
	}
	got, err := fileStore.Get(1)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Errorf("expected the replacement archive, got %q", got)
	}
}

func TestGetMissingBundle(t *testing.T) {
	fileStore, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	_, err = fileStore.Get(42)
	if !errors.Is(err, ErrBundleNotFound) {
		t.Errorf("expected ErrBundleNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	fileStore, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := fileStore.Put(1, []byte("archive")); err != nil {
		t.Fatal(err)
	}
	if err := fileStore.Delete(1); err != nil {
		t.Fatal(err)
	}
	_, err = fileStore.Get(1)
	if !errors.Is(err, ErrBundleNotFound) {
		t.Errorf("expected ErrBundleNotFound after delete, got %v", err)
	}
}

func TestDeleteMissingBundle(t *testing.T) {
	fileStore, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := fileStore.Delete(42); err != nil {
		t.Errorf("deleting a missing bundle should not fail, got %v", err)
	}
}

func TestCreatesNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state", "bundles")

	fileStore, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := fileStore.Put(1, []byte("archive")); err != nil {
		t.Fatal(err)
	}
}
