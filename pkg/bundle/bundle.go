// Package bundle reads and writes application bundles, the gzip-compressed
// tar archives holding an application's script and supporting templates.
// Archives are held fully in memory; nothing is streamed to disk.
package bundle

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"time"
)

// MemberNotFoundError reports a member path absent from an archive.
type MemberNotFoundError struct {
	Path string
}

func (e MemberNotFoundError) Error() string {
	return fmt.Sprintf("bundle: member %s not found in archive", e.Path)
}

// Archive wraps the raw bytes of a gzip-compressed tar archive.
type Archive struct {
	data []byte
}

// New wraps archive bytes. The bytes are not validated until a member is
// read.
func New(data []byte) *Archive {
	return &Archive{data: data}
}

// Bytes returns the raw archive bytes.
func (a *Archive) Bytes() []byte {
	return a.data
}

// Extract returns the UTF-8 content of the named member. A missing member
// yields a MemberNotFoundError carrying the path.
func (a *Archive) Extract(name string) (string, error) {
	members, err := a.Members(func(candidate string) bool { return candidate == name })
	if err != nil {
		return "", err
	}
	content, ok := members[name]
	if !ok {
		return "", MemberNotFoundError{Path: name}
	}
	return content, nil
}

// Members walks the archive once and returns the content of every regular
// member whose path the match function accepts, keyed by member path.
func (a *Archive) Members(match func(name string) bool) (map[string]string, error) {
	gzr, err := gzip.NewReader(bytes.NewReader(a.data))
	if err != nil {
		return nil, fmt.Errorf("bundle: unable to open archive: %v", err)
	}
	defer gzr.Close()

	members := make(map[string]string)
	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return members, nil
		} else if err != nil {
			return nil, fmt.Errorf("bundle: unable to read archive: %v", err)
		}

		if header.Typeflag != tar.TypeReg || !match(header.Name) {
			continue
		}
		content, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("bundle: unable to read member %s: %v", header.Name, err)
		}
		members[header.Name] = string(content)
	}
}

// Writer builds a new gzip-compressed tar archive in an in-memory buffer.
// Close must be called before Bytes; both writers are finalized regardless
// of how far assembly got.
type Writer struct {
	buf    bytes.Buffer
	gzw    *gzip.Writer
	tw     *tar.Writer
	closed bool
}

// NewWriter returns a Writer backed by a fresh buffer.
func NewWriter() *Writer {
	w := &Writer{}
	w.gzw = gzip.NewWriter(&w.buf)
	w.tw = tar.NewWriter(w.gzw)
	return w
}

// Add appends a regular member with the given path and content.
func (w *Writer) Add(name, content string) error {
	if w.closed {
		return fmt.Errorf("bundle: writer already closed")
	}
	header := &tar.Header{
		Name:    name,
		Mode:    0644,
		Size:    int64(len(content)),
		ModTime: time.Now(),
	}
	if err := w.tw.WriteHeader(header); err != nil {
		return fmt.Errorf("bundle: unable to write header for %s: %v", name, err)
	}
	if _, err := io.WriteString(w.tw, content); err != nil {
		return fmt.Errorf("bundle: unable to write member %s: %v", name, err)
	}
	return nil
}

// Close finalizes the archive. It is safe to call more than once.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.tw.Close(); err != nil {
		return fmt.Errorf("bundle: unable to finalize archive: %v", err)
	}
	if err := w.gzw.Close(); err != nil {
		return fmt.Errorf("bundle: unable to finalize archive: %v", err)
	}
	return nil
}

// Bytes returns the finished archive. Close must have been called.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}
