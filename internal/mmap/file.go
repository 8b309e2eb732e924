package mmap

import (
	"errors"
	"io"
	"os"
	"sync/atomic"
	"time"
)

var (
	// ErrClosed is returned by ReadAt after Close.
	ErrClosed = errors.New("mmap: file is closed")
	// ErrInvalidOffset is returned for negative offsets.
	ErrInvalidOffset = errors.New("mmap: invalid offset")
)

// File is a read-only file mapped for random access.
type File struct {
	data    []byte
	modTime time.Time
	closed  atomic.Bool
	unmap   func([]byte) error
}

// Open maps the file at path read-only and tells the kernel that reads
// will land at scattered offsets. The descriptor is closed before Open
// returns.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	m := &File{modTime: fi.ModTime()}
	if fi.Size() == 0 {
		return m, nil
	}

	m.data, m.unmap, err = mapRandom(f, int(fi.Size()))
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ReadAt copies mapped bytes at off into p with io.ReaderAt semantics.
func (m *File) ReadAt(p []byte, off int64) (int, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, ErrInvalidOffset
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the file size at Open.
func (m *File) Size() int64 {
	return int64(len(m.data))
}

// ModTime returns the modification time at Open.
func (m *File) ModTime() time.Time {
	return m.modTime
}

// Close unmaps the file. It is idempotent.
func (m *File) Close() error {
	if m.closed.Swap(true) || m.data == nil {
		return nil
	}
	return m.unmap(m.data)
}
