package blobstore

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/meshfeat/internal/mmap"
)

// LocalStore implements BlobStore using the local file system.
type LocalStore struct {
	root  string
	plain bool
}

// LocalOption configures a LocalStore.
type LocalOption func(*LocalStore)

// WithPlainFiles reads through os.File positioned reads instead of mmap.
func WithPlainFiles() LocalOption {
	return func(s *LocalStore) {
		s.plain = true
	}
}

// NewLocalStore creates a new LocalStore rooted at the given directory.
func NewLocalStore(root string, optFns ...LocalOption) *LocalStore {
	s := &LocalStore{root: root}
	for _, fn := range optFns {
		fn(s)
	}
	return s
}

// ID returns the file URL of the absolute dataset directory.
func (s *LocalStore) ID() string {
	root, err := filepath.Abs(s.root)
	if err != nil {
		root = s.root
	}
	return "file://" + filepath.ToSlash(root)
}

// Root returns the dataset directory.
func (s *LocalStore) Root() string {
	return s.root
}

// Open opens a blob for reading.
func (s *LocalStore) Open(_ context.Context, name string) (Blob, error) {
	p := filepath.Join(s.root, filepath.FromSlash(name))

	if s.plain {
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		fi, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		return &fileBlob{f: f, size: fi.Size(), modTime: fi.ModTime()}, nil
	}

	m, err := mmap.Open(p)
	if err != nil {
		return nil, err
	}
	return &localBlob{m: m}, nil
}

// List returns all blobs under root whose slash path starts with prefix.
func (s *LocalStore) List(_ context.Context, prefix string) ([]string, error) {
	dir := path.Dir(prefix)
	if strings.HasSuffix(prefix, "/") {
		dir = strings.TrimSuffix(prefix, "/")
	}
	start := filepath.Join(s.root, filepath.FromSlash(dir))

	var names []string
	err := filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	sort.Strings(names)
	return names, nil
}

func mtimeVersion(t time.Time) string {
	return strconv.FormatInt(t.UnixNano(), 10)
}

type localBlob struct {
	m *mmap.File
}

func (b *localBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	return b.m.ReadAt(p, off)
}

func (b *localBlob) Close() error {
	return b.m.Close()
}

func (b *localBlob) Size() int64 {
	return b.m.Size()
}

func (b *localBlob) Version() string {
	return mtimeVersion(b.m.ModTime())
}

type fileBlob struct {
	f       *os.File
	size    int64
	modTime time.Time
}

func (b *fileBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	if off >= b.size {
		return 0, io.EOF
	}
	return b.f.ReadAt(p, off)
}

func (b *fileBlob) Close() error {
	return b.f.Close()
}

func (b *fileBlob) Size() int64 {
	return b.size
}

func (b *fileBlob) Version() string {
	return mtimeVersion(b.modTime)
}
