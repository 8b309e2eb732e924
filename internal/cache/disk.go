package cache

import (
	"bytes"
	"container/list"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/meshfeat/internal/compress"
	"golang.org/x/sync/semaphore"
)

const (
	blockFileMagic = "MFBK"
	blockFileExt   = ".blk"
	tmpFilePrefix  = "tmp-blk-"
)

var errBlockFile = errors.New("cache: corrupt or foreign block file")

// DiskCacheConfig holds configuration for the disk cache.
type DiskCacheConfig struct {
	// RootDir is the directory where block files are stored.
	RootDir string
	// MaxSizeBytes bounds the bytes on disk.
	MaxSizeBytes int64
	// MaxConcurrentWrites limits background disk writes.
	// Defaults to 16 if <= 0.
	MaxConcurrentWrites int64
	// Compression is applied to every block written to disk.
	Compression compress.Type
}

// DiskBlockCache is a BlockCache on the local filesystem that survives
// restarts.
//
// A block lives in <root>/<hh>/<xxhash of key>.blk. The file starts with the
// full key, so a block is only returned for the exact store, blob version,
// blob size and block number it was written for. Files that fail that check
// are removed on read.
type DiskBlockCache struct {
	root        string
	maxSize     int64
	compression compress.Type
	writes      *semaphore.Weighted
	wg          sync.WaitGroup

	mu    sync.Mutex
	size  int64
	files map[uint64]*list.Element
	order *list.List // front = most recently used

	hits   atomic.Int64
	misses atomic.Int64
}

type diskFile struct {
	sum  uint64
	size int64
}

// NewDiskBlockCache opens the cache at config.RootDir and indexes the block
// files left there by earlier processes.
func NewDiskBlockCache(config DiskCacheConfig) (*DiskBlockCache, error) {
	if err := os.MkdirAll(config.RootDir, 0o755); err != nil {
		return nil, err
	}

	maxWrites := config.MaxConcurrentWrites
	if maxWrites <= 0 {
		maxWrites = 16
	}

	c := &DiskBlockCache{
		root:        config.RootDir,
		maxSize:     config.MaxSizeBytes,
		compression: config.Compression,
		writes:      semaphore.NewWeighted(maxWrites),
		files:       make(map[uint64]*list.Element),
		order:       list.New(),
	}
	c.load()
	return c, nil
}

// load indexes existing block files, oldest modification time first, and
// removes temp files of interrupted writes.
func (c *DiskBlockCache) load() {
	type found struct {
		diskFile
		mtime time.Time
	}
	var files []found

	_ = filepath.WalkDir(c.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), tmpFilePrefix) {
			_ = os.Remove(p)
			return nil
		}
		sum, ok := parseBlockName(d.Name())
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, found{diskFile{sum: sum, size: info.Size()}, info.ModTime()})
		return nil
	})

	slices.SortFunc(files, func(a, b found) int { return a.mtime.Compare(b.mtime) })

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range files {
		c.add(f.sum, f.size)
	}
}

func (c *DiskBlockCache) blockPath(sum uint64) string {
	name := fmt.Sprintf("%016x", sum)
	return filepath.Join(c.root, name[:2], name+blockFileExt)
}

func parseBlockName(name string) (uint64, bool) {
	hex, ok := strings.CutSuffix(name, blockFileExt)
	if !ok || len(hex) != 16 {
		return 0, false
	}
	sum, err := strconv.ParseUint(hex, 16, 64)
	return sum, err == nil
}

// Get returns a cached block.
func (c *DiskBlockCache) Get(_ context.Context, key CacheKey) ([]byte, bool) {
	sum := key.Sum64()

	c.mu.Lock()
	el, ok := c.files[sum]
	if ok {
		c.order.MoveToFront(el)
	}
	c.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	data, err := c.read(sum, key)
	if err != nil {
		c.mu.Lock()
		if c.files[sum] == el {
			c.remove(el)
		}
		c.mu.Unlock()
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return data, true
}

func (c *DiskBlockCache) read(sum uint64, key CacheKey) ([]byte, error) {
	raw, err := os.ReadFile(c.blockPath(sum))
	if err != nil {
		return nil, err
	}
	stored, frame, err := decodeBlockFile(raw)
	if err != nil {
		return nil, err
	}
	if stored != key {
		return nil, errBlockFile
	}
	return compress.Decode(frame)
}

// Set writes a block in the background. Writes beyond MaxConcurrentWrites
// and blocks larger than the whole cache are dropped.
func (c *DiskBlockCache) Set(_ context.Context, key CacheKey, b []byte) {
	sum := key.Sum64()

	c.mu.Lock()
	if el, ok := c.files[sum]; ok {
		c.order.MoveToFront(el)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	frame, err := compress.Encode(b, c.compression)
	if err != nil {
		return
	}
	data := encodeBlockFile(key, frame)
	if int64(len(data)) > c.maxSize {
		return
	}

	if !c.writes.TryAcquire(1) {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.writes.Release(1)

		if err := writeFileAtomic(c.blockPath(sum), data); err != nil {
			return
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if el, ok := c.files[sum]; ok {
			c.order.MoveToFront(el)
			return
		}
		c.add(sum, int64(len(data)))
	}()
}

// add indexes a block file as most recently used, evicting from the back
// until it fits. Caller holds mu.
func (c *DiskBlockCache) add(sum uint64, size int64) {
	for c.size+size > c.maxSize && c.order.Len() > 0 {
		c.remove(c.order.Back())
	}
	c.files[sum] = c.order.PushFront(&diskFile{sum: sum, size: size})
	c.size += size
}

// remove drops a block from the index and from disk. Caller holds mu.
func (c *DiskBlockCache) remove(el *list.Element) {
	f := c.order.Remove(el).(*diskFile)
	delete(c.files, f.sum)
	c.size -= f.size
	_ = os.Remove(c.blockPath(f.sum))
}

// Flush waits for pending background writes.
func (c *DiskBlockCache) Flush() {
	c.wg.Wait()
}

// Close waits for pending background writes.
func (c *DiskBlockCache) Close() error {
	c.wg.Wait()
	return nil
}

// Size returns the bytes of indexed block files.
func (c *DiskBlockCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Stats returns hit and miss counts.
func (c *DiskBlockCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// encodeBlockFile lays out magic, key and compressed frame.
func encodeBlockFile(k CacheKey, frame []byte) []byte {
	buf := make([]byte, 0, len(blockFileMagic)+len(k.Namespace)+len(k.Path)+len(k.Version)+3*binary.MaxVarintLen64+2*binary.MaxVarintLen64+len(frame))
	buf = append(buf, blockFileMagic...)
	for _, s := range []string{k.Namespace, k.Path, k.Version} {
		buf = binary.AppendUvarint(buf, uint64(len(s)))
		buf = append(buf, s...)
	}
	buf = binary.AppendVarint(buf, k.Size)
	buf = binary.AppendUvarint(buf, k.Block)
	return append(buf, frame...)
}

func decodeBlockFile(raw []byte) (CacheKey, []byte, error) {
	rest, ok := bytes.CutPrefix(raw, []byte(blockFileMagic))
	if !ok {
		return CacheKey{}, nil, errBlockFile
	}

	readString := func() (string, bool) {
		n, w := binary.Uvarint(rest)
		if w <= 0 || n > uint64(len(rest)-w) {
			return "", false
		}
		s := string(rest[w : w+int(n)])
		rest = rest[w+int(n):]
		return s, true
	}

	var k CacheKey
	for _, dst := range []*string{&k.Namespace, &k.Path, &k.Version} {
		if *dst, ok = readString(); !ok {
			return CacheKey{}, nil, errBlockFile
		}
	}

	size, w := binary.Varint(rest)
	if w <= 0 {
		return CacheKey{}, nil, errBlockFile
	}
	rest = rest[w:]
	blk, w := binary.Uvarint(rest)
	if w <= 0 {
		return CacheKey{}, nil, errBlockFile
	}
	k.Size, k.Block = size, blk
	return k, rest[w:], nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, tmpFilePrefix+"*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}
