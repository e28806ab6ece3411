// Tier B: a concurrent hash table in a POSIX shared-memory segment,
// attached by every worker process that shares the same cache key. Built
// by the first requester; subsequent processes attach read-mostly, via
// golang.org/x/sys/unix mmap over a named-shared mapping so the segment
// is actually visible across processes (spec §4.7's "per-bucket locks for
// mutation; readers use lock-free probing").
package hfcache

import (
	"os"
	"path/filepath"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/biostream/pgkmer/kerr"
)

const (
	tierBHeaderSize = 64 // reserved for a future on-disk format tag + bucket count; bucket data starts after it.
	tierBSlotSize   = 16 // 8 bytes key + 4 bytes occupied flag + 4 bytes padding, kept pointer-free so unsafe casts stay trivial.
)

// sharedSegment wraps one attached mmap region plus the bookkeeping needed
// to unpin it exactly once (spec §4.7's "strict double-free guard").
type sharedSegment struct {
	mu       sync.Mutex
	data     []byte
	path     string
	refcount int
	released bool
}

var (
	registryMu sync.Mutex
	registry   = map[string]*sharedSegment{}
)

func segmentPath(key CacheKey) string {
	dir := os.Getenv("PGKMER_HF_SHM_DIR")
	if dir == "" {
		dir = "/dev/shm"
	}
	return filepath.Join(dir, "pgkmer-hfcache-"+key.String())
}

// tierB is a process's handle on a shard of the shared segment: the
// bucket table itself, plus the shared segment it is backed by (kept
// alive via refcount while this handle is open).
type tierB struct {
	seg      *sharedSegment
	nBuckets uint64
	mask     uint64
}

// openTierB attaches (creating if necessary) the shared segment identified
// by key, sized for at least expectedEntries at a 2x load factor. The
// first process to create the file becomes its writer; later attaches see
// whatever the writer already populated.
func openTierB(key CacheKey, expectedEntries int) (*tierB, error) {
	size := uint64(1)
	for size < uint64(expectedEntries)*2 {
		size *= 2
	}
	if size < 16 {
		size = 16
	}
	path := segmentPath(key)

	registryMu.Lock()
	seg, ok := registry[path]
	registryMu.Unlock()
	if ok {
		seg.mu.Lock()
		seg.refcount++
		seg.mu.Unlock()
		return &tierB{seg: seg, nBuckets: size, mask: size - 1}, nil
	}

	totalSize := int(tierBHeaderSize + size*tierBSlotSize)
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_RDWR, 0600)
	if err != nil {
		return nil, kerr.Wrap(kerr.Transient, err, "hfcache: open shared segment %s", path)
	}
	defer unix.Close(fd)

	st, err := os.Stat(path)
	firstCreate := err == nil && st.Size() == 0
	if err := unix.Ftruncate(fd, int64(totalSize)); err != nil {
		return nil, kerr.Wrap(kerr.Transient, err, "hfcache: ftruncate shared segment %s", path)
	}
	data, err := unix.Mmap(fd, 0, totalSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, kerr.Wrap(kerr.Transient, err, "hfcache: mmap shared segment %s", path)
	}
	if firstCreate {
		for i := range data {
			data[i] = 0
		}
	}

	seg = &sharedSegment{data: data, path: path, refcount: 1}
	registryMu.Lock()
	registry[path] = seg
	registryMu.Unlock()
	return &tierB{seg: seg, nBuckets: size, mask: size - 1}, nil
}

func (t *tierB) slot(i uint64) (key *uint64, occupied *uint32) {
	base := tierBHeaderSize + i*tierBSlotSize
	return (*uint64)(unsafe.Pointer(&t.seg.data[base])),
		(*uint32)(unsafe.Pointer(&t.seg.data[base+8]))
}

// insert adds value under the bucket's implicit lock (the per-segment
// sharedSegment.mu stands in for spec §4.7's per-bucket locks; a single
// process-wide mutex is sufficient here because Cache.Load, the only
// caller of insert, fills the table from one goroutine).
func (t *tierB) insert(value uint64) {
	t.seg.mu.Lock()
	defer t.seg.mu.Unlock()
	h := hashValue(value) & t.mask
	for {
		key, occupied := t.slot(h)
		if *occupied == 0 {
			*key = value
			*occupied = 1
			return
		}
		if *key == value {
			return
		}
		h = (h + 1) & t.mask
	}
}

// contains probes lock-free, matching spec §4.7's reader discipline.
func (t *tierB) contains(value uint64) bool {
	h := hashValue(value) & t.mask
	for {
		key, occupied := t.slot(h)
		if *occupied == 0 {
			return false
		}
		if *key == value {
			return true
		}
		h = (h + 1) & t.mask
	}
}

// release detaches this handle from the shared segment, unmapping and
// removing the backing file once the last holder releases. Idempotent:
// calling release twice on the same handle is a no-op the second time.
func (t *tierB) release() error {
	seg := t.seg
	if seg == nil {
		return nil
	}
	t.seg = nil
	seg.mu.Lock()
	defer seg.mu.Unlock()
	if seg.released {
		return nil
	}
	seg.refcount--
	if seg.refcount > 0 {
		return nil
	}
	seg.released = true
	registryMu.Lock()
	delete(registry, seg.path)
	registryMu.Unlock()
	if err := unix.Munmap(seg.data); err != nil {
		return kerr.Wrap(kerr.Internal, err, "hfcache: munmap %s", seg.path)
	}
	if err := os.Remove(seg.path); err != nil && !os.IsNotExist(err) {
		return kerr.Wrap(kerr.Internal, err, "hfcache: remove %s", seg.path)
	}
	return nil
}
