// Package dedupe tracks document submissions so the same content is analyzed
// at most once.
package dedupe

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

const defaultMaxSize = 50_000

// Deduper records submission fingerprints.
type Deduper interface {
	// SeenAndRecord atomically reports whether key was already recorded and
	// records it under id if not. For a seen key it returns the id of the
	// first submission.
	SeenAndRecord(ctx context.Context, key, id string) (string, bool)

	// Unrecord forgets key so a submission rejected downstream (by queue
	// backpressure or a failed analysis) can be retried.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// Fingerprint identifies a submission by its bytes and OCR text. The text is
// length-prefixed so content/text boundaries cannot collide.
func Fingerprint(content []byte, text string) string {
	h := sha256.New()
	h.Write(content)
	var n [8]byte
	l := uint64(len(text))
	for i := range n {
		n[i] = byte(l >> (8 * i))
	}
	h.Write(n[:])
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

type entry struct {
	key string
	id  string
}

// inMemoryDeduper keeps keys in insertion order. When bounded, the oldest key
// is evicted first.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int // <= 0 means unbounded
}

// NewInMemoryDeduper creates an in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key, id string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.seen[key]; ok {
		return e.Value.(entry).id, true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.seen, oldest.Value.(entry).key)
	}
	d.seen[key] = d.order.PushBack(entry{key: key, id: id})
	return id, false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.seen[key]; ok {
		d.order.Remove(e)
		delete(d.seen, key)
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}
