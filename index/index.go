package index

import (
	"fmt"
	"sync"

	roaring "github.com/RoaringBitmap/roaring"
	murmur3 "github.com/spaolacci/murmur3"
)

// ---------------------------------------------------------------------
// Strategy: Defines which indexing strategy to use
// ---------------------------------------------------------------------

type Strategy int

const (
	RoaringBitmap Strategy = iota
	HashIndex
)

func (s Strategy) String() string {
	switch s {
	case RoaringBitmap:
		return "roaring"
	case HashIndex:
		return "hash"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ---------------------------------------------------------------------
// Index: The universal interface for all index implementations
// ---------------------------------------------------------------------

// Index maps column values to the set of row positions holding them.
type Index interface {
	// Add records that rowID holds value
	Add(rowID uint32, value interface{}) error
	// Search returns all rowIDs matching the given value, ascending
	Search(value interface{}) ([]uint32, error)
	// Rows returns the bitmap of rowIDs holding value, or nil
	Rows(value interface{}) *roaring.Bitmap
	// Keys returns the distinct values in order of first insertion
	Keys() []interface{}
	// Clear removes all entries
	Clear() error
}

// ---------------------------------------------------------------------
// IndexManager: Manages one index per column and strategy
// ---------------------------------------------------------------------

type IndexManager struct {
	mu       sync.RWMutex
	indexes  map[string]map[Strategy]Index
	settings IndexSettings
}

type IndexSettings struct {
	// HashIndexSize is an (optional) hint for sizing a HashIndex
	HashIndexSize int
}

// NewIndexManager creates a new index manager with the given settings
func NewIndexManager(settings IndexSettings) *IndexManager {
	return &IndexManager{
		indexes:  make(map[string]map[Strategy]Index),
		settings: settings,
	}
}

// CreateIndex instantiates a new index of the specified strategy for a given
// column, replacing any previous one.
func (im *IndexManager) CreateIndex(column string, strategy Strategy) (Index, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	var idx Index
	switch strategy {
	case RoaringBitmap:
		idx = NewRoaringIndex()
	case HashIndex:
		idx = NewHashIndex(im.settings.HashIndexSize)
	default:
		return nil, fmt.Errorf("unsupported index strategy: %v", strategy)
	}

	if im.indexes[column] == nil {
		im.indexes[column] = make(map[Strategy]Index)
	}
	im.indexes[column][strategy] = idx
	return idx, nil
}

// GetIndex retrieves an existing index for a given column and strategy
func (im *IndexManager) GetIndex(column string, strategy Strategy) (Index, bool) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	strats, ok := im.indexes[column]
	if !ok {
		return nil, false
	}
	idx, exists := strats[strategy]
	return idx, exists
}

// Build creates an index over values, skipping the rows set in skip
// (which may be nil).
func (im *IndexManager) Build(column string, strategy Strategy, values []interface{}, skip *roaring.Bitmap) (Index, error) {
	idx, err := im.CreateIndex(column, strategy)
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		row := uint32(i)
		if skip != nil && skip.Contains(row) {
			continue
		}
		if err := idx.Add(row, v); err != nil {
			return nil, fmt.Errorf("index %q row %d: %w", column, i, err)
		}
	}
	return idx, nil
}

// ---------------------------------------------------------------------
// 1) Roaring Bitmap Index
//
//    Maps each distinct value -> roaring.Bitmap of rowIDs.
// ---------------------------------------------------------------------

type roaringIndex struct {
	mu     sync.RWMutex
	values map[interface{}]*roaring.Bitmap
	order  []interface{}
}

// NewRoaringIndex constructs a new Index backed by multiple Roaring bitmaps
func NewRoaringIndex() Index {
	return &roaringIndex{
		values: make(map[interface{}]*roaring.Bitmap),
	}
}

func (r *roaringIndex) Add(rowID uint32, value interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bm, ok := r.values[value]
	if !ok {
		bm = roaring.New()
		r.values[value] = bm
		r.order = append(r.order, value)
	}
	bm.Add(rowID)
	return nil
}

func (r *roaringIndex) Search(value interface{}) ([]uint32, error) {
	bm := r.Rows(value)
	if bm == nil {
		return nil, nil
	}
	return bm.ToArray(), nil
}

func (r *roaringIndex) Rows(value interface{}) *roaring.Bitmap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.values[value]
}

func (r *roaringIndex) Keys() []interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]interface{}(nil), r.order...)
}

func (r *roaringIndex) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.values = make(map[interface{}]*roaring.Bitmap)
	r.order = nil
	return nil
}

// ---------------------------------------------------------------------
// 2) Hash Index
//
//    Uses Murmur3 to hash each value into a bucket, and within each bucket
//    stores value -> Roaring bitmap of rowIDs.
// ---------------------------------------------------------------------

type hashIndex struct {
	mu      sync.RWMutex
	size    int
	buckets map[uint64]map[interface{}]*roaring.Bitmap // hash -> map[value] -> bitmap
	order   []interface{}
}

// NewHashIndex constructs a new HashIndex
func NewHashIndex(sizeHint int) Index {
	return &hashIndex{
		size:    sizeHint,
		buckets: make(map[uint64]map[interface{}]*roaring.Bitmap, sizeHint),
	}
}

func (h *hashIndex) Add(rowID uint32, value interface{}) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := murmurKey(value)

	submap, ok := h.buckets[key]
	if !ok {
		submap = make(map[interface{}]*roaring.Bitmap)
		h.buckets[key] = submap
	}
	bm, ok := submap[value]
	if !ok {
		bm = roaring.New()
		submap[value] = bm
		h.order = append(h.order, value)
	}
	bm.Add(rowID)
	return nil
}

func (h *hashIndex) Search(value interface{}) ([]uint32, error) {
	bm := h.Rows(value)
	if bm == nil {
		return nil, nil
	}
	return bm.ToArray(), nil
}

func (h *hashIndex) Rows(value interface{}) *roaring.Bitmap {
	h.mu.RLock()
	defer h.mu.RUnlock()

	submap, ok := h.buckets[murmurKey(value)]
	if !ok {
		return nil
	}
	return submap[value]
}

func (h *hashIndex) Keys() []interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]interface{}(nil), h.order...)
}

func (h *hashIndex) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buckets = make(map[uint64]map[interface{}]*roaring.Bitmap, h.size)
	h.order = nil
	return nil
}

// murmurKey hashes a value to a 64-bit key via its string form.
func murmurKey(value interface{}) uint64 {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case fmt.Stringer:
		s = v.String()
	default:
		s = fmt.Sprintf("%v", v)
	}
	return murmur3.Sum64([]byte(s))
}
