package library

import (
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/synfitgo/internal/synthesis"
)

// Store holds library entries by key. Implementations must be safe for
// concurrent use.
type Store interface {
	// Put records output under key unless an entry already exists, and
	// reports whether it was stored.
	Put(key string, output *synthesis.Output) bool
	Get(key string) (*synthesis.Output, bool)
	Len() int
}

// MemoryStore keeps entries in a sync.Map. Keys are written once and read by
// every worker afterwards, the access pattern sync.Map is built for.
type MemoryStore struct {
	entries sync.Map // key -> *synthesis.Output
	size    atomic.Int64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Put(key string, output *synthesis.Output) bool {
	if _, loaded := s.entries.LoadOrStore(key, output); loaded {
		return false
	}
	s.size.Add(1)
	return true
}

func (s *MemoryStore) Get(key string) (*synthesis.Output, bool) {
	v, ok := s.entries.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*synthesis.Output), true
}

func (s *MemoryStore) Len() int {
	return int(s.size.Load())
}
