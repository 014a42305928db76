package store

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/sasha-s/go-deadlock"
)

var (
	// ErrNotFound is returned when a key is not present in the store.
	ErrNotFound = errors.New("key not found")
	// ErrTypeMismatch is returned when a stored value does not have the requested type.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrPropertyNotFound is returned when an entry has no such property.
	ErrPropertyNotFound = errors.New("property not found")
	// ErrEmptyKey is returned for operations called with an empty key.
	ErrEmptyKey = errors.New("key cannot be empty")
)

type entry struct {
	typ      reflect.Type
	value    any
	metadata *Metadata
}

// KVStore is a threadsafe, type-aware in-memory store.
type KVStore struct {
	mu   deadlock.RWMutex
	data map[string]entry
}

// NewKVStore constructs an empty store.
func NewKVStore() *KVStore {
	return &KVStore{data: make(map[string]entry)}
}

// Put stores any Go value under key, capturing its concrete type.
// Existing metadata for the key is preserved.
func (s *KVStore) Put(key string, value any) error {
	return s.PutWithMetadata(key, value, nil)
}

// PutWithMetadata stores a value together with its metadata. A nil metadata
// keeps whatever metadata the key already had, or starts with empty metadata.
func (s *KVStore) PutWithMetadata(key string, value any, metadata *Metadata) error {
	if key == "" {
		return ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	meta := metadata.clone()
	if existing, ok := s.data[key]; ok && meta == nil {
		meta = existing.metadata
		meta.UpdatedAt = time.Now()
	}
	if meta == nil {
		meta = NewMetadata()
	}

	s.data[key] = entry{typ: reflect.TypeOf(value), value: value, metadata: meta}
	return nil
}

// Get retrieves a value of type T for the given key.
// Interface types match any stored value implementing them; other types
// must match exactly.
func Get[T any](s *KVStore, key string) (T, error) {
	var zero T
	if key == "" {
		return zero, ErrEmptyKey
	}

	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return zero, ErrNotFound
	}

	want := reflect.TypeFor[T]()
	if e.typ == nil {
		if want.Kind() == reflect.Interface {
			return zero, nil
		}
		return zero, fmt.Errorf("%w: wanted %v, got nil", ErrTypeMismatch, want)
	}

	if want.Kind() == reflect.Interface && !e.typ.Implements(want) {
		return zero, fmt.Errorf("%w: wanted interface %v, got %v which doesn't implement it",
			ErrTypeMismatch, want, e.typ)
	}
	if want.Kind() != reflect.Interface && e.typ != want {
		return zero, fmt.Errorf("%w: wanted %v, got %v", ErrTypeMismatch, want, e.typ)
	}

	result, ok := e.value.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %T cannot be converted to %v", ErrTypeMismatch, e.value, want)
	}
	return result, nil
}

// Snapshot copies every value whose key starts with prefix, keyed by the
// remainder of the key.
func (s *KVStore) Snapshot(prefix string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any)
	for k, e := range s.data {
		if name, ok := strings.CutPrefix(k, prefix); ok {
			out[name] = e.value
		}
	}
	return out
}

// GetMetadata returns a copy of the metadata for a key.
func (s *KVStore) GetMetadata(key string) (*Metadata, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return e.metadata.clone(), nil
}

func (s *KVStore) updateMetadata(key string, fn func(*Metadata)) error {
	if key == "" {
		return ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[key]
	if !ok {
		return ErrNotFound
	}
	fn(e.metadata)
	return nil
}

// HasTag checks if a key's metadata has a specific tag.
func (s *KVStore) HasTag(key, tag string) (bool, error) {
	meta, err := s.GetMetadata(key)
	if err != nil {
		return false, err
	}
	return meta.HasTag(tag), nil
}

// SetProperty sets a property in a key's metadata.
func (s *KVStore) SetProperty(key, property string, value any) error {
	return s.updateMetadata(key, func(m *Metadata) { m.SetProperty(property, value) })
}

// GetProperty gets a property from a key's metadata.
func (s *KVStore) GetProperty(key, property string) (any, error) {
	meta, err := s.GetMetadata(key)
	if err != nil {
		return nil, err
	}

	v, ok := meta.GetProperty(property)
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", ErrPropertyNotFound, property, key)
	}
	return v, nil
}

// FindKeysByTag returns, in lexical order, all keys carrying tag.
func (s *KVStore) FindKeysByTag(tag string) []string {
	return s.findKeys(func(m *Metadata) bool { return m.HasTag(tag) })
}

func (s *KVStore) findKeys(match func(*Metadata) bool) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k, e := range s.data {
		if e.metadata != nil && match(e.metadata) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}
