package store

import (
	"maps"
	"slices"
	"time"
)

// Metadata describes a stored entry: free-form tags, typed properties and a
// description. The store hands out copies, so mutating a returned Metadata
// never changes the stored one.
type Metadata struct {
	Tags        []string
	Properties  map[string]any
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewMetadata creates empty metadata stamped with the current time.
func NewMetadata() *Metadata {
	now := time.Now()
	return &Metadata{
		Tags:       []string{},
		Properties: make(map[string]any),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// AddTag adds a tag if it is not already present.
func (m *Metadata) AddTag(tag string) {
	if m.HasTag(tag) {
		return
	}
	m.Tags = append(m.Tags, tag)
	m.UpdatedAt = time.Now()
}

// HasTag reports whether the tag is present.
func (m *Metadata) HasTag(tag string) bool {
	return slices.Contains(m.Tags, tag)
}

// SetProperty sets a property value.
func (m *Metadata) SetProperty(key string, value any) {
	if m.Properties == nil {
		m.Properties = make(map[string]any)
	}
	m.Properties[key] = value
	m.UpdatedAt = time.Now()
}

// GetProperty returns a property value and whether it was set.
func (m *Metadata) GetProperty(key string) (any, bool) {
	v, ok := m.Properties[key]
	return v, ok
}

func (m *Metadata) clone() *Metadata {
	if m == nil {
		return nil
	}
	c := *m
	c.Tags = slices.Clone(m.Tags)
	c.Properties = maps.Clone(m.Properties)
	if c.Properties == nil {
		c.Properties = make(map[string]any)
	}
	return &c
}
