package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutAndGet(t *testing.T) {
	s := NewKVStore()

	require.NoError(t, s.Put("attribute:changelist", 50))
	require.NoError(t, s.Put("attribute:value", "Hello.txt"))

	changelist, err := Get[int](s, "attribute:changelist")
	assert.NoError(t, err)
	assert.Equal(t, 50, changelist)

	value, err := Get[string](s, "attribute:value")
	assert.NoError(t, err)
	assert.Equal(t, "Hello.txt", value)

	_, err = Get[string](s, "attribute:changelist")
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = Get[int](s, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Get[int](s, "")
	assert.ErrorIs(t, err, ErrEmptyKey)
	assert.ErrorIs(t, s.Put("", 1), ErrEmptyKey)
}

func TestGetInterface(t *testing.T) {
	s := NewKVStore()
	require.NoError(t, s.Put("err", errors.New("boom")))
	require.NoError(t, s.Put("nothing", nil))

	err, getErr := Get[error](s, "err")
	assert.NoError(t, getErr)
	assert.EqualError(t, err, "boom")

	_, getErr = Get[fmt.Stringer](s, "err")
	assert.ErrorIs(t, getErr, ErrTypeMismatch)

	v, getErr := Get[any](s, "nothing")
	assert.NoError(t, getErr)
	assert.Nil(t, v)

	_, getErr = Get[int](s, "nothing")
	assert.ErrorIs(t, getErr, ErrTypeMismatch)
}

func TestMetadata(t *testing.T) {
	s := NewKVStore()

	meta := NewMetadata()
	meta.AddTag("attribute")
	meta.AddTag("attribute")
	meta.SetProperty("source", "default")
	meta.Description = "File to build"

	require.NoError(t, s.PutWithMetadata("attribute:value", "Default.txt", meta))

	got, err := s.GetMetadata("attribute:value")
	require.NoError(t, err)
	assert.Equal(t, []string{"attribute"}, got.Tags)
	assert.Equal(t, "File to build", got.Description)

	source, err := s.GetProperty("attribute:value", "source")
	assert.NoError(t, err)
	assert.Equal(t, "default", source)

	_, err = s.GetProperty("attribute:value", "missing")
	assert.ErrorIs(t, err, ErrPropertyNotFound)

	// Returned metadata is a copy.
	got.AddTag("mutated")
	has, err := s.HasTag("attribute:value", "mutated")
	assert.NoError(t, err)
	assert.False(t, has)

	// Overwriting the value keeps the metadata.
	require.NoError(t, s.Put("attribute:value", "Other.txt"))
	has, err = s.HasTag("attribute:value", "attribute")
	assert.NoError(t, err)
	assert.True(t, has)

	assert.ErrorIs(t, s.SetProperty("missing", "x", 1), ErrNotFound)
	_, err = s.GetMetadata("")
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestFindKeys(t *testing.T) {
	s := NewKVStore()

	for i, name := range []string{"sync", "build", "submit"} {
		key := fmt.Sprintf("stage:%d", i+1)
		meta := NewMetadata()
		meta.AddTag("stage")
		meta.SetProperty("status", "pending")
		require.NoError(t, s.PutWithMetadata(key, name, meta))
	}
	require.NoError(t, s.Put("pipeline:1", "release"))

	assert.Equal(t, []string{"stage:1", "stage:2", "stage:3"}, s.FindKeysByTag("stage"))
	assert.Empty(t, s.FindKeysByTag("attribute"))

	require.NoError(t, s.SetProperty("stage:2", "status", "completed"))
	status, err := s.GetProperty("stage:2", "status")
	require.NoError(t, err)
	assert.Equal(t, "completed", status)
}

func TestSnapshot(t *testing.T) {
	s := NewKVStore()
	require.NoError(t, s.Put("attribute:b", 2))
	require.NoError(t, s.Put("attribute:a", 1))
	require.NoError(t, s.Put("stage:1", "sync"))

	assert.Equal(t, map[string]any{"a": 1, "b": 2}, s.Snapshot("attribute:"))
	assert.Equal(t, map[string]any{"1": "sync"}, s.Snapshot("stage:"))
	assert.Empty(t, s.Snapshot("pipeline:"))
}
